package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"sitepulse/api/metrics"
	"sitepulse/api/models"
	"sitepulse/api/store"
	"sitepulse/api/tracking"
	"sitepulse/api/workers"
)

// TrackHandlers owns the beacon ingestion pipeline: consent gate, identity
// and geo resolution, bot and internal-traffic classification, traffic
// source attribution, then handoff to the batch writer.
type TrackHandlers struct {
	Projects *store.ProjectCache
	Geo      *tracking.GeoResolver
	Writer   *workers.EventWriter
}

func NewTrackHandlers(projects *store.ProjectCache, geo *tracking.GeoResolver, writer *workers.EventWriter) *TrackHandlers {
	return &TrackHandlers{Projects: projects, Geo: geo, Writer: writer}
}

// notRecorded answers a suppressed or unattributable beacon. The status is
// a success on purpose: the page must not be able to distinguish a recorded
// event from a suppressed one.
func notRecorded(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Event not recorded"})
}

// Track ingests one beacon. Malformed JSON is the only client error; every
// other unhappy path answers 200 so tracking snippets never retry or leak.
func (h *TrackHandlers) Track(c *gin.Context) {
	timer := time.Now()
	defer func() {
		metrics.IngestDuration.Observe(time.Since(timer).Seconds())
	}()

	var payload models.BeaconPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid beacon payload", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()

	project, err := h.Projects.GetProject(ctx, payload.ProjectID)
	if err != nil {
		if err != store.ErrNotFound {
			log.Printf("Track: project lookup failed for %s: %v", payload.ProjectID, err)
		}
		notRecorded(c)
		return
	}

	settings, err := h.Projects.GetConsentSettings(ctx, project.ID)
	if err != nil {
		log.Printf("Track: consent settings lookup failed for %s: %v", project.ID, err)
		notRecorded(c)
		return
	}

	decision := tracking.EvaluateConsent(&payload, tracking.ConsentContext{
		DNTHeader: c.GetHeader("DNT") == "1",
	}, settings)
	if !decision.Record {
		metrics.EventsSuppressed.WithLabelValues(decision.Reason).Inc()
		notRecorded(c)
		return
	}

	clientIP := tracking.ExtractClientIP(c.Request)

	// Geo runs against the real IP; anonymization happens after.
	geoCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	location := h.Geo.Lookup(geoCtx, clientIP)
	cancel()

	storedIP := clientIP
	if decision.AnonymizeIP {
		storedIP = tracking.AnonymizeIP(clientIP)
	}

	isBot, isServer := tracking.ClassifyUserAgent(payload.UserAgent)

	rules, err := h.Projects.GetInternalIPRules(ctx, project.ID)
	if err != nil {
		log.Printf("Track: IP rule lookup failed for %s: %v", project.ID, err)
		rules = nil
	}
	isInternal := tracking.IsInternalTraffic(payload.Hostname, project.Domain, clientIP, rules)

	eventType := payload.EventType
	if eventType == "" {
		eventType = models.EventTypePageView
	}

	event := models.Event{
		EventID:       uuid.New().String(),
		ProjectID:     project.ID,
		VisitorID:     payload.VisitorID,
		SessionID:     payload.SessionID,
		EventType:     eventType,
		PagePath:      payload.Page,
		Referrer:      payload.Referrer,
		Device:        payload.Device,
		Browser:       payload.Browser,
		OS:            payload.OS,
		Country:       location.Country,
		Region:        location.Region,
		City:          location.City,
		IPAddress:     storedIP,
		IsBot:         isBot,
		IsInternal:    isInternal,
		IsServer:      isServer,
		TrafficSource: tracking.ClassifyTrafficSource(payload.Referrer, payload.Page, project.Domain),
		Metadata:      payload.Metadata,
		Timestamp:     time.Now().UTC(),
	}

	if decision.Cookieless {
		event.VisitorID = ""
		event.SessionID = ""
	}

	if !h.Writer.Enqueue(event) {
		log.Printf("Track: write queue full, dropped event for project %s", project.ID)
		notRecorded(c)
		return
	}

	metrics.EventsRecorded.Inc()
	if isBot {
		metrics.BotEvents.Inc()
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Event recorded", "eventId": event.EventID})
}
