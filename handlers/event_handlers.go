package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"sitepulse/api/analytics"
	"sitepulse/api/metrics"
	"sitepulse/api/store"
)

// EventHandlers serves raw event lookups and custom event definition
// analysis: matching event lists and conversion breakdowns.
type EventHandlers struct {
	Reports *store.ReportStore
	Events  store.EventStore
}

func NewEventHandlers(reports *store.ReportStore, events store.EventStore) *EventHandlers {
	return &EventHandlers{Reports: reports, Events: events}
}

// queryFlag parses an optional boolean query parameter into the tri-state
// pointer EventFilters expects. Absent means no constraint.
func queryFlag(v string) *bool {
	if v == "" {
		return nil
	}
	b := v == "true" || v == "1"
	return &b
}

// eventFiltersFromQuery maps the list endpoint's query parameters onto the
// store's filter set.
func eventFiltersFromQuery(c *gin.Context) store.EventFilters {
	return store.EventFilters{
		EventType:     c.Query("eventType"),
		Device:        c.Query("device"),
		Browser:       c.Query("browser"),
		OS:            c.Query("os"),
		Country:       c.Query("country"),
		Referrer:      c.Query("referrer"),
		TrafficSource: c.Query("trafficSource"),
		PageContains:  c.Query("pageContains"),
		VisitorID:     c.Query("visitorId"),
		IsBot:         queryFlag(c.Query("isBot")),
		IsInternal:    queryFlag(c.Query("isInternal")),
		IsServer:      queryFlag(c.Query("isServer")),
	}
}

// ListEvents returns a project's most recent events, optionally narrowed by
// query-parameter filters.
func (h *EventHandlers) ListEvents(c *gin.Context) {
	projectID := c.Param("projectId")

	filters := eventFiltersFromQuery(c)
	limit, _ := strconv.Atoi(c.Query("limit"))

	events, err := h.Events.FilteredQuery(c.Request.Context(), projectID, filters, limit)
	if err != nil {
		log.Printf("ListEvents: query failed for project %s: %v", projectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// MatchCustomEvent returns the window's events matching a custom event
// definition's rules.
func (h *EventHandlers) MatchCustomEvent(c *gin.Context) {
	projectID := c.Param("projectId")
	def, err := h.Reports.GetCustomEventDefinition(c.Request.Context(), c.Param("definitionId"))
	if err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Custom event definition not found"})
			return
		}
		log.Printf("MatchCustomEvent: lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load definition"})
		return
	}
	if def.ProjectID != projectID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Custom event definition not found"})
		return
	}

	window, ok := resolveWindow(c, "")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from/to range"})
		return
	}

	events, err := h.Events.RangeQuery(c.Request.Context(), projectID, window.From, window.To)
	if err != nil {
		log.Printf("MatchCustomEvent: event fetch failed for definition %s: %v", def.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch events"})
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	matched := analytics.FilterMatching(events, def.Rules, limit)
	c.JSON(http.StatusOK, gin.H{
		"definition": gin.H{"id": def.ID, "name": def.Name, "rules": def.Rules},
		"events":     matched,
		"count":      len(matched),
	})
}

// AnalyzeConversions runs the conversion breakdown for a custom event
// definition over the requested window.
func (h *EventHandlers) AnalyzeConversions(c *gin.Context) {
	timer := time.Now()
	defer func() {
		metrics.ReportDuration.Observe(time.Since(timer).Seconds())
	}()

	projectID := c.Param("projectId")
	def, err := h.Reports.GetCustomEventDefinition(c.Request.Context(), c.Param("definitionId"))
	if err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Custom event definition not found"})
			return
		}
		log.Printf("AnalyzeConversions: lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load definition"})
		return
	}
	if def.ProjectID != projectID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Custom event definition not found"})
		return
	}

	window, ok := resolveWindow(c, "")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from/to range"})
		return
	}

	events, err := h.Events.RangeQuery(c.Request.Context(), projectID, window.From, window.To)
	if err != nil {
		log.Printf("AnalyzeConversions: event fetch failed for definition %s: %v", def.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch events"})
		return
	}

	analysis := analytics.AnalyzeConversions(events, def.Rules)
	c.JSON(http.StatusOK, gin.H{
		"definition": gin.H{"id": def.ID, "name": def.Name},
		"dateRange": gin.H{
			"from": window.From.Format(time.RFC3339),
			"to":   window.To.Format(time.RFC3339),
		},
		"analysis": analysis,
	})
}
