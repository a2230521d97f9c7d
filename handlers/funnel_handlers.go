package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sitepulse/api/analytics"
	"sitepulse/api/metrics"
	"sitepulse/api/store"
)

// FunnelHandlers evaluates stored funnels against the event log.
type FunnelHandlers struct {
	Reports *store.ReportStore
	Events  store.EventStore
}

func NewFunnelHandlers(reports *store.ReportStore, events store.EventStore) *FunnelHandlers {
	return &FunnelHandlers{Reports: reports, Events: events}
}

// AnalyzeFunnel evaluates one stored funnel over the requested window.
func (h *FunnelHandlers) AnalyzeFunnel(c *gin.Context) {
	timer := time.Now()
	defer func() {
		metrics.ReportDuration.Observe(time.Since(timer).Seconds())
	}()

	projectID := c.Param("projectId")
	funnel, err := h.Reports.GetFunnel(c.Request.Context(), c.Param("funnelId"))
	if err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Funnel not found"})
			return
		}
		log.Printf("AnalyzeFunnel: lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load funnel"})
		return
	}
	if funnel.ProjectID != projectID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Funnel not found"})
		return
	}

	window, ok := resolveWindow(c, "")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from/to range"})
		return
	}

	events, err := h.Events.RangeQuery(c.Request.Context(), projectID, window.From, window.To)
	if err != nil {
		log.Printf("AnalyzeFunnel: event fetch failed for funnel %s: %v", funnel.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch events"})
		return
	}

	result := analytics.AnalyzeFunnel(events, *funnel)
	c.JSON(http.StatusOK, gin.H{
		"funnel": gin.H{
			"id":    funnel.ID,
			"name":  funnel.Name,
			"steps": funnel.Steps,
		},
		"dateRange": gin.H{
			"from": window.From.Format(time.RFC3339),
			"to":   window.To.Format(time.RFC3339),
		},
		"totalSessions":     result.TotalSessions,
		"steps":             result.Steps,
		"overallConversion": result.OverallConversion,
	})
}
