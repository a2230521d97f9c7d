package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sitepulse/api/analytics"
	"sitepulse/api/metrics"
	"sitepulse/api/models"
	"sitepulse/api/store"
)

// ReportHandlers executes stored custom reports against the event log.
type ReportHandlers struct {
	Reports *store.ReportStore
	Engine  *analytics.Engine
}

func NewReportHandlers(reports *store.ReportStore, engine *analytics.Engine) *ReportHandlers {
	return &ReportHandlers{Reports: reports, Engine: engine}
}

// resolveWindow picks the report's execution window. Explicit from/to query
// parameters (RFC 3339) win, then a period token, then the report's own
// stored date range.
func resolveWindow(c *gin.Context, storedRange string) (analytics.DateRange, bool) {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr != "" && toStr != "" {
		from, err1 := time.Parse(time.RFC3339, fromStr)
		to, err2 := time.Parse(time.RFC3339, toStr)
		if err1 != nil || err2 != nil || to.Before(from) {
			return analytics.DateRange{}, false
		}
		return analytics.DateRange{From: from.UTC(), To: to.UTC()}, true
	}

	period := c.Query("period")
	if period == "" {
		period = storedRange
	}
	return analytics.ResolveDateRange(period, time.Now().UTC()), true
}

// RunReport executes one stored report.
func (h *ReportHandlers) RunReport(c *gin.Context) {
	timer := time.Now()
	defer func() {
		metrics.ReportDuration.Observe(time.Since(timer).Seconds())
	}()

	projectID := c.Param("projectId")
	report, err := h.Reports.GetReport(c.Request.Context(), c.Param("reportId"))
	if err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return
		}
		log.Printf("RunReport: lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load report"})
		return
	}
	if report.ProjectID != projectID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}

	window, ok := resolveWindow(c, report.DateRange)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from/to range"})
		return
	}

	result, err := h.Engine.Execute(c.Request.Context(), *report, window)
	if err != nil {
		log.Printf("RunReport: execution failed for report %s: %v", report.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to execute report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"report": gin.H{
			"id":        report.ID,
			"name":      report.Name,
			"chartType": report.ChartType,
			"metrics":   report.Metrics,
			"dimension": report.Dimension,
			"dateRange": report.DateRange,
		},
		"dateRange": gin.H{
			"from": window.From.Format(time.RFC3339),
			"to":   window.To.Format(time.RFC3339),
		},
		"totalEvents": result.TotalEvents,
		"rows":        result.Rows,
	})
}

// PreviewReport executes an unsaved report definition from the request body.
func (h *ReportHandlers) PreviewReport(c *gin.Context) {
	timer := time.Now()
	defer func() {
		metrics.ReportDuration.Observe(time.Since(timer).Seconds())
	}()

	var report models.CustomReport
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid report body", "details": err.Error()})
		return
	}
	report.ProjectID = c.Param("projectId")

	window, ok := resolveWindow(c, report.DateRange)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from/to range"})
		return
	}

	result, err := h.Engine.Execute(c.Request.Context(), report, window)
	if err != nil {
		log.Printf("PreviewReport: execution failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to execute report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"dateRange": gin.H{
			"from": window.From.Format(time.RFC3339),
			"to":   window.To.Format(time.RFC3339),
		},
		"totalEvents": result.TotalEvents,
		"rows":        result.Rows,
	})
}
