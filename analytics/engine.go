package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"sitepulse/api/models"
)

// Metric is one requested report metric. The set is closed so metric
// accumulation is statically checked instead of dispatched by raw strings.
type Metric string

const (
	MetricPageViews   Metric = "pageViews"
	MetricClicks      Metric = "clicks"
	MetricEvents      Metric = "events"
	MetricVisitors    Metric = "visitors"
	MetricSessions    Metric = "sessions"
	MetricScrolls     Metric = "scrolls"
	MetricFormSubmits Metric = "formSubmits"
	MetricRageClicks  Metric = "rageClicks"
	MetricBotEvents   Metric = "botEvents"
	MetricBounceRate  Metric = "bounceRate"
)

// ParseMetric maps a stored metric name to the closed Metric set.
func ParseMetric(s string) (Metric, bool) {
	switch m := Metric(s); m {
	case MetricPageViews, MetricClicks, MetricEvents, MetricVisitors,
		MetricSessions, MetricScrolls, MetricFormSubmits, MetricRageClicks,
		MetricBotEvents, MetricBounceRate:
		return m, true
	}
	return "", false
}

// Report dimensions. Time dimensions bucket by truncated timestamp;
// categorical dimensions bucket by raw field value.
const (
	DimensionDate      = "date"
	DimensionHour      = "hour"
	DimensionWeek      = "week"
	DimensionMonth     = "month"
	DimensionPage      = "page"
	DimensionDevice    = "device"
	DimensionBrowser   = "browser"
	DimensionOS        = "os"
	DimensionCountry   = "country"
	DimensionCity      = "city"
	DimensionReferrer  = "referrer"
	DimensionEventType = "eventType"
)

func isTimeDimension(d string) bool {
	switch d {
	case DimensionDate, DimensionHour, DimensionWeek, DimensionMonth:
		return true
	}
	return false
}

// ReportRow is one aggregation bucket: a dimension value and the value of
// every requested metric. Metrics not computable for the bucket come back
// zero-filled, never omitted.
type ReportRow struct {
	Bucket  string             `json:"bucket"`
	Metrics map[string]float64 `json:"metrics"`
}

// ReportResult is the output of one report execution.
type ReportResult struct {
	Rows        []ReportRow `json:"rows"`
	TotalEvents int         `json:"totalEvents"`
}

// maxReportRows caps report output.
const maxReportRows = 100

// EventSource is the event-store contract the engine consumes: a range
// scan by project and time, nothing more. All dimensional work happens here
// in memory.
type EventSource interface {
	RangeQuery(ctx context.Context, projectID string, from, to time.Time) ([]models.Event, error)
}

// Engine executes stored report specifications against the raw event log.
// Executions are pure functions of the fetched window; nothing is cached.
type Engine struct {
	source EventSource
}

func NewEngine(source EventSource) *Engine {
	return &Engine{source: source}
}

// Execute resolves the window, fetches the raw events and aggregates them
// per the report specification.
func (e *Engine) Execute(ctx context.Context, report models.CustomReport, window DateRange) (*ReportResult, error) {
	events, err := e.source.RangeQuery(ctx, report.ProjectID, window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events for report %s: %w", report.ID, err)
	}
	return Aggregate(events, report), nil
}

// Aggregate buckets the events by the report's dimension and accumulates the
// requested metrics per bucket. An empty filtered set yields rows: [] and
// totalEvents: 0, not an error.
func Aggregate(events []models.Event, report models.CustomReport) *ReportResult {
	filtered := applyFilters(events, report.Filters)

	metrics := make([]Metric, 0, len(report.Metrics))
	for _, name := range report.Metrics {
		if m, ok := ParseMetric(name); ok {
			metrics = append(metrics, m)
		}
	}

	// Session page-view counts over the filtered set, indexed once so the
	// per-bucket bounce rate does not rescan all sessions per bucket.
	sessionPageViews := make(map[string]int)
	for _, e := range filtered {
		if e.EventType == models.EventTypePageView {
			sessionPageViews[SessionKey(e)]++
		}
	}

	buckets := make(map[string]*accumulator)
	for _, e := range filtered {
		key := bucketKey(e, report.Dimension)
		acc := buckets[key]
		if acc == nil {
			acc = newAccumulator()
			buckets[key] = acc
		}
		acc.add(e)
	}

	rows := make([]ReportRow, 0, len(buckets))
	for key, acc := range buckets {
		row := ReportRow{Bucket: key, Metrics: make(map[string]float64, len(metrics))}
		for _, m := range metrics {
			row.Metrics[string(m)] = acc.value(m, sessionPageViews)
		}
		rows = append(rows, row)
	}

	sortRows(rows, report.Dimension, metrics)
	if len(rows) > maxReportRows {
		rows = rows[:maxReportRows]
	}

	return &ReportResult{Rows: rows, TotalEvents: len(filtered)}
}

// applyFilters applies the report's optional predicates as a conjunction.
// Zero-valued filters are ignored rather than rejected.
func applyFilters(events []models.Event, f *models.ReportFilters) []models.Event {
	if f == nil {
		return events
	}
	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		if f.ExcludeBots && e.IsBot {
			continue
		}
		if f.ExcludeInternal && e.IsInternal {
			continue
		}
		if f.EventType != "" && e.EventType != f.EventType {
			continue
		}
		if f.Device != "" && e.Device != f.Device {
			continue
		}
		if f.Country != "" && e.Country != f.Country {
			continue
		}
		if f.PageContains != "" && !strings.Contains(e.PagePath, f.PageContains) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// bucketKey computes the dimension key for one event. Time dimensions
// truncate the timestamp; week buckets are labeled by the Sunday-aligned
// week start. Categorical dimensions default to "Unknown", except referrer
// which defaults to "Direct".
func bucketKey(e models.Event, dimension string) string {
	ts := e.Timestamp.UTC()
	switch dimension {
	case DimensionDate:
		return ts.Format("2006-01-02")
	case DimensionHour:
		return ts.Format("2006-01-02 15:00")
	case DimensionWeek:
		weekStart := startOfDay(ts).AddDate(0, 0, -int(ts.Weekday()))
		return weekStart.Format("2006-01-02")
	case DimensionMonth:
		return ts.Format("2006-01")
	case DimensionPage:
		return orDefault(e.PagePath, "Unknown")
	case DimensionDevice:
		return orDefault(e.Device, "Unknown")
	case DimensionBrowser:
		return orDefault(e.Browser, "Unknown")
	case DimensionOS:
		return orDefault(e.OS, "Unknown")
	case DimensionCountry:
		return orDefault(e.Country, "Unknown")
	case DimensionCity:
		return orDefault(e.City, "Unknown")
	case DimensionReferrer:
		return orDefault(e.Referrer, "Direct")
	case DimensionEventType:
		return orDefault(e.EventType, "Unknown")
	default:
		return orDefault(e.EventType, "Unknown")
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// accumulator holds one bucket's running counts.
type accumulator struct {
	pageViews   int
	clicks      int
	events      int
	scrolls     int
	formSubmits int
	rageClicks  int
	botEvents   int
	visitors    map[string]struct{}
	sessions    map[string]struct{}
}

func newAccumulator() *accumulator {
	return &accumulator{
		visitors: make(map[string]struct{}),
		sessions: make(map[string]struct{}),
	}
}

func (a *accumulator) add(e models.Event) {
	a.events++
	switch e.EventType {
	case models.EventTypePageView:
		a.pageViews++
	case models.EventTypeClick:
		a.clicks++
	case models.EventTypeScroll:
		a.scrolls++
	case models.EventTypeFormSubmit:
		a.formSubmits++
	case models.EventTypeRageClick:
		a.rageClicks++
	}
	if e.IsBot {
		a.botEvents++
	}
	if e.VisitorID != "" {
		a.visitors[e.VisitorID] = struct{}{}
	}
	a.sessions[SessionKey(e)] = struct{}{}
}

// value reads one metric out of the accumulator. Bounce rate is the
// percentage of the bucket's sessions that contain exactly one page view in
// the filtered window.
func (a *accumulator) value(m Metric, sessionPageViews map[string]int) float64 {
	switch m {
	case MetricPageViews:
		return float64(a.pageViews)
	case MetricClicks:
		return float64(a.clicks)
	case MetricEvents:
		return float64(a.events)
	case MetricVisitors:
		return float64(len(a.visitors))
	case MetricSessions:
		return float64(len(a.sessions))
	case MetricScrolls:
		return float64(a.scrolls)
	case MetricFormSubmits:
		return float64(a.formSubmits)
	case MetricRageClicks:
		return float64(a.rageClicks)
	case MetricBotEvents:
		return float64(a.botEvents)
	case MetricBounceRate:
		if len(a.sessions) == 0 {
			return 0
		}
		bounced := 0
		for key := range a.sessions {
			if sessionPageViews[key] == 1 {
				bounced++
			}
		}
		return round2(float64(bounced) / float64(len(a.sessions)) * 100)
	}
	return 0
}

// sortRows orders time dimensions ascending by bucket label and categorical
// dimensions descending by the first requested metric.
func sortRows(rows []ReportRow, dimension string, metrics []Metric) {
	if isTimeDimension(dimension) || len(metrics) == 0 {
		sort.Slice(rows, func(i, j int) bool { return rows[i].Bucket < rows[j].Bucket })
		return
	}
	first := string(metrics[0])
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Metrics[first] != rows[j].Metrics[first] {
			return rows[i].Metrics[first] > rows[j].Metrics[first]
		}
		return rows[i].Bucket < rows[j].Bucket
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
