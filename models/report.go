package models

import "time"

// ReportFilters narrows the event window a report aggregates over. All
// predicates are combined with AND; zero values mean "no filter".
type ReportFilters struct {
	ExcludeBots     bool   `json:"excludeBots,omitempty"`
	ExcludeInternal bool   `json:"excludeInternal,omitempty"`
	EventType       string `json:"eventType,omitempty"`
	Device          string `json:"device,omitempty"`
	Country         string `json:"country,omitempty"`
	PageContains    string `json:"pageContains,omitempty"`
}

// CustomReport is a persisted query specification: which metrics, grouped by
// which single dimension, over which date range. Executed on demand against
// the raw event log; results are never cached.
type CustomReport struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"projectId"`
	Name      string         `json:"name"`
	ChartType string         `json:"chartType"` // presentation hint only
	Metrics   []string       `json:"metrics"`
	Dimension string         `json:"dimension"`
	DateRange string         `json:"dateRange"` // period token, e.g. "last_30_days"
	Filters   *ReportFilters `json:"filters,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Funnel step types.
const (
	StepPageView = "pageview"
	StepEvent    = "event"
	StepClick    = "click"
)

// FunnelStep is one ordered step of a funnel.
type FunnelStep struct {
	Name       string `json:"name"`
	StepType   string `json:"stepType"` // pageview | event | click
	MatchValue string `json:"matchValue"`
}

// Funnel is an ordered list of steps evaluated against sessions
// reconstructed from raw events.
type Funnel struct {
	ID        string       `json:"id"`
	ProjectID string       `json:"projectId"`
	Name      string       `json:"name"`
	Steps     []FunnelStep `json:"steps"`
	CreatedAt time.Time    `json:"createdAt"`
}

// MatchRule is one predicate of a custom event definition.
type MatchRule struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// CustomEventDefinition tags events post hoc: an event matches when every
// rule holds. Used standalone and inside conversion analysis.
type CustomEventDefinition struct {
	ID        string      `json:"id"`
	ProjectID string      `json:"projectId"`
	Name      string      `json:"name"`
	Rules     []MatchRule `json:"rules"`
	CreatedAt time.Time   `json:"createdAt"`
}
