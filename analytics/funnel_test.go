package analytics

import (
	"encoding/json"
	"testing"
	"time"

	"sitepulse/api/models"
)

var signupFunnel = models.Funnel{
	ID:   "f1",
	Name: "Signup",
	Steps: []models.FunnelStep{
		{Name: "Landing", StepType: models.StepPageView, MatchValue: "/"},
		{Name: "Signed up", StepType: models.StepEvent, MatchValue: "signup"},
		{Name: "Dashboard", StepType: models.StepPageView, MatchValue: "/dashboard"},
	},
}

func sessionEvents(session string, start time.Time, steps ...models.Event) []models.Event {
	out := make([]models.Event, len(steps))
	for i, e := range steps {
		e.EventID = session + "-" + string(rune('a'+i))
		e.SessionID = session
		e.Timestamp = start.Add(time.Duration(i) * time.Minute)
		out[i] = e
	}
	return out
}

func TestAnalyzeFunnelFullConversion(t *testing.T) {
	start := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	events := sessionEvents("s1", start,
		models.Event{EventType: models.EventTypePageView, PagePath: "/"},
		models.Event{EventType: models.EventTypePageView, PagePath: "/pricing"},
		models.Event{EventType: "signup"},
		models.Event{EventType: models.EventTypePageView, PagePath: "/dashboard"},
	)

	result := AnalyzeFunnel(events, signupFunnel)

	wantUsers := []int{1, 1, 1}
	for i, w := range wantUsers {
		if result.Steps[i].Users != w {
			t.Errorf("step %d users = %d, want %d", i, result.Steps[i].Users, w)
		}
		if result.Steps[i].DropOff != 0 {
			t.Errorf("step %d dropOff = %d, want 0", i, result.Steps[i].DropOff)
		}
	}
	if result.OverallConversion != 100 {
		t.Errorf("overallConversion = %v, want 100", result.OverallConversion)
	}
}

func TestAnalyzeFunnelDropOff(t *testing.T) {
	start := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	// Session that never fires signup: dashboard visit must not count
	// because the cursor cannot skip the signup step.
	events := sessionEvents("s1", start,
		models.Event{EventType: models.EventTypePageView, PagePath: "/"},
		models.Event{EventType: models.EventTypePageView, PagePath: "/dashboard"},
	)

	result := AnalyzeFunnel(events, signupFunnel)

	wantUsers := []int{1, 0, 0}
	for i, w := range wantUsers {
		if result.Steps[i].Users != w {
			t.Errorf("step %d users = %d, want %d", i, result.Steps[i].Users, w)
		}
	}
	if result.Steps[1].DropOff != 1 || result.Steps[1].DropOffRate != 100 {
		t.Errorf("step 2 dropOff = %d (%v%%), want 1 (100%%)",
			result.Steps[1].DropOff, result.Steps[1].DropOffRate)
	}
	if result.OverallConversion != 0 {
		t.Errorf("overallConversion = %v, want 0", result.OverallConversion)
	}
}

func TestAnalyzeFunnelNoBacktracking(t *testing.T) {
	start := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	// A second "/" pageview after signup must not re-match step 0 or stall
	// the cursor; the session still completes.
	events := sessionEvents("s1", start,
		models.Event{EventType: models.EventTypePageView, PagePath: "/"},
		models.Event{EventType: "signup"},
		models.Event{EventType: models.EventTypePageView, PagePath: "/"},
		models.Event{EventType: models.EventTypePageView, PagePath: "/dashboard"},
	)

	result := AnalyzeFunnel(events, signupFunnel)
	if result.Steps[2].Users != 1 {
		t.Errorf("step 3 users = %d, want 1", result.Steps[2].Users)
	}
}

func TestAnalyzeFunnelSessionKeyFallback(t *testing.T) {
	start := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	events := []models.Event{
		// No session id: visitor id groups the events.
		{EventID: "1", VisitorID: "v1", EventType: models.EventTypePageView, PagePath: "/", Timestamp: start},
		{EventID: "2", VisitorID: "v1", EventType: "signup", Timestamp: start.Add(time.Minute)},
		// Fully anonymous event: forms its own singleton session.
		{EventID: "3", EventType: models.EventTypePageView, PagePath: "/", Timestamp: start},
	}

	result := AnalyzeFunnel(events, signupFunnel)
	if result.TotalSessions != 2 {
		t.Errorf("totalSessions = %d, want 2", result.TotalSessions)
	}
	if result.Steps[0].Users != 2 {
		t.Errorf("step 1 users = %d, want 2", result.Steps[0].Users)
	}
	if result.Steps[1].Users != 1 {
		t.Errorf("step 2 users = %d, want 1", result.Steps[1].Users)
	}
}

func TestAnalyzeFunnelClickStep(t *testing.T) {
	funnel := models.Funnel{
		Steps: []models.FunnelStep{
			{Name: "CTA", StepType: models.StepClick, MatchValue: "Buy now"},
		},
	}
	meta, _ := json.Marshal(map[string]string{"text": "Buy now today", "target": "#cta"})
	start := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	events := []models.Event{
		{EventID: "1", SessionID: "s1", EventType: models.EventTypeClick, Metadata: meta, Timestamp: start},
		{EventID: "2", SessionID: "s2", EventType: models.EventTypeClick, Metadata: json.RawMessage(`{"text":"Other"}`), Timestamp: start},
	}

	result := AnalyzeFunnel(events, funnel)
	if result.Steps[0].Users != 1 {
		t.Errorf("click step users = %d, want 1", result.Steps[0].Users)
	}
}

func TestAnalyzeFunnelOutOfOrderTimestamps(t *testing.T) {
	start := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	// Events arrive out of order; the walk sorts by timestamp first.
	events := []models.Event{
		{EventID: "3", SessionID: "s1", EventType: models.EventTypePageView, PagePath: "/dashboard", Timestamp: start.Add(2 * time.Minute)},
		{EventID: "1", SessionID: "s1", EventType: models.EventTypePageView, PagePath: "/", Timestamp: start},
		{EventID: "2", SessionID: "s1", EventType: "signup", Timestamp: start.Add(time.Minute)},
	}

	result := AnalyzeFunnel(events, signupFunnel)
	if result.Steps[2].Users != 1 {
		t.Errorf("step 3 users = %d, want 1", result.Steps[2].Users)
	}
}
