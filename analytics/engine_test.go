package analytics

import (
	"fmt"
	"testing"
	"time"

	"sitepulse/api/models"
)

func makeEvent(opts func(*models.Event)) models.Event {
	e := models.Event{
		EventID:   "ev-1",
		ProjectID: "p1",
		EventType: models.EventTypePageView,
		PagePath:  "/",
		Timestamp: time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC),
	}
	if opts != nil {
		opts(&e)
	}
	return e
}

func TestAggregateEmptyWindow(t *testing.T) {
	result := Aggregate(nil, models.CustomReport{
		Dimension: DimensionCountry,
		Metrics:   []string{"pageViews"},
	})
	if result.TotalEvents != 0 {
		t.Errorf("TotalEvents = %d, want 0", result.TotalEvents)
	}
	if result.Rows == nil || len(result.Rows) != 0 {
		t.Errorf("Rows = %v, want empty non-nil slice", result.Rows)
	}
}

func TestAggregateByCountryExcludingBots(t *testing.T) {
	events := []models.Event{
		makeEvent(func(e *models.Event) { e.EventID = "1"; e.Country = "Germany"; e.VisitorID = "v1" }),
		makeEvent(func(e *models.Event) { e.EventID = "2"; e.Country = "Germany"; e.VisitorID = "v2" }),
		makeEvent(func(e *models.Event) { e.EventID = "3"; e.Country = "France"; e.VisitorID = "v3" }),
		makeEvent(func(e *models.Event) { e.EventID = "4"; e.Country = "Germany"; e.VisitorID = "bot"; e.IsBot = true }),
	}

	result := Aggregate(events, models.CustomReport{
		Dimension: DimensionCountry,
		Metrics:   []string{"pageViews", "visitors"},
		Filters:   &models.ReportFilters{ExcludeBots: true},
	})

	if result.TotalEvents != 3 {
		t.Fatalf("TotalEvents = %d, want 3", result.TotalEvents)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(result.Rows))
	}
	// Categorical dimension sorts descending by the first metric.
	if result.Rows[0].Bucket != "Germany" {
		t.Errorf("first bucket = %q, want Germany", result.Rows[0].Bucket)
	}
	if got := result.Rows[0].Metrics["pageViews"]; got != 2 {
		t.Errorf("Germany pageViews = %v, want 2 (bot excluded)", got)
	}
	if got := result.Rows[0].Metrics["visitors"]; got != 2 {
		t.Errorf("Germany visitors = %v, want 2", got)
	}
}

func TestAggregateTimeDimensionSortsAscending(t *testing.T) {
	events := []models.Event{
		makeEvent(func(e *models.Event) {
			e.EventID = "1"
			e.Timestamp = time.Date(2024, 5, 16, 8, 0, 0, 0, time.UTC)
		}),
		makeEvent(func(e *models.Event) {
			e.EventID = "2"
			e.Timestamp = time.Date(2024, 5, 14, 8, 0, 0, 0, time.UTC)
		}),
		makeEvent(func(e *models.Event) {
			e.EventID = "3"
			e.Timestamp = time.Date(2024, 5, 15, 8, 0, 0, 0, time.UTC)
		}),
	}

	result := Aggregate(events, models.CustomReport{
		Dimension: DimensionDate,
		Metrics:   []string{"events"},
	})

	want := []string{"2024-05-14", "2024-05-15", "2024-05-16"}
	if len(result.Rows) != len(want) {
		t.Fatalf("rows = %d, want %d", len(result.Rows), len(want))
	}
	for i, w := range want {
		if result.Rows[i].Bucket != w {
			t.Errorf("row %d bucket = %q, want %q", i, result.Rows[i].Bucket, w)
		}
	}
}

func TestWeekBucketIsSundayAligned(t *testing.T) {
	// 2024-05-15 is a Wednesday; its Sunday-aligned week starts 2024-05-12.
	e := makeEvent(nil)
	if got := bucketKey(e, DimensionWeek); got != "2024-05-12" {
		t.Errorf("week bucket = %q, want 2024-05-12", got)
	}
}

func TestBucketDefaults(t *testing.T) {
	e := makeEvent(func(e *models.Event) { e.Referrer = ""; e.Country = "" })
	if got := bucketKey(e, DimensionReferrer); got != "Direct" {
		t.Errorf("referrer bucket = %q, want Direct", got)
	}
	if got := bucketKey(e, DimensionCountry); got != "Unknown" {
		t.Errorf("country bucket = %q, want Unknown", got)
	}
}

func TestBounceRate(t *testing.T) {
	day := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	events := []models.Event{
		// Session s1: two page views, not a bounce.
		makeEvent(func(e *models.Event) { e.EventID = "1"; e.SessionID = "s1"; e.Timestamp = day }),
		makeEvent(func(e *models.Event) { e.EventID = "2"; e.SessionID = "s1"; e.PagePath = "/b"; e.Timestamp = day.Add(time.Minute) }),
		// Session s2: one page view, a bounce.
		makeEvent(func(e *models.Event) { e.EventID = "3"; e.SessionID = "s2"; e.Timestamp = day.Add(2 * time.Minute) }),
	}

	result := Aggregate(events, models.CustomReport{
		Dimension: DimensionDate,
		Metrics:   []string{"bounceRate", "sessions"},
	})

	if len(result.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(result.Rows))
	}
	if got := result.Rows[0].Metrics["sessions"]; got != 2 {
		t.Errorf("sessions = %v, want 2", got)
	}
	if got := result.Rows[0].Metrics["bounceRate"]; got != 50 {
		t.Errorf("bounceRate = %v, want 50", got)
	}
}

func TestUnknownMetricNamesAreIgnored(t *testing.T) {
	events := []models.Event{makeEvent(nil)}
	result := Aggregate(events, models.CustomReport{
		Dimension: DimensionPage,
		Metrics:   []string{"pageViews", "nonsense"},
	})
	if len(result.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(result.Rows))
	}
	if _, ok := result.Rows[0].Metrics["nonsense"]; ok {
		t.Error("unknown metric should not appear in output")
	}
	if got := result.Rows[0].Metrics["pageViews"]; got != 1 {
		t.Errorf("pageViews = %v, want 1", got)
	}
}

func TestRowCap(t *testing.T) {
	events := make([]models.Event, 0, 150)
	for i := 0; i < 150; i++ {
		idx := i
		events = append(events, makeEvent(func(e *models.Event) {
			e.EventID = fmt.Sprintf("ev-%d", idx)
			e.PagePath = fmt.Sprintf("/page-%03d", idx)
		}))
	}
	result := Aggregate(events, models.CustomReport{
		Dimension: DimensionPage,
		Metrics:   []string{"events"},
	})
	if len(result.Rows) > 100 {
		t.Errorf("rows = %d, want at most 100", len(result.Rows))
	}
	if result.TotalEvents != 150 {
		t.Errorf("TotalEvents = %d, want 150", result.TotalEvents)
	}
}

func TestZeroFilledMetrics(t *testing.T) {
	// A window with no clicks still reports the clicks column, zero-filled.
	events := []models.Event{makeEvent(nil)}
	result := Aggregate(events, models.CustomReport{
		Dimension: DimensionPage,
		Metrics:   []string{"clicks", "pageViews"},
	})
	got, ok := result.Rows[0].Metrics["clicks"]
	if !ok {
		t.Fatal("clicks column missing, want zero-filled value")
	}
	if got != 0 {
		t.Errorf("clicks = %v, want 0", got)
	}
}
