package analytics

import (
	"testing"
	"time"
)

func TestResolveDateRange(t *testing.T) {
	// A Wednesday, mid-afternoon.
	now := time.Date(2024, 5, 15, 14, 30, 0, 0, time.UTC)

	cases := []struct {
		period   string
		wantFrom time.Time
		wantTo   time.Time
	}{
		{PeriodToday, time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), now},
		{PeriodYesterday, time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)},
		{PeriodLast7Days, now.AddDate(0, 0, -7), now},
		{PeriodLast28Days, now.AddDate(0, 0, -28), now},
		{PeriodLast30Days, now.AddDate(0, 0, -30), now},
		{PeriodLast90Days, now.AddDate(0, 0, -90), now},
		{PeriodLast12Months, now.AddDate(0, -12, 0), now},
		{PeriodThisWeek, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), now}, // Monday start
		{PeriodThisMonth, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), now},
		{PeriodLastMonth, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)},
		{PeriodThisYear, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), now},
		{PeriodAllTime, time.Unix(0, 0).UTC(), now},
		{"no_such_token", now.AddDate(0, 0, -30), now}, // falls back to last_30_days
		{"", now.AddDate(0, 0, -30), now},
	}

	for _, tc := range cases {
		t.Run(tc.period, func(t *testing.T) {
			got := ResolveDateRange(tc.period, now)
			if !got.From.Equal(tc.wantFrom) {
				t.Errorf("From = %v, want %v", got.From, tc.wantFrom)
			}
			if !got.To.Equal(tc.wantTo) {
				t.Errorf("To = %v, want %v", got.To, tc.wantTo)
			}
		})
	}
}

func TestAdjacentWindowsDoNotOverlap(t *testing.T) {
	// An event stamped exactly midnight belongs to today, and to this
	// month, never to the window that just ended. The upper bound of the
	// range scan is inclusive, so the closed windows must stop short of it.
	now := time.Date(2024, 5, 15, 14, 30, 0, 0, time.UTC)
	midnight := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	yesterday := ResolveDateRange(PeriodYesterday, now)
	if !yesterday.To.Before(midnight) {
		t.Errorf("yesterday.To = %v, want before %v", yesterday.To, midnight)
	}

	lastMonth := ResolveDateRange(PeriodLastMonth, now)
	if !lastMonth.To.Before(monthStart) {
		t.Errorf("last_month.To = %v, want before %v", lastMonth.To, monthStart)
	}
}

func TestThisWeekStartsMondayFromSunday(t *testing.T) {
	// A Sunday: the week started six days earlier.
	sunday := time.Date(2024, 5, 19, 10, 0, 0, 0, time.UTC)
	got := ResolveDateRange(PeriodThisWeek, sunday)
	want := time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)
	if !got.From.Equal(want) {
		t.Errorf("From = %v, want %v", got.From, want)
	}
}
