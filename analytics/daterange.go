package analytics

import "time"

// Period tokens understood by ResolveDateRange.
const (
	PeriodToday        = "today"
	PeriodYesterday    = "yesterday"
	PeriodLast7Days    = "last_7_days"
	PeriodLast28Days   = "last_28_days"
	PeriodLast30Days   = "last_30_days"
	PeriodLast90Days   = "last_90_days"
	PeriodLast12Months = "last_12_months"
	PeriodThisWeek     = "this_week"
	PeriodThisMonth    = "this_month"
	PeriodLastMonth    = "last_month"
	PeriodThisYear     = "this_year"
	PeriodAllTime      = "all_time"
)

// DateRange is the resolved [From, To] window of a report execution.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ResolveDateRange turns a period token into a concrete window relative to
// now. Unknown tokens fall back to last_30_days. this_week starts on Monday;
// all_time starts at the epoch.
func ResolveDateRange(period string, now time.Time) DateRange {
	now = now.UTC()
	today := startOfDay(now)

	switch period {
	case PeriodToday:
		return DateRange{From: today, To: now}
	case PeriodYesterday:
		// To is just shy of midnight: the range scan's upper bound is
		// inclusive, so ending at midnight exactly would double-count an
		// event stamped 00:00:00.000 in both yesterday and today.
		return DateRange{From: today.AddDate(0, 0, -1), To: today.Add(-time.Nanosecond)}
	case PeriodLast7Days:
		return DateRange{From: now.AddDate(0, 0, -7), To: now}
	case PeriodLast28Days:
		return DateRange{From: now.AddDate(0, 0, -28), To: now}
	case PeriodLast90Days:
		return DateRange{From: now.AddDate(0, 0, -90), To: now}
	case PeriodLast12Months:
		return DateRange{From: now.AddDate(0, -12, 0), To: now}
	case PeriodThisWeek:
		offset := (int(now.Weekday()) + 6) % 7 // Monday start
		return DateRange{From: today.AddDate(0, 0, -offset), To: now}
	case PeriodThisMonth:
		return DateRange{From: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), To: now}
	case PeriodLastMonth:
		thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return DateRange{From: thisMonth.AddDate(0, -1, 0), To: thisMonth.Add(-time.Nanosecond)}
	case PeriodThisYear:
		return DateRange{From: time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC), To: now}
	case PeriodAllTime:
		return DateRange{From: time.Unix(0, 0).UTC(), To: now}
	case PeriodLast30Days:
		return DateRange{From: now.AddDate(0, 0, -30), To: now}
	default:
		return DateRange{From: now.AddDate(0, 0, -30), To: now}
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
