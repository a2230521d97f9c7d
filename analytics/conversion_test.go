package analytics

import (
	"testing"
	"time"

	"sitepulse/api/models"
)

func TestAnalyzeConversions(t *testing.T) {
	start := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	purchaseRules := []models.MatchRule{
		{Field: "eventType", Operator: "equals", Value: "purchase"},
	}

	events := []models.Event{
		// Session s1 converts after seeing / and /pricing, came from search.
		{EventID: "1", SessionID: "s1", EventType: models.EventTypePageView, PagePath: "/", TrafficSource: models.ChannelOrganicSearch, Timestamp: start},
		{EventID: "2", SessionID: "s1", EventType: models.EventTypePageView, PagePath: "/pricing", TrafficSource: models.ChannelOrganicSearch, Timestamp: start.Add(time.Minute)},
		{EventID: "3", SessionID: "s1", EventType: "purchase", TrafficSource: models.ChannelOrganicSearch, Timestamp: start.Add(2 * time.Minute)},
		// Session s2 does not convert, direct traffic.
		{EventID: "4", SessionID: "s2", EventType: models.EventTypePageView, PagePath: "/", TrafficSource: models.ChannelDirect, Timestamp: start},
		// Session s3 converts next day, direct traffic.
		{EventID: "5", SessionID: "s3", EventType: models.EventTypePageView, PagePath: "/pricing", TrafficSource: models.ChannelDirect, Timestamp: start.AddDate(0, 0, 1)},
		{EventID: "6", SessionID: "s3", EventType: "purchase", TrafficSource: models.ChannelDirect, Timestamp: start.AddDate(0, 0, 1).Add(time.Minute)},
	}

	analysis := AnalyzeConversions(events, purchaseRules)

	if analysis.TotalSessions != 3 {
		t.Fatalf("totalSessions = %d, want 3", analysis.TotalSessions)
	}
	if analysis.ConvertedSessions != 2 {
		t.Fatalf("convertedSessions = %d, want 2", analysis.ConvertedSessions)
	}
	if analysis.ConversionRate != 66.67 {
		t.Errorf("conversionRate = %v, want 66.67", analysis.ConversionRate)
	}

	// /pricing was seen before conversion in both converted sessions.
	if len(analysis.TopPages) == 0 || analysis.TopPages[0].Page != "/pricing" || analysis.TopPages[0].Sessions != 2 {
		t.Errorf("topPages = %+v, want /pricing with 2 sessions first", analysis.TopPages)
	}

	var direct, search *ChannelStat
	for i := range analysis.TopChannels {
		switch analysis.TopChannels[i].Channel {
		case models.ChannelDirect:
			direct = &analysis.TopChannels[i]
		case models.ChannelOrganicSearch:
			search = &analysis.TopChannels[i]
		}
	}
	if direct == nil || direct.Sessions != 2 || direct.Converted != 1 || direct.Rate != 50 {
		t.Errorf("direct channel = %+v, want 2 sessions, 1 converted, 50%%", direct)
	}
	if search == nil || search.Sessions != 1 || search.Converted != 1 || search.Rate != 100 {
		t.Errorf("search channel = %+v, want 1 session, 1 converted, 100%%", search)
	}

	if len(analysis.DailyTrend) != 2 {
		t.Fatalf("dailyTrend = %d points, want 2", len(analysis.DailyTrend))
	}
	if analysis.DailyTrend[0].Date != "2024-05-15" || analysis.DailyTrend[0].Conversions != 1 {
		t.Errorf("day 1 = %+v, want 2024-05-15 with 1 conversion", analysis.DailyTrend[0])
	}
	if analysis.DailyTrend[1].Date != "2024-05-16" || analysis.DailyTrend[1].Sessions != 1 {
		t.Errorf("day 2 = %+v, want 2024-05-16 with 1 session", analysis.DailyTrend[1])
	}
}

func TestAnalyzeConversionsEmptyWindow(t *testing.T) {
	analysis := AnalyzeConversions(nil, []models.MatchRule{
		{Field: "eventType", Operator: "equals", Value: "purchase"},
	})
	if analysis.TotalSessions != 0 || analysis.ConvertedSessions != 0 || analysis.ConversionRate != 0 {
		t.Errorf("analysis = %+v, want all zero", analysis)
	}
	if analysis.TopPages == nil || analysis.TopChannels == nil || analysis.DailyTrend == nil {
		t.Error("breakdowns should be empty slices, not nil")
	}
}
