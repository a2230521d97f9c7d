package analytics

import (
	"sort"
	"time"

	"sitepulse/api/models"
)

// PageStat counts converted sessions that saw a page before converting.
type PageStat struct {
	Page     string `json:"page"`
	Sessions int    `json:"sessions"`
}

// ChannelStat breaks conversions down by the session's traffic channel.
type ChannelStat struct {
	Channel   string  `json:"channel"`
	Sessions  int     `json:"sessions"`
	Converted int     `json:"converted"`
	Rate      float64 `json:"rate"`
}

// TrendPoint is one day of the conversion trend.
type TrendPoint struct {
	Date        string  `json:"date"`
	Sessions    int     `json:"sessions"`
	Conversions int     `json:"conversions"`
	Rate        float64 `json:"rate"`
}

// ConversionAnalysis groups the window's sessions into converted and
// non-converted by a custom event definition and summarizes what precedes
// conversion.
type ConversionAnalysis struct {
	TotalSessions     int           `json:"totalSessions"`
	ConvertedSessions int           `json:"convertedSessions"`
	ConversionRate    float64       `json:"conversionRate"`
	TopPages          []PageStat    `json:"topPages"`
	TopChannels       []ChannelStat `json:"topChannels"`
	DailyTrend        []TrendPoint  `json:"dailyTrend"`
}

const topBreakdownLimit = 10

// AnalyzeConversions evaluates the definition over the window. A session
// converts when any of its events matches the rules; pages are counted only
// when seen before the session's first matching event, and the channel is
// taken from the session's first event.
func AnalyzeConversions(events []models.Event, rules []models.MatchRule) *ConversionAnalysis {
	analysis := &ConversionAnalysis{
		TopPages:    []PageStat{},
		TopChannels: []ChannelStat{},
		DailyTrend:  []TrendPoint{},
	}

	sessions := groupSessions(events)
	analysis.TotalSessions = len(sessions)
	if len(sessions) == 0 {
		return analysis
	}

	pageCounts := make(map[string]int)
	channelCounts := make(map[string]*ChannelStat)
	dayCounts := make(map[string]*TrendPoint)

	for _, sessionEvents := range sessions {
		first := sessionEvents[0]

		channel := first.TrafficSource
		if channel == "" {
			channel = models.ChannelDirect
		}
		ch := channelCounts[channel]
		if ch == nil {
			ch = &ChannelStat{Channel: channel}
			channelCounts[channel] = ch
		}
		ch.Sessions++

		day := first.Timestamp.UTC().Format("2006-01-02")
		trend := dayCounts[day]
		if trend == nil {
			trend = &TrendPoint{Date: day}
			dayCounts[day] = trend
		}
		trend.Sessions++

		var convertedAt time.Time
		converted := false
		for _, e := range sessionEvents {
			if MatchesRules(e, rules) {
				convertedAt = e.Timestamp
				converted = true
				break
			}
		}
		if !converted {
			continue
		}

		analysis.ConvertedSessions++
		ch.Converted++
		trend.Conversions++

		seen := make(map[string]bool)
		for _, e := range sessionEvents {
			if !e.Timestamp.Before(convertedAt) {
				break
			}
			if e.EventType == models.EventTypePageView && e.PagePath != "" && !seen[e.PagePath] {
				seen[e.PagePath] = true
				pageCounts[e.PagePath]++
			}
		}
	}

	analysis.ConversionRate = round2(float64(analysis.ConvertedSessions) / float64(analysis.TotalSessions) * 100)

	for page, count := range pageCounts {
		analysis.TopPages = append(analysis.TopPages, PageStat{Page: page, Sessions: count})
	}
	sort.Slice(analysis.TopPages, func(i, j int) bool {
		if analysis.TopPages[i].Sessions != analysis.TopPages[j].Sessions {
			return analysis.TopPages[i].Sessions > analysis.TopPages[j].Sessions
		}
		return analysis.TopPages[i].Page < analysis.TopPages[j].Page
	})
	if len(analysis.TopPages) > topBreakdownLimit {
		analysis.TopPages = analysis.TopPages[:topBreakdownLimit]
	}

	for _, ch := range channelCounts {
		if ch.Sessions > 0 {
			ch.Rate = round2(float64(ch.Converted) / float64(ch.Sessions) * 100)
		}
		analysis.TopChannels = append(analysis.TopChannels, *ch)
	}
	sort.Slice(analysis.TopChannels, func(i, j int) bool {
		if analysis.TopChannels[i].Converted != analysis.TopChannels[j].Converted {
			return analysis.TopChannels[i].Converted > analysis.TopChannels[j].Converted
		}
		return analysis.TopChannels[i].Channel < analysis.TopChannels[j].Channel
	})
	if len(analysis.TopChannels) > topBreakdownLimit {
		analysis.TopChannels = analysis.TopChannels[:topBreakdownLimit]
	}

	for _, trend := range dayCounts {
		if trend.Sessions > 0 {
			trend.Rate = round2(float64(trend.Conversions) / float64(trend.Sessions) * 100)
		}
		analysis.DailyTrend = append(analysis.DailyTrend, *trend)
	}
	sort.Slice(analysis.DailyTrend, func(i, j int) bool {
		return analysis.DailyTrend[i].Date < analysis.DailyTrend[j].Date
	})

	return analysis
}
