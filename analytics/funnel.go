package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"sitepulse/api/models"
)

// FunnelStepResult is one step's completion numbers.
type FunnelStepResult struct {
	Name        string  `json:"name"`
	Users       int     `json:"users"`
	DropOff     int     `json:"dropOff"`
	DropOffRate float64 `json:"dropOffRate"`
}

// FunnelResult is the outcome of evaluating a funnel over a window.
type FunnelResult struct {
	Steps             []FunnelStepResult `json:"steps"`
	TotalSessions     int                `json:"totalSessions"`
	OverallConversion float64            `json:"overallConversion"`
}

// AnalyzeFunnel evaluates the funnel against sessions reconstructed from the
// window's events. Each session is walked once with a monotonically
// increasing step cursor: the cursor never moves backward, an event matching
// an already-passed step is ignored, and scanning stops as soon as the
// cursor passes the last step. A session reaches step i when its cursor ends
// up beyond i.
func AnalyzeFunnel(events []models.Event, funnel models.Funnel) *FunnelResult {
	result := &FunnelResult{Steps: make([]FunnelStepResult, len(funnel.Steps))}
	for i, step := range funnel.Steps {
		result.Steps[i].Name = step.Name
	}
	if len(funnel.Steps) == 0 {
		return result
	}

	sessions := groupSessions(events)
	result.TotalSessions = len(sessions)

	completions := make([]int, len(funnel.Steps))
	for _, sessionEvents := range sessions {
		cursor := 0
		for _, e := range sessionEvents {
			if cursor >= len(funnel.Steps) {
				break
			}
			if stepMatches(funnel.Steps[cursor], e) {
				cursor++
			}
		}
		for i := 0; i < cursor; i++ {
			completions[i]++
		}
	}

	for i := range funnel.Steps {
		result.Steps[i].Users = completions[i]
		if i > 0 {
			dropOff := completions[i-1] - completions[i]
			result.Steps[i].DropOff = dropOff
			if completions[i-1] > 0 {
				result.Steps[i].DropOffRate = round2(float64(dropOff) / float64(completions[i-1]) * 100)
			}
		}
	}
	if completions[0] > 0 {
		last := completions[len(completions)-1]
		result.OverallConversion = round2(float64(last) / float64(completions[0]) * 100)
	}
	return result
}

// groupSessions groups events by the shared session key and sorts each
// group by timestamp ascending.
func groupSessions(events []models.Event) map[string][]models.Event {
	sessions := make(map[string][]models.Event)
	for _, e := range events {
		key := SessionKey(e)
		sessions[key] = append(sessions[key], e)
	}
	for _, group := range sessions {
		sort.Slice(group, func(i, j int) bool {
			return group[i].Timestamp.Before(group[j].Timestamp)
		})
	}
	return sessions
}

// stepMatches tests one event against one funnel step. Pageview steps match
// by substring on the page path, event steps by exact event-type equality,
// click steps by substring on the click metadata's text or target field.
func stepMatches(step models.FunnelStep, e models.Event) bool {
	switch step.StepType {
	case models.StepPageView:
		return e.EventType == models.EventTypePageView && strings.Contains(e.PagePath, step.MatchValue)
	case models.StepEvent:
		return e.EventType == step.MatchValue
	case models.StepClick:
		if e.EventType != models.EventTypeClick {
			return false
		}
		return clickMetadataContains(e.Metadata, step.MatchValue)
	}
	return false
}

func clickMetadataContains(metadata json.RawMessage, value string) bool {
	if len(metadata) == 0 {
		return false
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(metadata, &fields); err != nil {
		return false
	}
	for _, key := range []string{"text", "target"} {
		if v, ok := fields[key]; ok {
			if strings.Contains(fmt.Sprintf("%v", v), value) {
				return true
			}
		}
	}
	return false
}
