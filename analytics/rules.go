package analytics

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"sitepulse/api/models"
)

// Operator is one comparison operator of the custom event rule DSL. The set
// is closed so every operator is handled explicitly.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpStartsWith  Operator = "starts_with"
	OpEndsWith    Operator = "ends_with"
	OpContainsAny Operator = "contains_any"
	OpRegex       Operator = "regex"
)

// MatchesRules reports whether the event satisfies every rule (logical AND).
// An empty rule list matches nothing, so an unconfigured definition cannot
// tag the whole event log.
func MatchesRules(e models.Event, rules []models.MatchRule) bool {
	if len(rules) == 0 {
		return false
	}
	for _, rule := range rules {
		if !matchRule(e, rule) {
			return false
		}
	}
	return true
}

// matchRule evaluates one rule. All comparisons are case-insensitive string
// comparisons, except regex which runs a case-insensitively compiled pattern
// against the raw field value. A malformed pattern makes the rule false, it
// never propagates.
func matchRule(e models.Event, rule models.MatchRule) bool {
	raw := EventField(e, rule.Field)
	field := strings.ToLower(raw)
	value := strings.ToLower(rule.Value)

	switch Operator(rule.Operator) {
	case OpEquals:
		return field == value
	case OpNotEquals:
		return field != value
	case OpContains:
		return strings.Contains(field, value)
	case OpNotContains:
		return !strings.Contains(field, value)
	case OpStartsWith:
		return strings.HasPrefix(field, value)
	case OpEndsWith:
		return strings.HasSuffix(field, value)
	case OpContainsAny:
		// Comma-split tokens; literal commas in field values cannot be
		// escaped. Known limitation.
		for _, token := range strings.Split(value, ",") {
			token = strings.TrimSpace(token)
			if token != "" && strings.Contains(field, token) {
				return true
			}
		}
		return false
	case OpRegex:
		re, err := regexp.Compile("(?i)" + rule.Value)
		if err != nil {
			return false
		}
		return re.MatchString(raw)
	}
	return false
}

// EventField reads a named field off an event as a string. Unknown names
// fall through to a metadata key lookup and degrade to "".
func EventField(e models.Event, field string) string {
	switch field {
	case "eventType":
		return e.EventType
	case "page", "pagePath":
		return e.PagePath
	case "referrer":
		return e.Referrer
	case "device":
		return e.Device
	case "browser":
		return e.Browser
	case "os":
		return e.OS
	case "country":
		return e.Country
	case "region":
		return e.Region
	case "city":
		return e.City
	case "trafficSource":
		return e.TrafficSource
	case "visitorId":
		return e.VisitorID
	case "sessionId":
		return e.SessionID
	}
	return metadataField(e.Metadata, field)
}

func metadataField(metadata json.RawMessage, key string) string {
	if len(metadata) == 0 {
		return ""
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(metadata, &fields); err != nil {
		return ""
	}
	v, ok := fields[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// FilterMatching returns the events matching the definition's rules, capped
// at limit when limit is positive.
func FilterMatching(events []models.Event, rules []models.MatchRule, limit int) []models.Event {
	matched := make([]models.Event, 0)
	for _, e := range events {
		if MatchesRules(e, rules) {
			matched = append(matched, e)
			if limit > 0 && len(matched) >= limit {
				break
			}
		}
	}
	return matched
}
