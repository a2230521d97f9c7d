package analytics

import "sitepulse/api/models"

// SessionKey resolves the grouping key for an event. The precedence is
// session id, then visitor id, then the event's own id, so every event
// belongs to exactly one session group even in cookieless mode. This policy
// is shared by the aggregation engine, the funnel engine and conversion
// analysis; do not reimplement it at a call site.
func SessionKey(e models.Event) string {
	if e.SessionID != "" {
		return e.SessionID
	}
	if e.VisitorID != "" {
		return e.VisitorID
	}
	return e.EventID
}
