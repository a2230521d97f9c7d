package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Event types recorded by the beacon.
const (
	EventTypePageView   = "pageview"
	EventTypeClick      = "click"
	EventTypeScroll     = "scroll"
	EventTypeFormSubmit = "form_submit"
	EventTypeRageClick  = "rage_click"
	EventTypeCustom     = "custom"
)

// Traffic source channels, assigned at ingestion time.
const (
	ChannelDirect        = "direct"
	ChannelOrganicSearch = "organic_search"
	ChannelSocial        = "social"
	ChannelEmail         = "email"
	ChannelPaidSearch    = "paid_search"
	ChannelPaidSocial    = "paid_social"
	ChannelDisplay       = "display"
	ChannelAffiliate     = "affiliate"
	ChannelInternal      = "internal"
	ChannelReferral      = "referral"
)

// Event is one recorded interaction. Rows are immutable after creation:
// the events table is append-only and only ever bulk-deleted by the
// retention sweeper or a project erasure.
type Event struct {
	EventID       string          `json:"eventId" ch:"event_id"`
	ProjectID     string          `json:"projectId" ch:"project_id"`
	VisitorID     string          `json:"visitorId" ch:"visitor_id"` // empty in cookieless mode
	SessionID     string          `json:"sessionId" ch:"session_id"` // empty in cookieless mode
	EventType     string          `json:"eventType" ch:"event_type"`
	PagePath      string          `json:"page" ch:"page_path"`
	Referrer      string          `json:"referrer" ch:"referrer"`
	Device        string          `json:"device" ch:"device"`
	Browser       string          `json:"browser" ch:"browser"`
	OS            string          `json:"os" ch:"os"`
	Country       string          `json:"country" ch:"country"`
	Region        string          `json:"region" ch:"region"`
	City          string          `json:"city" ch:"city"`
	IPAddress     string          `json:"ipAddress" ch:"ip_address"` // anonymized or empty, per consent settings
	IsBot         bool            `json:"isBot" ch:"is_bot"`
	IsInternal    bool            `json:"isInternal" ch:"is_internal"`
	IsServer      bool            `json:"isServer" ch:"is_server"`
	TrafficSource string          `json:"trafficSource" ch:"traffic_source"`
	Metadata      json.RawMessage `json:"metadata,omitempty" ch:"metadata"`
	Timestamp     time.Time       `json:"timestamp" ch:"timestamp"`
}

// BeaconPayload is the wire format of the tracking beacon. The dnt and
// consentGiven flags arrive as the literal strings "true"/"1"; they are
// converted to real booleans here and nowhere else.
type BeaconPayload struct {
	ProjectID    string          `json:"projectId" binding:"required"`
	VisitorID    string          `json:"visitorId"`
	SessionID    string          `json:"sessionId"`
	EventType    string          `json:"eventType"`
	Page         string          `json:"page"`
	Hostname     string          `json:"hostname"`
	Referrer     string          `json:"referrer"`
	UserAgent    string          `json:"userAgent"`
	DNT          string          `json:"dnt"`
	ConsentGiven string          `json:"consentGiven"`
	Device       string          `json:"device"`
	Browser      string          `json:"browser"`
	OS           string          `json:"os"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
}

// DNTEnabled reports whether the beacon signalled Do-Not-Track.
func (p *BeaconPayload) DNTEnabled() bool {
	return wireBool(p.DNT)
}

// ConsentAsserted reports whether the page explicitly asserted consent.
func (p *BeaconPayload) ConsentAsserted() bool {
	return wireBool(p.ConsentGiven)
}

func wireBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
