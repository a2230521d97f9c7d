package models

import "time"

// Consent modes for a project.
const (
	ConsentModeOptIn  = "opt_in"
	ConsentModeOptOut = "opt_out"
)

// Internal IP rule types.
const (
	IPRuleExact  = "exact"
	IPRulePrefix = "prefix"
	IPRuleCIDR   = "cidr"
)

// Project is one tracked website. PublicKey is the site key embedded in the
// tracking snippet; beacons identify themselves with it.
type Project struct {
	ID        string    `json:"id"`
	OwnerID   int       `json:"ownerId"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain"`
	PublicKey string    `json:"publicKey"`
	CreatedAt time.Time `json:"createdAt"`
}

// ConsentSettings controls the consent gate and identity resolver for one
// project. One row per project, upserted by the owner, read on every beacon.
type ConsentSettings struct {
	ProjectID     string    `json:"projectId"`
	ConsentMode   string    `json:"consentMode"` // opt_in | opt_out
	RespectDNT    bool      `json:"respectDnt"`
	AnonymizeIP   bool      `json:"anonymizeIp"`
	Cookieless    bool      `json:"cookieless"`
	RetentionDays int       `json:"retentionDays"` // 0 = keep forever
	UpdatedAt     time.Time `json:"updatedAt"`
}

// DefaultConsentSettings is what a project gets before its owner saves
// anything: opt-out mode, DNT respected, IPs anonymized.
func DefaultConsentSettings(projectID string) ConsentSettings {
	return ConsentSettings{
		ProjectID:   projectID,
		ConsentMode: ConsentModeOptOut,
		RespectDNT:  true,
		AnonymizeIP: true,
	}
}

// InternalIPRule marks traffic from the owner's own infrastructure. Value is
// a dotted IP for exact rules, a string prefix for prefix rules, or a
// "network/bits" CIDR for cidr rules.
type InternalIPRule struct {
	ID        int       `json:"id"`
	ProjectID string    `json:"projectId"`
	RuleType  string    `json:"ruleType"` // exact | prefix | cidr
	Value     string    `json:"value"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"createdAt"`
}
