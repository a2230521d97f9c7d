package tracking

import "sitepulse/api/models"

// Suppression reasons reported by the consent gate.
const (
	SuppressDNT     = "dnt"
	SuppressConsent = "consent"
)

// Decision is the consent gate's verdict for one beacon. When Record is
// false, Reason carries the suppression cause; the collector still answers
// the beacon with a success status so consent state never leaks to the page.
type Decision struct {
	Record      bool
	Reason      string
	AnonymizeIP bool
	Cookieless  bool
}

// EvaluateConsent decides whether a beacon may be recorded at all, and under
// which identity rules. Checks run in order: DNT first, then opt-in consent.
// Suppression is a normal outcome, not an error.
func EvaluateConsent(p *models.BeaconPayload, s ConsentContext, settings models.ConsentSettings) Decision {
	if settings.RespectDNT && (s.DNTHeader || p.DNTEnabled()) {
		return Decision{Reason: SuppressDNT}
	}
	if settings.ConsentMode == models.ConsentModeOptIn && !p.ConsentAsserted() {
		return Decision{Reason: SuppressConsent}
	}
	return Decision{
		Record:      true,
		AnonymizeIP: settings.AnonymizeIP,
		Cookieless:  settings.Cookieless,
	}
}

// ConsentContext carries request-level signals that live outside the JSON
// payload, currently just the DNT header.
type ConsentContext struct {
	DNTHeader bool
}
