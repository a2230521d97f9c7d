package tracking

import (
	"testing"

	"sitepulse/api/models"
)

func TestEvaluateConsent(t *testing.T) {
	cases := []struct {
		name       string
		payload    models.BeaconPayload
		ctx        ConsentContext
		settings   models.ConsentSettings
		wantRecord bool
		wantReason string
	}{
		{
			name:       "dnt respected suppresses",
			payload:    models.BeaconPayload{DNT: "1", ConsentGiven: "true"},
			settings:   models.ConsentSettings{RespectDNT: true, ConsentMode: models.ConsentModeOptOut},
			wantRecord: false,
			wantReason: SuppressDNT,
		},
		{
			name:       "dnt header alone suppresses",
			payload:    models.BeaconPayload{ConsentGiven: "true"},
			ctx:        ConsentContext{DNTHeader: true},
			settings:   models.ConsentSettings{RespectDNT: true, ConsentMode: models.ConsentModeOptOut},
			wantRecord: false,
			wantReason: SuppressDNT,
		},
		{
			name:       "dnt ignored when not respected",
			payload:    models.BeaconPayload{DNT: "1"},
			settings:   models.ConsentSettings{RespectDNT: false, ConsentMode: models.ConsentModeOptOut},
			wantRecord: true,
		},
		{
			name:       "opt-in without consent suppresses",
			payload:    models.BeaconPayload{ConsentGiven: "false"},
			settings:   models.ConsentSettings{ConsentMode: models.ConsentModeOptIn},
			wantRecord: false,
			wantReason: SuppressConsent,
		},
		{
			name:       "opt-in with consent records",
			payload:    models.BeaconPayload{ConsentGiven: "true"},
			settings:   models.ConsentSettings{ConsentMode: models.ConsentModeOptIn},
			wantRecord: true,
		},
		{
			name:       "opt-out records without consent flag",
			payload:    models.BeaconPayload{},
			settings:   models.ConsentSettings{ConsentMode: models.ConsentModeOptOut},
			wantRecord: true,
		},
		{
			name:       "dnt wins over asserted consent",
			payload:    models.BeaconPayload{DNT: "true", ConsentGiven: "true"},
			settings:   models.ConsentSettings{RespectDNT: true, ConsentMode: models.ConsentModeOptIn},
			wantRecord: false,
			wantReason: SuppressDNT,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EvaluateConsent(&tc.payload, tc.ctx, tc.settings)
			if got.Record != tc.wantRecord {
				t.Errorf("Record = %v, want %v", got.Record, tc.wantRecord)
			}
			if got.Reason != tc.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tc.wantReason)
			}
		})
	}
}

func TestDecisionCarriesIdentityModes(t *testing.T) {
	settings := models.ConsentSettings{
		ConsentMode: models.ConsentModeOptOut,
		AnonymizeIP: true,
		Cookieless:  true,
	}
	got := EvaluateConsent(&models.BeaconPayload{}, ConsentContext{}, settings)
	if !got.Record {
		t.Fatal("expected record decision")
	}
	if !got.AnonymizeIP || !got.Cookieless {
		t.Errorf("decision = %+v, want anonymize and cookieless carried through", got)
	}
}
