package tracking

import (
	"net/http/httptest"
	"testing"

	"sitepulse/api/models"
)

func TestExtractClientIP(t *testing.T) {
	cases := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"forwarded chain takes first entry", "203.0.113.7, 10.0.0.1", "", "192.0.2.1:1234", "203.0.113.7"},
		{"real ip fallback", "", "198.51.100.9", "192.0.2.1:1234", "198.51.100.9"},
		{"remote addr fallback strips port", "", "", "192.0.2.1:1234", "192.0.2.1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/track", nil)
			r.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if tc.realIP != "" {
				r.Header.Set("X-Real-IP", tc.realIP)
			}
			if got := ExtractClientIP(r); got != tc.want {
				t.Errorf("ExtractClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAnonymizeIP(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"203.0.113.45", "203.0.113.0"},
		{"10.1.2.3", "10.1.2.0"},
		{"2001:db8:85a3:8d3:1319:8a2e:370:7348", "2001:db8:85a3:8d3::"},
		{"not-an-ip", "not-an-ip"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := AnonymizeIP(tc.in); got != tc.want {
			t.Errorf("AnonymizeIP(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsPrivateIP(t *testing.T) {
	private := []string{"127.0.0.1", "::1", "10.0.0.5", "10.255.1.1", "192.168.1.20"}
	for _, ip := range private {
		if !IsPrivateIP(ip) {
			t.Errorf("IsPrivateIP(%q) = false, want true", ip)
		}
	}
	public := []string{"8.8.8.8", "203.0.113.45", "192.169.0.1", ""}
	for _, ip := range public {
		if IsPrivateIP(ip) {
			t.Errorf("IsPrivateIP(%q) = true, want false", ip)
		}
	}
}

func TestMatchCIDR(t *testing.T) {
	cases := []struct {
		ip      string
		network string
		bits    int
		want    bool
	}{
		{"10.1.2.3", "10.0.0.0", 8, true},
		{"11.1.2.3", "10.0.0.0", 8, false},
		{"192.168.1.200", "192.168.1.0", 24, true},
		{"192.168.2.1", "192.168.1.0", 24, false},
		{"8.8.8.8", "0.0.0.0", 0, true}, // /0 matches everything
		{"anything", "10.0.0.0", 0, true},
		{"10.0.0.1", "10.0.0.0", 33, false},
		{"garbage", "10.0.0.0", 8, false},
	}
	for _, tc := range cases {
		if got := MatchCIDR(tc.ip, tc.network, tc.bits); got != tc.want {
			t.Errorf("MatchCIDR(%q, %q, %d) = %v, want %v", tc.ip, tc.network, tc.bits, got, tc.want)
		}
	}
}

func TestMatchIPRule(t *testing.T) {
	cases := []struct {
		name string
		ip   string
		rule models.InternalIPRule
		want bool
	}{
		{"exact hit", "203.0.113.45", models.InternalIPRule{RuleType: models.IPRuleExact, Value: "203.0.113.45"}, true},
		{"exact miss", "203.0.113.46", models.InternalIPRule{RuleType: models.IPRuleExact, Value: "203.0.113.45"}, false},
		{"prefix hit", "203.0.113.46", models.InternalIPRule{RuleType: models.IPRulePrefix, Value: "203.0.113."}, true},
		{"empty prefix never matches", "203.0.113.46", models.InternalIPRule{RuleType: models.IPRulePrefix, Value: ""}, false},
		{"cidr hit", "10.1.2.3", models.InternalIPRule{RuleType: models.IPRuleCIDR, Value: "10.0.0.0/8"}, true},
		{"cidr miss", "11.1.2.3", models.InternalIPRule{RuleType: models.IPRuleCIDR, Value: "10.0.0.0/8"}, false},
		{"cidr malformed", "10.1.2.3", models.InternalIPRule{RuleType: models.IPRuleCIDR, Value: "10.0.0.0"}, false},
		{"unknown rule type", "10.1.2.3", models.InternalIPRule{RuleType: "glob", Value: "10.*"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MatchIPRule(tc.ip, tc.rule); got != tc.want {
				t.Errorf("MatchIPRule = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsInternalTraffic(t *testing.T) {
	rules := []models.InternalIPRule{
		{RuleType: models.IPRuleCIDR, Value: "203.0.113.0/24"},
	}

	cases := []struct {
		name     string
		hostname string
		ip       string
		want     bool
	}{
		{"matching domain public ip", "example.com", "8.8.8.8", false},
		{"subdomain still external", "blog.example.com", "8.8.8.8", false},
		{"foreign hostname is internal", "staging.other.dev", "8.8.8.8", true},
		{"private ip is internal", "example.com", "192.168.1.5", true},
		{"rule match is internal", "example.com", "203.0.113.77", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsInternalTraffic(tc.hostname, "example.com", tc.ip, rules); got != tc.want {
				t.Errorf("IsInternalTraffic = %v, want %v", got, tc.want)
			}
		})
	}
}
