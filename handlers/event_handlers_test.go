package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestQueryFlag(t *testing.T) {
	cases := []struct {
		in   string
		want *bool
	}{
		{"", nil},
		{"true", boolPtr(true)},
		{"1", boolPtr(true)},
		{"false", boolPtr(false)},
		{"0", boolPtr(false)},
		{"banana", boolPtr(false)},
	}

	for _, tc := range cases {
		got := queryFlag(tc.in)
		switch {
		case tc.want == nil && got != nil:
			t.Errorf("queryFlag(%q) = %v, want nil", tc.in, *got)
		case tc.want != nil && got == nil:
			t.Errorf("queryFlag(%q) = nil, want %v", tc.in, *tc.want)
		case tc.want != nil && got != nil && *got != *tc.want:
			t.Errorf("queryFlag(%q) = %v, want %v", tc.in, *got, *tc.want)
		}
	}
}

func TestEventFiltersFromQueryParsesAllFlags(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/events?isBot=true&isInternal=false&isServer=1&device=mobile", nil)

	filters := eventFiltersFromQuery(c)

	if filters.IsBot == nil || !*filters.IsBot {
		t.Errorf("IsBot = %v, want true", filters.IsBot)
	}
	if filters.IsInternal == nil || *filters.IsInternal {
		t.Errorf("IsInternal = %v, want false", filters.IsInternal)
	}
	if filters.IsServer == nil || !*filters.IsServer {
		t.Errorf("IsServer = %v, want true", filters.IsServer)
	}
	if filters.Device != "mobile" {
		t.Errorf("Device = %q, want %q", filters.Device, "mobile")
	}
}

func boolPtr(b bool) *bool { return &b }
