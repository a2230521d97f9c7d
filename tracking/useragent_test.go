package tracking

import "testing"

func TestClassifyUserAgent(t *testing.T) {
	cases := []struct {
		name       string
		ua         string
		wantBot    bool
		wantServer bool
	}{
		{
			name:    "googlebot",
			ua:      "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
			wantBot: true,
		},
		{
			name:    "generic crawler",
			ua:      "SomeCrawler/1.0",
			wantBot: true,
		},
		{
			name:       "curl is server not bot",
			ua:         "curl/8.4.0",
			wantServer: true,
		},
		{
			name:       "python requests",
			ua:         "python-requests/2.31.0",
			wantServer: true,
		},
		{
			name:       "empty ua is server",
			ua:         "",
			wantServer: true,
		},
		{
			name:       "literal unknown is server",
			ua:         "unknown",
			wantServer: true,
		},
		{
			name: "regular browser is neither",
			ua:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		},
		{
			name:       "uptime monitor bot and server",
			ua:         "Pingdom.com_bot_version_1.4",
			wantBot:    true,
			wantServer: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotBot, gotServer := ClassifyUserAgent(tc.ua)
			if gotBot != tc.wantBot {
				t.Errorf("isBot = %v, want %v", gotBot, tc.wantBot)
			}
			if gotServer != tc.wantServer {
				t.Errorf("isServer = %v, want %v", gotServer, tc.wantServer)
			}
		})
	}
}
