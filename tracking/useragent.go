package tracking

import "strings"

// botPatterns flag crawlers, scrapers and known aggregator user agents.
var botPatterns = []string{
	"bot",
	"crawler",
	"spider",
	"slurp",
	"googlebot",
	"bingpreview",
	"baiduspider",
	"yandex",
	"duckduckbot",
	"applebot",
	"facebookexternalhit",
	"facebot",
	"twitterbot",
	"linkedinbot",
	"telegrambot",
	"whatsapp",
	"pinterest",
	"slackbot",
	"discordbot",
	"semrush",
	"ahrefs",
	"mj12bot",
	"dotbot",
	"petalbot",
	"bytespider",
	"feedfetcher",
	"headlesschrome",
	"phantomjs",
	"lighthouse",
	"gptbot",
	"ccbot",
}

// serverPatterns flag scripting clients, HTTP libraries and uptime monitors.
var serverPatterns = []string{
	"curl",
	"wget",
	"python-requests",
	"python-urllib",
	"python/",
	"go-http-client",
	"java/",
	"okhttp",
	"libwww-perl",
	"php",
	"ruby",
	"node-fetch",
	"axios",
	"got (",
	"guzzle",
	"httpie",
	"postman",
	"insomnia",
	"pingdom",
	"uptimerobot",
	"statuscake",
	"site24x7",
	"newrelic",
	"datadog",
}

// ClassifyUserAgent flags non-human traffic from the user-agent string.
// The two flags are independent: a request can be bot without being server
// and the other way around. An empty or literal "unknown" UA counts as
// server traffic.
func ClassifyUserAgent(userAgent string) (isBot, isServer bool) {
	ua := strings.ToLower(strings.TrimSpace(userAgent))

	if ua == "" || ua == "unknown" {
		return false, true
	}

	for _, p := range botPatterns {
		if strings.Contains(ua, p) {
			isBot = true
			break
		}
	}
	for _, p := range serverPatterns {
		if strings.Contains(ua, p) {
			isServer = true
			break
		}
	}
	return isBot, isServer
}
