package tracking

import (
	"net/url"
	"strings"

	"sitepulse/api/models"
)

// directPlaceholder is what some beacons send instead of an empty referrer.
const directPlaceholder = "(direct)"

// searchDomains are matched as the referrer host or any subdomain of it.
var searchDomains = []string{
	"google.com",
	"bing.com",
	"search.yahoo.com",
	"duckduckgo.com",
	"baidu.com",
	"yandex.com",
	"yandex.ru",
	"ecosia.org",
	"qwant.com",
	"startpage.com",
	"search.brave.com",
}

var socialDomains = []string{
	"facebook.com",
	"fb.com",
	"instagram.com",
	"twitter.com",
	"x.com",
	"t.co",
	"linkedin.com",
	"pinterest.com",
	"reddit.com",
	"tiktok.com",
	"youtube.com",
	"threads.net",
	"mastodon.social",
	"news.ycombinator.com",
}

var webmailDomains = []string{
	"mail.yahoo.com",
	"outlook.live.com",
	"mail.aol.com",
	"mail.proton.me",
	"protonmail.com",
	"mail.zoho.com",
	"webmail",
}

// paid search click-id query parameters.
var paidClickParams = []string{"gclid", "msclkid", "dclid", "wbraid", "gbraid"}

// ClassifyTrafficSource assigns exactly one channel from the referrer and
// the landing page URL. The rule order is load-bearing: direct and
// organic-search checks run before any UTM inspection, so a Google referral
// carrying utm_medium=cpc still counts as organic_search.
func ClassifyTrafficSource(referrer, pageURL, projectDomain string) string {
	// Rule 1: no referrer at all.
	if referrer == "" || referrer == directPlaceholder {
		return models.ChannelDirect
	}

	refHost := referrerHost(referrer)

	// Rules 2-4: known referrer host lists.
	if matchesDomainList(refHost, searchDomains) {
		return models.ChannelOrganicSearch
	}
	if matchesDomainList(refHost, socialDomains) {
		return models.ChannelSocial
	}
	if isWebmailHost(refHost) {
		return models.ChannelEmail
	}

	// Rule 5: UTM and ad-click parameters on the landing page.
	if channel := channelFromQuery(pageURL); channel != "" {
		return channel
	}

	// Rule 6: the site linking to itself.
	if refHost != "" && hostEqualsDomain(refHost, projectDomain) {
		return models.ChannelInternal
	}

	return models.ChannelReferral
}

func channelFromQuery(pageURL string) string {
	if pageURL == "" {
		return ""
	}
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	query := parsed.Query()

	switch strings.ToLower(query.Get("utm_medium")) {
	case "cpc", "ppc", "paid":
		return models.ChannelPaidSearch
	case "social", "paid_social", "paidsocial":
		return models.ChannelPaidSocial
	case "display", "banner":
		return models.ChannelDisplay
	case "affiliate":
		return models.ChannelAffiliate
	case "email", "newsletter":
		return models.ChannelEmail
	}

	for _, param := range paidClickParams {
		if query.Get(param) != "" {
			return models.ChannelPaidSearch
		}
	}
	return ""
}

// referrerHost pulls the lower-cased host out of a referrer, which may be a
// full URL or a bare hostname. Parse failures yield "".
func referrerHost(referrer string) string {
	raw := referrer
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

func matchesDomainList(host string, domains []string) bool {
	if host == "" {
		return false
	}
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func isWebmailHost(host string) bool {
	if host == "" {
		return false
	}
	if strings.HasPrefix(host, "mail.") || strings.HasPrefix(host, "webmail.") {
		return true
	}
	return matchesDomainList(host, webmailDomains)
}

func hostEqualsDomain(host, domain string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	domain = strings.TrimPrefix(strings.ToLower(domain), "www.")
	return domain != "" && host == domain
}
