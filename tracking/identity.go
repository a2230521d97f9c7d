package tracking

import (
	"encoding/binary"
	"net"
	"net/http"
	"strconv"
	"strings"

	"sitepulse/api/models"
)

// ExtractClientIP extracts the client IP from the proxy header chain.
// X-Forwarded-For wins (first entry), then X-Real-IP, then RemoteAddr.
func ExtractClientIP(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		ips := strings.Split(forwarded, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// AnonymizeIP strips the host-identifying tail of an address: the last octet
// for IPv4, everything past the first four groups for IPv6. Unparseable
// input comes back unchanged.
func AnonymizeIP(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ip
	}
	if v4 := parsed.To4(); v4 != nil {
		v4 = append(net.IP(nil), v4...)
		v4[3] = 0
		return v4.String()
	}
	v6 := append(net.IP(nil), parsed.To16()...)
	for i := 8; i < 16; i++ {
		v6[i] = 0
	}
	return v6.String()
}

// IsPrivateIP reports whether the address is loopback or in one of the
// private ranges geo lookup and internal-traffic detection care about.
func IsPrivateIP(ip string) bool {
	if ip == "" {
		return false
	}
	parsed := net.ParseIP(ip)
	if parsed != nil && parsed.IsLoopback() {
		return true
	}
	return strings.HasPrefix(ip, "10.") || strings.HasPrefix(ip, "192.168.")
}

// MatchCIDR compares ip against the /bits network containing network.
// bits 0 matches every address. Mask arithmetic is unsigned 32-bit so
// shifting never sign-extends.
func MatchCIDR(ip, network string, bits int) bool {
	if bits <= 0 {
		return true
	}
	if bits > 32 {
		return false
	}
	ipAddr := net.ParseIP(ip)
	netAddr := net.ParseIP(network)
	if ipAddr == nil || netAddr == nil {
		return false
	}
	ip4 := ipAddr.To4()
	net4 := netAddr.To4()
	if ip4 == nil || net4 == nil {
		return false
	}
	mask := ^uint32(0) << (32 - uint(bits))
	return binary.BigEndian.Uint32(ip4)&mask == binary.BigEndian.Uint32(net4)&mask
}

// MatchIPRule tests one project-defined internal traffic rule against an IP.
func MatchIPRule(ip string, rule models.InternalIPRule) bool {
	switch rule.RuleType {
	case models.IPRuleExact:
		return ip == rule.Value
	case models.IPRulePrefix:
		return rule.Value != "" && strings.HasPrefix(ip, rule.Value)
	case models.IPRuleCIDR:
		network, bitsStr, found := strings.Cut(rule.Value, "/")
		if !found {
			return false
		}
		bits, err := strconv.Atoi(bitsStr)
		if err != nil {
			return false
		}
		return MatchCIDR(ip, network, bits)
	}
	return false
}

// IsInternalTraffic classifies an event as the site owner's own traffic:
// the beacon's hostname does not belong to the project's domain, the IP is
// in a private range, or the IP matches one of the project's rules.
func IsInternalTraffic(hostname, projectDomain, ip string, rules []models.InternalIPRule) bool {
	if !hostnameMatchesDomain(hostname, projectDomain) {
		return true
	}
	if IsPrivateIP(ip) {
		return true
	}
	for _, rule := range rules {
		if MatchIPRule(ip, rule) {
			return true
		}
	}
	return false
}

// hostnameMatchesDomain accepts the registered domain itself and any
// subdomain of it.
func hostnameMatchesDomain(hostname, domain string) bool {
	hostname = strings.ToLower(strings.TrimSuffix(hostname, "."))
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	if hostname == "" || domain == "" {
		return false
	}
	if host, _, err := net.SplitHostPort(hostname); err == nil {
		hostname = host
	}
	return hostname == domain || strings.HasSuffix(hostname, "."+domain)
}
