package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"
)

// GeoLocation is the geography resolved for a client IP. The zero value
// means "unknown" and is a valid, expected outcome.
type GeoLocation struct {
	Country string
	Region  string
	City    string
}

// GeoResolver looks up geography for an IP via an ip-api style JSON
// endpoint. Lookups are best effort: private ranges are skipped and any
// failure degrades to the zero value, never an error. The request timeout is
// deliberately short because this sits on the ingestion path.
type GeoResolver struct {
	baseURL string
	client  *http.Client
}

func NewGeoResolver() *GeoResolver {
	baseURL := os.Getenv("GEOIP_API_URL")
	if baseURL == "" {
		baseURL = "http://ip-api.com/json"
	}
	return &GeoResolver{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 2 * time.Second},
	}
}

type geoAPIResponse struct {
	Status  string `json:"status"`
	Country string `json:"country"`
	Region  string `json:"regionName"`
	City    string `json:"city"`
}

// Lookup resolves geography for ip. Must be called with the real client IP,
// before any anonymization.
func (g *GeoResolver) Lookup(ctx context.Context, ip string) GeoLocation {
	if ip == "" || IsPrivateIP(ip) {
		return GeoLocation{}
	}

	reqURL := fmt.Sprintf("%s/%s", g.baseURL, url.PathEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		log.Printf("Geo lookup: failed to build request for %s: %v", ip, err)
		return GeoLocation{}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		log.Printf("Geo lookup failed for %s: %v", ip, err)
		return GeoLocation{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("Geo lookup for %s returned status %d", ip, resp.StatusCode)
		return GeoLocation{}
	}

	var body geoAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Printf("Geo lookup: failed to decode response for %s: %v", ip, err)
		return GeoLocation{}
	}
	if body.Status != "" && body.Status != "success" {
		return GeoLocation{}
	}

	return GeoLocation{Country: body.Country, Region: body.Region, City: body.City}
}
