// Package geoloc resolves client IPs to a country and coordinates
// through an ip.zxq.co compatible HTTP service.
package geoloc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Result is one resolved IP. Country is a two-letter uppercase code,
// "XX" when the service does not know.
type Result struct {
	Country   string
	Latitude  float32
	Longitude float32
}

// Client queries the geolocation service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Lookup resolves a single IP.
func (c *Client) Lookup(ctx context.Context, ip string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+ip, nil)
	if err != nil {
		return Result{}, fmt.Errorf("building geolocation request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("querying geolocation service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("geolocation service returned %s", resp.Status)
	}

	var body struct {
		Country string `json:"country"`
		Loc     string `json:"loc"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, fmt.Errorf("decoding geolocation response: %w", err)
	}

	result := Result{Country: strings.ToUpper(strings.TrimSpace(body.Country))}
	if result.Country == "" {
		result.Country = "XX"
	}
	result.Latitude, result.Longitude = parseLoc(body.Loc)
	return result, nil
}

// parseLoc splits the "lat,lon" pair, zero on any malformed input.
func parseLoc(loc string) (float32, float32) {
	lat, lon, ok := strings.Cut(loc, ",")
	if !ok {
		return 0, 0
	}
	latF, err := strconv.ParseFloat(strings.TrimSpace(lat), 32)
	if err != nil {
		return 0, 0
	}
	lonF, err := strconv.ParseFloat(strings.TrimSpace(lon), 32)
	if err != nil {
		return 0, 0
	}
	return float32(latF), float32(lonF)
}
