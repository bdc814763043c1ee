// Package geo resolves free-text location phrases to coordinates through a
// Nominatim-compatible geocoding service.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrNoResult is returned when the geocoder has no match for a query.
var ErrNoResult = errors.New("geocoder: no result for query")

// Client is an HTTP geocoding client.
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewClient creates a geocoding client against the given Nominatim-style
// base URL.
func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// nominatimResult is the subset of the search response we care about.
type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves a location phrase to coordinates. The first candidate
// returned by the service wins.
func (c *Client) Geocode(ctx context.Context, query string) (Coordinates, error) {
	u := fmt.Sprintf("%s/search?format=json&limit=1&q=%s", c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Coordinates{}, fmt.Errorf("creating geocode request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("geocoding %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coordinates{}, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Coordinates{}, fmt.Errorf("decoding geocode response: %w", err)
	}
	if len(results) == 0 {
		return Coordinates{}, ErrNoResult
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("parsing latitude %q: %w", results[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("parsing longitude %q: %w", results[0].Lon, err)
	}

	return Coordinates{Lat: lat, Lng: lng}, nil
}
