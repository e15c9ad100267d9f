package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNoResult is returned when the provider cannot place an address.
var ErrNoResult = errors.New("geo: no geocoding result")

// Result is a geocoded address.
type Result struct {
	Point
	FormattedAddress string `json:"formattedAddress,omitempty"`
	City             string `json:"city,omitempty"`
	State            string `json:"state,omitempty"`
	PostalCode       string `json:"postalCode,omitempty"`
	Country          string `json:"country,omitempty"`
}

// Geocoder turns a free form address into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Result, error)
}

// Address builds the lookup string for a US street address.
func Address(parts ...string) string {
	kept := make([]string, 0, len(parts)+1)
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return strings.Join(kept, ", ") + ", USA"
}

const (
	defaultGoogleBase  = "https://maps.googleapis.com/maps/api/geocode/json"
	defaultHTTPTimeout = 10 * time.Second
)

// GoogleGeocoder calls the Google Geocoding API.
type GoogleGeocoder struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGoogleGeocoder creates a Google geocoder.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{
		apiKey:     apiKey,
		baseURL:    defaultGoogleBase,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// SetBaseURL overrides the API endpoint (useful for testing).
func (g *GoogleGeocoder) SetBaseURL(base string) {
	g.baseURL = base
}

type googleResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		AddressComponents []struct {
			LongName  string   `json:"long_name"`
			ShortName string   `json:"short_name"`
			Types     []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
}

// Geocode implements Geocoder.
func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (Result, error) {
	if strings.TrimSpace(address) == "" {
		return Result{}, ErrNoResult
	}
	q := url.Values{}
	q.Set("address", address)
	q.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("geo: create request: %w", err)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("geo: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("geo: google returned %d", resp.StatusCode)
	}
	var body googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, fmt.Errorf("geo: decode: %w", err)
	}
	if body.Status != "OK" || len(body.Results) == 0 {
		return Result{}, ErrNoResult
	}

	first := body.Results[0]
	out := Result{
		Point:            Point{Latitude: first.Geometry.Location.Lat, Longitude: first.Geometry.Location.Lng},
		FormattedAddress: first.FormattedAddress,
	}
	for _, c := range first.AddressComponents {
		for _, t := range c.Types {
			switch t {
			case "locality":
				out.City = c.LongName
			case "administrative_area_level_1":
				out.State = c.ShortName
			case "postal_code":
				out.PostalCode = c.LongName
			case "country":
				out.Country = c.ShortName
			}
		}
	}
	return out, nil
}

// NoopGeocoder never resolves an address. Used when no API key is set.
type NoopGeocoder struct{}

func (NoopGeocoder) Geocode(context.Context, string) (Result, error) {
	return Result{}, ErrNoResult
}
