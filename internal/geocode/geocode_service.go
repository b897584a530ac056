package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"suumo-traveltime/db"
	"suumo-traveltime/models"
)

const (
	// DefaultBaseURL is the external geocoding endpoint.
	DefaultBaseURL = "https://geocode.googleapis.com/v4beta/geocode/address"

	fieldMask = "results.location"
)

// ErrNoResult means the provider returned no candidate for the address.
var ErrNoResult = errors.New("no geocoding result")

// CredentialSource supplies the provider credentials at request time, so a
// key saved mid-session is picked up without a restart.
type CredentialSource interface {
	Get(ctx context.Context) (*models.Credentials, error)
}

// GeocodeService resolves free-text addresses to coordinates. The persistent
// coordinate cache is consulted first; the external provider is only called
// for addresses never seen before, at most once each.
type GeocodeService struct {
	coordinates db.CoordinateRepository
	credentials CredentialSource
	client      *http.Client
	limiter     *rate.Limiter
	baseURL     string
}

// NewGeocodeService creates a GeocodeService. baseURL may be empty to use the
// default endpoint; requestsPerSec bounds outbound geocoding calls.
func NewGeocodeService(coordinates db.CoordinateRepository, credentials CredentialSource, baseURL string, timeout time.Duration, requestsPerSec int) *GeocodeService {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if requestsPerSec <= 0 {
		requestsPerSec = 10
	}

	return &GeocodeService{
		coordinates: coordinates,
		credentials: credentials,
		client:      &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Limit(requestsPerSec), 1),
		baseURL:     baseURL,
	}
}

// Resolve returns the coordinates for an address. On a cache hit no network
// call is made. On a miss the provider's first candidate is cached with
// first-write-wins semantics and returned.
func (s *GeocodeService) Resolve(ctx context.Context, address string) (models.Coordinate, error) {
	cached, err := s.coordinates.FindByAddress(ctx, address)
	if err == nil {
		return *cached, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return models.Coordinate{}, fmt.Errorf("coordinate cache lookup for %q: %w", address, err)
	}

	coord, err := s.fetch(ctx, address)
	if err != nil {
		return models.Coordinate{}, err
	}

	if err := s.coordinates.SaveIfAbsent(ctx, &coord); err != nil {
		return models.Coordinate{}, fmt.Errorf("caching coordinates for %q: %w", address, err)
	}
	return coord, nil
}

func (s *GeocodeService) fetch(ctx context.Context, address string) (models.Coordinate, error) {
	creds, err := s.credentials.Get(ctx)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("loading geocoding credentials: %w", err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return models.Coordinate{}, fmt.Errorf("geocode %q: %w", address, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL, nil)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("geocode %q: %w", address, err)
	}
	q := req.URL.Query()
	q.Set("addressQuery", address)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("X-Goog-Api-Key", creds.APIKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := s.client.Do(req)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("geocode %q: %w", address, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Coordinate{}, fmt.Errorf("geocode %q: unexpected status %s", address, resp.Status)
	}

	var payload struct {
		Results []struct {
			Location struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"location"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.Coordinate{}, fmt.Errorf("geocode %q: decoding response: %w", address, err)
	}
	if len(payload.Results) == 0 {
		return models.Coordinate{}, fmt.Errorf("geocode %q: %w", address, ErrNoResult)
	}

	first := payload.Results[0].Location
	log.Printf("Geocoded %q -> (%f, %f)", address, first.Longitude, first.Latitude)
	return models.Coordinate{Address: address, Lng: first.Longitude, Lat: first.Latitude}, nil
}
