package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"suumo-traveltime/db"
	"suumo-traveltime/models"
)

const (
	// DefaultBaseURL is the external route matrix endpoint.
	DefaultBaseURL = "https://routes.googleapis.com/distanceMatrix/v2:computeRouteMatrix"

	fieldMask            = "originIndex,destinationIndex,duration,condition"
	conditionRouteExists = "ROUTE_EXISTS"
)

var (
	// ErrRouteMatrix means the provider rejected a route matrix request or
	// returned a malformed response.
	ErrRouteMatrix = errors.New("route matrix request failed")
	// ErrBadDuration means a row carried a duration that is not of the
	// expected "<seconds>s" form.
	ErrBadDuration = errors.New("malformed duration value")
)

// CredentialSource supplies the provider credentials at request time.
type CredentialSource interface {
	Get(ctx context.Context) (*models.Credentials, error)
}

// RoutingService resolves travel durations from one criterion address to many
// buildings. The persistent duration cache is consulted per building; only
// uncached buildings are sent to the provider, batched into mode-limited
// chunks that are fetched concurrently.
type RoutingService struct {
	durations   db.DurationRepository
	credentials CredentialSource
	client      *http.Client
	baseURL     string
	maxParallel int

	// now is the clock used for departure times; tests substitute it.
	now func() time.Time
}

// NewRoutingService creates a RoutingService. baseURL may be empty to use the
// default endpoint; maxParallel bounds concurrent chunk requests.
func NewRoutingService(durations db.DurationRepository, credentials CredentialSource, baseURL string, timeout time.Duration, maxParallel int) *RoutingService {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if maxParallel <= 0 {
		maxParallel = 4
	}

	return &RoutingService{
		durations:   durations,
		credentials: credentials,
		client:      &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		maxParallel: maxParallel,
		now:         time.Now,
	}
}

// ResolveDurations returns travel durations in seconds, keyed by building
// address, for every building the provider knows a route to. Buildings with
// no route are simply absent from the result. Cached durations never touch
// the network. On a chunk failure the durations gathered by the other chunks
// are still returned alongside the first error encountered.
func (s *RoutingService) ResolveDurations(ctx context.Context, criterion models.Criterion, buildings []*models.Building) (map[string]int, error) {
	found := make(map[string]int, len(buildings))
	var pending []*models.Building

	for _, building := range buildings {
		seconds, err := s.durations.Find(ctx, criterion.Address, building.Address, criterion.Mode)
		switch {
		case err == nil:
			found[building.Address] = seconds
		case errors.Is(err, db.ErrNotFound):
			pending = append(pending, building)
		default:
			return found, fmt.Errorf("duration cache lookup: %w", err)
		}
	}

	if len(pending) == 0 {
		return found, nil
	}
	if criterion.Location == nil {
		return found, fmt.Errorf("criterion %q has no resolved location", criterion.Address)
	}

	creds, err := s.credentials.Get(ctx)
	if err != nil {
		return found, fmt.Errorf("loading routing credentials: %w", err)
	}

	departure := NextMondayMorning(s.now()).Format(time.RFC3339)
	limit := criterion.Mode.BatchLimit()

	var chunks [][]*models.Building
	for start := 0; start < len(pending); start += limit {
		end := start + limit
		if end > len(pending) {
			end = len(pending)
		}
		chunks = append(chunks, pending[start:end])
	}

	log.Printf("Resolving %d uncached durations for %q (%s) in %d request(s)",
		len(pending), criterion.Address, criterion.Mode, len(chunks))

	type chunkResult struct {
		durations map[string]int
		err       error
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, s.maxParallel)
	results := make(chan chunkResult, len(chunks))
	var wg sync.WaitGroup

	for _, chunk := range chunks {
		wg.Add(1)
		go func(chunk []*models.Building) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results <- chunkResult{err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			durations, err := s.fetchChunk(ctx, creds.APIKey, criterion, chunk, departure)
			results <- chunkResult{durations: durations, err: err}
		}(chunk)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var firstErr error
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
				cancel()
			}
			continue
		}
		for address, seconds := range res.durations {
			found[address] = seconds
		}
	}

	return found, firstErr
}

// fetchChunk issues one route matrix request for up to BatchLimit buildings.
// The whole chunk is applied or abandoned: cache writes only happen after the
// response parsed cleanly.
func (s *RoutingService) fetchChunk(ctx context.Context, apiKey string, criterion models.Criterion, chunk []*models.Building, departure string) (map[string]int, error) {
	body := matrixRequest{
		Origins:       []matrixWaypoint{newWaypoint(criterion.Location.Lat, criterion.Location.Lng)},
		Destinations:  make([]matrixWaypoint, 0, len(chunk)),
		TravelMode:    criterion.Mode.TravelMode(),
		DepartureTime: departure,
	}
	for _, building := range chunk {
		body.Destinations = append(body.Destinations, newWaypoint(building.Coordinate.Lat, building.Coordinate.Lng))
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("route matrix: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("route matrix: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("route matrix: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %s", ErrRouteMatrix, resp.Status)
	}

	var rows []matrixRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrRouteMatrix, err)
	}

	durations := make(map[string]int, len(rows))
	for _, row := range rows {
		if row.Condition != conditionRouteExists {
			// No route between the pair; the building stays unresolved for
			// this criterion rather than failing the chunk.
			continue
		}
		if row.DestinationIndex < 0 || row.DestinationIndex >= len(chunk) {
			return nil, fmt.Errorf("%w: destination index %d out of range", ErrRouteMatrix, row.DestinationIndex)
		}
		seconds, err := parseDurationSeconds(row.Duration)
		if err != nil {
			return nil, err
		}
		durations[chunk[row.DestinationIndex].Address] = seconds
	}

	for _, building := range chunk {
		seconds, ok := durations[building.Address]
		if !ok {
			continue
		}
		if err := s.durations.SaveIfAbsent(ctx, criterion.Address, building.Address, criterion.Mode, seconds); err != nil {
			return nil, fmt.Errorf("caching duration for %q: %w", building.Address, err)
		}
	}

	return durations, nil
}

// parseDurationSeconds parses the provider's "<seconds>s" duration strings.
func parseDurationSeconds(raw string) (int, error) {
	trimmed, ok := strings.CutSuffix(raw, "s")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrBadDuration, raw)
	}
	seconds, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadDuration, raw)
	}
	return int(seconds), nil
}

type matrixLatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type matrixLocation struct {
	LatLng matrixLatLng `json:"latLng"`
}

type matrixWaypointInner struct {
	Location matrixLocation `json:"location"`
}

type matrixWaypoint struct {
	Waypoint matrixWaypointInner `json:"waypoint"`
}

func newWaypoint(lat, lng float64) matrixWaypoint {
	return matrixWaypoint{
		Waypoint: matrixWaypointInner{
			Location: matrixLocation{
				LatLng: matrixLatLng{Latitude: lat, Longitude: lng},
			},
		},
	}
}

type matrixRequest struct {
	Origins       []matrixWaypoint `json:"origins"`
	Destinations  []matrixWaypoint `json:"destinations"`
	TravelMode    string           `json:"travelMode"`
	DepartureTime string           `json:"departureTime"`
}

type matrixRow struct {
	OriginIndex      int    `json:"originIndex"`
	DestinationIndex int    `json:"destinationIndex"`
	Duration         string `json:"duration"`
	Condition        string `json:"condition"`
}
