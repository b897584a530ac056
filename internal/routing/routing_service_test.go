package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suumo-traveltime/db"
	"suumo-traveltime/models"
	"suumo-traveltime/tests/testutils"
)

type staticCredentials struct{}

func (staticCredentials) Get(ctx context.Context) (*models.Credentials, error) {
	return &models.Credentials{AppID: "test-app", APIKey: "test-key"}, nil
}

// matrixServer is a fake route matrix provider that answers every destination
// with a duration derived from its index within the chunk.
type matrixServer struct {
	mu         sync.Mutex
	requests   int
	chunkSizes []int
	lastBody   matrixRequest

	// respond overrides the default per-request response when set.
	respond func(w http.ResponseWriter, body matrixRequest)
}

func (m *matrixServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Equal(t, fieldMask, r.Header.Get("X-Goog-FieldMask"))

		var body matrixRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		m.mu.Lock()
		m.requests++
		m.chunkSizes = append(m.chunkSizes, len(body.Destinations))
		m.lastBody = body
		respond := m.respond
		m.mu.Unlock()

		if respond != nil {
			respond(w, body)
			return
		}

		rows := make([]matrixRow, 0, len(body.Destinations))
		for i := range body.Destinations {
			rows = append(rows, matrixRow{
				DestinationIndex: i,
				Duration:         fmt.Sprintf("%ds", 600+i),
				Condition:        conditionRouteExists,
			})
		}
		json.NewEncoder(w).Encode(rows)
	}
}

func (m *matrixServer) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}

func (m *matrixServer) sortedChunkSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	sizes := append([]int(nil), m.chunkSizes...)
	sort.Sort(sort.Reverse(sort.IntSlice(sizes)))
	return sizes
}

func newTestService(t *testing.T, server *matrixServer) (*RoutingService, db.DurationRepository) {
	t.Helper()

	httpServer := httptest.NewServer(server.handler(t))
	t.Cleanup(httpServer.Close)

	factory := testutils.SetupTestRepositoryFactory(t)
	durations := factory.NewDurationRepository()
	service := NewRoutingService(durations, staticCredentials{}, httpServer.URL, 5*time.Second, 4)
	return service, durations
}

func locatedCriterion(mode models.TransportationMode, timeMinutes int) models.Criterion {
	criterion := *testutils.CreateTestCriterion(mode, timeMinutes)
	criterion.Location = &models.Coordinate{Address: criterion.Address, Lng: 139.7671, Lat: 35.6812}
	return criterion
}

func TestResolveDurations_DrivingChunksAt625(t *testing.T) {
	server := &matrixServer{}
	service, _ := newTestService(t, server)

	criterion := locatedCriterion(models.ModeDriving, 30)
	buildings := testutils.CreateTestBuildings(700)

	durations, err := service.ResolveDurations(context.Background(), criterion, buildings)
	require.NoError(t, err)

	assert.Equal(t, 2, server.requestCount(), "700 destinations at limit 625 take exactly 2 requests")
	assert.Equal(t, []int{625, 75}, server.sortedChunkSizes())
	assert.Len(t, durations, 700)
}

func TestResolveDurations_TransitChunksAt100(t *testing.T) {
	server := &matrixServer{}
	service, _ := newTestService(t, server)

	criterion := locatedCriterion(models.ModePublic, 45)
	buildings := testutils.CreateTestBuildings(150)

	durations, err := service.ResolveDurations(context.Background(), criterion, buildings)
	require.NoError(t, err)

	assert.Equal(t, 2, server.requestCount(), "150 destinations at limit 100 take exactly 2 requests")
	assert.Equal(t, []int{100, 50}, server.sortedChunkSizes())
	assert.Len(t, durations, 150)

	server.mu.Lock()
	assert.Equal(t, "TRANSIT", server.lastBody.TravelMode)
	server.mu.Unlock()
}

func TestResolveDurations_CachedDurationsSkipNetwork(t *testing.T) {
	server := &matrixServer{}
	service, durations := newTestService(t, server)
	ctx := context.Background()

	criterion := locatedCriterion(models.ModeCycling, 20)
	buildings := testutils.CreateTestBuildings(5)
	for i, building := range buildings {
		require.NoError(t, durations.SaveIfAbsent(ctx, criterion.Address, building.Address, criterion.Mode, 300+i))
	}

	resolved, err := service.ResolveDurations(ctx, criterion, buildings)
	require.NoError(t, err)
	assert.Len(t, resolved, 5)
	assert.Equal(t, 0, server.requestCount(), "fully cached resolution never touches the network")
}

func TestResolveDurations_SecondRunIsFullyCached(t *testing.T) {
	server := &matrixServer{}
	service, _ := newTestService(t, server)
	ctx := context.Background()

	criterion := locatedCriterion(models.ModeWalking, 15)
	buildings := testutils.CreateTestBuildings(10)

	first, err := service.ResolveDurations(ctx, criterion, buildings)
	require.NoError(t, err)
	requestsAfterFirst := server.requestCount()
	assert.Equal(t, 1, requestsAfterFirst)

	second, err := service.ResolveDurations(ctx, criterion, buildings)
	require.NoError(t, err)
	assert.Equal(t, first, second, "identical runs produce identical durations")
	assert.Equal(t, requestsAfterFirst, server.requestCount(), "second run issues zero requests")
}

func TestResolveDurations_OmitsRowsWithoutRoute(t *testing.T) {
	server := &matrixServer{}
	server.respond = func(w http.ResponseWriter, body matrixRequest) {
		rows := []matrixRow{
			{DestinationIndex: 0, Duration: "900s", Condition: conditionRouteExists},
			{DestinationIndex: 1, Condition: "ROUTE_NOT_FOUND"},
			{DestinationIndex: 2, Duration: "1100s", Condition: conditionRouteExists},
		}
		json.NewEncoder(w).Encode(rows)
	}
	service, _ := newTestService(t, server)

	criterion := locatedCriterion(models.ModeCycling, 20)
	buildings := testutils.CreateTestBuildings(3)

	durations, err := service.ResolveDurations(context.Background(), criterion, buildings)
	require.NoError(t, err, "a missing route is not an error")

	assert.Len(t, durations, 2)
	assert.Equal(t, 900, durations[buildings[0].Address])
	assert.Equal(t, 1100, durations[buildings[2].Address])
	_, present := durations[buildings[1].Address]
	assert.False(t, present)
}

func TestResolveDurations_ProviderErrorSurfaces(t *testing.T) {
	server := &matrixServer{}
	server.respond = func(w http.ResponseWriter, body matrixRequest) {
		http.Error(w, "backend unavailable", http.StatusBadGateway)
	}
	service, _ := newTestService(t, server)

	criterion := locatedCriterion(models.ModeDriving, 30)
	buildings := testutils.CreateTestBuildings(3)

	_, err := service.ResolveDurations(context.Background(), criterion, buildings)
	assert.ErrorIs(t, err, ErrRouteMatrix)
}

func TestResolveDurations_MalformedDuration(t *testing.T) {
	server := &matrixServer{}
	server.respond = func(w http.ResponseWriter, body matrixRequest) {
		rows := []matrixRow{
			{DestinationIndex: 0, Duration: "20 minutes", Condition: conditionRouteExists},
		}
		json.NewEncoder(w).Encode(rows)
	}
	service, durations := newTestService(t, server)

	criterion := locatedCriterion(models.ModeDriving, 30)
	buildings := testutils.CreateTestBuildings(1)

	_, err := service.ResolveDurations(context.Background(), criterion, buildings)
	assert.ErrorIs(t, err, ErrBadDuration)

	// The malformed chunk was abandoned without caching anything.
	_, cacheErr := durations.Find(context.Background(), criterion.Address, buildings[0].Address, criterion.Mode)
	assert.ErrorIs(t, cacheErr, db.ErrNotFound)
}

func TestResolveDurations_DepartureIsNextMondayMorning(t *testing.T) {
	server := &matrixServer{}
	service, _ := newTestService(t, server)

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	service.now = func() time.Time {
		return time.Date(2025, 1, 8, 15, 0, 0, 0, tokyo) // Wednesday
	}

	criterion := locatedCriterion(models.ModeCycling, 20)
	_, err = service.ResolveDurations(context.Background(), criterion, testutils.CreateTestBuildings(1))
	require.NoError(t, err)

	server.mu.Lock()
	defer server.mu.Unlock()
	assert.Equal(t, "2025-01-13T08:00:00+09:00", server.lastBody.DepartureTime)
	assert.Equal(t, "BICYCLE", server.lastBody.TravelMode)
	require.Len(t, server.lastBody.Origins, 1)
	assert.Equal(t, 35.6812, server.lastBody.Origins[0].Waypoint.Location.LatLng.Latitude)
}

func TestResolveDurations_UnresolvedCriterionLocation(t *testing.T) {
	server := &matrixServer{}
	service, _ := newTestService(t, server)

	criterion := *testutils.CreateTestCriterion(models.ModeCycling, 20) // no Location
	_, err := service.ResolveDurations(context.Background(), criterion, testutils.CreateTestBuildings(1))
	assert.Error(t, err)
	assert.Equal(t, 0, server.requestCount())
}

func TestParseDurationSeconds(t *testing.T) {
	seconds, err := parseDurationSeconds("1234s")
	require.NoError(t, err)
	assert.Equal(t, 1234, seconds)

	seconds, err = parseDurationSeconds("0s")
	require.NoError(t, err)
	assert.Equal(t, 0, seconds)

	_, err = parseDurationSeconds("1234")
	assert.ErrorIs(t, err, ErrBadDuration)

	_, err = parseDurationSeconds("s")
	assert.ErrorIs(t, err, ErrBadDuration)
}
