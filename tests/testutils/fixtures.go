package testutils

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"suumo-traveltime/db"
	"suumo-traveltime/models"
)

func CreateTestCriterion(mode models.TransportationMode, timeMinutes int) *models.Criterion {
	return &models.Criterion{
		ID:          uuid.New().String(),
		Mode:        mode,
		Address:     "1 Chome Kanda Jinbocho, Chiyoda City",
		TimeMinutes: timeMinutes,
		Color:       "#36C98E",
	}
}

func CreateTestBuilding(address string, lng, lat float64) *models.Building {
	return &models.Building{
		Name:    "Test Residence " + address,
		Address: address,
		Coordinate: models.Coordinate{
			Address: address,
			Lng:     lng,
			Lat:     lat,
		},
		Reachability: make(map[string]models.Reachability),
		Apartments: []models.Apartment{
			{
				Rent:      "8.2万円",
				Kind:      "1K",
				Area:      "25.5m2",
				URL:       "https://suumo.jp/chintai/test_" + address,
				ListingID: 100012345,
			},
		},
	}
}

// CreateTestBuildings returns n buildings with distinct addresses spread
// around a base coordinate.
func CreateTestBuildings(n int) []*models.Building {
	buildings := make([]*models.Building, 0, n)
	for i := 0; i < n; i++ {
		address := fmt.Sprintf("%d-1 Test District, Test City", i+1)
		buildings = append(buildings, CreateTestBuilding(address, 139.76+float64(i)*0.001, 35.68+float64(i)*0.001))
	}
	return buildings
}

// SaveTestCredentials stores placeholder provider credentials.
func SaveTestCredentials(t *testing.T, repo db.CredentialsRepository) *models.Credentials {
	t.Helper()

	creds := &models.Credentials{AppID: "test-app", APIKey: "test-key"}
	require.NoError(t, repo.Save(context.Background(), creds))
	return creds
}
