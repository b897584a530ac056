package models

import (
	"fmt"
	"math/rand"
)

// TransportationMode is a supported travel mode for reachability criteria.
type TransportationMode string

const (
	ModeCycling TransportationMode = "cycling"
	ModeWalking TransportationMode = "walking"
	ModeDriving TransportationMode = "driving"
	ModePublic  TransportationMode = "public"
)

// ParseTransportationMode validates a raw mode string coming from the API or
// the database.
func ParseTransportationMode(raw string) (TransportationMode, error) {
	switch mode := TransportationMode(raw); mode {
	case ModeCycling, ModeWalking, ModeDriving, ModePublic:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown transportation mode %q", raw)
	}
}

// TravelMode maps the mode to the routing provider's vocabulary.
func (m TransportationMode) TravelMode() string {
	switch m {
	case ModeCycling:
		return "BICYCLE"
	case ModeWalking:
		return "WALK"
	case ModeDriving:
		return "DRIVE"
	case ModePublic:
		return "TRANSIT"
	default:
		return ""
	}
}

// BatchLimit is the provider-imposed ceiling of destinations per route matrix
// request. Transit requests are capped at 100 destinations, every other mode
// at 625. These are not tunable.
func (m TransportationMode) BatchLimit() int {
	if m == ModePublic {
		return 100
	}
	return 625
}

// Criterion is a user-defined reachability requirement: a reference address
// that must be reachable within TimeMinutes using Mode. Location is resolved
// by the geocoder on every run and never persisted.
type Criterion struct {
	ID          string             `json:"id"`
	Mode        TransportationMode `json:"mode"`
	Address     string             `json:"address"`
	TimeMinutes int                `json:"time_minutes"`
	Color       string             `json:"color"`
	Location    *Coordinate        `json:"location,omitempty"`
}

// BudgetSeconds is the criterion's time budget in seconds.
func (c Criterion) BudgetSeconds() int {
	return c.TimeMinutes * 60
}

// Validate checks the invariants enforced on create and update.
func (c *Criterion) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("criterion address must not be empty")
	}
	if c.TimeMinutes <= 0 {
		return fmt.Errorf("criterion time budget must be positive, got %d", c.TimeMinutes)
	}
	if _, err := ParseTransportationMode(string(c.Mode)); err != nil {
		return err
	}
	return nil
}

// RandomColor returns a random display color as a #RRGGBB hex string, used
// when the user does not pick one.
func RandomColor() string {
	return fmt.Sprintf("#%02X%02X%02X", rand.Intn(256), rand.Intn(256), rand.Intn(256))
}
