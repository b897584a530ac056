package resolve

import (
	"context"
	"fmt"
	"log"

	"suumo-traveltime/models"
)

// Geocoder resolves an address to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (models.Coordinate, error)
}

// DurationResolver resolves travel durations from a criterion to buildings,
// keyed by building address.
type DurationResolver interface {
	ResolveDurations(ctx context.Context, criterion models.Criterion, buildings []*models.Building) (map[string]int, error)
}

// Admit decides whether a travel duration satisfies a criterion's time
// budget. The boundary is inclusive: a duration of exactly the budget passes.
func Admit(criterion models.Criterion, seconds int) bool {
	return seconds <= criterion.BudgetSeconds()
}

// ResolveService drives reachability resolution: for each criterion, in the
// order the user defined them, it geocodes the criterion's address, resolves
// durations to every building without a verdict yet, and records admissions.
type ResolveService struct {
	geocoder Geocoder
	routing  DurationResolver
}

// NewResolveService creates a ResolveService.
func NewResolveService(geocoder Geocoder, routing DurationResolver) *ResolveService {
	return &ResolveService{geocoder: geocoder, routing: routing}
}

// Resolve populates the buildings' reachability mappings in place. Criteria
// locations are filled in as a side effect.
//
// The run fails fast: the first criterion whose resolution errors stops the
// run, after applying whatever durations were already fetched. Verdicts
// admitted before the failure remain valid; the caller decides whether a
// degraded view is acceptable.
func (s *ResolveService) Resolve(ctx context.Context, criteria []*models.Criterion, buildings []*models.Building) error {
	for _, criterion := range criteria {
		coord, err := s.geocoder.Resolve(ctx, criterion.Address)
		if err != nil {
			return fmt.Errorf("geocoding criterion %q: %w", criterion.Address, err)
		}
		criterion.Location = &coord

		var pending []*models.Building
		for _, building := range buildings {
			if !building.ReachableUnder(criterion.ID) {
				pending = append(pending, building)
			}
		}

		durations, resolveErr := s.routing.ResolveDurations(ctx, *criterion, pending)

		admitted := 0
		for _, building := range pending {
			seconds, ok := durations[building.Address]
			if !ok {
				continue
			}
			if Admit(*criterion, seconds) {
				building.MarkReachable(*criterion, seconds)
				admitted++
			}
		}
		log.Printf("Criterion %q (%s, %d min): %d of %d buildings reachable",
			criterion.Address, criterion.Mode, criterion.TimeMinutes, admitted, len(pending))

		if resolveErr != nil {
			return fmt.Errorf("resolving durations for criterion %q: %w", criterion.Address, resolveErr)
		}
	}
	return nil
}
