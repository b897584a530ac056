package models

// Coordinate is a geocoded location for an address. Coordinates are cached
// indefinitely: once an address has been resolved it is never re-geocoded.
type Coordinate struct {
	Address string  `json:"address"`
	Lng     float64 `json:"lng"`
	Lat     float64 `json:"lat"`
}

// Apartment is a single listed unit inside a building. The engine carries
// apartments through unchanged; all fields hold the site's display strings.
type Apartment struct {
	Rent         string `json:"rent"`
	Fees         string `json:"fees,omitempty"`
	Deposit      string `json:"deposit,omitempty"`
	KeyMoney     string `json:"key_money,omitempty"`
	Kind         string `json:"kind"`
	Area         string `json:"area"`
	PlanImageURL string `json:"plan_image_url"`
	URL          string `json:"url"`
	ListingID    uint64 `json:"listing_id"`
}

// Reachability records that a building was admitted under a criterion,
// together with the computed travel duration.
type Reachability struct {
	Criterion Criterion `json:"criterion"`
	Seconds   int       `json:"seconds"`
}

// Building is one scraped building with its listed apartments. Reachability
// is keyed by criterion ID so that reordering or deleting criteria between
// runs cannot reinterpret old verdicts. Buildings live for a single run; only
// their coordinates are persisted.
type Building struct {
	Name         string                  `json:"name"`
	Address      string                  `json:"address"`
	Coordinate   Coordinate              `json:"coordinate"`
	Reachability map[string]Reachability `json:"reachability"`
	Apartments   []Apartment             `json:"apartments"`
}

// MarkReachable records an admitted (criterion, duration) pair.
func (b *Building) MarkReachable(c Criterion, seconds int) {
	if b.Reachability == nil {
		b.Reachability = make(map[string]Reachability)
	}
	b.Reachability[c.ID] = Reachability{Criterion: c, Seconds: seconds}
}

// ReachableUnder reports whether the building was admitted under the given
// criterion.
func (b *Building) ReachableUnder(criterionID string) bool {
	_, ok := b.Reachability[criterionID]
	return ok
}

// FullyReachable reports whether the building was admitted under every
// criterion in the active set. Buildings with partial or empty reachability
// are excluded from the default view.
func (b *Building) FullyReachable(criteria []*Criterion) bool {
	for _, c := range criteria {
		if !b.ReachableUnder(c.ID) {
			return false
		}
	}
	return len(criteria) > 0
}
