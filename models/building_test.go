package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilding_MarkReachable(t *testing.T) {
	building := Building{Name: "Maison Test", Address: "1-2-3 Test"}
	criterion := Criterion{ID: "c1", Mode: ModeCycling, Address: "Office", TimeMinutes: 20}

	assert.False(t, building.ReachableUnder("c1"))

	building.MarkReachable(criterion, 900)

	assert.True(t, building.ReachableUnder("c1"))
	assert.Equal(t, 900, building.Reachability["c1"].Seconds)
	assert.Equal(t, criterion, building.Reachability["c1"].Criterion)
}

func TestBuilding_FullyReachable(t *testing.T) {
	c1 := &Criterion{ID: "c1", Mode: ModeCycling, Address: "Office", TimeMinutes: 20}
	c2 := &Criterion{ID: "c2", Mode: ModePublic, Address: "Gym", TimeMinutes: 30}
	criteria := []*Criterion{c1, c2}

	building := Building{Address: "1-2-3 Test"}
	assert.False(t, building.FullyReachable(criteria))

	building.MarkReachable(*c1, 600)
	assert.False(t, building.FullyReachable(criteria), "one admitted criterion is not enough")

	building.MarkReachable(*c2, 1500)
	assert.True(t, building.FullyReachable(criteria))

	// An empty criteria set admits nothing.
	assert.False(t, building.FullyReachable(nil))
}
