package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransportationMode_TravelMode(t *testing.T) {
	assert.Equal(t, "BICYCLE", ModeCycling.TravelMode())
	assert.Equal(t, "WALK", ModeWalking.TravelMode())
	assert.Equal(t, "DRIVE", ModeDriving.TravelMode())
	assert.Equal(t, "TRANSIT", ModePublic.TravelMode())
}

func TestTransportationMode_BatchLimit(t *testing.T) {
	assert.Equal(t, 100, ModePublic.BatchLimit())
	assert.Equal(t, 625, ModeCycling.BatchLimit())
	assert.Equal(t, 625, ModeWalking.BatchLimit())
	assert.Equal(t, 625, ModeDriving.BatchLimit())
}

func TestParseTransportationMode(t *testing.T) {
	mode, err := ParseTransportationMode("public")
	assert.NoError(t, err)
	assert.Equal(t, ModePublic, mode)

	_, err = ParseTransportationMode("teleport")
	assert.Error(t, err)
}

func TestCriterion_Validate(t *testing.T) {
	valid := Criterion{Mode: ModeCycling, Address: "Shibuya Station", TimeMinutes: 20}
	assert.NoError(t, valid.Validate())

	noAddress := Criterion{Mode: ModeCycling, TimeMinutes: 20}
	assert.Error(t, noAddress.Validate())

	zeroBudget := Criterion{Mode: ModeCycling, Address: "Shibuya Station", TimeMinutes: 0}
	assert.Error(t, zeroBudget.Validate())

	negativeBudget := Criterion{Mode: ModeCycling, Address: "Shibuya Station", TimeMinutes: -5}
	assert.Error(t, negativeBudget.Validate())

	badMode := Criterion{Mode: "hovercraft", Address: "Shibuya Station", TimeMinutes: 20}
	assert.Error(t, badMode.Validate())
}

func TestCriterion_BudgetSeconds(t *testing.T) {
	c := Criterion{TimeMinutes: 20}
	assert.Equal(t, 1200, c.BudgetSeconds())
}

func TestRandomColor(t *testing.T) {
	color := RandomColor()
	assert.Len(t, color, 7)
	assert.Equal(t, byte('#'), color[0])
}
