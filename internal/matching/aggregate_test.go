package matching

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nirojbhetuwal/lostbuddy/internal/model"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func newTestAggregator(t *testing.T) *Aggregator {
	t.Helper()
	agg, err := NewAggregator(DefaultWeights(), 0)
	require.NoError(t, err)
	return agg
}

func TestDefaultWeightsSumToOne(t *testing.T) {
	assert.InDelta(t, 1.0, DefaultWeights().Sum(), 1e-9)
	assert.NoError(t, DefaultWeights().Validate())
}

func TestWeightsValidate(t *testing.T) {
	tests := []struct {
		name string
		w    Weights
	}{
		{"negative", Weights{Title: -0.1, Description: 1.1}},
		{"nan", Weights{Title: math.NaN()}},
		{"inf", Weights{Date: math.Inf(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.w.Validate(), model.ErrValidation)
			_, err := NewAggregator(tt.w, 7)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}

	// Weights that do not sum to 1 are the caller's business.
	_, err := NewAggregator(Weights{Title: 0.5}, 7)
	assert.NoError(t, err)
}

func TestScoreSameTypeIsZero(t *testing.T) {
	agg := newTestAggregator(t)
	for _, typ := range []string{model.ItemTypeLost, model.ItemTypeFound} {
		a := &model.Item{Type: typ, Category: "bags", Title: "red backpack", Location: "Library", Date: day(3)}
		b := *a
		b.ID = "other"

		res := agg.Score(a, &b)
		assert.Zero(t, res.Total)
		assert.Equal(t, Breakdown{}, res.Breakdown)
	}
}

func TestScoreWalletScenario(t *testing.T) {
	agg := newTestAggregator(t)
	lost := &model.Item{
		Type:     model.ItemTypeLost,
		Category: "accessories",
		Title:    "black wallet",
		Location: "Central Park",
		Date:     day(10),
	}
	found := &model.Item{
		Type:     model.ItemTypeFound,
		Category: "accessories",
		Title:    "black leather wallet",
		Location: "Central Park",
		Date:     day(11),
	}

	res := agg.Score(lost, found)
	assert.GreaterOrEqual(t, res.Total, 0.6)
	assert.Equal(t, 0.62, res.Total)
	assert.Equal(t, 100, res.Breakdown.Location)
	assert.Equal(t, 100, res.Breakdown.Category)
	assert.Equal(t, 86, res.Breakdown.Date)
	assert.Equal(t, 96, res.Breakdown.Title)
	assert.Zero(t, res.Breakdown.Description)
	assert.Zero(t, res.Breakdown.Features)

	// Order of arguments does not matter.
	assert.Equal(t, res, agg.Score(found, lost))
}

func TestScoreIdenticalPair(t *testing.T) {
	agg := newTestAggregator(t)
	lost := &model.Item{
		Type:        model.ItemTypeLost,
		Category:    "electronics",
		Title:       "iPhone 13",
		Description: "blue case with a cracked screen protector",
		Location:    "Main Station",
		Date:        day(5),
		Features:    &model.Features{Color: "blue", Brand: "Apple", Model: "13"},
	}
	found := *lost
	found.Type = model.ItemTypeFound

	res := agg.Score(lost, &found)
	assert.Equal(t, 1.0, res.Total)
	assert.Equal(t, Breakdown{100, 100, 100, 100, 100, 100}, res.Breakdown)
}

func TestScoreBoundsWithDefaultWeights(t *testing.T) {
	agg := newTestAggregator(t)
	items := []*model.Item{
		{Type: model.ItemTypeLost},
		{Type: model.ItemTypeLost, Category: "keys", Title: "keys", Location: "gym", Date: day(1)},
		{Type: model.ItemTypeLost, Category: "pets", Title: "grey cat", Description: "grey cat grey cat", Location: "Elm Street park", Date: day(20)},
	}
	others := []*model.Item{
		{Type: model.ItemTypeFound},
		{Type: model.ItemTypeFound, Category: "accessories", Title: "keys keys keys", Location: "gym", Date: day(2)},
		{Type: model.ItemTypeFound, Category: "pets", Title: "cat", Description: "cat", Location: "park", Date: day(19), Features: &model.Features{Color: "grey"}},
	}
	for _, a := range items {
		for _, b := range others {
			res := agg.Score(a, b)
			assert.GreaterOrEqual(t, res.Total, 0.0)
			assert.LessOrEqual(t, res.Total, 1.0)
		}
	}
}

func TestScoreNil(t *testing.T) {
	agg := newTestAggregator(t)
	assert.Equal(t, Result{}, agg.Score(nil, &model.Item{Type: model.ItemTypeFound}))
}
