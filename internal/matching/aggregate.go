// Package matching pairs lost reports with found reports. The Aggregator
// turns per-dimension similarities into one composite score and the Finder
// ranks candidates, runs auto-match and confirms manual matches.
package matching

import (
	"fmt"
	"math"

	"github.com/nirojbhetuwal/lostbuddy/internal/model"
	"github.com/nirojbhetuwal/lostbuddy/internal/similarity"
)

// Weights sets how much each dimension contributes to the composite score.
// They are expected to sum to 1; the aggregator does not renormalize.
type Weights struct {
	Title       float64 `json:"title" mapstructure:"title"`
	Description float64 `json:"description" mapstructure:"description"`
	Location    float64 `json:"location" mapstructure:"location"`
	Date        float64 `json:"date" mapstructure:"date"`
	Features    float64 `json:"features" mapstructure:"features"`
	Category    float64 `json:"category" mapstructure:"category"`
}

// DefaultWeights returns the standard weighting.
func DefaultWeights() Weights {
	return Weights{
		Title:       0.25,
		Description: 0.20,
		Location:    0.20,
		Date:        0.15,
		Features:    0.15,
		Category:    0.05,
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Title + w.Description + w.Location + w.Date + w.Features + w.Category
}

// Validate rejects negative or non-finite weights.
func (w Weights) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"title", w.Title},
		{"description", w.Description},
		{"location", w.Location},
		{"date", w.Date},
		{"features", w.Features},
		{"category", w.Category},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return fmt.Errorf("%w: %s weight must be a non-negative number, got %v", model.ErrValidation, f.name, f.v)
		}
	}
	return nil
}

// Breakdown holds each dimension's raw score as a percentage (0-100),
// independent of its weight.
type Breakdown struct {
	Title       int `json:"title"`
	Description int `json:"description"`
	Location    int `json:"location"`
	Date        int `json:"date"`
	Features    int `json:"features"`
	Category    int `json:"category"`
}

// Result is the outcome of scoring one pair.
type Result struct {
	Total     float64   `json:"total"`
	Breakdown Breakdown `json:"breakdown"`
}

// Aggregator scores lost/found pairs.
type Aggregator struct {
	weights   Weights
	dateRange int
}

// NewAggregator creates an aggregator. dateRangeDays <= 0 selects the
// default date window.
func NewAggregator(w Weights, dateRangeDays int) (*Aggregator, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if dateRangeDays <= 0 {
		dateRangeDays = similarity.DefaultDateRangeDays
	}
	return &Aggregator{weights: w, dateRange: dateRangeDays}, nil
}

// Weights returns the weights the aggregator was built with.
func (a *Aggregator) Weights() Weights {
	return a.weights
}

// Score compares two items. Items of the same type never match and score 0.
func (a *Aggregator) Score(x, y *model.Item) Result {
	if x == nil || y == nil || x.Type == y.Type {
		return Result{}
	}

	title := similarity.Text(x.Title, y.Title)
	desc := similarity.Text(x.Description, y.Description)
	loc := similarity.Location(x.Location, y.Location)
	date := similarity.Date(x.Date, y.Date, a.dateRange)
	feat := similarity.Features(x.Features, y.Features)
	cat := similarity.Category(x.Category, y.Category)

	w := a.weights
	total := title*w.Title +
		desc*w.Description +
		loc*w.Location +
		date*w.Date +
		feat*w.Features +
		cat*w.Category

	return Result{
		Total: math.Round(total*100) / 100,
		Breakdown: Breakdown{
			Title:       percent(title),
			Description: percent(desc),
			Location:    percent(loc),
			Date:        percent(date),
			Features:    percent(feat),
			Category:    percent(cat),
		},
	}
}

func percent(v float64) int {
	return int(math.Round(v * 100))
}
