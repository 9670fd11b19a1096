package similarity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nirojbhetuwal/lostbuddy/internal/model"
)

func TestTextIdentical(t *testing.T) {
	for _, s := range []string{"black wallet", "The", "a", "iPhone 13 Pro, blue case", "  Red   Umbrella "} {
		assert.Equal(t, 1.0, Text(s, s), "Text(%q, %q)", s, s)
	}
	assert.Equal(t, 1.0, Text("Red Umbrella", "red   umbrella"))
}

func TestTextSameTermsScoreOne(t *testing.T) {
	assert.Equal(t, 1.0, Text("Black wallet.", "black wallet"))
	assert.Equal(t, 1.0, Text("The black wallet", "black wallet!"))
	assert.Equal(t, 1.0, Text("running shoes", "runs shoe"))
}

func TestTextEmpty(t *testing.T) {
	assert.Zero(t, Text("", "black wallet"))
	assert.Zero(t, Text("black wallet", ""))
	assert.Zero(t, Text("   ", "   "))
}

func TestTextOnlyStopwords(t *testing.T) {
	assert.Zero(t, Text("the and of", "black wallet"))
}

func TestTextPartialOverlap(t *testing.T) {
	score := Text("black wallet", "black leather wallet")
	assert.Greater(t, score, 0.9)
	assert.LessOrEqual(t, score, 1.0)

	assert.Zero(t, Text("black wallet", "blue umbrella"))

	one := Text("lost wallet", "wallet found")
	assert.Greater(t, one, 0.0)
	assert.Less(t, one, score)
}

func TestTextStemming(t *testing.T) {
	assert.Greater(t, Text("running shoes", "runs shoe"), 0.9)
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"black", "leather", "wallet"}, Terms("The black, leather wallet!"))
}

func TestLocation(t *testing.T) {
	assert.Equal(t, 1.0, Location("Central Park", "central park "))
	assert.Zero(t, Location("", "Central Park"))
	assert.InDelta(t, 2.0/3.0, Location("Central Park north", "central park"), 1e-9)
	// Tokens of length <= 2 never count.
	assert.Zero(t, Location("by 5th st", "by st"))
	assert.Zero(t, Location("library", "stadium"))
}

func TestDate(t *testing.T) {
	d := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 1.0, Date(d, d, DefaultDateRangeDays))
	assert.InDelta(t, 1-1.0/7, Date(d, d.AddDate(0, 0, 1), 7), 1e-9)
	assert.InDelta(t, 1-1.0/7, Date(d.AddDate(0, 0, 1), d, 7), 1e-9)
	assert.Zero(t, Date(d, d.AddDate(0, 0, 7), 7))
	assert.Zero(t, Date(d, d.AddDate(0, 0, 8), 7))
	assert.Zero(t, Date(time.Time{}, d, 7))

	// Partial days round up.
	assert.InDelta(t, 1-1.0/7, Date(d, d.Add(3*time.Hour), 7), 1e-9)
	// Non-positive range falls back to the default.
	assert.InDelta(t, Date(d, d.AddDate(0, 0, 2), 7), Date(d, d.AddDate(0, 0, 2), 0), 1e-9)
}

func TestCategory(t *testing.T) {
	assert.Equal(t, 1.0, Category("bags", "bags"))
	assert.Equal(t, 0.5, Category("keys", "accessories"))
	assert.Equal(t, 0.5, Category("accessories", "keys"))
	assert.Equal(t, 0.5, Category("documents", "books"))
	assert.Zero(t, Category("pets", "electronics"))
	assert.Zero(t, Category("", "pets"))
}

func TestCategorySymmetric(t *testing.T) {
	for _, a := range model.Categories {
		for _, b := range model.Categories {
			assert.Equal(t, Category(a, b), Category(b, a), "%s/%s", a, b)
		}
	}
}

func TestFeatures(t *testing.T) {
	tests := []struct {
		name string
		a, b *model.Features
		want float64
	}{
		{"nil side", nil, &model.Features{Color: "red"}, 0},
		{"no shared dimension", &model.Features{Color: "red"}, &model.Features{Brand: "Apple"}, 0},
		{"exact", &model.Features{Color: "Red", Brand: "Apple"}, &model.Features{Color: "red", Brand: "apple"}, 1},
		{"partial color", &model.Features{Color: "dark red"}, &model.Features{Color: "red"}, 0.5},
		{"partial brand", &model.Features{Brand: "Samsung Galaxy"}, &model.Features{Brand: "samsung"}, 0.7},
		{"partial model", &model.Features{Model: "iPhone 13 Pro"}, &model.Features{Model: "iphone 13"}, 0.8},
		{"size abbreviation", &model.Features{Size: "M"}, &model.Features{Size: "medium"}, 1},
		{"partial size", &model.Features{Size: "xl"}, &model.Features{Size: "large"}, 0.6},
		{"mixed", &model.Features{Color: "black", Brand: "Nike"}, &model.Features{Color: "black", Brand: "Adidas"}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Features(tt.a, tt.b), 1e-9)
		})
	}
}

func TestScoreBounds(t *testing.T) {
	texts := []string{"", "a", "black wallet", "wallet wallet wallet wallet black black black", "keys on a red ring"}
	for _, a := range texts {
		for _, b := range texts {
			s := Text(a, b)
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
			l := Location(a, b)
			assert.GreaterOrEqual(t, l, 0.0)
			assert.LessOrEqual(t, l, 1.0)
		}
	}
}
