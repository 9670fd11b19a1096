package similarity

import (
	"math"
	"strings"
	"time"

	"github.com/nirojbhetuwal/lostbuddy/internal/model"
)

// DefaultDateRangeDays is the window over which date similarity decays to 0.
const DefaultDateRangeDays = 7

// Location is 1 for a case-insensitive exact match, otherwise the share of
// tokens longer than two characters that both locations have in common.
func Location(a, b string) float64 {
	la := strings.ToLower(strings.TrimSpace(a))
	lb := strings.ToLower(strings.TrimSpace(b))
	if la == "" || lb == "" {
		return 0
	}
	if la == lb {
		return 1
	}

	wa, wb := strings.Fields(la), strings.Fields(lb)
	inB := make(map[string]bool, len(wb))
	for _, w := range wb {
		inB[w] = true
	}

	common := 0
	for _, w := range wa {
		if len(w) > 2 && inB[w] {
			common++
		}
	}
	return clamp(float64(common) / float64(max(len(wa), len(wb))))
}

// Date decays linearly from 1 (same day) to 0 at rangeDays apart. Partial
// days round up. A non-positive rangeDays selects DefaultDateRangeDays.
func Date(a, b time.Time, rangeDays int) float64 {
	if a.IsZero() || b.IsZero() {
		return 0
	}
	if rangeDays <= 0 {
		rangeDays = DefaultDateRangeDays
	}

	days := math.Ceil(math.Abs(a.Sub(b).Hours()) / 24)
	if days > float64(rangeDays) {
		return 0
	}
	return 1 - days/float64(rangeDays)
}

// relatedCategories is symmetric; see Category.
var relatedCategories = map[string][]string{
	"clothing":    {"accessories", "bags"},
	"accessories": {"clothing", "bags", "jewelry", "keys"},
	"bags":        {"clothing", "accessories"},
	"jewelry":     {"accessories"},
	"keys":        {"accessories"},
	"books":       {"documents"},
	"documents":   {"books"},
}

// Category is 1 for the same category, 0.5 for related ones, else 0.
func Category(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	for _, c := range relatedCategories[a] {
		if c == b {
			return 0.5
		}
	}
	return 0
}

// Partial credit for one value containing the other.
const (
	partialColor = 0.5
	partialBrand = 0.7
	partialModel = 0.8
	partialSize  = 0.6
)

var sizeNames = map[string]string{
	"xs": "extra small",
	"s":  "small",
	"m":  "medium",
	"l":  "large",
	"xl": "extra large",
}

// Features averages the per-attribute scores over the attributes that both
// items describe.
func Features(a, b *model.Features) float64 {
	if a == nil || b == nil {
		return 0
	}

	var score float64
	var compared int

	add := func(x, y string, partial float64, norm func(string) string) {
		x = strings.ToLower(strings.TrimSpace(x))
		y = strings.ToLower(strings.TrimSpace(y))
		if x == "" || y == "" {
			return
		}
		compared++
		if norm != nil {
			x, y = norm(x), norm(y)
		}
		switch {
		case x == y:
			score++
		case strings.Contains(x, y) || strings.Contains(y, x):
			score += partial
		}
	}

	add(a.Color, b.Color, partialColor, nil)
	add(a.Brand, b.Brand, partialBrand, nil)
	add(a.Model, b.Model, partialModel, nil)
	add(a.Size, b.Size, partialSize, normalizeSize)

	if compared == 0 {
		return 0
	}
	return score / float64(compared)
}

func normalizeSize(s string) string {
	if name, ok := sizeNames[s]; ok {
		return name
	}
	return s
}
