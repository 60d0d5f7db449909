package scoring

import (
	"math"
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// band is one step of a numeric threshold ladder.
type band struct {
	Limit  float64
	Points int
	Label  string
}

// atLeast returns the first band whose Limit is <= v.
// Bands must be ordered highest limit first and end with -Inf.
func atLeast(v float64, bands []band) band {
	for _, b := range bands {
		if v >= b.Limit {
			return b
		}
	}
	return bands[len(bands)-1]
}

// atMost returns the first band whose Limit is >= v.
// Bands must be ordered lowest limit first and end with +Inf.
func atMost(v float64, bands []band) band {
	for _, b := range bands {
		if v <= b.Limit {
			return b
		}
	}
	return bands[len(bands)-1]
}

func clamp(score int) int {
	return max(0, min(100, score))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// displayName renders a categorical value for a detail string.
// A Caser is stateful, so each call builds its own.
func displayName(v string) string {
	if v == "" {
		return "Unspecified"
	}
	return cases.Title(language.English).String(v)
}

var (
	negInf = math.Inf(-1)
	posInf = math.Inf(1)
)
