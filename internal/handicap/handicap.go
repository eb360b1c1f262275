// Package handicap turns a player's handicap index into strokes received on
// each hole of a course, using the course's stroke allocation ranks.
package handicap

import (
	"cmp"
	"math"

	"github.com/trentd187/golf-wagers/internal/domain"
)

const (
	standardSlope = 113

	MinIndex      = -5.0
	MaxIndex      = 54.0
	MinSlope      = 55
	MaxSlope      = 155
	FullAllowance = 100
)

// CourseHandicap is a handicap index scaled to one tee.
type CourseHandicap struct {
	Strokes   int     // rounded half away from zero
	Remainder float64 // unrounded value minus Strokes, within [-0.5, 0.5]
}

// Compare orders course handicaps low to high. Equal stroke counts are ordered by
// remainder so the truly lower player is the one that gets the extra stroke.
func Compare(a, b CourseHandicap) int {
	if c := cmp.Compare(a.Strokes, b.Strokes); c != 0 {
		return c
	}
	return cmp.Compare(a.Remainder, b.Remainder)
}

// Compute scales index to the tee: index × slope/113 + (rating − par), then
// applies allowancePercent (1..100) before rounding.
func Compute(index float64, tee domain.Tee, allowancePercent int) (CourseHandicap, error) {
	if index < MinIndex || index > MaxIndex {
		return CourseHandicap{}, domain.NewConfigError("player.handicap_index", "%.1f outside %.0f..%.0f", index, MinIndex, MaxIndex)
	}
	if tee.Slope < MinSlope || tee.Slope > MaxSlope {
		return CourseHandicap{}, domain.NewConfigError("tee.slope", "%d outside %d..%d", tee.Slope, MinSlope, MaxSlope)
	}
	if tee.Rating <= 0 || tee.Par <= 0 {
		return CourseHandicap{}, domain.NewConfigError("tee.rating", "rating and par are required")
	}
	if allowancePercent < 1 || allowancePercent > FullAllowance {
		return CourseHandicap{}, domain.NewConfigError("allowance_percent", "%d outside 1..100", allowancePercent)
	}

	raw := index*float64(tee.Slope)/standardSlope + (tee.Rating - float64(tee.Par))
	raw = raw * float64(allowancePercent) / FullAllowance
	strokes := int(math.Round(raw))
	return CourseHandicap{Strokes: strokes, Remainder: raw - float64(strokes)}, nil
}
