package handicap

import (
	"github.com/trentd187/golf-wagers/internal/domain"
)

// Allocation is the strokes a player receives on every hole of one course.
type Allocation struct {
	CourseHandicap int
	strokes        map[int]int // hole number -> strokes (negative for plus players)
}

// Strokes returns the strokes received on a hole; 0 for an unknown hole.
func (a Allocation) Strokes(hole int) int {
	return a.strokes[hole]
}

// Total sums strokes over every hole. Always equal to CourseHandicap.
func (a Allocation) Total() int {
	total := 0
	for _, s := range a.strokes {
		total += s
	}
	return total
}

// ValidateRanks checks that every hole carries a stroke allocation rank and
// that the ranks are exactly 1..n.
func ValidateRanks(holes []domain.CourseHole) error {
	n := len(holes)
	if n == 0 {
		return domain.NewConfigError("course.holes", "no holes")
	}
	seen := make(map[int]int, n)
	for _, h := range holes {
		if h.Rank == 0 {
			return domain.NewConfigError("course.holes.rank", "hole %d has no stroke allocation rank", h.Number)
		}
		if h.Rank < 1 || h.Rank > n {
			return domain.NewConfigError("course.holes.rank", "hole %d rank %d outside 1..%d", h.Number, h.Rank, n)
		}
		if other, dup := seen[h.Rank]; dup {
			return domain.NewConfigError("course.holes.rank", "holes %d and %d share rank %d", other, h.Number, h.Rank)
		}
		seen[h.Rank] = h.Number
	}
	return nil
}

// Allocate spreads a course handicap over the holes by rank.
//
// A positive handicap h gives every hole h/n strokes and one more on the holes
// ranked 1..(h mod n). A plus handicap gives strokes back, starting on the
// easiest holes.
func Allocate(courseHandicap int, holes []domain.CourseHole) (Allocation, error) {
	if err := ValidateRanks(holes); err != nil {
		return Allocation{}, err
	}
	n := len(holes)

	abs, sign := courseHandicap, 1
	if abs < 0 {
		abs, sign = -abs, -1
	}
	base, extra := abs/n, abs%n

	strokes := make(map[int]int, n)
	for _, h := range holes {
		s := base
		if sign > 0 && h.Rank <= extra {
			s++
		}
		if sign < 0 && h.Rank > n-extra {
			s++
		}
		strokes[h.Number] = sign * s
	}
	return Allocation{CourseHandicap: courseHandicap, strokes: strokes}, nil
}

// NetScore is gross minus strokes received.
func NetScore(gross int, a Allocation, hole int) int {
	return gross - a.Strokes(hole)
}

// StrokesReceived is the single-call form: index → course handicap → strokes on one hole.
func StrokesReceived(player domain.Player, hole int, course domain.Course, allowancePercent int) (int, error) {
	a, err := NewAllocator(course, allowancePercent, false).allocateOne(player)
	if err != nil {
		return 0, err
	}
	if _, ok := course.Hole(hole); !ok {
		return 0, domain.ErrUnknownHole
	}
	return a.Strokes(hole), nil
}
