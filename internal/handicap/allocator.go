package handicap

import (
	"slices"

	"github.com/trentd187/golf-wagers/internal/domain"
)

// Allocator computes allocations for every player of a round on one course.
type Allocator struct {
	course           domain.Course
	allowancePercent int
	offTheLow        bool
}

// NewAllocator builds an allocator. With offTheLow, every course handicap is
// reduced by the lowest one in the group so the low player plays at scratch.
func NewAllocator(course domain.Course, allowancePercent int, offTheLow bool) *Allocator {
	if allowancePercent == 0 {
		allowancePercent = FullAllowance
	}
	return &Allocator{course: course, allowancePercent: allowancePercent, offTheLow: offTheLow}
}

// courseHandicap uses a halved index on 9-hole layouts.
func (a *Allocator) courseHandicap(p domain.Player) (CourseHandicap, error) {
	index := p.HandicapIndex
	if len(a.course.Holes) == 9 {
		index /= 2
	}
	return Compute(index, a.course.Tee, a.allowancePercent)
}

func (a *Allocator) allocateOne(p domain.Player) (Allocation, error) {
	ch, err := a.courseHandicap(p)
	if err != nil {
		return Allocation{}, err
	}
	return Allocate(ch.Strokes, a.course.Holes)
}

// CourseHandicaps returns each player's course handicap before any off-the-low
// adjustment.
func (a *Allocator) CourseHandicaps(players []domain.Player) (map[domain.PlayerID]CourseHandicap, error) {
	out := make(map[domain.PlayerID]CourseHandicap, len(players))
	for _, p := range players {
		ch, err := a.courseHandicap(p)
		if err != nil {
			return nil, err
		}
		out[p.ID] = ch
	}
	return out, nil
}

// AllocateAll returns every player's per-hole allocation.
func (a *Allocator) AllocateAll(players []domain.Player) (map[domain.PlayerID]Allocation, error) {
	if err := ValidateRanks(a.course.Holes); err != nil {
		return nil, err
	}
	handicaps, err := a.CourseHandicaps(players)
	if err != nil {
		return nil, err
	}

	low := 0
	if a.offTheLow && len(players) > 0 {
		all := make([]CourseHandicap, 0, len(handicaps))
		for _, p := range players {
			all = append(all, handicaps[p.ID])
		}
		low = slices.MinFunc(all, Compare).Strokes
	}

	out := make(map[domain.PlayerID]Allocation, len(players))
	for _, p := range players {
		alloc, err := Allocate(handicaps[p.ID].Strokes-low, a.course.Holes)
		if err != nil {
			return nil, err
		}
		out[p.ID] = alloc
	}
	return out, nil
}
