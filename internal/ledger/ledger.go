// Package ledger normalizes raw hole-by-hole gross scores into an ordered,
// queryable record per player, with handicap strokes applied.
//
// The ledger applies last-write-wins upserts keyed by (player, hole). Callers
// serialize concurrent writers; engines read a Snapshot for each recompute.
package ledger

import (
	"fmt"
	"maps"
	"slices"

	"github.com/trentd187/golf-wagers/internal/domain"
	"github.com/trentd187/golf-wagers/internal/handicap"
)

// Options tune stroke allocation for the round.
type Options struct {
	AllowancePercent int  // 0 means full handicap
	OffTheLow        bool // strokes relative to the lowest handicap in the group
}

// Entry is one scored hole with the derived net score.
type Entry struct {
	Hole      int  `json:"hole"`
	Par       int  `json:"par"`
	Gross     int  `json:"gross"`
	Strokes   int  `json:"strokes"`
	Net       int  `json:"net"`
	Putts     *int `json:"putts,omitempty"`
	Penalties int  `json:"penalties,omitempty"`
}

// Totals aggregates the holes a player has actually scored.
type Totals struct {
	Gross    int `json:"gross"`
	Net      int `json:"net"`
	ToPar    int `json:"to_par"`     // gross minus par of scored holes only
	NetToPar int `json:"net_to_par"` // net minus par of scored holes only
	Thru     int `json:"thru"`       // number of scored holes, in any order
}

// Ledger holds every recorded score of one round.
type Ledger struct {
	course  domain.Course
	holes   map[int]domain.CourseHole
	order   []int
	players []domain.Player
	allocs  map[domain.PlayerID]handicap.Allocation
	scores  map[domain.PlayerID]map[int]domain.HoleScore
}

// New validates the course and allocates handicap strokes for every player.
// Players keep the order given, which engines treat as tee order.
func New(course domain.Course, players []domain.Player, opts Options) (*Ledger, error) {
	if err := course.Validate(); err != nil {
		return nil, err
	}
	seen := make(map[domain.PlayerID]bool, len(players))
	for _, p := range players {
		if p.ID == "" {
			return nil, domain.NewConfigError("players", "player without id")
		}
		if seen[p.ID] {
			return nil, domain.NewConfigError("players", "duplicate player %s", p.ID)
		}
		seen[p.ID] = true
	}

	allocs, err := handicap.NewAllocator(course, opts.AllowancePercent, opts.OffTheLow).AllocateAll(players)
	if err != nil {
		return nil, err
	}

	holes := make(map[int]domain.CourseHole, len(course.Holes))
	for _, h := range course.Holes {
		holes[h.Number] = h
	}
	scores := make(map[domain.PlayerID]map[int]domain.HoleScore, len(players))
	for _, p := range players {
		scores[p.ID] = make(map[int]domain.HoleScore)
	}

	return &Ledger{
		course:  course,
		holes:   holes,
		order:   course.HoleNumbers(),
		players: slices.Clone(players),
		allocs:  allocs,
		scores:  scores,
	}, nil
}

// RecordScore upserts a gross score for (player, hole).
func (l *Ledger) RecordScore(player domain.PlayerID, hole, gross int) error {
	return l.Record(domain.HoleScore{PlayerID: player, Hole: hole, Gross: gross})
}

// Record upserts a full hole score. A later write for the same (player, hole)
// replaces the earlier one.
func (l *Ledger) Record(s domain.HoleScore) error {
	byHole, ok := l.scores[s.PlayerID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownPlayer, s.PlayerID)
	}
	if _, ok := l.holes[s.Hole]; !ok {
		return fmt.Errorf("%w: %d", domain.ErrUnknownHole, s.Hole)
	}
	if s.Gross < 1 {
		return fmt.Errorf("%w: gross %d on hole %d", domain.ErrInvalidScore, s.Gross, s.Hole)
	}
	if s.Putts != nil && (*s.Putts < 0 || *s.Putts > s.Gross) {
		return fmt.Errorf("%w: %d putts with gross %d on hole %d", domain.ErrInvalidScore, *s.Putts, s.Gross, s.Hole)
	}
	if s.Penalties < 0 {
		return fmt.Errorf("%w: negative penalties on hole %d", domain.ErrInvalidScore, s.Hole)
	}
	byHole[s.Hole] = s
	return nil
}

// Remove deletes a recorded score, e.g. when an entry was made for the wrong player.
func (l *Ledger) Remove(player domain.PlayerID, hole int) {
	if byHole, ok := l.scores[player]; ok {
		delete(byHole, hole)
	}
}

// Gross returns the recorded gross score; false when the hole is unscored.
func (l *Ledger) Gross(player domain.PlayerID, hole int) (int, bool) {
	s, ok := l.scores[player][hole]
	return s.Gross, ok
}

// Net returns gross minus strokes received; false when the hole is unscored.
// A net score never exists without a gross score.
func (l *Ledger) Net(player domain.PlayerID, hole int) (int, bool) {
	s, ok := l.scores[player][hole]
	if !ok {
		return 0, false
	}
	return s.Gross - l.allocs[player].Strokes(hole), true
}

// Putts returns the recorded putts; false when unscored or not tracked.
func (l *Ledger) Putts(player domain.PlayerID, hole int) (int, bool) {
	s, ok := l.scores[player][hole]
	if !ok || s.Putts == nil {
		return 0, false
	}
	return *s.Putts, true
}

// Par returns the par of a hole, 0 for an unknown hole.
func (l *Ledger) Par(hole int) int {
	return l.holes[hole].Par
}

// Course returns the course the ledger was built for.
func (l *Ledger) Course() domain.Course { return l.course }

// HoleNumbers returns the course's holes in playing order.
func (l *Ledger) HoleNumbers() []int { return slices.Clone(l.order) }

// Players returns the participants in tee order.
func (l *Ledger) Players() []domain.Player { return slices.Clone(l.players) }

// PlayerIDs returns participant ids in tee order.
func (l *Ledger) PlayerIDs() []domain.PlayerID {
	ids := make([]domain.PlayerID, len(l.players))
	for i, p := range l.players {
		ids[i] = p.ID
	}
	return ids
}

// Player looks up a participant.
func (l *Ledger) Player(id domain.PlayerID) (domain.Player, bool) {
	for _, p := range l.players {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Player{}, false
}

// StrokesReceived returns the player's handicap strokes on a hole.
func (l *Ledger) StrokesReceived(player domain.PlayerID, hole int) int {
	return l.allocs[player].Strokes(hole)
}

// CourseHandicap returns the playing handicap used for the allocation.
func (l *Ledger) CourseHandicap(player domain.PlayerID) int {
	return l.allocs[player].CourseHandicap
}

// ScoresThrough returns the player's scored holes ordered by hole number.
func (l *Ledger) ScoresThrough(player domain.PlayerID) []Entry {
	byHole := l.scores[player]
	entries := make([]Entry, 0, len(byHole))
	for _, hole := range l.order {
		s, ok := byHole[hole]
		if !ok {
			continue
		}
		strokes := l.allocs[player].Strokes(hole)
		entries = append(entries, Entry{
			Hole:      hole,
			Par:       l.holes[hole].Par,
			Gross:     s.Gross,
			Strokes:   strokes,
			Net:       s.Gross - strokes,
			Putts:     s.Putts,
			Penalties: s.Penalties,
		})
	}
	return entries
}

// Totals sums the player's scored holes. Unscored holes are never extrapolated.
func (l *Ledger) Totals(player domain.PlayerID) Totals {
	var t Totals
	for _, e := range l.ScoresThrough(player) {
		t.Gross += e.Gross
		t.Net += e.Net
		t.ToPar += e.Gross - e.Par
		t.NetToPar += e.Net - e.Par
		t.Thru++
	}
	return t
}

// Stableford returns net Stableford points: 2 for net par, one more per stroke
// under, one fewer per stroke over, never below zero.
func (l *Ledger) Stableford(player domain.PlayerID) int {
	points := 0
	for _, e := range l.ScoresThrough(player) {
		points += max(0, 2+e.Par-e.Net)
	}
	return points
}

// Downstream returns the holes played after hole. Carryover and holder state on
// these holes must be recomputed when hole is corrected.
func (l *Ledger) Downstream(hole int) []int {
	i := slices.Index(l.order, hole)
	if i < 0 {
		return nil
	}
	return slices.Clone(l.order[i+1:])
}

// Snapshot returns a deep copy that stays fixed while engines read it.
func (l *Ledger) Snapshot() *Ledger {
	scores := make(map[domain.PlayerID]map[int]domain.HoleScore, len(l.scores))
	for id, byHole := range l.scores {
		scores[id] = maps.Clone(byHole)
	}
	return &Ledger{
		course:  l.course,
		holes:   l.holes,
		order:   l.order,
		players: l.players,
		allocs:  l.allocs,
		scores:  scores,
	}
}
