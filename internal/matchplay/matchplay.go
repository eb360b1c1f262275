// Package matchplay evaluates a two-sided match hole by hole on net scores.
//
// A match is decided the moment one side leads by more holes than remain.
// Holes after that point are never evaluated for settlement. A hole where
// either side lacks a score leaves the match waiting on that hole.
package matchplay

import (
	"fmt"
	"slices"

	"github.com/trentd187/golf-wagers/internal/domain"
)

// Scores is the read side of the score ledger the evaluator needs.
type Scores interface {
	Net(player domain.PlayerID, hole int) (int, bool)
}

// State of a match after the holes evaluated so far.
type State string

const (
	StateAllSquare State = "all_square"
	StateLead      State = "lead"
	StateDecided   State = "decided"
	StateHalved    State = "halved"
)

// Side indexes; Halved marks a hole or match with no winner.
const (
	SideA  = 0
	SideB  = 1
	Halved = -1
)

// HoleResult is one evaluated hole.
type HoleResult struct {
	Hole        int `json:"hole"`
	NetA        int `json:"net_a"`
	NetB        int `json:"net_b"`
	Winner      int `json:"winner"`       // SideA, SideB or Halved
	MarginAfter int `json:"margin_after"` // signed: positive while side A leads
}

// Status is the evaluator's output.
type Status struct {
	State       State        `json:"state"`
	Leader      int          `json:"leader"`       // SideA, SideB, or Halved when level
	Margin      int          `json:"margin"`       // holes up, never negative
	Played      int          `json:"played"`       // holes evaluated
	Remaining   int          `json:"remaining"`    // holes left in scope after the last evaluated one
	DecidedAt   int          `json:"decided_at"`   // hole number that decided the match, 0 otherwise
	PendingHole int          `json:"pending_hole"` // first hole waiting for a score, 0 when none
	Results     []HoleResult `json:"results"`
}

// Final reports whether the match reached a terminal state.
func (s Status) Final() bool {
	return s.State == StateDecided || s.State == StateHalved
}

// Winner returns the winning side of a decided match, or Halved.
func (s Status) Winner() int {
	if s.State != StateDecided {
		return Halved
	}
	return s.Leader
}

// Dormie reports a live match where the leader is up exactly the holes remaining.
func (s Status) Dormie() bool {
	return !s.Final() && s.Margin > 0 && s.Margin == s.Remaining
}

// Summary renders the status the way a scorecard does: "AS", "2 UP thru 7",
// "3 & 2", "1 UP", "Halved".
func (s Status) Summary() string {
	switch s.State {
	case StateHalved:
		return "Halved"
	case StateDecided:
		if s.Remaining == 0 {
			return fmt.Sprintf("%d UP", s.Margin)
		}
		return fmt.Sprintf("%d & %d", s.Margin, s.Remaining)
	case StateLead:
		return fmt.Sprintf("%d UP thru %d", s.Margin, s.Played)
	default:
		if s.Played == 0 {
			return "AS"
		}
		return fmt.Sprintf("AS thru %d", s.Played)
	}
}

// Match is a configured match between two sides over an ordered set of holes.
type Match struct {
	A, B  domain.Side
	Holes []int
}

// New validates the sides and hole scope.
func New(a, b domain.Side, holes []int) (*Match, error) {
	if len(a.Players) == 0 || len(b.Players) == 0 {
		return nil, domain.NewConfigError("match.sides", "both sides need at least one player")
	}
	for _, p := range a.Players {
		if b.Has(p) {
			return nil, domain.NewConfigError("match.sides", "player %s is on both sides", p)
		}
	}
	if len(holes) == 0 {
		return nil, domain.NewConfigError("match.holes", "no holes in scope")
	}
	seen := make(map[int]bool, len(holes))
	for _, h := range holes {
		if seen[h] {
			return nil, domain.NewConfigError("match.holes", "hole %d listed twice", h)
		}
		seen[h] = true
	}
	return &Match{A: a, B: b, Holes: slices.Clone(holes)}, nil
}

// BestBall is the lowest net among the side's players who scored the hole.
func BestBall(scores Scores, side domain.Side, hole int) (int, bool) {
	best, found := 0, false
	for _, p := range side.Players {
		net, ok := scores.Net(p, hole)
		if !ok {
			continue
		}
		if !found || net < best {
			best, found = net, true
		}
	}
	return best, found
}

// Evaluate replays the match from its first hole.
func (m *Match) Evaluate(scores Scores) (Status, error) {
	total := len(m.Holes)
	st := Status{Leader: Halved, Remaining: total}
	margin := 0

	for i, hole := range m.Holes {
		netA, okA := BestBall(scores, m.A, hole)
		netB, okB := BestBall(scores, m.B, hole)
		if !okA || !okB {
			st.PendingHole = hole
			break
		}

		winner := Halved
		switch {
		case netA < netB:
			winner = SideA
			margin++
		case netB < netA:
			winner = SideB
			margin--
		}
		st.Played++
		st.Remaining = total - (i + 1)
		st.Results = append(st.Results, HoleResult{Hole: hole, NetA: netA, NetB: netB, Winner: winner, MarginAfter: margin})

		if abs(margin) > total {
			return Status{}, domain.NewInvariantError("matchplay.margin_within_holes", "margin %d exceeds %d holes", abs(margin), total)
		}
		if abs(margin) > st.Remaining {
			st.DecidedAt = hole
			break
		}
	}

	st.Margin = abs(margin)
	switch {
	case margin > 0:
		st.Leader = SideA
	case margin < 0:
		st.Leader = SideB
	}

	switch {
	case st.DecidedAt != 0:
		st.State = StateDecided
	case st.Played == total && margin == 0:
		st.State = StateHalved
	case margin != 0:
		st.State = StateLead
	default:
		st.State = StateAllSquare
	}
	return st, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Range returns the hole numbers first..last inclusive.
func Range(first, last int) []int {
	if last < first {
		return nil
	}
	holes := make([]int, 0, last-first+1)
	for h := first; h <= last; h++ {
		holes = append(holes, h)
	}
	return holes
}
