// Package snake tracks the snake: whoever three-putted last holds it, and the
// holder pays the pot to everyone else.
package snake

import (
	"fmt"
	"slices"

	"github.com/trentd187/golf-wagers/internal/domain"
)

// ThreePutt is the putt count that passes the snake.
const ThreePutt = 3

// Mode is when the holder's liability counts.
type Mode string

const (
	ModeEnd     Mode = "end"     // money moves only once the round is complete
	ModeRunning Mode = "running" // the current holder's liability always counts
)

// State of the snake after replaying the events.
type State string

const (
	StatePending State = "pending" // nobody has three-putted yet, round in progress
	StateHolding State = "holding"
	StateSettled State = "settled"
	StateVoid    State = "void" // round over without a three-putt
)

// Config is the snake option set.
type Config struct {
	PotAmount  domain.Money `json:"potAmount" yaml:"potAmount" validate:"gt=0"`
	Escalating bool         `json:"escalating" yaml:"escalating"`
	Settlement Mode         `json:"settlement" yaml:"settlement" validate:"omitempty,oneof=end running"`
}

// DefaultConfig settles at round end without escalation.
func DefaultConfig() Config {
	return Config{Settlement: ModeEnd}
}

// Event passes the snake to Player on Hole.
type Event struct {
	Player domain.PlayerID `json:"player" yaml:"player"`
	Hole   int             `json:"hole" yaml:"hole"`
}

// Result is the replayed snake.
type Result struct {
	State     State                            `json:"state"`
	Holder    *domain.PlayerID                 `json:"holder,omitempty"`
	LastHole  int                              `json:"last_hole"`
	Transfers int                              `json:"transfers"`
	Liability domain.Money                     `json:"liability"`
	Events    []Event                          `json:"events"`
	Amounts   map[domain.PlayerID]domain.Money `json:"amounts"`
}

// Final reports whether the snake can no longer change hands.
func (r Result) Final() bool { return r.State == StateSettled || r.State == StateVoid }

// Putts is the read side of the score ledger used to derive events.
type Putts interface {
	Putts(player domain.PlayerID, hole int) (int, bool)
}

// EventsFromPutts derives events from recorded putts, hole by hole in play
// order and in tee order within a hole.
func EventsFromPutts(scores Putts, participants []domain.PlayerID, holes []int) []Event {
	var events []Event
	for _, h := range holes {
		for _, p := range participants {
			if n, ok := scores.Putts(p, h); ok && n >= ThreePutt {
				events = append(events, Event{Player: p, Hole: h})
			}
		}
	}
	return events
}

// Evaluate replays events in hole order. Events on the same hole keep their
// input order, so the later one holds the snake.
func Evaluate(participants []domain.PlayerID, holes []int, events []Event, cfg Config, roundComplete bool) (Result, error) {
	if len(participants) < 2 {
		return Result{}, domain.NewConfigError("snake.participants", "needs at least two players")
	}
	if cfg.PotAmount <= 0 {
		return Result{}, domain.NewConfigError("snake.potAmount", "must be positive")
	}
	mode := cfg.Settlement
	if mode == "" {
		mode = ModeEnd
	}
	if mode != ModeEnd && mode != ModeRunning {
		return Result{}, domain.NewConfigError("snake.settlement", "unknown mode %q", cfg.Settlement)
	}

	pos := make(map[int]int, len(holes))
	for i, h := range holes {
		pos[h] = i
	}
	for _, e := range events {
		if !slices.Contains(participants, e.Player) {
			return Result{}, fmt.Errorf("%w: %s is not in the snake", domain.ErrUnknownPlayer, e.Player)
		}
		if _, ok := pos[e.Hole]; !ok {
			return Result{}, fmt.Errorf("%w: hole %d", domain.ErrUnknownHole, e.Hole)
		}
	}
	ordered := slices.Clone(events)
	slices.SortStableFunc(ordered, func(a, b Event) int { return pos[a.Hole] - pos[b.Hole] })

	res := Result{Events: ordered, Amounts: make(map[domain.PlayerID]domain.Money, len(participants))}
	for _, p := range participants {
		res.Amounts[p] = 0
	}
	for _, e := range ordered {
		holder := e.Player
		res.Holder = &holder
		res.LastHole = e.Hole
		res.Transfers++
	}

	switch {
	case res.Holder == nil && roundComplete:
		res.State = StateVoid
		return res, nil
	case res.Holder == nil:
		res.State = StatePending
		return res, nil
	case roundComplete:
		res.State = StateSettled
	default:
		res.State = StateHolding
	}

	res.Liability = cfg.PotAmount
	if cfg.Escalating {
		res.Liability = cfg.PotAmount.Times(int64(res.Transfers))
	}
	if mode == ModeEnd && !roundComplete {
		return res, nil
	}

	var others []domain.PlayerID
	for _, p := range participants {
		if p != *res.Holder {
			others = append(others, p)
		}
	}
	res.Amounts[*res.Holder] = -res.Liability
	for i, share := range domain.Split(int64(res.Liability), len(others)) {
		res.Amounts[others[i]] = domain.Money(share)
	}
	return res, nil
}
