// Package settlement recomputes a whole round on every mutation: it builds the
// score ledger, runs every configured bet through its engine, merges the money
// into the leaderboard and lists the bets that reached a terminal status.
//
// Compute is a pure function of its Round apart from logging and metrics.
// A broken bet never sinks the round: it is flagged as needing attention and
// left out of every total. Only a round-level problem, such as a course
// without stroke allocation ranks, fails the whole computation.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/trentd187/golf-wagers/internal/bets"
	"github.com/trentd187/golf-wagers/internal/domain"
	"github.com/trentd187/golf-wagers/internal/leaderboard"
	"github.com/trentd187/golf-wagers/internal/ledger"
	"github.com/trentd187/golf-wagers/internal/logger"
	"github.com/trentd187/golf-wagers/internal/matchplay"
	"github.com/trentd187/golf-wagers/internal/metrics"
	"github.com/trentd187/golf-wagers/internal/nassau"
	"github.com/trentd187/golf-wagers/internal/skins"
	"github.com/trentd187/golf-wagers/internal/snake"
	"github.com/trentd187/golf-wagers/internal/wolf"
)

// Round is everything recorded for one round.
type Round struct {
	ID               string                           `json:"id" yaml:"id"`
	Course           domain.Course                    `json:"course" yaml:"course"`
	Players          []domain.Player                  `json:"players" yaml:"players"` // tee order
	Scores           []domain.HoleScore               `json:"scores" yaml:"scores"`
	Bets             []bets.Config                    `json:"bets" yaml:"bets"`
	WolfDecisions    map[string][]wolf.Decision       `json:"wolf_decisions,omitempty" yaml:"wolf_decisions,omitempty"`
	PressRequests    map[string][]nassau.PressRequest `json:"press_requests,omitempty" yaml:"press_requests,omitempty"`
	PriorPresses     map[string][]nassau.Bet          `json:"prior_presses,omitempty" yaml:"-"`
	SnakeEvents      map[string][]snake.Event         `json:"snake_events,omitempty" yaml:"snake_events,omitempty"` // a bet missing here derives events from putts
	Resolutions      []Resolution                     `json:"resolutions,omitempty" yaml:"resolutions,omitempty"`
	Complete         bool                             `json:"complete" yaml:"complete"`
	PrimaryFormat    leaderboard.Format               `json:"primary_format,omitempty" yaml:"primary_format,omitempty"`
	AllowancePercent int                              `json:"allowance_percent,omitempty" yaml:"allowance_percent,omitempty"`
	OffTheLow        bool                             `json:"off_the_low,omitempty" yaml:"off_the_low,omitempty"`
}

// Resolution settles a bet that scores cannot decide. A nil Winner is a tie.
type Resolution struct {
	BetID  string           `json:"bet_id" yaml:"bet_id"`
	Winner *domain.PlayerID `json:"winner,omitempty" yaml:"winner,omitempty"`
}

// Status is a bet's settlement status as shown to players.
type Status string

const (
	StatusPending        Status = "pending"
	StatusInProgress     Status = "in_progress"
	StatusCompleted      Status = "completed"
	StatusPushed         Status = "pushed"
	StatusCancelled      Status = "cancelled"
	StatusVoid           Status = "void"
	StatusNeedsAttention Status = "needs_attention"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusPushed, StatusCancelled, StatusVoid:
		return true
	}
	return false
}

// PlayerAmount is one player's signed money.
type PlayerAmount struct {
	Player domain.PlayerID `json:"player"`
	Amount domain.Money    `json:"amount"`
}

// Outcome is the state of one bet after a recompute.
type Outcome struct {
	BetID   string            `json:"bet_id"`
	Kind    bets.Kind         `json:"kind"`
	Status  Status            `json:"status"`
	Amounts []PlayerAmount    `json:"amounts"` // tee order
	Winners []domain.PlayerID `json:"winners,omitempty"`
	Error   string            `json:"error,omitempty"`

	Skins  *skins.Result     `json:"skins,omitempty"`
	Wolf   *wolf.Result      `json:"wolf,omitempty"`
	Nassau *nassau.Result    `json:"nassau,omitempty"`
	Match  *matchplay.Status `json:"match,omitempty"`
	Snake  *snake.Result     `json:"snake,omitempty"`
}

// Event is a terminal transition of a bet, or of one Nassau segment or press.
type Event struct {
	RoundID  string            `json:"round_id"`
	BetID    string            `json:"bet_id"`
	SubBetID string            `json:"sub_bet_id,omitempty"`
	Label    string            `json:"label,omitempty"`
	Kind     bets.Kind         `json:"kind"`
	Status   Status            `json:"status"`
	Winners  []domain.PlayerID `json:"winners,omitempty"`
	Amounts  []PlayerAmount    `json:"amounts"`
}

// Key identifies the bet or sub-bet an event is about.
func (e Event) Key() string { return e.BetID + "/" + e.SubBetID }

// Result is one recompute of a round.
type Result struct {
	RoundID     string            `json:"round_id"`
	Leaderboard []leaderboard.Row `json:"leaderboard"`
	Outcomes    []Outcome         `json:"outcomes"`
	Events      []Event           `json:"events"`
	Complete    bool              `json:"complete"`
}

// Outcome returns the outcome of a bet by id.
func (r *Result) Outcome(betID string) (Outcome, bool) {
	i := slices.IndexFunc(r.Outcomes, func(o Outcome) bool { return o.BetID == betID })
	if i < 0 {
		return Outcome{}, false
	}
	return r.Outcomes[i], true
}

// newLedger records every score of the round on a fresh ledger.
func newLedger(round Round) (*ledger.Ledger, error) {
	l, err := ledger.New(round.Course, round.Players, ledger.Options{
		AllowancePercent: round.AllowancePercent,
		OffTheLow:        round.OffTheLow,
	})
	if err != nil {
		return nil, fmt.Errorf("building ledger: %w", err)
	}
	for _, s := range round.Scores {
		if err := l.Record(s); err != nil {
			return nil, fmt.Errorf("recording score: %w", err)
		}
	}
	return l, nil
}

// PressWindow reports how many holes of play both sides of a Nassau bet have
// finished and the hole a manual press on seg has to start on. ok is false
// once the segment has been played out.
func PressWindow(round Round, betID string, seg nassau.Segment) (completed, start int, ok bool, err error) {
	i := slices.IndexFunc(round.Bets, func(b bets.Config) bool { return b.ID == betID })
	if i < 0 {
		return 0, 0, false, fmt.Errorf("%w: %s", domain.ErrBetNotFound, betID)
	}
	a, b, err := round.Bets[i].Sides()
	if err != nil {
		return 0, 0, false, err
	}
	l, err := newLedger(round)
	if err != nil {
		return 0, 0, false, err
	}
	holes := l.HoleNumbers()
	completed = nassau.Completed(l.Snapshot(), a, b, holes)
	start, ok = nassau.PressStart(holes, seg, completed)
	return completed, start, ok, nil
}

// Compute recomputes every bet of the round from scratch.
func Compute(ctx context.Context, round Round) (res *Result, err error) {
	start := time.Now()
	log := logger.FromContext(ctx).With("round_id", round.ID)
	defer func() { metrics.ObserveSettlement(start, err) }()

	l, err := newLedger(round)
	if err != nil {
		return nil, err
	}
	for _, r := range round.Resolutions {
		if !slices.ContainsFunc(round.Bets, func(b bets.Config) bool { return b.ID == r.BetID }) {
			return nil, fmt.Errorf("%w: resolution for %s", domain.ErrBetNotFound, r.BetID)
		}
	}

	c := &computation{round: round, scores: l.Snapshot(), betUUID: betNamespace(round.ID)}
	res = &Result{RoundID: round.ID, Complete: round.Complete}
	var (
		contributions []leaderboard.Contribution
		flags         []leaderboard.Flag
	)
	for _, bet := range round.Bets {
		out, contrib, events, err := c.settle(bet)
		if err != nil {
			if !flaggable(err) {
				return nil, fmt.Errorf("settling bet %s: %w", bet.ID, err)
			}
			log.Warn("bet needs attention", "bet_id", bet.ID, "kind", bet.Kind, "error", err)
			metrics.BetsFlagged.WithLabelValues(string(bet.Kind)).Inc()
			out = Outcome{BetID: bet.ID, Kind: bet.Kind, Status: StatusNeedsAttention, Error: err.Error(), Amounts: c.zero(bet.Participants)}
			flags = append(flags, leaderboard.Flag{BetID: bet.ID, Players: bet.Participants})
			contrib, events = nil, nil
		}
		res.Outcomes = append(res.Outcomes, out)
		contributions = append(contributions, contrib...)
		res.Events = append(res.Events, events...)
	}

	rows, err := leaderboard.Build(c.scores, round.PrimaryFormat, contributions, flags)
	if err != nil {
		return nil, fmt.Errorf("building leaderboard: %w", err)
	}
	res.Leaderboard = rows

	log.Debug("round settled",
		"bets", len(round.Bets),
		"flagged", len(flags),
		"events", len(res.Events),
		"elapsed", time.Since(start),
	)
	return res, nil
}

// Transitions lists the events in next that are new or changed since prev,
// in next's order. Callers publish only these.
func Transitions(prev, next []Event) []Event {
	seen := make(map[string]Event, len(prev))
	for _, e := range prev {
		seen[e.Key()] = e
	}
	var out []Event
	for _, e := range next {
		old, ok := seen[e.Key()]
		if ok && old.Status == e.Status && slices.Equal(old.Amounts, e.Amounts) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// flaggable reports whether err is confined to one bet's configuration or
// data, as opposed to a failure of the computation itself.
func flaggable(err error) bool {
	for _, target := range []error{
		domain.ErrConfiguration,
		domain.ErrInvariantViolation,
		domain.ErrUnknownPlayer,
		domain.ErrUnknownHole,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// betNamespace scopes deterministic press ids to one round.
func betNamespace(roundID string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("golf-wagers:round:"+roundID))
}
