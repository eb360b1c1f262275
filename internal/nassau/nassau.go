// Package nassau runs a Nassau: three match-play bets over the front nine, the
// back nine and the full eighteen, plus the presses spawned while they run.
//
// Every bet, segment or press, is its own matchplay.Match and settles on its
// own. A press never inherits its parent's margin and a parent's result never
// settles a press.
package nassau

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/trentd187/golf-wagers/internal/domain"
	"github.com/trentd187/golf-wagers/internal/matchplay"
)

// Segment names one of the three Nassau bets.
type Segment string

const (
	SegmentFront   Segment = "front"
	SegmentBack    Segment = "back"
	SegmentOverall Segment = "overall"
)

// PressMode controls whether presses open on their own.
type PressMode string

const (
	PressAuto   PressMode = "auto"
	PressManual PressMode = "manual"
)

// Status is the lifecycle of a segment or press.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusPushed    Status = "pushed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusPushed || s == StatusCancelled
}

// Config is the Nassau option set. Amounts are per man.
type Config struct {
	FrontBet    domain.Money `json:"frontBet" yaml:"frontBet" validate:"gte=0"`
	BackBet     domain.Money `json:"backBet" yaml:"backBet" validate:"gte=0"`
	OverallBet  domain.Money `json:"overallBet" yaml:"overallBet" validate:"gte=0"`
	PressMode   PressMode    `json:"pressMode" yaml:"pressMode" validate:"omitempty,oneof=auto manual"`
	PressDownBy int          `json:"pressDownBy" yaml:"pressDownBy" validate:"gte=0,lte=9"`
	PressCap    int          `json:"pressCap" yaml:"pressCap" validate:"gte=0"` // open presses allowed per segment
}

// DefaultConfig is the two-down auto press with at most two open presses.
func DefaultConfig() Config {
	return Config{PressMode: PressAuto, PressDownBy: 2, PressCap: 2}
}

func (c Config) amount(seg Segment) domain.Money {
	switch seg {
	case SegmentFront:
		return c.FrontBet
	case SegmentBack:
		return c.BackBet
	default:
		return c.OverallBet
	}
}

// Bet is a segment (ParentID nil) or a press.
type Bet struct {
	ID        uuid.UUID        `json:"id"`
	ParentID  *uuid.UUID       `json:"parent_id,omitempty"`
	Segment   Segment          `json:"segment"`
	Initiator string           `json:"initiator,omitempty"` // side id that pressed
	Target    string           `json:"target,omitempty"`
	Auto      bool             `json:"auto"`
	Amount    domain.Money     `json:"amount"`
	StartHole int              `json:"start_hole"`
	EndHole   int              `json:"end_hole"`
	Status    Status           `json:"status"`
	Winner    string           `json:"winner,omitempty"` // side id
	Match     matchplay.Status `json:"match"`
}

// IsPress reports whether the bet was spawned by a press.
func (b Bet) IsPress() bool { return b.ParentID != nil }

// PressRequest is a manual press by one side, starting on StartHole.
// RequestedAfter is the number of holes of play both sides had finished when
// the press was called; a press may not start on any of them.
type PressRequest struct {
	Segment        Segment `json:"segment" yaml:"segment"`
	Initiator      string  `json:"initiator" yaml:"initiator"`
	StartHole      int     `json:"start_hole" yaml:"start_hole"`
	RequestedAfter int     `json:"requested_after,omitempty" yaml:"requested_after,omitempty"`
}

// Rejection is a manual press that could not be opened.
type Rejection struct {
	Request PressRequest `json:"request"`
	Reason  string       `json:"reason"`
}

// Input is everything one Nassau evaluation reads besides the scores.
type Input struct {
	BetID    uuid.UUID
	A, B     domain.Side
	Holes    []int // play order, eighteen holes
	Config   Config
	Requests []PressRequest
	Prior    []Bet // presses from an earlier evaluation; their terms are frozen
}

// Result is the evaluated Nassau.
type Result struct {
	Bets     []Bet                            `json:"bets"` // segments, then presses by start hole
	Rejected []Rejection                      `json:"rejected,omitempty"`
	Segments map[domain.PlayerID]domain.Money `json:"segments"`
	Presses  map[domain.PlayerID]domain.Money `json:"presses"`
	Complete bool                             `json:"complete"`
}

// Evaluate replays the Nassau from the first hole, opening presses at the
// checkpoint after each completed hole.
func Evaluate(scores matchplay.Scores, in Input) (Result, error) {
	if err := validate(in); err != nil {
		return Result{}, err
	}
	b := newBook(scores, in)
	for _, p := range in.Prior {
		if err := b.addPrior(p); err != nil {
			return Result{}, err
		}
	}

	reqs := slices.Clone(in.Requests)
	slices.SortStableFunc(reqs, func(x, y PressRequest) int { return b.posOf(x.StartHole) - b.posOf(y.StartHole) })

	next, completed := 0, 0
	for k := 0; k <= len(in.Holes); k++ {
		if k > 0 {
			if !b.holeComplete(in.Holes[k-1]) {
				break
			}
			completed = k
			if in.Config.PressMode == PressAuto {
				if err := b.autoPress(k); err != nil {
					return Result{}, err
				}
			}
		}
		for next < len(reqs) && b.posOf(reqs[next].StartHole) <= k {
			if err := b.manualPress(reqs[next], k); err != nil {
				return Result{}, err
			}
			next++
		}
	}
	// Requests for holes not reached yet are judged against the current state.
	for ; next < len(reqs); next++ {
		if err := b.manualPress(reqs[next], completed); err != nil {
			return Result{}, err
		}
	}

	return b.settle()
}

func validate(in Input) error {
	if len(in.Holes) != 18 {
		return domain.NewConfigError("nassau.holes", "a Nassau needs 18 holes, got %d", len(in.Holes))
	}
	if len(in.A.Players) != len(in.B.Players) {
		return domain.NewConfigError("nassau.sides", "sides must be the same size for per-man stakes")
	}
	if in.A.ID == "" || in.B.ID == "" || in.A.ID == in.B.ID {
		return domain.NewConfigError("nassau.sides", "sides need distinct ids")
	}
	cfg := in.Config
	if cfg.FrontBet < 0 || cfg.BackBet < 0 || cfg.OverallBet < 0 {
		return domain.NewConfigError("nassau.amount", "bet amounts cannot be negative")
	}
	if cfg.FrontBet == 0 && cfg.BackBet == 0 && cfg.OverallBet == 0 {
		return domain.NewConfigError("nassau.amount", "at least one segment needs a stake")
	}
	switch cfg.PressMode {
	case PressAuto:
		if cfg.PressDownBy < 1 {
			return domain.NewConfigError("nassau.pressDownBy", "auto presses need pressDownBy of at least 1")
		}
	case PressManual:
	default:
		return domain.NewConfigError("nassau.pressMode", "unknown press mode %q", cfg.PressMode)
	}
	if cfg.PressCap < 0 {
		return domain.NewConfigError("nassau.pressCap", "cannot be negative")
	}
	return nil
}

// book holds the bets of one evaluation in creation order.
type book struct {
	scores  matchplay.Scores
	in      Input
	pos     map[int]int
	bets    []*Bet
	matches map[uuid.UUID]*matchplay.Match
	spans   map[Segment][2]int
	reject  []Rejection
}

// segmentSpans holds the first and last play position of each segment.
var segmentSpans = map[Segment][2]int{
	SegmentFront:   {0, 8},
	SegmentBack:    {9, 17},
	SegmentOverall: {0, 17},
}

// Completed counts the leading holes of play that both sides have finished.
func Completed(scores matchplay.Scores, a, b domain.Side, holes []int) int {
	for i, h := range holes {
		_, okA := matchplay.BestBall(scores, a, h)
		_, okB := matchplay.BestBall(scores, b, h)
		if !okA || !okB {
			return i
		}
	}
	return len(holes)
}

// PressStart returns the hole a manual press on seg has to start on once the
// first completed holes of play are finished. It reports false for an unknown
// segment or one that has been played out.
func PressStart(holes []int, seg Segment, completed int) (int, bool) {
	span, ok := segmentSpans[seg]
	if !ok || len(holes) <= span[1] {
		return 0, false
	}
	p := max(completed, span[0])
	if p > span[1] {
		return 0, false
	}
	return holes[p], true
}

func newBook(scores matchplay.Scores, in Input) *book {
	b := &book{
		scores:  scores,
		in:      in,
		pos:     make(map[int]int, len(in.Holes)),
		matches: make(map[uuid.UUID]*matchplay.Match),
		spans:   segmentSpans,
	}
	for i, h := range in.Holes {
		b.pos[h] = i
	}
	for _, seg := range []Segment{SegmentFront, SegmentBack, SegmentOverall} {
		amount := in.Config.amount(seg)
		if amount == 0 {
			continue
		}
		span := b.spans[seg]
		b.bets = append(b.bets, &Bet{
			ID:        uuid.NewSHA1(in.BetID, []byte(seg)),
			Segment:   seg,
			Amount:    amount,
			StartHole: in.Holes[span[0]],
			EndHole:   in.Holes[span[1]],
		})
	}
	return b
}

// posOf returns a hole's play position, or a position past the end for
// holes outside the round.
func (b *book) posOf(hole int) int {
	if p, ok := b.pos[hole]; ok {
		return p
	}
	return len(b.in.Holes)
}

func (b *book) find(id uuid.UUID) *Bet {
	for _, bet := range b.bets {
		if bet.ID == id {
			return bet
		}
	}
	return nil
}

func (b *book) addPrior(p Bet) error {
	if !p.IsPress() || b.find(p.ID) != nil {
		return nil
	}
	span, ok := b.spans[p.Segment]
	if !ok {
		return domain.NewConfigError("nassau.press", "press %s has unknown segment %q", p.ID, p.Segment)
	}
	start, end := b.posOf(p.StartHole), b.posOf(p.EndHole)
	if start < span[0] || end > span[1] || start > end {
		return domain.NewConfigError("nassau.press", "press %s spans holes %d-%d outside the %s", p.ID, p.StartHole, p.EndHole, p.Segment)
	}
	frozen := p
	b.bets = append(b.bets, &frozen)
	return nil
}

func (b *book) holeComplete(hole int) bool {
	return Completed(b.scores, b.in.A, b.in.B, []int{hole}) == 1
}

func (b *book) match(bet *Bet) (*matchplay.Match, error) {
	if m, ok := b.matches[bet.ID]; ok {
		return m, nil
	}
	m, err := matchplay.New(b.in.A, b.in.B, b.in.Holes[b.posOf(bet.StartHole):b.posOf(bet.EndHole)+1])
	if err != nil {
		return nil, err
	}
	b.matches[bet.ID] = m
	return m, nil
}

// through evaluates a bet as it stood after the first k holes of play.
func (b *book) through(bet *Bet, k int) (matchplay.Status, error) {
	m, err := b.match(bet)
	if err != nil {
		return matchplay.Status{}, err
	}
	return m.Evaluate(limited{scores: b.scores, pos: b.pos, k: k})
}

// latest is the most recently started live bet in a segment's chain as of
// checkpoint k.
func (b *book) latest(seg Segment, k int) *Bet {
	var last *Bet
	for _, bet := range b.bets {
		if bet.Segment != seg || bet.Status == StatusCancelled || b.posOf(bet.StartHole) >= k {
			continue
		}
		if last == nil || b.posOf(bet.StartHole) >= b.posOf(last.StartHole) {
			last = bet
		}
	}
	return last
}

// openPresses counts the live presses on seg that have started by position k.
func (b *book) openPresses(seg Segment, k int) (int, error) {
	open := 0
	for _, bet := range b.bets {
		if !bet.IsPress() || bet.Segment != seg || bet.Status == StatusCancelled || b.posOf(bet.StartHole) > k {
			continue
		}
		st, err := b.through(bet, k)
		if err != nil {
			return 0, err
		}
		if !st.Final() {
			open++
		}
	}
	return open, nil
}

// autoPress opens a press on every segment whose latest bet is exactly
// pressDownBy down after k completed holes.
func (b *book) autoPress(k int) error {
	for _, seg := range []Segment{SegmentFront, SegmentBack, SegmentOverall} {
		span := b.spans[seg]
		if k <= span[0] || k > span[1] {
			continue
		}
		parent := b.latest(seg, k)
		if parent == nil {
			continue
		}
		st, err := b.through(parent, k)
		if err != nil {
			return err
		}
		if st.Final() || st.Played == 0 || st.Margin != b.in.Config.PressDownBy {
			continue
		}
		trailing, leading := b.in.B.ID, b.in.A.ID
		if st.Leader == matchplay.SideB {
			trailing, leading = leading, trailing
		}
		if _, err := b.open(seg, parent, k, trailing, leading, true); err != nil {
			return err
		}
	}
	return nil
}

func (b *book) manualPress(req PressRequest, k int) error {
	span, ok := b.spans[req.Segment]
	if !ok || b.find(uuid.NewSHA1(b.in.BetID, []byte(req.Segment))) == nil {
		b.reject = append(b.reject, Rejection{Request: req, Reason: fmt.Sprintf("no %q segment in play", req.Segment)})
		return nil
	}
	start, known := b.pos[req.StartHole]
	if !known || start < span[0] || start > span[1] {
		b.reject = append(b.reject, Rejection{Request: req, Reason: fmt.Sprintf("hole %d is outside the %s", req.StartHole, req.Segment)})
		return nil
	}
	if start < req.RequestedAfter {
		b.reject = append(b.reject, Rejection{Request: req, Reason: fmt.Sprintf("hole %d was already played when the press was called", req.StartHole)})
		return nil
	}
	var target string
	switch req.Initiator {
	case b.in.A.ID:
		target = b.in.B.ID
	case b.in.B.ID:
		target = b.in.A.ID
	default:
		b.reject = append(b.reject, Rejection{Request: req, Reason: fmt.Sprintf("%q is not a side in this match", req.Initiator)})
		return nil
	}
	parent := b.latest(req.Segment, max(k, start))
	if parent == nil {
		parent = b.find(uuid.NewSHA1(b.in.BetID, []byte(req.Segment)))
	}
	opened, err := b.open(req.Segment, parent, start, req.Initiator, target, false)
	if err != nil {
		return err
	}
	if !opened {
		b.reject = append(b.reject, Rejection{Request: req, Reason: "press cap reached or press already open"})
	}
	return nil
}

// open adds a press on seg starting at play position start unless the cap is
// reached. A press already known by id (from Prior) is kept as it was and
// counts as opened.
func (b *book) open(seg Segment, parent *Bet, start int, initiator, target string, auto bool) (bool, error) {
	origin := "auto"
	if !auto {
		origin = "manual/" + initiator
	}
	startHole := b.in.Holes[start]
	id := uuid.NewSHA1(b.in.BetID, []byte(fmt.Sprintf("%s/%d/%s", seg, startHole, origin)))
	if b.find(id) != nil {
		return true, nil
	}
	open, err := b.openPresses(seg, start)
	if err != nil {
		return false, err
	}
	if open >= b.in.Config.PressCap {
		return false, nil
	}
	parentID := parent.ID
	b.bets = append(b.bets, &Bet{
		ID:        id,
		ParentID:  &parentID,
		Segment:   seg,
		Initiator: initiator,
		Target:    target,
		Auto:      auto,
		Amount:    b.in.Config.amount(seg),
		StartHole: startHole,
		EndHole:   b.in.Holes[b.spans[seg][1]],
	})
	return true, nil
}

func (b *book) settle() (Result, error) {
	res := Result{
		Rejected: b.reject,
		Segments: make(map[domain.PlayerID]domain.Money),
		Presses:  make(map[domain.PlayerID]domain.Money),
		Complete: true,
	}
	for _, p := range slices.Concat(b.in.A.Players, b.in.B.Players) {
		res.Segments[p] = 0
		res.Presses[p] = 0
	}

	order := slices.Clone(b.bets)
	slices.SortStableFunc(order, func(x, y *Bet) int {
		if x.IsPress() != y.IsPress() {
			if x.IsPress() {
				return 1
			}
			return -1
		}
		if !x.IsPress() {
			return 0
		}
		return b.posOf(x.StartHole) - b.posOf(y.StartHole)
	})

	for _, bet := range order {
		// A press that reached a terminal status is immutable.
		if !bet.IsPress() || !bet.Status.Terminal() {
			st, err := b.through(bet, len(b.in.Holes))
			if err != nil {
				return Result{}, err
			}
			bet.Match = st
			bet.Status, bet.Winner = b.statusOf(st)
		}

		if !bet.Status.Terminal() {
			res.Complete = false
		}
		if bet.Status == StatusCompleted {
			into := res.Segments
			if bet.IsPress() {
				into = res.Presses
			}
			b.pay(into, bet)
		}
		res.Bets = append(res.Bets, *bet)
	}
	return res, nil
}

func (b *book) statusOf(st matchplay.Status) (Status, string) {
	switch {
	case st.State == matchplay.StateDecided:
		if st.Winner() == matchplay.SideA {
			return StatusCompleted, b.in.A.ID
		}
		return StatusCompleted, b.in.B.ID
	case st.State == matchplay.StateHalved:
		return StatusPushed, ""
	case st.Played == 0:
		return StatusPending, ""
	default:
		return StatusActive, ""
	}
}

func (b *book) pay(into map[domain.PlayerID]domain.Money, bet *Bet) {
	winners, losers := b.in.A, b.in.B
	if bet.Winner == b.in.B.ID {
		winners, losers = losers, winners
	}
	for _, p := range winners.Players {
		into[p] += bet.Amount
	}
	for _, p := range losers.Players {
		into[p] -= bet.Amount
	}
}

// limited hides every hole after the first k of play.
type limited struct {
	scores matchplay.Scores
	pos    map[int]int
	k      int
}

func (l limited) Net(player domain.PlayerID, hole int) (int, bool) {
	if p, ok := l.pos[hole]; !ok || p >= l.k {
		return 0, false
	}
	return l.scores.Net(player, hole)
}
