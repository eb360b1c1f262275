package settlement

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/trentd187/golf-wagers/internal/bets"
	"github.com/trentd187/golf-wagers/internal/domain"
	"github.com/trentd187/golf-wagers/internal/leaderboard"
	"github.com/trentd187/golf-wagers/internal/ledger"
	"github.com/trentd187/golf-wagers/internal/matchplay"
	"github.com/trentd187/golf-wagers/internal/nassau"
	"github.com/trentd187/golf-wagers/internal/skins"
	"github.com/trentd187/golf-wagers/internal/snake"
	"github.com/trentd187/golf-wagers/internal/wolf"
)

// computation is one recompute over a fixed ledger snapshot.
type computation struct {
	round   Round
	scores  *ledger.Ledger
	betUUID uuid.UUID
}

type settled struct {
	out      Outcome
	contribs []leaderboard.Contribution
	events   []Event
}

func (c *computation) settle(bet bets.Config) (Outcome, []leaderboard.Contribution, []Event, error) {
	if err := bet.Validate(); err != nil {
		return Outcome{}, nil, nil, err
	}
	players, err := c.teeOrder(bet.Participants)
	if err != nil {
		return Outcome{}, nil, nil, err
	}

	if bet.Cancelled() {
		out := Outcome{BetID: bet.ID, Kind: bet.Kind, Status: StatusCancelled, Amounts: c.zero(players)}
		return out, nil, []Event{c.event(bet, "", "", StatusCancelled, nil, out.Amounts)}, nil
	}

	var s settled
	switch bet.Kind {
	case bets.KindSkins:
		s, err = c.skins(bet, players)
	case bets.KindWolf:
		s, err = c.wolf(bet, players)
	case bets.KindNassau:
		s, err = c.nassau(bet, players)
	case bets.KindMatch:
		s, err = c.match(bet, players)
	case bets.KindSnake:
		s, err = c.snake(bet, players)
	case bets.KindProximity:
		s, err = c.proximity(bet, players)
	default:
		err = domain.NewConfigError("bet.kind", "unknown kind %q", bet.Kind)
	}
	if err != nil {
		return Outcome{}, nil, nil, err
	}

	s.out.BetID, s.out.Kind = bet.ID, bet.Kind
	if s.out.Status.Terminal() && bet.Kind != bets.KindNassau {
		s.events = append(s.events, c.event(bet, "", "", s.out.Status, s.out.Winners, s.out.Amounts))
	}
	return s.out, s.contribs, s.events, nil
}

func (c *computation) skins(bet bets.Config, players []domain.PlayerID) (settled, error) {
	r, err := skins.Evaluate(c.scores, players, c.holes(), *bet.Skins, c.round.Complete)
	if err != nil {
		return settled{}, err
	}
	started := slices.ContainsFunc(r.Pots, func(p skins.Pot) bool { return p.Outcome != skins.OutcomePending })

	out := Outcome{Skins: &r, Status: progress(r.Complete, started), Amounts: c.amounts(players, r.Amounts)}
	for _, p := range players {
		if r.SkinsWon[p] > 0 {
			out.Winners = append(out.Winners, p)
		}
	}
	return settled{out: out, contribs: []leaderboard.Contribution{{BetID: bet.ID, Column: leaderboard.ColumnSkins, Amounts: r.Amounts}}}, nil
}

func (c *computation) wolf(bet bets.Config, players []domain.PlayerID) (settled, error) {
	r, err := wolf.Evaluate(c.scores, players, c.holes(), c.round.WolfDecisions[bet.ID], *bet.Wolf)
	if err != nil {
		return settled{}, err
	}
	started := slices.ContainsFunc(r.Holes, func(h wolf.Hole) bool { return h.Outcome != wolf.OutcomePending })

	out := Outcome{Wolf: &r, Status: progress(r.Complete, started), Amounts: c.amounts(players, r.Amounts)}
	out.Winners = positive(players, r.Amounts)
	return settled{out: out, contribs: []leaderboard.Contribution{{BetID: bet.ID, Column: leaderboard.ColumnWolf, Amounts: r.Amounts}}}, nil
}

func (c *computation) nassau(bet bets.Config, players []domain.PlayerID) (settled, error) {
	a, b, err := bet.Sides()
	if err != nil {
		return settled{}, err
	}
	r, err := nassau.Evaluate(c.scores, nassau.Input{
		BetID:    uuid.NewSHA1(c.betUUID, []byte(bet.ID)),
		A:        a,
		B:        b,
		Holes:    c.holes(),
		Config:   bet.Nassau.Config,
		Requests: c.round.PressRequests[bet.ID],
		Prior:    c.round.PriorPresses[bet.ID],
	})
	if err != nil {
		return settled{}, err
	}

	total := make(map[domain.PlayerID]domain.Money, len(players))
	for _, p := range players {
		total[p] = r.Segments[p] + r.Presses[p]
	}
	started, pushed := false, true
	var events []Event
	for _, sub := range r.Bets {
		if sub.Status != nassau.StatusPending {
			started = true
		}
		if sub.Status != nassau.StatusPushed && sub.Status != nassau.StatusCancelled {
			pushed = false
		}
		if !sub.Status.Terminal() {
			continue
		}
		winners, amounts := subBetMoney(sub, a, b)
		events = append(events, c.event(bet, sub.ID.String(), label(sub), Status(sub.Status), winners, c.amounts(players, amounts)))
	}

	out := Outcome{Nassau: &r, Status: progress(r.Complete, started), Amounts: c.amounts(players, total)}
	if out.Status == StatusCompleted && pushed {
		out.Status = StatusPushed
	}
	out.Winners = positive(players, total)
	return settled{
		out: out,
		contribs: []leaderboard.Contribution{
			{BetID: bet.ID, Column: leaderboard.ColumnNassau, Amounts: r.Segments},
			{BetID: bet.ID, Column: leaderboard.ColumnPress, Amounts: r.Presses},
		},
		events: events,
	}, nil
}

func (c *computation) match(bet bets.Config, players []domain.PlayerID) (settled, error) {
	a, b, err := bet.Sides()
	if err != nil {
		return settled{}, err
	}
	holes := c.holes()
	if bet.Match.FirstHole > 0 {
		last := bet.Match.LastHole
		if last == 0 {
			last = holes[len(holes)-1]
		}
		holes = matchplay.Range(bet.Match.FirstHole, last)
	}
	m, err := matchplay.New(a, b, holes)
	if err != nil {
		return settled{}, err
	}
	st, err := m.Evaluate(c.scores)
	if err != nil {
		return settled{}, err
	}

	money := make(map[domain.PlayerID]domain.Money, len(players))
	out := Outcome{Match: &st}
	switch {
	case st.State == matchplay.StateDecided:
		out.Status = StatusCompleted
		winners, losers := a, b
		if st.Winner() == matchplay.SideB {
			winners, losers = b, a
		}
		for _, p := range winners.Players {
			money[p] = bet.Match.Amount
		}
		for _, p := range losers.Players {
			money[p] = -bet.Match.Amount
		}
		out.Winners = winners.Players
	case st.State == matchplay.StateHalved:
		out.Status = StatusPushed
	default:
		out.Status = progress(false, st.Played > 0)
	}
	out.Amounts = c.amounts(players, money)
	return settled{out: out, contribs: []leaderboard.Contribution{{BetID: bet.ID, Column: leaderboard.ColumnMatch, Amounts: money}}}, nil
}

func (c *computation) snake(bet bets.Config, players []domain.PlayerID) (settled, error) {
	events, supplied := c.round.SnakeEvents[bet.ID]
	if !supplied {
		events = snake.EventsFromPutts(c.scores, players, c.holes())
	}
	r, err := snake.Evaluate(players, c.holes(), events, *bet.Snake, c.round.Complete)
	if err != nil {
		return settled{}, err
	}

	out := Outcome{Snake: &r, Amounts: c.amounts(players, r.Amounts)}
	switch r.State {
	case snake.StateSettled:
		out.Status = StatusCompleted
		out.Winners = positive(players, r.Amounts)
	case snake.StateVoid:
		out.Status = StatusVoid
	case snake.StateHolding:
		out.Status = StatusInProgress
	default:
		out.Status = StatusPending
	}
	return settled{out: out, contribs: []leaderboard.Contribution{{BetID: bet.ID, Column: leaderboard.ColumnSnake, Amounts: r.Amounts}}}, nil
}

// proximity settles from the latest resolution recorded for the bet.
func (c *computation) proximity(bet bets.Config, players []domain.PlayerID) (settled, error) {
	var res *Resolution
	for i := range c.round.Resolutions {
		if c.round.Resolutions[i].BetID == bet.ID {
			res = &c.round.Resolutions[i]
		}
	}

	money := make(map[domain.PlayerID]domain.Money, len(players))
	out := Outcome{}
	switch {
	case res == nil:
		out.Status = StatusPending
	case res.Winner == nil:
		out.Status = StatusPushed
	default:
		winner := *res.Winner
		if !slices.Contains(players, winner) {
			return settled{}, fmt.Errorf("%w: winner %s is not in bet %s", domain.ErrUnknownPlayer, winner, bet.ID)
		}
		for _, p := range players {
			if p == winner {
				money[p] = bet.Proximity.Amount.Times(int64(len(players) - 1))
			} else {
				money[p] = -bet.Proximity.Amount
			}
		}
		out.Status = StatusCompleted
		out.Winners = []domain.PlayerID{winner}
	}
	out.Amounts = c.amounts(players, money)
	return settled{out: out, contribs: []leaderboard.Contribution{{BetID: bet.ID, Column: leaderboard.ColumnManual, Amounts: money}}}, nil
}

func (c *computation) holes() []int { return c.scores.HoleNumbers() }

// teeOrder sorts bet participants by their position in the round.
func (c *computation) teeOrder(ids []domain.PlayerID) ([]domain.PlayerID, error) {
	pos := make(map[domain.PlayerID]int, len(c.round.Players))
	for i, p := range c.round.Players {
		pos[p.ID] = i
	}
	for _, id := range ids {
		if _, ok := pos[id]; !ok {
			return nil, fmt.Errorf("%w: %s is not playing this round", domain.ErrUnknownPlayer, id)
		}
	}
	ordered := slices.Clone(ids)
	slices.SortFunc(ordered, func(a, b domain.PlayerID) int { return pos[a] - pos[b] })
	return ordered, nil
}

func (c *computation) amounts(players []domain.PlayerID, m map[domain.PlayerID]domain.Money) []PlayerAmount {
	out := make([]PlayerAmount, len(players))
	for i, p := range players {
		out[i] = PlayerAmount{Player: p, Amount: m[p]}
	}
	return out
}

func (c *computation) zero(players []domain.PlayerID) []PlayerAmount {
	return c.amounts(players, nil)
}

func (c *computation) event(bet bets.Config, subID, label string, status Status, winners []domain.PlayerID, amounts []PlayerAmount) Event {
	return Event{
		RoundID:  c.round.ID,
		BetID:    bet.ID,
		SubBetID: subID,
		Label:    label,
		Kind:     bet.Kind,
		Status:   status,
		Winners:  winners,
		Amounts:  amounts,
	}
}

func progress(complete, started bool) Status {
	switch {
	case complete:
		return StatusCompleted
	case started:
		return StatusInProgress
	default:
		return StatusPending
	}
}

func positive(players []domain.PlayerID, m map[domain.PlayerID]domain.Money) []domain.PlayerID {
	var out []domain.PlayerID
	for _, p := range players {
		if m[p] > 0 {
			out = append(out, p)
		}
	}
	return out
}

// subBetMoney is the per-man money of one terminal Nassau segment or press.
func subBetMoney(sub nassau.Bet, a, b domain.Side) ([]domain.PlayerID, map[domain.PlayerID]domain.Money) {
	money := make(map[domain.PlayerID]domain.Money)
	if sub.Status != nassau.StatusCompleted {
		return nil, money
	}
	winners, losers := a, b
	if sub.Winner == b.ID {
		winners, losers = b, a
	}
	for _, p := range winners.Players {
		money[p] = sub.Amount
	}
	for _, p := range losers.Players {
		money[p] = -sub.Amount
	}
	return winners.Players, money
}

func label(sub nassau.Bet) string {
	if !sub.IsPress() {
		return string(sub.Segment)
	}
	return fmt.Sprintf("%s press from %d", sub.Segment, sub.StartHole)
}
