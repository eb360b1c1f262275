package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trentd187/golf-wagers/internal/bets"
	"github.com/trentd187/golf-wagers/internal/domain"
	"github.com/trentd187/golf-wagers/internal/golftest"
	"github.com/trentd187/golf-wagers/internal/leaderboard"
	"github.com/trentd187/golf-wagers/internal/nassau"
	"github.com/trentd187/golf-wagers/internal/skins"
	"github.com/trentd187/golf-wagers/internal/snake"
	"github.com/trentd187/golf-wagers/internal/wolf"
)

var four = []domain.PlayerID{"ann", "bob", "cat", "dan"}

func pid(id domain.PlayerID) *domain.PlayerID { return &id }

// card turns per-player gross rows (indexed from hole 1, zero = unscored)
// into recorded scores.
func card(rows map[domain.PlayerID][]int) []domain.HoleScore {
	var out []domain.HoleScore
	for _, p := range four {
		for i, g := range rows[p] {
			if g > 0 {
				out = append(out, domain.HoleScore{PlayerID: p, Hole: i + 1, Gross: g})
			}
		}
	}
	return out
}

func round(scores []domain.HoleScore, bs ...bets.Config) Round {
	return Round{
		ID:      "r1",
		Course:  golftest.Course(),
		Players: golftest.Scratch(four...),
		Scores:  scores,
		Bets:    bs,
	}
}

func skinsBet(id string, value int64, players ...domain.PlayerID) bets.Config {
	cfg := skins.DefaultConfig()
	cfg.HoleValue = domain.Dollars(value)
	return bets.Config{ID: id, Kind: bets.KindSkins, Participants: players, Status: bets.StatusActive, Skins: &cfg}
}

func amountOf(t *testing.T, out Outcome, p domain.PlayerID) domain.Money {
	t.Helper()
	for _, a := range out.Amounts {
		if a.Player == p {
			return a.Amount
		}
	}
	t.Fatalf("no amount for %s in %s", p, out.BetID)
	return 0
}

func row(t *testing.T, res *Result, p domain.PlayerID) leaderboard.Row {
	t.Helper()
	for _, r := range res.Leaderboard {
		if r.PlayerID == p {
			return r
		}
	}
	t.Fatalf("no leaderboard row for %s", p)
	return leaderboard.Row{}
}

func TestComputeMergesBetsIntoLeaderboard(t *testing.T) {
	scores := card(map[domain.PlayerID][]int{
		"ann": {4, 5}, "bob": {4, 3}, "cat": {4, 4}, "dan": {5, 5},
	})
	cancelled := skinsBet("c1", 100, four...)
	cancelled.Status = bets.StatusCancelled
	brokenWolf := wolf.DefaultConfig()
	r := round(scores,
		skinsBet("s1", 5, "cat", "bob", "ann"),
		bets.Config{ID: "p1", Kind: bets.KindProximity, Participants: four, Proximity: &bets.ProximityConfig{Amount: domain.Dollars(5), Hole: 3, Measure: bets.MeasureClosest}},
		bets.Config{ID: "w1", Kind: bets.KindWolf, Participants: []domain.PlayerID{"ann", "bob", "cat"}, Wolf: &brokenWolf},
		cancelled,
	)
	r.Resolutions = []Resolution{{BetID: "p1", Winner: pid("ann")}}

	res, err := Compute(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 4)

	s1, ok := res.Outcome("s1")
	require.True(t, ok)
	assert.Equal(t, StatusInProgress, s1.Status)
	assert.Equal(t, []domain.PlayerID{"bob"}, s1.Winners)
	assert.Equal(t, []PlayerAmount{
		{Player: "ann", Amount: domain.Dollars(-10)},
		{Player: "bob", Amount: domain.Dollars(20)},
		{Player: "cat", Amount: domain.Dollars(-10)},
	}, s1.Amounts, "amounts follow tee order, not the bet's listing")
	require.NotNil(t, s1.Skins)

	p1, _ := res.Outcome("p1")
	assert.Equal(t, StatusCompleted, p1.Status)
	assert.Equal(t, domain.Dollars(15), amountOf(t, p1, "ann"))
	assert.Equal(t, domain.Dollars(-5), amountOf(t, p1, "dan"))

	w1, _ := res.Outcome("w1")
	assert.Equal(t, StatusNeedsAttention, w1.Status)
	assert.NotEmpty(t, w1.Error)
	for _, a := range w1.Amounts {
		assert.Zero(t, a.Amount)
	}

	c1, _ := res.Outcome("c1")
	assert.Equal(t, StatusCancelled, c1.Status)

	ann := row(t, res, "ann")
	assert.Equal(t, domain.Dollars(-10), ann.Skins)
	assert.Equal(t, domain.Dollars(15), ann.Manual)
	assert.Equal(t, domain.Dollars(5), ann.NetPosition)
	assert.Equal(t, []string{"w1"}, ann.Attention)
	assert.Equal(t, domain.Dollars(15), row(t, res, "bob").NetPosition)
	assert.Equal(t, domain.Dollars(-15), row(t, res, "cat").NetPosition)
	dan := row(t, res, "dan")
	assert.Equal(t, domain.Dollars(-5), dan.NetPosition)
	assert.Empty(t, dan.Attention)

	var total domain.Money
	for _, r := range res.Leaderboard {
		total += r.NetPosition
	}
	assert.Zero(t, total, "a cancelled bet moves no money")

	require.Len(t, res.Events, 2)
	assert.Equal(t, "p1", res.Events[0].BetID)
	assert.Equal(t, StatusCompleted, res.Events[0].Status)
	assert.Equal(t, []domain.PlayerID{"ann"}, res.Events[0].Winners)
	assert.Equal(t, "c1", res.Events[1].BetID)
	assert.Equal(t, StatusCancelled, res.Events[1].Status)
}

func TestMatchAndSnake(t *testing.T) {
	scores := card(map[domain.PlayerID][]int{
		"ann": {3, 4, 4}, "bob": {4, 4, 4}, "cat": {4, 4, 3}, "dan": {4, 4, 3},
	})
	three := 3
	scores = append(scores, domain.HoleScore{PlayerID: "cat", Hole: 4, Gross: 6, Putts: &three})

	snakeCfg := snake.DefaultConfig()
	snakeCfg.PotAmount = domain.Dollars(9)
	r := round(scores,
		bets.Config{ID: "m1", Kind: bets.KindMatch, Participants: []domain.PlayerID{"ann", "bob"}, Match: &bets.MatchConfig{Amount: domain.Dollars(10), FirstHole: 1, LastHole: 3}},
		bets.Config{ID: "m2", Kind: bets.KindMatch, Participants: []domain.PlayerID{"cat", "dan"}, Match: &bets.MatchConfig{Amount: domain.Dollars(10), FirstHole: 1, LastHole: 3}},
		bets.Config{ID: "sn", Kind: bets.KindSnake, Participants: four, Snake: &snakeCfg},
	)

	res, err := Compute(context.Background(), r)
	require.NoError(t, err)

	m1, _ := res.Outcome("m1")
	assert.Equal(t, StatusCompleted, m1.Status)
	assert.Equal(t, "1 UP", m1.Match.Summary())
	assert.Equal(t, domain.Dollars(10), amountOf(t, m1, "ann"))
	assert.Equal(t, domain.Dollars(-10), amountOf(t, m1, "bob"))

	m2, _ := res.Outcome("m2")
	assert.Equal(t, StatusPushed, m2.Status)
	assert.Zero(t, amountOf(t, m2, "cat"))

	sn, _ := res.Outcome("sn")
	assert.Equal(t, StatusInProgress, sn.Status, "the snake is held until the round ends")
	assert.Equal(t, domain.PlayerID("cat"), *sn.Snake.Holder)
	assert.Zero(t, amountOf(t, sn, "cat"))

	r.Complete = true
	res, err = Compute(context.Background(), r)
	require.NoError(t, err)
	sn, _ = res.Outcome("sn")
	assert.Equal(t, StatusCompleted, sn.Status)
	assert.Equal(t, domain.Dollars(-9), amountOf(t, sn, "cat"))
	assert.Equal(t, domain.Dollars(3), amountOf(t, sn, "dan"))
	assert.Equal(t, []domain.PlayerID{"ann", "bob", "dan"}, sn.Winners)
	assert.Equal(t, domain.Dollars(-9), row(t, res, "cat").Snake)
}

func TestSuppliedSnakeEventsOverridePutts(t *testing.T) {
	three := 3
	scores := []domain.HoleScore{{PlayerID: "cat", Hole: 1, Gross: 6, Putts: &three}}
	cfg := snake.DefaultConfig()
	cfg.PotAmount = domain.Dollars(3)
	r := round(scores, bets.Config{ID: "sn", Kind: bets.KindSnake, Participants: four, Snake: &cfg})
	r.Complete = true

	r.SnakeEvents = map[string][]snake.Event{"sn": {}}
	res, err := Compute(context.Background(), r)
	require.NoError(t, err)
	sn, _ := res.Outcome("sn")
	assert.Equal(t, StatusVoid, sn.Status, "an empty event list wins over derived putts")
	require.Len(t, res.Events, 1)
	assert.Equal(t, StatusVoid, res.Events[0].Status)

	r.SnakeEvents = map[string][]snake.Event{"sn": {{Player: "zed", Hole: 2}}}
	res, err = Compute(context.Background(), r)
	require.NoError(t, err)
	sn, _ = res.Outcome("sn")
	assert.Equal(t, StatusNeedsAttention, sn.Status)
}

func TestNassauEmitsOneEventPerSegment(t *testing.T) {
	cfg := nassau.DefaultConfig()
	cfg.FrontBet = domain.Dollars(10)
	cfg.BackBet = domain.Dollars(10)
	cfg.OverallBet = domain.Dollars(10)
	cfg.PressMode = nassau.PressManual
	r := round(card(map[domain.PlayerID][]int{
		"ann": golftest.Repeat(3, 18),
		"bob": golftest.Repeat(4, 18),
	}), bets.Config{ID: "n1", Kind: bets.KindNassau, Participants: []domain.PlayerID{"ann", "bob"}, Nassau: &bets.NassauConfig{Config: cfg}})

	res, err := Compute(context.Background(), r)
	require.NoError(t, err)

	n1, _ := res.Outcome("n1")
	assert.Equal(t, StatusCompleted, n1.Status)
	assert.Equal(t, []domain.PlayerID{"ann"}, n1.Winners)
	assert.Equal(t, domain.Dollars(30), amountOf(t, n1, "ann"))
	assert.Equal(t, domain.Dollars(30), row(t, res, "ann").Nassau)
	assert.Zero(t, row(t, res, "ann").Press)

	require.Len(t, res.Events, 3)
	var labels []string
	for _, e := range res.Events {
		labels = append(labels, e.Label)
		assert.NotEmpty(t, e.SubBetID)
		assert.Equal(t, StatusCompleted, e.Status)
		assert.Equal(t, []domain.PlayerID{"ann"}, e.Winners)
	}
	assert.Equal(t, []string{"front", "back", "overall"}, labels)

	again, err := Compute(context.Background(), r)
	require.NoError(t, err)
	assert.Empty(t, Transitions(res.Events, again.Events), "recomputing the same round changes nothing")
}

func TestPressesLandInTheirOwnColumn(t *testing.T) {
	cfg := nassau.DefaultConfig()
	cfg.FrontBet = domain.Dollars(10)
	cfg.PressCap = 1
	// bob wins the first two holes, then halves out the front.
	r := round(card(map[domain.PlayerID][]int{
		"ann": golftest.Repeat(4, 9),
		"bob": append([]int{3, 3}, golftest.Repeat(4, 7)...),
	}), bets.Config{ID: "n1", Kind: bets.KindNassau, Participants: []domain.PlayerID{"ann", "bob"}, Nassau: &bets.NassauConfig{Config: cfg}})

	res, err := Compute(context.Background(), r)
	require.NoError(t, err)

	bob := row(t, res, "bob")
	assert.Equal(t, domain.Dollars(10), bob.Nassau)
	assert.Zero(t, bob.Press, "the press from 3 halved")

	n1, _ := res.Outcome("n1")
	assert.Equal(t, StatusCompleted, n1.Status, "zero-amount segments are never opened")
	var labels []string
	for _, e := range res.Events {
		labels = append(labels, e.Label)
	}
	assert.Equal(t, []string{"front", "front press from 3"}, labels)
	assert.Equal(t, StatusPushed, res.Events[1].Status)
}

func TestProximityResolutions(t *testing.T) {
	prox := bets.Config{ID: "p1", Kind: bets.KindProximity, Participants: []domain.PlayerID{"ann", "bob"}, Proximity: &bets.ProximityConfig{Amount: domain.Dollars(5), Hole: 7}}
	r := round(nil, prox)

	res, err := Compute(context.Background(), r)
	require.NoError(t, err)
	p1, _ := res.Outcome("p1")
	assert.Equal(t, StatusPending, p1.Status)
	assert.Empty(t, res.Events)

	r.Resolutions = []Resolution{{BetID: "p1", Winner: pid("ann")}, {BetID: "p1"}}
	res, err = Compute(context.Background(), r)
	require.NoError(t, err)
	p1, _ = res.Outcome("p1")
	assert.Equal(t, StatusPushed, p1.Status, "the latest resolution wins")

	r.Resolutions = []Resolution{{BetID: "p1", Winner: pid("cat")}}
	res, err = Compute(context.Background(), r)
	require.NoError(t, err)
	p1, _ = res.Outcome("p1")
	assert.Equal(t, StatusNeedsAttention, p1.Status)
}

func TestRoundLevelErrorsFailTheComputation(t *testing.T) {
	r := round([]domain.HoleScore{{PlayerID: "zed", Hole: 1, Gross: 4}})
	_, err := Compute(context.Background(), r)
	assert.True(t, errors.Is(err, domain.ErrUnknownPlayer))

	r = round(nil, skinsBet("s1", 5, four...))
	r.Resolutions = []Resolution{{BetID: "nope"}}
	_, err = Compute(context.Background(), r)
	assert.True(t, errors.Is(err, domain.ErrBetNotFound))

	r = round(nil)
	r.Course.Holes[0].Rank = 2
	_, err = Compute(context.Background(), r)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestUnknownParticipantIsFlagged(t *testing.T) {
	res, err := Compute(context.Background(), round(nil, skinsBet("s1", 5, "ann", "zed")))
	require.NoError(t, err)
	s1, _ := res.Outcome("s1")
	assert.Equal(t, StatusNeedsAttention, s1.Status)
	assert.Equal(t, []string{"s1"}, row(t, res, "ann").Attention)
}

func TestComputeIsDeterministic(t *testing.T) {
	scores := card(map[domain.PlayerID][]int{
		"ann": {4, 5, 3}, "bob": {4, 3, 4}, "cat": {4, 4, 4}, "dan": {5, 5, 5},
	})
	r := round(scores, skinsBet("s1", 5, four...))

	first, err := Compute(context.Background(), r)
	require.NoError(t, err)
	second, err := Compute(context.Background(), r)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestTransitions(t *testing.T) {
	done := Event{RoundID: "r1", BetID: "p1", Status: StatusCompleted, Amounts: []PlayerAmount{{Player: "ann", Amount: 500}}}
	seg := Event{RoundID: "r1", BetID: "n1", SubBetID: "front", Status: StatusCompleted}
	prev := []Event{done, seg}

	assert.Empty(t, Transitions(prev, prev))

	changed := done
	changed.Amounts = []PlayerAmount{{Player: "bob", Amount: 500}}
	back := Event{RoundID: "r1", BetID: "n1", SubBetID: "back", Status: StatusPushed}
	got := Transitions(prev, []Event{changed, seg, back})
	assert.Equal(t, []Event{changed, back}, got)

	assert.Equal(t, prev, Transitions(nil, prev))
}
