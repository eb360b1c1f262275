package snake

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trentd187/golf-wagers/internal/domain"
	"github.com/trentd187/golf-wagers/internal/golftest"
	"github.com/trentd187/golf-wagers/internal/matchplay"
)

var (
	group = []domain.PlayerID{"ann", "bob", "cat"}
	holes = matchplay.Range(1, 18)
)

func pot(amount int64) Config {
	cfg := DefaultConfig()
	cfg.PotAmount = domain.Dollars(amount)
	return cfg
}

func scenario() []Event {
	return []Event{{Player: "ann", Hole: 3}, {Player: "bob", Hole: 9}, {Player: "ann", Hole: 15}}
}

func TestLastHolderPaysAtRoundEnd(t *testing.T) {
	res, err := Evaluate(group, holes, scenario(), pot(20), true)
	require.NoError(t, err)

	assert.Equal(t, StateSettled, res.State)
	require.NotNil(t, res.Holder)
	assert.Equal(t, domain.PlayerID("ann"), *res.Holder)
	assert.Equal(t, 15, res.LastHole)
	assert.Equal(t, 3, res.Transfers)
	assert.Equal(t, domain.Dollars(20), res.Liability)
	assert.Equal(t, domain.Dollars(-20), res.Amounts["ann"])
	assert.Equal(t, domain.Dollars(10), res.Amounts["bob"])
	assert.Equal(t, domain.Dollars(10), res.Amounts["cat"])
	assert.True(t, res.Final())
}

func TestEscalatingPotMultipliesByTransfers(t *testing.T) {
	cfg := pot(20)
	cfg.Escalating = true
	res, err := Evaluate(group, holes, scenario(), cfg, true)
	require.NoError(t, err)
	assert.Equal(t, domain.Dollars(60), res.Liability)
	assert.Equal(t, domain.Dollars(-60), res.Amounts["ann"])
	assert.Equal(t, domain.Dollars(30), res.Amounts["cat"])
}

func TestSettlementModes(t *testing.T) {
	events := scenario()[:2]

	end, err := Evaluate(group, holes, events, pot(20), false)
	require.NoError(t, err)
	assert.Equal(t, StateHolding, end.State)
	assert.Equal(t, domain.PlayerID("bob"), *end.Holder)
	assert.Zero(t, end.Amounts["bob"], "end mode pays nothing mid-round")

	cfg := pot(20)
	cfg.Settlement = ModeRunning
	running, err := Evaluate(group, holes, events, cfg, false)
	require.NoError(t, err)
	assert.Equal(t, StateHolding, running.State)
	assert.Equal(t, domain.Dollars(-20), running.Amounts["bob"])
	assert.Equal(t, domain.Dollars(10), running.Amounts["ann"])
	assert.False(t, running.Final())
}

func TestNoThreePuttIsVoid(t *testing.T) {
	res, err := Evaluate(group, holes, nil, pot(20), true)
	require.NoError(t, err)
	assert.Equal(t, StateVoid, res.State)
	assert.Nil(t, res.Holder)
	assert.True(t, res.Final())
	for _, p := range group {
		assert.Zero(t, res.Amounts[p])
	}

	res, err = Evaluate(group, holes, nil, pot(20), false)
	require.NoError(t, err)
	assert.Equal(t, StatePending, res.State)
}

func TestEventsReplayInHoleOrder(t *testing.T) {
	// Submitted out of order, e.g. a late entry for hole 3.
	events := []Event{{Player: "bob", Hole: 9}, {Player: "cat", Hole: 12}, {Player: "ann", Hole: 3}}
	res, err := Evaluate(group, holes, events, pot(20), true)
	require.NoError(t, err)
	assert.Equal(t, domain.PlayerID("cat"), *res.Holder)
	assert.Equal(t, []Event{{Player: "ann", Hole: 3}, {Player: "bob", Hole: 9}, {Player: "cat", Hole: 12}}, res.Events)

	// Two three-putts on one hole: the later entry holds it.
	res, err = Evaluate(group, holes, []Event{{Player: "ann", Hole: 4}, {Player: "bob", Hole: 4}}, pot(20), true)
	require.NoError(t, err)
	assert.Equal(t, domain.PlayerID("bob"), *res.Holder)
}

func TestUnevenPotSplitsInTeeOrder(t *testing.T) {
	four := []domain.PlayerID{"ann", "bob", "cat", "dan"}
	res, err := Evaluate(four, holes, []Event{{Player: "cat", Hole: 1}}, pot(10), true)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(334), res.Amounts["ann"])
	assert.Equal(t, domain.Money(333), res.Amounts["bob"])
	assert.Equal(t, domain.Money(333), res.Amounts["dan"])
	assert.Equal(t, domain.Dollars(-10), res.Amounts["cat"])
}

func TestEventsFromPutts(t *testing.T) {
	l := golftest.Ledger(t, golftest.Scratch(group...), nil)
	putts := func(n int) *int { return &n }
	require.NoError(t, l.Record(domain.HoleScore{PlayerID: "bob", Hole: 2, Gross: 6, Putts: putts(3)}))
	require.NoError(t, l.Record(domain.HoleScore{PlayerID: "ann", Hole: 2, Gross: 5, Putts: putts(2)}))
	require.NoError(t, l.Record(domain.HoleScore{PlayerID: "cat", Hole: 5, Gross: 7, Putts: putts(4)}))
	require.NoError(t, l.Record(domain.HoleScore{PlayerID: "ann", Hole: 5, Gross: 6, Putts: putts(3)}))

	events := EventsFromPutts(l, group, holes)
	assert.Equal(t, []Event{{Player: "bob", Hole: 2}, {Player: "ann", Hole: 5}, {Player: "cat", Hole: 5}}, events)
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	_, err := Evaluate(group, holes, []Event{{Player: "zed", Hole: 1}}, pot(20), false)
	assert.True(t, errors.Is(err, domain.ErrUnknownPlayer))

	_, err = Evaluate(group, holes, []Event{{Player: "ann", Hole: 19}}, pot(20), false)
	assert.True(t, errors.Is(err, domain.ErrUnknownHole))

	_, err = Evaluate(group, holes, nil, DefaultConfig(), false)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	_, err = Evaluate(group[:1], holes, nil, pot(20), false)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}
