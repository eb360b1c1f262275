package nassau

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trentd187/golf-wagers/internal/domain"
	"github.com/trentd187/golf-wagers/internal/golftest"
	"github.com/trentd187/golf-wagers/internal/matchplay"
)

var (
	betID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("nassau-test"))
	sideA = domain.Side{ID: "A", Players: []domain.PlayerID{"ann"}}
	sideB = domain.Side{ID: "B", Players: []domain.PlayerID{"bob"}}
)

func input(cfg Config) Input {
	return Input{BetID: betID, A: sideA, B: sideB, Holes: matchplay.Range(1, 18), Config: cfg}
}

func stakes() Config {
	cfg := DefaultConfig()
	cfg.FrontBet = domain.Dollars(10)
	cfg.BackBet = domain.Dollars(10)
	cfg.OverallBet = domain.Dollars(20)
	return cfg
}

// twoDownAfterFour: bob wins holes 2 and 4, the rest of the first four halve.
func twoDownAfterFour(t *testing.T) matchplay.Scores {
	return golftest.Ledger(t, golftest.Scratch("ann", "bob"), map[domain.PlayerID][]int{
		"ann": {4, 4, 4, 4},
		"bob": {4, 3, 4, 3},
	})
}

func TestAutoPressOpensOnNextHole(t *testing.T) {
	res, err := Evaluate(twoDownAfterFour(t), input(stakes()))
	require.NoError(t, err)
	require.Len(t, res.Bets, 5)

	front := res.Bets[0]
	assert.Equal(t, SegmentFront, front.Segment)
	assert.Equal(t, StatusActive, front.Status)
	assert.Equal(t, 2, front.Match.Margin)
	assert.Equal(t, matchplay.SideB, front.Match.Leader)

	press := res.Bets[3]
	require.True(t, press.IsPress())
	assert.Equal(t, front.ID, *press.ParentID)
	assert.Equal(t, SegmentFront, press.Segment)
	assert.Equal(t, 5, press.StartHole)
	assert.Equal(t, 9, press.EndHole)
	assert.Equal(t, "A", press.Initiator)
	assert.Equal(t, "B", press.Target)
	assert.True(t, press.Auto)
	assert.Equal(t, domain.Dollars(10), press.Amount)
	assert.Equal(t, StatusPending, press.Status)
	assert.Zero(t, press.Match.Margin, "a press starts level")

	overallPress := res.Bets[4]
	assert.Equal(t, SegmentOverall, overallPress.Segment)
	assert.Equal(t, 5, overallPress.StartHole)
	assert.Equal(t, 18, overallPress.EndHole)
	assert.Equal(t, domain.Dollars(20), overallPress.Amount)

	assert.False(t, res.Complete)
	assert.Zero(t, res.Segments["ann"])

	again, err := Evaluate(twoDownAfterFour(t), input(stakes()))
	require.NoError(t, err)
	assert.Equal(t, press.ID, again.Bets[3].ID, "press ids are deterministic")
}

func fullRound(t *testing.T) matchplay.Scores {
	// Front: bob wins 2 and 4, ann wins 5-7, 8 and 9 halve. Back nine halves.
	ann := append([]int{4, 4, 4, 4, 3, 3, 3, 4, 4}, golftest.Repeat(4, 9)...)
	bob := append([]int{4, 3, 4, 3, 4, 4, 4, 4, 4}, golftest.Repeat(4, 9)...)
	return golftest.Ledger(t, golftest.Scratch("ann", "bob"), map[domain.PlayerID][]int{"ann": ann, "bob": bob})
}

func TestPressesSettleIndependently(t *testing.T) {
	cfg := stakes()
	cfg.PressCap = 1

	res, err := Evaluate(fullRound(t), input(cfg))
	require.NoError(t, err)
	require.Len(t, res.Bets, 5)
	require.True(t, res.Complete)

	byKey := map[string]Bet{}
	for _, b := range res.Bets {
		key := string(b.Segment)
		if b.IsPress() {
			key += "-press"
		}
		byKey[key] = b
	}

	assert.Equal(t, StatusCompleted, byKey["front"].Status)
	assert.Equal(t, "A", byKey["front"].Winner)
	assert.Equal(t, "1 UP", byKey["front"].Match.Summary())

	assert.Equal(t, StatusPushed, byKey["back"].Status)

	assert.Equal(t, StatusCompleted, byKey["front-press"].Status)
	assert.Equal(t, "3 & 2", byKey["front-press"].Match.Summary())
	assert.Equal(t, 7, byKey["front-press"].Match.DecidedAt)

	assert.Equal(t, StatusCompleted, byKey["overall-press"].Status)
	assert.Equal(t, "3 & 2", byKey["overall-press"].Match.Summary())

	assert.Equal(t, domain.Dollars(30), res.Segments["ann"])
	assert.Equal(t, domain.Dollars(-30), res.Segments["bob"])
	assert.Equal(t, domain.Dollars(30), res.Presses["ann"])
	assert.Equal(t, domain.Dollars(-30), res.Presses["bob"])
}

func TestPressChainFollowsLatestBet(t *testing.T) {
	// With room under the cap, bob goes two down in the first press after
	// hole 6 and presses back on both chains.
	res, err := Evaluate(fullRound(t), input(stakes()))
	require.NoError(t, err)
	require.Len(t, res.Bets, 7)

	var second []Bet
	for _, b := range res.Bets {
		if b.IsPress() && b.StartHole == 7 {
			second = append(second, b)
		}
	}
	require.Len(t, second, 2)
	for _, b := range second {
		assert.Equal(t, "B", b.Initiator)
		assert.Equal(t, StatusCompleted, b.Status)
		assert.Equal(t, "A", b.Winner)
	}
	assert.Equal(t, domain.Dollars(60), res.Presses["ann"])
}

func TestManualPresses(t *testing.T) {
	l := golftest.Ledger(t, golftest.Scratch("ann", "bob"), map[domain.PlayerID][]int{
		"ann": {4, 5},
		"bob": {4, 4},
	})
	cfg := stakes()
	cfg.PressMode = PressManual
	cfg.PressCap = 1

	in := input(cfg)
	in.Requests = []PressRequest{
		{Segment: SegmentFront, Initiator: "A", StartHole: 3},
		{Segment: SegmentFront, Initiator: "A", StartHole: 6},
		{Segment: SegmentBack, Initiator: "Z", StartHole: 12},
		{Segment: SegmentBack, Initiator: "B", StartHole: 4},
	}

	res, err := Evaluate(l, in)
	require.NoError(t, err)

	var presses []Bet
	for _, b := range res.Bets {
		if b.IsPress() {
			presses = append(presses, b)
		}
	}
	require.Len(t, presses, 1)
	assert.Equal(t, 3, presses[0].StartHole)
	assert.False(t, presses[0].Auto)
	assert.Equal(t, StatusPending, presses[0].Status)

	require.Len(t, res.Rejected, 3)
	var starts []int
	for _, r := range res.Rejected {
		starts = append(starts, r.Request.StartHole)
	}
	assert.ElementsMatch(t, []int{4, 6, 12}, starts)
}

func TestManualPressCannotStartOnPlayedHole(t *testing.T) {
	// Ann wins holes 3 through 7 of a finished front nine.
	l := golftest.Ledger(t, golftest.Scratch("ann", "bob"), map[domain.PlayerID][]int{
		"ann": {4, 4, 3, 3, 3, 3, 3, 4, 4},
		"bob": {4, 4, 4, 4, 4, 4, 4, 4, 4},
	})
	cfg := stakes()
	cfg.PressMode = PressManual

	tests := []struct {
		name      string
		after     int
		wantPress bool
	}{
		{"called before hole 3", 2, true},
		{"called after the front nine", 9, false},
		{"called after hole 3", 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := input(cfg)
			in.Requests = []PressRequest{{Segment: SegmentFront, Initiator: "A", StartHole: 3, RequestedAfter: tt.after}}

			res, err := Evaluate(l, in)
			require.NoError(t, err)

			var presses []Bet
			for _, b := range res.Bets {
				if b.IsPress() {
					presses = append(presses, b)
				}
			}
			if tt.wantPress {
				require.Len(t, presses, 1)
				assert.Equal(t, 3, presses[0].StartHole)
				assert.Empty(t, res.Rejected)
				return
			}
			assert.Empty(t, presses)
			require.Len(t, res.Rejected, 1)
			assert.Contains(t, res.Rejected[0].Reason, "already played")
		})
	}
}

func TestPressStart(t *testing.T) {
	holes := matchplay.Range(1, 18)
	tests := []struct {
		seg       Segment
		completed int
		want      int
		ok        bool
	}{
		{SegmentFront, 0, 1, true},
		{SegmentFront, 4, 5, true},
		{SegmentFront, 9, 0, false},
		{SegmentBack, 4, 10, true},
		{SegmentBack, 12, 13, true},
		{SegmentOverall, 17, 18, true},
		{SegmentOverall, 18, 0, false},
		{Segment("middle"), 0, 0, false},
	}
	for _, tt := range tests {
		got, ok := PressStart(holes, tt.seg, tt.completed)
		assert.Equal(t, tt.ok, ok, "%s after %d", tt.seg, tt.completed)
		assert.Equal(t, tt.want, got, "%s after %d", tt.seg, tt.completed)
	}
}

func TestCompleted(t *testing.T) {
	l := golftest.Ledger(t, golftest.Scratch("ann", "bob"), map[domain.PlayerID][]int{
		"ann": {4, 5, 4},
		"bob": {4, 4},
	})
	assert.Equal(t, 2, Completed(l, sideA, sideB, matchplay.Range(1, 18)))
	assert.Equal(t, 0, Completed(l, sideA, sideB, matchplay.Range(3, 18)))
}

func TestPriorPressKeepsFrozenTerms(t *testing.T) {
	scores := twoDownAfterFour(t)
	first, err := Evaluate(scores, input(stakes()))
	require.NoError(t, err)

	cfg := stakes()
	cfg.FrontBet = domain.Dollars(50)
	in := input(cfg)
	in.Prior = first.Bets[3:]

	res, err := Evaluate(scores, in)
	require.NoError(t, err)
	require.Len(t, res.Bets, 5, "a known press is not opened twice")
	assert.Equal(t, domain.Dollars(50), res.Bets[0].Amount)
	assert.Equal(t, first.Bets[3].ID, res.Bets[3].ID)
	assert.Equal(t, domain.Dollars(10), res.Bets[3].Amount)
}

func TestCancelledPressStaysCancelled(t *testing.T) {
	scores := fullRound(t)
	cfg := stakes()
	cfg.PressCap = 1
	first, err := Evaluate(scores, input(cfg))
	require.NoError(t, err)

	cancelled := first.Bets[3]
	cancelled.Status = StatusCancelled
	in := input(cfg)
	in.Prior = []Bet{cancelled}

	res, err := Evaluate(scores, in)
	require.NoError(t, err)

	got := res.Bets[3]
	assert.Equal(t, cancelled.ID, got.ID)
	assert.Equal(t, StatusCancelled, got.Status)
	// Only the overall press pays now.
	assert.Equal(t, domain.Dollars(20), res.Presses["ann"])
}

func TestEvaluateRejectsBadConfig(t *testing.T) {
	scores := twoDownAfterFour(t)

	nine := input(stakes())
	nine.Holes = matchplay.Range(1, 9)

	uneven := input(stakes())
	uneven.A = domain.Side{ID: "A", Players: []domain.PlayerID{"ann", "cat"}}

	noStake := input(DefaultConfig())

	downByZero := stakes()
	downByZero.PressDownBy = 0

	for name, in := range map[string]Input{
		"nine holes":   nine,
		"uneven sides": uneven,
		"no stake":     noStake,
		"down by zero": input(downByZero),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Evaluate(scores, in)
			assert.True(t, errors.Is(err, domain.ErrConfiguration), "got %v", err)
		})
	}
}
