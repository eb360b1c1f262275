package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trentd187/golf-wagers/internal/domain"
	"github.com/trentd187/golf-wagers/internal/golftest"
	"github.com/trentd187/golf-wagers/internal/ledger"
)

func newLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	players := []domain.Player{
		{ID: "ann", HandicapIndex: 0},
		{ID: "bob", HandicapIndex: 20},
	}
	l, err := ledger.New(golftest.Course(), players, ledger.Options{})
	require.NoError(t, err)
	return l
}

func TestRecordScoreUpsertsLastWriteWins(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.RecordScore("bob", 1, 6))
	require.NoError(t, l.RecordScore("bob", 1, 5))

	gross, ok := l.Gross("bob", 1)
	require.True(t, ok)
	assert.Equal(t, 5, gross)

	net, ok := l.Net("bob", 1)
	require.True(t, ok)
	assert.Equal(t, 3, net, "handicap 20 receives two strokes on the hardest hole")
	assert.Len(t, l.ScoresThrough("bob"), 1)
}

func TestNetRequiresGross(t *testing.T) {
	l := newLedger(t)
	_, ok := l.Net("ann", 3)
	assert.False(t, ok)
}

func TestRecordRejectsBadInput(t *testing.T) {
	l := newLedger(t)
	assert.ErrorIs(t, l.RecordScore("zed", 1, 4), domain.ErrUnknownPlayer)
	assert.ErrorIs(t, l.RecordScore("ann", 19, 4), domain.ErrUnknownHole)
	assert.ErrorIs(t, l.RecordScore("ann", 1, 0), domain.ErrInvalidScore)

	putts := 5
	err := l.Record(domain.HoleScore{PlayerID: "ann", Hole: 1, Gross: 4, Putts: &putts})
	assert.ErrorIs(t, err, domain.ErrInvalidScore)
}

func TestTotalsUseOnlyScoredHoles(t *testing.T) {
	l := newLedger(t)
	// Shotgun start: holes 10 and 3, out of order.
	require.NoError(t, l.RecordScore("bob", 10, 6))
	require.NoError(t, l.RecordScore("bob", 3, 4))

	totals := l.Totals("bob")
	assert.Equal(t, ledger.Totals{Gross: 10, Net: 8, ToPar: 3, NetToPar: 1, Thru: 2}, totals)

	entries := l.ScoresThrough("bob")
	require.Len(t, entries, 2)
	assert.Equal(t, 3, entries[0].Hole)
	assert.Equal(t, 10, entries[1].Hole)
}

func TestStableford(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.RecordScore("ann", 1, 3)) // birdie: 3
	require.NoError(t, l.RecordScore("ann", 2, 4)) // par: 2
	require.NoError(t, l.RecordScore("ann", 3, 7)) // quad: 0
	assert.Equal(t, 5, l.Stableford("ann"))
}

func TestDownstream(t *testing.T) {
	l := newLedger(t)
	assert.Equal(t, []int{17, 18}, l.Downstream(16))
	assert.Empty(t, l.Downstream(18))
	assert.Nil(t, l.Downstream(40))
}

func TestSnapshotIsIsolated(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.RecordScore("ann", 1, 4))
	snap := l.Snapshot()
	require.NoError(t, l.RecordScore("ann", 1, 7))
	require.NoError(t, l.RecordScore("ann", 2, 4))

	gross, _ := snap.Gross("ann", 1)
	assert.Equal(t, 4, gross)
	_, ok := snap.Gross("ann", 2)
	assert.False(t, ok)
}

func TestNewRejectsConfiguration(t *testing.T) {
	course := golftest.Course()
	course.Holes[0].Rank = 0
	_, err := ledger.New(course, golftest.Scratch("a"), ledger.Options{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = ledger.New(golftest.Course(), golftest.Scratch("a", "a"), ledger.Options{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestRemove(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.RecordScore("ann", 1, 4))
	l.Remove("ann", 1)
	assert.Equal(t, 0, l.Totals("ann").Thru)
}
