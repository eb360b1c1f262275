package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trentd187/golf-wagers/internal/metrics"
	"github.com/trentd187/golf-wagers/internal/settlement"
)

type message struct {
	subject string
	data    []byte
}

type fakeConn struct {
	sent    []message
	failOn  string
	flushes int
	drained bool
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	if subj == f.failOn {
		return errors.New("nats: connection closed")
	}
	f.sent = append(f.sent, message{subject: subj, data: data})
	return nil
}

func (f *fakeConn) Flush() error {
	f.flushes++
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func events() []settlement.Event {
	return []settlement.Event{
		{RoundID: "r-42", BetID: "s1", Kind: "skins", Status: settlement.StatusCompleted},
		{RoundID: "r-42", BetID: "n1", SubBetID: "front", Kind: "nassau", Status: settlement.StatusPushed},
	}
}

func TestPublishSendsOneMessagePerEvent(t *testing.T) {
	fc := &fakeConn{}
	p := newNATS(fc, "")
	before := testutil.ToFloat64(metrics.SettlementEventsPublished.WithLabelValues("completed"))

	require.NoError(t, p.Publish(context.Background(), events()))

	require.Len(t, fc.sent, 2)
	assert.Equal(t, "golf.settlement.r-42.completed", fc.sent[0].subject)
	assert.Equal(t, "golf.settlement.r-42.pushed", fc.sent[1].subject)
	assert.Equal(t, 1, fc.flushes)

	var got settlement.Event
	require.NoError(t, json.Unmarshal(fc.sent[1].data, &got))
	assert.Equal(t, "front", got.SubBetID)

	after := testutil.ToFloat64(metrics.SettlementEventsPublished.WithLabelValues("completed"))
	assert.Equal(t, before+1, after)
}

func TestPublishStopsAtFirstFailure(t *testing.T) {
	fc := &fakeConn{failOn: "golf.r-42.completed"}
	p := newNATS(fc, "golf.")

	err := p.Publish(context.Background(), events())
	require.Error(t, err)
	assert.Empty(t, fc.sent)
	assert.Zero(t, fc.flushes)
}

func TestSubjectTokensAreSanitised(t *testing.T) {
	p := newNATS(&fakeConn{}, "x")
	assert.Equal(t, "x.round_1_a.void", p.Subject(settlement.Event{RoundID: "round.1 a", Status: settlement.StatusVoid}))
	assert.Equal(t, "x._.pending", p.Subject(settlement.Event{Status: settlement.StatusPending}))
}

func TestNoopAndClose(t *testing.T) {
	p, err := Connect("", "")
	require.NoError(t, err)
	assert.IsType(t, Noop{}, p)
	assert.NoError(t, p.Publish(context.Background(), events()))
	p.Close()

	fc := &fakeConn{}
	newNATS(fc, "").Close()
	assert.True(t, fc.drained)
	assert.NoError(t, newNATS(fc, "").Publish(context.Background(), nil))
	assert.Zero(t, fc.flushes)
}
