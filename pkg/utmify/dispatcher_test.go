package utmify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"configas/internal/domain"
	"configas/internal/store"
	"configas/pkg/utmify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	calls    int
	failures int
	orderIDs []string
}

func (f *fakeSender) SendOrder(_ context.Context, payload *utmify.OrderPayload) error {
	f.calls++
	f.orderIDs = append(f.orderIDs, payload.OrderID)
	if f.calls <= f.failures {
		return errors.New("collector unavailable")
	}
	return nil
}

func newDispatcher(failures int) (*utmify.Dispatcher, *fakeSender, *store.MemoryStore) {
	sender := &fakeSender{failures: failures}
	st := store.NewMemoryStore()
	d := utmify.NewDispatcher(sender, st)
	d.Backoff = time.Millisecond
	return d, sender, st
}

func payload(orderID string) *utmify.OrderPayload {
	return &utmify.OrderPayload{OrderID: orderID, Status: domain.StatusWaitingPayment}
}

func TestSendPendingRetriesTwice(t *testing.T) {
	d, sender, _ := newDispatcher(10)
	err := d.Send(context.Background(), "sess-1", domain.LegMain, domain.EventPending, payload("ord-1"))
	assert.Error(t, err)
	assert.Equal(t, 2, sender.calls)
}

func TestSendPaidRetriesFiveTimesAndQueuesReplay(t *testing.T) {
	d, sender, st := newDispatcher(10)
	err := d.Send(context.Background(), "sess-1", domain.LegMain, domain.EventPaid, payload("ord-1"))
	assert.Error(t, err)
	assert.Equal(t, 5, sender.calls)

	_, queued := st.Get(store.RetryKey("sess-1"))
	assert.True(t, queued, "an exhausted paid delivery must be queued for replay")
}

func TestSendSucceedsWithinRetryBudget(t *testing.T) {
	d, sender, st := newDispatcher(3)
	err := d.Send(context.Background(), "sess-1", domain.LegMain, domain.EventPaid, payload("ord-1"))
	require.NoError(t, err)
	assert.Equal(t, 4, sender.calls)

	_, queued := st.Get(store.RetryKey("sess-1"))
	assert.False(t, queued)
}

func TestSendDeduplicates(t *testing.T) {
	d, sender, _ := newDispatcher(0)
	ctx := context.Background()
	require.NoError(t, d.Send(ctx, "sess-1", domain.LegMain, domain.EventPending, payload("ord-1")))
	require.NoError(t, d.Send(ctx, "sess-1", domain.LegMain, domain.EventPending, payload("ord-1")))
	assert.Equal(t, 1, sender.calls, "a sent event must not be sent again")

	require.NoError(t, d.Send(ctx, "sess-1", domain.LegMain, domain.EventPaid, payload("ord-1")))
	require.NoError(t, d.Send(ctx, "sess-1", domain.LegMain, domain.EventPaid, payload("ord-1")))
	assert.Equal(t, 2, sender.calls)
}

func TestSendFlagsArePerLeg(t *testing.T) {
	d, sender, _ := newDispatcher(0)
	ctx := context.Background()
	require.NoError(t, d.Send(ctx, "sess-1", domain.LegMain, domain.EventPaid, payload("ord-1")))
	require.NoError(t, d.Send(ctx, "sess-1", domain.LegTax, domain.EventPaid, payload("ord-1-tax")))
	assert.Equal(t, 2, sender.calls, "the tax leg tracks its own sent flags")
}

func TestSendSavesBasePayloadForMainPending(t *testing.T) {
	d, _, st := newDispatcher(0)
	require.NoError(t, d.Send(context.Background(), "sess-1", domain.LegMain, domain.EventPending, payload("ord-1")))

	var saved utmify.OrderPayload
	require.True(t, store.GetJSON(st, store.PayloadKey("sess-1"), &saved))
	assert.Equal(t, "ord-1", saved.OrderID)
}

func TestReplayResendsAndClearsQueue(t *testing.T) {
	d, sender, st := newDispatcher(5)
	ctx := context.Background()
	require.Error(t, d.Send(ctx, "sess-1", domain.LegMain, domain.EventPaid, payload("ord-1")))
	require.Equal(t, 5, sender.calls)

	d.Replay(ctx, "sess-1")
	assert.Equal(t, 6, sender.calls)
	assert.Equal(t, "ord-1", sender.orderIDs[len(sender.orderIDs)-1])

	_, queued := st.Get(store.RetryKey("sess-1"))
	assert.False(t, queued, "a replayed record must be cleared")
}

func TestReplayNoopWithoutQueue(t *testing.T) {
	d, sender, _ := newDispatcher(0)
	d.Replay(context.Background(), "sess-9")
	assert.Zero(t, sender.calls)
}
