package ws_test

import (
	"encoding/json"
	"testing"

	"configas/internal/ws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifySessionReachesAllSessionClients(t *testing.T) {
	hub := ws.NewHub()
	a := &ws.Client{SessionID: "sess-1", Send: make(chan []byte, 1)}
	b := &ws.Client{SessionID: "sess-1", Send: make(chan []byte, 1)}
	other := &ws.Client{SessionID: "sess-2", Send: make(chan []byte, 1)}
	hub.Register(a)
	hub.Register(b)
	hub.Register(other)

	hub.NotifySession("sess-1", ws.StatusEvent{Type: "paid", ChargeID: 7, Leg: "main", AmountCents: 8870})

	for _, c := range []*ws.Client{a, b} {
		select {
		case raw := <-c.Send:
			var event ws.StatusEvent
			require.NoError(t, json.Unmarshal(raw, &event))
			assert.Equal(t, "paid", event.Type)
			assert.Equal(t, uint(7), event.ChargeID)
		default:
			t.Fatal("expected an event for the session's client")
		}
	}
	select {
	case <-other.Send:
		t.Fatal("event leaked to another session")
	default:
	}
}

func TestNotifySessionSkipsFullClients(t *testing.T) {
	hub := ws.NewHub()
	c := &ws.Client{SessionID: "sess-1", Send: make(chan []byte)} // unbuffered, nobody reading
	hub.Register(c)

	// Must not block.
	hub.NotifySession("sess-1", ws.StatusEvent{Type: "expired", ChargeID: 1})
}

func TestCloseUnregisters(t *testing.T) {
	hub := ws.NewHub()
	c := &ws.Client{SessionID: "sess-1", Send: make(chan []byte, 1)}
	hub.Register(c)
	c.Close()

	hub.NotifySession("sess-1", ws.StatusEvent{Type: "paid", ChargeID: 1})
	_, open := <-c.Send
	assert.False(t, open, "closed client channel should be drained and closed")
}
