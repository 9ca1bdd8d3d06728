package utmify

import (
	"context"
	"log"
	"time"

	"configas/internal/domain"
	"configas/internal/store"
)

// Sender is the client-side surface the dispatcher needs; satisfied by
// *Client and by test fakes.
type Sender interface {
	SendOrder(ctx context.Context, payload *OrderPayload) error
}

// SentFlags marks which lifecycle events already reached UTMify for one
// charge leg.
type SentFlags struct {
	Pending bool `json:"pending"`
	Paid    bool `json:"paid"`
}

// retryRecord is the best-effort durability measure for a paid event that
// exhausted its retries: it is replayed on the next checkout bootstrap.
type retryRecord struct {
	Kind    string        `json:"kind"`
	Payload *OrderPayload `json:"payload"`
}

// Dispatcher delivers conversion events with a fixed retry policy: 2
// attempts for pending, 5 for paid (the business-critical one), flat 2s
// backoff, deduplicated through persisted flags.
type Dispatcher struct {
	sender Sender
	store  store.Store
	// Backoff between attempts; overridable in tests.
	Backoff time.Duration
}

func NewDispatcher(sender Sender, st store.Store) *Dispatcher {
	return &Dispatcher{sender: sender, store: st, Backoff: 2 * time.Second}
}

func attemptsFor(kind string) int {
	if kind == domain.EventPaid {
		return 5
	}
	return 2
}

func flagsKey(sessionID, leg string) string {
	if leg == domain.LegTax {
		return store.TaxSentFlagsKey(sessionID)
	}
	return store.SentFlagsKey(sessionID)
}

// Send delivers one event for the given session and charge leg. Events
// already flagged as sent are skipped. The flags are re-read after the
// network call sequence before being updated, since webhook and poller
// paths interleave on the same record.
func (d *Dispatcher) Send(ctx context.Context, sessionID, leg, kind string, payload *OrderPayload) error {
	key := flagsKey(sessionID, leg)
	var flags SentFlags
	store.GetJSON(d.store, key, &flags)
	if kind == domain.EventPending && flags.Pending {
		log.Printf("[UTMify] pending already sent session=%s leg=%s, skipping", sessionID, leg)
		return nil
	}
	if kind == domain.EventPaid && flags.Paid {
		log.Printf("[UTMify] paid already sent session=%s leg=%s, skipping", sessionID, leg)
		return nil
	}

	if kind == domain.EventPending && leg == domain.LegMain {
		// The pending payload is the base the paid event reuses.
		if err := store.SetJSON(d.store, store.PayloadKey(sessionID), payload); err != nil {
			log.Printf("[UTMify] save base payload: %v", err)
		}
	}

	err := d.attempt(ctx, kind, payload)
	if err != nil {
		if kind == domain.EventPaid {
			rec := retryRecord{Kind: kind, Payload: payload}
			if saveErr := store.SetJSON(d.store, store.RetryKey(sessionID), rec); saveErr != nil {
				log.Printf("[UTMify] save retry record: %v", saveErr)
			} else {
				log.Printf("[UTMify] paid delivery failed, queued for replay session=%s", sessionID)
			}
		}
		return err
	}

	flags = SentFlags{}
	store.GetJSON(d.store, key, &flags)
	switch kind {
	case domain.EventPending:
		flags.Pending = true
	case domain.EventPaid:
		flags.Paid = true
	}
	if err := store.SetJSON(d.store, key, flags); err != nil {
		log.Printf("[UTMify] save sent flags: %v", err)
	}
	log.Printf("[UTMify] %s sent session=%s leg=%s order=%s", kind, sessionID, leg, payload.OrderID)
	return nil
}

func (d *Dispatcher) attempt(ctx context.Context, kind string, payload *OrderPayload) error {
	maxAttempts := attemptsFor(kind)
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = d.sender.SendOrder(ctx, payload)
		if lastErr == nil {
			return nil
		}
		log.Printf("[UTMify] %s attempt %d/%d failed: %v", kind, attempt, maxAttempts, lastErr)
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.Backoff):
		}
	}
	return lastErr
}

// Replay resends a queued paid event left over from a previous visit and
// clears it on success. Called on checkout bootstrap.
func (d *Dispatcher) Replay(ctx context.Context, sessionID string) {
	var rec retryRecord
	if !store.GetJSON(d.store, store.RetryKey(sessionID), &rec) || rec.Payload == nil {
		return
	}
	log.Printf("[UTMify] replaying queued %s event session=%s order=%s", rec.Kind, sessionID, rec.Payload.OrderID)
	if err := d.attempt(ctx, rec.Kind, rec.Payload); err != nil {
		log.Printf("[UTMify] replay failed session=%s: %v", sessionID, err)
		return
	}
	d.store.Delete(store.RetryKey(sessionID))
}
