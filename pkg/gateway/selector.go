package gateway

import (
	"log"
	"math/rand"

	"configas/internal/store"
)

// sessionRecord is the persisted gateway choice for one checkout session.
type sessionRecord struct {
	GatewayID string `json:"gatewayId"`
}

// Selector picks a provider per checkout session. The choice is persisted
// only after the provider's first successful charge creation (Commit), so a
// customer is never stuck to a provider that just failed. Retries within a
// session then land on the same provider, which keeps duplicate-charge
// investigation on a single side.
type Selector struct {
	registry *Registry
	store    store.Store
}

func NewSelector(registry *Registry, st store.Store) *Selector {
	return &Selector{registry: registry, store: st}
}

// SelectRandom draws from the enabled providers with probability
// proportional to weight, by repeating each descriptor Weight times in the
// pool. Weights are small integers, so the pool stays tiny.
func (s *Selector) SelectRandom() (Descriptor, error) {
	enabled := s.registry.Enabled()
	if len(enabled) == 0 {
		return Descriptor{}, ErrNoGatewayEnabled
	}
	if len(enabled) == 1 {
		return enabled[0], nil
	}
	var pool []Descriptor
	for _, d := range enabled {
		for i := 0; i < d.Weight; i++ {
			pool = append(pool, d)
		}
	}
	return pool[rand.Intn(len(pool))], nil
}

// SessionGateway returns the committed provider for the session if it is
// still enabled; otherwise it clears the stale record and returns a fresh
// random pick WITHOUT persisting it. Persistence happens in Commit, after
// the charge creation succeeds.
func (s *Selector) SessionGateway(sessionID string) (Descriptor, error) {
	var rec sessionRecord
	if store.GetJSON(s.store, store.GatewayKey(sessionID), &rec) {
		if d, ok := s.registry.Lookup(rec.GatewayID); ok && d.Enabled {
			return d, nil
		}
		log.Printf("[Gateway] saved gateway no longer enabled, reselecting session=%s", sessionID)
		s.store.Delete(store.GatewayKey(sessionID))
	}
	return s.SelectRandom()
}

// Commit persists the provider for the session. Idempotent.
func (s *Selector) Commit(sessionID, gatewayID string) {
	rec := sessionRecord{GatewayID: gatewayID}
	if err := store.SetJSON(s.store, store.GatewayKey(sessionID), rec); err != nil {
		// Losing the sticky record only costs a reselection next time.
		log.Printf("[Gateway] commit session=%s: %v", sessionID, err)
	}
}

// NextFallback picks uniformly among enabled providers not in exclude, for
// retrying charge creation after a failure. Returns false when exhausted.
func (s *Selector) NextFallback(exclude map[string]bool) (Descriptor, bool) {
	var available []Descriptor
	for _, d := range s.registry.Enabled() {
		if !exclude[d.ID] {
			available = append(available, d)
		}
	}
	if len(available) == 0 {
		return Descriptor{}, false
	}
	return available[rand.Intn(len(available))], true
}

// Reset clears the session record; the next SessionGateway call reselects.
func (s *Selector) Reset(sessionID string) {
	s.store.Delete(store.GatewayKey(sessionID))
}

// SetManually commits the given provider if it exists and is enabled.
// Operator/debug affordance: reports false instead of erroring.
func (s *Selector) SetManually(sessionID, gatewayID string) bool {
	d, ok := s.registry.Lookup(gatewayID)
	if !ok {
		log.Printf("[Gateway] manual set: unknown gateway %s", gatewayID)
		return false
	}
	if !d.Enabled {
		log.Printf("[Gateway] manual set: gateway %s is disabled", gatewayID)
		return false
	}
	s.Commit(sessionID, gatewayID)
	return true
}

// TrackUsage bumps the per-gateway selection counter. Best effort.
func (s *Selector) TrackUsage(gatewayID string) {
	stats := s.UsageStats()
	stats[gatewayID]++
	if err := store.SetJSON(s.store, store.GatewayStatsKey, stats); err != nil {
		log.Printf("[Gateway] track usage: %v", err)
	}
}

// UsageStats returns selection counts per gateway, zeroed for gateways
// never used.
func (s *Selector) UsageStats() map[string]int {
	stats := make(map[string]int)
	for _, d := range s.registry.All() {
		stats[d.ID] = 0
	}
	var saved map[string]int
	if store.GetJSON(s.store, store.GatewayStatsKey, &saved) {
		for id, n := range saved {
			stats[id] = n
		}
	}
	return stats
}
