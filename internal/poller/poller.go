// Package poller watches open PIX charges against their gateways until
// they reach a terminal state or the payment window closes.
package poller

import (
	"context"
	"log"
	"sync"
	"time"

	"configas/config"
	"configas/internal/domain"
	"configas/internal/repository"
	"configas/internal/service"
	"configas/pkg/gateway"
)

// Manager runs one watcher goroutine per open charge. Starting a watcher
// for a charge that already has one replaces it, so a session never drives
// two concurrent polls for the same payment.
type Manager struct {
	cfg      *config.CheckoutConfig
	registry *gateway.Registry
	charges  *repository.ChargeRepository
	payments *service.PaymentService

	mu       sync.Mutex
	watchers map[uint]*watcher
	wg       sync.WaitGroup
}

type watcher struct {
	cancel context.CancelFunc
}

func NewManager(cfg *config.CheckoutConfig, registry *gateway.Registry, charges *repository.ChargeRepository, payments *service.PaymentService) *Manager {
	return &Manager{
		cfg:      cfg,
		registry: registry,
		charges:  charges,
		payments: payments,
		watchers: make(map[uint]*watcher),
	}
}

// Watch starts (or restarts) the poll loop for a charge. Each start grants
// a full payment window; a watcher resumed after a restart behaves like a
// shopper reloading the page.
func (m *Manager) Watch(ctx context.Context, chargeID uint) {
	watchCtx, cancel := context.WithTimeout(ctx, m.cfg.PollTimeout)
	w := &watcher{cancel: cancel}

	m.mu.Lock()
	if prev, ok := m.watchers[chargeID]; ok {
		prev.cancel()
	}
	m.watchers[chargeID] = w
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.release(chargeID, w)
		m.run(watchCtx, chargeID)
	}()
}

// Stop cancels the watcher for a charge, if one is running. Used when a
// webhook settles the charge before the poller does.
func (m *Manager) Stop(chargeID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.watchers[chargeID]; ok {
		w.cancel()
		delete(m.watchers, chargeID)
	}
}

// Shutdown cancels every watcher and waits for the loops to drain.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	for id, w := range m.watchers {
		w.cancel()
		delete(m.watchers, id)
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// Resume restarts watchers for charges that were open when the process
// last stopped. Charges past the payment window are expired in bulk first.
func (m *Manager) Resume(ctx context.Context) error {
	cutoff := time.Now().Add(-m.cfg.PendingTTL)
	expired, err := m.charges.ExpireOlderThan(cutoff)
	if err != nil {
		return err
	}
	if expired > 0 {
		log.Printf("[Poller] expired %d stale charges on startup", expired)
	}
	resumable, err := m.charges.ListResumable(cutoff)
	if err != nil {
		return err
	}
	for _, c := range resumable {
		m.Watch(ctx, c.ID)
	}
	if len(resumable) > 0 {
		log.Printf("[Poller] resumed %d charge watchers", len(resumable))
	}
	return nil
}

func (m *Manager) release(chargeID uint, w *watcher) {
	w.cancel()
	m.mu.Lock()
	if m.watchers[chargeID] == w {
		delete(m.watchers, chargeID)
	}
	m.mu.Unlock()
}

func (m *Manager) run(ctx context.Context, chargeID uint) {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				if charge, err := m.charges.GetByID(chargeID); err == nil {
					m.payments.HandleExpired(charge)
				}
			}
			return
		case <-ticker.C:
			if done := m.poll(ctx, chargeID); done {
				return
			}
		}
	}
}

// poll runs one status check. Transient errors are logged and the loop
// continues; only a terminal status or a terminal local state ends it.
func (m *Manager) poll(ctx context.Context, chargeID uint) bool {
	charge, err := m.charges.GetByID(chargeID)
	if err != nil {
		log.Printf("[Poller] load charge %d: %v", chargeID, err)
		return false
	}
	if domain.IsTerminal(charge.Status) {
		return true
	}
	provider, ok := m.registry.Provider(charge.Gateway)
	if !ok {
		log.Printf("[Poller] charge %d references unknown gateway %q", charge.ID, charge.Gateway)
		return true
	}
	status, err := provider.ChargeStatus(ctx, charge.ProviderRef)
	if err != nil {
		log.Printf("[Poller] status check charge=%d gateway=%s: %v", charge.ID, charge.Gateway, err)
		return false
	}
	switch status.Status {
	case domain.StatusPaid:
		if err := m.payments.HandlePaid(ctx, charge.ID, status.PaidAt); err != nil {
			log.Printf("[Poller] settle charge %d: %v", charge.ID, err)
			return false
		}
		return true
	case domain.StatusRefused:
		m.payments.HandleRefused(charge)
		return true
	default:
		return false
	}
}
