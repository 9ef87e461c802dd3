package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"auragold-backend/models"
	"auragold-backend/outbox"
	"auragold-backend/protection"
	"auragold-backend/store"

	"github.com/romana/rlog"
)

const DefaultInterval = 60 * time.Second

type OrderStore interface {
	ListOrders(ctx context.Context) ([]models.Order, error)
	Commit(ctx context.Context, change store.Change) error
}

// RateSource gives the current 22K market rate.
type RateSource interface {
	MarketRate(ctx context.Context) (float64, error)
}

// Journal is where background errors and activity lines go.
type Journal interface {
	Capture(source, message string, severity models.ErrorSeverity) string
	NewActivity(action models.ActivityType, details string, metadata any) models.ActivityLog
	Remember(acts ...models.ActivityLog)
}

type SweepReport struct {
	At        time.Time `json:"at"`
	Rate      float64   `json:"market_rate"`
	Evaluated int       `json:"evaluated"`
	Changed   int       `json:"changed"`
	Warnings  int       `json:"warnings"`
	Lapsed    int       `json:"lapsed"`
	Restored  int       `json:"restored"`
	Queued    int       `json:"queued"`
	Conflicts int       `json:"conflicts"`
}

// Monitor periodically runs the protection state machine over every order.
// Ticks never overlap.
type Monitor struct {
	orders   OrderStore
	rates    RateSource
	journal  Journal
	interval time.Duration
	now      func() time.Time

	tick sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(orders OrderStore, rates RateSource, journal Journal, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		orders:   orders,
		rates:    rates,
		journal:  journal,
		interval: interval,
		now:      time.Now,
	}
}

type pending struct {
	change store.Change
	acts   []models.ActivityLog
}

// Tick evaluates every order once at now. Orders whose protection state
// changed are written together with their outbox messages; when nothing
// changed nothing is written.
func (m *Monitor) Tick(ctx context.Context, now time.Time) (SweepReport, error) {
	m.tick.Lock()
	defer m.tick.Unlock()

	report := SweepReport{At: now}
	rate, err := m.rates.MarketRate(ctx)
	if err != nil {
		m.journal.Capture("Protection Monitor", fmt.Sprintf("market rate unavailable: %v", err), models.SeverityMedium)
		return report, err
	}
	report.Rate = rate

	orders, err := m.orders.ListOrders(ctx)
	if err != nil {
		m.journal.Capture("Protection Monitor", fmt.Sprintf("could not load orders: %v", err), models.SeverityMedium)
		return report, err
	}

	var changes []pending
	for _, order := range orders {
		if order.Status == models.OrderCancelled {
			continue
		}
		report.Evaluated++
		res := protection.Evaluate(order, now, rate)
		if !res.Changed {
			continue
		}
		changes = append(changes, m.stage(res, rate, now, &report))
	}
	if len(changes) == 0 {
		return report, nil
	}

	merged := pending{}
	for _, p := range changes {
		merged.change.Orders = append(merged.change.Orders, p.change.Orders...)
		merged.change.Outbox = append(merged.change.Outbox, p.change.Outbox...)
		merged.change.Notifications = append(merged.change.Notifications, p.change.Notifications...)
		merged.change.Activities = append(merged.change.Activities, p.change.Activities...)
		merged.acts = append(merged.acts, p.acts...)
	}

	err = m.orders.Commit(ctx, merged.change)
	switch {
	case err == nil:
		m.journal.Remember(merged.acts...)
		return report, nil
	case !errors.Is(err, store.ErrConflict):
		m.journal.Capture("Protection Monitor", fmt.Sprintf("sweep commit failed: %v", err), models.SeverityCritical)
		return report, err
	}

	// An order was written concurrently. Commit the rest one by one; the
	// conflicting orders are evaluated again on the next tick.
	for _, p := range changes {
		err := m.orders.Commit(ctx, p.change)
		if errors.Is(err, store.ErrConflict) {
			report.Conflicts++
			rlog.Infof("Order %s changed during sweep, retrying next tick", p.change.Orders[0].ID)
			continue
		}
		if err != nil {
			m.journal.Capture("Protection Monitor", fmt.Sprintf("sweep commit failed: %v", err), models.SeverityCritical)
			return report, err
		}
		m.journal.Remember(p.acts...)
	}
	return report, nil
}

func (m *Monitor) stage(res protection.Result, rate float64, now time.Time, report *SweepReport) pending {
	order := res.Order
	report.Changed++
	if res.From != res.To {
		rlog.Infof("Order %s protection %s -> %s", order.ID, res.From, res.To)
		switch res.To {
		case models.ProtectionLapsed:
			report.Lapsed++
		case models.ProtectionActive:
			report.Restored++
		}
	}

	p := pending{change: store.Change{Orders: []models.Order{order}}}
	envs := make([]outbox.Envelope, 0, len(res.Intents))
	for _, intent := range res.Intents {
		if intent.Kind == protection.RateWarning {
			report.Warnings++
		}
		envs = append(envs, outbox.ForIntent(order, intent, rate, now))
	}
	p.change.Outbox, p.change.Notifications = outbox.Collect(envs...)
	report.Queued += len(envs)

	for _, line := range res.Activities {
		act := m.journal.NewActivity(models.ActivityStatusUpdate, line, map[string]any{
			"order_id":  order.ID,
			"from":      res.From,
			"to":        res.To,
			"repriced":  res.Repriced,
			"deltaCost": res.DeltaCost,
		})
		p.acts = append(p.acts, act)
	}
	p.change.Activities = p.acts
	return p
}

// Run ticks until ctx is cancelled. The first sweep runs immediately.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		if report, err := m.Tick(ctx, m.now()); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			rlog.Errorf("protection sweep failed: %v", err)
		} else if report.Changed > 0 {
			rlog.Infof("Protection sweep at rate %.0f: %d changed, %d queued", report.Rate, report.Changed, report.Queued)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Start runs the monitor in the background. Calling Start on a running
// monitor does nothing.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel, m.done = cancel, done
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()
}

// Stop cancels the background loop and waits for the current tick to end.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
