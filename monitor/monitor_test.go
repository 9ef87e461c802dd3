package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"auragold-backend/ledger"
	"auragold-backend/models"
	"auragold-backend/outbox"
	"auragold-backend/protection"
	"auragold-backend/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type memStore struct {
	mu       sync.Mutex
	orders   []models.Order
	commits  []store.Change
	conflict map[string]bool
	listErr  error
}

func (s *memStore) ListOrders(context.Context) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.Order, len(s.orders))
	for i, o := range s.orders {
		out[i] = o.Clone()
	}
	return out, nil
}

func (s *memStore) Commit(_ context.Context, change store.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range change.Orders {
		if s.conflict[o.ID] {
			return fmt.Errorf("order %s: %w", o.ID, store.ErrConflict)
		}
	}
	for _, o := range change.Orders {
		for i := range s.orders {
			if s.orders[i].ID == o.ID {
				o.Version++
				s.orders[i] = o
			}
		}
	}
	s.commits = append(s.commits, change)
	return nil
}

type fixedRate float64

func (r fixedRate) MarketRate(context.Context) (float64, error) { return float64(r), nil }

type journal struct {
	mu         sync.Mutex
	errors     []string
	remembered []models.ActivityLog
}

func (j *journal) Capture(source, message string, _ models.ErrorSeverity) string {
	j.mu.Lock()
	j.errors = append(j.errors, source+": "+message)
	j.mu.Unlock()
	return "e"
}

func (j *journal) NewActivity(action models.ActivityType, details string, _ any) models.ActivityLog {
	return models.ActivityLog{ID: "act-" + details, ActionType: action, Details: details}
}

func (j *journal) Remember(acts ...models.ActivityLog) {
	j.mu.Lock()
	j.remembered = append(j.remembered, acts...)
	j.mu.Unlock()
}

func protectedOrder(id string, due time.Time) models.Order {
	ms := []models.Milestone{{Seq: 0, DueDate: due, TargetAmount: 20000, CumulativeTarget: 20000}}
	return models.Order{
		ID:              id,
		ShareToken:      "tok-" + id,
		CustomerName:    "Customer " + id,
		CustomerContact: "98765" + id,
		Items:           []models.JewelryItem{{NetWeight: 10}},
		TotalAmount:     20000,
		Status:          models.OrderActive,
		PaymentPlan: models.PaymentPlan{
			Milestones:           ledger.EvaluateMilestones(0, ms),
			GoldRateProtection:   true,
			ProtectionRateBooked: 6600,
			ProtectionLimit:      500,
			ProtectionStatus:     models.ProtectionActive,
		},
	}
}

func TestTickSingleOverdueMilestoneBelowThreshold(t *testing.T) {
	st := &memStore{orders: []models.Order{protectedOrder("1", now.Add(-24*time.Hour))}}
	j := &journal{}
	m := New(st, fixedRate(6800), j, time.Minute)

	report, err := m.Tick(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Changed)
	assert.Equal(t, 1, report.Queued)
	assert.Equal(t, 0, report.Warnings)

	require.Len(t, st.commits, 1)
	change := st.commits[0]
	require.Len(t, change.Orders, 1)
	plan := change.Orders[0].PaymentPlan
	assert.Equal(t, models.ProtectionWarning, plan.ProtectionStatus)
	require.NotNil(t, plan.GracePeriodEndAt)
	assert.True(t, plan.GracePeriodEndAt.Equal(now.Add(protection.GracePeriod)))
	assert.Equal(t, 20000.0, change.Orders[0].TotalAmount)

	require.Len(t, change.Outbox, 1)
	assert.Equal(t, outbox.TemplatePaymentRequest, change.Outbox[0].Template)
	require.Len(t, change.Notifications, 1)
	assert.Equal(t, change.Outbox[0].ID, change.Notifications[0].OutboxID)
	assert.Len(t, j.remembered, 1)
}

func TestTickTwiceSameInstantIsIdempotent(t *testing.T) {
	st := &memStore{orders: []models.Order{
		protectedOrder("1", now.Add(-24*time.Hour)),
		protectedOrder("2", now.Add(24*time.Hour)),
	}}
	m := New(st, fixedRate(7300), &journal{}, time.Minute)

	first, err := m.Tick(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Changed)
	assert.Equal(t, 1, first.Warnings)

	second, err := m.Tick(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Changed)
	assert.Len(t, st.commits, 1)
}

func TestTickWritesNothingWhenNothingChanged(t *testing.T) {
	off := protectedOrder("1", now.Add(-24*time.Hour))
	off.PaymentPlan.GoldRateProtection = false
	cancelled := protectedOrder("2", now.Add(-24*time.Hour))
	cancelled.Status = models.OrderCancelled
	st := &memStore{orders: []models.Order{off, cancelled}}

	report, err := New(st, fixedRate(9000), &journal{}, 0).Tick(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Evaluated)
	assert.Empty(t, st.commits)
}

func TestTickLapseAfterGrace(t *testing.T) {
	st := &memStore{orders: []models.Order{protectedOrder("1", now.Add(-24*time.Hour))}}
	m := New(st, fixedRate(7200), &journal{}, time.Minute)

	_, err := m.Tick(context.Background(), now)
	require.NoError(t, err)
	report, err := m.Tick(context.Background(), now.Add(protection.GracePeriod+time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Lapsed)

	lapsed := st.orders[0]
	assert.Equal(t, models.ProtectionLapsed, lapsed.PaymentPlan.ProtectionStatus)
	assert.Equal(t, models.OrderOverdue, lapsed.Status)
	assert.Equal(t, 26000.0, lapsed.TotalAmount)
	last := st.commits[len(st.commits)-1]
	require.Len(t, last.Outbox, 1)
	assert.Equal(t, outbox.TemplateProtectionLapsed, last.Outbox[0].Template)
}

func TestTickConflictCommitsOthersOneByOne(t *testing.T) {
	st := &memStore{
		orders: []models.Order{
			protectedOrder("1", now.Add(-24*time.Hour)),
			protectedOrder("2", now.Add(-24*time.Hour)),
		},
		conflict: map[string]bool{"1": true},
	}
	j := &journal{}
	report, err := New(st, fixedRate(6800), j, time.Minute).Tick(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Conflicts)
	require.Len(t, st.commits, 1)
	assert.Equal(t, "2", st.commits[0].Orders[0].ID)
	assert.Equal(t, models.ProtectionActive, st.orders[0].PaymentPlan.ProtectionStatus)
	assert.Len(t, j.remembered, 1)
}

func TestTickListErrorIsCaptured(t *testing.T) {
	st := &memStore{listErr: errors.New("connection refused")}
	j := &journal{}
	_, err := New(st, fixedRate(6600), j, time.Minute).Tick(context.Background(), now)
	require.Error(t, err)
	require.Len(t, j.errors, 1)
	assert.Contains(t, j.errors[0], "connection refused")
}

func TestStartStop(t *testing.T) {
	st := &memStore{orders: []models.Order{protectedOrder("1", now.Add(-24*time.Hour))}}
	m := New(st, fixedRate(6800), &journal{}, time.Hour)
	m.now = func() time.Time { return now }

	m.Start(context.Background())
	m.Start(context.Background())
	require.Eventually(t, func() bool {
		st.mu.Lock()
		defer st.mu.Unlock()
		return len(st.commits) == 1
	}, time.Second, 5*time.Millisecond)
	m.Stop()
	m.Stop()
}
