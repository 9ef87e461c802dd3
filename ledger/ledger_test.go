package ledger

import (
	"errors"
	"testing"
	"time"

	"auragold-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2025, 1, 31, 15, 30, 0, 0, time.UTC)

func sumTargets(ms []models.Milestone) float64 {
	total := 0.0
	for _, m := range ms {
		total += m.TargetAmount
	}
	return total
}

func TestGenerateMilestonesCumulativeInvariant(t *testing.T) {
	cases := []struct {
		total   float64
		months  int
		advance float64
	}{
		{100000, 3, 20},
		{123457.89, 6, 15},
		{99999.99, 12, 10},
		{5000, 0, 0},
		{70000, 7, 33},
	}
	for _, tc := range cases {
		ms := GenerateMilestones(tc.total, tc.months, tc.advance, start)
		months := tc.months
		if months < 1 {
			months = 1
		}
		require.Len(t, ms, months+1)
		last := ms[len(ms)-1]
		assert.InDelta(t, sumTargets(ms), last.CumulativeTarget, 0.001)
		assert.InDelta(t, tc.total, last.CumulativeTarget, 0.001)
		for i := 1; i < len(ms); i++ {
			assert.InDelta(t, ms[i-1].CumulativeTarget+ms[i].TargetAmount, ms[i].CumulativeTarget, 0.001)
			assert.True(t, ms[i].DueDate.After(ms[i-1].DueDate))
		}
	}
}

func TestGenerateMilestonesSchedule(t *testing.T) {
	ms := GenerateMilestones(100000, 3, 20, start)
	assert.Equal(t, 20000.0, ms[0].TargetAmount)
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), ms[0].DueDate)
	assert.Equal(t, 26667.0, ms[1].TargetAmount)
	assert.Equal(t, 26666.0, ms[3].TargetAmount)
	for i, m := range ms {
		assert.Equal(t, i, m.Seq)
		assert.Equal(t, models.MilestonePending, m.Status)
	}
}

func TestEvaluateMilestones(t *testing.T) {
	ms := GenerateMilestones(30000, 2, 0, start)
	// 0, 15000, 15000

	cases := []struct {
		paid float64
		want []models.MilestoneStatus
	}{
		{0, []models.MilestoneStatus{models.MilestonePaid, models.MilestonePending, models.MilestonePending}},
		{0.01, []models.MilestoneStatus{models.MilestonePaid, models.MilestonePending, models.MilestonePending}},
		{100, []models.MilestoneStatus{models.MilestonePaid, models.MilestonePartial, models.MilestonePending}},
		{15000, []models.MilestoneStatus{models.MilestonePaid, models.MilestonePaid, models.MilestonePending}},
		{15000.01, []models.MilestoneStatus{models.MilestonePaid, models.MilestonePaid, models.MilestonePending}},
		{15000.02, []models.MilestoneStatus{models.MilestonePaid, models.MilestonePaid, models.MilestonePartial}},
		{40000, []models.MilestoneStatus{models.MilestonePaid, models.MilestonePaid, models.MilestonePaid}},
	}
	for _, tc := range cases {
		out := EvaluateMilestones(tc.paid, ms)
		for i := range out {
			assert.Equal(t, tc.want[i], out[i].Status, "paid=%v milestone=%d", tc.paid, i)
		}
	}
}

func TestPaidCoversCumulativeMeansPaid(t *testing.T) {
	ms := GenerateMilestones(87654.32, 5, 12, start)
	for _, paid := range []float64{0, 1000, 10518, 30000, 52000.5, 87654.32} {
		out := EvaluateMilestones(paid, ms)
		for i, m := range out {
			if paid >= m.CumulativeTarget {
				assert.Equal(t, models.MilestonePaid, m.Status)
			}
			assert.Equal(t, ms[i].TargetAmount, m.TargetAmount)
		}
	}
}

func TestEvaluateMilestonesDoesNotMutate(t *testing.T) {
	ms := GenerateMilestones(1000, 1, 0, start)
	_ = EvaluateMilestones(1000, ms)
	assert.Equal(t, models.MilestonePending, ms[1].Status)
}

func TestBuildManualMilestones(t *testing.T) {
	in := []ManualMilestone{
		{DueDate: start.AddDate(0, 2, 0), TargetAmount: 3000},
		{DueDate: start, TargetAmount: 5000},
		{DueDate: start.AddDate(0, 1, 0), TargetAmount: 2000.5},
	}
	ms, err := BuildManualMilestones(in, 10000)
	require.NoError(t, err)
	require.Len(t, ms, 3)
	assert.Equal(t, 5000.0, ms[0].TargetAmount)
	assert.Equal(t, 2000.5, ms[1].TargetAmount)
	assert.Equal(t, 10000.5, ms[2].CumulativeTarget)

	_, err = BuildManualMilestones(in, 12000)
	assert.True(t, errors.Is(err, ErrAllocationMismatch))

	_, err = BuildManualMilestones([]ManualMilestone{{DueDate: start, TargetAmount: 0}}, 0)
	assert.True(t, errors.Is(err, ErrInvalidAmount))

	_, err = BuildManualMilestones(nil, 100)
	assert.Equal(t, ErrNoMilestones, err)
}

func TestPriceItem(t *testing.T) {
	rates := Rates{Rate24K: 7200, Rate22K: 6600}
	item := PriceItem(models.JewelryItem{
		NetWeight:            10,
		Purity:               "22K",
		WastagePercentage:    10,
		MakingChargesPerGram: 500,
		StoneCharges:         1000,
	}, rates, 3)

	assert.Equal(t, 66000.0, item.BaseMetalValue)
	assert.Equal(t, 6600.0, item.WastageValue)
	assert.Equal(t, 6000.0, item.TotalLaborValue)
	assert.Equal(t, 2358.0, item.TaxAmount)
	assert.Equal(t, 80958.0, item.FinalAmount)
	assert.Equal(t, models.ProductionDesigning, item.ProductionStatus)

	assert.Equal(t, "5400", rates.ForPurity("18K").String())
	assert.Equal(t, "7200", rates.ForPurity("24K").String())
}

func TestGrandTotal(t *testing.T) {
	items := []models.JewelryItem{{FinalAmount: 50000}, {FinalAmount: 25000.5}}
	assert.Equal(t, 80751.03, GrandTotal(items, 5, 2000.5))
	assert.Equal(t, 75000.5, GrandTotal(items, 0, 0))
}

func TestRepriceAddsDeltaOverAllGrams(t *testing.T) {
	order := models.Order{
		Items:               []models.JewelryItem{{NetWeight: 7.5}, {NetWeight: 2.5}},
		TotalAmount:         70000,
		OriginalTotalAmount: 70000,
		AdditionalCharges:   100,
		PaymentPlan:         models.PaymentPlan{ProtectionRateBooked: 6600, ProtectionLimit: 500},
	}
	delta := Reprice(&order, 7200)
	assert.Equal(t, 6000.0, delta)
	assert.Equal(t, 76000.0, order.TotalAmount)
	assert.Equal(t, 6100.0, order.AdditionalCharges)
}

func testOrder(now time.Time) models.Order {
	ms := []models.Milestone{
		{Seq: 0, DueDate: now.Add(-24 * time.Hour), TargetAmount: 4000},
		{Seq: 1, DueDate: now.Add(30 * 24 * time.Hour), TargetAmount: 6000},
	}
	rebuildCumulative(ms)
	return models.Order{
		ID:          "o1",
		TotalAmount: 10000,
		Status:      models.OrderActive,
		PaymentPlan: models.PaymentPlan{Milestones: EvaluateMilestones(0, ms)},
	}
}

func TestApplyPayment(t *testing.T) {
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	order := testOrder(now)
	assert.Equal(t, models.OrderOverdue, DeriveStatus(order, now))

	next, err := ApplyPayment(order, models.Payment{Amount: 4000, Method: "UPI"}, now)
	require.NoError(t, err)
	assert.Empty(t, order.Payments)
	require.Len(t, next.Payments, 1)
	assert.Equal(t, "Payment Received", next.Payments[0].Note)
	assert.Equal(t, now, next.Payments[0].PaidAt)
	assert.Equal(t, "o1", next.Payments[0].OrderID)
	assert.Equal(t, models.MilestonePaid, next.PaymentPlan.Milestones[0].Status)
	assert.Equal(t, models.OrderActive, next.Status)
	assert.Equal(t, 6000.0, Balance(next))

	done, err := ApplyPayment(next, models.Payment{Amount: 6000}, now)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, done.Status)
	assert.Equal(t, 0.0, Balance(done))
}

func TestApplyPaymentRejects(t *testing.T) {
	now := time.Now()
	order := testOrder(now)

	_, err := ApplyPayment(order, models.Payment{Amount: 0}, now)
	assert.Equal(t, ErrInvalidAmount, err)
	_, err = ApplyPayment(order, models.Payment{Amount: -5}, now)
	assert.Equal(t, ErrInvalidAmount, err)

	order.Status = models.OrderCancelled
	_, err = ApplyPayment(order, models.Payment{Amount: 100}, now)
	assert.Equal(t, ErrOrderCancelled, err)
}

func TestNewOrder(t *testing.T) {
	now := time.Date(2025, 2, 14, 10, 0, 0, 0, time.UTC)
	in := NewOrderInput{
		CustomerName:    " Anita ",
		CustomerContact: "9876543210",
		Items: []models.JewelryItem{{
			Category: "Ring", Purity: "22K", NetWeight: 10, WastagePercentage: 10, MakingChargesPerGram: 500,
		}},
		Rates:   Rates{Rate24K: 7200, Rate22K: 6600},
		TaxRate: 3,
		Plan: PlanInput{
			Type: models.PlanPreCreated, Months: 3, AdvancePercentage: 20,
			GoldRateProtection: true, ProtectionRateBooked: 6600, ProtectionLimit: 500,
		},
	}
	order, err := NewOrder(in, now)
	require.NoError(t, err)
	assert.Equal(t, "Anita", order.CustomerName)
	assert.NotEmpty(t, order.ID)
	assert.Len(t, order.ShareToken, 20)
	assert.Equal(t, models.OrderActive, order.Status)
	assert.Equal(t, order.TotalAmount, order.OriginalTotalAmount)

	plan := order.PaymentPlan
	require.Len(t, plan.Milestones, 4)
	assert.InDelta(t, order.TotalAmount, plan.Milestones[3].CumulativeTarget, 0.001)
	assert.Equal(t, plan.Milestones[3].DueDate, plan.ProtectionDeadline)
	assert.Equal(t, models.ProtectionActive, plan.ProtectionStatus)

	_, err = NewOrder(NewOrderInput{CustomerName: "x", CustomerContact: "1"}, now)
	assert.Equal(t, ErrEmptyCart, err)
	_, err = NewOrder(NewOrderInput{CustomerName: "x"}, now)
	assert.Equal(t, ErrMissingCustomer, err)
}
