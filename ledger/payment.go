package ledger

import (
	"errors"
	"strings"
	"time"

	"auragold-backend/models"
	"auragold-backend/utils"
)

var (
	ErrInvalidAmount  = errors.New("payment amount must be positive")
	ErrOrderCancelled = errors.New("order is cancelled")
)

func TotalPaid(payments []models.Payment) float64 {
	total := 0.0
	for _, p := range payments {
		total += p.Amount
	}
	return utils.Round2(total)
}

// Balance is what the customer still owes, never negative.
func Balance(order models.Order) float64 {
	b := utils.Round2(order.TotalAmount - TotalPaid(order.Payments))
	if b < 0 {
		return 0
	}
	return b
}

// DeriveStatus computes the order status from payments and milestone
// lateness. A cancelled order stays cancelled.
func DeriveStatus(order models.Order, now time.Time) models.OrderStatus {
	if order.Status == models.OrderCancelled {
		return models.OrderCancelled
	}
	if TotalPaid(order.Payments) >= order.TotalAmount-utils.Epsilon {
		return models.OrderCompleted
	}
	if HasOverdue(order.PaymentPlan.Milestones, now) {
		return models.OrderOverdue
	}
	return models.OrderActive
}

// ApplyPayment returns a copy of order with payment appended, milestone
// statuses re-evaluated and the order status recomputed.
func ApplyPayment(order models.Order, payment models.Payment, now time.Time) (models.Order, error) {
	if order.Status == models.OrderCancelled {
		return order, ErrOrderCancelled
	}
	payment.Amount = utils.Round2(payment.Amount)
	if payment.Amount <= 0 {
		return order, ErrInvalidAmount
	}
	if payment.PaidAt.IsZero() {
		payment.PaidAt = now
	}
	if strings.TrimSpace(payment.Note) == "" {
		payment.Note = "Payment Received"
	}
	payment.OrderID = order.ID

	next := order.Clone()
	next.Payments = append(next.Payments, payment)
	next.PaymentPlan.Milestones = EvaluateMilestones(TotalPaid(next.Payments), next.PaymentPlan.Milestones)
	next.Status = DeriveStatus(next, now)
	return next, nil
}
