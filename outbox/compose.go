package outbox

import (
	"fmt"
	"math"
	"strings"
	"time"

	"auragold-backend/ledger"
	"auragold-backend/models"
	"auragold-backend/protection"
	"auragold-backend/utils"

	"github.com/oklog/ulid/v2"
)

const (
	Language = "en_US"

	TemplateOrderConfirmation = "auragold_order_confirmation"
	TemplatePaymentRequest    = "auragold_payment_request"
	TemplateProductionUpdate  = "auragold_production_update"
	TemplateRateWarning       = "auragold_rate_warning"
	TemplateProtectionLapsed  = "auragold_protection_lapsed"
)

// Envelope is a queued message together with the notification centre entry
// that announces it.
type Envelope struct {
	Message      models.OutboxMessage
	Notification *models.Notification
}

func newID(prefix string) string {
	return prefix + "-" + ulid.Make().String()
}

// NewNotificationID returns an id for a notification that has no outbox row.
func NewNotificationID() string {
	return newID("NT")
}

func template(order models.Order, name, msgContext string, vars []string, now time.Time) models.OutboxMessage {
	return models.OutboxMessage{
		ID:           newID("OB"),
		Kind:         models.OutboxTemplate,
		OrderID:      order.ID,
		Phone:        order.CustomerContact,
		CustomerName: order.CustomerName,
		Template:     name,
		Language:     Language,
		Variables:    vars,
		Context:      msgContext,
		Status:       models.OutboxPending,
		CreatedAt:    now,
	}
}

func notice(msg models.OutboxMessage, kind models.NotificationType, text string, now time.Time) *models.Notification {
	return &models.Notification{
		ID:           newID("NT"),
		Type:         kind,
		OrderID:      msg.OrderID,
		CustomerName: msg.CustomerName,
		Message:      text,
		OutboxID:     msg.ID,
		Date:         now,
	}
}

func milestoneBySeq(order models.Order, seq int) models.Milestone {
	for _, m := range order.PaymentPlan.Milestones {
		if m.Seq == seq {
			return m
		}
	}
	return models.Milestone{Seq: seq}
}

// DaysLeft is the number of whole days, rounded up, until the grace period
// ends. It is 0 when there is no grace deadline or it has passed.
func DaysLeft(plan models.PaymentPlan, now time.Time) int {
	if plan.GracePeriodEndAt == nil {
		return 0
	}
	days := math.Ceil(plan.GracePeriodEndAt.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return int(days)
}

// ForIntent turns a protection intent into the message to queue. order is the
// state after the transition that raised the intent.
func ForIntent(order models.Order, intent protection.Intent, marketRate float64, now time.Time) Envelope {
	m := milestoneBySeq(order, intent.MilestoneSeq)
	switch intent.Kind {
	case protection.RateWarning:
		days := DaysLeft(order.PaymentPlan, now)
		msg := template(order, TemplateRateWarning, "Protection Rate Warning", []string{
			order.CustomerName,
			fmt.Sprintf("%.0f", marketRate),
			utils.FormatINR(m.TargetAmount),
			fmt.Sprint(days),
		}, now)
		text := fmt.Sprintf("Gold rate ₹%.0f/g crossed the protection limit for %s. Milestone of ₹%s is overdue, %d days left.",
			marketRate, order.CustomerName, utils.FormatINR(m.TargetAmount), days)
		return Envelope{Message: msg, Notification: notice(msg, models.NotifyProtectionWarning, text, now)}

	case protection.Lapse:
		msg := template(order, TemplateProtectionLapsed, "Protection Lapsed", []string{
			order.CustomerName,
			utils.FormatINR(order.TotalAmount),
		}, now)
		text := fmt.Sprintf("Gold rate protection lapsed for %s. New order total ₹%s.",
			order.CustomerName, utils.FormatINR(order.TotalAmount))
		return Envelope{Message: msg, Notification: notice(msg, models.NotifyProtectionLapse, text, now)}

	default:
		due := m.CumulativeTarget - ledger.TotalPaid(order.Payments)
		if due <= 0 || due > m.TargetAmount {
			due = m.TargetAmount
		}
		msg := template(order, TemplatePaymentRequest, "Grace Period Notice", []string{
			order.CustomerName,
			"₹" + utils.FormatINR(due),
			m.DueDate.Format("02 Jan 2006"),
			order.ShareToken,
		}, now)
		text := fmt.Sprintf("Payment of ₹%s from %s is overdue. Grace period of %d days started.",
			utils.FormatINR(due), order.CustomerName, DaysLeft(order.PaymentPlan, now))
		return Envelope{Message: msg, Notification: notice(msg, models.NotifyOverdue, text, now)}
	}
}

// Receipt is the text confirmation sent after a payment is recorded. order is
// the state including the payment.
func Receipt(order models.Order, payment models.Payment, now time.Time) Envelope {
	short := order.ID
	if len(short) > 6 {
		short = short[len(short)-6:]
	}
	body := fmt.Sprintf("Payment Received: ₹%s for Order #%s.\nDate: %s\nMode: %s\nBalance: ₹%s.\nThank you! - AuraGold",
		utils.FormatINR(payment.Amount), strings.ToUpper(short), payment.PaidAt.Format("02 Jan 2006"),
		payment.Method, utils.FormatINR(ledger.Balance(order)))
	msg := models.OutboxMessage{
		ID:           newID("OB"),
		Kind:         models.OutboxText,
		OrderID:      order.ID,
		Phone:        order.CustomerContact,
		CustomerName: order.CustomerName,
		Body:         body,
		Context:      "Payment Receipt",
		Status:       models.OutboxPending,
		CreatedAt:    now,
	}
	text := fmt.Sprintf("Received ₹%s from %s.", utils.FormatINR(payment.Amount), order.CustomerName)
	return Envelope{Message: msg, Notification: notice(msg, models.NotifySuccess, text, now)}
}

// OrderConfirmation is queued when an order is booked.
func OrderConfirmation(order models.Order, now time.Time) Envelope {
	msg := template(order, TemplateOrderConfirmation, "Order Confirmation", []string{
		order.CustomerName,
		order.ID,
		"₹" + utils.FormatINR(order.TotalAmount),
		order.ShareToken,
	}, now)
	return Envelope{Message: msg}
}

// ProductionUpdate is queued when an item moves to a new production stage.
func ProductionUpdate(order models.Order, item models.JewelryItem, now time.Time) Envelope {
	msg := template(order, TemplateProductionUpdate, "Production Update", []string{
		order.CustomerName,
		item.Category,
		string(item.ProductionStatus),
		order.ShareToken,
	}, now)
	return Envelope{Message: msg}
}

// Collect flattens envelopes into the outbox and notification rows of a
// store change.
func Collect(envs ...Envelope) ([]models.OutboxMessage, []models.Notification) {
	msgs := make([]models.OutboxMessage, 0, len(envs))
	var notes []models.Notification
	for _, e := range envs {
		msgs = append(msgs, e.Message)
		if e.Notification != nil {
			notes = append(notes, *e.Notification)
		}
	}
	return msgs, notes
}
