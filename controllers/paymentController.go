package controllers

import (
	"fmt"
	"strings"
	"time"

	"auragold-backend/ledger"
	"auragold-backend/middlewares"
	"auragold-backend/models"
	"auragold-backend/outbox"
	"auragold-backend/store"

	"github.com/gofiber/fiber/v2"
)

type PaymentCreateDTO struct {
	Amount      float64 `json:"amount" validate:"gt=0"`
	Method      string  `json:"method" validate:"required,max=32"`
	Date        string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Note        string  `json:"note" validate:"max=255"`
	SendReceipt *bool   `json:"send_receipt"`
}

// POST /api/orders/:id/payments
// The receipt is queued in the same transaction; whether it is delivered
// never affects the recorded payment.
func (h *Handler) CreatePayment(c *fiber.Ctx) error {
	var in PaymentCreateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	order, err := h.Store.GetOrder(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	now := h.now()
	payment := models.Payment{
		Amount: in.Amount,
		Method: strings.TrimSpace(in.Method),
		Note:   strings.TrimSpace(in.Note),
	}
	if in.Date != "" {
		day, err := time.Parse(dateLayout, in.Date)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payment date")
		}
		payment.PaidAt = day
	}

	next, err := ledger.ApplyPayment(order, payment, now)
	if err != nil {
		return err
	}
	recorded := next.Payments[len(next.Payments)-1]

	change := store.Change{
		Orders:   []models.Order{next},
		Payments: []models.Payment{recorded},
		Activities: []models.ActivityLog{h.Journal.NewActivity(models.ActivityPaymentReceived,
			fmt.Sprintf("Recorded ₹%.2f for %s", recorded.Amount, next.CustomerName),
			fiber.Map{"order_id": next.ID, "method": recorded.Method})},
	}
	if in.SendReceipt == nil || *in.SendReceipt {
		change.Outbox, change.Notifications = outbox.Collect(outbox.Receipt(next, recorded, now))
	}
	if err := h.commit(c, change); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"payment": recorded,
		"order":   next,
		"balance": ledger.Balance(next),
	})
}

// GET /api/orders/:id/payments
func (h *Handler) ListPayments(c *fiber.Ctx) error {
	order, err := h.Store.GetOrder(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"payments": order.Payments,
		"paid":     ledger.TotalPaid(order.Payments),
		"balance":  ledger.Balance(order),
	})
}
