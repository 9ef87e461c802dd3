package controllers

import (
	"fmt"
	"strings"

	"auragold-backend/ledger"
	"auragold-backend/models"
	"auragold-backend/outbox"
	"auragold-backend/store"

	"github.com/gofiber/fiber/v2"
)

type ReminderDraftDTO struct {
	Kind  string `json:"kind"`
	Store bool   `json:"store"`
}

// GET /api/system/errors
func (h *Handler) ListErrors(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"errors": h.Journal.Errors()})
}

// DELETE /api/system/errors
func (h *Handler) ClearErrors(c *fiber.Ctx) error {
	if err := h.Journal.ClearErrors(c.UserContext()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GET /api/system/activity
func (h *Handler) ListActivity(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"activities": h.Journal.Activities()})
}

// DELETE /api/system/activity
func (h *Handler) ClearActivity(c *fiber.Ctx) error {
	if err := h.Journal.ClearActivities(c.UserContext()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// POST /api/monitor/sweep
// Runs one protection sweep now. It shares the serialization of the
// scheduled sweeps.
func (h *Handler) Sweep(c *fiber.Ctx) error {
	report, err := h.Monitor.Tick(c.UserContext(), h.now())
	if err != nil {
		return err
	}
	return c.JSON(report)
}

// GET /api/collections/risk
func (h *Handler) CollectionRisk(c *fiber.Ctx) error {
	orders, err := h.Store.ListOrders(c.UserContext())
	if err != nil {
		return err
	}
	overdue := make([]models.Order, 0)
	for _, o := range orders {
		if o.Status == models.OrderOverdue {
			overdue = append(overdue, o)
		}
	}
	advice, err := h.Advisor.AnalyzeCollectionRisk(c.UserContext(), overdue)
	if err != nil {
		h.Journal.Capture("GeminiService", "Collection analysis failed: "+err.Error(), models.SeverityLow)
	}
	return c.JSON(fiber.Map{"overdue": len(overdue), "advice": advice})
}

// POST /api/orders/:id/reminder-draft
// Asks the advisor for a collection message. With store set the draft is
// kept in the notification centre for review.
func (h *Handler) ReminderDraft(c *fiber.Ctx) error {
	var in ReminderDraftDTO
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}
	in.Kind = strings.ToUpper(strings.TrimSpace(in.Kind))
	ctx := c.UserContext()

	order, err := h.Store.GetOrder(ctx, c.Params("id"))
	if err != nil {
		return err
	}
	kind := models.NotificationType(in.Kind)
	switch kind {
	case models.NotifyUpcoming, models.NotifyOverdue, models.NotifySuccess:
	case "":
		kind = models.NotifyUpcoming
		if order.Status == models.OrderOverdue {
			kind = models.NotifyOverdue
		}
	default:
		return fiber.NewError(fiber.StatusBadRequest, "kind must be UPCOMING, OVERDUE or SUCCESS")
	}

	settings, err := h.Settings.LoadSettings(ctx)
	if err != nil {
		return err
	}
	draft, err := h.Advisor.DraftReminder(ctx, order, kind, settings.CurrentGoldRate22K)
	if err != nil {
		h.Journal.Capture("GeminiService", "Reminder draft failed: "+err.Error(), models.SeverityLow)
	}

	if in.Store {
		now := h.now()
		n := models.Notification{
			ID:           outbox.NewNotificationID(),
			Type:         kind,
			OrderID:      order.ID,
			CustomerName: order.CustomerName,
			Message:      draft.Message,
			Tone:         string(draft.Tone),
			Reasoning:    draft.Reasoning,
			Date:         now,
		}
		if err := h.commit(c, store.Change{Notifications: []models.Notification{n}}); err != nil {
			return err
		}
	}
	return c.JSON(fiber.Map{
		"draft":   draft,
		"balance": ledger.Balance(order),
		"message": fmt.Sprintf("Draft ready for %s", order.CustomerName),
	})
}
