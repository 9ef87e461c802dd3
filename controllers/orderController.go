package controllers

import (
	"fmt"
	"strings"
	"time"

	"auragold-backend/database"
	"auragold-backend/ledger"
	"auragold-backend/middlewares"
	"auragold-backend/models"
	"auragold-backend/outbox"
	"auragold-backend/store"

	"github.com/gofiber/fiber/v2"
)

const dateLayout = "2006-01-02"

type ManualMilestoneDTO struct {
	DueDate      string  `json:"due_date" validate:"required,datetime=2006-01-02"`
	TargetAmount float64 `json:"target_amount" validate:"gt=0"`
}

type PlanDTO struct {
	Type               string               `json:"type" validate:"required,oneof=PRE_CREATED MANUAL"`
	TemplateID         *uint                `json:"template_id"`
	Months             int                  `json:"months" validate:"gte=0,lte=60"`
	InterestPercentage float64              `json:"interest_percentage" validate:"gte=0"`
	AdvancePercentage  float64              `json:"advance_percentage" validate:"gte=0,lte=100"`
	Milestones         []ManualMilestoneDTO `json:"milestones" validate:"omitempty,dive"`
	GoldRateProtection bool                 `json:"gold_rate_protection"`
	ProtectionLimit    *float64             `json:"protection_limit" validate:"omitempty,gte=0"`
}

type OrderCreateDTO struct {
	CustomerName      string               `json:"customer_name" validate:"required"`
	CustomerContact   string               `json:"customer_contact" validate:"required,min=10,max=15"`
	SecondaryContact  string               `json:"secondary_contact" validate:"omitempty,max=15"`
	CustomerEmail     string               `json:"customer_email" validate:"omitempty,email"`
	Items             []models.JewelryItem `json:"items" validate:"required,min=1,dive"`
	AdditionalCharges float64              `json:"additional_charges" validate:"gte=0"`
	Plan              PlanDTO              `json:"plan"`
	SendConfirmation  *bool                `json:"send_confirmation"`
}

type ContactUpdateDTO struct {
	CustomerName     *string `json:"customer_name" validate:"omitempty,min=1"`
	CustomerContact  *string `json:"customer_contact" validate:"omitempty,min=10,max=15"`
	SecondaryContact *string `json:"secondary_contact" validate:"omitempty,max=15"`
	CustomerEmail    *string `json:"customer_email" validate:"omitempty,email"`
}

type ItemStatusDTO struct {
	Status string `json:"status" validate:"required,oneof=DESIGNING PRODUCTION QC READY DELIVERED"`
	Notify bool   `json:"notify"`
}

// commit writes change inside the request transaction and adds its
// activities to the in-memory feed once that transaction commits.
func (h *Handler) commit(c *fiber.Ctx, change store.Change) error {
	if err := h.Store.Commit(c.UserContext(), change); err != nil {
		return err
	}
	acts := change.Activities
	database.AfterCommit(c.UserContext(), func() { h.Journal.Remember(acts...) })
	return nil
}

func (h *Handler) planInput(c *fiber.Ctx, in PlanDTO, settings models.Settings) (ledger.PlanInput, error) {
	plan := ledger.PlanInput{
		Type:                 models.PlanType(in.Type),
		TemplateID:           in.TemplateID,
		Months:               in.Months,
		InterestPercentage:   in.InterestPercentage,
		AdvancePercentage:    in.AdvancePercentage,
		GoldRateProtection:   in.GoldRateProtection,
		ProtectionLimit:      settings.GoldRateProtectionMax,
		ProtectionRateBooked: settings.CurrentGoldRate22K,
	}
	if in.ProtectionLimit != nil {
		plan.ProtectionLimit = *in.ProtectionLimit
	}

	if plan.Type == models.PlanManual {
		for i, m := range in.Milestones {
			due, err := time.Parse(dateLayout, m.DueDate)
			if err != nil {
				return plan, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid due date at milestone %d", i))
			}
			plan.Manual = append(plan.Manual, ledger.ManualMilestone{DueDate: due, TargetAmount: m.TargetAmount})
		}
		return plan, nil
	}

	if in.TemplateID != nil {
		tpl, err := h.Store.GetPlanTemplate(c.UserContext(), *in.TemplateID)
		if err != nil {
			return plan, err
		}
		if !tpl.Enabled {
			return plan, fiber.NewError(fiber.StatusBadRequest, "plan template is disabled")
		}
		plan.Months = tpl.Months
		plan.InterestPercentage = tpl.InterestPercentage
		plan.AdvancePercentage = tpl.AdvancePercentage
	}
	if plan.Months < 1 {
		return plan, fiber.NewError(fiber.StatusBadRequest, "months must be at least 1")
	}
	return plan, nil
}

// POST /api/orders
func (h *Handler) CreateOrder(c *fiber.Ctx) error {
	var in OrderCreateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	ctx := c.UserContext()

	settings, err := h.Settings.LoadSettings(ctx)
	if err != nil {
		return err
	}
	plan, err := h.planInput(c, in.Plan, settings)
	if err != nil {
		return err
	}

	// Pricing is always recomputed; ids and production state start fresh.
	for i := range in.Items {
		in.Items[i].ID = ""
		in.Items[i].ProductionStatus = ""
	}

	now := h.now()
	order, err := ledger.NewOrder(ledger.NewOrderInput{
		CustomerName:      in.CustomerName,
		CustomerContact:   in.CustomerContact,
		SecondaryContact:  in.SecondaryContact,
		CustomerEmail:     in.CustomerEmail,
		Items:             in.Items,
		AdditionalCharges: in.AdditionalCharges,
		Rates:             ledger.Rates{Rate24K: settings.CurrentGoldRate24K, Rate22K: settings.CurrentGoldRate22K},
		TaxRate:           settings.DefaultTaxRate,
		Plan:              plan,
	}, now)
	if err != nil {
		return err
	}

	act := h.Journal.NewActivity(models.ActivityOrderCreated,
		fmt.Sprintf("Order created for %s (₹%.2f)", order.CustomerName, order.TotalAmount),
		fiber.Map{"order_id": order.ID})
	extra := store.Change{Activities: []models.ActivityLog{act}}
	if in.SendConfirmation == nil || *in.SendConfirmation {
		extra.Outbox, extra.Notifications = outbox.Collect(outbox.OrderConfirmation(order, now))
	}

	if err := h.Store.CreateOrder(ctx, &order, extra); err != nil {
		return err
	}
	database.AfterCommit(ctx, func() { h.Journal.Remember(act) })
	return c.Status(fiber.StatusCreated).JSON(order)
}

// GET /api/orders
func (h *Handler) ListOrders(c *fiber.Ctx) error {
	orders, err := h.Store.ListOrders(c.UserContext())
	if err != nil {
		return err
	}
	status := strings.ToUpper(strings.TrimSpace(c.Query("status")))
	if status != "" {
		filtered := orders[:0]
		for _, o := range orders {
			if string(o.Status) == status {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}
	return c.JSON(fiber.Map{"orders": orders, "message": "success"})
}

// GET /api/orders/:id
func (h *Handler) GetOrder(c *fiber.Ctx) error {
	order, err := h.Store.GetOrder(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"order":   order,
		"paid":    ledger.TotalPaid(order.Payments),
		"balance": ledger.Balance(order),
	})
}

// PUT /api/orders/:id/contact
func (h *Handler) UpdateContact(c *fiber.Ctx) error {
	var in ContactUpdateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	order, err := h.Store.GetOrder(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	next := order.Clone()
	if in.CustomerName != nil {
		next.CustomerName = strings.TrimSpace(*in.CustomerName)
	}
	if in.CustomerContact != nil {
		next.CustomerContact = strings.TrimSpace(*in.CustomerContact)
	}
	if in.SecondaryContact != nil {
		next.SecondaryContact = strings.TrimSpace(*in.SecondaryContact)
	}
	if in.CustomerEmail != nil {
		next.CustomerEmail = strings.TrimSpace(*in.CustomerEmail)
	}

	act := h.Journal.NewActivity(models.ActivityStatusUpdate,
		fmt.Sprintf("Contact details updated for %s", next.CustomerName), fiber.Map{"order_id": order.ID})
	if err := h.commit(c, store.Change{Orders: []models.Order{next}, Activities: []models.ActivityLog{act}}); err != nil {
		return err
	}
	return c.JSON(next)
}

// PUT /api/orders/:id/items/:itemId/status
func (h *Handler) UpdateItemStatus(c *fiber.Ctx) error {
	var in ItemStatusDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	order, err := h.Store.GetOrder(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	next := order.Clone()
	idx := -1
	for i := range next.Items {
		if next.Items[i].ID == c.Params("itemId") {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fiber.NewError(fiber.StatusNotFound, "item not found")
	}
	item := &next.Items[idx]
	item.ProductionStatus = models.ProductionStatus(in.Status)

	now := h.now()
	change := store.Change{Orders: []models.Order{next}}
	change.Activities = []models.ActivityLog{h.Journal.NewActivity(models.ActivityStatusUpdate,
		fmt.Sprintf("%s for %s moved to %s", item.Category, next.CustomerName, item.ProductionStatus),
		fiber.Map{"order_id": order.ID, "item_id": item.ID})}
	if in.Notify {
		change.Outbox, change.Notifications = outbox.Collect(outbox.ProductionUpdate(next, *item, now))
	}
	if err := h.commit(c, change); err != nil {
		return err
	}
	return c.JSON(next)
}

// POST /api/orders/:id/cancel
func (h *Handler) CancelOrder(c *fiber.Ctx) error {
	order, err := h.Store.GetOrder(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if order.Status == models.OrderCancelled {
		return c.JSON(order)
	}
	next := order.Clone()
	next.Status = models.OrderCancelled

	act := h.Journal.NewActivity(models.ActivityStatusUpdate,
		fmt.Sprintf("Order for %s cancelled", next.CustomerName), fiber.Map{"order_id": order.ID})
	if err := h.commit(c, store.Change{Orders: []models.Order{next}, Activities: []models.ActivityLog{act}}); err != nil {
		return err
	}
	return c.JSON(next)
}
