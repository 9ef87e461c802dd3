package controllers

import (
	"errors"
	"strings"

	"auragold-backend/middlewares"
	"auragold-backend/models"
	"auragold-backend/store"

	"github.com/gofiber/fiber/v2"
)

const customerLogLimit = 50

type CustomerCreateDTO struct {
	Name             string `json:"name" validate:"required"`
	Contact          string `json:"contact" validate:"required,min=10,max=15"`
	SecondaryContact string `json:"secondary_contact" validate:"omitempty,max=15"`
	Email            string `json:"email" validate:"omitempty,email"`
}

// GET /api/customers
func (h *Handler) GetCustomers(c *fiber.Ctx) error {
	all, err := h.Customers.All(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"customers": all, "message": "success"})
}

// POST /api/customers
func (h *Handler) CreateCustomer(c *fiber.Ctx) error {
	var in CustomerCreateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	customer := models.Customer{
		Name:             strings.TrimSpace(in.Name),
		Contact:          strings.TrimSpace(in.Contact),
		SecondaryContact: strings.TrimSpace(in.SecondaryContact),
		Email:            strings.TrimSpace(in.Email),
	}
	if err := h.Store.CreateManualCustomer(c.UserContext(), &customer); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return fiber.NewError(fiber.StatusConflict, "a customer with this contact already exists")
		}
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(customer)
}

// GET /api/customers/:contact
func (h *Handler) GetCustomer(c *fiber.Ctx) error {
	ctx := c.UserContext()
	contact := c.Params("contact")
	customer, ok, err := h.Customers.ByContact(ctx, contact)
	if err != nil {
		return err
	}
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "customer not found")
	}
	orders, err := h.ordersOf(c, customer.OrderIDs)
	if err != nil {
		return err
	}
	logs, err := h.Store.ListMessageLogs(ctx, contact, customerLogLimit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"customer": customer, "orders": orders, "logs": logs})
}

func (h *Handler) ordersOf(c *fiber.Ctx, ids []string) ([]models.Order, error) {
	if len(ids) == 0 {
		return []models.Order{}, nil
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	all, err := h.Store.ListOrders(c.UserContext())
	if err != nil {
		return nil, err
	}
	out := make([]models.Order, 0, len(ids))
	for _, o := range all {
		if _, ok := want[o.ID]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

// POST /api/customers/:contact/risk
// Runs the AI risk profile and stores the outcome on the customer. An
// unreachable model yields the neutral fallback report instead of an error.
func (h *Handler) CustomerRisk(c *fiber.Ctx) error {
	ctx := c.UserContext()
	contact := c.Params("contact")
	customer, ok, err := h.Customers.ByContact(ctx, contact)
	if err != nil {
		return err
	}
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "customer not found")
	}
	orders, err := h.ordersOf(c, customer.OrderIDs)
	if err != nil {
		return err
	}
	logs, err := h.Store.ListMessageLogs(ctx, contact, customerLogLimit)
	if err != nil {
		return err
	}

	report, err := h.Advisor.AssessRisk(ctx, customer.Name, customer.TotalSpent, orders, logs)
	if err != nil {
		h.Journal.Capture("GeminiService", "Risk analysis failed: "+err.Error(), models.SeverityMedium)
		return c.JSON(fiber.Map{"report": report, "saved": false})
	}

	now := h.now()
	score := report.Score
	insight := models.Customer{
		Name:             customer.Name,
		Contact:          customer.Contact,
		SecondaryContact: customer.SecondaryContact,
		Email:            customer.Email,
		ReliabilityScore: &score,
		BehavioralTag:    report.Persona,
		AIInsight:        report.CommunicationStrategy,
		LastAnalysisDate: &now,
	}
	if err := h.Store.SaveCustomerInsight(ctx, insight); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"report": report, "saved": true})
}
