package controllers

import (
	"errors"
	"strings"
	"time"

	"auragold-backend/ledger"
	"auragold-backend/models"
	"auragold-backend/store"

	"github.com/gofiber/fiber/v2"
)

type PublicItem struct {
	Category         string                  `json:"category"`
	Purity           string                  `json:"purity"`
	MetalColor       string                  `json:"metal_color"`
	NetWeight        float64                 `json:"net_weight"`
	PhotoURLs        []string                `json:"photo_urls"`
	ProductionStatus models.ProductionStatus `json:"production_status"`
	FinalAmount      float64                 `json:"final_amount"`
}

type PublicPayment struct {
	Amount float64   `json:"amount"`
	Method string    `json:"method"`
	PaidAt time.Time `json:"paid_at"`
}

// PublicOrder is what a customer sees through the share link. Internal cost
// breakdowns and contact details are left out.
type PublicOrder struct {
	CustomerName       string                  `json:"customer_name"`
	Status             models.OrderStatus      `json:"status"`
	CreatedAt          time.Time               `json:"created_at"`
	Items              []PublicItem            `json:"items"`
	TotalAmount        float64                 `json:"total_amount"`
	Paid               float64                 `json:"paid"`
	Balance            float64                 `json:"balance"`
	Milestones         []models.Milestone      `json:"milestones"`
	Payments           []PublicPayment         `json:"payments"`
	GoldRateProtection bool                    `json:"gold_rate_protection"`
	ProtectionRate     float64                 `json:"protection_rate_booked"`
	ProtectionStatus   models.ProtectionStatus `json:"protection_status"`
	GracePeriodEndAt   *time.Time              `json:"grace_period_end_at"`
}

func toPublic(order models.Order) PublicOrder {
	out := PublicOrder{
		CustomerName:       order.CustomerName,
		Status:             order.Status,
		CreatedAt:          order.CreatedAt,
		TotalAmount:        order.TotalAmount,
		Paid:               ledger.TotalPaid(order.Payments),
		Balance:            ledger.Balance(order),
		Milestones:         order.PaymentPlan.Milestones,
		GoldRateProtection: order.PaymentPlan.GoldRateProtection,
		ProtectionRate:     order.PaymentPlan.ProtectionRateBooked,
		ProtectionStatus:   order.PaymentPlan.ProtectionStatus,
		GracePeriodEndAt:   order.PaymentPlan.GracePeriodEndAt,
		Items:              make([]PublicItem, 0, len(order.Items)),
		Payments:           make([]PublicPayment, 0, len(order.Payments)),
	}
	for _, it := range order.Items {
		out.Items = append(out.Items, PublicItem{
			Category:         it.Category,
			Purity:           it.Purity,
			MetalColor:       it.MetalColor,
			NetWeight:        it.NetWeight,
			PhotoURLs:        it.PhotoURLs,
			ProductionStatus: it.ProductionStatus,
			FinalAmount:      it.FinalAmount,
		})
	}
	for _, p := range order.Payments {
		out.Payments = append(out.Payments, PublicPayment{Amount: p.Amount, Method: p.Method, PaidAt: p.PaidAt})
	}
	return out
}

// GET /api/view?view=<token> and GET /api/view/:token
func (h *Handler) ViewOrder(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Params("token"))
	if token == "" {
		token = strings.TrimSpace(c.Query("view"))
	}
	if token == "" {
		return fiber.NewError(fiber.StatusNotFound, "Invalid Link.")
	}
	order, err := h.Store.GetOrderByShareToken(c.UserContext(), token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Invalid Link.")
		}
		return err
	}
	return c.JSON(toPublic(order))
}
