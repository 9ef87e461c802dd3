package controllers

import (
	"encoding/json"
	"fmt"
	"strconv"

	"auragold-backend/middlewares"
	"auragold-backend/models"
	"auragold-backend/utils"

	"github.com/gofiber/fiber/v2"
)

const redactedToken = "********"

type SettingsUpdateDTO struct {
	CurrentGoldRate24K        *float64 `json:"current_gold_rate_24k" validate:"omitempty,gt=0"`
	CurrentGoldRate22K        *float64 `json:"current_gold_rate_22k" validate:"omitempty,gt=0"`
	DefaultTaxRate            *float64 `json:"default_tax_rate" validate:"omitempty,gte=0,lte=100"`
	GoldRateProtectionMax     *float64 `json:"gold_rate_protection_max" validate:"omitempty,gte=0"`
	WhatsappPhoneNumberID     *string  `json:"whatsapp_phone_number_id"`
	WhatsappBusinessAccountID *string  `json:"whatsapp_business_account_id"`
	WhatsappBusinessToken     *string  `json:"whatsapp_business_token"`
}

type PlanTemplateUpdateDTO struct {
	Name               *string  `json:"name" validate:"omitempty,min=1"`
	Months             *int     `json:"months" validate:"omitempty,gte=1,lte=60"`
	InterestPercentage *float64 `json:"interest_percentage" validate:"omitempty,gte=0"`
	AdvancePercentage  *float64 `json:"advance_percentage" validate:"omitempty,gte=0,lte=100"`
	Enabled            *bool    `json:"enabled"`
}

// GET /api/settings
func (h *Handler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.Settings.LoadSettings(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(settings.Redacted())
}

// PUT /api/settings
// Only the fields present in the body change. Echoing back the redacted
// token keeps the stored one.
func (h *Handler) UpdateSettings(c *fiber.Ctx) error {
	var in SettingsUpdateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizePtrDTO(&in)
	if in.WhatsappBusinessToken != nil && *in.WhatsappBusinessToken == redactedToken {
		in.WhatsappBusinessToken = nil
	}

	ctx := c.UserContext()
	current, err := h.Settings.LoadSettings(ctx)
	if err != nil {
		return err
	}
	next, err := mergeSettings(current, utils.UpdatesFromPtrDTO(&in, nil))
	if err != nil {
		return err
	}
	if err := h.Settings.SaveSettings(ctx, next); err != nil {
		return err
	}
	h.Journal.Activity(models.ActivityStatusUpdate, "Store settings updated", nil)
	return c.JSON(next.Redacted())
}

func mergeSettings(current models.Settings, updates map[string]any) (models.Settings, error) {
	if len(updates) == 0 {
		return current, nil
	}
	raw, err := json.Marshal(current)
	if err != nil {
		return current, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return current, err
	}
	for k, v := range updates {
		fields[k] = v
	}
	if raw, err = json.Marshal(fields); err != nil {
		return current, err
	}
	var next models.Settings
	if err := json.Unmarshal(raw, &next); err != nil {
		return current, err
	}
	return next, nil
}

// GET /api/plans
func (h *Handler) ListPlanTemplates(c *fiber.Ctx) error {
	plans, err := h.Store.ListPlanTemplates(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"plans": plans})
}

// POST /api/plans
func (h *Handler) CreatePlanTemplate(c *fiber.Ctx) error {
	var plan models.PlanTemplate
	if err := middlewares.BindAndValidate(c, &plan); err != nil {
		return err
	}
	plan.ID = 0
	utils.NormalizeDTO(&plan)
	if err := h.Store.CreatePlanTemplate(c.UserContext(), &plan); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(plan)
}

// PUT /api/plans/:id
func (h *Handler) UpdatePlanTemplate(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid plan id")
	}
	var in PlanTemplateUpdateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizePtrDTO(&in)
	updates := utils.UpdatesFromPtrDTO(&in, nil)
	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "nothing to update")
	}
	plan, err := h.Store.UpdatePlanTemplate(c.UserContext(), uint(id), updates)
	if err != nil {
		return err
	}
	return c.JSON(plan)
}

// GET /api/rates?force=true
func (h *Handler) GetRates(c *fiber.Ctx) error {
	return c.JSON(h.Rates.FetchLiveRate(c.UserContext(), c.QueryBool("force")))
}

// POST /api/rates/refresh
// Pulls the live feed and stores the rates used for new bookings.
func (h *Handler) RefreshRates(c *fiber.Ctx) error {
	rate, err := h.Rates.Refresh(c.UserContext())
	if err != nil {
		return err
	}
	if rate.Success {
		h.Journal.Activity(models.ActivityStatusUpdate,
			fmt.Sprintf("Gold rate updated to ₹%.0f/g (22K) from %s", rate.Rate22K, rate.Source), nil)
	}
	return c.JSON(rate)
}
