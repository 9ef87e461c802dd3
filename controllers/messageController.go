package controllers

import (
	"fmt"
	"strings"

	"auragold-backend/integrations/whatsapp"
	"auragold-backend/middlewares"
	"auragold-backend/models"
	"auragold-backend/utils"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

type MessageSendDTO struct {
	Phone        string   `json:"phone" validate:"required,min=10,max=15"`
	CustomerName string   `json:"customer_name"`
	Text         string   `json:"text" validate:"required_without=Template"`
	Template     string   `json:"template" validate:"required_without=Text"`
	Language     string   `json:"language" validate:"omitempty,max=10"`
	Variables    []string `json:"variables"`
	Context      string   `json:"context"`
}

func listLimit(c *fiber.Ctx) int {
	n := utils.ParseIntDefault(c.Query("limit"), defaultListLimit)
	if n <= 0 || n > maxListLimit {
		return defaultListLimit
	}
	return n
}

// GET /api/messages?phone=&limit=
func (h *Handler) ListMessages(c *fiber.Ctx) error {
	logs, err := h.Store.ListMessageLogs(c.UserContext(), strings.TrimSpace(c.Query("phone")), listLimit(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"messages": logs})
}

// POST /api/messages/send
// Sends immediately instead of through the outbox; a provider failure is
// reported as 502 and nothing is logged.
func (h *Handler) SendMessage(c *fiber.Ctx) error {
	var in MessageSendDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizeDTO(&in)
	ctx := c.UserContext()

	res := h.sendNow(c, in)
	action := models.ActivityManualMessageSent
	detail := fmt.Sprintf("Message sent to %s", orName(in.CustomerName, in.Phone))
	if in.Template != "" {
		action = models.ActivityTemplateSent
		detail = fmt.Sprintf("Template %s sent to %s", in.Template, orName(in.CustomerName, in.Phone))
	}
	if !res.Success {
		h.Journal.Capture("WhatsApp Manual Send", res.Error, models.SeverityMedium)
		return c.Status(fiber.StatusBadGateway).JSON(res)
	}

	if res.LogEntry != nil {
		if res.LogEntry.Context == "" {
			res.LogEntry.Context = in.Context
		}
		if err := h.Store.AppendMessageLog(ctx, res.LogEntry); err != nil {
			return err
		}
	}
	h.Journal.Activity(action, detail, fiber.Map{"phone": in.Phone, "message_id": res.MessageID})
	return c.JSON(res)
}

func (h *Handler) sendNow(c *fiber.Ctx, in MessageSendDTO) whatsapp.Result {
	if in.Template != "" {
		return h.Messenger.SendTemplateMessage(c.UserContext(), in.Phone, in.Template, in.Language, in.Variables, in.CustomerName)
	}
	return h.Messenger.SendMessage(c.UserContext(), in.Phone, in.Text, in.CustomerName, in.Context)
}

func orName(name, phone string) string {
	if name != "" {
		return name
	}
	return phone
}

// GET /api/messages/templates
func (h *Handler) ListMessageTemplates(c *fiber.Ctx) error {
	templates, err := h.Store.ListMessageTemplates(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"templates": templates})
}

// POST /api/messages/templates
func (h *Handler) CreateMessageTemplate(c *fiber.Ctx) error {
	var tpl models.MessageTemplate
	if err := middlewares.BindAndValidate(c, &tpl); err != nil {
		return err
	}
	tpl.ID = 0
	tpl.Name = strings.ToLower(strings.TrimSpace(tpl.Name))
	if tpl.Source == "" {
		tpl.Source = "LOCAL"
	}
	if err := h.Store.CreateMessageTemplate(c.UserContext(), &tpl); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(tpl)
}

// GET /api/messages/outbox?status=
func (h *Handler) ListOutbox(c *fiber.Ctx) error {
	status := models.OutboxStatus(strings.ToUpper(strings.TrimSpace(c.Query("status"))))
	rows, err := h.Store.ListOutbox(c.UserContext(), status, listLimit(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"outbox": rows})
}

// GET /api/notifications
func (h *Handler) ListNotifications(c *fiber.Ctx) error {
	rows, err := h.Store.ListNotifications(c.UserContext(), listLimit(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"notifications": rows})
}
