package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"auragold-backend/controllers"
	"auragold-backend/middlewares"
)

// Register wires all HTTP routes.
func Register(app *fiber.App, h *controllers.Handler, db *gorm.DB) {
	api := app.Group("/api")

	// Public auth endpoints
	api.Post("/registration", h.Register)
	api.Post("/login", h.Login)
	api.Post("/logout", h.Logout)

	// Customer share links
	api.Get("/view", h.ViewOrder)
	api.Get("/view/:token", h.ViewOrder)

	// Protected endpoints (JWT auth)
	protected := api.Group("")
	protected.Use(middlewares.IsAuthenticatedHeader(h.JWTSecret))

	// Idempotency guard FIRST (not tied to request TX)
	protected.Use(middlewares.Idempotency(db))

	// Then the per-request transaction; GETs read outside of it
	protected.Use(middlewares.RequestTx(db))

	// Orders
	protected.Post("/orders", h.CreateOrder)
	protected.Get("/orders", h.ListOrders)
	protected.Get("/orders/:id", h.GetOrder)
	protected.Put("/orders/:id/contact", h.UpdateContact)
	protected.Put("/orders/:id/items/:itemId/status", h.UpdateItemStatus)
	protected.Post("/orders/:id/cancel", h.CancelOrder)
	protected.Post("/orders/:id/payments", h.CreatePayment)
	protected.Get("/orders/:id/payments", h.ListPayments)
	protected.Post("/orders/:id/reminder-draft", h.ReminderDraft)

	// Customers
	protected.Get("/customers", h.GetCustomers)
	protected.Post("/customers", h.CreateCustomer)
	protected.Get("/customers/:contact", h.GetCustomer)
	protected.Post("/customers/:contact/risk", h.CustomerRisk)
	protected.Get("/collections/risk", h.CollectionRisk)

	// Messaging
	protected.Get("/messages/logs", h.ListMessages)
	protected.Post("/messages/send", h.SendMessage)
	protected.Get("/messages/templates", h.ListMessageTemplates)
	protected.Get("/messages/outbox", h.ListOutbox)
	protected.Get("/notifications", h.ListNotifications)

	// Rates and plans
	protected.Get("/rates", h.GetRates)
	protected.Get("/plans", h.ListPlanTemplates)

	// Admin only
	adminOnly := middlewares.RequireRole(controllers.RoleAdmin)
	protected.Get("/settings", adminOnly, h.GetSettings)
	protected.Put("/settings", adminOnly, h.UpdateSettings)
	protected.Post("/rates/refresh", adminOnly, h.RefreshRates)
	protected.Post("/plans", adminOnly, h.CreatePlanTemplate)
	protected.Put("/plans/:id", adminOnly, h.UpdatePlanTemplate)
	protected.Post("/messages/templates", adminOnly, h.CreateMessageTemplate)
	protected.Get("/system/errors", adminOnly, h.ListErrors)
	protected.Delete("/system/errors", adminOnly, h.ClearErrors)
	protected.Get("/system/activity", adminOnly, h.ListActivity)
	protected.Delete("/system/activity", adminOnly, h.ClearActivity)
	protected.Post("/monitor/sweep", adminOnly, h.Sweep)
}
