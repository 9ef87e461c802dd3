package controllers

import (
	"context"
	"time"

	"auragold-backend/customers"
	"auragold-backend/integrations/gemini"
	"auragold-backend/integrations/goldrate"
	"auragold-backend/integrations/whatsapp"
	"auragold-backend/models"
	"auragold-backend/monitor"
	"auragold-backend/store"
)

// Store is the persistence the handlers need. *store.Store implements it.
type Store interface {
	ListOrders(ctx context.Context) ([]models.Order, error)
	GetOrder(ctx context.Context, id string) (models.Order, error)
	GetOrderByShareToken(ctx context.Context, token string) (models.Order, error)
	CreateOrder(ctx context.Context, order *models.Order, extra store.Change) error
	Commit(ctx context.Context, change store.Change) error
	ListOutbox(ctx context.Context, status models.OutboxStatus, limit int) ([]models.OutboxMessage, error)

	ListManualCustomers(ctx context.Context) ([]models.Customer, error)
	CreateManualCustomer(ctx context.Context, customer *models.Customer) error
	SaveCustomerInsight(ctx context.Context, customer models.Customer) error

	ListPlanTemplates(ctx context.Context) ([]models.PlanTemplate, error)
	GetPlanTemplate(ctx context.Context, id uint) (models.PlanTemplate, error)
	CreatePlanTemplate(ctx context.Context, plan *models.PlanTemplate) error
	UpdatePlanTemplate(ctx context.Context, id uint, updates map[string]any) (models.PlanTemplate, error)

	ListMessageTemplates(ctx context.Context) ([]models.MessageTemplate, error)
	CreateMessageTemplate(ctx context.Context, template *models.MessageTemplate) error
	ListMessageLogs(ctx context.Context, phone string, limit int) ([]models.MessageLog, error)
	AppendMessageLog(ctx context.Context, entry *models.MessageLog) error
	ListNotifications(ctx context.Context, limit int) ([]models.Notification, error)

	CountUsers(ctx context.Context) (int64, error)
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
}

type SettingsStore interface {
	LoadSettings(ctx context.Context) (models.Settings, error)
	SaveSettings(ctx context.Context, settings models.Settings) error
}

type RateService interface {
	FetchLiveRate(ctx context.Context, force bool) goldrate.Rate
	Refresh(ctx context.Context) (goldrate.Rate, error)
}

type Messenger interface {
	SendMessage(ctx context.Context, to, text, customerName, msgContext string) whatsapp.Result
	SendTemplateMessage(ctx context.Context, to, name, lang string, variables []string, customerName string) whatsapp.Result
}

type Advisor interface {
	DraftReminder(ctx context.Context, order models.Order, kind models.NotificationType, goldRate float64) (gemini.ReminderDraft, error)
	AssessRisk(ctx context.Context, name string, totalSpent float64, orders []models.Order, logs []models.MessageLog) (gemini.RiskReport, error)
	AnalyzeCollectionRisk(ctx context.Context, overdue []models.Order) (string, error)
}

type Journal interface {
	Capture(source, message string, severity models.ErrorSeverity) string
	Activity(action models.ActivityType, details string, metadata any) models.ActivityLog
	NewActivity(action models.ActivityType, details string, metadata any) models.ActivityLog
	Remember(acts ...models.ActivityLog)
	Errors() []models.AppError
	Activities() []models.ActivityLog
	ClearErrors(ctx context.Context) error
	ClearActivities(ctx context.Context) error
}

type CustomerView interface {
	All(ctx context.Context) ([]customers.Customer, error)
	ByContact(ctx context.Context, contact string) (customers.Customer, bool, error)
}

type Sweeper interface {
	Tick(ctx context.Context, now time.Time) (monitor.SweepReport, error)
}

// Handler carries the collaborators of every HTTP endpoint.
type Handler struct {
	Store     Store
	Settings  SettingsStore
	Rates     RateService
	Messenger Messenger
	Advisor   Advisor
	Journal   Journal
	Customers CustomerView
	Monitor   Sweeper
	JWTSecret []byte
	Now       func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
