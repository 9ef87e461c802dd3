package store

import (
	"context"
	"errors"
	"fmt"

	"auragold-backend/models"

	"gorm.io/gorm"
)

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// --- manual customers

func (s *Store) ListManualCustomers(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	if err := s.conn(ctx).Order("created_at ASC").Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

func (s *Store) CreateManualCustomer(ctx context.Context, customer *models.Customer) error {
	if err := s.conn(ctx).Create(customer).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("customer %s: %w", customer.Contact, ErrDuplicate)
		}
		return fmt.Errorf("create customer: %w", err)
	}
	s.notify(ctx)
	return nil
}

// SaveCustomerInsight stores the latest AI risk analysis on a manual profile,
// creating the profile when the customer is only known from orders.
func (s *Store) SaveCustomerInsight(ctx context.Context, customer models.Customer) error {
	updates := map[string]any{
		"reliability_score":  customer.ReliabilityScore,
		"behavioral_tag":     customer.BehavioralTag,
		"ai_insight":         customer.AIInsight,
		"last_analysis_date": customer.LastAnalysisDate,
	}
	res := s.conn(ctx).Model(&models.Customer{}).Where("contact = ?", customer.Contact).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("save insight: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if err := s.conn(ctx).Create(&customer).Error; err != nil {
			return fmt.Errorf("save insight: %w", err)
		}
	}
	s.notify(ctx)
	return nil
}

// --- plan templates

func (s *Store) ListPlanTemplates(ctx context.Context) ([]models.PlanTemplate, error) {
	var plans []models.PlanTemplate
	if err := s.conn(ctx).Order("months ASC, id ASC").Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("list plan templates: %w", err)
	}
	return plans, nil
}

func (s *Store) GetPlanTemplate(ctx context.Context, id uint) (models.PlanTemplate, error) {
	var plan models.PlanTemplate
	if err := s.conn(ctx).Take(&plan, id).Error; err != nil {
		return plan, notFound(err)
	}
	return plan, nil
}

func (s *Store) CreatePlanTemplate(ctx context.Context, plan *models.PlanTemplate) error {
	if err := s.conn(ctx).Create(plan).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("plan %q: %w", plan.Name, ErrDuplicate)
		}
		return fmt.Errorf("create plan template: %w", err)
	}
	return nil
}

func (s *Store) UpdatePlanTemplate(ctx context.Context, id uint, updates map[string]any) (models.PlanTemplate, error) {
	res := s.conn(ctx).Model(&models.PlanTemplate{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return models.PlanTemplate{}, fmt.Errorf("update plan template: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.PlanTemplate{}, ErrNotFound
	}
	return s.GetPlanTemplate(ctx, id)
}

// --- messaging

func (s *Store) ListMessageTemplates(ctx context.Context) ([]models.MessageTemplate, error) {
	var templates []models.MessageTemplate
	if err := s.conn(ctx).Order("id ASC").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("list message templates: %w", err)
	}
	return templates, nil
}

func (s *Store) CreateMessageTemplate(ctx context.Context, template *models.MessageTemplate) error {
	if err := s.conn(ctx).Create(template).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("template %q: %w", template.Name, ErrDuplicate)
		}
		return fmt.Errorf("create message template: %w", err)
	}
	return nil
}

func (s *Store) ListMessageLogs(ctx context.Context, phone string, limit int) ([]models.MessageLog, error) {
	var logs []models.MessageLog
	q := s.conn(ctx).Order("timestamp DESC").Limit(limit)
	if phone != "" {
		q = q.Where("phone_number = ?", phone)
	}
	if err := q.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list message logs: %w", err)
	}
	return logs, nil
}

func (s *Store) AppendMessageLog(ctx context.Context, entry *models.MessageLog) error {
	if err := s.conn(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("append message log: %w", err)
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	var out []models.Notification
	if err := s.conn(ctx).Order("date DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

// --- users

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.conn(ctx).Model(&models.User{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.conn(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", user.Email, ErrDuplicate)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	if err := s.conn(ctx).Where("email = ?", email).Take(&user).Error; err != nil {
		return user, notFound(err)
	}
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	var user models.User
	if err := s.conn(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		return user, notFound(err)
	}
	return user, nil
}
