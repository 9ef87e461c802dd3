package store

import (
	"context"
	"fmt"
	"time"

	"auragold-backend/models"

	"gorm.io/gorm"
)

// Change is everything one logical write touches. It is applied in a single
// transaction so an outbox intent exists if and only if its state change does.
type Change struct {
	Orders        []models.Order
	Payments      []models.Payment
	Outbox        []models.OutboxMessage
	Notifications []models.Notification
	Activities    []models.ActivityLog
}

func (c Change) Empty() bool {
	return len(c.Orders) == 0 && len(c.Payments) == 0 && len(c.Outbox) == 0 &&
		len(c.Notifications) == 0 && len(c.Activities) == 0
}

func orderGraph(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("paid_at ASC") }).
		Preload("PaymentPlan").
		Preload("PaymentPlan.Milestones", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") })
}

// ListOrders returns every order with its items, payments and plan, newest
// first. The graph is read in one transaction on the primary so it is a
// consistent snapshot even when replicas are configured.
func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		return orderGraph(tx).Order("created_at DESC").Find(&orders).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (models.Order, error) {
	return s.findOrder(ctx, "id = ?", id)
}

func (s *Store) GetOrderByShareToken(ctx context.Context, token string) (models.Order, error) {
	return s.findOrder(ctx, "share_token = ?", token)
}

func (s *Store) findOrder(ctx context.Context, query string, arg any) (models.Order, error) {
	var order models.Order
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		return orderGraph(tx).Where(query, arg).Take(&order).Error
	})
	if err != nil {
		return order, notFound(err)
	}
	return order, nil
}

// CreateOrder inserts order with its whole graph plus the records in extra.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order, extra Change) error {
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return writeRecords(tx, extra)
	})
	if err != nil {
		return err
	}
	s.notify(ctx)
	return nil
}

// Commit writes the next state of the changed orders and appends the new
// records. An order whose version moved since it was read yields
// ErrConflict and nothing is written.
func (s *Store) Commit(ctx context.Context, change Change) error {
	if change.Empty() {
		return nil
	}
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		for i := range change.Orders {
			if err := saveOrderState(tx, change.Orders[i]); err != nil {
				return err
			}
		}
		return writeRecords(tx, change)
	})
	if err != nil {
		return err
	}
	if len(change.Orders) > 0 || len(change.Payments) > 0 {
		s.notify(ctx)
	}
	return nil
}

func saveOrderState(tx *gorm.DB, order models.Order) error {
	res := tx.Model(&models.Order{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]any{
			"customer_name":      order.CustomerName,
			"customer_contact":   order.CustomerContact,
			"secondary_contact":  order.SecondaryContact,
			"customer_email":     order.CustomerEmail,
			"additional_charges": order.AdditionalCharges,
			"total_amount":       order.TotalAmount,
			"status":             order.Status,
			"version":            gorm.Expr("version + 1"),
			"updated_at":         time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("update order %s: %w", order.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order %s: %w", order.ID, ErrConflict)
	}

	plan := order.PaymentPlan
	if err := tx.Model(&models.PaymentPlan{}).Where("order_id = ?", order.ID).
		Updates(map[string]any{
			"protection_status":   plan.ProtectionStatus,
			"grace_period_end_at": plan.GracePeriodEndAt,
		}).Error; err != nil {
		return fmt.Errorf("update plan of %s: %w", order.ID, err)
	}

	for _, m := range plan.Milestones {
		if err := tx.Model(&models.Milestone{}).Where("id = ?", m.ID).
			Updates(map[string]any{
				"status":               m.Status,
				"warning_count":        m.WarningCount,
				"last_warning_sent_at": m.LastWarningSentAt,
			}).Error; err != nil {
			return fmt.Errorf("update milestone %d: %w", m.ID, err)
		}
	}

	for _, item := range order.Items {
		if err := tx.Model(&models.JewelryItem{}).Where("id = ?", item.ID).
			Update("production_status", item.ProductionStatus).Error; err != nil {
			return fmt.Errorf("update item %s: %w", item.ID, err)
		}
	}
	return nil
}

func writeRecords(tx *gorm.DB, change Change) error {
	if len(change.Payments) > 0 {
		if err := tx.Create(&change.Payments).Error; err != nil {
			return fmt.Errorf("insert payments: %w", err)
		}
	}
	if len(change.Outbox) > 0 {
		if err := tx.Create(&change.Outbox).Error; err != nil {
			return fmt.Errorf("insert outbox: %w", err)
		}
	}
	if len(change.Notifications) > 0 {
		if err := tx.Create(&change.Notifications).Error; err != nil {
			return fmt.Errorf("insert notifications: %w", err)
		}
	}
	if len(change.Activities) > 0 {
		if err := tx.Create(&change.Activities).Error; err != nil {
			return fmt.Errorf("insert activities: %w", err)
		}
	}
	return nil
}
