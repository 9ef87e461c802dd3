package store

import (
	"context"
	"fmt"
	"time"

	"auragold-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClaimOutbox moves up to limit pending messages, oldest first, to SENDING
// and returns them. Rows locked by another drainer are skipped.
func (s *Store) ClaimOutbox(ctx context.Context, limit int) ([]models.OutboxMessage, error) {
	var claimed []models.OutboxMessage
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", models.OutboxPending).
			Order("created_at ASC").
			Limit(limit).
			Find(&claimed).Error; err != nil {
			return err
		}
		if len(claimed) == 0 {
			return nil
		}
		ids := make([]string, len(claimed))
		for i := range claimed {
			ids[i] = claimed[i].ID
			claimed[i].Status = models.OutboxSending
			claimed[i].Attempts++
		}
		return tx.Model(&models.OutboxMessage{}).Where("id IN ?", ids).
			Updates(map[string]any{
				"status":   models.OutboxSending,
				"attempts": gorm.Expr("attempts + 1"),
			}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("claim outbox: %w", err)
	}
	return claimed, nil
}

// MarkOutboxSent records a delivered message, appends its log entry and
// flags the notification that announced it.
func (s *Store) MarkOutboxSent(ctx context.Context, id string, entry *models.MessageLog, at time.Time) error {
	return s.transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(&models.OutboxMessage{}).Where("id = ?", id).
			Updates(map[string]any{"status": models.OutboxSent, "sent_at": at, "last_error": ""}).Error; err != nil {
			return fmt.Errorf("mark outbox %s sent: %w", id, err)
		}
		if entry != nil {
			if err := tx.Create(entry).Error; err != nil {
				return fmt.Errorf("append message log: %w", err)
			}
		}
		return tx.Model(&models.Notification{}).Where("outbox_id = ?", id).Update("sent", true).Error
	})
}

func (s *Store) MarkOutboxFailed(ctx context.Context, id string, reason string) error {
	err := s.conn(ctx).Model(&models.OutboxMessage{}).Where("id = ?", id).
		Updates(map[string]any{"status": models.OutboxFailed, "last_error": reason}).Error
	if err != nil {
		return fmt.Errorf("mark outbox %s failed: %w", id, err)
	}
	return nil
}

// FailInterrupted marks messages left in SENDING by a previous process as
// FAILED. Delivery is at most once, so they are not sent again.
func (s *Store) FailInterrupted(ctx context.Context) (int64, error) {
	res := s.conn(ctx).Model(&models.OutboxMessage{}).Where("status = ?", models.OutboxSending).
		Updates(map[string]any{"status": models.OutboxFailed, "last_error": "interrupted before delivery was confirmed"})
	if res.Error != nil {
		return 0, fmt.Errorf("fail interrupted outbox: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) ListOutbox(ctx context.Context, status models.OutboxStatus, limit int) ([]models.OutboxMessage, error) {
	var rows []models.OutboxMessage
	q := s.conn(ctx).Order("created_at DESC").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list outbox: %w", err)
	}
	return rows, nil
}
