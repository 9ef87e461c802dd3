package database

import (
	"fmt"

	"auragold-backend/models"

	"gorm.io/gorm"
)

// Migrate applies idempotent schema migrations:
// - AutoMigrate (tables/columns/index tags)
// - Money column types (NUMERIC(12,2))
// - Composite indexes the tags cannot express
// - Basic CHECK constraints
// - Seed rows for plan and message templates
func Migrate(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&models.User{},
			&models.IdempotencyKey{},
			&models.Order{},
			&models.JewelryItem{},
			&models.PaymentPlan{},
			&models.Milestone{},
			&models.Payment{},
			&models.PlanTemplate{},
			&models.Customer{},
			&models.MessageLog{},
			&models.MessageTemplate{},
			&models.Notification{},
			&models.OutboxMessage{},
			&models.ActivityLog{},
			&models.AppError{},
			&models.KVEntry{},
		); err != nil {
			return fmt.Errorf("automigrate failed: %w", err)
		}

		// --- Enforce money columns as NUMERIC(12,2) (idempotent ALTERs) ---
		alters := []string{
			`ALTER TABLE orders        ALTER COLUMN total_amount          TYPE numeric(12,2)`,
			`ALTER TABLE orders        ALTER COLUMN original_total_amount TYPE numeric(12,2)`,
			`ALTER TABLE orders        ALTER COLUMN additional_charges    TYPE numeric(12,2)`,
			`ALTER TABLE milestones    ALTER COLUMN target_amount         TYPE numeric(12,2)`,
			`ALTER TABLE milestones    ALTER COLUMN cumulative_target     TYPE numeric(12,2)`,
			`ALTER TABLE payments      ALTER COLUMN amount                TYPE numeric(12,2)`,
			`ALTER TABLE jewelry_items ALTER COLUMN final_amount          TYPE numeric(12,2)`,
		}
		for _, stmt := range alters {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("money type migration failed on: %s - %w", stmt, err)
			}
		}

		indexes := []string{
			`CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox_messages (created_at) WHERE status = 'PENDING'`,
			`CREATE INDEX IF NOT EXISTS idx_payment_plans_protected ON payment_plans (protection_status) WHERE gold_rate_protection`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_idempotency_keys_key ON idempotency_keys (key)`,
		}
		for _, stmt := range indexes {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
			}
		}

		checks := []struct{ table, name, expr string }{
			{"payments", "chk_payments_amount_pos", "amount > 0"},
			{"milestones", "chk_milestones_target_nonneg", "target_amount >= 0"},
			{"orders", "chk_orders_total_nonneg", "total_amount >= 0"},
			{"payment_plans", "chk_payment_plans_protection_status",
				"protection_status IN ('ACTIVE','WARNING','LAPSED')"},
			{"outbox_messages", "chk_outbox_messages_status",
				"status IN ('PENDING','SENDING','SENT','FAILED')"},
		}
		for _, c := range checks {
			stmt := fmt.Sprintf(`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = '%s'::regclass
					  AND conname  = '%s'
				) THEN
					ALTER TABLE %s
					ADD CONSTRAINT %s
					CHECK (%s);
				END IF;
			END $$;`, c.table, c.name, c.table, c.name, c.expr)
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("check constraint migration failed on %s: %w", c.name, err)
			}
		}

		return Seed(tx)
	})
}
