package middlewares

import (
	"auragold-backend/database"

	"github.com/gofiber/fiber/v2"
	"github.com/romana/rlog"
	"gorm.io/gorm"
)

// RequestTx opens a per-request DB transaction for mutating requests.
// Order: run AFTER IsAuthenticatedHeader() and AFTER Idempotency() (so
// idempotency records aren't tied to the handler TX). Reads run outside a
// transaction so list queries can go to replicas.
func RequestTx(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		tx := db.WithContext(c.UserContext()).Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to begin transaction")
		}
		ctx := database.WithTx(c.UserContext(), tx)

		// Ensure we always cleanup.
		defer func() {
			if r := recover(); r != nil {
				_ = tx.Rollback()
				panic(r) // re-panic after rollback so Fiber's handler can catch
			}
			if err != nil {
				_ = tx.Rollback()
				return
			}
			if e := tx.Commit().Error; e != nil {
				rlog.Errorf("tx commit failed: %v", e)
				err = fiber.NewError(fiber.StatusInternalServerError, "transaction commit failed")
				return
			}
			database.RunCommitHooks(ctx)
		}()

		c.SetUserContext(ctx)
		c.Locals("tx", tx)

		err = c.Next()
		return err
	}
}
