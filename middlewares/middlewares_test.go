package middlewares

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"auragold-backend/database"
	"auragold-backend/ledger"
	"auragold-backend/store"
	"auragold-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func newApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
}

func body(t *testing.T, r io.Reader) string {
	t.Helper()
	raw, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(raw)
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	app := newApp()
	app.Get("/x", IsAuthenticatedHeader(secret), func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest("GET", "/x", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthAcceptsGeneratedToken(t *testing.T) {
	app := newApp()
	app.Get("/x", IsAuthenticatedHeader(secret), RequireRole("admin"), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("userID").(string))
	})

	token, err := GenerateJWT(secret, "user-1", "admin")
	require.NoError(t, err)
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "user-1", body(t, resp.Body))
}

func TestAuthRejectsWrongSecretAndRole(t *testing.T) {
	app := newApp()
	app.Get("/x", IsAuthenticatedHeader(secret), RequireRole("admin"), func(c *fiber.Ctx) error { return nil })

	forged, err := GenerateJWT([]byte("other"), "user-1", "admin")
	require.NoError(t, err)
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	staff, err := GenerateJWT(secret, "user-2", "staff")
	require.NoError(t, err)
	req = httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Authorization", "Bearer "+staff)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestErrorHandlerMapsDomainErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("order x: %w", store.ErrNotFound), fiber.StatusNotFound},
		{fmt.Errorf("order x: %w", store.ErrConflict), fiber.StatusConflict},
		{store.ErrDuplicate, fiber.StatusConflict},
		{ledger.ErrInvalidAmount, fiber.StatusBadRequest},
		{fmt.Errorf("milestone 2: %w", ledger.ErrInvalidAmount), fiber.StatusBadRequest},
		{ledger.ErrOrderCancelled, fiber.StatusConflict},
		{fiber.NewError(fiber.StatusTeapot, "tea"), fiber.StatusTeapot},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		app := newApp()
		err := tc.err
		app.Get("/x", func(c *fiber.Ctx) error { return err })
		resp, e := app.Test(httptest.NewRequest("GET", "/x", nil))
		require.NoError(t, e)
		assert.Equal(t, tc.want, resp.StatusCode, tc.err.Error())
	}
}

func TestBindAndValidate(t *testing.T) {
	type dto struct {
		Amount float64 `json:"amount" validate:"gt=0"`
	}
	app := newApp()
	app.Post("/x", func(c *fiber.Ctx) error {
		var in dto
		if err := BindAndValidate(c, &in); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	for raw, want := range map[string]int{
		`{"amount":10}`: fiber.StatusNoContent,
		`{"amount":0}`:  fiber.StatusUnprocessableEntity,
		`{`:             fiber.StatusBadRequest,
	} {
		req := httptest.NewRequest("POST", "/x", strings.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, raw)
	}
}

func TestRequestTxCommitsAndRunsHooks(t *testing.T) {
	sqlDB, db, mock := utils.DbMock(t)
	defer sqlDB.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	hookRan := false
	app := newApp()
	app.Post("/x", RequestTx(db), func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		assert.True(t, database.InTx(ctx))
		database.AfterCommit(ctx, func() { hookRan = true })
		assert.False(t, hookRan)
		return c.SendStatus(fiber.StatusCreated)
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/x", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.True(t, hookRan)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestRequestTxRollsBackOnError(t *testing.T) {
	sqlDB, db, mock := utils.DbMock(t)
	defer sqlDB.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	hookRan := false
	app := newApp()
	app.Post("/x", RequestTx(db), func(c *fiber.Ctx) error {
		database.AfterCommit(c.UserContext(), func() { hookRan = true })
		return fmt.Errorf("pay: %w", store.ErrConflict)
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/x", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.False(t, hookRan)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestRequestTxSkipsReads(t *testing.T) {
	sqlDB, db, mock := utils.DbMock(t)
	defer sqlDB.Close()

	app := newApp()
	app.Get("/x", RequestTx(db), func(c *fiber.Ctx) error {
		assert.False(t, database.InTx(c.UserContext()))
		return c.SendStatus(fiber.StatusOK)
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/x", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Nil(t, mock.ExpectationsWereMet())
}
