package kvstore

import (
	"context"
	"errors"
	"testing"

	"auragold-backend/models"
	"auragold-backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/DATA-DOG/go-sqlmock.v1"
)

const selectKV = `SELECT \* FROM "kv_entries" WHERE key = .+ LIMIT .+`

func TestLoadSettingsDefaultsWhenMissing(t *testing.T) {
	sqlDB, db, mock := utils.DbMock(t)
	defer sqlDB.Close()

	mock.ExpectQuery(selectKV).WillReturnRows(sqlmock.NewRows([]string{"key", "value", "updated_at"}))

	settings, err := New(db).LoadSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings(), settings)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestLoadSettingsMergesStored(t *testing.T) {
	sqlDB, db, mock := utils.DbMock(t)
	defer sqlDB.Close()

	rows := sqlmock.NewRows([]string{"key", "value"}).
		AddRow("settings", []byte(`{"current_gold_rate_22k":6750,"whatsapp_phone_number_id":"1234"}`))
	mock.ExpectQuery(selectKV).WillReturnRows(rows)

	settings, err := New(db).LoadSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6750.0, settings.CurrentGoldRate22K)
	assert.Equal(t, 7200.0, settings.CurrentGoldRate24K)
	assert.Equal(t, 3.0, settings.DefaultTaxRate)
	assert.Equal(t, "1234", settings.WhatsappPhoneNumberID)
}

func TestGetPropagatesErrors(t *testing.T) {
	sqlDB, db, mock := utils.DbMock(t)
	defer sqlDB.Close()

	mock.ExpectQuery(selectKV).WillReturnError(errors.New("connection reset"))

	var out map[string]any
	ok, err := New(db).Get(context.Background(), "gold_rate_cache", &out)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestPutUpserts(t *testing.T) {
	sqlDB, db, mock := utils.DbMock(t)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "kv_entries" .+ ON CONFLICT \("key"\) DO UPDATE SET .+`).
		WithArgs("settings", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := New(db).SaveSettings(context.Background(), models.DefaultSettings())
	assert.NoError(t, err)
	assert.Nil(t, mock.ExpectationsWereMet())
}
