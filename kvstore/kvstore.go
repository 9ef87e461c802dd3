package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"auragold-backend/database"
	"auragold-backend/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store keeps small JSON documents under named keys.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get decodes the value stored under key into dst. It reports false when the
// key does not exist.
func (s *Store) Get(ctx context.Context, key string, dst any) (bool, error) {
	var entry models.KVEntry
	err := database.Conn(ctx, s.db).Where("key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("kv get %s: %w", key, err)
	}
	if err := json.Unmarshal(entry.Value, dst); err != nil {
		return false, fmt.Errorf("kv decode %s: %w", key, err)
	}
	return true, nil
}

// Put upserts value under key.
func (s *Store) Put(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv encode %s: %w", key, err)
	}
	entry := models.KVEntry{Key: key, Value: datatypes.JSON(raw), UpdatedAt: time.Now()}
	err = database.Conn(ctx, s.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("kv put %s: %w", key, err)
	}
	return nil
}

// LoadSettings returns the stored settings merged over the defaults. Zero
// rates in storage are treated as missing.
func (s *Store) LoadSettings(ctx context.Context) (models.Settings, error) {
	settings := models.DefaultSettings()
	var stored models.Settings
	ok, err := s.Get(ctx, models.SettingsKey, &stored)
	if err != nil || !ok {
		return settings, err
	}
	if stored.CurrentGoldRate24K > 0 {
		settings.CurrentGoldRate24K = stored.CurrentGoldRate24K
	}
	if stored.CurrentGoldRate22K > 0 {
		settings.CurrentGoldRate22K = stored.CurrentGoldRate22K
	}
	if stored.DefaultTaxRate > 0 {
		settings.DefaultTaxRate = stored.DefaultTaxRate
	}
	if stored.GoldRateProtectionMax > 0 {
		settings.GoldRateProtectionMax = stored.GoldRateProtectionMax
	}
	settings.WhatsappPhoneNumberID = stored.WhatsappPhoneNumberID
	settings.WhatsappBusinessAccountID = stored.WhatsappBusinessAccountID
	settings.WhatsappBusinessToken = stored.WhatsappBusinessToken
	return settings, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings models.Settings) error {
	return s.Put(ctx, models.SettingsKey, settings)
}
