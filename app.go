package main

import (
	"context"
	"time"

	"auragold-backend/config"
	"auragold-backend/controllers"
	"auragold-backend/customers"
	"auragold-backend/database"
	"auragold-backend/errorlog"
	"auragold-backend/integrations/gemini"
	"auragold-backend/integrations/goldrate"
	"auragold-backend/integrations/whatsapp"
	"auragold-backend/kvstore"
	"auragold-backend/monitor"
	"auragold-backend/outbox"
	"auragold-backend/store"

	"github.com/romana/rlog"
	"gorm.io/gorm"
)

// services is the wired object graph shared by every command.
type services struct {
	cfg        config.Config
	db         *gorm.DB
	store      *store.Store
	kv         *kvstore.Store
	journal    *errorlog.Service
	advisor    *gemini.Client
	messenger  *whatsapp.Client
	rates      *goldrate.Service
	customers  *customers.Projection
	monitor    *monitor.Monitor
	dispatcher *outbox.Dispatcher
}

func buildServices(ctx context.Context, cfg config.Config) (*services, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	s := &services{cfg: cfg, db: db}

	s.store = store.New(db)
	s.kv = kvstore.New(db)

	s.journal = errorlog.New(s.store)
	if err := s.journal.Restore(ctx); err != nil {
		rlog.Warnf("could not restore error log: %v", err)
	}

	s.advisor = gemini.New(cfg.Gemini.APIBase, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if cfg.Gemini.APIKey != "" {
		s.journal.SetDiagnoser(s.advisor)
	}

	s.messenger = whatsapp.New(cfg.WhatsApp.APIBase, s.whatsappCredentials)
	s.rates = goldrate.New(cfg.GoldRate.URL, s.kv, s.kv, s.journal)

	s.customers = customers.NewProjection(s.store)
	s.store.OnChange(s.customers.Invalidate)

	s.monitor = monitor.New(s.store, s.rates, s.journal, cfg.Monitor.Interval)
	s.dispatcher = outbox.NewDispatcher(s.store, s.messenger, s.journal, cfg.Monitor.OutboxBatch)
	return s, nil
}

// whatsappCredentials prefers the numbers saved in settings and falls back
// to the environment.
func (s *services) whatsappCredentials(ctx context.Context) whatsapp.Credentials {
	creds := whatsapp.Credentials{
		PhoneNumberID: s.cfg.WhatsApp.PhoneNumberID,
		Token:         s.cfg.WhatsApp.Token,
	}
	settings, err := s.kv.LoadSettings(ctx)
	if err != nil {
		rlog.Warnf("whatsapp: settings unavailable, using environment credentials: %v", err)
		return creds
	}
	if settings.WhatsappPhoneNumberID != "" && settings.WhatsappBusinessToken != "" {
		creds.PhoneNumberID = settings.WhatsappPhoneNumberID
		creds.Token = settings.WhatsappBusinessToken
	}
	return creds
}

func (s *services) handler() *controllers.Handler {
	return &controllers.Handler{
		Store:     s.store,
		Settings:  s.kv,
		Rates:     s.rates,
		Messenger: s.messenger,
		Advisor:   s.advisor,
		Journal:   s.journal,
		Customers: s.customers,
		Monitor:   s.monitor,
		JWTSecret: []byte(s.cfg.HTTP.JWTSecret),
		Now:       time.Now,
	}
}

// refreshRates keeps the stored bullion rate current so bookings and the
// protection monitor use a recent price.
func (s *services) refreshRates(ctx context.Context) error {
	ticker := time.NewTicker(goldrate.CacheValidity)
	defer ticker.Stop()
	for {
		if _, err := s.rates.Refresh(ctx); err != nil && ctx.Err() == nil {
			rlog.Errorf("gold rate refresh: %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *services) close() {
	s.journal.Wait()
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
