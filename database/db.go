package database

import (
	"fmt"

	"auragold-backend/config"

	"github.com/romana/rlog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

var DB *gorm.DB

// Connect opens the primary database and registers any read replicas. Plain
// queries are routed to replicas by the resolver; writes and transactions
// always use the primary.
func Connect(cfg config.Database) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	if len(cfg.Replicas) > 0 {
		replicas := make([]gorm.Dialector, len(cfg.Replicas))
		for i, dsn := range cfg.Replicas {
			replicas[i] = postgres.Open(dsn)
		}
		if err := db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		})); err != nil {
			return nil, fmt.Errorf("register replicas: %w", err)
		}
		rlog.Infof("Registered %d read replica(s)", len(replicas))
	}

	DB = db
	return db, nil
}
