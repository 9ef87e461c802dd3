package store

import (
	"context"
	"errors"
	"sync"

	"auragold-backend/database"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrConflict  = errors.New("record was changed concurrently")
	ErrDuplicate = errors.New("record already exists")
)

// Store is the gorm-backed persistence for orders and everything that hangs
// off them. Calls join the request transaction carried by ctx, if any.
type Store struct {
	db *gorm.DB

	mu        sync.RWMutex
	listeners []func()
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// OnChange registers fn to run after every committed order write.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) notify(ctx context.Context) {
	s.mu.RLock()
	listeners := append([]func(){}, s.listeners...)
	s.mu.RUnlock()
	database.AfterCommit(ctx, func() {
		for _, fn := range listeners {
			fn()
		}
	})
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, s.db)
}

func (s *Store) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.conn(ctx).Transaction(fn)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
