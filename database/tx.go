package database

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

type txKey struct{}

// requestTx is the transaction of one request plus the callbacks to run once
// it has committed.
type requestTx struct {
	tx    *gorm.DB
	mu    sync.Mutex
	hooks []func()
}

// WithTx returns a context carrying tx. Callers that find it through Conn
// join the transaction instead of opening their own.
func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, &requestTx{tx: tx})
}

// Conn returns the transaction carried by ctx, or fallback bound to ctx.
func Conn(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if rt, ok := ctx.Value(txKey{}).(*requestTx); ok && rt.tx != nil {
		return rt.tx
	}
	return fallback.WithContext(ctx)
}

// InTx reports whether ctx carries a request transaction.
func InTx(ctx context.Context) bool {
	rt, ok := ctx.Value(txKey{}).(*requestTx)
	return ok && rt.tx != nil
}

// AfterCommit runs fn once the request transaction in ctx commits, or right
// away when there is none.
func AfterCommit(ctx context.Context, fn func()) {
	rt, ok := ctx.Value(txKey{}).(*requestTx)
	if !ok || rt.tx == nil {
		fn()
		return
	}
	rt.mu.Lock()
	rt.hooks = append(rt.hooks, fn)
	rt.mu.Unlock()
}

// RunCommitHooks is called by whoever owns the transaction after a
// successful commit.
func RunCommitHooks(ctx context.Context) {
	rt, ok := ctx.Value(txKey{}).(*requestTx)
	if !ok {
		return
	}
	rt.mu.Lock()
	hooks := rt.hooks
	rt.hooks = nil
	rt.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}
