package database

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/erickcastrillo/diquis/internal/config"
	"github.com/erickcastrillo/diquis/internal/scope"
)

// Manager hands out database sessions. It keeps one connection pool per
// distinct DSN, so tenants sharing the default database share a pool and
// isolated tenants get their own.
type Manager struct {
	cfg       *config.DBConfig
	dialector DialectorFunc

	mu    sync.Mutex
	pools map[string]*gorm.DB
}

// NewManager creates a Manager using the given dialector factory.
func NewManager(cfg *config.DBConfig, dialector DialectorFunc) *Manager {
	return &Manager{
		cfg:       cfg,
		dialector: dialector,
		pools:     make(map[string]*gorm.DB),
	}
}

// Pool returns the connection pool for a DSN, opening it on first use.
func (m *Manager) Pool(dsn string) (*gorm.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if db, ok := m.pools[dsn]; ok {
		return db, nil
	}

	db, err := Open(m.dialector(dsn), m.cfg)
	if err != nil {
		return nil, err
	}
	m.pools[dsn] = db
	return db, nil
}

// Session returns a tenant-scoped session. The session is bound for its
// whole lifetime to the tenant id and physical connection fixed by the
// scope: an isolated tenant's DSN when present, the shared default
// otherwise.
func (m *Manager) Session(ctx context.Context, sc scope.Scope) (*Session, error) {
	dsn := sc.ConnectionString
	if dsn == "" {
		dsn = m.cfg.DSN()
	}

	pool, err := m.Pool(dsn)
	if err != nil {
		return nil, err
	}

	return &Session{
		db:    pool.WithContext(scope.NewContext(ctx, sc)),
		scope: sc,
	}, nil
}

// Base returns the shared base pool carrying identity and tenant directory
// tables, with the given context attached. Tenant-owned tables still demand
// a scope in the context; directory tables do not.
func (m *Manager) Base(ctx context.Context) (*gorm.DB, error) {
	pool, err := m.Pool(m.cfg.DSN())
	if err != nil {
		return nil, err
	}
	return pool.WithContext(ctx), nil
}

// Close closes every open pool.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for dsn, db := range m.pools {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		delete(m.pools, dsn)
	}
	return firstErr
}
