// Package testutil provides shared fixtures for package tests: an in-memory
// sqlite-backed database manager with the base schema migrated.
package testutil

import (
	"fmt"
	"hash/fnv"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/erickcastrillo/diquis/internal/config"
	"github.com/erickcastrillo/diquis/internal/database"
)

var seq atomic.Int64

// NewManager returns a database manager backed by named in-memory sqlite
// databases, one per distinct DSN, with the base schema migrated. Distinct
// DSNs map to distinct databases, so isolated-tenant connection strings
// behave like separate physical databases.
func NewManager(t *testing.T) (*database.Manager, *config.DBConfig) {
	t.Helper()

	cfg := NewDBConfig()
	m := database.NewManager(cfg, SQLiteDialector(cfg.DBName))
	t.Cleanup(func() { _ = m.Close() })

	db, err := m.Pool(cfg.DSN())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := database.MigrateBase(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return m, cfg
}

// NewDBConfig returns a database config with a unique database name per
// call, so tests never share state.
func NewDBConfig() *config.DBConfig {
	return &config.DBConfig{
		DBName:          fmt.Sprintf("diquis_test_%d", seq.Add(1)),
		AdminDBName:     "postgres",
		MaxIdleConns:    2,
		MaxOpenConns:    2,
		ConnMaxLifetime: time.Hour,
		LogLevel:        gormlogger.Silent,
	}
}

// SQLiteDialector maps any DSN onto a shared in-memory sqlite database whose
// name is derived from the DSN, namespaced by prefix.
func SQLiteDialector(prefix string) database.DialectorFunc {
	return func(dsn string) gorm.Dialector {
		h := fnv.New32a()
		h.Write([]byte(dsn))
		return sqlite.Open(fmt.Sprintf("file:%s_%x?mode=memory&cache=shared", prefix, h.Sum32()))
	}
}
