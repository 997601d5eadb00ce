package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/erickcastrillo/diquis/internal/config"
	"github.com/erickcastrillo/diquis/internal/model"
)

// DialectorFunc builds a GORM dialector for a DSN. Production uses Postgres;
// tests swap in sqlite.
type DialectorFunc func(dsn string) gorm.Dialector

// PostgresDialector is the default DialectorFunc.
func PostgresDialector(dsn string) gorm.Dialector {
	return postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // Disables implicit prepared statement usage
	})
}

// Open connects to a database, applies pool settings and registers the
// tenant/audit callbacks.
func Open(dialector gorm.Dialector, dbConfig *config.DBConfig) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(dbConfig.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database object: %w", err)
	}

	// Set connection pool settings from config
	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	if err := RegisterCallbacks(db); err != nil {
		return nil, fmt.Errorf("register callbacks: %w", err)
	}

	return db, nil
}

// BaseModels are the tables that live only in the shared base database:
// the tenant directory and identity.
func BaseModels() []interface{} {
	return []interface{}{
		&model.Tenant{},
		&model.User{},
		&model.UserRole{},
	}
}

// TenantModels are the per-tenant application tables, replicated via the
// same migration set into each tenant's physical database.
func TenantModels() []interface{} {
	return []interface{}{
		&model.Product{},
		&model.Category{},
		&model.Division{},
		&model.Position{},
		&model.Skill{},
		&model.Player{},
	}
}

// MigrateBase migrates the shared default database: base tables plus the
// application tables of tenants without an isolated database.
func MigrateBase(db *gorm.DB) error {
	models := append(BaseModels(), TenantModels()...)
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("migrate base database: %w", err)
	}
	return nil
}

// MigrateTenant migrates an isolated tenant database.
func MigrateTenant(db *gorm.DB) error {
	if err := db.AutoMigrate(TenantModels()...); err != nil {
		return fmt.Errorf("migrate tenant database: %w", err)
	}
	return nil
}
