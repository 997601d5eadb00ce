// Package directory provides the read path over the tenant directory: key
// and id lookups plus per-request scope resolution. It never runs
// migrations and never writes tenant rows; status transitions belong to the
// provisioning workflow alone.
package directory

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/erickcastrillo/diquis/internal/database"
	"github.com/erickcastrillo/diquis/internal/model"
	"github.com/erickcastrillo/diquis/internal/scope"
)

var (
	// ErrTenantNotFound is returned when no tenant matches the requested key or id.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrTenantInactive is returned when the resolved tenant is disabled.
	ErrTenantInactive = errors.New("tenant is not active")
)

// Directory resolves tenants against the base database.
type Directory struct {
	manager *database.Manager
}

// New creates a Directory over the given manager.
func New(manager *database.Manager) *Directory {
	return &Directory{manager: manager}
}

// FindByKey loads a tenant by its unique key.
func (d *Directory) FindByKey(ctx context.Context, key string) (*model.Tenant, error) {
	db, err := d.manager.Base(ctx)
	if err != nil {
		return nil, err
	}

	var tenant model.Tenant
	if err := db.Where("key = ?", key).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("find tenant by key: %w", err)
	}
	return &tenant, nil
}

// FindByID loads a tenant by primary key.
func (d *Directory) FindByID(ctx context.Context, id uint) (*model.Tenant, error) {
	db, err := d.manager.Base(ctx)
	if err != nil {
		return nil, err
	}

	var tenant model.Tenant
	if err := db.First(&tenant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("find tenant by id: %w", err)
	}
	return &tenant, nil
}

// List returns every tenant in the directory.
func (d *Directory) List(ctx context.Context) ([]model.Tenant, error) {
	db, err := d.manager.Base(ctx)
	if err != nil {
		return nil, err
	}

	var tenants []model.Tenant
	if err := db.Order("id").Find(&tenants).Error; err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return tenants, nil
}

// Resolve produces the scope for a request. An empty key falls back to the
// root tenant, which only anonymous/bootstrap paths should rely on. An
// unknown or inactive tenant fails resolution before any tenant-scoped data
// access can happen.
func (d *Directory) Resolve(ctx context.Context, tenantKey string, userID uint) (scope.Scope, error) {
	if tenantKey == "" {
		tenantKey = model.RootTenantKey
	}

	tenant, err := d.FindByKey(ctx, tenantKey)
	if err != nil {
		return scope.Scope{}, err
	}
	if !tenant.IsActive {
		return scope.Scope{}, ErrTenantInactive
	}

	return scope.Scope{
		TenantID:         tenant.ID,
		TenantKey:        tenant.Key,
		UserID:           userID,
		ConnectionString: tenant.ConnectionString,
	}, nil
}

// ResolveJob produces a background-job scope for a tenant id, with no
// authenticated user.
func (d *Directory) ResolveJob(ctx context.Context, tenantID uint) (scope.Scope, error) {
	tenant, err := d.FindByID(ctx, tenantID)
	if err != nil {
		return scope.Scope{}, err
	}
	return scope.Background(tenant.ID, tenant.Key, tenant.ConnectionString), nil
}

// EnsureRootTenant seeds the protected root tenant on first boot.
func EnsureRootTenant(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Tenant{}).Where("key = ?", model.RootTenantKey).Count(&count).Error; err != nil {
		return fmt.Errorf("check root tenant: %w", err)
	}
	if count > 0 {
		return nil
	}

	root := model.Tenant{
		Key:      model.RootTenantKey,
		Name:     "Root",
		IsActive: true,
		Status:   model.TenantActive,
	}
	if err := db.Create(&root).Error; err != nil {
		return fmt.Errorf("seed root tenant: %w", err)
	}
	return nil
}
