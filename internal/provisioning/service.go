// Package provisioning implements the asynchronous tenant lifecycle: the
// caller-side validation and enqueue path, and the background worker that
// stands tenants up (admin identity, optional isolated database) while
// driving the tenant's status state machine.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/erickcastrillo/diquis/internal/config"
	"github.com/erickcastrillo/diquis/internal/database"
	"github.com/erickcastrillo/diquis/internal/directory"
	"github.com/erickcastrillo/diquis/internal/logger"
	"github.com/erickcastrillo/diquis/internal/model"
	"github.com/erickcastrillo/diquis/internal/queue"
)

var (
	// ErrTenantExists is returned when the requested key is already taken.
	ErrTenantExists = errors.New("tenant already exists")
	// ErrRootTenantProtected guards the reserved root tenant.
	ErrRootTenantProtected = errors.New("cannot edit root tenant")
	// ErrInvalidKey is returned when the requested key normalizes to nothing.
	ErrInvalidKey = errors.New("tenant key is invalid")
	// ErrInvalidTransition is returned when a job finds the tenant in a
	// status that the requested transition is not allowed from.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Service is the caller-side half of the workflow. It validates, records the
// Pending tenant row and enqueues the background run; it never performs
// status transitions past Pending itself.
type Service struct {
	manager    *database.Manager
	dir        *directory.Directory
	dispatcher queue.Dispatcher
	dbCfg      *config.DBConfig
}

// NewService creates the caller-side provisioning service.
func NewService(manager *database.Manager, dir *directory.Directory, dispatcher queue.Dispatcher, dbCfg *config.DBConfig) *Service {
	return &Service{manager: manager, dir: dir, dispatcher: dispatcher, dbCfg: dbCfg}
}

// RequestCreate validates the creation request, inserts the tenant with
// Status=Pending and enqueues the provisioning job. It returns immediately
// with the new tenant and the job id; the outcome arrives by notification.
func (s *Service) RequestCreate(ctx context.Context, req queue.TenantCreateRequest, initiatedBy uint) (*model.Tenant, string, error) {
	key := NormalizeKey(req.Key)
	if key == "" {
		return nil, "", ErrInvalidKey
	}

	if _, err := s.dir.FindByKey(ctx, key); err == nil {
		return nil, "", ErrTenantExists
	} else if !errors.Is(err, directory.ErrTenantNotFound) {
		return nil, "", err
	}

	var connectionString string
	if req.HasIsolatedDatabase {
		connectionString = s.dbCfg.DSNForDatabase(s.dbCfg.TenantDBName(key))
	}

	tenant := model.Tenant{
		Key:              key,
		Name:             req.Name,
		IsActive:         true,
		ConnectionString: connectionString,
		Status:           model.TenantPending,
		CreatedOn:        time.Now().UTC(),
	}

	db, err := s.manager.Base(ctx)
	if err != nil {
		return nil, "", err
	}
	if err := db.Create(&tenant).Error; err != nil {
		return nil, "", fmt.Errorf("create tenant row: %w", err)
	}

	req.Key = key
	jobID, err := s.dispatcher.EnqueueTenantProvision(ctx, queue.TenantProvisionPayload{
		TenantID:    tenant.ID,
		Request:     req,
		InitiatedBy: initiatedBy,
	})
	if err != nil {
		return nil, "", fmt.Errorf("enqueue provisioning: %w", err)
	}

	logger.FromContext(ctx).Info("Tenant provisioning enqueued",
		zap.Uint("tenant_id", tenant.ID),
		zap.String("tenant_key", tenant.Key),
		zap.String("job_id", jobID))

	return &tenant, jobID, nil
}

// RequestUpdate validates that the tenant exists and is not root, then
// enqueues the update job. Field changes happen in the worker.
func (s *Service) RequestUpdate(ctx context.Context, tenantID uint, req queue.TenantUpdateRequest, initiatedBy uint) (string, error) {
	tenant, err := s.dir.FindByID(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if tenant.IsRoot() {
		return "", ErrRootTenantProtected
	}

	jobID, err := s.dispatcher.EnqueueTenantUpdate(ctx, queue.TenantUpdatePayload{
		TenantID:    tenant.ID,
		Request:     req,
		InitiatedBy: initiatedBy,
	})
	if err != nil {
		return "", fmt.Errorf("enqueue update: %w", err)
	}

	logger.FromContext(ctx).Info("Tenant update enqueued",
		zap.Uint("tenant_id", tenant.ID),
		zap.String("job_id", jobID))

	return jobID, nil
}
