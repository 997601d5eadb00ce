package provisioning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/erickcastrillo/diquis/internal/config"
	"github.com/erickcastrillo/diquis/internal/database"
	"github.com/erickcastrillo/diquis/internal/directory"
	"github.com/erickcastrillo/diquis/internal/identity"
	"github.com/erickcastrillo/diquis/internal/logger"
	"github.com/erickcastrillo/diquis/internal/metrics"
	"github.com/erickcastrillo/diquis/internal/model"
	"github.com/erickcastrillo/diquis/internal/notify"
	"github.com/erickcastrillo/diquis/internal/queue"
	"github.com/erickcastrillo/diquis/internal/scope"
)

// Worker executes tenant provisioning and update jobs. It is the only
// writer of tenant status transitions. Runs are retried by the dispatcher,
// so every step tolerates re-execution: the row is re-read, the admin user
// is checked before creation, and migrations are additive.
type Worker struct {
	manager   *database.Manager
	dir       *directory.Directory
	identity  *identity.Service
	notifier  notify.Notifier
	dbCfg     *config.DBConfig
	serverCfg *config.ServerConfig
}

// NewWorker wires the worker's collaborators.
func NewWorker(manager *database.Manager, dir *directory.Directory, ids *identity.Service, notifier notify.Notifier, dbCfg *config.DBConfig, serverCfg *config.ServerConfig) *Worker {
	return &Worker{
		manager:   manager,
		dir:       dir,
		identity:  ids,
		notifier:  notifier,
		dbCfg:     dbCfg,
		serverCfg: serverCfg,
	}
}

// ProcessProvisionTask is the asynq handler for tenant:provision.
func (w *Worker) ProcessProvisionTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.TenantProvisionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal provision payload: %v: %w", err, asynq.SkipRetry)
	}
	return w.Provision(ctx, payload)
}

// ProcessUpdateTask is the asynq handler for tenant:update.
func (w *Worker) ProcessUpdateTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.TenantUpdatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal update payload: %v: %w", err, asynq.SkipRetry)
	}
	return w.Update(ctx, payload)
}

// Provision runs the creation workflow for an already-recorded tenant:
// Pending → Provisioning → Active, or → Failed with the error recorded on
// the row, notified to the initiating user and re-raised for retry.
func (w *Worker) Provision(ctx context.Context, payload queue.TenantProvisionPayload) error {
	log := logger.FromContext(ctx).With(zap.Uint("tenant_id", payload.TenantID))

	tenant, err := w.dir.FindByID(ctx, payload.TenantID)
	if err != nil {
		if errors.Is(err, directory.ErrTenantNotFound) {
			// A payload referencing a missing row means the job outlived its
			// tenant; nothing user-facing can be done.
			log.Error("Tenant row missing for provisioning job, dropping")
			return fmt.Errorf("tenant %d not found: %w", payload.TenantID, asynq.SkipRetry)
		}
		return err
	}

	now := time.Now().UTC()
	tenant.LastProvisioningAttempt = &now
	if err := w.setStatus(ctx, tenant, model.TenantProvisioning, ""); err != nil {
		log.Error("Cannot start provisioning", zap.Error(err))
		if errors.Is(err, ErrInvalidTransition) {
			return fmt.Errorf("start provisioning: %v: %w", err, asynq.SkipRetry)
		}
		// A failed bookkeeping write is infrastructure trouble; leave the
		// job retryable.
		return fmt.Errorf("start provisioning: %w", err)
	}
	log.Info("Tenant provisioning started", zap.String("tenant_key", tenant.Key))

	if err := w.provision(ctx, tenant, payload); err != nil {
		log.Error("Tenant provisioning failed", zap.Error(err))
		metrics.RecordProvisioning("failed")
		if statusErr := w.setStatus(ctx, tenant, model.TenantFailed, err.Error()); statusErr != nil {
			log.Error("Failed to record provisioning failure", zap.Error(statusErr))
		}
		w.notifier.NotifyTenantCreationFailed(ctx, payload.InitiatedBy, err.Error())
		// Re-raise so the dispatcher's retry policy can act on it.
		return err
	}

	if err := w.setStatus(ctx, tenant, model.TenantActive, ""); err != nil {
		return err
	}
	metrics.RecordProvisioning("succeeded")
	w.notifier.NotifyTenantCreated(ctx, payload.InitiatedBy, tenant.ID, tenant.Name)
	log.Info("Tenant provisioning completed", zap.String("tenant_key", tenant.Key))
	return nil
}

// provision performs the fallible middle of the creation workflow.
func (w *Worker) provision(ctx context.Context, tenant *model.Tenant, payload queue.TenantProvisionPayload) error {
	if err := w.ensureAdminUser(ctx, tenant, payload.Request); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	if tenant.HasIsolatedDatabase() {
		if err := w.ensureTenantDatabase(ctx, tenant); err != nil {
			return fmt.Errorf("provision isolated database for tenant %q: %w", tenant.Key, err)
		}
	}
	return nil
}

// ensureAdminUser creates the tenant's administrative identity with the
// academy_owner role. An existing user with the admin email is reused, so a
// retried run after partial success does not fail on re-creation.
func (w *Worker) ensureAdminUser(ctx context.Context, tenant *model.Tenant, req queue.TenantCreateRequest) error {
	sc := scope.Background(tenant.ID, tenant.Key, "")

	admin, err := w.identity.FindByEmail(ctx, sc, req.AdminEmail)
	if errors.Is(err, identity.ErrUserNotFound) {
		admin = &model.User{
			Email:          req.AdminEmail,
			FirstName:      req.AdminFirstName,
			LastName:       req.AdminLastName,
			EmailConfirmed: true, // no verification loop for provisioned admins
		}
		if err := w.identity.CreateUser(ctx, sc, admin, req.AdminPassword); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	return w.identity.AddToRole(ctx, sc, admin.ID, model.RoleAcademyOwner)
}

// ensureTenantDatabase makes the tenant's isolated database reachable and
// migrated. Outside production the database is created through the server's
// administrative database when the first connection fails; in production it
// is assumed pre-provisioned by infrastructure and only migrated.
func (w *Worker) ensureTenantDatabase(ctx context.Context, tenant *model.Tenant) error {
	pool, err := w.manager.Pool(tenant.ConnectionString)
	if err != nil {
		if w.serverCfg.IsProduction() {
			return fmt.Errorf("connect tenant database: %w", err)
		}

		dbName := databaseNameFromDSN(tenant.ConnectionString)
		if dbName == "" {
			return fmt.Errorf("connect tenant database: %w", err)
		}

		logger.FromContext(ctx).Info("Creating tenant database",
			zap.String("tenant_key", tenant.Key),
			zap.String("database", dbName))

		admin, adminErr := w.manager.Pool(w.dbCfg.DSNForDatabase(w.dbCfg.AdminDBName))
		if adminErr != nil {
			return fmt.Errorf("connect administrative database: %w", adminErr)
		}
		if execErr := admin.Exec(fmt.Sprintf(`CREATE DATABASE %q`, dbName)).Error; execErr != nil {
			return fmt.Errorf("create database %q: %w", dbName, execErr)
		}

		pool, err = w.manager.Pool(tenant.ConnectionString)
		if err != nil {
			return fmt.Errorf("connect tenant database after create: %w", err)
		}
	}

	return database.MigrateTenant(pool)
}

// Update runs the update workflow: Active → Updating → Active, or → Failed
// with notification.
func (w *Worker) Update(ctx context.Context, payload queue.TenantUpdatePayload) error {
	log := logger.FromContext(ctx).With(zap.Uint("tenant_id", payload.TenantID))

	tenant, err := w.dir.FindByID(ctx, payload.TenantID)
	if err != nil {
		if errors.Is(err, directory.ErrTenantNotFound) {
			log.Error("Tenant row missing for update job, dropping")
			return fmt.Errorf("tenant %d not found: %w", payload.TenantID, asynq.SkipRetry)
		}
		return err
	}
	if tenant.IsRoot() {
		log.Warn("Update job targeting root tenant, dropping")
		return fmt.Errorf("%v: %w", ErrRootTenantProtected, asynq.SkipRetry)
	}

	if err := w.setStatus(ctx, tenant, model.TenantUpdating, ""); err != nil {
		log.Error("Cannot start update", zap.Error(err))
		if errors.Is(err, ErrInvalidTransition) {
			// The job is dropped for good, so tell the initiating user.
			w.notifier.NotifyTenantUpdateFailed(ctx, payload.InitiatedBy, err.Error())
			return fmt.Errorf("start update: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("start update: %w", err)
	}

	if err := w.applyUpdate(ctx, tenant, payload.Request); err != nil {
		log.Error("Tenant update failed", zap.Error(err))
		metrics.RecordProvisioning("update_failed")
		if statusErr := w.setStatus(ctx, tenant, model.TenantFailed, err.Error()); statusErr != nil {
			log.Error("Failed to record update failure", zap.Error(statusErr))
		}
		w.notifier.NotifyTenantUpdateFailed(ctx, payload.InitiatedBy, err.Error())
		return err
	}

	if err := w.setStatus(ctx, tenant, model.TenantActive, ""); err != nil {
		return err
	}
	metrics.RecordProvisioning("updated")
	w.notifier.NotifyTenantUpdated(ctx, payload.InitiatedBy, tenant.ID, tenant.Name)
	log.Info("Tenant update completed", zap.String("tenant_key", tenant.Key))
	return nil
}

func (w *Worker) applyUpdate(ctx context.Context, tenant *model.Tenant, req queue.TenantUpdateRequest) error {
	db, err := w.manager.Base(ctx)
	if err != nil {
		return err
	}

	if req.Name != "" {
		tenant.Name = req.Name
	}
	if req.IsActive != nil {
		tenant.IsActive = *req.IsActive
	}

	if err := db.Model(tenant).Updates(map[string]interface{}{
		"name":      tenant.Name,
		"is_active": tenant.IsActive,
	}).Error; err != nil {
		return fmt.Errorf("apply tenant changes: %w", err)
	}
	return nil
}

// setStatus validates the transition against the state machine and commits
// the new status together with the provisioning error field.
func (w *Worker) setStatus(ctx context.Context, tenant *model.Tenant, next model.TenantStatus, provisioningError string) error {
	if !tenant.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, tenant.Status, next)
	}

	db, err := w.manager.Base(ctx)
	if err != nil {
		return err
	}

	tenant.Status = next
	tenant.ProvisioningError = provisioningError
	return db.Transaction(func(tx *gorm.DB) error {
		return tx.Model(tenant).Updates(map[string]interface{}{
			"status":                    tenant.Status,
			"provisioning_error":        tenant.ProvisioningError,
			"last_provisioning_attempt": tenant.LastProvisioningAttempt,
		}).Error
	})
}

// databaseNameFromDSN pulls the dbname out of a key=value DSN.
func databaseNameFromDSN(dsn string) string {
	for _, field := range strings.Fields(dsn) {
		if name, ok := strings.CutPrefix(field, "dbname="); ok {
			return name
		}
	}
	return ""
}
