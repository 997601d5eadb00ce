package provisioning

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/erickcastrillo/diquis/internal/config"
	"github.com/erickcastrillo/diquis/internal/database"
	"github.com/erickcastrillo/diquis/internal/directory"
	"github.com/erickcastrillo/diquis/internal/identity"
	"github.com/erickcastrillo/diquis/internal/model"
	"github.com/erickcastrillo/diquis/internal/queue"
	"github.com/erickcastrillo/diquis/internal/scope"
	"github.com/erickcastrillo/diquis/internal/testutil"
)

// fakeNotifier records delivered notifications.
type fakeNotifier struct {
	created      []uint
	createFailed []string
	updated      []uint
	updateFailed []string
	lastUserID   uint
}

func (f *fakeNotifier) NotifyTenantCreated(_ context.Context, userID, tenantID uint, _ string) {
	f.lastUserID = userID
	f.created = append(f.created, tenantID)
}

func (f *fakeNotifier) NotifyTenantCreationFailed(_ context.Context, userID uint, message string) {
	f.lastUserID = userID
	f.createFailed = append(f.createFailed, message)
}

func (f *fakeNotifier) NotifyTenantUpdated(_ context.Context, userID, tenantID uint, _ string) {
	f.lastUserID = userID
	f.updated = append(f.updated, tenantID)
}

func (f *fakeNotifier) NotifyTenantUpdateFailed(_ context.Context, userID uint, message string) {
	f.lastUserID = userID
	f.updateFailed = append(f.updateFailed, message)
}

type workerEnv struct {
	manager  *database.Manager
	cfg      *config.DBConfig
	dir      *directory.Directory
	identity *identity.Service
	notifier *fakeNotifier
	worker   *Worker
	base     *gorm.DB
}

func newWorkerEnv(t *testing.T) *workerEnv {
	t.Helper()
	m, cfg := testutil.NewManager(t)
	return buildWorkerEnv(t, m, cfg)
}

// newBrokenDBWorkerEnv maps any DSN naming the "broken" database onto an
// unopenable sqlite file, so isolated-database provisioning against it fails.
func newBrokenDBWorkerEnv(t *testing.T) *workerEnv {
	t.Helper()

	cfg := testutil.NewDBConfig()
	good := testutil.SQLiteDialector(cfg.DBName)
	badPath := filepath.Join(t.TempDir(), "missing", "broken.db")
	m := database.NewManager(cfg, func(dsn string) gorm.Dialector {
		if strings.Contains(dsn, "dbname=broken") {
			return sqlite.Open(badPath)
		}
		return good(dsn)
	})
	t.Cleanup(func() { _ = m.Close() })

	db, err := m.Pool(cfg.DSN())
	require.NoError(t, err)
	require.NoError(t, database.MigrateBase(db))

	return buildWorkerEnv(t, m, cfg)
}

func buildWorkerEnv(t *testing.T, m *database.Manager, cfg *config.DBConfig) *workerEnv {
	t.Helper()

	base, err := m.Pool(cfg.DSN())
	require.NoError(t, err)

	dir := directory.New(m)
	ids := identity.NewService(m)
	notifier := &fakeNotifier{}
	serverCfg := &config.ServerConfig{Env: "test"}

	return &workerEnv{
		manager:  m,
		cfg:      cfg,
		dir:      dir,
		identity: ids,
		notifier: notifier,
		worker:   NewWorker(m, dir, ids, notifier, cfg, serverCfg),
		base:     base,
	}
}

func (e *workerEnv) seedTenant(t *testing.T, tenant model.Tenant) *model.Tenant {
	t.Helper()
	require.NoError(t, e.base.Create(&tenant).Error)
	return &tenant
}

func (e *workerEnv) reload(t *testing.T, id uint) *model.Tenant {
	t.Helper()
	tenant, err := e.dir.FindByID(context.Background(), id)
	require.NoError(t, err)
	return tenant
}

func provisionPayload(tenantID uint) queue.TenantProvisionPayload {
	return queue.TenantProvisionPayload{
		TenantID: tenantID,
		Request: queue.TenantCreateRequest{
			Key:            "alpha",
			Name:           "Alpha",
			AdminEmail:     "owner@alpha.example",
			AdminPassword:  "s3cret",
			AdminFirstName: "Ada",
			AdminLastName:  "Owner",
		},
		InitiatedBy: 42,
	}
}

func TestProvisionSharedDatabaseTenant(t *testing.T) {
	env := newWorkerEnv(t)
	ctx := context.Background()

	tenant := env.seedTenant(t, model.Tenant{Key: "alpha", Name: "Alpha", IsActive: true, Status: model.TenantPending})

	require.NoError(t, env.worker.Provision(ctx, provisionPayload(tenant.ID)))

	stored := env.reload(t, tenant.ID)
	assert.Equal(t, model.TenantActive, stored.Status)
	assert.Empty(t, stored.ProvisioningError)
	assert.NotNil(t, stored.LastProvisioningAttempt)

	sc := scope.Background(tenant.ID, tenant.Key, "")
	admin, err := env.identity.FindByEmail(ctx, sc, "owner@alpha.example")
	require.NoError(t, err)
	assert.True(t, admin.EmailConfirmed)
	assert.Equal(t, tenant.ID, admin.TenantID)

	roles, err := env.identity.GetRoles(ctx, sc, admin.ID)
	require.NoError(t, err)
	assert.Contains(t, roles, model.RoleAcademyOwner)

	assert.Equal(t, []uint{tenant.ID}, env.notifier.created)
	assert.Equal(t, uint(42), env.notifier.lastUserID)
}

func TestProvisionIsolatedDatabaseTenant(t *testing.T) {
	env := newWorkerEnv(t)
	ctx := context.Background()

	dsn := env.cfg.DSNForDatabase(env.cfg.TenantDBName("gamma"))
	tenant := env.seedTenant(t, model.Tenant{
		Key: "gamma", Name: "Gamma", IsActive: true,
		Status: model.TenantPending, ConnectionString: dsn,
	})

	payload := provisionPayload(tenant.ID)
	payload.Request.Key = "gamma"
	payload.Request.HasIsolatedDatabase = true
	require.NoError(t, env.worker.Provision(ctx, payload))

	assert.Equal(t, model.TenantActive, env.reload(t, tenant.ID).Status)

	// The isolated database must carry the application schema.
	pool, err := env.manager.Pool(dsn)
	require.NoError(t, err)
	assert.True(t, pool.Migrator().HasTable(&model.Product{}))
	assert.True(t, pool.Migrator().HasTable(&model.Player{}))
}

func TestProvisionFailureRecordsErrorAndNotifies(t *testing.T) {
	env := newBrokenDBWorkerEnv(t)
	ctx := context.Background()

	dsn := env.cfg.DSNForDatabase("broken")
	tenant := env.seedTenant(t, model.Tenant{
		Key: "alpha", Name: "Alpha", IsActive: true,
		Status: model.TenantPending, ConnectionString: dsn,
	})

	err := env.worker.Provision(ctx, provisionPayload(tenant.ID))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry, "infrastructure failures stay retryable")

	stored := env.reload(t, tenant.ID)
	assert.Equal(t, model.TenantFailed, stored.Status)
	assert.NotEmpty(t, stored.ProvisioningError)

	require.Len(t, env.notifier.createFailed, 1)
	assert.Equal(t, uint(42), env.notifier.lastUserID)
	assert.Empty(t, env.notifier.created)
}

func TestProvisionMissingTenantDropsJob(t *testing.T) {
	env := newWorkerEnv(t)

	err := env.worker.Provision(context.Background(), provisionPayload(9999))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestProvisionRejectsInvalidStartingState(t *testing.T) {
	env := newWorkerEnv(t)

	tenant := env.seedTenant(t, model.Tenant{Key: "alpha", Name: "Alpha", IsActive: true, Status: model.TenantActive})

	err := env.worker.Provision(context.Background(), provisionPayload(tenant.ID))
	assert.ErrorIs(t, err, asynq.SkipRetry, "an already-active tenant cannot re-enter provisioning")
}

func TestProvisionStatusWriteFailureStaysRetryable(t *testing.T) {
	env := newWorkerEnv(t)

	tenant := env.seedTenant(t, model.Tenant{Key: "alpha", Name: "Alpha", IsActive: true, Status: model.TenantPending})

	// Reads keep working; only the status bookkeeping write fails, like a
	// connection dropping mid-job.
	require.NoError(t, env.base.Exec(
		`CREATE TRIGGER tenants_reject_update BEFORE UPDATE ON tenants
		 BEGIN SELECT RAISE(ABORT, 'write rejected'); END`).Error)

	err := env.worker.Provision(context.Background(), provisionPayload(tenant.ID))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry, "a failed status write must stay retryable")

	require.NoError(t, env.base.Exec(`DROP TRIGGER tenants_reject_update`).Error)
	assert.Equal(t, model.TenantPending, env.reload(t, tenant.ID).Status)
}

func TestProvisionRetryAfterFailureIsIdempotent(t *testing.T) {
	env := newWorkerEnv(t)
	ctx := context.Background()

	tenant := env.seedTenant(t, model.Tenant{Key: "alpha", Name: "Alpha", IsActive: true, Status: model.TenantPending})
	require.NoError(t, env.worker.Provision(ctx, provisionPayload(tenant.ID)))

	// Simulate a failed later attempt being retried from the top.
	require.NoError(t, env.base.Model(&model.Tenant{}).Where("id = ?", tenant.ID).
		Update("status", model.TenantFailed).Error)
	require.NoError(t, env.worker.Provision(ctx, provisionPayload(tenant.ID)))

	assert.Equal(t, model.TenantActive, env.reload(t, tenant.ID).Status)

	sc := scope.Background(tenant.ID, tenant.Key, "")
	scopedCtx := scope.NewContext(ctx, sc)
	var users, roles int64
	require.NoError(t, env.base.WithContext(scopedCtx).Model(&model.User{}).Count(&users).Error)
	require.NoError(t, env.base.WithContext(scopedCtx).Model(&model.UserRole{}).Count(&roles).Error)
	assert.EqualValues(t, 1, users, "retry must not duplicate the admin user")
	assert.EqualValues(t, 1, roles, "retry must not duplicate the owner role")
}

func TestUpdateLifecycle(t *testing.T) {
	env := newWorkerEnv(t)
	ctx := context.Background()

	tenant := env.seedTenant(t, model.Tenant{Key: "alpha", Name: "Alpha", IsActive: true, Status: model.TenantActive})

	inactive := false
	err := env.worker.Update(ctx, queue.TenantUpdatePayload{
		TenantID:    tenant.ID,
		Request:     queue.TenantUpdateRequest{Name: "Alpha United", IsActive: &inactive},
		InitiatedBy: 7,
	})
	require.NoError(t, err)

	stored := env.reload(t, tenant.ID)
	assert.Equal(t, model.TenantActive, stored.Status)
	assert.Equal(t, "Alpha United", stored.Name)
	assert.False(t, stored.IsActive)

	assert.Equal(t, []uint{tenant.ID}, env.notifier.updated)
	assert.Equal(t, uint(7), env.notifier.lastUserID)
}

func TestUpdateInvalidStartingStateNotifiesAndDrops(t *testing.T) {
	env := newWorkerEnv(t)

	tenant := env.seedTenant(t, model.Tenant{Key: "alpha", Name: "Alpha", IsActive: true, Status: model.TenantPending})

	err := env.worker.Update(context.Background(), queue.TenantUpdatePayload{
		TenantID:    tenant.ID,
		Request:     queue.TenantUpdateRequest{Name: "Too Soon"},
		InitiatedBy: 7,
	})
	assert.ErrorIs(t, err, asynq.SkipRetry, "an un-provisioned tenant cannot be updated")

	require.Len(t, env.notifier.updateFailed, 1, "the initiating user must hear about the dropped update")
	assert.Equal(t, uint(7), env.notifier.lastUserID)
	assert.Equal(t, "Alpha", env.reload(t, tenant.ID).Name)
}

func TestUpdateRootTenantDropsJob(t *testing.T) {
	env := newWorkerEnv(t)
	require.NoError(t, directory.EnsureRootTenant(env.base))

	root, err := env.dir.FindByKey(context.Background(), model.RootTenantKey)
	require.NoError(t, err)

	err = env.worker.Update(context.Background(), queue.TenantUpdatePayload{
		TenantID: root.ID,
		Request:  queue.TenantUpdateRequest{Name: "Hijacked"},
	})
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Equal(t, "Root", env.reload(t, root.ID).Name)
}

func TestProcessTasksRejectMalformedPayloads(t *testing.T) {
	env := newWorkerEnv(t)
	ctx := context.Background()

	err := env.worker.ProcessProvisionTask(ctx, asynq.NewTask(queue.TypeTenantProvision, []byte("not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = env.worker.ProcessUpdateTask(ctx, asynq.NewTask(queue.TypeTenantUpdate, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
