package directory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erickcastrillo/diquis/internal/directory"
	"github.com/erickcastrillo/diquis/internal/model"
	"github.com/erickcastrillo/diquis/internal/scope"
	"github.com/erickcastrillo/diquis/internal/testutil"
)

func newDirectoryUnderTest(t *testing.T) (*directory.Directory, func(model.Tenant) *model.Tenant) {
	t.Helper()
	m, cfg := testutil.NewManager(t)

	db, err := m.Pool(cfg.DSN())
	require.NoError(t, err)
	require.NoError(t, directory.EnsureRootTenant(db))

	seed := func(tenant model.Tenant) *model.Tenant {
		require.NoError(t, db.Create(&tenant).Error)
		return &tenant
	}
	return directory.New(m), seed
}

func TestEnsureRootTenantIsIdempotent(t *testing.T) {
	m, cfg := testutil.NewManager(t)
	db, err := m.Pool(cfg.DSN())
	require.NoError(t, err)

	require.NoError(t, directory.EnsureRootTenant(db))
	require.NoError(t, directory.EnsureRootTenant(db))

	var count int64
	require.NoError(t, db.Model(&model.Tenant{}).Where("key = ?", model.RootTenantKey).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestFindByKey(t *testing.T) {
	dir, seed := newDirectoryUnderTest(t)
	ctx := context.Background()

	seed(model.Tenant{Key: "alpha", Name: "Alpha", IsActive: true, Status: model.TenantActive})

	tenant, err := dir.FindByKey(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", tenant.Name)

	_, err = dir.FindByKey(ctx, "nope")
	assert.ErrorIs(t, err, directory.ErrTenantNotFound)
}

func TestResolveFallsBackToRoot(t *testing.T) {
	dir, _ := newDirectoryUnderTest(t)

	sc, err := dir.Resolve(context.Background(), "", 5)
	require.NoError(t, err)
	assert.Equal(t, model.RootTenantKey, sc.TenantKey)
	assert.Equal(t, uint(5), sc.UserID)
	assert.Empty(t, sc.ConnectionString)
}

func TestResolveCarriesConnectionString(t *testing.T) {
	dir, seed := newDirectoryUnderTest(t)

	seed(model.Tenant{Key: "gamma", Name: "Gamma", IsActive: true, Status: model.TenantActive,
		ConnectionString: "host=db dbname=diquis-gamma"})

	sc, err := dir.Resolve(context.Background(), "gamma", 9)
	require.NoError(t, err)
	assert.Equal(t, "host=db dbname=diquis-gamma", sc.ConnectionString)
}

func TestResolveRejectsUnknownAndInactive(t *testing.T) {
	dir, seed := newDirectoryUnderTest(t)
	ctx := context.Background()

	_, err := dir.Resolve(ctx, "ghost", 1)
	assert.ErrorIs(t, err, directory.ErrTenantNotFound)

	seed(model.Tenant{Key: "paused", Name: "Paused", IsActive: false, Status: model.TenantActive})
	_, err = dir.Resolve(ctx, "paused", 1)
	assert.ErrorIs(t, err, directory.ErrTenantInactive)
}

func TestResolveJobUsesSystemActor(t *testing.T) {
	dir, seed := newDirectoryUnderTest(t)

	tenant := seed(model.Tenant{Key: "alpha", Name: "Alpha", IsActive: true, Status: model.TenantActive})

	sc, err := dir.ResolveJob(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, sc.TenantID)
	assert.Equal(t, scope.SystemUserID, sc.UserID)
	assert.True(t, sc.IsSystem())
}

func TestListReturnsAllTenants(t *testing.T) {
	dir, seed := newDirectoryUnderTest(t)

	seed(model.Tenant{Key: "alpha", Name: "Alpha", IsActive: true, Status: model.TenantActive})
	seed(model.Tenant{Key: "beta", Name: "Beta", IsActive: true, Status: model.TenantPending})

	tenants, err := dir.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, tenants, 3) // root plus the two seeded
}
