package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erickcastrillo/diquis/internal/config"
	"github.com/erickcastrillo/diquis/internal/directory"
	"github.com/erickcastrillo/diquis/internal/handler"
	"github.com/erickcastrillo/diquis/internal/jwtutil"
	"github.com/erickcastrillo/diquis/internal/middleware"
	"github.com/erickcastrillo/diquis/internal/model"
	"github.com/erickcastrillo/diquis/internal/testutil"
)

// productAPI wires the product routes through the real auth and tenant
// middleware, the way the server binary does.
type productAPI struct {
	e   *echo.Echo
	jwt *jwtutil.JWTUtil
}

func newProductAPI(t *testing.T) *productAPI {
	t.Helper()
	m, cfg := testutil.NewManager(t)

	db, err := m.Pool(cfg.DSN())
	require.NoError(t, err)
	require.NoError(t, directory.EnsureRootTenant(db))
	for _, tenant := range []model.Tenant{
		{Key: "alpha", Name: "Alpha", IsActive: true, Status: model.TenantActive},
		{Key: "beta", Name: "Beta", IsActive: true, Status: model.TenantActive},
		{Key: "paused", Name: "Paused", IsActive: false, Status: model.TenantActive},
	} {
		require.NoError(t, db.Create(&tenant).Error)
	}

	dir := directory.New(m)
	jwtUtil := jwtutil.NewJWTUtil(&config.JWTConfig{SigningKey: "test-key", ExpirationHours: 1})
	h := handler.NewProductHandler(m)

	e := echo.New()
	api := e.Group("/api/products", middleware.JWTAuthMiddleware(jwtUtil), middleware.TenantScopeMiddleware(dir))
	api.GET("", h.List)
	api.GET("/:id", h.Get)
	api.POST("", h.Create)
	api.PUT("/:id", h.Update)
	api.DELETE("/:id", h.Delete)

	return &productAPI{e: e, jwt: jwtUtil}
}

func (a *productAPI) request(t *testing.T, tenantKey, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	token, err := a.jwt.GenerateToken("user@example.com", 10, 0, tenantKey, model.RoleMember)
	require.NoError(t, err)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func TestProductCRUDWithinTenant(t *testing.T) {
	api := newProductAPI(t)

	rec := api.request(t, "alpha", http.MethodPost, "/api/products",
		`{"name":"Match Ball","sku":"BALL-1","price":29.9,"stock":10,"is_active":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotZero(t, created.ID)
	assert.NotZero(t, created.TenantID)

	// Duplicate SKU within the tenant conflicts.
	rec = api.request(t, "alpha", http.MethodPost, "/api/products",
		`{"name":"Other Ball","sku":"BALL-1","price":5}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Same SKU in another tenant is fine.
	rec = api.request(t, "beta", http.MethodPost, "/api/products",
		`{"name":"Match Ball","sku":"BALL-1","price":31}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Each tenant lists only its own products.
	rec = api.request(t, "alpha", http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []model.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)

	// Cross-tenant access by id is a 404, not a leak.
	rec = api.request(t, "beta", http.MethodGet, "/api/products/"+uintToString(created.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Update and delete inside the owning tenant.
	rec = api.request(t, "alpha", http.MethodPut, "/api/products/"+uintToString(created.ID),
		`{"name":"Match Ball Pro","sku":"BALL-1","price":35,"stock":8,"is_active":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.request(t, "alpha", http.MethodDelete, "/api/products/"+uintToString(created.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.request(t, "alpha", http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	listed = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Empty(t, listed, "deleted products drop out of listings")
}

func TestProductUpdateRejectsPartialBody(t *testing.T) {
	api := newProductAPI(t)

	rec := api.request(t, "alpha", http.MethodPost, "/api/products",
		`{"name":"Match Ball","sku":"BALL-1","price":29.9,"stock":10,"is_active":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// A body missing name/sku must not blank the stored fields.
	rec = api.request(t, "alpha", http.MethodPut, "/api/products/"+uintToString(created.ID),
		`{"price":35}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.request(t, "alpha", http.MethodGet, "/api/products/"+uintToString(created.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stored model.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, "BALL-1", stored.SKU)
	assert.Equal(t, "Match Ball", stored.Name)
	assert.Equal(t, 29.9, stored.Price)
}

func TestProductRoutesRequireAuth(t *testing.T) {
	api := newProductAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()
	api.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProductRoutesRejectBadTenants(t *testing.T) {
	api := newProductAPI(t)

	rec := api.request(t, "ghost", http.MethodGet, "/api/products", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.request(t, "paused", http.MethodGet, "/api/products", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestProductHeaderOverridesTokenTenant(t *testing.T) {
	api := newProductAPI(t)

	rec := api.request(t, "alpha", http.MethodPost, "/api/products",
		`{"name":"Cone","sku":"CONE-1","price":3}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// A token for alpha with an explicit X-Tenant header runs in the
	// header's tenant.
	token, err := api.jwt.GenerateToken("user@example.com", 10, 0, "alpha", model.RoleMember)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(middleware.TenantHeader, "beta")
	recorder := httptest.NewRecorder()
	api.e.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	var listed []model.Product
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &listed))
	assert.Empty(t, listed)
}
