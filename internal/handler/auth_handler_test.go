package handler_test

import (
	"context"
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
	"github.com/erickcastrillo/diquis/internal/identity"
	"github.com/erickcastrillo/diquis/internal/jwtutil"
	"github.com/erickcastrillo/diquis/internal/middleware"
	"github.com/erickcastrillo/diquis/internal/model"
	"github.com/erickcastrillo/diquis/internal/scope"
	"github.com/erickcastrillo/diquis/internal/testutil"
)

func TestLoginTokenCarriesMostPrivilegedRole(t *testing.T) {
	m, cfg := testutil.NewManager(t)

	db, err := m.Pool(cfg.DSN())
	require.NoError(t, err)
	require.NoError(t, directory.EnsureRootTenant(db))
	tenant := model.Tenant{Key: "alpha", Name: "Alpha", IsActive: true, Status: model.TenantActive}
	require.NoError(t, db.Create(&tenant).Error)

	ids := identity.NewService(m)
	sc := scope.Background(tenant.ID, tenant.Key, "")
	user := &model.User{Email: "owner@alpha.example"}
	require.NoError(t, ids.CreateUser(context.Background(), sc, user, "s3cret"))
	require.NoError(t, ids.AddToRole(context.Background(), sc, user.ID, model.RoleMember))
	require.NoError(t, ids.AddToRole(context.Background(), sc, user.ID, model.RoleAcademyOwner))

	jwtUtil := jwtutil.NewJWTUtil(&config.JWTConfig{SigningKey: "test-key", ExpirationHours: 1})
	h := handler.NewAuthHandler(ids, jwtUtil)

	e := echo.New()
	e.POST("/api/auth/login", h.Login, middleware.TenantScopeMiddleware(directory.New(m)))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"owner@alpha.example","password":"s3cret"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(middleware.TenantHeader, "alpha")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	token, ok := body["token"].(string)
	require.True(t, ok)

	claims, err := jwtUtil.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAcademyOwner, claims.Role, "a multi-role user gets their strongest role")
}
