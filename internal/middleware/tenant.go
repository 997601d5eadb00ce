package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/erickcastrillo/diquis/internal/directory"
	"github.com/erickcastrillo/diquis/internal/logger"
	"github.com/erickcastrillo/diquis/internal/scope"
)

// TenantHeader carries an explicit tenant key on a request; it takes
// precedence over the key baked into the JWT.
const TenantHeader = "X-Tenant"

// TenantScopeMiddleware resolves the request's tenant scope and fails the
// request before any tenant-scoped data access when the tenant is unknown or
// inactive. The resolved scope is stored on the Echo context and in the
// request context, where the data layer picks it up.
func TenantScopeMiddleware(dir *directory.Directory) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			tenantKey := c.Request().Header.Get(TenantHeader)
			var userID uint
			if claims, ok := ClaimsFromEcho(c); ok {
				userID = claims.UserID
				if tenantKey == "" {
					tenantKey = claims.TenantKey
				}
			}

			sc, err := dir.Resolve(c.Request().Context(), tenantKey, userID)
			if err != nil {
				switch {
				case errors.Is(err, directory.ErrTenantNotFound):
					log.Warn("Unknown tenant", zap.String("tenant_key", tenantKey))
					return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
				case errors.Is(err, directory.ErrTenantInactive):
					log.Warn("Inactive tenant", zap.String("tenant_key", tenantKey))
					return c.JSON(http.StatusForbidden, echo.Map{"error": "tenant is not active"})
				default:
					log.Error("Tenant resolution failed", zap.Error(err))
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant resolution failed"})
				}
			}

			c.Set(ScopeContextKey, sc)
			req := c.Request()
			c.SetRequest(req.WithContext(scope.NewContext(req.Context(), sc)))

			return next(c)
		}
	}
}

// ScopeFromEcho retrieves the resolved tenant scope from the Echo context.
func ScopeFromEcho(c echo.Context) (scope.Scope, bool) {
	sc, ok := c.Get(ScopeContextKey).(scope.Scope)
	return sc, ok
}
