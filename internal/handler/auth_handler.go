package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/erickcastrillo/diquis/internal/identity"
	"github.com/erickcastrillo/diquis/internal/jwtutil"
	"github.com/erickcastrillo/diquis/internal/logger"
	"github.com/erickcastrillo/diquis/internal/metrics"
	"github.com/erickcastrillo/diquis/internal/middleware"
	"github.com/erickcastrillo/diquis/internal/model"
)

// AuthHandler issues tenant-scoped tokens and registers users within the
// resolved tenant.
type AuthHandler struct {
	ids *identity.Service
	jwt *jwtutil.JWTUtil
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(ids *identity.Service, jwt *jwtutil.JWTUtil) *AuthHandler {
	return &AuthHandler{ids: ids, jwt: jwt}
}

// Register creates a user inside the request's tenant.
func (h *AuthHandler) Register(c echo.Context) error {
	log := logger.FromEcho(c)

	sc, ok := middleware.ScopeFromEcho(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant scope required"})
	}

	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		metrics.RecordError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Email == "" || req.Password == "" {
		metrics.RecordError("incomplete_registration")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	defer metrics.TrackDBOperation("insert")(time.Now())

	user := &model.User{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if err := h.ids.CreateUser(c.Request().Context(), sc, user, req.Password); err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			metrics.RecordError("email_taken")
			return c.JSON(http.StatusConflict, echo.Map{"error": "email is already registered"})
		}
		log.Error("Failed to register user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	if err := h.ids.AddToRole(c.Request().Context(), sc, user.ID, model.RoleMember); err != nil {
		log.Error("Failed to assign default role", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	log.Info("User registered",
		zap.Uint("user_id", user.ID),
		zap.String("tenant_key", sc.TenantKey))

	return c.JSON(http.StatusCreated, user)
}

// Login verifies credentials within the request's tenant and returns a
// tenant-scoped token.
func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromEcho(c)

	sc, ok := middleware.ScopeFromEcho(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant scope required"})
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		metrics.RecordError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer metrics.TrackDBOperation("query")(time.Now())

	user, err := h.ids.FindByEmail(c.Request().Context(), sc, req.Email)
	if err != nil {
		log.Warn("Login for unknown user", zap.String("email", req.Email))
		metrics.RecordError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if !h.ids.VerifyPassword(user, req.Password) {
		log.Warn("Invalid password", zap.String("email", req.Email))
		metrics.RecordError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	roles, err := h.ids.GetRoles(c.Request().Context(), sc, user.ID)
	if err != nil {
		log.Error("Failed to load roles", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	role := model.MostPrivilegedRole(roles)

	token, err := h.jwt.GenerateToken(user.Email, user.ID, sc.TenantID, sc.TenantKey, role)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		metrics.RecordError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("User logged in",
		zap.String("email", user.Email),
		zap.Uint("user_id", user.ID),
		zap.String("tenant_key", sc.TenantKey))

	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"user": echo.Map{
			"id":    user.ID,
			"email": user.Email,
			"role":  role,
		},
	})
}
