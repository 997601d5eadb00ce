package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/erickcastrillo/diquis/internal/directory"
	"github.com/erickcastrillo/diquis/internal/logger"
	"github.com/erickcastrillo/diquis/internal/metrics"
	"github.com/erickcastrillo/diquis/internal/middleware"
	"github.com/erickcastrillo/diquis/internal/provisioning"
	"github.com/erickcastrillo/diquis/internal/queue"
)

// TenantHandler exposes tenant administration. Creation and update are
// accepted-and-queued: the HTTP call returns as soon as the job is recorded,
// and the outcome is pushed out of band.
type TenantHandler struct {
	svc *provisioning.Service
	dir *directory.Directory
}

// NewTenantHandler creates a TenantHandler.
func NewTenantHandler(svc *provisioning.Service, dir *directory.Directory) *TenantHandler {
	return &TenantHandler{svc: svc, dir: dir}
}

// Create handles tenant creation: validate, record Pending, enqueue, 202.
func (h *TenantHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)
	metrics.RecordTenantOperation("create")

	claims, ok := middleware.ClaimsFromEcho(c)
	if !ok {
		log.Error("Failed to get user claims from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req queue.TenantCreateRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse tenant creation request", zap.Error(err))
		metrics.RecordError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Key == "" || req.Name == "" || req.AdminEmail == "" || req.AdminPassword == "" {
		log.Warn("Incomplete tenant creation request", zap.String("key", req.Key))
		metrics.RecordError("incomplete_tenant_creation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "key, name, admin_email and admin_password are required"})
	}

	tenant, jobID, err := h.svc.RequestCreate(c.Request().Context(), req, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, provisioning.ErrTenantExists):
			log.Warn("Tenant already exists", zap.String("key", req.Key))
			metrics.RecordError("tenant_exists")
			return c.JSON(http.StatusConflict, echo.Map{"error": "Tenant already exists"})
		case errors.Is(err, provisioning.ErrInvalidKey):
			metrics.RecordError("invalid_tenant_key")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant key is invalid"})
		default:
			log.Error("Failed to request tenant creation", zap.Error(err))
			metrics.RecordError("tenant_creation_failed")
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant creation failed"})
		}
	}

	log.Info("Tenant creation accepted",
		zap.Uint("tenant_id", tenant.ID),
		zap.String("tenant_key", tenant.Key),
		zap.String("job_id", jobID))

	return c.JSON(http.StatusAccepted, echo.Map{
		"message":   "Tenant creation accepted, provisioning in background",
		"tenant_id": tenant.ID,
		"key":       tenant.Key,
		"status":    tenant.Status,
		"job_id":    jobID,
	})
}

// Update handles tenant updates: root guard, enqueue, 202.
func (h *TenantHandler) Update(c echo.Context) error {
	log := logger.FromEcho(c)
	metrics.RecordTenantOperation("update")

	claims, ok := middleware.ClaimsFromEcho(c)
	if !ok {
		log.Error("Failed to get user claims from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		metrics.RecordError("invalid_tenant_id")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant ID"})
	}

	var req queue.TenantUpdateRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse tenant update request", zap.Error(err))
		metrics.RecordError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	jobID, err := h.svc.RequestUpdate(c.Request().Context(), uint(id), req, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, provisioning.ErrRootTenantProtected):
			log.Warn("Root tenant update attempt", zap.Uint("user_id", claims.UserID))
			metrics.RecordError("root_tenant_protected")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "Cannot edit root tenant"})
		case errors.Is(err, directory.ErrTenantNotFound):
			metrics.RecordError("tenant_not_found")
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		default:
			log.Error("Failed to request tenant update", zap.Error(err))
			metrics.RecordError("tenant_update_failed")
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant update failed"})
		}
	}

	return c.JSON(http.StatusAccepted, echo.Map{
		"message": "Tenant update accepted, processing in background",
		"job_id":  jobID,
	})
}

// List returns every tenant with its provisioning status.
func (h *TenantHandler) List(c echo.Context) error {
	log := logger.FromEcho(c)
	metrics.RecordTenantOperation("list")

	tenants, err := h.dir.List(c.Request().Context())
	if err != nil {
		log.Error("Failed to list tenants", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve tenants"})
	}

	return c.JSON(http.StatusOK, tenants)
}

// Get returns one tenant by id.
func (h *TenantHandler) Get(c echo.Context) error {
	log := logger.FromEcho(c)
	metrics.RecordTenantOperation("get")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant ID"})
	}

	tenant, err := h.dir.FindByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, directory.ErrTenantNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		}
		log.Error("Failed to get tenant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve tenant"})
	}

	return c.JSON(http.StatusOK, tenant)
}
