package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/erickcastrillo/diquis/internal/database"
	"github.com/erickcastrillo/diquis/internal/logger"
	"github.com/erickcastrillo/diquis/internal/metrics"
	"github.com/erickcastrillo/diquis/internal/model"
)

// CategoryRequest defines the structure for category creation/update requests
type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MinAge      int    `json:"min_age"`
	MaxAge      int    `json:"max_age"`
}

// CategoryHandler serves age-category CRUD through the tenant-scoped session.
type CategoryHandler struct {
	manager *database.Manager
}

// NewCategoryHandler creates a CategoryHandler.
func NewCategoryHandler(manager *database.Manager) *CategoryHandler {
	return &CategoryHandler{manager: manager}
}

// List returns the academy's categories.
func (h *CategoryHandler) List(c echo.Context) error {
	log := logger.FromEcho(c)

	sess, err := sessionFromEcho(c, h.manager)
	if err != nil {
		log.Error("Failed to open session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	defer metrics.TrackDBOperation("query")(time.Now())

	var categories []model.Category
	if err := sess.DB().Find(&categories).Error; err != nil {
		log.Error("Failed to list categories", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve categories"})
	}

	return c.JSON(http.StatusOK, categories)
}

// Get returns one category by ID.
func (h *CategoryHandler) Get(c echo.Context) error {
	log := logger.FromEcho(c)
	id := c.Param("id")

	sess, err := sessionFromEcho(c, h.manager)
	if err != nil {
		log.Error("Failed to open session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	var category model.Category
	if err := sess.DB().First(&category, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Category not found"})
	}

	return c.JSON(http.StatusOK, category)
}

// Create adds a category. Names are unique per academy.
func (h *CategoryHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	sess, err := sessionFromEcho(c, h.manager)
	if err != nil {
		log.Error("Failed to open session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	defer metrics.TrackDBOperation("insert")(time.Now())

	var count int64
	if err := sess.DB().Model(&model.Category{}).Where("name = ?", req.Name).Count(&count).Error; err != nil {
		log.Error("Failed to check category name", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create category"})
	}
	if count > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "Category with this name already exists"})
	}

	category := model.Category{
		Name:        req.Name,
		Description: req.Description,
		MinAge:      req.MinAge,
		MaxAge:      req.MaxAge,
	}

	if err := sess.Create(&category); err != nil {
		log.Error("Failed to create category", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create category"})
	}

	log.Info("Category created",
		zap.Uint("category_id", category.ID),
		zap.String("name", category.Name))
	return c.JSON(http.StatusCreated, category)
}

// Update edits a category.
func (h *CategoryHandler) Update(c echo.Context) error {
	log := logger.FromEcho(c)
	id := c.Param("id")

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	sess, err := sessionFromEcho(c, h.manager)
	if err != nil {
		log.Error("Failed to open session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	var category model.Category
	if err := sess.DB().First(&category, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Category not found"})
	}

	category.Name = req.Name
	category.Description = req.Description
	category.MinAge = req.MinAge
	category.MaxAge = req.MaxAge

	if err := sess.Save(&category); err != nil {
		log.Error("Failed to update category", zap.String("category_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update category"})
	}

	return c.JSON(http.StatusOK, category)
}

// Delete removes a category (soft delete).
func (h *CategoryHandler) Delete(c echo.Context) error {
	log := logger.FromEcho(c)
	id := c.Param("id")

	sess, err := sessionFromEcho(c, h.manager)
	if err != nil {
		log.Error("Failed to open session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	var category model.Category
	if err := sess.DB().First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Category not found"})
		}
		log.Error("Failed to load category", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete category"})
	}

	if err := sess.Delete(&category); err != nil {
		log.Error("Failed to delete category", zap.String("category_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete category"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Category deleted successfully"})
}
