package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/erickcastrillo/diquis/internal/database"
	"github.com/erickcastrillo/diquis/internal/logger"
	"github.com/erickcastrillo/diquis/internal/metrics"
	"github.com/erickcastrillo/diquis/internal/middleware"
	"github.com/erickcastrillo/diquis/internal/model"
)

// errMissingScope signals a route wired without the tenant middleware.
var errMissingScope = errors.New("tenant scope missing from request")

// sessionFromEcho builds the tenant-scoped session for the request.
func sessionFromEcho(c echo.Context, manager *database.Manager) (*database.Session, error) {
	sc, ok := middleware.ScopeFromEcho(c)
	if !ok {
		return nil, errMissingScope
	}
	return manager.Session(c.Request().Context(), sc)
}

// ProductRequest defines the structure for product creation/update requests
type ProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	SKU         string  `json:"sku"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	IsActive    bool    `json:"is_active"`
}

// ProductHandler serves the academy's merchandise CRUD through the
// tenant-scoped session.
type ProductHandler struct {
	manager *database.Manager
}

// NewProductHandler creates a ProductHandler.
func NewProductHandler(manager *database.Manager) *ProductHandler {
	return &ProductHandler{manager: manager}
}

// List handles retrieving all products with optional filtering
func (h *ProductHandler) List(c echo.Context) error {
	log := logger.FromEcho(c)

	sess, err := sessionFromEcho(c, h.manager)
	if err != nil {
		log.Error("Failed to open session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	defer metrics.TrackDBOperation("query")(time.Now())

	query := sess.DB()
	if isActive := c.QueryParam("is_active"); isActive != "" {
		if active, err := strconv.ParseBool(isActive); err == nil {
			query = query.Where("is_active = ?", active)
		} else {
			log.Warn("Invalid is_active parameter", zap.String("value", isActive))
		}
	}

	var products []model.Product
	if err := query.Find(&products).Error; err != nil {
		log.Error("Failed to list products", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve products"})
	}

	return c.JSON(http.StatusOK, products)
}

// Get handles retrieving a single product by ID
func (h *ProductHandler) Get(c echo.Context) error {
	log := logger.FromEcho(c)
	id := c.Param("id")

	sess, err := sessionFromEcho(c, h.manager)
	if err != nil {
		log.Error("Failed to open session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	var product model.Product
	if err := sess.DB().First(&product, id).Error; err != nil {
		log.Warn("Product not found", zap.String("product_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Product not found"})
	}

	return c.JSON(http.StatusOK, product)
}

// Create handles creating a new product
func (h *ProductHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.Name == "" || req.SKU == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and sku are required"})
	}

	sess, err := sessionFromEcho(c, h.manager)
	if err != nil {
		log.Error("Failed to open session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	defer metrics.TrackDBOperation("insert")(time.Now())

	// SKU uniqueness is per tenant; the scoped query only sees this
	// tenant's rows.
	var count int64
	if err := sess.DB().Model(&model.Product{}).Where("sku = ?", req.SKU).Count(&count).Error; err != nil {
		log.Error("Failed to check SKU", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create product"})
	}
	if count > 0 {
		log.Warn("Product with this SKU already exists", zap.String("sku", req.SKU))
		return c.JSON(http.StatusConflict, echo.Map{"error": "Product with this SKU already exists"})
	}

	product := model.Product{
		Name:        req.Name,
		Description: req.Description,
		SKU:         req.SKU,
		Price:       req.Price,
		Stock:       req.Stock,
		IsActive:    req.IsActive,
	}

	if err := sess.Create(&product); err != nil {
		log.Error("Failed to create product", zap.String("sku", req.SKU), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create product"})
	}

	log.Info("Product created",
		zap.Uint("product_id", product.ID),
		zap.String("name", product.Name),
		zap.String("sku", product.SKU))
	return c.JSON(http.StatusCreated, product)
}

// Update handles updating an existing product
func (h *ProductHandler) Update(c echo.Context) error {
	log := logger.FromEcho(c)
	id := c.Param("id")

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.Name == "" || req.SKU == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and sku are required"})
	}

	sess, err := sessionFromEcho(c, h.manager)
	if err != nil {
		log.Error("Failed to open session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	var product model.Product
	if err := sess.DB().First(&product, id).Error; err != nil {
		log.Warn("Product not found for update", zap.String("product_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Product not found"})
	}

	if req.SKU != product.SKU {
		var count int64
		if err := sess.DB().Model(&model.Product{}).
			Where("sku = ? AND id != ?", req.SKU, product.ID).
			Count(&count).Error; err != nil {
			log.Error("Failed to check SKU", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update product"})
		}
		if count > 0 {
			return c.JSON(http.StatusConflict, echo.Map{"error": "Product with this SKU already exists"})
		}
	}

	product.Name = req.Name
	product.Description = req.Description
	product.SKU = req.SKU
	product.Price = req.Price
	product.Stock = req.Stock
	product.IsActive = req.IsActive

	if err := sess.Save(&product); err != nil {
		log.Error("Failed to update product", zap.String("product_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update product"})
	}

	log.Info("Product updated",
		zap.Uint("product_id", product.ID),
		zap.String("sku", product.SKU))
	return c.JSON(http.StatusOK, product)
}

// Delete handles deleting a product (soft delete)
func (h *ProductHandler) Delete(c echo.Context) error {
	log := logger.FromEcho(c)
	id := c.Param("id")

	sess, err := sessionFromEcho(c, h.manager)
	if err != nil {
		log.Error("Failed to open session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	var product model.Product
	if err := sess.DB().First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Product not found"})
		}
		log.Error("Failed to load product", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete product"})
	}

	if err := sess.Delete(&product); err != nil {
		log.Error("Failed to delete product", zap.String("product_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete product"})
	}

	log.Info("Product deleted",
		zap.Uint("product_id", product.ID),
		zap.String("sku", product.SKU))
	return c.JSON(http.StatusOK, echo.Map{"message": "Product deleted successfully"})
}
