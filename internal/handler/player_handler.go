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

// PlayerRequest defines the structure for player creation/update requests
type PlayerRequest struct {
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Height      float64   `json:"height"`
	Weight      float64   `json:"weight"`
	CategoryID  *uint     `json:"category_id,omitempty"`
	DivisionID  *uint     `json:"division_id,omitempty"`
	PositionID  *uint     `json:"position_id,omitempty"`
}

// PlayerHandler serves player registration CRUD through the tenant-scoped
// session.
type PlayerHandler struct {
	manager *database.Manager
}

// NewPlayerHandler creates a PlayerHandler.
func NewPlayerHandler(manager *database.Manager) *PlayerHandler {
	return &PlayerHandler{manager: manager}
}

// List returns the academy's players, optionally filtered by category.
func (h *PlayerHandler) List(c echo.Context) error {
	log := logger.FromEcho(c)

	sess, err := sessionFromEcho(c, h.manager)
	if err != nil {
		log.Error("Failed to open session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	defer metrics.TrackDBOperation("query")(time.Now())

	query := sess.DB()
	if categoryID := c.QueryParam("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}

	var players []model.Player
	if err := query.Find(&players).Error; err != nil {
		log.Error("Failed to list players", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve players"})
	}

	return c.JSON(http.StatusOK, players)
}

// Get returns one player by ID.
func (h *PlayerHandler) Get(c echo.Context) error {
	log := logger.FromEcho(c)
	id := c.Param("id")

	sess, err := sessionFromEcho(c, h.manager)
	if err != nil {
		log.Error("Failed to open session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	var player model.Player
	if err := sess.DB().First(&player, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Player not found"})
	}

	return c.JSON(http.StatusOK, player)
}

// Create registers a new player.
func (h *PlayerHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)

	var req PlayerRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.FirstName == "" || req.LastName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "first_name and last_name are required"})
	}

	sess, err := sessionFromEcho(c, h.manager)
	if err != nil {
		log.Error("Failed to open session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	defer metrics.TrackDBOperation("insert")(time.Now())

	player := model.Player{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DateOfBirth: req.DateOfBirth,
		Height:      req.Height,
		Weight:      req.Weight,
		CategoryID:  req.CategoryID,
		DivisionID:  req.DivisionID,
		PositionID:  req.PositionID,
	}

	if err := sess.Create(&player); err != nil {
		log.Error("Failed to create player", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create player"})
	}

	log.Info("Player created",
		zap.Uint("player_id", player.ID),
		zap.String("first_name", player.FirstName),
		zap.String("last_name", player.LastName))
	return c.JSON(http.StatusCreated, player)
}

// Update edits a player.
func (h *PlayerHandler) Update(c echo.Context) error {
	log := logger.FromEcho(c)
	id := c.Param("id")

	var req PlayerRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.FirstName == "" || req.LastName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "first_name and last_name are required"})
	}

	sess, err := sessionFromEcho(c, h.manager)
	if err != nil {
		log.Error("Failed to open session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	var player model.Player
	if err := sess.DB().First(&player, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Player not found"})
	}

	player.FirstName = req.FirstName
	player.LastName = req.LastName
	player.DateOfBirth = req.DateOfBirth
	player.Height = req.Height
	player.Weight = req.Weight
	player.CategoryID = req.CategoryID
	player.DivisionID = req.DivisionID
	player.PositionID = req.PositionID

	if err := sess.Save(&player); err != nil {
		log.Error("Failed to update player", zap.String("player_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update player"})
	}

	return c.JSON(http.StatusOK, player)
}

// Delete removes a player (soft delete).
func (h *PlayerHandler) Delete(c echo.Context) error {
	log := logger.FromEcho(c)
	id := c.Param("id")

	sess, err := sessionFromEcho(c, h.manager)
	if err != nil {
		log.Error("Failed to open session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	var player model.Player
	if err := sess.DB().First(&player, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Player not found"})
		}
		log.Error("Failed to load player", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete player"})
	}

	if err := sess.Delete(&player); err != nil {
		log.Error("Failed to delete player", zap.String("player_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete player"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Player deleted successfully"})
}
