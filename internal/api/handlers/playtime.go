package handlers

import (
	"errors"
	"strconv"

	"github.com/GerGh0stface/GhostyPlaytime/internal/models"
	"github.com/GerGh0stface/GhostyPlaytime/internal/service"
	"github.com/GerGh0stface/GhostyPlaytime/internal/worker"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// PlaytimeHandler handles HTTP requests for playtime
type PlaytimeHandler struct {
	service   *service.PlaytimeService
	validator *validator.Validate
}

// NewPlaytimeHandler creates a new playtime handler
func NewPlaytimeHandler(service *service.PlaytimeService) *PlaytimeHandler {
	return &PlaytimeHandler{
		service:   service,
		validator: validator.New(),
	}
}

// Register mounts the routes on api. admin guards every route that changes
// state, including the session hooks only the game server should call.
func (h *PlaytimeHandler) Register(api fiber.Router, admin fiber.Handler) {
	api.Get("/playtime/:player", h.GetPlaytime)
	api.Get("/top", h.GetTop)
	api.Get("/leaderboard", h.GetLeaderboard)
	api.Get("/players/suggest", h.SuggestPlayers)
	api.Get("/health", h.HealthCheck)

	api.Post("/sessions", admin, h.StartSession)
	api.Delete("/sessions/:uuid", admin, h.EndSession)

	adminGroup := api.Group("/admin", admin)
	adminGroup.Put("/playtime/:player", h.SetPlaytime)
	adminGroup.Post("/playtime/:player/add", h.AddPlaytime)
	adminGroup.Post("/save", h.SaveNow)
	adminGroup.Post("/reload", h.Reload)
}

// GetPlaytime handles GET /api/v1/playtime/:player
// @Summary Get a player's playtime
// @Description Player may be a UUID or a known name (case-insensitive)
// @Produce json
// @Success 200 {object} models.PlayerProfile
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/playtime/{player} [get]
func (h *PlaytimeHandler) GetPlaytime(c *fiber.Ctx) error {
	profile, err := h.service.Profile(c.Params("player"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(profile)
}

// GetTop handles GET /api/v1/top?limit=
// @Summary Top players by playtime
// @Param limit query int false "Number of players" default(5)
// @Success 200 {object} models.TopResponse
// @Router /api/v1/top [get]
func (h *PlaytimeHandler) GetTop(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "0"))
	if err != nil || limit < 0 {
		limit = 0
	}
	return c.Status(fiber.StatusOK).JSON(h.service.Top(limit))
}

// GetLeaderboard handles GET /api/v1/leaderboard?page=
// @Summary Full leaderboard, paginated
// @Param page query int false "1-based page, clamped into range" default(1)
// @Success 200 {object} models.LeaderboardPage
// @Router /api/v1/leaderboard [get]
func (h *PlaytimeHandler) GetLeaderboard(c *fiber.Ctx) error {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil {
		page = 1
	}
	return c.Status(fiber.StatusOK).JSON(h.service.Page(page))
}

// SuggestPlayers handles GET /api/v1/players/suggest?q=
func (h *PlaytimeHandler) SuggestPlayers(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"query": c.Query("q"),
		"names": h.service.Suggest(c.Query("q"), limit),
	})
}

// StartSession handles POST /api/v1/sessions
// @Summary Player joined
// @Accept json
// @Param request body models.SessionStartRequest true "Session start"
// @Success 200 {object} models.PlayerProfile
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /api/v1/sessions [post]
func (h *PlaytimeHandler) StartSession(c *fiber.Ctx) error {
	var req models.SessionStartRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c, "Invalid request body", err)
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.badRequest(c, "Validation failed", err)
	}

	id, err := uuid.Parse(req.UUID)
	if err != nil {
		return h.badRequest(c, "Invalid uuid", err)
	}

	return c.Status(fiber.StatusOK).JSON(h.service.StartSession(id, req.Name))
}

// EndSession handles DELETE /api/v1/sessions/:uuid
// @Summary Player quit; queues an asynchronous save
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/sessions/{uuid} [delete]
func (h *PlaytimeHandler) EndSession(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("uuid"))
	if err != nil {
		return h.badRequest(c, "Invalid uuid", err)
	}

	if err := h.service.EndSession(id); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetPlaytime handles PUT /api/v1/admin/playtime/:player
// @Summary Overwrite a player's playtime
// @Accept json
// @Param request body models.SetPlaytimeRequest true "New total in seconds"
// @Success 200 {object} models.PlayerProfile
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/admin/playtime/{player} [put]
func (h *PlaytimeHandler) SetPlaytime(c *fiber.Ctx) error {
	var req models.SetPlaytimeRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c, "Invalid request body", err)
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.badRequest(c, "Validation failed", err)
	}

	profile, err := h.service.SetPlaytime(c.Params("player"), *req.Seconds)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(profile)
}

// AddPlaytime handles POST /api/v1/admin/playtime/:player/add
// @Summary Add to (or subtract from) a player's playtime
// @Accept json
// @Param request body models.AddPlaytimeRequest true "Delta in seconds"
// @Success 200 {object} models.PlayerProfile
// @Router /api/v1/admin/playtime/{player}/add [post]
func (h *PlaytimeHandler) AddPlaytime(c *fiber.Ctx) error {
	var req models.AddPlaytimeRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c, "Invalid request body", err)
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.badRequest(c, "Validation failed", err)
	}

	profile, err := h.service.AddPlaytime(c.Params("player"), *req.Seconds)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(profile)
}

// SaveNow handles POST /api/v1/admin/save
// @Summary Queue an immediate save
// @Success 202 {object} map[string]interface{}
// @Failure 503 {object} models.ErrorResponse
// @Router /api/v1/admin/save [post]
func (h *PlaytimeHandler) SaveNow(c *fiber.Ctx) error {
	if err := h.service.SaveNow(); err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Save queued",
	})
}

// Reload handles POST /api/v1/admin/reload
// @Summary Re-read page size, top amount and time suffixes
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/admin/reload [post]
func (h *PlaytimeHandler) Reload(c *fiber.Ctx) error {
	opts, err := h.service.Reload()
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":    "Configuration reloaded",
		"page_size":  opts.PageSize,
		"top_amount": opts.TopAmount,
		"example":    h.service.Format(93784),
	})
}

// HealthCheck handles GET /api/v1/health
// @Summary Health check
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} models.ErrorResponse
// @Router /api/v1/health [get]
func (h *PlaytimeHandler) HealthCheck(c *fiber.Ctx) error {
	if err := h.service.HealthCheck(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error:   "Health check failed",
			Message: err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "healthy",
		"online": h.service.OnlineCount(),
	})
}

func (h *PlaytimeHandler) badRequest(c *fiber.Ctx, msg string, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
		Error:   msg,
		Message: err.Error(),
	})
}

func (h *PlaytimeHandler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrPlayerNotFound):
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error:   "Player not found",
			Message: err.Error(),
		})
	case errors.Is(err, worker.ErrQueueFull), errors.Is(err, worker.ErrPoolClosed):
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error:   "Save not queued",
			Message: err.Error(),
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
		Error:   "Request failed",
		Message: err.Error(),
	})
}
