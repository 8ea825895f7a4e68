package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-duel/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
	"github.com/comitanigiacomo/kanso-duel/internal/core/services"
)

type ChallengeHandler struct {
	svc *services.ChallengeService
}

func NewChallengeHandler(svc *services.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{
		svc: svc,
	}
}

type durationRequest struct {
	Type  string `json:"type" binding:"required"`
	Count int    `json:"count" binding:"required"`
}

type createChallengeRequest struct {
	ChallengerUsername string          `json:"challenger_username" binding:"required"`
	Duration           durationRequest `json:"duration" binding:"required"`
}

type respondChallengeRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

func (h *ChallengeHandler) RegisterRoutes(router *gin.RouterGroup) {
	challenges := router.Group("/challenges")
	{
		challenges.POST("", h.Create)
		challenges.GET("", h.List)
		challenges.GET("/:id", h.Get)
		challenges.GET("/:id/standing", h.Standing)
		challenges.POST("/:id/respond", h.Respond)
		challenges.POST("/:id/cancel", h.Cancel)
	}
}

// Create godoc
// @Summary  Challenge another user, starting today
// @Tags     challenges
// @Security BearerAuth
// @Param    body body createChallengeRequest true "challenge"
// @Success  201 {object} domain.Challenge
// @Failure  400,404 {object} map[string]string
// @Router   /challenges [post]
func (h *ChallengeHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req createChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	unit, err := domain.ParseDurationUnit(req.Duration.Type)
	if err != nil {
		respondError(c, err)
		return
	}

	challenge, err := h.svc.Create(c.Request.Context(), services.CreateChallengeInput{
		CreatorID:          userID,
		ChallengerUsername: req.ChallengerUsername,
		Duration:           domain.DurationSpec{Unit: unit, Count: req.Duration.Count},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, challenge)
}

// List godoc
// @Summary  Challenges the caller takes part in, newest first
// @Tags     challenges
// @Security BearerAuth
// @Param    status query string false "pending, active, completed, cancelled or rejected"
// @Success  200 {array} domain.Challenge
// @Router   /challenges [get]
func (h *ChallengeHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	list, err := h.svc.List(c.Request.Context(), userID, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *ChallengeHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	challenge, err := h.svc.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, challenge)
}

// Standing godoc
// @Summary  Live averages of an active challenge up to today
// @Tags     challenges
// @Security BearerAuth
// @Param    id path string true "challenge id"
// @Success  200 {object} domain.Outcome
// @Failure  409 {object} map[string]string
// @Router   /challenges/{id}/standing [get]
func (h *ChallengeHandler) Standing(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	standing, err := h.svc.Standing(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, standing)
}

func (h *ChallengeHandler) Respond(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req respondChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	challenge, err := h.svc.Respond(c.Request.Context(), c.Param("id"), userID, *req.Accept)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, challenge)
}

func (h *ChallengeHandler) Cancel(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	challenge, err := h.svc.Cancel(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, challenge)
}
