package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-duel/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
	"github.com/comitanigiacomo/kanso-duel/internal/core/services"
	"github.com/comitanigiacomo/kanso-duel/internal/observability"
)

type CompletionHandler struct {
	svc *services.CompletionService
}

func NewCompletionHandler(svc *services.CompletionService) *CompletionHandler {
	return &CompletionHandler{
		svc: svc,
	}
}

type recordCompletionRequest struct {
	TaskID              string   `json:"task_id" binding:"required"`
	Date                string   `json:"date" binding:"required"`
	ActualDurationHours *float64 `json:"actual_duration_hours" binding:"required"`
}

func (h *CompletionHandler) RegisterRoutes(router *gin.RouterGroup) {
	completions := router.Group("/completions")
	{
		completions.PUT("", h.Record)
		completions.GET("", h.ListByDate)
		completions.DELETE("/:task_id/:date", h.Delete)
	}
}

// Record godoc
// @Summary  Record how long a task was worked on for a day
// @Description Writing the same task and date again replaces the previous value.
// @Tags     completions
// @Security BearerAuth
// @Param    body body recordCompletionRequest true "completion"
// @Success  200 {object} services.RecordResult
// @Router   /completions [put]
func (h *CompletionHandler) Record(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req recordCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	date, err := domain.ParseDate(req.Date)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.svc.Record(c.Request.Context(), services.RecordCompletionInput{
		UserID:              userID,
		TaskID:              req.TaskID,
		Date:                date,
		ActualDurationHours: *req.ActualDurationHours,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	observability.CompletionsRecorded.Inc()
	c.JSON(http.StatusOK, result)
}

func (h *CompletionHandler) ListByDate(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	date, err := domain.ParseDate(c.Query("date"))
	if err != nil {
		respondError(c, err)
		return
	}

	list, err := h.svc.ListByDate(c.Request.Context(), userID, date)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *CompletionHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	date, err := domain.ParseDate(c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}

	score, err := h.svc.Delete(c.Request.Context(), userID, c.Param("task_id"), date)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"daily_score": score})
}
