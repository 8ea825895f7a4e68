package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-duel/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
	"github.com/comitanigiacomo/kanso-duel/internal/core/services"
)

type ScoreHandler struct {
	svc *services.ScoreService
}

func NewScoreHandler(svc *services.ScoreService) *ScoreHandler {
	return &ScoreHandler{
		svc: svc,
	}
}

func (h *ScoreHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/scores", h.ListRange)
}

// ListRange godoc
// @Summary  Daily scores of the caller between two dates, inclusive
// @Tags     scores
// @Security BearerAuth
// @Param    from query string true "YYYY-MM-DD"
// @Param    to   query string true "YYYY-MM-DD"
// @Success  200 {array} domain.DailyScore
// @Router   /scores [get]
func (h *ScoreHandler) ListRange(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	from, err := domain.ParseDate(c.Query("from"))
	if err != nil {
		respondError(c, err)
		return
	}
	to, err := domain.ParseDate(c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}

	scores, err := h.svc.ListRange(c.Request.Context(), userID, from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, scores)
}
