package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-duel/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
	"github.com/comitanigiacomo/kanso-duel/internal/core/services"
)

type TaskHandler struct {
	svc *services.TaskService
}

func NewTaskHandler(svc *services.TaskService) *TaskHandler {
	return &TaskHandler{
		svc: svc,
	}
}

type createTaskRequest struct {
	Name                string  `json:"name" binding:"required"`
	TargetDurationHours float64 `json:"target_duration_hours" binding:"required"`
	PointValue          int     `json:"point_value" binding:"required"`
}

type updateTaskRequest struct {
	Name                *string  `json:"name"`
	TargetDurationHours *float64 `json:"target_duration_hours"`
	PointValue          *int     `json:"point_value"`
}

func (h *TaskHandler) RegisterRoutes(router *gin.RouterGroup) {
	tasks := router.Group("/tasks")
	{
		tasks.POST("", h.Create)
		tasks.GET("", h.List)
		tasks.PUT("/:id", h.Update)
		tasks.POST("/:id/deactivate", h.Deactivate)
		tasks.POST("/:id/reactivate", h.Reactivate)
	}
}

// Create godoc
// @Summary  Create a task
// @Tags     tasks
// @Security BearerAuth
// @Param    body body createTaskRequest true "task"
// @Success  201 {object} domain.Task
// @Router   /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	task, err := h.svc.Create(c.Request.Context(), services.CreateTaskInput{
		UserID:              userID,
		Name:                req.Name,
		TargetDurationHours: req.TargetDurationHours,
		PointValue:          req.PointValue,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

// List godoc
// @Summary  List the caller's tasks
// @Tags     tasks
// @Security BearerAuth
// @Param    include_inactive query bool false "also return deactivated tasks"
// @Success  200 {array} domain.Task
// @Router   /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	includeInactive := false
	if raw := c.Query("include_inactive"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "include_inactive must be a boolean"})
			return
		}
		includeInactive = v
	}

	list, err := h.svc.List(c.Request.Context(), userID, includeInactive)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// Update godoc
// @Summary  Update a task; omitted fields are kept
// @Tags     tasks
// @Security BearerAuth
// @Param    id path string true "task id"
// @Param    body body updateTaskRequest true "fields"
// @Success  200 {object} domain.Task
// @Router   /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	task, err := h.svc.Update(c.Request.Context(), services.UpdateTaskInput{
		ID:                  c.Param("id"),
		UserID:              userID,
		Name:                req.Name,
		TargetDurationHours: req.TargetDurationHours,
		PointValue:          req.PointValue,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) Deactivate(c *gin.Context) {
	h.toggle(c, h.svc.Deactivate)
}

func (h *TaskHandler) Reactivate(c *gin.Context) {
	h.toggle(c, h.svc.Reactivate)
}

func (h *TaskHandler) toggle(c *gin.Context, op func(ctx context.Context, id, userID string) (*domain.Task, error)) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	task, err := op(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}
