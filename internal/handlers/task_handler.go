package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"airdrop-platform/internal/apperr"
	"airdrop-platform/internal/auth"
	"airdrop-platform/internal/services"
)

// TaskHandler handles the task catalog and completion endpoints
type TaskHandler struct {
	tasks *services.TaskService
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(tasks *services.TaskService) *TaskHandler {
	return &TaskHandler{
		tasks: tasks,
	}
}

// ListTasks returns the active catalog.
// GET /api/tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	tasks, err := h.tasks.ListTasks(c.Request.Context())
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// CompleteTask records a completion and credits the reward. Verification
// tasks called without a payload get 202 and the task link; the client sends
// the user there and resubmits with proof.
// POST /api/tasks/complete
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	var req struct {
		TaskName         string  `json:"taskName" binding:"required"`
		VerificationData *string `json:"verificationData"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request: " + err.Error()})
		return
	}

	result, err := h.tasks.CompleteTask(c.Request.Context(), userID, req.TaskName, req.VerificationData)
	if err != nil {
		if errors.Is(err, apperr.PendingVerification) {
			task, taskErr := h.tasks.GetTask(c.Request.Context(), req.TaskName)
			if taskErr != nil {
				apperr.Respond(c, taskErr)
				return
			}
			response := gin.H{
				"status":  "pending_verification",
				"message": err.Error(),
			}
			if task.Link != nil {
				response["redirectUrl"] = *task.Link
			}
			c.JSON(http.StatusAccepted, response)
			return
		}
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":        result.User,
		"completions": result.Completions,
		"completion":  result.Completion,
	})
}
