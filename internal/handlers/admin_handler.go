package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"airdrop-platform/internal/apperr"
	"airdrop-platform/internal/auth"
	"airdrop-platform/internal/services"
)

// AdminHandler handles the admin console endpoints. Every route behind
// AdminMiddleware runs with admin_id set; mutations are written to the audit
// log by the service layer.
type AdminHandler struct {
	admins      *services.AdminService
	tasks       *services.TaskService
	withdrawals *services.WithdrawalService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(admins *services.AdminService, tasks *services.TaskService, withdrawals *services.WithdrawalService) *AdminHandler {
	return &AdminHandler{
		admins:      admins,
		tasks:       tasks,
		withdrawals: withdrawals,
	}
}

// AdminMiddleware checks if the authenticated user is an admin
func (h *AdminHandler) AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
			c.Abort()
			return
		}

		admin, err := h.admins.GetAdminByUserID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{"message": "admin access required"})
			c.Abort()
			return
		}

		c.Set("admin_id", admin.ID)
		c.Set("admin_role", admin.Role)
		c.Next()
	}
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// GetUsers returns users with optional username search.
// GET /api/admin/users
func (h *AdminHandler) GetUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	search := c.Query("search")

	users, total, err := h.admins.GetAllUsers(c.Request.Context(), limit, offset, search)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":  users,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// BanUser bans a user.
// POST /api/admin/users/:id/ban
func (h *AdminHandler) BanUser(c *gin.Context) {
	adminID := c.GetUint("admin_id")
	userID, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	c.ShouldBindJSON(&req)

	if err := h.admins.BanUser(c.Request.Context(), adminID, userID, req.Reason); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user banned"})
}

// UnbanUser lifts a ban.
// POST /api/admin/users/:id/unban
func (h *AdminHandler) UnbanUser(c *gin.Context) {
	adminID := c.GetUint("admin_id")
	userID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.admins.UnbanUser(c.Request.Context(), adminID, userID); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user unbanned"})
}

// ResetUserTokens zeroes a user's balances.
// POST /api/admin/users/:id/reset-tokens
func (h *AdminHandler) ResetUserTokens(c *gin.Context) {
	adminID := c.GetUint("admin_id")
	userID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.admins.ResetUserTokens(c.Request.Context(), adminID, userID); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "tokens reset"})
}

// ResetUserTasks deletes a user's completions.
// POST /api/admin/users/:id/reset-tasks
func (h *AdminHandler) ResetUserTasks(c *gin.Context) {
	adminID := c.GetUint("admin_id")
	userID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.admins.ResetUserTasks(c.Request.Context(), adminID, userID); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "tasks reset"})
}

// ResetUserData wipes a user's completions, balances, wallet and device data.
// POST /api/admin/users/:id/reset
func (h *AdminHandler) ResetUserData(c *gin.Context) {
	adminID := c.GetUint("admin_id")
	userID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.admins.ResetUserData(c.Request.Context(), adminID, userID); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user data reset"})
}

// DeleteUser permanently removes a user.
// DELETE /api/admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	adminID := c.GetUint("admin_id")
	userID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.admins.DeleteUser(c.Request.Context(), adminID, userID); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

// DeleteAllUsers wipes every non-admin account.
// DELETE /api/admin/users
func (h *AdminHandler) DeleteAllUsers(c *gin.Context) {
	adminID := c.GetUint("admin_id")

	if err := h.admins.DeleteAllUsers(c.Request.Context(), adminID); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "all users deleted"})
}

// ResetAllTasks deletes every completion system-wide.
// POST /api/admin/tasks/reset-all
func (h *AdminHandler) ResetAllTasks(c *gin.Context) {
	adminID := c.GetUint("admin_id")

	if err := h.admins.ResetAllTasks(c.Request.Context(), adminID); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "all task completions reset"})
}

// PromoteUser promotes a user to admin.
// POST /api/admin/users/:id/promote
func (h *AdminHandler) PromoteUser(c *gin.Context) {
	adminID := c.GetUint("admin_id")
	userID, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	c.ShouldBindJSON(&req)
	if req.Role == "" {
		req.Role = "ADMIN"
	}

	admin, err := h.admins.PromoteUserToAdmin(c.Request.Context(), userID, req.Role, adminID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"admin": admin})
}

// GetLogs returns the admin audit log.
// GET /api/admin/logs
func (h *AdminHandler) GetLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	logs, err := h.admins.GetAdminLogs(c.Request.Context(), limit, offset)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// GetStats returns platform statistics for today.
// GET /api/admin/stats
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.admins.GetPlatformStats(c.Request.Context(), time.Now())
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// GetUserActivity returns the most recent completions across all users.
// GET /api/admin/user-activity
func (h *AdminHandler) GetUserActivity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	completions, err := h.admins.UserActivity(c.Request.Context(), limit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"activity": completions})
}

// GetTaskStats returns per-task completion aggregates.
// GET /api/admin/task-stats
func (h *AdminHandler) GetTaskStats(c *gin.Context) {
	stats, err := h.admins.TaskStats(c.Request.Context())
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"taskStats": stats})
}

// GetTokenAllocation returns the token allocation breakdown.
// GET /api/admin/token-allocation
func (h *AdminHandler) GetTokenAllocation(c *gin.Context) {
	allocation, err := h.admins.GetTokenAllocation(c.Request.Context())
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"allocation": allocation})
}

// GetVerifications lists unreviewed verification payloads.
// GET /api/admin/verifications
func (h *AdminHandler) GetVerifications(c *gin.Context) {
	completions, err := h.admins.PendingVerifications(c.Request.Context())
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"verifications": completions})
}

// ApproveVerification accepts a completion's verification payload.
// POST /api/admin/verifications/:id/approve
func (h *AdminHandler) ApproveVerification(c *gin.Context) {
	adminID := c.GetUint("admin_id")
	completionID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.admins.ApproveVerification(c.Request.Context(), adminID, completionID); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "verification approved"})
}

// RejectVerification revokes a completion and claws back its reward.
// POST /api/admin/verifications/:id/reject
func (h *AdminHandler) RejectVerification(c *gin.Context) {
	adminID := c.GetUint("admin_id")
	completionID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.admins.RejectVerification(c.Request.Context(), adminID, completionID); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "verification rejected"})
}

// ListTasks returns the full catalog including deactivated tasks.
// GET /api/admin/tasks
func (h *AdminHandler) ListTasks(c *gin.Context) {
	tasks, err := h.tasks.ListAllTasks(c.Request.Context())
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// CreateTask adds a catalog task.
// POST /api/admin/tasks
func (h *AdminHandler) CreateTask(c *gin.Context) {
	adminID := c.GetUint("admin_id")

	var input services.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request: " + err.Error()})
		return
	}

	task, err := h.tasks.CreateTask(c.Request.Context(), input)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	h.admins.LogAdminAction(c.Request.Context(), adminID, "CREATE_TASK", "TASK", &task.ID, map[string]interface{}{
		"name":   task.Name,
		"reward": task.Reward,
	})

	c.JSON(http.StatusCreated, gin.H{"task": task})
}

// UpdateTask edits a catalog task.
// PUT /api/admin/tasks/:id
func (h *AdminHandler) UpdateTask(c *gin.Context) {
	adminID := c.GetUint("admin_id")
	taskID, ok := pathID(c)
	if !ok {
		return
	}

	var input services.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request: " + err.Error()})
		return
	}

	task, err := h.tasks.UpdateTask(c.Request.Context(), taskID, input)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	h.admins.LogAdminAction(c.Request.Context(), adminID, "UPDATE_TASK", "TASK", &task.ID, map[string]interface{}{
		"name":   task.Name,
		"reward": task.Reward,
	})

	c.JSON(http.StatusOK, gin.H{"task": task})
}

// DeleteTask deactivates a task. History and awarded points stay.
// DELETE /api/admin/tasks/:id
func (h *AdminHandler) DeleteTask(c *gin.Context) {
	adminID := c.GetUint("admin_id")
	taskID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.tasks.DeactivateTask(c.Request.Context(), taskID); err != nil {
		apperr.Respond(c, err)
		return
	}

	h.admins.LogAdminAction(c.Request.Context(), adminID, "DEACTIVATE_TASK", "TASK", &taskID, nil)

	c.JSON(http.StatusOK, gin.H{"message": "task deactivated"})
}

// GetWithdrawals returns all withdrawals, optionally filtered by status.
// GET /api/admin/withdrawals
func (h *AdminHandler) GetWithdrawals(c *gin.Context) {
	withdrawals, err := h.withdrawals.ListAll(c.Request.Context(), c.Query("status"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"withdrawals": withdrawals})
}

// DecideWithdrawal applies an admin decision to a withdrawal.
// PUT /api/admin/withdrawals/:id
func (h *AdminHandler) DecideWithdrawal(c *gin.Context) {
	adminID := c.GetUint("admin_id")
	withdrawalID, ok := pathID(c)
	if !ok {
		return
	}

	var input services.DecideInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request: " + err.Error()})
		return
	}

	withdrawal, err := h.withdrawals.Decide(c.Request.Context(), adminID, withdrawalID, input)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	h.admins.LogAdminAction(c.Request.Context(), adminID, "DECIDE_WITHDRAWAL", "WITHDRAWAL", &withdrawalID, map[string]interface{}{
		"action": input.Action,
		"status": string(withdrawal.Status),
	})

	c.JSON(http.StatusOK, gin.H{"withdrawal": withdrawal})
}
