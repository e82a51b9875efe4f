package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"hacker-tracker.backend/internal/domain/entities"
	domainerrors "hacker-tracker.backend/internal/domain/errors"
	"hacker-tracker.backend/internal/interfaces/http/response"
	"hacker-tracker.backend/pkg/utils"
)

// JobInspector reads queue state for operators
type JobInspector interface {
	Status(ctx context.Context, id uuid.UUID) (*entities.Job, error)
	Stats(ctx context.Context) (*entities.JobStats, error)
	List(ctx context.Context, filter entities.JobFilter, pagination utils.PaginationParams) ([]*entities.Job, int64, error)
}

// UserAdministrator applies operator overrides to users
type UserAdministrator interface {
	AdminSetEmailConfirmed(ctx context.Context, userID uuid.UUID, confirmed bool) error
}

// AdminHandler handles admin endpoints
type AdminHandler struct {
	jobs  JobInspector
	users UserAdministrator
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(jobs JobInspector, users UserAdministrator) *AdminHandler {
	return &AdminHandler{jobs: jobs, users: users}
}

// GetJobStats returns job counts per state
// GET /api/v1/admin/jobs/stats
func (h *AdminHandler) GetJobStats(c *gin.Context) {
	stats, err := h.jobs.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}

// ListJobs lists jobs newest first, optionally by queue and state
// GET /api/v1/admin/jobs?queue=&state=&page=&limit=
func (h *AdminHandler) ListJobs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	pagination := utils.GetPaginationParams(page, limit)

	filter := entities.JobFilter{
		Name:  c.Query("queue"),
		State: entities.JobState(c.Query("state")),
	}
	if filter.State != "" && !filter.State.Valid() {
		response.Error(c, domainerrors.BadRequest("Invalid job state"))
		return
	}

	items, total, err := h.jobs.List(c.Request.Context(), filter, pagination)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"items": items,
		"meta":  utils.CalculateMeta(total, pagination.Page, pagination.Limit),
	})
}

// GetJob returns a single job
// GET /api/v1/admin/jobs/:id
func (h *AdminHandler) GetJob(c *gin.Context) {
	id, ok := utils.ParseUUID(c.Param("id"))
	if !ok {
		response.Error(c, domainerrors.BadRequest("Invalid job ID"))
		return
	}

	job, err := h.jobs.Status(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"job": job})
}

type setEmailConfirmedRequest struct {
	Confirmed *bool `json:"confirmed" binding:"required"`
}

// SetEmailConfirmed overrides a user's confirmation flag
// PUT /api/v1/admin/users/:id/email-confirmed
func (h *AdminHandler) SetEmailConfirmed(c *gin.Context) {
	userID, ok := utils.ParseUUID(c.Param("id"))
	if !ok {
		response.Error(c, domainerrors.BadRequest("Invalid user ID"))
		return
	}

	var req setEmailConfirmedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest("confirmed is required"))
		return
	}

	if err := h.users.AdminSetEmailConfirmed(c.Request.Context(), userID, *req.Confirmed); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"success":        true,
		"userId":         userID,
		"emailConfirmed": *req.Confirmed,
	})
}
