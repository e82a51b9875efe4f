package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hacker-tracker.backend/internal/domain/entities"
	domainerrors "hacker-tracker.backend/internal/domain/errors"
	"hacker-tracker.backend/pkg/utils"
)

type jobInspectorStub struct {
	statusFn func(ctx context.Context, id uuid.UUID) (*entities.Job, error)
	statsFn  func(ctx context.Context) (*entities.JobStats, error)
	listFn   func(ctx context.Context, filter entities.JobFilter, pagination utils.PaginationParams) ([]*entities.Job, int64, error)
}

func (s jobInspectorStub) Status(ctx context.Context, id uuid.UUID) (*entities.Job, error) {
	return s.statusFn(ctx, id)
}
func (s jobInspectorStub) Stats(ctx context.Context) (*entities.JobStats, error) {
	return s.statsFn(ctx)
}
func (s jobInspectorStub) List(ctx context.Context, filter entities.JobFilter, pagination utils.PaginationParams) ([]*entities.Job, int64, error) {
	return s.listFn(ctx, filter, pagination)
}

type userAdministratorStub struct {
	setFn func(ctx context.Context, userID uuid.UUID, confirmed bool) error
}

func (s userAdministratorStub) AdminSetEmailConfirmed(ctx context.Context, userID uuid.UUID, confirmed bool) error {
	return s.setFn(ctx, userID, confirmed)
}

func newAdminRouter(jobs JobInspector, users UserAdministrator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAdminHandler(jobs, users)
	r := gin.New()
	r.GET("/jobs", h.ListJobs)
	r.GET("/jobs/stats", h.GetJobStats)
	r.GET("/jobs/:id", h.GetJob)
	r.PUT("/users/:id/email-confirmed", h.SetEmailConfirmed)
	return r
}

func TestAdminHandler_GetJobStats(t *testing.T) {
	jobs := jobInspectorStub{
		statsFn: func(context.Context) (*entities.JobStats, error) {
			return &entities.JobStats{Created: 2, Completed: 5, Failed: 1, Total: 8}, nil
		},
	}
	w := doJSON(newAdminRouter(jobs, nil), http.MethodGet, "/jobs/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"completed":5`)
	assert.Contains(t, w.Body.String(), `"total":8`)

	jobs.statsFn = func(context.Context) (*entities.JobStats, error) {
		return nil, domainerrors.ErrDispatcherNotConnected
	}
	w = doJSON(newAdminRouter(jobs, nil), http.MethodGet, "/jobs/stats", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAdminHandler_ListJobs(t *testing.T) {
	var gotFilter entities.JobFilter
	var gotPagination utils.PaginationParams
	jobs := jobInspectorStub{
		listFn: func(_ context.Context, filter entities.JobFilter, pagination utils.PaginationParams) ([]*entities.Job, int64, error) {
			gotFilter, gotPagination = filter, pagination
			return []*entities.Job{{ID: uuid.New(), Name: entities.QueueSendEmailConfirmation, State: entities.JobStateFailed}}, 41, nil
		},
	}
	r := newAdminRouter(jobs, nil)

	w := doJSON(r, http.MethodGet, "/jobs?queue=send-email-confirmation&state=failed&page=2&limit=20", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entities.JobFilter{Name: entities.QueueSendEmailConfirmation, State: entities.JobStateFailed}, gotFilter)
	assert.Equal(t, utils.PaginationParams{Page: 2, Limit: 20}, gotPagination)
	assert.Contains(t, w.Body.String(), `"totalCount":41`)
	assert.Contains(t, w.Body.String(), `"totalPages":3`)

	w = doJSON(r, http.MethodGet, "/jobs?state=sleeping", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	jobs.listFn = func(context.Context, entities.JobFilter, utils.PaginationParams) ([]*entities.Job, int64, error) {
		return nil, 0, domainerrors.ErrDispatcherNotConnected
	}
	w = doJSON(newAdminRouter(jobs, nil), http.MethodGet, "/jobs", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAdminHandler_GetJob(t *testing.T) {
	jobID := uuid.New()
	jobs := jobInspectorStub{
		statusFn: func(_ context.Context, id uuid.UUID) (*entities.Job, error) {
			if id != jobID {
				return nil, domainerrors.ErrNotFound
			}
			return &entities.Job{ID: id, Name: entities.QueueSendEmailConfirmation, State: entities.JobStateRetry, RetryCount: 1}, nil
		},
	}
	r := newAdminRouter(jobs, nil)

	w := doJSON(r, http.MethodGet, "/jobs/"+jobID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"retry"`)
	assert.Contains(t, w.Body.String(), entities.QueueSendEmailConfirmation)

	w = doJSON(r, http.MethodGet, "/jobs/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodGet, "/jobs/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminHandler_SetEmailConfirmed(t *testing.T) {
	userID := uuid.New()
	var gotID uuid.UUID
	var gotConfirmed bool
	users := userAdministratorStub{
		setFn: func(_ context.Context, id uuid.UUID, confirmed bool) error {
			gotID, gotConfirmed = id, confirmed
			if id != userID {
				return domainerrors.ErrNotFound
			}
			return nil
		},
	}
	r := newAdminRouter(nil, users)

	w := doJSON(r, http.MethodPut, "/users/"+userID.String()+"/email-confirmed", `{"confirmed":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, gotID)
	assert.True(t, gotConfirmed)

	w = doJSON(r, http.MethodPut, "/users/"+userID.String()+"/email-confirmed", `{"confirmed":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, gotConfirmed)
	assert.Contains(t, w.Body.String(), `"emailConfirmed":false`)

	w = doJSON(r, http.MethodPut, "/users/"+userID.String()+"/email-confirmed", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPut, "/users/"+uuid.NewString()+"/email-confirmed", `{"confirmed":true}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	users.setFn = func(context.Context, uuid.UUID, bool) error { return errors.New("db down") }
	w = doJSON(newAdminRouter(nil, users), http.MethodPut, "/users/"+userID.String()+"/email-confirmed", `{"confirmed":true}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}
