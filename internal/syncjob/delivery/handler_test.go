package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"jobhunt-backend/internal/errs"
	"jobhunt-backend/internal/syncjob/domain"
	"jobhunt-backend/internal/syncjob/dto"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type stubJobs struct {
	submitted []domain.Request
	waited    []domain.Request
	job       *domain.Job
	err       error
}

func (s *stubJobs) Submit(_ context.Context, req domain.Request) (string, error) {
	s.submitted = append(s.submitted, req)
	if s.err != nil {
		return "", s.err
	}
	return "job-1", nil
}

func (s *stubJobs) SubmitAndWait(_ context.Context, req domain.Request) (*domain.Job, error) {
	s.waited = append(s.waited, req)
	return s.job, s.err
}

func (s *stubJobs) Status(context.Context, string) (*domain.Job, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.job, nil
}

func newRouter(jobs JobService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "owner-1")
		c.Next()
	})
	h := NewSyncHandler(jobs)
	r.POST("/api/sync/trigger", h.TriggerSync)
	r.GET("/api/sync-status/:jobId", h.GetSyncStatus)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTriggerSync_Async(t *testing.T) {
	jobs := &stubJobs{}
	w := do(newRouter(jobs), http.MethodPost, "/api/sync/trigger", `{"syncType":"initial","daysBack":7,"async":true}`)

	require.Equal(t, http.StatusAccepted, w.Code)
	var resp dto.TriggerSyncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "job-1", resp.JobID)
	require.Equal(t, domain.StatusPending, resp.Status)
	require.Equal(t, []domain.Request{{Kind: domain.KindInitial, OwnerID: "owner-1", DaysBack: 7}}, jobs.submitted)
	require.Empty(t, jobs.waited)
}

func TestTriggerSync_WaitsWhenNotAsync(t *testing.T) {
	jobs := &stubJobs{job: &domain.Job{ID: "job-1", OwnerID: "owner-1", Status: domain.StatusCompleted, Progress: 100}}
	w := do(newRouter(jobs), http.MethodPost, "/api/sync/trigger", `{"syncType":"incremental"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var job domain.Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	require.Equal(t, domain.StatusCompleted, job.Status)
	require.Len(t, jobs.waited, 1)
	require.Empty(t, jobs.submitted)
}

func TestTriggerSync_FailedJob(t *testing.T) {
	jobs := &stubJobs{job: &domain.Job{ID: "job-1", OwnerID: "owner-1", Status: domain.StatusFailed, Error: "provider down"}}
	w := do(newRouter(jobs), http.MethodPost, "/api/sync/trigger", `{"syncType":"incremental"}`)

	require.Equal(t, http.StatusBadGateway, w.Code)
	require.Contains(t, w.Body.String(), "provider down")
	require.Contains(t, w.Body.String(), errs.CodeSyncFailed)
}

func TestTriggerSync_RejectsBadBody(t *testing.T) {
	for _, body := range []string{`{}`, `{"syncType":"everything"}`, `{"syncType":"initial","daysBack":-1}`, `nope`} {
		jobs := &stubJobs{}
		w := do(newRouter(jobs), http.MethodPost, "/api/sync/trigger", body)
		require.Equal(t, http.StatusBadRequest, w.Code, body)
		require.Empty(t, jobs.submitted, body)
	}
}

func TestTriggerSync_AuthRequired(t *testing.T) {
	jobs := &stubJobs{err: errs.ErrAuthRequired}
	w := do(newRouter(jobs), http.MethodPost, "/api/sync/trigger", `{"syncType":"incremental","async":true}`)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), errs.CodeAuthRequired)
}

func TestGetSyncStatus(t *testing.T) {
	started := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	jobs := &stubJobs{job: &domain.Job{
		ID: "job-1", OwnerID: "owner-1", Status: domain.StatusRunning,
		Progress: 50, Phase: domain.PhaseClassify, StartedAt: &started,
	}}
	w := do(newRouter(jobs), http.MethodGet, "/api/sync-status/job-1", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "running", resp["status"])
	require.EqualValues(t, 50, resp["progress"])
	require.Equal(t, "2024-06-01T10:00:00Z", resp["startedAt"])
	require.NotContains(t, resp, "completedAt")
	require.NotContains(t, resp, "error")
}

func TestGetSyncStatus_OtherOwnerIsNotFound(t *testing.T) {
	jobs := &stubJobs{job: &domain.Job{ID: "job-1", OwnerID: "owner-2", Status: domain.StatusCompleted}}
	w := do(newRouter(jobs), http.MethodGet, "/api/sync-status/job-1", "")

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSyncStatus_Unknown(t *testing.T) {
	jobs := &stubJobs{err: errs.ErrNotFound}
	w := do(newRouter(jobs), http.MethodGet, "/api/sync-status/nope", "")

	require.Equal(t, http.StatusNotFound, w.Code)
}
