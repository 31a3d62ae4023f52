package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"autosend-backend/internal/submission/domain"
	"autosend-backend/internal/submission/repository"
	"autosend-backend/internal/submission/scheduler"
	"autosend-backend/internal/submission/usecase"
	"autosend-backend/pkg/safeguard"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTrigger struct {
	res   scheduler.CycleResult
	calls int
}

func (f *fakeTrigger) TriggerImmediate(context.Context) scheduler.CycleResult {
	f.calls++
	return f.res
}

func setup(t *testing.T, trigger Trigger) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemorySubmissionRepository()
	uc := usecase.NewSubmissionUsecase(repo, safeguard.NewChecker(nil), nil, zap.NewNop().Sugar(), nil, time.Hour)
	h := NewSubmissionHandler(uc, trigger)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("userID", "admin-1") })
	api := r.Group("/api")
	api.POST("/submissions", h.CreateSubmission)
	api.GET("/submissions", h.ListSubmissions)
	api.GET("/submissions/:id", h.GetSubmission)
	api.GET("/submissions/:id/history", h.GetHistory)
	api.PUT("/submissions/:id/draft", h.UpdateDraft)
	api.POST("/submissions/:id/approve", h.Approve)
	api.POST("/submissions/:id/hold", h.Hold)
	api.POST("/submissions/:id/cancel", h.Cancel)
	api.POST("/submissions/:id/escalate", h.Escalate)
	api.POST("/autosend/process-now", h.ProcessNow)
	return r
}

func call(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func create(t *testing.T, r *gin.Engine, text string) domain.Submission {
	t.Helper()
	w := call(r, http.MethodPost, "/api/submissions", gin.H{
		"request_text":  text,
		"draft_content": "A drafted reply",
		"contact_id":    "c1",
		"contact_name":  "Sam",
		"contact_email": "sam@example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sub domain.Submission
	decode(t, w, &sub)
	return sub
}

func TestCreateAndGet(t *testing.T) {
	r := setup(t, &fakeTrigger{})
	sub := create(t, r, "Where is my order?")
	assert.Equal(t, domain.StatusPending, sub.Status)
	assert.Equal(t, "admin-1", sub.UserID)

	w := call(r, http.MethodGet, "/api/submissions/"+sub.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got domain.Submission
	decode(t, w, &got)
	assert.Equal(t, sub.ID, got.ID)
	assert.Equal(t, "sam@example.com", got.Recipient.Email)

	assert.Equal(t, http.StatusNotFound, call(r, http.MethodGet, "/api/submissions/missing", nil).Code)
}

func TestCreateValidation(t *testing.T) {
	r := setup(t, &fakeTrigger{})

	w := call(r, http.MethodPost, "/api/submissions", gin.H{"request_text": "hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "contact_id is required")

	w = call(r, http.MethodPost, "/api/submissions", gin.H{"contact_id": "c1"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "needs request text or draft")

	w = call(r, http.MethodPost, "/api/submissions", gin.H{"contact_id": "c1", "request_text": "hi", "auto_send_time": "tomorrow"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(r, http.MethodPost, "/api/submissions", gin.H{"contact_id": "c1", "request_text": "hi", "auto_send_time": "2026-03-10T10:00:00Z"})
	require.Equal(t, http.StatusCreated, w.Code)
	var sub domain.Submission
	decode(t, w, &sub)
	require.NotNil(t, sub.AutoSendTime)
	assert.True(t, sub.AutoSendTime.Equal(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)))
}

func TestAdminActions(t *testing.T) {
	r := setup(t, &fakeTrigger{})

	sub := create(t, r, "question")
	w := call(r, http.MethodPost, "/api/submissions/"+sub.ID+"/hold", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "hold needs a reason")

	w = call(r, http.MethodPost, "/api/submissions/"+sub.ID+"/hold", gin.H{"reason": "check facts"})
	require.Equal(t, http.StatusOK, w.Code)
	var held domain.Submission
	decode(t, w, &held)
	assert.Equal(t, domain.StatusHold, held.Status)

	w = call(r, http.MethodPost, "/api/submissions/"+sub.ID+"/approve", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "hold has no approve edge")

	urgent := create(t, r, "this is an emergency")
	assert.Equal(t, domain.StatusUrgentFlagged, urgent.Status)
	w = call(r, http.MethodPost, "/api/submissions/"+urgent.ID+"/escalate", nil)
	require.Equal(t, http.StatusOK, w.Code)

	other := create(t, r, "another question")
	w = call(r, http.MethodPost, "/api/submissions/"+other.ID+"/cancel", gin.H{"reason": "duplicate"})
	require.Equal(t, http.StatusOK, w.Code)

	w = call(r, http.MethodGet, "/api/submissions/"+sub.ID+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		History []domain.StatusHistory `json:"history"`
	}
	decode(t, w, &history)
	require.Len(t, history.History, 1)
	assert.Equal(t, "admin-1", history.History[0].ChangedBy)
	assert.Equal(t, "check facts", history.History[0].Reason)

	assert.Equal(t, http.StatusNotFound, call(r, http.MethodPost, "/api/submissions/nope/approve", nil).Code)
}

func TestUpdateDraftAndList(t *testing.T) {
	r := setup(t, &fakeTrigger{})
	sub := create(t, r, "question")
	create(t, r, "emergency help")

	w := call(r, http.MethodPut, "/api/submissions/"+sub.ID+"/draft", gin.H{"draft_content": "Edited reply"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated domain.Submission
	decode(t, w, &updated)
	assert.Equal(t, "Edited reply", updated.DraftContent)

	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodPut, "/api/submissions/"+sub.ID+"/draft", gin.H{}).Code)

	w = call(r, http.MethodGet, "/api/submissions?status=urgent_flagged", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Submissions []domain.Submission `json:"submissions"`
		Total       int64               `json:"total"`
	}
	decode(t, w, &list)
	assert.Equal(t, int64(1), list.Total)

	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodGet, "/api/submissions?status=bogus", nil).Code)
}

func TestProcessNow(t *testing.T) {
	trigger := &fakeTrigger{res: scheduler.CycleResult{Errors: []string{scheduler.BusyMessage}}}
	r := setup(t, trigger)

	w := call(r, http.MethodPost, "/api/autosend/process-now", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res scheduler.CycleResult
	decode(t, w, &res)
	assert.Equal(t, 0, res.ProcessedCount)
	assert.Equal(t, []string{scheduler.BusyMessage}, res.Errors)
	assert.Equal(t, 1, trigger.calls)
}
