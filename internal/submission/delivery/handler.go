package delivery

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"autosend-backend/internal/submission/domain"
	"autosend-backend/internal/submission/scheduler"
	"autosend-backend/internal/submission/usecase"

	"github.com/gin-gonic/gin"
)

// Trigger runs one auto-send cycle on demand
type Trigger interface {
	TriggerImmediate(ctx context.Context) scheduler.CycleResult
}

// SubmissionHandler handles submission-related HTTP requests
type SubmissionHandler struct {
	submissionUsecase usecase.SubmissionUsecase
	trigger           Trigger
}

// NewSubmissionHandler creates a new SubmissionHandler
func NewSubmissionHandler(submissionUsecase usecase.SubmissionUsecase, trigger Trigger) *SubmissionHandler {
	return &SubmissionHandler{
		submissionUsecase: submissionUsecase,
		trigger:           trigger,
	}
}

// CreateSubmissionRequest represents the request body for creating a submission
type CreateSubmissionRequest struct {
	UserID         string  `json:"user_id"`
	OrganizationID string  `json:"organization_id"`
	Subject        string  `json:"subject"`
	RequestText    string  `json:"request_text"`
	DraftContent   string  `json:"draft_content"`
	Severity       string  `json:"severity_level"`
	ContactID      string  `json:"contact_id" binding:"required"`
	ContactName    string  `json:"contact_name"`
	ContactEmail   string  `json:"contact_email"`
	AutoSendTime   *string `json:"auto_send_time"` // RFC3339
}

// ReasonRequest carries the reason for hold and cancel
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// UpdateDraftRequest represents the request body for editing a draft
type UpdateDraftRequest struct {
	DraftContent string `json:"draft_content" binding:"required"`
}

// CreateSubmission creates a new submission
// POST /api/submissions
func (h *SubmissionHandler) CreateSubmission(c *gin.Context) {
	var req CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := usecase.CreateSubmissionRequest{
		UserID:         req.UserID,
		OrganizationID: req.OrganizationID,
		Subject:        req.Subject,
		RequestText:    req.RequestText,
		DraftContent:   req.DraftContent,
		Severity:       req.Severity,
		Recipient: domain.Contact{
			ContactID: req.ContactID,
			Name:      req.ContactName,
			Email:     req.ContactEmail,
		},
	}
	if in.UserID == "" {
		in.UserID = c.GetString("userID")
	}
	if req.AutoSendTime != nil && *req.AutoSendTime != "" {
		t, err := time.Parse(time.RFC3339, *req.AutoSendTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "auto_send_time must be RFC3339"})
			return
		}
		in.AutoSendTime = &t
	}

	sub, err := h.submissionUsecase.CreateSubmission(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sub)
}

// ListSubmissions returns submissions newest first
// GET /api/submissions?status=pending&limit=50&offset=0
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	status := c.Query("status")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	var statusPtr *string
	if status != "" {
		statusPtr = &status
	}

	subs, total, err := h.submissionUsecase.ListSubmissions(c.Request.Context(), statusPtr, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submissions": subs,
		"total":       total,
	})
}

// GetSubmission returns a specific submission
// GET /api/submissions/:id
func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
	sub, err := h.submissionUsecase.GetSubmission(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// GetHistory returns the status changes of a submission
// GET /api/submissions/:id/history
func (h *SubmissionHandler) GetHistory(c *gin.Context) {
	history, err := h.submissionUsecase.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// UpdateDraft replaces the draft of a submission
// PUT /api/submissions/:id/draft
func (h *SubmissionHandler) UpdateDraft(c *gin.Context) {
	var req UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.submissionUsecase.UpdateDraft(c.Request.Context(), c.Param("id"), req.DraftContent)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Approve makes a submission eligible for auto-send
// POST /api/submissions/:id/approve
func (h *SubmissionHandler) Approve(c *gin.Context) {
	sub, err := h.submissionUsecase.Approve(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	h.respond(c, sub, err)
}

// Hold parks a submission for manual review
// POST /api/submissions/:id/hold
func (h *SubmissionHandler) Hold(c *gin.Context) {
	var req ReasonRequest
	_ = c.ShouldBindJSON(&req)
	sub, err := h.submissionUsecase.Hold(c.Request.Context(), c.Param("id"), c.GetString("userID"), req.Reason)
	h.respond(c, sub, err)
}

// Cancel stops a submission from ever being sent
// POST /api/submissions/:id/cancel
func (h *SubmissionHandler) Cancel(c *gin.Context) {
	var req ReasonRequest
	_ = c.ShouldBindJSON(&req)
	sub, err := h.submissionUsecase.Cancel(c.Request.Context(), c.Param("id"), c.GetString("userID"), req.Reason)
	h.respond(c, sub, err)
}

// Escalate takes an urgent submission out of the automatic pipeline
// POST /api/submissions/:id/escalate
func (h *SubmissionHandler) Escalate(c *gin.Context) {
	sub, err := h.submissionUsecase.Escalate(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	h.respond(c, sub, err)
}

// ProcessNow runs one auto-send cycle and reports its result
// POST /api/autosend/process-now
func (h *SubmissionHandler) ProcessNow(c *gin.Context) {
	res := h.trigger.TriggerImmediate(c.Request.Context())
	c.JSON(http.StatusOK, res)
}

func (h *SubmissionHandler) respond(c *gin.Context, sub *domain.Submission, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
	case errors.Is(err, usecase.ErrConflict), errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrInvalidInput), errors.Is(err, domain.ErrReasonRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
