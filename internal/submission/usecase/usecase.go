package usecase

import (
	"context"
	"errors"
	"time"

	"autosend-backend/internal/submission/domain"
)

var (
	// ErrNotFound is returned when no submission has the given ID
	ErrNotFound = errors.New("submission not found")
	// ErrConflict is returned when the submission changed state underneath an admin action
	ErrConflict = errors.New("submission changed concurrently, reload and retry")
	// ErrInvalidInput is returned for malformed requests
	ErrInvalidInput = errors.New("invalid input")
)

// SubmissionUsecase defines the interface for submission business logic
type SubmissionUsecase interface {
	// CreateSubmission runs the urgent safeguard, drafts a response if needed and stores the submission
	CreateSubmission(ctx context.Context, req CreateSubmissionRequest) (*domain.Submission, error)

	// GetSubmission retrieves a submission by ID
	GetSubmission(ctx context.Context, id string) (*domain.Submission, error)

	// ListSubmissions retrieves submissions with an optional status filter
	ListSubmissions(ctx context.Context, status *string, limit, offset int) ([]*domain.Submission, int64, error)

	// GetHistory retrieves the status changes of a submission
	GetHistory(ctx context.Context, id string) ([]*domain.StatusHistory, error)

	// UpdateDraft replaces the draft while the submission is not sending or terminal
	UpdateDraft(ctx context.Context, id, draft string) (*domain.Submission, error)

	// Approve, Hold, Cancel and Escalate are the administrator transitions
	Approve(ctx context.Context, id, actor string) (*domain.Submission, error)
	Hold(ctx context.Context, id, actor, reason string) (*domain.Submission, error)
	Cancel(ctx context.Context, id, actor, reason string) (*domain.Submission, error)
	Escalate(ctx context.Context, id, actor string) (*domain.Submission, error)
}

// CreateSubmissionRequest represents the input for a new submission
type CreateSubmissionRequest struct {
	UserID         string
	OrganizationID string
	Subject        string
	RequestText    string
	DraftContent   string
	Severity       string
	Recipient      domain.Contact
	AutoSendTime   *time.Time // Defaults to now + review window
}
