package repository

import (
	"context"
	"errors"
	"time"

	"autosend-backend/internal/submission/domain"
)

var (
	// ErrNotFound is returned when no submission has the given ID
	ErrNotFound = errors.New("submission not found")
	// ErrNotClaimed is returned when a claim-owned operation finds the submission no longer in sending
	ErrNotClaimed = errors.New("submission is not claimed")
	// ErrStaleStatus is returned when a conditional status update lost to a concurrent change
	ErrStaleStatus = errors.New("submission status changed concurrently")
)

// SubmissionRepository defines the interface for submission data access
type SubmissionRepository interface {
	// Create inserts a new submission
	Create(ctx context.Context, s *domain.Submission) error

	// FindByID finds a submission by its ID, returning nil when absent
	FindByID(ctx context.Context, id string) (*domain.Submission, error)

	// List returns submissions newest first with an optional status filter
	List(ctx context.Context, status *domain.Status, limit, offset int) ([]*domain.Submission, int64, error)

	// UpdateDraft replaces the draft of a submission that is not sending or terminal
	UpdateDraft(ctx context.Context, id, draft string) error

	// ApplyTransition moves a submission from one status to another only if it is
	// still in from, setting the extra columns and appending the history entry
	ApplyTransition(ctx context.Context, id string, from, to domain.Status, fields map[string]interface{}, entry *domain.StatusHistory) error

	// History returns the status changes of a submission oldest first
	History(ctx context.Context, id string) ([]*domain.StatusHistory, error)

	// FindEligible returns submissions with status pending or approved and
	// auto_send_time <= now, ordered by auto_send_time ascending
	FindEligible(ctx context.Context, now time.Time) ([]*domain.Submission, error)

	// Claim atomically moves a submission that is pending/approved and due at
	// now to sending. Returns nil, nil when the conditional update matched nothing.
	Claim(ctx context.Context, id string, now time.Time) (*domain.Submission, error)

	// RevertClaim moves a claimed submission back to pending
	RevertClaim(ctx context.Context, id string) error

	// ScheduleRetry sets the next auto_send_time of a submission
	ScheduleRetry(ctx context.Context, id string, at time.Time) error

	// MarkSent moves a claimed submission to auto_sent and writes sent_at/sent_text once
	MarkSent(ctx context.Context, id, finalText string, sentAt time.Time) error
}

func statusValues(statuses []domain.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// draftLockedStatuses are the states in which the draft may no longer change
var draftLockedStatuses = []domain.Status{domain.StatusSending, domain.StatusAutoSent, domain.StatusCancelled}
