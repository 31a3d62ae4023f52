package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"autosend-backend/internal/submission/domain"
	"autosend-backend/internal/submission/repository"
	"autosend-backend/pkg/ai"
	"autosend-backend/pkg/metrics"
	"autosend-backend/pkg/safeguard"

	"go.uber.org/zap"
)

// submissionUsecase implements SubmissionUsecase interface
type submissionUsecase struct {
	repo         repository.SubmissionRepository
	checker      *safeguard.Checker
	drafter      ai.DraftGenerator
	log          *zap.SugaredLogger
	now          func() time.Time
	reviewWindow time.Duration
}

// NewSubmissionUsecase creates a new instance of submissionUsecase.
// drafter may be nil, in which case drafts must be supplied on creation.
func NewSubmissionUsecase(repo repository.SubmissionRepository, checker *safeguard.Checker, drafter ai.DraftGenerator, log *zap.SugaredLogger, now func() time.Time, reviewWindow time.Duration) SubmissionUsecase {
	if now == nil {
		now = time.Now
	}
	if checker == nil {
		checker = safeguard.NewChecker(nil)
	}
	return &submissionUsecase{
		repo:         repo,
		checker:      checker,
		drafter:      drafter,
		log:          log,
		now:          now,
		reviewWindow: reviewWindow,
	}
}

func (u *submissionUsecase) CreateSubmission(ctx context.Context, req CreateSubmissionRequest) (*domain.Submission, error) {
	if strings.TrimSpace(req.RequestText) == "" && strings.TrimSpace(req.DraftContent) == "" {
		return nil, fmt.Errorf("%w: request_text or draft_content is required", ErrInvalidInput)
	}

	sub := &domain.Submission{
		UserID:         req.UserID,
		OrganizationID: req.OrganizationID,
		Subject:        strings.TrimSpace(req.Subject),
		RequestText:    req.RequestText,
		DraftContent:   strings.TrimSpace(req.DraftContent),
		SeverityLevel:  domain.ParseSeverity(req.Severity),
		Recipient:      req.Recipient,
		Status:         domain.StatusPending,
	}

	if hits := u.checker.Check(req.Subject + " " + req.RequestText); len(hits) > 0 {
		// Flagged submissions wait for an admin; approval sets the send time
		sub.Status = domain.StatusUrgentFlagged
		sub.Safeguard = &domain.UrgentSafeguard{FlaggedKeywords: hits, ReviewRequired: true}
		sub.SeverityLevel = domain.SeverityUrgent
		u.log.Infow("Submission flagged by urgent safeguard", "keywords", hits, "contactID", req.Recipient.ContactID)
	} else {
		at := u.now().Add(u.reviewWindow)
		if req.AutoSendTime != nil {
			at = *req.AutoSendTime
		}
		at = at.UTC()
		sub.AutoSendTime = &at
	}

	if sub.DraftContent == "" && u.drafter != nil {
		draft, err := u.drafter.GenerateDraft(ctx, ai.DraftRequest{
			Subject:       sub.Subject,
			RequestText:   sub.RequestText,
			RecipientName: sub.Recipient.Name,
			Severity:      string(sub.SeverityLevel),
		})
		if err != nil {
			// Left empty until an admin edits it; dispatch releases the claim meanwhile
			u.log.Warnw("Draft generation failed", "contactID", sub.Recipient.ContactID, "error", err)
		} else {
			sub.DraftContent = draft
		}
	}

	if err := u.repo.Create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (u *submissionUsecase) GetSubmission(ctx context.Context, id string) (*domain.Submission, error) {
	sub, err := u.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNotFound
	}
	return sub, nil
}

func (u *submissionUsecase) ListSubmissions(ctx context.Context, status *string, limit, offset int) ([]*domain.Submission, int64, error) {
	var filter *domain.Status
	if status != nil && *status != "" {
		s := domain.Status(*status)
		if !s.Valid() {
			return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *status)
		}
		filter = &s
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return u.repo.List(ctx, filter, limit, offset)
}

func (u *submissionUsecase) GetHistory(ctx context.Context, id string) ([]*domain.StatusHistory, error) {
	if _, err := u.GetSubmission(ctx, id); err != nil {
		return nil, err
	}
	return u.repo.History(ctx, id)
}

func (u *submissionUsecase) UpdateDraft(ctx context.Context, id, draft string) (*domain.Submission, error) {
	draft = strings.TrimSpace(draft)
	if draft == "" {
		return nil, fmt.Errorf("%w: draft_content is required", ErrInvalidInput)
	}
	if err := u.repo.UpdateDraft(ctx, id, draft); err != nil {
		return nil, mapRepoError(err)
	}
	return u.GetSubmission(ctx, id)
}

func (u *submissionUsecase) Approve(ctx context.Context, id, actor string) (*domain.Submission, error) {
	return u.transition(ctx, id, actor, domain.EventApprove, "")
}

func (u *submissionUsecase) Hold(ctx context.Context, id, actor, reason string) (*domain.Submission, error) {
	return u.transition(ctx, id, actor, domain.EventHold, reason)
}

func (u *submissionUsecase) Cancel(ctx context.Context, id, actor, reason string) (*domain.Submission, error) {
	return u.transition(ctx, id, actor, domain.EventCancel, reason)
}

func (u *submissionUsecase) Escalate(ctx context.Context, id, actor string) (*domain.Submission, error) {
	return u.transition(ctx, id, actor, domain.EventEscalate, "")
}

// transition validates an admin event against the current state and applies it
// only if the submission is still in that state
func (u *submissionUsecase) transition(ctx context.Context, id, actor string, event domain.Event, reason string) (*domain.Submission, error) {
	reason = strings.TrimSpace(reason)
	if domain.RequiresReason(event) && reason == "" {
		return nil, domain.ErrReasonRequired
	}

	sub, err := u.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}

	to, err := domain.Transition(sub.Status, event)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	switch event {
	case domain.EventHold:
		fields["hold_reason"] = reason
	case domain.EventCancel:
		fields["cancel_reason"] = reason
	case domain.EventApprove:
		if sub.AutoSendTime == nil {
			fields["auto_send_time"] = u.now().UTC()
		}
	}

	entry := &domain.StatusHistory{
		OldStatus: sub.Status,
		NewStatus: to,
		ChangedBy: actor,
		Reason:    reason,
	}
	if err := u.repo.ApplyTransition(ctx, id, sub.Status, to, fields, entry); err != nil {
		return nil, mapRepoError(err)
	}

	metrics.AdminActions.WithLabelValues(string(event)).Inc()
	u.log.Infow("Submission status changed",
		"submissionID", id,
		"from", sub.Status,
		"to", to,
		"actor", actor)

	return u.GetSubmission(ctx, id)
}

func mapRepoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrStaleStatus):
		return ErrConflict
	default:
		return err
	}
}
