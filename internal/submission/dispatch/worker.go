package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"autosend-backend/internal/submission/domain"
	"autosend-backend/pkg/disclaimer"
	"autosend-backend/pkg/mail"
	"autosend-backend/pkg/metrics"

	"go.uber.org/zap"
)

// DefaultRetryDelay is the fixed backoff after a recoverable failure
const DefaultRetryDelay = 30 * time.Minute

const defaultSubject = "A response to your message"

// ErrDeliveryFailed is returned when the mail gateway did not accept a message
var ErrDeliveryFailed = errors.New("delivery failed")

// Outcome is how a single dispatch attempt ended
type Outcome string

const (
	OutcomeSent           Outcome = "sent"
	OutcomeClaimConflict  Outcome = "claim_conflict"
	OutcomeMissingDraft   Outcome = "missing_draft"
	OutcomeMissingContact Outcome = "missing_contact"
	OutcomeDeliveryFailed Outcome = "delivery_failed"
	OutcomeStoreError     Outcome = "store_error"
)

// Store is the subset of the submission repository a worker mutates state through
type Store interface {
	Claim(ctx context.Context, id string, now time.Time) (*domain.Submission, error)
	RevertClaim(ctx context.Context, id string) error
	ScheduleRetry(ctx context.Context, id string, at time.Time) error
	MarkSent(ctx context.Context, id, finalText string, sentAt time.Time) error
}

// Gateway delivers a composed message; false means the delivery did not happen
type Gateway interface {
	Send(ctx context.Context, recipient mail.Recipient, subject, body string, identity mail.Identity) bool
}

// Worker moves one submission from eligible to auto_sent or back to pending.
// Every state change goes through Store; the worker never assigns Status itself.
type Worker struct {
	store      Store
	gateway    Gateway
	composer   disclaimer.Composer
	log        *zap.SugaredLogger
	now        func() time.Time
	retryDelay time.Duration
}

// NewWorker creates a dispatch worker. A nil clock means time.Now and a
// non-positive retryDelay means DefaultRetryDelay.
func NewWorker(store Store, gateway Gateway, composer disclaimer.Composer, log *zap.SugaredLogger, now func() time.Time, retryDelay time.Duration) *Worker {
	if now == nil {
		now = time.Now
	}
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	return &Worker{
		store:      store,
		gateway:    gateway,
		composer:   composer,
		log:        log,
		now:        now,
		retryDelay: retryDelay,
	}
}

// Process claims, validates, composes, delivers and reconciles one submission.
// A non-nil error is returned only for delivery failures and store errors.
func (w *Worker) Process(ctx context.Context, sub *domain.Submission) (Outcome, error) {
	outcome, err := w.process(ctx, sub.ID)
	metrics.DispatchOutcomes.WithLabelValues(string(outcome)).Inc()
	return outcome, err
}

func (w *Worker) process(ctx context.Context, id string) (Outcome, error) {
	claimed, err := w.store.Claim(ctx, id, w.now())
	if err != nil {
		return OutcomeStoreError, fmt.Errorf("submission %s: claim: %w", id, err)
	}
	if claimed == nil {
		w.log.Debugw("Submission already claimed or no longer eligible", "submissionID", id)
		return OutcomeClaimConflict, nil
	}

	// Once claimed, the row must leave sending even if the caller goes away
	storeCtx := context.WithoutCancel(ctx)

	if strings.TrimSpace(claimed.DraftContent) == "" {
		// Not rescheduled: the submission is eligible again on the next cycle
		w.log.Warnw("Submission has no draft content, releasing claim", "submissionID", id)
		if err := w.store.RevertClaim(storeCtx, id); err != nil {
			return OutcomeStoreError, fmt.Errorf("submission %s: revert claim: %w", id, err)
		}
		return OutcomeMissingDraft, nil
	}

	if !claimed.Recipient.IsComplete() {
		retryAt := w.now().Add(w.retryDelay)
		w.log.Warnw("Submission recipient is incomplete, retrying later",
			"submissionID", id,
			"contactID", claimed.Recipient.ContactID,
			"retryAt", retryAt)
		if err := w.release(storeCtx, id, retryAt); err != nil {
			return OutcomeStoreError, err
		}
		return OutcomeMissingContact, nil
	}

	finalText := claimed.DraftContent + w.composer.Compose(string(claimed.SeverityLevel))

	if !w.deliver(ctx, claimed, finalText) {
		failedAt := w.now()
		retryAt := failedAt.Add(w.retryDelay)
		w.log.Warnw("Delivery failed, retrying later", "submissionID", id, "retryAt", retryAt)
		deliveryErr := fmt.Errorf("submission %s: %w", id, ErrDeliveryFailed)
		if err := w.release(storeCtx, id, retryAt); err != nil {
			return OutcomeDeliveryFailed, errors.Join(deliveryErr, err)
		}
		return OutcomeDeliveryFailed, deliveryErr
	}

	sentAt := w.now()
	if err := w.store.MarkSent(storeCtx, id, finalText, sentAt); err != nil {
		// The message is out; leaving the claim in place keeps it from being sent twice
		w.log.Errorw("Delivered but failed to record sent state, submission left in sending",
			"submissionID", id,
			"error", err)
		return OutcomeStoreError, fmt.Errorf("submission %s: mark sent: %w", id, err)
	}

	w.log.Infow("Submission auto-sent", "submissionID", id, "contactID", claimed.Recipient.ContactID)
	return OutcomeSent, nil
}

// release schedules the retry while the claim is still held, then reverts the claim
func (w *Worker) release(ctx context.Context, id string, retryAt time.Time) error {
	var errs []error
	if err := w.store.ScheduleRetry(ctx, id, retryAt); err != nil {
		errs = append(errs, fmt.Errorf("submission %s: schedule retry: %w", id, err))
	}
	if err := w.store.RevertClaim(ctx, id); err != nil {
		errs = append(errs, fmt.Errorf("submission %s: revert claim: %w", id, err))
	}
	return errors.Join(errs...)
}

// deliver calls the gateway, treating a panic the same as a false return
func (w *Worker) deliver(ctx context.Context, sub *domain.Submission, body string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Errorw("Mail gateway panicked", "submissionID", sub.ID, "panic", r)
			ok = false
		}
	}()

	recipient := mail.Recipient{
		ContactID: sub.Recipient.ContactID,
		Name:      sub.Recipient.Name,
		Email:     sub.Recipient.Email,
	}
	identity := mail.Identity{UserID: sub.UserID, OrganizationID: sub.OrganizationID}
	return w.gateway.Send(ctx, recipient, SubjectFor(sub), body, identity)
}

// SubjectFor derives the outgoing subject line from submission metadata
func SubjectFor(sub *domain.Submission) string {
	subject := strings.TrimSpace(sub.Subject)
	if subject == "" {
		return defaultSubject
	}
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}
