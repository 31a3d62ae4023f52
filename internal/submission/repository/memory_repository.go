package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"autosend-backend/internal/submission/domain"

	"github.com/google/uuid"
)

// memorySubmissionRepository implements SubmissionRepository in process memory
// for tests and local runs without a database. Nothing is persisted.
// A single mutex makes every conditional operation atomic.
type memorySubmissionRepository struct {
	mu      sync.Mutex
	subs    map[string]*domain.Submission
	history map[string][]*domain.StatusHistory
}

// NewMemorySubmissionRepository creates an in-memory SubmissionRepository.
// It is meant for tests and development; production wiring uses NewGormSubmissionRepository.
func NewMemorySubmissionRepository() SubmissionRepository {
	return &memorySubmissionRepository{
		subs:    make(map[string]*domain.Submission),
		history: make(map[string][]*domain.StatusHistory),
	}
}

func cloneSubmission(s *domain.Submission) *domain.Submission {
	c := *s
	if s.AutoSendTime != nil {
		t := *s.AutoSendTime
		c.AutoSendTime = &t
	}
	if s.SentAt != nil {
		t := *s.SentAt
		c.SentAt = &t
	}
	if s.Safeguard != nil {
		sg := *s.Safeguard
		sg.FlaggedKeywords = append([]string(nil), s.Safeguard.FlaggedKeywords...)
		c.Safeguard = &sg
	}
	return &c
}

func (r *memorySubmissionRepository) Create(_ context.Context, s *domain.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	r.subs[s.ID] = cloneSubmission(s)
	return nil
}

func (r *memorySubmissionRepository) FindByID(_ context.Context, id string) (*domain.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.subs[id]
	if !ok {
		return nil, nil
	}
	return cloneSubmission(s), nil
}

func (r *memorySubmissionRepository) List(_ context.Context, status *domain.Status, limit, offset int) ([]*domain.Submission, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []*domain.Submission
	for _, s := range r.subs {
		if status != nil && s.Status != *status {
			continue
		}
		all = append(all, cloneSubmission(s))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	if offset >= len(all) {
		return []*domain.Submission{}, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *memorySubmissionRepository) UpdateDraft(_ context.Context, id, draft string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.subs[id]
	if !ok {
		return ErrNotFound
	}
	for _, locked := range draftLockedStatuses {
		if s.Status == locked {
			return ErrStaleStatus
		}
	}
	s.DraftContent = draft
	s.UpdatedAt = time.Now()
	return nil
}

func (r *memorySubmissionRepository) ApplyTransition(_ context.Context, id string, from, to domain.Status, fields map[string]interface{}, entry *domain.StatusHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.subs[id]
	if !ok {
		return ErrNotFound
	}
	if s.Status != from {
		return ErrStaleStatus
	}
	for k, v := range fields {
		switch k {
		case "hold_reason":
			s.HoldReason, _ = v.(string)
		case "cancel_reason":
			s.CancelReason, _ = v.(string)
		case "auto_send_time":
			if t, ok := v.(time.Time); ok {
				s.AutoSendTime = &t
			}
		}
	}
	s.Status = to
	s.UpdatedAt = time.Now()

	if entry != nil {
		if entry.ID == "" {
			entry.ID = uuid.New().String()
		}
		entry.SubmissionID = id
		entry.CreatedAt = time.Now()
		e := *entry
		r.history[id] = append(r.history[id], &e)
	}
	return nil
}

func (r *memorySubmissionRepository) History(_ context.Context, id string) ([]*domain.StatusHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.StatusHistory, 0, len(r.history[id]))
	for _, e := range r.history[id] {
		c := *e
		out = append(out, &c)
	}
	return out, nil
}

func (r *memorySubmissionRepository) FindEligible(_ context.Context, now time.Time) ([]*domain.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Submission
	for _, s := range r.subs {
		if s.IsEligibleAt(now) {
			out = append(out, cloneSubmission(s))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AutoSendTime.Before(*out[j].AutoSendTime) })
	return out, nil
}

func (r *memorySubmissionRepository) Claim(_ context.Context, id string, now time.Time) (*domain.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.subs[id]
	if !ok || !s.IsEligibleAt(now) {
		return nil, nil
	}
	s.Status = domain.StatusSending
	s.UpdatedAt = time.Now()
	return cloneSubmission(s), nil
}

func (r *memorySubmissionRepository) RevertClaim(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.subs[id]
	if !ok {
		return ErrNotFound
	}
	if s.Status != domain.StatusSending {
		return ErrNotClaimed
	}
	s.Status = domain.StatusPending
	s.UpdatedAt = time.Now()
	return nil
}

func (r *memorySubmissionRepository) ScheduleRetry(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.subs[id]
	if !ok {
		return ErrNotFound
	}
	s.AutoSendTime = &at
	s.UpdatedAt = time.Now()
	return nil
}

func (r *memorySubmissionRepository) MarkSent(_ context.Context, id, finalText string, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.subs[id]
	if !ok {
		return ErrNotFound
	}
	if s.Status != domain.StatusSending || s.SentAt != nil {
		return ErrNotClaimed
	}
	s.Status = domain.StatusAutoSent
	s.SentAt = &sentAt
	s.SentText = finalText
	s.UpdatedAt = time.Now()
	return nil
}
