package repository

import (
	"context"
	"errors"
	"time"

	"autosend-backend/internal/submission/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// gormSubmissionRepository implements SubmissionRepository using GORM
type gormSubmissionRepository struct {
	db *gorm.DB
}

// NewGormSubmissionRepository creates a new GORM-based SubmissionRepository
func NewGormSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &gormSubmissionRepository{db: db}
}

// AutoMigrate creates or updates the tables this repository needs
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Submission{}, &domain.StatusHistory{})
}

func (r *gormSubmissionRepository) Create(ctx context.Context, s *domain.Submission) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.AutoSendTime != nil {
		at := s.AutoSendTime.UTC()
		s.AutoSendTime = &at
	}
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *gormSubmissionRepository) FindByID(ctx context.Context, id string) (*domain.Submission, error) {
	var s domain.Submission
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *gormSubmissionRepository) List(ctx context.Context, status *domain.Status, limit, offset int) ([]*domain.Submission, int64, error) {
	var subs []*domain.Submission
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Submission{})
	if status != nil {
		query = query.Where("status = ?", string(*status))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&subs).Error
	return subs, total, err
}

func (r *gormSubmissionRepository) UpdateDraft(ctx context.Context, id, draft string) error {
	res := r.db.WithContext(ctx).Model(&domain.Submission{}).
		Where("id = ? AND status NOT IN ?", id, statusValues(draftLockedStatuses)).
		Updates(map[string]interface{}{
			"draft_content": draft,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.missingOr(ctx, id, ErrStaleStatus)
	}
	return nil
}

func (r *gormSubmissionRepository) ApplyTransition(ctx context.Context, id string, from, to domain.Status, fields map[string]interface{}, entry *domain.StatusHistory) error {
	updates := map[string]interface{}{}
	for k, v := range fields {
		updates[k] = v
	}
	updates["status"] = string(to)
	updates["updated_at"] = time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Submission{}).
			Where("id = ? AND status = ?", id, string(from)).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleStatus
		}
		if entry == nil {
			return nil
		}
		if entry.ID == "" {
			entry.ID = uuid.New().String()
		}
		entry.SubmissionID = id
		entry.CreatedAt = time.Now()
		return tx.Create(entry).Error
	})
	if errors.Is(err, ErrStaleStatus) {
		return r.missingOr(ctx, id, ErrStaleStatus)
	}
	return err
}

func (r *gormSubmissionRepository) History(ctx context.Context, id string) ([]*domain.StatusHistory, error) {
	var entries []*domain.StatusHistory
	err := r.db.WithContext(ctx).Where("submission_id = ?", id).
		Order("created_at ASC").Find(&entries).Error
	return entries, err
}

func (r *gormSubmissionRepository) FindEligible(ctx context.Context, now time.Time) ([]*domain.Submission, error) {
	var subs []*domain.Submission
	err := r.db.WithContext(ctx).
		Where("status IN ? AND auto_send_time IS NOT NULL AND auto_send_time <= ?", statusValues(domain.EligibleStatuses), now.UTC()).
		Order("auto_send_time ASC").
		Find(&subs).Error
	return subs, err
}

// Claim is a single conditional UPDATE so that concurrent callers, in this
// process or another, cannot both observe the row as eligible.
func (r *gormSubmissionRepository) Claim(ctx context.Context, id string, now time.Time) (*domain.Submission, error) {
	res := r.db.WithContext(ctx).Model(&domain.Submission{}).
		Where("id = ? AND status IN ? AND auto_send_time IS NOT NULL AND auto_send_time <= ?",
			id, statusValues(domain.EligibleStatuses), now.UTC()).
		Updates(map[string]interface{}{
			"status":     string(domain.StatusSending),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	// The row is ours while it stays in sending, so this read sees the claimed state
	var s domain.Submission
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *gormSubmissionRepository) RevertClaim(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&domain.Submission{}).
		Where("id = ? AND status = ?", id, string(domain.StatusSending)).
		Updates(map[string]interface{}{
			"status":     string(domain.StatusPending),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.missingOr(ctx, id, ErrNotClaimed)
	}
	return nil
}

func (r *gormSubmissionRepository) ScheduleRetry(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&domain.Submission{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"auto_send_time": at.UTC(),
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormSubmissionRepository) MarkSent(ctx context.Context, id, finalText string, sentAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&domain.Submission{}).
		Where("id = ? AND status = ? AND sent_at IS NULL", id, string(domain.StatusSending)).
		Updates(map[string]interface{}{
			"status":     string(domain.StatusAutoSent),
			"sent_at":    sentAt.UTC(),
			"sent_text":  finalText,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.missingOr(ctx, id, ErrNotClaimed)
	}
	return nil
}

// missingOr distinguishes an absent row from a conditional update that did not match
func (r *gormSubmissionRepository) missingOr(ctx context.Context, id string, err error) error {
	var count int64
	if cerr := r.db.WithContext(ctx).Model(&domain.Submission{}).Where("id = ?", id).Count(&count).Error; cerr != nil {
		return cerr
	}
	if count == 0 {
		return ErrNotFound
	}
	return err
}
