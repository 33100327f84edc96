package repository

import (
	"context"
	"errors"
	"fmt"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"strings"
	"time"

	"gorm.io/gorm"
)

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

func (r *SubmissionRepository) WithTx(tx *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: tx}
}

// CountAttempts 含软删除记录，已用次数不会因删除而回退
func (r *SubmissionRepository) CountAttempts(ctx context.Context, userID, assessmentID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Unscoped().
		Model(&model.AssessmentSubmission{}).
		Where("user_id = ? AND assessment_id = ?", userID, assessmentID).
		Count(&count).Error
	return count, err
}

// Create 单行插入；(user_id, assessment_id, attempt) 冲突返回 util.ErrAttemptConflict
func (r *SubmissionRepository) Create(ctx context.Context, s *model.AssessmentSubmission) error {
	err := r.DB.WithContext(ctx).Create(s).Error
	if err == nil {
		return nil
	}
	if isDuplicateKey(err) {
		return fmt.Errorf("insert attempt %d: %w", s.Attempt, util.ErrAttemptConflict)
	}
	return fmt.Errorf("insert submission: %w", err)
}

func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*model.AssessmentSubmission, error) {
	var s model.AssessmentSubmission
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, notFound(err, "find submission %s", id)
	}
	return &s, nil
}

func (r *SubmissionRepository) ListByUserAndAssessment(ctx context.Context, userID, assessmentID uint) ([]model.AssessmentSubmission, error) {
	var subs []model.AssessmentSubmission
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND assessment_id = ?", userID, assessmentID).
		Order("attempt asc").
		Find(&subs).Error
	return subs, err
}

// UpdateReview 只写评阅字段，分数字段保持不变
func (r *SubmissionRepository) UpdateReview(ctx context.Context, id string, reviewerID uint, action model.ReviewAction, feedback string, at time.Time) error {
	res := r.DB.WithContext(ctx).
		Model(&model.AssessmentSubmission{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reviewer_id":   reviewerID,
			"review_action": action,
			"feedback":      feedback,
			"reviewed_at":   at,
		})
	if res.Error != nil {
		return fmt.Errorf("update review %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update review %s: %w", id, util.ErrNotFound)
	}
	return nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Duplicate entry")
}
