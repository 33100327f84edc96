package repository

import (
	"context"
	"fmt"
	"lms_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) WithTx(tx *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: tx}
}

// Ensure 不存在时创建 active 报名，已存在则不动
func (r *EnrollmentRepository) Ensure(ctx context.Context, userID, courseID uint) error {
	e := model.Enrollment{
		UserID:   userID,
		CourseID: courseID,
		Status:   model.EnrollmentActive,
	}
	err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(&e).Error
	if err != nil {
		return fmt.Errorf("ensure enrollment: %w", err)
	}
	return nil
}

func (r *EnrollmentRepository) UpdateProgress(ctx context.Context, userID, courseID uint, progress float64, at time.Time) error {
	return r.DB.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Updates(map[string]interface{}{
			"progress":   progress,
			"updated_at": at,
		}).Error
}

// MarkCompleted 仅 active -> completed 一次，返回是否发生了状态转换
func (r *EnrollmentRepository) MarkCompleted(ctx context.Context, userID, courseID uint, at time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND status <> ?", userID, courseID, model.EnrollmentCompleted).
		Updates(map[string]interface{}{
			"status":       model.EnrollmentCompleted,
			"completed_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return false, fmt.Errorf("complete enrollment: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *EnrollmentRepository) Find(ctx context.Context, userID, courseID uint) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&e).Error
	if err != nil {
		return nil, notFound(err, "find enrollment user %d course %d", userID, courseID)
	}
	return &e, nil
}

// List courseID 为 0 时返回全部报名
func (r *EnrollmentRepository) List(ctx context.Context, courseID uint) ([]model.Enrollment, error) {
	var es []model.Enrollment
	query := r.DB.WithContext(ctx).Model(&model.Enrollment{})
	if courseID > 0 {
		query = query.Where("course_id = ?", courseID)
	}
	err := query.Order("id asc").Find(&es).Error
	return es, err
}
