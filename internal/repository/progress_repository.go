package repository

import (
	"context"
	"fmt"
	"lms_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

var userLessonConflict = []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}}

// MarkCompleted 幂等：首次完成写入 completed_at，之后不再改动。返回是否为首次完成
func (r *ProgressRepository) MarkCompleted(ctx context.Context, userID, lessonID uint, at time.Time) (bool, error) {
	db := r.DB.WithContext(ctx)

	row := model.LessonProgress{
		UserID:      userID,
		LessonID:    lessonID,
		Completed:   true,
		CompletedAt: &at,
	}
	res := db.Clauses(clause.OnConflict{Columns: userLessonConflict, DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("insert lesson progress: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// 已有记录（例如只累计过学习时长）
	res = db.Model(&model.LessonProgress{}).
		Where("user_id = ? AND lesson_id = ? AND completed = ?", userID, lessonID, false).
		Updates(map[string]interface{}{
			"completed":    true,
			"completed_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return false, fmt.Errorf("complete lesson progress: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// AddTimeSpent 累加学习时长（秒），不影响完成状态
func (r *ProgressRepository) AddTimeSpent(ctx context.Context, userID, lessonID uint, seconds int, at time.Time) error {
	row := model.LessonProgress{
		UserID:    userID,
		LessonID:  lessonID,
		TimeSpent: seconds,
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: userLessonConflict,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"time_spent": gorm.Expr("lesson_progress.time_spent + ?", seconds),
			"updated_at": at,
		}),
	}).Create(&row).Error
}

func (r *ProgressRepository) Find(ctx context.Context, userID, lessonID uint) (*model.LessonProgress, error) {
	var p model.LessonProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		First(&p).Error
	if err != nil {
		return nil, notFound(err, "find progress user %d lesson %d", userID, lessonID)
	}
	return &p, nil
}

// courseLessons 课程下未删除模块中的未删除课时
func (r *ProgressRepository) courseLessons(ctx context.Context, courseID uint) *gorm.DB {
	return r.DB.WithContext(ctx).
		Model(&model.Lesson{}).
		Joins("JOIN course_modules ON course_modules.id = lessons.module_id AND course_modules.deleted_at IS NULL").
		Where("course_modules.course_id = ?", courseID)
}

func (r *ProgressRepository) CountCourseLessons(ctx context.Context, courseID uint) (int64, error) {
	var total int64
	err := r.courseLessons(ctx, courseID).Count(&total).Error
	return total, err
}

func (r *ProgressRepository) CountCompletedLessons(ctx context.Context, userID, courseID uint) (int64, error) {
	var completed int64
	lessonIDs := r.courseLessons(ctx, courseID).Select("lessons.id")
	err := r.DB.WithContext(ctx).
		Model(&model.LessonProgress{}).
		Where("user_id = ? AND completed = ? AND lesson_id IN (?)", userID, true, lessonIDs).
		Count(&completed).Error
	return completed, err
}
