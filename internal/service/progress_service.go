package service

import (
	"context"
	"fmt"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"lms_backend/pkg/tracing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProgressService 课时完成 -> 课程进度 -> 报名状态。进度每次从头重算，可重复调用
type ProgressService struct {
	DB          *gorm.DB
	Courses     *repository.CourseRepository
	Progress    *repository.ProgressRepository
	Enrollments *repository.EnrollmentRepository

	now func() time.Time
}

func NewProgressService(db *gorm.DB, courses *repository.CourseRepository, progress *repository.ProgressRepository, enrollments *repository.EnrollmentRepository) *ProgressService {
	return &ProgressService{
		DB:          db,
		Courses:     courses,
		Progress:    progress,
		Enrollments: enrollments,
		now:         time.Now,
	}
}

type LessonCompletionResult struct {
	LessonID         uint                   `json:"lessonId,omitempty"`
	CourseID         uint                   `json:"courseId"`
	FirstCompletion  bool                   `json:"firstCompletion"`
	CompletedLessons int64                  `json:"completedLessons"`
	TotalLessons     int64                  `json:"totalLessons"`
	Progress         float64                `json:"progress"`
	Status           model.EnrollmentStatus `json:"status"`
	CompletedAt      *time.Time             `json:"completedAt,omitempty"`
	// CourseCompleted 本次调用使报名变为 completed
	CourseCompleted bool `json:"courseCompleted"`
}

func (s *ProgressService) MarkLessonComplete(ctx context.Context, userID, lessonID uint) (*LessonCompletionResult, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ProgressService.MarkLessonComplete")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", int64(userID)), attribute.Int64("lesson.id", int64(lessonID)))

	now := s.now()
	var result *LessonCompletionResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		courseID, err := s.Courses.WithTx(tx).CourseIDForLesson(ctx, lessonID)
		if err != nil {
			return err
		}

		first, err := s.Progress.WithTx(tx).MarkCompleted(ctx, userID, lessonID, now)
		if err != nil {
			return err
		}

		result, err = s.recompute(ctx, tx, userID, courseID, now)
		if err != nil {
			return err
		}
		result.LessonID = lessonID
		result.FirstCompletion = first
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.afterRecompute(userID, result)
	return result, nil
}

// RecomputeEnrollment 只重算课程进度，不改变任何课时状态
func (s *ProgressService) RecomputeEnrollment(ctx context.Context, userID, courseID uint) (*LessonCompletionResult, error) {
	if _, err := s.Courses.FindCourseByID(ctx, courseID); err != nil {
		return nil, err
	}

	now := s.now()
	var result *LessonCompletionResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.recompute(ctx, tx, userID, courseID, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterRecompute(userID, result)
	return result, nil
}

// RecomputeAll courseID 为 0 时重算全部报名，返回处理条数
func (s *ProgressService) RecomputeAll(ctx context.Context, courseID uint) (int, error) {
	enrollments, err := s.Enrollments.List(ctx, courseID)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, e := range enrollments {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := s.RecomputeEnrollment(ctx, e.UserID, e.CourseID); err != nil {
			logger.Log.Warn("重算报名进度失败",
				zap.Uint("userId", e.UserID),
				zap.Uint("courseId", e.CourseID),
				zap.Error(err))
			continue
		}
		done++
	}
	return done, nil
}

func (s *ProgressService) recompute(ctx context.Context, tx *gorm.DB, userID, courseID uint, now time.Time) (*LessonCompletionResult, error) {
	progressRepo := s.Progress.WithTx(tx)
	enrollmentRepo := s.Enrollments.WithTx(tx)

	total, err := progressRepo.CountCourseLessons(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("count course lessons: %w", err)
	}
	completed, err := progressRepo.CountCompletedLessons(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("count completed lessons: %w", err)
	}

	progress := 0.0
	if total > 0 {
		progress = float64(completed) * 100 / float64(total)
	}

	if err := enrollmentRepo.Ensure(ctx, userID, courseID); err != nil {
		return nil, err
	}
	if err := enrollmentRepo.UpdateProgress(ctx, userID, courseID, progress, now); err != nil {
		return nil, fmt.Errorf("update enrollment progress: %w", err)
	}

	transitioned := false
	if total > 0 && completed >= total {
		transitioned, err = enrollmentRepo.MarkCompleted(ctx, userID, courseID, now)
		if err != nil {
			return nil, err
		}
	}

	e, err := enrollmentRepo.Find(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	return &LessonCompletionResult{
		CourseID:         courseID,
		CompletedLessons: completed,
		TotalLessons:     total,
		Progress:         e.Progress,
		Status:           e.Status,
		CompletedAt:      e.CompletedAt,
		CourseCompleted:  transitioned,
	}, nil
}

func (s *ProgressService) afterRecompute(userID uint, r *LessonCompletionResult) {
	if !r.CourseCompleted {
		return
	}
	monitoring.EnrollmentCompletions.Inc()
	logger.Log.Info("课程已完成",
		zap.Uint("userId", userID),
		zap.Uint("courseId", r.CourseID))
}

// RecordTimeOnTask 累计课时学习时长（秒）
func (s *ProgressService) RecordTimeOnTask(ctx context.Context, userID, lessonID uint, seconds int) (*model.LessonProgress, error) {
	if seconds <= 0 {
		return nil, fmt.Errorf("time spent must be positive, got %d: %w", seconds, util.ErrInvalidArgument)
	}
	if _, err := s.Courses.CourseIDForLesson(ctx, lessonID); err != nil {
		return nil, err
	}
	if err := s.Progress.AddTimeSpent(ctx, userID, lessonID, seconds, s.now()); err != nil {
		return nil, fmt.Errorf("record time on task: %w", err)
	}
	return s.Progress.Find(ctx, userID, lessonID)
}

// Enroll 创建报名（已存在则保持原状态），并按当前课时完成情况重算进度
func (s *ProgressService) Enroll(ctx context.Context, userID, courseID uint) (*model.Enrollment, error) {
	if _, err := s.RecomputeEnrollment(ctx, userID, courseID); err != nil {
		return nil, err
	}
	return s.Enrollments.Find(ctx, userID, courseID)
}

func (s *ProgressService) GetEnrollment(ctx context.Context, userID, courseID uint) (*model.Enrollment, error) {
	return s.Enrollments.Find(ctx, userID, courseID)
}
