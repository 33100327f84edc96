package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"lms_backend/internal/grading"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"lms_backend/pkg/tracing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type SubmissionService struct {
	Assessments *repository.AssessmentRepository
	Submissions *repository.SubmissionRepository
	Ledger      *AttemptLedger
	Progress    *ProgressService
	// Retry 可为 nil，此时级联失败只记录日志
	Retry RetryQueue

	now func() time.Time
}

func NewSubmissionService(assessments *repository.AssessmentRepository, submissions *repository.SubmissionRepository, progress *ProgressService, retry RetryQueue) *SubmissionService {
	return &SubmissionService{
		Assessments: assessments,
		Submissions: submissions,
		Ledger:      NewAttemptLedger(submissions),
		Progress:    progress,
		Retry:       retry,
		now:         time.Now,
	}
}

type SubmitRequest struct {
	Answers map[uint]interface{} `json:"answers"`
}

type SubmissionResult struct {
	SubmissionID   string                   `json:"submissionId"`
	AssessmentID   uint                     `json:"assessmentId"`
	Score          int                      `json:"score"`
	MaxScore       int                      `json:"maxScore"`
	Percentage     float64                  `json:"percentage"`
	Passed         bool                     `json:"passed"`
	Attempt        int                      `json:"attempt"`
	AttemptsLeft   int                      `json:"attemptsLeft"`
	Review         []grading.QuestionResult `json:"perQuestionReview"`
	Degraded       bool                     `json:"degraded"`
	LessonProgress *LessonCompletionResult  `json:"lessonProgress,omitempty"`
}

// loadPublished 未发布的测评对学员不可见
func loadPublished(ctx context.Context, repo *repository.AssessmentRepository, id uint) (*model.Assessment, error) {
	a, err := repo.FindWithQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.IsPublished {
		return nil, fmt.Errorf("assessment %d not published: %w", id, util.ErrNotFound)
	}
	return a, nil
}

func logAnomalies(userID, assessmentID uint, results []grading.QuestionResult) {
	for _, r := range results {
		if r.Anomaly == "" {
			continue
		}
		monitoring.GradingAnomalies.Inc()
		logger.Log.Warn("评分异常，按错误计分",
			zap.Uint("userId", userID),
			zap.Uint("assessmentId", assessmentID),
			zap.Uint("questionId", r.QuestionID),
			zap.String("anomaly", r.Anomaly))
	}
}

func (s *SubmissionService) Submit(ctx context.Context, userID, assessmentID uint, answers map[uint]interface{}) (*SubmissionResult, error) {
	ctx, span := tracing.Tracer.Start(ctx, "SubmissionService.Submit")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", int64(userID)), attribute.Int64("assessment.id", int64(assessmentID)))

	a, err := loadPublished(ctx, s.Assessments, assessmentID)
	if err != nil {
		return nil, err
	}
	if a.Kind == model.AssessmentDiagnostic {
		return nil, fmt.Errorf("assessment %d is diagnostic: %w", a.ID, util.ErrAssessmentKindMismatch)
	}

	attempt, err := s.Ledger.ReserveNextAttempt(ctx, userID, a)
	if err != nil {
		if errors.Is(err, util.ErrAttemptsExhausted) {
			monitoring.SubmissionsTotal.WithLabelValues("exhausted").Inc()
		}
		return nil, err
	}

	if answers == nil {
		answers = map[uint]interface{}{}
	}
	b := grading.Grade(model.GradingQuestions(a.Questions), answers)
	logAnomalies(userID, a.ID, b.Results)

	pct := b.Percentage()
	passed := pct >= a.PassingScore

	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w: %v", util.ErrInvalidArgument, err)
	}
	reviewJSON, err := json.Marshal(b.Results)
	if err != nil {
		return nil, fmt.Errorf("encode review: %w", err)
	}

	sub := &model.AssessmentSubmission{
		UserID:       userID,
		AssessmentID: a.ID,
		Attempt:      attempt,
		Answers:      answersJSON,
		Review:       reviewJSON,
		Score:        b.Score,
		MaxScore:     b.MaxScore,
		Percentage:   pct,
		Passed:       passed,
	}
	if err := s.Submissions.Create(ctx, sub); err != nil {
		if errors.Is(err, util.ErrAttemptConflict) {
			monitoring.SubmissionsTotal.WithLabelValues("exhausted").Inc()
			return nil, fmt.Errorf("concurrent submission took attempt %d: %w", attempt, util.ErrAttemptsExhausted)
		}
		return nil, err
	}

	result := &SubmissionResult{
		SubmissionID: sub.ID,
		AssessmentID: a.ID,
		Score:        b.Score,
		MaxScore:     b.MaxScore,
		Percentage:   pct,
		Passed:       passed,
		Attempt:      attempt,
		AttemptsLeft: attemptLimit(a) - attempt,
		Review:       b.Results,
	}

	if passed && a.LessonID != nil {
		lp, err := s.Progress.MarkLessonComplete(ctx, userID, *a.LessonID)
		if err != nil {
			span.RecordError(err)
			s.aggregationFailed(ctx, userID, *a.LessonID, sub.ID, err)
			result.Degraded = true
		} else {
			result.LessonProgress = lp
		}
	}

	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	monitoring.SubmissionsTotal.WithLabelValues(outcome).Inc()

	return result, nil
}

// aggregationFailed 提交已成功保存，不回滚；进度由后台重放补齐
func (s *SubmissionService) aggregationFailed(ctx context.Context, userID, lessonID uint, submissionID string, cause error) {
	monitoring.AggregationFailures.Inc()
	logger.Log.Error("课时进度更新失败",
		zap.Uint("userId", userID),
		zap.Uint("lessonId", lessonID),
		zap.String("submissionId", submissionID),
		zap.Error(cause))

	if s.Retry == nil {
		return
	}
	job := AggregationJob{
		UserID:       userID,
		LessonID:     lessonID,
		SubmissionID: submissionID,
		EnqueuedAt:   s.now(),
	}
	if err := s.Retry.Enqueue(ctx, job); err != nil {
		logger.Log.Error("进度重放任务入队失败", zap.String("submissionId", submissionID), zap.Error(err))
	}
}

func (s *SubmissionService) AttemptStatus(ctx context.Context, userID, assessmentID uint) (*AttemptStatus, error) {
	a, err := loadPublished(ctx, s.Assessments, assessmentID)
	if err != nil {
		return nil, err
	}
	return s.Ledger.Status(ctx, userID, a)
}

func (s *SubmissionService) ListMySubmissions(ctx context.Context, userID, assessmentID uint) ([]model.AssessmentSubmission, error) {
	if _, err := loadPublished(ctx, s.Assessments, assessmentID); err != nil {
		return nil, err
	}
	return s.Submissions.ListByUserAndAssessment(ctx, userID, assessmentID)
}

// GetOwnSubmission 他人的提交同样返回 NotFound
func (s *SubmissionService) GetOwnSubmission(ctx context.Context, userID uint, id string) (*model.AssessmentSubmission, error) {
	sub, err := s.Submissions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, fmt.Errorf("submission %s: %w", id, util.ErrNotFound)
	}
	return sub, nil
}

func (s *SubmissionService) GetSubmission(ctx context.Context, id string) (*model.AssessmentSubmission, error) {
	return s.Submissions.FindByID(ctx, id)
}

type ReviewRequest struct {
	Action   model.ReviewAction `json:"action" binding:"required"`
	Feedback string             `json:"feedback"`
}

// Review 教师评阅：只记录评阅结论，不改分数，也不增加尝试次数
func (s *SubmissionService) Review(ctx context.Context, reviewerID uint, id string, req ReviewRequest) (*model.AssessmentSubmission, error) {
	if !req.Action.Valid() {
		return nil, fmt.Errorf("%q: %w", req.Action, util.ErrInvalidReviewAction)
	}
	if err := s.Submissions.UpdateReview(ctx, id, reviewerID, req.Action, req.Feedback, s.now()); err != nil {
		return nil, err
	}
	return s.Submissions.FindByID(ctx, id)
}
