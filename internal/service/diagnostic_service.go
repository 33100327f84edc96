package service

import (
	"context"
	"encoding/json"
	"fmt"
	"lms_backend/internal/grading"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DiagnosticService 诊断测评：无次数限制，无及格线，只给出等级，重测覆盖
type DiagnosticService struct {
	Assessments *repository.AssessmentRepository
	Results     *repository.DiagnosticRepository

	leveler atomic.Pointer[grading.Leveler]
	now     func() time.Time
}

func NewDiagnosticService(assessments *repository.AssessmentRepository, results *repository.DiagnosticRepository, leveler *grading.Leveler) *DiagnosticService {
	s := &DiagnosticService{Assessments: assessments, Results: results, now: time.Now}
	s.leveler.Store(leveler)
	return s
}

// SetLeveler 配置热更新时替换等级区间
func (s *DiagnosticService) SetLeveler(l *grading.Leveler) {
	if l == nil {
		return
	}
	s.leveler.Store(l)
	logger.Log.Info("诊断等级区间已更新", zap.Any("bands", l.Bands()))
}

type DiagnosticOutcome struct {
	AssessmentID uint                     `json:"assessmentId"`
	Score        int                      `json:"score"`
	MaxScore     int                      `json:"maxScore"`
	Percentage   float64                  `json:"percentage"`
	Level        int                      `json:"level"`
	LevelName    string                   `json:"levelName"`
	Review       []grading.QuestionResult `json:"perQuestionReview"`
}

func (s *DiagnosticService) Submit(ctx context.Context, userID, assessmentID uint, answers map[uint]interface{}) (*DiagnosticOutcome, error) {
	a, err := loadPublished(ctx, s.Assessments, assessmentID)
	if err != nil {
		return nil, err
	}
	if a.Kind != model.AssessmentDiagnostic {
		return nil, fmt.Errorf("assessment %d is not diagnostic: %w", a.ID, util.ErrAssessmentKindMismatch)
	}

	if answers == nil {
		answers = map[uint]interface{}{}
	}
	b := grading.Grade(model.GradingQuestions(a.Questions), answers)
	logAnomalies(userID, a.ID, b.Results)

	pct := b.Percentage()
	band := s.leveler.Load().Level(pct)

	review, err := json.Marshal(b.Results)
	if err != nil {
		return nil, fmt.Errorf("encode review: %w", err)
	}

	now := s.now()
	res := &model.DiagnosticResult{
		UserID:       userID,
		AssessmentID: a.ID,
		Score:        b.Score,
		MaxScore:     b.MaxScore,
		Percentage:   pct,
		Level:        band.Level,
		LevelName:    band.Name,
		Review:       review,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Results.Upsert(ctx, res); err != nil {
		return nil, fmt.Errorf("save diagnostic result: %w", err)
	}

	return &DiagnosticOutcome{
		AssessmentID: a.ID,
		Score:        b.Score,
		MaxScore:     b.MaxScore,
		Percentage:   pct,
		Level:        band.Level,
		LevelName:    band.Name,
		Review:       b.Results,
	}, nil
}

func (s *DiagnosticService) Result(ctx context.Context, userID, assessmentID uint) (*model.DiagnosticResult, error) {
	return s.Results.Find(ctx, userID, assessmentID)
}
