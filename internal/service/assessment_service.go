package service

import (
	"context"
	"encoding/json"
	"fmt"
	"lms_backend/internal/grading"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"time"

	"github.com/jinzhu/copier"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AssessmentService struct {
	Repo    *repository.AssessmentRepository
	Courses *repository.CourseRepository

	now func() time.Time
}

func NewAssessmentService(repo *repository.AssessmentRepository, courses *repository.CourseRepository) *AssessmentService {
	return &AssessmentService{Repo: repo, Courses: courses, now: time.Now}
}

type AssessmentRequest struct {
	Title        string               `json:"title" binding:"required"`
	Description  string               `json:"description"`
	Kind         model.AssessmentKind `json:"kind"`
	AttemptLimit int                  `json:"attemptLimit"`
	PassingScore float64              `json:"passingScore"`
	TimeLimit    int                  `json:"timeLimit"`
	LessonID     *uint                `json:"lessonId"`
}

type AssessmentQuestionRequest struct {
	QuestionType grading.QuestionKind `json:"questionType" binding:"required"`
	Title        string               `json:"title"`
	Content      string               `json:"content" binding:"required"`
	Options      json.RawMessage      `json:"options"`
	Answer       string               `json:"answer"`
	Points       int                  `json:"points"`
	Order        int                  `json:"order"`
	Explanation  string               `json:"explanation"`
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), util.ErrInvalidArgument)
}

func (s *AssessmentService) CreateAssessment(ctx context.Context, req AssessmentRequest) (*model.Assessment, error) {
	if req.Kind == "" {
		req.Kind = model.AssessmentGraded
	}
	if req.Kind != model.AssessmentGraded && req.Kind != model.AssessmentDiagnostic {
		return nil, invalid("unknown assessment kind %q", req.Kind)
	}
	if req.AttemptLimit == 0 {
		req.AttemptLimit = 1
	}
	if req.AttemptLimit < 1 {
		return nil, invalid("attempt limit must be at least 1")
	}
	if req.PassingScore < 0 || req.PassingScore > 100 {
		return nil, invalid("passing score %.2f outside [0,100]", req.PassingScore)
	}
	if req.TimeLimit < 0 {
		return nil, invalid("time limit must not be negative")
	}
	if req.LessonID != nil {
		if req.Kind == model.AssessmentDiagnostic {
			return nil, invalid("diagnostic assessments cannot be bound to a lesson")
		}
		if _, err := s.Courses.FindLessonByID(ctx, *req.LessonID); err != nil {
			return nil, err
		}
	}

	a := &model.Assessment{
		Title:        req.Title,
		Description:  req.Description,
		Kind:         req.Kind,
		AttemptLimit: req.AttemptLimit,
		PassingScore: req.PassingScore,
		TimeLimit:    req.TimeLimit,
		LessonID:     req.LessonID,
	}
	if err := s.Repo.CreateAssessment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AssessmentService) GetAssessment(ctx context.Context, id uint) (*model.Assessment, error) {
	return s.Repo.FindWithQuestions(ctx, id)
}

func (s *AssessmentService) ListAssessments(ctx context.Context, page, limit int) ([]model.Assessment, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.Repo.ListAssessments(ctx, page, limit)
}

// whileEditable 锁住测评行后检查未发布再执行写入，与 Publish 互斥
func (s *AssessmentService) whileEditable(ctx context.Context, assessmentID uint, fn func(repo *repository.AssessmentRepository) error) error {
	return s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)
		a, err := repo.LockAssessment(ctx, assessmentID)
		if err != nil {
			return err
		}
		if a.IsPublished {
			return fmt.Errorf("assessment %d: %w", a.ID, util.ErrAssessmentPublished)
		}
		return fn(repo)
	})
}

func validateQuestion(req *AssessmentQuestionRequest) error {
	if !req.QuestionType.Valid() {
		return invalid("unknown question type %q", req.QuestionType)
	}
	if req.Points == 0 {
		req.Points = 1
	}
	if req.Points < 0 {
		return invalid("points must be positive")
	}
	return nil
}

func (s *AssessmentService) AddQuestion(ctx context.Context, assessmentID uint, req AssessmentQuestionRequest) (*model.AssessmentQuestion, error) {
	if err := validateQuestion(&req); err != nil {
		return nil, err
	}
	q := &model.AssessmentQuestion{
		AssessmentID: assessmentID,
		QuestionType: req.QuestionType,
		Title:        req.Title,
		Content:      req.Content,
		Options:      datatypes.JSON(req.Options),
		Answer:       req.Answer,
		Points:       req.Points,
		Order:        req.Order,
		Explanation:  req.Explanation,
	}
	err := s.whileEditable(ctx, assessmentID, func(repo *repository.AssessmentRepository) error {
		return repo.CreateQuestion(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *AssessmentService) UpdateQuestion(ctx context.Context, id uint, req AssessmentQuestionRequest) (*model.AssessmentQuestion, error) {
	if err := validateQuestion(&req); err != nil {
		return nil, err
	}
	q, err := s.Repo.FindQuestionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	q.QuestionType = req.QuestionType
	q.Title = req.Title
	q.Content = req.Content
	q.Options = datatypes.JSON(req.Options)
	q.Answer = req.Answer
	q.Points = req.Points
	q.Order = req.Order
	q.Explanation = req.Explanation
	err = s.whileEditable(ctx, q.AssessmentID, func(repo *repository.AssessmentRepository) error {
		return repo.UpdateQuestion(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *AssessmentService) DeleteQuestion(ctx context.Context, id uint) error {
	q, err := s.Repo.FindQuestionByID(ctx, id)
	if err != nil {
		return err
	}
	return s.whileEditable(ctx, q.AssessmentID, func(repo *repository.AssessmentRepository) error {
		return repo.DeleteQuestion(ctx, id)
	})
}

// Publish 重复发布无副作用，首次发布时间保持不变
func (s *AssessmentService) Publish(ctx context.Context, id uint) (*model.Assessment, error) {
	if _, err := s.Repo.FindAssessmentByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.Repo.Publish(ctx, id, s.now()); err != nil {
		return nil, err
	}
	return s.Repo.FindWithQuestions(ctx, id)
}

type LearnerQuestion struct {
	ID           uint                 `json:"id"`
	QuestionType grading.QuestionKind `json:"questionType"`
	Title        string               `json:"title"`
	Content      string               `json:"content"`
	Options      datatypes.JSON       `json:"options"`
	Points       int                  `json:"points"`
	Order        int                  `json:"order"`
}

// LearnerAssessment 学员视图，不含答案与解析
type LearnerAssessment struct {
	ID           uint                 `json:"id"`
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	Kind         model.AssessmentKind `json:"kind"`
	AttemptLimit int                  `json:"attemptLimit"`
	PassingScore float64              `json:"passingScore"`
	TimeLimit    int                  `json:"timeLimit"`
	LessonID     *uint                `json:"lessonId,omitempty"`
	Questions    []LearnerQuestion    `json:"questions"`
}

func (s *AssessmentService) LearnerView(ctx context.Context, id uint) (*LearnerAssessment, error) {
	a, err := loadPublished(ctx, s.Repo, id)
	if err != nil {
		return nil, err
	}

	var view LearnerAssessment
	if err := copier.Copy(&view, a); err != nil {
		return nil, err
	}
	view.Questions = make([]LearnerQuestion, 0, len(a.Questions))
	if err := copier.Copy(&view.Questions, &a.Questions); err != nil {
		return nil, err
	}
	return &view, nil
}
