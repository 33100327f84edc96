package service

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
)

type CourseService struct {
	Repo *repository.CourseRepository
}

func NewCourseService(repo *repository.CourseRepository) *CourseService {
	return &CourseService{Repo: repo}
}

type CourseRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

type ModuleRequest struct {
	Title string `json:"title" binding:"required"`
	Order int    `json:"order"`
}

type LessonRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content"`
	Order   int    `json:"order"`
}

func (s *CourseService) CreateCourse(ctx context.Context, req CourseRequest) (*model.Course, error) {
	c := &model.Course{Title: req.Title, Description: req.Description}
	if err := s.Repo.CreateCourse(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CourseService) CreateModule(ctx context.Context, courseID uint, req ModuleRequest) (*model.CourseModule, error) {
	if _, err := s.Repo.FindCourseByID(ctx, courseID); err != nil {
		return nil, err
	}
	m := &model.CourseModule{CourseID: courseID, Title: req.Title, Order: req.Order}
	if err := s.Repo.CreateModule(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *CourseService) CreateLesson(ctx context.Context, moduleID uint, req LessonRequest) (*model.Lesson, error) {
	if _, err := s.Repo.FindModuleByID(ctx, moduleID); err != nil {
		return nil, err
	}
	l := &model.Lesson{ModuleID: moduleID, Title: req.Title, Content: req.Content, Order: req.Order}
	if err := s.Repo.CreateLesson(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *CourseService) GetCourse(ctx context.Context, id uint) (*model.Course, error) {
	return s.Repo.FindCourseByID(ctx, id)
}

// DeleteModule/DeleteLesson 只做软删除；已有进度不回算，下次聚合时自动排除
func (s *CourseService) DeleteModule(ctx context.Context, id uint) error {
	return s.Repo.DeleteModule(ctx, id)
}

func (s *CourseService) DeleteLesson(ctx context.Context, id uint) error {
	return s.Repo.DeleteLesson(ctx, id)
}
