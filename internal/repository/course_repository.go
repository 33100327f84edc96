package repository

import (
	"context"
	"errors"
	"fmt"
	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) WithTx(tx *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: tx}
}

func (r *CourseRepository) CreateCourse(ctx context.Context, c *model.Course) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *CourseRepository) CreateModule(ctx context.Context, m *model.CourseModule) error {
	return r.DB.WithContext(ctx).Create(m).Error
}

func (r *CourseRepository) CreateLesson(ctx context.Context, l *model.Lesson) error {
	return r.DB.WithContext(ctx).Create(l).Error
}

// FindCourseByID 按顺序预加载模块与课时
func (r *CourseRepository) FindCourseByID(ctx context.Context, id uint) (*model.Course, error) {
	var c model.Course
	err := r.DB.WithContext(ctx).
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Order("`order` asc, id asc")
		}).
		Preload("Modules.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("`order` asc, id asc")
		}).
		First(&c, id).Error
	if err != nil {
		return nil, notFound(err, "find course %d", id)
	}
	return &c, nil
}

func (r *CourseRepository) FindModuleByID(ctx context.Context, id uint) (*model.CourseModule, error) {
	var m model.CourseModule
	if err := r.DB.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFound(err, "find module %d", id)
	}
	return &m, nil
}

func (r *CourseRepository) FindLessonByID(ctx context.Context, id uint) (*model.Lesson, error) {
	var l model.Lesson
	if err := r.DB.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, notFound(err, "find lesson %d", id)
	}
	return &l, nil
}

// CourseIDForLesson 课时 -> 模块 -> 课程，任一环节被软删除视为不存在
func (r *CourseRepository) CourseIDForLesson(ctx context.Context, lessonID uint) (uint, error) {
	var row struct {
		CourseID uint
	}
	res := r.DB.WithContext(ctx).
		Table("lessons").
		Select("courses.id AS course_id").
		Joins("JOIN course_modules ON course_modules.id = lessons.module_id AND course_modules.deleted_at IS NULL").
		Joins("JOIN courses ON courses.id = course_modules.course_id AND courses.deleted_at IS NULL").
		Where("lessons.id = ? AND lessons.deleted_at IS NULL", lessonID).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return 0, fmt.Errorf("resolve course for lesson %d: %w", lessonID, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("resolve course for lesson %d: %w", lessonID, util.ErrNotFound)
	}
	return row.CourseID, nil
}

// DeleteModule 软删除，模块下课时随之不再计入课程总数
func (r *CourseRepository) DeleteModule(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&model.CourseModule{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete module %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete module %d: %w", id, util.ErrNotFound)
	}
	return nil
}

func (r *CourseRepository) DeleteLesson(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&model.Lesson{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete lesson %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete lesson %d: %w", id, util.ErrNotFound)
	}
	return nil
}

// notFound 将 gorm.ErrRecordNotFound 映射为 util.ErrNotFound
func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = util.ErrNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
