package repository

import (
	"context"
	"lms_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

func (r *AssessmentRepository) WithTx(tx *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: tx}
}

func orderedQuestions(db *gorm.DB) *gorm.DB {
	return db.Order("`order` asc, id asc")
}

func (r *AssessmentRepository) CreateAssessment(ctx context.Context, a *model.Assessment) error {
	return r.DB.WithContext(ctx).Create(a).Error
}

func (r *AssessmentRepository) FindAssessmentByID(ctx context.Context, id uint) (*model.Assessment, error) {
	var a model.Assessment
	if err := r.DB.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, notFound(err, "find assessment %d", id)
	}
	return &a, nil
}

// LockAssessment SELECT ... FOR UPDATE，须在事务内调用；SQLite 忽略行锁，由单连接串行化
func (r *AssessmentRepository) LockAssessment(ctx context.Context, id uint) (*model.Assessment, error) {
	var a model.Assessment
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&a, id).Error
	if err != nil {
		return nil, notFound(err, "lock assessment %d", id)
	}
	return &a, nil
}

// FindWithQuestions 题目按 order、id 升序，评分与回顾均依赖该顺序
func (r *AssessmentRepository) FindWithQuestions(ctx context.Context, id uint) (*model.Assessment, error) {
	var a model.Assessment
	err := r.DB.WithContext(ctx).
		Preload("Questions", orderedQuestions).
		First(&a, id).Error
	if err != nil {
		return nil, notFound(err, "find assessment %d", id)
	}
	return &a, nil
}

func (r *AssessmentRepository) ListAssessments(ctx context.Context, page, limit int) ([]model.Assessment, int64, error) {
	var as []model.Assessment
	var total int64
	query := r.DB.WithContext(ctx).Model(&model.Assessment{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&as).Error
	return as, total, err
}

func (r *AssessmentRepository) Publish(ctx context.Context, id uint, at time.Time) error {
	return r.DB.WithContext(ctx).
		Model(&model.Assessment{}).
		Where("id = ? AND is_published = ?", id, false).
		Updates(map[string]interface{}{
			"is_published": true,
			"published_at": at,
		}).Error
}

func (r *AssessmentRepository) CreateQuestion(ctx context.Context, q *model.AssessmentQuestion) error {
	return r.DB.WithContext(ctx).Create(q).Error
}

func (r *AssessmentRepository) FindQuestionByID(ctx context.Context, id uint) (*model.AssessmentQuestion, error) {
	var q model.AssessmentQuestion
	if err := r.DB.WithContext(ctx).First(&q, id).Error; err != nil {
		return nil, notFound(err, "find question %d", id)
	}
	return &q, nil
}

func (r *AssessmentRepository) ListQuestions(ctx context.Context, assessmentID uint) ([]model.AssessmentQuestion, error) {
	var qs []model.AssessmentQuestion
	err := orderedQuestions(r.DB.WithContext(ctx).Where("assessment_id = ?", assessmentID)).Find(&qs).Error
	return qs, err
}

func (r *AssessmentRepository) UpdateQuestion(ctx context.Context, q *model.AssessmentQuestion) error {
	return r.DB.WithContext(ctx).Save(q).Error
}

func (r *AssessmentRepository) DeleteQuestion(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&model.AssessmentQuestion{}, id).Error
}
