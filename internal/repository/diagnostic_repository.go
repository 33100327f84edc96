package repository

import (
	"context"
	"lms_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DiagnosticRepository struct {
	DB *gorm.DB
}

func NewDiagnosticRepository(db *gorm.DB) *DiagnosticRepository {
	return &DiagnosticRepository{DB: db}
}

// Upsert 同一 (用户, 诊断) 只保留最近一次结果
func (r *DiagnosticRepository) Upsert(ctx context.Context, d *model.DiagnosticResult) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "assessment_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"score", "max_score", "percentage", "level", "level_name", "review", "updated_at",
		}),
	}).Create(d).Error
}

func (r *DiagnosticRepository) Find(ctx context.Context, userID, assessmentID uint) (*model.DiagnosticResult, error) {
	var d model.DiagnosticResult
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND assessment_id = ?", userID, assessmentID).
		First(&d).Error
	if err != nil {
		return nil, notFound(err, "find diagnostic result user %d assessment %d", userID, assessmentID)
	}
	return &d, nil
}
