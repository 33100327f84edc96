package model

import (
	"time"

	"gorm.io/datatypes"
)

// DiagnosticResult 诊断测试结果，每个 (用户, 诊断) 仅保留一条，重测覆盖
// swagger:model DiagnosticResult
type DiagnosticResult struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"index:idx_user_diagnostic,unique" json:"userId"`
	AssessmentID uint           `gorm:"index:idx_user_diagnostic,unique" json:"assessmentId"`
	Score        int            `json:"score"`
	MaxScore     int            `json:"maxScore"`
	Percentage   float64        `json:"percentage"`
	Level        int            `json:"level"`
	LevelName    string         `gorm:"size:50" json:"levelName"`
	Review       datatypes.JSON `json:"review"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

func (DiagnosticResult) TableName() string {
	return "diagnostic_results"
}
