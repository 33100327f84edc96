package model

import (
	"time"
)

type AssessmentKind string

const (
	AssessmentGraded     AssessmentKind = "graded"
	AssessmentDiagnostic AssessmentKind = "diagnostic"
)

// swagger:model Assessment
type Assessment struct {
	BaseModel
	Title        string               `gorm:"size:255;not null" json:"title"`
	Description  string               `gorm:"type:text" json:"description"`
	Kind         AssessmentKind       `gorm:"size:20;default:'graded'" json:"kind"`
	AttemptLimit int                  `gorm:"default:1" json:"attemptLimit"`
	PassingScore float64              `gorm:"default:0" json:"passingScore"` // 0-100 百分比
	TimeLimit    int                  `gorm:"default:0" json:"timeLimit"`    // Minutes
	LessonID     *uint                `gorm:"index" json:"lessonId,omitempty"`
	IsPublished  bool                 `gorm:"default:false" json:"isPublished"`
	PublishedAt  *time.Time           `json:"publishedAt,omitempty"`
	Questions    []AssessmentQuestion `gorm:"foreignKey:AssessmentID" json:"questions,omitempty"`
}

func (Assessment) TableName() string {
	return "assessments"
}
