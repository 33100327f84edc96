package model

import (
	"time"

	"gorm.io/datatypes"
)

type ReviewAction string

const (
	ReviewApprove   ReviewAction = "approve"
	ReviewRetry     ReviewAction = "retry"
	ReviewReinforce ReviewAction = "reinforce"
)

func (a ReviewAction) Valid() bool {
	switch a {
	case ReviewApprove, ReviewRetry, ReviewReinforce:
		return true
	}
	return false
}

// AssessmentSubmission is one graded attempt. Scoring fields never change after insert;
// only the review fields are written later.
// swagger:model AssessmentSubmission
type AssessmentSubmission struct {
	UUIDBase
	UserID       uint           `gorm:"not null;index:idx_submission_attempt,unique" json:"userId"`
	AssessmentID uint           `gorm:"not null;index:idx_submission_attempt,unique" json:"assessmentId"`
	Attempt      int            `gorm:"not null;index:idx_submission_attempt,unique" json:"attempt"`
	Answers      datatypes.JSON `json:"answers"`
	Review       datatypes.JSON `json:"review"`
	Score        int            `json:"score"`
	MaxScore     int            `json:"maxScore"`
	Percentage   float64        `json:"percentage"`
	Passed       bool           `gorm:"default:false" json:"passed"`

	ReviewerID   *uint        `json:"reviewerId,omitempty"`
	Feedback     string       `gorm:"type:text" json:"feedback"`
	ReviewAction ReviewAction `gorm:"size:20" json:"reviewAction,omitempty"`
	ReviewedAt   *time.Time   `json:"reviewedAt,omitempty"`
}

func (AssessmentSubmission) TableName() string {
	return "assessment_submissions"
}
