package model

import (
	"lms_backend/internal/grading"

	"gorm.io/datatypes"
)

// AssessmentQuestion represents a question within an assessment.
// The answer key is stored either as a bare value ("B") or as a JSON literal ("true", `["A","C"]`).
// swagger:model AssessmentQuestion
type AssessmentQuestion struct {
	BaseModel
	AssessmentID uint                 `gorm:"index;not null" json:"assessmentId"`
	QuestionType grading.QuestionKind `gorm:"size:50;not null" json:"questionType"` // single_choice, true_false, open_text
	Title        string               `gorm:"size:255" json:"title"`
	Content      string               `gorm:"type:text;not null" json:"content"`
	Options      datatypes.JSON       `json:"options,omitempty"`
	Answer       string               `gorm:"type:text" json:"answer"`
	Points       int                  `gorm:"default:1" json:"points"`
	Order        int                  `gorm:"default:0" json:"order"`
	Explanation  string               `gorm:"type:text" json:"explanation"`
}

func (AssessmentQuestion) TableName() string {
	return "assessment_questions"
}

func (q AssessmentQuestion) ToGrading() grading.Question {
	return grading.Question{
		ID:          q.ID,
		Kind:        q.QuestionType,
		Points:      q.Points,
		AnswerKey:   q.Answer,
		Explanation: q.Explanation,
	}
}

func GradingQuestions(qs []AssessmentQuestion) []grading.Question {
	out := make([]grading.Question, len(qs))
	for i, q := range qs {
		out[i] = q.ToGrading()
	}
	return out
}
