package model

import "time"

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
)

// swagger:model Enrollment
type Enrollment struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	UserID      uint             `gorm:"index:idx_user_course,unique" json:"userId"`
	CourseID    uint             `gorm:"index:idx_user_course,unique" json:"courseId"`
	Progress    float64          `gorm:"default:0" json:"progress"`
	Status      EnrollmentStatus `gorm:"size:20;default:'active'" json:"status"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
