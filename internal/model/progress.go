package model

import "time"

// LessonProgress 记录用户对课时的完成状态
// swagger:model LessonProgress
type LessonProgress struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"index:idx_user_lesson,unique" json:"userId"`
	LessonID    uint       `gorm:"index:idx_user_lesson,unique" json:"lessonId"`
	Completed   bool       `gorm:"default:false" json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	TimeSpent   int        `gorm:"default:0" json:"timeSpent"` // seconds
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (LessonProgress) TableName() string {
	return "lesson_progress"
}
