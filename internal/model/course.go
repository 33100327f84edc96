package model

// Course -> CourseModule -> Lesson 严格包含关系
// swagger:model Course
type Course struct {
	BaseModel
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Modules     []CourseModule `gorm:"foreignKey:CourseID" json:"modules,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

type CourseModule struct {
	BaseModel
	CourseID uint     `gorm:"index;not null" json:"courseId"`
	Title    string   `gorm:"size:255;not null" json:"title"`
	Order    int      `gorm:"default:0" json:"order"`
	Lessons  []Lesson `gorm:"foreignKey:ModuleID" json:"lessons,omitempty"`
}

func (CourseModule) TableName() string {
	return "course_modules"
}

type Lesson struct {
	BaseModel
	ModuleID uint   `gorm:"index;not null" json:"moduleId"`
	Title    string `gorm:"size:255;not null" json:"title"`
	Content  string `gorm:"type:text" json:"content"`
	Order    int    `gorm:"default:0" json:"order"`
}

func (Lesson) TableName() string {
	return "lessons"
}
