package testutil

import (
	"fmt"
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"lms_backend/pkg/database"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB 每个测试独立的内存 SQLite，已迁移
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(&config.DatabaseConfig{
		Driver:   util.DriverSQLite,
		DBName:   fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// SeedCourse 创建一门课程，每个模块的课时数由 lessonsPerModule 给出
func SeedCourse(t *testing.T, db *gorm.DB, lessonsPerModule ...int) (*model.Course, []model.Lesson) {
	t.Helper()

	course := &model.Course{Title: "Course " + uuid.NewString()[:8]}
	require.NoError(t, db.Create(course).Error)

	var lessons []model.Lesson
	for mi, n := range lessonsPerModule {
		m := &model.CourseModule{CourseID: course.ID, Title: fmt.Sprintf("Module %d", mi+1), Order: mi}
		require.NoError(t, db.Create(m).Error)
		for li := 0; li < n; li++ {
			l := model.Lesson{ModuleID: m.ID, Title: fmt.Sprintf("Lesson %d.%d", mi+1, li+1), Order: li}
			require.NoError(t, db.Create(&l).Error)
			lessons = append(lessons, l)
		}
	}
	return course, lessons
}

// SeedAssessment 直接写入已发布的测评及题目
func SeedAssessment(t *testing.T, db *gorm.DB, a *model.Assessment, questions ...model.AssessmentQuestion) *model.Assessment {
	t.Helper()

	if a.Kind == "" {
		a.Kind = model.AssessmentGraded
	}
	if a.AttemptLimit == 0 {
		a.AttemptLimit = 1
	}
	a.IsPublished = true
	require.NoError(t, db.Create(a).Error)

	for i := range questions {
		questions[i].AssessmentID = a.ID
		if questions[i].Order == 0 {
			questions[i].Order = i + 1
		}
		require.NoError(t, db.Create(&questions[i]).Error)
	}
	a.Questions = questions
	return a
}
