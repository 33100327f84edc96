package service

import (
	"context"
	"lms_backend/internal/grading"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/testutil"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memQueue struct {
	mu   sync.Mutex
	jobs []AggregationJob
}

func (q *memQueue) Enqueue(_ context.Context, job AggregationJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *memQueue) Dequeue(_ context.Context) (*AggregationJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return nil, nil
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return &job, nil
}

func (q *memQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

type fixture struct {
	db          *gorm.DB
	clock       *fakeClock
	queue       *memQueue
	courses     *CourseService
	assessments *AssessmentService
	progress    *ProgressService
	submissions *SubmissionService
	diagnostics *DiagnosticService
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	clock := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	queue := &memQueue{}

	courseRepo := repository.NewCourseRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)

	progress := NewProgressService(db, courseRepo, repository.NewProgressRepository(db), repository.NewEnrollmentRepository(db))
	progress.now = clock.Now

	submissions := NewSubmissionService(assessmentRepo, submissionRepo, progress, queue)
	submissions.now = clock.Now

	leveler, err := grading.NewLeveler(grading.DefaultBands())
	require.NoError(t, err)
	diagnostics := NewDiagnosticService(assessmentRepo, repository.NewDiagnosticRepository(db), leveler)
	diagnostics.now = clock.Now

	assessments := NewAssessmentService(assessmentRepo, courseRepo)
	assessments.now = clock.Now

	return &fixture{
		db:          db,
		clock:       clock,
		queue:       queue,
		courses:     NewCourseService(courseRepo),
		assessments: assessments,
		progress:    progress,
		submissions: submissions,
		diagnostics: diagnostics,
	}
}

func choice(points int, key string) model.AssessmentQuestion {
	return model.AssessmentQuestion{
		QuestionType: grading.KindSingleChoice,
		Content:      "pick one",
		Answer:       key,
		Points:       points,
	}
}

func uintKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
