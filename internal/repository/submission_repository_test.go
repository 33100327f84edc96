package repository

import (
	"context"
	"testing"

	"lms_backend/internal/model"
	"lms_backend/internal/testutil"
	"lms_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionRepository_DuplicateAttempt(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	first := &model.AssessmentSubmission{UserID: 1, AssessmentID: 2, Attempt: 1}
	require.NoError(t, repo.Create(ctx, first))
	assert.NotEmpty(t, first.ID)

	dup := &model.AssessmentSubmission{UserID: 1, AssessmentID: 2, Attempt: 1}
	err := repo.Create(ctx, dup)
	assert.ErrorIs(t, err, util.ErrAttemptConflict)

	require.NoError(t, repo.Create(ctx, &model.AssessmentSubmission{UserID: 1, AssessmentID: 2, Attempt: 2}))
	require.NoError(t, repo.Create(ctx, &model.AssessmentSubmission{UserID: 9, AssessmentID: 2, Attempt: 1}))

	n, err := repo.CountAttempts(ctx, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestSubmissionRepository_CountIncludesDeleted(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	s := &model.AssessmentSubmission{UserID: 1, AssessmentID: 2, Attempt: 1}
	require.NoError(t, repo.Create(ctx, s))
	require.NoError(t, db.Delete(s).Error)

	n, err := repo.CountAttempts(ctx, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = repo.FindByID(ctx, s.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestCourseRepository_CourseIDForLesson(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCourseRepository(db)
	ctx := context.Background()
	course, lessons := testutil.SeedCourse(t, db, 1, 1)

	id, err := repo.CourseIDForLesson(ctx, lessons[1].ID)
	require.NoError(t, err)
	assert.Equal(t, course.ID, id)

	require.NoError(t, db.Delete(course).Error)
	_, err = repo.CourseIDForLesson(ctx, lessons[1].ID)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestCourseRepository_FindCourseOrdersChildren(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCourseRepository(db)
	ctx := context.Background()

	course := &model.Course{Title: "Go"}
	require.NoError(t, repo.CreateCourse(ctx, course))
	require.NoError(t, repo.CreateModule(ctx, &model.CourseModule{CourseID: course.ID, Title: "second", Order: 2}))
	require.NoError(t, repo.CreateModule(ctx, &model.CourseModule{CourseID: course.ID, Title: "first", Order: 1}))

	got, err := repo.FindCourseByID(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, got.Modules, 2)
	assert.Equal(t, "first", got.Modules[0].Title)

	_, err = repo.FindCourseByID(ctx, course.ID+100)
	assert.ErrorIs(t, err, util.ErrNotFound)
}
