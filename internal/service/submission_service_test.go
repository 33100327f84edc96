package service

import (
	"context"
	"sync"
	"testing"

	"lms_backend/internal/model"
	"lms_backend/internal/testutil"
	"lms_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_AttemptCeiling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.SeedAssessment(t, f.db, &model.Assessment{Title: "Quiz", AttemptLimit: 3, PassingScore: 50}, choice(1, "A"))

	for i := 1; i <= 3; i++ {
		res, err := f.submissions.Submit(ctx, 7, a.ID, map[uint]interface{}{a.Questions[0].ID: "B"})
		require.NoError(t, err)
		assert.Equal(t, i, res.Attempt)
		assert.Equal(t, 3-i, res.AttemptsLeft)
	}

	_, err := f.submissions.Submit(ctx, 7, a.ID, map[uint]interface{}{a.Questions[0].ID: "A"})
	assert.ErrorIs(t, err, util.ErrAttemptsExhausted)

	var count int64
	require.NoError(t, f.db.Model(&model.AssessmentSubmission{}).Where("user_id = ?", 7).Count(&count).Error)
	assert.EqualValues(t, 3, count)

	// 其他学员不受影响
	_, err = f.submissions.Submit(ctx, 8, a.ID, nil)
	assert.NoError(t, err)
}

func TestSubmit_ConcurrentSingleAttempt(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedAssessment(t, f.db, &model.Assessment{Title: "Once", AttemptLimit: 1}, choice(1, "A"))

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.submissions.Submit(context.Background(), 3, a.ID, map[uint]interface{}{})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, util.ErrAttemptsExhausted)
	}
	assert.Equal(t, 1, ok)
}

func TestSubmit_TwoAndThreePoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lenient := testutil.SeedAssessment(t, f.db, &model.Assessment{Title: "Lenient", PassingScore: 60}, choice(2, "C"), choice(3, "A"))
	res, err := f.submissions.Submit(ctx, 1, lenient.ID, map[uint]interface{}{lenient.Questions[1].ID: "A"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Score)
	assert.Equal(t, 5, res.MaxScore)
	assert.InDelta(t, 60.0, res.Percentage, 1e-9)
	assert.True(t, res.Passed, "percentage on the threshold passes")
	require.Len(t, res.Review, 2)
	assert.False(t, res.Review[0].Correct)
	assert.Nil(t, res.Review[0].Answer)
	assert.Equal(t, "C", res.Review[0].CorrectAnswer)

	strict := testutil.SeedAssessment(t, f.db, &model.Assessment{Title: "Strict", PassingScore: 70}, choice(2, "C"), choice(3, "A"))
	res, err = f.submissions.Submit(ctx, 1, strict.ID, map[uint]interface{}{strict.Questions[1].ID: "A"})
	require.NoError(t, err)
	assert.False(t, res.Passed)

	sub, err := f.submissions.GetOwnSubmission(ctx, 1, res.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, 3, sub.Score)
	assert.Equal(t, 1, sub.Attempt)
	assert.JSONEq(t, `{"`+uintKey(strict.Questions[1].ID)+`":"A"}`, string(sub.Answers))
}

func TestSubmit_RejectsUnpublishedAndDiagnostic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft := &model.Assessment{Title: "Draft", Kind: model.AssessmentGraded, AttemptLimit: 1}
	require.NoError(t, f.db.Create(draft).Error)
	_, err := f.submissions.Submit(ctx, 1, draft.ID, nil)
	assert.ErrorIs(t, err, util.ErrNotFound)

	_, err = f.submissions.Submit(ctx, 1, 9999, nil)
	assert.ErrorIs(t, err, util.ErrNotFound)

	diag := testutil.SeedAssessment(t, f.db, &model.Assessment{Title: "Placement", Kind: model.AssessmentDiagnostic}, choice(1, "A"))
	_, err = f.submissions.Submit(ctx, 1, diag.ID, nil)
	assert.ErrorIs(t, err, util.ErrAssessmentKindMismatch)
}

func TestSubmit_PassedLessonQuizCompletesLesson(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course, lessons := testutil.SeedCourse(t, f.db, 2)
	a := testutil.SeedAssessment(t, f.db, &model.Assessment{Title: "Lesson quiz", AttemptLimit: 2, PassingScore: 100, LessonID: &lessons[0].ID}, choice(1, "A"))

	res, err := f.submissions.Submit(ctx, 5, a.ID, map[uint]interface{}{a.Questions[0].ID: "B"})
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Nil(t, res.LessonProgress)
	_, err = f.progress.GetEnrollment(ctx, 5, course.ID)
	assert.ErrorIs(t, err, util.ErrNotFound, "failed attempt must not touch progress")

	res, err = f.submissions.Submit(ctx, 5, a.ID, map[uint]interface{}{a.Questions[0].ID: " A "})
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.False(t, res.Degraded)
	require.NotNil(t, res.LessonProgress)
	assert.InDelta(t, 50.0, res.LessonProgress.Progress, 1e-9)

	e, err := f.progress.GetEnrollment(ctx, 5, course.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentActive, e.Status)
	assert.InDelta(t, 50.0, e.Progress, 1e-9)
}

func TestSubmit_DegradedWhenAggregationFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course, lessons := testutil.SeedCourse(t, f.db, 1)
	a := testutil.SeedAssessment(t, f.db, &model.Assessment{Title: "Quiz", PassingScore: 50, LessonID: &lessons[0].ID}, choice(1, "A"))

	// 模块被删除后课时无法解析到课程
	require.NoError(t, f.db.Where("course_id = ?", course.ID).Delete(&model.CourseModule{}).Error)

	res, err := f.submissions.Submit(ctx, 2, a.ID, map[uint]interface{}{a.Questions[0].ID: "A"})
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.True(t, res.Degraded)
	assert.Nil(t, res.LessonProgress)

	_, err = f.submissions.GetOwnSubmission(ctx, 2, res.SubmissionID)
	assert.NoError(t, err, "submission stays persisted")

	require.Equal(t, 1, f.queue.Len())
	job, _ := f.queue.Dequeue(ctx)
	assert.Equal(t, lessons[0].ID, job.LessonID)
	assert.Equal(t, res.SubmissionID, job.SubmissionID)
}

func TestReview_DoesNotChangeScoreOrAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.SeedAssessment(t, f.db, &model.Assessment{Title: "Quiz", PassingScore: 50}, choice(4, "A"))

	res, err := f.submissions.Submit(ctx, 4, a.ID, map[uint]interface{}{a.Questions[0].ID: "B"})
	require.NoError(t, err)

	_, err = f.submissions.Review(ctx, 99, res.SubmissionID, ReviewRequest{Action: "regrade"})
	assert.ErrorIs(t, err, util.ErrInvalidReviewAction)

	sub, err := f.submissions.Review(ctx, 99, res.SubmissionID, ReviewRequest{Action: model.ReviewRetry, Feedback: "revisit chapter 2"})
	require.NoError(t, err)
	assert.Equal(t, model.ReviewRetry, sub.ReviewAction)
	assert.Equal(t, "revisit chapter 2", sub.Feedback)
	require.NotNil(t, sub.ReviewerID)
	assert.EqualValues(t, 99, *sub.ReviewerID)
	assert.Equal(t, 0, sub.Score)
	assert.False(t, sub.Passed)

	status, err := f.submissions.AttemptStatus(ctx, 4, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Used)
	assert.Equal(t, 0, status.Left)

	_, err = f.submissions.Review(ctx, 99, "missing", ReviewRequest{Action: model.ReviewApprove})
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestGetOwnSubmission_HidesOthers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.SeedAssessment(t, f.db, &model.Assessment{Title: "Quiz", AttemptLimit: 2}, choice(1, "A"))

	res, err := f.submissions.Submit(ctx, 1, a.ID, nil)
	require.NoError(t, err)

	_, err = f.submissions.GetOwnSubmission(ctx, 2, res.SubmissionID)
	assert.ErrorIs(t, err, util.ErrNotFound)

	history, err := f.submissions.ListMySubmissions(ctx, 1, a.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
