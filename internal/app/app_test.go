package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/testutil"
	"lms_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "app-test-secret-app-test-secret-00"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type client struct {
	t     *testing.T
	app   *App
	token string
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := &config.Config{
		Server:    config.ServerConfig{Mode: "test"},
		JWT:       config.JWTConfig{Secret: testSecret, ExpireHours: 1},
		RateLimit: config.RateLimitConfig{MaxRequests: 10000, WindowMinutes: 1},
	}
	a, err := New(cfg, testutil.NewDB(t), nil)
	require.NoError(t, err)
	return a
}

func (a *App) as(t *testing.T, userID uint, role model.UserRole) *client {
	tok, err := util.GenerateJWT(userID, role, fmt.Sprintf("u%d@example.com", userID), testSecret, time.Hour)
	require.NoError(t, err)
	return &client{t: t, app: a, token: tok}
}

func (c *client) do(method, path string, body interface{}, out interface{}) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.app.Router.ServeHTTP(w, req)

	if out != nil && w.Code < 300 {
		var env envelope
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &env))
		require.NoError(c.t, json.Unmarshal(env.Data, out))
	}
	return w.Code
}

type idOnly struct {
	ID uint `json:"id"`
}

func TestAssessmentFlow(t *testing.T) {
	a := newTestApp(t)
	teacher := a.as(t, 100, model.Teacher)
	student := a.as(t, 1, model.Student)

	var course, module, l1, l2, assessment, question idOnly
	require.Equal(t, http.StatusCreated, teacher.do(http.MethodPost, "/api/teacher/courses", map[string]interface{}{"title": "Go 101"}, &course))
	require.Equal(t, http.StatusCreated, teacher.do(http.MethodPost, fmt.Sprintf("/api/teacher/courses/%d/modules", course.ID), map[string]interface{}{"title": "Basics"}, &module))
	require.Equal(t, http.StatusCreated, teacher.do(http.MethodPost, fmt.Sprintf("/api/teacher/modules/%d/lessons", module.ID), map[string]interface{}{"title": "Types", "order": 1}, &l1))
	require.Equal(t, http.StatusCreated, teacher.do(http.MethodPost, fmt.Sprintf("/api/teacher/modules/%d/lessons", module.ID), map[string]interface{}{"title": "Loops", "order": 2}, &l2))

	require.Equal(t, http.StatusCreated, teacher.do(http.MethodPost, "/api/teacher/assessments", map[string]interface{}{
		"title": "Types quiz", "attemptLimit": 2, "passingScore": 100, "lessonId": l1.ID,
	}, &assessment))
	require.Equal(t, http.StatusCreated, teacher.do(http.MethodPost, fmt.Sprintf("/api/teacher/assessments/%d/questions", assessment.ID), map[string]interface{}{
		"questionType": "true_false", "content": "int is 64-bit on amd64", "answer": "true", "points": 2,
	}, &question))

	// 未发布：学员不可见
	assert.Equal(t, http.StatusNotFound, student.do(http.MethodGet, fmt.Sprintf("/api/assessments/%d/questions", assessment.ID), nil, nil))
	require.Equal(t, http.StatusOK, teacher.do(http.MethodPost, fmt.Sprintf("/api/teacher/assessments/%d/publish", assessment.ID), nil, nil))
	assert.Equal(t, http.StatusBadRequest, teacher.do(http.MethodPut, fmt.Sprintf("/api/teacher/questions/%d", question.ID), map[string]interface{}{
		"questionType": "true_false", "content": "changed", "answer": "false",
	}, nil))

	var view struct {
		Questions []map[string]interface{} `json:"questions"`
	}
	require.Equal(t, http.StatusOK, student.do(http.MethodGet, fmt.Sprintf("/api/assessments/%d/questions", assessment.ID), nil, &view))
	require.Len(t, view.Questions, 1)
	assert.NotContains(t, view.Questions[0], "answer")

	submitPath := fmt.Sprintf("/api/assessments/%d/submit", assessment.ID)
	answer := func(v interface{}) map[string]interface{} {
		return map[string]interface{}{"answers": map[string]interface{}{fmt.Sprint(question.ID): v}}
	}

	var res struct {
		SubmissionID   string  `json:"submissionId"`
		Passed         bool    `json:"passed"`
		Percentage     float64 `json:"percentage"`
		Attempt        int     `json:"attempt"`
		AttemptsLeft   int     `json:"attemptsLeft"`
		Degraded       bool    `json:"degraded"`
		Review         []struct {
			IsCorrect bool `json:"isCorrect"`
		} `json:"perQuestionReview"`
		LessonProgress *struct {
			Progress float64 `json:"progress"`
		} `json:"lessonProgress"`
	}
	require.Equal(t, http.StatusOK, student.do(http.MethodPost, submitPath, answer(false), &res))
	assert.False(t, res.Passed)
	assert.Equal(t, 1, res.AttemptsLeft)

	require.Equal(t, http.StatusOK, student.do(http.MethodPost, submitPath, answer(true), &res))
	assert.True(t, res.Passed)
	assert.Equal(t, 2, res.Attempt)
	assert.False(t, res.Degraded)
	require.Len(t, res.Review, 1)
	assert.True(t, res.Review[0].IsCorrect)
	require.NotNil(t, res.LessonProgress)
	assert.InDelta(t, 50.0, res.LessonProgress.Progress, 1e-9)

	assert.Equal(t, http.StatusForbidden, student.do(http.MethodPost, submitPath, answer(true), nil))

	var attempts struct {
		Used int `json:"used"`
		Left int `json:"left"`
	}
	require.Equal(t, http.StatusOK, student.do(http.MethodGet, fmt.Sprintf("/api/assessments/%d/attempts", assessment.ID), nil, &attempts))
	assert.Equal(t, 2, attempts.Used)
	assert.Equal(t, 0, attempts.Left)

	var enrollment struct {
		Progress float64 `json:"progress"`
		Status   string  `json:"status"`
	}
	require.Equal(t, http.StatusOK, student.do(http.MethodGet, fmt.Sprintf("/api/courses/%d/enrollment", course.ID), nil, &enrollment))
	assert.InDelta(t, 50.0, enrollment.Progress, 1e-9)
	assert.Equal(t, "active", enrollment.Status)

	require.Equal(t, http.StatusOK, student.do(http.MethodPost, fmt.Sprintf("/api/lessons/%d/complete", l2.ID), nil, nil))
	require.Equal(t, http.StatusOK, student.do(http.MethodGet, fmt.Sprintf("/api/courses/%d/enrollment", course.ID), nil, &enrollment))
	assert.Equal(t, "completed", enrollment.Status)

	// 评阅：学员无权，教师可以；非法动作 400
	reviewPath := fmt.Sprintf("/api/teacher/submissions/%s/review", res.SubmissionID)
	assert.Equal(t, http.StatusForbidden, student.do(http.MethodPost, reviewPath, map[string]interface{}{"action": "approve"}, nil))
	assert.Equal(t, http.StatusBadRequest, teacher.do(http.MethodPost, reviewPath, map[string]interface{}{"action": "bump"}, nil))
	assert.Equal(t, http.StatusOK, teacher.do(http.MethodPost, reviewPath, map[string]interface{}{"action": "approve", "feedback": "good"}, nil))

	// 他人的提交不可见
	other := a.as(t, 2, model.Student)
	assert.Equal(t, http.StatusNotFound, other.do(http.MethodGet, "/api/submissions/"+res.SubmissionID, nil, nil))
	assert.Equal(t, http.StatusOK, student.do(http.MethodGet, "/api/submissions/"+res.SubmissionID, nil, nil))
}

func TestDiagnosticFlow(t *testing.T) {
	a := newTestApp(t)
	teacher := a.as(t, 100, model.Admin)
	student := a.as(t, 1, model.Student)

	var diag, q1, q2 idOnly
	require.Equal(t, http.StatusCreated, teacher.do(http.MethodPost, "/api/teacher/assessments", map[string]interface{}{"title": "Placement", "kind": "diagnostic"}, &diag))
	require.Equal(t, http.StatusCreated, teacher.do(http.MethodPost, fmt.Sprintf("/api/teacher/assessments/%d/questions", diag.ID), map[string]interface{}{
		"questionType": "open_text", "content": "Capital of France?", "answer": "Paris",
	}, &q1))
	require.Equal(t, http.StatusCreated, teacher.do(http.MethodPost, fmt.Sprintf("/api/teacher/assessments/%d/questions", diag.ID), map[string]interface{}{
		"questionType": "single_choice", "content": "Pick B", "answer": "B",
	}, &q2))
	require.Equal(t, http.StatusOK, teacher.do(http.MethodPost, fmt.Sprintf("/api/teacher/assessments/%d/publish", diag.ID), nil, nil))

	// 诊断测评不能走普通提交
	assert.Equal(t, http.StatusBadRequest, student.do(http.MethodPost, fmt.Sprintf("/api/assessments/%d/submit", diag.ID), map[string]interface{}{"answers": map[string]interface{}{}}, nil))

	var out struct {
		Level      int     `json:"level"`
		LevelName  string  `json:"levelName"`
		Percentage float64 `json:"percentage"`
	}
	body := map[string]interface{}{"answers": map[string]interface{}{fmt.Sprint(q1.ID): " paris "}}
	require.Equal(t, http.StatusOK, student.do(http.MethodPost, fmt.Sprintf("/api/diagnostics/%d/submit", diag.ID), body, &out))
	assert.InDelta(t, 50.0, out.Percentage, 1e-9)
	assert.Equal(t, 3, out.Level)
	assert.Equal(t, "intermediate", out.LevelName)

	var stored struct {
		Level int `json:"level"`
	}
	require.Equal(t, http.StatusOK, student.do(http.MethodGet, fmt.Sprintf("/api/diagnostics/%d/result", diag.ID), nil, &stored))
	assert.Equal(t, 3, stored.Level)
}

func TestAuthAndHealth(t *testing.T) {
	a := newTestApp(t)
	anon := &client{t: t, app: a}

	assert.Equal(t, http.StatusOK, anon.do(http.MethodGet, "/api/health", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodPost, "/api/lessons/1/complete", nil, nil))

	student := a.as(t, 1, model.Student)
	assert.Equal(t, http.StatusBadRequest, student.do(http.MethodPost, "/api/lessons/abc/complete", nil, nil))
	assert.Equal(t, http.StatusNotFound, student.do(http.MethodPost, "/api/lessons/999/complete", nil, nil))
	assert.Equal(t, http.StatusBadRequest, student.do(http.MethodPost, "/api/lessons/1/time", map[string]interface{}{"seconds": 0}, nil))
	assert.Equal(t, http.StatusForbidden, student.do(http.MethodPost, "/api/teacher/courses", map[string]interface{}{"title": "x"}, nil))
}

func TestDeleteCourseStructure(t *testing.T) {
	a := newTestApp(t)
	teacher := a.as(t, 100, model.Teacher)
	student := a.as(t, 1, model.Student)

	var course, m1, m2, l1, l2, l3 idOnly
	require.Equal(t, http.StatusCreated, teacher.do(http.MethodPost, "/api/teacher/courses", map[string]interface{}{"title": "SQL"}, &course))
	require.Equal(t, http.StatusCreated, teacher.do(http.MethodPost, fmt.Sprintf("/api/teacher/courses/%d/modules", course.ID), map[string]interface{}{"title": "Select", "order": 1}, &m1))
	require.Equal(t, http.StatusCreated, teacher.do(http.MethodPost, fmt.Sprintf("/api/teacher/courses/%d/modules", course.ID), map[string]interface{}{"title": "Join", "order": 2}, &m2))
	require.Equal(t, http.StatusCreated, teacher.do(http.MethodPost, fmt.Sprintf("/api/teacher/modules/%d/lessons", m1.ID), map[string]interface{}{"title": "Where"}, &l1))
	require.Equal(t, http.StatusCreated, teacher.do(http.MethodPost, fmt.Sprintf("/api/teacher/modules/%d/lessons", m1.ID), map[string]interface{}{"title": "Order by"}, &l2))
	require.Equal(t, http.StatusCreated, teacher.do(http.MethodPost, fmt.Sprintf("/api/teacher/modules/%d/lessons", m2.ID), map[string]interface{}{"title": "Inner join"}, &l3))

	var done struct {
		Progress     float64 `json:"progress"`
		TotalLessons int64   `json:"totalLessons"`
		Status       string  `json:"status"`
	}
	require.Equal(t, http.StatusOK, student.do(http.MethodPost, fmt.Sprintf("/api/lessons/%d/complete", l1.ID), nil, &done))
	assert.EqualValues(t, 3, done.TotalLessons)

	// 学员无权删除
	assert.Equal(t, http.StatusForbidden, student.do(http.MethodDelete, fmt.Sprintf("/api/teacher/lessons/%d", l2.ID), nil, nil))

	require.Equal(t, http.StatusOK, teacher.do(http.MethodDelete, fmt.Sprintf("/api/teacher/lessons/%d", l2.ID), nil, nil))
	assert.Equal(t, http.StatusNotFound, teacher.do(http.MethodDelete, fmt.Sprintf("/api/teacher/lessons/%d", l2.ID), nil, nil))
	assert.Equal(t, http.StatusNotFound, student.do(http.MethodPost, fmt.Sprintf("/api/lessons/%d/complete", l2.ID), nil, nil))

	require.Equal(t, http.StatusOK, teacher.do(http.MethodDelete, fmt.Sprintf("/api/teacher/modules/%d", m2.ID), nil, nil))
	assert.Equal(t, http.StatusNotFound, teacher.do(http.MethodDelete, fmt.Sprintf("/api/teacher/modules/%d", m2.ID), nil, nil))
	assert.Equal(t, http.StatusNotFound, student.do(http.MethodPost, fmt.Sprintf("/api/lessons/%d/complete", l3.ID), nil, nil))

	// 只剩 l1，重复完成触发重算
	require.Equal(t, http.StatusOK, student.do(http.MethodPost, fmt.Sprintf("/api/lessons/%d/complete", l1.ID), nil, &done))
	assert.EqualValues(t, 1, done.TotalLessons)
	assert.InDelta(t, 100.0, done.Progress, 1e-9)
	assert.Equal(t, "completed", done.Status)
}
