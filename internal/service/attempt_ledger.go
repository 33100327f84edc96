package service

import (
	"context"
	"fmt"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
)

// AttemptLedger 每次预留都重新计数，不缓存
type AttemptLedger struct {
	Submissions *repository.SubmissionRepository
}

func NewAttemptLedger(submissions *repository.SubmissionRepository) *AttemptLedger {
	return &AttemptLedger{Submissions: submissions}
}

type AttemptStatus struct {
	AssessmentID uint `json:"assessmentId"`
	Used         int  `json:"used"`
	Limit        int  `json:"limit"`
	Left         int  `json:"left"`
}

func attemptLimit(a *model.Assessment) int {
	if a.AttemptLimit < 1 {
		return 1
	}
	return a.AttemptLimit
}

func (l *AttemptLedger) AttemptsUsed(ctx context.Context, userID, assessmentID uint) (int, error) {
	n, err := l.Submissions.CountAttempts(ctx, userID, assessmentID)
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return int(n), nil
}

// ReserveNextAttempt 返回下一次尝试序号（从 1 开始）。并发下两个请求可能拿到同一序号，
// 由唯一索引在插入时裁决
func (l *AttemptLedger) ReserveNextAttempt(ctx context.Context, userID uint, a *model.Assessment) (int, error) {
	used, err := l.AttemptsUsed(ctx, userID, a.ID)
	if err != nil {
		return 0, err
	}
	if used >= attemptLimit(a) {
		return 0, fmt.Errorf("assessment %d used %d/%d: %w", a.ID, used, attemptLimit(a), util.ErrAttemptsExhausted)
	}
	return used + 1, nil
}

func (l *AttemptLedger) Status(ctx context.Context, userID uint, a *model.Assessment) (*AttemptStatus, error) {
	used, err := l.AttemptsUsed(ctx, userID, a.ID)
	if err != nil {
		return nil, err
	}
	limit := attemptLimit(a)
	left := limit - used
	if left < 0 {
		left = 0
	}
	return &AttemptStatus{AssessmentID: a.ID, Used: used, Limit: limit, Left: left}, nil
}
