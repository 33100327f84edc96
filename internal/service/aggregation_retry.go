package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"lms_backend/pkg/logger"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// MaxAggregationRetries 超过后丢弃任务，只记录日志
const MaxAggregationRetries = 5

const aggregationRetryKey = "lms:aggregation:retry"

// AggregationJob 提交已入库但课时进度级联失败，待后台重放
type AggregationJob struct {
	UserID       uint      `json:"userId"`
	LessonID     uint      `json:"lessonId"`
	SubmissionID string    `json:"submissionId"`
	Attempts     int       `json:"attempts"`
	EnqueuedAt   time.Time `json:"enqueuedAt"`
}

type RetryQueue interface {
	Enqueue(ctx context.Context, job AggregationJob) error
	// Dequeue 队列为空时返回 nil, nil
	Dequeue(ctx context.Context) (*AggregationJob, error)
}

type RedisRetryQueue struct {
	Client *redis.Client
	Key    string
}

func NewRedisRetryQueue(client *redis.Client) *RedisRetryQueue {
	return &RedisRetryQueue{Client: client, Key: aggregationRetryKey}
}

func (q *RedisRetryQueue) Enqueue(ctx context.Context, job AggregationJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.Client.LPush(ctx, q.Key, data).Err()
}

func (q *RedisRetryQueue) Dequeue(ctx context.Context) (*AggregationJob, error) {
	data, err := q.Client.RPop(ctx, q.Key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var job AggregationJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode aggregation job: %w", err)
	}
	return &job, nil
}

func (q *RedisRetryQueue) Len(ctx context.Context) (int64, error) {
	return q.Client.LLen(ctx, q.Key).Result()
}

type lessonCompleter interface {
	MarkLessonComplete(ctx context.Context, userID, lessonID uint) (*LessonCompletionResult, error)
}

// DrainAggregationRetries 最多处理 max 个任务，返回成功重放的数量。
// 失败的任务在本轮结束后才重新入队，每轮每个任务最多重放一次。
func DrainAggregationRetries(ctx context.Context, q RetryQueue, progress lessonCompleter, max int) (int, error) {
	replayed := 0
	var failed []AggregationJob
	var drainErr error

	for i := 0; i < max; i++ {
		job, err := q.Dequeue(ctx)
		if err != nil {
			drainErr = err
			break
		}
		if job == nil {
			break
		}

		if _, err := progress.MarkLessonComplete(ctx, job.UserID, job.LessonID); err != nil {
			job.Attempts++
			if job.Attempts >= MaxAggregationRetries {
				logger.Log.Error("进度重放失败次数过多，已丢弃",
					zap.Uint("userId", job.UserID),
					zap.Uint("lessonId", job.LessonID),
					zap.String("submissionId", job.SubmissionID),
					zap.Error(err))
				continue
			}
			failed = append(failed, *job)
			continue
		}
		replayed++
	}

	for _, job := range failed {
		if err := q.Enqueue(ctx, job); err != nil {
			logger.Log.Error("重放任务重新入队失败",
				zap.Uint("userId", job.UserID),
				zap.Uint("lessonId", job.LessonID),
				zap.String("submissionId", job.SubmissionID),
				zap.Error(err))
			if drainErr == nil {
				drainErr = err
			}
		}
	}
	return replayed, drainErr
}
