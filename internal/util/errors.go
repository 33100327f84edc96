package util

import "errors"

var (
	ErrNotFound               = errors.New("resource not found")
	ErrAttemptsExhausted      = errors.New("no attempts remaining")
	ErrAttemptConflict        = errors.New("attempt ordinal already taken")
	ErrAssessmentKindMismatch = errors.New("assessment kind does not support this operation")
	ErrAssessmentPublished    = errors.New("assessment is published and its questions are immutable")
	ErrInvalidReviewAction    = errors.New("invalid review action")
	ErrInvalidArgument        = errors.New("invalid argument")
)
