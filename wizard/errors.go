package wizard

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrCompleted    = errors.New("submission already completed")
	ErrNotCompleted = errors.New("submission not completed")
	ErrNotPublished = errors.New("template not published")
	ErrNoSteps      = errors.New("template has no steps")
)

// RetryableError reports a failed durable write. The runtime keeps its
// in-memory answers, so the same operation can be attempted again.
type RetryableError struct {
	Op  string
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
