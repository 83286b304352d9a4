package store

import "errors"

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrNotOwner          = errors.New("caller is not the task owner")
	ErrIllegalTransition = errors.New("illegal task state transition")
	ErrPaginationUnsupported = errors.New("task type does not support paginated results")
	ErrTaskNotCompleted  = errors.New("task is not completed")
)
