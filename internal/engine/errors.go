package engine

import (
	"errors"
	"fmt"
)

var (
	ErrOpen          = errors.New("cannot open instance")
	ErrBind          = errors.New("cannot bind session")
	ErrHandleClosed  = errors.New("instance handle is closed")
	ErrSessionClosed = errors.New("session is closed")
	ErrExecution     = errors.New("query execution failed")
	ErrConnExhausted = errors.New("no connection available")
)

// ExecutionError is an engine-reported query failure. It matches
// ErrExecution with errors.Is.
type ExecutionError struct {
	Engine  string
	Code    string
	Message string
	Err     error
}

func (e *ExecutionError) Error() string {
	if len(e.Code) > 0 {
		return fmt.Sprintf("%s: %s error: %s", e.Engine, e.Code, e.Message)
	}

	return fmt.Sprintf("%s: %s", e.Engine, e.Message)
}

func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func NewExecutionError(engine string, code string, err error) *ExecutionError {
	return &ExecutionError{
		Engine:  engine,
		Code:    code,
		Message: err.Error(),
		Err:     err,
	}
}
