package client

import "github.com/agnosticeng/anonymize/internal/engine"

// Open and Connect return errors matching ErrOpen and ErrBind. Every other
// failure is delivered through submission callbacks.
var (
	ErrOpen          = engine.ErrOpen
	ErrBind          = engine.ErrBind
	ErrHandleClosed  = engine.ErrHandleClosed
	ErrSessionClosed = engine.ErrSessionClosed
	ErrExecution     = engine.ErrExecution
	ErrConnExhausted = engine.ErrConnExhausted
)

type ExecutionError = engine.ExecutionError
