package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrNoToolCall      = errors.New("model returned no tool call")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrValidation      = errors.New("validation failed")
)
