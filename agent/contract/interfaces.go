package contract

import "context"

// Oracle turns a user message into structured commands via a forced tool
// call. Implementations must return ErrNoToolCall when the model answers
// without calling a tool, and ErrModelInvoke on transport failures.
type Oracle interface {
	Extract(ctx context.Context, req OracleRequest) (OracleResult, error)
}

// Exporter ships the finished record to the downstream platform. It is
// called after the completing turn commits; failures are logged, never
// surfaced to the user.
type Exporter interface {
	Export(ctx context.Context, payload map[string]any) error
}
