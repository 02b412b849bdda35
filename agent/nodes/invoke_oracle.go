package turnnode

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/kaiyuanlo/onboarding-copilot/agent/contract"
)

// InvokeOracle runs the forced extraction call. Model failures never fail
// the turn: they become a retry reply asking for the expected field again,
// and the turn still persists.
func InvokeOracle(ctx context.Context, in *GraphState, oracle contractx.Oracle) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	result, err := oracle.Extract(ctx, contractx.OracleRequest{
		Record:      in.Record,
		Products:    in.Products,
		History:     in.History,
		UserMessage: in.Text,
	})

	switch {
	case errors.Is(err, contractx.ErrNoToolCall):
		in.RetryReply = fmt.Sprintf("請提供 **%s**", in.Record.ExpectedDisplayName())
		return in, nil
	case err != nil:
		log.Warn().Err(err).
			Int64("session_id", in.SessionID).
			Str("stage", string(in.EntryStage)).
			Msg("extraction failed")
		in.RetryReply = fmt.Sprintf("抱歉，我無法理解您的回答。請再次提供 **%s**。", in.EntryStage.DisplayName())
		return in, nil
	}

	in.OracleMessage = result.Message
	in.Commands = result.Commands
	return in, nil
}
