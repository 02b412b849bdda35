package turnnode

import (
	"context"
	"fmt"

	contractx "github.com/kaiyuanlo/onboarding-copilot/agent/contract"
	statex "github.com/kaiyuanlo/onboarding-copilot/agent/state"
)

// Persist writes the mutated record and both sides of the exchange. Runs on
// every path, menu and retry turns included, so history stays a faithful
// transcript.
func Persist(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	if err := store.SaveRecord(ctx, in.Record); err != nil {
		return nil, err
	}
	if _, err := store.AppendMessage(ctx, in.Session.ID, statex.RoleUser, in.Text); err != nil {
		return nil, err
	}
	if _, err := store.AppendMessage(ctx, in.Session.ID, statex.RoleAssistant, in.Reply); err != nil {
		return nil, err
	}

	return in, nil
}

// FinalizeReply validates and packages the graph output.
func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: turn produced an empty reply", contractx.ErrValidation)
	}

	return GraphOutput{
		Reply:     in.Reply,
		Completed: in.Completed,
		Progress:  in.Record.Progress(len(in.Products)),
	}, nil
}
