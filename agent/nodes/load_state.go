package turnnode

import (
	"context"
	"fmt"

	contractx "github.com/kaiyuanlo/onboarding-copilot/agent/contract"
	statex "github.com/kaiyuanlo/onboarding-copilot/agent/state"
)

// LoadState resolves the session, record, products, and history, then
// resyncs the stage machine against the data before anything else sees it.
// Resync first makes imported or uploaded data pick up the right stage even
// when the stored stage drifted.
func LoadState(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	session, err := store.SessionByID(ctx, in.UserID, in.SessionID)
	if err != nil {
		return nil, err
	}

	record, err := store.RecordBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	if record.Stage() != statex.StageCompleted {
		record.Resync()
	}

	products, err := store.ListProducts(ctx, record.ID)
	if err != nil {
		return nil, err
	}

	messages, err := store.ListMessages(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	history := make([]contractx.HistoryMessage, 0, len(messages))
	for _, msg := range messages {
		history = append(history, contractx.HistoryMessage{Role: msg.Role, Content: msg.Content})
	}

	in.Session = session
	in.Record = record
	in.Products = products
	in.History = history
	in.FirstTurn = len(history) == 0
	in.EntryStage = record.Stage()

	return in, nil
}
