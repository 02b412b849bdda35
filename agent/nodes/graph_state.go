package turnnode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/kaiyuanlo/onboarding-copilot/agent/contract"
	statex "github.com/kaiyuanlo/onboarding-copilot/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is invalid")
	ErrInvalidUser    = errors.New("user id is invalid")
)

type GraphInput struct {
	UserID    int64
	SessionID int64
	Text      string
}

type GraphOutput struct {
	Reply     string
	Completed bool
	Progress  statex.Progress
}

// GraphState is threaded through the turn graph. EntryStage is the stage
// after resync but before dispatch; replies about "what was just recorded"
// name the entry stage, not the stage the dispatch advanced to.
type GraphState struct {
	UserID    int64
	SessionID int64
	Text      string
	Now       time.Time

	Session  *statex.Session
	Record   *statex.Record
	Products []statex.Product
	History  []contractx.HistoryMessage

	FirstTurn  bool
	EntryStage statex.Stage

	OracleMessage string
	Commands      []contractx.Command
	RetryReply    string

	DataUpdated           bool
	ProductFieldCollected bool
	ProductJustSaved      bool
	ViewDataRequested     bool
	ViewDataResponse      string
	BulkMissing           []string
	Completed             bool

	Reply string
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	if in.UserID <= 0 {
		return nil, ErrInvalidUser
	}
	if in.SessionID <= 0 {
		return nil, ErrInvalidSession
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		UserID:    in.UserID,
		SessionID: in.SessionID,
		Text:      text,
		Now:       nowFn().UTC(),
	}, nil
}
