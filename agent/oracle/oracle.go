package oracle

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog/log"

	contractx "github.com/kaiyuanlo/onboarding-copilot/agent/contract"
	statex "github.com/kaiyuanlo/onboarding-copilot/agent/state"
	toolx "github.com/kaiyuanlo/onboarding-copilot/agent/tool"
)

// historyWindow bounds how many prior turns the model sees. The data summary
// system message carries the long-term state, so a short window is enough.
const historyWindow = 5

// ChatOracle extracts commands with a forced tool call against the stage's
// pinned menu. The model cannot free-ride: it either calls a tool from the
// menu or the caller treats the turn as a retry.
type ChatOracle struct {
	client *openai.Client
	model  string
}

func NewChatOracle(client *openai.Client, model string) *ChatOracle {
	return &ChatOracle{client: client, model: model}
}

func (o *ChatOracle) Extract(ctx context.Context, req contractx.OracleRequest) (contractx.OracleResult, error) {
	if o.client == nil {
		return contractx.OracleResult{}, fmt.Errorf("%w: openai client is not configured", contractx.ErrModelInvoke)
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(extractionPrompt(req)),
		openai.SystemMessage("目前已收集的資料：\n" + req.Record.CurrentDataSummary(req.Products)),
	}

	history := req.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, msg := range history {
		if msg.Role == statex.RoleAssistant {
			messages = append(messages, openai.AssistantMessage(msg.Content))
			continue
		}
		messages = append(messages, openai.UserMessage(msg.Content))
	}
	messages = append(messages, openai.UserMessage(req.UserMessage))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(o.model),
		Messages: messages,
		Tools:    toolx.ForStage(req.Record),
		ToolChoice: openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String("required"),
		},
	})
	if err != nil {
		return contractx.OracleResult{}, fmt.Errorf("%w: chat completion: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return contractx.OracleResult{}, fmt.Errorf("%w: empty choices", contractx.ErrModelInvoke)
	}

	message := resp.Choices[0].Message
	result := contractx.OracleResult{Message: message.Content}

	if len(message.ToolCalls) == 0 {
		return result, contractx.ErrNoToolCall
	}

	for _, call := range message.ToolCalls {
		cmd, err := decodeCommand(call.Function.Name, call.Function.Arguments)
		if err != nil {
			return contractx.OracleResult{}, err
		}
		result.Commands = append(result.Commands, cmd)
	}

	log.Debug().
		Str("stage", string(req.Record.Stage())).
		Int("commands", len(result.Commands)).
		Msg("oracle extracted commands")

	return result, nil
}

var _ contractx.Oracle = (*ChatOracle)(nil)
