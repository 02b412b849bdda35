package turn

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/kaiyuanlo/onboarding-copilot/agent/contract"
	turnnode "github.com/kaiyuanlo/onboarding-copilot/agent/nodes"
)

func (p *Processor) compileTurnGraph(
	ctx context.Context,
) (compose.Runnable[turnnode.GraphInput, turnnode.GraphOutput], error) {
	graph := compose.NewGraph[turnnode.GraphInput, turnnode.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in turnnode.GraphInput) (*turnnode.GraphState, error) {
			return turnnode.ValidateRequest(in, p.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_state",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.LoadState(ctx, in, p.storeFrom(ctx))
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_state: %w", err)
	}

	if err := graph.AddLambdaNode("first_turn_menu",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.FirstTurnMenu(in, p.prompts.GreetingNew)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node first_turn_menu: %w", err)
	}

	if err := graph.AddLambdaNode("invoke_oracle",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.InvokeOracle(ctx, in, p.oracle)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node invoke_oracle: %w", err)
	}

	if err := graph.AddLambdaNode("dispatch",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.Dispatch(ctx, in, p.storeFrom(ctx))
		}),
	); err != nil {
		return nil, fmt.Errorf("add node dispatch: %w", err)
	}

	if err := graph.AddLambdaNode("compose_reply",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.ComposeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node compose_reply: %w", err)
	}

	if err := graph.AddLambdaNode("persist",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.Persist(ctx, in, p.storeFrom(ctx))
		}),
	); err != nil {
		return nil, fmt.Errorf("add node persist: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (turnnode.GraphOutput, error) {
			return turnnode.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *turnnode.GraphState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
			}
			if in.FirstTurn {
				return "first_turn_menu", nil
			}
			return "invoke_oracle", nil
		},
		map[string]bool{
			"first_turn_menu": true,
			"invoke_oracle":   true,
		},
	)
	if err := graph.AddBranch("load_state", branch); err != nil {
		return nil, fmt.Errorf("add first-turn branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_state"},
		{"first_turn_menu", "compose_reply"},
		{"invoke_oracle", "dispatch"},
		{"dispatch", "compose_reply"},
		{"compose_reply", "persist"},
		{"persist", "finalize_reply"},
		{"finalize_reply", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("turn.handle_message"))
	if err != nil {
		return nil, fmt.Errorf("compile turn graph: %w", err)
	}
	return runner, nil
}
