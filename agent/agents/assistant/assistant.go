package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
)

// Decision is one reasoning step: either a final Reply or ToolRequests.
// Message is the raw assistant message and goes into the history as is.
type Decision struct {
	Message      *schema.Message
	Reply        string
	ToolRequests []contractx.ToolRequest
}

func (d Decision) Final() bool {
	return len(d.ToolRequests) == 0
}

type Assistant struct {
	runner compose.Runnable[[]*schema.Message, *schema.Message]
}

func New(ctx context.Context, chatModel einomodel.ToolCallingChatModel, tools []*schema.ToolInfo) (*Assistant, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	toolModel, err := chatModel.WithTools(tools)
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools: %v", contractx.ErrModelInvoke, err)
	}
	runner, err := compileReasonGraph(ctx, toolModel)
	if err != nil {
		return nil, fmt.Errorf("%w: compile reason graph: %v", contractx.ErrModelInvoke, err)
	}
	return &Assistant{runner: runner}, nil
}

// Reason sends the full context to the reasoning service.
func (a *Assistant) Reason(ctx context.Context, msgs []*schema.Message) (Decision, error) {
	msg, err := a.runner.Invoke(ctx, msgs)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: reason invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return Decision{}, fmt.Errorf("%w: empty reasoning response", contractx.ErrSchemaViolation)
	}

	reqs, err := toToolRequests(msg.ToolCalls)
	if err != nil {
		return Decision{}, err
	}
	if len(reqs) > 0 {
		// Tool messages must be answerable by id even if the service left ids out.
		for i := range msg.ToolCalls {
			msg.ToolCalls[i].ID = reqs[i].CallID
		}
		if msg.Role == "" {
			msg.Role = schema.Assistant
		}
		return Decision{Message: msg, ToolRequests: reqs}, nil
	}

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return Decision{}, fmt.Errorf("%w: reasoning response has neither content nor tool calls", contractx.ErrSchemaViolation)
	}
	return Decision{Message: schema.AssistantMessage(content, nil), Reply: content}, nil
}

func compileReasonGraph(ctx context.Context, chatModel einomodel.BaseChatModel) (compose.Runnable[[]*schema.Message, *schema.Message], error) {
	graph := compose.NewGraph[[]*schema.Message, *schema.Message]()
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add reason model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "model"); err != nil {
		return nil, fmt.Errorf("add reason edge start->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add reason edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("assistant.reason_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile reason graph: %w", err)
	}
	return runner, nil
}

func toToolRequests(calls []schema.ToolCall) ([]contractx.ToolRequest, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	reqs := make([]contractx.ToolRequest, 0, len(calls))
	for i, call := range calls {
		tool := strings.TrimSpace(call.Function.Name)
		if tool == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}

		args := map[string]any{}
		rawArgs := strings.TrimSpace(call.Function.Arguments)
		if rawArgs != "" {
			if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
				return nil, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrSchemaViolation, tool, err)
			}
		}

		id := strings.TrimSpace(call.ID)
		if id == "" {
			id = fmt.Sprintf("call_%d", i+1)
		}
		reqs = append(reqs, contractx.ToolRequest{
			CallID: id,
			Tool:   tool,
			Args:   args,
		})
	}
	return reqs, nil
}
