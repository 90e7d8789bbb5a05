package orchestratornode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/chative-commerce-agent/agent/agents/assistant"
	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
)

// DegradedReply is the final answer when the round cap is hit.
const DegradedReply = "I'm sorry, I wasn't able to complete this request automatically. " +
	"I can create a support ticket so a member of our team can follow up with you."

// PartialTurnError is returned when a turn fails after a tool call committed
// a write. Pending holds the entries up to the last completed tool round.
type PartialTurnError struct {
	Pending []*schema.Message
	Err     error
}

func (e *PartialTurnError) Error() string {
	return fmt.Sprintf("turn failed after %d committed entries: %v", len(e.Pending), e.Err)
}

func (e *PartialTurnError) Unwrap() error { return e.Err }

type Reasoner interface {
	Reason(ctx context.Context, msgs []*schema.Message) (assistant.Decision, error)
}

type LoopConfig struct {
	MaxRounds     int
	ReasonTimeout time.Duration
}

// RunToolLoop alternates REASON and TOOL_CALL until the reasoning service
// answers or MaxRounds reasoning calls have been made.
func RunToolLoop(
	ctx context.Context,
	in *GraphState,
	reasoner Reasoner,
	tools contractx.ToolGateway,
	cfg LoopConfig,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	maxRounds := cfg.MaxRounds
	if maxRounds <= 0 {
		maxRounds = 1
	}

	// savable is the length of Pending once a committing tool round completed.
	savable := 0
	fail := func(err error) (*GraphState, error) {
		if savable == 0 {
			return nil, err
		}
		return nil, &PartialTurnError{Pending: in.Pending[:savable:savable], Err: err}
	}

	for round := 1; round <= maxRounds; round++ {
		in.Rounds = round

		decision, err := reason(ctx, reasoner, in.Context, cfg.ReasonTimeout)
		if err != nil {
			return fail(err)
		}
		in.Context = append(in.Context, decision.Message)
		in.Pending = append(in.Pending, decision.Message)

		if decision.Final() {
			in.Reply = decision.Reply
			return in, nil
		}

		results, execErr := tools.Execute(ctx, decision.ToolRequests)
		if len(results) > len(decision.ToolRequests) || (execErr == nil && len(results) != len(decision.ToolRequests)) {
			return fail(fmt.Errorf("%w: tool gateway returned %d results for %d calls",
				contractx.ErrSchemaViolation, len(results), len(decision.ToolRequests)))
		}

		committed := false
		for i, req := range decision.ToolRequests {
			var res contractx.ToolResult
			if i < len(results) {
				res = results[i]
			} else {
				res = contractx.ToolResult{CallID: req.CallID, Tool: req.Tool, Error: "not executed"}
			}
			payload, err := json.Marshal(res)
			if err != nil {
				return fail(fmt.Errorf("marshal tool result tool=%s: %w", req.Tool, err))
			}
			msg := schema.ToolMessage(string(payload), req.CallID)
			in.Context = append(in.Context, msg)
			in.Pending = append(in.Pending, msg)
			in.Traces = append(in.Traces, contractx.ToolTrace{
				Round:   round,
				Tool:    req.Tool,
				Args:    req.Args,
				Success: res.Success,
				Error:   res.Error,
			})
			committed = committed || res.Committed
		}
		if committed || savable > 0 {
			savable = len(in.Pending)
		}
		if execErr != nil {
			return fail(execErr)
		}

		log.Debug().
			Str("conversation_id", in.ConversationID).
			Int("round", round).
			Int("tool_calls", len(decision.ToolRequests)).
			Msg("tool round finished")
	}

	log.Warn().
		Str("conversation_id", in.ConversationID).
		Int("rounds", in.Rounds).
		Msg("round cap reached, returning degraded reply")

	final := schema.AssistantMessage(DegradedReply, nil)
	in.Context = append(in.Context, final)
	in.Pending = append(in.Pending, final)
	in.Reply = DegradedReply
	in.Degraded = true
	return in, nil
}

func reason(ctx context.Context, reasoner Reasoner, msgs []*schema.Message, timeout time.Duration) (assistant.Decision, error) {
	rctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	decision, err := reasoner.Reason(rctx, msgs)
	if err == nil {
		return decision, nil
	}
	if ctx.Err() != nil {
		return assistant.Decision{}, ctx.Err()
	}
	if errors.Is(rctx.Err(), context.DeadlineExceeded) {
		return assistant.Decision{}, fmt.Errorf("%w: reasoning service timed out after %s: %v", contractx.ErrDependency, timeout, err)
	}
	return assistant.Decision{}, err
}
