package orchestratornode

import (
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
	"github.com/tanpawarit/chative-commerce-agent/agent/procedure"
)

var (
	ErrInvalidMessage      = fmt.Errorf("%w: message is empty", contractx.ErrValidation)
	ErrInvalidConversation = fmt.Errorf("%w: conversation id is empty", contractx.ErrValidation)
)

type GraphInput struct {
	ConversationID string
	Text           string
}

type GraphOutput struct {
	Result contractx.TurnResult
}

// GraphState flows through every node of one turn.
type GraphState struct {
	ConversationID string
	Text           string
	Now            time.Time

	History   []*schema.Message
	Injection procedure.Injection

	// Context is what the reasoning service sees; Pending is what this turn
	// appends to the stored history.
	Context []*schema.Message
	Pending []*schema.Message

	Reply    string
	Rounds   int
	Degraded bool
	Traces   []contractx.ToolTrace
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	conversationID := strings.TrimSpace(in.ConversationID)
	if conversationID == "" {
		return nil, ErrInvalidConversation
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		ConversationID: conversationID,
		Text:           text,
		Now:            nowFn().UTC(),
	}, nil
}
