package orchestratornode

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
)

// BuildContext orders the turn input as base instructions, procedure block,
// prior history, then the new user message.
func BuildContext(in *GraphState, systemPrompt string) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	systemPrompt = strings.TrimSpace(systemPrompt)
	if systemPrompt == "" {
		return nil, fmt.Errorf("%w: system prompt", contractx.ErrPromptMissing)
	}

	msgs := make([]*schema.Message, 0, len(in.History)+3)
	msgs = append(msgs, schema.SystemMessage(systemPrompt))
	if block := in.Injection.Block(); block != "" {
		msgs = append(msgs, schema.SystemMessage(block))
	}
	msgs = append(msgs, in.History...)

	user := schema.UserMessage(in.Text)
	msgs = append(msgs, user)

	in.Context = msgs
	in.Pending = []*schema.Message{user}
	return in, nil
}
