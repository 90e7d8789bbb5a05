package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
	statex "github.com/tanpawarit/chative-commerce-agent/agent/state"
)

// SaveConversation appends this turn's entries. Prior history is never rewritten.
func SaveConversation(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if len(in.Pending) == 0 {
		return in, nil
	}
	if err := store.Append(ctx, in.ConversationID, in.Pending...); err != nil {
		return nil, fmt.Errorf("%w: save conversation: %v", contractx.ErrDependency, err)
	}
	return in, nil
}
