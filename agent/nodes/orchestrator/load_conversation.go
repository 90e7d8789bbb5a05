package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
	statex "github.com/tanpawarit/chative-commerce-agent/agent/state"
)

func LoadConversation(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	conv, err := store.Load(ctx, in.ConversationID)
	switch {
	case errors.Is(err, statex.ErrConversationNotFound):
		in.History = nil
		return in, nil
	case err != nil:
		return nil, fmt.Errorf("%w: load conversation: %v", contractx.ErrDependency, err)
	}

	in.History = conv.History()
	return in, nil
}
