package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
	"github.com/tanpawarit/chative-commerce-agent/agent/procedure"
)

type ProcedureInjector interface {
	Inject(ctx context.Context, userText string) (procedure.Injection, error)
}

func InjectProcedures(ctx context.Context, in *GraphState, injector ProcedureInjector) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if injector == nil {
		return in, nil
	}

	injection, err := injector.Inject(ctx, in.Text)
	if err != nil {
		return nil, err
	}
	if len(injection.Tools) > 0 {
		log.Debug().
			Str("conversation_id", in.ConversationID).
			Strs("tools", injection.Tools).
			Int("procedures", len(injection.Procedures)).
			Msg("procedures injected")
	}
	in.Injection = injection
	return in, nil
}
