package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: turn finished without a reply", contractx.ErrSchemaViolation)
	}
	return GraphOutput{Result: contractx.TurnResult{
		ConversationID: in.ConversationID,
		Reply:          reply,
		Rounds:         in.Rounds,
		Degraded:       in.Degraded,
		ToolCalls:      in.Traces,
	}}, nil
}
