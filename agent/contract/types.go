package contract

// ToolRequest is one tool invocation asked for by the reasoning service.
type ToolRequest struct {
	CallID string         `json:"call_id,omitempty"`
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args,omitempty"`
}

// ToolResult is the structured payload handed back to the reasoning service.
type ToolResult struct {
	CallID    string `json:"-"`
	Tool      string `json:"tool"`
	Success   bool   `json:"success"`
	Result    any    `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`

	// Committed marks a successful call that wrote to the store.
	Committed bool `json:"-"`
}

// ToolTrace records a tool call made during a turn, for display.
type ToolTrace struct {
	Round   int            `json:"round"`
	Tool    string         `json:"tool"`
	Args    map[string]any `json:"args,omitempty"`
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
}

type TurnResult struct {
	ConversationID string      `json:"conversation_id"`
	Reply          string      `json:"reply"`
	Rounds         int         `json:"rounds"`
	Degraded       bool        `json:"degraded,omitempty"`
	ToolCalls      []ToolTrace `json:"tool_calls,omitempty"`
}
