package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
)

var (
	//go:embed template/system.txt
	systemRaw string

	//go:embed template/welcome.txt
	welcomeRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	System  string
	Welcome string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		System:  strings.TrimSpace(systemRaw),
		Welcome: strings.TrimSpace(welcomeRaw),
	}
}

func (p PromptSet) Validate() error {
	if strings.TrimSpace(p.System) == "" {
		return fmt.Errorf("%w: system prompt", contractx.ErrPromptMissing)
	}
	if strings.TrimSpace(p.Welcome) == "" {
		return fmt.Errorf("%w: welcome message", contractx.ErrPromptMissing)
	}
	return nil
}
