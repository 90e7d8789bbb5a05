package state

import (
	"errors"
	"slices"

	"github.com/cloudwego/eino/schema"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInvalidConversation  = errors.New("conversation id is empty")
)

// Conversation is the append-only message history of one conversation.
// System instructions and injected procedures are never part of it.
type Conversation struct {
	ID       string            `json:"id"`
	Messages []*schema.Message `json:"messages"`
}

func NewConversation(id string) *Conversation {
	return &Conversation{ID: id}
}

// History returns a copy of the message slice; the messages themselves are shared.
func (c *Conversation) History() []*schema.Message {
	if c == nil {
		return nil
	}
	return slices.Clone(c.Messages)
}

func (c *Conversation) Append(msgs ...*schema.Message) {
	for _, m := range msgs {
		if m != nil {
			c.Messages = append(c.Messages, m)
		}
	}
}

func (c *Conversation) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Messages)
}
