package state

import (
	"context"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// MemoryStore keeps histories in process memory; used for local runs and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[string]*Conversation
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string]*Conversation)}
}

func (s *MemoryStore) Load(_ context.Context, conversationID string) (*Conversation, error) {
	id := strings.TrimSpace(conversationID)
	if id == "" {
		return nil, ErrInvalidConversation
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.convs[id]
	if !ok || conv.Len() == 0 {
		return nil, ErrConversationNotFound
	}
	return &Conversation{ID: id, Messages: conv.History()}, nil
}

func (s *MemoryStore) Append(_ context.Context, conversationID string, msgs ...*schema.Message) error {
	id := strings.TrimSpace(conversationID)
	if id == "" {
		return ErrInvalidConversation
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[id]
	if !ok {
		conv = NewConversation(id)
		s.convs[id] = conv
	}
	conv.Append(msgs...)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, strings.TrimSpace(conversationID))
	return nil
}
