package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/cloudwego/eino/schema"
)

type recordingServer struct {
	mu       sync.Mutex
	commands [][]any
	reply    func(cmd []any) string
}

func (r *recordingServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		defer req.Body.Close()
		if got := req.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("unexpected auth header: %q", got)
		}
		var cmd []any
		if err := json.NewDecoder(req.Body).Decode(&cmd); err != nil {
			t.Errorf("decode command: %v", err)
			return
		}
		r.mu.Lock()
		r.commands = append(r.commands, cmd)
		r.mu.Unlock()
		fmt.Fprint(w, r.reply(cmd))
	}
}

func newTestStore(t *testing.T, rec *recordingServer, opts ...StoreOption) *UpstashRedisStore {
	t.Helper()
	server := httptest.NewServer(rec.handler(t))
	t.Cleanup(server.Close)

	store, err := NewUpstashRedisStore(
		UpstashRedisConfig{URL: server.URL, Token: "token"},
		append([]StoreOption{WithHTTPClient(server.Client())}, opts...)...,
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}
	return store
}

func TestUpstashRedisStoreRedisKey(t *testing.T) {
	t.Parallel()

	store := &UpstashRedisStore{}
	got, err := store.redisKey("abc")
	if err != nil {
		t.Fatalf("redisKey() error = %v", err)
	}
	if got != "conv:abc:agent:history" {
		t.Fatalf("redisKey() = %q, want %q", got, "conv:abc:agent:history")
	}
}

func TestUpstashRedisStoreRedisKeyEmptyConversation(t *testing.T) {
	t.Parallel()

	store := &UpstashRedisStore{}
	_, err := store.redisKey("   ")
	if !errors.Is(err, ErrInvalidConversation) {
		t.Fatalf("redisKey() error = %v, want ErrInvalidConversation", err)
	}
}

func TestUpstashRedisStoreAppendPushesAndExpires(t *testing.T) {
	t.Parallel()

	rec := &recordingServer{reply: func([]any) string { return `{"result":2}` }}
	store := newTestStore(t, rec)

	err := store.Append(context.Background(), "conv-1",
		schema.UserMessage("where is my order?"),
		schema.AssistantMessage("Let me check.", nil),
	)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if len(rec.commands) != 2 {
		t.Fatalf("expected RPUSH and EXPIRE, got %#v", rec.commands)
	}
	push := rec.commands[0]
	if push[0] != "RPUSH" || push[1] != "conv:conv-1:agent:history" || len(push) != 4 {
		t.Fatalf("unexpected push: %#v", push)
	}
	if rec.commands[1][0] != "EXPIRE" {
		t.Fatalf("unexpected second command: %#v", rec.commands[1])
	}
}

func TestUpstashRedisStoreAppendWithoutTTL(t *testing.T) {
	t.Parallel()

	rec := &recordingServer{reply: func([]any) string { return `{"result":1}` }}
	store := newTestStore(t, rec, WithTTL(0))

	if err := store.Append(context.Background(), "conv-1", schema.UserMessage("hi")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if len(rec.commands) != 1 {
		t.Fatalf("expected a single RPUSH, got %#v", rec.commands)
	}
}

func TestUpstashRedisStoreLoadDecodesHistory(t *testing.T) {
	t.Parallel()

	first, _ := json.Marshal(schema.UserMessage("hello"))
	second, _ := json.Marshal(schema.AssistantMessage("hi there", nil))
	result, _ := json.Marshal([]string{string(first), string(second)})

	rec := &recordingServer{reply: func([]any) string { return fmt.Sprintf(`{"result":%s}`, result) }}
	store := newTestStore(t, rec)

	conv, err := store.Load(context.Background(), "conv-2")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if conv.Len() != 2 || conv.Messages[0].Role != schema.User || conv.Messages[1].Content != "hi there" {
		t.Fatalf("unexpected conversation: %+v", conv.Messages)
	}
	cmd := rec.commands[0]
	if cmd[0] != "LRANGE" || cmd[1] != "conv:conv-2:agent:history" {
		t.Fatalf("unexpected command: %#v", cmd)
	}
}

func TestUpstashRedisStoreLoadMissing(t *testing.T) {
	t.Parallel()

	rec := &recordingServer{reply: func([]any) string { return `{"result":[]}` }}
	store := newTestStore(t, rec)

	if _, err := store.Load(context.Background(), "conv-3"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("Load() error = %v, want ErrConversationNotFound", err)
	}
}

func TestUpstashRedisStoreDelete(t *testing.T) {
	t.Parallel()

	rec := &recordingServer{reply: func([]any) string { return `{"result":1}` }}
	store := newTestStore(t, rec)

	if err := store.Delete(context.Background(), "conv-4"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if rec.commands[0][0] != "DEL" || rec.commands[0][1] != "conv:conv-4:agent:history" {
		t.Fatalf("unexpected command: %#v", rec.commands[0])
	}
}

func TestUpstashRedisStoreSurfacesRedisError(t *testing.T) {
	t.Parallel()

	rec := &recordingServer{reply: func([]any) string { return `{"error":"WRONGTYPE"}` }}
	store := newTestStore(t, rec)

	if err := store.Append(context.Background(), "conv-5", schema.UserMessage("x")); err == nil {
		t.Fatal("expected error")
	}
}

func TestMemoryStoreAppendOnly(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if _, err := store.Load(context.Background(), "c"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("Load() error = %v", err)
	}
	_ = store.Append(context.Background(), "c", schema.UserMessage("one"))
	conv, err := store.Load(context.Background(), "c")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	conv.Messages[0] = schema.UserMessage("rewritten")
	_ = store.Append(context.Background(), "c", schema.UserMessage("two"))

	again, _ := store.Load(context.Background(), "c")
	if again.Len() != 2 || again.Messages[0].Content != "one" {
		t.Fatalf("history was rewritten: %+v", again.Messages)
	}
}
