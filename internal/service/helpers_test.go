package service_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"tarot-ai-go/internal/repository"
	"tarot-ai-go/internal/service"
	"tarot-ai-go/pkg/database"
	"tarot-ai-go/pkg/llm"

	"github.com/stretchr/testify/require"
)

type llmCall struct {
	messages []llm.Message
	tools    []llm.Tool
}

// fakeLLM 记录每次调用，并由 respond 决定返回值。
type fakeLLM struct {
	mu      sync.Mutex
	calls   []llmCall
	respond func(call llmCall) (*llm.Response, error)
}

func (f *fakeLLM) Chat(_ context.Context, messages []llm.Message, tools []llm.Tool) (*llm.Response, error) {
	call := llmCall{
		messages: append([]llm.Message(nil), messages...),
		tools:    tools,
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	return f.respond(call)
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// scripted 依次返回给定的结果。
func scripted(responses ...any) func(llmCall) (*llm.Response, error) {
	var mu sync.Mutex
	i := 0
	return func(llmCall) (*llm.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(responses) {
			return nil, fmt.Errorf("unexpected llm call #%d", i+1)
		}
		r := responses[i]
		i++
		switch v := r.(type) {
		case error:
			return nil, v
		case *llm.Response:
			return v, nil
		case string:
			return &llm.Response{Content: v}, nil
		}
		return nil, fmt.Errorf("bad scripted response %T", r)
	}
}

func toolCall(id, name, args string) llm.ToolCall {
	return llm.ToolCall{ID: id, Type: "function", Function: llm.FunctionCall{Name: name, Arguments: args}}
}

func isTopicCall(c llmCall) bool {
	return len(c.messages) > 0 && strings.HasPrefix(c.messages[0].Content, "You are a strict content filter")
}

func isTitleCall(c llmCall) bool {
	return len(c.messages) > 0 && strings.HasPrefix(c.messages[len(c.messages)-1].Content, "Summarize the topic")
}

func newConversationService(t *testing.T) service.ConversationService {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return service.NewConversationService(repository.NewConversationRepository(db))
}
