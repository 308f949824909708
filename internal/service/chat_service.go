// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"fmt"
	"time"

	"tarot-ai-go/internal/model"
	"tarot-ai-go/pkg/llm"
	"tarot-ai-go/pkg/log"
	"tarot-ai-go/pkg/metrics"
	"tarot-ai-go/pkg/tarot"
)

// ChatService 定义了对话编排的接口。
type ChatService interface {
	// Complete 根据历史消息生成一条 assistant 回复，期间可能执行模型请求的工具。
	Complete(ctx context.Context, history []model.Message) (model.Message, error)
}

type chatService struct {
	llmClient llm.Client
	persona   string
	tools     toolRunner
	metrics   *metrics.Collector
}

// NewChatService 创建一个新的 ChatService 实例。collector 可以为 nil。
func NewChatService(llmClient llm.Client, persona string, rng tarot.RNG, collector *metrics.Collector) ChatService {
	return &chatService{
		llmClient: llmClient,
		persona:   persona,
		tools:     toolRunner{rng: rng},
		metrics:   collector,
	}
}

// Complete 执行一次工具调用往返：第一次调用携带工具目录，执行工具后第二次调用不再携带工具。
// 第一次调用没有请求工具时直接使用其内容。
func (s *chatService) Complete(ctx context.Context, history []model.Message) (model.Message, error) {
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: string(model.RoleSystem), Content: s.persona})
	messages = append(messages, toLLMMessages(history)...)

	first, err := callLLM(ctx, s.llmClient, s.metrics, metrics.PurposeChat, messages, toolCatalog())
	if err != nil {
		return model.Message{}, fmt.Errorf("%w: %w", model.ErrLLMUnavailable, err)
	}
	// 没有工具调用时省去第二次调用，第一次的回复已经是最终回答
	if len(first.ToolCalls) == 0 {
		return model.Message{Role: model.RoleAssistant, Content: first.Content}, nil
	}

	messages = append(messages, llm.Message{
		Role:      string(model.RoleAssistant),
		Content:   first.Content,
		ToolCalls: first.ToolCalls,
	})
	for _, call := range first.ToolCalls {
		kind, result, err := s.tools.run(call)
		s.metrics.ObserveToolCall(call.Function.Name, err)
		if err != nil {
			log.Errorw("工具调用失败", "tool", call.Function.Name, "callId", call.ID, "error", err)
			return model.Message{}, err
		}
		log.Infow("工具调用完成", "tool", kind.String(), "callId", call.ID, "result", result)
		messages = append(messages, llm.Message{Role: "tool", Content: result, ToolCallID: call.ID})
	}

	final, err := callLLM(ctx, s.llmClient, s.metrics, metrics.PurposeChat, messages, nil)
	if err != nil {
		return model.Message{}, fmt.Errorf("%w: %w", model.ErrLLMUnavailable, err)
	}
	return model.Message{Role: model.RoleAssistant, Content: final.Content}, nil
}

func toLLMMessages(history []model.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		out = append(out, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// callLLM 调用模型并记录耗时指标。
func callLLM(ctx context.Context, client llm.Client, collector *metrics.Collector, purpose string, messages []llm.Message, tools []llm.Tool) (*llm.Response, error) {
	start := time.Now()
	resp, err := client.Chat(ctx, messages, tools)
	collector.ObserveLLMCall(purpose, err, time.Since(start))
	return resp, err
}
