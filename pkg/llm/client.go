// Package llm provides a client for interacting with Large Language Models.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"tarot-ai-go/internal/config"
)

// Client defines the interface for an LLM client.
type Client interface {
	// Chat 以 role-based 消息调用聊天接口。tools 为空时不声明任何工具。
	Chat(ctx context.Context, messages []Message, tools []Tool) (*Response, error)
}

type openAIClient struct {
	cfg    config.LLMConfig
	client *http.Client
}

// NewClient creates a new client for an OpenAI-compatible chat completions endpoint.
func NewClient(cfg config.LLMConfig) Client {
	return &openAIClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Message 表示一条角色消息。assistant 消息可能带有 ToolCalls，tool 消息需要 ToolCallID。
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall 是模型发出的一次函数调用请求。
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall 中的 Arguments 是模型生成的 JSON 字符串，可能不合法。
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool 声明一个可供模型调用的函数。
type Tool struct {
	Type     string       `json:"type"`
	Function FunctionSpec `json:"function"`
}

// FunctionSpec 的 Parameters 为 JSON Schema。
type FunctionSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Response 是一次非流式调用的结果。
type Response struct {
	Content   string
	ToolCalls []ToolCall
}

// GenerationParams 控制生成行为
type GenerationParams struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Tools       []Tool    `json:"tools,omitempty"`
	Stream      bool      `json:"stream"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string     `json:"content"`
			ToolCalls []ToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

// generation 从全局配置注入生成参数（仅非零值）。
func (c *openAIClient) generation() GenerationParams {
	var gen GenerationParams
	if c.cfg.Generation.Temperature != 0 {
		t := c.cfg.Generation.Temperature
		gen.Temperature = &t
	}
	if c.cfg.Generation.TopP != 0 {
		p := c.cfg.Generation.TopP
		gen.TopP = &p
	}
	if c.cfg.Generation.MaxTokens != 0 {
		m := c.cfg.Generation.MaxTokens
		gen.MaxTokens = &m
	}
	return gen
}

func (c *openAIClient) Chat(ctx context.Context, messages []Message, tools []Tool) (*Response, error) {
	gen := c.generation()
	reqBody := chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Tools:       tools,
		Stream:      false,
		Temperature: gen.Temperature,
		TopP:        gen.TopP,
		MaxTokens:   gen.MaxTokens,
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call chat api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("chat api returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("chat api returned no choices")
	}

	choice := out.Choices[0].Message
	return &Response{Content: choice.Content, ToolCalls: choice.ToolCalls}, nil
}
