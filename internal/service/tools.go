package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"tarot-ai-go/internal/model"
	"tarot-ai-go/pkg/llm"
	"tarot-ai-go/pkg/tarot"
)

// ToolKind 是模型可以请求的工具的封闭集合。
type ToolKind int

const (
	ToolDrawTarotCards ToolKind = iota + 1
)

const drawTarotCardsName = "draw_tarot_cards"

const defaultDrawCount = 3

func (k ToolKind) String() string {
	switch k {
	case ToolDrawTarotCards:
		return drawTarotCardsName
	default:
		return fmt.Sprintf("ToolKind(%d)", int(k))
	}
}

// ParseToolKind 按名称解析工具，不区分大小写。未声明的名称返回 model.ErrUnknownTool。
func ParseToolKind(name string) (ToolKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case drawTarotCardsName:
		return ToolDrawTarotCards, nil
	default:
		return 0, fmt.Errorf("%w: %q", model.ErrUnknownTool, name)
	}
}

// drawTarotCardsArgs 对应 draw_tarot_cards 的参数。Count 缺省为 3。
type drawTarotCardsArgs struct {
	Count           *int `json:"count"`
	WithReplacement bool `json:"with_replacement"`
	AllowReversed   bool `json:"allow_reversed"`
}

// toolCatalog 返回声明给模型的工具列表。
func toolCatalog() []llm.Tool {
	return []llm.Tool{{
		Type: "function",
		Function: llm.FunctionSpec{
			Name: drawTarotCardsName,
			Description: "Draw tarot cards from a standard 78-card deck. " +
				"Use it whenever the user asks for a reading or asks you to draw cards.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"count": map[string]any{
						"type":        "integer",
						"description": "Number of cards to draw.",
						"minimum":     0,
						"default":     defaultDrawCount,
					},
					"with_replacement": map[string]any{
						"type":        "boolean",
						"description": "Whether the same card may be drawn more than once.",
						"default":     false,
					},
					"allow_reversed": map[string]any{
						"type":        "boolean",
						"description": "Whether cards may come up reversed.",
						"default":     false,
					},
				},
			},
		},
	}}
}

// toolRunner 执行模型请求的工具调用。
type toolRunner struct {
	rng tarot.RNG
}

// run 返回写回对话的工具结果文本。
func (r toolRunner) run(call llm.ToolCall) (ToolKind, string, error) {
	kind, err := ParseToolKind(call.Function.Name)
	if err != nil {
		return 0, "", err
	}

	switch kind {
	case ToolDrawTarotCards:
		out, err := r.drawTarotCards(call.Function.Arguments)
		return kind, out, err
	default:
		return kind, "", fmt.Errorf("%w: %s", model.ErrUnknownTool, kind)
	}
}

func (r toolRunner) drawTarotCards(rawArgs string) (string, error) {
	var args drawTarotCardsArgs
	if strings.TrimSpace(rawArgs) != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return "", fmt.Errorf("%w: malformed %s arguments: %v", model.ErrInvalidArgument, drawTarotCardsName, err)
		}
	}
	count := defaultDrawCount
	if args.Count != nil {
		count = *args.Count
	}

	cards, err := tarot.Draw(count, args.WithReplacement, args.AllowReversed, r.rng)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(cards)
	if err != nil {
		return "", fmt.Errorf("failed to marshal drawn cards: %w", err)
	}
	return string(out), nil
}
