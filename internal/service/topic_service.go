package service

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"tarot-ai-go/internal/model"
	"tarot-ai-go/internal/repository"
	"tarot-ai-go/pkg/llm"
	"tarot-ai-go/pkg/log"
	"tarot-ai-go/pkg/metrics"
)

// TopicService 判断对话是否仍在塔罗话题范围内。
type TopicService interface {
	// IsOnTopic 只检查用户发言。没有用户发言时返回 true，且不调用模型。
	IsOnTopic(ctx context.Context, userTurns []string) (bool, error)
}

var tarotTopics = []string{
	"tarot cards",
	"tarot readings",
	"divination",
	"card meanings",
	"spreads",
	"major arcana",
	"minor arcana",
	"card interpretations",
	"spiritual guidance",
	"fortune telling",
	"tarot spreads",
	"card symbolism",
}

var topicFilterPrompt = "You are a strict content filter for a tarot reading application. " +
	"Determine if the conversation is related to any of these topics: " + strings.Join(tarotTopics, ", ") + ". " +
	"Users should only discuss tarot readings, interpretations, spiritual guidance, or related topics. " +
	"Conversations about other topics like general life advice, coding help, weather, news, etc. " +
	"should be rejected unless they're specifically in the context of tarot readings. " +
	"Return ONLY 'true' if the conversation is about tarot or related topics, or 'false' otherwise."

type topicService struct {
	llmClient llm.Client
	window    int
	cache     repository.VerdictCache
	metrics   *metrics.Collector
}

// NewTopicService 创建一个新的 TopicService 实例。window 为参与判定的最近用户发言条数；cache 可以为 nil。
func NewTopicService(llmClient llm.Client, window int, cache repository.VerdictCache, collector *metrics.Collector) TopicService {
	return &topicService{
		llmClient: llmClient,
		window:    window,
		cache:     cache,
		metrics:   collector,
	}
}

func (s *topicService) IsOnTopic(ctx context.Context, userTurns []string) (bool, error) {
	if len(userTurns) == 0 {
		return true, nil
	}

	recent := userTurns
	if s.window > 0 && len(recent) > s.window {
		recent = recent[len(recent)-s.window:]
	}
	conversationText := strings.Join(recent, "\n")

	if s.cache != nil {
		verdict, found, err := s.cache.Get(ctx, conversationText)
		if err != nil {
			log.Warnw("读取话题判定缓存失败", "error", err)
		} else if found {
			return verdict, nil
		}
	}

	messages := []llm.Message{
		{Role: string(model.RoleSystem), Content: topicFilterPrompt},
		{Role: string(model.RoleUser), Content: "Here is the conversation so far:\n" + conversationText},
	}
	resp, err := callLLM(ctx, s.llmClient, s.metrics, metrics.PurposeTopic, messages, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %w", model.ErrClassifierUnavailable, err)
	}

	verdict := ParseVerdict(resp.Content)
	log.Infow("话题判定完成", "verdict", verdict, "raw", resp.Content, "turns", len(recent))

	if s.cache != nil {
		if err := s.cache.Set(ctx, conversationText, verdict); err != nil {
			log.Warnw("写入话题判定缓存失败", "error", err)
		}
	}
	return verdict, nil
}

// ParseVerdict 只接受规范化后恰好等于 "true" 的回复。
// 规范化会去掉首尾空白、引号和标点并转为小写，因此 " True. " 为真，"falsetrue" 为假。
func ParseVerdict(reply string) bool {
	normalized := strings.TrimFunc(strings.ToLower(reply), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	return normalized == "true"
}
