package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"tarot-ai-go/internal/model"
	"tarot-ai-go/pkg/llm"
	"tarot-ai-go/pkg/log"
	"tarot-ai-go/pkg/metrics"
	"tarot-ai-go/pkg/tasks"
)

const maxTitleRunes = 80

const titlePrompt = "Summarize the topic of this tarot conversation as a short title of at most six words. " +
	"Reply with the title only, without quotes or trailing punctuation."

// TurnPublisher 接收每轮对话结束后的事件。
type TurnPublisher interface {
	PublishTurn(ctx context.Context, event tasks.TurnEvent) error
}

// TurnResult 是一轮对话的结果。
type TurnResult struct {
	Conversation *model.Conversation
	Reply        model.Message
	Refused      bool
	TitleUpdated bool
}

// TurnService 处理一次用户输入：持久化、话题过滤、生成回复、生成标题。
type TurnService interface {
	// HandleTurn 在 conversationID 为空时新建会话。
	HandleTurn(ctx context.Context, conversationID, prompt string) (*TurnResult, error)
	// Greeting 是空会话显示的开场白。
	Greeting() string
}

// TurnOptions 配置 TurnService。Publisher 与 Metrics 可以为 nil。
type TurnOptions struct {
	Refusal   string
	Greeting  string
	Publisher TurnPublisher
	Metrics   *metrics.Collector
}

type turnService struct {
	conversations ConversationService
	topic         TopicService
	chat          ChatService
	llmClient     llm.Client
	opts          TurnOptions
}

// NewTurnService 创建一个新的 TurnService 实例。llmClient 用于生成会话标题。
func NewTurnService(conversations ConversationService, topic TopicService, chat ChatService, llmClient llm.Client, opts TurnOptions) TurnService {
	return &turnService{
		conversations: conversations,
		topic:         topic,
		chat:          chat,
		llmClient:     llmClient,
		opts:          opts,
	}
}

func (s *turnService) Greeting() string {
	return s.opts.Greeting
}

func (s *turnService) HandleTurn(ctx context.Context, conversationID, prompt string) (*TurnResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt must not be empty", model.ErrInvalidArgument)
	}

	result, err := s.handleTurn(ctx, conversationID, prompt)
	switch {
	case err != nil:
		s.opts.Metrics.ObserveTurn(metrics.OutcomeFailed)
	case result.Refused:
		s.opts.Metrics.ObserveTurn(metrics.OutcomeRefused)
	default:
		s.opts.Metrics.ObserveTurn(metrics.OutcomeAnswered)
	}
	return result, err
}

func (s *turnService) handleTurn(ctx context.Context, conversationID, prompt string) (*TurnResult, error) {
	conv, err := s.openConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	// 仍使用默认标题的空会话，在第一轮成功回复之后生成标题；用户指定的标题不覆盖
	firstTurn := len(conv.Messages) == 0 && conv.Title == model.DefaultConversationTitle

	if _, err := s.conversations.AppendMessage(ctx, conv, model.RoleUser, prompt); err != nil {
		return nil, err
	}

	onTopic, err := s.topic.IsOnTopic(ctx, conv.UserTurns())
	if err != nil {
		log.Errorw("话题判定失败，终止本轮对话", "conversationId", conv.ID, "error", err)
		return nil, err
	}
	if !onTopic {
		reply, err := s.conversations.AppendMessage(ctx, conv, model.RoleAssistant, s.opts.Refusal)
		if err != nil {
			return nil, err
		}
		log.Infow("对话偏离主题，已拒绝", "conversationId", conv.ID)
		s.publish(ctx, conv, true)
		return &TurnResult{Conversation: conv, Reply: *reply, Refused: true}, nil
	}

	answer, err := s.chat.Complete(ctx, conv.Messages)
	if err != nil {
		log.Errorw("生成回复失败", "conversationId", conv.ID, "error", err)
		return nil, err
	}
	reply, err := s.conversations.AppendMessage(ctx, conv, answer.Role, answer.Content)
	if err != nil {
		return nil, err
	}

	result := &TurnResult{Conversation: conv, Reply: *reply}
	if firstTurn {
		result.TitleUpdated = s.updateTitle(ctx, conv)
	}
	s.publish(ctx, conv, false)
	return result, nil
}

func (s *turnService) openConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	if conversationID == "" {
		return s.conversations.Create(ctx, nil)
	}
	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.conversations.LoadMessages(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// updateTitle 失败只记录警告，保留原标题。
func (s *turnService) updateTitle(ctx context.Context, conv *model.Conversation) bool {
	title, err := s.generateTitle(ctx, conv.Messages)
	if err != nil {
		log.Warnw("无法生成会话标题", "conversationId", conv.ID, "error", err)
		return false
	}
	if title == "" {
		return false
	}
	if err := s.conversations.Update(ctx, conv, &title); err != nil {
		log.Warnw("无法保存会话标题", "conversationId", conv.ID, "error", err)
		return false
	}
	return true
}

func (s *turnService) generateTitle(ctx context.Context, history []model.Message) (string, error) {
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, toLLMMessages(history)...)
	messages = append(messages, llm.Message{Role: string(model.RoleUser), Content: titlePrompt})

	resp, err := callLLM(ctx, s.llmClient, s.opts.Metrics, metrics.PurposeTitle, messages, nil)
	if err != nil {
		return "", err
	}
	return CleanTitle(resp.Content), nil
}

// CleanTitle 去掉模型回复中的引号与换行，并截断到 80 个字符。
func CleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))
	title = strings.Trim(title, "\"'`“”‘’ ")
	if utf8.RuneCountInString(title) > maxTitleRunes {
		title = strings.TrimSpace(string([]rune(title)[:maxTitleRunes]))
	}
	return title
}

func (s *turnService) publish(ctx context.Context, conv *model.Conversation, refused bool) {
	if s.opts.Publisher == nil {
		return
	}
	event := tasks.TurnEvent{
		Type:           tasks.TurnEventTurn,
		ConversationID: conv.ID,
		Title:          conv.Title,
		Refused:        refused,
		At:             time.Now(),
	}
	if err := s.opts.Publisher.PublishTurn(ctx, event); err != nil {
		log.Warnw("发布对话事件失败", "conversationId", conv.ID, "error", err)
	}
}
