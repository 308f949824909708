package service

import (
	"context"
	"fmt"

	"tarot-ai-go/internal/model"
	"tarot-ai-go/internal/repository"

	"github.com/google/uuid"
)

// ConversationService 管理会话及其消息。
type ConversationService interface {
	// Create 新建会话。title 为 nil 时使用默认标题。
	Create(ctx context.Context, title *string) (*model.Conversation, error)
	// Update 在 title 非 nil 时修改标题，并刷新更新时间。
	Update(ctx context.Context, conv *model.Conversation, title *string) error
	AppendMessage(ctx context.Context, conv *model.Conversation, role model.Role, content string) (*model.Message, error)
	// LoadMessages 用持久化的消息替换 conv.Messages。
	LoadMessages(ctx context.Context, conv *model.Conversation) error
	ListAll(ctx context.Context) ([]model.Conversation, error)
	Delete(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (*model.Conversation, error)
}

type conversationService struct {
	repo repository.ConversationRepository
}

// NewConversationService 创建一个新的 ConversationService 实例。
func NewConversationService(repo repository.ConversationRepository) ConversationService {
	return &conversationService{repo: repo}
}

func (s *conversationService) Create(ctx context.Context, title *string) (*model.Conversation, error) {
	conv := &model.Conversation{
		ID:       uuid.NewString(),
		Title:    model.DefaultConversationTitle,
		Messages: []model.Message{},
	}
	if title != nil {
		conv.Title = *title
	}
	if err := s.repo.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *conversationService) Update(ctx context.Context, conv *model.Conversation, title *string) error {
	if title != nil {
		conv.Title = *title
	}
	return s.repo.UpdateTitle(ctx, conv)
}

func (s *conversationService) AppendMessage(ctx context.Context, conv *model.Conversation, role model.Role, content string) (*model.Message, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", model.ErrInvalidArgument, role)
	}
	msg := &model.Message{
		ConversationID: conv.ID,
		Role:           role,
		Content:        content,
	}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}
	conv.Messages = append(conv.Messages, *msg)
	return msg, nil
}

func (s *conversationService) LoadMessages(ctx context.Context, conv *model.Conversation) error {
	msgs, err := s.repo.FindMessages(ctx, conv.ID)
	if err != nil {
		return err
	}
	conv.Messages = msgs
	return nil
}

func (s *conversationService) ListAll(ctx context.Context) ([]model.Conversation, error) {
	return s.repo.FindAll(ctx)
}

func (s *conversationService) Delete(ctx context.Context, id string) (bool, error) {
	return s.repo.Delete(ctx, id)
}

func (s *conversationService) Get(ctx context.Context, id string) (*model.Conversation, error) {
	return s.repo.FindByID(ctx, id)
}
