package service

import (
	"context"
	"fmt"
	"strings"

	"tarot-ai-go/internal/model"
)

const (
	defaultSearchSize = 10
	maxSearchSize     = 50
)

// TranscriptIndex 是转录全文索引，由 pkg/es 实现。
type TranscriptIndex interface {
	IndexTranscript(ctx context.Context, doc model.TranscriptDocument) error
	DeleteTranscript(ctx context.Context, conversationID string) error
	SearchTranscripts(ctx context.Context, query string, size int) ([]model.TranscriptHit, error)
}

// TranscriptStore 是转录导出的对象存储，由 pkg/storage 实现。
type TranscriptStore interface {
	PutTranscript(ctx context.Context, objectName string, body []byte, contentType string) error
	PresignedURL(ctx context.Context, objectName string) (string, error)
}

// ExportResult 描述一次导出。
type ExportResult struct {
	ObjectName string `json:"objectName"`
	URL        string `json:"url"`
}

// TranscriptService 提供会话转录的检索与导出。
type TranscriptService interface {
	Search(ctx context.Context, query string, size int) ([]model.TranscriptHit, error)
	Export(ctx context.Context, conversationID string) (*ExportResult, error)
	// Document 读取会话与消息并构建索引文档。
	Document(ctx context.Context, conversationID string) (model.TranscriptDocument, error)
}

type transcriptService struct {
	conversations ConversationService
	index         TranscriptIndex
	store         TranscriptStore
}

// NewTranscriptService 创建一个新的 TranscriptService 实例。index 或 store 为 nil 时相应功能返回 model.ErrFeatureDisabled。
func NewTranscriptService(conversations ConversationService, index TranscriptIndex, store TranscriptStore) TranscriptService {
	return &transcriptService{conversations: conversations, index: index, store: store}
}

func (s *transcriptService) Search(ctx context.Context, query string, size int) ([]model.TranscriptHit, error) {
	if s.index == nil {
		return nil, fmt.Errorf("%w: transcript search requires elasticsearch", model.ErrFeatureDisabled)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query must not be empty", model.ErrInvalidArgument)
	}
	if size <= 0 {
		size = defaultSearchSize
	}
	if size > maxSearchSize {
		size = maxSearchSize
	}
	return s.index.SearchTranscripts(ctx, query, size)
}

func (s *transcriptService) Export(ctx context.Context, conversationID string) (*ExportResult, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: transcript export requires object storage", model.ErrFeatureDisabled)
	}
	conv, err := s.load(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	objectName := fmt.Sprintf("transcripts/%s.md", conv.ID)
	if err := s.store.PutTranscript(ctx, objectName, []byte(RenderMarkdown(conv)), "text/markdown; charset=utf-8"); err != nil {
		return nil, err
	}
	url, err := s.store.PresignedURL(ctx, objectName)
	if err != nil {
		return nil, err
	}
	return &ExportResult{ObjectName: objectName, URL: url}, nil
}

func (s *transcriptService) Document(ctx context.Context, conversationID string) (model.TranscriptDocument, error) {
	conv, err := s.load(ctx, conversationID)
	if err != nil {
		return model.TranscriptDocument{}, err
	}

	var b strings.Builder
	for _, m := range conv.Messages {
		if m.Role == model.RoleSystem {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return model.TranscriptDocument{
		ConversationID: conv.ID,
		Title:          conv.Title,
		Content:        b.String(),
		MessageCount:   len(conv.Messages),
		UpdatedAt:      conv.UpdatedAt,
	}, nil
}

func (s *transcriptService) load(ctx context.Context, conversationID string) (*model.Conversation, error) {
	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.conversations.LoadMessages(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// RenderMarkdown 把会话渲染为 Markdown 文本。
func RenderMarkdown(conv *model.Conversation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", conv.Title)
	fmt.Fprintf(&b, "_Conversation %s, started %s_\n", conv.ID, conv.CreatedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	for _, m := range conv.Messages {
		switch m.Role {
		case model.RoleUser:
			b.WriteString("\n**You:**\n\n")
		case model.RoleAssistant:
			b.WriteString("\n**Reader:**\n\n")
		default:
			continue
		}
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}
