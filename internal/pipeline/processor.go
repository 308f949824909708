// Package pipeline 定义了会话转录的索引流程。
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"tarot-ai-go/internal/model"
	"tarot-ai-go/internal/service"
	"tarot-ai-go/pkg/log"
	"tarot-ai-go/pkg/tasks"
)

// Processor 消费对话事件，把会话转录同步到全文索引。
type Processor struct {
	transcripts service.TranscriptService
	index       service.TranscriptIndex
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(transcripts service.TranscriptService, index service.TranscriptIndex) *Processor {
	return &Processor{transcripts: transcripts, index: index}
}

// Process 是事件处理的主函数。会话已被删除时从索引中移除。
func (p *Processor) Process(ctx context.Context, event tasks.TurnEvent) error {
	log.Infof("[Processor] 开始处理事件, type: %s, conversation: %s", event.Type, event.ConversationID)

	if event.Type == tasks.TurnEventDeleted {
		return p.remove(ctx, event.ConversationID)
	}

	doc, err := p.transcripts.Document(ctx, event.ConversationID)
	if errors.Is(err, model.ErrConversationNotFound) {
		log.Warnf("[Processor] 会话 %s 已不存在, 从索引中移除", event.ConversationID)
		return p.remove(ctx, event.ConversationID)
	}
	if err != nil {
		return fmt.Errorf("读取会话转录失败: %w", err)
	}

	if err := p.index.IndexTranscript(ctx, doc); err != nil {
		return fmt.Errorf("索引会话转录失败: %w", err)
	}
	log.Infof("[Processor] 会话 %s 已索引, 共 %d 条消息", doc.ConversationID, doc.MessageCount)
	return nil
}

func (p *Processor) remove(ctx context.Context, conversationID string) error {
	if err := p.index.DeleteTranscript(ctx, conversationID); err != nil {
		return fmt.Errorf("删除会话转录失败: %w", err)
	}
	return nil
}
