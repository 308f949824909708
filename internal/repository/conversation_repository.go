// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"errors"
	"fmt"

	"tarot-ai-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepository 定义了会话与消息的持久化操作。
// 所有错误都包装 model.ErrPersistenceFailure（未找到除外）。
type ConversationRepository interface {
	Create(ctx context.Context, conv *model.Conversation) error
	UpdateTitle(ctx context.Context, conv *model.Conversation) error
	FindByID(ctx context.Context, id string) (*model.Conversation, error)
	FindAll(ctx context.Context) ([]model.Conversation, error)
	Delete(ctx context.Context, id string) (bool, error)
	AppendMessage(ctx context.Context, msg *model.Message) error
	FindMessages(ctx context.Context, conversationID string) ([]model.Message, error)
}

// conversationRepository 是 ConversationRepository 接口的 GORM 实现。
type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", model.ErrPersistenceFailure, op, err)
}

func (r *conversationRepository) Create(ctx context.Context, conv *model.Conversation) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(conv).Error; err != nil {
		return persistenceError("create conversation", err)
	}
	return nil
}

// UpdateTitle 写入 conv.Title，并刷新 updated_at。
func (r *conversationRepository) UpdateTitle(ctx context.Context, conv *model.Conversation) error {
	res := r.db.WithContext(ctx).Omit(clause.Associations).Model(conv).Update("title", conv.Title)
	if res.Error != nil {
		return persistenceError("update conversation", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", model.ErrConversationNotFound, conv.ID)
	}
	return nil
}

func (r *conversationRepository) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", model.ErrConversationNotFound, id)
		}
		return nil, persistenceError("find conversation", err)
	}
	return &conv, nil
}

// FindAll 按创建时间倒序返回所有会话，不加载消息。
func (r *conversationRepository) FindAll(ctx context.Context) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id").Find(&convs).Error
	if err != nil {
		return nil, persistenceError("list conversations", err)
	}
	return convs, nil
}

// Delete 在同一事务中删除会话及其消息，不依赖外键级联。
func (r *conversationRepository) Delete(ctx context.Context, id string) (bool, error) {
	var removed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Conversation{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, persistenceError("delete conversation", err)
	}
	return removed, nil
}

// AppendMessage 在同一事务中确认会话仍然存在，已删除的会话不会留下孤儿消息。
func (r *conversationRepository) AppendMessage(ctx context.Context, msg *model.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Conversation{}).Where("id = ?", msg.ConversationID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", model.ErrConversationNotFound, msg.ConversationID)
		}
		return tx.Create(msg).Error
	})
	if err != nil {
		return persistenceError("append message", err)
	}
	return nil
}

// FindMessages 按主键顺序返回会话的全部消息，即插入顺序。
func (r *conversationRepository) FindMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	var msgs []model.Message
	err := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).Order("id ASC").Find(&msgs).Error
	if err != nil {
		return nil, persistenceError("load messages", err)
	}
	return msgs, nil
}
