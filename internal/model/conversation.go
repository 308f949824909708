// Package model 包含了应用的数据模型定义。
package model

import "time"

// Role 是消息的作者角色。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid 报告角色是否属于可持久化的集合。
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// DefaultConversationTitle 是新会话在生成标题之前使用的标题。
const DefaultConversationTitle = "Untitled Conversation"

// Conversation 对应 conversations 表。Messages 按需加载，
// 该关联只用于建立 messages.conversation_id 外键。
type Conversation struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	Messages  []Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// UserTurns 返回会话中用户发出的消息内容，保持插入顺序。
func (c *Conversation) UserTurns() []string {
	turns := make([]string, 0, len(c.Messages))
	for _, m := range c.Messages {
		if m.Role == RoleUser {
			turns = append(turns, m.Content)
		}
	}
	return turns
}

// Message 对应 messages 表，在会话内只追加不修改。
type Message struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID string    `gorm:"type:varchar(36);index;not null" json:"conversationId"`
	Role           Role      `gorm:"type:varchar(16);not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Message) TableName() string {
	return "messages"
}
