package model

import "time"

// TranscriptDocument 定义了存储在 Elasticsearch 中的会话转录文档结构。
type TranscriptDocument struct {
	ConversationID string    `json:"conversation_id"` // 同时作为文档 ID
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	MessageCount   int       `json:"message_count"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TranscriptHit 定义了返回给前端的搜索结果结构。
type TranscriptHit struct {
	ConversationID string    `json:"conversationId"`
	Title          string    `json:"title"`
	Score          float64   `json:"score"`
	Highlights     []string  `json:"highlights,omitempty"`
	UpdatedAt      LocalTime `json:"updatedAt"`
}
