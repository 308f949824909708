// Package tasks defines the structure for events that are sent to Kafka.
package tasks

import (
	"fmt"
	"time"
)

// 事件类型。
const (
	TurnEventTurn    = "turn"
	TurnEventDeleted = "deleted"
)

// TurnEvent 在一轮对话结束或会话被删除后发布，供转录索引器消费。
type TurnEvent struct {
	Type           string    `json:"type"`
	ConversationID string    `json:"conversation_id"`
	Title          string    `json:"title"`
	Refused        bool      `json:"refused"`
	At             time.Time `json:"at"`
}

// Key 唯一标识一个事件，用于失败计数。
func (e TurnEvent) Key() string {
	return fmt.Sprintf("%s:%s:%d", e.Type, e.ConversationID, e.At.UnixNano())
}
