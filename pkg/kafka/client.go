// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tarot-ai-go/internal/config"
	"tarot-ai-go/pkg/log"
	"tarot-ai-go/pkg/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// maxAttempts 是单个事件的最大处理次数，达到后提交 offset 放弃该事件。
const maxAttempts = 3

// EventProcessor defines the interface for any service that can process a turn event.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type EventProcessor interface {
	Process(ctx context.Context, event tasks.TurnEvent) error
}

// Producer 将 TurnEvent 写入 Kafka。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	p := &Producer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers(cfg)...),
			Topic:    cfg.Topic,
			Balancer: &kafka.Hash{},
		},
	}
	log.Info("Kafka 生产者初始化成功")
	return p
}

// PublishTurn 发送一个事件，以会话 ID 为消息 key，保证同一会话内有序。
func (p *Producer) PublishTurn(ctx context.Context, event tasks.TurnEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal turn event: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ConversationID),
		Value: eventBytes,
	}); err != nil {
		return fmt.Errorf("failed to write turn event: %w", err)
	}
	return nil
}

// Close 关闭生产者。
func (p *Producer) Close() error {
	return p.writer.Close()
}

func brokers(cfg config.KafkaConfig) []string {
	var out []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// StartConsumer 启动一个 Kafka 消费者来处理对话事件，直到 ctx 结束或读取失败。
// rdb 用于跨重启记录失败次数，可以为 nil。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor EventProcessor, rdb *redis.Client) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Error("从 Kafka 读取消息失败", err)
			}
			break
		}

		log.Infof("收到 Kafka 消息: offset %d", m.Offset)
		if handleMessage(ctx, m.Value, processor, rdb) {
			if err := r.CommitMessages(ctx, m); err != nil {
				log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
			}
		}
	}

	if err := r.Close(); err != nil {
		log.Errorf("关闭 Kafka 消费者失败: %v", err)
	}
}

// retryBackoff 是第 n 次失败后等待 n*retryBackoff 再重试。
var retryBackoff = 500 * time.Millisecond

// handleMessage 处理一条消息，返回是否应提交 offset。
// 失败时在原地重试，最多 maxAttempts 次；只有 ctx 结束时才返回 false，
// 该消息未提交，消费者重启后会重新投递。
// rdb 记录已尝试次数，重新投递时继续累计而不是从零开始。
func handleMessage(ctx context.Context, value []byte, processor EventProcessor, rdb *redis.Client) bool {
	var event tasks.TurnEvent
	if err := json.Unmarshal(value, &event); err != nil {
		// 消息格式错误，直接提交，避免阻塞队列
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(value))
		return true
	}

	attemptsKey := "kafka:attempts:" + event.Key()
	local := int64(0)
	for {
		err := processor.Process(ctx, event)
		if err == nil {
			log.Infof("对话事件处理成功: conversation=%s, type=%s", event.ConversationID, event.Type)
			if rdb != nil {
				_ = rdb.Del(ctx, attemptsKey).Err()
			}
			return true
		}

		local++
		attempts := local
		if rdb != nil {
			if n, incErr := rdb.Incr(ctx, attemptsKey).Result(); incErr == nil {
				attempts = n
				_ = rdb.Expire(ctx, attemptsKey, 24*time.Hour).Err()
			}
		}
		log.Errorf("处理对话事件失败(第 %d 次): conversation=%s, Error: %v", attempts, event.ConversationID, err)
		if attempts >= maxAttempts {
			log.Errorf("对话事件多次失败(>=%d)，提交 offset 放弃该事件: conversation=%s", maxAttempts, event.ConversationID)
			if rdb != nil {
				_ = rdb.Del(ctx, attemptsKey).Err()
			}
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Duration(attempts) * retryBackoff):
		}
	}
}
