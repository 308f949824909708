package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"tarot-ai-go/internal/config"
	"tarot-ai-go/pkg/tasks"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	err   error
	calls int
}

func (f *fakeProcessor) Process(context.Context, tasks.TurnEvent) error {
	f.calls++
	return f.err
}

func eventBytes(t *testing.T) []byte {
	t.Helper()
	b, err := json.Marshal(tasks.TurnEvent{
		Type:           tasks.TurnEventTurn,
		ConversationID: "c1",
		At:             time.Unix(1700000000, 0),
	})
	require.NoError(t, err)
	return b
}

func TestHandleMessage_Success(t *testing.T) {
	p := &fakeProcessor{}
	assert.True(t, handleMessage(context.Background(), eventBytes(t), p, nil))
	assert.Equal(t, 1, p.calls)
}

func TestHandleMessage_MalformedIsCommitted(t *testing.T) {
	p := &fakeProcessor{}
	assert.True(t, handleMessage(context.Background(), []byte("{not json"), p, nil))
	assert.Zero(t, p.calls)
}

func fastRetries(t *testing.T) {
	t.Helper()
	old := retryBackoff
	retryBackoff = time.Millisecond
	t.Cleanup(func() { retryBackoff = old })
}

// flakyProcessor 前 failures 次返回错误，之后成功。
type flakyProcessor struct {
	failures int
	calls    int
}

func (f *flakyProcessor) Process(context.Context, tasks.TurnEvent) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("es down")
	}
	return nil
}

func TestHandleMessage_RetriesInPlaceUntilSuccess(t *testing.T) {
	fastRetries(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	p := &flakyProcessor{failures: maxAttempts - 1}
	assert.True(t, handleMessage(context.Background(), eventBytes(t), p, rdb))
	assert.Equal(t, maxAttempts, p.calls)
	assert.Empty(t, mr.Keys())
}

func TestHandleMessage_GivesUpAfterMaxAttempts(t *testing.T) {
	fastRetries(t)
	p := &fakeProcessor{err: errors.New("es down")}

	assert.True(t, handleMessage(context.Background(), eventBytes(t), p, nil))
	assert.Equal(t, maxAttempts, p.calls)
}

func TestHandleMessage_RedeliveryContinuesAttemptCount(t *testing.T) {
	fastRetries(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	value := eventBytes(t)
	var event tasks.TurnEvent
	require.NoError(t, json.Unmarshal(value, &event))
	// 上一个消费者进程已经失败过 maxAttempts-1 次
	require.NoError(t, mr.Set("kafka:attempts:"+event.Key(), "2"))

	p := &fakeProcessor{err: errors.New("es down")}
	assert.True(t, handleMessage(context.Background(), value, p, rdb))
	assert.Equal(t, 1, p.calls)
	assert.Empty(t, mr.Keys())
}

func TestHandleMessage_CancelledLeavesUncommitted(t *testing.T) {
	old := retryBackoff
	retryBackoff = time.Hour
	t.Cleanup(func() { retryBackoff = old })

	ctx, cancel := context.WithCancel(context.Background())
	p := &cancellingProcessor{cancel: cancel}

	assert.False(t, handleMessage(ctx, eventBytes(t), p, nil))
	assert.Equal(t, 1, p.calls)
}

type cancellingProcessor struct {
	cancel context.CancelFunc
	calls  int
}

func (c *cancellingProcessor) Process(context.Context, tasks.TurnEvent) error {
	c.calls++
	c.cancel()
	return errors.New("shutting down")
}

func TestBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, brokers(config.KafkaConfig{Brokers: " a:9092, ,b:9092"}))
	assert.Nil(t, brokers(config.KafkaConfig{}))
}
