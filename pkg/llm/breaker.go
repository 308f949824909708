package llm

import (
	"context"
	"errors"
	"fmt"

	"tarot-ai-go/internal/config"
	"tarot-ai-go/pkg/log"

	"github.com/sony/gobreaker"
)

type breakerClient struct {
	next Client
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerClient 在 next 外包一层熔断器。熔断打开时调用立即失败，不发出请求。
func NewBreakerClient(next Client, cfg config.BreakerConfig) Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warnf("熔断器 '%s' 状态变化: %s -> %s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			// 调用方主动取消不计入失败
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &breakerClient{next: next, cb: cb}
}

func (b *breakerClient) Chat(ctx context.Context, messages []Message, tools []Tool) (*Response, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Chat(ctx, messages, tools)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("llm circuit breaker rejected call: %w", err)
		}
		return nil, err
	}
	return out.(*Response), nil
}
