// Package metrics 定义服务暴露的 Prometheus 指标。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 对话轮次的结果。
const (
	OutcomeAnswered = "answered"
	OutcomeRefused  = "refused"
	OutcomeFailed   = "failed"
)

// LLM 调用的用途。
const (
	PurposeTopic = "topic"
	PurposeChat  = "chat"
	PurposeTitle = "title"
)

// Collector 持有应用的全部指标。nil Collector 的方法都是空操作。
type Collector struct {
	registry *prometheus.Registry

	Turns      *prometheus.CounterVec
	LLMCalls   *prometheus.CounterVec
	LLMLatency *prometheus.HistogramVec
	ToolCalls  *prometheus.CounterVec
	HTTPTotal  *prometheus.CounterVec
}

// NewCollector 创建独立 registry 下的指标，测试中可多次创建而不冲突。
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of conversation turns by outcome",
		}, []string{"outcome"}),
		LLMCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Total number of LLM calls by purpose and status",
		}, []string{"purpose", "status"}),
		LLMLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_call_duration_seconds",
			Help:      "LLM call duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"purpose"}),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of tool invocations requested by the model",
		}, []string{"tool", "status"}),
		HTTPTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
	}

	registry.MustRegister(c.Turns, c.LLMCalls, c.LLMLatency, c.ToolCalls, c.HTTPTotal)
	registry.MustRegister(collectors.NewGoCollector())
	return c
}

// Registry 返回底层 registry，供测试读取。
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 返回 /metrics 的 HTTP handler。
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveTurn(outcome string) {
	if c == nil {
		return
	}
	c.Turns.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveLLMCall(purpose string, err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.LLMCalls.WithLabelValues(purpose, status).Inc()
	c.LLMLatency.WithLabelValues(purpose).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveToolCall(tool string, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.ToolCalls.WithLabelValues(tool, status).Inc()
}

func (c *Collector) ObserveHTTP(method, route string, status int) {
	if c == nil {
		return
	}
	c.HTTPTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
