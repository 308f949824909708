package model

import "errors"

// 错误分类。各层使用 fmt.Errorf("...: %w") 包装，调用方通过 errors.Is 判断。
var (
	// ErrClassifierUnavailable 表示话题过滤的 LLM 调用失败。
	ErrClassifierUnavailable = errors.New("topic classifier unavailable")
	// ErrLLMUnavailable 表示对话编排中的 LLM 调用失败。
	ErrLLMUnavailable = errors.New("llm unavailable")
	// ErrUnknownTool 表示模型请求了未声明的工具。
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidArgument 表示参数非法，例如无放回抽牌数量超过牌组大小。
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrPersistenceFailure 表示行存储操作失败。
	ErrPersistenceFailure = errors.New("persistence failure")

	ErrConversationNotFound = errors.New("conversation not found")

	// ErrFeatureDisabled 表示依赖的可选基础设施（Elasticsearch、MinIO）未配置。
	ErrFeatureDisabled = errors.New("feature disabled")
)
