package handler

import (
	"net/http"

	"tarot-ai-go/internal/middleware"
	"tarot-ai-go/internal/service"
	"tarot-ai-go/pkg/metrics"
	"tarot-ai-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// RouterDeps 汇集注册路由所需的依赖。Publisher 与 Metrics 可以为 nil。
type RouterDeps struct {
	JWT           *token.JWTManager
	AccessKeyHash string
	Conversations service.ConversationService
	Turns         service.TurnService
	Transcripts   service.TranscriptService
	Publisher     service.TurnPublisher
	Metrics       *metrics.Collector
}

// NewRouter 创建路由引擎并注册全部路由。
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(deps.Metrics), gin.Recovery())

	sessionHandler := NewSessionHandler(deps.JWT, deps.AccessKeyHash)
	conversationHandler := NewConversationHandler(deps.Conversations, deps.Transcripts, deps.Publisher)
	chatHandler := NewChatHandler(deps.Turns, deps.JWT)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/session", sessionHandler.Create)

		authed := apiV1.Group("/")
		authed.Use(middleware.AuthMiddleware(deps.JWT))
		{
			authed.GET("/greeting", chatHandler.Greeting)
			authed.POST("/chat", chatHandler.Post)

			conversations := authed.Group("/conversations")
			{
				conversations.GET("", conversationHandler.List)
				conversations.POST("", conversationHandler.Create)
				conversations.GET("/search", conversationHandler.Search)
				conversations.GET("/:id", conversationHandler.Get)
				conversations.PATCH("/:id", conversationHandler.Update)
				conversations.DELETE("/:id", conversationHandler.Delete)
				conversations.POST("/:id/export", conversationHandler.Export)
			}
		}
	}

	// WebSocket 无法携带授权头，token 放在路径中
	r.GET("/chat/:token", chatHandler.Handle)
	return r
}
