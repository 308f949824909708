// Package main 是应用程序的入口点。
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tarot-ai-go/internal/config"
	"tarot-ai-go/internal/handler"
	"tarot-ai-go/internal/pipeline"
	"tarot-ai-go/internal/repository"
	"tarot-ai-go/internal/service"
	"tarot-ai-go/pkg/database"
	"tarot-ai-go/pkg/es"
	"tarot-ai-go/pkg/kafka"
	"tarot-ai-go/pkg/llm"
	"tarot-ai-go/pkg/log"
	"tarot-ai-go/pkg/metrics"
	"tarot-ai-go/pkg/storage"
	"tarot-ai-go/pkg/tarot"
	"tarot-ai-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. 初始化配置
	config.Init(*configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库，Redis 可选
	database.InitDB(cfg.Database.Driver, cfg.Database.DSN)
	var verdictCache repository.VerdictCache
	if cfg.Database.Redis.Addr != "" {
		database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
		verdictCache = repository.NewVerdictCache(database.RDB, cfg.Topic.CacheTTL)
	}

	// 4. 可选基础设施：Elasticsearch、MinIO、Kafka
	var transcriptIndex service.TranscriptIndex
	var esClient *es.Client
	if cfg.Elasticsearch.Addresses != "" {
		client, err := es.InitES(cfg.Elasticsearch)
		if err != nil {
			log.Fatal("es 初始化失败", err)
		}
		esClient = client
		transcriptIndex = client
	}
	var transcriptStore service.TranscriptStore
	if cfg.MinIO.Endpoint != "" {
		store, err := storage.InitMinIO(cfg.MinIO)
		if err != nil {
			log.Fatal("MinIO 初始化失败", err)
		}
		transcriptStore = store
	}
	var publisher service.TurnPublisher
	var producer *kafka.Producer
	if cfg.Kafka.Brokers != "" {
		producer = kafka.NewProducer(cfg.Kafka)
		publisher = producer
	}

	// 5. 初始化 LLM 客户端与 Service (依赖注入)
	collector := metrics.NewCollector("tarot")
	llmClient := llm.NewClient(cfg.LLM)
	if cfg.LLM.Breaker.Enabled {
		llmClient = llm.NewBreakerClient(llmClient, cfg.LLM.Breaker)
	}

	conversationRepo := repository.NewConversationRepository(database.DB)
	conversationService := service.NewConversationService(conversationRepo)
	topicService := service.NewTopicService(llmClient, cfg.Topic.Window, verdictCache, collector)
	chatService := service.NewChatService(llmClient, cfg.Prompt.Persona, tarot.StdRNG{}, collector)
	turnService := service.NewTurnService(conversationService, topicService, chatService, llmClient, service.TurnOptions{
		Refusal:   cfg.Prompt.Refusal,
		Greeting:  cfg.Prompt.Greeting,
		Publisher: publisher,
		Metrics:   collector,
	})
	transcriptService := service.NewTranscriptService(conversationService, transcriptIndex, transcriptStore)

	// 6. 启动后台 Kafka 消费者，把会话转录同步到 Elasticsearch
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	if producer != nil && esClient != nil {
		processor := pipeline.NewProcessor(transcriptService, esClient)
		go kafka.StartConsumer(consumerCtx, cfg.Kafka, processor, database.RDB)
	}

	// 7. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := handler.NewRouter(handler.RouterDeps{
		JWT:           token.NewJWTManager(cfg.Auth.Secret, cfg.Auth.SessionExpireHours),
		AccessKeyHash: cfg.Auth.AccessKeyHash,
		Conversations: conversationService,
		Turns:         turnService,
		Transcripts:   transcriptService,
		Publisher:     publisher,
		Metrics:       collector,
	})

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// LLM 调用最长需要 llm.timeout，停机等待时间与之对齐
	ctx, cancel := context.WithTimeout(context.Background(), cfg.LLM.Timeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}
	stopConsumer()
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Errorf("关闭 Kafka 生产者失败: %v", err)
		}
	}
	log.Info("服务已优雅关闭")
}
