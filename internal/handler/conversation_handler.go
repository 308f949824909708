package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tarot-ai-go/internal/service"
	"tarot-ai-go/pkg/log"
	"tarot-ai-go/pkg/tasks"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 处理与会话相关的 API 请求。
type ConversationHandler struct {
	conversations service.ConversationService
	transcripts   service.TranscriptService
	publisher     service.TurnPublisher
}

// NewConversationHandler 创建一个新的 ConversationHandler。publisher 可以为 nil。
func NewConversationHandler(conversations service.ConversationService, transcripts service.TranscriptService, publisher service.TurnPublisher) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, transcripts: transcripts, publisher: publisher}
}

// ConversationRequest 是创建与修改会话的请求体。
type ConversationRequest struct {
	Title *string `json:"title"`
}

// List 返回所有会话的摘要，按创建时间倒序。
func (h *ConversationHandler) List(c *gin.Context) {
	convs, err := h.conversations.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, "获取会话列表", err)
		return
	}
	out := make([]conversationDTO, 0, len(convs))
	for i := range convs {
		out = append(out, toConversationDTO(&convs[i], false))
	}
	respondOK(c, out)
}

func (h *ConversationHandler) Create(c *gin.Context) {
	var req ConversationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondFail(c, http.StatusBadRequest, "无效的请求负载")
			return
		}
	}
	conv, err := h.conversations.Create(c.Request.Context(), req.Title)
	if err != nil {
		respondError(c, "创建会话", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": http.StatusCreated, "message": "success", "data": toConversationDTO(conv, true)})
}

// Get 返回会话及其全部消息。
func (h *ConversationHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	conv, err := h.conversations.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, "获取会话", err)
		return
	}
	if err := h.conversations.LoadMessages(ctx, conv); err != nil {
		respondError(c, "加载会话消息", err)
		return
	}
	respondOK(c, toConversationDTO(conv, true))
}

func (h *ConversationHandler) Update(c *gin.Context) {
	var req ConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		respondFail(c, http.StatusBadRequest, "无效的请求负载：title 不能为空")
		return
	}
	ctx := c.Request.Context()
	conv, err := h.conversations.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, "获取会话", err)
		return
	}
	if err := h.conversations.Update(ctx, conv, req.Title); err != nil {
		respondError(c, "修改会话", err)
		return
	}
	respondOK(c, toConversationDTO(conv, false))
}

func (h *ConversationHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	removed, err := h.conversations.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, "删除会话", err)
		return
	}
	if !removed {
		respondFail(c, http.StatusNotFound, "会话不存在")
		return
	}
	if h.publisher != nil {
		event := tasks.TurnEvent{Type: tasks.TurnEventDeleted, ConversationID: id, At: time.Now()}
		if err := h.publisher.PublishTurn(context.WithoutCancel(c.Request.Context()), event); err != nil {
			log.Warnw("发布会话删除事件失败", "conversationId", id, "error", err)
		}
	}
	respondOK(c, gin.H{"deleted": true})
}

// Search 在会话转录中全文检索。
func (h *ConversationHandler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.transcripts.Search(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		respondError(c, "检索会话转录", err)
		return
	}
	respondOK(c, hits)
}

// Export 导出会话转录到对象存储，返回临时下载链接。
func (h *ConversationHandler) Export(c *gin.Context) {
	res, err := h.transcripts.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "导出会话转录", err)
		return
	}
	respondOK(c, res)
}
