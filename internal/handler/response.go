// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"time"

	"tarot-ai-go/internal/model"
	"tarot-ai-go/pkg/log"

	"github.com/gin-gonic/gin"
)

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": data})
}

func respondFail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"code": status, "message": message, "data": nil})
}

// errorStatus 将错误分类映射为 HTTP 状态码和对外的通用提示。
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrInvalidArgument):
		return http.StatusBadRequest, "请求参数无效"
	case errors.Is(err, model.ErrConversationNotFound):
		return http.StatusNotFound, "会话不存在"
	case errors.Is(err, model.ErrFeatureDisabled):
		return http.StatusServiceUnavailable, "该功能未启用"
	case errors.Is(err, model.ErrClassifierUnavailable), errors.Is(err, model.ErrLLMUnavailable):
		return http.StatusBadGateway, "AI服务暂时不可用，请稍后重试"
	default:
		return http.StatusInternalServerError, "服务器内部错误"
	}
}

// respondError 记录原始错误，仅向客户端返回通用提示。
func respondError(c *gin.Context, op string, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Errorw(op+" 失败", "error", err, "path", c.Request.URL.Path)
	} else {
		log.Warnw(op+" 失败", "error", err, "path", c.Request.URL.Path)
	}
	respondFail(c, status, message)
}

type messageDTO struct {
	ID        uint            `json:"id"`
	Role      model.Role      `json:"role"`
	Content   string          `json:"content"`
	CreatedAt model.LocalTime `json:"createdAt"`
}

type conversationDTO struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	CreatedAt model.LocalTime `json:"createdAt"`
	UpdatedAt model.LocalTime `json:"updatedAt"`
	Messages  []messageDTO    `json:"messages,omitempty"`
}

func toMessageDTO(m model.Message) messageDTO {
	return messageDTO{ID: m.ID, Role: m.Role, Content: m.Content, CreatedAt: model.LocalTime(m.CreatedAt)}
}

func toConversationDTO(conv *model.Conversation, withMessages bool) conversationDTO {
	dto := conversationDTO{
		ID:        conv.ID,
		Title:     conv.Title,
		CreatedAt: model.LocalTime(conv.CreatedAt),
		UpdatedAt: model.LocalTime(conv.UpdatedAt),
	}
	if withMessages {
		dto.Messages = make([]messageDTO, 0, len(conv.Messages))
		for _, m := range conv.Messages {
			dto.Messages = append(dto.Messages, toMessageDTO(m))
		}
	}
	return dto
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
