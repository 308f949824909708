package handler

import (
	"net/http"

	"tarot-ai-go/pkg/log"
	"tarot-ai-go/pkg/token"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// SessionHandler 用访问密钥换取会话 token。
type SessionHandler struct {
	jwtManager    *token.JWTManager
	accessKeyHash string
}

// NewSessionHandler 创建一个新的 SessionHandler。accessKeyHash 为空时任何请求都可以建立会话。
func NewSessionHandler(jwtManager *token.JWTManager, accessKeyHash string) *SessionHandler {
	return &SessionHandler{jwtManager: jwtManager, accessKeyHash: accessKeyHash}
}

// CreateSessionRequest 定义了建立会话 API 的请求体结构。
type CreateSessionRequest struct {
	AccessKey string `json:"accessKey"`
}

// Create 处理建立会话的请求。
func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondFail(c, http.StatusBadRequest, "无效的请求负载")
			return
		}
	}

	if h.accessKeyHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(h.accessKeyHash), []byte(req.AccessKey)); err != nil {
			log.Warnf("访问密钥校验失败, clientIP: %s", c.ClientIP())
			respondFail(c, http.StatusUnauthorized, "访问密钥错误")
			return
		}
	}

	signed, sessionID, err := h.jwtManager.GenerateToken()
	if err != nil {
		log.Error("签发会话 token 失败", err)
		respondFail(c, http.StatusInternalServerError, "服务器内部错误")
		return
	}

	log.Infof("会话已建立: %s", sessionID)
	respondOK(c, gin.H{"token": signed, "sessionId": sessionID})
}
