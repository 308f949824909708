package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"tarot-ai-go/internal/service"
	"tarot-ai-go/pkg/log"
	"tarot-ai-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 允许所有来源
		},
	}
)

// ChatHandler 负责处理对话轮次，支持 HTTP 与 WebSocket 两种方式。
type ChatHandler struct {
	turns      service.TurnService
	jwtManager *token.JWTManager
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(turns service.TurnService, jwtManager *token.JWTManager) *ChatHandler {
	return &ChatHandler{turns: turns, jwtManager: jwtManager}
}

// ChatRequest 是一轮对话的输入。ConversationID 为空时新建会话。
type ChatRequest struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
}

type turnDTO struct {
	Conversation conversationDTO `json:"conversation"`
	Reply        messageDTO      `json:"reply"`
	Refused      bool            `json:"refused"`
	TitleUpdated bool            `json:"titleUpdated"`
}

func toTurnDTO(res *service.TurnResult) turnDTO {
	return turnDTO{
		Conversation: toConversationDTO(res.Conversation, false),
		Reply:        toMessageDTO(res.Reply),
		Refused:      res.Refused,
		TitleUpdated: res.TitleUpdated,
	}
}

// Greeting 返回空会话显示的开场白。
func (h *ChatHandler) Greeting(c *gin.Context) {
	respondOK(c, gin.H{"role": "assistant", "content": h.turns.Greeting()})
}

// Post 以 JSON 请求处理一轮对话。
func (h *ChatHandler) Post(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "无效的请求负载")
		return
	}
	res, err := h.turns.HandleTurn(c.Request.Context(), req.ConversationID, req.Content)
	if err != nil {
		respondError(c, "处理对话", err)
		return
	}
	respondOK(c, toTurnDTO(res))
}

// Handle 处理一个传入的 WebSocket 连接。每条客户端消息是一轮对话。
func (h *ChatHandler) Handle(c *gin.Context) {
	claims, err := h.jwtManager.VerifyToken(c.Param("token"))
	if err != nil {
		respondFail(c, http.StatusUnauthorized, "无效的 token")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立，会话: %s", claims.SessionID)

	if err := writeFrame(conn, gin.H{"type": "message", "message": gin.H{"role": "assistant", "content": h.turns.Greeting()}}); err != nil {
		return
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("从 WebSocket 读取消息失败: %v", err)
			}
			break
		}

		var req ChatRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			_ = writeFrame(conn, gin.H{"type": "error", "error": "无效的消息格式"})
			continue
		}

		res, err := h.turns.HandleTurn(c.Request.Context(), req.ConversationID, req.Content)
		if err != nil {
			_, message := errorStatus(err)
			log.Errorw("处理 WebSocket 对话失败", "session", claims.SessionID, "error", err)
			_ = writeFrame(conn, gin.H{"type": "error", "error": message})
			_ = writeCompletion(conn, "error")
			continue
		}

		dto := toTurnDTO(res)
		if err := writeFrame(conn, gin.H{"type": "conversation", "conversation": dto.Conversation, "titleUpdated": dto.TitleUpdated}); err != nil {
			break
		}
		if err := writeFrame(conn, gin.H{"type": "message", "message": dto.Reply, "refused": dto.Refused}); err != nil {
			break
		}
		if err := writeCompletion(conn, "finished"); err != nil {
			break
		}
	}
}

func writeFrame(conn *websocket.Conn, frame gin.H) error {
	b, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		log.Warnf("写入 WebSocket 消息失败: %v", err)
		return err
	}
	return nil
}

// writeCompletion 发送本轮结束通知，出错时也会发送。
func writeCompletion(conn *websocket.Conn, status string) error {
	return writeFrame(conn, gin.H{
		"type":      "completion",
		"status":    status,
		"timestamp": nowMillis(),
		"date":      time.Now().Format("2006-01-02T15:04:05"),
	})
}
