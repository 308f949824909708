// Package token 提供了用于生成和验证会话 JSON Web Tokens (JWT) 的功能。
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTManager 负责管理会话 JWT 的生成和验证。
type JWTManager struct {
	secretKey  []byte        // secretKey 用于签名和验证 token 的密钥
	sessionDur time.Duration // sessionDur 定义了会话 token 的有效期
}

// SessionClaims 是会话 token 中携带的数据。
// 它嵌入了 jwt.RegisteredClaims 以包含标准的 JWT 声明（如过期时间）。
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// NewJWTManager 创建一个新的 JWTManager 实例。
// secret: 用于签名的密钥字符串。
// sessionExpireHours: 会话 token 的过期时间（小时）。
func NewJWTManager(secret string, sessionExpireHours int) *JWTManager {
	return &JWTManager{
		secretKey:  []byte(secret),
		sessionDur: time.Hour * time.Duration(sessionExpireHours),
	}
}

// GenerateToken 为新会话签发 token，返回 token 与会话 ID。
func (m *JWTManager) GenerateToken() (string, string, error) {
	sessionID := uuid.NewString()
	now := time.Now()
	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.sessionDur)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	// 使用 HS256 签名方法创建新的 token 对象
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
	if err != nil {
		return "", "", err
	}
	return signed, sessionID, nil
}

// VerifyToken 验证给定的 token 字符串。
// 如果 token 无效（例如，签名不匹配或已过期），则返回错误。
func (m *JWTManager) VerifyToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 检查签名方法是否为 HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
