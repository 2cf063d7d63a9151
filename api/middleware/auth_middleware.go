package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anoixa/shock-panel/api/common"
	"github.com/anoixa/shock-panel/internal/auth"
	"github.com/gin-gonic/gin"
)

const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
)

// JWTAuth 解析 Authorization 头中的 Bearer 令牌，将用户身份写入上下文。
// 所有 /api/v1 路由都经过此检查，处理器只拿到已解析的用户 ID。
func JWTAuth(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			common.RespondError(c, http.StatusUnauthorized, "No Authorization request header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 {
			common.RespondError(c, http.StatusBadRequest, "Authorization field format error")
			c.Abort()
			return
		}

		if parts[0] != "Bearer" {
			common.RespondError(c, http.StatusUnauthorized, "Unsupported authentication scheme")
			c.Abort()
			return
		}

		if err := resolveToken(c, jwtService, parts[1]); err != nil {
			common.RespondError(c, http.StatusUnauthorized, err.Error())
			c.Abort()
			return
		}

		c.Next()
	}
}

func resolveToken(c *gin.Context, jwtService *auth.JWTService, token string) error {
	if jwtService == nil {
		return errors.New("JWT service not initialized")
	}

	claims, err := jwtService.ExtractClaims(token)
	if err != nil {
		return errors.New("invalid or expired token")
	}
	if claims.Type != "access" {
		return errors.New("not an access token")
	}
	if claims.UserID == 0 {
		return errors.New("user_id not found in token claims")
	}

	// 将用户信息存入上下文
	c.Set(ContextUserIDKey, claims.UserID)
	c.Set(ContextUsernameKey, claims.Username)

	return nil
}
