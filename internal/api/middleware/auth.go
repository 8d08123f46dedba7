package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	jwtutil "github.com/xutongxue233/wanjielunhui-sub001/pkg/jwt"
)

// Auth JWT 인증 미들웨어. 토큰은 계정 서비스가 발급한다
func Auth(jwtManager *jwtutil.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			c.Abort()
			return
		}

		claims, err := jwtManager.Verify(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		// 검증 성공 - 플레이어 정보를 context에 저장
		c.Set("playerId", claims.PlayerID)
		c.Set("playerName", claims.Name)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// AdminOnly Auth 뒤에 사용
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != jwtutil.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Admin role required",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// bearerToken "Bearer <token>" 헤더, 브라우저 WebSocket은 ?token= 허용
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		token := c.Query("token")
		return token, token != "" && c.IsWebsocket()
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
