package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/service"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/logger"
)

// statusOf 에러 분류 -> HTTP 상태
func statusOf(kind service.ErrorKind) int {
	switch kind {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	case service.KindInvalidState:
		return http.StatusUnprocessableEntity
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindInvalid:
		return http.StatusBadRequest
	case service.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError 서비스 에러를 {error, kind} 응답으로 변환
func respondError(c *gin.Context, err error) {
	kind := service.KindOf(err)
	status := statusOf(kind)

	message := "Internal server error"
	var svcErr *service.Error
	if errors.As(err, &svcErr) && kind != service.KindInternal {
		message = svcErr.Message
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			"path", c.FullPath(),
			"status", status,
			"error", err)
	}

	c.JSON(status, gin.H{
		"error": message,
		"kind":  kind,
	})
}

// playerID 인증 미들웨어가 넣은 플레이어 ID
func playerID(c *gin.Context) (string, bool) {
	id := c.GetString("playerId")
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Player not authenticated",
		})
		return "", false
	}
	return id, true
}
