package handler

import (
	"errors"
	"strconv"

	"nexchat/pkg/apperr"
	"nexchat/pkg/logger"
	"nexchat/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError 业务错误统一映射为HTTP响应
// 未分类的错误一律500，细节只记日志不外泄
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalid):
		response.BadRequest(c, err.Error())
	case errors.Is(err, apperr.ErrUnauthorized):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, apperr.ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, apperr.ErrConflict):
		response.Conflict(c, err.Error())
	default:
		logger.Error("内部错误",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		response.InternalError(c, "服务内部错误")
	}
}

// paramUint 解析路径参数为uint，失败返回0
func paramUint(c *gin.Context, name string) uint {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0
	}
	return uint(v)
}

// queryInt 解析查询参数为int，缺失或非法返回默认值
func queryInt(c *gin.Context, name string, defaultValue int) int {
	v, err := strconv.Atoi(c.DefaultQuery(name, ""))
	if err != nil {
		return defaultValue
	}
	return v
}
