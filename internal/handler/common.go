// Package handler 存放 Gin 框架的 HTTP 处理器。
package handler

import (
	"errors"
	"net/http"

	"gems-go/internal/apperr"

	"github.com/gin-gonic/gin"
)

// 查询接口的保留控制键。
const (
	returnParamsKey = "returnParams"
	genesParamKey   = "genes"
	gmtParamKey     = "getGmt"
)

// respondError 按错误类别映射 HTTP 状态码：
// 校验失败 400、目标不存在 404、其余（含存储故障）500。
// 调用方必须区分"空结果"（200 + 空列表）与"坏请求"，不得混为一谈。
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
