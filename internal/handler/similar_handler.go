package handler

import (
	"net/http"

	"gems-go/internal/service"
	"gems-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// SimilarHandler 结构体定义了相似度搜索相关的处理器。
type SimilarHandler struct {
	queryService service.QueryService
}

// NewSimilarHandler 创建一个新的 SimilarHandler 实例。
func NewSimilarHandler(queryService service.QueryService) *SimilarHandler {
	return &SimilarHandler{queryService: queryService}
}

// Get 处理 GET /api/similar：参数必须恰好是
// setName, source, subtype, user, method, threshold。
// 参数不合法返回 400；目标不存在返回 200 与空列表。
func (h *SimilarHandler) Get(c *gin.Context) {
	params := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	results, err := h.queryService.Similar(c.Request.Context(), params)
	if err != nil {
		log.Warnf("[SimilarHandler] 相似度查询失败: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": results})
}
