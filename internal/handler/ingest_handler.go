package handler

import (
	"fmt"
	"net/http"

	"gems-go/internal/service"
	"gems-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// IngestHandler 结构体定义了同步摄入相关的处理器。
type IngestHandler struct {
	ingestService service.IngestService
}

// NewIngestHandler 创建一个新的 IngestHandler 实例。
func NewIngestHandler(ingestService service.IngestService) *IngestHandler {
	return &IngestHandler{ingestService: ingestService}
}

// Insert 处理 POST /api/insert：请求体必须恰好包含
// headers（表头行）、parsed（数据行）、params（批量常量参数）三个键。
// 成功时返回完整的未解析基因诊断列表，即使其中有未解析的基因。
func (h *IngestHandler) Insert(c *gin.Context) {
	var data map[string]interface{}
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 JSON 请求体"})
		return
	}
	if len(data) != 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求体必须恰好包含 headers, parsed, params"})
		return
	}
	for _, key := range []string{"headers", "parsed", "params"} {
		if _, ok := data[key]; !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("请求体缺少 '%s'", key)})
			return
		}
	}

	header := toStringList(data["headers"])
	rows, ok := toRows(data["parsed"])
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "parsed 必须是字符串二维数组"})
		return
	}
	params, ok := data["params"].(map[string]interface{})
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "params 必须是对象"})
		return
	}

	diagnostics, err := h.ingestService.IngestFromParams(c.Request.Context(), header, rows, params)
	if err != nil {
		log.Warnf("[IngestHandler] 摄入失败: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": diagnostics})
}

// toRows 把 JSON 中的二维数组转成 [][]string。
func toRows(v interface{}) ([][]string, bool) {
	raw, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	rows := make([][]string, 0, len(raw))
	for _, item := range raw {
		row := toStringList(item)
		if row == nil {
			return nil, false
		}
		rows = append(rows, row)
	}
	return rows, true
}
