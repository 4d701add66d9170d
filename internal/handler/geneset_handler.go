package handler

import (
	"fmt"
	"net/http"
	"strings"

	"gems-go/internal/service"
	"gems-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// GenesetHandler 结构体定义了基因集查询与删除相关的处理器。
type GenesetHandler struct {
	queryService service.QueryService
}

// NewGenesetHandler 创建一个新的 GenesetHandler 实例。
func NewGenesetHandler(queryService service.QueryService) *GenesetHandler {
	return &GenesetHandler{queryService: queryService}
}

// Get 处理 GET /api/genesets：URL 查询串即过滤条件，
// 保留键 returnParams（投影列表）、genes（必含基因列表）与
// getGmt（返回制表符分隔的 GMT 导出而不是 JSON）。
func (h *GenesetHandler) Get(c *gin.Context) {
	criteria := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			criteria[key] = values[0]
		}
	}

	var returnParams []string
	if raw, ok := criteria[returnParamsKey]; ok {
		delete(criteria, returnParamsKey)
		returnParams = strings.Split(raw, ",")
	}
	var genes []string
	if raw, ok := criteria[genesParamKey]; ok {
		delete(criteria, genesParamKey)
		genes = strings.Split(raw, ",")
	}
	getGmt := false
	if raw, ok := criteria[gmtParamKey]; ok {
		delete(criteria, gmtParamKey)
		getGmt = raw == "true" || raw == "True"
	}

	if getGmt {
		tsv, err := h.queryService.ExportGMT(c.Request.Context(), criteria, genes)
		if err != nil {
			log.Warnf("[GenesetHandler] GMT 导出失败: %v", err)
			respondError(c, err)
			return
		}
		c.Data(http.StatusOK, "application/octet-stream", []byte(tsv))
		return
	}

	output, err := h.queryService.Query(c.Request.Context(), criteria, returnParams, genes)
	if err != nil {
		log.Warnf("[GenesetHandler] 查询失败: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": output})
}

// Post 处理 POST /api/genesets：与 Get 相同的查询逻辑，参数来自 JSON 体。
func (h *GenesetHandler) Post(c *gin.Context) {
	var data map[string]interface{}
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 JSON 请求体"})
		return
	}

	var returnParams []string
	if raw, ok := data[returnParamsKey]; ok {
		delete(data, returnParamsKey)
		returnParams = toStringList(raw)
	}
	var genes []string
	if raw, ok := data[genesParamKey]; ok {
		delete(data, genesParamKey)
		genes = toStringList(raw)
	}

	criteria := make(map[string]string, len(data))
	for key, value := range data {
		criteria[key] = fmt.Sprint(value)
	}

	output, err := h.queryService.Query(c.Request.Context(), criteria, returnParams, genes)
	if err != nil {
		log.Warnf("[GenesetHandler] 查询失败: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": output})
}

// Remove 处理 POST /api/remove：按唯一性四元组删除基因集。
// 任何一个目标不合法（键形状不对或属于 Public）时整个调用失败。
func (h *GenesetHandler) Remove(c *gin.Context) {
	var body struct {
		Genesets []map[string]string `json:"genesets"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Genesets == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求体必须包含 genesets 列表"})
		return
	}

	if err := h.queryService.Remove(c.Request.Context(), body.Genesets); err != nil {
		log.Warnf("[GenesetHandler] 删除失败: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": "ok"})
}

// toStringList 把 JSON 中的字符串或字符串数组统一成 []string。
func toStringList(v interface{}) []string {
	switch value := v.(type) {
	case string:
		return strings.Split(value, ",")
	case []interface{}:
		out := make([]string, 0, len(value))
		for _, item := range value {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case []string:
		return value
	default:
		return nil
	}
}
