package handler

import (
	"net/http"
	"strconv"

	"gems-go/internal/model"
	"gems-go/internal/service"
	"gems-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// UploadHandler 结构体定义了异步 GMTX 文件摄入相关的处理器。
type UploadHandler struct {
	ingestService service.IngestService
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(ingestService service.IngestService) *UploadHandler {
	return &UploadHandler{ingestService: ingestService}
}

// Upload 处理 POST /api/upload：multipart 表单包含 GMTX 文件（file）
// 与批量常量参数（so/ti/us/gf 必需，st/do 可选）。文件写入对象存储后
// 投递异步摄入任务，返回任务 ID 供状态查询。
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少上传文件 'file'"})
		return
	}

	for _, key := range []string{"so", "ti", "us", "gf"} {
		if c.PostForm(key) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "缺少必需参数 '" + key + "'"})
			return
		}
	}
	taxID, err := strconv.Atoi(c.PostForm("ti"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数 'ti' 无法解析为整数"})
		return
	}
	format, err := strconv.Atoi(c.PostForm("gf"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数 'gf' 无法解析为整数"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法读取上传文件"})
		return
	}
	defer file.Close()

	constants := service.ConstantFields{
		Source:  c.PostForm("so"),
		Subtype: c.PostForm("st"),
		TaxID:   taxID,
		User:    c.PostForm("us"),
		Domain:  c.PostForm("do"),
	}
	jobID, err := h.ingestService.SubmitFile(c.Request.Context(), fileHeader.Filename, file, fileHeader.Size, constants, model.GeneFormat(format))
	if err != nil {
		log.Warnf("[UploadHandler] 提交摄入任务失败: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": gin.H{"jobId": jobID}})
}

// Status 处理 GET /api/upload/status：按 jobId 查询异步摄入任务状态。
func (h *UploadHandler) Status(c *gin.Context) {
	jobID, err := strconv.Atoi(c.Query("jobId"))
	if err != nil || jobID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数 'jobId' 无法解析为正整数"})
		return
	}

	job, err := h.ingestService.JobStatus(uint(jobID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": job})
}
