// Package pipeline 定义了异步 GMTX 文件摄入的核心流程。
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"gems-go/internal/apperr"
	"gems-go/internal/config"
	"gems-go/internal/model"
	"gems-go/internal/repository"
	"gems-go/internal/service"
	"gems-go/pkg/gmtx"
	"gems-go/pkg/log"
	"gems-go/pkg/storage"
	"gems-go/pkg/tasks"
)

// Processor 封装了 GMTX 摄入任务的所有依赖和逻辑。
type Processor struct {
	minioCfg      config.MinIOConfig
	ingestService service.IngestService
	jobRepo       repository.IngestJobRepository
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(minioCfg config.MinIOConfig, ingestService service.IngestService, jobRepo repository.IngestJobRepository) *Processor {
	return &Processor{
		minioCfg:      minioCfg,
		ingestService: ingestService,
		jobRepo:       jobRepo,
	}
}

// Process 处理一个摄入任务：下载文件、解析、摄入语料库、更新任务状态。
// 输入不合法（空文件、表头格式错误）时任务标记失败并返回 nil，
// 让消费端提交 offset；存储故障返回 error 交给 Kafka 重试。
func (p *Processor) Process(ctx context.Context, task tasks.IngestTask) error {
	log.Infof("[Processor] 开始处理摄入任务, JobID: %d, Object: %s", task.JobID, task.ObjectName)

	// 1. 从 MinIO 下载 GMTX 文件
	object, err := storage.GetObject(ctx, p.minioCfg.BucketName, task.ObjectName)
	if err != nil {
		log.Errorf("[Processor] 从 MinIO 下载文件失败, Object: %s, Error: %v", task.ObjectName, err)
		return fmt.Errorf("从 MinIO 下载文件失败: %w", err)
	}
	defer object.Close()

	buf := new(bytes.Buffer)
	size, err := buf.ReadFrom(object)
	if err != nil {
		log.Errorf("[Processor] 读取 MinIO 对象流失败, Error: %v", err)
		return fmt.Errorf("读取 MinIO 对象流失败: %w", err)
	}
	log.Infof("[Processor] 步骤1: 文件下载成功, 大小: %d 字节", size)
	if size == 0 {
		return p.fail(task.JobID, "文件内容为空")
	}

	// 2. 解析 GMTX 内容
	header, rows, err := gmtx.Parse(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return p.fail(task.JobID, "解析 GMTX 文件失败: "+err.Error())
	}
	if len(header) == 0 {
		return p.fail(task.JobID, "GMTX 文件没有表头")
	}
	log.Infof("[Processor] 步骤2: 解析完成, 表头 %d 列, 数据 %d 行", len(header), len(rows))

	// 3. 摄入语料库
	constants := service.ConstantFields{
		Source:  task.Source,
		Subtype: task.Subtype,
		TaxID:   task.TaxID,
		User:    task.User,
		Domain:  task.Domain,
	}
	diagnostics, err := p.ingestService.Ingest(ctx, header, rows, constants, model.GeneFormat(task.GeneFormat))
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			// 输入本身不合法，重试不会有结果
			return p.fail(task.JobID, err.Error())
		}
		log.Errorf("[Processor] 摄入失败, JobID: %d, Error: %v", task.JobID, err)
		return err
	}
	log.Infof("[Processor] 步骤3: 摄入完成, 行数: %d, 诊断: %d 条", len(rows), len(diagnostics))

	// 4. 更新任务状态
	if err := p.jobRepo.MarkCompleted(task.JobID, len(rows), strings.Join(diagnostics, "\n")); err != nil {
		log.Errorf("[Processor] 更新任务状态失败, JobID: %d, Error: %v", task.JobID, err)
		return fmt.Errorf("更新任务状态失败: %w", err)
	}
	return nil
}

// fail 把任务标记为失败并提交（返回 nil 让消费端提交 offset）。
func (p *Processor) fail(jobID uint, reason string) error {
	log.Warnf("[Processor] 摄入任务失败, JobID: %d, 原因: %s", jobID, reason)
	if err := p.jobRepo.MarkFailed(jobID, reason); err != nil {
		log.Errorf("[Processor] 记录任务失败状态出错, JobID: %d, Error: %v", jobID, err)
		return err
	}
	return nil
}
