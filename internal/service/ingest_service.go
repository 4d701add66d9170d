package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gems-go/internal/apperr"
	"gems-go/internal/config"
	"gems-go/internal/model"
	"gems-go/internal/repository"
	"gems-go/pkg/kafka"
	"gems-go/pkg/log"
	"gems-go/pkg/storage"
	"gems-go/pkg/tasks"

	"gorm.io/gorm"
)

// 表头词汇表：命中的列直接映射到文档字段，其余列进入 meta。
var acceptedHeaders = map[string]struct{}{
	"setName": {},
	"genes":   {},
	"xref":    {},
	"setId":   {},
	"desc":    {},
}

// 已知的系数类型。未知类型不拒绝，只记日志。
var acceptedCoeffTypes = map[string]struct{}{
	"CD": {}, "logFC": {}, "SAM": {}, "limma": {}, "gini": {}, "DESeq": {},
}

// 带系数的基因表头前缀与基因单元格内的系数分隔符。
const (
	geneCoeffHeaderPrefix = "genes | "
	coeffDelimiter        = " | "
)

// ConstantFields 是一个批次内所有基因集共有的常量字段。
type ConstantFields struct {
	Source  string
	Subtype string
	TaxID   int
	User    string
	Domain  string
}

// IngestService 接口定义了基因集摄入操作。
type IngestService interface {
	// Ingest 把一批表格数据转换为规范基因集文档并逐行 upsert。
	// 返回全部未解析基因的诊断消息；表头不合法时整批拒绝，不做部分写入。
	// 相同输入重复摄入产生相同的最终语料库状态（按键全量替换，最后写入胜出）。
	Ingest(ctx context.Context, header []string, rows [][]string, constants ConstantFields, format model.GeneFormat) ([]string, error)

	// IngestFromParams 是 Ingest 的 API 形态：常量字段以参数映射提供
	// （gf/so/ti/us 必需，st/do 可选），逻辑相同。
	IngestFromParams(ctx context.Context, header []string, rows [][]string, params map[string]interface{}) ([]string, error)

	// SubmitFile 把上传的 GMTX 文件写入对象存储，创建摄入任务记录并投递
	// Kafka 消息，返回任务 ID。实际解析与写入由消费端的流水线完成。
	SubmitFile(ctx context.Context, fileName string, r io.Reader, size int64, constants ConstantFields, format model.GeneFormat) (uint, error)

	// JobStatus 查询异步摄入任务的状态。
	JobStatus(id uint) (*model.IngestJob, error)
}

// ingestService 是 IngestService 接口的实现。
type ingestService struct {
	resolver    ResolverService
	genesetRepo repository.GenesetRepository
	jobRepo     repository.IngestJobRepository
	minioCfg    config.MinIOConfig
}

// NewIngestService 创建一个新的 IngestService 实例。
// jobRepo 仅被异步上传路径使用，纯批量调用方可以传 nil。
func NewIngestService(resolver ResolverService, genesetRepo repository.GenesetRepository, jobRepo repository.IngestJobRepository, minioCfg config.MinIOConfig) IngestService {
	return &ingestService{
		resolver:    resolver,
		genesetRepo: genesetRepo,
		jobRepo:     jobRepo,
		minioCfg:    minioCfg,
	}
}

// columnLayout 记录表头分类结果：各接受列与 meta 列的列号、基因起始列、
// 系数开关与类型。
type columnLayout struct {
	accepted   map[string]int
	meta       map[string]int
	genesStart int
	hasCoeff   bool
	coeffType  string
}

// classifyColumns 对表头做列分类。表头必须包含 setName，且最后一列必须是
// 'genes' 或 'genes | <coeffType>'——后者表示此后每个基因单元格自身是
// '<gene> | <coefficient>' 对。其它形状一律整批拒绝。
func classifyColumns(header []string) (*columnLayout, error) {
	if len(header) == 0 {
		return nil, apperr.Validationf("表头为空")
	}

	layout := &columnLayout{
		accepted: make(map[string]int),
		meta:     make(map[string]int),
	}

	last := header[len(header)-1]
	switch {
	case last == "genes":
	case strings.HasPrefix(last, geneCoeffHeaderPrefix):
		layout.hasCoeff = true
		layout.coeffType = strings.TrimPrefix(last, geneCoeffHeaderPrefix)
		if _, ok := acceptedCoeffTypes[layout.coeffType]; !ok {
			log.Warnf("[IngestService] 未知的系数类型 '%s'，按原样保留", layout.coeffType)
		}
	default:
		return nil, apperr.Validationf("表头最后一列必须是 'genes' 或 'genes | <coeffType>'，实际为 %q", last)
	}

	hasSetName := false
	for i, name := range header {
		if i == len(header)-1 {
			name = "genes"
		}
		if name == "setName" {
			hasSetName = true
		}
		if _, ok := acceptedHeaders[name]; ok {
			layout.accepted[name] = i
		} else {
			layout.meta[name] = i
		}
	}
	if !hasSetName {
		return nil, apperr.Validationf("表头缺少必需列 'setName'")
	}

	layout.genesStart = layout.accepted["genes"]
	return layout, nil
}

// assembleRow 把一行数据装配成规范基因集文档。
// 解析失败只记诊断；行形状或系数格式不合法则返回校验错误。
func (s *ingestService) assembleRow(ctx context.Context, rowIndex int, row []string, layout *columnLayout, constants ConstantFields, format model.GeneFormat, now time.Time, d *Diagnostics) (*model.Geneset, error) {
	for name, idx := range layout.accepted {
		if idx >= len(row) {
			return nil, apperr.Validationf("第 %d 行缺少列 '%s'", rowIndex+1, name)
		}
	}
	for name, idx := range layout.meta {
		if idx >= len(row) {
			return nil, apperr.Validationf("第 %d 行缺少列 '%s'", rowIndex+1, name)
		}
	}

	gs := &model.Geneset{
		Source:   constants.Source,
		Subtype:  constants.Subtype,
		TaxID:    constants.TaxID,
		User:     constants.User,
		Domain:   constants.Domain,
		HasCoeff: layout.hasCoeff,
		Comment:  "",
		Date:     now,
	}
	if layout.hasCoeff {
		gs.CoeffType = layout.coeffType
	}

	for name, idx := range layout.accepted {
		switch name {
		case "setName":
			gs.SetName = row[idx]
		case "setId":
			gs.SetID = row[idx]
		case "desc":
			gs.Desc = row[idx]
		case "xref":
			gs.Xref = row[idx]
		}
	}

	if len(layout.meta) > 0 {
		gs.Meta = make(map[string]string, len(layout.meta))
		for name, idx := range layout.meta {
			gs.Meta[name] = row[idx]
		}
	}

	// 从基因起始列到行尾，每个单元格是一个基因 token
	for _, cell := range row[layout.genesStart:] {
		token := cell
		var coeff *float64
		if layout.hasCoeff {
			parts := strings.SplitN(cell, coeffDelimiter, 2)
			if len(parts) != 2 {
				return nil, apperr.Validationf("第 %d 行的基因单元格 %q 缺少系数", rowIndex+1, cell)
			}
			token = parts[0]
			value, err := strconv.ParseFloat(parts[1], 64)
			if err != nil {
				return nil, apperr.Validationf("第 %d 行的系数 %q 无法解析为数字", rowIndex+1, parts[1])
			}
			coeff = &value
		}

		vec, err := s.resolver.Resolve(ctx, token, constants.TaxID, format, d)
		if err != nil {
			return nil, err
		}
		gs.Genes = append(gs.Genes, model.GeneEntry{Gene: vec, Coeff: coeff})
	}

	// 四个槽位全部解析成功的基因集才通过 QC
	gs.HasQC = true
	for _, entry := range gs.Genes {
		if !entry.Gene.Complete() {
			gs.HasQC = false
			break
		}
	}
	return gs, nil
}

// Ingest 执行一次批量摄入。先完成整批装配与校验再逐行 upsert，
// 因此校验失败不会留下部分写入；upsert 过程中的存储故障会留下
// 已提交的前缀，重试依靠按键全量替换保持幂等。
func (s *ingestService) Ingest(ctx context.Context, header []string, rows [][]string, constants ConstantFields, format model.GeneFormat) ([]string, error) {
	if !format.Valid() {
		return nil, apperr.Validationf("基因格式必须在 0-3 之间，实际为 %d", format)
	}

	layout, err := classifyColumns(header)
	if err != nil {
		return nil, err
	}

	log.Infof("[IngestService] 开始摄入批次, 行数: %d, source: %s, user: %s, hasCoeff: %v",
		len(rows), constants.Source, constants.User, layout.hasCoeff)

	d := &Diagnostics{}
	now := time.Now().UTC()
	docs := make([]*model.Geneset, 0, len(rows))
	for i, row := range rows {
		gs, err := s.assembleRow(ctx, i, row, layout, constants, format, now, d)
		if err != nil {
			return nil, err
		}
		docs = append(docs, gs)
	}

	for _, gs := range docs {
		if err := s.genesetRepo.Upsert(ctx, gs); err != nil {
			return d.Messages(), apperr.Storagef(err, "upsert 基因集 %q 失败", gs.SetName)
		}
	}

	log.Infof("[IngestService] 批次摄入完成, 写入 %d 个基因集, 诊断 %d 条", len(docs), len(d.Messages()))
	return d.Messages(), nil
}

// IngestFromParams 校验参数映射并转发给 Ingest。
func (s *ingestService) IngestFromParams(ctx context.Context, header []string, rows [][]string, params map[string]interface{}) ([]string, error) {
	for _, key := range []string{"gf", "so", "ti", "us"} {
		if _, ok := params[key]; !ok {
			return nil, apperr.Validationf("缺少必需参数 '%s'", key)
		}
	}

	format, err := paramInt(params["gf"])
	if err != nil {
		return nil, apperr.Validationf("参数 'gf' 无法解析为整数")
	}
	taxID, err := paramInt(params["ti"])
	if err != nil {
		return nil, apperr.Validationf("参数 'ti' 无法解析为整数")
	}

	constants := ConstantFields{
		Source: paramString(params["so"]),
		TaxID:  taxID,
		User:   paramString(params["us"]),
	}
	if v, ok := params["st"]; ok {
		constants.Subtype = paramString(v)
	}
	if v, ok := params["do"]; ok {
		constants.Domain = paramString(v)
	}

	return s.Ingest(ctx, header, rows, constants, model.GeneFormat(format))
}

// SubmitFile 落盘对象存储、登记任务并投递 Kafka 消息。
func (s *ingestService) SubmitFile(ctx context.Context, fileName string, r io.Reader, size int64, constants ConstantFields, format model.GeneFormat) (uint, error) {
	if !format.Valid() {
		return 0, apperr.Validationf("基因格式必须在 0-3 之间，实际为 %d", format)
	}

	objectName := fmt.Sprintf("gmtx/%d_%s", time.Now().UnixNano(), fileName)
	if err := storage.PutObject(ctx, s.minioCfg.BucketName, objectName, r, size); err != nil {
		return 0, apperr.Storagef(err, "写入对象存储失败, object: %s", objectName)
	}

	job := &model.IngestJob{
		ObjectName: objectName,
		FileName:   fileName,
		Source:     constants.Source,
		Subtype:    constants.Subtype,
		TaxID:      constants.TaxID,
		User:       constants.User,
		Domain:     constants.Domain,
		GeneFormat: int(format),
		Status:     model.IngestJobPending,
	}
	if err := s.jobRepo.Create(job); err != nil {
		return 0, apperr.Storagef(err, "创建摄入任务记录失败")
	}

	task := tasks.IngestTask{
		JobID:      job.ID,
		ObjectName: objectName,
		FileName:   fileName,
		Source:     constants.Source,
		Subtype:    constants.Subtype,
		TaxID:      constants.TaxID,
		User:       constants.User,
		Domain:     constants.Domain,
		GeneFormat: int(format),
	}
	if err := kafka.ProduceIngestTask(task); err != nil {
		_ = s.jobRepo.MarkFailed(job.ID, "投递摄入任务失败: "+err.Error())
		return 0, apperr.Storagef(err, "投递摄入任务失败, jobID: %d", job.ID)
	}

	log.Infof("[IngestService] 摄入任务已提交, jobID: %d, object: %s", job.ID, objectName)
	return job.ID, nil
}

// JobStatus 查询摄入任务状态。
func (s *ingestService) JobStatus(id uint) (*model.IngestJob, error) {
	job, err := s.jobRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("摄入任务 %d 不存在", id)
		}
		return nil, apperr.Storagef(err, "查询摄入任务 %d 失败", id)
	}
	return job, nil
}

// paramInt 宽容地把 JSON/查询参数值转成 int（JSON 数字解码为 float64）。
func paramInt(v interface{}) (int, error) {
	switch value := v.(type) {
	case int:
		return value, nil
	case float64:
		return int(value), nil
	case string:
		return strconv.Atoi(value)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

// paramString 把参数值转成字符串。
func paramString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
