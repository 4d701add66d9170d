package service

import (
	"context"
	"strconv"
	"strings"

	"gems-go/internal/apperr"
	"gems-go/internal/model"
	"gems-go/internal/repository"
	"gems-go/pkg/log"

	"go.mongodb.org/mongo-driver/bson"
)

// 相似度查询的必需参数集与受支持的方法。
var (
	similarRequiredParams = map[string]struct{}{
		"setName": {}, "source": {}, "subtype": {}, "user": {},
		"method": {}, "threshold": {},
	}
	similarMethods = map[string]struct{}{"jaccard": {}, "overlap": {}}
)

// QueryService 接口定义了基因集的过滤查询、相似度搜索与删除操作。
type QueryService interface {
	// Query 按条件过滤语料库并做字段投影。
	// criteria 的 setName 按子串/正则匹配；requiredGenes 的每个 token 要求
	// 文档至少包含一个身份向量任意槽位等于该 token 的基因条目（AND 组合）。
	// returnParams 为 nil 时返回除内部 ID 外的全部字段；否则精确返回所列
	// 字段，文档上缺失的字段以空串占位，键从不省略。
	// 既无条件又无 requiredGenes 是校验失败，不是空结果。
	Query(ctx context.Context, criteria map[string]string, returnParams []string, requiredGenes []string) ([]map[string]interface{}, error)

	// ExportGMT 以制表符分隔的 'setName desc 基因...' 行导出查询结果，
	// 基因列是非空的人源化符号。
	ExportGMT(ctx context.Context, criteria map[string]string, requiredGenes []string) (string, error)

	// Similar 对目标基因集执行相似度扫描。参数校验失败返回校验错误；
	// 目标不存在或目标没有可比较的基因返回空结果（fail closed）。
	Similar(ctx context.Context, params map[string]string) ([]model.SimilarResult, error)

	// Remove 按唯一性四元组删除基因集。任何一个目标键形状不对或属于
	// Public 用户时，整个调用失败，不删除任何文档。
	Remove(ctx context.Context, rawKeys []map[string]string) error
}

// queryService 是 QueryService 接口的实现。
type queryService struct {
	genesetRepo repository.GenesetRepository
}

// NewQueryService 创建一个新的 QueryService 实例。
func NewQueryService(genesetRepo repository.GenesetRepository) QueryService {
	return &queryService{genesetRepo: genesetRepo}
}

// buildFilter 把查询条件与必含基因列表转成 Mongo 过滤器。
// setName 作为正则（子串）匹配；数值与布尔字段从字符串还原类型。
func buildFilter(criteria map[string]string, requiredGenes []string) bson.M {
	fields := bson.M{}
	for key, value := range criteria {
		switch key {
		case "setName":
			fields[key] = bson.M{"$regex": value}
		case "taxId":
			if n, err := strconv.Atoi(value); err == nil {
				fields[key] = n
			} else {
				fields[key] = value
			}
		case "hasCoeff", "hasQC":
			if b, err := strconv.ParseBool(value); err == nil {
				fields[key] = b
			} else {
				fields[key] = value
			}
		default:
			fields[key] = value
		}
	}

	if len(requiredGenes) == 0 {
		return fields
	}

	clauses := bson.A{}
	for _, gene := range requiredGenes {
		clauses = append(clauses, repository.GeneMembershipFilter(gene))
	}
	if len(fields) > 0 {
		clauses = append(clauses, fields)
	}
	return bson.M{"$and": clauses}
}

// docToMap 把基因集文档展开成按字段名寻址的映射，供投影使用。
// 可选字段只有在文档上存在时才出现。
func docToMap(gs *model.Geneset) map[string]interface{} {
	doc := map[string]interface{}{
		"setName":  gs.SetName,
		"source":   gs.Source,
		"subtype":  gs.Subtype,
		"taxId":    gs.TaxID,
		"hasCoeff": gs.HasCoeff,
		"genes":    gs.Genes,
		"user":     gs.User,
		"domain":   gs.Domain,
		"hasQC":    gs.HasQC,
		"comment":  gs.Comment,
		"date":     gs.Date,
	}
	if gs.CoeffType != "" {
		doc["coeffType"] = gs.CoeffType
	}
	if gs.SetID != "" {
		doc["setId"] = gs.SetID
	}
	if gs.Desc != "" {
		doc["desc"] = gs.Desc
	}
	if gs.Xref != "" {
		doc["xref"] = gs.Xref
	}
	if gs.Meta != nil {
		doc["meta"] = gs.Meta
	}
	return doc
}

// project 按 returnParams 对文档映射做投影。
func project(doc map[string]interface{}, returnParams []string) map[string]interface{} {
	if returnParams == nil {
		return doc
	}
	out := make(map[string]interface{}, len(returnParams))
	for _, param := range returnParams {
		if value, ok := doc[param]; ok {
			out[param] = value
		} else {
			out[param] = ""
		}
	}
	return out
}

// Query 执行过滤查询。
func (s *queryService) Query(ctx context.Context, criteria map[string]string, returnParams []string, requiredGenes []string) ([]map[string]interface{}, error) {
	if len(criteria) == 0 && len(requiredGenes) == 0 {
		return nil, apperr.Validationf("查询条件与 genes 参数不能同时为空")
	}

	docs, err := s.genesetRepo.Find(ctx, buildFilter(criteria, requiredGenes))
	if err != nil {
		return nil, apperr.Storagef(err, "查询基因集失败")
	}

	output := make([]map[string]interface{}, 0, len(docs))
	for i := range docs {
		output = append(output, project(docToMap(&docs[i]), returnParams))
	}
	log.Infof("[QueryService] 查询完成, 条件数: %d, 必含基因数: %d, 返回 %d 条", len(criteria), len(requiredGenes), len(output))
	return output, nil
}

// ExportGMT 导出 GMT 格式文本。
func (s *queryService) ExportGMT(ctx context.Context, criteria map[string]string, requiredGenes []string) (string, error) {
	if len(criteria) == 0 && len(requiredGenes) == 0 {
		return "", apperr.Validationf("查询条件与 genes 参数不能同时为空")
	}

	docs, err := s.genesetRepo.Find(ctx, buildFilter(criteria, requiredGenes))
	if err != nil {
		return "", apperr.Storagef(err, "查询基因集失败")
	}

	lines := make([]string, 0, len(docs))
	for i := range docs {
		gs := &docs[i]
		parts := []string{gs.SetName, gs.Desc}
		for _, entry := range gs.Genes {
			if entry.Gene.HumanizedSymbol != "" {
				parts = append(parts, entry.Gene.HumanizedSymbol)
			}
		}
		lines = append(lines, strings.Join(parts, "\t"))
	}
	return strings.Join(lines, "\n"), nil
}

// Similar 执行相似度扫描。
func (s *queryService) Similar(ctx context.Context, params map[string]string) ([]model.SimilarResult, error) {
	// 1. 参数集必须恰好等于必需集
	if len(params) != len(similarRequiredParams) {
		return nil, apperr.Validationf("相似度查询需要且仅需要参数 setName, source, subtype, user, method, threshold")
	}
	for key := range similarRequiredParams {
		if _, ok := params[key]; !ok {
			return nil, apperr.Validationf("缺少必需参数 '%s'", key)
		}
	}

	threshold, err := strconv.ParseFloat(params["threshold"], 64)
	if err != nil {
		return nil, apperr.Validationf("threshold %q 无法解析为数字", params["threshold"])
	}
	method := params["method"]
	if _, ok := similarMethods[method]; !ok {
		return nil, apperr.Validationf("不支持的相似度方法 %q", method)
	}

	// 2. 目标必须解析为恰好一个文档；不存在时返回空结果而不是错误
	key := model.GenesetKey{
		SetName: params["setName"],
		Source:  params["source"],
		Subtype: params["subtype"],
		User:    params["user"],
	}
	target, err := s.genesetRepo.FindByKey(ctx, key)
	if err != nil {
		return nil, apperr.Storagef(err, "查询目标基因集失败")
	}
	if target == nil {
		log.Infof("[QueryService] 相似度目标不存在: %+v", key)
		return []model.SimilarResult{}, nil
	}

	targetSet := target.HumanizedSymbolSet()
	if len(targetSet) == 0 {
		return []model.SimilarResult{}, nil
	}

	// 3. 候选剪枝：只扫描与目标至少共享一个人源化符号的文档，
	//    交集必为零的文档不参与比较
	symbols := make([]string, 0, len(targetSet))
	for sym := range targetSet {
		symbols = append(symbols, sym)
	}
	candidates, err := s.genesetRepo.FindSharingSymbols(ctx, symbols)
	if err != nil {
		return nil, apperr.Storagef(err, "查询候选基因集失败")
	}

	// 4. 逐个候选计算相似度并按阈值过滤
	results := make([]model.SimilarResult, 0, len(candidates))
	for i := range candidates {
		candidateSet := candidates[i].HumanizedSymbolSet()
		var sim float64
		switch method {
		case "jaccard":
			sim = similarityJaccard(candidateSet, targetSet)
		case "overlap":
			sim = similarityOverlap(candidateSet, targetSet)
		}
		if sim >= threshold {
			results = append(results, model.SimilarResult{
				SetName: candidates[i].SetName,
				Source:  candidates[i].Source,
				Coeff:   sim,
			})
		}
	}

	log.Infof("[QueryService] 相似度扫描完成, method: %s, 候选 %d, 命中 %d", method, len(candidates), len(results))
	return results, nil
}

// Remove 删除基因集。先整体校验，再逐个删除。
func (s *queryService) Remove(ctx context.Context, rawKeys []map[string]string) error {
	if len(rawKeys) == 0 {
		return apperr.Validationf("genesets 列表为空")
	}

	keys := make([]model.GenesetKey, 0, len(rawKeys))
	for _, raw := range rawKeys {
		if len(raw) != len(model.GenesetUniqueFields) {
			return apperr.Validationf("删除目标的键必须恰好是 %v", model.GenesetUniqueFields)
		}
		for _, field := range model.GenesetUniqueFields {
			if _, ok := raw[field]; !ok {
				return apperr.Validationf("删除目标缺少键 '%s'", field)
			}
		}
		if raw["user"] == model.PublicUser {
			return apperr.Validationf("Public 所有的基因集不可删除")
		}
		keys = append(keys, model.GenesetKey{
			SetName: raw["setName"],
			Source:  raw["source"],
			Subtype: raw["subtype"],
			User:    raw["user"],
		})
	}

	for _, key := range keys {
		if err := s.genesetRepo.Delete(ctx, key); err != nil {
			return apperr.Storagef(err, "删除基因集 %q 失败", key.SetName)
		}
	}
	log.Infof("[QueryService] 删除完成, 共 %d 个基因集", len(keys))
	return nil
}
