package service

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"

	"gems-go/internal/apperr"
	"gems-go/internal/model"
	"gems-go/internal/repository"
	"gems-go/pkg/log"
)

// NCBI gene_info 的列号。
const (
	geneInfoTaxIDCol    = 0
	geneInfoGeneIDCol   = 1
	geneInfoSymbolCol   = 2
	geneInfoSynonymCol  = 4
	geneInfoOfficialCol = 10
)

// HomoloGene 数据文件的列号。
const (
	homologeneGroupCol  = 0
	homologeneTaxIDCol  = 1
	homologeneGeneIDCol = 2
)

// ReferenceService 接口定义了参考表的整体重建操作。
// 两张参考表只会 drop + recreate，从不增量修改。
type ReferenceService interface {
	Rebuild(ctx context.Context, geneInfoPath, homologenePath string) (geneCount, groupCount int, err error)
}

// referenceService 是 ReferenceService 接口的实现。
type referenceService struct {
	geneRepo repository.GeneRepository
}

// NewReferenceService 创建一个新的 ReferenceService 实例。
func NewReferenceService(geneRepo repository.GeneRepository) ReferenceService {
	return &referenceService{geneRepo: geneRepo}
}

// Rebuild 解析两个上游数据文件并整体重建参考表。
func (s *referenceService) Rebuild(ctx context.Context, geneInfoPath, homologenePath string) (int, int, error) {
	log.Infof("[ReferenceService] 开始解析 gene_info 文件: %s", geneInfoPath)
	genes, err := parseGeneInfo(geneInfoPath)
	if err != nil {
		return 0, 0, err
	}
	log.Infof("[ReferenceService] gene_info 解析完成, 共 %d 条基因记录", len(genes))

	log.Infof("[ReferenceService] 开始解析 HomoloGene 文件: %s", homologenePath)
	groups, err := parseHomologene(homologenePath)
	if err != nil {
		return 0, 0, err
	}
	log.Infof("[ReferenceService] HomoloGene 解析完成, 共 %d 个同源组", len(groups))

	if err := s.geneRepo.RebuildReference(ctx, genes, groups); err != nil {
		return 0, 0, apperr.Storagef(err, "重建参考表失败")
	}
	log.Info("[ReferenceService] 参考表重建完成")
	return len(genes), len(groups), nil
}

// parseGeneInfo 解析 NCBI gene_info 制表符文件（首行是表头）。
// 同义词列用 '|' 分隔，'-' 表示无；官方符号列同样以 '-' 为空值哨兵。
func parseGeneInfo(path string) ([]model.GeneRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Validationf("无法打开 gene_info 文件 %s: %v", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var records []model.GeneRecord
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) <= geneInfoSynonymCol {
			continue
		}

		taxID, err := strconv.Atoi(cols[geneInfoTaxIDCol])
		if err != nil {
			continue
		}
		geneID, err := strconv.Atoi(cols[geneInfoGeneIDCol])
		if err != nil {
			continue
		}

		record := model.GeneRecord{
			GeneID: geneID,
			TaxID:  taxID,
			Symbol: cols[geneInfoSymbolCol],
		}
		if raw := cols[geneInfoSynonymCol]; raw != "-" {
			record.Synonyms = strings.Split(raw, "|")
		}
		if len(cols) > geneInfoOfficialCol && cols[geneInfoOfficialCol] != "-" {
			record.SymbolOfficial = cols[geneInfoOfficialCol]
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// parseHomologene 解析 HomoloGene 数据文件，按组号聚合成员。
func parseHomologene(path string) ([]model.HomologyGroup, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Validationf("无法打开 HomoloGene 文件 %s: %v", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	byGroup := make(map[int]*model.HomologyGroup)
	var order []int
	for scanner.Scan() {
		cols := strings.Split(scanner.Text(), "\t")
		if len(cols) <= homologeneGeneIDCol {
			continue
		}
		groupID, err := strconv.Atoi(cols[homologeneGroupCol])
		if err != nil {
			continue
		}
		taxID, err := strconv.Atoi(cols[homologeneTaxIDCol])
		if err != nil {
			continue
		}
		geneID, err := strconv.Atoi(cols[homologeneGeneIDCol])
		if err != nil {
			continue
		}

		group, ok := byGroup[groupID]
		if !ok {
			group = &model.HomologyGroup{GroupID: groupID}
			byGroup[groupID] = group
			order = append(order, groupID)
		}
		group.Members = append(group.Members, model.HomologyMember{TaxID: taxID, GeneID: geneID})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	groups := make([]model.HomologyGroup, 0, len(byGroup))
	for _, id := range order {
		groups = append(groups, *byGroup[id])
	}
	return groups, nil
}
