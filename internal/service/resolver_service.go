package service

import (
	"context"
	"strconv"

	"gems-go/internal/apperr"
	"gems-go/internal/model"
	"gems-go/internal/repository"
	"gems-go/pkg/log"
)

// ResolverService 接口定义了基因身份解析操作：把一个基因 token
// （符号或数字 ID，原生或人源化坐标系）归一化为规范的 4 槽位身份向量。
//
// 解析失败从不作为 error 返回：未解析的槽位为空字符串，每个失败以
// 诊断消息的形式记入收集器，由调用方决定如何呈现。error 只在底层存储
// 故障时返回。
type ResolverService interface {
	Resolve(ctx context.Context, token string, taxID int, format model.GeneFormat, d *Diagnostics) (model.GeneIdentityVector, error)
}

// resolverService 是 ResolverService 接口的实现。
type resolverService struct {
	geneRepo   repository.GeneRepository
	humanTaxID int
}

// NewResolverService 创建一个新的 ResolverService 实例。
// humanTaxID 是"人源化"坐标系的参考物种分类号。
func NewResolverService(geneRepo repository.GeneRepository, humanTaxID int) ResolverService {
	return &resolverService{geneRepo: geneRepo, humanTaxID: humanTaxID}
}

// Resolve 按输入格式分派到对应的解析链。四种格式进入同一条
// 符号⇄ID、再跨物种映射的两步链，只是入口不同；对同一个基因，
// 四种入口必须产出一致的 4 槽位向量。
//
// 完整解析出的向量会写入 Redis 缓存；不完整的向量不缓存，
// 以保证重复摄入时诊断消息仍会产生。
func (s *resolverService) Resolve(ctx context.Context, token string, taxID int, format model.GeneFormat, d *Diagnostics) (model.GeneIdentityVector, error) {
	if cached, err := s.geneRepo.GetCachedVector(ctx, format, taxID, token); err != nil {
		log.Warnf("[ResolverService] 读取解析缓存失败, token: %s, err: %v", token, err)
	} else if cached != nil {
		return *cached, nil
	}

	var vec model.GeneIdentityVector
	var err error
	switch format {
	case model.FormatNativeSymbol:
		vec, err = s.fromNativeSymbol(ctx, token, taxID, d)
	case model.FormatNativeID:
		vec, err = s.fromNativeID(ctx, token, taxID, d)
	case model.FormatHumanizedSymbol:
		vec, err = s.fromHumanizedSymbol(ctx, token, taxID, d)
	case model.FormatHumanizedID:
		vec, err = s.fromHumanizedID(ctx, token, taxID, d)
	default:
		return vec, apperr.Validationf("不支持的基因格式: %d", format)
	}
	if err != nil {
		return vec, apperr.Storagef(err, "解析基因 %q (taxId %d) 失败", token, taxID)
	}

	if vec.Complete() {
		if err := s.geneRepo.SetCachedVector(ctx, format, taxID, token, vec); err != nil {
			log.Warnf("[ResolverService] 写入解析缓存失败, token: %s, err: %v", token, err)
		}
	}
	return vec, nil
}

// fromNativeSymbol 从原生基因符号推导 4 槽位向量。
func (s *resolverService) fromNativeSymbol(ctx context.Context, nSym string, taxID int, d *Diagnostics) (model.GeneIdentityVector, error) {
	vec := model.GeneIdentityVector{NativeSymbol: nSym}

	nID, err := s.symbolToID(ctx, nSym, taxID, d)
	if err != nil {
		return vec, err
	}
	vec.NativeID = nID

	if taxID == s.humanTaxID {
		// 参考物种直通：不经同源表，按构造保证两侧槽位一致
		vec.HumanizedSymbol = nSym
		vec.HumanizedID = nID
		return vec, nil
	}
	if nID == "" {
		return vec, nil
	}

	hID, err := s.mapToSingleHomolog(ctx, nID, s.humanTaxID)
	if err != nil {
		return vec, err
	}
	if hID != "" {
		vec.HumanizedID = hID
		vec.HumanizedSymbol, err = s.idToSymbol(ctx, hID, d)
		if err != nil {
			return vec, err
		}
	}
	return vec, nil
}

// fromNativeID 从原生基因 ID 推导 4 槽位向量。
func (s *resolverService) fromNativeID(ctx context.Context, nID string, taxID int, d *Diagnostics) (model.GeneIdentityVector, error) {
	vec := model.GeneIdentityVector{NativeID: nID}

	nSym, err := s.idToSymbol(ctx, nID, d)
	if err != nil {
		return vec, err
	}
	vec.NativeSymbol = nSym

	if taxID == s.humanTaxID {
		vec.HumanizedSymbol = nSym
		vec.HumanizedID = nID
		return vec, nil
	}

	hID, err := s.mapToSingleHomolog(ctx, nID, s.humanTaxID)
	if err != nil {
		return vec, err
	}
	if hID != "" {
		vec.HumanizedID = hID
		vec.HumanizedSymbol, err = s.idToSymbol(ctx, hID, d)
		if err != nil {
			return vec, err
		}
	}
	return vec, nil
}

// fromHumanizedSymbol 从人源化基因符号推导 4 槽位向量。
// 符号查找始终发生在参考物种下，再反向映射回原生物种。
func (s *resolverService) fromHumanizedSymbol(ctx context.Context, hSym string, taxID int, d *Diagnostics) (model.GeneIdentityVector, error) {
	vec := model.GeneIdentityVector{HumanizedSymbol: hSym}

	hID, err := s.symbolToID(ctx, hSym, s.humanTaxID, d)
	if err != nil {
		return vec, err
	}
	vec.HumanizedID = hID

	if taxID == s.humanTaxID {
		vec.NativeSymbol = hSym
		vec.NativeID = hID
		return vec, nil
	}
	if hID == "" {
		return vec, nil
	}

	nID, err := s.mapToSingleHomolog(ctx, hID, taxID)
	if err != nil {
		return vec, err
	}
	if nID != "" {
		vec.NativeID = nID
		vec.NativeSymbol, err = s.idToSymbol(ctx, nID, d)
		if err != nil {
			return vec, err
		}
	}
	return vec, nil
}

// fromHumanizedID 从人源化基因 ID 推导 4 槽位向量。
func (s *resolverService) fromHumanizedID(ctx context.Context, hID string, taxID int, d *Diagnostics) (model.GeneIdentityVector, error) {
	vec := model.GeneIdentityVector{HumanizedID: hID}

	hSym, err := s.idToSymbol(ctx, hID, d)
	if err != nil {
		return vec, err
	}
	vec.HumanizedSymbol = hSym

	if taxID == s.humanTaxID {
		vec.NativeSymbol = hSym
		vec.NativeID = hID
		return vec, nil
	}

	nID, err := s.mapToSingleHomolog(ctx, hID, taxID)
	if err != nil {
		return vec, err
	}
	if nID != "" {
		vec.NativeID = nID
		vec.NativeSymbol, err = s.idToSymbol(ctx, nID, d)
		if err != nil {
			return vec, err
		}
	}
	return vec, nil
}

// symbolToID 把基因符号解析为基因 ID。查找链：官方符号精确匹配，
// 其次展示符号，最后同义词——同义词命中必须唯一，多义命中按未解析处理
// 而不是任取其一。失败记诊断并返回空串。
func (s *resolverService) symbolToID(ctx context.Context, sym string, taxID int, d *Diagnostics) (string, error) {
	rec, err := s.geneRepo.FindByOfficialSymbol(ctx, sym, taxID)
	if err != nil {
		return "", err
	}
	if rec == nil {
		rec, err = s.geneRepo.FindByDisplaySymbol(ctx, sym, taxID)
		if err != nil {
			return "", err
		}
	}
	if rec == nil {
		matches, err := s.geneRepo.FindBySynonym(ctx, sym, taxID)
		if err != nil {
			return "", err
		}
		if len(matches) == 1 {
			rec = &matches[0]
		}
	}
	if rec == nil {
		d.Addf("Error: %s (taxId  %d) is not valid.", sym, taxID)
		return "", nil
	}
	return strconv.Itoa(rec.GeneID), nil
}

// idToSymbol 把基因 ID 解析为展示符号。token 非数字或查不到记录时
// 记诊断并返回空串。
func (s *resolverService) idToSymbol(ctx context.Context, idToken string, d *Diagnostics) (string, error) {
	id, convErr := strconv.Atoi(idToken)
	if convErr != nil {
		d.Addf("Error: Gene ID - %s is not valid.", idToken)
		return "", nil
	}
	rec, err := s.geneRepo.FindByGeneID(ctx, id)
	if err != nil {
		return "", err
	}
	if rec == nil {
		d.Addf("Error: Gene ID - %s is not valid.", idToken)
		return "", nil
	}
	return rec.Symbol, nil
}

// mapToSingleHomolog 通过同源表把基因 ID 映射到目标物种。
// 候选必须唯一：零个或多个候选都按未解析处理，返回空串。
func (s *resolverService) mapToSingleHomolog(ctx context.Context, idToken string, targetTaxID int) (string, error) {
	id, convErr := strconv.Atoi(idToken)
	if convErr != nil {
		return "", nil
	}
	ids, err := s.geneRepo.MapHomolog(ctx, id, targetTaxID)
	if err != nil {
		return "", err
	}
	if len(ids) != 1 {
		return "", nil
	}
	return strconv.Itoa(ids[0]), nil
}
