package repository

import (
	"context"
	"errors"

	"gems-go/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GenesetRepository 接口定义了对基因集语料库（genesets 集合）的持久化操作。
type GenesetRepository interface {
	// EnsureIndexes 建立 (setName, source, subtype, user) 的唯一复合索引。
	// 幂等 upsert 依赖该索引，进程启动时调用一次。
	EnsureIndexes(ctx context.Context) error

	// Upsert 按唯一性四元组整体替换文档：同键重复摄入是"最后写入胜出"的
	// 全量替换，不做字段合并。
	Upsert(ctx context.Context, gs *model.Geneset) error

	// Find 按任意 bson 过滤器查询，返回完整文档（含 meta 字段）。
	Find(ctx context.Context, filter bson.M) ([]model.Geneset, error)

	// FindByKey 按唯一性四元组查找单个文档，不存在时返回 (nil, nil)。
	FindByKey(ctx context.Context, key model.GenesetKey) (*model.Geneset, error)

	// FindSharingSymbols 返回与给定人源化符号集合至少共享一个符号的所有文档。
	// 这是相似度扫描的候选剪枝：交集必为零的文档不出现在结果中。
	FindSharingSymbols(ctx context.Context, symbols []string) ([]model.Geneset, error)

	// Delete 按唯一性四元组删除单个文档。
	Delete(ctx context.Context, key model.GenesetKey) error
}

// genesetRepository 是 GenesetRepository 接口的 Mongo 实现。
type genesetRepository struct {
	col *mongo.Collection
}

// NewGenesetRepository 创建一个新的 GenesetRepository 实例。
func NewGenesetRepository(db *mongo.Database, collection string) GenesetRepository {
	return &genesetRepository{col: db.Collection(collection)}
}

// keyFilter 把唯一性四元组转成查询过滤器。
func keyFilter(key model.GenesetKey) bson.M {
	return bson.M{
		"setName": key.SetName,
		"source":  key.Source,
		"subtype": key.Subtype,
		"user":    key.User,
	}
}

// GeneMembershipFilter 构造"文档包含指定基因 token"的过滤器：
// 基因列表中至少有一个条目，其身份向量的任意槽位等于 token。
func GeneMembershipFilter(token string) bson.M {
	return bson.M{
		"genes": bson.M{
			"$elemMatch": bson.M{
				"$or": bson.A{
					bson.M{"gene.nativeSymbol": token},
					bson.M{"gene.nativeId": token},
					bson.M{"gene.humanizedSymbol": token},
					bson.M{"gene.humanizedId": token},
				},
			},
		},
	}
}

// EnsureIndexes 建立语料库的唯一复合索引。
func (r *genesetRepository) EnsureIndexes(ctx context.Context) error {
	keys := bson.D{}
	for _, field := range model.GenesetUniqueFields {
		keys = append(keys, bson.E{Key: field, Value: 1})
	}
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: keys,
		Options: options.Index().
			SetUnique(true).
			SetName("geneset_uniqueness"),
	})
	return err
}

// Upsert 按唯一键整体替换文档。
func (r *genesetRepository) Upsert(ctx context.Context, gs *model.Geneset) error {
	_, err := r.col.ReplaceOne(ctx, keyFilter(gs.Key()), gs, options.Replace().SetUpsert(true))
	return err
}

// Find 执行任意过滤查询并返回完整文档。
func (r *genesetRepository) Find(ctx context.Context, filter bson.M) ([]model.Geneset, error) {
	cursor, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []model.Geneset
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// FindByKey 按唯一键查找单个文档。
func (r *genesetRepository) FindByKey(ctx context.Context, key model.GenesetKey) (*model.Geneset, error) {
	var gs model.Geneset
	err := r.col.FindOne(ctx, keyFilter(key)).Decode(&gs)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &gs, nil
}

// FindSharingSymbols 按人源化符号的交集剪枝查询候选文档。
func (r *genesetRepository) FindSharingSymbols(ctx context.Context, symbols []string) ([]model.Geneset, error) {
	cursor, err := r.col.Find(ctx, bson.M{
		"genes.gene.humanizedSymbol": bson.M{"$in": symbols},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sets []model.Geneset
	if err := cursor.All(ctx, &sets); err != nil {
		return nil, err
	}
	return sets, nil
}

// Delete 按唯一键删除单个文档。
func (r *genesetRepository) Delete(ctx context.Context, key model.GenesetKey) error {
	_, err := r.col.DeleteOne(ctx, keyFilter(key))
	return err
}
