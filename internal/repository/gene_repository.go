// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gems-go/internal/model"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// 解析结果缓存的有效期。参考表只会整体重建，缓存可以放得比较久。
const vectorCacheTTL = 12 * time.Hour

// GeneRepository 接口定义了对两张只读参考表（gene_info / homologene_map）的
// 查询操作，以及解析结果的 Redis 缓存。查不到记录时返回 (nil, nil)，
// 只有存储本身出错才返回非 nil error。
type GeneRepository interface {
	FindByGeneID(ctx context.Context, geneID int) (*model.GeneRecord, error)
	FindByOfficialSymbol(ctx context.Context, symbol string, taxID int) (*model.GeneRecord, error)
	FindByDisplaySymbol(ctx context.Context, symbol string, taxID int) (*model.GeneRecord, error)
	FindBySynonym(ctx context.Context, symbol string, taxID int) ([]model.GeneRecord, error)

	// MapHomolog 返回与 (geneID) 同组且属于 targetTaxID 的所有成员基因 ID。
	MapHomolog(ctx context.Context, geneID, targetTaxID int) ([]int, error)

	// 身份向量缓存
	GetCachedVector(ctx context.Context, format model.GeneFormat, taxID int, token string) (*model.GeneIdentityVector, error)
	SetCachedVector(ctx context.Context, format model.GeneFormat, taxID int, token string, vec model.GeneIdentityVector) error

	// RebuildReference 整体重建两张参考表（drop + 重新写入），从不增量更新。
	RebuildReference(ctx context.Context, genes []model.GeneRecord, groups []model.HomologyGroup) error
}

// geneRepository 是 GeneRepository 接口的 Mongo+Redis 实现。
type geneRepository struct {
	genes       *mongo.Collection
	mappings    *mongo.Collection
	redisClient *redis.Client
}

// NewGeneRepository 创建一个新的 GeneRepository 实例。
func NewGeneRepository(db *mongo.Database, geneCol, mappingCol string, redisClient *redis.Client) GeneRepository {
	return &geneRepository{
		genes:       db.Collection(geneCol),
		mappings:    db.Collection(mappingCol),
		redisClient: redisClient,
	}
}

// vectorCacheKey 生成身份向量在 Redis 中的键。
func (r *geneRepository) vectorCacheKey(format model.GeneFormat, taxID int, token string) string {
	return fmt.Sprintf("gene:%d:%d:%s", format, taxID, token)
}

func (r *geneRepository) findOne(ctx context.Context, filter bson.M) (*model.GeneRecord, error) {
	var record model.GeneRecord
	err := r.genes.FindOne(ctx, filter).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByGeneID 按基因 ID 精确查找参考记录。
func (r *geneRepository) FindByGeneID(ctx context.Context, geneID int) (*model.GeneRecord, error) {
	return r.findOne(ctx, bson.M{"geneId": geneID})
}

// FindByOfficialSymbol 按官方符号与分类号查找参考记录。
func (r *geneRepository) FindByOfficialSymbol(ctx context.Context, symbol string, taxID int) (*model.GeneRecord, error) {
	return r.findOne(ctx, bson.M{"symbolOfficial": symbol, "taxId": taxID})
}

// FindByDisplaySymbol 按展示符号与分类号查找参考记录。
func (r *geneRepository) FindByDisplaySymbol(ctx context.Context, symbol string, taxID int) (*model.GeneRecord, error) {
	return r.findOne(ctx, bson.M{"symbol": symbol, "taxId": taxID})
}

// FindBySynonym 返回同义词命中的全部参考记录，由调用方判定是否唯一。
func (r *geneRepository) FindBySynonym(ctx context.Context, symbol string, taxID int) ([]model.GeneRecord, error) {
	cursor, err := r.genes.Find(ctx, bson.M{"synonyms": symbol, "taxId": taxID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []model.GeneRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// MapHomolog 在 homologene_map 上做聚合查询：先匹配包含 (geneID) 的同源组，
// 再把成员过滤到目标分类号，返回剩余成员的基因 ID 列表。
func (r *geneRepository) MapHomolog(ctx context.Context, geneID, targetTaxID int) ([]int, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"members.geneId": geneID}}},
		bson.D{{Key: "$project", Value: bson.M{
			"members": bson.M{
				"$filter": bson.M{
					"input": "$members",
					"as":    "member",
					"cond":  bson.M{"$eq": bson.A{"$$member.taxId", targetTaxID}},
				},
			},
		}}},
	}

	cursor, err := r.mappings.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var groups []model.HomologyGroup
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, err
	}

	var ids []int
	for _, group := range groups {
		for _, member := range group.Members {
			ids = append(ids, member.GeneID)
		}
	}
	return ids, nil
}

// GetCachedVector 从 Redis 读取缓存的身份向量，缓存未命中时返回 (nil, nil)。
func (r *geneRepository) GetCachedVector(ctx context.Context, format model.GeneFormat, taxID int, token string) (*model.GeneIdentityVector, error) {
	raw, err := r.redisClient.Get(ctx, r.vectorCacheKey(format, taxID, token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var vec model.GeneIdentityVector
	if err := json.Unmarshal(raw, &vec); err != nil {
		// 缓存内容损坏时当作未命中处理
		return nil, nil
	}
	return &vec, nil
}

// SetCachedVector 把解析出的身份向量写入 Redis。
func (r *geneRepository) SetCachedVector(ctx context.Context, format model.GeneFormat, taxID int, token string, vec model.GeneIdentityVector) error {
	raw, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	return r.redisClient.Set(ctx, r.vectorCacheKey(format, taxID, token), raw, vectorCacheTTL).Err()
}

// RebuildReference 整体重建参考表。先 drop 再批量写入，与上游数据源的
// 全量发布周期对应；重建后为基因查询链路补建索引。
func (r *geneRepository) RebuildReference(ctx context.Context, genes []model.GeneRecord, groups []model.HomologyGroup) error {
	if err := r.genes.Drop(ctx); err != nil {
		return err
	}
	if err := r.mappings.Drop(ctx); err != nil {
		return err
	}

	geneDocs := make([]interface{}, 0, len(genes))
	for i := range genes {
		geneDocs = append(geneDocs, genes[i])
	}
	if len(geneDocs) > 0 {
		if _, err := r.genes.InsertMany(ctx, geneDocs); err != nil {
			return err
		}
	}

	groupDocs := make([]interface{}, 0, len(groups))
	for i := range groups {
		groupDocs = append(groupDocs, groups[i])
	}
	if len(groupDocs) > 0 {
		if _, err := r.mappings.InsertMany(ctx, groupDocs); err != nil {
			return err
		}
	}

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "geneId", Value: 1}}},
		{Keys: bson.D{{Key: "symbolOfficial", Value: 1}, {Key: "taxId", Value: 1}}},
		{Keys: bson.D{{Key: "symbol", Value: 1}, {Key: "taxId", Value: 1}}},
		{Keys: bson.D{{Key: "synonyms", Value: 1}, {Key: "taxId", Value: 1}}},
	}
	if _, err := r.genes.Indexes().CreateMany(ctx, indexes); err != nil {
		return err
	}
	_, err := r.mappings.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "members.geneId", Value: 1}}},
	})
	return err
}
