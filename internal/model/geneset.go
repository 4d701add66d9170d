package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GenesetUniqueFields 是语料库的唯一性索引字段，顺序即复合索引顺序。
// (setName, source, subtype, user) 在整个语料库中唯一，摄入依赖它做幂等 upsert。
var GenesetUniqueFields = []string{"setName", "source", "subtype", "user"}

// PublicUser 是保留的所有者名，Public 所有的基因集不可被单独删除。
const PublicUser = "Public"

// Geneset 是语料库（genesets 集合）中的一个基因集文档。
type Geneset struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	SetName  string             `bson:"setName" json:"setName"`
	Source   string             `bson:"source" json:"source"`
	Subtype  string             `bson:"subtype" json:"subtype"`
	TaxID    int                `bson:"taxId" json:"taxId"`
	HasCoeff bool               `bson:"hasCoeff" json:"hasCoeff"`
	Genes    []GeneEntry        `bson:"genes" json:"genes"`
	User     string             `bson:"user" json:"user"`
	Domain   string             `bson:"domain" json:"domain"`
	HasQC    bool               `bson:"hasQC" json:"hasQC"`
	Comment  string             `bson:"comment" json:"comment"`
	Date     time.Time          `bson:"date" json:"date"`

	// 可选字段
	CoeffType string            `bson:"coeffType,omitempty" json:"coeffType,omitempty"`
	SetID     string            `bson:"setId,omitempty" json:"setId,omitempty"`
	Desc      string            `bson:"desc,omitempty" json:"desc,omitempty"`
	Xref      string            `bson:"xref,omitempty" json:"xref,omitempty"`
	Meta      map[string]string `bson:"meta,omitempty" json:"meta,omitempty"`
}

// Key 返回该文档的唯一性键。
func (g *Geneset) Key() GenesetKey {
	return GenesetKey{SetName: g.SetName, Source: g.Source, Subtype: g.Subtype, User: g.User}
}

// HumanizedSymbolSet 提取基因列表中所有非空的人源化符号，用于相似度比较。
func (g *Geneset) HumanizedSymbolSet() map[string]struct{} {
	set := make(map[string]struct{}, len(g.Genes))
	for _, entry := range g.Genes {
		if entry.Gene.HumanizedSymbol != "" {
			set[entry.Gene.HumanizedSymbol] = struct{}{}
		}
	}
	return set
}

// GenesetKey 是基因集的唯一性四元组。
type GenesetKey struct {
	SetName string `bson:"setName" json:"setName"`
	Source  string `bson:"source" json:"source"`
	Subtype string `bson:"subtype" json:"subtype"`
	User    string `bson:"user" json:"user"`
}

// SimilarResult 是相似度查询的单条结果。
type SimilarResult struct {
	SetName string  `json:"setName"`
	Source  string  `json:"source"`
	Coeff   float64 `json:"coeff"`
}
