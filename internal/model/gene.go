// Package model 定义了与 MongoDB 文档和 MySQL 表对应的 Go 结构体。
package model

// GeneFormat 表示输入基因 token 的格式。
// 数值与批量上传接口的 gf 参数保持一致：
// 0 -> 原生基因符号, 1 -> 原生基因 ID, 2 -> 人源化基因符号, 3 -> 人源化基因 ID。
type GeneFormat int

const (
	FormatNativeSymbol GeneFormat = iota
	FormatNativeID
	FormatHumanizedSymbol
	FormatHumanizedID
)

// Valid 判断格式值是否在受支持的范围内。
func (f GeneFormat) Valid() bool {
	return f >= FormatNativeSymbol && f <= FormatHumanizedID
}

// GeneRecord 对应参考集合 gene_info 中的一条 NCBI 基因记录。
// 该集合整体重建（drop + recreate），查询期间只读。
type GeneRecord struct {
	GeneID         int      `bson:"geneId" json:"geneId"`
	TaxID          int      `bson:"taxId" json:"taxId"`
	Symbol         string   `bson:"symbol" json:"symbol"`
	SymbolOfficial string   `bson:"symbolOfficial,omitempty" json:"symbolOfficial,omitempty"`
	Synonyms       []string `bson:"synonyms,omitempty" json:"synonyms,omitempty"`
}

// HomologyMember 是同源组中的一个成员基因。
type HomologyMember struct {
	TaxID  int `bson:"taxId" json:"taxId"`
	GeneID int `bson:"geneId" json:"geneId"`
}

// HomologyGroup 对应参考集合 homologene_map 中的一个同源组：
// 跨物种被认为是直系同源的一组基因。与 gene_info 同样整体重建、只读。
type HomologyGroup struct {
	GroupID int              `bson:"homId" json:"homId"`
	Members []HomologyMember `bson:"members" json:"members"`
}

// GeneIdentityVector 是一个基因的规范 4 槽位身份向量。
// 未能解析的槽位为空字符串。它只作为基因集文档内嵌的一部分存在，从不单独存储。
type GeneIdentityVector struct {
	NativeSymbol    string `bson:"nativeSymbol" json:"nativeSymbol"`
	NativeID        string `bson:"nativeId" json:"nativeId"`
	HumanizedSymbol string `bson:"humanizedSymbol" json:"humanizedSymbol"`
	HumanizedID     string `bson:"humanizedId" json:"humanizedId"`
}

// Complete 判断四个槽位是否全部解析成功。
func (v GeneIdentityVector) Complete() bool {
	return v.NativeSymbol != "" && v.NativeID != "" && v.HumanizedSymbol != "" && v.HumanizedID != ""
}

// GeneEntry 是基因集内的一个基因条目：身份向量加可选系数。
// Coeff 为 nil 表示该基因集不带系数。
type GeneEntry struct {
	Gene  GeneIdentityVector `bson:"gene" json:"gene"`
	Coeff *float64           `bson:"coeff" json:"coeff"`
}
