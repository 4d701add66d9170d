// Package tasks 定义了发送到 Kafka 的任务结构。
package tasks

// IngestTask 代表一个异步 GMTX 摄入任务。
// 原始文件以 ObjectName 存放在 MinIO 中，其余字段是上传方提供的批量常量属性。
type IngestTask struct {
	JobID      uint   `json:"job_id"`
	ObjectName string `json:"object_name"`
	FileName   string `json:"file_name"`
	Source     string `json:"source"`
	Subtype    string `json:"subtype"`
	TaxID      int    `json:"tax_id"`
	User       string `json:"user"`
	Domain     string `json:"domain"`
	GeneFormat int    `json:"gene_format"`
}
