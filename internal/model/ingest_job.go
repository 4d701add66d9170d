package model

import "time"

// 摄入任务状态。
const (
	IngestJobPending   = 0
	IngestJobCompleted = 1
	IngestJobFailed    = 2
)

// IngestJob 定义了 ingest_job 表的 ORM 模型。
// 它记录每次异步 GMTX 文件摄入的元数据、状态和解析诊断，供状态查询接口使用。
type IngestJob struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ObjectName  string     `gorm:"type:varchar(255);not null" json:"objectName"`
	FileName    string     `gorm:"type:varchar(255);not null" json:"fileName"`
	Source      string     `gorm:"type:varchar(100);not null" json:"source"`
	Subtype     string     `gorm:"type:varchar(100)" json:"subtype"`
	TaxID       int        `gorm:"not null" json:"taxId"`
	User        string     `gorm:"type:varchar(100);not null" json:"user"`
	Domain      string     `gorm:"type:varchar(100)" json:"domain"`
	GeneFormat  int        `gorm:"type:tinyint;not null" json:"geneFormat"`
	Status      int        `gorm:"type:tinyint;not null;default:0" json:"status"` // 0: pending, 1: completed, 2: failed
	RowCount    int        `gorm:"not null;default:0" json:"rowCount"`
	Diagnostics string     `gorm:"type:text" json:"diagnostics"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	FinishedAt  *time.Time `gorm:"default:null" json:"finishedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (IngestJob) TableName() string {
	return "ingest_job"
}
