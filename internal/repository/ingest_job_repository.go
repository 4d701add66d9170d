package repository

import (
	"time"

	"gems-go/internal/model"

	"gorm.io/gorm"
)

// IngestJobRepository 接口定义了异步摄入任务的簿记操作。
type IngestJobRepository interface {
	Create(job *model.IngestJob) error
	FindByID(id uint) (*model.IngestJob, error)
	MarkCompleted(id uint, rowCount int, diagnostics string) error
	MarkFailed(id uint, reason string) error
}

// ingestJobRepository 是 IngestJobRepository 接口的 GORM 实现。
type ingestJobRepository struct {
	db *gorm.DB
}

// NewIngestJobRepository 创建一个新的 IngestJobRepository 实例。
func NewIngestJobRepository(db *gorm.DB) IngestJobRepository {
	return &ingestJobRepository{db: db}
}

// Create 在数据库中创建一条新的摄入任务记录。
func (r *ingestJobRepository) Create(job *model.IngestJob) error {
	return r.db.Create(job).Error
}

// FindByID 按主键查找摄入任务记录。
func (r *ingestJobRepository) FindByID(id uint) (*model.IngestJob, error) {
	var job model.IngestJob
	if err := r.db.First(&job, id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkCompleted 把任务标记为完成，并记录行数与解析诊断。
func (r *ingestJobRepository) MarkCompleted(id uint, rowCount int, diagnostics string) error {
	now := time.Now()
	return r.db.Model(&model.IngestJob{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":      model.IngestJobCompleted,
		"row_count":   rowCount,
		"diagnostics": diagnostics,
		"finished_at": &now,
	}).Error
}

// MarkFailed 把任务标记为失败，并记录失败原因。
func (r *ingestJobRepository) MarkFailed(id uint, reason string) error {
	now := time.Now()
	return r.db.Model(&model.IngestJob{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":      model.IngestJobFailed,
		"diagnostics": reason,
		"finished_at": &now,
	}).Error
}
