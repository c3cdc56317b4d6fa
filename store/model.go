package store

import (
	"time"

	"github.com/xiaoshicae/xvision/pipeline"
)

// PipelineRecord 流水线库中的一份文档，按 Name 唯一
type PipelineRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:128;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"size:512" json:"description"`
	Format      string    `gorm:"size:8;not null" json:"format"`
	Entries     string    `gorm:"size:1024" json:"entries"`
	NodeCount   int       `json:"node_count"`
	Document    string    `gorm:"type:text;not null" json:"document"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (PipelineRecord) TableName() string {
	return "xvision_pipeline"
}

// Config 解析文档内容
func (r *PipelineRecord) Config() (*pipeline.Config, error) {
	return pipeline.Parse([]byte(r.Document), pipeline.Format(r.Format))
}
