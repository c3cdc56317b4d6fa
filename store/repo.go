// Package store 基于 gorm 的流水线文档库
package store

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiaoshicae/xvision/pipeline"
	"github.com/xiaoshicae/xvision/xerror"
	"github.com/xiaoshicae/xvision/xgorm"
)

var ErrNotFound = errors.New("pipeline not found")

// PipelineRepo 流水线文档的增删改查
type PipelineRepo struct {
	db *gorm.DB
}

// NewPipelineRepo db 为空时使用 xgorm 全局 client
func NewPipelineRepo(db *gorm.DB) (*PipelineRepo, error) {
	if db == nil {
		db = xgorm.C()
	}
	if db == nil {
		return nil, xerror.Config("store", "newRepo", "XGorm not configured")
	}
	return &PipelineRepo{db: db}, nil
}

// Migrate 建表
func (r *PipelineRepo) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&PipelineRecord{}); err != nil {
		return xerror.Newf("store", "migrate", "auto migrate failed, err=[%v]", err)
	}
	return nil
}

// NewRecord 解析并校验文档，提取描述与入口信息
func NewRecord(name string, document []byte, format pipeline.Format) (*PipelineRecord, error) {
	if strings.TrimSpace(name) == "" {
		return nil, xerror.Config("store", "newRecord", "name is empty")
	}
	cfg, err := pipeline.Parse(document, format)
	if err != nil {
		return nil, err
	}
	if err := pipeline.Validate(cfg, ""); err != nil {
		return nil, err
	}
	return &PipelineRecord{
		Name:        name,
		Description: cfg.Description(),
		Format:      string(format),
		Entries:     strings.Join(cfg.Entries(), ","),
		NodeCount:   len(cfg.Nodes),
		Document:    string(document),
	}, nil
}

// Save 按名称覆盖写入
func (r *PipelineRepo) Save(ctx context.Context, rec *PipelineRecord) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "format", "entries", "node_count", "document", "updated_at"}),
	}).Create(rec).Error
	if err != nil {
		return xerror.Newf("store", "save", "save pipeline [%s] failed, err=[%v]", rec.Name, err)
	}
	return nil
}

func (r *PipelineRepo) Get(ctx context.Context, name string) (*PipelineRecord, error) {
	rec := &PipelineRecord{}
	err := r.db.WithContext(ctx).Where("name = ?", name).First(rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, xerror.Wrapf(xerror.KindInternal, "store", "get", "%w, name=[%s]", ErrNotFound, name)
	}
	if err != nil {
		return nil, xerror.Newf("store", "get", "get pipeline [%s] failed, err=[%v]", name, err)
	}
	return rec, nil
}

// List 不含文档正文，按名称排序
func (r *PipelineRepo) List(ctx context.Context) ([]*PipelineRecord, error) {
	var recs []*PipelineRecord
	err := r.db.WithContext(ctx).Omit("document").Order("name").Find(&recs).Error
	if err != nil {
		return nil, xerror.Newf("store", "list", "list pipelines failed, err=[%v]", err)
	}
	return recs, nil
}

func (r *PipelineRepo) Delete(ctx context.Context, name string) error {
	res := r.db.WithContext(ctx).Where("name = ?", name).Delete(&PipelineRecord{})
	if res.Error != nil {
		return xerror.Newf("store", "delete", "delete pipeline [%s] failed, err=[%v]", name, res.Error)
	}
	if res.RowsAffected == 0 {
		return xerror.Wrapf(xerror.KindInternal, "store", "delete", "%w, name=[%s]", ErrNotFound, name)
	}
	return nil
}
