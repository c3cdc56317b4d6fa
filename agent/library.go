package agent

import (
	"context"

	"github.com/xiaoshicae/xvision/pipeline"
	"github.com/xiaoshicae/xvision/store"
	"github.com/xiaoshicae/xvision/xerror"
)

func (a *Agent) library(op string) (*store.PipelineRepo, error) {
	if a.repo == nil {
		return nil, xerror.Config("agent", op, "pipeline store not configured")
	}
	return a.repo, nil
}

// SavePipeline 校验通过后按名称覆盖写入流水线库
func (a *Agent) SavePipeline(ctx context.Context, name string, document []byte, format pipeline.Format) (*store.PipelineRecord, error) {
	repo, err := a.library("savePipeline")
	if err != nil {
		return nil, err
	}
	rec, err := store.NewRecord(name, document, format)
	if err != nil {
		return nil, err
	}
	if err := repo.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (a *Agent) GetPipeline(ctx context.Context, name string) (*store.PipelineRecord, error) {
	repo, err := a.library("getPipeline")
	if err != nil {
		return nil, err
	}
	return repo.Get(ctx, name)
}

func (a *Agent) ListPipelines(ctx context.Context) ([]*store.PipelineRecord, error) {
	repo, err := a.library("listPipelines")
	if err != nil {
		return nil, err
	}
	return repo.List(ctx)
}

func (a *Agent) DeletePipeline(ctx context.Context, name string) error {
	repo, err := a.library("deletePipeline")
	if err != nil {
		return err
	}
	return repo.Delete(ctx, name)
}

// RunStoredPipeline 运行库中的流水线
func (a *Agent) RunStoredPipeline(ctx context.Context, name, entry, resourceDir string) (pipeline.Result, error) {
	rec, err := a.GetPipeline(ctx, name)
	if err != nil {
		return pipeline.Result{}, err
	}
	cfg, err := rec.Config()
	if err != nil {
		return pipeline.Failed(entry, err), nil
	}
	return a.RunPipeline(ctx, cfg, entry, resourceDir)
}
