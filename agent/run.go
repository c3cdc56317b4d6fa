package agent

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/xiaoshicae/xvision/pipeline"
	"github.com/xiaoshicae/xvision/xlog"
	"github.com/xiaoshicae/xvision/xutil"
)

// PipelineFile 扫描到的流水线文件
type PipelineFile struct {
	Name        string          `json:"name"`
	Path        string          `json:"path"`
	Format      pipeline.Format `json:"format"`
	Entries     []string        `json:"entries"`
	Description string          `json:"description"`
	NodeCount   int             `json:"node_count"`
}

type TestRequest struct {
	Path        string `json:"pipeline_path" binding:"required"`
	Entry       string `json:"entry" binding:"required"`
	LaunchApp   bool   `json:"launch_app"`
	ResourceDir string `json:"resource_dir"`
}

type TestResult struct {
	Success        bool             `json:"success"`
	PipelinePath   string           `json:"pipeline_path"`
	Entry          string           `json:"entry"`
	AppLaunched    bool             `json:"app_launched"`
	ResourceDir    string           `json:"resource_dir"`
	PipelineResult *pipeline.Result `json:"pipeline_result"`
}

// RunPipeline 独占执行，resourceDir 为空时取 Engine.ResourceDir
func (a *Agent) RunPipeline(ctx context.Context, cfg *pipeline.Config, entry, resourceDir string) (pipeline.Result, error) {
	var res pipeline.Result
	err := a.exclusive(func() error {
		xlog.Info(ctx, "运行 Pipeline: 入口 = %s", entry)
		res = a.executor.Run(ctx, cfg, entry, xutil.GetOrDefault(resourceDir, a.engine.ResourceDir))
		return nil
	})
	return res, err
}

// RunPipelineDocument 已解码的文档，解析失败以 Result.Error 返回
func (a *Agent) RunPipelineDocument(ctx context.Context, doc map[string]any, entry, resourceDir string) (pipeline.Result, error) {
	cfg, err := pipeline.FromMap(doc)
	if err != nil {
		return pipeline.Failed(entry, err), nil
	}
	return a.RunPipeline(ctx, cfg, entry, resourceDir)
}

func (a *Agent) RunPipelineFromFile(ctx context.Context, path, entry, resourceDir string) (pipeline.Result, error) {
	xlog.Info(ctx, "从文件运行 Pipeline: %s, 入口 = %s", path, entry)
	cfg, err := pipeline.LoadFile(path)
	if err != nil {
		return pipeline.Failed(entry, err), nil
	}
	return a.RunPipeline(ctx, cfg, entry, resourceDir)
}

// RunPipelineTest 可选先拉起被测应用，启动失败不阻止流水线运行
func (a *Agent) RunPipelineTest(ctx context.Context, req TestRequest) (*TestResult, error) {
	out := &TestResult{PipelinePath: req.Path, Entry: req.Entry}
	if req.LaunchApp {
		if _, err := a.Launch(ctx); err != nil {
			xlog.Warn(ctx, "启动被测应用失败: %v", err)
		} else {
			out.AppLaunched = true
		}
	}

	out.ResourceDir = ResolveResourceDir(req.Path, req.ResourceDir)
	xlog.Info(ctx, "Pipeline 资源目录: %s", out.ResourceDir)

	res, err := a.RunPipelineFromFile(ctx, req.Path, req.Entry, out.ResourceDir)
	if err != nil {
		return nil, err
	}
	out.PipelineResult = &res
	out.Success = res.Success
	return out, nil
}

// ResolveResourceDir 显式参数优先，其次文件中的 $resource_base（相对文件所在目录），最后取文件所在目录
func ResolveResourceDir(path, explicit string) string {
	if explicit != "" {
		return explicit
	}
	dir := filepath.Dir(path)
	cfg, err := pipeline.LoadFile(path)
	if err != nil || cfg.ResourceBase() == "" {
		return dir
	}
	base := cfg.ResourceBase()
	if filepath.IsAbs(base) {
		return filepath.Clean(base)
	}
	p := filepath.Join(dir, base)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// ScanPipelineTests 递归查找文件名包含 pipeline 的 json/yaml 文件，dir 为空时扫描配置的目录
func (a *Agent) ScanPipelineTests(ctx context.Context, dir string) []PipelineFile {
	dirs := a.c.ScanDirs
	if dir != "" {
		dirs = []string{dir}
	}
	files := make([]PipelineFile, 0)
	for _, d := range dirs {
		if !xutil.DirExist(d) {
			continue
		}
		files = append(files, scanDir(ctx, d)...)
	}
	return files
}

func scanDir(ctx context.Context, dir string) []PipelineFile {
	var files []PipelineFile
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			xlog.Warn(ctx, "扫描目录失败: %s, %v", path, err)
			return nil
		}
		if d.IsDir() || !isPipelineFile(d.Name()) {
			return nil
		}
		cfg, err := pipeline.LoadFile(path)
		if err != nil {
			xlog.Warn(ctx, "解析 Pipeline 文件失败: %s, %v", path, err)
			return nil
		}
		entries := cfg.Entries()
		files = append(files, PipelineFile{
			Name:        strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())),
			Path:        path,
			Format:      pipeline.FormatOf(path),
			Entries:     entries,
			Description: cfg.Description(),
			NodeCount:   len(entries),
		})
		return nil
	})
	return files
}

func isPipelineFile(name string) bool {
	lower := strings.ToLower(name)
	if !strings.Contains(lower, "pipeline") {
		return false
	}
	switch filepath.Ext(lower) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}
