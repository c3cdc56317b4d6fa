package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xiaoshicae/xvision/interpreter"
	"github.com/xiaoshicae/xvision/pipeline"
	"github.com/xiaoshicae/xvision/xerror"
	"github.com/xiaoshicae/xvision/xlog"
	"github.com/xiaoshicae/xvision/xutil"
)

// GeneratedPipeline AI 生成并落盘的流水线
type GeneratedPipeline struct {
	Success     bool            `json:"success"`
	FilePath    string          `json:"file_path"`
	FileName    string          `json:"filename"`
	Prompt      string          `json:"prompt"`
	Entry       string          `json:"entry"`
	EntryNodes  []string        `json:"entry_nodes"`
	NodeCount   int             `json:"node_count"`
	Config      json.RawMessage `json:"pipeline_config"`
	RawResponse string          `json:"raw_response,omitempty"`
	Stored      bool            `json:"stored"`
	Message     string          `json:"message"`
}

type CommandResult struct {
	*interpreter.Intent
	Executed bool             `json:"executed"`
	Result   *pipeline.Result `json:"result,omitempty"`
	Message  string           `json:"message"`
}

func (a *Agent) interpreter(op string) (Interpreter, error) {
	if a.ai == nil || !a.ai.Enabled() {
		return nil, xerror.Config("agent", op, "AI 客户端未初始化，请配置 SPARK_API_KEY")
	}
	return a.ai, nil
}

// GeneratePipeline 生成的文档保存为 ai_pipeline_<name>_<yyyyMMdd_HHmmss>.json，配置了流水线库时同时入库
func (a *Agent) GeneratePipeline(ctx context.Context, prompt, name string) (*GeneratedPipeline, error) {
	ai, err := a.interpreter("generatePipeline")
	if err != nil {
		return nil, err
	}
	xlog.Info(ctx, "生成 Pipeline JSON: %s", prompt)
	g, err := ai.GeneratePipeline(ctx, prompt)
	if err != nil {
		if g != nil {
			return &GeneratedPipeline{Prompt: prompt, RawResponse: g.Raw, Message: err.Error()}, err
		}
		return nil, err
	}

	ts := a.clock.Now().Format("20060102_150405")
	filename := fmt.Sprintf("ai_pipeline_%s.json", ts)
	if name != "" {
		filename = fmt.Sprintf("ai_pipeline_%s_%s.json", xutil.SafeFileName(name), ts)
	}
	if err := os.MkdirAll(a.c.OutputDir, 0o755); err != nil {
		return nil, xerror.Newf("agent", "generatePipeline", "create output dir [%s] failed, err=[%v]", a.c.OutputDir, err)
	}
	path := filepath.Join(a.c.OutputDir, filename)
	if err := os.WriteFile(path, g.Document, 0o644); err != nil {
		return nil, xerror.Newf("agent", "generatePipeline", "write [%s] failed, err=[%v]", path, err)
	}
	xlog.Info(ctx, "Pipeline JSON 已保存: %s", path)

	out := &GeneratedPipeline{
		Success:    true,
		FilePath:   path,
		FileName:   filename,
		Prompt:     prompt,
		Entry:      g.Entry,
		EntryNodes: g.Config.Entries(),
		NodeCount:  len(g.Config.Nodes),
		Config:     json.RawMessage(g.Document),
		Message:    fmt.Sprintf("Pipeline JSON 已生成并保存到 %s", filename),
	}
	if a.repo != nil {
		if _, err := a.SavePipeline(ctx, strings.TrimSuffix(filename, ".json"), g.Document, pipeline.FormatJSON); err != nil {
			xlog.Warn(ctx, "Pipeline 入库失败: %v", err)
		} else {
			out.Stored = true
		}
	}
	return out, nil
}

// ExecuteAICommand 指令可执行时作为单节点流水线运行，否则只返回解释
func (a *Agent) ExecuteAICommand(ctx context.Context, text string) (*CommandResult, error) {
	ai, err := a.interpreter("executeCommand")
	if err != nil {
		return nil, err
	}
	intent, err := ai.InterpretCommand(ctx, text)
	if err != nil {
		return nil, err
	}
	out := &CommandResult{Intent: intent}
	if !intent.Executable {
		out.Message = "AI 已解释指令，未识别出可执行的动作"
		return out, nil
	}

	res, err := a.RunPipeline(ctx, intent.Config, interpreter.CommandNode, a.c.ResourceDir)
	if err != nil {
		return nil, err
	}
	out.Executed = true
	out.Result = &res
	out.Message = fmt.Sprintf("已执行 %s", intent.Action)
	if !res.Success {
		out.Message = fmt.Sprintf("执行 %s 失败", intent.Action)
	}
	return out, nil
}
