package interpreter

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/xiaoshicae/xvision/action"
	"github.com/xiaoshicae/xvision/pipeline"
	"github.com/xiaoshicae/xvision/xerror"
)

// CommandNode 单条指令转换出的节点名
const CommandNode = "command"

// Generated 模型生成的流水线文档
type Generated struct {
	Raw      string           `json:"raw_response"`
	Document []byte           `json:"-"`
	Config   *pipeline.Config `json:"-"`
	Entry    string           `json:"entry"`
}

// Intent 单条指令的解析结果，Config 为只含 command 节点的流水线
type Intent struct {
	Command        string           `json:"command"`
	Interpretation string           `json:"ai_interpretation"`
	Action         action.Kind      `json:"action"`
	Executable     bool             `json:"executable"`
	Config         *pipeline.Config `json:"-"`
}

// GeneratePipeline 生成、解析并校验流水线，入口取 DirectHit 且不被引用的节点
func (cl *Client) GeneratePipeline(ctx context.Context, prompt string) (*Generated, error) {
	raw, err := cl.Complete(ctx, pipelineSystemPrompt, pipelineUserPrompt+prompt, cl.c.MaxTokens)
	if err != nil {
		return nil, err
	}
	body := StripFences(raw)
	cfg, err := pipeline.Parse([]byte(body), pipeline.FormatJSON)
	if err != nil {
		return &Generated{Raw: raw}, err
	}
	entry := GuessEntry(cfg)
	if err := pipeline.Validate(cfg, entry); err != nil {
		return &Generated{Raw: raw}, err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, []byte(body), "", "  "); err != nil {
		return &Generated{Raw: raw}, xerror.Config("interpreter", "generatePipeline", "indent document failed, err=[%v]", err)
	}
	return &Generated{Raw: raw, Document: pretty.Bytes(), Config: cfg, Entry: entry}, nil
}

// InterpretCommand 指令转换为单节点流水线，校验通过且有动作时可执行
func (cl *Client) InterpretCommand(ctx context.Context, text string) (*Intent, error) {
	raw, err := cl.Complete(ctx, commandSystemPrompt, text, cl.c.CommandMaxTokens)
	if err != nil {
		return nil, err
	}
	intent := &Intent{Command: text, Interpretation: raw, Action: action.KindDoNothing}

	fields := map[string]any{}
	dec := json.NewDecoder(strings.NewReader(StripFences(raw)))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return intent, nil
	}
	delete(fields, "comment")

	cfg, err := pipeline.FromMap(map[string]any{CommandNode: fields})
	if err != nil {
		return intent, nil
	}
	n := cfg.Nodes[CommandNode]
	n.PreDelay, n.PostDelay = 0, 0
	intent.Action = n.Action.Kind
	intent.Config = cfg
	intent.Executable = n.Action.Kind != action.KindDoNothing && pipeline.Validate(cfg, CommandNode) == nil
	return intent, nil
}

// GuessEntry 没有被任何 next 引用的节点中名字最小的一个，全部被引用时取名字最小的节点
func GuessEntry(cfg *pipeline.Config) string {
	referenced := map[string]bool{}
	for _, n := range cfg.Nodes {
		for _, next := range n.Next {
			referenced[next] = true
		}
	}
	names := cfg.Entries()
	for _, name := range names {
		if !referenced[name] {
			return name
		}
	}
	if len(names) == 0 {
		return ""
	}
	return names[0]
}
