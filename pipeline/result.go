package pipeline

import (
	"github.com/xiaoshicae/xvision/vision"
	"github.com/xiaoshicae/xvision/xerror"
)

// Result 单次运行结果，每次运行新建并按值返回
type Result struct {
	RunID          string              `json:"run_id"`
	Entry          string              `json:"entry"`
	Success        bool                `json:"success"`
	ExecutedNodes  []string            `json:"executed_nodes"`
	LastNode       string              `json:"last_node"`
	LastRecoResult *vision.MatchResult `json:"last_reco_result"`
	CostMs         int64               `json:"cost_ms"`
	Logs           []string            `json:"logs"`
	Error          *ResultError        `json:"error,omitempty"`
}

// ResultError 失败分类、出错节点与消息
type ResultError struct {
	Kind    xerror.Kind `json:"kind"`
	Node    string      `json:"node,omitempty"`
	Message string      `json:"message"`
}

// ErrorOf 把任意错误转换为对外的分类错误
func ErrorOf(err error) *ResultError {
	if err == nil {
		return nil
	}
	return &ResultError{Kind: xerror.KindOf(err), Node: xerror.NodeOf(err), Message: err.Error()}
}

// Failed 运行开始前就失败（如文件无法解析）时的结果
func Failed(entry string, err error) Result {
	return Result{Entry: entry, ExecutedNodes: []string{}, Logs: []string{}, Error: ErrorOf(err)}
}
