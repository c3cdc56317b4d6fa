package pipeline

import (
	"context"
	"time"

	"github.com/xiaoshicae/xvision/xlog"
)

// Monitor 执行观测接口，Executor 可注入自定义实现
type Monitor interface {
	// OnNodeDone 节点动作执行完成时调用，err 为动作失败原因
	OnNodeDone(ctx context.Context, runID, node string, err error, duration time.Duration)
	// OnRunDone 运行结束时调用
	OnRunDone(ctx context.Context, result *Result, duration time.Duration)
}

// logMonitor 默认实现，输出到 xlog
type logMonitor struct{}

func (logMonitor) OnNodeDone(ctx context.Context, runID, node string, err error, duration time.Duration) {
	if err != nil {
		xlog.Warn(ctx, "[pipeline] run=[%s] node=[%s] duration=[%s] status=[failed] err=[%v]", runID, node, duration, err)
		return
	}
	xlog.Info(ctx, "[pipeline] run=[%s] node=[%s] duration=[%s] status=[success]", runID, node, duration)
}

func (logMonitor) OnRunDone(ctx context.Context, result *Result, duration time.Duration) {
	if result.Success {
		xlog.Info(ctx, "[pipeline] run=[%s] entry=[%s] duration=[%s] status=[success] nodes=%v",
			result.RunID, result.Entry, duration, result.ExecutedNodes)
		return
	}
	xlog.Warn(ctx, "[pipeline] run=[%s] entry=[%s] duration=[%s] status=[failed] kind=[%s] err=[%s]",
		result.RunID, result.Entry, duration, result.Error.Kind, result.Error.Message)
}

// LogMonitor 默认的日志监控
func LogMonitor() Monitor {
	return logMonitor{}
}

type multiMonitor []Monitor

func (m multiMonitor) OnNodeDone(ctx context.Context, runID, node string, err error, duration time.Duration) {
	for _, mm := range m {
		mm.OnNodeDone(ctx, runID, node, err, duration)
	}
}

func (m multiMonitor) OnRunDone(ctx context.Context, result *Result, duration time.Duration) {
	for _, mm := range m {
		mm.OnRunDone(ctx, result, duration)
	}
}

// Monitors 组合多个 Monitor，nil 会被忽略
func Monitors(ms ...Monitor) Monitor {
	out := make(multiMonitor, 0, len(ms))
	for _, m := range ms {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
