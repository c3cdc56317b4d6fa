package xserver

import "context"

// Server 服务接口
type Server interface {
	// Run 启动服务，框架异步调用并等待退出信号，Run 返回则整体退出
	Run() error

	// Stop 停止服务，放资源清理逻辑
	Stop() error
}

// Job 一次性任务，ctx 在收到退出信号时被取消
type Job func(ctx context.Context) error
