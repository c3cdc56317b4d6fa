// Package session 管理被测程序进程，同一时刻只有一个会话
package session

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/xiaoshicae/xvision/action"
	"github.com/xiaoshicae/xvision/xerror"
	"github.com/xiaoshicae/xvision/xutil"
)

// LaunchInfo 启动结果，AlreadyRunning 表示复用了已打开的会话
type LaunchInfo struct {
	PID            int    `json:"pid"`
	Path           string `json:"path"`
	AlreadyRunning bool   `json:"already_running"`
}

// Manager 会话单一持有者，launch/close 均在 mu 下进行
type Manager struct {
	c     *Config
	clock clockwork.Clock

	mu   sync.Mutex
	cmd  *exec.Cmd
	path string
	done chan struct{}
}

func NewManager(c *Config, clock clockwork.Clock) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Manager{c: configMergeDefault(c), clock: clock}
}

// Launch 会话已打开时直接返回当前进程信息
func (m *Manager) Launch(ctx context.Context) (*LaunchInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.aliveLocked() {
		return &LaunchInfo{PID: m.cmd.Process.Pid, Path: m.path, AlreadyRunning: true}, nil
	}

	path, err := filepath.Abs(m.c.TargetPath)
	if m.c.TargetPath == "" || err != nil || !xutil.FileExist(path) {
		return nil, xerror.Config("session", "launch", "target not found, path=[%s]", m.c.TargetPath)
	}

	cmd := exec.Command(path, m.c.Args...)
	cmd.Dir = xutil.GetOrDefault(m.c.WorkDir, filepath.Dir(path))
	cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, xerror.Newf("session", "launch", "start [%s] failed, err=[%v]", path, err)
	}
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	m.cmd, m.path, m.done = cmd, path, done
	xutil.InfoIfEnableDebug("XVision session launched target, pid=[%d], path=[%s]", cmd.Process.Pid, path)

	if err := action.Sleep(ctx, m.clock, xutil.ToDuration(m.c.StartupWait)); err != nil {
		return nil, err
	}
	return &LaunchInfo{PID: cmd.Process.Pid, Path: path}, nil
}

// Close 先 SIGTERM，StopTimeout 内未退出则 SIGKILL
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.aliveLocked() {
		m.cmd = nil
		return xerror.Config("session", "close", "target not running")
	}
	_ = m.cmd.Process.Signal(syscall.SIGTERM)

	t := m.clock.NewTimer(xutil.ToDuration(m.c.StopTimeout))
	defer t.Stop()
	select {
	case <-m.done:
	case <-t.Chan():
		xutil.WarnIfEnableDebug("XVision session target pid=[%d] not exit in %s, kill it", m.cmd.Process.Pid, m.c.StopTimeout)
		_ = m.cmd.Process.Kill()
		<-m.done
	case <-ctx.Done():
		_ = m.cmd.Process.Kill()
		<-m.done
	}
	m.cmd = nil
	return nil
}

// Running 会话是否打开
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.aliveLocked()
}

func (m *Manager) aliveLocked() bool {
	if m.cmd == nil {
		return false
	}
	select {
	case <-m.done:
		return false
	default:
		return true
	}
}

// Shutdown 停止钩子中调用，未运行时忽略
func (m *Manager) Shutdown() error {
	if !m.Running() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.Close(ctx)
}
