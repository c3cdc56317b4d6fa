package capture

import (
	"context"
	"strconv"
	"strings"

	"github.com/xiaoshicae/xvision/action"
	"github.com/xiaoshicae/xvision/vision"
	"github.com/xiaoshicae/xvision/xerror"
	"github.com/xiaoshicae/xvision/xutil"
)

// Window X11 窗口
type Window struct {
	ID    string       `json:"id"`
	Title string       `json:"title"`
	Box   *vision.Rect `json:"box,omitempty"`
}

// WindowInfo 所有窗口标题与匹配关键字的目标窗口
type WindowInfo struct {
	AllWindows    []string `json:"all_windows"`
	TargetWindows []Window `json:"target_windows"`
}

// WindowManager 通过 xdotool 查询与激活窗口
type WindowManager struct {
	x         *action.Xdotool
	hints     []string
	maxListed int
}

func NewWindowManager(c *Config) *WindowManager {
	c = configMergeDefault(c)
	return &WindowManager{x: action.NewXdotool(c.XdotoolBin, c.Display), hints: c.WindowHints, maxListed: c.MaxListedWindows}
}

// List 所有有标题的可见窗口
func (m *WindowManager) List(ctx context.Context) ([]Window, error) {
	out, err := m.x.Run(ctx, "search", "--onlyvisible", "--name", ".")
	if err != nil {
		return nil, xerror.New("capture", "listWindows", err)
	}
	var windows []Window
	for _, id := range strings.Fields(out) {
		title, err := m.x.Run(ctx, "getwindowname", id)
		if err != nil || strings.TrimSpace(title) == "" {
			continue
		}
		windows = append(windows, Window{ID: id, Title: title})
	}
	return windows, nil
}

// Info 标题列表最多 maxListed 个，目标窗口附带几何信息
func (m *WindowManager) Info(ctx context.Context) (*WindowInfo, error) {
	windows, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	info := &WindowInfo{AllWindows: []string{}, TargetWindows: []Window{}}
	for i, w := range windows {
		if i < m.maxListed {
			info.AllWindows = append(info.AllWindows, w.Title)
		}
		if MatchHint(w.Title, m.hints) {
			if box, err := m.geometry(ctx, w.ID); err == nil {
				w.Box = box
			}
			info.TargetWindows = append(info.TargetWindows, w)
		}
	}
	return info, nil
}

// Focus title 为空时激活第一个匹配关键字的窗口
func (m *WindowManager) Focus(ctx context.Context, title string) (*Window, error) {
	windows, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	hints := m.hints
	if title != "" {
		hints = []string{title}
	}
	for _, w := range windows {
		if !MatchHint(w.Title, hints) {
			continue
		}
		if _, err := m.x.Run(ctx, "windowactivate", "--sync", w.ID); err != nil {
			return nil, xerror.Wrap(xerror.KindDispatch, "capture", "focusWindow", err)
		}
		if box, err := m.geometry(ctx, w.ID); err == nil {
			w.Box = box
		}
		xutil.InfoIfEnableDebug("XVision capture focus window id=[%s] title=[%s]", w.ID, w.Title)
		return &w, nil
	}
	return nil, xerror.Wrapf(xerror.KindDispatch, "capture", "focusWindow", "no window matches %v", hints)
}

func (m *WindowManager) geometry(ctx context.Context, id string) (*vision.Rect, error) {
	out, err := m.x.Run(ctx, "getwindowgeometry", "--shell", id)
	if err != nil {
		return nil, err
	}
	return parseShellGeometry(out)
}

// parseShellGeometry 解析 getwindowgeometry --shell 的 KEY=VALUE 输出
func parseShellGeometry(out string) (*vision.Rect, error) {
	kv := map[string]int{}
	for _, line := range strings.Split(out, "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(v); err == nil {
			kv[k] = n
		}
	}
	w, h := kv["WIDTH"], kv["HEIGHT"]
	if w <= 0 || h <= 0 {
		return nil, xerror.Newf("capture", "geometry", "unexpected geometry output [%s]", out)
	}
	return &vision.Rect{X: kv["X"], Y: kv["Y"], Width: w, Height: h}, nil
}

// MatchHint 标题包含任一关键字（大小写不敏感）
func MatchHint(title string, hints []string) bool {
	lower := strings.ToLower(title)
	for _, h := range hints {
		if h != "" && strings.Contains(lower, strings.ToLower(h)) {
			return true
		}
	}
	return false
}
