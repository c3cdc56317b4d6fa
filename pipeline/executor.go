package pipeline

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"

	"github.com/xiaoshicae/xvision/action"
	"github.com/xiaoshicae/xvision/vision"
	"github.com/xiaoshicae/xvision/xerror"
	"github.com/xiaoshicae/xvision/xtrace"
	"github.com/xiaoshicae/xvision/xutil"
)

// FrameSource 提供目标窗口的当前画面
type FrameSource interface {
	Capture(ctx context.Context) (*vision.Frame, error)
}

// Recognizer 对一帧执行节点识别，未命中不是错误
type Recognizer interface {
	Recognize(ctx context.Context, f *vision.Frame, r *Recognition, resourceDir string) (vision.MatchResult, error)
}

// Dispatcher 下发动作
type Dispatcher interface {
	Dispatch(ctx context.Context, req action.Request) (action.Ack, error)
}

// Executor 流水线执行器，同一时刻只允许一个运行
type Executor struct {
	frames     FrameSource
	recognizer Recognizer
	dispatcher Dispatcher

	clock    clockwork.Clock
	monitor  Monitor
	budget   time.Duration
	maxSteps int

	running atomic.Bool
}

type Option func(*Executor)

func WithClock(c clockwork.Clock) Option {
	return func(e *Executor) { e.clock = c }
}

func WithMonitor(m Monitor) Option {
	return func(e *Executor) { e.monitor = m }
}

func WithBudget(d time.Duration) Option {
	return func(e *Executor) { e.budget = d }
}

func WithMaxSteps(n int) Option {
	return func(e *Executor) { e.maxSteps = n }
}

// WithEngineConfig 应用 Engine 配置中的预算与监控开关
func WithEngineConfig(c *EngineConfig) Option {
	return func(e *Executor) {
		c = engineConfigMergeDefault(c)
		e.budget = xutil.ToDuration(c.RunBudget)
		e.maxSteps = c.MaxSteps
		if c.DisableMonitor {
			e.monitor = nil
		}
	}
}

func NewExecutor(frames FrameSource, recognizer Recognizer, dispatcher Dispatcher, opts ...Option) *Executor {
	dc := engineConfigMergeDefault(nil)
	e := &Executor{
		frames:     frames,
		recognizer: recognizer,
		dispatcher: dispatcher,
		clock:      clockwork.NewRealClock(),
		monitor:    LogMonitor(),
		budget:     xutil.ToDuration(dc.RunBudget),
		maxSteps:   dc.MaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Busy 是否有运行在进行
func (e *Executor) Busy() bool {
	return e.running.Load()
}

// Run 从 entry 开始执行 cfg，任何失败都以 Result.Error 返回
func (e *Executor) Run(ctx context.Context, cfg *Config, entry, resourceDir string) Result {
	begin := e.clock.Now()
	res := Result{RunID: uuid.NewString(), Entry: entry, ExecutedNodes: []string{}, Logs: []string{}}

	ctx, span := xtrace.Start(ctx, "pipeline.run", attribute.String("entry", entry), attribute.String("run_id", res.RunID))
	err := e.safeRun(ctx, &res, cfg, entry, resourceDir, begin)
	xtrace.End(span, err)

	res.Success = err == nil
	res.Error = ErrorOf(err)
	res.CostMs = e.clock.Since(begin).Milliseconds()
	if e.monitor != nil {
		e.monitor.OnRunDone(ctx, &res, e.clock.Since(begin))
	}
	return res
}

func (e *Executor) safeRun(ctx context.Context, res *Result, cfg *Config, entry, resourceDir string, begin time.Time) (err error) {
	r := &run{e: e, res: res, cfg: cfg, resourceDir: resourceDir, deadline: begin.Add(e.budget)}
	defer func() {
		if p := recover(); p != nil {
			err = xerror.Newf("pipeline", "run", "panic: %v", p)
			r.logf("运行异常: %v", p)
		}
	}()

	if !e.running.CompareAndSwap(false, true) {
		return xerror.Newf("pipeline", "run", "executor busy, another run in progress")
	}
	defer e.running.Store(false)

	r.logf("开始运行 entry=%s", entry)
	if err := Validate(cfg, entry); err != nil {
		r.logf("配置校验失败: %v", err)
		return err
	}
	if err := r.walk(ctx, entry); err != nil {
		r.logf("运行失败: %v", err)
		return err
	}
	r.logf("运行成功 last_node=%s", res.LastNode)
	return nil
}

// run 单次运行的状态，只在 Run 内部使用
type run struct {
	e           *Executor
	res         *Result
	cfg         *Config
	resourceDir string
	deadline    time.Time
	steps       int
	origin      image.Point
}

func (r *run) logf(format string, args ...any) {
	line := r.e.clock.Now().Format("15:04:05.000") + " " + fmt.Sprintf(format, args...)
	r.res.Logs = append(r.res.Logs, line)
	xutil.InfoIfEnableDebug("[pipeline] %s", line)
}

// walk 深度优先单路径推进，不回溯
func (r *run) walk(ctx context.Context, entry string) error {
	node := r.cfg.Nodes[entry]
	node, reco, err := r.advance(ctx, node, []string{entry})
	for {
		if err != nil {
			return err
		}
		if err := r.act(ctx, node, reco); err != nil {
			return err
		}
		if len(node.Next) == 0 {
			r.logf("节点 %s 无后继，运行结束", node.Name)
			return nil
		}
		r.logf("%s -> next %v", node.Name, node.Next)
		node, reco, err = r.advance(ctx, node, node.Next)
	}
}

// checkpoint 每次轮询与动作前检查取消和全局预算
func (r *run) checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return xerror.Wrap(xerror.KindCancelled, "pipeline", "run", err)
	}
	if !r.e.clock.Now().Before(r.deadline) {
		return xerror.Wrapf(xerror.KindRunTimeout, "pipeline", "run", "run budget %s exhausted", r.e.budget)
	}
	return nil
}

// step 每经过一个节点计一步，轮询不计入
func (r *run) step() error {
	r.steps++
	if r.e.maxSteps > 0 && r.steps > r.e.maxSteps {
		return xerror.Wrapf(xerror.KindRunTimeout, "pipeline", "run", "run exceeded %d steps", r.e.maxSteps)
	}
	return nil
}

// sleep 不超过剩余预算，超出部分由下一次 checkpoint 判定
func (r *run) sleep(ctx context.Context, d time.Duration) error {
	d = min(d, r.deadline.Sub(r.e.clock.Now()))
	return action.Sleep(ctx, r.e.clock, d)
}

// advance 按 owner 的 timeout/interval 轮询候选节点，返回第一个成功的候选
func (r *run) advance(ctx context.Context, owner *Node, candidates []string) (*Node, *vision.MatchResult, error) {
	deadline := r.e.clock.Now().Add(owner.Timeout)
	cleanPolls := 0
	var lastErr error
	for poll := 1; ; poll++ {
		if err := r.checkpoint(ctx); err != nil {
			return nil, nil, err
		}

		var frame *vision.Frame
		var pollErr error
		for _, name := range candidates {
			n := r.cfg.Nodes[name]
			if !n.Enabled {
				r.logf("节点 %s 已禁用，直接通过", name)
				return n, nil, nil
			}

			var reco vision.MatchResult
			if n.Recognition.Present() {
				if frame == nil {
					f, err := r.e.frames.Capture(ctx)
					if err != nil {
						if xerror.IsKind(err, xerror.KindCancelled) {
							return nil, nil, err
						}
						pollErr = err
						r.logf("poll #%d 截图失败: %v", poll, err)
						break
					}
					frame = f
					r.origin = f.Origin
				}
				res, err := r.e.recognizer.Recognize(ctx, frame, &n.Recognition, r.resourceDir)
				if err != nil {
					switch xerror.KindOf(err) {
					case xerror.KindConfiguration, xerror.KindCancelled:
						return nil, nil, withNode(err, name)
					}
					pollErr = err
					r.logf("poll #%d %s 识别出错: %v", poll, name, err)
					continue
				}
				reco = res
			} else {
				reco = directHit(&n.Recognition)
			}

			if reco.Hit != n.Recognition.Inverse {
				r.logf("poll #%d %s 命中 score=%.4f inverse=%t", poll, name, reco.Score, n.Recognition.Inverse)
				return n, &reco, nil
			}
			r.logf("poll #%d %s 未命中 score=%.4f inverse=%t", poll, name, reco.Score, n.Recognition.Inverse)
		}

		if pollErr == nil {
			cleanPolls++
		} else {
			lastErr = pollErr
		}
		now := r.e.clock.Now()
		if !now.Before(deadline) {
			return nil, nil, r.timeoutErr(owner, candidates, cleanPolls, lastErr)
		}
		if err := r.sleep(ctx, min(owner.Interval, deadline.Sub(now))); err != nil {
			return nil, nil, err
		}
	}
}

// timeoutErr 所有轮询都出错时为 RecognitionError，否则为 NodeTimeout
func (r *run) timeoutErr(owner *Node, candidates []string, cleanPolls int, lastErr error) error {
	node := owner.Name
	if len(candidates) == 1 {
		node = candidates[0]
	}
	searched := make([]string, 0, len(candidates))
	for _, name := range candidates {
		searched = append(searched, name+"("+r.cfg.Nodes[name].Recognition.Describe()+")")
	}
	if cleanPolls == 0 && lastErr != nil {
		return xerror.Wrapf(xerror.KindRecognition, "pipeline", "recognize",
			"recognition kept failing within %s, searched [%s]: %w", owner.Timeout, strings.Join(searched, "; "), lastErr).WithNode(node)
	}
	format := "not found within %s, searched [%s]"
	if allInverse(r.cfg, candidates) {
		format = "target still present after %s, searched [%s]"
	}
	return xerror.Wrapf(xerror.KindNodeTimeout, "pipeline", "recognize",
		format, owner.Timeout, strings.Join(searched, "; ")).WithNode(node)
}

func allInverse(cfg *Config, candidates []string) bool {
	for _, name := range candidates {
		if !cfg.Nodes[name].Recognition.Inverse {
			return false
		}
	}
	return len(candidates) > 0
}

// act pre_delay、下发动作、记录节点、post_delay
func (r *run) act(ctx context.Context, n *Node, reco *vision.MatchResult) (err error) {
	if err := r.step(); err != nil {
		return err
	}
	if !n.Enabled {
		return nil
	}
	begin := r.e.clock.Now()
	ctx, span := xtrace.Start(ctx, "pipeline.node", attribute.String("node", n.Name), attribute.String("action", string(n.Action.Kind)))
	defer func() {
		xtrace.End(span, err)
		if r.e.monitor != nil {
			r.e.monitor.OnNodeDone(ctx, r.res.RunID, n.Name, err, r.e.clock.Since(begin))
		}
	}()

	hasAction := n.Action.Kind != action.KindDoNothing
	if hasAction {
		if err := r.sleep(ctx, n.PreDelay); err != nil {
			return err
		}
		if err := r.checkpoint(ctx); err != nil {
			return err
		}
		if err := r.dispatch(ctx, n, reco); err != nil {
			if !n.IgnoreActionError || !xerror.IsKind(err, xerror.KindDispatch) {
				return withNode(err, n.Name)
			}
			r.logf("节点 %s 动作失败已忽略: %v", n.Name, err)
		}
	}

	r.res.ExecutedNodes = append(r.res.ExecutedNodes, n.Name)
	r.res.LastNode = n.Name
	if reco != nil {
		cp := *reco
		r.res.LastRecoResult = &cp
	}

	if hasAction {
		return r.sleep(ctx, n.PostDelay)
	}
	return nil
}

func (r *run) dispatch(ctx context.Context, n *Node, reco *vision.MatchResult) error {
	a := &n.Action
	if a.Kind == action.KindWait {
		r.logf("节点 %s 等待 %s", n.Name, a.Duration)
		return r.sleep(ctx, a.Duration)
	}

	req := action.Request{Kind: a.Kind, Duration: a.Duration, Text: a.Text}
	box := boxOf(n, reco)
	var err error
	switch a.Kind {
	case action.KindClick, action.KindLongPress:
		req.Point, err = r.resolve(a.Target, a.Offset, box)
	case action.KindSwipe:
		begin := a.Target
		if a.Begin != nil {
			begin = *a.Begin
		}
		if req.Begin, err = r.resolve(begin, a.Offset, box); err != nil {
			break
		}
		req.End, err = r.resolve(*a.End, vision.Rect{}, box)
	}
	if err != nil {
		return err
	}

	ack, err := r.e.dispatcher.Dispatch(ctx, req)
	if err != nil {
		r.logf("节点 %s 下发 %s 失败: %v", n.Name, a.Kind, err)
		return err
	}
	r.logf("节点 %s 下发 %s points=%v cost=%dms", n.Name, a.Kind, ack.Points, ack.CostMs)
	return nil
}

// resolve 固定目标 > 识别框+偏移 > 识别框中心，结果换算为屏幕坐标
func (r *run) resolve(t Target, offset vision.Rect, box *vision.Rect) (image.Point, error) {
	if t.Fixed != nil {
		return t.Fixed.Center().Add(r.origin), nil
	}
	if box == nil {
		return image.Point{}, xerror.Wrapf(xerror.KindDispatch, "pipeline", "resolveTarget", "no box to resolve target")
	}
	b := vision.Rect{X: box.X + offset.X, Y: box.Y + offset.Y, Width: box.Width + offset.Width, Height: box.Height + offset.Height}
	return b.Center().Add(r.origin), nil
}

// boxOf 识别框缺失时（如 inverse 成功）退回 roi
func boxOf(n *Node, reco *vision.MatchResult) *vision.Rect {
	if reco != nil && reco.Hit && reco.Box != nil {
		return reco.Box
	}
	return n.Recognition.ROI
}

func withNode(err error, node string) error {
	if xe, ok := err.(*xerror.XError); ok && xe.Node == "" {
		return xe.WithNode(node)
	}
	return err
}
