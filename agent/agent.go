// Package agent 引擎门面，把截图、识别、动作下发、流水线执行、会话管理和 AI 生成组装为对外操作
package agent

import (
	"context"
	"errors"
	"image"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/xiaoshicae/xvision/action"
	"github.com/xiaoshicae/xvision/capture"
	"github.com/xiaoshicae/xvision/interpreter"
	"github.com/xiaoshicae/xvision/metrics"
	"github.com/xiaoshicae/xvision/pipeline"
	"github.com/xiaoshicae/xvision/session"
	"github.com/xiaoshicae/xvision/store"
	"github.com/xiaoshicae/xvision/stress"
	"github.com/xiaoshicae/xvision/vision"
	"github.com/xiaoshicae/xvision/xcache"
	"github.com/xiaoshicae/xvision/xerror"
	"github.com/xiaoshicae/xvision/xutil"
)

// ErrBusy 已有流水线、压力测试或点击类操作在驱动屏幕
var ErrBusy = errors.New("agent busy, another run in progress")

type Screen interface {
	Capture(ctx context.Context) (*vision.Frame, error)
}

type Actuator interface {
	Dispatch(ctx context.Context, req action.Request) (action.Ack, error)
	ScreenBounds(ctx context.Context) (image.Rectangle, error)
}

type Windows interface {
	Info(ctx context.Context) (*capture.WindowInfo, error)
	Focus(ctx context.Context, title string) (*capture.Window, error)
}

type Session interface {
	Launch(ctx context.Context) (*session.LaunchInfo, error)
	Close(ctx context.Context) error
	Running() bool
}

type Interpreter interface {
	Enabled() bool
	GeneratePipeline(ctx context.Context, prompt string) (*interpreter.Generated, error)
	InterpretCommand(ctx context.Context, text string) (*interpreter.Intent, error)
}

type Agent struct {
	c         *Config
	engine    *pipeline.EngineConfig
	stressCfg *stress.Config
	clock     clockwork.Clock

	screen    Screen
	actuator  Actuator
	windows   Windows
	session   Session
	ai        Interpreter
	repo      *store.PipelineRepo
	metrics   *metrics.Collector
	templates *vision.TemplateStore

	recognizer *pipeline.VisionRecognizer
	executor   *pipeline.Executor
	stress     *stress.Harness

	busy sync.Mutex
}

type Option func(*Agent)

func WithConfig(c *Config) Option {
	return func(a *Agent) { a.c = c }
}

func WithEngineConfig(c *pipeline.EngineConfig) Option {
	return func(a *Agent) { a.engine = c }
}

func WithStressConfig(c *stress.Config) Option {
	return func(a *Agent) { a.stressCfg = c }
}

func WithClock(c clockwork.Clock) Option {
	return func(a *Agent) { a.clock = c }
}

func WithWindows(w Windows) Option {
	return func(a *Agent) { a.windows = w }
}

func WithSession(s Session) Option {
	return func(a *Agent) { a.session = s }
}

func WithInterpreter(i Interpreter) Option {
	return func(a *Agent) { a.ai = i }
}

// WithRepo 不设置时流水线库相关操作返回配置错误
func WithRepo(r *store.PipelineRepo) Option {
	return func(a *Agent) { a.repo = r }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(a *Agent) { a.metrics = m }
}

func WithTemplateStore(s *vision.TemplateStore) Option {
	return func(a *Agent) { a.templates = s }
}

func New(screen Screen, actuator Actuator, opts ...Option) *Agent {
	a := &Agent{screen: screen, actuator: actuator}
	for _, opt := range opts {
		opt(a)
	}
	if a.c == nil {
		a.c = GetConfig()
	}
	a.c = configMergeDefault(a.c)
	if a.engine == nil {
		a.engine = pipeline.GetEngineConfig()
	}
	if a.stressCfg == nil {
		a.stressCfg = stress.GetConfig()
	}
	if a.clock == nil {
		a.clock = clockwork.NewRealClock()
	}
	if a.templates == nil {
		a.templates = vision.NewTemplateStore(xcache.C())
	}

	monitors := []pipeline.Monitor{pipeline.LogMonitor()}
	if a.metrics != nil {
		monitors = append(monitors, a.metrics)
	}
	a.recognizer = pipeline.NewVisionRecognizer(a.templates)
	a.executor = pipeline.NewExecutor(screen, a.recognizer, actuator,
		pipeline.WithClock(a.clock),
		pipeline.WithMonitor(pipeline.Monitors(monitors...)),
		pipeline.WithEngineConfig(a.engine),
	)

	stressOpts := []stress.Option{stress.WithClock(a.clock)}
	if a.stressCfg.VerifyEdges {
		stressOpts = append(stressOpts, stress.WithPostCheck(a.edgeCheck))
	}
	a.stress = stress.NewHarness(actuator, a.stressCfg, stressOpts...)
	return a
}

// NewFromConfig 按各模块配置组装真实的截图、xdotool 下发、会话与 AI 客户端
func NewFromConfig(ctx context.Context) (*Agent, error) {
	clock := clockwork.NewRealClock()
	cc := capture.GetConfig()
	xdo := action.NewXdotool(cc.XdotoolBin, cc.Display)

	opts := []Option{
		WithClock(clock),
		WithWindows(capture.NewWindowManager(cc)),
		WithSession(session.NewManager(session.GetConfig(), clock)),
		WithInterpreter(interpreter.New(interpreter.GetConfig())),
		WithMetrics(metrics.New()),
	}
	repo, err := store.NewPipelineRepo(nil)
	switch {
	case err == nil:
		if err := repo.Migrate(ctx); err != nil {
			return nil, err
		}
		opts = append(opts, WithRepo(repo))
	case xerror.IsKind(err, xerror.KindConfiguration):
		xutil.WarnIfEnableDebug("XVision agent pipeline store disabled, err=[%v]", err)
	default:
		return nil, err
	}
	return New(capture.NewScreenSource(cc, clock), action.NewDispatcher(xdo, clock), opts...), nil
}

// Metrics 未配置时为 nil
func (a *Agent) Metrics() *metrics.Collector {
	return a.metrics
}

func (a *Agent) Config() *Config {
	return a.c
}

// Capture 截取一帧，不占用运行锁
func (a *Agent) Capture(ctx context.Context) (*vision.Frame, error) {
	return a.screen.Capture(ctx)
}

// exclusive 驱动屏幕的操作互斥执行，已占用时立即返回 ErrBusy
func (a *Agent) exclusive(fn func() error) error {
	if !a.busy.TryLock() {
		return ErrBusy
	}
	defer a.busy.Unlock()
	return fn()
}

// Busy 是否有驱动屏幕的操作在进行
func (a *Agent) Busy() bool {
	if a.busy.TryLock() {
		a.busy.Unlock()
		return false
	}
	return true
}

func (a *Agent) Launch(ctx context.Context) (*session.LaunchInfo, error) {
	if a.session == nil {
		return nil, xerror.Config("agent", "launch", "session not configured")
	}
	return a.session.Launch(ctx)
}

func (a *Agent) Close(ctx context.Context) error {
	if a.session == nil {
		return xerror.Config("agent", "close", "session not configured")
	}
	return a.session.Close(ctx)
}

func (a *Agent) GetWindowInfo(ctx context.Context) (*capture.WindowInfo, error) {
	if a.windows == nil {
		return nil, xerror.Config("agent", "windowInfo", "window manager not configured")
	}
	return a.windows.Info(ctx)
}

// FocusTargetWindow title 为空时取第一个匹配关键字的窗口
func (a *Agent) FocusTargetWindow(ctx context.Context, title string) (*capture.Window, error) {
	if a.windows == nil {
		return nil, xerror.Config("agent", "focusWindow", "window manager not configured")
	}
	return a.windows.Focus(ctx, title)
}

// GetScreenFrame region 为帧坐标，空表示整帧
func (a *Agent) GetScreenFrame(ctx context.Context, region *vision.Rect) (*capture.FrameImage, error) {
	f, err := a.screen.Capture(ctx)
	if err != nil {
		return nil, err
	}
	return capture.EncodeDataURL(f, region)
}

// RunStressTest seed 为 0 时随机
func (a *Agent) RunStressTest(ctx context.Context, iterations int, seed int64) (*stress.Run, error) {
	var run *stress.Run
	err := a.exclusive(func() error {
		var err error
		run, err = a.stress.Run(ctx, iterations, seed)
		return err
	})
	if a.metrics != nil {
		a.metrics.ObserveStress(run)
	}
	return run, err
}

// edgeCheck 拖拽后画面中应有可见图形
func (a *Agent) edgeCheck(ctx context.Context, _, _ image.Point) error {
	v, err := a.VerifyVisualResult(ctx, "stroke")
	if err != nil {
		return err
	}
	if !v.Verified {
		return xerror.Wrapf(xerror.KindDispatch, "agent", "stressCheck", "no visible stroke, edge_ratio=%.4f", v.EdgeRatio)
	}
	return nil
}
