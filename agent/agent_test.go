package agent

import (
	"context"
	"errors"
	"image"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/bytedance/mockey"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/disintegration/imaging"
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
	"github.com/xiaoshicae/xvision/xgorm"
	"github.com/xiaoshicae/xvision/xutil"
)

type staticScreen struct {
	frame *vision.Frame
	err   error
}

func (s *staticScreen) Capture(ctx context.Context) (*vision.Frame, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.frame, nil
}

type recordActuator struct {
	mu   sync.Mutex
	reqs []action.Request
	err  error
}

func (r *recordActuator) Dispatch(_ context.Context, req action.Request) (action.Ack, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	return action.Ack{Kind: req.Kind}, r.err
}

func (r *recordActuator) ScreenBounds(context.Context) (image.Rectangle, error) {
	return image.Rect(0, 0, 800, 600), nil
}

func (r *recordActuator) requests() []action.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]action.Request(nil), r.reqs...)
}

type fakeSession struct {
	err      error
	launched int
}

func (s *fakeSession) Launch(context.Context) (*session.LaunchInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.launched++
	return &session.LaunchInfo{PID: 42, Path: "/opt/target"}, nil
}

func (s *fakeSession) Close(context.Context) error { return s.err }
func (s *fakeSession) Running() bool               { return s.launched > 0 }

type fakeWindows struct{}

func (fakeWindows) Info(context.Context) (*capture.WindowInfo, error) {
	return &capture.WindowInfo{AllWindows: []string{"DiagramScene"}, TargetWindows: []capture.Window{{ID: "1", Title: "DiagramScene"}}}, nil
}

func (fakeWindows) Focus(_ context.Context, title string) (*capture.Window, error) {
	return &capture.Window{ID: "1", Title: title}, nil
}

type fakeAI struct {
	generated *interpreter.Generated
	intent    *interpreter.Intent
	err       error
}

func (f *fakeAI) Enabled() bool { return true }

func (f *fakeAI) GeneratePipeline(context.Context, string) (*interpreter.Generated, error) {
	return f.generated, f.err
}

func (f *fakeAI) InterpretCommand(context.Context, string) (*interpreter.Intent, error) {
	return f.intent, f.err
}

func noise(seed int64, w, h int) *image.NRGBA {
	r := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(r.Intn(256))
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

type fixture struct {
	agent    *Agent
	screen   *staticScreen
	actuator *recordActuator
	dir      string
}

// newFixture 屏幕为 200x150 的噪声图，左上角位于屏幕 (10,20)，icon.png 取自 (60,40) 处 24x24
func newFixture(t *testing.T, opts ...Option) *fixture {
	dir := t.TempDir()
	src := noise(7, 200, 150)
	So(imaging.Save(imaging.Crop(src, image.Rect(60, 40, 84, 64)), filepath.Join(dir, "icon.png")), ShouldBeNil)
	So(imaging.Save(noise(99, 24, 24), filepath.Join(dir, "absent.png")), ShouldBeNil)

	cache, err := xcache.New(&xcache.Config{NumCounters: 1000, MaxCost: 1 << 24, BufferItems: 64})
	So(err, ShouldBeNil)

	fx := &fixture{
		screen:   &staticScreen{frame: vision.NewFrame(src, image.Point{X: 10, Y: 20}, time.Now())},
		actuator: &recordActuator{},
		dir:      dir,
	}
	base := []Option{
		WithConfig(&Config{ResourceDir: dir, OutputDir: filepath.Join(dir, "out"), ScanDirs: []string{dir}}),
		WithEngineConfig(&pipeline.EngineConfig{RunBudget: "10s"}),
		WithStressConfig(&stress.Config{MoveDelay: "0", SwipeDuration: "10ms", SettleDelay: "0"}),
		WithTemplateStore(vision.NewTemplateStore(cache)),
	}
	fx.agent = New(fx.screen, fx.actuator, append(base, opts...)...)
	return fx
}

func newRepo() *store.PipelineRepo {
	db, err := xgorm.New(&xgorm.Config{Driver: string(xgorm.DriverSQLite), DSN: ":memory:"})
	So(err, ShouldBeNil)
	repo, err := store.NewPipelineRepo(db)
	So(err, ShouldBeNil)
	So(repo.Migrate(context.Background()), ShouldBeNil)
	return repo
}

func TestFindAndClickTemplate(t *testing.T) {
	PatchConvey("TestFindAndClickTemplate", t, func() {
		fx := newFixture(t)
		ctx := context.Background()

		PatchConvey("找图返回帧坐标", func() {
			res, err := fx.agent.FindTemplate(ctx, TemplateQuery{Template: "icon.png"})
			So(err, ShouldBeNil)
			So(res.Hit, ShouldBeTrue)
			So(*res.Box, ShouldResemble, vision.Rect{X: 60, Y: 40, Width: 24, Height: 24})
		})

		PatchConvey("阈值未填时取默认值，显式 0 保留", func() {
			r, err := TemplateQuery{Template: "icon.png"}.recognition()
			So(err, ShouldBeNil)
			So(r.Thresholds, ShouldResemble, []float64{vision.DefaultThreshold})

			r, err = TemplateQuery{Template: "icon.png", Threshold: xutil.ToPtr(0.0)}.recognition()
			So(err, ShouldBeNil)
			So(r.Thresholds, ShouldResemble, []float64{0})

			res, err := fx.agent.FindTemplate(ctx, TemplateQuery{Template: "icon.png", Threshold: xutil.ToPtr(0.0)})
			So(err, ShouldBeNil)
			So(res.Hit, ShouldBeTrue)
		})

		PatchConvey("模板不存在为配置错误", func() {
			_, err := fx.agent.FindTemplate(ctx, TemplateQuery{Template: "missing.png"})
			So(xerror.IsKind(err, xerror.KindConfiguration), ShouldBeTrue)
		})

		PatchConvey("roi 格式错误", func() {
			_, err := fx.agent.FindTemplate(ctx, TemplateQuery{Template: "icon.png", ROI: []int{1, 2}})
			So(xerror.IsKind(err, xerror.KindConfiguration), ShouldBeTrue)
		})

		PatchConvey("点击识别框中心加偏移并换算屏幕坐标", func() {
			res, err := fx.agent.ClickTemplate(ctx, ClickQuery{TemplateQuery: TemplateQuery{Template: "icon.png"}, Offset: []int{5, -5}})
			So(err, ShouldBeNil)
			So(res.Success, ShouldBeTrue)
			So(*res.Position, ShouldResemble, Position{X: 72 + 10 + 5, Y: 52 + 20 - 5})
			reqs := fx.actuator.requests()
			So(len(reqs), ShouldEqual, 1)
			So(reqs[0].Kind, ShouldEqual, action.KindClick)
			So(reqs[0].Point, ShouldResemble, image.Point{X: 87, Y: 67})
		})

		PatchConvey("未找到时不点击", func() {
			res, err := fx.agent.ClickTemplate(ctx, ClickQuery{TemplateQuery: TemplateQuery{Template: "absent.png"}})
			So(err, ShouldBeNil)
			So(res.Success, ShouldBeFalse)
			So(res.Message, ShouldEqual, "未找到目标")
			So(len(fx.actuator.requests()), ShouldEqual, 0)
		})

		PatchConvey("截图失败", func() {
			fx.screen.err = errors.New("no display")
			_, err := fx.agent.FindTemplate(ctx, TemplateQuery{Template: "icon.png"})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestFindColor(t *testing.T) {
	PatchConvey("TestFindColor", t, func() {
		fx := newFixture(t)
		img := image.NewRGBA(image.Rect(0, 0, 20, 20))
		for y := 5; y < 15; y++ {
			for x := 5; x < 15; x++ {
				i := img.PixOffset(x, y)
				img.Pix[i], img.Pix[i+3] = 255, 255
			}
		}
		fx.screen.frame = vision.NewFrame(img, image.Point{}, time.Now())

		res, err := fx.agent.FindColor(context.Background(), ColorQuery{Lower: [3]int{200, 0, 0}, Upper: [3]int{255, 10, 10}, Method: "rgb"})
		So(err, ShouldBeNil)
		So(res.Hit, ShouldBeTrue)
		So(res.Count, ShouldEqual, 100)

		_, err = fx.agent.FindColor(context.Background(), ColorQuery{Method: "LAB"})
		So(xerror.IsKind(err, xerror.KindConfiguration), ShouldBeTrue)
	})
}

func TestWaitForTemplate(t *testing.T) {
	PatchConvey("TestWaitForTemplate", t, func() {
		fx := newFixture(t)
		ctx := context.Background()

		PatchConvey("已出现", func() {
			res, err := fx.agent.WaitForTemplate(ctx, WaitQuery{TemplateQuery: TemplateQuery{Template: "icon.png"}, TimeoutMs: 200, IntervalMs: 20})
			So(err, ShouldBeNil)
			So(res.Success, ShouldBeTrue)
			So(res.Find.Box.X, ShouldEqual, 60)
		})

		PatchConvey("超时", func() {
			res, err := fx.agent.WaitForTemplate(ctx, WaitQuery{TemplateQuery: TemplateQuery{Template: "absent.png"}, TimeoutMs: 60, IntervalMs: 20})
			So(err, ShouldBeNil)
			So(res.Success, ShouldBeFalse)
			So(res.Error.Kind, ShouldEqual, xerror.KindNodeTimeout)
			So(res.Error.Node, ShouldEqual, waitNode)
		})
	})
}

func TestRunPipeline(t *testing.T) {
	PatchConvey("TestRunPipeline", t, func() {
		fx := newFixture(t)
		ctx := context.Background()
		doc := map[string]any{
			"$comment": "点击",
			"start":    map[string]any{"next": []any{"click"}, "pre_delay": 0, "post_delay": 0},
			"click":    map[string]any{"action": "Click", "target": []any{30, 40}, "pre_delay": 0, "post_delay": 0},
		}

		PatchConvey("文档运行", func() {
			res, err := fx.agent.RunPipelineDocument(ctx, doc, "start", "")
			So(err, ShouldBeNil)
			So(res.Success, ShouldBeTrue)
			So(res.ExecutedNodes, ShouldResemble, []string{"start", "click"})
			So(fx.actuator.requests()[0].Point, ShouldResemble, image.Point{X: 30, Y: 40})
		})

		PatchConvey("文档无法解析", func() {
			res, err := fx.agent.RunPipelineDocument(ctx, map[string]any{}, "start", "")
			So(err, ShouldBeNil)
			So(res.Success, ShouldBeFalse)
			So(res.Error.Kind, ShouldEqual, xerror.KindConfiguration)
		})

		PatchConvey("文件不存在", func() {
			res, err := fx.agent.RunPipelineFromFile(ctx, filepath.Join(fx.dir, "none_pipeline.json"), "start", "")
			So(err, ShouldBeNil)
			So(res.Error.Kind, ShouldEqual, xerror.KindConfiguration)
		})

		PatchConvey("忙时拒绝", func() {
			fx.agent.busy.Lock()
			defer fx.agent.busy.Unlock()
			So(fx.agent.Busy(), ShouldBeTrue)
			_, err := fx.agent.RunPipelineDocument(ctx, doc, "start", "")
			So(errors.Is(err, ErrBusy), ShouldBeTrue)
			_, err = fx.agent.RunStressTest(ctx, 1, 1)
			So(errors.Is(err, ErrBusy), ShouldBeTrue)
		})

		PatchConvey("空闲", func() {
			So(fx.agent.Busy(), ShouldBeFalse)
		})
	})
}

func writeFile(path, content string) {
	So(os.MkdirAll(filepath.Dir(path), 0o755), ShouldBeNil)
	So(os.WriteFile(path, []byte(content), 0o644), ShouldBeNil)
}

func TestScanAndPipelineTest(t *testing.T) {
	PatchConvey("TestScanAndPipelineTest", t, func() {
		fx := newFixture(t)
		ctx := context.Background()
		root := filepath.Join(fx.dir, "suite")
		writeFile(filepath.Join(root, "a", "login_pipeline.json"),
			`{"$description": "登录", "$resource_base": "../res", "start": {"next": ["click"], "pre_delay": 0, "post_delay": 0}, "click": {"action": "Click", "target": [5, 5], "pre_delay": 0, "post_delay": 0}}`)
		writeFile(filepath.Join(root, "b", "sub", "draw_pipeline.yaml"), "$comment: 画线\nstart:\n  action: DoNothing\n")
		writeFile(filepath.Join(root, "bad_pipeline.json"), `{"start": `)
		writeFile(filepath.Join(root, "notes.json"), `{"start": {}}`)

		PatchConvey("递归扫描", func() {
			files := fx.agent.ScanPipelineTests(ctx, root)
			So(len(files), ShouldEqual, 2)
			So(files[0].Name, ShouldEqual, "login_pipeline")
			So(files[0].Entries, ShouldResemble, []string{"click", "start"})
			So(files[0].Description, ShouldEqual, "登录")
			So(files[0].NodeCount, ShouldEqual, 2)
			So(files[1].Format, ShouldEqual, pipeline.FormatYAML)
			So(files[1].Description, ShouldEqual, "画线")
		})

		PatchConvey("默认目录与不存在的目录", func() {
			So(len(fx.agent.ScanPipelineTests(ctx, "")), ShouldEqual, 2)
			So(fx.agent.ScanPipelineTests(ctx, filepath.Join(fx.dir, "nope")), ShouldBeEmpty)
		})

		PatchConvey("资源目录解析", func() {
			login := filepath.Join(root, "a", "login_pipeline.json")
			draw := filepath.Join(root, "b", "sub", "draw_pipeline.yaml")
			So(ResolveResourceDir(login, "/explicit"), ShouldEqual, "/explicit")
			So(ResolveResourceDir(login, ""), ShouldEqual, filepath.Join(root, "res"))
			So(ResolveResourceDir(draw, ""), ShouldEqual, filepath.Dir(draw))
		})

		PatchConvey("先启动应用再运行", func() {
			sess := &fakeSession{}
			fx.agent.session = sess
			res, err := fx.agent.RunPipelineTest(ctx, TestRequest{Path: filepath.Join(root, "a", "login_pipeline.json"), Entry: "start", LaunchApp: true})
			So(err, ShouldBeNil)
			So(res.AppLaunched, ShouldBeTrue)
			So(res.Success, ShouldBeTrue)
			So(res.ResourceDir, ShouldEqual, filepath.Join(root, "res"))
			So(sess.launched, ShouldEqual, 1)
		})

		PatchConvey("启动失败仍运行", func() {
			fx.agent.session = &fakeSession{err: errors.New("exec failed")}
			res, err := fx.agent.RunPipelineTest(ctx, TestRequest{Path: filepath.Join(root, "a", "login_pipeline.json"), Entry: "start", LaunchApp: true})
			So(err, ShouldBeNil)
			So(res.AppLaunched, ShouldBeFalse)
			So(res.Success, ShouldBeTrue)
		})
	})
}

func TestVerifyAndCapabilities(t *testing.T) {
	PatchConvey("TestVerifyAndCapabilities", t, func() {
		fx := newFixture(t)
		v, err := fx.agent.VerifyVisualResult(context.Background(), "line")
		So(err, ShouldBeNil)
		So(v.Verified, ShouldBeTrue)
		So(v.Message, ShouldEqual, "检测到图形元素")

		fx.screen.frame = vision.NewFrame(image.NewRGBA(image.Rect(0, 0, 50, 50)), image.Point{}, time.Now())
		v, err = fx.agent.VerifyVisualResult(context.Background(), "line")
		So(err, ShouldBeNil)
		So(v.Verified, ShouldBeFalse)
		So(v.EdgeRatio, ShouldEqual, 0)

		c := fx.agent.GetVisionCapabilities()
		So(c.Capabilities, ShouldContain, "wait_for_template")
		So(c.Actions, ShouldContain, string(action.KindLongPress))

		frame, err := fx.agent.GetScreenFrame(context.Background(), &vision.Rect{X: 0, Y: 0, Width: 10, Height: 8})
		So(err, ShouldBeNil)
		So(frame.Width, ShouldEqual, 10)
		So(frame.Height, ShouldEqual, 8)
	})
}

func TestSessionAndWindows(t *testing.T) {
	PatchConvey("TestSessionAndWindows", t, func() {
		ctx := context.Background()

		PatchConvey("未配置", func() {
			fx := newFixture(t)
			_, err := fx.agent.Launch(ctx)
			So(xerror.IsKind(err, xerror.KindConfiguration), ShouldBeTrue)
			So(xerror.IsKind(fx.agent.Close(ctx), xerror.KindConfiguration), ShouldBeTrue)
			_, err = fx.agent.GetWindowInfo(ctx)
			So(xerror.IsKind(err, xerror.KindConfiguration), ShouldBeTrue)
		})

		PatchConvey("已配置", func() {
			fx := newFixture(t, WithSession(&fakeSession{}), WithWindows(fakeWindows{}))
			info, err := fx.agent.Launch(ctx)
			So(err, ShouldBeNil)
			So(info.PID, ShouldEqual, 42)
			wi, err := fx.agent.GetWindowInfo(ctx)
			So(err, ShouldBeNil)
			So(wi.TargetWindows[0].Title, ShouldEqual, "DiagramScene")
			w, err := fx.agent.FocusTargetWindow(ctx, "DiagramScene")
			So(err, ShouldBeNil)
			So(w.Title, ShouldEqual, "DiagramScene")
		})
	})
}

func TestStress(t *testing.T) {
	PatchConvey("TestStress", t, func() {
		m := metrics.New()
		fx := newFixture(t, WithMetrics(m))
		run, err := fx.agent.RunStressTest(context.Background(), 3, 1)
		So(err, ShouldBeNil)
		So(run.Successful, ShouldEqual, 3)
		So(len(fx.actuator.requests()), ShouldEqual, 3)
		So(fx.actuator.requests()[0].Kind, ShouldEqual, action.KindSwipe)

		_, err = fx.agent.RunStressTest(context.Background(), 0, 1)
		So(xerror.IsKind(err, xerror.KindConfiguration), ShouldBeTrue)
	})
}

func TestAI(t *testing.T) {
	PatchConvey("TestAI", t, func() {
		ctx := context.Background()
		now := time.Date(2026, 1, 2, 15, 4, 5, 0, time.Local)

		PatchConvey("未配置", func() {
			fx := newFixture(t)
			_, err := fx.agent.GeneratePipeline(ctx, "画线", "")
			So(xerror.IsKind(err, xerror.KindConfiguration), ShouldBeTrue)
			_, err = fx.agent.ExecuteAICommand(ctx, "点击")
			So(xerror.IsKind(err, xerror.KindConfiguration), ShouldBeTrue)
		})

		PatchConvey("生成并保存", func() {
			doc := []byte(`{"$comment": "画线", "start": {"next": []}}`)
			cfg, err := pipeline.Parse(doc, pipeline.FormatJSON)
			So(err, ShouldBeNil)
			ai := &fakeAI{generated: &interpreter.Generated{Raw: string(doc), Document: doc, Config: cfg, Entry: "start"}}
			fx := newFixture(t, WithInterpreter(ai), WithRepo(newRepo()), WithClock(clockwork.NewFakeClockAt(now)))

			g, err := fx.agent.GeneratePipeline(ctx, "画一条线", "draw line")
			So(err, ShouldBeNil)
			So(g.FileName, ShouldEqual, "ai_pipeline_draw_line_20260102_150405.json")
			So(g.Stored, ShouldBeTrue)
			So(g.NodeCount, ShouldEqual, 1)
			written, err := os.ReadFile(g.FilePath)
			So(err, ShouldBeNil)
			So(string(written), ShouldEqual, string(doc))

			rec, err := fx.agent.GetPipeline(ctx, "ai_pipeline_draw_line_20260102_150405")
			So(err, ShouldBeNil)
			So(rec.Description, ShouldEqual, "画线")

			recs, err := fx.agent.ListPipelines(ctx)
			So(err, ShouldBeNil)
			So(len(recs), ShouldEqual, 1)
		})

		PatchConvey("生成失败带原始响应", func() {
			ai := &fakeAI{generated: &interpreter.Generated{Raw: "not json"}, err: xerror.Config("pipeline", "parse", "bad")}
			fx := newFixture(t, WithInterpreter(ai))
			g, err := fx.agent.GeneratePipeline(ctx, "x", "")
			So(err, ShouldNotBeNil)
			So(g.RawResponse, ShouldEqual, "not json")
		})

		PatchConvey("执行指令", func() {
			cfg, err := pipeline.FromMap(map[string]any{interpreter.CommandNode: map[string]any{
				"action": "Click", "target": []any{30, 40}, "pre_delay": 0, "post_delay": 0,
			}})
			So(err, ShouldBeNil)
			ai := &fakeAI{intent: &interpreter.Intent{Command: "点击", Action: action.KindClick, Executable: true, Config: cfg}}
			fx := newFixture(t, WithInterpreter(ai))

			res, err := fx.agent.ExecuteAICommand(ctx, "点击")
			So(err, ShouldBeNil)
			So(res.Executed, ShouldBeTrue)
			So(res.Result.Success, ShouldBeTrue)
			So(fx.actuator.requests()[0].Point, ShouldResemble, image.Point{X: 30, Y: 40})
		})

		PatchConvey("仅解释", func() {
			ai := &fakeAI{intent: &interpreter.Intent{Command: "你好", Action: action.KindDoNothing}}
			fx := newFixture(t, WithInterpreter(ai))
			res, err := fx.agent.ExecuteAICommand(ctx, "你好")
			So(err, ShouldBeNil)
			So(res.Executed, ShouldBeFalse)
			So(len(fx.actuator.requests()), ShouldEqual, 0)
		})
	})
}

func TestLibrary(t *testing.T) {
	PatchConvey("TestLibrary", t, func() {
		ctx := context.Background()

		PatchConvey("未配置流水线库", func() {
			fx := newFixture(t)
			_, err := fx.agent.ListPipelines(ctx)
			So(xerror.IsKind(err, xerror.KindConfiguration), ShouldBeTrue)
		})

		PatchConvey("保存运行删除", func() {
			fx := newFixture(t, WithRepo(newRepo()))
			doc := []byte(`{"start": {"action": "Click", "target": [1, 2], "pre_delay": 0, "post_delay": 0}}`)
			_, err := fx.agent.SavePipeline(ctx, "one", doc, pipeline.FormatJSON)
			So(err, ShouldBeNil)

			res, err := fx.agent.RunStoredPipeline(ctx, "one", "start", "")
			So(err, ShouldBeNil)
			So(res.Success, ShouldBeTrue)

			So(fx.agent.DeletePipeline(ctx, "one"), ShouldBeNil)
			err = fx.agent.DeletePipeline(ctx, "one")
			So(errors.Is(err, store.ErrNotFound), ShouldBeTrue)
		})
	})
}
