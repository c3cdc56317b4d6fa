// Package stress 随机拖拽压力测试，单次失败只计数不终止
package stress

import (
	"context"
	"fmt"
	"image"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/xiaoshicae/xvision/action"
	"github.com/xiaoshicae/xvision/xerror"
	"github.com/xiaoshicae/xvision/xlog"
	"github.com/xiaoshicae/xvision/xutil"
)

// Target 压力测试驱动的动作下发端
type Target interface {
	Dispatch(ctx context.Context, req action.Request) (action.Ack, error)
	ScreenBounds(ctx context.Context) (image.Rectangle, error)
}

// PostCheck 拖拽成功后的后置校验
type PostCheck func(ctx context.Context, from, to image.Point) error

// Run 一次压力测试的汇总
type Run struct {
	TotalIterations int      `json:"total_iterations"`
	Successful      int      `json:"successful"`
	Failed          int      `json:"failed"`
	Logs            []string `json:"logs"`
	CostMs          int64    `json:"cost_ms"`
}

type Harness struct {
	target Target
	c      *Config
	clock  clockwork.Clock
	check  PostCheck
}

type Option func(*Harness)

func WithClock(c clockwork.Clock) Option {
	return func(h *Harness) { h.clock = c }
}

func WithPostCheck(check PostCheck) Option {
	return func(h *Harness) { h.check = check }
}

func NewHarness(target Target, c *Config, opts ...Option) *Harness {
	h := &Harness{target: target, c: configMergeDefault(c), clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run seed 为 0 时使用当前时间
func (h *Harness) Run(ctx context.Context, iterations int, seed int64) (*Run, error) {
	if iterations < MinIterations || iterations > MaxIterations {
		return nil, xerror.Config("stress", "run", "iterations %d out of [%d,%d]", iterations, MinIterations, MaxIterations)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	screen, err := h.target.ScreenBounds(ctx)
	if err != nil {
		return nil, err
	}

	begin := h.clock.Now()
	rnd := rand.New(rand.NewSource(seed))
	run := &Run{TotalIterations: iterations, Logs: make([]string, 0, iterations)}
	xlog.Info(ctx, "开始压力测试，迭代次数: %d", iterations, xlog.KV("seed", seed))

	for i := 1; i <= iterations; i++ {
		from, to := h.point(rnd, screen), h.point(rnd, screen)
		if err := h.iterate(ctx, from, to); err != nil {
			if xerror.IsKind(err, xerror.KindCancelled) {
				run.CostMs = h.clock.Since(begin).Milliseconds()
				return run, err
			}
			run.Failed++
			run.Logs = append(run.Logs, fmt.Sprintf("迭代 %d: 失败 - %v", i, err))
		} else {
			run.Successful++
			run.Logs = append(run.Logs, fmt.Sprintf("迭代 %d: 成功 (%d,%d) -> (%d,%d)", i, from.X, from.Y, to.X, to.Y))
		}
		if err := action.Sleep(ctx, h.clock, xutil.ToDuration(h.c.SettleDelay)); err != nil {
			run.CostMs = h.clock.Since(begin).Milliseconds()
			return run, err
		}
	}

	run.CostMs = h.clock.Since(begin).Milliseconds()
	xlog.Info(ctx, "压力测试完成: %d/%d 成功", run.Successful, iterations, xlog.KV("failed", run.Failed))
	return run, nil
}

func (h *Harness) iterate(ctx context.Context, from, to image.Point) error {
	if err := action.Sleep(ctx, h.clock, xutil.ToDuration(h.c.MoveDelay)); err != nil {
		return err
	}
	req := action.Request{Kind: action.KindSwipe, Begin: from, End: to, Duration: xutil.ToDuration(h.c.SwipeDuration)}
	if _, err := h.target.Dispatch(ctx, req); err != nil {
		return err
	}
	if h.check != nil {
		return h.check(ctx, from, to)
	}
	return nil
}

// point 画布模式取 1..100 网格缩放到画布，否则取屏幕中心 ±Spread，结果限制在屏幕内
func (h *Harness) point(rnd *rand.Rand, screen image.Rectangle) image.Point {
	var p image.Point
	if canvas := h.c.canvas(); canvas != nil {
		gx, gy := rnd.Intn(100)+1, rnd.Intn(100)+1
		p = image.Point{
			X: canvas.X + (gx-1)*(canvas.Width-1)/99,
			Y: canvas.Y + (gy-1)*(canvas.Height-1)/99,
		}
	} else {
		c := image.Point{X: (screen.Min.X + screen.Max.X) / 2, Y: (screen.Min.Y + screen.Max.Y) / 2}
		p = image.Point{
			X: c.X + rnd.Intn(2*h.c.Spread+1) - h.c.Spread,
			Y: c.Y + rnd.Intn(2*h.c.Spread+1) - h.c.Spread,
		}
	}
	return image.Point{
		X: xutil.Clamp(p.X, screen.Min.X, screen.Max.X-1),
		Y: xutil.Clamp(p.Y, screen.Min.Y, screen.Max.Y-1),
	}
}
