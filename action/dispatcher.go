package action

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/xiaoshicae/xvision/xerror"
)

const defaultSwipeStep = 16 * time.Millisecond

// Driver 底层输入注入，坐标均为屏幕坐标
type Driver interface {
	MoveTo(ctx context.Context, p image.Point) error
	MouseDown(ctx context.Context) error
	MouseUp(ctx context.Context) error
	TypeText(ctx context.Context, text string) error
	ScreenSize(ctx context.Context) (int, int, error)
}

// Dispatcher 动作下发器，非并发安全的输入序列由 mu 串行化
type Dispatcher struct {
	driver    Driver
	clock     clockwork.Clock
	swipeStep time.Duration

	mu     sync.Mutex
	screen image.Rectangle
}

func NewDispatcher(driver Driver, clock clockwork.Clock) *Dispatcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Dispatcher{driver: driver, clock: clock, swipeStep: defaultSwipeStep}
}

// ScreenBounds 首次调用时向驱动查询并缓存
func (d *Dispatcher) ScreenBounds(ctx context.Context) (image.Rectangle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.screenBoundsLocked(ctx)
}

func (d *Dispatcher) screenBoundsLocked(ctx context.Context) (image.Rectangle, error) {
	if !d.screen.Empty() {
		return d.screen, nil
	}
	w, h, err := d.driver.ScreenSize(ctx)
	if err != nil {
		return image.Rectangle{}, xerror.Wrap(xerror.KindDispatch, "action", "screenSize", err)
	}
	d.screen = image.Rect(0, 0, w, h)
	return d.screen, nil
}

// Dispatch 下发前检查取消；坐标越界、驱动失败均为 DispatchError
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Ack, error) {
	if err := ctx.Err(); err != nil {
		return Ack{}, xerror.Wrap(xerror.KindCancelled, "action", "dispatch", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	begin := d.clock.Now()
	ack := Ack{Kind: req.Kind}
	var err error
	switch req.Kind {
	case KindDoNothing:
	case KindClick:
		if err = d.checkOnScreen(ctx, req.Point); err == nil {
			err = d.click(ctx, req.Point)
			ack.Points = []image.Point{req.Point}
		}
	case KindLongPress:
		if err = d.checkOnScreen(ctx, req.Point); err == nil {
			err = d.press(ctx, req.Point, req.Duration)
			ack.Points = []image.Point{req.Point}
		}
	case KindSwipe:
		if err = d.checkOnScreen(ctx, req.Begin, req.End); err == nil {
			err = d.swipe(ctx, req.Begin, req.End, req.Duration)
			ack.Points = []image.Point{req.Begin, req.End}
		}
	case KindInputText:
		err = d.driver.TypeText(ctx, req.Text)
		ack.Text = req.Text
	case KindWait:
		err = Sleep(ctx, d.clock, req.Duration)
	default:
		err = xerror.Config("action", "dispatch", "unknown action [%s]", req.Kind)
	}
	if err != nil {
		return Ack{}, classify(err)
	}
	ack.CostMs = d.clock.Since(begin).Milliseconds()
	return ack, nil
}

func (d *Dispatcher) checkOnScreen(ctx context.Context, pts ...image.Point) error {
	screen, err := d.screenBoundsLocked(ctx)
	if err != nil {
		return err
	}
	for _, p := range pts {
		if !p.In(screen) {
			return xerror.Wrapf(xerror.KindDispatch, "action", "dispatch", "point (%d,%d) off screen %v", p.X, p.Y, screen)
		}
	}
	return nil
}

func (d *Dispatcher) click(ctx context.Context, p image.Point) error {
	return d.press(ctx, p, 0)
}

func (d *Dispatcher) press(ctx context.Context, p image.Point, hold time.Duration) error {
	if err := d.driver.MoveTo(ctx, p); err != nil {
		return err
	}
	if err := d.driver.MouseDown(ctx); err != nil {
		return err
	}
	holdErr := Sleep(ctx, d.clock, hold)
	// 按下后无论是否取消都要抬起，避免残留按键状态
	if err := d.driver.MouseUp(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	return holdErr
}

// swipe 按 swipeStep 线性插值移动，总耗时约为 duration
func (d *Dispatcher) swipe(ctx context.Context, from, to image.Point, duration time.Duration) error {
	if err := d.driver.MoveTo(ctx, from); err != nil {
		return err
	}
	if err := d.driver.MouseDown(ctx); err != nil {
		return err
	}
	steps := max(1, int(duration/d.swipeStep))
	var moveErr error
	for i := 1; i <= steps; i++ {
		if moveErr = Sleep(ctx, d.clock, duration/time.Duration(steps)); moveErr != nil {
			break
		}
		p := image.Point{
			X: from.X + (to.X-from.X)*i/steps,
			Y: from.Y + (to.Y-from.Y)*i/steps,
		}
		if moveErr = d.driver.MoveTo(ctx, p); moveErr != nil {
			break
		}
	}
	if err := d.driver.MouseUp(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	return moveErr
}

func classify(err error) error {
	switch xerror.KindOf(err) {
	case xerror.KindCancelled, xerror.KindDispatch, xerror.KindConfiguration:
		return err
	}
	return xerror.Wrap(xerror.KindDispatch, "action", "dispatch", err)
}

// Sleep 可被 ctx 取消的等待，d<=0 时不产生计时器
func Sleep(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		if err := ctx.Err(); err != nil {
			return xerror.Wrap(xerror.KindCancelled, "action", "sleep", err)
		}
		return nil
	}
	t := clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return xerror.Wrap(xerror.KindCancelled, "action", "sleep", ctx.Err())
	case <-t.Chan():
		return nil
	}
}
