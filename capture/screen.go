// Package capture 提供屏幕帧与目标窗口信息
package capture

import (
	"context"
	"image"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/kbinani/screenshot"

	"github.com/xiaoshicae/xvision/vision"
	"github.com/xiaoshicae/xvision/xerror"
)

// ScreenSource 截取整个显示器或其中一块区域
type ScreenSource struct {
	display int
	clock   clockwork.Clock

	mu     sync.RWMutex
	region image.Rectangle
}

func NewScreenSource(c *Config, clock clockwork.Clock) *ScreenSource {
	c = configMergeDefault(c)
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ScreenSource{display: c.DisplayIndex, clock: clock}
}

// SetRegion 限定截图区域（屏幕坐标），空矩形表示整个显示器
func (s *ScreenSource) SetRegion(r image.Rectangle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.region = r
}

// Bounds 当前截图区域的屏幕坐标
func (s *ScreenSource) Bounds() (image.Rectangle, error) {
	if n := screenshot.NumActiveDisplays(); n <= s.display {
		return image.Rectangle{}, xerror.Newf("capture", "bounds", "display %d not active, active=%d", s.display, n)
	}
	screen := screenshot.GetDisplayBounds(s.display)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.region.Empty() {
		return screen, nil
	}
	r := s.region.Intersect(screen)
	if r.Empty() {
		return image.Rectangle{}, xerror.Config("capture", "bounds", "region %v outside display %v", s.region, screen)
	}
	return r, nil
}

// Capture 帧的 Origin 为截图区域左上角，识别框加上 Origin 即屏幕坐标
func (s *ScreenSource) Capture(ctx context.Context) (*vision.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, xerror.Wrap(xerror.KindCancelled, "capture", "capture", err)
	}
	bounds, err := s.Bounds()
	if err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, xerror.Newf("capture", "capture", "capture %v failed, err=[%v]", bounds, err)
	}
	return vision.NewFrame(img, bounds.Min, s.clock.Now()), nil
}
