// Package vision 提供无状态的视觉识别：模板匹配、颜色匹配与边缘统计
package vision

import (
	"image"
	"image/draw"
	"time"

	"github.com/xiaoshicae/xvision/xerror"
)

const (
	AlgorithmDirectHit     = "DirectHit"
	AlgorithmTemplateMatch = "TemplateMatch"
	AlgorithmColorMatch    = "ColorMatch"
)

// Rect 矩形区域，坐标以帧左上角为原点
type Rect struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// RectFromSlice 支持 [x, y, w, h]
func RectFromSlice(v []int) (Rect, bool) {
	if len(v) != 4 {
		return Rect{}, false
	}
	return Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, true
}

func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Center 整数中心点，与 x + w/2 的截断语义一致
func (r Rect) Center() image.Point {
	return image.Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

func (r Rect) ToImage() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

func rectOf(ir image.Rectangle) Rect {
	return Rect{X: ir.Min.X, Y: ir.Min.Y, Width: ir.Dx(), Height: ir.Dy()}
}

// Frame 目标窗口的一帧截图，识别调用只借用不持有
type Frame struct {
	Image      *image.RGBA
	Origin     image.Point // 帧左上角在屏幕上的坐标
	CapturedAt time.Time
}

// NewFrame 把任意 image 规范化为以 (0,0) 为起点的 RGBA
func NewFrame(img image.Image, origin image.Point, capturedAt time.Time) *Frame {
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Bounds().Min != (image.Point{}) {
		b := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return &Frame{Image: rgba, Origin: origin, CapturedAt: capturedAt}
}

func (f *Frame) Width() int  { return f.Image.Bounds().Dx() }
func (f *Frame) Height() int { return f.Image.Bounds().Dy() }

// ToScreen 帧坐标转屏幕坐标
func (f *Frame) ToScreen(p image.Point) image.Point {
	return p.Add(f.Origin)
}

// MatchResult 单次识别结果，Hit=false 表示未命中，不是错误
type MatchResult struct {
	Algorithm     string  `json:"algorithm"`
	Hit           bool    `json:"success"`
	Box           *Rect   `json:"box"`
	Score         float64 `json:"score"`
	Count         int     `json:"count,omitempty"`
	Index         int     `json:"index"`
	AllCount      int     `json:"all_count"`
	FilteredCount int     `json:"filtered_count"`
	CostMs        int64   `json:"cost_ms"`
}

// resolveROI roi 为空取整帧；部分越界时裁剪到帧内，完全越界或为空返回配置错误
func resolveROI(f *Frame, roi *Rect) (image.Rectangle, error) {
	if f == nil || f.Image == nil {
		return image.Rectangle{}, xerror.Config("vision", "resolveROI", "frame is empty")
	}
	bounds := f.Image.Bounds()
	if roi == nil {
		return bounds, nil
	}
	if roi.Empty() {
		return image.Rectangle{}, xerror.Config("vision", "resolveROI", "empty roi %+v", *roi)
	}
	r := roi.ToImage().Intersect(bounds)
	if r.Empty() {
		return image.Rectangle{}, xerror.Config("vision", "resolveROI", "roi %+v outside frame %dx%d", *roi, bounds.Dx(), bounds.Dy())
	}
	return r, nil
}
