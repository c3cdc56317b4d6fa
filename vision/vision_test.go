package vision

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/bytedance/mockey"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/disintegration/imaging"

	"github.com/xiaoshicae/xvision/xcache"
	"github.com/xiaoshicae/xvision/xerror"
)

// noiseImage 固定种子的随机图，blur>0 时做高斯模糊得到平滑纹理
func noiseImage(w, h int, seed int64, blur float64) image.Image {
	r := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(r.Intn(256)), G: uint8(r.Intn(256)), B: uint8(r.Intn(256)), A: 255})
		}
	}
	if blur > 0 {
		return imaging.Blur(img, blur)
	}
	return img
}

func solidFrame(w, h int, c color.RGBA) *Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return NewFrame(img, image.Point{}, time.Now())
}

func invert(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			out.Set(x, y, color.NRGBA{R: 255 - c.R, G: 255 - c.G, B: 255 - c.B, A: 255})
		}
	}
	return out
}

func TestRect(t *testing.T) {
	PatchConvey("TestRect", t, func() {
		r, ok := RectFromSlice([]int{10, 20, 30, 41})
		So(ok, ShouldBeTrue)
		So(r.Center(), ShouldResemble, image.Point{X: 25, Y: 40})
		_, ok = RectFromSlice([]int{1, 2})
		So(ok, ShouldBeFalse)
		So(Rect{Width: 0, Height: 3}.Empty(), ShouldBeTrue)
	})
}

func TestResolveROI(t *testing.T) {
	PatchConvey("TestResolveROI", t, func() {
		f := solidFrame(100, 50, color.RGBA{A: 255})

		PatchConvey("nil取整帧", func() {
			r, err := resolveROI(f, nil)
			So(err, ShouldBeNil)
			So(r, ShouldResemble, image.Rect(0, 0, 100, 50))
		})

		PatchConvey("部分越界裁剪", func() {
			r, err := resolveROI(f, &Rect{X: 90, Y: 40, Width: 20, Height: 20})
			So(err, ShouldBeNil)
			So(r, ShouldResemble, image.Rect(90, 40, 100, 50))
		})

		PatchConvey("空roi", func() {
			_, err := resolveROI(f, &Rect{X: 1, Y: 1})
			So(xerror.IsKind(err, xerror.KindConfiguration), ShouldBeTrue)
		})

		PatchConvey("完全越界", func() {
			_, err := resolveROI(f, &Rect{X: 200, Y: 0, Width: 10, Height: 10})
			So(xerror.IsKind(err, xerror.KindConfiguration), ShouldBeTrue)
		})
	})
}

func TestTemplateMatch(t *testing.T) {
	PatchConvey("TestTemplateMatch", t, func() {
		ctx := context.Background()
		src := noiseImage(60, 40, 1, 0)
		frame := NewFrame(src, image.Point{X: 100, Y: 200}, time.Now())
		crop := imaging.Crop(src, image.Rect(17, 9, 29, 19))
		m := &TemplateMatcher{Workers: 3}

		PatchConvey("相同子图分数为1", func() {
			res, err := m.MatchTemplates(ctx, frame, nil, []*Template{TemplateFromImage("a", crop)}, []float64{1.0}, false)
			So(err, ShouldBeNil)
			So(res.Hit, ShouldBeTrue)
			So(res.Score, ShouldEqual, 1.0)
			So(*res.Box, ShouldResemble, Rect{X: 17, Y: 9, Width: 12, Height: 10})
			So(frame.ToScreen(res.Box.Center()), ShouldResemble, image.Point{X: 123, Y: 214})
		})

		PatchConvey("完全不同的图像未命中", func() {
			res, err := m.MatchTemplates(ctx, frame, nil, []*Template{TemplateFromImage("inv", invert(crop))}, []float64{0.7}, false)
			So(err, ShouldBeNil)
			So(res.Hit, ShouldBeFalse)
			So(res.Box, ShouldBeNil)
			So(res.Score, ShouldBeLessThan, 0.7)
			So(res.Index, ShouldEqual, -1)
		})

		PatchConvey("同分取下标小者", func() {
			tpls := []*Template{
				TemplateFromImage("inv", invert(crop)),
				TemplateFromImage("a", crop),
				TemplateFromImage("b", crop),
			}
			res, err := m.MatchTemplates(ctx, frame, nil, tpls, []float64{0.9}, false)
			So(err, ShouldBeNil)
			So(res.Index, ShouldEqual, 1)
			So(res.AllCount, ShouldEqual, 3)
			So(res.FilteredCount, ShouldEqual, 2)
		})

		PatchConvey("roi内搜索，box为帧坐标", func() {
			res, err := m.MatchTemplates(ctx, frame, &Rect{X: 10, Y: 5, Width: 30, Height: 20}, []*Template{TemplateFromImage("a", crop)}, nil, false)
			So(err, ShouldBeNil)
			So(res.Hit, ShouldBeTrue)
			So(res.Box.X, ShouldEqual, 17)
			So(res.Box.Y, ShouldEqual, 9)
		})

		PatchConvey("模板大于roi视为未命中", func() {
			res, err := m.MatchTemplates(ctx, frame, &Rect{X: 0, Y: 0, Width: 5, Height: 5}, []*Template{TemplateFromImage("a", crop)}, nil, false)
			So(err, ShouldBeNil)
			So(res.Hit, ShouldBeFalse)
		})

		PatchConvey("阈值数量不对齐", func() {
			_, err := m.MatchTemplates(ctx, frame, nil, []*Template{TemplateFromImage("a", crop), TemplateFromImage("b", crop)}, []float64{0.1, 0.2, 0.3}, false)
			So(xerror.IsKind(err, xerror.KindConfiguration), ShouldBeTrue)
		})

		PatchConvey("多尺度包含原尺度", func() {
			res, err := m.MatchTemplates(ctx, frame, nil, []*Template{TemplateFromImage("a", crop)}, []float64{0.99}, true)
			So(err, ShouldBeNil)
			So(res.Hit, ShouldBeTrue)
			So(res.Box.Width, ShouldEqual, 12)
		})
	})
}

func TestTemplateMatchPyramid(t *testing.T) {
	PatchConvey("TestTemplateMatchPyramid", t, func() {
		src := noiseImage(300, 300, 7, 3)
		frame := NewFrame(src, image.Point{}, time.Now())
		crop := imaging.Crop(src, image.Rect(100, 76, 148, 124))
		m := &TemplateMatcher{Workers: 4}

		res, err := m.MatchTemplates(context.Background(), frame, nil, []*Template{TemplateFromImage("big", crop)}, []float64{0.95}, false)
		So(err, ShouldBeNil)
		So(res.Hit, ShouldBeTrue)
		So(*res.Box, ShouldResemble, Rect{X: 100, Y: 76, Width: 48, Height: 48})
	})
}

func TestTemplateMatchCancelled(t *testing.T) {
	PatchConvey("TestTemplateMatchCancelled", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		src := noiseImage(60, 40, 1, 0)
		m := &TemplateMatcher{Workers: 2}
		_, err := m.MatchTemplates(ctx, NewFrame(src, image.Point{}, time.Now()), nil,
			[]*Template{TemplateFromImage("a", imaging.Crop(src, image.Rect(0, 0, 10, 10)))}, nil, false)
		So(err, ShouldNotBeNil)
	})
}

func TestNormalizeThresholds(t *testing.T) {
	PatchConvey("TestNormalizeThresholds", t, func() {
		out, err := NormalizeThresholds(3, nil)
		So(err, ShouldBeNil)
		So(out, ShouldResemble, []float64{0.7, 0.7, 0.7})

		out, err = NormalizeThresholds(2, []float64{0.5})
		So(err, ShouldBeNil)
		So(out, ShouldResemble, []float64{0.5, 0.5})

		_, err = NormalizeThresholds(1, []float64{1.5})
		So(xerror.IsKind(err, xerror.KindConfiguration), ShouldBeTrue)
	})
}

func TestTemplateStore(t *testing.T) {
	PatchConvey("TestTemplateStore", t, func() {
		dir := t.TempDir()
		cache, err := xcache.New(&xcache.Config{})
		So(err, ShouldBeNil)
		defer cache.Close()
		store := NewTemplateStore(cache)

		PatchConvey("正常加载", func() {
			path := filepath.Join(dir, "button.png")
			fh, _ := os.Create(path)
			So(png.Encode(fh, noiseImage(8, 6, 3, 0)), ShouldBeNil)
			_ = fh.Close()

			tpl, err := store.Load(path)
			So(err, ShouldBeNil)
			So(tpl.Width(), ShouldEqual, 8)
			So(tpl.Height(), ShouldEqual, 6)

			again, err := store.Load(path)
			So(err, ShouldBeNil)
			So(again.Width(), ShouldEqual, 8)
		})

		PatchConvey("文件不存在", func() {
			_, err := store.Load(filepath.Join(dir, "missing.png"))
			So(xerror.IsKind(err, xerror.KindConfiguration), ShouldBeTrue)
		})

		PatchConvey("无法解码", func() {
			path := filepath.Join(dir, "bad.png")
			So(os.WriteFile(path, []byte("not an image"), 0o644), ShouldBeNil)
			_, err := store.Load(path)
			So(xerror.IsKind(err, xerror.KindConfiguration), ShouldBeTrue)
		})

		PatchConvey("Match按路径加载", func() {
			_, err := NewTemplateMatcher(store).Match(context.Background(), solidFrame(10, 10, color.RGBA{A: 255}), nil,
				TemplateParam{Templates: []string{filepath.Join(dir, "none.png")}})
			So(xerror.IsKind(err, xerror.KindConfiguration), ShouldBeTrue)

			_, err = NewTemplateMatcher(store).Match(context.Background(), solidFrame(10, 10, color.RGBA{A: 255}), nil, TemplateParam{})
			So(xerror.IsKind(err, xerror.KindConfiguration), ShouldBeTrue)
		})
	})
}

func TestColorMatch(t *testing.T) {
	PatchConvey("TestColorMatch", t, func() {
		red := solidFrame(40, 30, color.RGBA{R: 255, A: 255})
		m := NewColorMatcher()

		PatchConvey("全部在范围内 count=roi面积", func() {
			res, err := m.Match(red, &Rect{X: 5, Y: 5, Width: 10, Height: 6}, ColorParam{Lower: [3]int{0, 100, 100}, Upper: [3]int{10, 255, 255}})
			So(err, ShouldBeNil)
			So(res.Hit, ShouldBeTrue)
			So(res.Count, ShouldEqual, 60)
			So(*res.Box, ShouldResemble, Rect{X: 5, Y: 5, Width: 10, Height: 6})
			So(res.Score, ShouldEqual, 1.0)
		})

		PatchConvey("全部不在范围内 count=0 未命中", func() {
			res, err := m.Match(red, nil, ColorParam{Lower: [3]int{100, 0, 0}, Upper: [3]int{130, 255, 255}})
			So(err, ShouldBeNil)
			So(res.Hit, ShouldBeFalse)
			So(res.Count, ShouldEqual, 0)
			So(res.Box, ShouldBeNil)
		})

		PatchConvey("RGB与BGR", func() {
			res, err := m.Match(red, nil, ColorParam{Lower: [3]int{250, 0, 0}, Upper: [3]int{255, 5, 5}, Space: ColorSpaceRGB})
			So(err, ShouldBeNil)
			So(res.Count, ShouldEqual, 1200)

			res, err = m.Match(red, nil, ColorParam{Lower: [3]int{0, 0, 250}, Upper: [3]int{5, 5, 255}, Space: ColorSpaceBGR})
			So(err, ShouldBeNil)
			So(res.Count, ShouldEqual, 1200)
		})

		PatchConvey("count未达到MinCount", func() {
			res, err := m.Match(red, &Rect{X: 0, Y: 0, Width: 2, Height: 2}, ColorParam{Lower: [3]int{0, 100, 100}, Upper: [3]int{10, 255, 255}, MinCount: 100})
			So(err, ShouldBeNil)
			So(res.Hit, ShouldBeFalse)
			So(res.Count, ShouldEqual, 4)
		})

		PatchConvey("连通域", func() {
			f := solidFrame(20, 10, color.RGBA{A: 255})
			for y := 0; y < 2; y++ {
				for x := 0; x < 2; x++ {
					f.Image.Set(x, y, color.RGBA{R: 255, A: 255})
				}
			}
			for y := 5; y < 8; y++ {
				for x := 10; x < 14; x++ {
					f.Image.Set(x, y, color.RGBA{R: 255, A: 255})
				}
			}
			p := ColorParam{Lower: [3]int{250, 0, 0}, Upper: [3]int{255, 0, 0}, Space: ColorSpaceRGB}
			res, err := m.Match(f, nil, p)
			So(err, ShouldBeNil)
			So(res.Count, ShouldEqual, 16)
			So(*res.Box, ShouldResemble, Rect{X: 0, Y: 0, Width: 14, Height: 8})

			p.Connected = true
			res, err = m.Match(f, nil, p)
			So(err, ShouldBeNil)
			So(res.Count, ShouldEqual, 12)
			So(*res.Box, ShouldResemble, Rect{X: 10, Y: 5, Width: 4, Height: 3})
		})

		PatchConvey("上下界颠倒", func() {
			_, err := m.Match(red, nil, ColorParam{Lower: [3]int{10, 0, 0}, Upper: [3]int{0, 255, 255}})
			So(xerror.IsKind(err, xerror.KindConfiguration), ShouldBeTrue)
		})
	})
}

func TestConvertPixel(t *testing.T) {
	PatchConvey("TestConvertPixel", t, func() {
		PatchConvey("接近 360 度的色相回绕到 0", func() {
			So(convertPixel(ColorSpaceHSV, 255, 0, 1)[0], ShouldEqual, 0)
			So(convertPixel(ColorSpaceHSV, 255, 0, 0), ShouldEqual, [3]int{0, 255, 255})
		})

		PatchConvey("色相不超出 0-179", func() {
			for b := 0; b < 256; b++ {
				h := convertPixel(ColorSpaceHSV, 255, 0, uint8(b))[0]
				So(h >= 0 && h < 180, ShouldBeTrue)
			}
		})

		PatchConvey("RGB 与 BGR 通道顺序", func() {
			So(convertPixel(ColorSpaceRGB, 1, 2, 3), ShouldEqual, [3]int{1, 2, 3})
			So(convertPixel(ColorSpaceBGR, 1, 2, 3), ShouldEqual, [3]int{3, 2, 1})
		})
	})
}

func TestParseColorSpace(t *testing.T) {
	PatchConvey("TestParseColorSpace", t, func() {
		s, err := ParseColorSpace("")
		So(err, ShouldBeNil)
		So(s, ShouldEqual, ColorSpaceHSV)
		s, err = ParseColorSpace("bgr")
		So(err, ShouldBeNil)
		So(s, ShouldEqual, ColorSpaceBGR)
		_, err = ParseColorSpace("LAB")
		So(xerror.IsKind(err, xerror.KindConfiguration), ShouldBeTrue)
	})
}

func TestEdgeRatio(t *testing.T) {
	PatchConvey("TestEdgeRatio", t, func() {
		ratio, err := EdgeRatio(solidFrame(30, 30, color.RGBA{R: 80, G: 80, B: 80, A: 255}), nil)
		So(err, ShouldBeNil)
		So(ratio, ShouldEqual, 0)

		f := solidFrame(30, 30, color.RGBA{A: 255})
		for y := 0; y < 30; y++ {
			for x := 15; x < 30; x++ {
				f.Image.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
			}
		}
		ratio, err = EdgeRatio(f, nil)
		So(err, ShouldBeNil)
		So(ratio, ShouldBeGreaterThan, EdgeRatioVerified)
	})
}
