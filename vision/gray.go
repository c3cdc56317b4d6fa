package vision

import (
	"image"
	"image/color"
)

// grayPlane 行优先的灰度平面，亮度系数与 OpenCV BGR2GRAY 一致
type grayPlane struct {
	w, h int
	pix  []float64
}

func luma(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

func grayOfRGBA(img *image.RGBA, r image.Rectangle) *grayPlane {
	p := &grayPlane{w: r.Dx(), h: r.Dy(), pix: make([]float64, r.Dx()*r.Dy())}
	for y := 0; y < p.h; y++ {
		off := img.PixOffset(r.Min.X, r.Min.Y+y)
		row := img.Pix[off : off+p.w*4]
		for x := 0; x < p.w; x++ {
			p.pix[y*p.w+x] = luma(row[x*4], row[x*4+1], row[x*4+2])
		}
	}
	return p
}

func grayOfImage(img image.Image) *grayPlane {
	b := img.Bounds()
	p := &grayPlane{w: b.Dx(), h: b.Dy(), pix: make([]float64, b.Dx()*b.Dy())}
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			p.pix[y*p.w+x] = luma(c.R, c.G, c.B)
		}
	}
	return p
}

// toImage 用于 imaging 缩放
func (p *grayPlane) toImage() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, p.w, p.h))
	for i, v := range p.pix {
		g.Pix[i] = uint8(v + 0.5)
	}
	return g
}

// downsample 按 f×f 块取均值
func (p *grayPlane) downsample(f int) *grayPlane {
	out := &grayPlane{w: p.w / f, h: p.h / f}
	out.pix = make([]float64, out.w*out.h)
	n := float64(f * f)
	for y := 0; y < out.h; y++ {
		for x := 0; x < out.w; x++ {
			var s float64
			for dy := 0; dy < f; dy++ {
				base := (y*f+dy)*p.w + x*f
				for dx := 0; dx < f; dx++ {
					s += p.pix[base+dx]
				}
			}
			out.pix[y*out.w+x] = s / n
		}
	}
	return out
}

// integral 积分图，尺寸 (w+1)*(h+1)
type integral struct {
	w     int
	sum   []float64
	sqSum []float64
}

func newIntegral(p *grayPlane) *integral {
	w := p.w + 1
	it := &integral{w: w, sum: make([]float64, w*(p.h+1)), sqSum: make([]float64, w*(p.h+1))}
	for y := 1; y <= p.h; y++ {
		var rs, rq float64
		for x := 1; x <= p.w; x++ {
			v := p.pix[(y-1)*p.w+x-1]
			rs += v
			rq += v * v
			it.sum[y*w+x] = it.sum[(y-1)*w+x] + rs
			it.sqSum[y*w+x] = it.sqSum[(y-1)*w+x] + rq
		}
	}
	return it
}

func (it *integral) window(x, y, tw, th int) (sum, sq float64) {
	a, b := y*it.w+x, y*it.w+x+tw
	c, d := (y+th)*it.w+x, (y+th)*it.w+x+tw
	return it.sum[d] - it.sum[b] - it.sum[c] + it.sum[a], it.sqSum[d] - it.sqSum[b] - it.sqSum[c] + it.sqSum[a]
}
