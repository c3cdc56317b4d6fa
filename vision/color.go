package vision

import (
	"image"
	"strings"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/xiaoshicae/xvision/xerror"
)

// ColorSpace 颜色匹配使用的色彩空间，取值范围与 OpenCV 8 位图一致
type ColorSpace string

const (
	ColorSpaceHSV ColorSpace = "HSV" // H 0..180, S/V 0..255
	ColorSpaceRGB ColorSpace = "RGB"
	ColorSpaceBGR ColorSpace = "BGR"
)

// ParseColorSpace 空值取 HSV
func ParseColorSpace(s string) (ColorSpace, error) {
	switch ColorSpace(strings.ToUpper(strings.TrimSpace(s))) {
	case "", ColorSpaceHSV:
		return ColorSpaceHSV, nil
	case ColorSpaceRGB:
		return ColorSpaceRGB, nil
	case ColorSpaceBGR:
		return ColorSpaceBGR, nil
	default:
		return "", xerror.Config("vision", "colorMatch", "unknown color space [%s]", s)
	}
}

// ColorParam 颜色匹配参数，上下界逐通道闭区间
type ColorParam struct {
	Lower     [3]int
	Upper     [3]int
	Space     ColorSpace
	MinCount  int
	Connected bool // 只统计最大的 8 连通区域
}

// ColorMatcher 色彩空间阈值匹配
type ColorMatcher struct{}

func NewColorMatcher() *ColorMatcher {
	return &ColorMatcher{}
}

// Match count >= MinCount 为命中，Box 为命中像素的外接矩形；未命中时仍返回 count
func (m *ColorMatcher) Match(f *Frame, roi *Rect, p ColorParam) (MatchResult, error) {
	begin := time.Now()
	for c := 0; c < 3; c++ {
		if p.Lower[c] > p.Upper[c] {
			return MatchResult{}, xerror.Config("vision", "colorMatch", "lower %v greater than upper %v", p.Lower, p.Upper)
		}
	}
	space := p.Space
	if space == "" {
		space = ColorSpaceHSV
	}
	minCount := max(p.MinCount, 1)

	r, err := resolveROI(f, roi)
	if err != nil {
		return MatchResult{}, err
	}

	mask := make([]bool, r.Dx()*r.Dy())
	for y := 0; y < r.Dy(); y++ {
		off := f.Image.PixOffset(r.Min.X, r.Min.Y+y)
		row := f.Image.Pix[off : off+r.Dx()*4]
		for x := 0; x < r.Dx(); x++ {
			ch := convertPixel(space, row[x*4], row[x*4+1], row[x*4+2])
			mask[y*r.Dx()+x] = inRange(ch, p.Lower, p.Upper)
		}
	}

	var count int
	var box image.Rectangle
	if p.Connected {
		count, box = largestComponent(mask, r.Dx(), r.Dy())
	} else {
		count, box = maskBounds(mask, r.Dx(), r.Dy())
	}

	res := MatchResult{Algorithm: AlgorithmColorMatch, Count: count, Index: 0, AllCount: 1}
	res.Score = float64(count) / float64(r.Dx()*r.Dy())
	if count >= minCount {
		res.Hit = true
		res.FilteredCount = 1
		b := rectOf(box.Add(r.Min))
		res.Box = &b
	}
	res.CostMs = time.Since(begin).Milliseconds()
	return res, nil
}

func convertPixel(space ColorSpace, r, g, b uint8) [3]int {
	switch space {
	case ColorSpaceRGB:
		return [3]int{int(r), int(g), int(b)}
	case ColorSpaceBGR:
		return [3]int{int(b), int(g), int(r)}
	default:
		h, s, v := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}.Hsv()
		return [3]int{int(h/2+0.5) % 180, int(s*255 + 0.5), int(v*255 + 0.5)}
	}
}

func inRange(v, lo, hi [3]int) bool {
	return v[0] >= lo[0] && v[0] <= hi[0] &&
		v[1] >= lo[1] && v[1] <= hi[1] &&
		v[2] >= lo[2] && v[2] <= hi[2]
}

func maskBounds(mask []bool, w, h int) (int, image.Rectangle) {
	count := 0
	minX, minY, maxX, maxY := w, h, -1, -1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask[y*w+x] {
				continue
			}
			count++
			minX, minY = min(minX, x), min(minY, y)
			maxX, maxY = max(maxX, x), max(maxY, y)
		}
	}
	if count == 0 {
		return 0, image.Rectangle{}
	}
	return count, image.Rect(minX, minY, maxX+1, maxY+1)
}

// largestComponent 8 连通最大区域，面积相同时取扫描顺序先出现者
func largestComponent(mask []bool, w, h int) (int, image.Rectangle) {
	seen := make([]bool, len(mask))
	bestCount := 0
	var bestBox image.Rectangle
	stack := make([]int, 0, 64)
	for start := range mask {
		if !mask[start] || seen[start] {
			continue
		}
		seen[start] = true
		stack = append(stack[:0], start)
		count := 0
		box := image.Rect(w, h, -1, -1)
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := idx%w, idx/w
			count++
			box.Min.X, box.Min.Y = min(box.Min.X, x), min(box.Min.Y, y)
			box.Max.X, box.Max.Y = max(box.Max.X, x+1), max(box.Max.Y, y+1)
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					n := ny*w + nx
					if mask[n] && !seen[n] {
						seen[n] = true
						stack = append(stack, n)
					}
				}
			}
		}
		if count > bestCount {
			bestCount, bestBox = count, box
		}
	}
	return bestCount, bestBox
}
