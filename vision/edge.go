package vision

import "math"

const (
	// EdgeMagnitudeThreshold Sobel 梯度幅值阈值
	EdgeMagnitudeThreshold = 100.0

	// EdgeRatioVerified 边缘像素占比超过该值视为画面中存在图形元素
	EdgeRatioVerified = 0.01
)

// EdgeRatio 统计 roi 内 Sobel 梯度幅值超过阈值的像素占比，边界像素不参与
func EdgeRatio(f *Frame, roi *Rect) (float64, error) {
	r, err := resolveROI(f, roi)
	if err != nil {
		return 0, err
	}
	p := grayOfRGBA(f.Image, r)
	if p.w < 3 || p.h < 3 {
		return 0, nil
	}
	at := func(x, y int) float64 { return p.pix[y*p.w+x] }

	edges := 0
	for y := 1; y < p.h-1; y++ {
		for x := 1; x < p.w-1; x++ {
			gx := at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1) - at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1)
			gy := at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1) - at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1)
			if math.Hypot(gx, gy) > EdgeMagnitudeThreshold {
				edges++
			}
		}
	}
	return float64(edges) / float64(p.w*p.h), nil
}
