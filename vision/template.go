package vision

import (
	"context"
	"image"
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/xiaoshicae/xvision/xerror"
)

const (
	DefaultThreshold = 0.7

	// 穷举搜索的乘加次数超过该值时先在降采样金字塔上粗搜
	pyramidOpsThreshold = 64_000_000
	pyramidMinSide      = 16
	pyramidCandidates   = 8

	flatEpsilon = 1e-6
)

var multiScales = []float64{1.0, 0.9, 1.1, 0.8, 1.2}

// TemplateParam 模板匹配参数，Templates 与 Thresholds 下标对齐
type TemplateParam struct {
	Templates  []string
	Thresholds []float64
	MultiScale bool
}

// TemplateMatcher 归一化相关系数模板匹配（等价 TM_CCOEFF_NORMED，负相关截断为 0）
type TemplateMatcher struct {
	Store   *TemplateStore
	Workers int
}

func NewTemplateMatcher(store *TemplateStore) *TemplateMatcher {
	return &TemplateMatcher{Store: store, Workers: runtime.NumCPU()}
}

// NormalizeThresholds 空则全部取默认值，单个值广播到每个模板，其余情况必须等长
func NormalizeThresholds(n int, thresholds []float64) ([]float64, error) {
	out := make([]float64, n)
	switch len(thresholds) {
	case 0:
		for i := range out {
			out[i] = DefaultThreshold
		}
	case 1:
		for i := range out {
			out[i] = thresholds[0]
		}
	case n:
		copy(out, thresholds)
	default:
		return nil, xerror.Config("vision", "templateMatch", "%d thresholds not aligned with %d templates", len(thresholds), n)
	}
	for _, t := range out {
		if t < 0 || t > 1 {
			return nil, xerror.Config("vision", "templateMatch", "threshold %v out of [0,1]", t)
		}
	}
	return out, nil
}

// Match 按路径加载模板后匹配
func (m *TemplateMatcher) Match(ctx context.Context, f *Frame, roi *Rect, p TemplateParam) (MatchResult, error) {
	if len(p.Templates) == 0 {
		return MatchResult{}, xerror.Config("vision", "templateMatch", "no template given")
	}
	tpls := make([]*Template, len(p.Templates))
	for i, path := range p.Templates {
		t, err := m.Store.Load(path)
		if err != nil {
			return MatchResult{}, err
		}
		tpls[i] = t
	}
	return m.MatchTemplates(ctx, f, roi, tpls, p.Thresholds, p.MultiScale)
}

type refScore struct {
	score float64
	pos   image.Point
	w, h  int
}

// MatchTemplates 对每个模板求 ROI 内最佳位置与分数，返回分数最高且过各自阈值的模板，同分取下标小者
func (m *TemplateMatcher) MatchTemplates(ctx context.Context, f *Frame, roi *Rect, tpls []*Template, thresholds []float64, multiScale bool) (MatchResult, error) {
	begin := time.Now()
	thr, err := NormalizeThresholds(len(tpls), thresholds)
	if err != nil {
		return MatchResult{}, err
	}
	r, err := resolveROI(f, roi)
	if err != nil {
		return MatchResult{}, err
	}

	img := grayOfRGBA(f.Image, r)
	it := newIntegral(img)
	scores := make([]refScore, len(tpls))

	g, gctx := errgroup.WithContext(ctx)
	for i, t := range tpls {
		g.Go(func() error {
			s, err := m.bestOverScales(gctx, img, it, t.plane, multiScale)
			scores[i] = s
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return MatchResult{}, err
	}

	res := MatchResult{Algorithm: AlgorithmTemplateMatch, Index: -1, AllCount: len(tpls)}
	for i, s := range scores {
		if s.score >= thr[i] {
			res.FilteredCount++
			if !res.Hit || s.score > res.Score {
				res.Hit = true
				res.Score = s.score
				res.Index = i
				res.Box = &Rect{X: r.Min.X + s.pos.X, Y: r.Min.Y + s.pos.Y, Width: s.w, Height: s.h}
			}
		}
	}
	if !res.Hit {
		for _, s := range scores {
			res.Score = math.Max(res.Score, s.score)
		}
	}
	res.CostMs = time.Since(begin).Milliseconds()
	return res, nil
}

func (m *TemplateMatcher) bestOverScales(ctx context.Context, img *grayPlane, it *integral, tpl *grayPlane, multiScale bool) (refScore, error) {
	scales := []float64{1.0}
	if multiScale {
		scales = multiScales
	}
	best := refScore{}
	for i, s := range scales {
		t := tpl
		if s != 1.0 {
			w, h := int(math.Round(float64(tpl.w)*s)), int(math.Round(float64(tpl.h)*s))
			if w < 4 || h < 4 {
				continue
			}
			t = grayOfImage(imaging.Resize(tpl.toImage(), w, h, imaging.Linear))
		}
		cur, err := m.bestMatch(ctx, img, it, t)
		if err != nil {
			return refScore{}, err
		}
		if i == 0 || cur.score > best.score {
			best = cur
		}
	}
	return best, nil
}

// bestMatch 模板大于搜索区域时分数为 0（未命中）
func (m *TemplateMatcher) bestMatch(ctx context.Context, img *grayPlane, it *integral, tpl *grayPlane) (refScore, error) {
	if tpl.w > img.w || tpl.h > img.h {
		return refScore{w: tpl.w, h: tpl.h}, nil
	}
	nt := newNccTemplate(tpl)
	positions := (img.w - tpl.w + 1) * (img.h - tpl.h + 1)
	if positions*tpl.w*tpl.h > pyramidOpsThreshold && min(tpl.w, tpl.h) >= pyramidMinSide {
		return m.pyramidMatch(ctx, img, it, nt)
	}
	return m.search(ctx, img, it, nt, image.Rect(0, 0, img.w-tpl.w+1, img.h-tpl.h+1))
}

// search 在左上角坐标范围 area 内穷举，按行分块并行，合并时保持行优先的先到先得
func (m *TemplateMatcher) search(ctx context.Context, img *grayPlane, it *integral, nt *nccTemplate, area image.Rectangle) (refScore, error) {
	if area.Empty() {
		return refScore{w: nt.w, h: nt.h}, nil
	}
	workers := max(1, m.Workers)
	rows := area.Dy()
	chunk := (rows + workers - 1) / workers
	parts := make([]refScore, 0, workers)
	for y0 := area.Min.Y; y0 < area.Max.Y; y0 += chunk {
		parts = append(parts, refScore{score: -1})
	}

	g, gctx := errgroup.WithContext(ctx)
	for idx := range parts {
		y0 := area.Min.Y + idx*chunk
		y1 := min(y0+chunk, area.Max.Y)
		g.Go(func() error {
			best := refScore{score: -1, w: nt.w, h: nt.h}
			for y := y0; y < y1; y++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				for x := area.Min.X; x < area.Max.X; x++ {
					if s := nt.score(img, it, x, y); s > best.score {
						best.score, best.pos = s, image.Point{X: x, Y: y}
					}
				}
			}
			parts[idx] = best
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return refScore{}, err
	}

	best := refScore{score: -1, w: nt.w, h: nt.h}
	for _, p := range parts {
		if p.score > best.score {
			best = p
		}
	}
	best.score = math.Max(best.score, 0)
	return best, nil
}

type candidate struct {
	score float64
	pos   image.Point
}

// pyramidMatch 降采样粗搜取前若干候选，再在原分辨率邻域内精搜
func (m *TemplateMatcher) pyramidMatch(ctx context.Context, img *grayPlane, it *integral, nt *nccTemplate) (refScore, error) {
	f := 2
	for min(nt.w, nt.h)/(f*2) >= 8 && f < 8 {
		f *= 2
	}
	cImg := img.downsample(f)
	cIt := newIntegral(cImg)
	cTpl := newNccTemplate(nt.plane.downsample(f))

	cands := make([]candidate, 0, (cImg.w-cTpl.w+1)*(cImg.h-cTpl.h+1))
	for y := 0; y+cTpl.h <= cImg.h; y++ {
		if err := ctx.Err(); err != nil {
			return refScore{}, err
		}
		for x := 0; x+cTpl.w <= cImg.w; x++ {
			cands = append(cands, candidate{score: cTpl.score(cImg, cIt, x, y), pos: image.Point{X: x, Y: y}})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].score > cands[j].score })
	if len(cands) > pyramidCandidates {
		cands = cands[:pyramidCandidates]
	}

	valid := image.Rect(0, 0, img.w-nt.w+1, img.h-nt.h+1)
	best := refScore{score: -1, w: nt.w, h: nt.h}
	for _, c := range cands {
		area := image.Rect(c.pos.X*f-f, c.pos.Y*f-f, c.pos.X*f+2*f, c.pos.Y*f+2*f).Intersect(valid)
		cur, err := m.search(ctx, img, it, nt, area)
		if err != nil {
			return refScore{}, err
		}
		if cur.score > best.score || (cur.score == best.score && earlier(cur.pos, best.pos)) {
			best = cur
		}
	}
	return best, nil
}

func earlier(a, b image.Point) bool {
	return a.Y < b.Y || (a.Y == b.Y && a.X < b.X)
}

// nccTemplate 预先去均值的模板
type nccTemplate struct {
	plane  *grayPlane
	w, h   int
	zero   []float64
	mean   float64
	energy float64
}

func newNccTemplate(p *grayPlane) *nccTemplate {
	nt := &nccTemplate{plane: p, w: p.w, h: p.h, zero: make([]float64, len(p.pix))}
	for _, v := range p.pix {
		nt.mean += v
	}
	nt.mean /= float64(len(p.pix))
	for i, v := range p.pix {
		d := v - nt.mean
		nt.zero[i] = d
		nt.energy += d * d
	}
	return nt
}

// score 归一化相关系数，保留 6 位小数以保证结果确定
func (nt *nccTemplate) score(img *grayPlane, it *integral, x, y int) float64 {
	n := float64(nt.w * nt.h)
	sum, sq := it.window(x, y, nt.w, nt.h)
	varI := sq - sum*sum/n

	if nt.energy < flatEpsilon*n {
		if varI < flatEpsilon*n && math.Abs(sum/n-nt.mean) < 1 {
			return 1
		}
		return 0
	}
	if varI < flatEpsilon*n {
		return 0
	}

	var num float64
	for j := 0; j < nt.h; j++ {
		row := img.pix[(y+j)*img.w+x : (y+j)*img.w+x+nt.w]
		tz := nt.zero[j*nt.w : (j+1)*nt.w]
		for i, v := range row {
			num += tz[i] * v
		}
	}
	s := num / math.Sqrt(nt.energy*varI)
	s = math.Round(s*1e6) / 1e6
	return math.Max(0, math.Min(1, s))
}
