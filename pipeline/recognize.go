package pipeline

import (
	"context"

	"github.com/xiaoshicae/xvision/vision"
	"github.com/xiaoshicae/xvision/xutil"
)

// VisionRecognizer 用 vision 的匹配器执行节点识别，模板路径相对资源目录解析
type VisionRecognizer struct {
	Templates *vision.TemplateMatcher
	Colors    *vision.ColorMatcher
}

func NewVisionRecognizer(store *vision.TemplateStore) *VisionRecognizer {
	return &VisionRecognizer{Templates: vision.NewTemplateMatcher(store), Colors: vision.NewColorMatcher()}
}

func (v *VisionRecognizer) Recognize(ctx context.Context, f *vision.Frame, r *Recognition, resourceDir string) (vision.MatchResult, error) {
	switch r.Kind {
	case RecognitionTemplateMatch:
		paths := make([]string, len(r.Templates))
		for i, p := range r.Templates {
			paths[i] = xutil.ResolvePath(resourceDir, p)
		}
		return v.Templates.Match(ctx, f, r.ROI, vision.TemplateParam{Templates: paths, Thresholds: r.Thresholds, MultiScale: r.MultiScale})
	case RecognitionColorMatch:
		return v.Colors.Match(f, r.ROI, vision.ColorParam{
			Lower: r.Lower, Upper: r.Upper, Space: r.Method, MinCount: r.Count, Connected: r.Connected,
		})
	default:
		return directHit(r), nil
	}
}

// directHit 无识别时直接命中，有 roi 则以 roi 作为识别框
func directHit(r *Recognition) vision.MatchResult {
	res := vision.MatchResult{Algorithm: vision.AlgorithmDirectHit, Hit: true, Score: 1, AllCount: 1, FilteredCount: 1}
	if r.ROI != nil {
		roi := *r.ROI
		res.Box = &roi
	}
	return res
}
