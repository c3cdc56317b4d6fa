package agent

import (
	"context"
	"math"

	"github.com/xiaoshicae/xvision/action"
	"github.com/xiaoshicae/xvision/pipeline"
	"github.com/xiaoshicae/xvision/vision"
	"github.com/xiaoshicae/xvision/xerror"
	"github.com/xiaoshicae/xvision/xlog"
	"github.com/xiaoshicae/xvision/xutil"
)

const waitNode = "wait_for_template"

// TemplateQuery 单次找图参数，roi 与结果中的识别框均为帧坐标
type TemplateQuery struct {
	Template string `json:"template" binding:"required"`
	// Threshold 为空时使用默认阈值，显式的 0 保留
	Threshold  *float64 `json:"threshold,omitempty" binding:"omitempty,gte=0,lte=1"`
	ROI        []int    `json:"roi" binding:"omitempty,len=4"`
	MultiScale bool     `json:"multi_scale"`
}

type ColorQuery struct {
	Lower     [3]int `json:"lower"`
	Upper     [3]int `json:"upper"`
	ROI       []int  `json:"roi" binding:"omitempty,len=4"`
	Method    string `json:"color_space"`
	MinCount  int    `json:"min_count" binding:"gte=0"`
	Connected bool   `json:"connected"`
}

type ClickQuery struct {
	TemplateQuery
	Offset []int `json:"offset" binding:"omitempty,min=2,max=4"`
}

type WaitQuery struct {
	TemplateQuery
	TimeoutMs  int `json:"timeout" binding:"gte=0"`
	IntervalMs int `json:"interval" binding:"gte=0"`
}

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type ClickResult struct {
	Success  bool                `json:"success"`
	Action   action.Kind         `json:"action"`
	Position *Position           `json:"position,omitempty"`
	Find     *vision.MatchResult `json:"find_result"`
	Message  string              `json:"message,omitempty"`
}

type WaitResult struct {
	Success   bool                  `json:"success"`
	ElapsedMs int64                 `json:"elapsed_ms"`
	Find      *vision.MatchResult   `json:"find_result,omitempty"`
	Error     *pipeline.ResultError `json:"error,omitempty"`
	Logs      []string              `json:"logs"`
}

type Verification struct {
	Success   bool    `json:"success"`
	Pattern   string  `json:"pattern"`
	EdgeRatio float64 `json:"edge_ratio"`
	Verified  bool    `json:"verified"`
	Message   string  `json:"message"`
}

type Capabilities struct {
	VisualLibsAvailable   bool     `json:"visual_libs_available"`
	VisionModuleAvailable bool     `json:"vision_module_available"`
	Capabilities          []string `json:"capabilities"`
	Recognitions          []string `json:"recognitions"`
	Actions               []string `json:"actions"`
	ColorSpaces           []string `json:"color_spaces"`
	Description           string   `json:"description"`
}

func (q TemplateQuery) recognition() (pipeline.Recognition, error) {
	threshold := vision.DefaultThreshold
	if q.Threshold != nil {
		threshold = *q.Threshold
	}
	r := pipeline.Recognition{
		Kind:       pipeline.RecognitionTemplateMatch,
		Templates:  []string{q.Template},
		Thresholds: []float64{threshold},
		MultiScale: q.MultiScale,
		Count:      pipeline.DefaultCount,
		Method:     vision.ColorSpaceHSV,
	}
	roi, err := roiOf(q.ROI)
	r.ROI = roi
	return r, err
}

func roiOf(v []int) (*vision.Rect, error) {
	if len(v) == 0 {
		return nil, nil
	}
	r, ok := vision.RectFromSlice(v)
	if !ok {
		return nil, xerror.Config("agent", "roi", "roi must be [x,y,w,h], got %v", v)
	}
	return &r, nil
}

// FindTemplate 截一帧做一次模板匹配
func (a *Agent) FindTemplate(ctx context.Context, q TemplateQuery) (*vision.MatchResult, error) {
	r, err := q.recognition()
	if err != nil {
		return nil, err
	}
	f, err := a.screen.Capture(ctx)
	if err != nil {
		return nil, err
	}
	res, err := a.recognizer.Recognize(ctx, f, &r, a.c.ResourceDir)
	if err != nil {
		return nil, err
	}
	xlog.Info(ctx, "模板匹配: %s, 阈值: %v", q.Template, r.Thresholds[0], xlog.KV("hit", res.Hit), xlog.KV("score", res.Score))
	return &res, nil
}

// FindColor min_count 为 0 时取 100
func (a *Agent) FindColor(ctx context.Context, q ColorQuery) (*vision.MatchResult, error) {
	space, err := vision.ParseColorSpace(q.Method)
	if err != nil {
		return nil, err
	}
	roi, err := roiOf(q.ROI)
	if err != nil {
		return nil, err
	}
	r := pipeline.Recognition{
		Kind: pipeline.RecognitionColorMatch, Lower: q.Lower, Upper: q.Upper, Method: space,
		Count: xutil.GetOrDefault(q.MinCount, 100), Connected: q.Connected, ROI: roi,
	}
	f, err := a.screen.Capture(ctx)
	if err != nil {
		return nil, err
	}
	res, err := a.recognizer.Recognize(ctx, f, &r, a.c.ResourceDir)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ClickTemplate 找到模板后点击识别框中心加偏移，未找到时不点击
func (a *Agent) ClickTemplate(ctx context.Context, q ClickQuery) (*ClickResult, error) {
	r, err := q.recognition()
	if err != nil {
		return nil, err
	}
	var out *ClickResult
	err = a.exclusive(func() error {
		f, err := a.screen.Capture(ctx)
		if err != nil {
			return err
		}
		res, err := a.recognizer.Recognize(ctx, f, &r, a.c.ResourceDir)
		if err != nil {
			return err
		}
		out = &ClickResult{Action: action.KindClick, Find: &res}
		if !res.Hit || res.Box == nil {
			out.Message = "未找到目标"
			return nil
		}

		p := f.ToScreen(res.Box.Center())
		if len(q.Offset) >= 2 {
			p.X += q.Offset[0]
			p.Y += q.Offset[1]
		}
		if _, err := a.actuator.Dispatch(ctx, action.Request{Kind: action.KindClick, Point: p}); err != nil {
			return err
		}
		xlog.Info(ctx, "点击位置: (%d, %d)", p.X, p.Y)
		out.Success = true
		out.Position = &Position{X: p.X, Y: p.Y}
		return nil
	})
	return out, err
}

// WaitForTemplate 以单节点流水线轮询模板直到出现或超时
func (a *Agent) WaitForTemplate(ctx context.Context, q WaitQuery) (*WaitResult, error) {
	r, err := q.recognition()
	if err != nil {
		return nil, err
	}
	n := pipeline.NewNode(waitNode)
	n.Recognition = r
	n.PreDelay, n.PostDelay = 0, 0
	n.Timeout = xutil.ToDuration(a.c.DefaultTimeout)
	if q.TimeoutMs > 0 {
		n.Timeout = xutil.ToDuration(q.TimeoutMs)
	}
	n.Interval = xutil.ToDuration(a.c.DefaultInterval)
	if q.IntervalMs > 0 {
		n.Interval = xutil.ToDuration(q.IntervalMs)
	}
	cfg := pipeline.NewConfig()
	cfg.Nodes[waitNode] = n

	res, err := a.RunPipeline(ctx, cfg, waitNode, a.c.ResourceDir)
	if err != nil {
		return nil, err
	}
	return &WaitResult{Success: res.Success, ElapsedMs: res.CostMs, Find: res.LastRecoResult, Error: res.Error, Logs: res.Logs}, nil
}

// VerifyVisualResult 当前画面的边缘像素占比，超过 1% 视为存在图形元素
func (a *Agent) VerifyVisualResult(ctx context.Context, pattern string) (*Verification, error) {
	f, err := a.screen.Capture(ctx)
	if err != nil {
		return nil, err
	}
	ratio, err := vision.EdgeRatio(f, nil)
	if err != nil {
		return nil, err
	}
	v := &Verification{
		Success:   true,
		Pattern:   pattern,
		EdgeRatio: math.Round(ratio*1e4) / 1e4,
		Verified:  ratio > vision.EdgeRatioVerified,
		Message:   "未检测到明显图形",
	}
	if v.Verified {
		v.Message = "检测到图形元素"
	}
	return v, nil
}

func (a *Agent) GetVisionCapabilities() *Capabilities {
	return &Capabilities{
		VisualLibsAvailable:   true,
		VisionModuleAvailable: true,
		Capabilities:          []string{"template_match", "color_match", "click_template", "wait_for_template", "pipeline"},
		Recognitions: []string{
			string(pipeline.RecognitionDirectHit), string(pipeline.RecognitionTemplateMatch), string(pipeline.RecognitionColorMatch),
		},
		Actions: []string{
			string(action.KindDoNothing), string(action.KindClick), string(action.KindSwipe),
			string(action.KindInputText), string(action.KindWait), string(action.KindLongPress),
		},
		ColorSpaces: []string{string(vision.ColorSpaceHSV), string(vision.ColorSpaceRGB), string(vision.ColorSpaceBGR)},
		Description: "MAA 风格视觉识别系统",
	}
}
