package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/xiaoshicae/xvision/action"
	"github.com/xiaoshicae/xvision/vision"
	"github.com/xiaoshicae/xvision/xerror"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate 运行前的静态校验，entry 为空时只校验图本身
func Validate(cfg *Config, entry string) error {
	if cfg == nil || len(cfg.Nodes) == 0 {
		return xerror.Config("pipeline", "validate", "pipeline has no node")
	}
	if entry != "" {
		if _, ok := cfg.Nodes[entry]; !ok {
			return xerror.Config("pipeline", "validate", "entry [%s] not found", entry)
		}
	}
	for _, name := range cfg.Entries() {
		if err := validateNode(cfg, name, cfg.Nodes[name]); err != nil {
			return err
		}
	}
	return nil
}

func validateNode(cfg *Config, name string, n *Node) error {
	fail := func(format string, args ...any) error {
		return xerror.Config("pipeline", "validate", format, args...).WithNode(name)
	}
	if n == nil {
		return fail("node is nil")
	}
	if n.Name != name {
		return fail("node name [%s] mismatch key", n.Name)
	}
	if err := validate.Struct(n); err != nil {
		return fail("%s", describeValidationErr(err))
	}
	for _, next := range n.Next {
		if _, ok := cfg.Nodes[next]; !ok {
			return fail("next [%s] not found", next)
		}
	}

	r := &n.Recognition
	switch r.Kind {
	case RecognitionTemplateMatch:
		if len(r.Templates) == 0 {
			return fail("TemplateMatch needs at least one template")
		}
		if _, err := vision.NormalizeThresholds(len(r.Templates), r.Thresholds); err != nil {
			return fail("%v", err)
		}
	case RecognitionColorMatch:
		for c := 0; c < 3; c++ {
			if r.Lower[c] > r.Upper[c] {
				return fail("lower %v greater than upper %v", r.Lower, r.Upper)
			}
		}
		if _, err := vision.ParseColorSpace(string(r.Method)); err != nil {
			return fail("%v", err)
		}
	case RecognitionDirectHit:
	default:
		return fail("unknown recognition [%s]", r.Kind)
	}

	// DirectHit 没有 roi 时没有识别框，只能使用固定目标
	// 反向识别成功时目标不在画面上，只有 roi 能作为识别框
	hasBox := (r.Present() && !r.Inverse) || r.ROI != nil
	a := &n.Action
	switch a.Kind {
	case action.KindClick, action.KindLongPress:
		if a.Target.Fixed == nil && !hasBox {
			return fail("%s needs a fixed target or a recognition box", a.Kind)
		}
	case action.KindSwipe:
		if a.End == nil {
			return fail("Swipe needs end")
		}
		begin := a.Target
		if a.Begin != nil {
			begin = *a.Begin
		}
		if begin.Fixed == nil && !hasBox {
			return fail("Swipe needs a fixed begin or a recognition box")
		}
		if a.End.Fixed == nil && !hasBox {
			return fail("Swipe needs a fixed end or a recognition box")
		}
	case action.KindInputText:
		if a.Text == "" {
			return fail("InputText needs input_text")
		}
	case action.KindDoNothing, action.KindWait:
	default:
		return fail("unknown action [%s]", a.Kind)
	}
	return nil
}

func describeValidationErr(err error) string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err.Error()
	}
	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
