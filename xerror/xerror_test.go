package xerror

import (
	"context"
	"errors"
	"fmt"
	"testing"

	. "github.com/bytedance/mockey"
	. "github.com/smartystreets/goconvey/convey"
)

func TestXError_Error(t *testing.T) {
	PatchConvey("TestXError_Error", t, func() {
		PatchConvey("包含原始错误", func() {
			err := New("xconfig", "init", errors.New("file not found"))
			So(err.Error(), ShouldEqual, "XVision xconfig init failed, err=[file not found]")
		})

		PatchConvey("无原始错误", func() {
			err := New("xgorm", "close", nil)
			So(err.Error(), ShouldEqual, "XVision xgorm close failed")
		})

		PatchConvey("包含节点名", func() {
			err := Config("pipeline", "validate", "next [%s] not found", "b").WithNode("a")
			So(err.Error(), ShouldEqual, "XVision pipeline validate failed, node=[a], err=[next [b] not found]")
		})
	})
}

func TestXError_Unwrap(t *testing.T) {
	PatchConvey("TestXError_Unwrap", t, func() {
		inner := errors.New("inner error")
		err := New("xlog", "init", inner)
		So(errors.Is(err, inner), ShouldBeTrue)
	})
}

func TestWithNode(t *testing.T) {
	PatchConvey("TestWithNode-不修改原错误", t, func() {
		origin := Wrapf(KindDispatch, "action", "dispatch", "off screen")
		withNode := origin.WithNode("click_ok")
		So(origin.Node, ShouldEqual, "")
		So(withNode.Node, ShouldEqual, "click_ok")
		So(withNode.Kind, ShouldEqual, KindDispatch)
	})
}

func TestNewf(t *testing.T) {
	PatchConvey("TestNewf", t, func() {
		err := Newf("xgorm", "init", "connect failed, host=[%s]", "localhost")
		So(err.Kind, ShouldEqual, KindInternal)
		So(err.Module, ShouldEqual, "xgorm")
		So(err.Op, ShouldEqual, "init")
		So(err.Err.Error(), ShouldEqual, "connect failed, host=[localhost]")
	})
}

func TestKindOf(t *testing.T) {
	PatchConvey("TestKindOf", t, func() {
		PatchConvey("nil", func() {
			So(KindOf(nil), ShouldEqual, Kind(""))
		})

		PatchConvey("wrapped XError", func() {
			err := fmt.Errorf("outer: %w", Wrap(KindNodeTimeout, "pipeline", "evaluate", errors.New("miss")))
			So(KindOf(err), ShouldEqual, KindNodeTimeout)
			So(IsKind(err, KindNodeTimeout), ShouldBeTrue)
			So(IsKind(err, KindRunTimeout), ShouldBeFalse)
		})

		PatchConvey("context 取消", func() {
			So(KindOf(fmt.Errorf("x: %w", context.Canceled)), ShouldEqual, KindCancelled)
		})

		PatchConvey("普通错误", func() {
			So(KindOf(errors.New("plain")), ShouldEqual, KindInternal)
		})
	})
}

func TestIs(t *testing.T) {
	PatchConvey("TestIs", t, func() {
		PatchConvey("匹配模块名", func() {
			err := New("xconfig", "init", errors.New("parse error"))
			So(Is(err, "xconfig"), ShouldBeTrue)
			So(Is(err, "xlog"), ShouldBeFalse)
		})

		PatchConvey("非 XError", func() {
			So(Is(errors.New("plain"), "xconfig"), ShouldBeFalse)
		})
	})
}

func TestModuleAndNode(t *testing.T) {
	PatchConvey("TestModuleAndNode", t, func() {
		err := fmt.Errorf("wrap: %w", Config("pipeline", "validate", "bad").WithNode("n1"))
		So(Module(err), ShouldEqual, "pipeline")
		So(NodeOf(err), ShouldEqual, "n1")
		So(Module(errors.New("plain")), ShouldEqual, "")
		So(NodeOf(errors.New("plain")), ShouldEqual, "")
	})
}
