package session

import (
	"context"
	"testing"

	. "github.com/bytedance/mockey"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/xiaoshicae/xvision/xerror"
	"github.com/xiaoshicae/xvision/xutil"
)

func TestConfigMergeDefault(t *testing.T) {
	PatchConvey("TestConfigMergeDefault", t, func() {
		c := configMergeDefault(nil)
		So(c.StartupWait, ShouldEqual, "2s")
		So(c.StopTimeout, ShouldEqual, "5s")
	})
}

func TestManager(t *testing.T) {
	PatchConvey("TestManager", t, func() {
		if !xutil.FileExist("/bin/sleep") {
			SkipSo("no /bin/sleep")
			return
		}
		m := NewManager(&Config{TargetPath: "/bin/sleep", Args: []string{"30"}, StartupWait: "0", StopTimeout: "2s"}, nil)
		ctx := context.Background()

		info, err := m.Launch(ctx)
		So(err, ShouldBeNil)
		So(info.PID, ShouldBeGreaterThan, 0)
		So(info.Path, ShouldEqual, "/bin/sleep")
		So(info.AlreadyRunning, ShouldBeFalse)
		So(m.Running(), ShouldBeTrue)

		again, err := m.Launch(ctx)
		So(err, ShouldBeNil)
		So(again.PID, ShouldEqual, info.PID)
		So(again.AlreadyRunning, ShouldBeTrue)

		So(m.Close(ctx), ShouldBeNil)
		So(m.Running(), ShouldBeFalse)
		So(m.Close(ctx), ShouldNotBeNil)
		So(m.Shutdown(), ShouldBeNil)
	})
}

func TestLaunchMissingTarget(t *testing.T) {
	PatchConvey("TestLaunchMissingTarget", t, func() {
		m := NewManager(&Config{TargetPath: "/not/exist/app"}, nil)
		_, err := m.Launch(context.Background())
		So(xerror.IsKind(err, xerror.KindConfiguration), ShouldBeTrue)

		_, err = NewManager(nil, nil).Launch(context.Background())
		So(xerror.IsKind(err, xerror.KindConfiguration), ShouldBeTrue)
	})
}
