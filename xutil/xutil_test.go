package xutil

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/bytedance/mockey"
	c "github.com/smartystreets/goconvey/convey"
)

// ==================== convert.go ====================

func TestGetOrDefault(t *testing.T) {
	mockey.PatchConvey("TestGetOrDefault", t, func() {
		c.So(GetOrDefault(0, 100), c.ShouldEqual, 100)
		c.So(GetOrDefault("", "default"), c.ShouldEqual, "default")
		c.So(GetOrDefault(42, 100), c.ShouldEqual, 42)
		c.So(*ToPtr(3), c.ShouldEqual, 3)
	})
}

func TestToDuration(t *testing.T) {
	mockey.PatchConvey("TestToDuration", t, func() {
		mockey.PatchConvey("TestToDuration-Nil", func() {
			c.So(ToDuration(nil), c.ShouldEqual, 0)
		})

		mockey.PatchConvey("TestToDuration-String", func() {
			c.So(ToDuration("1s"), c.ShouldEqual, time.Second)
			c.So(ToDuration("100ms"), c.ShouldEqual, 100*time.Millisecond)
		})

		mockey.PatchConvey("TestToDuration-Millis", func() {
			c.So(ToDuration(200), c.ShouldEqual, 200*time.Millisecond)
			c.So(ToDuration(1.5), c.ShouldEqual, 1500*time.Microsecond)
			c.So(ToDuration("20000"), c.ShouldEqual, 20*time.Second)
		})

		mockey.PatchConvey("TestToDuration-WithDay", func() {
			c.So(ToDuration("1d"), c.ShouldEqual, 24*time.Hour)
			c.So(ToDuration("2d12h"), c.ShouldEqual, 60*time.Hour)
		})
	})
}

func TestClampAndSafeFileName(t *testing.T) {
	mockey.PatchConvey("TestClampAndSafeFileName", t, func() {
		c.So(Clamp(-5, 0, 10), c.ShouldEqual, 0)
		c.So(Clamp(15, 0, 10), c.ShouldEqual, 10)
		c.So(Clamp(5, 0, 10), c.ShouldEqual, 5)

		c.So(SafeFileName("draw rect/v1"), c.ShouldEqual, "draw_rect_v1")
		c.So(SafeFileName("画矩形-1"), c.ShouldEqual, "画矩形-1")
	})
}

// ==================== env.go ====================

func TestEnableDebug(t *testing.T) {
	mockey.PatchConvey("TestEnableDebug", t, func() {
		old := os.Getenv(DebugKey)
		defer os.Setenv(DebugKey, old)

		_ = os.Setenv(DebugKey, "yes")
		c.So(EnableDebug(), c.ShouldBeTrue)
		_ = os.Setenv(DebugKey, "off")
		c.So(EnableDebug(), c.ShouldBeFalse)
	})
}

func TestGetConfigFromArgs(t *testing.T) {
	mockey.PatchConvey("TestGetConfigFromArgs", t, func() {
		mockey.PatchConvey("TestGetConfigFromArgs-Space", func() {
			mockey.Mock(GetOsArgs).Return([]string{"--server.config.location", "/a.yml"}).Build()
			v, err := GetConfigFromArgs("server.config.location")
			c.So(err, c.ShouldBeNil)
			c.So(v, c.ShouldEqual, "/a.yml")
		})

		mockey.PatchConvey("TestGetConfigFromArgs-Equal", func() {
			mockey.Mock(GetOsArgs).Return([]string{"-x", "--server.config.location=/b.yml"}).Build()
			v, err := GetConfigFromArgs("server.config.location")
			c.So(err, c.ShouldBeNil)
			c.So(v, c.ShouldEqual, "/b.yml")
		})

		mockey.PatchConvey("TestGetConfigFromArgs-NotSet", func() {
			mockey.Mock(GetOsArgs).Return([]string{"--server.config.location"}).Build()
			_, err := GetConfigFromArgs("server.config.location")
			c.So(err, c.ShouldNotBeNil)
		})

		mockey.PatchConvey("TestGetConfigFromArgs-InvalidKey", func() {
			_, err := GetConfigFromArgs("$bad")
			c.So(err, c.ShouldNotBeNil)
		})
	})
}

// ==================== file.go ====================

func TestFileExist(t *testing.T) {
	mockey.PatchConvey("TestFileExist", t, func() {
		dir := t.TempDir()
		f, _ := os.CreateTemp(dir, "x")
		_ = f.Close()

		c.So(FileExist(f.Name()), c.ShouldBeTrue)
		c.So(FileExist(dir), c.ShouldBeFalse)
		c.So(DirExist(dir), c.ShouldBeTrue)
		c.So(DirExist(f.Name()), c.ShouldBeFalse)
	})
}

func TestResolvePath(t *testing.T) {
	mockey.PatchConvey("TestResolvePath", t, func() {
		c.So(ResolvePath("/res", "a.png"), c.ShouldEqual, "/res/a.png")
		c.So(ResolvePath("/res", "/abs/a.png"), c.ShouldEqual, "/abs/a.png")
		c.So(ResolvePath("", "a.png"), c.ShouldEqual, "a.png")
	})
}

// ==================== retry.go ====================

func TestRetry(t *testing.T) {
	mockey.PatchConvey("TestRetry", t, func() {
		mockey.PatchConvey("TestRetry-SuccessAfterFail", func() {
			n := 0
			err := Retry(func() error {
				n++
				if n < 3 {
					return errors.New("fail")
				}
				return nil
			}, 5, time.Millisecond)
			c.So(err, c.ShouldBeNil)
			c.So(n, c.ShouldEqual, 3)
		})

		mockey.PatchConvey("TestRetry-AllFail", func() {
			n := 0
			err := Retry(func() error { n++; return errors.New("fail") }, 3, 0)
			c.So(err, c.ShouldNotBeNil)
			c.So(n, c.ShouldEqual, 3)
		})

		mockey.PatchConvey("TestRetry-CtxCancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			err := RetryCtx(ctx, func() error { return errors.New("fail") }, 3, time.Second)
			c.So(errors.Is(err, context.Canceled), c.ShouldBeTrue)
		})
	})
}

// ==================== runtime.go ====================

func sampleFunc() {}

func TestGetFuncInfo(t *testing.T) {
	mockey.PatchConvey("TestGetFuncInfo", t, func() {
		c.So(GetFuncName(sampleFunc), c.ShouldEqual, "sampleFunc")
		c.So(GetFuncName(nil), c.ShouldEqual, "")
		c.So(GetFuncName(1), c.ShouldEqual, "")
		c.So(GetTraceIDFromCtx(context.Background()), c.ShouldEqual, "")

		ip, err := GetLocalIp()
		c.So(err, c.ShouldBeNil)
		c.So(ip, c.ShouldNotBeEmpty)
	})
}
