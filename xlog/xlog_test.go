package xlog

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bytedance/mockey"
	c "github.com/smartystreets/goconvey/convey"
)

func TestXLogConfig(t *testing.T) {
	mockey.PatchConvey("TestXLogConfig-configMergeDefault-Nil", t, func() {
		c.So(configMergeDefault(nil), c.ShouldResemble, &Config{
			Level:      "info",
			Name:       "xvision",
			Path:       "./log",
			MaxAge:     "7d",
			RotateTime: "1d",
			Timezone:   "Asia/Shanghai",
		})
	})

	mockey.PatchConvey("TestXLogConfig-configMergeDefault-NotNil", t, func() {
		cfg := configMergeDefault(&Config{Level: "debug", Name: "n", Path: "p", MaxAge: "1d", RotateTime: "1h", Timezone: "UTC"})
		c.So(cfg.Level, c.ShouldEqual, "debug")
		c.So(cfg.Name, c.ShouldEqual, "n")
		c.So(cfg.Timezone, c.ShouldEqual, "UTC")
	})
}

func TestResolveLevels(t *testing.T) {
	mockey.PatchConvey("TestResolveLevels", t, func() {
		c.So(len(resolveLevels("debug")), c.ShouldEqual, 5)
		c.So(len(resolveLevels("WARN")), c.ShouldEqual, 3)
		c.So(resolveLevels("unknown"), c.ShouldResemble, levelMapping["info"])
	})
}

func TestCtxWithKV(t *testing.T) {
	mockey.PatchConvey("TestCtxWithKV", t, func() {
		ctx := CtxWithKV(context.Background(), map[string]any{"run_id": "r1"})
		ctx2 := CtxWithKV(ctx, map[string]any{"node": "start"})

		c.So(kvFromCtx(ctx), c.ShouldResemble, map[string]any{"run_id": "r1"})
		c.So(kvFromCtx(ctx2), c.ShouldResemble, map[string]any{"run_id": "r1", "node": "start"})
		c.So(kvFromCtx(context.Background()), c.ShouldBeNil)
	})
}

func TestXLogHook(t *testing.T) {
	mockey.PatchConvey("TestXLogHook", t, func() {
		buf := &bytes.Buffer{}
		h := &xLogHook{ServerName: "s", IP: "1.1.1.1", PidStr: "1", Console: true, Writer: buf}

		ctx := CtxWithKV(context.Background(), map[string]any{"run_id": "r1"})
		entry := logrus.WithContext(ctx)
		entry.Level = logrus.WarnLevel
		entry.Message = "poll miss"
		entry.Time = time.Now()

		c.So(h.Fire(entry), c.ShouldBeNil)
		c.So(entry.Data["servername"], c.ShouldEqual, "s")
		c.So(entry.Data["run_id"], c.ShouldEqual, "r1")
		c.So(buf.String(), c.ShouldContainSubstring, "WARN")
		c.So(buf.String(), c.ShouldContainSubstring, "poll miss")
	})
}

func TestAsyncWriter(t *testing.T) {
	mockey.PatchConvey("TestAsyncWriter", t, func() {
		f, err := os.Create(filepath.Join(t.TempDir(), "a.log"))
		c.So(err, c.ShouldBeNil)
		aw := newAsyncWriter(f, 2)
		p := []byte("line1\n")
		_, _ = aw.Write(p)
		p[0] = 'X'
		_, _ = aw.Write([]byte("line2\n"))
		c.So(aw.Close(), c.ShouldBeNil)
		c.So(aw.Close(), c.ShouldBeNil)

		data, _ := os.ReadFile(f.Name())
		c.So(string(data), c.ShouldEqual, "line1\nline2\n")
	})
}

func TestGetConfig(t *testing.T) {
	mockey.PatchConvey("TestGetConfig-Err", t, func() {
		mockey.Mock(getConfig).Return(nil, errors.New("bad")).Build()
		c.So(initXLog(), c.ShouldNotBeNil)
	})
}
