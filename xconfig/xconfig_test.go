package xconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/xiaoshicae/xvision/xutil"

	. "github.com/bytedance/mockey"
	. "github.com/smartystreets/goconvey/convey"
)

func writeFile(t *testing.T, dir, name, content string) string {
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad(t *testing.T) {
	PatchConvey("TestLoad", t, func() {
		defer func() { _ = Load("") }()

		PatchConvey("TestLoad-Empty", func() {
			So(Load(""), ShouldBeNil)
			So(GetServerName(), ShouldEqual, "xvision")
			So(GetServerVersion(), ShouldEqual, "v0.0.1")
			So(ContainKey("Engine"), ShouldBeFalse)
		})

		PatchConvey("TestLoad-NotExist", func() {
			So(Load("/not/exist/application.yml"), ShouldNotBeNil)
		})

		PatchConvey("TestLoad-WithProfileAndEnv", func() {
			dir := t.TempDir()
			loc := writeFile(t, dir, "application.yml", `
Server:
  Name: vision-test
  Profiles:
    Active: dev
Engine:
  RunBudget: 300s
  DefaultTimeout: 20000
Interpreter:
  APIKey: ${XVISION_TEST_KEY:-none}
  BaseURL: ${XVISION_TEST_URL}
`)
			writeFile(t, dir, "application-dev.yml", `
Engine:
  RunBudget: 10s
`)
			writeFile(t, dir, ".env", "XVISION_TEST_URL=http://localhost:9000\n")
			defer os.Unsetenv("XVISION_TEST_URL")

			So(Load(loc), ShouldBeNil)
			So(GetServerName(), ShouldEqual, "vision-test")
			So(GetDuration("Engine.RunBudget"), ShouldEqual, 10*time.Second)
			So(GetDuration("Engine.DefaultTimeout"), ShouldEqual, 20*time.Second)
			So(GetString("Interpreter.APIKey"), ShouldEqual, "none")
			So(GetString("Interpreter.BaseURL"), ShouldEqual, "http://localhost:9000")

			type engine struct {
				RunBudget string `mapstructure:"RunBudget"`
			}
			e := &engine{}
			So(UnmarshalConfig("Engine", e), ShouldBeNil)
			So(e.RunBudget, ShouldEqual, "10s")
		})
	})
}

func TestUnmarshalConfigParam(t *testing.T) {
	PatchConvey("TestUnmarshalConfigParam", t, func() {
		So(UnmarshalConfig("", &Server{}), ShouldNotBeNil)
		So(UnmarshalConfig("Server", nil), ShouldNotBeNil)
		So(UnmarshalConfig("Server", Server{}), ShouldNotBeNil)
		So(UnmarshalConfig("Server", &Server{}), ShouldBeNil)
	})
}

func TestDetectConfigLocation(t *testing.T) {
	PatchConvey("TestDetectConfigLocation", t, func() {
		PatchConvey("TestDetectConfigLocation-Explicit", func() {
			SetConfigLocation("/x/application.yml")
			defer SetConfigLocation("")
			So(detectConfigLocation(), ShouldEqual, "/x/application.yml")
		})

		PatchConvey("TestDetectConfigLocation-Arg", func() {
			Mock(xutil.GetConfigFromArgs).Return("/arg.yml", nil).Build()
			So(detectConfigLocation(), ShouldEqual, "/arg.yml")
		})

		PatchConvey("TestDetectConfigLocation-Env", func() {
			Mock(xutil.GetConfigFromArgs).Return("", nil).Build()
			_ = os.Setenv(configLocationEnvKey, "/env.yml")
			defer os.Unsetenv(configLocationEnvKey)
			So(detectConfigLocation(), ShouldEqual, "/env.yml")
		})
	})
}

func TestExpandEnvPlaceholders(t *testing.T) {
	PatchConvey("TestExpandEnvPlaceholders", t, func() {
		_ = os.Setenv("PROFILES_ACTIVE", "test")
		defer os.Unsetenv("PROFILES_ACTIVE")

		vp := viper.New()
		vp.Set("Server.Profiles.Active", "${PROFILES_ACTIVE}")
		vp.Set("A.B", "pre-${NOT_SET_KEY_X:-dft}-post")
		vp.Set("A.C", 10)

		expandEnvPlaceholders(vp)
		So(vp.GetString("Server.Profiles.Active"), ShouldEqual, "test")
		So(vp.GetString("A.B"), ShouldEqual, "pre-dft-post")
		So(vp.GetInt("A.C"), ShouldEqual, 10)
	})
}

func TestToProfilesActiveConfigLocation(t *testing.T) {
	PatchConvey("TestToProfilesActiveConfigLocation", t, func() {
		So(toProfilesActiveConfigLocation("./conf/application.yml", "dev"), ShouldEqual, "./conf/application-dev.yml")
		So(toProfilesActiveConfigLocation("/a.b/application.yaml", "prod"), ShouldEqual, "/a.b/application-prod.yaml")
	})
}
