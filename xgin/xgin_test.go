package xgin

import (
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/bytedance/mockey"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/gin-gonic/gin"
	"github.com/swaggo/swag"

	"github.com/xiaoshicae/xvision/xconfig"
	"github.com/xiaoshicae/xvision/xerror"
)

func TestConfigMergeDefault(t *testing.T) {
	PatchConvey("TestConfigMergeDefault", t, func() {
		c := configMergeDefault(nil)
		So(c.Host, ShouldEqual, "127.0.0.1")
		So(c.Port, ShouldEqual, 8000)
		So(c.LogSkipPaths, ShouldResemble, []string{"/metrics", "/ws/"})
		So(*c.EnableZHTranslations, ShouldBeTrue)

		c = configMergeDefault(&Config{Port: 9000, LogSkipPaths: []string{}})
		So(c.Port, ShouldEqual, 9000)
		So(c.LogSkipPaths, ShouldBeEmpty)
		So(c.Swagger, ShouldBeNil)

		c = configMergeDefault(&Config{Swagger: &SwaggerConfig{BasePath: "/api"}})
		So(c.Swagger.BasePath, ShouldEqual, "/api")
		So(c.Swagger.Title, ShouldEqual, "xvision")
		So(c.Swagger.Schemes, ShouldResemble, []string{"http", "https"})
	})
}

func TestXGinBuild(t *testing.T) {
	PatchConvey("TestXGinBuild", t, func() {
		Mock(xconfig.UnmarshalConfig).Return(nil).Build()

		g := New().WithRouteRegister(func(e *gin.Engine) {
			e.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
		})
		engine := g.Engine()
		So(g.Build(), ShouldEqual, g)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		So(w.Code, ShouldEqual, http.StatusOK)
		So(w.Body.String(), ShouldEqual, "pong")

		w = httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ping", nil))
		So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
	})
}

var testSwagger = &swag.Spec{
	InfoInstanceName: "xgin_test",
	SwaggerTemplate:  `{"swagger": "2.0", "info": {"title": "{{.Title}}", "description": "{{escape .Description}}"}, "schemes": {{ marshal .Schemes }}, "paths": {}}`,
}

func init() {
	swag.Register(testSwagger.InstanceName(), testSwagger)
}

func TestXGinSwagger(t *testing.T) {
	PatchConvey("TestXGinSwagger", t, func() {
		Mock(xconfig.UnmarshalConfig).Return(nil).Build()

		PatchConvey("默认挂载 doc.json", func() {
			engine := New().WithSwagger(testSwagger).Engine()
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"title": "xvision"`)
			So(w.Body.String(), ShouldContainSubstring, `["http","https"]`)
		})

		PatchConvey("配置覆盖文档信息", func() {
			Mock(GetSwaggerConfig).Return(&SwaggerConfig{Title: "控制面", Description: "视觉自动化", Schemes: []string{"http"}}).Build()
			engine := New().WithSwagger(testSwagger).Engine()
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "控制面")
			So(w.Body.String(), ShouldContainSubstring, "视觉自动化")
		})

		PatchConvey("关闭后不挂载", func() {
			Mock(GetSwaggerConfig).Return(&SwaggerConfig{Disable: true}).Build()
			engine := New().WithSwagger(testSwagger).Engine()
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		PatchConvey("未设置时不挂载", func() {
			w := httptest.NewRecorder()
			New().Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestXGinRunTLSIncomplete(t *testing.T) {
	PatchConvey("TestXGinRunTLSIncomplete", t, func() {
		Mock(GetConfig).Return(&Config{Host: "127.0.0.1", Port: 8000, CertFile: "a.pem",
			LogSkipPaths: []string{}, EnableZHTranslations: new(bool)}).Build()
		err := New().Run()
		So(xerror.IsKind(err, xerror.KindConfiguration), ShouldBeTrue)
	})
}

func TestXGinStopBeforeRun(t *testing.T) {
	PatchConvey("TestXGinStopBeforeRun", t, func() {
		called := false
		g := New().WithStopFunc(func() { called = true })
		So(g.Stop(), ShouldBeNil)
		So(called, ShouldBeTrue)
	})
}
