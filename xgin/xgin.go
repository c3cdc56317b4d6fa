// Package xgin 基于 gin 的控制面 HTTP 服务，实现 xserver.Server
package xgin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/swaggo/swag"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/xiaoshicae/xvision/xerror"
	"github.com/xiaoshicae/xvision/xgin/middleware"
	"github.com/xiaoshicae/xvision/xgin/trans"
	"github.com/xiaoshicae/xvision/xutil"
)

const defaultWaitStopDuration = 30 * time.Second

// New 创建 XGin builder
func New() *XGin {
	setGinMode()
	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	return &XGin{
		engine:          engine,
		routerRegisters: make([]func(*gin.Engine), 0),
		middlewares:     make([]gin.HandlerFunc, 0),
	}
}

// XGin 控制面服务
type XGin struct {
	engine          *gin.Engine
	routerRegisters []func(*gin.Engine)
	middlewares     []gin.HandlerFunc
	recoveryFunc    gin.RecoveryFunc
	onStop          []func()
	swaggerInfo     *swag.Spec

	srvMu sync.Mutex
	srv   *http.Server
	build bool
}

func (g *XGin) WithRouteRegister(f ...func(*gin.Engine)) *XGin {
	g.routerRegisters = append(g.routerRegisters, f...)
	return g
}

func (g *XGin) WithMiddleware(m ...gin.HandlerFunc) *XGin {
	g.middlewares = append(g.middlewares, m...)
	return g
}

func (g *XGin) WithRecoverFunc(recoveryFunc gin.RecoveryFunc) *XGin {
	g.recoveryFunc = recoveryFunc
	return g
}

// WithStopFunc 服务关闭前执行，用于断开 websocket 等长连接
func (g *XGin) WithStopFunc(f ...func()) *XGin {
	g.onStop = append(g.onStop, f...)
	return g
}

func (g *XGin) Build() *XGin {
	if g.build {
		return g
	}
	c := GetConfig()

	// trace 需要最先注册，保证后续 middleware 能拿到 traceid
	g.engine.Use(middleware.GinXTraceMiddleware())
	g.engine.Use(middleware.GinXRecoverMiddleware(g.recoveryFunc))
	g.engine.Use(middleware.LogMiddleware(middleware.WithSkipPaths(c.LogSkipPaths...)))
	for _, m := range g.middlewares {
		g.engine.Use(m)
	}

	for _, register := range g.routerRegisters {
		register(g.engine)
	}

	if g.swaggerInfo != nil {
		injectSwaggerInfo(g.swaggerInfo, g.engine)
	}

	if *c.EnableZHTranslations {
		if err := trans.RegisterZHTranslations(); err != nil {
			xutil.WarnIfEnableDebug("register zh translations failed: %v", err)
		}
	}

	g.build = true
	return g
}

func (g *XGin) Engine() *gin.Engine {
	if !g.build {
		g.Build()
	}
	return g.engine
}

// Run 实现 xserver.Server 接口
func (g *XGin) Run() error {
	if !g.build {
		g.Build()
	}

	c := GetConfig()
	if (c.CertFile == "") != (c.KeyFile == "") {
		return xerror.Config("xgin", "run", "TLS config incomplete: CertFile and KeyFile must be both set or both empty")
	}

	addr := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	PrintBanner(addr)

	handler := g.engine.Handler()
	if c.UseH2C && c.CertFile == "" {
		handler = h2c.NewHandler(handler, &http2.Server{})
		xutil.InfoIfEnableDebug("xgin server use h2c")
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.srvMu.Lock()
	g.srv = srv
	g.srvMu.Unlock()

	var err error
	if c.CertFile != "" {
		err = srv.ListenAndServeTLS(c.CertFile, c.KeyFile)
	} else {
		err = srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop 实现 xserver.Server 接口
func (g *XGin) Stop() error {
	for _, f := range g.onStop {
		f()
	}

	g.srvMu.Lock()
	srv := g.srv
	g.srvMu.Unlock()
	if srv == nil {
		xutil.WarnIfEnableDebug("XGin Stop called but server not started yet, skip")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultWaitStopDuration)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		xutil.ErrorIfEnableDebug("XGin server stop failed, err=[%v]", err)
		return err
	}
	return nil
}

func setGinMode() {
	if strings.TrimSpace(os.Getenv(gin.EnvGinMode)) != "" {
		return
	}
	if xutil.EnableDebug() {
		gin.SetMode(gin.DebugMode)
		return
	}
	gin.SetMode(gin.ReleaseMode)
}
