package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/xiaoshicae/xvision/agent"
	"github.com/xiaoshicae/xvision/api"
	"github.com/xiaoshicae/xvision/xgin"
	"github.com/xiaoshicae/xvision/xhook"
	"github.com/xiaoshicae/xvision/xserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 控制面与帧推送",
	RunE:  runServe,
}

func runServe(*cobra.Command, []string) error {
	var srv *api.Server
	// 依赖配置、日志、存储，需在基础 hook 之后创建
	xhook.BeforeStart(func() error {
		a, err := agent.NewFromConfig(context.Background())
		if err != nil {
			return err
		}
		srv = api.New(a)
		return nil
	}, xhook.Order(200))

	g := xgin.New().
		WithRouteRegister(func(e *gin.Engine) { srv.Register(e) }).
		WithStopFunc(func() { srv.Close() }).
		WithSwagger(api.SwaggerInfo)
	return xserver.Run(g)
}
