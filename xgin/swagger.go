package xgin

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"

	"github.com/xiaoshicae/xvision/xconfig"
)

const SwaggerUrl = "/swagger/*any"

// WithSwagger 挂载 /swagger 路由，spec 需已通过 swag.Register 注册
func (g *XGin) WithSwagger(spec *swag.Spec) *XGin {
	g.swaggerInfo = spec
	return g
}

func injectSwaggerInfo(spec *swag.Spec, engine *gin.Engine) {
	c := GetSwaggerConfig()
	if spec == nil || engine == nil || c.Disable {
		return
	}
	setSwaggerInfo(spec, c)
	engine.GET(SwaggerUrl, ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.InstanceName(spec.InstanceName())))
}

func setSwaggerInfo(spec *swag.Spec, c *SwaggerConfig) {
	spec.Version = xconfig.GetServerVersion()
	spec.Host = c.Host
	spec.BasePath = c.BasePath
	spec.Title = c.Title
	spec.Description = c.Description
	spec.Schemes = c.Schemes
}
