package xtrace

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/propagators/b3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/xiaoshicae/xvision/xconfig"
	"github.com/xiaoshicae/xvision/xhook"
	"github.com/xiaoshicae/xvision/xutil"
)

const defaultShutdownTimeout = 5 * time.Second

var shutdownFunc func() error

func init() {
	xhook.BeforeStart(initXTrace, xhook.Order(3))
	xhook.BeforeStop(shutdownXTrace)
}

func initXTrace() error {
	c := &Config{}
	if err := xconfig.UnmarshalConfig(XTraceConfigKey, c); err != nil {
		return fmt.Errorf("XVision initXTrace getConfig failed, err=[%v]", err)
	}
	c = configMergeDefault(c)

	if !*c.Enable {
		otel.SetTracerProvider(noop.NewTracerProvider())
		xutil.InfoIfEnableDebug("XVision initXTrace ignored, because of config XTrace.Enable=false")
		return nil
	}
	return initXTraceByConfig(c, xconfig.GetServerName(), xconfig.GetServerVersion())
}

func initXTraceByConfig(c *Config, serviceName, serviceVersion string) error {
	r, err := resource.New(
		context.Background(),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithHost(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return fmt.Errorf("XVision initXTrace resource.New failed, err=[%v]", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(r),
	}
	if c.Console {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("XVision initXTrace init exporter failed, err=[%v]", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(newPropagator(c))

	shutdownFunc = func() error {
		ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		return tp.Shutdown(ctx)
	}
	return nil
}

func newPropagator(c *Config) propagation.TextMapPropagator {
	ps := []propagation.TextMapPropagator{propagation.TraceContext{}, propagation.Baggage{}}
	if c.B3 {
		ps = append(ps, b3.New(b3.WithInjectEncoding(b3.B3MultipleHeader)))
	}
	if len(c.ForwardHeaders) > 0 {
		ps = append(ps, NewHeaderPropagator(c.ForwardHeaders))
	}
	return propagation.NewCompositeTextMapPropagator(ps...)
}

func shutdownXTrace() error {
	fn := shutdownFunc
	shutdownFunc = nil
	if fn == nil {
		return nil
	}
	return fn()
}
