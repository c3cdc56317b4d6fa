package xhttp

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xiaoshicae/xvision/xconfig"
	"github.com/xiaoshicae/xvision/xerror"
	"github.com/xiaoshicae/xvision/xhook"
	"github.com/xiaoshicae/xvision/xtrace"
	"github.com/xiaoshicae/xvision/xutil"
)

var (
	defaultClient = resty.New()
	clientMu      sync.RWMutex
)

func init() {
	xhook.BeforeStart(initHttpClient)
}

// C 获取全局 http client，推荐直接使用 RWithCtx()
func C() *resty.Client {
	clientMu.RLock()
	defer clientMu.RUnlock()
	return defaultClient
}

// RWithCtx 保证 ctx 中内容（trace 等）能传递到下游
func RWithCtx(ctx context.Context) *resty.Request {
	return C().R().SetContext(ctx)
}

// New 按配置创建独立的 resty client，trace 开启时自动注入 otelhttp transport
func New(c *Config) *resty.Client {
	c = configMergeDefault(c)

	var transport http.RoundTripper = http.DefaultTransport
	if base, ok := http.DefaultTransport.(*http.Transport); ok {
		t := base.Clone()
		t.MaxIdleConnsPerHost = c.MaxIdleConnsPerHost
		t.IdleConnTimeout = xutil.ToDuration(c.IdleConnTimeout)
		t.DialContext = (&net.Dialer{Timeout: xutil.ToDuration(c.DialTimeout)}).DialContext
		transport = t
	}
	if xtrace.EnableTrace() {
		transport = otelhttp.NewTransport(transport,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}

	client := resty.NewWithClient(&http.Client{
		Transport: transport,
		Timeout:   xutil.ToDuration(c.Timeout),
	})
	if c.RetryCount > 0 {
		client.SetRetryCount(c.RetryCount).SetRetryWaitTime(xutil.ToDuration(c.RetryWaitTime))
	}
	return client
}

func initHttpClient() error {
	c := &Config{}
	if err := xconfig.UnmarshalConfig(XHttpConfigKey, c); err != nil {
		return xerror.Newf("xhttp", "init", "getConfig failed, err=[%v]", err)
	}
	xutil.InfoIfEnableDebug("XVision initHttpClient got config: %s", xutil.ToJsonString(configMergeDefault(c)))

	client := New(c)
	clientMu.Lock()
	defaultClient = client
	clientMu.Unlock()
	return nil
}
