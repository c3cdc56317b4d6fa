package xtrace

import (
	"context"
	"maps"
	"net/http"

	"go.opentelemetry.io/otel/propagation"
)

type forwardHeadersKey struct{}

// HeaderPropagator 在链路中透传指定的自定义 HTTP Header
type HeaderPropagator struct {
	headers []string
}

var _ propagation.TextMapPropagator = (*HeaderPropagator)(nil)

func NewHeaderPropagator(headers []string) *HeaderPropagator {
	normalized := make([]string, 0, len(headers))
	for _, h := range headers {
		if h != "" {
			normalized = append(normalized, http.CanonicalHeaderKey(h))
		}
	}
	return &HeaderPropagator{headers: normalized}
}

// Extract 从 carrier 读取配置的 Header，与 ctx 中已有的值合并
func (p *HeaderPropagator) Extract(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	var merged map[string]string
	for _, h := range p.headers {
		v := carrier.Get(h)
		if v == "" {
			continue
		}
		if merged == nil {
			merged = maps.Clone(forwardHeaders(ctx))
			if merged == nil {
				merged = make(map[string]string, len(p.headers))
			}
		}
		merged[h] = v
	}
	if merged == nil {
		return ctx
	}
	return context.WithValue(ctx, forwardHeadersKey{}, merged)
}

// Inject 只写入配置过的 Header
func (p *HeaderPropagator) Inject(ctx context.Context, carrier propagation.TextMapCarrier) {
	vals := forwardHeaders(ctx)
	for _, h := range p.headers {
		if v := vals[h]; v != "" {
			carrier.Set(h, v)
		}
	}
}

func (p *HeaderPropagator) Fields() []string {
	return append([]string(nil), p.headers...)
}

// ForwardHeaderFromContext 获取透传 Header 的值，大小写不敏感
func ForwardHeaderFromContext(ctx context.Context, key string) string {
	return forwardHeaders(ctx)[http.CanonicalHeaderKey(key)]
}

func forwardHeaders(ctx context.Context) map[string]string {
	m, _ := ctx.Value(forwardHeadersKey{}).(map[string]string)
	return m
}
