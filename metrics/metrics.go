// Package metrics 流水线与压力测试的 prometheus 指标
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xiaoshicae/xvision/pipeline"
	"github.com/xiaoshicae/xvision/stress"
)

const namespace = "xvision"

// Collector 实现 pipeline.Monitor
type Collector struct {
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	nodes        *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
	iterations   *prometheus.CounterVec
}

var _ pipeline.Monitor = (*Collector)(nil)

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "pipeline_runs_total", Help: "pipeline runs by result and error kind",
		}, []string{"result", "kind"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "pipeline_run_duration_seconds", Help: "pipeline run duration",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
		nodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "pipeline_node_actions_total", Help: "node actions by node and status",
		}, []string{"node", "status"}),
		nodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "pipeline_node_duration_seconds", Help: "node action duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"node"}),
		iterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "stress_iterations_total", Help: "stress iterations by result",
		}, []string{"result"}),
	}
	c.registry.MustRegister(c.runs, c.runDuration, c.nodes, c.nodeDuration, c.iterations)
	c.registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return c
}

func (c *Collector) OnNodeDone(_ context.Context, _, node string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	c.nodes.WithLabelValues(node, status).Inc()
	c.nodeDuration.WithLabelValues(node).Observe(duration.Seconds())
}

func (c *Collector) OnRunDone(_ context.Context, result *pipeline.Result, duration time.Duration) {
	switch {
	case result.Success:
		c.runs.WithLabelValues("success", "").Inc()
	case result.Error != nil:
		c.runs.WithLabelValues("failed", string(result.Error.Kind)).Inc()
	default:
		c.runs.WithLabelValues("failed", "").Inc()
	}
	c.runDuration.Observe(duration.Seconds())
}

// ObserveStress 累加一次压力测试的结果
func (c *Collector) ObserveStress(run *stress.Run) {
	if run == nil {
		return
	}
	c.iterations.WithLabelValues("success").Add(float64(run.Successful))
	c.iterations.WithLabelValues("failed").Add(float64(run.Failed))
}

// Handler /metrics
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}
