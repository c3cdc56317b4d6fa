package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/bytedance/mockey"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/xiaoshicae/xvision/pipeline"
	"github.com/xiaoshicae/xvision/stress"
	"github.com/xiaoshicae/xvision/xerror"
)

func TestCollector(t *testing.T) {
	PatchConvey("TestCollector", t, func() {
		c := New()
		ctx := context.Background()

		c.OnNodeDone(ctx, "r1", "start", nil, 10*time.Millisecond)
		c.OnNodeDone(ctx, "r1", "click", errors.New("off screen"), 5*time.Millisecond)
		c.OnRunDone(ctx, &pipeline.Result{Success: true}, time.Second)
		c.OnRunDone(ctx, &pipeline.Result{Error: &pipeline.ResultError{Kind: xerror.KindNodeTimeout}}, 2*time.Second)
		c.ObserveStress(&stress.Run{Successful: 7, Failed: 3})
		c.ObserveStress(nil)

		So(testutil.ToFloat64(c.nodes.WithLabelValues("start", "success")), ShouldEqual, 1)
		So(testutil.ToFloat64(c.nodes.WithLabelValues("click", "failed")), ShouldEqual, 1)
		So(testutil.ToFloat64(c.runs.WithLabelValues("failed", "NodeTimeout")), ShouldEqual, 1)
		So(testutil.ToFloat64(c.iterations.WithLabelValues("failed")), ShouldEqual, 3)

		rec := httptest.NewRecorder()
		c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		body, _ := io.ReadAll(rec.Body)
		So(string(body), ShouldContainSubstring, "xvision_pipeline_runs_total")
		So(string(body), ShouldContainSubstring, "xvision_stress_iterations_total")
	})
}
