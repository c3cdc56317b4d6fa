package store

import (
	"context"
	"errors"
	"testing"

	. "github.com/bytedance/mockey"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/xiaoshicae/xvision/pipeline"
	"github.com/xiaoshicae/xvision/xerror"
	"github.com/xiaoshicae/xvision/xgorm"
	"github.com/xiaoshicae/xvision/xtrace"
)

const doc = `{"$comment": "点击按钮", "start": {"next": ["click"]}, "click": {"action": "Click", "target": [10, 10]}}`

func newRepo() *PipelineRepo {
	db, err := xgorm.New(&xgorm.Config{Driver: string(xgorm.DriverSQLite), DSN: ":memory:"})
	So(err, ShouldBeNil)
	repo, err := NewPipelineRepo(db)
	So(err, ShouldBeNil)
	So(repo.Migrate(context.Background()), ShouldBeNil)
	return repo
}

func TestNewRecord(t *testing.T) {
	PatchConvey("TestNewRecord", t, func() {
		rec, err := NewRecord("demo", []byte(doc), pipeline.FormatJSON)
		So(err, ShouldBeNil)
		So(rec.Description, ShouldEqual, "点击按钮")
		So(rec.Entries, ShouldEqual, "click,start")
		So(rec.NodeCount, ShouldEqual, 2)

		_, err = NewRecord("bad", []byte(`{"a": {"next": ["b"]}}`), pipeline.FormatJSON)
		So(xerror.IsKind(err, xerror.KindConfiguration), ShouldBeTrue)

		_, err = NewRecord(" ", []byte(doc), pipeline.FormatJSON)
		So(err, ShouldNotBeNil)
	})
}

func TestPipelineRepo(t *testing.T) {
	PatchConvey("TestPipelineRepo", t, func() {
		Mock(xtrace.EnableTrace).Return(false).Build()
		repo := newRepo()
		ctx := context.Background()

		rec, err := NewRecord("demo", []byte(doc), pipeline.FormatJSON)
		So(err, ShouldBeNil)
		So(repo.Save(ctx, rec), ShouldBeNil)

		got, err := repo.Get(ctx, "demo")
		So(err, ShouldBeNil)
		So(got.Document, ShouldEqual, doc)
		cfg, err := got.Config()
		So(err, ShouldBeNil)
		So(cfg.Nodes, ShouldContainKey, "start")

		PatchConvey("同名覆盖", func() {
			updated, err := NewRecord("demo", []byte(`{"only": {}}`), pipeline.FormatJSON)
			So(err, ShouldBeNil)
			So(repo.Save(ctx, updated), ShouldBeNil)
			got, err := repo.Get(ctx, "demo")
			So(err, ShouldBeNil)
			So(got.NodeCount, ShouldEqual, 1)

			list, err := repo.List(ctx)
			So(err, ShouldBeNil)
			So(list, ShouldHaveLength, 1)
			So(list[0].Document, ShouldBeEmpty)
		})

		PatchConvey("删除", func() {
			So(repo.Delete(ctx, "demo"), ShouldBeNil)
			_, err := repo.Get(ctx, "demo")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			So(errors.Is(repo.Delete(ctx, "demo"), ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestNewPipelineRepoWithoutDB(t *testing.T) {
	PatchConvey("TestNewPipelineRepoWithoutDB", t, func() {
		Mock(xgorm.C).Return(nil).Build()
		_, err := NewPipelineRepo(nil)
		So(xerror.IsKind(err, xerror.KindConfiguration), ShouldBeTrue)
	})
}
