package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/okian/tagrank/internal/domain/model"
	"github.com/okian/tagrank/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTagLocksOnlyForKnownTags(t *testing.T) {
	Convey("Given a service with one tag", t, func() {
		_ = logger.Init()
		ctx := context.Background()
		svc := New()
		defer svc.Stop(ctx)
		So(svc.CreateTag(ctx, model.Tag{ID: "t1"}), ShouldBeNil)
		So(svc.CreateCompetitor(ctx, model.Competitor{ID: "a"}), ShouldBeNil)
		So(svc.CreateCompetitor(ctx, model.Competitor{ID: "b"}), ShouldBeNil)

		Convey("When competitions name unknown tags", func() {
			for i := 0; i < 50; i++ {
				_, err := svc.Apply(ctx, model.Competition{TagID: fmt.Sprintf("nope-%d", i), CompetitorA: "a", CompetitorB: "b"})
				So(err, ShouldNotBeNil)
			}

			Convey("Then no lock is kept for them", func() {
				So(len(svc.tags.locks), ShouldEqual, 0)
			})
		})

		Convey("When a competition names the known tag", func() {
			_, err := svc.Apply(ctx, model.Competition{TagID: "t1", CompetitorA: "a", CompetitorB: "b", WinnerID: "a"})
			So(err, ShouldBeNil)

			Convey("Then exactly one lock exists", func() {
				So(len(svc.tags.locks), ShouldEqual, 1)
			})
		})
	})
}
