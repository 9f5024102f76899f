package service_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	service "github.com/okian/tagrank/internal/app"
	"github.com/okian/tagrank/internal/adapters/repository"
	"github.com/okian/tagrank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// gatedStore blocks rating lookups until the gate is closed, which holds
// workers inside Apply.
type gatedStore struct {
	repository.Store
	gate chan struct{}
}

func (g gatedStore) RatingRecordsFor(ctx context.Context, tagID, competitorID string) ([]model.RatingRecord, error) {
	<-g.gate
	return g.Store.RatingRecordsFor(ctx, tagID, competitorID)
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(1000),
			service.WithDedupeSize(500),
			service.WithRand(rand.New(rand.NewSource(11))),
		)
		seeded(ctx, svc)
		So(svc.CreateCompetitor(ctx, model.Competitor{ID: "c", Name: "Cy"}), ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)

		Convey("Then stats report it as running", func() {
			stats := svc.GetStats(ctx)
			So(stats["started"], ShouldEqual, true)
			So(stats["workerCount"], ShouldEqual, 2)
			So(svc.Stop(ctx), ShouldBeNil)
		})

		Convey("When competitions are submitted end-to-end", func() {
			ids := make([]string, 0, 50)
			for i := 0; i < 50; i++ {
				winner := ""
				if i%2 == 0 {
					winner = "a"
				}
				id, dup, err := svc.Submit(ctx, model.Competition{TagID: "t1", CompetitorA: "a", CompetitorB: "c", WinnerID: winner})
				So(err, ShouldBeNil)
				So(dup, ShouldBeFalse)
				ids = append(ids, id)
			}
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then every competition is applied exactly once", func() {
				hist, err := svc.History(ctx, "t1", 0)
				So(err, ShouldBeNil)
				So(len(hist), ShouldEqual, 50)
				seen := make(map[string]bool)
				for _, r := range hist {
					seen[r.CompetitionID] = true
				}
				for _, id := range ids {
					So(seen[id], ShouldBeTrue)
				}
			})
		})

		Convey("When the same competition id is submitted twice", func() {
			c := model.Competition{ID: "fixed", TagID: "t1", CompetitorA: "a", CompetitorB: "b", WinnerID: "b"}
			_, first, err := svc.Submit(ctx, c)
			So(err, ShouldBeNil)
			_, second, err := svc.Submit(ctx, c)
			So(err, ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then the second is a duplicate and applied once", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				hist, _ := svc.History(ctx, "", 0)
				So(len(hist), ShouldEqual, 1)
			})
		})

		Convey("When a submission is invalid", func() {
			_, _, badShape := svc.Submit(ctx, model.Competition{TagID: "t1", CompetitorA: "a", CompetitorB: "a"})
			_, _, unknown := svc.Submit(ctx, model.Competition{TagID: "t1", CompetitorA: "a", CompetitorB: "ghost"})
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then it is rejected before queueing", func() {
				So(errors.Is(badShape, model.ErrInvalidValue), ShouldBeTrue)
				So(errors.Is(unknown, repository.ErrNotFound), ShouldBeTrue)
				So(svc.GetStats(ctx)["dedupeSeen"], ShouldEqual, int64(0))
			})
		})

		Convey("When stopped", func() {
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then submissions and restarts are refused", func() {
				_, _, err := svc.Submit(ctx, model.Competition{TagID: "t1", CompetitorA: "a", CompetitorB: "b"})
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(errors.Is(svc.Start(ctx), service.ErrStopped), ShouldBeTrue)
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})
	})
}

func TestServiceBackpressure(t *testing.T) {
	Convey("Given a service whose single worker is stuck", t, func() {
		ctx := context.Background()
		mem := repository.NewMemoryStore(ctx)
		defer mem.Close()
		gate := make(chan struct{})
		svc := service.New(
			service.WithStore(gatedStore{Store: mem, gate: gate}),
			service.WithWorkerCount(1),
			service.WithQueueSize(1),
		)
		seeded(ctx, svc)
		So(svc.Start(ctx), ShouldBeNil)

		var (
			accepted []string
			rejected string
			err      error
		)
		for i := 0; i < 20; i++ {
			id := fmt.Sprintf("c%d", i)
			_, _, err = svc.Submit(ctx, model.Competition{ID: id, TagID: "t1", CompetitorA: "a", CompetitorB: "b"})
			if errors.Is(err, service.ErrBackpressure) {
				rejected = id
				break
			}
			So(err, ShouldBeNil)
			accepted = append(accepted, id)
			time.Sleep(10 * time.Millisecond)
		}

		Convey("Then the queue eventually refuses work", func() {
			So(errors.Is(err, service.ErrBackpressure), ShouldBeTrue)
			So(len(accepted), ShouldBeLessThanOrEqualTo, 3)

			close(gate)
			So(svc.Stop(ctx), ShouldBeNil)

			hist, _ := mem.Results(ctx, "", 0)
			So(len(hist), ShouldEqual, len(accepted))
			for _, r := range hist {
				So(r.CompetitionID, ShouldNotEqual, rejected)
			}
		})
	})
}
