package service_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	service "github.com/okian/tagrank/internal/app"
	"github.com/okian/tagrank/internal/adapters/repository"
	"github.com/okian/tagrank/internal/domain/model"
	"github.com/okian/tagrank/internal/domain/rating"
	"github.com/okian/tagrank/internal/domain/selection"
	"github.com/okian/tagrank/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// dupStore reports every stored rating record twice.
type dupStore struct {
	repository.Store
}

func (d dupStore) RatingRecordsFor(ctx context.Context, tagID, competitorID string) ([]model.RatingRecord, error) {
	recs, err := d.Store.RatingRecordsFor(ctx, tagID, competitorID)
	if len(recs) == 1 {
		recs = append(recs, recs[0])
	}
	return recs, err
}

func (d dupStore) RatingRecords(ctx context.Context) ([]model.RatingRecord, error) {
	recs, err := d.Store.RatingRecords(ctx)
	return append(recs, recs...), err
}

// brokenHistoryStore fails every combined rating and history write.
type brokenHistoryStore struct {
	repository.Store
}

func (brokenHistoryStore) ApplyResult(context.Context, model.Result) error {
	return errors.New("disk full")
}

func seeded(ctx context.Context, svc *service.Service) {
	So(svc.CreateTag(ctx, model.Tag{ID: "t1", Name: "Support"}), ShouldBeNil)
	So(svc.CreateCompetitor(ctx, model.Competitor{ID: "a", Name: "Ana"}), ShouldBeNil)
	So(svc.CreateCompetitor(ctx, model.Competitor{ID: "b", Name: "Bo"}), ShouldBeNil)
}

func TestService_New(t *testing.T) {
	Convey("Given a service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(50_000),
			service.WithDedupeSize(25_000),
			service.WithRand(rand.New(rand.NewSource(1))),
			service.WithDefaults(selection.Defaults{Rank: 1000, Uncertainty: 0.2}),
			service.WithParams(rating.Params{RankDecrement: 0.01, MinUncertainty: 0.1, FallbackUncertainty: 0.3}),
		)
		defer svc.Stop(context.Background())

		Convey("Then the options are applied", func() {
			stats := svc.GetStats(context.Background())
			So(stats["workerCount"], ShouldEqual, 8)
			So(stats["queueSize"], ShouldEqual, 50_000)
			So(stats["started"], ShouldBeFalse)
			So(svc.Defaults().Rank, ShouldEqual, 1000.0)
			So(svc.Params().FallbackUncertainty, ShouldEqual, 0.3)
		})
	})

	Convey("Given invalid defaults", t, func() {
		svc := service.New(service.WithDefaults(selection.Defaults{Rank: -1, Uncertainty: 2}))
		defer svc.Stop(context.Background())

		Convey("Then the stock defaults remain", func() {
			So(svc.Defaults(), ShouldResemble, selection.DefaultDefaults())
		})
	})
}

func TestService_Apply(t *testing.T) {
	Convey("Given a tag with two fresh competitors", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithRand(rand.New(rand.NewSource(7))))
		defer svc.Stop(ctx)
		seeded(ctx, svc)

		Convey("When a explicitly wins", func() {
			res, err := svc.Apply(ctx, model.Competition{ID: "c1", TagID: "t1", CompetitorA: "a", CompetitorB: "b", WinnerID: "a"})
			So(err, ShouldBeNil)

			Convey("Then both start from the defaults and swing by 225", func() {
				So(res.CompetitionID, ShouldEqual, "c1")
				So(res.WinnerID, ShouldEqual, "a")
				So(res.Random, ShouldBeFalse)
				So(res.Upset, ShouldBeFalse)
				So(res.A.Rank, ShouldAlmostEqual, 1725, 1e-9)
				So(res.B.Rank, ShouldAlmostEqual, 1275, 1e-9)
				So(res.A.Uncertainty, ShouldAlmostEqual, 0.148, 1e-12)
				So(res.B.Uncertainty, ShouldAlmostEqual, 0.148, 1e-12)
			})

			Convey("Then the store holds the new state", func() {
				board, err := svc.Leaderboard(ctx, "t1", 10)
				So(err, ShouldBeNil)
				So(len(board), ShouldEqual, 2)
				So(board[0].CompetitorID, ShouldEqual, "a")
				So(board[0].Name, ShouldEqual, "Ana")
				So(board[1].Position, ShouldEqual, 2)

				pos, err := svc.Position(ctx, "t1", "b")
				So(err, ShouldBeNil)
				So(pos.Rank, ShouldAlmostEqual, 1275, 1e-9)

				hist, err := svc.History(ctx, "t1", 0)
				So(err, ShouldBeNil)
				So(len(hist), ShouldEqual, 1)
				So(hist[0].CompetitionID, ShouldEqual, "c1")
			})

			Convey("And then b wins as the underdog", func() {
				res, err := svc.Apply(ctx, model.Competition{TagID: "t1", CompetitorA: "a", CompetitorB: "b", WinnerID: "b"})
				So(err, ShouldBeNil)

				Convey("Then it is an upset and swings use pre-update ranks", func() {
					So(res.Upset, ShouldBeTrue)
					So(res.CompetitionID, ShouldNotBeEmpty)
					So(res.B.Rank, ShouldAlmostEqual, 1275+0.148*1725, 1e-9)
					So(res.A.Rank, ShouldAlmostEqual, 1725-0.148*1275, 1e-9)
					So(res.A.Uncertainty, ShouldAlmostEqual, 0.146, 1e-12)
				})
			})
		})

		Convey("When the engine decides", func() {
			res, err := svc.Apply(ctx, model.Competition{TagID: "t1", CompetitorA: "a", CompetitorB: "b"})

			Convey("Then the result is marked random", func() {
				So(err, ShouldBeNil)
				So(res.Random, ShouldBeTrue)
				So(res.WinnerID, ShouldBeIn, "a", "b")
				So(res.A.Rank+res.B.Rank, ShouldAlmostEqual, 3000, 1e-9)
			})
		})

		Convey("When the competition is malformed", func() {
			_, missing := svc.Apply(ctx, model.Competition{TagID: "t1", CompetitorA: "a"})
			_, self := svc.Apply(ctx, model.Competition{TagID: "t1", CompetitorA: "a", CompetitorB: "a"})
			_, stranger := svc.Apply(ctx, model.Competition{TagID: "t1", CompetitorA: "a", CompetitorB: "b", WinnerID: "z"})

			Convey("Then it is rejected", func() {
				So(errors.Is(missing, model.ErrMissingField), ShouldBeTrue)
				So(errors.Is(self, model.ErrInvalidValue), ShouldBeTrue)
				So(errors.Is(stranger, model.ErrInvalidValue), ShouldBeTrue)
			})
		})

		Convey("When the tag or a competitor is unknown", func() {
			_, noTag := svc.Apply(ctx, model.Competition{TagID: "zz", CompetitorA: "a", CompetitorB: "b"})
			_, noComp := svc.Apply(ctx, model.Competition{TagID: "t1", CompetitorA: "a", CompetitorB: "zz"})

			Convey("Then ErrNotFound is returned", func() {
				So(errors.Is(noTag, repository.ErrNotFound), ShouldBeTrue)
				So(errors.Is(noComp, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_CorruptState(t *testing.T) {
	Convey("Given a store that returns duplicate rating records", t, func() {
		ctx := context.Background()
		mem := repository.NewMemoryStore(ctx)
		defer mem.Close()
		svc := service.New(service.WithStore(dupStore{Store: mem}))
		defer svc.Stop(ctx)
		seeded(ctx, svc)
		So(mem.UpsertRatings(ctx, model.RatingRecord{TagID: "t1", CompetitorID: "a", Rank: 1600, Uncertainty: 0.1}), ShouldBeNil)

		Convey("Then Apply surfaces ErrCorruptState and writes nothing", func() {
			_, err := svc.Apply(ctx, model.Competition{TagID: "t1", CompetitorA: "a", CompetitorB: "b", WinnerID: "b"})
			So(errors.Is(err, selection.ErrCorruptState), ShouldBeTrue)

			hist, _ := svc.History(ctx, "", 0)
			So(len(hist), ShouldEqual, 0)
			recs, _ := mem.RatingRecordsFor(ctx, "t1", "a")
			So(recs[0].Rank, ShouldEqual, 1600.0)
		})

		Convey("Then NextMatchup surfaces ErrCorruptState when the pair includes a", func() {
			var err error
			for i := 0; i < 20 && !errors.Is(err, selection.ErrCorruptState); i++ {
				_, err = svc.NextMatchup(ctx)
			}
			So(errors.Is(err, selection.ErrCorruptState), ShouldBeTrue)
		})
	})
}

func TestService_ApplyWritesAtomically(t *testing.T) {
	Convey("Given a store whose combined write fails", t, func() {
		ctx := context.Background()
		mem := repository.NewMemoryStore(ctx)
		defer mem.Close()
		svc := service.New(service.WithStore(brokenHistoryStore{Store: mem}))
		defer svc.Stop(ctx)
		seeded(ctx, svc)

		Convey("Then Apply fails and no rating is written", func() {
			_, err := svc.Apply(ctx, model.Competition{TagID: "t1", CompetitorA: "a", CompetitorB: "b", WinnerID: "a"})
			So(err, ShouldNotBeNil)

			recs, _ := mem.RatingRecords(ctx)
			So(len(recs), ShouldEqual, 0)
			hist, _ := mem.Results(ctx, "", 0)
			So(len(hist), ShouldEqual, 0)
		})
	})
}

func TestService_Matchups(t *testing.T) {
	Convey("Given an empty service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithRand(rand.New(rand.NewSource(3))))
		defer svc.Stop(ctx)

		Convey("Then NextMatchup and Play report empty input", func() {
			_, err := svc.NextMatchup(ctx)
			So(errors.Is(err, selection.ErrEmptyInput), ShouldBeTrue)
			_, err = svc.Play(ctx)
			So(errors.Is(err, selection.ErrEmptyInput), ShouldBeTrue)
		})

		Convey("When only one competitor exists", func() {
			So(svc.CreateTag(ctx, model.Tag{ID: "t1"}), ShouldBeNil)
			So(svc.CreateCompetitor(ctx, model.Competitor{ID: "a"}), ShouldBeNil)

			Convey("Then there is no pair to select", func() {
				_, err := svc.NextMatchup(ctx)
				So(errors.Is(err, selection.ErrEmptyInput), ShouldBeTrue)
			})
		})

		Convey("When tags and competitors exist", func() {
			seeded(ctx, svc)
			So(svc.CreateCompetitor(ctx, model.Competitor{ID: "c"}), ShouldBeNil)

			Convey("Then matchups use two distinct competitors with default state", func() {
				p, err := svc.NextMatchup(ctx)
				So(err, ShouldBeNil)
				So(p.Tag.ID, ShouldEqual, "t1")
				So(p.A.ID, ShouldNotEqual, p.B.ID)
				So(p.A.Rank, ShouldEqual, model.DefaultRank)
				So(p.B.Uncertainty, ShouldEqual, model.DefaultUncertainty)
			})

			Convey("Then Play applies random competitions", func() {
				for i := 0; i < 30; i++ {
					res, err := svc.Play(ctx)
					So(err, ShouldBeNil)
					So(res.Random, ShouldBeTrue)
				}
				hist, err := svc.History(ctx, "t1", 5)
				So(err, ShouldBeNil)
				So(len(hist), ShouldEqual, 5)

				est, err := svc.Estimate(ctx, "t1")
				So(err, ShouldBeNil)
				So(len(est), ShouldEqual, 3)

				stats := svc.GetStats(ctx)
				So(stats["results"], ShouldEqual, 30)
				So(stats["competitors"], ShouldEqual, 3)
			})
		})
	})
}

func TestService_Catalog(t *testing.T) {
	Convey("Given a service", t, func() {
		ctx := context.Background()
		svc := service.New()
		defer svc.Stop(ctx)

		Convey("Then ids are required", func() {
			So(errors.Is(svc.CreateTag(ctx, model.Tag{Name: "x"}), model.ErrMissingField), ShouldBeTrue)
			So(errors.Is(svc.CreateCompetitor(ctx, model.Competitor{Name: "x"}), model.ErrMissingField), ShouldBeTrue)
		})

		Convey("Then created entries are listed in insertion order", func() {
			seeded(ctx, svc)
			tags, err := svc.Tags(ctx)
			So(err, ShouldBeNil)
			So(tags, ShouldResemble, []model.Tag{{ID: "t1", Name: "Support"}})
			comps, err := svc.Competitors(ctx)
			So(err, ShouldBeNil)
			So(len(comps), ShouldEqual, 2)
			So(comps[0].ID, ShouldEqual, "a")
		})

		Convey("Then unknown tags are reported by leaderboard and estimate", func() {
			_, err := svc.Leaderboard(ctx, "nope", 5)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = svc.Estimate(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}
