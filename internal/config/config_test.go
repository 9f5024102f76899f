package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/tagrank/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config", t, func() {
		cfg := config.New()

		convey.Convey("Then it has the documented defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.DBPath, convey.ShouldBeEmpty)
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 100)
			convey.So(cfg.Seed, convey.ShouldEqual, int64(0))
			convey.So(cfg.AutoplaySchedule, convey.ShouldBeEmpty)
			convey.So(cfg.DefaultRank, convey.ShouldEqual, 1500.0)
			convey.So(cfg.InitialUncertainty, convey.ShouldEqual, 0.15)
			convey.So(cfg.FallbackUncertainty, convey.ShouldEqual, 0.10)
			convey.So(cfg.RankDecrement, convey.ShouldEqual, 0.002)
			convey.So(cfg.MinUncertainty, convey.ShouldEqual, 0.05)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one bad field", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":             func(c *config.Config) { c.Addr = "" },
			"zero default rank":      func(c *config.Config) { c.DefaultRank = 0 },
			"initial uncertainty 0":  func(c *config.Config) { c.InitialUncertainty = 0 },
			"initial uncertainty >1": func(c *config.Config) { c.InitialUncertainty = 1.5 },
			"fallback uncertainty 0": func(c *config.Config) { c.FallbackUncertainty = 0 },
			"negative decrement":     func(c *config.Config) { c.RankDecrement = -0.1 },
			"min uncertainty >1":     func(c *config.Config) { c.MinUncertainty = 2 },
		}

		convey.Convey("Then each is rejected with ErrInvalidConfig", func() {
			for _, mutate := range cases {
				cfg := config.New()
				mutate(cfg)
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldNotBeEmpty)
			}
		})

		convey.Convey("Then boundary values are accepted", func() {
			cfg := config.New()
			cfg.RankDecrement = 0
			cfg.InitialUncertainty = 1
			cfg.MinUncertainty = 1
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
