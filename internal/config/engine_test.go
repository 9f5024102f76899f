package config_test

import (
	"testing"

	"github.com/okian/tagrank/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_Engine(t *testing.T) {
	convey.Convey("Given a config with custom engine values", t, func() {
		cfg := config.New()
		cfg.DefaultRank = 1200
		cfg.InitialUncertainty = 0.3
		cfg.RankDecrement = 0.01
		cfg.MinUncertainty = 0.02
		cfg.FallbackUncertainty = 0.2

		convey.Convey("Then Params carries the update parameters", func() {
			p := cfg.Params()
			convey.So(p.RankDecrement, convey.ShouldEqual, 0.01)
			convey.So(p.MinUncertainty, convey.ShouldEqual, 0.02)
			convey.So(p.FallbackUncertainty, convey.ShouldEqual, 0.2)
		})

		convey.Convey("Then Defaults carries the first-time state", func() {
			d := cfg.Defaults()
			convey.So(d.Rank, convey.ShouldEqual, 1200.0)
			convey.So(d.Uncertainty, convey.ShouldEqual, 0.3)
		})

		convey.Convey("Then a fixed seed is reproducible", func() {
			cfg.Seed = 42
			a, b := cfg.NewRand(), cfg.NewRand()
			for i := 0; i < 5; i++ {
				convey.So(a.Int63(), convey.ShouldEqual, b.Int63())
			}
		})

		convey.Convey("Then a zero seed still yields a source", func() {
			convey.So(cfg.NewRand(), convey.ShouldNotBeNil)
		})
	})
}
