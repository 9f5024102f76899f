package model_test

import (
	"errors"
	"testing"

	model "github.com/okian/tagrank/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestValidate(t *testing.T) {
	convey.Convey("Given competitor-shaped mappings", t, func() {
		convey.Convey("When the mapping has an id and a positive rank", func() {
			err := model.Validate(map[string]any{"id": "c1", "rank": 1500.0})

			convey.Convey("Then it should be valid", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the value is not a mapping", func() {
			err := model.Validate([]string{"c1"})

			convey.Convey("Then it should report an invalid shape", func() {
				convey.So(errors.Is(err, model.ErrInvalidShape), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the id is missing", func() {
			err := model.Validate(map[string]any{"rank": 1500.0})

			convey.Convey("Then it should report an invalid shape", func() {
				convey.So(errors.Is(err, model.ErrInvalidShape), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the id is empty", func() {
			err := model.Validate(map[string]any{"id": "  ", "rank": 1500.0})

			convey.Convey("Then it should report an invalid shape", func() {
				convey.So(errors.Is(err, model.ErrInvalidShape), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the rank is missing", func() {
			err := model.Validate(map[string]any{"id": 7})

			convey.Convey("Then it should report a missing field", func() {
				convey.So(errors.Is(err, model.ErrMissingField), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the rank is zero or negative", func() {
			zero := model.Validate(map[string]any{"id": 7, "rank": 0})
			negative := model.Validate(map[string]any{"id": 7, "rank": -12.5})

			convey.Convey("Then both should report an invalid value", func() {
				convey.So(errors.Is(zero, model.ErrInvalidValue), convey.ShouldBeTrue)
				convey.So(errors.Is(negative, model.ErrInvalidValue), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the rank is not numeric", func() {
			err := model.Validate(map[string]any{"id": 7, "rank": "high"})

			convey.Convey("Then it should report an invalid value", func() {
				convey.So(errors.Is(err, model.ErrInvalidValue), convey.ShouldBeTrue)
			})
		})
	})
}

func TestRatingRecordMapping(t *testing.T) {
	convey.Convey("Given a rating record", t, func() {
		rec := model.RatingRecord{TagID: "t1", CompetitorID: "c1", Rank: 1620.5, Uncertainty: 0.12}

		convey.Convey("When converting it to a mapping and back", func() {
			m := rec.ToMap()
			back, err := model.RatingRecordFromMap(m)

			convey.Convey("Then the store field names should be used", func() {
				convey.So(m, convey.ShouldContainKey, "tag_id")
				convey.So(m, convey.ShouldContainKey, "competitor_id")
				convey.So(m, convey.ShouldContainKey, "rank")
				convey.So(m, convey.ShouldContainKey, "uncertainty")
			})

			convey.Convey("And the record should survive the trip", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(back, convey.ShouldResemble, rec)
			})
		})

		convey.Convey("When the record has no uncertainty", func() {
			rec.Uncertainty = 0

			convey.Convey("Then the mapping should omit it", func() {
				convey.So(rec.ToMap(), convey.ShouldNotContainKey, "uncertainty")
			})
		})
	})

	convey.Convey("Given store rows with unusable uncertainty", t, func() {
		rows := []map[string]any{
			{"tag_id": "t1", "competitor_id": "c1", "rank": 1400.0, "uncertainty": nil},
			{"tag_id": "t1", "competitor_id": "c1", "rank": 1400.0, "uncertainty": "null"},
			{"tag_id": "t1", "competitor_id": "c1", "rank": 1400.0, "uncertainty": -0.2},
			{"tag_id": "t1", "competitor_id": "c1", "rank": 1400.0},
		}

		convey.Convey("Then each should be read as a rank-only record", func() {
			for _, row := range rows {
				rec, err := model.RatingRecordFromMap(row)
				convey.So(err, convey.ShouldBeNil)
				convey.So(rec.HasUncertainty(), convey.ShouldBeFalse)
				convey.So(rec.Rank, convey.ShouldEqual, 1400.0)
			}
		})
	})

	convey.Convey("Given malformed store rows", t, func() {
		convey.Convey("When the rank is missing", func() {
			_, err := model.RatingRecordFromMap(map[string]any{"tag_id": "t1", "competitor_id": "c1"})
			convey.So(errors.Is(err, model.ErrMissingField), convey.ShouldBeTrue)
		})

		convey.Convey("When the competitor id is missing", func() {
			_, err := model.RatingRecordFromMap(map[string]any{"tag_id": "t1", "rank": 1.0})
			convey.So(errors.Is(err, model.ErrInvalidShape), convey.ShouldBeTrue)
		})
	})
}

func TestTagAndCompetitorMapping(t *testing.T) {
	convey.Convey("Given tag and competitor mappings", t, func() {
		convey.Convey("When the ids are numeric", func() {
			tag, tagErr := model.TagFromMap(map[string]any{"id": 3, "name": "Tank"})
			comp, compErr := model.CompetitorFromMap(map[string]any{"id": int64(42), "name": "Garen"})

			convey.Convey("Then they should be normalised to strings", func() {
				convey.So(tagErr, convey.ShouldBeNil)
				convey.So(compErr, convey.ShouldBeNil)
				convey.So(tag, convey.ShouldResemble, model.Tag{ID: "3", Name: "Tank"})
				convey.So(comp.ID, convey.ShouldEqual, "42")
				convey.So(comp.Name, convey.ShouldEqual, "Garen")
			})
		})

		convey.Convey("When a competitor carries a rating", func() {
			c := model.Competitor{ID: "c1", Name: "Annie", Rank: 1500, Uncertainty: 0.15}
			m := c.ToMap()

			convey.Convey("Then rank and uncertainty should be included", func() {
				convey.So(m["rank"], convey.ShouldEqual, 1500.0)
				convey.So(m["uncertainty"], convey.ShouldEqual, 0.15)
			})
		})

		convey.Convey("When a competitor has a non-positive rank", func() {
			_, err := model.CompetitorFromMap(map[string]any{"id": "c1", "rank": 0})
			convey.So(errors.Is(err, model.ErrInvalidValue), convey.ShouldBeTrue)
		})

		convey.Convey("When a tag id is zero", func() {
			_, err := model.TagFromMap(map[string]any{"id": 0})
			convey.So(errors.Is(err, model.ErrInvalidShape), convey.ShouldBeTrue)
		})
	})
}

func TestResultLoser(t *testing.T) {
	convey.Convey("Given an applied result", t, func() {
		res := model.Result{
			A:        model.RatingRecord{CompetitorID: "a"},
			B:        model.RatingRecord{CompetitorID: "b"},
			WinnerID: "b",
		}

		convey.Convey("Then the loser should be the other competitor", func() {
			convey.So(res.LoserID(), convey.ShouldEqual, "a")
		})
	})
}
