package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/tagrank/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should start empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording competition ids", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the id is new", func() {
				seen := d.SeenAndRecord(ctx, "cmp-1")

				Convey("Then it should return false and record it", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the id was already seen", func() {
				d.SeenAndRecord(ctx, "cmp-1")
				seen := d.SeenAndRecord(ctx, "cmp-1")

				Convey("Then it should return true without growing", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})
		})

		Convey("When unrecording ids", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(4))
			d.SeenAndRecord(ctx, "cmp-1")
			d.SeenAndRecord(ctx, "cmp-2")
			d.Unrecord(ctx, "cmp-1")
			d.Unrecord(ctx, "missing")

			Convey("Then only the known id should be forgotten", func() {
				So(d.Size(), ShouldEqual, 1)
				So(d.SeenAndRecord(ctx, "cmp-1"), ShouldBeFalse)
				So(d.SeenAndRecord(ctx, "cmp-2"), ShouldBeTrue)
			})
		})

		Convey("When the bounded deduper is at capacity", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for _, id := range []string{"cmp-1", "cmp-2", "cmp-3"} {
				So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
			}
			seen := d.SeenAndRecord(ctx, "cmp-4")

			Convey("Then the oldest id should be evicted first", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "cmp-2"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "cmp-3"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "cmp-4"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "cmp-1"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 3)
			})
		})

		Convey("When an unrecorded slot is reused", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))
			d.SeenAndRecord(ctx, "cmp-1")
			d.Unrecord(ctx, "cmp-1")
			d.SeenAndRecord(ctx, "cmp-2")
			d.SeenAndRecord(ctx, "cmp-1")

			Convey("Then the re-recorded id should survive the wrap", func() {
				So(d.Size(), ShouldEqual, 2)
				So(d.SeenAndRecord(ctx, "cmp-1"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "cmp-2"), ShouldBeTrue)
			})
		})

		Convey("When using unbounded mode", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			const n = 1000
			for i := 0; i < n; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("cmp-%d", i)), ShouldBeFalse)
			}

			Convey("Then nothing should be evicted", func() {
				So(d.Size(), ShouldEqual, int64(n))
				So(d.SeenAndRecord(ctx, "cmp-0"), ShouldBeTrue)
				d.Unrecord(ctx, "cmp-0")
				So(d.Size(), ShouldEqual, int64(n-1))
			})
		})
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given a deduper shared by goroutines", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1000))
		const goroutines = 10
		const perGoroutine = 100

		Convey("When they record distinct ids concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					for j := 0; j < perGoroutine; j++ {
						d.SeenAndRecord(context.Background(), fmt.Sprintf("cmp-%d-%d", g, j))
					}
				}(i)
			}
			wg.Wait()

			Convey("Then every id should be remembered", func() {
				So(d.Size(), ShouldEqual, int64(goroutines*perGoroutine))
			})
		})

		Convey("When they race on the same id", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			fresh := 0
			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if !d.SeenAndRecord(context.Background(), "cmp-shared") {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one should record it", func() {
				So(fresh, ShouldEqual, 1)
			})
		})
	})
}
