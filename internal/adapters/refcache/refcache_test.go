package refcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bitbucket.org/creachadair/stringset"

	"github.com/okian/growthdesk/internal/domain/dedupe"
	"github.com/okian/growthdesk/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

// cacheRequests reads the reference cache counter for result ("hit" or "miss").
func cacheRequests(result string) float64 {
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		return -1
	}
	for _, mf := range families {
		if mf.GetName() != "growthdesk_dedupe_reference_cache_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "result" && lp.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func countingLoader(calls *int, id string) Loader {
	return func(context.Context) (dedupe.References, error) {
		*calls++
		return dedupe.References{InvitedIDs: stringset.New(id)}, nil
	}
}

func TestCache(t *testing.T) {
	Convey("Given a reference cache with a TTL", t, func() {
		ctx := context.Background()
		cache, err := New(time.Minute)
		So(err, ShouldBeNil)

		calls := 0
		load := countingLoader(&calls, "ann")

		Convey("When the same client is read twice", func() {
			first, err := cache.Get(ctx, "acme", load)
			So(err, ShouldBeNil)
			second, err := cache.Get(ctx, "acme", load)
			So(err, ShouldBeNil)

			Convey("Then the loader runs once", func() {
				So(calls, ShouldEqual, 1)
				So(first.InvitedIDs.Contains("ann"), ShouldBeTrue)
				So(second.InvitedIDs.Contains("ann"), ShouldBeTrue)
			})
		})

		Convey("When clients differ", func() {
			_, _ = cache.Get(ctx, "acme", load)
			_, _ = cache.Get(ctx, "globex", load)

			Convey("Then each is loaded separately", func() {
				So(calls, ShouldEqual, 2)
			})
		})

		Convey("When a client is invalidated", func() {
			_, _ = cache.Get(ctx, "acme", load)
			cache.Invalidate("acme")
			_, _ = cache.Get(ctx, "acme", load)

			Convey("Then the next read reloads", func() {
				So(calls, ShouldEqual, 2)
			})
		})

		Convey("When the loader fails", func() {
			boom := errors.New("boom")
			_, err := cache.Get(ctx, "acme", func(context.Context) (dedupe.References, error) {
				return dedupe.References{}, boom
			})

			Convey("Then the error is returned and nothing is cached", func() {
				So(errors.Is(err, boom), ShouldBeTrue)
				_, err := cache.Get(ctx, "acme", load)
				So(err, ShouldBeNil)
				So(calls, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a cache with caching disabled", t, func() {
		cache, err := New(0)
		So(err, ShouldBeNil)

		calls := 0
		load := countingLoader(&calls, "ann")
		_, _ = cache.Get(context.Background(), "acme", load)
		_, _ = cache.Get(context.Background(), "acme", load)

		Convey("Then every read hits the loader", func() {
			So(calls, ShouldEqual, 2)
		})
	})
}

func TestCacheAccounting(t *testing.T) {
	Convey("Given two readers that arrive while a load is running", t, func() {
		ctx := context.Background()
		cache, err := New(time.Minute)
		So(err, ShouldBeNil)

		hits, misses := cacheRequests("hit"), cacheRequests("miss")

		var calls atomic.Int32
		started := make(chan struct{})
		release := make(chan struct{})
		load := func(context.Context) (dedupe.References, error) {
			if calls.Add(1) == 1 {
				close(started)
			}
			<-release
			return dedupe.References{InvitedIDs: stringset.New("ann")}, nil
		}

		var wg sync.WaitGroup
		results := make([]dedupe.References, 2)
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[0], _ = cache.Get(ctx, "acme", load)
		}()
		<-started
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[1], _ = cache.Get(ctx, "acme", load)
		}()
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		Convey("Then the loader runs once and both readers count as misses", func() {
			So(calls.Load(), ShouldEqual, int32(1))
			So(results[1].InvitedIDs.Contains("ann"), ShouldBeTrue)
			So(cacheRequests("miss")-misses, ShouldEqual, 2)
			So(cacheRequests("hit")-hits, ShouldEqual, 0)
		})

		Convey("And a later reader counts as a hit", func() {
			_, err := cache.Get(ctx, "acme", load)
			So(err, ShouldBeNil)
			So(cacheRequests("hit")-hits, ShouldEqual, 1)
			So(calls.Load(), ShouldEqual, int32(1))
		})
	})
}
