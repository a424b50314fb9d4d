package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	service "github.com/okian/growthdesk/internal/app"
	"github.com/okian/growthdesk/internal/domain/model"
	"github.com/okian/growthdesk/internal/domain/types"
	"github.com/okian/growthdesk/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var fixedNow = time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)

func newService(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	base := []service.Option{
		service.WithDatabasePath(filepath.Join(t.TempDir(), "svc.db")),
		service.WithClock(func() time.Time { return fixedNow }),
	}
	return service.New(append(base, opts...)...)
}

func TestService_Start(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := newService(t)
		// Ensure service is stopped after test
		defer svc.Stop()

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And it should be marked as started", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["totalInvites"], ShouldEqual, 0)
			})
		})

		Convey("When the service is used before starting", func() {
			_, err := svc.Clients(context.Background())

			Convey("Then it reports that it is not started", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})
}

func TestService_Stop(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := newService(t)
		So(svc.Start(context.Background()), ShouldBeNil)

		Convey("When stopping the service", func() {
			svc.Stop()
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_LogInvites(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newService(t)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When logging a batch without a date", func() {
			receipt, err := svc.LogInvites(ctx, types.InviteRequest{
				Client:        " acme ",
				Category:      "CTOs NL",
				GrowthListURL: "https://example.com/list",
				Profiles:      []types.Profile{{Name: "Ann"}, {Name: "Ben"}},
			})

			Convey("Then it is stamped with today and summarized", func() {
				So(err, ShouldBeNil)
				So(receipt.Count, ShouldEqual, 2)
				So(receipt.BatchID, ShouldNotBeEmpty)
				So(receipt.Summary, ShouldEqual, `acme, 2 profiles, "CTOs NL", 2024-03-05, https://example.com/list`)

				recent, err := svc.RecentInvites(ctx, 0)
				So(err, ShouldBeNil)
				So(recent, ShouldHaveLength, 2)
				So(recent[0].DateCollected, ShouldEqual, "2024-03-05")
				So(recent[0].BatchID, ShouldEqual, receipt.BatchID)
			})
		})

		Convey("When the request is incomplete", func() {
			_, errClient := svc.LogInvites(ctx, types.InviteRequest{Profiles: []types.Profile{{Name: "Ann"}}})
			_, errEmpty := svc.LogInvites(ctx, types.InviteRequest{Client: "acme"})
			_, errDate := svc.LogInvites(ctx, types.InviteRequest{
				Client: "acme", DateCollected: "05/03/2024", Profiles: []types.Profile{{Name: "Ann"}},
			})

			_, errBatch := svc.LogInvites(ctx, types.InviteRequest{
				BatchID: "batch-1", Client: "acme", Profiles: []types.Profile{{Name: "Ann"}},
			})

			Convey("Then each problem is reported", func() {
				So(errors.Is(errClient, service.ErrMissingClient), ShouldBeTrue)
				So(errors.Is(errEmpty, service.ErrEmptyBatch), ShouldBeTrue)
				So(errors.Is(errDate, service.ErrInvalidDate), ShouldBeTrue)
				So(errors.Is(errBatch, service.ErrInvalidBatchID), ShouldBeTrue)
			})
		})

		Convey("When a batch is resent with the same batch ID", func() {
			req := types.InviteRequest{
				BatchID:  "6F9619FF-8B86-D011-B42D-00CF4FC964FF",
				Client:   "acme",
				Profiles: []types.Profile{{Name: "Ann"}, {Name: "Ben"}},
			}
			first, err := svc.LogInvites(ctx, req)
			So(err, ShouldBeNil)
			second, err := svc.LogInvites(ctx, req)

			Convey("Then the second call is acknowledged without new rows", func() {
				So(err, ShouldBeNil)
				So(first.BatchID, ShouldEqual, "6f9619ff-8b86-d011-b42d-00cf4fc964ff")
				So(first.Replayed, ShouldBeFalse)
				So(second.BatchID, ShouldEqual, first.BatchID)
				So(second.Count, ShouldEqual, 2)
				So(second.Replayed, ShouldBeTrue)

				ov, err := svc.Overview(ctx)
				So(err, ShouldBeNil)
				So(ov.TotalInvites, ShouldEqual, 2)
			})
		})
	})
}

func TestService_DefaultDateIsUTC(t *testing.T) {
	Convey("Given a clock in a zone already on the next day", t, func() {
		ctx := context.Background()
		zone := time.FixedZone("UTC+3", 3*60*60)
		// 22:30 UTC on March 5 is 01:30 on March 6 in this zone
		now := time.Date(2024, 3, 6, 1, 30, 0, 0, zone)
		svc := newService(t, service.WithClock(func() time.Time { return now }))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When logging a batch without a date", func() {
			_, err := svc.LogInvites(ctx, types.InviteRequest{Client: "acme", Profiles: []types.Profile{{Name: "Ann"}}})
			So(err, ShouldBeNil)

			Convey("Then the collection date is the UTC day and counts as today", func() {
				recent, err := svc.RecentInvites(ctx, 1)
				So(err, ShouldBeNil)
				So(recent[0].DateCollected, ShouldEqual, "2024-03-05")

				ov, err := svc.Overview(ctx)
				So(err, ShouldBeNil)
				So(ov.TodayInvites, ShouldEqual, 1)
			})
		})
	})
}

func TestService_SavedSearches(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newService(t)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When saving a search", func() {
			saved, err := svc.SaveSearch(ctx, types.SavedSearchRequest{
				Name: " senior ",
				Query: types.EngagementQuery{
					Client:       " acme ",
					Categories:   []string{"CTOs NL", " "},
					TitleInclude: []string{"cto, vp"},
					MinFollowers: 100,
					InvitedFrom:  "2024-01-01",
				},
			})

			Convey("Then it is returned normalized and listed for the client", func() {
				So(err, ShouldBeNil)
				So(saved.ID, ShouldBeGreaterThan, 0)
				So(saved.Name, ShouldEqual, "senior")
				So(saved.CreatedAt.Equal(fixedNow), ShouldBeTrue)
				So(saved.Query, ShouldResemble, types.EngagementQuery{
					Client:       "acme",
					Categories:   []string{"CTOs NL"},
					TitleInclude: []string{"cto", "vp"},
					MinFollowers: 100,
					InvitedFrom:  "2024-01-01",
				})

				list, err := svc.SavedSearches(ctx, "acme")
				So(err, ShouldBeNil)
				So(list, ShouldHaveLength, 1)
				So(list[0].ID, ShouldEqual, saved.ID)
				So(list[0].Query, ShouldResemble, saved.Query)
			})

			Convey("And deleting it twice reports the second as not found", func() {
				So(svc.DeleteSearch(ctx, saved.ID), ShouldBeNil)
				So(errors.Is(svc.DeleteSearch(ctx, saved.ID), service.ErrSearchNotFound), ShouldBeTrue)
			})
		})

		Convey("When the request is incomplete", func() {
			_, errName := svc.SaveSearch(ctx, types.SavedSearchRequest{Query: types.EngagementQuery{Client: "acme"}})
			_, errClient := svc.SaveSearch(ctx, types.SavedSearchRequest{Name: "x"})
			_, errDate := svc.SaveSearch(ctx, types.SavedSearchRequest{
				Name: "x", Query: types.EngagementQuery{Client: "acme", ConnectedTo: "yesterday"},
			})

			Convey("Then each problem is reported", func() {
				So(errors.Is(errName, service.ErrMissingName), ShouldBeTrue)
				So(errors.Is(errClient, service.ErrMissingClient), ShouldBeTrue)
				So(errors.Is(errDate, service.ErrInvalidDate), ShouldBeTrue)
			})
		})
	})
}

func TestService_RecentInvites(t *testing.T) {
	Convey("Given a service with small limits", t, func() {
		ctx := context.Background()
		svc := newService(t, service.WithRecentLimits(2, 3))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		profiles := make([]types.Profile, 5)
		for i := range profiles {
			profiles[i] = types.Profile{Name: string(rune('a' + i))}
		}
		_, err := svc.LogInvites(ctx, types.InviteRequest{Client: "acme", Profiles: profiles})
		So(err, ShouldBeNil)

		Convey("Then the default and maximum limits apply", func() {
			def, err := svc.RecentInvites(ctx, 0)
			So(err, ShouldBeNil)
			So(def, ShouldHaveLength, 2)

			clamped, err := svc.RecentInvites(ctx, 100)
			So(err, ShouldBeNil)
			So(clamped, ShouldHaveLength, 3)

			_, err = svc.RecentInvites(ctx, -1)
			So(errors.Is(err, service.ErrInvalidLimit), ShouldBeTrue)
		})
	})
}

func TestService_FilterCandidates(t *testing.T) {
	Convey("Given a service with a small candidate cap", t, func() {
		ctx := context.Background()
		svc := newService(t, service.WithMaxCandidates(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When no client is given", func() {
			_, err := svc.FilterCandidates(ctx, "", nil)
			So(errors.Is(err, service.ErrMissingClient), ShouldBeTrue)
		})

		Convey("When too many candidates are sent", func() {
			_, err := svc.FilterCandidates(ctx, "acme", make([]model.Profile, 3))
			So(errors.Is(err, service.ErrTooManyCandidates), ShouldBeTrue)
		})

		Convey("When the client has no history", func() {
			candidates := []model.Profile{{Name: "Ann"}, {Name: "Ben", ProfileURL: "linkedin.com/in/ben"}}
			res, err := svc.FilterCandidates(ctx, "acme", candidates)

			Convey("Then everyone survives", func() {
				So(err, ShouldBeNil)
				So(res.Clean, ShouldResemble, candidates)
				So(res.Stats.Unidentified, ShouldEqual, 1)
			})
		})
	})
}

func TestService_Summary(t *testing.T) {
	Convey("Given an invite batch description", t, func() {
		got := service.Summary("acme", 3, "Founders", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "https://list")
		So(got, ShouldEqual, `acme, 3 profiles, "Founders", 2024-01-02, https://list`)
	})
}

func TestService_GetStats(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := newService(t, service.WithNameFallback(false), service.WithReferenceTTL(0))

		Convey("When getting stats before starting", func() {
			stats := svc.GetStats()

			Convey("Then it should return basic stats", func() {
				So(stats, ShouldNotBeNil)
				So(stats["started"], ShouldEqual, false)
				So(stats["nameFallback"], ShouldEqual, false)
				So(stats["referenceTTLMs"], ShouldEqual, int64(0))
				So(stats, ShouldNotContainKey, "storeReachable")
			})
		})

		Convey("When getting stats after starting", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			defer svc.Stop()
			stats := svc.GetStats()

			Convey("Then the store is reported reachable", func() {
				So(stats["storeReachable"], ShouldEqual, true)
			})
		})
	})
}
