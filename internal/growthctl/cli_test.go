package growthctl_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/growthdesk/internal/adapters/http/api"
	service "github.com/okian/growthdesk/internal/app"
	"github.com/okian/growthdesk/internal/domain/types"
	"github.com/okian/growthdesk/internal/growthctl"
	. "github.com/smartystreets/goconvey/convey"
)

var fixedNow = time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)

// newServer runs a real service behind an httptest server.
func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newWrappedServer(t, func(h http.Handler) http.Handler { return h })
}

// newWrappedServer is newServer with wrap applied around the API routes.
func newWrappedServer(t *testing.T, wrap func(http.Handler) http.Handler) *httptest.Server {
	t.Helper()
	svc := service.New(
		service.WithDatabasePath(filepath.Join(t.TempDir(), "ctl.db")),
		service.WithClock(func() time.Time { return fixedNow }),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	srv := httptest.NewServer(wrap(mux))
	t.Cleanup(func() {
		srv.Close()
		svc.Stop()
	})
	return srv
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func run(srv *httptest.Server, args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	root := growthctl.NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--url", srv.URL, "--timeout", "5s"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

const invited = `[
  {"name": "Ann", "profile_url": "https://www.linkedin.com/in/ann"},
  {"name": "Ben", "profile_url": "https://www.linkedin.com/in/ben"}
]`

const candidates = `[
  {"name": "Ann", "profile_url": "https://nl.linkedin.com/in/ann/"},
  {"name": "Cas", "profile_url": "https://www.linkedin.com/in/cas", "attributes": {"source": "sheet"}}
]`

func TestCommands(t *testing.T) {
	Convey("Given a running server", t, func() {
		srv := newServer(t)
		invitedFile := writeFile(t, "invited.json", invited)
		candidatesFile := writeFile(t, "candidates.json", candidates)

		out, _, err := run(srv, "log-invites", "--client", "acme", "--category", "CTOs",
			"--date", "2024-03-01", "--list-url", "https://example.com/list", "--file", invitedFile)
		So(err, ShouldBeNil)
		So(out, ShouldContainSubstring, `acme, 2 profiles, "CTOs", 2024-03-01, https://example.com/list`)

		Convey("When filtering candidates", func() {
			out, stderr, err := run(srv, "filter", "--client", "acme", "--file", candidatesFile)

			Convey("Then invited people are removed", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, `"reason": "invited"`)
				So(out, ShouldContainSubstring, `"name": "Cas"`)
				So(stderr, ShouldContainSubstring, "2 in, 1 kept (1 invited, 0 connected, 0 by name)")
			})
		})

		Convey("When exporting the clean list to a file", func() {
			dest := filepath.Join(t.TempDir(), "clean.csv")
			_, _, err := run(srv, "filter", "--client", "acme", "--file", candidatesFile, "--part", "clean", "--out", dest)
			So(err, ShouldBeNil)

			data, err := os.ReadFile(dest)
			So(err, ShouldBeNil)
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			So(lines, ShouldHaveLength, 2)
			So(lines[0], ShouldEqual, "name,profile_url,title,organization,location,followers,source")
			So(lines[1], ShouldStartWith, "Cas,")
		})

		Convey("When listing recent invites", func() {
			out, _, err := run(srv, "recent", "--limit", "5")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "DATE")
			So(out, ShouldContainSubstring, "2024-03-01")
			So(out, ShouldContainSubstring, "Ben")
		})

		Convey("When showing the overview", func() {
			out, _, err := run(srv, "overview")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "total invites")
			So(out, ShouldContainSubstring, "acme (2)")
		})

		Convey("When listing clients", func() {
			out, _, err := run(srv, "clients")
			So(err, ShouldBeNil)
			So(strings.TrimSpace(out), ShouldEqual, "acme")
		})

		Convey("When the server rejects the request", func() {
			_, _, err := run(srv, "filter", "--client", " ", "--file", candidatesFile)

			Convey("Then the status error is returned", func() {
				var serr *growthctl.StatusError
				So(errors.As(err, &serr), ShouldBeTrue)
				So(serr.Status, ShouldEqual, http.StatusBadRequest)
				So(errors.Is(err, growthctl.ErrStatus), ShouldBeTrue)
			})
		})

		Convey("When the same batch ID is logged twice", func() {
			args := []string{"log-invites", "--client", "globex", "--file", invitedFile,
				"--batch-id", "3b241101-e2bb-4255-8caf-4136c566a962"}
			_, _, err := run(srv, args...)
			So(err, ShouldBeNil)
			out, _, err := run(srv, args...)

			Convey("Then the second run reports the batch as already logged", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "already logged")
				ov, err := growthctl.NewClient(srv.URL, time.Second).Overview(context.Background())
				So(err, ShouldBeNil)
				So(ov.TotalInvites, ShouldEqual, 4)
			})
		})

		Convey("When managing saved searches", func() {
			body, err := json.Marshal(types.SavedSearchRequest{
				Name:  "ctos",
				Query: types.EngagementQuery{Client: "acme", Categories: []string{"CTOs"}},
			})
			So(err, ShouldBeNil)
			resp, err := http.Post(srv.URL+"/engagement/searches", "application/json", bytes.NewReader(body))
			So(err, ShouldBeNil)
			var saved types.SavedSearch
			So(json.NewDecoder(resp.Body).Decode(&saved), ShouldBeNil)
			_ = resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)

			out, _, err := run(srv, "searches", "--client", "acme")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "ctos")
			So(out, ShouldContainSubstring, "CTOs")

			out, _, err = run(srv, "searches", "--delete", strconv.FormatInt(saved.ID, 10))
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "deleted search")

			_, _, err = run(srv, "searches", "--delete", strconv.FormatInt(saved.ID, 10))
			var serr *growthctl.StatusError
			So(errors.As(err, &serr), ShouldBeTrue)
			So(serr.Status, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the profile file is missing", func() {
			_, _, err := run(srv, "filter", "--client", "acme", "--file", filepath.Join(t.TempDir(), "nope.json"))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "open profiles")
		})
	})
}

func TestClientRetries(t *testing.T) {
	Convey("Given a server that is briefly unavailable", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`["acme"]`))
		}))
		defer srv.Close()

		Convey("When listing clients", func() {
			clients, err := growthctl.NewClient(srv.URL, time.Second).Clients(context.Background())

			Convey("Then the request is retried", func() {
				So(err, ShouldBeNil)
				So(clients, ShouldResemble, []string{"acme"})
				So(calls.Load(), ShouldEqual, int32(2))
			})
		})
	})

	Convey("Given a server that rejects input", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"bad_request","message":"client is required"}`))
		}))
		defer srv.Close()

		Convey("When listing clients", func() {
			_, err := growthctl.NewClient(srv.URL, time.Second).Clients(context.Background())

			Convey("Then it fails once with the server message", func() {
				var serr *growthctl.StatusError
				So(errors.As(err, &serr), ShouldBeTrue)
				So(serr.Code, ShouldEqual, "bad_request")
				So(serr.Message, ShouldEqual, "client is required")
				So(calls.Load(), ShouldEqual, int32(1))
			})
		})
	})
}

// dropResponse serves the request but closes the connection instead of
// replying, the way a proxy timeout or network cut loses a response.
func dropResponse(t *testing.T, h http.Handler, w http.ResponseWriter, r *http.Request) {
	t.Helper()
	h.ServeHTTP(httptest.NewRecorder(), r)
	hj, ok := w.(http.Hijacker)
	if !ok {
		t.Errorf("response writer cannot be hijacked")
		return
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		t.Errorf("hijack: %v", err)
		return
	}
	_ = conn.Close()
}

func TestClientLostResponses(t *testing.T) {
	Convey("Given a server that stores the first invite batch but loses its response", t, func() {
		var posts atomic.Int32
		srv := newWrappedServer(t, func(h http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodPost && r.URL.Path == "/invites" && posts.Add(1) == 1 {
					dropResponse(t, h, w, r)
					return
				}
				h.ServeHTTP(w, r)
			})
		})
		c := growthctl.NewClient(srv.URL, 5*time.Second)

		Convey("When logging the batch", func() {
			receipt, err := c.LogInvites(context.Background(), types.InviteRequest{
				Client:   "acme",
				Profiles: []types.Profile{{Name: "Ann"}, {Name: "Ben"}},
			})

			Convey("Then the resend is acknowledged and the rows are stored once", func() {
				So(err, ShouldBeNil)
				So(posts.Load(), ShouldEqual, int32(2))
				So(receipt.Replayed, ShouldBeTrue)
				So(receipt.Count, ShouldEqual, 2)

				ov, err := c.Overview(context.Background())
				So(err, ShouldBeNil)
				So(ov.TotalInvites, ShouldEqual, 2)
			})
		})
	})

	Convey("Given a server that loses every delete response", t, func() {
		var deletes atomic.Int32
		srv := newWrappedServer(t, func(h http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodDelete {
					deletes.Add(1)
					dropResponse(t, h, w, r)
					return
				}
				h.ServeHTTP(w, r)
			})
		})

		Convey("When deleting a search", func() {
			err := growthctl.NewClient(srv.URL, 5*time.Second).DeleteSearch(context.Background(), 1)

			Convey("Then the request is sent once and the failure returned", func() {
				So(err, ShouldNotBeNil)
				So(deletes.Load(), ShouldEqual, int32(1))
			})
		})
	})
}
