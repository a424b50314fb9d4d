package profileid_test

import (
	"testing"

	"github.com/okian/growthdesk/internal/domain/profileid"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFromURL(t *testing.T) {
	Convey("Given profile URLs in different shapes", t, func() {
		tests := []struct {
			url    string
			want   string
			wantOK bool
		}{
			{"https://www.linkedin.com/in/wilbertstaring/", "wilbertstaring", true},
			{"https://linkedin.com/in/wilbertstaring", "wilbertstaring", true},
			{"www.linkedin.com/in/wilbertstaring", "wilbertstaring", true},
			{"http://nl.linkedin.com/in/WilbertStaring", "wilbertstaring", true},
			{"https://LINKEDIN.COM/IN/JaneDoe/", "janedoe", true},
			{"https://www.linkedin.com/in/jane-doe-123?utm_source=share", "jane-doe-123", true},
			{"https://www.linkedin.com/in/jane-doe-123#about", "jane-doe-123", true},
			{"https://www.linkedin.com/in/jane/recent-activity/all/", "jane", true},
			{"  https://www.linkedin.com/in/jane  ", "jane", true},
			{"https://www.linkedin.com/in/j%C3%BCrgen", "jürgen", true},
			{"https://www.linkedin.com/in/ janedoe", "janedoe", true},
			{"https://www.linkedin.com/in/jane doe/", "jane doe", true},
			{"https://www.linkedin.com/in/   /", "", false},
			{"https://www.linkedin.com/company/acme", "", false},
			{"https://www.linkedin.com/in/", "", false},
			{"https://example.com/in/jane", "", false},
			{"not a url", "", false},
			{"", "", false},
		}

		Convey("Then each one normalizes to the expected identifier", func() {
			for _, tt := range tests {
				got, ok := profileid.FromURL(tt.url)
				So(ok, ShouldEqual, tt.wantOK)
				So(got, ShouldEqual, tt.want)
			}
		})
	})

	Convey("Given two spellings of the same profile", t, func() {
		a := "https://www.linkedin.com/in/JaneDoe/"
		b := "linkedin.com/in/janedoe"

		Convey("Then they normalize to the same identifier", func() {
			ida, _ := profileid.FromURL(a)
			idb, _ := profileid.FromURL(b)
			So(ida, ShouldEqual, idb)
		})
	})
}

func TestDerivedURLs(t *testing.T) {
	Convey("Given a profile URL", t, func() {
		u := "https://nl.linkedin.com/in/JaneDoe?trk=x"

		Convey("Then the posts URL points at recent activity", func() {
			So(profileid.PostsURL(u), ShouldEqual, "https://www.linkedin.com/in/janedoe/recent-activity/all/")
		})

		Convey("And URLs without an identifier have no posts URL", func() {
			So(profileid.PostsURL(""), ShouldEqual, "")
			So(profileid.PostsURL("https://example.com"), ShouldEqual, "")
		})
	})
}
