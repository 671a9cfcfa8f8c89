package musicbrainz

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/medley-app/medley/internal/catalog/ratelimit"
	"github.com/medley-app/medley/internal/config"
)

func newTestClient(server *httptest.Server, includeEPs, includeSingles bool) *Client {
	cfg := config.MusicBrainzConfig{
		BaseURL:   server.URL,
		Timeout:   5,
		UserAgent: "medley-test/1.0",
	}
	c := NewClient(cfg, includeEPs, includeSingles, zerolog.Nop())
	// The real interval is at least 1.5s; tests should not wait for it.
	c.pacer = ratelimit.NewInterval(time.Microsecond)
	return c
}

func TestRequestInterval_EnforcesFloor(t *testing.T) {
	tests := []struct {
		intervalMS int
		want       time.Duration
	}{
		{0, 1500 * time.Millisecond},
		{1000, 1500 * time.Millisecond},
		{1500, 1500 * time.Millisecond},
		{2000, 2 * time.Second},
	}
	for _, tt := range tests {
		got := requestInterval(config.MusicBrainzConfig{IntervalMS: tt.intervalMS})
		if got != tt.want {
			t.Errorf("requestInterval(%d) = %v, want %v", tt.intervalMS, got, tt.want)
		}
	}
}

func TestWanted_FiltersDiscography(t *testing.T) {
	tests := []struct {
		name           string
		rg             ReleaseGroup
		includeEPs     bool
		includeSingles bool
		want           bool
	}{
		{"studio album", ReleaseGroup{PrimaryType: "Album"}, false, false, true},
		{"live album excluded", ReleaseGroup{PrimaryType: "Album", SecondaryTypes: []string{"Live"}}, false, false, false},
		{"compilation excluded", ReleaseGroup{PrimaryType: "Album", SecondaryTypes: []string{"Compilation"}}, true, true, false},
		{"ep excluded by default", ReleaseGroup{PrimaryType: "EP"}, false, false, false},
		{"ep included when configured", ReleaseGroup{PrimaryType: "EP"}, true, false, true},
		{"single included when configured", ReleaseGroup{PrimaryType: "Single"}, false, true, true},
		{"untyped excluded", ReleaseGroup{}, true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{includeEPs: tt.includeEPs, includeSingles: tt.includeSingles}
			if got := c.wanted(tt.rg); got != tt.want {
				t.Errorf("wanted(%+v) = %v, want %v", tt.rg, got, tt.want)
			}
		})
	}
}

func TestCanonicalRelease_PrefersEarliestOfficial(t *testing.T) {
	releases := []Release{
		{ID: "promo", Status: "Promotion", Date: "1972-01-01", Media: []Medium{{Tracks: []Track{{Position: 1}}}}},
		{ID: "reissue", Status: "Official", Date: "1994-05-01", Media: []Medium{{Tracks: []Track{{Position: 1}}}}},
		{ID: "original", Status: "Official", Date: "1973-03-01", Media: []Medium{{Tracks: []Track{{Position: 1}}}}},
	}

	if got := canonicalRelease(releases); got.ID != "original" {
		t.Errorf("canonicalRelease picked %q, want original", got.ID)
	}
}

func TestParseFlexibleDate(t *testing.T) {
	tests := []struct {
		in     string
		isZero bool
		year   int
	}{
		{"1973-03-01", false, 1973},
		{"1973-03", false, 1973},
		{"1973", false, 1973},
		{"", true, 0},
		{"soon", true, 0},
	}

	for _, tt := range tests {
		got := parseFlexibleDate(tt.in)
		if got.IsZero() != tt.isZero {
			t.Errorf("parseFlexibleDate(%q).IsZero() = %v, want %v", tt.in, got.IsZero(), tt.isZero)
		}
		if !tt.isZero && got.Year() != tt.year {
			t.Errorf("parseFlexibleDate(%q).Year() = %d, want %d", tt.in, got.Year(), tt.year)
		}
	}
}

func TestArtistReleaseGroups_PagesAndFilters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "medley-test/1.0" {
			t.Error("missing User-Agent header")
		}
		offset := r.URL.Query().Get("offset")
		if offset == "0" {
			json.NewEncoder(w).Encode(BrowseReleaseGroupsResponse{
				Count: 3,
				ReleaseGroups: []ReleaseGroup{
					{ID: "a", Title: "First", PrimaryType: "Album", FirstReleaseDate: "1990"},
					{ID: "b", Title: "Live One", PrimaryType: "Album", SecondaryTypes: []string{"Live"}},
				},
			})
			return
		}
		json.NewEncoder(w).Encode(BrowseReleaseGroupsResponse{
			Count:  3,
			Offset: 2,
			ReleaseGroups: []ReleaseGroup{
				{ID: "c", Title: "Second", PrimaryType: "Album", FirstReleaseDate: "1993-05"},
			},
		})
	}))
	defer server.Close()

	groups, err := newTestClient(server, false, false).ArtistReleaseGroups(context.Background(), "some-mbid")
	if err != nil {
		t.Fatalf("ArtistReleaseGroups: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2 (live filtered)", len(groups))
	}
	if groups[0].MBID != "a" || groups[1].MBID != "c" {
		t.Errorf("unexpected groups: %+v", groups)
	}
}

func TestReleaseGroupTracks_FlattensMedia(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(BrowseReleasesResponse{
			Count: 1,
			Releases: []Release{{
				ID:     "rel",
				Status: "Official",
				Date:   "1979-11-30",
				Media: []Medium{
					{Position: 1, Tracks: []Track{{Position: 1, Title: "In the Flesh?"}, {Position: 2, Title: "The Thin Ice"}}},
					{Position: 2, Tracks: []Track{{Position: 1, Title: "Hey You"}}},
				},
			}},
		})
	}))
	defer server.Close()

	tracks, err := newTestClient(server, false, false).ReleaseGroupTracks(context.Background(), "rg-mbid")
	if err != nil {
		t.Fatalf("ReleaseGroupTracks: %v", err)
	}
	if len(tracks) != 3 {
		t.Fatalf("got %d tracks, want 3", len(tracks))
	}
	// Numbering continues across discs.
	if tracks[2].Number != 3 || tracks[2].Title != "Hey You" {
		t.Errorf("track 3 = %+v", tracks[2])
	}
}
