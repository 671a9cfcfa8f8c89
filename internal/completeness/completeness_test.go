package completeness

import (
	"testing"
	"time"

	"github.com/medley-app/medley/internal/catalog"
	"github.com/medley-app/medley/internal/media"
)

var now = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func aired(daysAgo int) time.Time {
	return now.AddDate(0, 0, -daysAgo)
}

func TestReconcileSeries_UnairedExcluded(t *testing.T) {
	info := &catalog.SeriesInfo{
		TMDBID: 42,
		Name:   "Ongoing Show",
		Episodes: []catalog.EpisodeInfo{
			{SeasonNumber: 1, EpisodeNumber: 1, Title: "Pilot", AirDate: aired(100)},
			{SeasonNumber: 1, EpisodeNumber: 2, Title: "Second", AirDate: aired(90)},
			{SeasonNumber: 1, EpisodeNumber: 3, Title: "Future", AirDate: now.AddDate(0, 0, 30)},
			{SeasonNumber: 1, EpisodeNumber: 4, Title: "Unscheduled"}, // no air date
		},
	}
	owned := map[media.EpisodeKey]struct{}{
		{Season: 1, Episode: 1}: {},
	}

	report := ReconcileSeries(info, owned, now)

	if report.Total != 2 {
		t.Errorf("Total = %d, want 2 (unaired excluded)", report.Total)
	}
	if report.Owned != 1 {
		t.Errorf("Owned = %d, want 1", report.Owned)
	}
	if report.Percent != 50 {
		t.Errorf("Percent = %v, want 50", report.Percent)
	}
	if report.Status != StatusIncomplete {
		t.Errorf("Status = %q, want incomplete", report.Status)
	}
	if len(report.Missing) != 1 || report.Missing[0].Key != "1:2" {
		t.Errorf("Missing = %+v, want only S01E02", report.Missing)
	}
}

func TestReconcileSeries_EmptyCatalogIsComplete(t *testing.T) {
	info := &catalog.SeriesInfo{TMDBID: 7, Name: "Unknown"}

	report := ReconcileSeries(info, nil, now)

	if report.Percent != 100 || report.Status != StatusComplete {
		t.Errorf("empty catalog entry: percent=%v status=%q, want 100/complete", report.Percent, report.Status)
	}
}

func TestReconcileSeries_StatusBands(t *testing.T) {
	episodes := make([]catalog.EpisodeInfo, 20)
	for i := range episodes {
		episodes[i] = catalog.EpisodeInfo{SeasonNumber: 1, EpisodeNumber: i + 1, AirDate: aired(50)}
	}
	info := &catalog.SeriesInfo{TMDBID: 1, Name: "Long Show", Episodes: episodes}

	tests := []struct {
		ownedCount int
		want       Status
	}{
		{20, StatusComplete},
		{18, StatusMostlyComplete}, // 90%
		{17, StatusIncomplete},     // 85%
	}

	for _, tt := range tests {
		owned := make(map[media.EpisodeKey]struct{})
		for i := 0; i < tt.ownedCount; i++ {
			owned[media.EpisodeKey{Season: 1, Episode: i + 1}] = struct{}{}
		}
		report := ReconcileSeries(info, owned, now)
		if report.Status != tt.want {
			t.Errorf("%d/20 owned: Status = %q, want %q", tt.ownedCount, report.Status, tt.want)
		}
	}
}

func TestReconcileSeries_PercentClamped(t *testing.T) {
	// Owning episodes the catalog doesn't list must not push percent over 100.
	info := &catalog.SeriesInfo{
		TMDBID: 3,
		Name:   "Short",
		Episodes: []catalog.EpisodeInfo{
			{SeasonNumber: 1, EpisodeNumber: 1, AirDate: aired(10)},
		},
	}
	owned := map[media.EpisodeKey]struct{}{
		{Season: 1, Episode: 1}: {},
		{Season: 1, Episode: 2}: {},
	}

	report := ReconcileSeries(info, owned, now)
	if report.Percent > 100 {
		t.Errorf("Percent = %v, must be clamped to 100", report.Percent)
	}
}

func TestReconcileDiscography(t *testing.T) {
	artist := catalog.ArtistInfo{MBID: "mbid-1", Name: "The Band"}
	groups := []catalog.ReleaseGroupInfo{
		{MBID: "rg-1", Title: "Debut", FirstRelease: aired(3000)},
		{MBID: "rg-2", Title: "Follow-up", FirstRelease: aired(2000)},
		{MBID: "rg-3", Title: "Announced"}, // no release date yet
	}
	owned := map[string]struct{}{"rg-1": {}}

	report := ReconcileDiscography(artist, groups, owned, now)

	if report.Total != 2 {
		t.Errorf("Total = %d, want 2 (unreleased skipped)", report.Total)
	}
	if report.Owned != 1 {
		t.Errorf("Owned = %d, want 1", report.Owned)
	}
	if len(report.Missing) != 1 || report.Missing[0].Key != "rg-2" {
		t.Errorf("Missing = %+v, want only rg-2", report.Missing)
	}
}

func TestReconcileAlbumTracks(t *testing.T) {
	album := media.AlbumRef{ReleaseGroupMBID: "rg-9", Title: "The Album"}
	tracks := []catalog.TrackInfo{
		{Number: 1, Title: "One"},
		{Number: 2, Title: "Two"},
		{Number: 3, Title: "Three"},
	}
	owned := map[int]struct{}{1: {}, 3: {}}

	report := ReconcileAlbumTracks(album, tracks, owned, now)

	if report.Owned != 2 || report.Total != 3 {
		t.Errorf("got %d/%d, want 2/3", report.Owned, report.Total)
	}
	if report.Status != StatusIncomplete {
		t.Errorf("Status = %q, want incomplete", report.Status)
	}
	if len(report.Missing) != 1 || report.Missing[0].Key != "2" {
		t.Errorf("Missing = %+v, want track 2", report.Missing)
	}
}

func TestReconcileCollection_UnreleasedSkipped(t *testing.T) {
	collection := &catalog.CollectionInfo{
		ID:   77,
		Name: "Saga",
		Parts: []catalog.MovieInfo{
			{TMDBID: 1, Title: "Part One", ReleaseDate: aired(1000)},
			{TMDBID: 2, Title: "Part Two", ReleaseDate: aired(500)},
			{TMDBID: 3, Title: "Part Three", ReleaseDate: now.AddDate(1, 0, 0)},
		},
	}
	owned := map[int]struct{}{1: {}, 2: {}}

	report := ReconcileCollection(collection, owned, now)

	if report.Total != 2 || report.Owned != 2 {
		t.Errorf("got %d/%d, want 2/2", report.Owned, report.Total)
	}
	if report.Status != StatusComplete {
		t.Errorf("Status = %q, want complete", report.Status)
	}
	if len(report.Missing) != 0 {
		t.Errorf("Missing = %+v, want none", report.Missing)
	}
}
