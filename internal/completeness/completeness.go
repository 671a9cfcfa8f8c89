// Package completeness reconciles the local index against external catalogs
// and scores how much of each series, discography, album, or movie
// collection is actually owned. The reconcile functions are pure; fetching
// and persistence live with their callers.
package completeness

import (
	"fmt"
	"time"

	"github.com/medley-app/medley/internal/catalog"
	"github.com/medley-app/medley/internal/media"
)

// Status buckets a completeness percentage.
type Status string

const (
	StatusComplete       Status = "complete"        // 100%
	StatusMostlyComplete Status = "mostly_complete" // 90% and up
	StatusIncomplete     Status = "incomplete"
)

// Entity types recorded in completeness reports and exclusions.
const (
	EntitySeries     = "series"
	EntityArtist     = "artist"
	EntityAlbum      = "album"
	EntityCollection = "collection"
)

// MissingItem is one catalog entry the library does not own.
type MissingItem struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Report is the completeness result for one entity.
type Report struct {
	EntityType string        `json:"entityType"`
	EntityKey  string        `json:"entityKey"`
	Name       string        `json:"name"`
	Total      int           `json:"total"`
	Owned      int           `json:"owned"`
	Percent    float64       `json:"percent"`
	Status     Status        `json:"status"`
	Missing    []MissingItem `json:"missing"`
	AnalyzedAt time.Time     `json:"analyzedAt"`
}

// FilterExcluded drops dismissed items from the missing list. Totals and
// percent stay as computed: an exclusion hides an entry from view, it does
// not make the library more complete.
func (r *Report) FilterExcluded(excluded map[string]struct{}) {
	if len(excluded) == 0 || len(r.Missing) == 0 {
		return
	}
	kept := r.Missing[:0]
	for _, m := range r.Missing {
		if _, skip := excluded[m.Key]; skip {
			continue
		}
		kept = append(kept, m)
	}
	r.Missing = kept
}

// finalize computes percent and status from the counted totals. An entity
// the catalog knows nothing about counts as fully owned.
func finalize(r *Report) {
	if r.Total <= 0 {
		r.Percent = 100
		r.Status = StatusComplete
		r.Total = 0
		return
	}
	r.Percent = float64(r.Owned) / float64(r.Total) * 100
	if r.Percent > 100 {
		r.Percent = 100
	}
	if r.Percent < 0 {
		r.Percent = 0
	}
	switch {
	case r.Percent >= 100:
		r.Status = StatusComplete
	case r.Percent >= 90:
		r.Status = StatusMostlyComplete
	default:
		r.Status = StatusIncomplete
	}
}

// ReconcileSeries scores episode ownership for one series. Episodes that
// have not aired by now are left out of both the total and the missing list.
func ReconcileSeries(info *catalog.SeriesInfo, owned map[media.EpisodeKey]struct{}, now time.Time) Report {
	report := Report{
		EntityType: EntitySeries,
		EntityKey:  fmt.Sprintf("%d", info.TMDBID),
		Name:       info.Name,
		AnalyzedAt: now,
	}

	for _, ep := range info.Episodes {
		if !ep.Aired(now) {
			continue
		}
		report.Total++
		key := media.EpisodeKey{Season: ep.SeasonNumber, Episode: ep.EpisodeNumber}
		if _, ok := owned[key]; ok {
			report.Owned++
			continue
		}
		label := fmt.Sprintf("S%02dE%02d", ep.SeasonNumber, ep.EpisodeNumber)
		if ep.Title != "" {
			label = fmt.Sprintf("%s %s", label, ep.Title)
		}
		report.Missing = append(report.Missing, MissingItem{
			Key:   fmt.Sprintf("%d:%d", ep.SeasonNumber, ep.EpisodeNumber),
			Label: label,
		})
	}

	finalize(&report)
	return report
}

// ReconcileDiscography scores release-group ownership for one artist.
// Release groups with no release date yet are treated as unreleased and
// skipped.
func ReconcileDiscography(artist catalog.ArtistInfo, groups []catalog.ReleaseGroupInfo, owned map[string]struct{}, now time.Time) Report {
	report := Report{
		EntityType: EntityArtist,
		EntityKey:  artist.MBID,
		Name:       artist.Name,
		AnalyzedAt: now,
	}

	for _, rg := range groups {
		if rg.FirstRelease.IsZero() || rg.FirstRelease.After(now) {
			continue
		}
		report.Total++
		if _, ok := owned[rg.MBID]; ok {
			report.Owned++
			continue
		}
		report.Missing = append(report.Missing, MissingItem{
			Key:   rg.MBID,
			Label: rg.Title,
		})
	}

	finalize(&report)
	return report
}

// ReconcileAlbumTracks scores track ownership for one album against the
// catalog's canonical track list.
func ReconcileAlbumTracks(album media.AlbumRef, tracks []catalog.TrackInfo, owned map[int]struct{}, now time.Time) Report {
	report := Report{
		EntityType: EntityAlbum,
		EntityKey:  album.ReleaseGroupMBID,
		Name:       album.Title,
		AnalyzedAt: now,
	}

	for _, t := range tracks {
		report.Total++
		if _, ok := owned[t.Number]; ok {
			report.Owned++
			continue
		}
		report.Missing = append(report.Missing, MissingItem{
			Key:   fmt.Sprintf("%d", t.Number),
			Label: fmt.Sprintf("%02d %s", t.Number, t.Title),
		})
	}

	finalize(&report)
	return report
}

// ReconcileCollection scores movie ownership for one collection. Unreleased
// members are skipped the same way unaired episodes are.
func ReconcileCollection(collection *catalog.CollectionInfo, owned map[int]struct{}, now time.Time) Report {
	report := Report{
		EntityType: EntityCollection,
		EntityKey:  fmt.Sprintf("%d", collection.ID),
		Name:       collection.Name,
		AnalyzedAt: now,
	}

	for _, movie := range collection.Parts {
		if movie.ReleaseDate.IsZero() || movie.ReleaseDate.After(now) {
			continue
		}
		report.Total++
		if _, ok := owned[movie.TMDBID]; ok {
			report.Owned++
			continue
		}
		report.Missing = append(report.Missing, MissingItem{
			Key:   fmt.Sprintf("%d", movie.TMDBID),
			Label: movie.Title,
		})
	}

	finalize(&report)
	return report
}
