// Package catalog defines the shared contract for external metadata
// catalogs. Concrete clients live in the tmdb and musicbrainz subpackages;
// callers in the completeness analyzer and the normalizer depend only on the
// interfaces here.
package catalog

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound means the catalog has no entry for the requested key.
	ErrNotFound = errors.New("catalog entry not found")
	// ErrRateLimited means the catalog rejected the request for pacing
	// reasons even after local throttling.
	ErrRateLimited = errors.New("catalog rate limited")
	// ErrNotConfigured means the client is missing required credentials.
	ErrNotConfigured = errors.New("catalog not configured")
	// ErrAuth means the catalog rejected the client's credentials. Retrying
	// other lookups with the same credentials is pointless.
	ErrAuth = errors.New("catalog authentication failed")
)

// EpisodeInfo is one episode of a series as the catalog knows it.
type EpisodeInfo struct {
	SeasonNumber  int
	EpisodeNumber int
	Title         string
	AirDate       time.Time // zero when the catalog has no date
}

// Aired reports whether the episode has aired by the given time. Episodes
// without an air date are treated as unaired.
func (e EpisodeInfo) Aired(now time.Time) bool {
	return !e.AirDate.IsZero() && !e.AirDate.After(now)
}

// SeriesInfo is the full known episode list for a series.
type SeriesInfo struct {
	TMDBID   int
	Name     string
	Episodes []EpisodeInfo
}

// MovieInfo is a single movie entry.
type MovieInfo struct {
	TMDBID       int
	Title        string
	Year         int
	ReleaseDate  time.Time
	CollectionID int
}

// CollectionInfo is a movie collection and its members.
type CollectionInfo struct {
	ID    int
	Name  string
	Parts []MovieInfo
}

// ArtistInfo identifies an artist in the music catalog.
type ArtistInfo struct {
	MBID string
	Name string
}

// ReleaseGroupInfo is one release group (album, EP, single) in an artist's
// discography.
type ReleaseGroupInfo struct {
	MBID         string
	Title        string
	PrimaryType  string // "Album", "EP", "Single"
	FirstRelease time.Time
}

// TrackInfo is one track on a release.
type TrackInfo struct {
	Number int
	Title  string
}

// VideoCatalog is the movie and series metadata surface.
type VideoCatalog interface {
	// SeriesEpisodes returns the known episode list for a series.
	SeriesEpisodes(ctx context.Context, tmdbID int) (*SeriesInfo, error)
	// SearchSeries finds a series by title and optional first-air year.
	SearchSeries(ctx context.Context, title string, year int) (*SeriesInfo, error)
	// SearchMovie finds a movie by title and optional year.
	SearchMovie(ctx context.Context, title string, year int) (*MovieInfo, error)
	// FindByIMDB resolves an IMDb id to a movie or series entry.
	FindByIMDB(ctx context.Context, imdbID string) (movie *MovieInfo, series *SeriesInfo, err error)
	// MovieCollection returns the collection a movie belongs to, or
	// ErrNotFound when it is standalone.
	MovieCollection(ctx context.Context, tmdbID int) (*CollectionInfo, error)
}

// MusicCatalog is the artist and release metadata surface.
type MusicCatalog interface {
	// SearchArtist finds an artist by name.
	SearchArtist(ctx context.Context, name string) (*ArtistInfo, error)
	// ArtistReleaseGroups returns the artist's official discography.
	ArtistReleaseGroups(ctx context.Context, mbid string) ([]ReleaseGroupInfo, error)
	// ReleaseGroupTracks returns the track list of a release group's
	// canonical release.
	ReleaseGroupTracks(ctx context.Context, releaseGroupMBID string) ([]TrackInfo, error)
}
