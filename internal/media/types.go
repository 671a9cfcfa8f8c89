// Package media defines the canonical media schema and the local index store.
// All provider output is normalized into these types before it is persisted;
// provider-specific shapes never leak past the normalizer.
package media

import "time"

// SourceKind identifies a provider implementation.
type SourceKind string

const (
	SourceKindJellyfin SourceKind = "jellyfin"
	SourceKindKodiDB   SourceKind = "kodidb"
	SourceKindFolder   SourceKind = "folder"
)

// Source is a configured connection to a media provider. Sources are created
// by the user outside the core and are read-only to scan and analysis jobs.
type Source struct {
	ID        int64             `json:"id"`
	Kind      SourceKind        `json:"kind"`
	Name      string            `json:"name"`
	Settings  map[string]string `json:"settings"`
	Libraries []string          `json:"libraries"`
	Enabled   bool              `json:"enabled"`
	CreatedAt time.Time         `json:"createdAt"`
}

// MediaType distinguishes movies from episodes.
type MediaType string

const (
	MediaTypeMovie   MediaType = "movie"
	MediaTypeEpisode MediaType = "episode"
)

// TechnicalAttributes holds the stream-level attributes used for quality
// classification. Zero values mean "unknown".
type TechnicalAttributes struct {
	Resolution    string `json:"resolution"` // "2160p", "1080p", "720p", "480p"
	VideoCodec    string `json:"videoCodec"`
	AudioCodec    string `json:"audioCodec"`
	BitrateKbps   int    `json:"bitrateKbps"`
	AudioChannels int    `json:"audioChannels"`
	HDR           bool   `json:"hdr"`
	BitDepth      int    `json:"bitDepth"`
	SampleRate    int    `json:"sampleRate"`
	Lossless      bool   `json:"lossless"`
}

// MediaItem is a movie or episode owned by a source. The pair
// (SourceID, ProviderItemID) is the canonical key: re-scanning updates the
// existing row in place instead of duplicating it.
type MediaItem struct {
	ID             int64               `json:"id"`
	SourceID       int64               `json:"sourceId"`
	ProviderItemID string              `json:"providerItemId"`
	Type           MediaType           `json:"type"`
	Title          string              `json:"title"`
	Year           int                 `json:"year,omitempty"`
	SeriesTitle    string              `json:"seriesTitle,omitempty"`
	SeasonNumber   int                 `json:"seasonNumber,omitempty"`
	EpisodeNumber  int                 `json:"episodeNumber,omitempty"`
	TMDBID         int                 `json:"tmdbId,omitempty"`
	IMDBID         string              `json:"imdbId,omitempty"`
	Attrs          TechnicalAttributes `json:"attrs"`
	QualityTier    string              `json:"qualityTier,omitempty"`
	Path           string              `json:"path,omitempty"`
	AddedAt        time.Time           `json:"addedAt"`
	LastScannedAt  time.Time           `json:"lastScannedAt"`
}

// Artist is a music artist owned by a source.
type Artist struct {
	ID             int64     `json:"id"`
	SourceID       int64     `json:"sourceId"`
	ProviderItemID string    `json:"providerItemId"`
	Name           string    `json:"name"`
	MBID           string    `json:"mbid,omitempty"`
	AddedAt        time.Time `json:"addedAt"`
	LastScannedAt  time.Time `json:"lastScannedAt"`
}

// Album is a music release owned by a source. Attrs holds the best technical
// attributes across the album's tracks.
type Album struct {
	ID               int64               `json:"id"`
	SourceID         int64               `json:"sourceId"`
	ProviderItemID   string              `json:"providerItemId"`
	ArtistID         int64               `json:"artistId,omitempty"`
	Title            string              `json:"title"`
	Year             int                 `json:"year,omitempty"`
	TrackCount       int                 `json:"trackCount"`
	ReleaseGroupMBID string              `json:"releaseGroupMbid,omitempty"`
	Attrs            TechnicalAttributes `json:"attrs"`
	QualityTier      string              `json:"qualityTier,omitempty"`
	AddedAt          time.Time           `json:"addedAt"`
	LastScannedAt    time.Time           `json:"lastScannedAt"`
}

// Track is a single audio track owned by a source.
type Track struct {
	ID             int64               `json:"id"`
	SourceID       int64               `json:"sourceId"`
	ProviderItemID string              `json:"providerItemId"`
	AlbumID        int64               `json:"albumId,omitempty"`
	Title          string              `json:"title"`
	TrackNumber    int                 `json:"trackNumber,omitempty"`
	Attrs          TechnicalAttributes `json:"attrs"`
	QualityTier    string              `json:"qualityTier,omitempty"`
	Path           string              `json:"path,omitempty"`
	AddedAt        time.Time           `json:"addedAt"`
	LastScannedAt  time.Time           `json:"lastScannedAt"`
}

// ChangeSet tracks what a scan changed in the index.
type ChangeSet struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// SourceStats summarizes the index contents for one source.
type SourceStats struct {
	SourceID int64 `json:"sourceId"`
	Movies   int64 `json:"movies"`
	Episodes int64 `json:"episodes"`
	Artists  int64 `json:"artists"`
	Albums   int64 `json:"albums"`
	Tracks   int64 `json:"tracks"`
}

// EpisodeKey identifies an episode within a series for completeness math.
type EpisodeKey struct {
	Season  int `json:"season"`
	Episode int `json:"episode"`
}
