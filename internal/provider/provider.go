// Package provider defines the adapter contract every media source
// implements. Callers depend only on the Adapter interface and never branch
// on concrete source kind.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medley-app/medley/internal/media"
)

var (
	// ErrUnreachable means the source could not be contacted at all. It
	// aborts the current job.
	ErrUnreachable = errors.New("source unreachable")
	// ErrUnsupported means the adapter does not implement the requested
	// capability.
	ErrUnsupported = errors.New("capability not supported")
)

// Capability names a fetch surface an adapter may implement.
type Capability string

const (
	CapMovies   Capability = "movies"
	CapEpisodes Capability = "episodes"
	CapMusic    Capability = "music"
)

// RawStream is the provider-native stream description. Present is false when
// the provider supplied no technical metadata, in which case the normalizer
// falls back to file probing.
type RawStream struct {
	Present       bool
	Width         int
	Height        int
	Resolution    string // pre-classified tier hint, used when dimensions are absent
	VideoCodec    string
	AudioCodec    string
	BitrateKbps   int
	AudioChannels int
	HDR           bool
	BitDepth      int
	SampleRate    int
	Lossless      bool
}

// RawMovie is an unnormalized movie record from a provider.
type RawMovie struct {
	ProviderItemID string
	Title          string
	Year           int
	TMDBID         int
	IMDBID         string
	Path           string
	Stream         RawStream
}

// RawEpisode is an unnormalized episode record from a provider.
type RawEpisode struct {
	ProviderItemID string
	SeriesTitle    string
	SeriesYear     int
	SeriesTMDBID   int
	SeriesIMDBID   string
	SeasonNumber   int
	EpisodeNumber  int
	Title          string
	Path           string
	Stream         RawStream
}

// RawArtist is an unnormalized artist record from a provider.
type RawArtist struct {
	ProviderItemID string
	Name           string
	MBID           string
}

// RawAlbum is an unnormalized album record from a provider.
type RawAlbum struct {
	ProviderItemID   string
	ArtistItemID     string
	Title            string
	Year             int
	TrackCount       int
	ReleaseGroupMBID string
	Stream           RawStream
}

// RawTrack is an unnormalized track record from a provider.
type RawTrack struct {
	ProviderItemID string
	AlbumItemID    string
	Title          string
	TrackNumber    int
	Path           string
	Stream         RawStream
}

// Adapter fetches raw catalog entries from one source kind. Implementations
// must honor ctx cancellation on every network or file operation, and filter
// by since (zero means full fetch) when the backend supports it.
//
// A Fetch method that fails partway through may return the records it
// already received alongside the error. The scan loop persists that partial
// batch before failing the job, so a connection dropped on page three does
// not throw away pages one and two.
type Adapter interface {
	Kind() media.SourceKind
	Capabilities() []Capability

	FetchMovies(ctx context.Context, source *media.Source, libraryID string, since time.Time) ([]RawMovie, error)
	FetchEpisodes(ctx context.Context, source *media.Source, libraryID string, since time.Time) ([]RawEpisode, error)
	FetchArtists(ctx context.Context, source *media.Source, libraryID string) ([]RawArtist, error)
	FetchAlbums(ctx context.Context, source *media.Source, libraryID string) ([]RawAlbum, error)
	FetchTracks(ctx context.Context, source *media.Source, libraryID string) ([]RawTrack, error)
}

// Registry resolves adapters by source kind.
type Registry struct {
	adapters map[media.SourceKind]Adapter
}

// NewRegistry creates a registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[media.SourceKind]Adapter)}
	for _, a := range adapters {
		r.adapters[a.Kind()] = a
	}
	return r
}

// For returns the adapter for a source's kind.
func (r *Registry) For(source *media.Source) (Adapter, error) {
	a, ok := r.adapters[source.Kind]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for source kind %q", source.Kind)
	}
	return a, nil
}

// Supports reports whether the adapter implements the capability.
func Supports(a Adapter, c Capability) bool {
	for _, have := range a.Capabilities() {
		if have == c {
			return true
		}
	}
	return false
}
