// Package normalizer maps provider-native records into the canonical media
// schema. It fills technical attributes (preferring provider streams, then
// file probing), resolves catalog identifiers, and classifies quality, so
// nothing downstream ever sees a provider-specific shape.
package normalizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/medley-app/medley/internal/catalog"
	"github.com/medley-app/medley/internal/media"
	"github.com/medley-app/medley/internal/probe"
	"github.com/medley-app/medley/internal/provider"
	"github.com/medley-app/medley/internal/quality"
)

// ErrMalformed marks a provider record too broken to index. Callers skip the
// record and keep going.
var ErrMalformed = errors.New("malformed provider record")

// Normalizer converts raw provider records into canonical media entities.
// The prober and the video catalog are optional: without a prober folder
// files keep their filename-derived hints, and without a catalog items
// missing a native TMDB id stay unresolved.
type Normalizer struct {
	classifier *quality.Classifier
	prober     probe.Prober
	videos     catalog.VideoCatalog
	logger     zerolog.Logger
}

// New creates a normalizer. prober and videos may be nil.
func New(classifier *quality.Classifier, prober probe.Prober, videos catalog.VideoCatalog, logger zerolog.Logger) *Normalizer {
	return &Normalizer{
		classifier: classifier,
		prober:     prober,
		videos:     videos,
		logger:     logger.With().Str("component", "normalizer").Logger(),
	}
}

// Movie normalizes a raw movie record.
func (n *Normalizer) Movie(ctx context.Context, source *media.Source, raw provider.RawMovie) (*media.MediaItem, error) {
	if raw.ProviderItemID == "" || raw.Title == "" {
		return nil, fmt.Errorf("%w: movie missing id or title", ErrMalformed)
	}

	attrs := n.attrs(ctx, raw.Stream, raw.Path)
	item := &media.MediaItem{
		SourceID:       source.ID,
		ProviderItemID: raw.ProviderItemID,
		Type:           media.MediaTypeMovie,
		Title:          raw.Title,
		Year:           raw.Year,
		TMDBID:         raw.TMDBID,
		IMDBID:         raw.IMDBID,
		Attrs:          attrs,
		QualityTier:    string(n.classifier.Classify(attrs, attrs.Resolution)),
		Path:           raw.Path,
		LastScannedAt:  time.Now(),
	}

	if item.TMDBID == 0 {
		item.TMDBID = n.resolveMovieID(ctx, item.Title, item.Year, item.IMDBID)
	}
	return item, nil
}

// Episode normalizes a raw episode record. The TMDB id stored on an episode
// is the id of its series, which is what completeness analysis groups by.
func (n *Normalizer) Episode(ctx context.Context, source *media.Source, raw provider.RawEpisode) (*media.MediaItem, error) {
	if raw.ProviderItemID == "" || raw.SeriesTitle == "" {
		return nil, fmt.Errorf("%w: episode missing id or series title", ErrMalformed)
	}
	if raw.SeasonNumber < 0 || raw.EpisodeNumber < 1 {
		return nil, fmt.Errorf("%w: episode %s has invalid numbering S%dE%d",
			ErrMalformed, raw.ProviderItemID, raw.SeasonNumber, raw.EpisodeNumber)
	}

	attrs := n.attrs(ctx, raw.Stream, raw.Path)
	item := &media.MediaItem{
		SourceID:       source.ID,
		ProviderItemID: raw.ProviderItemID,
		Type:           media.MediaTypeEpisode,
		Title:          raw.Title,
		SeriesTitle:    raw.SeriesTitle,
		SeasonNumber:   raw.SeasonNumber,
		EpisodeNumber:  raw.EpisodeNumber,
		TMDBID:         raw.SeriesTMDBID,
		IMDBID:         raw.SeriesIMDBID,
		Attrs:          attrs,
		QualityTier:    string(n.classifier.Classify(attrs, attrs.Resolution)),
		Path:           raw.Path,
		LastScannedAt:  time.Now(),
	}

	if item.TMDBID == 0 {
		item.TMDBID = n.resolveSeriesID(ctx, raw.SeriesTitle, raw.SeriesYear, raw.SeriesIMDBID)
	}
	return item, nil
}

// Artist normalizes a raw artist record.
func (n *Normalizer) Artist(source *media.Source, raw provider.RawArtist) (*media.Artist, error) {
	if raw.ProviderItemID == "" || raw.Name == "" {
		return nil, fmt.Errorf("%w: artist missing id or name", ErrMalformed)
	}
	return &media.Artist{
		SourceID:       source.ID,
		ProviderItemID: raw.ProviderItemID,
		Name:           raw.Name,
		MBID:           raw.MBID,
		LastScannedAt:  time.Now(),
	}, nil
}

// Album normalizes a raw album record.
func (n *Normalizer) Album(source *media.Source, raw provider.RawAlbum, artistID int64) (*media.Album, error) {
	if raw.ProviderItemID == "" || raw.Title == "" {
		return nil, fmt.Errorf("%w: album missing id or title", ErrMalformed)
	}
	attrs := streamAttrs(raw.Stream)
	return &media.Album{
		SourceID:         source.ID,
		ProviderItemID:   raw.ProviderItemID,
		ArtistID:         artistID,
		Title:            raw.Title,
		Year:             raw.Year,
		TrackCount:       raw.TrackCount,
		ReleaseGroupMBID: raw.ReleaseGroupMBID,
		Attrs:            attrs,
		QualityTier:      string(n.classifier.ClassifyAudio(attrs)),
		LastScannedAt:    time.Now(),
	}, nil
}

// Track normalizes a raw track record.
func (n *Normalizer) Track(ctx context.Context, source *media.Source, raw provider.RawTrack, albumID int64) (*media.Track, error) {
	if raw.ProviderItemID == "" || raw.Title == "" {
		return nil, fmt.Errorf("%w: track missing id or title", ErrMalformed)
	}
	attrs := n.attrs(ctx, raw.Stream, raw.Path)
	return &media.Track{
		SourceID:       source.ID,
		ProviderItemID: raw.ProviderItemID,
		AlbumID:        albumID,
		Title:          raw.Title,
		TrackNumber:    raw.TrackNumber,
		Attrs:          attrs,
		QualityTier:    string(n.classifier.ClassifyAudio(attrs)),
		Path:           raw.Path,
		LastScannedAt:  time.Now(),
	}, nil
}

// attrs resolves technical attributes for one file: provider stream data
// wins, probing fills the gap for local files, filename hints are the floor.
func (n *Normalizer) attrs(ctx context.Context, stream provider.RawStream, path string) media.TechnicalAttributes {
	if stream.Present {
		return streamAttrs(stream)
	}

	hints := streamAttrs(stream)
	if n.prober == nil || path == "" {
		return hints
	}

	probed, err := n.prober.Probe(ctx, path)
	if err != nil {
		n.logger.Debug().Err(err).Str("path", path).Msg("Probe failed, keeping filename hints")
		return hints
	}

	// Filename hints fill anything the probe could not read.
	if probed.Resolution == "" {
		probed.Resolution = hints.Resolution
	}
	if probed.VideoCodec == "" {
		probed.VideoCodec = hints.VideoCodec
	}
	if !probed.HDR {
		probed.HDR = hints.HDR
	}
	return probed
}

// resolveMovieID resolves a movie's TMDB id, trying the IMDb cross-reference
// before a title search. Failures are logged and leave the id unset.
func (n *Normalizer) resolveMovieID(ctx context.Context, title string, year int, imdbID string) int {
	if n.videos == nil {
		return 0
	}

	if imdbID != "" {
		movie, _, err := n.videos.FindByIMDB(ctx, imdbID)
		if err == nil && movie != nil {
			return movie.TMDBID
		}
		if err != nil && !errors.Is(err, catalog.ErrNotFound) {
			n.logger.Warn().Err(err).Str("imdbId", imdbID).Msg("IMDb lookup failed")
			return 0
		}
	}

	movie, err := n.videos.SearchMovie(ctx, title, year)
	if err != nil {
		if !errors.Is(err, catalog.ErrNotFound) {
			n.logger.Warn().Err(err).Str("title", title).Msg("Movie search failed")
		}
		return 0
	}
	return movie.TMDBID
}

func (n *Normalizer) resolveSeriesID(ctx context.Context, title string, year int, imdbID string) int {
	if n.videos == nil {
		return 0
	}

	if imdbID != "" {
		_, series, err := n.videos.FindByIMDB(ctx, imdbID)
		if err == nil && series != nil {
			return series.TMDBID
		}
		if err != nil && !errors.Is(err, catalog.ErrNotFound) {
			n.logger.Warn().Err(err).Str("imdbId", imdbID).Msg("IMDb lookup failed")
			return 0
		}
	}

	series, err := n.videos.SearchSeries(ctx, title, year)
	if err != nil {
		if !errors.Is(err, catalog.ErrNotFound) {
			n.logger.Warn().Err(err).Str("title", title).Msg("Series search failed")
		}
		return 0
	}
	return series.TMDBID
}

func streamAttrs(stream provider.RawStream) media.TechnicalAttributes {
	attrs := media.TechnicalAttributes{
		VideoCodec:    probe.NormalizeVideoCodec(stream.VideoCodec),
		AudioCodec:    probe.NormalizeAudioCodec(stream.AudioCodec),
		BitrateKbps:   stream.BitrateKbps,
		AudioChannels: stream.AudioChannels,
		HDR:           stream.HDR,
		BitDepth:      stream.BitDepth,
		SampleRate:    stream.SampleRate,
		Lossless:      stream.Lossless,
	}
	if stream.Width > 0 || stream.Height > 0 {
		attrs.Resolution = quality.ResolutionTier(stream.Width, stream.Height)
	} else {
		attrs.Resolution = stream.Resolution
	}
	if !attrs.Lossless && attrs.AudioCodec != "" {
		attrs.Lossless = probe.IsLosslessCodec(attrs.AudioCodec)
	}
	return attrs
}
