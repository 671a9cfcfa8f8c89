// Package kodidb implements the provider adapter for local Kodi video
// library databases (MyVideos*.db). The database is opened read-only; Medley
// never writes to another application's library.
package kodidb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/medley-app/medley/internal/media"
	"github.com/medley-app/medley/internal/probe"
	"github.com/medley-app/medley/internal/provider"
)

// ErrMissingPath is returned when the source has no database path configured.
var ErrMissingPath = errors.New("kodidb source is missing path setting")

const kodiTimeLayout = "2006-01-02 15:04:05"

// Adapter reads movies and episodes from a Kodi video database.
type Adapter struct {
	logger zerolog.Logger
}

// New creates a Kodi database adapter.
func New(logger zerolog.Logger) *Adapter {
	return &Adapter{
		logger: logger.With().Str("component", "kodidb").Logger(),
	}
}

// Kind returns the source kind this adapter serves.
func (a *Adapter) Kind() media.SourceKind {
	return media.SourceKindKodiDB
}

// Capabilities returns the fetch surfaces the Kodi video database supports.
// Music lives in a separate Kodi database and is not exposed here.
func (a *Adapter) Capabilities() []provider.Capability {
	return []provider.Capability{provider.CapMovies, provider.CapEpisodes}
}

func (a *Adapter) open(source *media.Source) (*sql.DB, error) {
	path := source.Settings["path"]
	if path == "" {
		return nil, ErrMissingPath
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrUnreachable, err)
	}
	return db, nil
}

// FetchMovies reads movies from movie_view, resolving external ids from the
// uniqueid table and technical details from streamdetails.
func (a *Adapter) FetchMovies(ctx context.Context, source *media.Source, libraryID string, since time.Time) ([]provider.RawMovie, error) {
	db, err := a.open(source)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := `
		SELECT m.idMovie, m.c00, m.premiered, m.strPath || m.strFileName, m.idFile,
			(SELECT value FROM uniqueid u WHERE u.media_id = m.idMovie AND u.media_type = 'movie' AND u.type = 'tmdb'),
			(SELECT value FROM uniqueid u WHERE u.media_id = m.idMovie AND u.media_type = 'movie' AND u.type = 'imdb')
		FROM movie_view m`
	var args []any
	if !since.IsZero() {
		query += ` WHERE m.dateAdded > ?`
		args = append(args, since.UTC().Format(kodiTimeLayout))
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query movies: %v", provider.ErrUnreachable, err)
	}
	defer rows.Close()

	var movies []provider.RawMovie
	for rows.Next() {
		var id, fileID int64
		var title string
		var premiered, path, tmdbID, imdbID sql.NullString
		if err := rows.Scan(&id, &title, &premiered, &path, &fileID, &tmdbID, &imdbID); err != nil {
			return nil, fmt.Errorf("scan kodi movie: %w", err)
		}

		movie := provider.RawMovie{
			ProviderItemID: strconv.FormatInt(id, 10),
			Title:          title,
			Year:           yearFromDate(premiered.String),
			TMDBID:         atoiSafe(tmdbID.String),
			IMDBID:         imdbID.String,
			Path:           path.String,
		}
		movie.Stream = a.streamDetails(ctx, db, fileID)
		movies = append(movies, movie)
	}

	a.logger.Debug().
		Int64("sourceId", source.ID).
		Int("count", len(movies)).
		Msg("Fetched movies from Kodi database")

	return movies, rows.Err()
}

// FetchEpisodes reads episodes from episode_view, joining series-level
// external ids from the show's uniqueid rows.
func (a *Adapter) FetchEpisodes(ctx context.Context, source *media.Source, libraryID string, since time.Time) ([]provider.RawEpisode, error) {
	db, err := a.open(source)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := `
		SELECT e.idEpisode, e.c00, CAST(e.c12 AS INTEGER), CAST(e.c13 AS INTEGER),
			e.strTitle, e.premiered, e.strPath || e.strFileName, e.idFile,
			(SELECT value FROM uniqueid u WHERE u.media_id = e.idShow AND u.media_type = 'tvshow' AND u.type = 'tmdb'),
			(SELECT value FROM uniqueid u WHERE u.media_id = e.idShow AND u.media_type = 'tvshow' AND u.type = 'imdb')
		FROM episode_view e`
	var args []any
	if !since.IsZero() {
		query += ` WHERE e.dateAdded > ?`
		args = append(args, since.UTC().Format(kodiTimeLayout))
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query episodes: %v", provider.ErrUnreachable, err)
	}
	defer rows.Close()

	var episodes []provider.RawEpisode
	for rows.Next() {
		var id, fileID int64
		var season, episode int
		var title, showTitle string
		var premiered, path, tmdbID, imdbID sql.NullString
		if err := rows.Scan(&id, &title, &season, &episode, &showTitle, &premiered, &path, &fileID, &tmdbID, &imdbID); err != nil {
			return nil, fmt.Errorf("scan kodi episode: %w", err)
		}

		ep := provider.RawEpisode{
			ProviderItemID: strconv.FormatInt(id, 10),
			SeriesTitle:    showTitle,
			SeriesTMDBID:   atoiSafe(tmdbID.String),
			SeriesIMDBID:   imdbID.String,
			SeasonNumber:   season,
			EpisodeNumber:  episode,
			Title:          title,
			Path:           path.String,
		}
		ep.Stream = a.streamDetails(ctx, db, fileID)
		episodes = append(episodes, ep)
	}

	a.logger.Debug().
		Int64("sourceId", source.ID).
		Int("count", len(episodes)).
		Msg("Fetched episodes from Kodi database")

	return episodes, rows.Err()
}

// FetchArtists is not supported by the Kodi video database.
func (a *Adapter) FetchArtists(ctx context.Context, source *media.Source, libraryID string) ([]provider.RawArtist, error) {
	return nil, provider.ErrUnsupported
}

// FetchAlbums is not supported by the Kodi video database.
func (a *Adapter) FetchAlbums(ctx context.Context, source *media.Source, libraryID string) ([]provider.RawAlbum, error) {
	return nil, provider.ErrUnsupported
}

// FetchTracks is not supported by the Kodi video database.
func (a *Adapter) FetchTracks(ctx context.Context, source *media.Source, libraryID string) ([]provider.RawTrack, error) {
	return nil, provider.ErrUnsupported
}

// streamDetails reads technical details for a file. Kodi stores codec and
// dimensions but no bitrate, so the normalizer may still fall back to
// probing when the file is locally reachable.
func (a *Adapter) streamDetails(ctx context.Context, db *sql.DB, fileID int64) provider.RawStream {
	rows, err := db.QueryContext(ctx, `
		SELECT iStreamType, strVideoCodec, iVideoWidth, iVideoHeight, strAudioCodec, iAudioChannels
		FROM streamdetails WHERE idFile = ?`, fileID)
	if err != nil {
		return provider.RawStream{}
	}
	defer rows.Close()

	var stream provider.RawStream
	for rows.Next() {
		var streamType int
		var videoCodec, audioCodec sql.NullString
		var width, height, channels sql.NullInt64
		if err := rows.Scan(&streamType, &videoCodec, &width, &height, &audioCodec, &channels); err != nil {
			continue
		}

		switch streamType {
		case 0: // video
			if stream.VideoCodec != "" {
				continue
			}
			stream.Present = true
			stream.VideoCodec = probe.NormalizeVideoCodec(videoCodec.String)
			stream.Width = int(width.Int64)
			stream.Height = int(height.Int64)
		case 1: // audio
			if stream.AudioCodec != "" {
				continue
			}
			stream.Present = true
			stream.AudioCodec = probe.NormalizeAudioCodec(audioCodec.String)
			stream.AudioChannels = int(channels.Int64)
		}
	}
	return stream
}

func yearFromDate(date string) int {
	if len(date) >= 4 {
		if y, err := strconv.Atoi(date[:4]); err == nil {
			return y
		}
	}
	return 0
}

func atoiSafe(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
