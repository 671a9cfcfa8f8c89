// Package folder implements the provider adapter for plain media folders.
// Filenames carry no reliable technical metadata, so records are returned
// with Present=false streams and the normalizer probes the files instead.
package folder

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medley-app/medley/internal/media"
	"github.com/medley-app/medley/internal/provider"
)

// ErrMissingPath is returned when the source has no root path configured.
var ErrMissingPath = errors.New("folder source is missing path setting")

// Adapter scans directories for media files.
type Adapter struct {
	logger zerolog.Logger
}

// New creates a folder adapter.
func New(logger zerolog.Logger) *Adapter {
	return &Adapter{
		logger: logger.With().Str("component", "folder").Logger(),
	}
}

// Kind returns the source kind this adapter serves.
func (a *Adapter) Kind() media.SourceKind {
	return media.SourceKindFolder
}

// Capabilities returns the fetch surfaces folder sources support.
func (a *Adapter) Capabilities() []provider.Capability {
	return []provider.Capability{provider.CapMovies, provider.CapEpisodes, provider.CapMusic}
}

func (a *Adapter) root(source *media.Source, libraryID string) (string, error) {
	root := source.Settings["path"]
	if root == "" {
		return "", ErrMissingPath
	}
	if libraryID != "" {
		root = filepath.Join(root, libraryID)
	}
	if _, err := os.Stat(root); err != nil {
		return "", errors.Join(provider.ErrUnreachable, err)
	}
	return root, nil
}

// FetchMovies walks the folder and returns video files that parse as movies.
func (a *Adapter) FetchMovies(ctx context.Context, source *media.Source, libraryID string, since time.Time) ([]provider.RawMovie, error) {
	var movies []provider.RawMovie
	err := a.walkVideos(ctx, source, libraryID, since, func(path string, parsed ParsedFile) {
		if parsed.IsTV {
			return
		}
		movies = append(movies, provider.RawMovie{
			ProviderItemID: path,
			Title:          parsed.Title,
			Year:           parsed.Year,
			Path:           path,
			Stream:         streamHints(parsed),
		})
	})
	if err != nil {
		return nil, err
	}

	a.logger.Debug().
		Int64("sourceId", source.ID).
		Int("count", len(movies)).
		Msg("Scanned folder for movies")

	return movies, nil
}

// FetchEpisodes walks the folder and returns video files that parse as
// episodes.
func (a *Adapter) FetchEpisodes(ctx context.Context, source *media.Source, libraryID string, since time.Time) ([]provider.RawEpisode, error) {
	var episodes []provider.RawEpisode
	err := a.walkVideos(ctx, source, libraryID, since, func(path string, parsed ParsedFile) {
		if !parsed.IsTV {
			return
		}
		episodes = append(episodes, provider.RawEpisode{
			ProviderItemID: path,
			SeriesTitle:    parsed.Title,
			SeasonNumber:   parsed.Season,
			EpisodeNumber:  parsed.Episode,
			Path:           path,
			Stream:         streamHints(parsed),
		})
	})
	if err != nil {
		return nil, err
	}

	a.logger.Debug().
		Int64("sourceId", source.ID).
		Int("count", len(episodes)).
		Msg("Scanned folder for episodes")

	return episodes, nil
}

// FetchArtists treats each first-level directory as an artist.
func (a *Adapter) FetchArtists(ctx context.Context, source *media.Source, libraryID string) ([]provider.RawArtist, error) {
	root, err := a.root(source, libraryID)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Join(provider.ErrUnreachable, err)
	}

	var artists []provider.RawArtist
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		artists = append(artists, provider.RawArtist{
			ProviderItemID: entry.Name(),
			Name:           entry.Name(),
		})
	}
	return artists, nil
}

// FetchAlbums treats each Artist/Album directory pair as an album.
func (a *Adapter) FetchAlbums(ctx context.Context, source *media.Source, libraryID string) ([]provider.RawAlbum, error) {
	root, err := a.root(source, libraryID)
	if err != nil {
		return nil, err
	}

	artistDirs, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Join(provider.ErrUnreachable, err)
	}

	var albums []provider.RawAlbum
	for _, artistDir := range artistDirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !artistDir.IsDir() || strings.HasPrefix(artistDir.Name(), ".") {
			continue
		}
		albumDirs, err := os.ReadDir(filepath.Join(root, artistDir.Name()))
		if err != nil {
			continue
		}
		for _, albumDir := range albumDirs {
			if !albumDir.IsDir() {
				continue
			}
			trackCount := 0
			tracks, err := os.ReadDir(filepath.Join(root, artistDir.Name(), albumDir.Name()))
			if err == nil {
				for _, t := range tracks {
					if !t.IsDir() && IsAudioFile(t.Name()) {
						trackCount++
					}
				}
			}
			if trackCount == 0 {
				continue
			}
			title, year := splitAlbumDirName(albumDir.Name())
			albums = append(albums, provider.RawAlbum{
				ProviderItemID: filepath.Join(artistDir.Name(), albumDir.Name()),
				ArtistItemID:   artistDir.Name(),
				Title:          title,
				Year:           year,
				TrackCount:     trackCount,
			})
		}
	}
	return albums, nil
}

// FetchTracks walks Artist/Album directories and returns audio files.
func (a *Adapter) FetchTracks(ctx context.Context, source *media.Source, libraryID string) ([]provider.RawTrack, error) {
	root, err := a.root(source, libraryID)
	if err != nil {
		return nil, err
	}

	var tracks []provider.RawTrack
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil || d.IsDir() || !IsAudioFile(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		trackNumber, title := splitTrackFileName(d.Name())
		tracks = append(tracks, provider.RawTrack{
			ProviderItemID: rel,
			AlbumItemID:    filepath.Dir(rel),
			Title:          title,
			TrackNumber:    trackNumber,
			Path:           path,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tracks, nil
}

// walkVideos walks the source root calling fn for each parseable video file
// newer than since.
func (a *Adapter) walkVideos(ctx context.Context, source *media.Source, libraryID string, since time.Time, fn func(path string, parsed ParsedFile)) error {
	root, err := a.root(source, libraryID)
	if err != nil {
		return err
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			a.logger.Warn().Err(walkErr).Str("path", path).Msg("Skipping unreadable entry")
			return nil
		}
		if d.IsDir() || !IsVideoFile(d.Name()) || IsSampleFile(d.Name()) {
			return nil
		}
		if !since.IsZero() {
			if info, err := d.Info(); err == nil && info.ModTime().Before(since) {
				return nil
			}
		}
		fn(path, ParsePath(path))
		return nil
	})
}

func streamHints(parsed ParsedFile) provider.RawStream {
	return provider.RawStream{
		Present:    false,
		Resolution: parsed.Resolution,
		VideoCodec: parsed.VideoCodec,
		HDR:        parsed.HDR,
	}
}

var trackNumberPattern = regexp.MustCompile(`^(\d{1,3})\s*[-._ ]+\s*(.+)$`)

// splitAlbumDirName parses "Album Title (2004)" directory names.
func splitAlbumDirName(name string) (string, int) {
	if match := moviePatternParen.FindStringSubmatch(name); match != nil {
		year, _ := strconv.Atoi(match[2])
		return strings.TrimSpace(match[1]), year
	}
	return name, 0
}

// splitTrackFileName parses "03 - Track Title.flac" filenames.
func splitTrackFileName(name string) (int, string) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if match := trackNumberPattern.FindStringSubmatch(base); match != nil {
		n, _ := strconv.Atoi(match[1])
		return n, strings.TrimSpace(match[2])
	}
	return 0, base
}
