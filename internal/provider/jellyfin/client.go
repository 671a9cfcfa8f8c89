// Package jellyfin implements the provider adapter for Jellyfin media
// servers. Technical metadata comes from the server's MediaStreams payload,
// so no file probing is needed for this source kind.
package jellyfin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medley-app/medley/internal/media"
	"github.com/medley-app/medley/internal/probe"
	"github.com/medley-app/medley/internal/provider"
)

var (
	ErrMissingSettings = errors.New("jellyfin source is missing base_url or api_key")
	ErrAuth            = errors.New("jellyfin authentication failed")
	ErrAPIError        = errors.New("jellyfin API error")
)

// Adapter is a Jellyfin provider adapter.
type Adapter struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a Jellyfin adapter.
func New(logger zerolog.Logger) *Adapter {
	return &Adapter{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With().Str("component", "jellyfin").Logger(),
	}
}

// Kind returns the source kind this adapter serves.
func (a *Adapter) Kind() media.SourceKind {
	return media.SourceKindJellyfin
}

// Capabilities returns the fetch surfaces Jellyfin supports.
func (a *Adapter) Capabilities() []provider.Capability {
	return []provider.Capability{provider.CapMovies, provider.CapEpisodes, provider.CapMusic}
}

// FetchMovies returns movie records for one library, filtered server-side by
// since when non-zero.
func (a *Adapter) FetchMovies(ctx context.Context, source *media.Source, libraryID string, since time.Time) ([]provider.RawMovie, error) {
	items, err := a.fetchItems(ctx, source, "Movie", libraryID, since)

	movies := make([]provider.RawMovie, 0, len(items))
	for _, it := range items {
		movies = append(movies, provider.RawMovie{
			ProviderItemID: it.ID,
			Title:          it.Name,
			Year:           it.ProductionYear,
			TMDBID:         atoiSafe(it.ProviderIDs["Tmdb"]),
			IMDBID:         it.ProviderIDs["Imdb"],
			Path:           it.Path,
			Stream:         streamFromItem(it),
		})
	}

	a.logger.Debug().
		Int64("sourceId", source.ID).
		Str("library", libraryID).
		Int("count", len(movies)).
		Msg("Fetched movies")

	return movies, err
}

// FetchEpisodes returns episode records for one library. Series-level
// provider ids are resolved by joining against the library's series items,
// since Jellyfin episode payloads do not carry them.
func (a *Adapter) FetchEpisodes(ctx context.Context, source *media.Source, libraryID string, since time.Time) ([]provider.RawEpisode, error) {
	seriesItems, err := a.fetchItems(ctx, source, "Series", libraryID, time.Time{})
	if err != nil {
		return nil, err
	}
	seriesByID := make(map[string]item, len(seriesItems))
	for _, s := range seriesItems {
		seriesByID[s.ID] = s
	}

	items, err := a.fetchItems(ctx, source, "Episode", libraryID, since)

	episodes := make([]provider.RawEpisode, 0, len(items))
	for _, it := range items {
		ep := provider.RawEpisode{
			ProviderItemID: it.ID,
			SeriesTitle:    it.SeriesName,
			SeasonNumber:   it.ParentIndexNumber,
			EpisodeNumber:  it.IndexNumber,
			Title:          it.Name,
			Path:           it.Path,
			Stream:         streamFromItem(it),
		}
		if series, ok := seriesByID[it.SeriesID]; ok {
			ep.SeriesTMDBID = atoiSafe(series.ProviderIDs["Tmdb"])
			ep.SeriesIMDBID = series.ProviderIDs["Imdb"]
			ep.SeriesYear = series.ProductionYear
			if ep.SeriesTitle == "" {
				ep.SeriesTitle = series.Name
			}
		}
		episodes = append(episodes, ep)
	}

	a.logger.Debug().
		Int64("sourceId", source.ID).
		Str("library", libraryID).
		Int("count", len(episodes)).
		Msg("Fetched episodes")

	return episodes, err
}

// FetchArtists returns music artist records for one library.
func (a *Adapter) FetchArtists(ctx context.Context, source *media.Source, libraryID string) ([]provider.RawArtist, error) {
	items, err := a.fetchItems(ctx, source, "MusicArtist", libraryID, time.Time{})

	artists := make([]provider.RawArtist, 0, len(items))
	for _, it := range items {
		artists = append(artists, provider.RawArtist{
			ProviderItemID: it.ID,
			Name:           it.Name,
			MBID:           it.ProviderIDs["MusicBrainzArtist"],
		})
	}
	return artists, err
}

// FetchAlbums returns album records for one library.
func (a *Adapter) FetchAlbums(ctx context.Context, source *media.Source, libraryID string) ([]provider.RawAlbum, error) {
	items, err := a.fetchItems(ctx, source, "MusicAlbum", libraryID, time.Time{})

	albums := make([]provider.RawAlbum, 0, len(items))
	for _, it := range items {
		albums = append(albums, provider.RawAlbum{
			ProviderItemID:   it.ID,
			Title:            it.Name,
			Year:             it.ProductionYear,
			TrackCount:       it.ChildCount,
			ReleaseGroupMBID: it.ProviderIDs["MusicBrainzReleaseGroup"],
			Stream:           streamFromItem(it),
		})
	}
	return albums, err
}

// FetchTracks returns audio track records for one library.
func (a *Adapter) FetchTracks(ctx context.Context, source *media.Source, libraryID string) ([]provider.RawTrack, error) {
	items, err := a.fetchItems(ctx, source, "Audio", libraryID, time.Time{})

	tracks := make([]provider.RawTrack, 0, len(items))
	for _, it := range items {
		tracks = append(tracks, provider.RawTrack{
			ProviderItemID: it.ID,
			AlbumItemID:    it.AlbumID,
			Title:          it.Name,
			TrackNumber:    it.IndexNumber,
			Path:           it.Path,
			Stream:         streamFromItem(it),
		})
	}
	return tracks, err
}

// fetchItems pages through /Items for one item type.
func (a *Adapter) fetchItems(ctx context.Context, source *media.Source, itemType, libraryID string, since time.Time) ([]item, error) {
	baseURL := source.Settings["base_url"]
	apiKey := source.Settings["api_key"]
	if baseURL == "" || apiKey == "" {
		return nil, ErrMissingSettings
	}

	const pageSize = 500
	var all []item

	for start := 0; ; start += pageSize {
		params := url.Values{}
		params.Set("IncludeItemTypes", itemType)
		params.Set("Recursive", "true")
		params.Set("Fields", "MediaStreams,ProviderIds,Path,ProductionYear,ChildCount")
		params.Set("StartIndex", strconv.Itoa(start))
		params.Set("Limit", strconv.Itoa(pageSize))
		if libraryID != "" {
			params.Set("ParentId", libraryID)
		}
		if !since.IsZero() {
			params.Set("MinDateLastSaved", since.UTC().Format(time.RFC3339))
		}

		var page itemsResponse
		if err := a.doRequest(ctx, baseURL, apiKey, "/Items", params, &page); err != nil {
			// Completed pages still count; the caller persists them before
			// surfacing the error.
			return all, err
		}

		all = append(all, page.Items...)
		if start+len(page.Items) >= page.TotalRecordCount || len(page.Items) == 0 {
			break
		}
	}

	return all, nil
}

func (a *Adapter) doRequest(ctx context.Context, baseURL, apiKey, path string, params url.Values, result any) error {
	reqURL := strings.TrimRight(baseURL, "/") + path
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", reqURL, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Emby-Token", apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Error().Err(err).Str("url", path).Msg("HTTP request failed")
		return fmt.Errorf("%w: %v", provider.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)

		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrAuth
		default:
			return fmt.Errorf("%w: status %d: %s", ErrAPIError, resp.StatusCode, errResp.Message)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// streamFromItem maps the first video and audio streams into a RawStream.
func streamFromItem(it item) provider.RawStream {
	var stream provider.RawStream
	for _, ms := range it.MediaStreams {
		switch ms.Type {
		case "Video":
			if stream.VideoCodec != "" {
				continue
			}
			stream.Present = true
			stream.VideoCodec = probe.NormalizeVideoCodec(ms.Codec)
			stream.Width = ms.Width
			stream.Height = ms.Height
			stream.HDR = ms.VideoRangeType != "" && ms.VideoRangeType != "SDR"
			if ms.BitRate > 0 {
				stream.BitrateKbps = ms.BitRate / 1000
			}
		case "Audio":
			if stream.AudioCodec != "" {
				continue
			}
			stream.Present = true
			stream.AudioCodec = probe.NormalizeAudioCodec(ms.Codec)
			stream.AudioChannels = ms.Channels
			stream.BitDepth = ms.BitDepth
			stream.SampleRate = ms.SampleRate
			stream.Lossless = probe.IsLosslessCodec(stream.AudioCodec)
			if stream.BitrateKbps == 0 && ms.BitRate > 0 {
				stream.BitrateKbps = ms.BitRate / 1000
			}
		}
	}
	return stream
}

func atoiSafe(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
