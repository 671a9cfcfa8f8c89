// Package musicbrainz implements the MusicBrainz catalog client. MusicBrainz
// enforces one request per second per client, so every call goes through a
// shared interval pacer and carries the configured User-Agent.
package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/medley-app/medley/internal/catalog"
	"github.com/medley-app/medley/internal/catalog/ratelimit"
	"github.com/medley-app/medley/internal/config"
)

var (
	ErrAPIError = errors.New("MusicBrainz API error")
)

const browsePageSize = 100

// Client is a MusicBrainz API client implementing catalog.MusicCatalog.
type Client struct {
	httpClient *http.Client
	config     config.MusicBrainzConfig
	pacer      *ratelimit.Pacer
	cache      *catalog.Cache
	logger     zerolog.Logger

	// includeEPs and includeSingles widen the discography beyond albums.
	includeEPs     bool
	includeSingles bool
}

// minInterval is the floor on the gap between MusicBrainz requests. The
// configured interval can widen the gap but never narrow it below this.
const minInterval = 1500 * time.Millisecond

// requestInterval resolves the pacing gap from config, clamped to the floor.
func requestInterval(cfg config.MusicBrainzConfig) time.Duration {
	interval := time.Duration(cfg.IntervalMS) * time.Millisecond
	if interval < minInterval {
		interval = minInterval
	}
	return interval
}

// NewClient creates a MusicBrainz client.
func NewClient(cfg config.MusicBrainzConfig, includeEPs, includeSingles bool, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		pacer:  ratelimit.NewInterval(requestInterval(cfg)),
		cache: catalog.NewCache(catalog.CacheConfig{
			TTL:      time.Duration(cfg.CacheTTL) * time.Minute,
			MaxItems: cfg.CacheMaxItems,
		}),
		logger:         logger.With().Str("component", "musicbrainz").Logger(),
		includeEPs:     includeEPs,
		includeSingles: includeSingles,
	}
}

// SearchArtist finds an artist by name, returning the best-scored match.
func (c *Client) SearchArtist(ctx context.Context, name string) (*catalog.ArtistInfo, error) {
	cacheKey := "artist:" + name
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.(*catalog.ArtistInfo), nil
	}

	params := url.Values{}
	params.Set("query", fmt.Sprintf("artist:%q", name))
	params.Set("limit", "5")

	var response SearchArtistResponse
	endpoint := fmt.Sprintf("%s/artist", c.config.BaseURL)
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}
	if len(response.Artists) == 0 {
		return nil, fmt.Errorf("%w: artist %q", catalog.ErrNotFound, name)
	}

	best := response.Artists[0]
	for _, a := range response.Artists[1:] {
		if a.Score > best.Score {
			best = a
		}
	}

	info := &catalog.ArtistInfo{MBID: best.ID, Name: best.Name}
	c.cache.Set(cacheKey, info)
	return info, nil
}

// ArtistReleaseGroups returns the artist's studio discography. Compilations,
// live albums and other secondary-typed groups are excluded; EPs and singles
// are included only when the client was configured to count them.
func (c *Client) ArtistReleaseGroups(ctx context.Context, mbid string) ([]catalog.ReleaseGroupInfo, error) {
	cacheKey := "releasegroups:" + mbid
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.([]catalog.ReleaseGroupInfo), nil
	}

	var groups []catalog.ReleaseGroupInfo
	offset := 0
	for {
		params := url.Values{}
		params.Set("artist", mbid)
		params.Set("limit", strconv.Itoa(browsePageSize))
		params.Set("offset", strconv.Itoa(offset))

		var response BrowseReleaseGroupsResponse
		endpoint := fmt.Sprintf("%s/release-group", c.config.BaseURL)
		if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
			return nil, err
		}

		for _, rg := range response.ReleaseGroups {
			if !c.wanted(rg) {
				continue
			}
			groups = append(groups, catalog.ReleaseGroupInfo{
				MBID:         rg.ID,
				Title:        rg.Title,
				PrimaryType:  rg.PrimaryType,
				FirstRelease: parseFlexibleDate(rg.FirstReleaseDate),
			})
		}

		offset += len(response.ReleaseGroups)
		if offset >= response.Count || len(response.ReleaseGroups) == 0 {
			break
		}
	}

	c.cache.Set(cacheKey, groups)

	c.logger.Debug().
		Str("mbid", mbid).
		Int("releaseGroups", len(groups)).
		Msg("Fetched artist discography")

	return groups, nil
}

// ReleaseGroupTracks returns the track list of the release group's canonical
// release: the earliest official release, falling back to the first listed.
func (c *Client) ReleaseGroupTracks(ctx context.Context, releaseGroupMBID string) ([]catalog.TrackInfo, error) {
	cacheKey := "tracks:" + releaseGroupMBID
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.([]catalog.TrackInfo), nil
	}

	params := url.Values{}
	params.Set("release-group", releaseGroupMBID)
	params.Set("inc", "recordings media")
	params.Set("limit", strconv.Itoa(browsePageSize))

	var response BrowseReleasesResponse
	endpoint := fmt.Sprintf("%s/release", c.config.BaseURL)
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}
	if len(response.Releases) == 0 {
		return nil, fmt.Errorf("%w: release group %s has no releases", catalog.ErrNotFound, releaseGroupMBID)
	}

	release := canonicalRelease(response.Releases)

	var tracks []catalog.TrackInfo
	number := 0
	for _, medium := range release.Media {
		for _, t := range medium.Tracks {
			number++
			tracks = append(tracks, catalog.TrackInfo{
				Number: number,
				Title:  t.Title,
			})
		}
	}

	c.cache.Set(cacheKey, tracks)
	return tracks, nil
}

// wanted reports whether a release group counts toward the discography.
func (c *Client) wanted(rg ReleaseGroup) bool {
	if len(rg.SecondaryTypes) > 0 {
		return false
	}
	switch rg.PrimaryType {
	case "Album":
		return true
	case "EP":
		return c.includeEPs
	case "Single":
		return c.includeSingles
	default:
		return false
	}
}

func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	if err := c.pacer.Wait(ctx); err != nil {
		return err
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("fmt", "json")
	reqURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", endpoint).Msg("HTTP request failed")
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			c.logger.Error().
				Int("status", resp.StatusCode).
				Str("message", errResp.Error).
				Msg("MusicBrainz API error")
		}

		switch resp.StatusCode {
		case http.StatusNotFound:
			return catalog.ErrNotFound
		case http.StatusServiceUnavailable, http.StatusTooManyRequests:
			return catalog.ErrRateLimited
		default:
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// canonicalRelease prefers the earliest official release.
func canonicalRelease(releases []Release) Release {
	best := releases[0]
	bestDate := time.Time{}
	found := false
	for _, r := range releases {
		if r.Status != "Official" || len(r.Media) == 0 {
			continue
		}
		date := parseFlexibleDate(r.Date)
		if !found || (!date.IsZero() && (bestDate.IsZero() || date.Before(bestDate))) {
			best = r
			bestDate = date
			found = true
		}
	}
	return best
}

// parseFlexibleDate handles the partial dates MusicBrainz returns: full
// dates, year-month, or bare years.
func parseFlexibleDate(s string) time.Time {
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
