// Package tmdb implements the TMDB catalog client. Every request passes
// through a shared pacer honoring TMDB's burst limit, and successful lookups
// are cached so repeated analysis runs stay cheap.
package tmdb

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
	ErrAPIError = errors.New("TMDB API error")
)

// Client is a TMDB API client implementing catalog.VideoCatalog.
type Client struct {
	httpClient *http.Client
	config     config.TMDBConfig
	pacer      *ratelimit.Pacer
	cache      *catalog.Cache
	logger     zerolog.Logger
}

// NewClient creates a TMDB client.
func NewClient(cfg config.TMDBConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		pacer:  ratelimit.NewBurst(cfg.Burst, time.Duration(cfg.BurstWindow)*time.Second),
		cache: catalog.NewCache(catalog.CacheConfig{
			TTL:      time.Duration(cfg.CacheTTL) * time.Minute,
			MaxItems: cfg.CacheMaxItems,
		}),
		logger: logger.With().Str("component", "tmdb").Logger(),
	}
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// SeriesEpisodes returns the full episode list for a series, fetching each
// season's details. Season 0 (specials) is skipped.
func (c *Client) SeriesEpisodes(ctx context.Context, tmdbID int) (*catalog.SeriesInfo, error) {
	cacheKey := fmt.Sprintf("series:%d", tmdbID)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.(*catalog.SeriesInfo), nil
	}

	var details SeriesDetails
	endpoint := fmt.Sprintf("%s/tv/%d", c.config.BaseURL, tmdbID)
	if err := c.doRequest(ctx, endpoint, nil, &details); err != nil {
		return nil, err
	}

	info := &catalog.SeriesInfo{
		TMDBID: details.ID,
		Name:   details.Name,
	}
	for _, season := range details.Seasons {
		if season.SeasonNumber == 0 {
			continue
		}
		var sd SeasonDetails
		seasonEndpoint := fmt.Sprintf("%s/tv/%d/season/%d", c.config.BaseURL, tmdbID, season.SeasonNumber)
		if err := c.doRequest(ctx, seasonEndpoint, nil, &sd); err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				continue
			}
			return nil, err
		}
		for _, ep := range sd.Episodes {
			info.Episodes = append(info.Episodes, catalog.EpisodeInfo{
				SeasonNumber:  ep.SeasonNumber,
				EpisodeNumber: ep.EpisodeNumber,
				Title:         ep.Name,
				AirDate:       parseDate(ep.AirDate),
			})
		}
	}

	c.cache.Set(cacheKey, info)

	c.logger.Debug().
		Int("tmdbId", tmdbID).
		Int("episodes", len(info.Episodes)).
		Msg("Fetched series episode list")

	return info, nil
}

// SearchSeries finds a series by title and optional first-air year, then
// returns its episode list.
func (c *Client) SearchSeries(ctx context.Context, title string, year int) (*catalog.SeriesInfo, error) {
	cacheKey := fmt.Sprintf("searchtv:%s:%d", title, year)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return c.SeriesEpisodes(ctx, cached.(int))
	}

	params := url.Values{}
	params.Set("query", title)
	if year > 0 {
		params.Set("first_air_date_year", strconv.Itoa(year))
	}

	var response SearchTVResponse
	endpoint := fmt.Sprintf("%s/search/tv", c.config.BaseURL)
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}
	if len(response.Results) == 0 {
		return nil, fmt.Errorf("%w: series %q", catalog.ErrNotFound, title)
	}

	best := bestTVResult(response.Results)
	c.cache.Set(cacheKey, best.ID)
	return c.SeriesEpisodes(ctx, best.ID)
}

// SearchMovie finds a movie by title and optional year.
func (c *Client) SearchMovie(ctx context.Context, title string, year int) (*catalog.MovieInfo, error) {
	cacheKey := fmt.Sprintf("searchmovie:%s:%d", title, year)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.(*catalog.MovieInfo), nil
	}

	params := url.Values{}
	params.Set("query", title)
	params.Set("include_adult", "false")
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}

	var response SearchMoviesResponse
	endpoint := fmt.Sprintf("%s/search/movie", c.config.BaseURL)
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}
	if len(response.Results) == 0 {
		return nil, fmt.Errorf("%w: movie %q", catalog.ErrNotFound, title)
	}

	info := movieFromResult(bestMovieResult(response.Results))
	c.cache.Set(cacheKey, info)
	return info, nil
}

// FindByIMDB resolves an IMDb id to a movie or series entry.
func (c *Client) FindByIMDB(ctx context.Context, imdbID string) (*catalog.MovieInfo, *catalog.SeriesInfo, error) {
	params := url.Values{}
	params.Set("external_source", "imdb_id")

	var response FindResponse
	endpoint := fmt.Sprintf("%s/find/%s", c.config.BaseURL, url.PathEscape(imdbID))
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, nil, err
	}

	if len(response.MovieResults) > 0 {
		return movieFromResult(response.MovieResults[0]), nil, nil
	}
	if len(response.TVResults) > 0 {
		tv := response.TVResults[0]
		return nil, &catalog.SeriesInfo{TMDBID: tv.ID, Name: tv.Name}, nil
	}
	return nil, nil, fmt.Errorf("%w: imdb id %s", catalog.ErrNotFound, imdbID)
}

// MovieCollection returns the collection the movie belongs to, or
// catalog.ErrNotFound when it is standalone.
func (c *Client) MovieCollection(ctx context.Context, tmdbID int) (*catalog.CollectionInfo, error) {
	cacheKey := fmt.Sprintf("collection-of:%d", tmdbID)
	if cached, ok := c.cache.Get(cacheKey); ok {
		if cached == nil {
			return nil, fmt.Errorf("%w: movie %d is standalone", catalog.ErrNotFound, tmdbID)
		}
		return cached.(*catalog.CollectionInfo), nil
	}

	var details MovieDetails
	endpoint := fmt.Sprintf("%s/movie/%d", c.config.BaseURL, tmdbID)
	if err := c.doRequest(ctx, endpoint, nil, &details); err != nil {
		return nil, err
	}
	if details.BelongsToCollection == nil {
		c.cache.Set(cacheKey, nil)
		return nil, fmt.Errorf("%w: movie %d is standalone", catalog.ErrNotFound, tmdbID)
	}

	var collection CollectionDetails
	endpoint = fmt.Sprintf("%s/collection/%d", c.config.BaseURL, details.BelongsToCollection.ID)
	if err := c.doRequest(ctx, endpoint, nil, &collection); err != nil {
		return nil, err
	}

	info := &catalog.CollectionInfo{
		ID:   collection.ID,
		Name: collection.Name,
	}
	for _, part := range collection.Parts {
		info.Parts = append(info.Parts, *movieFromResult(part))
	}
	c.cache.Set(cacheKey, info)
	return info, nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	if !c.IsConfigured() {
		return fmt.Errorf("%w: TMDB API key missing", catalog.ErrNotConfigured)
	}
	if err := c.pacer.Wait(ctx); err != nil {
		return err
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.config.APIKey)
	reqURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", endpoint).Msg("HTTP request failed")
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			c.logger.Error().
				Int("status", resp.StatusCode).
				Str("message", errResp.StatusMessage).
				Msg("TMDB API error")
		}

		switch resp.StatusCode {
		case http.StatusNotFound:
			return catalog.ErrNotFound
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: invalid API key", catalog.ErrAuth)
		case http.StatusTooManyRequests:
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

// bestMovieResult prefers the most-voted result, which filters out obscure
// same-title entries.
func bestMovieResult(results []MovieResult) MovieResult {
	best := results[0]
	for _, r := range results[1:] {
		if r.VoteCount > best.VoteCount {
			best = r
		}
	}
	return best
}

func bestTVResult(results []TVResult) TVResult {
	best := results[0]
	for _, r := range results[1:] {
		if r.VoteCount > best.VoteCount {
			best = r
		}
	}
	return best
}

func movieFromResult(r MovieResult) *catalog.MovieInfo {
	year := 0
	if len(r.ReleaseDate) >= 4 {
		year, _ = strconv.Atoi(r.ReleaseDate[:4])
	}
	return &catalog.MovieInfo{
		TMDBID:      r.ID,
		Title:       r.Title,
		Year:        year,
		ReleaseDate: parseDate(r.ReleaseDate),
	}
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
