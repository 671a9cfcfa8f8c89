package media

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store provides access to the local index.
type Store struct {
	db *sql.DB
}

// NewStore creates a new local index store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateSource inserts a new source and returns its id.
func (s *Store) CreateSource(ctx context.Context, src *Source) (int64, error) {
	settings, err := json.Marshal(src.Settings)
	if err != nil {
		return 0, fmt.Errorf("marshal source settings: %w", err)
	}
	libraries, err := json.Marshal(src.Libraries)
	if err != nil {
		return 0, fmt.Errorf("marshal source libraries: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sources (kind, name, settings, libraries, enabled) VALUES (?, ?, ?, ?, ?)`,
		string(src.Kind), src.Name, string(settings), string(libraries), src.Enabled)
	if err != nil {
		return 0, fmt.Errorf("insert source: %w", err)
	}
	return res.LastInsertId()
}

// GetSource returns a source by id.
func (s *Store) GetSource(ctx context.Context, id int64) (*Source, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, name, settings, libraries, enabled, created_at FROM sources WHERE id = ?`, id)
	return scanSource(row)
}

// ListSources returns all sources, optionally only enabled ones.
func (s *Store) ListSources(ctx context.Context, enabledOnly bool) ([]*Source, error) {
	query := `SELECT id, kind, name, settings, libraries, enabled, created_at FROM sources`
	if enabledOnly {
		query += ` WHERE enabled = 1`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []*Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// DeleteSource removes a source. Indexed items cascade.
func (s *Store) DeleteSource(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*Source, error) {
	var src Source
	var kind, settings, libraries string
	err := row.Scan(&src.ID, &kind, &src.Name, &settings, &libraries, &src.Enabled, &src.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan source: %w", err)
	}
	src.Kind = SourceKind(kind)
	if err := json.Unmarshal([]byte(settings), &src.Settings); err != nil {
		return nil, fmt.Errorf("unmarshal source settings: %w", err)
	}
	if err := json.Unmarshal([]byte(libraries), &src.Libraries); err != nil {
		return nil, fmt.Errorf("unmarshal source libraries: %w", err)
	}
	return &src, nil
}

// UpsertItem inserts or updates a media item by its canonical key
// (source id + provider item id) as one atomic statement. Returns true when
// the item was newly added.
func (s *Store) UpsertItem(ctx context.Context, item *MediaItem) (bool, error) {
	var existingID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM media_items WHERE source_id = ? AND provider_item_id = ?`,
		item.SourceID, item.ProviderItemID).Scan(&existingID)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("lookup media item: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO media_items (
			source_id, provider_item_id, media_type, title, year, series_title,
			season_number, episode_number, tmdb_id, imdb_id, resolution,
			video_codec, audio_codec, bitrate_kbps, audio_channels, hdr,
			quality_tier, path, added_at, last_scanned_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_id, provider_item_id) DO UPDATE SET
			media_type = excluded.media_type,
			title = excluded.title,
			year = excluded.year,
			series_title = excluded.series_title,
			season_number = excluded.season_number,
			episode_number = excluded.episode_number,
			tmdb_id = excluded.tmdb_id,
			imdb_id = excluded.imdb_id,
			resolution = excluded.resolution,
			video_codec = excluded.video_codec,
			audio_codec = excluded.audio_codec,
			bitrate_kbps = excluded.bitrate_kbps,
			audio_channels = excluded.audio_channels,
			hdr = excluded.hdr,
			quality_tier = excluded.quality_tier,
			path = excluded.path,
			last_scanned_at = excluded.last_scanned_at`,
		item.SourceID, item.ProviderItemID, string(item.Type), item.Title,
		nullInt(item.Year), nullStr(item.SeriesTitle),
		nullInt(item.SeasonNumber), nullInt(item.EpisodeNumber),
		nullInt(item.TMDBID), nullStr(item.IMDBID), nullStr(item.Attrs.Resolution),
		nullStr(item.Attrs.VideoCodec), nullStr(item.Attrs.AudioCodec),
		nullInt(item.Attrs.BitrateKbps), nullInt(item.Attrs.AudioChannels),
		item.Attrs.HDR, nullStr(item.QualityTier), nullStr(item.Path), now, now)
	if err != nil {
		return false, fmt.Errorf("upsert media item: %w", err)
	}
	return !exists, nil
}

// ItemFilter narrows ListItems results. Zero values mean "any".
type ItemFilter struct {
	SourceID    int64
	Type        MediaType
	SeriesTitle string
	TMDBID      int
}

// ListItems returns media items matching the filter.
func (s *Store) ListItems(ctx context.Context, filter ItemFilter) ([]*MediaItem, error) {
	query := `SELECT id, source_id, provider_item_id, media_type, title, year,
		series_title, season_number, episode_number, tmdb_id, imdb_id,
		resolution, video_codec, audio_codec, bitrate_kbps, audio_channels,
		hdr, quality_tier, path, added_at, last_scanned_at
		FROM media_items WHERE 1=1`
	var args []any
	if filter.SourceID != 0 {
		query += ` AND source_id = ?`
		args = append(args, filter.SourceID)
	}
	if filter.Type != "" {
		query += ` AND media_type = ?`
		args = append(args, string(filter.Type))
	}
	if filter.SeriesTitle != "" {
		query += ` AND series_title = ?`
		args = append(args, filter.SeriesTitle)
	}
	if filter.TMDBID != 0 {
		query += ` AND tmdb_id = ?`
		args = append(args, filter.TMDBID)
	}
	query += ` ORDER BY title, season_number, episode_number`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list media items: %w", err)
	}
	defer rows.Close()

	var items []*MediaItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItem(rows *sql.Rows) (*MediaItem, error) {
	var item MediaItem
	var mediaType string
	var year, season, episode, tmdbID, bitrate, channels sql.NullInt64
	var seriesTitle, imdbID, resolution, videoCodec, audioCodec, tier, path sql.NullString
	err := rows.Scan(&item.ID, &item.SourceID, &item.ProviderItemID, &mediaType,
		&item.Title, &year, &seriesTitle, &season, &episode, &tmdbID, &imdbID,
		&resolution, &videoCodec, &audioCodec, &bitrate, &channels,
		&item.Attrs.HDR, &tier, &path, &item.AddedAt, &item.LastScannedAt)
	if err != nil {
		return nil, fmt.Errorf("scan media item: %w", err)
	}
	item.Type = MediaType(mediaType)
	item.Year = int(year.Int64)
	item.SeriesTitle = seriesTitle.String
	item.SeasonNumber = int(season.Int64)
	item.EpisodeNumber = int(episode.Int64)
	item.TMDBID = int(tmdbID.Int64)
	item.IMDBID = imdbID.String
	item.Attrs.Resolution = resolution.String
	item.Attrs.VideoCodec = videoCodec.String
	item.Attrs.AudioCodec = audioCodec.String
	item.Attrs.BitrateKbps = int(bitrate.Int64)
	item.Attrs.AudioChannels = int(channels.Int64)
	item.QualityTier = tier.String
	item.Path = path.String
	return &item, nil
}

// SeriesRef identifies a distinct owned series by its resolved catalog id.
type SeriesRef struct {
	TMDBID int    `json:"tmdbId"`
	Title  string `json:"title"`
}

// ListOwnedSeries returns the distinct series that have at least one indexed
// episode with a resolved catalog id, across all sources.
func (s *Store) ListOwnedSeries(ctx context.Context) ([]SeriesRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tmdb_id, MIN(series_title) FROM media_items
		WHERE media_type = 'episode' AND tmdb_id IS NOT NULL
		GROUP BY tmdb_id ORDER BY 2`)
	if err != nil {
		return nil, fmt.Errorf("list owned series: %w", err)
	}
	defer rows.Close()

	var refs []SeriesRef
	for rows.Next() {
		var ref SeriesRef
		var title sql.NullString
		if err := rows.Scan(&ref.TMDBID, &title); err != nil {
			return nil, fmt.Errorf("scan series ref: %w", err)
		}
		ref.Title = title.String
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// OwnedEpisodeKeys returns the set of (season, episode) pairs owned for a
// series, deduplicated across sources by the series' catalog id.
func (s *Store) OwnedEpisodeKeys(ctx context.Context, seriesTMDBID int) (map[EpisodeKey]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT season_number, episode_number FROM media_items
		WHERE media_type = 'episode' AND tmdb_id = ?
		AND season_number IS NOT NULL AND episode_number IS NOT NULL`,
		seriesTMDBID)
	if err != nil {
		return nil, fmt.Errorf("owned episode keys: %w", err)
	}
	defer rows.Close()

	owned := make(map[EpisodeKey]struct{})
	for rows.Next() {
		var key EpisodeKey
		if err := rows.Scan(&key.Season, &key.Episode); err != nil {
			return nil, fmt.Errorf("scan episode key: %w", err)
		}
		owned[key] = struct{}{}
	}
	return owned, rows.Err()
}

// OwnedMovieTMDBIDs returns the set of movie catalog ids owned across all
// sources. Two sources holding the same movie count once.
func (s *Store) OwnedMovieTMDBIDs(ctx context.Context) (map[int]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT tmdb_id FROM media_items
		WHERE media_type = 'movie' AND tmdb_id IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("owned movie ids: %w", err)
	}
	defer rows.Close()

	owned := make(map[int]struct{})
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan movie id: %w", err)
		}
		owned[id] = struct{}{}
	}
	return owned, rows.Err()
}

// DeleteItemsBySource removes all media items for a source.
func (s *Store) DeleteItemsBySource(ctx context.Context, sourceID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM media_items WHERE source_id = ?`, sourceID)
	if err != nil {
		return fmt.Errorf("delete items by source: %w", err)
	}
	return nil
}

// UpsertArtist inserts or updates an artist by canonical key. Returns the
// artist's row id and whether it was newly added.
func (s *Store) UpsertArtist(ctx context.Context, artist *Artist) (int64, bool, error) {
	var existingID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM artists WHERE source_id = ? AND provider_item_id = ?`,
		artist.SourceID, artist.ProviderItemID).Scan(&existingID)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("lookup artist: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO artists (source_id, provider_item_id, name, mbid, added_at, last_scanned_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_id, provider_item_id) DO UPDATE SET
			name = excluded.name,
			mbid = excluded.mbid,
			last_scanned_at = excluded.last_scanned_at`,
		artist.SourceID, artist.ProviderItemID, artist.Name, nullStr(artist.MBID), now, now)
	if err != nil {
		return 0, false, fmt.Errorf("upsert artist: %w", err)
	}

	if exists {
		return existingID, false, nil
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM artists WHERE source_id = ? AND provider_item_id = ?`,
		artist.SourceID, artist.ProviderItemID).Scan(&existingID)
	if err != nil {
		return 0, false, fmt.Errorf("lookup artist after insert: %w", err)
	}
	return existingID, true, nil
}

// UpsertAlbum inserts or updates an album by canonical key.
func (s *Store) UpsertAlbum(ctx context.Context, album *Album) (int64, bool, error) {
	var existingID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM albums WHERE source_id = ? AND provider_item_id = ?`,
		album.SourceID, album.ProviderItemID).Scan(&existingID)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("lookup album: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO albums (
			source_id, provider_item_id, artist_id, title, year, track_count,
			release_group_mbid, audio_codec, bitrate_kbps, bit_depth,
			sample_rate, lossless, quality_tier, added_at, last_scanned_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_id, provider_item_id) DO UPDATE SET
			artist_id = excluded.artist_id,
			title = excluded.title,
			year = excluded.year,
			track_count = excluded.track_count,
			release_group_mbid = excluded.release_group_mbid,
			audio_codec = excluded.audio_codec,
			bitrate_kbps = excluded.bitrate_kbps,
			bit_depth = excluded.bit_depth,
			sample_rate = excluded.sample_rate,
			lossless = excluded.lossless,
			quality_tier = excluded.quality_tier,
			last_scanned_at = excluded.last_scanned_at`,
		album.SourceID, album.ProviderItemID, nullInt64(album.ArtistID),
		album.Title, nullInt(album.Year), album.TrackCount,
		nullStr(album.ReleaseGroupMBID), nullStr(album.Attrs.AudioCodec),
		nullInt(album.Attrs.BitrateKbps), nullInt(album.Attrs.BitDepth),
		nullInt(album.Attrs.SampleRate), album.Attrs.Lossless,
		nullStr(album.QualityTier), now, now)
	if err != nil {
		return 0, false, fmt.Errorf("upsert album: %w", err)
	}

	if exists {
		return existingID, false, nil
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM albums WHERE source_id = ? AND provider_item_id = ?`,
		album.SourceID, album.ProviderItemID).Scan(&existingID)
	if err != nil {
		return 0, false, fmt.Errorf("lookup album after insert: %w", err)
	}
	return existingID, true, nil
}

// UpsertTrack inserts or updates a track by canonical key.
func (s *Store) UpsertTrack(ctx context.Context, track *Track) (bool, error) {
	var existingID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM tracks WHERE source_id = ? AND provider_item_id = ?`,
		track.SourceID, track.ProviderItemID).Scan(&existingID)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("lookup track: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tracks (
			source_id, provider_item_id, album_id, title, track_number,
			audio_codec, bitrate_kbps, bit_depth, sample_rate, lossless,
			quality_tier, path, added_at, last_scanned_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_id, provider_item_id) DO UPDATE SET
			album_id = excluded.album_id,
			title = excluded.title,
			track_number = excluded.track_number,
			audio_codec = excluded.audio_codec,
			bitrate_kbps = excluded.bitrate_kbps,
			bit_depth = excluded.bit_depth,
			sample_rate = excluded.sample_rate,
			lossless = excluded.lossless,
			quality_tier = excluded.quality_tier,
			path = excluded.path,
			last_scanned_at = excluded.last_scanned_at`,
		track.SourceID, track.ProviderItemID, nullInt64(track.AlbumID),
		track.Title, nullInt(track.TrackNumber), nullStr(track.Attrs.AudioCodec),
		nullInt(track.Attrs.BitrateKbps), nullInt(track.Attrs.BitDepth),
		nullInt(track.Attrs.SampleRate), track.Attrs.Lossless,
		nullStr(track.QualityTier), nullStr(track.Path), now, now)
	if err != nil {
		return false, fmt.Errorf("upsert track: %w", err)
	}
	return !exists, nil
}

// ArtistRef identifies a distinct owned artist by its resolved catalog id.
type ArtistRef struct {
	MBID string `json:"mbid"`
	Name string `json:"name"`
}

// ListOwnedArtists returns distinct artists with a resolved MusicBrainz id
// across all sources.
func (s *Store) ListOwnedArtists(ctx context.Context) ([]ArtistRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mbid, MIN(name) FROM artists
		WHERE mbid IS NOT NULL AND mbid != ''
		GROUP BY mbid ORDER BY 2`)
	if err != nil {
		return nil, fmt.Errorf("list owned artists: %w", err)
	}
	defer rows.Close()

	var refs []ArtistRef
	for rows.Next() {
		var ref ArtistRef
		if err := rows.Scan(&ref.MBID, &ref.Name); err != nil {
			return nil, fmt.Errorf("scan artist ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// AlbumRef identifies a distinct owned album by its release group id.
type AlbumRef struct {
	ReleaseGroupMBID string `json:"releaseGroupMbid"`
	Title            string `json:"title"`
}

// ListOwnedAlbums returns distinct albums with a resolved release group id
// across all sources.
func (s *Store) ListOwnedAlbums(ctx context.Context) ([]AlbumRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT release_group_mbid, MIN(title) FROM albums
		WHERE release_group_mbid IS NOT NULL AND release_group_mbid != ''
		GROUP BY release_group_mbid ORDER BY 2`)
	if err != nil {
		return nil, fmt.Errorf("list owned albums: %w", err)
	}
	defer rows.Close()

	var refs []AlbumRef
	for rows.Next() {
		var ref AlbumRef
		if err := rows.Scan(&ref.ReleaseGroupMBID, &ref.Title); err != nil {
			return nil, fmt.Errorf("scan album ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// OwnedReleaseGroups returns the set of release group ids owned for an
// artist's albums, deduplicated across sources by the artist's catalog id.
func (s *Store) OwnedReleaseGroups(ctx context.Context, artistMBID string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT al.release_group_mbid
		FROM albums al JOIN artists ar ON al.artist_id = ar.id
		WHERE ar.mbid = ? AND al.release_group_mbid IS NOT NULL AND al.release_group_mbid != ''`,
		artistMBID)
	if err != nil {
		return nil, fmt.Errorf("owned release groups: %w", err)
	}
	defer rows.Close()

	owned := make(map[string]struct{})
	for rows.Next() {
		var rg string
		if err := rows.Scan(&rg); err != nil {
			return nil, fmt.Errorf("scan release group: %w", err)
		}
		owned[rg] = struct{}{}
	}
	return owned, rows.Err()
}

// OwnedTrackNumbers returns the set of track numbers owned for albums that
// resolve to the given release group, deduplicated across sources.
func (s *Store) OwnedTrackNumbers(ctx context.Context, releaseGroupMBID string) (map[int]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT t.track_number
		FROM tracks t JOIN albums al ON t.album_id = al.id
		WHERE al.release_group_mbid = ? AND t.track_number IS NOT NULL`,
		releaseGroupMBID)
	if err != nil {
		return nil, fmt.Errorf("owned track numbers: %w", err)
	}
	defer rows.Close()

	owned := make(map[int]struct{})
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan track number: %w", err)
		}
		owned[n] = struct{}{}
	}
	return owned, rows.Err()
}

// Stats returns per-source index counts.
func (s *Store) Stats(ctx context.Context, sourceID int64) (*SourceStats, error) {
	stats := &SourceStats{SourceID: sourceID}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM media_items WHERE source_id = ? AND media_type = 'movie'`, sourceID).
		Scan(&stats.Movies)
	if err != nil {
		return nil, fmt.Errorf("count movies: %w", err)
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM media_items WHERE source_id = ? AND media_type = 'episode'`, sourceID).
		Scan(&stats.Episodes)
	if err != nil {
		return nil, fmt.Errorf("count episodes: %w", err)
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM artists WHERE source_id = ?`, sourceID).Scan(&stats.Artists)
	if err != nil {
		return nil, fmt.Errorf("count artists: %w", err)
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM albums WHERE source_id = ?`, sourceID).Scan(&stats.Albums)
	if err != nil {
		return nil, fmt.Errorf("count albums: %w", err)
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tracks WHERE source_id = ?`, sourceID).Scan(&stats.Tracks)
	if err != nil {
		return nil, fmt.Errorf("count tracks: %w", err)
	}
	return stats, nil
}

// AddExclusion marks a missing item as dismissed. The key is the catalog
// identity of the missing item (e.g. "s2e5", a TMDB id, a release group id).
func (s *Store) AddExclusion(ctx context.Context, entityType, catalogKey string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exclusions (entity_type, catalog_key) VALUES (?, ?)
		ON CONFLICT (entity_type, catalog_key) DO NOTHING`,
		entityType, catalogKey)
	if err != nil {
		return fmt.Errorf("add exclusion: %w", err)
	}
	return nil
}

// RemoveExclusion clears a dismissal.
func (s *Store) RemoveExclusion(ctx context.Context, entityType, catalogKey string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM exclusions WHERE entity_type = ? AND catalog_key = ?`,
		entityType, catalogKey)
	if err != nil {
		return fmt.Errorf("remove exclusion: %w", err)
	}
	return nil
}

// ListAllExclusions returns every exclusion key set, grouped by entity type.
func (s *Store) ListAllExclusions(ctx context.Context) (map[string]map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT entity_type, catalog_key FROM exclusions`)
	if err != nil {
		return nil, fmt.Errorf("list exclusions: %w", err)
	}
	defer rows.Close()

	byType := make(map[string]map[string]struct{})
	for rows.Next() {
		var entityType, key string
		if err := rows.Scan(&entityType, &key); err != nil {
			return nil, fmt.Errorf("scan exclusion: %w", err)
		}
		if byType[entityType] == nil {
			byType[entityType] = make(map[string]struct{})
		}
		byType[entityType][key] = struct{}{}
	}
	return byType, rows.Err()
}

// ListExclusions returns the exclusion key set for one entity type.
func (s *Store) ListExclusions(ctx context.Context, entityType string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT catalog_key FROM exclusions WHERE entity_type = ?`, entityType)
	if err != nil {
		return nil, fmt.Errorf("list exclusions: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan exclusion: %w", err)
		}
		keys[key] = struct{}{}
	}
	return keys, rows.Err()
}

// LastScanTime returns the most recent last_scanned_at across a source's
// items and tracks, used as the incremental scan cursor. Zero means the
// source has never been scanned.
func (s *Store) LastScanTime(ctx context.Context, sourceID int64) (time.Time, error) {
	var last time.Time
	for _, table := range []string{"media_items", "tracks"} {
		var t time.Time
		err := s.db.QueryRowContext(ctx,
			`SELECT last_scanned_at FROM `+table+` WHERE source_id = ? ORDER BY last_scanned_at DESC LIMIT 1`,
			sourceID).Scan(&t)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return time.Time{}, fmt.Errorf("last scan time: %w", err)
		}
		if t.After(last) {
			last = t
		}
	}
	return last, nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(i int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(i), Valid: i != 0}
}

func nullInt64(i int64) sql.NullInt64 {
	return sql.NullInt64{Int64: i, Valid: i != 0}
}
