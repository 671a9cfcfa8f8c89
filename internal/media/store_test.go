package media_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medley-app/medley/internal/media"
	"github.com/medley-app/medley/internal/testutil"
)

func newStore(t *testing.T) *media.Store {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	return media.NewStore(tdb.Conn)
}

func createSource(t *testing.T, store *media.Store) int64 {
	t.Helper()
	id, err := store.CreateSource(context.Background(), &media.Source{
		Kind:     media.SourceKindFolder,
		Name:     "test source",
		Settings: map[string]string{"path": "/media"},
		Enabled:  true,
	})
	require.NoError(t, err)
	return id
}

func TestSourceLifecycle(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	id, err := store.CreateSource(ctx, &media.Source{
		Kind:      media.SourceKindJellyfin,
		Name:      "living room",
		Settings:  map[string]string{"url": "http://jf:8096", "apiKey": "k"},
		Libraries: []string{"Movies", "Shows"},
		Enabled:   true,
	})
	require.NoError(t, err)

	src, err := store.GetSource(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, media.SourceKindJellyfin, src.Kind)
	assert.Equal(t, "living room", src.Name)
	assert.Equal(t, "http://jf:8096", src.Settings["url"])
	assert.Equal(t, []string{"Movies", "Shows"}, src.Libraries)
	assert.True(t, src.Enabled)

	_, err = store.CreateSource(ctx, &media.Source{
		Kind: media.SourceKindFolder, Name: "disabled", Enabled: false,
	})
	require.NoError(t, err)

	all, err := store.ListSources(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	enabled, err := store.ListSources(ctx, true)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, id, enabled[0].ID)

	require.NoError(t, store.DeleteSource(ctx, id))
	_, err = store.GetSource(ctx, id)
	assert.ErrorIs(t, err, media.ErrNotFound)
}

func TestUpsertItemCanonicalKey(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	sourceID := createSource(t, store)

	item := &media.MediaItem{
		SourceID:       sourceID,
		ProviderItemID: "jf-123",
		Type:           media.MediaTypeMovie,
		Title:          "Blade Runner",
		Year:           1982,
		TMDBID:         78,
		Attrs:          media.TechnicalAttributes{Resolution: "1080p", VideoCodec: "h264"},
		QualityTier:    "MEDIUM",
		LastScannedAt:  time.Now().UTC(),
	}
	created, err := store.UpsertItem(ctx, item)
	require.NoError(t, err)
	assert.True(t, created, "first upsert should report a new row")

	// Same canonical key with improved attributes updates in place.
	item.Attrs = media.TechnicalAttributes{Resolution: "2160p", VideoCodec: "hevc", HDR: true}
	item.QualityTier = "HIGH"
	created, err = store.UpsertItem(ctx, item)
	require.NoError(t, err)
	assert.False(t, created, "second upsert should update, not insert")

	items, err := store.ListItems(ctx, media.ItemFilter{SourceID: sourceID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "2160p", items[0].Attrs.Resolution)
	assert.True(t, items[0].Attrs.HDR)
	assert.Equal(t, "HIGH", items[0].QualityTier)
}

func TestListItemsFilters(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	sourceID := createSource(t, store)

	seed := []*media.MediaItem{
		{SourceID: sourceID, ProviderItemID: "m1", Type: media.MediaTypeMovie, Title: "Alien", TMDBID: 348},
		{SourceID: sourceID, ProviderItemID: "e1", Type: media.MediaTypeEpisode, Title: "Pilot",
			SeriesTitle: "Severance", SeasonNumber: 1, EpisodeNumber: 1, TMDBID: 95396},
		{SourceID: sourceID, ProviderItemID: "e2", Type: media.MediaTypeEpisode, Title: "Half Loop",
			SeriesTitle: "Severance", SeasonNumber: 1, EpisodeNumber: 2, TMDBID: 95396},
	}
	for _, item := range seed {
		_, err := store.UpsertItem(ctx, item)
		require.NoError(t, err)
	}

	movies, err := store.ListItems(ctx, media.ItemFilter{Type: media.MediaTypeMovie})
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "Alien", movies[0].Title)

	episodes, err := store.ListItems(ctx, media.ItemFilter{SeriesTitle: "Severance"})
	require.NoError(t, err)
	assert.Len(t, episodes, 2)

	byTMDB, err := store.ListItems(ctx, media.ItemFilter{TMDBID: 348})
	require.NoError(t, err)
	assert.Len(t, byTMDB, 1)
}

func TestOwnedSetsForVideo(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	sourceID := createSource(t, store)

	seed := []*media.MediaItem{
		{SourceID: sourceID, ProviderItemID: "m1", Type: media.MediaTypeMovie, Title: "Dune", TMDBID: 438631},
		{SourceID: sourceID, ProviderItemID: "m2", Type: media.MediaTypeMovie, Title: "No ID"},
		{SourceID: sourceID, ProviderItemID: "e1", Type: media.MediaTypeEpisode, Title: "Ep1",
			SeriesTitle: "The Expanse", SeasonNumber: 1, EpisodeNumber: 1, TMDBID: 63639},
		{SourceID: sourceID, ProviderItemID: "e2", Type: media.MediaTypeEpisode, Title: "Ep3",
			SeriesTitle: "The Expanse", SeasonNumber: 1, EpisodeNumber: 3, TMDBID: 63639},
	}
	for _, item := range seed {
		_, err := store.UpsertItem(ctx, item)
		require.NoError(t, err)
	}

	series, err := store.ListOwnedSeries(ctx)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 63639, series[0].TMDBID)
	assert.Equal(t, "The Expanse", series[0].Title)

	keys, err := store.OwnedEpisodeKeys(ctx, 63639)
	require.NoError(t, err)
	assert.Contains(t, keys, media.EpisodeKey{Season: 1, Episode: 1})
	assert.Contains(t, keys, media.EpisodeKey{Season: 1, Episode: 3})
	assert.Len(t, keys, 2)

	movieIDs, err := store.OwnedMovieTMDBIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, movieIDs, 438631)
	assert.Len(t, movieIDs, 1, "movies without a TMDB id are not owned for analysis")
}

func TestMusicHierarchyAndOwnedSets(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	sourceID := createSource(t, store)

	artistID, created, err := store.UpsertArtist(ctx, &media.Artist{
		SourceID:       sourceID,
		ProviderItemID: "Pink Floyd",
		Name:           "Pink Floyd",
		MBID:           "83d91898-7763-47d7-b03b-b92132375c47",
	})
	require.NoError(t, err)
	assert.True(t, created)

	_, created, err = store.UpsertArtist(ctx, &media.Artist{
		SourceID:       sourceID,
		ProviderItemID: "Pink Floyd",
		Name:           "Pink Floyd",
	})
	require.NoError(t, err)
	assert.False(t, created, "same canonical key should update")

	albumID, _, err := store.UpsertAlbum(ctx, &media.Album{
		SourceID:         sourceID,
		ProviderItemID:   "Pink Floyd/The Dark Side of the Moon",
		ArtistID:         artistID,
		Title:            "The Dark Side of the Moon",
		Year:             1973,
		ReleaseGroupMBID: "rg-dsotm",
	})
	require.NoError(t, err)

	for n, title := range map[int]string{1: "Speak to Me", 4: "Time"} {
		_, err := store.UpsertTrack(ctx, &media.Track{
			SourceID:       sourceID,
			ProviderItemID: title,
			AlbumID:        albumID,
			Title:          title,
			TrackNumber:    n,
		})
		require.NoError(t, err)
	}

	artists, err := store.ListOwnedArtists(ctx)
	require.NoError(t, err)
	require.Len(t, artists, 1)
	assert.Equal(t, "83d91898-7763-47d7-b03b-b92132375c47", artists[0].MBID)

	albums, err := store.ListOwnedAlbums(ctx)
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, "rg-dsotm", albums[0].ReleaseGroupMBID)

	groups, err := store.OwnedReleaseGroups(ctx, "83d91898-7763-47d7-b03b-b92132375c47")
	require.NoError(t, err)
	assert.Contains(t, groups, "rg-dsotm")

	numbers, err := store.OwnedTrackNumbers(ctx, "rg-dsotm")
	require.NoError(t, err)
	assert.Contains(t, numbers, 1)
	assert.Contains(t, numbers, 4)
	assert.Len(t, numbers, 2)
}

func TestStatsAndCascadeDelete(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	sourceID := createSource(t, store)

	_, err := store.UpsertItem(ctx, &media.MediaItem{
		SourceID: sourceID, ProviderItemID: "m1", Type: media.MediaTypeMovie, Title: "Movie",
	})
	require.NoError(t, err)
	_, err = store.UpsertItem(ctx, &media.MediaItem{
		SourceID: sourceID, ProviderItemID: "e1", Type: media.MediaTypeEpisode, Title: "Ep",
		SeriesTitle: "Show", SeasonNumber: 1, EpisodeNumber: 1,
	})
	require.NoError(t, err)
	artistID, _, err := store.UpsertArtist(ctx, &media.Artist{
		SourceID: sourceID, ProviderItemID: "a1", Name: "Artist",
	})
	require.NoError(t, err)
	albumID, _, err := store.UpsertAlbum(ctx, &media.Album{
		SourceID: sourceID, ProviderItemID: "al1", ArtistID: artistID, Title: "Album",
	})
	require.NoError(t, err)
	_, err = store.UpsertTrack(ctx, &media.Track{
		SourceID: sourceID, ProviderItemID: "t1", AlbumID: albumID, Title: "Track", TrackNumber: 1,
	})
	require.NoError(t, err)

	stats, err := store.Stats(ctx, sourceID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Movies)
	assert.Equal(t, int64(1), stats.Episodes)
	assert.Equal(t, int64(1), stats.Artists)
	assert.Equal(t, int64(1), stats.Albums)
	assert.Equal(t, int64(1), stats.Tracks)

	require.NoError(t, store.DeleteSource(ctx, sourceID))
	stats, err = store.Stats(ctx, sourceID)
	require.NoError(t, err)
	assert.Zero(t, stats.Movies)
	assert.Zero(t, stats.Episodes)
	assert.Zero(t, stats.Tracks)
}

func TestExclusions(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddExclusion(ctx, "series", "100"))
	require.NoError(t, store.AddExclusion(ctx, "series", "200"))
	// Duplicate add is a no-op.
	require.NoError(t, store.AddExclusion(ctx, "series", "100"))

	keys, err := store.ListExclusions(ctx, "series")
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	require.NoError(t, store.RemoveExclusion(ctx, "series", "100"))
	keys, err = store.ListExclusions(ctx, "series")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
	assert.Contains(t, keys, "200")

	other, err := store.ListExclusions(ctx, "artist")
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, store.AddExclusion(ctx, "artist", "rg-1"))
	all, err := store.ListAllExclusions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Contains(t, all["series"], "200")
	assert.Contains(t, all["artist"], "rg-1")
}

func TestLastScanTime(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	sourceID := createSource(t, store)

	last, err := store.LastScanTime(ctx, sourceID)
	require.NoError(t, err)
	assert.True(t, last.IsZero(), "never-scanned source should report zero time")

	_, err = store.UpsertItem(ctx, &media.MediaItem{
		SourceID: sourceID, ProviderItemID: "m1", Type: media.MediaTypeMovie, Title: "Movie",
	})
	require.NoError(t, err)

	last, err = store.LastScanTime(ctx, sourceID)
	require.NoError(t, err)
	require.False(t, last.IsZero())
	assert.WithinDuration(t, time.Now().UTC(), last, time.Minute)
}

func TestDeleteItemsBySource(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	sourceID := createSource(t, store)
	otherID := createSource(t, store)

	_, err := store.UpsertItem(ctx, &media.MediaItem{
		SourceID: sourceID, ProviderItemID: "m1", Type: media.MediaTypeMovie, Title: "Mine",
	})
	require.NoError(t, err)
	_, err = store.UpsertItem(ctx, &media.MediaItem{
		SourceID: otherID, ProviderItemID: "m1", Type: media.MediaTypeMovie, Title: "Theirs",
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteItemsBySource(ctx, sourceID))

	mine, err := store.ListItems(ctx, media.ItemFilter{SourceID: sourceID})
	require.NoError(t, err)
	assert.Empty(t, mine)

	theirs, err := store.ListItems(ctx, media.ItemFilter{SourceID: otherID})
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}

func TestGetSourceNotFound(t *testing.T) {
	store := newStore(t)
	_, err := store.GetSource(context.Background(), 9999)
	if !errors.Is(err, media.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
