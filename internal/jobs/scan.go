package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/medley-app/medley/internal/media"
	"github.com/medley-app/medley/internal/normalizer"
	"github.com/medley-app/medley/internal/provider"
)

// ScanRunner executes library-scan and music-scan jobs: fetch raw records
// from each source's adapter, normalize them, and upsert them into the local
// index. Malformed records are logged and skipped; an unreachable source
// fails the job.
type ScanRunner struct {
	store      *media.Store
	registry   *provider.Registry
	normalizer *normalizer.Normalizer
	logger     zerolog.Logger
}

// NewScanRunner creates a scan runner.
func NewScanRunner(store *media.Store, registry *provider.Registry, norm *normalizer.Normalizer, logger zerolog.Logger) *ScanRunner {
	return &ScanRunner{
		store:      store,
		registry:   registry,
		normalizer: norm,
		logger:     logger.With().Str("component", "scan").Logger(),
	}
}

// Run implements Runner.
func (r *ScanRunner) Run(ctx context.Context, job *Job, report ReportFunc) (string, error) {
	sources, err := r.sources(ctx, job.Spec.SourceID)
	if err != nil {
		return "", err
	}
	if len(sources) == 0 {
		return "no sources to scan", nil
	}

	total := media.ChangeSet{}
	for i, source := range sources {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		report(i, len(sources), "scanning", source.Name)

		since := time.Time{}
		if !job.Spec.Full {
			since, err = r.store.LastScanTime(ctx, source.ID)
			if err != nil {
				return "", err
			}
		}

		var changes media.ChangeSet
		switch job.Spec.Type {
		case TypeMusicScan:
			changes, err = r.scanMusic(ctx, source, job.Spec.LibraryID)
		default:
			changes, err = r.scanVideo(ctx, source, job.Spec.LibraryID, since)
		}
		if err != nil {
			return "", fmt.Errorf("source %q: %w", source.Name, err)
		}

		total.Added += changes.Added
		total.Updated += changes.Updated
		total.Skipped += changes.Skipped
		report(i+1, len(sources), "scanning", source.Name)
	}

	summary := fmt.Sprintf("%d added, %d updated, %d skipped", total.Added, total.Updated, total.Skipped)
	r.logger.Info().
		Int("added", total.Added).
		Int("updated", total.Updated).
		Int("skipped", total.Skipped).
		Msg("Scan finished")
	return summary, nil
}

func (r *ScanRunner) sources(ctx context.Context, sourceID int64) ([]*media.Source, error) {
	if sourceID != 0 {
		source, err := r.store.GetSource(ctx, sourceID)
		if err != nil {
			return nil, err
		}
		return []*media.Source{source}, nil
	}
	return r.store.ListSources(ctx, true)
}

// libraries returns the library ids to scan for one source. An explicit
// libraryID wins; a source with no configured libraries scans once with the
// empty id, which adapters treat as "everything".
func libraries(source *media.Source, libraryID string) []string {
	if libraryID != "" {
		return []string{libraryID}
	}
	if len(source.Libraries) == 0 {
		return []string{""}
	}
	return source.Libraries
}

func (r *ScanRunner) scanVideo(ctx context.Context, source *media.Source, libraryID string, since time.Time) (media.ChangeSet, error) {
	var changes media.ChangeSet

	adapter, err := r.registry.For(source)
	if err != nil {
		return changes, err
	}

	for _, lib := range libraries(source, libraryID) {
		if provider.Supports(adapter, provider.CapMovies) {
			// Records received before a fetch failure are still upserted, so
			// a connection dropped mid-fetch keeps the completed portion.
			movies, fetchErr := adapter.FetchMovies(ctx, source, lib, since)
			for _, raw := range movies {
				if err := ctx.Err(); err != nil {
					return changes, err
				}
				item, err := r.normalizer.Movie(ctx, source, raw)
				if err != nil {
					r.skip(source, raw.ProviderItemID, err)
					changes.Skipped++
					continue
				}
				r.apply(ctx, item, &changes)
			}
			if fetchErr != nil {
				return changes, fetchErr
			}
		}

		if provider.Supports(adapter, provider.CapEpisodes) {
			episodes, fetchErr := adapter.FetchEpisodes(ctx, source, lib, since)
			for _, raw := range episodes {
				if err := ctx.Err(); err != nil {
					return changes, err
				}
				item, err := r.normalizer.Episode(ctx, source, raw)
				if err != nil {
					r.skip(source, raw.ProviderItemID, err)
					changes.Skipped++
					continue
				}
				r.apply(ctx, item, &changes)
			}
			if fetchErr != nil {
				return changes, fetchErr
			}
		}
	}

	return changes, nil
}

func (r *ScanRunner) apply(ctx context.Context, item *media.MediaItem, changes *media.ChangeSet) {
	created, err := r.store.UpsertItem(ctx, item)
	if err != nil {
		r.logger.Warn().Err(err).
			Str("providerItemId", item.ProviderItemID).
			Msg("Upsert failed, skipping item")
		changes.Skipped++
		return
	}
	if created {
		changes.Added++
	} else {
		changes.Updated++
	}
}

func (r *ScanRunner) scanMusic(ctx context.Context, source *media.Source, libraryID string) (media.ChangeSet, error) {
	var changes media.ChangeSet

	adapter, err := r.registry.For(source)
	if err != nil {
		return changes, err
	}
	if !provider.Supports(adapter, provider.CapMusic) {
		r.logger.Debug().Str("source", source.Name).Msg("Source has no music capability, skipping")
		return changes, nil
	}

	for _, lib := range libraries(source, libraryID) {
		rawArtists, fetchErr := adapter.FetchArtists(ctx, source, lib)
		if errors.Is(fetchErr, provider.ErrUnsupported) {
			continue
		}

		// Artist and album ids are resolved as we go so albums and
		// tracks can reference their parents.
		artistIDs := make(map[string]int64)
		for _, raw := range rawArtists {
			if err := ctx.Err(); err != nil {
				return changes, err
			}
			artist, err := r.normalizer.Artist(source, raw)
			if err != nil {
				r.skip(source, raw.ProviderItemID, err)
				changes.Skipped++
				continue
			}
			id, created, err := r.store.UpsertArtist(ctx, artist)
			if err != nil {
				r.skip(source, raw.ProviderItemID, err)
				changes.Skipped++
				continue
			}
			artistIDs[raw.ProviderItemID] = id
			if created {
				changes.Added++
			} else {
				changes.Updated++
			}
		}
		if fetchErr != nil {
			return changes, fetchErr
		}

		rawAlbums, fetchErr := adapter.FetchAlbums(ctx, source, lib)
		albumIDs := make(map[string]int64)
		for _, raw := range rawAlbums {
			if err := ctx.Err(); err != nil {
				return changes, err
			}
			album, err := r.normalizer.Album(source, raw, artistIDs[raw.ArtistItemID])
			if err != nil {
				r.skip(source, raw.ProviderItemID, err)
				changes.Skipped++
				continue
			}
			id, created, err := r.store.UpsertAlbum(ctx, album)
			if err != nil {
				r.skip(source, raw.ProviderItemID, err)
				changes.Skipped++
				continue
			}
			albumIDs[raw.ProviderItemID] = id
			if created {
				changes.Added++
			} else {
				changes.Updated++
			}
		}
		if fetchErr != nil {
			return changes, fetchErr
		}

		rawTracks, fetchErr := adapter.FetchTracks(ctx, source, lib)
		for _, raw := range rawTracks {
			if err := ctx.Err(); err != nil {
				return changes, err
			}
			track, err := r.normalizer.Track(ctx, source, raw, albumIDs[raw.AlbumItemID])
			if err != nil {
				r.skip(source, raw.ProviderItemID, err)
				changes.Skipped++
				continue
			}
			created, err := r.store.UpsertTrack(ctx, track)
			if err != nil {
				r.skip(source, raw.ProviderItemID, err)
				changes.Skipped++
				continue
			}
			if created {
				changes.Added++
			} else {
				changes.Updated++
			}
		}
		if fetchErr != nil {
			return changes, fetchErr
		}
	}

	return changes, nil
}

func (r *ScanRunner) skip(source *media.Source, providerItemID string, err error) {
	r.logger.Warn().Err(err).
		Str("source", source.Name).
		Str("providerItemId", providerItemID).
		Msg("Skipping record")
}
