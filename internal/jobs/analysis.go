package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/medley-app/medley/internal/catalog"
	"github.com/medley-app/medley/internal/completeness"
	"github.com/medley-app/medley/internal/media"
)

// AnalysisRunner executes the completeness jobs. Catalog lookups for
// independent entities run in parallel up to a small bound; the catalog
// clients' shared pacers keep the aggregate request rate legal regardless.
type AnalysisRunner struct {
	store       *media.Store
	records     *completeness.Records
	videos      catalog.VideoCatalog
	music       catalog.MusicCatalog
	concurrency int
	logger      zerolog.Logger
}

// NewAnalysisRunner creates an analysis runner.
func NewAnalysisRunner(store *media.Store, records *completeness.Records, videos catalog.VideoCatalog, music catalog.MusicCatalog, concurrency int, logger zerolog.Logger) *AnalysisRunner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &AnalysisRunner{
		store:       store,
		records:     records,
		videos:      videos,
		music:       music,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "analysis").Logger(),
	}
}

// Run implements Runner.
func (r *AnalysisRunner) Run(ctx context.Context, job *Job, report ReportFunc) (string, error) {
	switch job.Spec.Type {
	case TypeSeriesCompleteness:
		return r.runSeries(ctx, report)
	case TypeCollectionCompleteness:
		return r.runCollections(ctx, report)
	case TypeMusicCompleteness:
		return r.runMusic(ctx, report)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, job.Spec.Type)
	}
}

func (r *AnalysisRunner) runSeries(ctx context.Context, report ReportFunc) (string, error) {
	series, err := r.store.ListOwnedSeries(ctx)
	if err != nil {
		return "", err
	}

	now := time.Now()
	var mu sync.Mutex
	var reports []completeness.Report
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, ref := range series {
		ref := ref
		g.Go(func() error {
			info, err := r.videos.SeriesEpisodes(gctx, ref.TMDBID)
			if err != nil {
				return r.lookupErr(gctx, "series", ref.Title, err)
			}

			owned, err := r.store.OwnedEpisodeKeys(gctx, ref.TMDBID)
			if err != nil {
				return err
			}

			rep := completeness.ReconcileSeries(info, owned, now)
			mu.Lock()
			reports = append(reports, rep)
			done++
			report(done, len(series), "series", ref.Title)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	if err := r.records.Replace(ctx, completeness.EntitySeries, reports); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d series analyzed", len(reports)), nil
}

func (r *AnalysisRunner) runCollections(ctx context.Context, report ReportFunc) (string, error) {
	ownedMovies, err := r.store.OwnedMovieTMDBIDs(ctx)
	if err != nil {
		return "", err
	}

	movieIDs := make([]int, 0, len(ownedMovies))
	for id := range ownedMovies {
		movieIDs = append(movieIDs, id)
	}

	now := time.Now()
	var mu sync.Mutex
	collections := make(map[int]completeness.Report)
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, movieID := range movieIDs {
		movieID := movieID
		g.Go(func() error {
			info, err := r.videos.MovieCollection(gctx, movieID)
			if err != nil {
				// Standalone movies belong to no collection.
				if errors.Is(err, catalog.ErrNotFound) {
					mu.Lock()
					done++
					report(done, len(movieIDs), "collections", "")
					mu.Unlock()
					return nil
				}
				return r.lookupErr(gctx, "collection", fmt.Sprintf("movie %d", movieID), err)
			}

			rep := completeness.ReconcileCollection(info, ownedMovies, now)
			mu.Lock()
			collections[info.ID] = rep
			done++
			report(done, len(movieIDs), "collections", info.Name)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	reports := make([]completeness.Report, 0, len(collections))
	for _, rep := range collections {
		reports = append(reports, rep)
	}
	if err := r.records.Replace(ctx, completeness.EntityCollection, reports); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d collections analyzed", len(reports)), nil
}

func (r *AnalysisRunner) runMusic(ctx context.Context, report ReportFunc) (string, error) {
	artists, err := r.store.ListOwnedArtists(ctx)
	if err != nil {
		return "", err
	}
	albums, err := r.store.ListOwnedAlbums(ctx)
	if err != nil {
		return "", err
	}

	now := time.Now()
	total := len(artists) + len(albums)
	var mu sync.Mutex
	var artistReports, albumReports []completeness.Report
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, ref := range artists {
		ref := ref
		g.Go(func() error {
			groups, err := r.music.ArtistReleaseGroups(gctx, ref.MBID)
			if err != nil {
				return r.lookupErr(gctx, "artist", ref.Name, err)
			}

			owned, err := r.store.OwnedReleaseGroups(gctx, ref.MBID)
			if err != nil {
				return err
			}

			rep := completeness.ReconcileDiscography(catalog.ArtistInfo{MBID: ref.MBID, Name: ref.Name}, groups, owned, now)
			mu.Lock()
			artistReports = append(artistReports, rep)
			done++
			report(done, total, "discographies", ref.Name)
			mu.Unlock()
			return nil
		})
	}

	for _, ref := range albums {
		ref := ref
		g.Go(func() error {
			tracks, err := r.music.ReleaseGroupTracks(gctx, ref.ReleaseGroupMBID)
			if err != nil {
				return r.lookupErr(gctx, "album", ref.Title, err)
			}

			owned, err := r.store.OwnedTrackNumbers(gctx, ref.ReleaseGroupMBID)
			if err != nil {
				return err
			}

			rep := completeness.ReconcileAlbumTracks(ref, tracks, owned, now)
			mu.Lock()
			albumReports = append(albumReports, rep)
			done++
			report(done, total, "albums", ref.Title)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}

	if err := r.records.Replace(ctx, completeness.EntityArtist, artistReports); err != nil {
		return "", err
	}
	if err := r.records.Replace(ctx, completeness.EntityAlbum, albumReports); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d artists, %d albums analyzed", len(artistReports), len(albumReports)), nil
}

// lookupErr decides whether a catalog failure aborts the run. Only
// cancellation, rate-limit denials, and credential failures stop the batch:
// retrying the remaining entities under those conditions makes things worse,
// not better. Everything else, including transient network errors, is logged
// and the entity left unresolved so the rest of the run still persists.
func (r *AnalysisRunner) lookupErr(ctx context.Context, kind, name string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, catalog.ErrRateLimited) || errors.Is(err, catalog.ErrAuth) || errors.Is(err, catalog.ErrNotConfigured) {
		return fmt.Errorf("%s %q: %w", kind, name, err)
	}
	if errors.Is(err, catalog.ErrNotFound) {
		r.logger.Warn().Str(kind, name).Msg("Catalog has no entry, skipping")
	} else {
		r.logger.Warn().Err(err).Str(kind, name).Msg("Catalog lookup failed, leaving unresolved")
	}
	return nil
}
