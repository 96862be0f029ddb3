package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"kaya-scraper/internal/adapter/kaya"
	"kaya-scraper/internal/domain"
	"kaya-scraper/internal/ports"
)

// Mode selects how far back a sync reaches.
type Mode string

const (
	// ModeFull re-pulls every page until the API runs out of data.
	ModeFull Mode = "full"
	// ModeIncremental stops at the first page whose records are all already
	// stored. This assumes the API returns ascents in stable recency order;
	// once a whole page is known, everything after it is treated as synced.
	ModeIncremental Mode = "incremental"
)

const (
	defaultBatchSize    = 1000
	defaultRetryBackoff = 500 * time.Millisecond
)

// SyncOptions tune a single sync run.
type SyncOptions struct {
	Mode        Mode // default: incremental
	BatchSize   int  // flush threshold, default 1000
	StartOffset int
}

// SyncResult reports what a run wrote. LastBatch is the final flushed batch;
// it is nil when nothing was written.
type SyncResult struct {
	TotalWritten int
	LastBatch    []domain.Ascent
}

// SyncUseCase drives paginated retrieval from an AscentSource into a Store:
// batched idempotent writes, overlap detection against already-stored records
// in incremental mode, page-level retry of transient fetch errors.
type SyncUseCase struct {
	Log    *slog.Logger
	Source ports.AscentSource
	Store  ports.Store

	// PageSize is the fixed upstream page size; zero means kaya.PageSize.
	PageSize int
	// RetryBackoff is the pause before refetching a failed offset.
	RetryBackoff time.Duration
}

// Sync pulls all new ascents for one gym and writes them in batches.
func (uc *SyncUseCase) Sync(ctx context.Context, gymID string, opts SyncOptions) (SyncResult, error) {
	if uc.Source == nil || uc.Store == nil {
		return SyncResult{}, errors.New("usecase not initialized: missing dependencies")
	}
	if opts.Mode == "" {
		opts.Mode = ModeIncremental
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	pageSize := uc.PageSize
	if pageSize <= 0 {
		pageSize = kaya.PageSize
	}
	backoff := uc.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	seen := make(map[string]struct{})
	if opts.Mode == ModeIncremental {
		uc.Log.Debug("loading existing send ids", slog.String("gym_id", gymID))
		existing, err := uc.Store.ExistingSendIDs(ctx, gymID)
		if err != nil {
			return SyncResult{}, err
		}
		seen = existing
	}

	var (
		res     SyncResult
		pending []domain.Ascent
	)
	flush := func() error {
		if err := uc.Store.UpsertAscents(ctx, pending); err != nil {
			return err
		}
		res.TotalWritten += len(pending)
		res.LastBatch = pending
		pending = nil
		return nil
	}

	offset := opts.StartOffset
	for {
		uc.Log.Debug("fetching page", slog.String("gym_id", gymID), slog.Int("offset", offset))
		page, err := uc.Source.AscentsPage(ctx, gymID, offset)
		if err != nil {
			if !retryableFetch(err) {
				return SyncResult{}, err
			}
			uc.Log.Warn("fetch failed, retrying same offset",
				slog.Int("offset", offset), slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return SyncResult{}, ctx.Err()
			case <-time.After(backoff):
			}
			continue
		}
		if len(page) == 0 {
			uc.Log.Debug("no data returned, stopping", slog.Int("offset", offset))
			break
		}
		fetched := len(page)

		if opts.Mode == ModeIncremental {
			survivors := page[:0]
			for _, a := range page {
				if _, ok := seen[a.SendID]; !ok {
					survivors = append(survivors, a)
				}
			}
			if dropped := fetched - len(survivors); dropped > 0 {
				uc.Log.Debug("dropped already-seen ascents",
					slog.Int("offset", offset), slog.Int("dropped", dropped))
			}
			if len(survivors) == 0 {
				// The whole page is known: the incremental frontier is
				// reached and every later page is assumed synced.
				uc.Log.Debug("page fully seen, stopping", slog.Int("offset", offset))
				break
			}
			for _, a := range survivors {
				seen[a.SendID] = struct{}{}
			}
			page = survivors
		}

		pending = append(pending, page...)
		if len(pending) >= opts.BatchSize {
			uc.Log.Info("writing batch", slog.String("gym_id", gymID), slog.Int("count", len(pending)))
			if err := flush(); err != nil {
				return SyncResult{}, err
			}
		}
		if fetched < pageSize {
			uc.Log.Debug("short page, assuming end of data", slog.Int("offset", offset))
			break
		}
		offset += pageSize
	}

	if len(pending) > 0 {
		uc.Log.Info("writing final batch", slog.String("gym_id", gymID), slog.Int("count", len(pending)))
		if err := flush(); err != nil {
			return SyncResult{}, err
		}
	}
	uc.Log.Info("sync completed", slog.String("gym_id", gymID), slog.Int("total_written", res.TotalWritten))
	return res, nil
}

// SyncAll runs Sync for every configured gym in turn. One gym's failure does
// not abort the others; the result maps gym name to "Success" or an error
// string.
func (uc *SyncUseCase) SyncAll(ctx context.Context, gyms map[string]string, opts SyncOptions) map[string]string {
	names := make([]string, 0, len(gyms))
	for name := range gyms {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(gyms))
	for _, name := range names {
		gymID := gyms[name]
		uc.Log.Info("updating gym", slog.String("gym", name), slog.String("gym_id", gymID))
		if _, err := uc.Sync(ctx, gymID, opts); err != nil {
			uc.Log.Error("gym sync failed",
				slog.String("gym", name), slog.String("gym_id", gymID), slog.String("error", err.Error()))
			results[name] = "Error: " + err.Error()
			continue
		}
		results[name] = "Success"
	}
	return results
}

// retryableFetch reports whether a fetch error is transient at the page
// level. HTTP, transport and GraphQL failures are refetched; auth exhaustion,
// refresh failures and configuration errors abort the run. Auth errors are
// checked first: a failed refresh wraps its underlying HTTP or transport
// error and must not be mistaken for it.
func retryableFetch(err error) bool {
	var authErr *kaya.AuthError
	if errors.As(err, &authErr) || errors.Is(err, kaya.ErrAuthRetriesExhausted) {
		return false
	}
	var (
		httpErr      *kaya.HTTPError
		transportErr *kaya.TransportError
		gqlErr       *kaya.GraphQLError
	)
	return errors.As(err, &httpErr) || errors.As(err, &transportErr) || errors.As(err, &gqlErr)
}
