// Package services wires the drive enumerator, sheet reader, normalizer,
// dataset, cache, and store into load cycles and report queries.
package services

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"quasarcli/internal/analytics"
	"quasarcli/internal/cache"
	"quasarcli/internal/config"
	"quasarcli/internal/dataset"
	"quasarcli/internal/drive"
	"quasarcli/internal/errors"
	"quasarcli/internal/infrastructure"
	"quasarcli/internal/normalize"
	"quasarcli/internal/sheets"
	"quasarcli/internal/store"
	"quasarcli/pkg/contracts/domain"
)

// Enumerator lists the spreadsheet sources to load.
type Enumerator interface {
	Enumerate(ctx context.Context) ([]domain.Source, error)
}

// SheetReader fetches the raw worksheets of one source.
type SheetReader interface {
	Read(ctx context.Context, src domain.Source) ([]domain.RawSheet, error)
}

// Store is the durable copy of the normalized dataset. Optional: a nil Store
// disables persistence without failing the loader.
type Store interface {
	Save(ctx context.Context, table domain.Table, fileID, modifiedTime string) error
	LoadAll(ctx context.Context) (map[string]domain.Table, error)
}

// RefreshResult summarizes one load cycle.
type RefreshResult struct {
	CycleID      string   `json:"cycle_id"`
	Sources      int      `json:"sources"`
	Sheets       int      `json:"sheets"`
	Rows         int      `json:"rows"`
	Preserved    int      `json:"preserved_sheets"`
	Restored     bool     `json:"restored_from_store,omitempty"`
	Reindex      bool     `json:"reindex_needed"`
	Fingerprint  string   `json:"fingerprint"`
	Duration     string   `json:"duration"`
	Errors       []string `json:"errors,omitempty"`
}

// LoaderService owns the dataset lifecycle: refresh cycles, change detection,
// durable persistence, and read access for reports and serialization.
type LoaderService struct {
	cfg        *config.Config
	logger     *slog.Logger
	enumerator Enumerator
	reader     SheetReader
	normalizer *normalize.Normalizer
	aggregator *analytics.Aggregator
	cacheMgr   *cache.Manager
	store      Store
	errlog     *errors.Log
	data       *dataset.Dataset

	// Fingerprint of the last cycle that flagged a reindex, held back until
	// CommitFingerprint confirms downstream consumers acted on it.
	pendingFP    string
	pendingCycle string
}

// NewLoaderService assembles a loader from pre-built components. store may be
// nil when persistence is unavailable.
func NewLoaderService(cfg *config.Config, enumerator Enumerator, reader SheetReader, cacheMgr *cache.Manager, st Store, errlog *errors.Log, logger *slog.Logger) *LoaderService {
	if logger == nil {
		logger = slog.Default()
	}
	if errlog == nil {
		errlog = errors.NewLog(cfg.Load.MaxErrors)
	}
	return &LoaderService{
		cfg:        cfg,
		logger:     logger,
		enumerator: enumerator,
		reader:     reader,
		normalizer: normalize.NewNormalizer(logger),
		aggregator: analytics.NewAggregator(cfg.Periods),
		cacheMgr:   cacheMgr,
		store:      st,
		errlog:     errlog,
		data:       dataset.New(),
	}
}

// NewGoogleLoaderService builds the production loader backed by the Google
// Drive and Sheets APIs.
func NewGoogleLoaderService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*LoaderService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	errlog := errors.NewLog(cfg.Load.MaxErrors)
	limiter := cfg.Google.Limiter()
	retrier := infrastructure.NewRetrier(cfg.Load.RetryAttempts, cfg.Load.RetryBackoff, logger)

	driveAPI, err := drive.NewGoogleAPI(ctx, cfg.Google.CredentialsFile, limiter, retrier)
	if err != nil {
		return nil, err
	}
	sheetsAPI, err := sheets.NewGoogleSheets(ctx, cfg.Google.CredentialsFile, limiter, retrier)
	if err != nil {
		return nil, err
	}

	enumerator := drive.NewEnumerator(driveAPI, cfg.Google.FolderID, cfg.Google.Recursive, cfg.Google.SheetIDs, logger, errlog)
	reader, err := sheets.NewReader(sheetsAPI, driveAPI, cfg.Load.IgnoreSheets, logger, errlog)
	if err != nil {
		return nil, err
	}
	cacheMgr, err := cache.NewManager(cfg.Paths.CacheDir, logger)
	if err != nil {
		return nil, err
	}

	var st Store
	ds, err := store.Open(filepath.Join(cfg.Paths.StoreDir, "sheets.sqlite"), logger)
	if err != nil {
		// Persistence is best effort; the loader still works in memory.
		errlog.Append("datastore init: %v", err)
		logger.WarnContext(ctx, "durable store unavailable", slog.String("error", err.Error()))
	} else {
		st = ds
	}

	return NewLoaderService(cfg, enumerator, reader, cacheMgr, st, errlog, logger), nil
}

// Refresh runs one full load cycle: enumerate sources, read and normalize
// every worksheet, merge with the previous cycle, persist, and fingerprint.
// Data from a source that fails this cycle but is still enumerable survives
// from the previous cycle. A Reindex result stays pending until the caller
// acknowledges it via CommitFingerprint; until then subsequent cycles keep
// reporting Reindex for the same data.
func (s *LoaderService) Refresh(ctx context.Context) (RefreshResult, error) {
	if !s.cfg.Configured() {
		return RefreshResult{}, errors.ErrNotConfigured
	}

	cycleID := uuid.New().String()
	ctx = infrastructure.WithCycleID(ctx, cycleID)
	started := time.Now()

	s.logger.InfoContext(ctx, "refresh cycle started")

	sources, err := s.enumerator.Enumerate(ctx)
	if err != nil {
		return RefreshResult{CycleID: cycleID}, err
	}

	enumerated := make(map[string]bool, len(sources))
	for _, src := range sources {
		enumerated[src.ID] = true
	}

	freshRaw := map[string]domain.RawSheet{}
	freshNorm := map[string]domain.Table{}
	for _, src := range sources {
		rawSheets, err := s.reader.Read(ctx, src)
		if err != nil {
			s.errlog.Append("load %s: %v", src.Name, err)
			s.logger.WarnContext(ctx, "source load failed",
				slog.String("source", src.Name),
				slog.String("error", err.Error()))
			continue
		}
		for _, raw := range rawSheets {
			table := s.normalizer.Normalize(raw)
			freshRaw[raw.Key()] = raw
			freshNorm[table.Key()] = table
			s.persist(ctx, table, src)
		}
	}

	prevNorm := s.data.Tables()
	mergedRaw := dataset.MergeRaw(s.data.Raw(), freshRaw, enumerated)
	mergedNorm := dataset.Merge(prevNorm, freshNorm, enumerated)
	preserved := len(mergedNorm) - len(freshNorm)
	if preserved < 0 {
		preserved = 0
	}
	s.data.Replace(mergedRaw, mergedNorm)

	restored := false
	if s.data.Empty() && s.store != nil {
		if tables, err := s.store.LoadAll(ctx); err != nil {
			s.errlog.Append("store restore: %v", err)
		} else if len(tables) > 0 {
			s.data.Hydrate(tables)
			restored = true
			s.logger.InfoContext(ctx, "dataset restored from durable store",
				slog.Int("sheets", len(tables)))
		}
	}

	fp := cache.Fingerprint(s.data.Raw())
	reindex := s.cacheMgr.NeedsReindex(fp)
	if reindex {
		// Persisting now would eat the reindex signal if the consumer dies
		// before acting on it. Held until CommitFingerprint.
		s.pendingFP = fp
		s.pendingCycle = cycleID
	} else {
		s.pendingFP = ""
		s.pendingCycle = ""
	}

	sheetCount, rowCount := s.data.Counts()
	result := RefreshResult{
		CycleID:     cycleID,
		Sources:     len(sources),
		Sheets:      sheetCount,
		Rows:        rowCount,
		Preserved:   preserved,
		Restored:    restored,
		Reindex:     reindex,
		Fingerprint: fp,
		Duration:    time.Since(started).Round(time.Millisecond).String(),
		Errors:      s.errlog.Last(s.cfg.Load.MaxErrors),
	}

	s.logger.InfoContext(ctx, "refresh cycle finished",
		slog.Int("sources", result.Sources),
		slog.Int("sheets", result.Sheets),
		slog.Int("rows", result.Rows),
		slog.Int("preserved", result.Preserved),
		slog.Bool("reindex", result.Reindex),
		slog.Duration("duration", time.Since(started)))

	return result, nil
}

// CommitFingerprint persists the fingerprint of the last cycle that reported
// Reindex. Callers invoke it only after downstream consumers finished the
// rebuild; a crash before the commit leaves the signal armed for the next
// cycle. No-op when no reindex is pending.
func (s *LoaderService) CommitFingerprint(ctx context.Context) error {
	if s.pendingFP == "" {
		return nil
	}
	sheetCount, rowCount := s.data.Counts()
	if err := s.cacheMgr.SaveFingerprint(s.pendingFP); err != nil {
		s.errlog.Append("fingerprint save: %v", err)
		return errors.NewStorageError("failed to persist fingerprint", err)
	}
	if err := s.cacheMgr.SaveMetadata(cache.Metadata{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Fingerprint: s.pendingFP,
		Sheets:      sheetCount,
		Rows:        rowCount,
		CycleID:     s.pendingCycle,
	}); err != nil {
		s.errlog.Append("metadata save: %v", err)
		return errors.NewStorageError("failed to persist cache metadata", err)
	}
	s.logger.InfoContext(ctx, "fingerprint committed",
		slog.String("cycle_id", s.pendingCycle))
	s.pendingFP = ""
	s.pendingCycle = ""
	return nil
}

func (s *LoaderService) persist(ctx context.Context, table domain.Table, src domain.Source) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, table, src.ID, src.ModifiedTime); err != nil {
		s.errlog.Append("persist %s: %v", table.Key(), err)
		s.logger.WarnContext(ctx, "table persist failed",
			slog.String("key", table.Key()),
			slog.String("error", err.Error()))
	}
}

// Dataset exposes the loaded dataset for serialization.
func (s *LoaderService) Dataset() *dataset.Dataset {
	return s.data
}

// Aggregator exposes the configured period aggregator.
func (s *LoaderService) Aggregator() *analytics.Aggregator {
	return s.aggregator
}

// Transactions returns every normalized transaction currently loaded.
func (s *LoaderService) Transactions() []domain.Transaction {
	return s.data.Transactions()
}

// Errors returns the most recent load errors, newest last.
func (s *LoaderService) Errors() []string {
	return s.errlog.Last(s.cfg.Load.MaxErrors)
}
