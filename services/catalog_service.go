package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"shelfmatch/models"
	"shelfmatch/repository"
)

const defaultCatalogLoadTimeout = 30 * time.Second

// CatalogService loads the catalog once per process and shares it with every caller
type CatalogService struct {
	primary  repository.CatalogSource
	fallback repository.CatalogSource
	mode     ValidationMode
	timeout  time.Duration

	mu       sync.Mutex
	snapshot *models.CatalogSnapshot
	inflight *catalogLoad
}

// catalogLoad is one load shared by all callers that arrive while it runs
type catalogLoad struct {
	done     chan struct{}
	snapshot *models.CatalogSnapshot
	err      error
}

// NewCatalogService creates a catalog service. primary may be nil, in which case only
// the fallback document is read.
func NewCatalogService(primary, fallback repository.CatalogSource, mode ValidationMode) *CatalogService {
	if mode == "" {
		mode = ValidationStrict
	}
	return &CatalogService{
		primary:  primary,
		fallback: fallback,
		mode:     mode,
		timeout:  defaultCatalogLoadTimeout,
	}
}

// Mode returns the validation mode in use
func (s *CatalogService) Mode() ValidationMode {
	return s.mode
}

// Catalog returns the memoized snapshot, loading it on first use. Concurrent first callers
// wait on the same load. A failed load is not memoized.
func (s *CatalogService) Catalog(ctx context.Context) (*models.CatalogSnapshot, error) {
	s.mu.Lock()
	if s.snapshot != nil {
		snapshot := s.snapshot
		s.mu.Unlock()
		return snapshot, nil
	}
	load := s.inflight
	if load == nil {
		load = s.startLoad(ctx)
	}
	s.mu.Unlock()

	select {
	case <-load.done:
		return load.snapshot, load.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reload reads the sources again and swaps the snapshot on success.
// On failure the previous snapshot stays in place.
func (s *CatalogService) Reload(ctx context.Context) error {
	s.mu.Lock()
	load := s.inflight
	if load == nil {
		load = s.startLoad(ctx)
	}
	s.mu.Unlock()

	select {
	case <-load.done:
		return load.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// startLoad must be called with s.mu held
func (s *CatalogService) startLoad(ctx context.Context) *catalogLoad {
	load := &catalogLoad{done: make(chan struct{})}
	s.inflight = load

	// the load outlives the caller that started it
	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	go func() {
		defer cancel()
		snapshot, err := s.load(loadCtx)

		s.mu.Lock()
		if err == nil {
			s.snapshot = snapshot
		}
		s.inflight = nil
		s.mu.Unlock()

		load.snapshot, load.err = snapshot, err
		close(load.done)
	}()
	return load
}

func (s *CatalogService) load(ctx context.Context) (*models.CatalogSnapshot, error) {
	if s.primary != nil {
		snapshot, err := s.loadFrom(ctx, s.primary)
		if err == nil {
			return snapshot, nil
		}
		if s.fallback == nil {
			return nil, err
		}
		log.Printf("⚠️ Catalog source %s failed, falling back to %s: %v", s.primary.Name(), s.fallback.Name(), err)
	}
	if s.fallback == nil {
		return nil, fmt.Errorf("no catalog source configured")
	}
	return s.loadFrom(ctx, s.fallback)
}

func (s *CatalogService) loadFrom(ctx context.Context, source repository.CatalogSource) (*models.CatalogSnapshot, error) {
	start := time.Now()
	rows, err := source.LoadActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog source %s: %w", source.Name(), err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("catalog source %s: %w", source.Name(), models.ErrCatalogEmpty)
	}

	entries, err := ValidateRows(rows, s.mode)
	if err != nil {
		if errors.Is(err, models.ErrMalformedCatalogRow) {
			log.Printf("❌ Catalog from %s rejected (%s mode): %v", source.Name(), s.mode, err)
		}
		return nil, fmt.Errorf("catalog source %s: %w", source.Name(), err)
	}

	log.Printf("✅ Loaded %d catalog entries from %s in %v", len(entries), source.Name(), time.Since(start))
	return &models.CatalogSnapshot{Entries: entries, Source: source.Name()}, nil
}
