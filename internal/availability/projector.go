// Package availability projects the copy counts embedded in books into a flat
// key-value cache.
package availability

import (
	"context"
	"errors"

	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/catalog"
	"go.uber.org/zap"
)

const (
	opProjectorNew = "availability.projector.new"
	opRun          = "availability.run"
)

var (
	errMissingStore = errors.New("store is required")
	errMissingCache = errors.New("cache is required")
	noOpLogger      = zap.NewNop()
)

// Store reads the branch projection of every book.
type Store interface {
	ListBookBranches(ctx context.Context) ([]catalog.BookBranches, error)
}

// Cache receives one copy count per book and branch.
type Cache interface {
	SetAvailability(ctx context.Context, key string, copies int) error
}

// ProjectorConfig describes the projector dependencies.
type ProjectorConfig struct {
	Store  Store
	Cache  Cache
	Logger *zap.Logger
}

// Projector writes availability records.
type Projector struct {
	store  Store
	cache  Cache
	logger *zap.Logger
}

// Result summarizes one projection.
type Result struct {
	Records      int `yaml:"records"`
	BooksSkipped int `yaml:"booksSkipped"`
}

// NewProjector validates cfg and builds a Projector.
func NewProjector(cfg ProjectorConfig) (*Projector, error) {
	if cfg.Store == nil {
		return nil, catalog.NewServiceError(opProjectorNew, "missing_store", errMissingStore)
	}
	if cfg.Cache == nil {
		return nil, catalog.NewServiceError(opProjectorNew, "missing_cache", errMissingCache)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Projector{store: cfg.Store, cache: cfg.Cache, logger: logger}, nil
}

// Run overwrites one cache entry per embedded branch assignment. Books without
// branches are counted and skipped.
func (p *Projector) Run(ctx context.Context) (Result, error) {
	var result Result

	books, err := p.store.ListBookBranches(ctx)
	if err != nil {
		p.logError(opRun, "book_list_failed", err)
		return result, catalog.NewServiceError(opRun, "book_list_failed", err)
	}

	for _, book := range books {
		if len(book.Branches) == 0 {
			result.BooksSkipped++
			continue
		}
		for _, branch := range book.Branches {
			key := catalog.AvailabilityKey(book.BookID, branch.ID)
			if err := p.cache.SetAvailability(ctx, key, branch.NumberOfCopies); err != nil {
				p.logError(opRun, "cache_write_failed", err, zap.String("key", key))
				return result, catalog.NewServiceError(opRun, "cache_write_failed", err)
			}
			result.Records++
		}
	}

	p.logger.Info("availability projected",
		zap.Int("records", result.Records),
		zap.Int("books_skipped", result.BooksSkipped))
	return result, nil
}

func (p *Projector) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	p.logger.Error("availability projector error", attrs...)
}
