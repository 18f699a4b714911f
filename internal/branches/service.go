// Package branches inserts library facilities and distributes them across books.
package branches

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/catalog"
	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/dataset"
	"go.uber.org/zap"
)

const (
	// BatchSize is the number of consecutive books sharing one branch set.
	BatchSize = 10
	// SupplementaryBranches is the number of random branches added to each batch primary.
	SupplementaryBranches = 3
	// MaxCopies bounds the per-branch copy count, which starts at 1.
	MaxCopies = 5

	opServiceNew = "branches.service.new"
	opRun        = "branches.run"
)

var (
	errMissingStore  = errors.New("store is required")
	errMissingRandom = errors.New("random source is required")
	noOpLogger       = zap.NewNop()
)

// Store is the document store surface the engine writes through.
type Store interface {
	InsertBranch(ctx context.Context, branch catalog.Branch) (bool, error)
	ListBooks(ctx context.Context) ([]catalog.Book, error)
	SetBookBranches(ctx context.Context, bookID string, branches []catalog.BranchAssignment) error
}

// ServiceConfig describes the engine dependencies.
type ServiceConfig struct {
	Store  Store
	Random *rand.Rand
	Logger *zap.Logger
}

// Service assigns branches to books.
type Service struct {
	store  Store
	random *rand.Rand
	logger *zap.Logger
}

// Result summarizes one engine run.
type Result struct {
	BranchesCreated int      `yaml:"branchesCreated"`
	Batches         int      `yaml:"batches"`
	BooksAssigned   int      `yaml:"booksAssigned"`
	Primaries       []string `yaml:"-"`
}

// NewService validates cfg and builds a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, catalog.NewServiceError(opServiceNew, "missing_store", errMissingStore)
	}
	if cfg.Random == nil {
		return nil, catalog.NewServiceError(opServiceNew, "missing_random", errMissingRandom)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{store: cfg.Store, random: cfg.Random, logger: logger}, nil
}

// NewBranches converts source records into branches, dropping repeated identifiers.
func NewBranches(sources []dataset.SourceBranch) []catalog.Branch {
	branches := make([]catalog.Branch, 0, len(sources))
	seen := make(map[string]struct{}, len(sources))
	for _, source := range sources {
		branch := newBranch(source)
		if _, duplicate := seen[branch.ID]; duplicate {
			continue
		}
		seen[branch.ID] = struct{}{}
		branches = append(branches, branch)
	}
	return branches
}

func newBranch(source dataset.SourceBranch) catalog.Branch {
	name := strings.TrimSpace(source.Name)
	return catalog.Branch{
		ID:       catalog.BranchID(source.ISILCode.String(), name, source.Street.String(), source.City.String()),
		ISILCode: source.ISILCode.Ptr(),
		Name:     name,
		Address: catalog.Address{
			Street:     source.Street.String(),
			City:       source.City.String(),
			Province:   source.Province.String(),
			PostalCode: source.PostalCode.String(),
			Country:    catalog.DefaultCountry,
		},
		Location: catalog.NewGeoPoint(source.Longitude.Float64(), source.Latitude.Float64()),
		Phone:    source.Phone.Ptr(),
		Email:    source.Email.Ptr(),
		URL:      source.URL.Ptr(),
	}
}

// Run inserts the branches, then overwrites the branch assignments of every stored book.
func (s *Service) Run(ctx context.Context, sources []dataset.SourceBranch) (Result, error) {
	branches := NewBranches(sources)
	if len(branches) < SupplementaryBranches+1 {
		err := fmt.Errorf("%w: have %d, need at least %d", catalog.ErrInsufficientBranches, len(branches), SupplementaryBranches+1)
		s.logError(opRun, "insufficient_branches", err)
		return Result{}, catalog.NewServiceError(opRun, "insufficient_branches", err)
	}

	var result Result
	for _, branch := range branches {
		created, err := s.store.InsertBranch(ctx, branch)
		if err != nil {
			s.logError(opRun, "branch_insert_failed", err, zap.String("branch_id", branch.ID))
			return result, catalog.NewServiceError(opRun, "branch_insert_failed", err)
		}
		if created {
			result.BranchesCreated++
		}
	}

	books, err := s.store.ListBooks(ctx)
	if err != nil {
		s.logError(opRun, "book_list_failed", err)
		return result, catalog.NewServiceError(opRun, "book_list_failed", err)
	}

	plans := planBatches(books, branches, s.random)
	for _, plan := range plans {
		for _, assignment := range plan.books {
			if err := s.store.SetBookBranches(ctx, assignment.bookID, assignment.branches); err != nil {
				s.logError(opRun, "book_update_failed", err, zap.String("book_id", assignment.bookID))
				return result, catalog.NewServiceError(opRun, "book_update_failed", err)
			}
			result.BooksAssigned++
		}
		result.Batches++
		result.Primaries = append(result.Primaries, plan.primaryID)
	}

	s.logger.Info("branches assigned",
		zap.Int("branches", len(branches)),
		zap.Int("branches_created", result.BranchesCreated),
		zap.Int("batches", result.Batches),
		zap.Int("books_assigned", result.BooksAssigned))
	return result, nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("branches service error", attrs...)
}
