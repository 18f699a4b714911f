// Package audit verifies the cross-entity invariants of a seeded catalog
// without writing to it.
package audit

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/catalog"
	"go.uber.org/zap"
)

// BranchesPerBook is the number of distinct branches an assigned book carries.
const BranchesPerBook = 4

const (
	opAuditorNew = "audit.auditor.new"
	opRun        = "audit.run"
)

// Check names.
const (
	CheckAuthorName       = "author_name_unique"
	CheckBookAuthor       = "book_author_resolves"
	CheckAuthorBooks      = "author_books_unique"
	CheckAuthorBookExists = "author_book_resolves"
	CheckAuthorBookLink   = "author_book_links_back"
	CheckBookAuthorLink   = "book_author_links_back"
	CheckBookBranches     = "book_branches"
	CheckReadingsCount    = "readings_count"
	CheckReadingsTotal    = "readings_total"
	CheckAvailability     = "availability"
)

var (
	errMissingStore = errors.New("store is required")
	noOpLogger      = zap.NewNop()
)

// Store is the read surface the auditor inspects.
type Store interface {
	ListAuthors(ctx context.Context) ([]catalog.Author, error)
	ListBooks(ctx context.Context) ([]catalog.Book, error)
	ListBranches(ctx context.Context) ([]catalog.Branch, error)
	ListUsers(ctx context.Context) ([]catalog.User, error)
}

// Cache reads projected copy counts.
type Cache interface {
	Availability(ctx context.Context, key string) (int, bool, error)
}

// AuditorConfig describes the auditor dependencies. Cache is optional; when
// nil the availability projection is not checked.
type AuditorConfig struct {
	Store  Store
	Cache  Cache
	Logger *zap.Logger
}

// Auditor checks a populated store.
type Auditor struct {
	store  Store
	cache  Cache
	logger *zap.Logger
}

// Violation describes one broken invariant.
type Violation struct {
	Check   string `yaml:"check"`
	Subject string `yaml:"subject"`
	Detail  string `yaml:"detail"`
}

// Report is the outcome of one audit.
type Report struct {
	Authors         int         `yaml:"authors"`
	Books           int         `yaml:"books"`
	UnassignedBooks int         `yaml:"unassignedBooks"`
	Branches        int         `yaml:"branches"`
	Users           int         `yaml:"users"`
	Readings        int         `yaml:"readings"`
	CacheChecked    int         `yaml:"cacheChecked"`
	Violations      []Violation `yaml:"violations"`
}

// OK reports whether no violation was found.
func (r Report) OK() bool {
	return len(r.Violations) == 0
}

func (r *Report) add(check, subject, format string, args ...any) {
	r.Violations = append(r.Violations, Violation{Check: check, Subject: subject, Detail: fmt.Sprintf(format, args...)})
}

// NewAuditor validates cfg and builds an Auditor.
func NewAuditor(cfg AuditorConfig) (*Auditor, error) {
	if cfg.Store == nil {
		return nil, catalog.NewServiceError(opAuditorNew, "missing_store", errMissingStore)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Auditor{store: cfg.Store, cache: cfg.Cache, logger: logger}, nil
}

// Run reads every collection and collects the violations it finds. Errors are
// returned only when the store or cache cannot be read.
func (a *Auditor) Run(ctx context.Context) (Report, error) {
	var report Report

	authors, err := a.store.ListAuthors(ctx)
	if err != nil {
		return report, a.fail("author_list_failed", err)
	}
	books, err := a.store.ListBooks(ctx)
	if err != nil {
		return report, a.fail("book_list_failed", err)
	}
	branches, err := a.store.ListBranches(ctx)
	if err != nil {
		return report, a.fail("branch_list_failed", err)
	}
	users, err := a.store.ListUsers(ctx)
	if err != nil {
		return report, a.fail("user_list_failed", err)
	}
	report.Authors = len(authors)
	report.Books = len(books)
	report.Branches = len(branches)
	report.Users = len(users)

	authorsByID := checkAuthors(&report, authors, books)
	checkBookAuthors(&report, books, authorsByID)
	checkBookBranches(&report, books, branches)
	checkReadings(&report, books, users)

	if a.cache != nil {
		if err := a.checkAvailability(ctx, &report, books); err != nil {
			return report, a.fail("cache_read_failed", err)
		}
	}

	a.logger.Info("audit completed",
		zap.Int("books", report.Books),
		zap.Int("readings", report.Readings),
		zap.Int("violations", len(report.Violations)))
	return report, nil
}

func checkAuthors(report *Report, authors []catalog.Author, books []catalog.Book) map[string]catalog.Author {
	credited := make(map[string]map[string]struct{}, len(books))
	for _, book := range books {
		contributors := make(map[string]struct{}, len(book.Authors))
		for _, summary := range book.Authors {
			contributors[summary.ID] = struct{}{}
		}
		credited[book.ID] = contributors
	}

	byID := make(map[string]catalog.Author, len(authors))
	names := make(map[string]string, len(authors))
	for _, author := range authors {
		byID[author.ID] = author
		if other, seen := names[author.FullName]; seen {
			report.add(CheckAuthorName, author.ID, "name %q also used by %s", author.FullName, other)
		} else {
			names[author.FullName] = author.ID
		}

		summaries := make(map[string]struct{}, len(author.Books))
		for _, summary := range author.Books {
			if _, seen := summaries[summary.ID]; seen {
				report.add(CheckAuthorBooks, author.ID, "book %s embedded more than once", summary.ID)
			}
			summaries[summary.ID] = struct{}{}
			contributors, ok := credited[summary.ID]
			if !ok {
				report.add(CheckAuthorBookExists, author.ID, "book %s does not exist", summary.ID)
				continue
			}
			if _, ok := contributors[author.ID]; !ok {
				report.add(CheckAuthorBookLink, author.ID, "book %s does not list this author", summary.ID)
			}
		}
	}
	return byID
}

func checkBookAuthors(report *Report, books []catalog.Book, authors map[string]catalog.Author) {
	for _, book := range books {
		for _, summary := range book.Authors {
			author, ok := authors[summary.ID]
			if !ok {
				report.add(CheckBookAuthor, book.ID, "author %s does not exist", summary.ID)
				continue
			}
			if !author.HasBook(book.ID) {
				report.add(CheckBookAuthorLink, book.ID, "author %s does not embed this book", summary.ID)
			}
		}
	}
}

func checkBookBranches(report *Report, books []catalog.Book, branches []catalog.Branch) {
	known := make(map[string]struct{}, len(branches))
	for _, branch := range branches {
		known[branch.ID] = struct{}{}
	}

	for _, book := range books {
		if len(book.Branches) == 0 {
			report.UnassignedBooks++
			continue
		}
		distinct := make(map[string]struct{}, len(book.Branches))
		for _, assignment := range book.Branches {
			distinct[assignment.ID] = struct{}{}
			if _, ok := known[assignment.ID]; !ok {
				report.add(CheckBookBranches, book.ID, "branch %s does not exist", assignment.ID)
			}
		}
		if len(book.Branches) != BranchesPerBook || len(distinct) != BranchesPerBook {
			report.add(CheckBookBranches, book.ID, "%d assignments over %d distinct branches, want %d",
				len(book.Branches), len(distinct), BranchesPerBook)
		}
	}
}

func checkReadings(report *Report, books []catalog.Book, users []catalog.User) {
	perBook := make(map[string]int64)
	for _, user := range users {
		report.Readings += len(user.Readings)
		for _, reading := range user.Readings {
			perBook[reading.ID]++
		}
	}

	var counterSum int64
	known := make(map[string]struct{}, len(books))
	for _, book := range books {
		known[book.ID] = struct{}{}
		counterSum += book.ReadingsCount
		if book.ReadingsCount != perBook[book.ID] {
			report.add(CheckReadingsCount, book.ID, "counter %d, readings %d", book.ReadingsCount, perBook[book.ID])
		}
	}

	orphans := make([]string, 0)
	for bookID := range perBook {
		if _, ok := known[bookID]; !ok {
			orphans = append(orphans, bookID)
		}
	}
	sort.Strings(orphans)
	for _, bookID := range orphans {
		report.add(CheckReadingsCount, bookID, "%d readings reference a missing book", perBook[bookID])
	}

	if counterSum != int64(report.Readings) {
		report.add(CheckReadingsTotal, "books", "counters sum to %d, users hold %d readings", counterSum, report.Readings)
	}
}

func (a *Auditor) checkAvailability(ctx context.Context, report *Report, books []catalog.Book) error {
	for _, book := range books {
		for _, assignment := range book.Branches {
			key := catalog.AvailabilityKey(book.ID, assignment.ID)
			copies, ok, err := a.cache.Availability(ctx, key)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			report.CacheChecked++
			switch {
			case !ok:
				report.add(CheckAvailability, key, "missing, want %d", assignment.NumberOfCopies)
			case copies != assignment.NumberOfCopies:
				report.add(CheckAvailability, key, "cached %d, want %d", copies, assignment.NumberOfCopies)
			}
		}
	}
	return nil
}

func (a *Auditor) fail(reason string, err error) error {
	a.logger.Error("audit error",
		zap.String("operation", opRun),
		zap.String("reason", reason),
		zap.Error(err))
	return catalog.NewServiceError(opRun, reason, err)
}
