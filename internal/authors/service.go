// Package authors resolves author identities and writes authors and books
// with their mutually embedded snapshots.
package authors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/catalog"
	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/dataset"
	"go.uber.org/zap"
)

const (
	opServiceNew = "authors.service.new"
	opRun        = "authors.run"
)

var (
	errMissingStore = errors.New("store is required")
	noOpLogger      = zap.NewNop()
)

// Store is the document store surface the resolver writes through.
type Store interface {
	InsertAuthor(ctx context.Context, author catalog.Author) (bool, error)
	InsertBook(ctx context.Context, book catalog.Book) (bool, error)
	AddAuthorBook(ctx context.Context, authorID string, summary catalog.BookSummary) error
}

// ServiceConfig describes the resolver dependencies.
type ServiceConfig struct {
	Store  Store
	Logger *zap.Logger
}

// Service writes authors and books.
type Service struct {
	store  Store
	logger *zap.Logger
}

// Result summarizes one resolver run.
type Result struct {
	DistinctAuthors int `yaml:"distinctAuthors"`
	AuthorsCreated  int `yaml:"authorsCreated"`
	BooksCreated    int `yaml:"booksCreated"`
	BooksSkipped    int `yaml:"booksSkipped"`
	BackLinks       int `yaml:"backLinks"`
}

// NewService validates cfg and builds a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, catalog.NewServiceError(opServiceNew, "missing_store", errMissingStore)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{store: cfg.Store, logger: logger}, nil
}

// Identities maps every distinct author name to its identifier, in first-seen order.
type Identities struct {
	ids   map[string]string
	order []string
}

// ResolveIdentities assigns one identifier per distinct author name.
func ResolveIdentities(books []dataset.SourceBook) (Identities, error) {
	identities := Identities{ids: make(map[string]string)}
	for bookIndex, book := range books {
		for _, author := range book.Authors {
			name := strings.TrimSpace(author.Name)
			if name == "" {
				return Identities{}, fmt.Errorf("%w: author name in book %d", catalog.ErrMissingField, bookIndex)
			}
			if _, seen := identities.ids[name]; seen {
				continue
			}
			identities.ids[name] = catalog.AuthorID(name)
			identities.order = append(identities.order, name)
		}
	}
	return identities, nil
}

// Len returns the number of distinct authors.
func (i Identities) Len() int {
	return len(i.order)
}

// ID returns the identifier assigned to name.
func (i Identities) ID(name string) (string, bool) {
	id, ok := i.ids[strings.TrimSpace(name)]
	return id, ok
}

func (i Identities) summaries(book dataset.SourceBook) ([]catalog.AuthorSummary, error) {
	summaries := make([]catalog.AuthorSummary, 0, len(book.Authors))
	for _, author := range book.Authors {
		id, ok := i.ID(author.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownAuthor, author.Name)
		}
		summaries = append(summaries, catalog.AuthorSummary{ID: id, FullName: strings.TrimSpace(author.Name)})
	}
	return summaries, nil
}

// Run writes every distinct author once, then every book followed by its
// back-links on each contributing author.
func (s *Service) Run(ctx context.Context, books []dataset.SourceBook) (Result, error) {
	identities, err := ResolveIdentities(books)
	if err != nil {
		s.logError(opRun, "resolve_identities_failed", err)
		return Result{}, catalog.NewServiceError(opRun, "resolve_identities_failed", err)
	}
	result := Result{DistinctAuthors: identities.Len()}

	written := make(map[string]struct{}, identities.Len())
	for _, book := range books {
		for _, source := range book.Authors {
			id, _ := identities.ID(source.Name)
			if _, done := written[id]; done {
				continue
			}
			written[id] = struct{}{}
			created, err := s.store.InsertAuthor(ctx, newAuthor(id, source))
			if err != nil {
				s.logError(opRun, "author_insert_failed", err, zap.String("author_id", id))
				return result, catalog.NewServiceError(opRun, "author_insert_failed", err)
			}
			if created {
				result.AuthorsCreated++
			}
		}
	}

	for _, source := range books {
		authorSummaries, err := identities.summaries(source)
		if err != nil {
			s.logError(opRun, "author_lookup_failed", err)
			return result, catalog.NewServiceError(opRun, "author_lookup_failed", err)
		}
		book := newBook(source, authorSummaries)
		created, err := s.store.InsertBook(ctx, book)
		if err != nil {
			s.logError(opRun, "book_insert_failed", err, zap.String("book_id", book.ID))
			return result, catalog.NewServiceError(opRun, "book_insert_failed", err)
		}
		if created {
			result.BooksCreated++
		} else {
			result.BooksSkipped++
		}

		summary := book.Summary()
		for _, author := range authorSummaries {
			if err := s.store.AddAuthorBook(ctx, author.ID, summary); err != nil {
				s.logError(opRun, "author_backlink_failed", err,
					zap.String("author_id", author.ID),
					zap.String("book_id", book.ID))
				return result, catalog.NewServiceError(opRun, "author_backlink_failed", err)
			}
			result.BackLinks++
		}
	}

	s.logger.Info("authors and books written",
		zap.Int("distinct_authors", result.DistinctAuthors),
		zap.Int("authors_created", result.AuthorsCreated),
		zap.Int("books_created", result.BooksCreated),
		zap.Int("books_skipped", result.BooksSkipped),
		zap.Int("back_links", result.BackLinks))
	return result, nil
}

func newAuthor(id string, source dataset.SourceAuthor) catalog.Author {
	return catalog.Author{
		ID:          id,
		FullName:    strings.TrimSpace(source.Name),
		YearOfBirth: source.YearOfBirth.Ptr(),
		YearOfDeath: source.YearOfDeath.Ptr(),
		AvatarURL:   source.AvatarURL.Ptr(),
		About:       source.About.Ptr(),
		Books:       []catalog.BookSummary{},
	}
}

func newBook(source dataset.SourceBook, authorSummaries []catalog.AuthorSummary) catalog.Book {
	id := catalog.BookID(catalog.BookKey{
		ISBN13:      source.ISBN13.String(),
		ISBN10:      source.ISBN10.String(),
		Title:       source.Title.String(),
		AuthorNames: source.AuthorNames(),
	})
	return catalog.Book{
		ID:              id,
		Title:           source.Title.String(),
		Subtitle:        source.Subtitle.Ptr(),
		PublicationDate: source.Issued.Ptr(),
		Publisher:       source.Publisher.Ptr(),
		Language:        source.Language.Ptr(),
		Categories:      source.Categories,
		ISBN10:          source.ISBN10.Ptr(),
		ISBN13:          source.ISBN13.Ptr(),
		CoverImageURL:   source.MainImageURL.Ptr(),
		Authors:         authorSummaries,
		ReadingsCount:   0,
	}
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
	s.logger.Error("authors service error", attrs...)
}
