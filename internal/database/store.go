// Package database stores the catalog in a relational database through gorm.
// Each entity is one row; embedded snapshots live in JSON columns.
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/catalog"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	insertBatchSize = 100
	orderByID       = "id ASC"
	queryID         = "id = ?"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

// Store implements the catalog document contract over gorm.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore creates the tables on db and wraps it.
func NewStore(db *gorm.DB, logger *zap.Logger) (*Store, error) {
	if db == nil {
		return nil, errMissingDatabase
	}
	if logger == nil {
		logger = noOpLogger
	}
	if err := db.AutoMigrate(&authorRecord{}, &bookRecord{}, &branchRecord{}, &userRecord{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InsertAuthor writes the author unless one with the same id exists.
func (s *Store) InsertAuthor(ctx context.Context, author catalog.Author) (bool, error) {
	record := newAuthorRecord(author)
	return s.insertIfAbsent(ctx, &record)
}

// InsertBook writes the book unless one with the same id exists.
func (s *Store) InsertBook(ctx context.Context, book catalog.Book) (bool, error) {
	record := newBookRecord(book)
	return s.insertIfAbsent(ctx, &record)
}

// InsertBranch writes the branch unless one with the same id exists.
func (s *Store) InsertBranch(ctx context.Context, branch catalog.Branch) (bool, error) {
	record := newBranchRecord(branch)
	return s.insertIfAbsent(ctx, &record)
}

func (s *Store) insertIfAbsent(ctx context.Context, record any) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// AddAuthorBook appends summary to the author's books unless a summary with
// the same book id is already embedded.
func (s *Store) AddAuthorBook(ctx context.Context, authorID string, summary catalog.BookSummary) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record authorRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where(queryID, authorID).Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", catalog.ErrUnknownAuthor, authorID)
		}
		if err != nil {
			return err
		}
		if record.toAuthor().HasBook(summary.ID) {
			return nil
		}
		record.Books = append(record.Books, summary)
		return tx.Model(&record).Select("books").Updates(&record).Error
	})
}

// SetBookBranches replaces the embedded branch assignments of a book.
func (s *Store) SetBookBranches(ctx context.Context, bookID string, branches []catalog.BranchAssignment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record bookRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").Where(queryID, bookID).Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", catalog.ErrUnknownBook, bookID)
		}
		if err != nil {
			return err
		}
		record.Branches = branches
		return tx.Model(&record).Select("branches").Updates(&record).Error
	})
}

// IncrementReadings adds delta to the book counter in a single statement.
func (s *Store) IncrementReadings(ctx context.Context, bookID string, delta int64) error {
	result := s.db.WithContext(ctx).
		Model(&bookRecord{}).
		Where(queryID, bookID).
		UpdateColumn("readings_count", gorm.Expr("readings_count + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", catalog.ErrUnknownBook, bookID)
	}
	return nil
}

// UserExists reports whether a user with id has been written.
func (s *Store) UserExists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&userRecord{}).Where(queryID, id).Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertUsers writes the users whose ids are not yet present and returns how many were written.
func (s *Store) InsertUsers(ctx context.Context, users []catalog.User) (int, error) {
	if len(users) == 0 {
		return 0, nil
	}
	records := make([]userRecord, 0, len(users))
	for _, user := range users {
		records = append(records, newUserRecord(user))
	}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		CreateInBatches(&records, insertBatchSize)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

// ListAuthors returns every author ordered by id.
func (s *Store) ListAuthors(ctx context.Context) ([]catalog.Author, error) {
	var records []authorRecord
	if err := s.db.WithContext(ctx).Order(orderByID).Find(&records).Error; err != nil {
		return nil, err
	}
	authors := make([]catalog.Author, 0, len(records))
	for _, record := range records {
		authors = append(authors, record.toAuthor())
	}
	return authors, nil
}

// ListBooks returns every book ordered by id.
func (s *Store) ListBooks(ctx context.Context) ([]catalog.Book, error) {
	var records []bookRecord
	if err := s.db.WithContext(ctx).Order(orderByID).Find(&records).Error; err != nil {
		return nil, err
	}
	books := make([]catalog.Book, 0, len(records))
	for _, record := range records {
		books = append(books, record.toBook())
	}
	return books, nil
}

// ListBookBranches projects every book onto its id and branch assignments.
func (s *Store) ListBookBranches(ctx context.Context) ([]catalog.BookBranches, error) {
	var records []bookRecord
	if err := s.db.WithContext(ctx).Select("id", "branches").Order(orderByID).Find(&records).Error; err != nil {
		return nil, err
	}
	projection := make([]catalog.BookBranches, 0, len(records))
	for _, record := range records {
		projection = append(projection, catalog.BookBranches{BookID: record.ID, Branches: record.Branches})
	}
	return projection, nil
}

// ListBranches returns every branch ordered by id.
func (s *Store) ListBranches(ctx context.Context) ([]catalog.Branch, error) {
	var records []branchRecord
	if err := s.db.WithContext(ctx).Order(orderByID).Find(&records).Error; err != nil {
		return nil, err
	}
	branches := make([]catalog.Branch, 0, len(records))
	for _, record := range records {
		branches = append(branches, record.toBranch())
	}
	return branches, nil
}

// ListUsers returns every user ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]catalog.User, error) {
	var records []userRecord
	if err := s.db.WithContext(ctx).Order(orderByID).Find(&records).Error; err != nil {
		return nil, err
	}
	users := make([]catalog.User, 0, len(records))
	for _, record := range records {
		users = append(users, record.toUser())
	}
	return users, nil
}
