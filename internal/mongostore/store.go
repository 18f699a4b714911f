// Package mongostore stores the catalog as MongoDB documents, one collection per entity.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/catalog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	collectionAuthors  = "authors"
	collectionBooks    = "books"
	collectionBranches = "branches"
	collectionUsers    = "users"

	fieldID            = "_id"
	fieldBooks         = "books"
	fieldBookIDs       = "books._id"
	fieldBranches      = "branches"
	fieldReadingsCount = "readingsCount"

	duplicateKeyCode = 11000
)

var (
	errMissingURI      = errors.New("mongo uri is required")
	errMissingDatabase = errors.New("mongo database name is required")
)

// Config locates the MongoDB deployment.
type Config struct {
	URI      string
	Database string
}

// Store implements the catalog document contract over MongoDB.
type Store struct {
	client   *mongo.Client
	authors  *mongo.Collection
	books    *mongo.Collection
	branches *mongo.Collection
	users    *mongo.Collection
	logger   *zap.Logger
}

// Open connects, pings the deployment and ensures indexes.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.URI == "" {
		return nil, errMissingURI
	}
	if cfg.Database == "" {
		return nil, errMissingDatabase
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	database := client.Database(cfg.Database)
	store := &Store{
		client:   client,
		authors:  database.Collection(collectionAuthors),
		books:    database.Collection(collectionBooks),
		branches: database.Collection(collectionBranches),
		users:    database.Collection(collectionUsers),
		logger:   logger,
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	logger.Info("mongo store initialized", zap.String("database", cfg.Database))
	return store, nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// EnsureIndexes creates the geospatial and lookup indexes the catalog is queried by.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []struct {
		collection *mongo.Collection
		model      mongo.IndexModel
	}{
		{s.books, mongo.IndexModel{Keys: bson.D{{Key: "branches.location", Value: "2dsphere"}}}},
		{s.branches, mongo.IndexModel{Keys: bson.D{{Key: "location", Value: "2dsphere"}}}},
		{s.users, mongo.IndexModel{Keys: bson.D{{Key: "location", Value: "2dsphere"}}}},
		{s.authors, mongo.IndexModel{Keys: bson.D{{Key: "fullName", Value: 1}}, Options: options.Index().SetUnique(true)}},
	}
	for _, index := range indexes {
		if _, err := index.collection.Indexes().CreateOne(ctx, index.model); err != nil {
			return fmt.Errorf("create index on %s: %w", index.collection.Name(), err)
		}
	}
	return nil
}

// InsertAuthor writes the author unless one with the same id exists.
func (s *Store) InsertAuthor(ctx context.Context, author catalog.Author) (bool, error) {
	if author.Books == nil {
		author.Books = []catalog.BookSummary{}
	}
	return insertIfAbsent(ctx, s.authors, author)
}

// InsertBook writes the book unless one with the same id exists.
func (s *Store) InsertBook(ctx context.Context, book catalog.Book) (bool, error) {
	return insertIfAbsent(ctx, s.books, book)
}

// InsertBranch writes the branch unless one with the same id exists.
func (s *Store) InsertBranch(ctx context.Context, branch catalog.Branch) (bool, error) {
	return insertIfAbsent(ctx, s.branches, branch)
}

func insertIfAbsent(ctx context.Context, collection *mongo.Collection, document any) (bool, error) {
	_, err := collection.InsertOne(ctx, document)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddAuthorBook pushes summary unless a summary with the same book id is embedded.
func (s *Store) AddAuthorBook(ctx context.Context, authorID string, summary catalog.BookSummary) error {
	filter := bson.D{
		{Key: fieldID, Value: authorID},
		{Key: fieldBookIDs, Value: bson.D{{Key: "$ne", Value: summary.ID}}},
	}
	update := bson.D{{Key: "$push", Value: bson.D{{Key: fieldBooks, Value: summary}}}}
	result, err := s.authors.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount > 0 {
		return nil
	}
	count, err := s.authors.CountDocuments(ctx, bson.D{{Key: fieldID, Value: authorID}}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", catalog.ErrUnknownAuthor, authorID)
	}
	return nil
}

// SetBookBranches replaces the embedded branch assignments of a book.
func (s *Store) SetBookBranches(ctx context.Context, bookID string, branches []catalog.BranchAssignment) error {
	update := bson.D{{Key: "$set", Value: bson.D{{Key: fieldBranches, Value: branches}}}}
	result, err := s.books.UpdateOne(ctx, bson.D{{Key: fieldID, Value: bookID}}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", catalog.ErrUnknownBook, bookID)
	}
	return nil
}

// IncrementReadings applies $inc to the book counter.
func (s *Store) IncrementReadings(ctx context.Context, bookID string, delta int64) error {
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: fieldReadingsCount, Value: delta}}}}
	result, err := s.books.UpdateOne(ctx, bson.D{{Key: fieldID, Value: bookID}}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", catalog.ErrUnknownBook, bookID)
	}
	return nil
}

// UserExists reports whether a user with id has been written.
func (s *Store) UserExists(ctx context.Context, id string) (bool, error) {
	count, err := s.users.CountDocuments(ctx, bson.D{{Key: fieldID, Value: id}}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertUsers inserts without ordering so existing ids are skipped rather than aborting the batch.
func (s *Store) InsertUsers(ctx context.Context, users []catalog.User) (int, error) {
	if len(users) == 0 {
		return 0, nil
	}
	documents := make([]any, 0, len(users))
	for _, user := range users {
		documents = append(documents, user)
	}
	result, err := s.users.InsertMany(ctx, documents, options.InsertMany().SetOrdered(false))
	if err == nil {
		return len(result.InsertedIDs), nil
	}
	var bulkErr mongo.BulkWriteException
	if !errors.As(err, &bulkErr) || bulkErr.WriteConcernError != nil {
		return 0, err
	}
	for _, writeErr := range bulkErr.WriteErrors {
		if writeErr.Code != duplicateKeyCode {
			return 0, err
		}
	}
	return len(users) - len(bulkErr.WriteErrors), nil
}

// ListAuthors returns every author ordered by id.
func (s *Store) ListAuthors(ctx context.Context) ([]catalog.Author, error) {
	var authors []catalog.Author
	if err := findAll(ctx, s.authors, nil, &authors); err != nil {
		return nil, err
	}
	return authors, nil
}

// ListBooks returns every book ordered by id.
func (s *Store) ListBooks(ctx context.Context) ([]catalog.Book, error) {
	var books []catalog.Book
	if err := findAll(ctx, s.books, nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// ListBookBranches projects every book onto its id and branch assignments.
func (s *Store) ListBookBranches(ctx context.Context) ([]catalog.BookBranches, error) {
	var projection []catalog.BookBranches
	fields := bson.D{{Key: fieldID, Value: 1}, {Key: fieldBranches, Value: 1}}
	if err := findAll(ctx, s.books, fields, &projection); err != nil {
		return nil, err
	}
	return projection, nil
}

// ListBranches returns every branch ordered by id.
func (s *Store) ListBranches(ctx context.Context) ([]catalog.Branch, error) {
	var branches []catalog.Branch
	if err := findAll(ctx, s.branches, nil, &branches); err != nil {
		return nil, err
	}
	return branches, nil
}

// ListUsers returns every user ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]catalog.User, error) {
	var users []catalog.User
	if err := findAll(ctx, s.users, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func findAll(ctx context.Context, collection *mongo.Collection, projection bson.D, results any) error {
	opts := options.Find().SetSort(bson.D{{Key: fieldID, Value: 1}})
	if projection != nil {
		opts.SetProjection(projection)
	}
	cursor, err := collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return fmt.Errorf("find %s: %w", collection.Name(), err)
	}
	if err := cursor.All(ctx, results); err != nil {
		return fmt.Errorf("decode %s: %w", collection.Name(), err)
	}
	return nil
}
