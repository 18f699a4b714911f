package authors

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/catalog"
	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/database"
	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *database.Store {
	t.Helper()
	store, err := database.OpenSQLite(filepath.Join(t.TempDir(), "catalog.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestService(t *testing.T, store Store) *Service {
	t.Helper()
	service, err := NewService(ServiceConfig{Store: store, Logger: zap.NewNop()})
	require.NoError(t, err)
	return service
}

func text(value string) dataset.Text {
	return dataset.Text{Value: value, Valid: true}
}

func sourceBook(title, isbn13 string, authorNames ...string) dataset.SourceBook {
	book := dataset.SourceBook{Title: text(title), Categories: []string{"Fiction"}}
	if isbn13 != "" {
		book.ISBN13 = text(isbn13)
	}
	for _, name := range authorNames {
		book.Authors = append(book.Authors, dataset.SourceAuthor{Name: name})
	}
	return book
}

func TestResolveIdentitiesDeduplicatesNames(t *testing.T) {
	books := []dataset.SourceBook{
		sourceBook("One", "", "Dante Alighieri", "Giovanni Boccaccio"),
		sourceBook("Two", "", "Giovanni Boccaccio"),
		sourceBook("Three", "", "Dante Alighieri", "Francesco Petrarca"),
	}

	identities, err := ResolveIdentities(books)
	require.NoError(t, err)
	assert.Equal(t, 3, identities.Len())
	assert.Equal(t, []string{"Dante Alighieri", "Giovanni Boccaccio", "Francesco Petrarca"}, identities.order)

	id, ok := identities.ID("Giovanni Boccaccio")
	require.True(t, ok)
	assert.Equal(t, catalog.AuthorID("Giovanni Boccaccio"), id)

	reordered, err := ResolveIdentities([]dataset.SourceBook{books[2], books[1], books[0]})
	require.NoError(t, err)
	reorderedID, _ := reordered.ID("Giovanni Boccaccio")
	assert.Equal(t, id, reorderedID)
}

func TestResolveIdentitiesRejectsBlankName(t *testing.T) {
	_, err := ResolveIdentities([]dataset.SourceBook{sourceBook("One", "", "  ")})
	assert.ErrorIs(t, err, catalog.ErrMissingField)
}

func TestRunEmbedsSelfInclusiveCoAuthors(t *testing.T) {
	store := newTestStore(t)
	service := newTestService(t, store)
	ctx := context.Background()

	books := []dataset.SourceBook{sourceBook("Il giardino", "9788800000001", "Anna Rossi", "Marco Neri")}
	result, err := service.Run(ctx, books)
	require.NoError(t, err)
	assert.Equal(t, Result{DistinctAuthors: 2, AuthorsCreated: 2, BooksCreated: 1, BackLinks: 2}, result)

	storedAuthors, err := store.ListAuthors(ctx)
	require.NoError(t, err)
	require.Len(t, storedAuthors, 2)

	expected := []catalog.AuthorSummary{
		{ID: catalog.AuthorID("Anna Rossi"), FullName: "Anna Rossi"},
		{ID: catalog.AuthorID("Marco Neri"), FullName: "Marco Neri"},
	}
	for _, author := range storedAuthors {
		require.Len(t, author.Books, 1)
		assert.Equal(t, expected, author.Books[0].Authors)
		assert.Equal(t, "Il giardino", author.Books[0].Title)
	}

	storedBooks, err := store.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, storedBooks, 1)
	assert.Equal(t, expected, storedBooks[0].Authors)
	assert.Zero(t, storedBooks[0].ReadingsCount)
	assert.Empty(t, storedBooks[0].Branches)
	assert.Nil(t, storedBooks[0].Subtitle)
}

func TestRunKeepsBookSummariesUnique(t *testing.T) {
	store := newTestStore(t)
	service := newTestService(t, store)
	ctx := context.Background()

	duplicate := sourceBook("Ripetuto", "9788800000002", "Anna Rossi")
	books := []dataset.SourceBook{duplicate, sourceBook("Altro", "", "Anna Rossi"), duplicate}

	result, err := service.Run(ctx, books)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DistinctAuthors)
	assert.Equal(t, 2, result.BooksCreated)
	assert.Equal(t, 1, result.BooksSkipped)

	storedAuthors, err := store.ListAuthors(ctx)
	require.NoError(t, err)
	require.Len(t, storedAuthors, 1)
	seen := map[string]bool{}
	for _, summary := range storedAuthors[0].Books {
		assert.False(t, seen[summary.ID], "duplicate summary %s", summary.ID)
		seen[summary.ID] = true
	}
	assert.Len(t, seen, 2)
}

func TestRunKeepsBooksSharingAnISBNApart(t *testing.T) {
	store := newTestStore(t)
	service := newTestService(t, store)
	ctx := context.Background()

	books := []dataset.SourceBook{
		sourceBook("Il nome della rosa", "9788845292613", "Umberto Eco"),
		sourceBook("Se una notte d'inverno", "978-88-45292613", "Italo Calvino", "Alda Merini"),
	}
	result, err := service.Run(ctx, books)
	require.NoError(t, err)
	assert.Equal(t, 2, result.BooksCreated)
	assert.Zero(t, result.BooksSkipped)

	storedBooks, err := store.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, storedBooks, 2)
	byID := map[string]catalog.Book{}
	for _, book := range storedBooks {
		byID[book.ID] = book
	}

	storedAuthors, err := store.ListAuthors(ctx)
	require.NoError(t, err)
	for _, author := range storedAuthors {
		require.Len(t, author.Books, 1)
		book, ok := byID[author.Books[0].ID]
		require.True(t, ok, "%s links a missing book", author.FullName)
		assert.Equal(t, book.Title, author.Books[0].Title)
		assert.Contains(t, book.Authors, catalog.AuthorSummary{ID: author.ID, FullName: author.FullName})
	}
}

func TestRunIsConvergentOnRerun(t *testing.T) {
	store := newTestStore(t)
	service := newTestService(t, store)
	ctx := context.Background()
	books := []dataset.SourceBook{
		sourceBook("Uno", "9788800000003", "Anna Rossi", "Marco Neri"),
		sourceBook("Due", "", "Marco Neri"),
	}

	_, err := service.Run(ctx, books)
	require.NoError(t, err)
	second, err := service.Run(ctx, books)
	require.NoError(t, err)
	assert.Zero(t, second.AuthorsCreated)
	assert.Zero(t, second.BooksCreated)
	assert.Equal(t, 2, second.BooksSkipped)

	storedAuthors, err := store.ListAuthors(ctx)
	require.NoError(t, err)
	assert.Len(t, storedAuthors, 2)
	storedBooks, err := store.ListBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, storedBooks, 2)
}

func TestRunKeepsFirstAuthorDetails(t *testing.T) {
	store := newTestStore(t)
	service := newTestService(t, store)
	ctx := context.Background()

	first := sourceBook("Uno", "", "Anna Rossi")
	first.Authors[0].YearOfBirth = text("1950")
	second := sourceBook("Due", "", "Anna Rossi")
	second.Authors[0].YearOfBirth = text("1960")

	_, err := service.Run(ctx, []dataset.SourceBook{first, second})
	require.NoError(t, err)

	storedAuthors, err := store.ListAuthors(ctx)
	require.NoError(t, err)
	require.Len(t, storedAuthors, 1)
	require.NotNil(t, storedAuthors[0].YearOfBirth)
	assert.Equal(t, "1950", *storedAuthors[0].YearOfBirth)
	assert.Nil(t, storedAuthors[0].About)
}

type failingStore struct {
	Store
	err error
}

func (f failingStore) InsertAuthor(context.Context, catalog.Author) (bool, error) {
	return false, f.err
}

func TestRunWrapsStoreFailures(t *testing.T) {
	storeErr := errors.New("connection refused")
	service := newTestService(t, failingStore{err: storeErr})

	_, err := service.Run(context.Background(), []dataset.SourceBook{sourceBook("Uno", "", "Anna Rossi")})
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)

	var serviceErr *catalog.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "authors.run.author_insert_failed", serviceErr.Code())
}

func TestNewServiceRequiresStore(t *testing.T) {
	_, err := NewService(ServiceConfig{})
	assert.ErrorIs(t, err, errMissingStore)
}
