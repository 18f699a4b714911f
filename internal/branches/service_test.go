package branches

import (
	"context"
	"fmt"
	"math/rand/v2"
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

func newRandom(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func sourceBranches(count int) []dataset.SourceBranch {
	sources := make([]dataset.SourceBranch, 0, count)
	for i := range count {
		longitude := dataset.Coordinate(10.0 + float64(i)/10)
		latitude := dataset.Coordinate(43.0 + float64(i)/10)
		sources = append(sources, dataset.SourceBranch{
			ISILCode:  dataset.Text{Value: fmt.Sprintf("IT-PI%04d", i), Valid: true},
			Name:      fmt.Sprintf("Biblioteca %d", i),
			City:      dataset.Text{Value: "Pisa", Valid: true},
			Longitude: &longitude,
			Latitude:  &latitude,
		})
	}
	return sources
}

func seedBooks(t *testing.T, store *database.Store, count int) {
	t.Helper()
	for i := range count {
		_, err := store.InsertBook(context.Background(), catalog.Book{ID: fmt.Sprintf("book-%03d", i), Title: "Book"})
		require.NoError(t, err)
	}
}

func TestNewBranchesBuildsGeoPointsAndDeduplicates(t *testing.T) {
	sources := sourceBranches(2)
	sources = append(sources, sources[0])

	branches := NewBranches(sources)
	require.Len(t, branches, 2)
	assert.Equal(t, catalog.NewGeoPoint(10.0, 43.0), branches[0].Location)
	assert.Equal(t, catalog.DefaultCountry, branches[0].Address.Country)
	assert.Equal(t, catalog.BranchID("IT-PI0000", "", "", ""), branches[0].ID)
}

func TestPlanBatchesAssignsPrimaryAndThreeDistinctSupplements(t *testing.T) {
	branches := NewBranches(sourceBranches(6))
	books := make([]catalog.Book, 25)
	for i := range books {
		books[i] = catalog.Book{ID: fmt.Sprintf("book-%02d", i)}
	}

	plans := planBatches(books, branches, newRandom(7))
	require.Len(t, plans, 3)
	assert.Len(t, plans[2].books, 5)

	for batchIndex, plan := range plans {
		assert.Equal(t, branches[batchIndex%len(branches)].ID, plan.primaryID)
		reference := plan.books[0].branches
		for _, book := range plan.books {
			require.Len(t, book.branches, SupplementaryBranches+1)
			assert.Equal(t, plan.primaryID, book.branches[0].ID)

			ids := map[string]bool{}
			for position, assignment := range book.branches {
				assert.Equal(t, reference[position].ID, assignment.ID, "branch identity is shared in a batch")
				assert.GreaterOrEqual(t, assignment.NumberOfCopies, 1)
				assert.LessOrEqual(t, assignment.NumberOfCopies, MaxCopies)
				ids[assignment.ID] = true
			}
			assert.Len(t, ids, SupplementaryBranches+1)
		}
	}
}

func TestPlanBatchesCyclesPrimaries(t *testing.T) {
	branches := NewBranches(sourceBranches(4))
	books := make([]catalog.Book, BatchSize*9)
	for i := range books {
		books[i] = catalog.Book{ID: fmt.Sprintf("book-%03d", i)}
	}

	plans := planBatches(books, branches, newRandom(1))
	require.Len(t, plans, 9)

	firstRound := map[string]bool{}
	for _, plan := range plans[:len(branches)] {
		firstRound[plan.primaryID] = true
	}
	assert.Len(t, firstRound, len(branches), "every branch is primary once before any repeats")
	for i := len(branches); i < len(plans); i++ {
		assert.Equal(t, plans[i-len(branches)].primaryID, plans[i].primaryID)
	}
}

func TestPlanBatchesVariesCopiesPerBook(t *testing.T) {
	branches := NewBranches(sourceBranches(5))
	books := make([]catalog.Book, BatchSize)
	for i := range books {
		books[i] = catalog.Book{ID: fmt.Sprintf("book-%02d", i)}
	}

	plans := planBatches(books, branches, newRandom(42))
	counts := map[int]bool{}
	for _, book := range plans[0].books {
		counts[book.branches[0].NumberOfCopies] = true
	}
	assert.Greater(t, len(counts), 1)
}

func TestSampleOthersExcludesSkip(t *testing.T) {
	random := newRandom(3)
	for range 100 {
		sample := sampleOthers(4, 2, 3, random)
		assert.ElementsMatch(t, []int{0, 1, 3}, sample)
	}
}

func TestRunAssignsFourBranchesToEveryBook(t *testing.T) {
	store := newTestStore(t)
	seedBooks(t, store, 23)
	service, err := NewService(ServiceConfig{Store: store, Random: newRandom(11), Logger: zap.NewNop()})
	require.NoError(t, err)
	ctx := context.Background()

	result, err := service.Run(ctx, sourceBranches(5))
	require.NoError(t, err)
	assert.Equal(t, 5, result.BranchesCreated)
	assert.Equal(t, 3, result.Batches)
	assert.Equal(t, 23, result.BooksAssigned)

	stored, err := store.ListBranches(ctx)
	require.NoError(t, err)
	known := map[string]bool{}
	for _, branch := range stored {
		known[branch.ID] = true
	}

	books, err := store.ListBooks(ctx)
	require.NoError(t, err)
	for index, book := range books {
		require.Len(t, book.Branches, SupplementaryBranches+1)
		assert.Equal(t, result.Primaries[index/BatchSize], book.Branches[0].ID)
		for _, assignment := range book.Branches {
			assert.True(t, known[assignment.ID])
		}
	}
}

func TestRunRejectsTooFewBranchesBeforeWriting(t *testing.T) {
	store := newTestStore(t)
	seedBooks(t, store, 3)
	service, err := NewService(ServiceConfig{Store: store, Random: newRandom(1)})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = service.Run(ctx, sourceBranches(3))
	require.ErrorIs(t, err, catalog.ErrInsufficientBranches)

	stored, err := store.ListBranches(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestRunOverwritesPreviousAssignments(t *testing.T) {
	store := newTestStore(t)
	seedBooks(t, store, 4)
	ctx := context.Background()

	first, err := NewService(ServiceConfig{Store: store, Random: newRandom(1)})
	require.NoError(t, err)
	_, err = first.Run(ctx, sourceBranches(8))
	require.NoError(t, err)

	second, err := NewService(ServiceConfig{Store: store, Random: newRandom(2)})
	require.NoError(t, err)
	result, err := second.Run(ctx, sourceBranches(8))
	require.NoError(t, err)
	assert.Zero(t, result.BranchesCreated)

	books, err := store.ListBooks(ctx)
	require.NoError(t, err)
	for _, book := range books {
		assert.Len(t, book.Branches, SupplementaryBranches+1)
	}
}

func TestNewServiceRequiresRandom(t *testing.T) {
	_, err := NewService(ServiceConfig{Store: newTestStore(t)})
	assert.ErrorIs(t, err, errMissingRandom)
}
