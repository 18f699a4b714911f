package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorIDIsStableAcrossCalls(t *testing.T) {
	first := AuthorID("Italo Calvino")
	second := AuthorID("  Italo Calvino ")

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, AuthorID("Umberto Eco"))

	parsed, err := uuid.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())
}

func TestBookIDNormalizesISBN(t *testing.T) {
	withHyphens := BookID(BookKey{ISBN13: "978-88-04-66807-7", Title: "A", AuthorNames: []string{"Italo Calvino"}})
	plain := BookID(BookKey{ISBN13: "9788804668077", Title: "A", AuthorNames: []string{"Italo Calvino"}})
	assert.Equal(t, withHyphens, plain)

	fromTen := BookID(BookKey{ISBN10: "880466807x", Title: "A"})
	assert.Equal(t, fromTen, BookID(BookKey{ISBN10: "880466807X", Title: "A"}))
	assert.NotEqual(t, BookID(BookKey{ISBN13: "9788804668077", Title: "A"}), fromTen)
}

func TestBookIDKeepsSharedISBNDistinct(t *testing.T) {
	eco := BookID(BookKey{ISBN13: "9788845292613", Title: "Il nome della rosa", AuthorNames: []string{"Umberto Eco"}})
	calvino := BookID(BookKey{
		ISBN13:      "978-88-45292613",
		Title:       "Se una notte d'inverno",
		AuthorNames: []string{"Italo Calvino", "Alda Merini"},
	})
	assert.NotEqual(t, eco, calvino)
	assert.NotEqual(t, eco, BookID(BookKey{ISBN13: "9788845292613", Title: "Il nome della rosa", AuthorNames: []string{"Alda Merini"}}))
}

func TestBookIDFallsBackToTitleAndAuthors(t *testing.T) {
	base := BookID(BookKey{Title: "Il barone rampante", AuthorNames: []string{"Italo Calvino"}})
	assert.Equal(t, base, BookID(BookKey{Title: "Il barone rampante ", AuthorNames: []string{"Italo Calvino"}}))
	assert.NotEqual(t, base, BookID(BookKey{Title: "Il barone rampante"}))
	assert.NotEqual(t, base, BookID(BookKey{Title: "Il barone rampante", AuthorNames: []string{"Calvino"}}))
}

func TestNamespacesDoNotCollide(t *testing.T) {
	assert.NotEqual(t, UserID("Pisa", ""), BranchID("", "Pisa", "", ""))
	assert.NotEqual(t, AuthorID("x"), UserID("x", ""))
}

func TestBranchIDFallsBackToSite(t *testing.T) {
	assert.Equal(t, BranchID("it-pi0001", "A", "", ""), BranchID("IT-PI0001", "B", "street", "city"))
	assert.Equal(t, BranchID("", "Biblioteca", "Via Roma 1", "Pisa"), BranchID(" ", "Biblioteca ", "Via Roma 1", "Pisa"))
	assert.NotEqual(t, BranchID("", "Biblioteca", "Via Roma 1", "Pisa"), BranchID("", "Biblioteca", "Via Roma 2", "Pisa"))
}

func TestUserIDFallsBackToEmail(t *testing.T) {
	assert.Equal(t, UserID("", "Reader@Example.com"), UserID("", "reader@example.com"))
	assert.NotEqual(t, UserID("reader", "reader@example.com"), UserID("", "reader@example.com"))
}
