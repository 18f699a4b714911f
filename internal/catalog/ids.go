package catalog

import (
	"strings"

	"github.com/google/uuid"
)

// Identifiers are name-based UUIDs (SHA-1, version 5) so that reseeding the
// same source data yields the same documents.
var (
	authorNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("catalog-seeder/authors"))
	bookNamespace   = uuid.NewSHA1(uuid.NameSpaceURL, []byte("catalog-seeder/books"))
	branchNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("catalog-seeder/branches"))
	userNamespace   = uuid.NewSHA1(uuid.NameSpaceURL, []byte("catalog-seeder/users"))
)

const keySeparator = "\x1f"

// AuthorID derives the identifier of the author with the given full name.
func AuthorID(fullName string) string {
	return uuid.NewSHA1(authorNamespace, []byte(strings.TrimSpace(fullName))).String()
}

// BookKey carries the natural key candidates of a book.
type BookKey struct {
	ISBN13      string
	ISBN10      string
	Title       string
	AuthorNames []string
}

// BookID derives a book identifier from the preferred ISBN (ISBN-13, then
// ISBN-10) together with the title and ordered author names. Two records
// sharing an ISBN but differing in title or authors stay distinct books.
func BookID(key BookKey) string {
	isbn := "none"
	if code := normalizeISBN(key.ISBN13); code != "" {
		isbn = "isbn13:" + code
	} else if code := normalizeISBN(key.ISBN10); code != "" {
		isbn = "isbn10:" + code
	}
	parts := make([]string, 0, len(key.AuthorNames)+2)
	parts = append(parts, isbn, "title:"+strings.TrimSpace(key.Title))
	for _, name := range key.AuthorNames {
		parts = append(parts, strings.TrimSpace(name))
	}
	return uuid.NewSHA1(bookNamespace, []byte(strings.Join(parts, keySeparator))).String()
}

// BranchID derives a branch identifier from its ISIL code, falling back to
// name, street and city.
func BranchID(isilCode, name, street, city string) string {
	if code := strings.ToUpper(strings.TrimSpace(isilCode)); code != "" {
		return uuid.NewSHA1(branchNamespace, []byte("isil:"+code)).String()
	}
	key := strings.Join([]string{
		strings.TrimSpace(name),
		strings.TrimSpace(street),
		strings.TrimSpace(city),
	}, keySeparator)
	return uuid.NewSHA1(branchNamespace, []byte("site:"+key)).String()
}

// UserID derives a user identifier from the username, falling back to email.
func UserID(username, email string) string {
	if name := strings.TrimSpace(username); name != "" {
		return uuid.NewSHA1(userNamespace, []byte("username:"+name)).String()
	}
	return uuid.NewSHA1(userNamespace, []byte("email:"+strings.ToLower(strings.TrimSpace(email)))).String()
}

func normalizeISBN(raw string) string {
	var builder strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == 'x' || r == 'X':
			builder.WriteRune('X')
		}
	}
	return builder.String()
}
