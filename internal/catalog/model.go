package catalog

import "slices"

const (
	geoPointType = "Point"
	// DefaultCountry is stamped on every branch address.
	DefaultCountry = "Italia"
)

// GeoPoint is a GeoJSON point. Coordinates are stored longitude first.
type GeoPoint struct {
	Type        string     `bson:"type" json:"type"`
	Coordinates [2]float64 `bson:"coordinates" json:"coordinates"`
}

// NewGeoPoint builds a point from longitude and latitude.
func NewGeoPoint(longitude, latitude float64) GeoPoint {
	return GeoPoint{Type: geoPointType, Coordinates: [2]float64{longitude, latitude}}
}

// Longitude returns the first coordinate.
func (p GeoPoint) Longitude() float64 {
	return p.Coordinates[0]
}

// Latitude returns the second coordinate.
func (p GeoPoint) Latitude() float64 {
	return p.Coordinates[1]
}

// Address is the postal address of a branch or user.
type Address struct {
	Street     string `bson:"street" json:"street"`
	City       string `bson:"city" json:"city"`
	Province   string `bson:"province" json:"province"`
	PostalCode string `bson:"postalCode" json:"postalCode"`
	Country    string `bson:"country" json:"country"`
}

// AuthorSummary is the author snapshot embedded in books, book summaries and user activity.
type AuthorSummary struct {
	ID       string `bson:"_id" json:"id"`
	FullName string `bson:"fullName" json:"fullName"`
}

// BookSummary is the book snapshot embedded in an author. Authors lists every
// contributor of the book, the owning author included.
type BookSummary struct {
	ID            string          `bson:"_id" json:"id"`
	Title         string          `bson:"title" json:"title"`
	Subtitle      *string         `bson:"subtitle" json:"subtitle"`
	Categories    []string        `bson:"categories" json:"categories"`
	CoverImageURL *string         `bson:"coverImageUrl" json:"coverImageUrl"`
	Authors       []AuthorSummary `bson:"authors" json:"authors"`
}

// Author is a person credited on at least one book.
type Author struct {
	ID          string        `bson:"_id" json:"id"`
	FullName    string        `bson:"fullName" json:"fullName"`
	YearOfBirth *string       `bson:"yearOfBirth" json:"yearOfBirth"`
	YearOfDeath *string       `bson:"yearOfDeath" json:"yearOfDeath"`
	AvatarURL   *string       `bson:"avatarUrl" json:"avatarUrl"`
	About       *string       `bson:"about" json:"about"`
	Books       []BookSummary `bson:"books" json:"books"`
}

// HasBook reports whether a summary with bookID is already embedded.
func (a Author) HasBook(bookID string) bool {
	for _, summary := range a.Books {
		if summary.ID == bookID {
			return true
		}
	}
	return false
}

// BranchAssignment is the branch snapshot embedded in a book together with
// the number of copies that branch holds.
type BranchAssignment struct {
	ID             string   `bson:"_id" json:"id"`
	LibraryName    string   `bson:"libraryName" json:"libraryName"`
	Location       GeoPoint `bson:"location" json:"location"`
	Address        Address  `bson:"address" json:"address"`
	NumberOfCopies int      `bson:"numberOfCopies" json:"numberOfCopies"`
}

// Book is a catalog title.
type Book struct {
	ID              string             `bson:"_id" json:"id"`
	Title           string             `bson:"title" json:"title"`
	Subtitle        *string            `bson:"subtitle" json:"subtitle"`
	PublicationDate *string            `bson:"publicationDate" json:"publicationDate"`
	Publisher       *string            `bson:"publisher" json:"publisher"`
	Language        *string            `bson:"language" json:"language"`
	Categories      []string           `bson:"categories" json:"categories"`
	ISBN10          *string            `bson:"isbn10" json:"isbn10"`
	ISBN13          *string            `bson:"isbn13" json:"isbn13"`
	CoverImageURL   *string            `bson:"coverImageUrl" json:"coverImageUrl"`
	Authors         []AuthorSummary    `bson:"authors" json:"authors"`
	Branches        []BranchAssignment `bson:"branches,omitempty" json:"branches,omitempty"`
	ReadingsCount   int64              `bson:"readingsCount" json:"readingsCount"`
}

// Summary returns the snapshot embedded into each contributing author. The
// snapshot owns its slices.
func (b Book) Summary() BookSummary {
	return BookSummary{
		ID:            b.ID,
		Title:         b.Title,
		Subtitle:      b.Subtitle,
		Categories:    slices.Clone(b.Categories),
		CoverImageURL: b.CoverImageURL,
		Authors:       slices.Clone(b.Authors),
	}
}

// BookBranches is the projection of a book onto its branch assignments.
type BookBranches struct {
	BookID   string             `bson:"_id" json:"id"`
	Branches []BranchAssignment `bson:"branches" json:"branches"`
}

// Branch is a library facility. Branches are never modified after insertion.
type Branch struct {
	ID       string   `bson:"_id" json:"id"`
	ISILCode *string  `bson:"isilCode" json:"isilCode"`
	Name     string   `bson:"name" json:"name"`
	Address  Address  `bson:"address" json:"address"`
	Location GeoPoint `bson:"location" json:"location"`
	Phone    *string  `bson:"phone" json:"phone"`
	Email    *string  `bson:"email" json:"email"`
	URL      *string  `bson:"url" json:"url"`
}

// Assignment snapshots the branch with the given number of copies.
func (b Branch) Assignment(copies int) BranchAssignment {
	return BranchAssignment{
		ID:             b.ID,
		LibraryName:    b.Name,
		Location:       b.Location,
		Address:        b.Address,
		NumberOfCopies: copies,
	}
}

// Reading records one loan returned by a user. Branch holds the branch
// location at generation time.
type Reading struct {
	ID         string          `bson:"id" json:"id"`
	Title      string          `bson:"title" json:"title"`
	Authors    []AuthorSummary `bson:"authors" json:"authors"`
	ReturnDate string          `bson:"returnDate" json:"returnDate"`
	LibraryID  string          `bson:"libraryId" json:"libraryId"`
	Branch     GeoPoint        `bson:"branch" json:"branch"`
}

// SavedBook is a bookmarked title.
type SavedBook struct {
	ID      string          `bson:"id" json:"id"`
	Title   string          `bson:"title" json:"title"`
	Authors []AuthorSummary `bson:"authors" json:"authors"`
}

// User is a library patron with synthesized activity.
type User struct {
	ID                string      `bson:"_id" json:"id"`
	Username          string      `bson:"username" json:"username"`
	Name              string      `bson:"name" json:"name"`
	Surname           string      `bson:"surname" json:"surname"`
	DateOfBirth       string      `bson:"dateOfBirth" json:"dateOfBirth"`
	Password          string      `bson:"password" json:"password"`
	UserType          string      `bson:"userType" json:"userType"`
	Email             string      `bson:"email" json:"email"`
	Address           Address     `bson:"address" json:"address"`
	Location          GeoPoint    `bson:"location" json:"location"`
	Readings          []Reading   `bson:"readings" json:"readings"`
	SavedBooks        []SavedBook `bson:"savedBooks" json:"savedBooks"`
	AvgTravelDistance float64     `bson:"avgTravelDistance" json:"avgTravelDistance"`
}
