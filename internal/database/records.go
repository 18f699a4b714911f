package database

import "github.com/MarcoPoloResearchLab/catalog-seeder/internal/catalog"

// Embedded snapshots are stored as JSON columns so each entity stays a single row.

type authorRecord struct {
	ID          string                `gorm:"column:id;primaryKey;size:36;not null"`
	FullName    string                `gorm:"column:full_name;size:255;not null;index"`
	YearOfBirth *string               `gorm:"column:year_of_birth;size:64"`
	YearOfDeath *string               `gorm:"column:year_of_death;size:64"`
	AvatarURL   *string               `gorm:"column:avatar_url"`
	About       *string               `gorm:"column:about"`
	Books       []catalog.BookSummary `gorm:"column:books;serializer:json"`
}

func (authorRecord) TableName() string {
	return "authors"
}

type bookRecord struct {
	ID              string                     `gorm:"column:id;primaryKey;size:36;not null"`
	Title           string                     `gorm:"column:title;not null"`
	Subtitle        *string                    `gorm:"column:subtitle"`
	PublicationDate *string                    `gorm:"column:publication_date;size:64"`
	Publisher       *string                    `gorm:"column:publisher"`
	Language        *string                    `gorm:"column:language;size:64"`
	Categories      []string                   `gorm:"column:categories;serializer:json"`
	ISBN10          *string                    `gorm:"column:isbn10;size:32"`
	ISBN13          *string                    `gorm:"column:isbn13;size:32"`
	CoverImageURL   *string                    `gorm:"column:cover_image_url"`
	Authors         []catalog.AuthorSummary    `gorm:"column:authors;serializer:json"`
	Branches        []catalog.BranchAssignment `gorm:"column:branches;serializer:json"`
	ReadingsCount   int64                      `gorm:"column:readings_count;not null;default:0"`
}

func (bookRecord) TableName() string {
	return "books"
}

type addressColumns struct {
	Street     string `gorm:"column:street"`
	City       string `gorm:"column:city;size:128"`
	Province   string `gorm:"column:province;size:64"`
	PostalCode string `gorm:"column:postal_code;size:32"`
	Country    string `gorm:"column:country;size:64"`
}

type branchRecord struct {
	ID        string         `gorm:"column:id;primaryKey;size:36;not null"`
	ISILCode  *string        `gorm:"column:isil_code;size:32"`
	Name      string         `gorm:"column:name;not null"`
	Address   addressColumns `gorm:"embedded;embeddedPrefix:address_"`
	Longitude float64        `gorm:"column:longitude;not null"`
	Latitude  float64        `gorm:"column:latitude;not null"`
	Phone     *string        `gorm:"column:phone;size:64"`
	Email     *string        `gorm:"column:email"`
	URL       *string        `gorm:"column:url"`
}

func (branchRecord) TableName() string {
	return "branches"
}

type userRecord struct {
	ID                string              `gorm:"column:id;primaryKey;size:36;not null"`
	Username          string              `gorm:"column:username;size:190;index"`
	Name              string              `gorm:"column:name"`
	Surname           string              `gorm:"column:surname"`
	DateOfBirth       string              `gorm:"column:date_of_birth;size:32"`
	Password          string              `gorm:"column:password"`
	UserType          string              `gorm:"column:user_type;size:32"`
	Email             string              `gorm:"column:email"`
	Address           addressColumns      `gorm:"embedded;embeddedPrefix:address_"`
	Longitude         float64             `gorm:"column:longitude;not null"`
	Latitude          float64             `gorm:"column:latitude;not null"`
	Readings          []catalog.Reading   `gorm:"column:readings;serializer:json"`
	SavedBooks        []catalog.SavedBook `gorm:"column:saved_books;serializer:json"`
	AvgTravelDistance float64             `gorm:"column:avg_travel_distance;not null;default:0"`
}

func (userRecord) TableName() string {
	return "users"
}

func toAddressColumns(address catalog.Address) addressColumns {
	return addressColumns(address)
}

func (a addressColumns) toAddress() catalog.Address {
	return catalog.Address(a)
}

func newAuthorRecord(author catalog.Author) authorRecord {
	return authorRecord{
		ID:          author.ID,
		FullName:    author.FullName,
		YearOfBirth: author.YearOfBirth,
		YearOfDeath: author.YearOfDeath,
		AvatarURL:   author.AvatarURL,
		About:       author.About,
		Books:       author.Books,
	}
}

func (r authorRecord) toAuthor() catalog.Author {
	return catalog.Author{
		ID:          r.ID,
		FullName:    r.FullName,
		YearOfBirth: r.YearOfBirth,
		YearOfDeath: r.YearOfDeath,
		AvatarURL:   r.AvatarURL,
		About:       r.About,
		Books:       r.Books,
	}
}

func newBookRecord(book catalog.Book) bookRecord {
	return bookRecord{
		ID:              book.ID,
		Title:           book.Title,
		Subtitle:        book.Subtitle,
		PublicationDate: book.PublicationDate,
		Publisher:       book.Publisher,
		Language:        book.Language,
		Categories:      book.Categories,
		ISBN10:          book.ISBN10,
		ISBN13:          book.ISBN13,
		CoverImageURL:   book.CoverImageURL,
		Authors:         book.Authors,
		Branches:        book.Branches,
		ReadingsCount:   book.ReadingsCount,
	}
}

func (r bookRecord) toBook() catalog.Book {
	return catalog.Book{
		ID:              r.ID,
		Title:           r.Title,
		Subtitle:        r.Subtitle,
		PublicationDate: r.PublicationDate,
		Publisher:       r.Publisher,
		Language:        r.Language,
		Categories:      r.Categories,
		ISBN10:          r.ISBN10,
		ISBN13:          r.ISBN13,
		CoverImageURL:   r.CoverImageURL,
		Authors:         r.Authors,
		Branches:        r.Branches,
		ReadingsCount:   r.ReadingsCount,
	}
}

func newBranchRecord(branch catalog.Branch) branchRecord {
	return branchRecord{
		ID:        branch.ID,
		ISILCode:  branch.ISILCode,
		Name:      branch.Name,
		Address:   toAddressColumns(branch.Address),
		Longitude: branch.Location.Longitude(),
		Latitude:  branch.Location.Latitude(),
		Phone:     branch.Phone,
		Email:     branch.Email,
		URL:       branch.URL,
	}
}

func (r branchRecord) toBranch() catalog.Branch {
	return catalog.Branch{
		ID:       r.ID,
		ISILCode: r.ISILCode,
		Name:     r.Name,
		Address:  r.Address.toAddress(),
		Location: catalog.NewGeoPoint(r.Longitude, r.Latitude),
		Phone:    r.Phone,
		Email:    r.Email,
		URL:      r.URL,
	}
}

func newUserRecord(user catalog.User) userRecord {
	return userRecord{
		ID:                user.ID,
		Username:          user.Username,
		Name:              user.Name,
		Surname:           user.Surname,
		DateOfBirth:       user.DateOfBirth,
		Password:          user.Password,
		UserType:          user.UserType,
		Email:             user.Email,
		Address:           toAddressColumns(user.Address),
		Longitude:         user.Location.Longitude(),
		Latitude:          user.Location.Latitude(),
		Readings:          user.Readings,
		SavedBooks:        user.SavedBooks,
		AvgTravelDistance: user.AvgTravelDistance,
	}
}

func (r userRecord) toUser() catalog.User {
	return catalog.User{
		ID:                r.ID,
		Username:          r.Username,
		Name:              r.Name,
		Surname:           r.Surname,
		DateOfBirth:       r.DateOfBirth,
		Password:          r.Password,
		UserType:          r.UserType,
		Email:             r.Email,
		Address:           r.Address.toAddress(),
		Location:          catalog.NewGeoPoint(r.Longitude, r.Latitude),
		Readings:          r.Readings,
		SavedBooks:        r.SavedBooks,
		AvgTravelDistance: r.AvgTravelDistance,
	}
}
