package dataset

// SourceAuthor is an author entry nested in a source book.
type SourceAuthor struct {
	Name        string `json:"author_name" validate:"required"`
	YearOfBirth Text   `json:"year_of_birth"`
	YearOfDeath Text   `json:"year_of_death"`
	AvatarURL   Text   `json:"author_avatar"`
	About       Text   `json:"author_about"`
}

// SourceBook is a flat book record with its authors.
type SourceBook struct {
	Title        Text           `json:"title"`
	Subtitle     Text           `json:"subtitle"`
	Issued       Text           `json:"issued"`
	Publisher    Text           `json:"publisher"`
	Language     Text           `json:"language"`
	Categories   []string       `json:"categories"`
	ISBN10       Text           `json:"ISBN 10"`
	ISBN13       Text           `json:"ISBN 13"`
	MainImageURL Text           `json:"main_image_url"`
	Authors      []SourceAuthor `json:"authors" validate:"dive"`
}

// AuthorNames lists the author names in source order.
func (b SourceBook) AuthorNames() []string {
	names := make([]string, 0, len(b.Authors))
	for _, author := range b.Authors {
		names = append(names, author.Name)
	}
	return names
}

// SourceBranch is a flat facility record from the regional library registry.
type SourceBranch struct {
	ISILCode   Text        `json:"codice_isil"`
	Name       string      `json:"denominazione" validate:"required"`
	Street     Text        `json:"indirizzo"`
	City       Text        `json:"comune"`
	Province   Text        `json:"provincia"`
	PostalCode Text        `json:"cap"`
	Longitude  *Coordinate `json:"longitudine" validate:"required"`
	Latitude   *Coordinate `json:"latitudine" validate:"required"`
	Phone      Text        `json:"telefono"`
	Email      Text        `json:"email"`
	URL        Text        `json:"url"`
}

// SourceAddress is the postal address of a source user.
type SourceAddress struct {
	Street     string `json:"street"`
	City       string `json:"city" validate:"required"`
	Province   string `json:"province"`
	PostalCode Text   `json:"postalCode"`
	Country    string `json:"country"`
}

// SourceUser is a flat user record.
type SourceUser struct {
	Username    string        `json:"username" validate:"required_without=Email"`
	Name        string        `json:"name"`
	Surname     string        `json:"surname"`
	DateOfBirth string        `json:"dateOfBirth"`
	Password    string        `json:"password"`
	UserType    string        `json:"userType"`
	Email       string        `json:"email"`
	Address     SourceAddress `json:"address"`
}
