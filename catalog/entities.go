package catalog

import "time"

// Language is a reference entity identified by a surrogate ID and a unique code.
type Language struct {
	ID   int64
	Code string
	Name string
}

// Country is a reference entity identified by a surrogate ID and a unique code.
type Country struct {
	ID   int64
	Code string
	Name string
}

// Publisher optionally references the Country it is based in.
type Publisher struct {
	ID        int64
	Name      string
	CountryID *int64
	Country   *Country
}

// Author of one or many Books.
type Author struct {
	ID        int64
	FullName  string
	BirthYear *int
	DeathYear *int
	CountryID int64
	Country   *Country
}

// Genre is a reference entity with a unique name.
type Genre struct {
	ID   int64
	Name string
}

// Translator of one or many BookEditions.
type Translator struct {
	ID           int64
	FullName     string
	CountryID    *int64
	Country      *Country
	BookEditions []BookEdition
}

// Book is the work itself, independent of any printed edition.
// Authors and Genres are many-to-many associations and use full-replace semantics on update.
type Book struct {
	ID                   int64
	OriginalTitle        string
	OriginalLanguageID   int64
	OriginalLanguage     *Language
	FirstPublicationYear int
	Description          *string
	Authors              []Author
	Genres               []Genre
}

// BookEdition is a lendable edition of a Book.
//
// AvailableCopies is derived on read as TotalCopies minus the number of open loans
// and is never written.
type BookEdition struct {
	ID                     int64
	ISBN                   *string
	Title                  string
	BookID                 int64
	Book                   *Book
	LanguageID             int64
	Language               *Language
	PageCount              int
	ShelfLocation          string
	TotalCopies            int
	AvailableCopies        int
	PublisherID            *int64
	Publisher              *Publisher
	EditionPublicationYear int
	Translators            []Translator
}

// Reader is a borrower, identified by the natural key LibraryCardNumber.
type Reader struct {
	LibraryCardNumber string
	FullName          string
	EmailAddress      *string
	PhoneNumber       *string
}

// Loan of one copy of a BookEdition to a Reader.
// A Loan is open while ReturnDate is nil.
type Loan struct {
	ID                int64
	BookEditionID     int64
	BookEdition       *BookEdition
	LibraryCardNumber string
	Reader            *Reader
	LoanDate          time.Time
	DueDate           time.Time
	ReturnDate        *time.Time
}

// IsOpen reports whether the loan has not been returned yet.
func (l Loan) IsOpen() bool {
	return l.ReturnDate == nil
}

// TopBook is a row of the most-borrowed books report.
type TopBook struct {
	BookID        int64
	OriginalTitle string
	LoanCount     int
}

// TopAuthor is a row of the most-borrowed authors report.
type TopAuthor struct {
	AuthorID  int64
	FullName  string
	LoanCount int
}
