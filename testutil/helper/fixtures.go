package helper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
	"github.com/AntonStoeckl/library-catalog-go/catalog/postgresengine"
)

func GivenUniqueID(t testing.TB) uuid.UUID {
	id, err := uuid.NewV7()
	require.NoError(t, err, "error in arranging test data")

	return id
}

// Unique returns prefix followed by a fresh UUIDv7, for natural keys that must not collide between tests.
func Unique(t testing.TB, prefix string) string {
	return prefix + "-" + GivenUniqueID(t).String()
}

// Day returns midnight UTC of the given date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func GivenLanguage(t testing.TB, ctx context.Context, engine *postgresengine.Engine) catalog.Language {
	language := catalog.Language{Code: Unique(t, "lang"), Name: Unique(t, "Language")}
	require.NoError(t, postgresengine.NewLanguageRepository(engine).Add(ctx, &language), "error in arranging test data")

	return language
}

func GivenCountry(t testing.TB, ctx context.Context, engine *postgresengine.Engine) catalog.Country {
	country := catalog.Country{Code: Unique(t, "cc"), Name: Unique(t, "Country")}
	require.NoError(t, postgresengine.NewCountryRepository(engine).Add(ctx, &country), "error in arranging test data")

	return country
}

func GivenGenre(t testing.TB, ctx context.Context, engine *postgresengine.Engine) catalog.Genre {
	genre := catalog.Genre{Name: Unique(t, "Genre")}
	require.NoError(t, postgresengine.NewGenreRepository(engine).Add(ctx, &genre), "error in arranging test data")

	return genre
}

func GivenAuthor(t testing.TB, ctx context.Context, engine *postgresengine.Engine, countryID int64) catalog.Author {
	author := catalog.Author{FullName: Unique(t, "Author"), CountryID: countryID}
	require.NoError(t, postgresengine.NewAuthorRepository(engine).Add(ctx, &author), "error in arranging test data")

	return author
}

func GivenTranslator(t testing.TB, ctx context.Context, engine *postgresengine.Engine) catalog.Translator {
	translator := catalog.Translator{FullName: Unique(t, "Translator")}
	require.NoError(t, postgresengine.NewTranslatorRepository(engine).Add(ctx, &translator), "error in arranging test data")

	return translator
}

func GivenPublisher(t testing.TB, ctx context.Context, engine *postgresengine.Engine) catalog.Publisher {
	publisher := catalog.Publisher{Name: Unique(t, "Publisher")}
	require.NoError(t, postgresengine.NewPublisherRepository(engine).Add(ctx, &publisher), "error in arranging test data")

	return publisher
}

func GivenBook(t testing.TB, ctx context.Context, engine *postgresengine.Engine, languageID int64, authors []catalog.Author, genres []catalog.Genre) catalog.Book {
	book := catalog.Book{
		OriginalTitle:        Unique(t, "Book"),
		OriginalLanguageID:   languageID,
		FirstPublicationYear: 1949,
		Authors:              authors,
		Genres:               genres,
	}
	require.NoError(t, postgresengine.NewBookRepository(engine).Add(ctx, &book), "error in arranging test data")

	return book
}

func GivenEdition(t testing.TB, ctx context.Context, engine *postgresengine.Engine, book catalog.Book, totalCopies int, translators ...catalog.Translator) catalog.BookEdition {
	isbn := Unique(t, "978")
	edition := catalog.BookEdition{
		ISBN:                   &isbn,
		Title:                  Unique(t, "Edition"),
		BookID:                 book.ID,
		LanguageID:             book.OriginalLanguageID,
		PageCount:              320,
		ShelfLocation:          "A-01",
		TotalCopies:            totalCopies,
		EditionPublicationYear: 2004,
		Translators:            translators,
	}
	require.NoError(t, postgresengine.NewBookEditionRepository(engine).Add(ctx, &edition), "error in arranging test data")

	return edition
}

func GivenReader(t testing.TB, ctx context.Context, engine *postgresengine.Engine) catalog.Reader {
	reader := catalog.Reader{LibraryCardNumber: Unique(t, "LC"), FullName: Unique(t, "Reader")}
	require.NoError(t, postgresengine.NewReaderRepository(engine).Add(ctx, reader), "error in arranging test data")

	return reader
}

// GivenEditionWithCopies creates the whole chain of language, country, author, book and edition.
func GivenEditionWithCopies(t testing.TB, ctx context.Context, engine *postgresengine.Engine, totalCopies int) catalog.BookEdition {
	language := GivenLanguage(t, ctx, engine)
	author := GivenAuthor(t, ctx, engine, GivenCountry(t, ctx, engine).ID)
	book := GivenBook(t, ctx, engine, language.ID, []catalog.Author{author}, nil)

	return GivenEdition(t, ctx, engine, book, totalCopies)
}

func GivenOpenLoan(t testing.TB, ctx context.Context, engine *postgresengine.Engine, editionID int64, reader catalog.Reader, loanDate time.Time) catalog.Loan {
	loan := catalog.Loan{
		BookEditionID:     editionID,
		LibraryCardNumber: reader.LibraryCardNumber,
		LoanDate:          loanDate,
		DueDate:           loanDate.AddDate(0, 0, 21),
	}
	require.NoError(t, postgresengine.NewLoanRepository(engine).Add(ctx, &loan), "error in arranging test data")

	return loan
}
