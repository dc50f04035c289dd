package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
	"github.com/AntonStoeckl/library-catalog-go/catalog/postgresengine"
)

var fixtureFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load fixture data into an empty catalog",
	Long: `seed inserts languages, countries, genres, publishers, authors, translators, books,
editions and readers from a JSON fixture. Without --file the built-in fixture is used.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := readFixture()
		if err != nil {
			return err
		}

		engine, closeDB, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		return newSeeder(engine).seed(ctx, f)
	},
}

func init() {
	seedCmd.Flags().StringVarP(&fixtureFile, "file", "f", "", "path to a JSON fixture")
	rootCmd.AddCommand(seedCmd)
}

func readFixture() (fixture, error) {
	var r io.Reader = bytes.NewReader(defaultFixture)

	if fixtureFile != "" {
		file, err := os.Open(fixtureFile)
		if err != nil {
			return fixture{}, err
		}
		defer func() { _ = file.Close() }()

		r = file
	}

	return decodeFixture(r)
}

// seeder resolves fixture references to the IDs assigned on insert.
type seeder struct {
	languages   *postgresengine.LanguageRepository
	countries   *postgresengine.CountryRepository
	genres      *postgresengine.GenreRepository
	publishers  *postgresengine.PublisherRepository
	authors     *postgresengine.AuthorRepository
	translators *postgresengine.TranslatorRepository
	books       *postgresengine.BookRepository
	editions    *postgresengine.BookEditionRepository
	readers     *postgresengine.ReaderRepository

	ids map[string]int64
}

func newSeeder(engine *postgresengine.Engine) *seeder {
	return &seeder{
		languages:   postgresengine.NewLanguageRepository(engine),
		countries:   postgresengine.NewCountryRepository(engine),
		genres:      postgresengine.NewGenreRepository(engine),
		publishers:  postgresengine.NewPublisherRepository(engine),
		authors:     postgresengine.NewAuthorRepository(engine),
		translators: postgresengine.NewTranslatorRepository(engine),
		books:       postgresengine.NewBookRepository(engine),
		editions:    postgresengine.NewBookEditionRepository(engine),
		readers:     postgresengine.NewReaderRepository(engine),
		ids:         make(map[string]int64),
	}
}

func ref(kind, name string) string {
	return kind + "/" + name
}

func (s *seeder) optionalID(kind, name string) *int64 {
	if name == "" {
		return nil
	}

	id := s.ids[ref(kind, name)]

	return &id
}

func (s *seeder) seed(ctx context.Context, f fixture) error {
	for _, l := range f.Languages {
		language := catalog.Language{Code: l.Code, Name: l.Name}
		if err := s.languages.Add(ctx, &language); err != nil {
			return fmt.Errorf("language %s: %w", l.Code, err)
		}
		s.ids[ref("language", l.Code)] = language.ID
	}

	for _, c := range f.Countries {
		country := catalog.Country{Code: c.Code, Name: c.Name}
		if err := s.countries.Add(ctx, &country); err != nil {
			return fmt.Errorf("country %s: %w", c.Code, err)
		}
		s.ids[ref("country", c.Code)] = country.ID
	}

	for _, name := range f.Genres {
		genre := catalog.Genre{Name: name}
		if err := s.genres.Add(ctx, &genre); err != nil {
			return fmt.Errorf("genre %s: %w", name, err)
		}
		s.ids[ref("genre", name)] = genre.ID
	}

	for _, p := range f.Publishers {
		publisher := catalog.Publisher{Name: p.Name, CountryID: s.optionalID("country", p.Country)}
		if err := s.publishers.Add(ctx, &publisher); err != nil {
			return fmt.Errorf("publisher %s: %w", p.Name, err)
		}
		s.ids[ref("publisher", p.Name)] = publisher.ID
	}

	for _, a := range f.Authors {
		author := catalog.Author{
			FullName:  a.FullName,
			BirthYear: a.BirthYear,
			DeathYear: a.DeathYear,
			CountryID: s.ids[ref("country", a.Country)],
		}
		if err := s.authors.Add(ctx, &author); err != nil {
			return fmt.Errorf("author %s: %w", a.FullName, err)
		}
		s.ids[ref("author", a.FullName)] = author.ID
	}

	for _, t := range f.Translators {
		translator := catalog.Translator{FullName: t.FullName, CountryID: s.optionalID("country", t.Country)}
		if err := s.translators.Add(ctx, &translator); err != nil {
			return fmt.Errorf("translator %s: %w", t.FullName, err)
		}
		s.ids[ref("translator", t.FullName)] = translator.ID
	}

	for _, b := range f.Books {
		if err := s.seedBook(ctx, b); err != nil {
			return err
		}
	}

	for _, e := range f.Editions {
		if err := s.seedEdition(ctx, e); err != nil {
			return err
		}
	}

	for _, r := range f.Readers {
		reader := catalog.Reader{
			LibraryCardNumber: r.LibraryCardNumber,
			FullName:          r.FullName,
			EmailAddress:      r.EmailAddress,
			PhoneNumber:       r.PhoneNumber,
		}
		if err := s.readers.Add(ctx, reader); err != nil {
			return fmt.Errorf("reader %s: %w", r.LibraryCardNumber, err)
		}
	}

	slog.InfoContext(ctx, "fixture loaded",
		"books", len(f.Books),
		"editions", len(f.Editions),
		"readers", len(f.Readers))

	return nil
}

func (s *seeder) seedBook(ctx context.Context, b bookFixture) error {
	book := catalog.Book{
		OriginalTitle:        b.OriginalTitle,
		OriginalLanguageID:   s.ids[ref("language", b.OriginalLanguage)],
		FirstPublicationYear: b.FirstPublicationYear,
		Description:          b.Description,
	}

	for _, name := range b.Authors {
		book.Authors = append(book.Authors, catalog.Author{ID: s.ids[ref("author", name)]})
	}

	for _, name := range b.Genres {
		book.Genres = append(book.Genres, catalog.Genre{ID: s.ids[ref("genre", name)]})
	}

	if err := s.books.Add(ctx, &book); err != nil {
		return fmt.Errorf("book %s: %w", b.OriginalTitle, err)
	}

	s.ids[ref("book", b.OriginalTitle)] = book.ID

	return nil
}

func (s *seeder) seedEdition(ctx context.Context, e editionFixture) error {
	edition := catalog.BookEdition{
		ISBN:                   e.ISBN,
		Title:                  e.Title,
		BookID:                 s.ids[ref("book", e.Book)],
		LanguageID:             s.ids[ref("language", e.Language)],
		PageCount:              e.PageCount,
		ShelfLocation:          e.ShelfLocation,
		TotalCopies:            e.TotalCopies,
		PublisherID:            s.optionalID("publisher", e.Publisher),
		EditionPublicationYear: e.PublicationYear,
	}

	for _, name := range e.Translators {
		edition.Translators = append(edition.Translators, catalog.Translator{ID: s.ids[ref("translator", name)]})
	}

	if err := s.editions.Add(ctx, &edition); err != nil {
		return fmt.Errorf("edition %s: %w", e.Title, err)
	}

	return nil
}
