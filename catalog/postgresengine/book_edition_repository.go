package postgresengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
	"github.com/AntonStoeckl/library-catalog-go/catalog/availability"
	m "github.com/AntonStoeckl/library-catalog-go/catalog/materializer"
)

const tagEdition = "edition"

func editionSegment(alias string) m.Segment {
	return m.Segment{Tag: tagEdition, Table: alias, Key: "book_edition_id", Columns: []m.Column{
		m.Col("book_edition_id", m.Int),
		m.Col("isbn", m.String),
		m.Col("edition_title", m.String),
		m.Col("book_id", m.Int),
		m.Col("language_id", m.Int),
		m.Col("page_count", m.Int),
		m.Col("shelf_location", m.String),
		m.Col("total_copies", m.Int),
		m.Col("publisher_id", m.Int),
		m.Col("edition_publication_year", m.Int),
		m.Col("open_loans", m.Int).From("ol"),
	}}
}

func buildEdition(v m.Values) *catalog.BookEdition {
	total := v.Int("total_copies")

	openLoans := 0
	if n := v.OptInt("open_loans"); n != nil {
		openLoans = *n
	}

	return &catalog.BookEdition{
		ID:                     v.Int64("book_edition_id"),
		ISBN:                   v.OptString("isbn"),
		Title:                  v.String("edition_title"),
		BookID:                 v.Int64("book_id"),
		LanguageID:             v.Int64("language_id"),
		PageCount:              v.Int("page_count"),
		ShelfLocation:          v.String("shelf_location"),
		TotalCopies:            total,
		AvailableCopies:        availability.Snapshot{TotalCopies: total, OpenLoans: openLoans}.AvailableCopies(),
		PublisherID:            v.OptInt64("publisher_id"),
		EditionPublicationYear: v.Int("edition_publication_year"),
	}
}

// openLoans is the derived table "ol" with the number of open loans per edition.
func openLoans() *goqu.SelectDataset {
	return builder.From("book_edition_loan").
		Select(goqu.C("book_edition_id"), goqu.COUNT(goqu.Star()).As("open_loans")).
		Where(goqu.C("return_date").IsNull()).
		GroupBy(goqu.C("book_edition_id")).
		As("ol")
}

// BookEditionRepository stores book editions and reads them as full aggregates:
// book with authors and genres, language, publisher, translators and the derived available copies.
type BookEditionRepository struct {
	table table[catalog.BookEdition]
}

func NewBookEditionRepository(engine *Engine) *BookEditionRepository {
	layout := m.MustLayout(
		editionSegment("be"),
		languageSegment("l"),
		publisherSegment("p"),
		bookSegment("b"),
		authorSegment("a"),
		genreSegment("g"),
		translatorSegment("t"),
	)

	plan := m.Root(layout, tagEdition, buildEdition,
		m.HasOne(tagLanguage, buildLanguage, func(e *catalog.BookEdition, l *catalog.Language) { e.Language = l }),
		m.HasOne(tagPublisher, buildPublisher, func(e *catalog.BookEdition, p *catalog.Publisher) { e.Publisher = p }),
		m.HasOne(tagBook, buildBook, func(e *catalog.BookEdition, b *catalog.Book) { e.Book = b }, bookAuthorsAndGenres()...),
		m.HasMany(tagTranslator, buildTranslator, func(e *catalog.BookEdition, t *catalog.Translator) {
			e.Translators = append(e.Translators, *t)
		}),
	)

	return &BookEditionRepository{table: table[catalog.BookEdition]{
		engine: engine,
		name:   "book_edition",
		alias:  "be",
		key:    "book_edition_id",
		order:  []string{"edition_title"},
		plan:   plan,
		joins: func(ds *goqu.SelectDataset) *goqu.SelectDataset {
			ds = ds.
				LeftJoin(openLoans(), goqu.On(goqu.I("ol.book_edition_id").Eq(goqu.I("be.book_edition_id")))).
				LeftJoin(goqu.T("language").As("l"), goqu.On(goqu.I("l.language_id").Eq(goqu.I("be.language_id")))).
				LeftJoin(goqu.T("publisher").As("p"), goqu.On(goqu.I("p.publisher_id").Eq(goqu.I("be.publisher_id")))).
				LeftJoin(goqu.T("book").As("b"), goqu.On(goqu.I("b.book_id").Eq(goqu.I("be.book_id"))))

			return joinAuthorsAndGenres(ds).
				LeftJoin(goqu.T("book_edition_translator").As("bet"), goqu.On(goqu.I("bet.book_edition_id").Eq(goqu.I("be.book_edition_id")))).
				LeftJoin(goqu.T("translator").As("t"), goqu.On(goqu.I("t.translator_id").Eq(goqu.I("bet.translator_id"))))
		},
		childOrder: []string{
			"a.author_full_name", "a.author_id",
			"g.genre_name", "g.genre_id",
			"t.translator_full_name", "t.translator_id",
		},
	}}
}

func editionRecord(e catalog.BookEdition) goqu.Record {
	return goqu.Record{
		"isbn":                     nullable(e.ISBN),
		"book_id":                  e.BookID,
		"edition_title":            e.Title,
		"language_id":              e.LanguageID,
		"page_count":               e.PageCount,
		"shelf_location":           e.ShelfLocation,
		"total_copies":             e.TotalCopies,
		"publisher_id":             nullable(e.PublisherID),
		"edition_publication_year": e.EditionPublicationYear,
	}
}

// Add inserts the edition with its translator links in one transaction and sets its ID.
// A new edition has no loans, so all of its copies are available.
func (r *BookEditionRepository) Add(ctx context.Context, edition *catalog.BookEdition) error {
	const operation = "book_edition.add"

	return r.table.observedTx(ctx, operation, func(ctx context.Context, tx querier) error {
		id, err := r.table.insert(ctx, tx, operation, editionRecord(*edition))
		if err != nil {
			return err
		}

		if err := editionTranslators.replace(ctx, r.table.engine, tx, operation, id, translatorIDs(edition.Translators)); err != nil {
			return err
		}

		edition.ID = id
		edition.AvailableCopies = edition.TotalCopies

		return nil
	})
}

// Update writes the scalar fields and replaces the translator links in one transaction.
// Reducing TotalCopies below the number of open loans fails with catalog.ErrCapacityExceeded
// and leaves the edition unchanged.
func (r *BookEditionRepository) Update(ctx context.Context, edition catalog.BookEdition) error {
	const operation = "book_edition.update"

	return r.table.observedTx(ctx, operation, func(ctx context.Context, tx querier) error {
		snapshot, found, err := r.table.engine.lockEdition(ctx, tx, operation, edition.ID)
		if err != nil {
			return err
		}

		if !found {
			return errors.Join(catalog.ErrNotFound, fmt.Errorf("%s: no book edition with id %d", operation, edition.ID))
		}

		if err := availability.CheckCopies(snapshot, edition.TotalCopies); err != nil {
			r.table.engine.logCapacityRejection(ctx, operation, snapshot)
			return err
		}

		if err := r.table.update(ctx, tx, operation, edition.ID, editionRecord(edition)); err != nil {
			return err
		}

		return editionTranslators.replace(ctx, r.table.engine, tx, operation, edition.ID, translatorIDs(edition.Translators))
	})
}

// Delete removes the edition and its translator links.
// It fails with catalog.ErrForeignKeyViolation while loans reference the edition.
func (r *BookEditionRepository) Delete(ctx context.Context, id int64) error {
	return r.table.observedWrite(ctx, "book_edition.delete", func(ctx context.Context, q querier) error {
		return r.table.delete(ctx, q, "book_edition.delete", id)
	})
}

// GetByID returns the edition aggregate, or nil when there is none.
func (r *BookEditionRepository) GetByID(ctx context.Context, id int64) (*catalog.BookEdition, error) {
	return r.table.getByKey(ctx, "book_edition.get_by_id", id)
}

func (r *BookEditionRepository) GetByISBN(ctx context.Context, isbn string) (*catalog.BookEdition, error) {
	return r.table.getOne(ctx, "book_edition.get_by_isbn", r.table.column("isbn").Eq(isbn))
}

// GetPage returns one page of editions ordered by title.
func (r *BookEditionRepository) GetPage(ctx context.Context, page catalog.PageRequest) ([]catalog.BookEdition, error) {
	return r.table.getPage(ctx, "book_edition.get_page", page)
}

// GetPageByGenre returns a page of editions whose book is linked to the genre.
func (r *BookEditionRepository) GetPageByGenre(ctx context.Context, genreID int64, page catalog.PageRequest) ([]catalog.BookEdition, error) {
	linked := builder.From(goqu.T("book_genre")).
		Select(goqu.L("1")).
		Where(goqu.I("book_genre.book_id").Eq(goqu.I("be.book_id")), goqu.I("book_genre.genre_id").Eq(genreID))

	return r.table.getPage(ctx, "book_edition.get_page_by_genre", page, goqu.L("EXISTS ?", linked))
}

// GetPageByLanguage returns a page of editions printed in the language.
func (r *BookEditionRepository) GetPageByLanguage(ctx context.Context, languageID int64, page catalog.PageRequest) ([]catalog.BookEdition, error) {
	return r.table.getPage(ctx, "book_edition.get_page_by_language", page, r.table.column("language_id").Eq(languageID))
}

// GetPageByBook returns a page of the editions of one book.
func (r *BookEditionRepository) GetPageByBook(ctx context.Context, bookID int64, page catalog.PageRequest) ([]catalog.BookEdition, error) {
	return r.table.getPage(ctx, "book_edition.get_page_by_book", page, r.table.column("book_id").Eq(bookID))
}

// SearchByTitle returns a page of editions whose title contains the substring, case-insensitively.
func (r *BookEditionRepository) SearchByTitle(ctx context.Context, substring string, page catalog.PageRequest) ([]catalog.BookEdition, error) {
	return r.table.getPage(ctx, "book_edition.search_by_title", page,
		r.table.column("edition_title").ILike(containsPattern(substring)))
}

// SearchByISBN returns a page of editions whose ISBN contains the substring.
func (r *BookEditionRepository) SearchByISBN(ctx context.Context, substring string, page catalog.PageRequest) ([]catalog.BookEdition, error) {
	return r.table.getPage(ctx, "book_edition.search_by_isbn", page,
		r.table.column("isbn").Like(containsPattern(substring)))
}

func (r *BookEditionRepository) GetAll(ctx context.Context) ([]catalog.BookEdition, error) {
	return r.table.getAll(ctx, "book_edition.get_all")
}

func (r *BookEditionRepository) Count(ctx context.Context) (int, error) {
	return r.table.count(ctx, "book_edition.count")
}

// AvailableCopies returns total copies minus open loans of the edition.
// It fails with catalog.ErrNotFound when the edition does not exist.
func (r *BookEditionRepository) AvailableCopies(ctx context.Context, id int64) (int, error) {
	const operation = "book_edition.available_copies"

	var out int

	err := r.table.engine.observe(ctx, operation, func(ctx context.Context) (int, error) {
		snapshot, found, err := r.table.engine.readSnapshot(ctx, r.table.engine.reader(ctx), operation, id)
		if err != nil {
			return 0, err
		}

		if !found {
			return 0, errors.Join(catalog.ErrNotFound, fmt.Errorf("%s: no book edition with id %d", operation, id))
		}

		out = snapshot.AvailableCopies()

		return 1, nil
	})

	return out, err
}

// TranslatorIDs returns the IDs stored in the translator links of the edition.
func (r *BookEditionRepository) TranslatorIDs(ctx context.Context, id int64) ([]int64, error) {
	const operation = "book_edition.translator_ids"

	var out []int64

	err := r.table.engine.observe(ctx, operation, func(ctx context.Context) (int, error) {
		ids, err := editionTranslators.childIDs(ctx, r.table.engine, r.table.engine.reader(ctx), operation, id)
		out = ids

		return len(ids), err
	})

	return out, err
}
