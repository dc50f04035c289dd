package postgresengine

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
	m "github.com/AntonStoeckl/library-catalog-go/catalog/materializer"
)

const tagBook = "book"

func bookSegment(alias string) m.Segment {
	return m.Segment{Tag: tagBook, Table: alias, Key: "book_id", Columns: []m.Column{
		m.Col("book_id", m.Int),
		m.Col("original_title", m.String),
		m.Col("original_language_id", m.Int),
		m.Col("first_publication_year", m.Int),
		m.Col("book_description", m.String),
	}}
}

func buildBook(v m.Values) *catalog.Book {
	return &catalog.Book{
		ID:                   v.Int64("book_id"),
		OriginalTitle:        v.String("original_title"),
		OriginalLanguageID:   v.Int64("original_language_id"),
		FirstPublicationYear: v.Int("first_publication_year"),
		Description:          v.OptString("book_description"),
	}
}

func bookAuthorsAndGenres() []m.Node[*catalog.Book] {
	return []m.Node[*catalog.Book]{
		m.HasMany(tagAuthor, buildAuthor, func(b *catalog.Book, a *catalog.Author) { b.Authors = append(b.Authors, *a) }),
		m.HasMany(tagGenre, buildGenre, func(b *catalog.Book, g *catalog.Genre) { b.Genres = append(b.Genres, *g) }),
	}
}

func joinAuthorsAndGenres(ds *goqu.SelectDataset) *goqu.SelectDataset {
	return ds.
		LeftJoin(goqu.T("book_author").As("ba"), goqu.On(goqu.I("ba.book_id").Eq(goqu.I("b.book_id")))).
		LeftJoin(goqu.T("author").As("a"), goqu.On(goqu.I("a.author_id").Eq(goqu.I("ba.author_id")))).
		LeftJoin(goqu.T("book_genre").As("bg"), goqu.On(goqu.I("bg.book_id").Eq(goqu.I("b.book_id")))).
		LeftJoin(goqu.T("genre").As("g"), goqu.On(goqu.I("g.genre_id").Eq(goqu.I("bg.genre_id"))))
}

// BookRepository stores books with their authors and genres.
// Authors and genres are replaced as a whole on every write.
type BookRepository struct {
	table table[catalog.Book]
}

func NewBookRepository(engine *Engine) *BookRepository {
	layout := m.MustLayout(bookSegment("b"), languageSegment("l"), authorSegment("a"), genreSegment("g"))

	children := append([]m.Node[*catalog.Book]{
		m.HasOne(tagLanguage, buildLanguage, func(b *catalog.Book, l *catalog.Language) { b.OriginalLanguage = l }),
	}, bookAuthorsAndGenres()...)

	return &BookRepository{table: table[catalog.Book]{
		engine: engine,
		name:   "book",
		alias:  "b",
		key:    "book_id",
		order:  []string{"original_title"},
		plan:   m.Root(layout, tagBook, buildBook, children...),
		joins: func(ds *goqu.SelectDataset) *goqu.SelectDataset {
			ds = ds.LeftJoin(goqu.T("language").As("l"), goqu.On(goqu.I("l.language_id").Eq(goqu.I("b.original_language_id"))))
			return joinAuthorsAndGenres(ds)
		},
		childOrder: []string{"a.author_full_name", "a.author_id", "g.genre_name", "g.genre_id"},
	}}
}

func bookRecord(b catalog.Book) goqu.Record {
	return goqu.Record{
		"original_title":         b.OriginalTitle,
		"original_language_id":   b.OriginalLanguageID,
		"first_publication_year": b.FirstPublicationYear,
		"book_description":       nullable(b.Description),
	}
}

// Add inserts the book with its author and genre links in one transaction and sets its ID.
func (r *BookRepository) Add(ctx context.Context, book *catalog.Book) error {
	const operation = "book.add"

	return r.table.observedTx(ctx, operation, func(ctx context.Context, tx querier) error {
		id, err := r.table.insert(ctx, tx, operation, bookRecord(*book))
		if err != nil {
			return err
		}

		if err := r.replaceLinks(ctx, tx, operation, id, *book); err != nil {
			return err
		}

		book.ID = id

		return nil
	})
}

// Update writes the scalar fields and replaces the author and genre links in one transaction.
func (r *BookRepository) Update(ctx context.Context, book catalog.Book) error {
	const operation = "book.update"

	return r.table.observedTx(ctx, operation, func(ctx context.Context, tx querier) error {
		if err := r.table.update(ctx, tx, operation, book.ID, bookRecord(book)); err != nil {
			return err
		}

		return r.replaceLinks(ctx, tx, operation, book.ID, book)
	})
}

func (r *BookRepository) replaceLinks(ctx context.Context, tx querier, operation string, bookID int64, book catalog.Book) error {
	if err := bookAuthors.replace(ctx, r.table.engine, tx, operation, bookID, authorIDs(book.Authors)); err != nil {
		return err
	}

	return bookGenres.replace(ctx, r.table.engine, tx, operation, bookID, genreIDs(book.Genres))
}

// Delete removes the book and its author and genre links.
// It fails with catalog.ErrForeignKeyViolation while the book has editions.
func (r *BookRepository) Delete(ctx context.Context, id int64) error {
	return r.table.observedWrite(ctx, "book.delete", func(ctx context.Context, q querier) error {
		return r.table.delete(ctx, q, "book.delete", id)
	})
}

func (r *BookRepository) GetByID(ctx context.Context, id int64) (*catalog.Book, error) {
	return r.table.getByKey(ctx, "book.get_by_id", id)
}

func (r *BookRepository) GetPage(ctx context.Context, page catalog.PageRequest) ([]catalog.Book, error) {
	return r.table.getPage(ctx, "book.get_page", page)
}

// SearchByTitle returns a page of books whose original title contains the substring, case-insensitively.
func (r *BookRepository) SearchByTitle(ctx context.Context, substring string, page catalog.PageRequest) ([]catalog.Book, error) {
	return r.table.getPage(ctx, "book.search_by_title", page,
		r.table.column("original_title").ILike(containsPattern(substring)))
}

// GetPageByGenre returns a page of books linked to the genre. The books keep all their genres.
func (r *BookRepository) GetPageByGenre(ctx context.Context, genreID int64, page catalog.PageRequest) ([]catalog.Book, error) {
	linked := builder.From(goqu.T("book_genre")).
		Select(goqu.L("1")).
		Where(goqu.I("book_genre.book_id").Eq(goqu.I("b.book_id")), goqu.I("book_genre.genre_id").Eq(genreID))

	return r.table.getPage(ctx, "book.get_page_by_genre", page, goqu.L("EXISTS ?", linked))
}

// GetPageByAuthor returns a page of books linked to the author.
func (r *BookRepository) GetPageByAuthor(ctx context.Context, authorID int64, page catalog.PageRequest) ([]catalog.Book, error) {
	linked := builder.From(goqu.T("book_author")).
		Select(goqu.L("1")).
		Where(goqu.I("book_author.book_id").Eq(goqu.I("b.book_id")), goqu.I("book_author.author_id").Eq(authorID))

	return r.table.getPage(ctx, "book.get_page_by_author", page, goqu.L("EXISTS ?", linked))
}

func (r *BookRepository) GetAll(ctx context.Context) ([]catalog.Book, error) {
	return r.table.getAll(ctx, "book.get_all")
}

func (r *BookRepository) Count(ctx context.Context) (int, error) {
	return r.table.count(ctx, "book.count")
}

// GetTopBooks ranks books by the number of loans of any of their editions with a loan date in [from, to].
func (r *BookRepository) GetTopBooks(ctx context.Context, from, to time.Time, limit int) ([]catalog.TopBook, error) {
	const operation = "book.get_top_books"

	var out []catalog.TopBook

	err := r.table.engine.observe(ctx, operation, func(ctx context.Context) (int, error) {
		loanCount := goqu.COUNT(goqu.I("bel.book_edition_loan_id"))

		ds := builder.From(goqu.T("book_edition_loan").As("bel")).Prepared(true).
			Join(goqu.T("book_edition").As("be"), goqu.On(goqu.I("be.book_edition_id").Eq(goqu.I("bel.book_edition_id")))).
			Join(goqu.T("book").As("b"), goqu.On(goqu.I("b.book_id").Eq(goqu.I("be.book_id")))).
			Select(goqu.I("b.book_id"), goqu.I("b.original_title"), loanCount.As("loan_count")).
			Where(goqu.I("bel.loan_date").Between(goqu.Range(from, to))).
			GroupBy(goqu.I("b.book_id"), goqu.I("b.original_title")).
			Order(loanCount.Desc(), goqu.I("b.original_title").Asc(), goqu.I("b.book_id").Asc()).
			Limit(uint(max(limit, 0)))

		rows, err := scanAll(ctx, r.table.engine, r.table.engine.reader(ctx), operation, ds,
			func(rows dbRows) (catalog.TopBook, error) {
				var (
					top   catalog.TopBook
					count int64
				)
				err := rows.Scan(&top.BookID, &top.OriginalTitle, &count)
				top.LoanCount = int(count)

				return top, err
			})
		out = rows

		return len(rows), err
	})

	return out, err
}
