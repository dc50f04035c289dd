package postgresengine

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
	m "github.com/AntonStoeckl/library-catalog-go/catalog/materializer"
)

const tagAuthor = "author"

func authorSegment(alias string) m.Segment {
	return m.Segment{Tag: tagAuthor, Table: alias, Key: "author_id", Columns: []m.Column{
		m.Col("author_id", m.Int),
		m.Col("author_full_name", m.String),
		m.Col("birth_year", m.Int),
		m.Col("death_year", m.Int),
		m.Col("country_id", m.Int),
	}}
}

func buildAuthor(v m.Values) *catalog.Author {
	return &catalog.Author{
		ID:        v.Int64("author_id"),
		FullName:  v.String("author_full_name"),
		BirthYear: v.OptInt("birth_year"),
		DeathYear: v.OptInt("death_year"),
		CountryID: v.Int64("country_id"),
	}
}

// AuthorRepository stores authors together with their country.
type AuthorRepository struct {
	table table[catalog.Author]
}

func NewAuthorRepository(engine *Engine) *AuthorRepository {
	layout := m.MustLayout(authorSegment("a"), countrySegment("c"))

	return &AuthorRepository{table: table[catalog.Author]{
		engine: engine,
		name:   "author",
		alias:  "a",
		key:    "author_id",
		order:  []string{"author_full_name"},
		plan: m.Root(layout, tagAuthor, buildAuthor,
			m.HasOne(tagCountry, buildCountry, func(a *catalog.Author, c *catalog.Country) { a.Country = c }),
		),
		joins: func(ds *goqu.SelectDataset) *goqu.SelectDataset {
			return ds.LeftJoin(goqu.T("country").As("c"), goqu.On(goqu.I("c.country_id").Eq(goqu.I("a.country_id"))))
		},
	}}
}

func authorRecord(a catalog.Author) goqu.Record {
	return goqu.Record{
		"author_full_name": a.FullName,
		"birth_year":       nullable(a.BirthYear),
		"death_year":       nullable(a.DeathYear),
		"country_id":       a.CountryID,
	}
}

// Add inserts the author and sets its ID.
func (r *AuthorRepository) Add(ctx context.Context, author *catalog.Author) error {
	return r.table.observedWrite(ctx, "author.add", func(ctx context.Context, q querier) error {
		id, err := r.table.insert(ctx, q, "author.add", authorRecord(*author))
		author.ID = id

		return err
	})
}

func (r *AuthorRepository) Update(ctx context.Context, author catalog.Author) error {
	return r.table.observedWrite(ctx, "author.update", func(ctx context.Context, q querier) error {
		return r.table.update(ctx, q, "author.update", author.ID, authorRecord(author))
	})
}

// Delete fails with catalog.ErrForeignKeyViolation while the author is linked to a book.
func (r *AuthorRepository) Delete(ctx context.Context, id int64) error {
	return r.table.observedWrite(ctx, "author.delete", func(ctx context.Context, q querier) error {
		return r.table.delete(ctx, q, "author.delete", id)
	})
}

func (r *AuthorRepository) GetByID(ctx context.Context, id int64) (*catalog.Author, error) {
	return r.table.getByKey(ctx, "author.get_by_id", id)
}

func (r *AuthorRepository) GetPage(ctx context.Context, page catalog.PageRequest) ([]catalog.Author, error) {
	return r.table.getPage(ctx, "author.get_page", page)
}

// SearchByFullName returns a page of authors whose name contains the substring, case-insensitively.
func (r *AuthorRepository) SearchByFullName(ctx context.Context, substring string, page catalog.PageRequest) ([]catalog.Author, error) {
	return r.table.getPage(ctx, "author.search_by_full_name", page,
		r.table.column("author_full_name").ILike(containsPattern(substring)))
}

func (r *AuthorRepository) GetAll(ctx context.Context) ([]catalog.Author, error) {
	return r.table.getAll(ctx, "author.get_all")
}

func (r *AuthorRepository) Count(ctx context.Context) (int, error) {
	return r.table.count(ctx, "author.count")
}

// GetTopAuthors ranks authors by the number of loans of their books with a loan date in [from, to].
func (r *AuthorRepository) GetTopAuthors(ctx context.Context, from, to time.Time, limit int) ([]catalog.TopAuthor, error) {
	const operation = "author.get_top_authors"

	var out []catalog.TopAuthor

	err := r.table.engine.observe(ctx, operation, func(ctx context.Context) (int, error) {
		loanCount := goqu.COUNT(goqu.I("bel.book_edition_loan_id"))

		ds := builder.From(goqu.T("book_edition_loan").As("bel")).Prepared(true).
			Join(goqu.T("book_edition").As("be"), goqu.On(goqu.I("be.book_edition_id").Eq(goqu.I("bel.book_edition_id")))).
			Join(goqu.T("book_author").As("ba"), goqu.On(goqu.I("ba.book_id").Eq(goqu.I("be.book_id")))).
			Join(goqu.T("author").As("a"), goqu.On(goqu.I("a.author_id").Eq(goqu.I("ba.author_id")))).
			Select(goqu.I("a.author_id"), goqu.I("a.author_full_name"), loanCount.As("loan_count")).
			Where(goqu.I("bel.loan_date").Between(goqu.Range(from, to))).
			GroupBy(goqu.I("a.author_id"), goqu.I("a.author_full_name")).
			Order(loanCount.Desc(), goqu.I("a.author_full_name").Asc(), goqu.I("a.author_id").Asc()).
			Limit(uint(max(limit, 0)))

		rows, err := scanAll(ctx, r.table.engine, r.table.engine.reader(ctx), operation, ds,
			func(rows dbRows) (catalog.TopAuthor, error) {
				var (
					top   catalog.TopAuthor
					count int64
				)
				err := rows.Scan(&top.AuthorID, &top.FullName, &count)
				top.LoanCount = int(count)

				return top, err
			})
		out = rows

		return len(rows), err
	})

	return out, err
}
