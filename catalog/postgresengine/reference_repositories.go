package postgresengine

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
	m "github.com/AntonStoeckl/library-catalog-go/catalog/materializer"
)

const (
	tagLanguage = "language"
	tagCountry  = "country"
	tagGenre    = "genre"
)

func languageSegment(alias string) m.Segment {
	return m.Segment{Tag: tagLanguage, Table: alias, Key: "language_id", Columns: []m.Column{
		m.Col("language_id", m.Int),
		m.Col("language_code", m.String),
		m.Col("language_name", m.String),
	}}
}

func buildLanguage(v m.Values) *catalog.Language {
	return &catalog.Language{ID: v.Int64("language_id"), Code: v.String("language_code"), Name: v.String("language_name")}
}

func countrySegment(alias string) m.Segment {
	return m.Segment{Tag: tagCountry, Table: alias, Key: "country_id", Columns: []m.Column{
		m.Col("country_id", m.Int),
		m.Col("country_code", m.String),
		m.Col("country_name", m.String),
	}}
}

func buildCountry(v m.Values) *catalog.Country {
	return &catalog.Country{ID: v.Int64("country_id"), Code: v.String("country_code"), Name: v.String("country_name")}
}

func genreSegment(alias string) m.Segment {
	return m.Segment{Tag: tagGenre, Table: alias, Key: "genre_id", Columns: []m.Column{
		m.Col("genre_id", m.Int),
		m.Col("genre_name", m.String),
	}}
}

func buildGenre(v m.Values) *catalog.Genre {
	return &catalog.Genre{ID: v.Int64("genre_id"), Name: v.String("genre_name")}
}

// LanguageRepository stores languages, unique by code and by name.
type LanguageRepository struct {
	table table[catalog.Language]
}

func NewLanguageRepository(engine *Engine) *LanguageRepository {
	return &LanguageRepository{table: table[catalog.Language]{
		engine: engine,
		name:   "language",
		alias:  "l",
		key:    "language_id",
		order:  []string{"language_name"},
		plan:   m.Root(m.MustLayout(languageSegment("l")), tagLanguage, buildLanguage),
	}}
}

func languageRecord(l catalog.Language) goqu.Record {
	return goqu.Record{"language_code": l.Code, "language_name": l.Name}
}

// Add inserts the language and sets its ID.
func (r *LanguageRepository) Add(ctx context.Context, language *catalog.Language) error {
	return r.table.observedWrite(ctx, "language.add", func(ctx context.Context, q querier) error {
		id, err := r.table.insert(ctx, q, "language.add", languageRecord(*language))
		language.ID = id

		return err
	})
}

func (r *LanguageRepository) Update(ctx context.Context, language catalog.Language) error {
	return r.table.observedWrite(ctx, "language.update", func(ctx context.Context, q querier) error {
		return r.table.update(ctx, q, "language.update", language.ID, languageRecord(language))
	})
}

// Delete fails with catalog.ErrForeignKeyViolation while books or editions reference the language.
func (r *LanguageRepository) Delete(ctx context.Context, id int64) error {
	return r.table.observedWrite(ctx, "language.delete", func(ctx context.Context, q querier) error {
		return r.table.delete(ctx, q, "language.delete", id)
	})
}

func (r *LanguageRepository) GetByID(ctx context.Context, id int64) (*catalog.Language, error) {
	return r.table.getByKey(ctx, "language.get_by_id", id)
}

func (r *LanguageRepository) GetByCode(ctx context.Context, code string) (*catalog.Language, error) {
	return r.table.getOne(ctx, "language.get_by_code", r.table.column("language_code").Eq(code))
}

func (r *LanguageRepository) GetPage(ctx context.Context, page catalog.PageRequest) ([]catalog.Language, error) {
	return r.table.getPage(ctx, "language.get_page", page)
}

func (r *LanguageRepository) GetAll(ctx context.Context) ([]catalog.Language, error) {
	return r.table.getAll(ctx, "language.get_all")
}

func (r *LanguageRepository) Count(ctx context.Context) (int, error) {
	return r.table.count(ctx, "language.count")
}

// CountryRepository stores countries, unique by code and by name.
type CountryRepository struct {
	table table[catalog.Country]
}

func NewCountryRepository(engine *Engine) *CountryRepository {
	return &CountryRepository{table: table[catalog.Country]{
		engine: engine,
		name:   "country",
		alias:  "c",
		key:    "country_id",
		order:  []string{"country_name"},
		plan:   m.Root(m.MustLayout(countrySegment("c")), tagCountry, buildCountry),
	}}
}

func countryRecord(c catalog.Country) goqu.Record {
	return goqu.Record{"country_code": c.Code, "country_name": c.Name}
}

// Add inserts the country and sets its ID.
func (r *CountryRepository) Add(ctx context.Context, country *catalog.Country) error {
	return r.table.observedWrite(ctx, "country.add", func(ctx context.Context, q querier) error {
		id, err := r.table.insert(ctx, q, "country.add", countryRecord(*country))
		country.ID = id

		return err
	})
}

func (r *CountryRepository) Update(ctx context.Context, country catalog.Country) error {
	return r.table.observedWrite(ctx, "country.update", func(ctx context.Context, q querier) error {
		return r.table.update(ctx, q, "country.update", country.ID, countryRecord(country))
	})
}

// Delete fails with catalog.ErrForeignKeyViolation while authors, translators or publishers reference the country.
func (r *CountryRepository) Delete(ctx context.Context, id int64) error {
	return r.table.observedWrite(ctx, "country.delete", func(ctx context.Context, q querier) error {
		return r.table.delete(ctx, q, "country.delete", id)
	})
}

func (r *CountryRepository) GetByID(ctx context.Context, id int64) (*catalog.Country, error) {
	return r.table.getByKey(ctx, "country.get_by_id", id)
}

func (r *CountryRepository) GetByCode(ctx context.Context, code string) (*catalog.Country, error) {
	return r.table.getOne(ctx, "country.get_by_code", r.table.column("country_code").Eq(code))
}

func (r *CountryRepository) GetPage(ctx context.Context, page catalog.PageRequest) ([]catalog.Country, error) {
	return r.table.getPage(ctx, "country.get_page", page)
}

func (r *CountryRepository) GetAll(ctx context.Context) ([]catalog.Country, error) {
	return r.table.getAll(ctx, "country.get_all")
}

func (r *CountryRepository) Count(ctx context.Context) (int, error) {
	return r.table.count(ctx, "country.count")
}

// GenreRepository stores genres. Deleting a genre removes it from all books.
type GenreRepository struct {
	table table[catalog.Genre]
}

func NewGenreRepository(engine *Engine) *GenreRepository {
	return &GenreRepository{table: table[catalog.Genre]{
		engine: engine,
		name:   "genre",
		alias:  "g",
		key:    "genre_id",
		order:  []string{"genre_name"},
		plan:   m.Root(m.MustLayout(genreSegment("g")), tagGenre, buildGenre),
	}}
}

// Add inserts the genre and sets its ID.
func (r *GenreRepository) Add(ctx context.Context, genre *catalog.Genre) error {
	return r.table.observedWrite(ctx, "genre.add", func(ctx context.Context, q querier) error {
		id, err := r.table.insert(ctx, q, "genre.add", goqu.Record{"genre_name": genre.Name})
		genre.ID = id

		return err
	})
}

func (r *GenreRepository) Update(ctx context.Context, genre catalog.Genre) error {
	return r.table.observedWrite(ctx, "genre.update", func(ctx context.Context, q querier) error {
		return r.table.update(ctx, q, "genre.update", genre.ID, goqu.Record{"genre_name": genre.Name})
	})
}

func (r *GenreRepository) Delete(ctx context.Context, id int64) error {
	return r.table.observedWrite(ctx, "genre.delete", func(ctx context.Context, q querier) error {
		return r.table.delete(ctx, q, "genre.delete", id)
	})
}

func (r *GenreRepository) GetByID(ctx context.Context, id int64) (*catalog.Genre, error) {
	return r.table.getByKey(ctx, "genre.get_by_id", id)
}

func (r *GenreRepository) GetPage(ctx context.Context, page catalog.PageRequest) ([]catalog.Genre, error) {
	return r.table.getPage(ctx, "genre.get_page", page)
}

func (r *GenreRepository) GetAll(ctx context.Context) ([]catalog.Genre, error) {
	return r.table.getAll(ctx, "genre.get_all")
}

func (r *GenreRepository) Count(ctx context.Context) (int, error) {
	return r.table.count(ctx, "genre.count")
}
