package postgresengine

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
	m "github.com/AntonStoeckl/library-catalog-go/catalog/materializer"
)

const tagTranslator = "translator"

func translatorSegment(alias string) m.Segment {
	return m.Segment{Tag: tagTranslator, Table: alias, Key: "translator_id", Columns: []m.Column{
		m.Col("translator_id", m.Int),
		m.Col("translator_full_name", m.String),
		m.Col("country_id", m.Int),
	}}
}

func buildTranslator(v m.Values) *catalog.Translator {
	return &catalog.Translator{
		ID:        v.Int64("translator_id"),
		FullName:  v.String("translator_full_name"),
		CountryID: v.OptInt64("country_id"),
	}
}

// TranslatorRepository stores translators. Deleting a translator removes it from all editions.
type TranslatorRepository struct {
	table  table[catalog.Translator]
	detail table[catalog.Translator]
}

func NewTranslatorRepository(engine *Engine) *TranslatorRepository {
	withCountry := func(ds *goqu.SelectDataset) *goqu.SelectDataset {
		return ds.LeftJoin(goqu.T("country").As("c"), goqu.On(goqu.I("c.country_id").Eq(goqu.I("t.country_id"))))
	}
	assignCountry := m.HasOne(tagCountry, buildCountry, func(t *catalog.Translator, c *catalog.Country) { t.Country = c })

	base := table[catalog.Translator]{
		engine: engine,
		name:   "translator",
		alias:  "t",
		key:    "translator_id",
		order:  []string{"translator_full_name"},
		plan:   m.Root(m.MustLayout(translatorSegment("t"), countrySegment("c")), tagTranslator, buildTranslator, assignCountry),
		joins:  withCountry,
	}

	detail := base
	detail.plan = m.Root(
		m.MustLayout(translatorSegment("t"), countrySegment("c"), editionSegment("be")),
		tagTranslator, buildTranslator,
		assignCountry,
		m.HasMany(tagEdition, buildEdition, func(t *catalog.Translator, e *catalog.BookEdition) {
			t.BookEditions = append(t.BookEditions, *e)
		}),
	)
	detail.childOrder = []string{"be.edition_title", "be.book_edition_id"}
	detail.joins = func(ds *goqu.SelectDataset) *goqu.SelectDataset {
		return withCountry(ds).
			LeftJoin(goqu.T("book_edition_translator").As("bet"), goqu.On(goqu.I("bet.translator_id").Eq(goqu.I("t.translator_id")))).
			LeftJoin(goqu.T("book_edition").As("be"), goqu.On(goqu.I("be.book_edition_id").Eq(goqu.I("bet.book_edition_id")))).
			LeftJoin(openLoans(), goqu.On(goqu.I("ol.book_edition_id").Eq(goqu.I("be.book_edition_id"))))
	}

	return &TranslatorRepository{table: base, detail: detail}
}

func translatorRecord(t catalog.Translator) goqu.Record {
	return goqu.Record{"translator_full_name": t.FullName, "country_id": nullable(t.CountryID)}
}

// Add inserts the translator and sets its ID.
func (r *TranslatorRepository) Add(ctx context.Context, translator *catalog.Translator) error {
	return r.table.observedWrite(ctx, "translator.add", func(ctx context.Context, q querier) error {
		id, err := r.table.insert(ctx, q, "translator.add", translatorRecord(*translator))
		translator.ID = id

		return err
	})
}

func (r *TranslatorRepository) Update(ctx context.Context, translator catalog.Translator) error {
	return r.table.observedWrite(ctx, "translator.update", func(ctx context.Context, q querier) error {
		return r.table.update(ctx, q, "translator.update", translator.ID, translatorRecord(translator))
	})
}

func (r *TranslatorRepository) Delete(ctx context.Context, id int64) error {
	return r.table.observedWrite(ctx, "translator.delete", func(ctx context.Context, q querier) error {
		return r.table.delete(ctx, q, "translator.delete", id)
	})
}

// GetByID returns the translator with its country and the editions it translated.
func (r *TranslatorRepository) GetByID(ctx context.Context, id int64) (*catalog.Translator, error) {
	return r.detail.getByKey(ctx, "translator.get_by_id", id)
}

func (r *TranslatorRepository) GetPage(ctx context.Context, page catalog.PageRequest) ([]catalog.Translator, error) {
	return r.table.getPage(ctx, "translator.get_page", page)
}

func (r *TranslatorRepository) GetAll(ctx context.Context) ([]catalog.Translator, error) {
	return r.table.getAll(ctx, "translator.get_all")
}

func (r *TranslatorRepository) Count(ctx context.Context) (int, error) {
	return r.table.count(ctx, "translator.count")
}
