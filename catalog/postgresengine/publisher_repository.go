package postgresengine

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
	m "github.com/AntonStoeckl/library-catalog-go/catalog/materializer"
)

const tagPublisher = "publisher"

func publisherSegment(alias string) m.Segment {
	return m.Segment{Tag: tagPublisher, Table: alias, Key: "publisher_id", Columns: []m.Column{
		m.Col("publisher_id", m.Int),
		m.Col("publisher_name", m.String),
		m.Col("country_id", m.Int),
	}}
}

func buildPublisher(v m.Values) *catalog.Publisher {
	return &catalog.Publisher{ID: v.Int64("publisher_id"), Name: v.String("publisher_name"), CountryID: v.OptInt64("country_id")}
}

// PublisherRepository stores publishers together with their optional country.
type PublisherRepository struct {
	table table[catalog.Publisher]
}

func NewPublisherRepository(engine *Engine) *PublisherRepository {
	layout := m.MustLayout(publisherSegment("p"), countrySegment("c"))

	return &PublisherRepository{table: table[catalog.Publisher]{
		engine: engine,
		name:   "publisher",
		alias:  "p",
		key:    "publisher_id",
		order:  []string{"publisher_name"},
		plan: m.Root(layout, tagPublisher, buildPublisher,
			m.HasOne(tagCountry, buildCountry, func(p *catalog.Publisher, c *catalog.Country) { p.Country = c }),
		),
		joins: func(ds *goqu.SelectDataset) *goqu.SelectDataset {
			return ds.LeftJoin(goqu.T("country").As("c"), goqu.On(goqu.I("c.country_id").Eq(goqu.I("p.country_id"))))
		},
	}}
}

func publisherRecord(p catalog.Publisher) goqu.Record {
	return goqu.Record{"publisher_name": p.Name, "country_id": nullable(p.CountryID)}
}

// Add inserts the publisher and sets its ID.
func (r *PublisherRepository) Add(ctx context.Context, publisher *catalog.Publisher) error {
	return r.table.observedWrite(ctx, "publisher.add", func(ctx context.Context, q querier) error {
		id, err := r.table.insert(ctx, q, "publisher.add", publisherRecord(*publisher))
		publisher.ID = id

		return err
	})
}

func (r *PublisherRepository) Update(ctx context.Context, publisher catalog.Publisher) error {
	return r.table.observedWrite(ctx, "publisher.update", func(ctx context.Context, q querier) error {
		return r.table.update(ctx, q, "publisher.update", publisher.ID, publisherRecord(publisher))
	})
}

// Delete fails with catalog.ErrForeignKeyViolation while editions reference the publisher.
func (r *PublisherRepository) Delete(ctx context.Context, id int64) error {
	return r.table.observedWrite(ctx, "publisher.delete", func(ctx context.Context, q querier) error {
		return r.table.delete(ctx, q, "publisher.delete", id)
	})
}

func (r *PublisherRepository) GetByID(ctx context.Context, id int64) (*catalog.Publisher, error) {
	return r.table.getByKey(ctx, "publisher.get_by_id", id)
}

func (r *PublisherRepository) GetPage(ctx context.Context, page catalog.PageRequest) ([]catalog.Publisher, error) {
	return r.table.getPage(ctx, "publisher.get_page", page)
}

func (r *PublisherRepository) GetAll(ctx context.Context) ([]catalog.Publisher, error) {
	return r.table.getAll(ctx, "publisher.get_all")
}

func (r *PublisherRepository) Count(ctx context.Context) (int, error) {
	return r.table.count(ctx, "publisher.count")
}
