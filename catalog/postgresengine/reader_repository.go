package postgresengine

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
	m "github.com/AntonStoeckl/library-catalog-go/catalog/materializer"
)

const tagReader = "reader"

func readerSegment(alias string) m.Segment {
	return m.Segment{Tag: tagReader, Table: alias, Key: "library_card_number", Columns: []m.Column{
		m.Col("library_card_number", m.String),
		m.Col("reader_full_name", m.String),
		m.Col("email_address", m.String),
		m.Col("phone_number", m.String),
	}}
}

func buildReader(v m.Values) *catalog.Reader {
	return &catalog.Reader{
		LibraryCardNumber: v.String("library_card_number"),
		FullName:          v.String("reader_full_name"),
		EmailAddress:      v.OptString("email_address"),
		PhoneNumber:       v.OptString("phone_number"),
	}
}

// ReaderRepository stores readers, identified by their library card number.
type ReaderRepository struct {
	table table[catalog.Reader]
}

func NewReaderRepository(engine *Engine) *ReaderRepository {
	return &ReaderRepository{table: table[catalog.Reader]{
		engine: engine,
		name:   "reader",
		alias:  "r",
		key:    "library_card_number",
		order:  []string{"reader_full_name"},
		plan:   m.Root(m.MustLayout(readerSegment("r")), tagReader, buildReader),
	}}
}

func readerRecord(r catalog.Reader) goqu.Record {
	return goqu.Record{
		"reader_full_name": r.FullName,
		"email_address":    nullable(r.EmailAddress),
		"phone_number":     nullable(r.PhoneNumber),
	}
}

// Add inserts the reader. A duplicate card number fails with catalog.ErrUniqueConstraintViolation.
func (r *ReaderRepository) Add(ctx context.Context, reader catalog.Reader) error {
	const operation = "reader.add"

	return r.table.observedWrite(ctx, operation, func(ctx context.Context, q querier) error {
		record := readerRecord(reader)
		record["library_card_number"] = reader.LibraryCardNumber

		_, err := r.table.engine.exec(ctx, q, operation, builder.Insert("reader").Prepared(true).Rows(record))

		return err
	})
}

func (r *ReaderRepository) Update(ctx context.Context, reader catalog.Reader) error {
	return r.table.observedWrite(ctx, "reader.update", func(ctx context.Context, q querier) error {
		return r.table.update(ctx, q, "reader.update", reader.LibraryCardNumber, readerRecord(reader))
	})
}

// Delete fails with catalog.ErrForeignKeyViolation while loans reference the reader.
func (r *ReaderRepository) Delete(ctx context.Context, libraryCardNumber string) error {
	return r.table.observedWrite(ctx, "reader.delete", func(ctx context.Context, q querier) error {
		return r.table.delete(ctx, q, "reader.delete", libraryCardNumber)
	})
}

func (r *ReaderRepository) GetByLibraryCardNumber(ctx context.Context, libraryCardNumber string) (*catalog.Reader, error) {
	return r.table.getByKey(ctx, "reader.get_by_library_card_number", libraryCardNumber)
}

func (r *ReaderRepository) GetPage(ctx context.Context, page catalog.PageRequest) ([]catalog.Reader, error) {
	return r.table.getPage(ctx, "reader.get_page", page)
}

// SearchByFullName returns a page of readers whose name contains the substring, case-insensitively.
func (r *ReaderRepository) SearchByFullName(ctx context.Context, substring string, page catalog.PageRequest) ([]catalog.Reader, error) {
	return r.table.getPage(ctx, "reader.search_by_full_name", page,
		r.table.column("reader_full_name").ILike(containsPattern(substring)))
}

func (r *ReaderRepository) GetAll(ctx context.Context) ([]catalog.Reader, error) {
	return r.table.getAll(ctx, "reader.get_all")
}

func (r *ReaderRepository) Count(ctx context.Context) (int, error) {
	return r.table.count(ctx, "reader.count")
}
