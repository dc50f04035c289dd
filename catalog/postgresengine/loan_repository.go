package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
	"github.com/AntonStoeckl/library-catalog-go/catalog/availability"
	m "github.com/AntonStoeckl/library-catalog-go/catalog/materializer"
)

const tagLoan = "loan"

func loanSegment(alias string) m.Segment {
	return m.Segment{Tag: tagLoan, Table: alias, Key: "book_edition_loan_id", Columns: []m.Column{
		m.Col("book_edition_loan_id", m.Int),
		m.Col("book_edition_id", m.Int),
		m.Col("library_card_number", m.String),
		m.Col("loan_date", m.Time),
		m.Col("due_date", m.Time),
		m.Col("return_date", m.Time),
	}}
}

func buildLoan(v m.Values) *catalog.Loan {
	return &catalog.Loan{
		ID:                v.Int64("book_edition_loan_id"),
		BookEditionID:     v.Int64("book_edition_id"),
		LibraryCardNumber: v.String("library_card_number"),
		LoanDate:          v.Time("loan_date"),
		DueDate:           v.Time("due_date"),
		ReturnDate:        v.OptTime("return_date"),
	}
}

// LoanRepository stores loans. Every write that opens a loan is checked against the capacity
// of the edition within the writing transaction.
type LoanRepository struct {
	table   table[catalog.Loan]
	overdue table[catalog.Loan]
	row     table[catalog.Loan]
}

func NewLoanRepository(engine *Engine) *LoanRepository {
	layout := m.MustLayout(loanSegment("bel"), editionSegment("be"), readerSegment("r"))

	full := table[catalog.Loan]{
		engine: engine,
		name:   "book_edition_loan",
		alias:  "bel",
		key:    "book_edition_loan_id",
		order:  []string{"loan_date"},
		plan: m.Root(layout, tagLoan, buildLoan,
			m.HasOne(tagEdition, buildEdition, func(l *catalog.Loan, e *catalog.BookEdition) { l.BookEdition = e }),
			m.HasOne(tagReader, buildReader, func(l *catalog.Loan, r *catalog.Reader) { l.Reader = r }),
		),
		joins: func(ds *goqu.SelectDataset) *goqu.SelectDataset {
			return ds.
				LeftJoin(goqu.T("book_edition").As("be"), goqu.On(goqu.I("be.book_edition_id").Eq(goqu.I("bel.book_edition_id")))).
				LeftJoin(openLoans(), goqu.On(goqu.I("ol.book_edition_id").Eq(goqu.I("be.book_edition_id")))).
				LeftJoin(goqu.T("reader").As("r"), goqu.On(goqu.I("r.library_card_number").Eq(goqu.I("bel.library_card_number"))))
		},
	}

	row := full
	row.plan = m.Root(m.MustLayout(loanSegment("bel")), tagLoan, buildLoan)
	row.joins = nil

	overdue := full
	overdue.order = []string{"due_date"}

	return &LoanRepository{table: full, overdue: overdue, row: row}
}

func loanRecord(l catalog.Loan) goqu.Record {
	return goqu.Record{
		"book_edition_id":     l.BookEditionID,
		"library_card_number": l.LibraryCardNumber,
		"loan_date":           l.LoanDate,
		"due_date":            l.DueDate,
		"return_date":         nullable(l.ReturnDate),
	}
}

// Add inserts the loan and sets its ID. An open loan is only written while the edition has a
// copy left, otherwise Add fails with catalog.ErrCapacityExceeded and nothing is written.
func (r *LoanRepository) Add(ctx context.Context, loan *catalog.Loan) error {
	const operation = "loan.add"

	return r.table.observedTx(ctx, operation, func(ctx context.Context, tx querier) error {
		if err := availability.ValidateLoanDates(*loan); err != nil {
			return err
		}

		if availability.OpensLoan(nil, *loan) {
			if err := r.table.engine.guardOpen(ctx, tx, operation, loan.BookEditionID); err != nil {
				return err
			}
		}

		id, err := r.table.insert(ctx, tx, operation, loanRecord(*loan))
		if err != nil {
			return err
		}

		loan.ID = id

		return nil
	})
}

// Update writes all fields of the loan. Reopening a returned loan, or moving an open loan to
// another edition, is checked against the capacity of the target edition.
func (r *LoanRepository) Update(ctx context.Context, loan catalog.Loan) error {
	const operation = "loan.update"

	return r.table.observedTx(ctx, operation, func(ctx context.Context, tx querier) error {
		if err := availability.ValidateLoanDates(loan); err != nil {
			return err
		}

		before, err := r.lockLoan(ctx, tx, operation, loan.ID)
		if err != nil {
			return err
		}

		return r.write(ctx, tx, operation, before, loan)
	})
}

// Return closes the loan with the given return date. Closing is always allowed.
func (r *LoanRepository) Return(ctx context.Context, id int64, returnDate time.Time) error {
	const operation = "loan.return"

	return r.table.observedTx(ctx, operation, func(ctx context.Context, tx querier) error {
		before, err := r.lockLoan(ctx, tx, operation, id)
		if err != nil {
			return err
		}

		after := *before
		after.ReturnDate = &returnDate

		if err := availability.ValidateLoanDates(after); err != nil {
			return err
		}

		return r.write(ctx, tx, operation, before, after)
	})
}

func (r *LoanRepository) lockLoan(ctx context.Context, tx querier, operation string, id int64) (*catalog.Loan, error) {
	ds := r.row.selectGraph().Where(r.row.keyColumn().Eq(id)).ForUpdate(exp.Wait)

	before, err := collectOne(ctx, r.table.engine, tx, operation, ds, r.row.plan)
	if err != nil {
		return nil, err
	}

	if before == nil {
		return nil, errors.Join(catalog.ErrNotFound, fmt.Errorf("%s: no loan with id %d", operation, id))
	}

	return before, nil
}

func (r *LoanRepository) write(ctx context.Context, tx querier, operation string, before *catalog.Loan, after catalog.Loan) error {
	if availability.OpensLoan(before, after) {
		if err := r.table.engine.guardOpen(ctx, tx, operation, after.BookEditionID); err != nil {
			return err
		}
	}

	return r.table.update(ctx, tx, operation, after.ID, loanRecord(after))
}

// Delete removes the loan. Deleting never violates capacity.
func (r *LoanRepository) Delete(ctx context.Context, id int64) error {
	return r.table.observedWrite(ctx, "loan.delete", func(ctx context.Context, q querier) error {
		return r.table.delete(ctx, q, "loan.delete", id)
	})
}

// GetByID returns the loan with its edition and reader, or nil when there is none.
func (r *LoanRepository) GetByID(ctx context.Context, id int64) (*catalog.Loan, error) {
	return r.table.getByKey(ctx, "loan.get_by_id", id)
}

// GetPage returns one page of loans ordered by loan date.
func (r *LoanRepository) GetPage(ctx context.Context, page catalog.PageRequest) ([]catalog.Loan, error) {
	return r.table.getPage(ctx, "loan.get_page", page)
}

// GetOverduePage returns a page of open loans whose due date is before asOf, ordered by due date.
func (r *LoanRepository) GetOverduePage(ctx context.Context, asOf time.Time, page catalog.PageRequest) ([]catalog.Loan, error) {
	return r.overdue.getPage(ctx, "loan.get_overdue_page", page,
		r.overdue.column("return_date").IsNull(),
		r.overdue.column("due_date").Lt(asOf),
	)
}

// GetOpenLoansByReader returns all open loans of the reader.
func (r *LoanRepository) GetOpenLoansByReader(ctx context.Context, libraryCardNumber string) ([]catalog.Loan, error) {
	ds := r.table.selectGraph().
		Where(r.table.column("library_card_number").Eq(libraryCardNumber), r.table.column("return_date").IsNull()).
		Order(r.table.graphOrder()...)

	return r.table.list(ctx, "loan.get_open_loans_by_reader", ds)
}

func (r *LoanRepository) Count(ctx context.Context) (int, error) {
	return r.table.count(ctx, "loan.count")
}

// CountOpen returns the number of open loans of the edition.
func (r *LoanRepository) CountOpen(ctx context.Context, editionID int64) (int, error) {
	return r.table.count(ctx, "loan.count_open",
		r.table.column("book_edition_id").Eq(editionID),
		r.table.column("return_date").IsNull(),
	)
}
