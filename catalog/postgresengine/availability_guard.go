package postgresengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
	"github.com/AntonStoeckl/library-catalog-go/catalog/availability"
)

func totalCopiesQuery(editionID int64) *goqu.SelectDataset {
	return builder.From("book_edition").Prepared(true).
		Select(goqu.C("total_copies")).
		Where(goqu.C("book_edition_id").Eq(editionID))
}

func openLoanCountQuery(editionID int64) *goqu.SelectDataset {
	return builder.From("book_edition_loan").Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.C("book_edition_id").Eq(editionID), goqu.C("return_date").IsNull())
}

// lockEdition locks the edition row until the end of tx and returns its capacity snapshot.
// The open loans are counted in a statement issued after the lock was granted, so under
// READ COMMITTED the count sees every loan committed by the previous lock holder.
func (e *Engine) lockEdition(ctx context.Context, tx querier, operation string, editionID int64) (availability.Snapshot, bool, error) {
	total, found, err := scalar[int64](ctx, e, tx, operation, totalCopiesQuery(editionID).ForUpdate(exp.Wait))
	if err != nil || !found {
		return availability.Snapshot{}, found, err
	}

	open, _, err := scalar[int64](ctx, e, tx, operation, openLoanCountQuery(editionID))
	if err != nil {
		return availability.Snapshot{}, false, err
	}

	return availability.Snapshot{EditionID: editionID, TotalCopies: int(total), OpenLoans: int(open)}, true, nil
}

// readSnapshot reads the capacity snapshot without locking.
func (e *Engine) readSnapshot(ctx context.Context, q querier, operation string, editionID int64) (availability.Snapshot, bool, error) {
	total, found, err := scalar[int64](ctx, e, q, operation, totalCopiesQuery(editionID))
	if err != nil || !found {
		return availability.Snapshot{}, found, err
	}

	open, _, err := scalar[int64](ctx, e, q, operation, openLoanCountQuery(editionID))
	if err != nil {
		return availability.Snapshot{}, false, err
	}

	return availability.Snapshot{EditionID: editionID, TotalCopies: int(total), OpenLoans: int(open)}, true, nil
}

// guardOpen locks the edition and allows opening one more loan on it.
func (e *Engine) guardOpen(ctx context.Context, tx querier, operation string, editionID int64) error {
	snapshot, found, err := e.lockEdition(ctx, tx, operation, editionID)
	if err != nil {
		return err
	}

	if !found {
		return errors.Join(catalog.ErrForeignKeyViolation, fmt.Errorf("%s: no book edition with id %d", operation, editionID))
	}

	if err := availability.CheckOpen(snapshot); err != nil {
		e.logCapacityRejection(ctx, operation, snapshot)
		return err
	}

	return nil
}

func (e *Engine) logCapacityRejection(ctx context.Context, operation string, snapshot availability.Snapshot) {
	e.logOperation(ctx, logMsgCapacityExceeded,
		logAttrOperation, operation,
		logAttrEditionID, snapshot.EditionID,
		logAttrTotalCopies, snapshot.TotalCopies,
		logAttrOpenLoans, snapshot.OpenLoans,
	)
}
