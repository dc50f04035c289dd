// Package catalog provides the core types of the library catalog and lending data-access layer.
//
// It defines the aggregate entities (BookEdition, Book, Loan and their reference entities),
// the error taxonomy shared by all store implementations, the observability interfaces,
// and small value types such as PageRequest.
//
// Aggregates are reconstructed from joined result sets by package materializer, and every
// write that opens a loan or reduces copies is checked by package availability inside the
// same transaction as the write. Package postgresengine implements the repositories.
//
// Common usage pattern:
//
//	engine, _ := postgresengine.NewEngineFromPGXPool(pool, postgresengine.WithLogger(logger))
//	editions := postgresengine.NewBookEditionRepository(engine)
//	loans := postgresengine.NewLoanRepository(engine)
//
//	edition, err := editions.GetByID(ctx, editionID)
//	if err != nil {
//		// handle error
//	}
//
//	err = loans.Add(ctx, &catalog.Loan{BookEditionID: edition.ID, LibraryCardNumber: "1001", ...})
//	if errors.Is(err, catalog.ErrCapacityExceeded) {
//		// no copy left
//	}
package catalog
