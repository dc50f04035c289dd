package postgresengine_test

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
	"github.com/AntonStoeckl/library-catalog-go/catalog/availability"
	"github.com/AntonStoeckl/library-catalog-go/catalog/postgresengine"
	"github.com/AntonStoeckl/library-catalog-go/testutil/helper"
	"github.com/AntonStoeckl/library-catalog-go/testutil/helper/postgreswrapper"
)

func Test_LoanRepository_AddAndGetByID(t *testing.T) {
	// arrange
	engine, _ := givenEngine(t)
	ctx := testContext(t)
	repo := postgresengine.NewLoanRepository(engine)
	edition := helper.GivenEditionWithCopies(t, ctx, engine, 2)
	reader := helper.GivenReader(t, ctx, engine)
	loan := catalog.Loan{
		BookEditionID:     edition.ID,
		LibraryCardNumber: reader.LibraryCardNumber,
		LoanDate:          helper.Day(2024, 2, 1),
		DueDate:           helper.Day(2024, 2, 22),
	}

	// act
	err := repo.Add(ctx, &loan)

	// assert
	require.NoError(t, err)
	found, err := repo.GetByID(ctx, loan.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.IsOpen())
	assert.True(t, sameDay(loan.LoanDate, found.LoanDate))
	assert.True(t, sameDay(loan.DueDate, found.DueDate))
	require.NotNil(t, found.BookEdition)
	assert.Equal(t, 1, found.BookEdition.AvailableCopies)
	require.NotNil(t, found.Reader)
	assert.Equal(t, reader.FullName, found.Reader.FullName)
}

func Test_LoanRepository_AddBeyondCapacityIsRejected(t *testing.T) {
	// arrange
	metricsSpy := helper.NewMetricsCollectorSpy(true)
	logSpy := helper.NewLogHandlerSpy(false)
	engine, _ := givenEngine(t, postgresengine.WithMetrics(metricsSpy), postgresengine.WithLogger(slog.New(logSpy)))
	ctx := testContext(t)
	repo := postgresengine.NewLoanRepository(engine)
	edition := helper.GivenEditionWithCopies(t, ctx, engine, 1)
	helper.GivenOpenLoan(t, ctx, engine, edition.ID, helper.GivenReader(t, ctx, engine), helper.Day(2024, 4, 1))
	loan := catalog.Loan{
		BookEditionID:     edition.ID,
		LibraryCardNumber: helper.GivenReader(t, ctx, engine).LibraryCardNumber,
		LoanDate:          helper.Day(2024, 4, 2),
		DueDate:           helper.Day(2024, 4, 23),
	}

	// act
	err := repo.Add(ctx, &loan)

	// assert
	assert.ErrorIs(t, err, catalog.ErrCapacityExceeded)
	assert.Zero(t, loan.ID)

	var capacityErr *availability.CapacityError
	require.ErrorAs(t, err, &capacityErr)
	assert.Equal(t, edition.ID, capacityErr.EditionID)
	assert.Equal(t, 1, capacityErr.TotalCopies)
	assert.Equal(t, 1, capacityErr.OpenLoans)
	assert.Nil(t, capacityErr.RequestedTotal)

	open, err := repo.CountOpen(ctx, edition.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, open)

	assert.True(t, metricsSpy.HasCounterRecordForMetric("catalog_capacity_rejections_total").WithOperation("loan.add").Assert())
	assert.True(t, metricsSpy.HasCounterRecordForMetric("catalog_database_errors_total").
		WithOperation("loan.add").WithErrorType("capacity_exceeded").Assert())
	assert.True(t, logSpy.HasInfoLog("catalog operation: capacity exceeded").WithAttrValue("open_loans", "1").Assert())
}

func Test_LoanRepository_ConcurrentAddsRespectCapacity(t *testing.T) {
	// arrange
	engine, _ := givenEngine(t)
	ctx := testContext(t)
	repo := postgresengine.NewLoanRepository(engine)
	edition := helper.GivenEditionWithCopies(t, ctx, engine, 1)
	readers := []catalog.Reader{helper.GivenReader(t, ctx, engine), helper.GivenReader(t, ctx, engine)}

	errs := make([]error, len(readers))
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i, reader := range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			errs[i] = repo.Add(ctx, &catalog.Loan{
				BookEditionID:     edition.ID,
				LibraryCardNumber: reader.LibraryCardNumber,
				LoanDate:          helper.Day(2024, 6, 1),
				DueDate:           helper.Day(2024, 6, 22),
			})
		}()
	}

	// act
	close(start)
	wg.Wait()

	// assert
	var succeeded, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, catalog.ErrCapacityExceeded):
			rejected++
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	open, err := repo.CountOpen(ctx, edition.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, open)
}

func Test_LoanRepository_ReturnFreesTheCopy(t *testing.T) {
	// arrange
	engine, _ := givenEngine(t)
	ctx := testContext(t)
	repo := postgresengine.NewLoanRepository(engine)
	edition := helper.GivenEditionWithCopies(t, ctx, engine, 1)
	loan := helper.GivenOpenLoan(t, ctx, engine, edition.ID, helper.GivenReader(t, ctx, engine), helper.Day(2024, 7, 1))

	// act
	err := repo.Return(ctx, loan.ID, helper.Day(2024, 7, 10))

	// assert
	require.NoError(t, err)
	returned, err := repo.GetByID(ctx, loan.ID)
	require.NoError(t, err)
	require.NotNil(t, returned.ReturnDate)
	assert.True(t, sameDay(helper.Day(2024, 7, 10), *returned.ReturnDate))

	// act
	next := helper.GivenOpenLoan(t, ctx, engine, edition.ID, helper.GivenReader(t, ctx, engine), helper.Day(2024, 7, 11))

	// assert
	assert.NotZero(t, next.ID)
}

func Test_LoanRepository_ReturnMissingLoan(t *testing.T) {
	engine, _ := givenEngine(t)
	ctx := testContext(t)

	err := postgresengine.NewLoanRepository(engine).Return(ctx, 1<<60, helper.Day(2024, 1, 1))

	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func Test_LoanRepository_ReopenOnFullEditionIsRejected(t *testing.T) {
	// arrange
	engine, _ := givenEngine(t)
	ctx := testContext(t)
	repo := postgresengine.NewLoanRepository(engine)
	edition := helper.GivenEditionWithCopies(t, ctx, engine, 1)
	loan := helper.GivenOpenLoan(t, ctx, engine, edition.ID, helper.GivenReader(t, ctx, engine), helper.Day(2024, 8, 1))
	require.NoError(t, repo.Return(ctx, loan.ID, helper.Day(2024, 8, 5)))
	helper.GivenOpenLoan(t, ctx, engine, edition.ID, helper.GivenReader(t, ctx, engine), helper.Day(2024, 8, 6))

	// act
	loan.ReturnDate = nil
	err := repo.Update(ctx, loan)

	// assert
	assert.ErrorIs(t, err, catalog.ErrCapacityExceeded)
	stored, err := repo.GetByID(ctx, loan.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsOpen())
}

func Test_LoanRepository_MoveToFullEditionIsRejected(t *testing.T) {
	// arrange
	engine, _ := givenEngine(t)
	ctx := testContext(t)
	repo := postgresengine.NewLoanRepository(engine)
	source := helper.GivenEditionWithCopies(t, ctx, engine, 2)
	target := helper.GivenEditionWithCopies(t, ctx, engine, 1)
	loan := helper.GivenOpenLoan(t, ctx, engine, source.ID, helper.GivenReader(t, ctx, engine), helper.Day(2024, 9, 1))
	helper.GivenOpenLoan(t, ctx, engine, target.ID, helper.GivenReader(t, ctx, engine), helper.Day(2024, 9, 1))

	// act
	loan.BookEditionID = target.ID
	err := repo.Update(ctx, loan)

	// assert
	assert.ErrorIs(t, err, catalog.ErrCapacityExceeded)
	stored, err := repo.GetByID(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, source.ID, stored.BookEditionID)
}

func Test_LoanRepository_UpdateOfOpenLoanOnSameEditionIsAllowed(t *testing.T) {
	// arrange
	engine, _ := givenEngine(t)
	ctx := testContext(t)
	repo := postgresengine.NewLoanRepository(engine)
	edition := helper.GivenEditionWithCopies(t, ctx, engine, 1)
	loan := helper.GivenOpenLoan(t, ctx, engine, edition.ID, helper.GivenReader(t, ctx, engine), helper.Day(2024, 9, 1))

	// act
	loan.DueDate = helper.Day(2024, 10, 15)
	err := repo.Update(ctx, loan)

	// assert
	require.NoError(t, err)
	stored, err := repo.GetByID(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, sameDay(loan.DueDate, stored.DueDate))
}

func Test_LoanRepository_DateValidation(t *testing.T) {
	engine, _ := givenEngine(t)
	ctx := testContext(t)
	repo := postgresengine.NewLoanRepository(engine)
	edition := helper.GivenEditionWithCopies(t, ctx, engine, 3)
	reader := helper.GivenReader(t, ctx, engine)
	returnedEarly := helper.Day(2024, 2, 28)

	testCases := []struct {
		name    string
		loan    catalog.Loan
		wantErr error
	}{
		{
			name: "due before loan date",
			loan: catalog.Loan{
				BookEditionID: edition.ID, LibraryCardNumber: reader.LibraryCardNumber,
				LoanDate: helper.Day(2024, 3, 1), DueDate: helper.Day(2024, 2, 1),
			},
			wantErr: availability.ErrDueBeforeLoanDate,
		},
		{
			name: "return before loan date",
			loan: catalog.Loan{
				BookEditionID: edition.ID, LibraryCardNumber: reader.LibraryCardNumber,
				LoanDate: helper.Day(2024, 3, 1), DueDate: helper.Day(2024, 3, 22), ReturnDate: &returnedEarly,
			},
			wantErr: availability.ErrReturnBeforeLoanDate,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			loan := tc.loan

			err := repo.Add(ctx, &loan)

			assert.ErrorIs(t, err, tc.wantErr)
			assert.ErrorIs(t, err, catalog.ErrCheckConstraintViolation)
		})
	}
}

func Test_LoanRepository_MissingReferences(t *testing.T) {
	// arrange
	engine, _ := givenEngine(t)
	ctx := testContext(t)
	repo := postgresengine.NewLoanRepository(engine)
	edition := helper.GivenEditionWithCopies(t, ctx, engine, 1)
	reader := helper.GivenReader(t, ctx, engine)

	// act
	missingEdition := repo.Add(ctx, &catalog.Loan{
		BookEditionID: 1 << 60, LibraryCardNumber: reader.LibraryCardNumber,
		LoanDate: helper.Day(2024, 1, 1), DueDate: helper.Day(2024, 1, 22),
	})
	missingReader := repo.Add(ctx, &catalog.Loan{
		BookEditionID: edition.ID, LibraryCardNumber: helper.Unique(t, "LC"),
		LoanDate: helper.Day(2024, 1, 1), DueDate: helper.Day(2024, 1, 22),
	})

	// assert
	assert.ErrorIs(t, missingEdition, catalog.ErrForeignKeyViolation)
	assert.ErrorIs(t, missingReader, catalog.ErrForeignKeyViolation)
}

func Test_ReaderRepository_DeleteBlockedByLoans(t *testing.T) {
	// arrange
	engine, _ := givenEngine(t)
	ctx := testContext(t)
	reader := helper.GivenReader(t, ctx, engine)
	edition := helper.GivenEditionWithCopies(t, ctx, engine, 1)
	helper.GivenOpenLoan(t, ctx, engine, edition.ID, reader, helper.Day(2024, 1, 1))

	// act
	err := postgresengine.NewReaderRepository(engine).Delete(ctx, reader.LibraryCardNumber)

	// assert
	assert.ErrorIs(t, err, catalog.ErrForeignKeyViolation)
}

func Test_LoanRepository_GetOpenLoansByReader(t *testing.T) {
	// arrange
	engine, _ := givenEngine(t)
	ctx := testContext(t)
	repo := postgresengine.NewLoanRepository(engine)
	reader := helper.GivenReader(t, ctx, engine)
	edition := helper.GivenEditionWithCopies(t, ctx, engine, 3)
	open := helper.GivenOpenLoan(t, ctx, engine, edition.ID, reader, helper.Day(2024, 1, 1))
	closed := helper.GivenOpenLoan(t, ctx, engine, edition.ID, reader, helper.Day(2024, 1, 2))
	require.NoError(t, repo.Return(ctx, closed.ID, helper.Day(2024, 1, 3)))
	helper.GivenOpenLoan(t, ctx, engine, edition.ID, helper.GivenReader(t, ctx, engine), helper.Day(2024, 1, 4))

	// act
	loans, err := repo.GetOpenLoansByReader(ctx, reader.LibraryCardNumber)

	// assert
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, open.ID, loans[0].ID)
	require.NotNil(t, loans[0].BookEdition)
	assert.Equal(t, edition.ID, loans[0].BookEdition.ID)
}

func Test_LoanRepository_GetOverduePage(t *testing.T) {
	// arrange
	engine, wrapper := givenEngine(t)
	ctx := testContext(t)
	postgreswrapper.CleanUp(t, wrapper)
	repo := postgresengine.NewLoanRepository(engine)
	edition := helper.GivenEditionWithCopies(t, ctx, engine, 5)
	reader := helper.GivenReader(t, ctx, engine)
	later := helper.GivenOpenLoan(t, ctx, engine, edition.ID, reader, helper.Day(2024, 1, 10))
	earlier := helper.GivenOpenLoan(t, ctx, engine, edition.ID, reader, helper.Day(2024, 1, 5))
	returned := helper.GivenOpenLoan(t, ctx, engine, edition.ID, reader, helper.Day(2024, 1, 1))
	require.NoError(t, repo.Return(ctx, returned.ID, helper.Day(2024, 3, 1)))
	helper.GivenOpenLoan(t, ctx, engine, edition.ID, reader, helper.Day(2024, 3, 1))

	// act
	overdue, err := repo.GetOverduePage(ctx, helper.Day(2024, 2, 15), catalog.Page(1, 10))

	// assert
	require.NoError(t, err)
	require.Len(t, overdue, 2)
	assert.Equal(t, earlier.ID, overdue[0].ID, "ordered by due date")
	assert.Equal(t, later.ID, overdue[1].ID)
}

func Test_LoanRepository_RandomInterleavingsKeepCapacity(t *testing.T) {
	// arrange
	engine, _ := givenEngine(t)
	ctx := testContext(t)
	repo := postgresengine.NewLoanRepository(engine)
	editions := []catalog.BookEdition{
		helper.GivenEditionWithCopies(t, ctx, engine, 1),
		helper.GivenEditionWithCopies(t, ctx, engine, 2),
		helper.GivenEditionWithCopies(t, ctx, engine, 3),
	}
	reader := helper.GivenReader(t, ctx, engine)
	rnd := rand.New(rand.NewPCG(42, 1024))
	loanDate := helper.Day(2024, 11, 1)

	var open []catalog.Loan

	// act
	for range 60 {
		if len(open) > 0 && rnd.IntN(3) == 0 {
			i := rnd.IntN(len(open))
			require.NoError(t, repo.Return(ctx, open[i].ID, loanDate))
			open = append(open[:i], open[i+1:]...)

			continue
		}

		edition := editions[rnd.IntN(len(editions))]
		loan := catalog.Loan{
			BookEditionID: edition.ID, LibraryCardNumber: reader.LibraryCardNumber,
			LoanDate: loanDate, DueDate: loanDate.AddDate(0, 0, 21),
		}

		err := repo.Add(ctx, &loan)
		if err != nil {
			require.ErrorIs(t, err, catalog.ErrCapacityExceeded)
			continue
		}

		open = append(open, loan)
	}

	// assert
	for _, edition := range editions {
		count, err := repo.CountOpen(ctx, edition.ID)
		require.NoError(t, err)
		assert.LessOrEqual(t, count, edition.TotalCopies)

		expected := 0
		for _, loan := range open {
			if loan.BookEditionID == edition.ID {
				expected++
			}
		}

		assert.Equal(t, expected, count)
	}
}
