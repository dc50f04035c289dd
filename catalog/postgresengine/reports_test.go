package postgresengine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
	"github.com/AntonStoeckl/library-catalog-go/catalog/postgresengine"
	"github.com/AntonStoeckl/library-catalog-go/testutil/helper"
	"github.com/AntonStoeckl/library-catalog-go/testutil/helper/postgreswrapper"
)

func Test_Reports_TopBooksAndAuthors(t *testing.T) {
	// arrange
	engine, wrapper := givenEngine(t)
	ctx := testContext(t)
	postgreswrapper.CleanUp(t, wrapper)

	language := helper.GivenLanguage(t, ctx, engine)
	country := helper.GivenCountry(t, ctx, engine)
	orwell := helper.GivenAuthor(t, ctx, engine, country.ID)
	huxley := helper.GivenAuthor(t, ctx, engine, country.ID)
	popular := helper.GivenBook(t, ctx, engine, language.ID, []catalog.Author{orwell}, nil)
	shared := helper.GivenBook(t, ctx, engine, language.ID, []catalog.Author{orwell, huxley}, nil)
	hardcover := helper.GivenEdition(t, ctx, engine, popular, 5)
	paperback := helper.GivenEdition(t, ctx, engine, popular, 5)
	sharedEdition := helper.GivenEdition(t, ctx, engine, shared, 5)
	reader := helper.GivenReader(t, ctx, engine)

	helper.GivenOpenLoan(t, ctx, engine, hardcover.ID, reader, helper.Day(2024, 3, 1))
	helper.GivenOpenLoan(t, ctx, engine, hardcover.ID, reader, helper.Day(2024, 3, 31))
	helper.GivenOpenLoan(t, ctx, engine, paperback.ID, reader, helper.Day(2024, 3, 15))
	helper.GivenOpenLoan(t, ctx, engine, sharedEdition.ID, reader, helper.Day(2024, 3, 20))
	helper.GivenOpenLoan(t, ctx, engine, sharedEdition.ID, reader, helper.Day(2024, 4, 1))

	from, to := helper.Day(2024, 3, 1), helper.Day(2024, 3, 31)

	// act
	books, booksErr := postgresengine.NewBookRepository(engine).GetTopBooks(ctx, from, to, 10)
	limited, limitedErr := postgresengine.NewBookRepository(engine).GetTopBooks(ctx, from, to, 1)
	authors, authorsErr := postgresengine.NewAuthorRepository(engine).GetTopAuthors(ctx, from, to, 0)

	// assert
	require.NoError(t, booksErr)
	assert.Equal(t, []catalog.TopBook{
		{BookID: popular.ID, OriginalTitle: popular.OriginalTitle, LoanCount: 3},
		{BookID: shared.ID, OriginalTitle: shared.OriginalTitle, LoanCount: 1},
	}, books)

	require.NoError(t, limitedErr)
	require.Len(t, limited, 1)
	assert.Equal(t, popular.ID, limited[0].BookID)

	require.NoError(t, authorsErr)
	assert.Equal(t, []catalog.TopAuthor{
		{AuthorID: orwell.ID, FullName: orwell.FullName, LoanCount: 4},
		{AuthorID: huxley.ID, FullName: huxley.FullName, LoanCount: 1},
	}, authors)
}

func Test_Reports_EmptyRange(t *testing.T) {
	engine, _ := givenEngine(t)
	ctx := testContext(t)

	books, err := postgresengine.NewBookRepository(engine).GetTopBooks(ctx, helper.Day(1800, 1, 1), helper.Day(1800, 12, 31), 5)

	require.NoError(t, err)
	assert.Empty(t, books)
}
