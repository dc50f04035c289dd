package postgresengine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
	"github.com/AntonStoeckl/library-catalog-go/catalog/postgresengine"
	"github.com/AntonStoeckl/library-catalog-go/testutil/helper"
)

func Test_LanguageRepository_CRUD(t *testing.T) {
	// arrange
	engine, _ := givenEngine(t)
	ctx := testContext(t)
	repo := postgresengine.NewLanguageRepository(engine)
	language := catalog.Language{Code: helper.Unique(t, "uk"), Name: helper.Unique(t, "Ukrainian")}

	// act
	require.NoError(t, repo.Add(ctx, &language))
	byID, errByID := repo.GetByID(ctx, language.ID)
	byCode, errByCode := repo.GetByCode(ctx, language.Code)

	// assert
	require.NoError(t, errByID)
	require.NoError(t, errByCode)
	assert.NotZero(t, language.ID)
	assert.Equal(t, &language, byID)
	assert.Equal(t, &language, byCode)

	// act
	language.Name = helper.Unique(t, "Українська")
	require.NoError(t, repo.Update(ctx, language))
	updated, err := repo.GetByID(ctx, language.ID)

	// assert
	require.NoError(t, err)
	assert.Equal(t, language.Name, updated.Name)

	// act
	require.NoError(t, repo.Delete(ctx, language.ID))
	deleted, err := repo.GetByID(ctx, language.ID)

	// assert
	require.NoError(t, err)
	assert.Nil(t, deleted)
}

func Test_LanguageRepository_DuplicateCode(t *testing.T) {
	// arrange
	engine, _ := givenEngine(t)
	ctx := testContext(t)
	repo := postgresengine.NewLanguageRepository(engine)
	existing := helper.GivenLanguage(t, ctx, engine)

	// act
	err := repo.Add(ctx, &catalog.Language{Code: existing.Code, Name: helper.Unique(t, "Other")})

	// assert
	assert.ErrorIs(t, err, catalog.ErrUniqueConstraintViolation)

	var constraintErr *postgresengine.ConstraintError
	require.ErrorAs(t, err, &constraintErr)
	assert.Equal(t, "uq_language_code", constraintErr.Constraint)
}

func Test_CountryRepository_EmptyNameViolatesCheck(t *testing.T) {
	engine, _ := givenEngine(t)
	ctx := testContext(t)

	err := postgresengine.NewCountryRepository(engine).Add(ctx, &catalog.Country{Code: helper.Unique(t, "xx"), Name: "  "})

	assert.ErrorIs(t, err, catalog.ErrCheckConstraintViolation)
}

func Test_Repositories_MissingRows(t *testing.T) {
	// arrange
	engine, _ := givenEngine(t)
	ctx := testContext(t)
	const missing = int64(1) << 60

	// act
	genre, getErr := postgresengine.NewGenreRepository(engine).GetByID(ctx, missing)
	updateErr := postgresengine.NewGenreRepository(engine).Update(ctx, catalog.Genre{ID: missing, Name: helper.Unique(t, "g")})
	deleteErr := postgresengine.NewPublisherRepository(engine).Delete(ctx, missing)
	reader, readerErr := postgresengine.NewReaderRepository(engine).GetByLibraryCardNumber(ctx, helper.Unique(t, "LC"))

	// assert
	assert.NoError(t, getErr)
	assert.Nil(t, genre)
	assert.ErrorIs(t, updateErr, catalog.ErrNotFound)
	assert.ErrorIs(t, deleteErr, catalog.ErrNotFound)
	assert.NoError(t, readerErr)
	assert.Nil(t, reader)
}

func Test_AuthorRepository_GetByIDIncludesCountry(t *testing.T) {
	// arrange
	engine, _ := givenEngine(t)
	ctx := testContext(t)
	country := helper.GivenCountry(t, ctx, engine)
	birth, death := 1891, 1940
	author := catalog.Author{FullName: helper.Unique(t, "Mikhail Bulgakov"), BirthYear: &birth, DeathYear: &death, CountryID: country.ID}
	require.NoError(t, postgresengine.NewAuthorRepository(engine).Add(ctx, &author))

	// act
	found, err := postgresengine.NewAuthorRepository(engine).GetByID(ctx, author.ID)

	// assert
	require.NoError(t, err)
	require.NotNil(t, found)
	require.NotNil(t, found.Country)
	assert.Equal(t, country, *found.Country)
	assert.Equal(t, 1891, *found.BirthYear)
	assert.Equal(t, 1940, *found.DeathYear)
}

func Test_AuthorRepository_DeathBeforeBirthViolatesCheck(t *testing.T) {
	engine, _ := givenEngine(t)
	ctx := testContext(t)
	birth, death := 1950, 1900

	err := postgresengine.NewAuthorRepository(engine).Add(ctx, &catalog.Author{
		FullName: helper.Unique(t, "Author"), BirthYear: &birth, DeathYear: &death, CountryID: helper.GivenCountry(t, ctx, engine).ID,
	})

	assert.ErrorIs(t, err, catalog.ErrCheckConstraintViolation)
}

func Test_AuthorRepository_UnknownCountryViolatesForeignKey(t *testing.T) {
	engine, _ := givenEngine(t)
	ctx := testContext(t)

	err := postgresengine.NewAuthorRepository(engine).Add(ctx, &catalog.Author{FullName: helper.Unique(t, "Author"), CountryID: 1 << 60})

	assert.ErrorIs(t, err, catalog.ErrForeignKeyViolation)
}

func Test_ReaderRepository_SearchByFullNameEscapesWildcards(t *testing.T) {
	// arrange
	engine, _ := givenEngine(t)
	ctx := testContext(t)
	repo := postgresengine.NewReaderRepository(engine)
	marker := helper.GivenUniqueID(t).String()
	email := marker + "@example.org"
	require.NoError(t, repo.Add(ctx, catalog.Reader{LibraryCardNumber: helper.Unique(t, "LC"), FullName: "100% " + marker, EmailAddress: &email}))
	require.NoError(t, repo.Add(ctx, catalog.Reader{LibraryCardNumber: helper.Unique(t, "LC"), FullName: "1000 " + marker}))

	// act
	found, err := repo.SearchByFullName(ctx, "100% "+marker, catalog.Page(1, 10))

	// assert
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "100% "+marker, found[0].FullName)
	assert.Equal(t, email, *found[0].EmailAddress)
	assert.Nil(t, found[0].PhoneNumber)
}

func Test_ReaderRepository_DuplicateCardNumber(t *testing.T) {
	engine, _ := givenEngine(t)
	ctx := testContext(t)
	reader := helper.GivenReader(t, ctx, engine)

	err := postgresengine.NewReaderRepository(engine).Add(ctx, catalog.Reader{LibraryCardNumber: reader.LibraryCardNumber, FullName: "Someone"})

	assert.ErrorIs(t, err, catalog.ErrUniqueConstraintViolation)
}

func Test_Count_GrowsWithInserts(t *testing.T) {
	// arrange
	engine, _ := givenEngine(t)
	ctx := testContext(t)
	repo := postgresengine.NewGenreRepository(engine)
	before, err := repo.Count(ctx)
	require.NoError(t, err)

	// act
	helper.GivenGenre(t, ctx, engine)
	helper.GivenGenre(t, ctx, engine)
	after, err := repo.Count(ctx)

	// assert
	require.NoError(t, err)
	assert.Equal(t, before+2, after)
}
