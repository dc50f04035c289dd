package postgresengine

import (
	"testing"

	"github.com/doug-martin/goqu/v9/exp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
)

func Test_TotalCopiesQuery_LocksTheEditionRow(t *testing.T) {
	// act
	sql, args, err := totalCopiesQuery(7).ForUpdate(exp.Wait).ToSQL()

	// assert
	require.NoError(t, err)
	assert.Contains(t, sql, `SELECT "total_copies" FROM "book_edition" WHERE ("book_edition_id" = $1)`)
	assert.Contains(t, sql, "FOR UPDATE")
	assert.NotContains(t, sql, "NOWAIT")
	assert.Equal(t, []any{int64(7)}, args)
}

func Test_OpenLoanCountQuery_CountsOnlyOpenLoans(t *testing.T) {
	sql, args, err := openLoanCountQuery(7).ToSQL()

	require.NoError(t, err)
	assert.Contains(t, sql, `COUNT(*)`)
	assert.Contains(t, sql, `"return_date" IS NULL`)
	assert.NotContains(t, sql, "FOR UPDATE")
	assert.Equal(t, []any{int64(7)}, args)
}

func Test_PageQuery_PagesRootsInASubquery(t *testing.T) {
	// arrange
	repo := NewBookRepository(&Engine{})

	// act
	sql, _, err := repo.table.pageQuery(catalog.Page(3, 10)).ToSQL()

	// assert
	require.NoError(t, err)
	assert.Contains(t, sql, `"b"."book_id" IN (SELECT "b"."book_id" FROM "book" AS "b" ORDER BY "b"."original_title" ASC, "b"."book_id" ASC LIMIT `)
	assert.Contains(t, sql, "OFFSET")
	assert.Contains(t, sql, `ORDER BY "b"."original_title" ASC, "b"."book_id" ASC, "a"."author_full_name" ASC`)
	assert.Contains(t, sql, `LEFT JOIN "book_author" AS "ba"`)
}

func Test_PageQuery_EditionsCarryOpenLoanCount(t *testing.T) {
	repo := NewBookEditionRepository(&Engine{})

	sql, _, err := repo.table.pageQuery(catalog.Page(1, 5)).ToSQL()

	require.NoError(t, err)
	assert.Contains(t, sql, `"ol"."open_loans"`)
	assert.Contains(t, sql, `"return_date" IS NULL`)
}

func Test_ContainsPattern_EscapesWildcards(t *testing.T) {
	assert.Equal(t, `%orwell%`, containsPattern("orwell"))
	assert.Equal(t, `%100\% \_real\_ a\\b%`, containsPattern(`100% _real_ a\b`))
}

func Test_Nullable(t *testing.T) {
	isbn := "978-0-14-023750-4"

	assert.Nil(t, nullable[string](nil))
	assert.Equal(t, isbn, nullable(&isbn))
}

func Test_Link_DeduplicatesChildIDs(t *testing.T) {
	assert.Equal(t, []int64{3, 1, 2}, dedupe([]int64{3, 1, 3, 2, 1}))
	assert.Empty(t, dedupe(nil))
}
