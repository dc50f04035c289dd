package materializer_test

import (
	"database/sql"
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
	"github.com/AntonStoeckl/library-catalog-go/catalog/materializer"
)

type fakeRows struct {
	rows [][]any
	pos  int
	err  error
}

func (f *fakeRows) Next() bool {
	if f.pos >= len(f.rows) {
		return false
	}
	f.pos++

	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	row := f.rows[f.pos-1]
	if len(row) != len(dest) {
		return errors.New("column count mismatch")
	}

	for i, d := range dest {
		if err := d.(sql.Scanner).Scan(row[i]); err != nil {
			return err
		}
	}

	return nil
}

func (f *fakeRows) Err() error {
	return f.err
}

var editionLayout = materializer.MustLayout(
	materializer.Segment{Tag: "edition", Table: "be", Key: "book_edition_id", Columns: []materializer.Column{
		materializer.Col("book_edition_id", materializer.Int),
		materializer.Col("edition_title", materializer.String),
		materializer.Col("total_copies", materializer.Int),
	}},
	materializer.Segment{Tag: "publisher", Table: "p", Key: "publisher_id", Columns: []materializer.Column{
		materializer.Col("publisher_id", materializer.Int),
		materializer.Col("publisher_name", materializer.String),
	}},
	materializer.Segment{Tag: "author", Table: "a", Key: "author_id", Columns: []materializer.Column{
		materializer.Col("author_id", materializer.Int),
		materializer.Col("author_full_name", materializer.String),
	}},
	materializer.Segment{Tag: "genre", Table: "g", Key: "genre_id", Columns: []materializer.Column{
		materializer.Col("genre_id", materializer.Int),
		materializer.Col("genre_name", materializer.String),
	}},
)

func editionPlan() *materializer.Plan[*catalog.BookEdition] {
	return materializer.Root(editionLayout, "edition",
		func(v materializer.Values) *catalog.BookEdition {
			return &catalog.BookEdition{
				ID:          v.Int64("book_edition_id"),
				Title:       v.String("edition_title"),
				TotalCopies: v.Int("total_copies"),
				Book:        &catalog.Book{},
			}
		},
		materializer.HasOne("publisher",
			func(v materializer.Values) *catalog.Publisher {
				return &catalog.Publisher{ID: v.Int64("publisher_id"), Name: v.String("publisher_name")}
			},
			func(e *catalog.BookEdition, p *catalog.Publisher) {
				e.Publisher = p
				e.PublisherID = &p.ID
			},
		),
		materializer.HasMany("author",
			func(v materializer.Values) *catalog.Author {
				return &catalog.Author{ID: v.Int64("author_id"), FullName: v.String("author_full_name")}
			},
			func(e *catalog.BookEdition, a *catalog.Author) {
				e.Book.Authors = append(e.Book.Authors, *a)
			},
		),
		materializer.HasMany("genre",
			func(v materializer.Values) *catalog.Genre {
				return &catalog.Genre{ID: v.Int64("genre_id"), Name: v.String("genre_name")}
			},
			func(e *catalog.BookEdition, g *catalog.Genre) {
				e.Book.Genres = append(e.Book.Genres, *g)
			},
		),
	)
}

// combinatorialRows returns the rows a join of one edition with 2 authors and 3 genres produces.
func combinatorialRows() [][]any {
	var rows [][]any
	for _, a := range [][]any{{int64(10), "Author A"}, {int64(11), "Author B"}} {
		for _, g := range [][]any{{int64(20), "Fiction"}, {int64(21), "Drama"}, {int64(22), "Classic"}} {
			row := []any{int64(1), "Edition One", int64(3), int64(5), "Penguin"}
			row = append(row, a...)
			row = append(row, g...)
			rows = append(rows, row)
		}
	}

	return rows
}

func Test_Collect_CombinatorialJoin_YieldsOneRootWithDistinctChildren(t *testing.T) {
	// arrange
	rows := &fakeRows{rows: combinatorialRows()}

	// act
	editions, err := materializer.Collect(editionPlan(), rows)

	// assert
	require.NoError(t, err)
	require.Len(t, editions, 1)
	assert.Equal(t, int64(1), editions[0].ID)
	assert.Len(t, editions[0].Book.Authors, 2)
	assert.Len(t, editions[0].Book.Genres, 3)
	require.NotNil(t, editions[0].Publisher)
	assert.Equal(t, "Penguin", editions[0].Publisher.Name)
}

func Test_Collect_IsIndependentOfRowOrder(t *testing.T) {
	original := combinatorialRows()
	expected, err := materializer.Collect(editionPlan(), &fakeRows{rows: original})
	require.NoError(t, err)

	rnd := rand.New(rand.NewSource(42)) //nolint:gosec

	for i := 0; i < 20; i++ {
		// arrange
		shuffled := make([][]any, len(original))
		copy(shuffled, original)
		rnd.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		// act
		actual, err := materializer.Collect(editionPlan(), &fakeRows{rows: shuffled})

		// assert
		require.NoError(t, err)
		require.Len(t, actual, 1)
		assert.ElementsMatch(t, expected[0].Book.Authors, actual[0].Book.Authors)
		assert.ElementsMatch(t, expected[0].Book.Genres, actual[0].Book.Genres)
	}
}

func Test_Collect_SkipsAllNullSegments(t *testing.T) {
	// arrange
	rows := &fakeRows{rows: [][]any{
		{int64(1), "No Children", int64(1), nil, nil, nil, nil, nil, nil},
		{int64(2), "With Genre", int64(2), nil, nil, nil, nil, int64(20), "Fiction"},
	}}

	// act
	editions, err := materializer.Collect(editionPlan(), rows)

	// assert
	require.NoError(t, err)
	require.Len(t, editions, 2)
	assert.Nil(t, editions[0].Publisher)
	assert.Nil(t, editions[0].PublisherID)
	assert.Empty(t, editions[0].Book.Authors)
	assert.Empty(t, editions[0].Book.Genres)
	assert.Nil(t, editions[1].Publisher)
	assert.Len(t, editions[1].Book.Genres, 1)
}

func Test_Collect_ReturnsRootsInFirstSeenOrder(t *testing.T) {
	// arrange
	rows := &fakeRows{rows: [][]any{
		{int64(3), "C", int64(1), nil, nil, int64(10), "A", nil, nil},
		{int64(1), "A", int64(1), nil, nil, int64(10), "A", nil, nil},
		{int64(3), "C", int64(1), nil, nil, int64(11), "B", nil, nil},
		{int64(2), "B", int64(1), nil, nil, nil, nil, nil, nil},
	}}

	// act
	editions, err := materializer.Collect(editionPlan(), rows)

	// assert
	require.NoError(t, err)
	require.Len(t, editions, 3)
	assert.Equal(t, []int64{3, 1, 2}, []int64{editions[0].ID, editions[1].ID, editions[2].ID})
	assert.Len(t, editions[0].Book.Authors, 2)
	assert.Len(t, editions[1].Book.Authors, 1)
}

func Test_Collect_SharesChildEntitiesAcrossRoots(t *testing.T) {
	// arrange
	rows := &fakeRows{rows: [][]any{
		{int64(1), "A", int64(1), int64(5), "Penguin", int64(10), "Author A", nil, nil},
		{int64(2), "B", int64(1), int64(5), "Penguin", int64(10), "Author A", nil, nil},
	}}

	// act
	editions, err := materializer.Collect(editionPlan(), rows)

	// assert
	require.NoError(t, err)
	require.Len(t, editions, 2)
	assert.Same(t, editions[0].Publisher, editions[1].Publisher)
	assert.Equal(t, editions[0].Book.Authors, editions[1].Book.Authors)
}

func Test_CollectOne_TakesFirstOrAbsent(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		edition, found, err := materializer.CollectOne(editionPlan(), &fakeRows{})

		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, edition)
	})

	t.Run("several physical rows", func(t *testing.T) {
		edition, found, err := materializer.CollectOne(editionPlan(), &fakeRows{rows: combinatorialRows()})

		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "Edition One", edition.Title)
	})
}

func Test_Collect_PropagatesScanAndRowErrors(t *testing.T) {
	t.Run("scan", func(t *testing.T) {
		rows := &fakeRows{rows: [][]any{{int64(1)}}}

		_, err := materializer.Collect(editionPlan(), rows)

		assert.ErrorIs(t, err, materializer.ErrScanningRowFailed)
	})

	t.Run("rows", func(t *testing.T) {
		cause := errors.New("connection reset")
		rows := &fakeRows{err: cause}

		_, err := materializer.Collect(editionPlan(), rows)

		assert.ErrorIs(t, err, materializer.ErrScanningRowFailed)
		assert.ErrorIs(t, err, cause)
	})
}

func Test_Collect_NestedHasManyBelowHasMany(t *testing.T) {
	// arrange
	layout := materializer.MustLayout(
		materializer.Segment{Tag: "translator", Key: "translator_id", Columns: []materializer.Column{
			materializer.Col("translator_id", materializer.Int),
		}},
		materializer.Segment{Tag: "edition", Key: "book_edition_id", Columns: []materializer.Column{
			materializer.Col("book_edition_id", materializer.Int),
		}},
		materializer.Segment{Tag: "co_translator", Key: "co_translator_id", Columns: []materializer.Column{
			materializer.Col("co_translator_id", materializer.Int),
		}},
	)
	plan := materializer.Root(layout, "translator",
		func(v materializer.Values) *catalog.Translator {
			return &catalog.Translator{ID: v.Int64("translator_id")}
		},
		materializer.HasMany("edition",
			func(v materializer.Values) *catalog.BookEdition {
				return &catalog.BookEdition{ID: v.Int64("book_edition_id")}
			},
			func(t *catalog.Translator, e *catalog.BookEdition) { t.BookEditions = append(t.BookEditions, *e) },
			materializer.HasMany("co_translator",
				func(v materializer.Values) *catalog.Translator {
					return &catalog.Translator{ID: v.Int64("co_translator_id")}
				},
				func(e *catalog.BookEdition, t *catalog.Translator) { e.Translators = append(e.Translators, *t) },
			),
		),
	)
	rows := &fakeRows{rows: [][]any{
		{int64(1), int64(100), int64(1)},
		{int64(1), int64(101), int64(1)},
		{int64(1), int64(100), int64(2)},
		{int64(1), int64(100), int64(2)},
	}}

	// act
	translators, err := materializer.Collect(plan, rows)

	// assert
	require.NoError(t, err)
	require.Len(t, translators, 1)
	require.Len(t, translators[0].BookEditions, 2)
	ids := []int64{}
	for _, tr := range translators[0].BookEditions[0].Translators {
		ids = append(ids, tr.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	assert.Equal(t, []int64{1, 2}, ids)
	assert.Len(t, translators[0].BookEditions[1].Translators, 1)
}

func Test_NewLayout_RejectsInvalidSegments(t *testing.T) {
	tests := []struct {
		name     string
		segments []materializer.Segment
	}{
		{name: "no_segments"},
		{
			name: "duplicate_tag",
			segments: []materializer.Segment{
				{Tag: "a", Key: "id", Columns: []materializer.Column{materializer.Col("id", materializer.Int)}},
				{Tag: "a", Key: "id", Columns: []materializer.Column{materializer.Col("id", materializer.Int)}},
			},
		},
		{
			name: "missing_key",
			segments: []materializer.Segment{
				{Tag: "a", Key: "id", Columns: []materializer.Column{materializer.Col("name", materializer.String)}},
			},
		},
		{
			name: "duplicate_column",
			segments: []materializer.Segment{
				{Tag: "a", Key: "id", Columns: []materializer.Column{
					materializer.Col("id", materializer.Int),
					materializer.Col("id", materializer.Int),
				}},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := materializer.NewLayout(tc.segments...)
			assert.ErrorIs(t, err, materializer.ErrInvalidLayout)
		})
	}
}

func Test_Layout_Select_QualifiesColumns(t *testing.T) {
	layout := materializer.MustLayout(
		materializer.Segment{Tag: "edition", Table: "be", Key: "book_edition_id", Columns: []materializer.Column{
			materializer.Col("book_edition_id", materializer.Int),
			materializer.Col("open_loans", materializer.Int).From("ol"),
		}},
	)

	assert.Equal(t, []string{"be.book_edition_id", "ol.open_loans"}, layout.Select())
	assert.Equal(t, 2, layout.Width())
}
