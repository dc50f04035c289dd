package postgresengine

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
)

// link describes a many-to-many association table.
type link struct {
	table     string
	parentCol string
	childCol  string
}

var (
	bookAuthors        = link{table: "book_author", parentCol: "book_id", childCol: "author_id"}
	bookGenres         = link{table: "book_genre", parentCol: "book_id", childCol: "genre_id"}
	editionTranslators = link{table: "book_edition_translator", parentCol: "book_edition_id", childCol: "translator_id"}
)

// replace deletes all links of the parent and inserts childIDs. Duplicate IDs are inserted once.
// It must run inside the transaction that writes the parent.
func (l link) replace(ctx context.Context, e *Engine, tx querier, operation string, parentID int64, childIDs []int64) error {
	del := builder.Delete(l.table).Prepared(true).Where(goqu.C(l.parentCol).Eq(parentID))
	if _, err := e.exec(ctx, tx, operation, del); err != nil {
		return err
	}

	ids := dedupe(childIDs)
	rows := make([]any, 0, len(ids))

	for _, id := range ids {
		rows = append(rows, goqu.Record{l.parentCol: parentID, l.childCol: id})
	}

	if len(rows) == 0 {
		return nil
	}

	_, err := e.exec(ctx, tx, operation, builder.Insert(l.table).Prepared(true).Rows(rows...))

	return err
}

// childIDs returns the IDs of the linked children of the parent, in ascending order.
func (l link) childIDs(ctx context.Context, e *Engine, q querier, operation string, parentID int64) ([]int64, error) {
	ds := builder.From(l.table).Prepared(true).
		Select(goqu.C(l.childCol)).
		Where(goqu.C(l.parentCol).Eq(parentID)).
		Order(goqu.C(l.childCol).Asc())

	return scanAll(ctx, e, q, operation, ds, func(rows dbRows) (int64, error) {
		var id int64
		err := rows.Scan(&id)

		return id, err
	})
}

// dedupe keeps the first occurrence of every ID.
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))

	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}

func authorIDs(authors []catalog.Author) []int64 {
	ids := make([]int64, len(authors))
	for i, a := range authors {
		ids[i] = a.ID
	}

	return ids
}

func genreIDs(genres []catalog.Genre) []int64 {
	ids := make([]int64, len(genres))
	for i, g := range genres {
		ids[i] = g.ID
	}

	return ids
}

func translatorIDs(translators []catalog.Translator) []int64 {
	ids := make([]int64, len(translators))
	for i, t := range translators {
		ids[i] = t.ID
	}

	return ids
}
