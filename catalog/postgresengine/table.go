package postgresengine

import (
	"context"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
	"github.com/AntonStoeckl/library-catalog-go/catalog/materializer"
	"github.com/AntonStoeckl/library-catalog-go/catalog/postgresengine/internal/adapters"
)

// table holds the CRUD plumbing shared by all repositories of one root table.
type table[T any] struct {
	engine *Engine
	name   string
	alias  string
	key    string
	order  []string
	plan   *materializer.Plan[*T]
	joins  func(ds *goqu.SelectDataset) *goqu.SelectDataset
	// childOrder orders joined children below each root, as qualified column names.
	childOrder []string
}

func (t *table[T]) keyColumn() exp.IdentifierExpression {
	return goqu.T(t.alias).Col(t.key)
}

func (t *table[T]) column(name string) exp.IdentifierExpression {
	return goqu.T(t.alias).Col(name)
}

func (t *table[T]) from() *goqu.SelectDataset {
	return builder.From(goqu.T(t.name).As(t.alias)).Prepared(true)
}

// orderBy is the stable display order: the display columns, then the key.
func (t *table[T]) orderBy() []exp.OrderedExpression {
	out := make([]exp.OrderedExpression, 0, len(t.order)+1)
	for _, col := range t.order {
		out = append(out, t.column(col).Asc())
	}

	return append(out, t.keyColumn().Asc())
}

// graphOrder is orderBy followed by the child order.
func (t *table[T]) graphOrder() []exp.OrderedExpression {
	out := t.orderBy()
	for _, col := range t.childOrder {
		out = append(out, goqu.I(col).Asc())
	}

	return out
}

// selectGraph selects all layout columns of the aggregate, joins included.
func (t *table[T]) selectGraph() *goqu.SelectDataset {
	ds := t.from()
	if t.joins != nil {
		ds = t.joins(ds)
	}

	cols := t.plan.Layout().Select()
	sel := make([]any, len(cols))
	for i, c := range cols {
		sel[i] = goqu.I(c)
	}

	return ds.Select(sel...)
}

// rootKeys selects the keys of the root rows matching filter, for paging roots independently of joins.
func (t *table[T]) rootKeys(filter ...exp.Expression) *goqu.SelectDataset {
	ds := t.from().Select(t.keyColumn())
	if len(filter) > 0 {
		ds = ds.Where(filter...)
	}

	return ds
}

func (t *table[T]) list(ctx context.Context, operation string, ds *goqu.SelectDataset) ([]T, error) {
	var out []T

	err := t.engine.observe(ctx, operation, func(ctx context.Context) (int, error) {
		roots, err := collect(ctx, t.engine, t.engine.reader(ctx), operation, ds, t.plan)
		if err != nil {
			return 0, err
		}

		out = derefAll(roots)

		return len(out), nil
	})

	return out, err
}

func (t *table[T]) getOne(ctx context.Context, operation string, filter ...exp.Expression) (*T, error) {
	var out *T

	err := t.engine.observe(ctx, operation, func(ctx context.Context) (int, error) {
		ds := t.selectGraph().Where(filter...).Order(t.graphOrder()...)

		found, err := collectOne(ctx, t.engine, t.engine.reader(ctx), operation, ds, t.plan)
		if err != nil || found == nil {
			return 0, err
		}

		out = found

		return 1, nil
	})

	return out, err
}

func (t *table[T]) getByKey(ctx context.Context, operation string, key any) (*T, error) {
	return t.getOne(ctx, operation, t.keyColumn().Eq(key))
}

// getPage returns one page of roots. Roots are paged in a subquery so that joined child rows do not
// shift page boundaries.
func (t *table[T]) getPage(ctx context.Context, operation string, page catalog.PageRequest, filter ...exp.Expression) ([]T, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}

	return t.list(ctx, operation, t.pageQuery(page, filter...))
}

func (t *table[T]) pageQuery(page catalog.PageRequest, filter ...exp.Expression) *goqu.SelectDataset {
	roots := t.rootKeys(filter...).Order(t.orderBy()...).Limit(page.Limit()).Offset(page.Offset())

	return t.selectGraph().Where(t.keyColumn().In(roots)).Order(t.graphOrder()...)
}

func (t *table[T]) getAll(ctx context.Context, operation string) ([]T, error) {
	return t.list(ctx, operation, t.selectGraph().Order(t.graphOrder()...))
}

func (t *table[T]) count(ctx context.Context, operation string, filter ...exp.Expression) (int, error) {
	var out int

	err := t.engine.observe(ctx, operation, func(ctx context.Context) (int, error) {
		ds := t.from().Select(goqu.COUNT(goqu.Star()))
		if len(filter) > 0 {
			ds = ds.Where(filter...)
		}

		n, _, err := scalar[int64](ctx, t.engine, t.engine.reader(ctx), operation, ds)
		out = int(n)

		return out, err
	})

	return out, err
}

// insert inserts one row and returns the generated key.
func (t *table[T]) insert(ctx context.Context, q adapters.Querier, operation string, record goqu.Record) (int64, error) {
	ds := builder.Insert(t.name).Prepared(true).Rows(record).Returning(goqu.C(t.key))

	id, _, err := scalar[int64](ctx, t.engine, q, operation, ds)

	return id, err
}

func (t *table[T]) update(ctx context.Context, q adapters.Querier, operation string, key any, record goqu.Record) error {
	ds := builder.Update(t.name).Prepared(true).Set(record).Where(goqu.C(t.key).Eq(key))

	return t.engine.execExpectingRow(ctx, q, operation, ds, key)
}

func (t *table[T]) delete(ctx context.Context, q adapters.Querier, operation string, key any) error {
	ds := builder.Delete(t.name).Prepared(true).Where(goqu.C(t.key).Eq(key))

	return t.engine.execExpectingRow(ctx, q, operation, ds, key)
}

// observedWrite runs a single-statement write outside of a transaction.
func (t *table[T]) observedWrite(ctx context.Context, operation string, fn func(ctx context.Context, q querier) error) error {
	return t.engine.observe(ctx, operation, func(ctx context.Context) (int, error) {
		if err := fn(ctx, t.engine.db); err != nil {
			return 0, err
		}

		return 1, nil
	})
}

// observedTx runs a multi-statement write in one transaction.
func (t *table[T]) observedTx(ctx context.Context, operation string, fn func(ctx context.Context, tx querier) error) error {
	return t.engine.observe(ctx, operation, func(ctx context.Context) (int, error) {
		err := t.engine.withinTx(ctx, func(tx adapters.Querier) error {
			return fn(ctx, tx)
		})
		if err != nil {
			return 0, err
		}

		return 1, nil
	})
}

func derefAll[T any](ptrs []*T) []T {
	out := make([]T, len(ptrs))
	for i, p := range ptrs {
		out[i] = *p
	}

	return out
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}

	return *p
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching values that contain s.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

type querier = adapters.Querier

type dbRows = adapters.DBRows
