package materializer

import (
	"errors"
	"fmt"
)

var ErrScanningRowFailed = errors.New("scanning row failed")

// Node is a relation below an entity of type P.
type Node[P any] interface {
	visit(g *Graph, row Row, parentTag string, parentKey any) error
	attach(g *Graph, parent P, parentTag string, parentKey any)
}

type relation[P, C any] struct {
	tag      string
	many     bool
	build    func(Values) C
	link     func(P, C)
	children []Node[C]
}

// HasOne declares a 0..1 relation. The child is reassigned on every row that carries it.
// C should be a pointer type so that nested relations can be attached to it.
func HasOne[P, C any](tag string, build func(Values) C, assign func(P, C), children ...Node[C]) Node[P] {
	return &relation[P, C]{tag: tag, build: build, link: assign, children: children}
}

// HasMany declares a one-to-many or many-to-many relation.
// add is called once per distinct child, in first-seen order.
func HasMany[P, C any](tag string, build func(Values) C, add func(P, C), children ...Node[C]) Node[P] {
	return &relation[P, C]{tag: tag, many: true, build: build, link: add, children: children}
}

func (r *relation[P, C]) visit(g *Graph, row Row, parentTag string, parentKey any) error {
	seg, err := row.Segment(r.tag)
	if err != nil {
		return err
	}

	key := seg.Key()
	if key == nil || seg.IsNull() {
		return nil
	}

	if _, ok := g.Lookup(r.tag, key); !ok {
		g.Store(r.tag, key, r.build(seg))
	}

	if r.many {
		g.Link(parentTag, parentKey, r.tag, key)
	} else {
		g.Replace(parentTag, parentKey, r.tag, key)
	}

	for _, child := range r.children {
		if err := child.visit(g, row, r.tag, key); err != nil {
			return err
		}
	}

	return nil
}

func (r *relation[P, C]) attach(g *Graph, parent P, parentTag string, parentKey any) {
	for _, key := range g.Children(parentTag, parentKey, r.tag) {
		e, _ := g.Lookup(r.tag, key)
		child := e.(C)

		if g.markAssembled(r.tag, key) {
			for _, n := range r.children {
				n.attach(g, child, r.tag, key)
			}
		}

		r.link(parent, child)
	}
}

// Plan declares the root entity of an aggregate and its relations.
type Plan[R any] struct {
	layout   *Layout
	tag      string
	build    func(Values) R
	children []Node[R]
}

// Root declares a plan for the given layout, with the root entity read from the segment tagged tag.
func Root[R any](layout *Layout, tag string, build func(Values) R, children ...Node[R]) *Plan[R] {
	return &Plan[R]{layout: layout, tag: tag, build: build, children: children}
}

// Layout returns the layout the plan reads from.
func (p *Plan[R]) Layout() *Layout {
	return p.layout
}

// Rows is the row stream of one query.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// Collect consumes all rows and returns the deduplicated roots in first-seen order.
func Collect[R any](plan *Plan[R], rows Rows) ([]R, error) {
	g := NewGraph()

	for rows.Next() {
		row := plan.layout.newRow()
		if err := rows.Scan(row.values...); err != nil {
			return nil, errors.Join(ErrScanningRowFailed, err)
		}

		if err := plan.Visit(g, row); err != nil {
			return nil, err
		}
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrScanningRowFailed, err)
	}

	return plan.Assemble(g), nil
}

// CollectOne is Collect for single-entity lookups: it returns the first root, or false when there is none.
// Several physical rows for one logical aggregate are expected.
func CollectOne[R any](plan *Plan[R], rows Rows) (R, bool, error) {
	var zero R

	roots, err := Collect(plan, rows)
	if err != nil {
		return zero, false, err
	}

	if len(roots) == 0 {
		return zero, false, nil
	}

	return roots[0], true, nil
}

// Visit registers the entities and links of one row in the graph.
func (p *Plan[R]) Visit(g *Graph, row Row) error {
	seg, err := row.Segment(p.tag)
	if err != nil {
		return err
	}

	if seg.IsNull() {
		return nil
	}

	key := seg.Key()
	if key == nil {
		return fmt.Errorf("materializer: root %q has a NULL key", p.tag)
	}

	if _, ok := g.Lookup(p.tag, key); !ok {
		g.Store(p.tag, key, p.build(seg))
	}

	for _, child := range p.children {
		if err := child.visit(g, row, p.tag, key); err != nil {
			return err
		}
	}

	return nil
}

// Assemble attaches all linked children and returns the roots in first-seen order.
func (p *Plan[R]) Assemble(g *Graph) []R {
	keys := g.Keys(p.tag)
	out := make([]R, 0, len(keys))

	for _, key := range keys {
		e, _ := g.Lookup(p.tag, key)
		root := e.(R)

		for _, n := range p.children {
			n.attach(g, root, p.tag, key)
		}

		out = append(out, root)
	}

	return out
}
