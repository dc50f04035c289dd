package materializer

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidLayout = errors.New("invalid layout")
	ErrUnknownTag    = errors.New("unknown segment tag")
)

// Kind is the Go type a column is scanned into.
type Kind int

const (
	Int Kind = iota
	String
	Time
	Bool
)

// Column is one selected column of a Segment.
type Column struct {
	Name  string
	Kind  Kind
	Table string // overrides Segment.Table when set
}

// Col builds a Column read from the segment's table.
func Col(name string, kind Kind) Column {
	return Column{Name: name, Kind: kind}
}

// From returns a copy of the column that is read from another table alias.
func (c Column) From(table string) Column {
	c.Table = table
	return c
}

// Segment is the contiguous range of columns that belongs to one entity of the join.
type Segment struct {
	Tag     string
	Table   string
	Key     string
	Columns []Column
}

// Layout is the ordered list of segments that make up a row.
type Layout struct {
	segments []Segment
	offsets  []int
	width    int
	byTag    map[string]int
	byName   []map[string]int
}

// NewLayout validates the segments and returns a Layout.
// Tags must be unique, column names must be unique per segment, and the key column must be part of the segment.
func NewLayout(segments ...Segment) (*Layout, error) {
	if len(segments) == 0 {
		return nil, errors.Join(ErrInvalidLayout, errors.New("no segments"))
	}

	l := &Layout{
		segments: segments,
		offsets:  make([]int, len(segments)),
		byTag:    make(map[string]int, len(segments)),
		byName:   make([]map[string]int, len(segments)),
	}

	for i, seg := range segments {
		if _, dup := l.byTag[seg.Tag]; dup {
			return nil, errors.Join(ErrInvalidLayout, fmt.Errorf("duplicate tag %q", seg.Tag))
		}

		names := make(map[string]int, len(seg.Columns))
		for j, c := range seg.Columns {
			if _, dup := names[c.Name]; dup {
				return nil, errors.Join(ErrInvalidLayout, fmt.Errorf("duplicate column %q in segment %q", c.Name, seg.Tag))
			}
			names[c.Name] = j
		}

		if _, ok := names[seg.Key]; !ok {
			return nil, errors.Join(ErrInvalidLayout, fmt.Errorf("key column %q missing in segment %q", seg.Key, seg.Tag))
		}

		l.byTag[seg.Tag] = i
		l.byName[i] = names
		l.offsets[i] = l.width
		l.width += len(seg.Columns)
	}

	return l, nil
}

// MustLayout is like NewLayout but panics on an invalid layout. Meant for package-level layouts.
func MustLayout(segments ...Segment) *Layout {
	l, err := NewLayout(segments...)
	if err != nil {
		panic(err)
	}

	return l
}

// Width returns the number of columns of a row.
func (l *Layout) Width() int {
	return l.width
}

// Select returns the qualified column names ("table.column") in row order.
func (l *Layout) Select() []string {
	out := make([]string, 0, l.width)
	for _, seg := range l.segments {
		for _, c := range seg.Columns {
			table := seg.Table
			if c.Table != "" {
				table = c.Table
			}

			if table == "" {
				out = append(out, c.Name)
				continue
			}

			out = append(out, table+"."+c.Name)
		}
	}

	return out
}

// Row is one scanned row, split into segments.
type Row struct {
	layout *Layout
	values []any
}

func (l *Layout) newRow() Row {
	values := make([]any, 0, l.width)
	for _, seg := range l.segments {
		for _, c := range seg.Columns {
			values = append(values, newDest(c.Kind))
		}
	}

	return Row{layout: l, values: values}
}

func newDest(kind Kind) any {
	switch kind {
	case String:
		return new(sql.NullString)
	case Time:
		return new(sql.NullTime)
	case Bool:
		return new(sql.NullBool)
	default:
		return new(sql.NullInt64)
	}
}

// Segment returns the values of the segment with the given tag.
func (r Row) Segment(tag string) (Values, error) {
	i, ok := r.layout.byTag[tag]
	if !ok {
		return Values{}, errors.Join(ErrUnknownTag, fmt.Errorf("tag %q", tag))
	}

	off := r.layout.offsets[i]
	seg := &r.layout.segments[i]

	return Values{
		segment: seg,
		names:   r.layout.byName[i],
		values:  r.values[off : off+len(seg.Columns)],
	}, nil
}

// Values gives typed access to the columns of one segment of one row.
// Accessors panic on unknown column names; layouts are static, so this is a programming error.
type Values struct {
	segment *Segment
	names   map[string]int
	values  []any
}

// IsNull reports whether every column of the segment is NULL.
func (v Values) IsNull() bool {
	for _, val := range v.values {
		if !isNull(val) {
			return false
		}
	}

	return true
}

// Key returns the value of the key column, or nil when it is NULL.
func (v Values) Key() any {
	val, _ := v.value(v.segment.Key).(driver.Valuer).Value()
	return val
}

func (v Values) value(name string) any {
	i, ok := v.names[name]
	if !ok {
		panic(fmt.Sprintf("materializer: unknown column %q in segment %q", name, v.segment.Tag))
	}

	return v.values[i]
}

func isNull(val any) bool {
	raw, err := val.(driver.Valuer).Value()
	return err == nil && raw == nil
}

func (v Values) Int64(name string) int64 {
	return v.value(name).(*sql.NullInt64).Int64
}

func (v Values) OptInt64(name string) *int64 {
	n := v.value(name).(*sql.NullInt64)
	if !n.Valid {
		return nil
	}

	out := n.Int64
	return &out
}

func (v Values) Int(name string) int {
	return int(v.Int64(name))
}

func (v Values) OptInt(name string) *int {
	n := v.OptInt64(name)
	if n == nil {
		return nil
	}

	out := int(*n)
	return &out
}

func (v Values) String(name string) string {
	return v.value(name).(*sql.NullString).String
}

func (v Values) OptString(name string) *string {
	s := v.value(name).(*sql.NullString)
	if !s.Valid {
		return nil
	}

	out := s.String
	return &out
}

func (v Values) Time(name string) time.Time {
	return v.value(name).(*sql.NullTime).Time
}

func (v Values) OptTime(name string) *time.Time {
	t := v.value(name).(*sql.NullTime)
	if !t.Valid {
		return nil
	}

	out := t.Time
	return &out
}

func (v Values) Bool(name string) bool {
	return v.value(name).(*sql.NullBool).Bool
}
