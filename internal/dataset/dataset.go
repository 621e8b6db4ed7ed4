// Package dataset holds the in-memory tabular frame that flows between the
// object store and every destination loader.
//
// A Dataset is columnar: each Column carries a Descriptor (name and inferred
// type) and a slice of typed values of equal length. Values are one of nil,
// int64, float64, bool, string or time.Time, matching the column's type.
package dataset

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"datapipe/internal/etlerr"

	"github.com/zeebo/xxh3"
)

// ColumnType is the closed set of inferred column types.
type ColumnType int

const (
	Text ColumnType = iota
	Integer
	Float
	Boolean
	Date
	Timestamp
)

func (t ColumnType) String() string {
	switch t {
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Boolean:
		return "boolean"
	case Date:
		return "date"
	case Timestamp:
		return "timestamp"
	default:
		return "text"
	}
}

// Descriptor names a column and its inferred type.
type Descriptor struct {
	Name string
	Type ColumnType
}

// Column is a Descriptor plus its values in row order.
type Column struct {
	Descriptor
	Values []any
}

// Dataset is a rectangular, ordered collection of columns.
type Dataset struct {
	Columns []Column
}

// New validates that all columns have the same length and unique names.
func New(cols ...Column) (*Dataset, error) {
	seen := make(map[string]struct{}, len(cols))
	for i, c := range cols {
		if strings.TrimSpace(c.Name) == "" {
			return nil, etlerr.Errorf(etlerr.KindData, "dataset.new", "column %d has no name", i+1)
		}
		if _, dup := seen[c.Name]; dup {
			return nil, etlerr.Errorf(etlerr.KindData, "dataset.new", "duplicate column name %q", c.Name)
		}
		seen[c.Name] = struct{}{}
		if i > 0 && len(c.Values) != len(cols[0].Values) {
			return nil, etlerr.Errorf(etlerr.KindData, "dataset.new",
				"column %q has %d values, column %q has %d", c.Name, len(c.Values), cols[0].Name, len(cols[0].Values))
		}
	}
	return &Dataset{Columns: cols}, nil
}

// NumRows returns the row count; zero for a dataset without columns.
func (d *Dataset) NumRows() int {
	if d == nil || len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0].Values)
}

// NumColumns returns the column count.
func (d *Dataset) NumColumns() int {
	if d == nil {
		return 0
	}
	return len(d.Columns)
}

// Descriptors returns the column descriptors in order.
func (d *Dataset) Descriptors() []Descriptor {
	out := make([]Descriptor, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Descriptor
	}
	return out
}

// ColumnNames returns the column names in order.
func (d *Dataset) ColumnNames() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// Row returns the i-th row aligned to column order.
func (d *Dataset) Row(i int) []any {
	row := make([]any, len(d.Columns))
	for j, c := range d.Columns {
		row[j] = c.Values[i]
	}
	return row
}

// Rows materializes every row, aligned to column order. The loaders take
// this shape because it is what COPY, appenders and prepared statements want.
func (d *Dataset) Rows() [][]any {
	n := d.NumRows()
	rows := make([][]any, n)
	for i := 0; i < n; i++ {
		rows[i] = d.Row(i)
	}
	return rows
}

// RenameColumns returns a copy of d with every column name passed through fn.
// Values are shared, not copied. Collisions after renaming are a data error.
func (d *Dataset) RenameColumns(fn func(string) string) (*Dataset, error) {
	cols := make([]Column, len(d.Columns))
	for i, c := range d.Columns {
		cols[i] = Column{Descriptor: Descriptor{Name: fn(c.Name), Type: c.Type}, Values: c.Values}
	}
	return New(cols...)
}

// Fingerprint returns an xxh3 hash over the column descriptors and every
// value. Two datasets with the same shape and content hash identically.
func (d *Dataset) Fingerprint() uint64 {
	h := xxh3.New()
	var buf [8]byte
	for _, c := range d.Columns {
		_, _ = h.WriteString(c.Name)
		_, _ = h.Write([]byte{0, byte(c.Type), 0})
	}
	for i := 0; i < d.NumRows(); i++ {
		for _, c := range d.Columns {
			switch v := c.Values[i].(type) {
			case nil:
				_, _ = h.Write([]byte{0xff})
			case int64:
				binary.LittleEndian.PutUint64(buf[:], uint64(v))
				_, _ = h.Write(buf[:])
			case float64:
				binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
				_, _ = h.Write(buf[:])
			case bool:
				if v {
					_, _ = h.Write([]byte{1})
				} else {
					_, _ = h.Write([]byte{0})
				}
			case time.Time:
				binary.LittleEndian.PutUint64(buf[:], uint64(v.UnixNano()))
				_, _ = h.Write(buf[:])
			default:
				_, _ = h.WriteString(fmt.Sprint(v))
			}
			_, _ = h.Write([]byte{0x1f})
		}
	}
	return h.Sum64()
}
