package query

import (
	"bytes"
	"encoding/json"
)

// Kind tells which of the three result shapes a Result carries.
type Kind int

const (
	// KindAffected carries the number of rows the statement touched.
	KindAffected Kind = iota
	// KindRows carries the rows of a row-returning statement.
	KindRows
	// KindID carries the generated key of an INSERT.
	KindID
)

func (k Kind) String() string {
	switch k {
	case KindRows:
		return "rows"
	case KindID:
		return "id"
	default:
		return "affected"
	}
}

// Result is the normalized outcome of Execute.
//
// A constraint violation is reported as KindAffected with Affected == 0,
// the same shape as an UPDATE or DELETE that matched nothing. NoEffect is
// true for both. Violation holds the store error for logging only.
type Result struct {
	Kind      Kind
	Rows      []Row
	ID        int64
	Affected  int64
	Violation error
}

// NoEffect reports whether a non-row statement did not happen: it either
// matched no rows or was rejected by a constraint. A row-returning statement
// always has an effect, even when Rows is empty.
func (r Result) NoEffect() bool {
	return r.Kind == KindAffected && r.Affected == 0
}

// Row is one record of a row-returning statement. Columns keep the order the
// store returned them in.
type Row struct {
	columns []string
	values  []any
}

// NewRow pairs columns with values. Both slices must be the same length.
func NewRow(columns []string, values []any) Row {
	return Row{columns: columns, values: values}
}

// Columns returns the column names in store order.
func (r Row) Columns() []string { return r.columns }

// Values returns the values in column order.
func (r Row) Values() []any { return r.values }

// Len returns the number of columns.
func (r Row) Len() int { return len(r.columns) }

// Get returns the value of the named column.
func (r Row) Get(column string) (any, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}
	return nil, false
}

// Int64 returns the named column as an integer when it holds one.
func (r Row) Int64(column string) (int64, bool) {
	v, _ := r.Get(column)
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	}
	return 0, false
}

// String returns the named column when it holds text.
func (r Row) String(column string) (string, bool) {
	v, _ := r.Get(column)
	s, ok := v.(string)
	return s, ok
}

// MarshalJSON encodes the row as an object with keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
