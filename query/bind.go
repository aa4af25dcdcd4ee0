package query

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun/schema"
)

// ErrBind is returned when a statement and its parameters do not line up,
// or a value has a type the store cannot bind.
var ErrBind = errors.New("query: bind failed")

// Params maps placeholder names (without the leading colon) to values.
// Values may be nil, strings, booleans, integers, floats, time.Time or
// pointers to any of those.
type Params map[string]any

// bind replaces every :name placeholder in stmt with the SQL literal of
// params[name], rendered by the dialect. Quoted strings, quoted identifiers,
// comments and :: casts are copied through untouched.
func bind(d schema.Dialect, stmt string, params Params) (string, error) {
	var (
		b    = make([]byte, 0, len(stmt)+16*len(params))
		used = make(map[string]bool, len(params))
		err  error
	)

	for i := 0; i < len(stmt); {
		c := stmt[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := skipQuoted(stmt, i)
			b = append(b, stmt[i:end]...)
			i = end

		case c == '-' && strings.HasPrefix(stmt[i:], "--"):
			end := strings.IndexByte(stmt[i:], '\n')
			if end < 0 {
				end = len(stmt) - i
			}
			b = append(b, stmt[i:i+end]...)
			i += end

		case c == '/' && strings.HasPrefix(stmt[i:], "/*"):
			end := strings.Index(stmt[i+2:], "*/")
			if end < 0 {
				end = len(stmt) - i
			} else {
				end += 4
			}
			b = append(b, stmt[i:i+end]...)
			i += end

		case c == ':' && i+1 < len(stmt) && stmt[i+1] == ':':
			b = append(b, "::"...)
			i += 2

		case c == ':' && i+1 < len(stmt) && isIdentStart(stmt[i+1]):
			j := i + 1
			for j < len(stmt) && isIdentPart(stmt[j]) {
				j++
			}
			name := stmt[i+1 : j]
			v, ok := params[name]
			if !ok {
				return "", fmt.Errorf("%w: no value for :%s", ErrBind, name)
			}
			used[name] = true
			if b, err = appendValue(d, b, v); err != nil {
				return "", fmt.Errorf("%w: :%s: %v", ErrBind, name, err)
			}
			i = j

		default:
			b = append(b, c)
			i++
		}
	}

	if len(used) != len(params) {
		var extra []string
		for name := range params {
			if !used[name] {
				extra = append(extra, name)
			}
		}
		sort.Strings(extra)
		return "", fmt.Errorf("%w: unused parameters %s", ErrBind, strings.Join(extra, ", "))
	}

	return string(b), nil
}

// skipQuoted returns the index just past the quoted run starting at i.
// A doubled quote character is an escaped quote.
func skipQuoted(s string, i int) int {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		if s[j] != q {
			continue
		}
		if j+1 < len(s) && s[j+1] == q {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

var timeType = reflect.TypeOf(time.Time{})

func appendValue(d schema.Dialect, b []byte, v any) ([]byte, error) {
	if v == nil {
		return append(b, "NULL"...), nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return append(b, "NULL"...), nil
		}
		rv = rv.Elem()
	}

	if rv.Type() == timeType {
		return d.AppendTime(b, rv.Interface().(time.Time)), nil
	}

	switch rv.Kind() {
	case reflect.String:
		return d.AppendString(b, rv.String()), nil
	case reflect.Bool:
		return d.AppendBool(b, rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.AppendInt(b, rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.AppendUint(b, rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("cannot bind %v", f)
		}
		bits := 64
		if rv.Kind() == reflect.Float32 {
			bits = 32
		}
		return strconv.AppendFloat(b, f, 'g', -1, bits), nil
	}

	return nil, fmt.Errorf("unsupported type %T", v)
}
