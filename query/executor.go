// Package query is the single path between request handlers and the store.
//
// Statements use named placeholders (:name). Values are rendered as SQL
// literals by the store's bun dialect before the statement is submitted, so
// the text that reaches the store, the query log and any ExecError is the
// same string with every bound value visible.
package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ErrNoRows is returned by Select when scanning into a single record and the
// statement produced nothing. Slice destinations never see it.
var ErrNoRows = sql.ErrNoRows

// Runner is implemented by *Executor. Consumers accept it so tests can
// substitute their own.
type Runner interface {
	Execute(ctx context.Context, statement string, params Params) (Result, error)
	Select(ctx context.Context, dst any, statement string, params Params) error
}

// Executor runs statements against a bun.DB. It holds no per-call state and
// is safe for concurrent use.
type Executor struct {
	db      *bun.DB
	logger  *zap.Logger
	timeout time.Duration
}

var _ Runner = (*Executor)(nil)

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for folded constraint violations.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithTimeout bounds every statement. Zero means no bound beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

// New returns an Executor for db.
func New(db *bun.DB, opts ...Option) *Executor {
	e := &Executor{db: db, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render returns the statement with every placeholder replaced by its literal.
func (e *Executor) Render(statement string, params Params) (string, error) {
	return bind(e.db.Dialect(), statement, params)
}

// Execute binds params into statement, runs it and shapes the outcome:
// rows for row-returning statements (never nil), the generated id for an
// INSERT when the driver reports one, otherwise the affected row count.
//
// A constraint violation is not an error: it comes back as a Result whose
// NoEffect is true, indistinguishable by shape from a statement that matched
// no rows. Every other failure is an *ExecError.
func (e *Executor) Execute(ctx context.Context, statement string, params Params) (Result, error) {
	rendered, err := e.Render(statement, params)
	if err != nil {
		return Result{}, err
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if returnsRows(statement) {
		rows, err := e.db.QueryContext(ctx, rendered)
		if err != nil {
			return e.fail(rendered, err)
		}
		defer rows.Close()

		out, err := scanRows(rows)
		if err != nil {
			return e.fail(rendered, err)
		}
		return Result{Kind: KindRows, Rows: out}, nil
	}

	res, err := e.db.ExecContext(ctx, rendered)
	if err != nil {
		return e.fail(rendered, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return Result{}, &ExecError{Query: rendered, Err: err}
	}

	// SQLite keeps reporting the previous insert's id when an INSERT adds
	// nothing, so the id only counts when a row was written.
	if n > 0 && leadingKeyword(statement) == "INSERT" {
		if id, err := res.LastInsertId(); err == nil && id > 0 {
			return Result{Kind: KindID, ID: id}, nil
		}
	}
	return Result{Kind: KindAffected, Affected: n}, nil
}

// Select binds params into statement and scans the rows into dst, a pointer
// to a slice of structs (bun tags name the columns) or to a single struct.
func (e *Executor) Select(ctx context.Context, dst any, statement string, params Params) error {
	rendered, err := e.Render(statement, params)
	if err != nil {
		return err
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := e.db.NewRaw(rendered).Scan(ctx, dst); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrNoRows
		case IsConstraintViolation(err):
			e.logViolation(rendered, err)
			return fmt.Errorf("%w: %v", ErrConstraint, err)
		}
		return &ExecError{Query: rendered, Err: err}
	}
	return nil
}

func (e *Executor) fail(rendered string, err error) (Result, error) {
	if IsConstraintViolation(err) {
		e.logViolation(rendered, err)
		return Result{Kind: KindAffected, Violation: err}, nil
	}
	return Result{}, &ExecError{Query: rendered, Err: err}
}

func (e *Executor) logViolation(rendered string, err error) {
	e.logger.Info("constraint violation", zap.String("query", rendered), zap.Error(err))
}

func (e *Executor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.timeout)
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]Row, 0)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			if bs, ok := v.([]byte); ok {
				vals[i] = string(bs)
			}
		}
		out = append(out, NewRow(cols, vals))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// returnsRows decides from the statement text whether the store will answer
// with a result set. A WITH statement returns rows unless its main statement
// changes data without RETURNING. A PRAGMA returns rows unless it assigns.
func returnsRows(statement string) bool {
	ws := words(statement)
	for _, w := range ws {
		if w == "RETURNING" {
			return true
		}
	}

	switch leadingKeyword(statement) {
	case "SELECT", "VALUES", "SHOW", "EXPLAIN", "TABLE", "DESCRIBE", "DESC":
		return true
	case "PRAGMA":
		return !strings.Contains(statement, "=")
	case "WITH":
		for _, w := range ws {
			switch w {
			case "INSERT", "UPDATE", "DELETE", "MERGE":
				return false
			}
		}
		return true
	}
	return false
}

func leadingKeyword(statement string) string {
	for _, w := range words(statement) {
		if w != "(" {
			return w
		}
	}
	return ""
}

// words splits statement into upper-cased bare words, skipping quoted runs,
// comments and placeholders. A "(" is reported as its own word.
func words(statement string) []string {
	var out []string
	for i := 0; i < len(statement); {
		c := statement[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			i = skipQuoted(statement, i)
		case c == '-' && strings.HasPrefix(statement[i:], "--"):
			end := strings.IndexByte(statement[i:], '\n')
			if end < 0 {
				return out
			}
			i += end
		case c == '/' && strings.HasPrefix(statement[i:], "/*"):
			end := strings.Index(statement[i+2:], "*/")
			if end < 0 {
				return out
			}
			i += end + 4
		case c == '(':
			out = append(out, "(")
			i++
		case c == ':':
			i++
			for i < len(statement) && isIdentPart(statement[i]) {
				i++
			}
		case isIdentStart(c):
			j := i
			for j < len(statement) && isIdentPart(statement[j]) {
				j++
			}
			out = append(out, strings.ToUpper(statement[i:j]))
			i = j
		default:
			i++
		}
	}
	return out
}
