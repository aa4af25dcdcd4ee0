package query

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun/driver/pgdriver"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrExecution marks failures other than constraint violations:
	// connectivity, timeouts, malformed statements, store bugs.
	ErrExecution = errors.New("query: execution failed")
	// ErrConstraint is returned by Select when a row-returning statement
	// (INSERT ... RETURNING) is rejected by a constraint.
	ErrConstraint = errors.New("query: constraint violation")
)

// ExecError carries the statement exactly as it was submitted, bound values
// inlined, next to the store error.
type ExecError struct {
	Query string
	Err   error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("query: execution failed: %v; statement: %s", e.Err, e.Query)
}

func (e *ExecError) Unwrap() error { return e.Err }

func (e *ExecError) Is(target error) bool { return target == ErrExecution }

// mysql error numbers for integrity violations.
const (
	mysqlBadNull          = 1048
	mysqlDupEntry         = 1062
	mysqlNoReferencedRow  = 1216
	mysqlRowIsReferenced  = 1217
	mysqlRowIsReferenced2 = 1451
	mysqlNoReferencedRow2 = 1452
	mysqlCheckViolated    = 3819
)

// IsConstraintViolation reports whether err is a uniqueness, foreign key,
// check or not-null violation raised by any of the supported drivers.
func IsConstraintViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.IntegrityViolation()
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlBadNull, mysqlDupEntry, mysqlNoReferencedRow, mysqlRowIsReferenced,
			mysqlRowIsReferenced2, mysqlNoReferencedRow2, mysqlCheckViolated:
			return true
		}
		return false
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}

	return false
}
