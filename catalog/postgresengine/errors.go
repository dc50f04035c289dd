package postgresengine

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
)

const (
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"
	sqlStateCheckViolation      = "23514"
	sqlStateNotNullViolation    = "23502"
	sqlStateClassConnection     = "08"
	sqlStateClassAuthorization  = "28"
)

// ConstraintError is a violated store constraint, translated into one of the catalog error kinds.
// errors.Is matches both the kind (e.g. catalog.ErrForeignKeyViolation) and the driver error.
type ConstraintError struct {
	Kind       error
	Constraint string
	Table      string
	Column     string
	Err        error
}

func (e *ConstraintError) Error() string {
	var target string
	switch {
	case e.Constraint != "":
		target = " on " + e.Constraint
	case e.Column != "":
		target = " on " + e.Table + "." + e.Column
	}

	return fmt.Sprintf("%s%s: %s", e.Kind, target, e.Err)
}

func (e *ConstraintError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

type storeError struct {
	code       string
	constraint string
	table      string
	column     string
}

// translateError maps a driver error to the catalog error kinds by SQLSTATE code and constraint name.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if se, ok := asStoreError(err); ok {
		if kind := kindForSQLState(se.code); kind != nil {
			if kind == catalog.ErrConnectionFailed {
				return errors.Join(catalog.ErrConnectionFailed, err)
			}

			return &ConstraintError{Kind: kind, Constraint: se.constraint, Table: se.table, Column: se.column, Err: err}
		}

		return errors.Join(catalog.ErrQueryFailed, err)
	}

	if isConnectionError(err) {
		return errors.Join(catalog.ErrConnectionFailed, err)
	}

	return errors.Join(catalog.ErrQueryFailed, err)
}

func asStoreError(err error) (storeError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return storeError{code: pgErr.Code, constraint: pgErr.ConstraintName, table: pgErr.TableName, column: pgErr.ColumnName}, true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return storeError{code: string(pqErr.Code), constraint: pqErr.Constraint, table: pqErr.Table, column: pqErr.Column}, true
	}

	return storeError{}, false
}

func kindForSQLState(code string) error {
	switch {
	case code == sqlStateUniqueViolation:
		return catalog.ErrUniqueConstraintViolation
	case code == sqlStateForeignKeyViolation:
		return catalog.ErrForeignKeyViolation
	case code == sqlStateCheckViolation:
		return catalog.ErrCheckConstraintViolation
	case code == sqlStateNotNullViolation:
		return catalog.ErrNullConstraintViolation
	case strings.HasPrefix(code, sqlStateClassConnection), strings.HasPrefix(code, sqlStateClassAuthorization):
		return catalog.ErrConnectionFailed
	default:
		return nil
	}
}

func isConnectionError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr)
}
