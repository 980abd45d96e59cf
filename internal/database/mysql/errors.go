package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/koustreak/tablescan/internal/errs"
)

// MySQL error numbers
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errDBAccessDenied    = 1044
	errAccessDenied      = 1045
	errUnknownDatabase   = 1049
	errTableAccessDenied = 1142
	errNoSuchTable       = 1146
	errTooManyConns      = 1040
	errQueryInterrupted  = 1317
	errConnRefused       = 2003
)

// mapError translates go-sql-driver/mysql errors into *errs.Error.
// It returns nil for a nil err.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return errs.Wrap(
			classifyCode(mysqlErr.Number),
			fmt.Sprintf("%s: %s", msg, mysqlErr.Message),
			err,
		)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifyCode maps MySQL error numbers to ErrKind.
func classifyCode(code uint16) errs.ErrKind {
	switch code {
	case errDBAccessDenied, errAccessDenied, errTableAccessDenied:
		return errs.ErrKindPermissionDenied
	case errUnknownDatabase, errNoSuchTable:
		return errs.ErrKindNotFound
	case errTooManyConns, errConnRefused:
		return errs.ErrKindConnectionFailed
	case errQueryInterrupted:
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}
