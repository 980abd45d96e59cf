package sqlserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/koustreak/tablescan/internal/errs"
)

// SQL Server error numbers relevant to catalog reads and probes.
// Full list: https://learn.microsoft.com/sql/relational-databases/errors-events/database-engine-events-and-errors
const (
	errInvalidObject    = 208
	errPermissionDenied = 229
	errDatabaseAccess   = 916
	errCannotOpenDB     = 4060
	errLoginFailed      = 18456
)

// mapError translates go-mssqldb errors into *errs.Error.
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

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return errs.Wrap(classifyNumber(msErr.Number), fmt.Sprintf("%s: %s", msg, msErr.Message), err)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

func classifyNumber(n int32) errs.ErrKind {
	switch n {
	case errPermissionDenied, errDatabaseAccess, errLoginFailed:
		return errs.ErrKindPermissionDenied
	case errInvalidObject, errCannotOpenDB:
		return errs.ErrKindNotFound
	default:
		return errs.ErrKindQueryFailed
	}
}
