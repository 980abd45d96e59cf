package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/koustreak/tablescan/internal/errs"
)

// PostgreSQL SQLSTATE error codes relevant to catalog reads and probes.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgErrInsufficientPrivilege = "42501"
	pgErrUndefinedTable        = "42P01"
	pgErrInvalidSchemaName     = "3F000"
	pgErrQueryCanceled         = "57014"
	pgClassConnection          = "08"
	pgClassInvalidAuth         = "28"
)

// mapError translates pgx / pgconn native errors into *errs.Error.
// It returns nil for a nil err.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return errs.Wrap(classifyCode(pgErr.Code), fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	// Fallthrough: connection-level errors (TLS, network, auth)
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifyCode maps a SQLSTATE to an ErrKind.
func classifyCode(code string) errs.ErrKind {
	switch {
	case code == pgErrInsufficientPrivilege:
		return errs.ErrKindPermissionDenied
	case code == pgErrUndefinedTable, code == pgErrInvalidSchemaName:
		return errs.ErrKindNotFound
	case code == pgErrQueryCanceled:
		return errs.ErrKindTimeout
	case strings.HasPrefix(code, pgClassConnection):
		return errs.ErrKindConnectionFailed
	case strings.HasPrefix(code, pgClassInvalidAuth):
		return errs.ErrKindPermissionDenied
	default:
		return errs.ErrKindQueryFailed
	}
}
