package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgCodes maps the SQLSTATEs repos can hit onto ErrorCode; anything else is ErrorCodeDB
var pgCodes = map[string]ErrorCode{
	"23505": ErrorCodeDuplicateKey,    // unique_violation
	"23503": ErrorCodeInvalidArgument, // foreign_key_violation
	"22P02": ErrorCodeInvalidArgument, // invalid_text_representation, e.g. a bad uuid
	"22003": ErrorCodeInvalidArgument, // numeric_value_out_of_range
	"23502": ErrorCodeValidation,      // not_null_violation
	"23514": ErrorCodeValidation,      // check_violation
	"25006": ErrorCodeUnavailable,     // read_only_sql_transaction
	"57P03": ErrorCodeUnavailable,     // cannot_connect_now
}

// retryable SQLSTATEs: serialization_failure, deadlock_detected, lock_not_available
var retryable = map[string]bool{"40001": true, "40P01": true, "55P03": true}

func pgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	ok := stderrs.As(err, &pgErr)
	return pgErr, ok
}

// FromPostgres wraps err with a code derived from its SQLSTATE and the column, when pg names one.
// nil stays nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	pgErr, ok := pgError(err)
	if !ok {
		return Wrap(err, ErrorCodeDB, msg)
	}
	code, known := pgCodes[pgErr.Code]
	if !known {
		code = ErrorCodeDB
	}
	e := Wrap(err, code, msg)
	if col := strings.TrimSpace(pgErr.ColumnName); col != "" {
		e = WithField(e, col)
	}
	return e
}

// FromPostgresf is FromPostgres with a formatted message
func FromPostgresf(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	return FromPostgres(err, fmt.Sprintf(format, a...))
}

// IsRetryable reports transient contention where replaying the transaction may succeed.
// Cancellation never is
func IsRetryable(err error) bool {
	if err == nil || stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	if pgErr, ok := pgError(err); ok {
		return retryable[pgErr.Code]
	}
	// pgx surfaces some of these as plain errors after the fact
	s := strings.ToLower(Root(err).Error())
	for _, needle := range []string{"commit unexpectedly resulted in rollback", "deadlock detected", "could not serialize access"} {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
