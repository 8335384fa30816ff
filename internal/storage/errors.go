// Package storage holds helpers shared by the Postgres-backed stores.
package storage

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ent0n29/matchwork/internal/reliability"
)

// TranslateErr maps a driver failure into the reliability taxonomy. This
// is the single boundary where remote-store errors are classified; nothing
// downstream re-inspects driver error shapes.
func TranslateErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.SQLState() == "40001" || pgErr.SQLState() == "40P01":
			// Serialization failure / deadlock: transient by definition.
			return &reliability.TransportError{Op: op, Err: err}
		case hasClass(pgErr, "08"), hasClass(pgErr, "53"), hasClass(pgErr, "57"):
			// Connection, resource, or operator trouble.
			return &reliability.TransportError{Op: op, Err: err}
		case hasClass(pgErr, "23"):
			return &reliability.RemoteError{Kind: reliability.KindConflict, Op: op, Detail: pgErr.Message}
		case hasClass(pgErr, "22"):
			return &reliability.RemoteError{Kind: reliability.KindValidation, Op: op, Detail: pgErr.Message}
		case hasClass(pgErr, "28"):
			return &reliability.RemoteError{Kind: reliability.KindUnauthorized, Op: op, Detail: pgErr.Message}
		default:
			return &reliability.RemoteError{Kind: reliability.KindInternal, Op: op, Detail: pgErr.Message}
		}
	}

	if pgconn.SafeToRetry(err) {
		return &reliability.TransportError{Op: op, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &reliability.TransportError{Op: op, Err: err}
	}

	// Unknown shapes stay as-is; the classifier treats them as fatal.
	return err
}

func hasClass(err *pgconn.PgError, class string) bool {
	state := err.SQLState()
	return len(state) >= 2 && state[:2] == class
}
