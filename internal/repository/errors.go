package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/uptrace/bun/driver/pgdriver"
)

// translate collapses driver errors into the three kinds the store is
// allowed to raise: not_found, conflict, unavailable. op names the failed
// operation for the wrapped message.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Wrap(apperr.KindNotFound, op, err)
	}
	if isUniqueViolation(err) {
		return apperr.Wrap(apperr.KindConflict, op, err)
	}
	return apperr.Wrap(apperr.KindUnavailable, fmt.Sprintf("%s failed", op), err)
}

// isUniqueViolation detects unique constraint errors for both supported
// drivers.
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		// 23505 = unique_violation
		return pgErr.Field('C') == "23505"
	}
	// modernc.org/sqlite reports constraint failures by message only.
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed")
}
