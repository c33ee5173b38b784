package postgres

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
)

const (
	codeProtocolViolation    pq.ErrorCode = "08P01"
	codeInvalidStatementName pq.ErrorCode = "26000"
)

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// needsUnpreparedRetry reports errors raised when a pooler in transaction
// mode drops the unnamed prepared statement between Parse and Bind. Such a
// read is retried with the key inlined.
func needsUnpreparedRetry(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeInvalidStatementName:
			return true
		case codeProtocolViolation:
			return strings.Contains(pqErr.Message, "bind message supplies")
		}
		return false
	}

	// drivers behind tracing wrappers sometimes only keep the message
	msg := err.Error()
	return strings.Contains(msg, "unnamed prepared statement does not exist") ||
		strings.Contains(msg, "("+string(codeInvalidStatementName)+")") ||
		(strings.Contains(msg, "bind message supplies") && strings.Contains(msg, "requires"))
}

func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
