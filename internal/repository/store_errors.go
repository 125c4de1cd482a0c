package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/lib/pq"
)

var (
	// ErrUniqueViolation reports a unique constraint collision, e.g. a duplicate token.
	ErrUniqueViolation = errors.New("unique constraint violation")
	// ErrRequestClosed reports that a guarded write found the request terminal or past its token window.
	ErrRequestClosed = errors.New("document request is closed")
	// ErrTransitionLost reports that a conditional status update matched no row.
	ErrTransitionLost = errors.New("document request status changed concurrently")
)

const pgUniqueViolation = "23505"

func translateWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
		return errors.Join(ErrUniqueViolation, err)
	}
	return err
}

// IsTransient reports failures that a caller may retry: connection loss, serialization
// conflicts, deadlocks, timeouts and unique collisions on generated values.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUniqueViolation) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "40", "53", "57":
			return true
		}
		return pqErr.Code == pgUniqueViolation
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
