// Copyright 2026 Peter Edge
//
// All rights reserved.

package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ConnectionError is returned when a store cannot be reached or rejects the credentials.
type ConnectionError struct {
	// Target is the name of the store target.
	Target string
	// Err is the underlying driver error.
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to database %q: %v", e.Target, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// QueryError is returned when a store rejects a query.
type QueryError struct {
	// Target is the name of the store target.
	Target string
	// SQLState is the SQLSTATE code reported by Postgres, if any.
	SQLState string
	// Err is the underlying driver error.
	Err error
}

func (e *QueryError) Error() string {
	if e.SQLState != "" {
		return fmt.Sprintf("query against database %q failed (SQLSTATE %s): %v", e.Target, e.SQLState, e.Err)
	}
	return fmt.Sprintf("query against database %q failed: %v", e.Target, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// *** PRIVATE ***

// classifyError maps a driver error to a *ConnectionError or *QueryError.
// Context cancellation is returned as-is.
func classifyError(target string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 is connection exception, class 28 is invalid authorization.
		if strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "28") {
			return &ConnectionError{Target: target, Err: err}
		}
		return &QueryError{Target: target, SQLState: pgErr.Code, Err: err}
	}
	var connectErr *pgconn.ConnectError
	var netErr *net.OpError
	switch {
	case errors.As(err, &connectErr),
		errors.As(err, &netErr),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone):
		return &ConnectionError{Target: target, Err: err}
	}
	return &QueryError{Target: target, Err: err}
}
