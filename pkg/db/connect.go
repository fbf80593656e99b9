// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Open dials url, verifies the connection, and applies lockTimeoutMS and an
// optional role before returning an RDB. lockTimeoutMS of 0 leaves Postgres'
// default in place; role of "" leaves the connecting role unchanged.
func Open(ctx context.Context, url string, lockTimeoutMS int, role string) (*RDB, error) {
	dsn, err := pq.ParseURL(url)
	if err != nil {
		dsn = url
	}

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// The scheduling model is single-threaded, single-process per database
	// (spec §5): pin the pool to one physical connection so SET ROLE and
	// SET lock_timeout below apply to every statement this process runs,
	// not just whichever connection happens to be checked out.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	if lockTimeoutMS > 0 {
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("SET lock_timeout = %d", lockTimeoutMS)); err != nil {
			conn.Close()
			return nil, fmt.Errorf("setting lock_timeout: %w", err)
		}
	}
	if role != "" {
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("SET ROLE %s", pq.QuoteIdentifier(role))); err != nil {
			conn.Close()
			return nil, fmt.Errorf("setting role: %w", err)
		}
	}

	return &RDB{DB: conn}, nil
}
