// SPDX-License-Identifier: Apache-2.0

package change

import "github.com/lib/pq"

// q quotes a SQL identifier. Named to match the identifier-quoting helper
// used throughout the rest of this package's DDL builders.
func q(id string) string {
	return pq.QuoteIdentifier(id)
}

// alter returns "ALTER TABLE <t>" if table is set, else "ALTER DOMAIN <d>".
func alter(table, domain string) string {
	if table != "" {
		return "ALTER TABLE " + q(table)
	}
	return "ALTER DOMAIN " + q(domain)
}
