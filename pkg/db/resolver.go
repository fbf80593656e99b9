// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
)

// CatalogResolver implements change.Resolver against a live connection. It
// is the concrete counterpart of change.Resolver, kept out of pkg/change to
// avoid that package importing database/sql at all.
type CatalogResolver struct {
	Queryer Queryer
}

// TableColumns returns the columns of table "public".<table> in physical
// (ordinal) order, as information_schema reports them.
func (r *CatalogResolver) TableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := r.Queryer.QueryContext(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position
	`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}
