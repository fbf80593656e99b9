// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/benkuhn/migrator/pkg/db"
)

// Reader builds a Snapshot from a live connection, restricted to user
// schemas (pg_catalog/information_schema/pg_toast excluded).
type Reader struct {
	Queryer db.Queryer
}

// Read enumerates every object category in turn. Each category query is
// independent (no single giant join) so a category can be extended without
// touching the others, matching the "category map" shape of spec §4.6.
func (r *Reader) Read(ctx context.Context, schemas []string) (Snapshot, error) {
	snap := newSnapshot()

	if err := r.readSchemas(ctx, schemas, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("reading schemas: %w", err)
	}
	if err := r.readSequences(ctx, schemas, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("reading sequences: %w", err)
	}
	if err := r.readTables(ctx, schemas, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("reading tables: %w", err)
	}
	if err := r.readViews(ctx, schemas, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("reading views: %w", err)
	}
	if err := r.readFunctions(ctx, schemas, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("reading functions: %w", err)
	}
	if err := r.readIndexes(ctx, schemas, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("reading indexes: %w", err)
	}
	if err := r.readConstraints(ctx, schemas, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("reading constraints: %w", err)
	}
	return snap, nil
}

func (r *Reader) readSchemas(ctx context.Context, schemas []string, snap *Snapshot) error {
	rows, err := r.Queryer.QueryContext(ctx, `
		SELECT schema_name FROM information_schema.schemata WHERE schema_name = ANY($1)
	`, pq.Array(schemas))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		snap.Schemas[name] = Schema{Name: name}
	}
	return rows.Err()
}

func (r *Reader) readSequences(ctx context.Context, schemas []string, snap *Snapshot) error {
	rows, err := r.Queryer.QueryContext(ctx, `
		SELECT s.schemaname, s.sequencename, s.data_type, s.min_value, s.max_value, s.increment_by
		FROM pg_sequences s WHERE s.schemaname = ANY($1)
	`, pq.Array(schemas))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var seq Sequence
		if err := rows.Scan(&seq.Schema, &seq.Name, &seq.DataType, &seq.MinValue, &seq.MaxValue, &seq.Increment); err != nil {
			return err
		}
		snap.Sequences[key(seq.Schema, seq.Name)] = seq
	}
	return rows.Err()
}

func (r *Reader) readTables(ctx context.Context, schemas []string, snap *Snapshot) error {
	rows, err := r.Queryer.QueryContext(ctx, `
		SELECT table_schema, table_name FROM information_schema.tables
		WHERE table_schema = ANY($1) AND table_type = 'BASE TABLE'
	`, pq.Array(schemas))
	if err != nil {
		return err
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return err
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range tables {
		cols, err := r.readColumns(ctx, tables[i].Schema, tables[i].Name)
		if err != nil {
			return err
		}
		tables[i].Columns = cols
		snap.Tables[key(tables[i].Schema, tables[i].Name)] = tables[i]
	}
	return nil
}

func (r *Reader) readColumns(ctx context.Context, schema, table string) ([]Column, error) {
	rows, err := r.Queryer.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable = 'YES', COALESCE(column_default, ''), ordinal_position
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.Type, &c.Nullable, &c.Default, &c.Position); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (r *Reader) readViews(ctx context.Context, schemas []string, snap *Snapshot) error {
	rows, err := r.Queryer.QueryContext(ctx, `
		SELECT table_schema, table_name, view_definition FROM information_schema.views
		WHERE table_schema = ANY($1)
	`, pq.Array(schemas))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var v View
		if err := rows.Scan(&v.Schema, &v.Name, &v.Definition); err != nil {
			return err
		}
		snap.Views[key(v.Schema, v.Name)] = v
	}
	return rows.Err()
}

func (r *Reader) readFunctions(ctx context.Context, schemas []string, snap *Snapshot) error {
	rows, err := r.Queryer.QueryContext(ctx, `
		SELECT n.nspname, p.proname, pg_get_function_identity_arguments(p.oid), pg_get_functiondef(p.oid)
		FROM pg_proc p JOIN pg_namespace n ON n.oid = p.pronamespace
		WHERE n.nspname = ANY($1)
	`, pq.Array(schemas))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var f Function
		if err := rows.Scan(&f.Schema, &f.Name, &f.Arguments, &f.Definition); err != nil {
			return err
		}
		snap.Functions[key(f.Schema, f.Name+"("+f.Arguments+")")] = f
	}
	return rows.Err()
}

func (r *Reader) readIndexes(ctx context.Context, schemas []string, snap *Snapshot) error {
	rows, err := r.Queryer.QueryContext(ctx, `
		SELECT schemaname, tablename, indexname, indexdef FROM pg_indexes
		WHERE schemaname = ANY($1)
	`, pq.Array(schemas))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var idx Index
		var def string
		if err := rows.Scan(&idx.Schema, &idx.Table, &idx.Name, &def); err != nil {
			return err
		}
		idx.Using, idx.Unique, idx.Columns, idx.Where = parseIndexDef(def)
		snap.Indexes[key(idx.Schema, idx.Name)] = idx
	}
	return rows.Err()
}

func (r *Reader) readConstraints(ctx context.Context, schemas []string, snap *Snapshot) error {
	rows, err := r.Queryer.QueryContext(ctx, `
		SELECT n.nspname, rel.relname, c.conname, c.contype,
		       COALESCE(pg_get_constraintdef(c.oid), '')
		FROM pg_constraint c
		JOIN pg_class rel ON rel.oid = c.conrelid
		JOIN pg_namespace n ON n.oid = c.connamespace
		WHERE n.nspname = ANY($1) AND c.contype IN ('c', 'f')
	`, pq.Array(schemas))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var schema, table, name, contype, def string
		if err := rows.Scan(&schema, &table, &name, &contype, &def); err != nil {
			return err
		}
		con := Constraint{Schema: schema, Table: table, Name: name}
		if contype == "f" {
			con.Kind = ConstraintForeignKey
			con.ForeignKey, con.References = parseForeignKeyDef(def)
		} else {
			con.Kind = ConstraintCheck
			con.Check = def
		}
		snap.Constraints[key(schema, table+"."+name)] = con
	}
	return rows.Err()
}

func key(schema, name string) string { return schema + "." + name }
