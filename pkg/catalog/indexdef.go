// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"strings"

	pgq "github.com/xataio/pg_query_go/v6"
)

// parseForeignKeyDef splits pg_get_constraintdef's FOREIGN KEY output
// ("FOREIGN KEY (col) REFERENCES other(id) ON DELETE CASCADE") into the
// column list and REFERENCES clause change.AddConstraint expects
// separately. It parses the def through the real grammar rather than a
// regex, the way sql2pgroll parses ALTER TABLE ADD CONSTRAINT text, so it
// isn't tripped up by anything more exotic than a plain column list.
func parseForeignKeyDef(def string) (columns, references string) {
	result, err := pgq.Parse("ALTER TABLE t ADD CONSTRAINT x " + def)
	if err != nil || len(result.GetStmts()) != 1 {
		return "", def
	}
	alter := result.GetStmts()[0].GetStmt().GetAlterTableStmt()
	if alter == nil || len(alter.GetCmds()) != 1 {
		return "", def
	}
	constraintNode, ok := alter.GetCmds()[0].GetAlterTableCmd().GetDef().Node.(*pgq.Node_Constraint)
	if !ok {
		return "", def
	}
	constraint := constraintNode.Constraint

	cols := make([]string, len(constraint.GetFkAttrs()))
	for i, n := range constraint.GetFkAttrs() {
		cols[i] = n.GetString_().GetSval()
	}

	refCols := make([]string, len(constraint.GetPkAttrs()))
	for i, n := range constraint.GetPkAttrs() {
		refCols[i] = n.GetString_().GetSval()
	}

	table := constraint.GetPktable().GetRelname()
	if schema := constraint.GetPktable().GetSchemaname(); schema != "" {
		table = schema + "." + table
	}

	references = table
	if len(refCols) > 0 {
		references += "(" + strings.Join(refCols, ", ") + ")"
	}
	if clause := fkActionClause("ON DELETE", constraint.GetFkDelAction()); clause != "" {
		references += " " + clause
	}
	if clause := fkActionClause("ON UPDATE", constraint.GetFkUpdAction()); clause != "" {
		references += " " + clause
	}

	return strings.Join(cols, ", "), references
}

// fkActionClause maps a pg_constraint confdeltype/confupdtype code to the
// clause pg_get_constraintdef would render for it, mirroring sql2pgroll's
// own FkDelAction/FkUpdAction switch. "a" (NO ACTION) is the default and
// pg_get_constraintdef omits it, so this does too.
func fkActionClause(keyword, action string) string {
	switch action {
	case "c":
		return keyword + " CASCADE"
	case "r":
		return keyword + " RESTRICT"
	case "d":
		return keyword + " SET DEFAULT"
	case "n":
		return keyword + " SET NULL"
	default:
		return ""
	}
}

// parseIndexDef extracts the fields change.CreateIndex needs out of
// pg_indexes.indexdef, e.g.
// "CREATE UNIQUE INDEX idx ON public.users USING btree (email) WHERE (email IS NOT NULL)",
// by parsing it through the real Postgres grammar the same way
// sql2pgroll's convertCreateIndexStmt walks a *pgq.IndexStmt. Unlike a
// column-list regex, this handles expression indexes whose key list has
// its own nested parentheses, e.g. "(lower(email))".
func parseIndexDef(def string) (using string, unique bool, columns []string, where string) {
	result, err := pgq.Parse(def)
	if err != nil || len(result.GetStmts()) != 1 {
		return "", false, nil, ""
	}
	stmt := result.GetStmts()[0].GetStmt().GetIndexStmt()
	if stmt == nil {
		return "", false, nil, ""
	}

	using = stmt.GetAccessMethod()
	unique = stmt.GetUnique()

	for _, param := range stmt.GetIndexParams() {
		elem := param.GetIndexElem()
		if elem == nil {
			continue
		}
		if name := elem.GetName(); name != "" {
			columns = append(columns, name)
			continue
		}
		expr, derr := pgq.DeparseExpr(elem.GetExpr())
		if derr != nil {
			return "", false, nil, ""
		}
		columns = append(columns, expr)
	}

	if clause := stmt.GetWhereClause(); clause != nil {
		pred, derr := pgq.DeparseExpr(clause)
		if derr != nil {
			return "", false, nil, ""
		}
		where = pred
	}

	return using, unique, columns, where
}
