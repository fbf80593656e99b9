// SPDX-License-Identifier: Apache-2.0

package catalog

import "testing"

func TestParseIndexDefPlain(t *testing.T) {
	using, unique, cols, where := parseIndexDef("CREATE INDEX users_email_idx ON public.users USING btree (email)")
	if using != "btree" || unique || where != "" {
		t.Fatalf("got using=%q unique=%v where=%q", using, unique, where)
	}
	if len(cols) != 1 || cols[0] != "email" {
		t.Fatalf("got cols=%v", cols)
	}
}

func TestParseIndexDefUniqueMultiColumnWithWhere(t *testing.T) {
	using, unique, cols, where := parseIndexDef(
		`CREATE UNIQUE INDEX users_email_mobile_idx ON public.users USING btree (email, mobile) WHERE (deleted_at IS NULL)`,
	)
	if using != "btree" || !unique {
		t.Fatalf("got using=%q unique=%v", using, unique)
	}
	if len(cols) != 2 || cols[0] != "email" || cols[1] != "mobile" {
		t.Fatalf("got cols=%v", cols)
	}
	if where != "deleted_at IS NULL" {
		t.Fatalf("got where=%q", where)
	}
}

func TestParseIndexDefUnrecognizedReturnsZeroValue(t *testing.T) {
	using, unique, cols, where := parseIndexDef("not an index definition")
	if using != "" || unique || cols != nil || where != "" {
		t.Fatalf("expected zero value, got using=%q unique=%v cols=%v where=%q", using, unique, cols, where)
	}
}

// TestParseIndexDefExpressionColumn covers a functional index, the case a
// bare column-list regex can't handle: the key's own parentheses
// (lower(email)) nest inside the index's column-list parentheses.
func TestParseIndexDefExpressionColumn(t *testing.T) {
	using, unique, cols, where := parseIndexDef(
		"CREATE UNIQUE INDEX users_lower_email_idx ON public.users USING btree (lower(email))",
	)
	if using != "btree" || !unique {
		t.Fatalf("got using=%q unique=%v", using, unique)
	}
	if len(cols) != 1 || cols[0] != "lower(email)" {
		t.Fatalf("got cols=%v", cols)
	}
	if where != "" {
		t.Fatalf("got where=%q", where)
	}
}

func TestParseForeignKeyDefPlain(t *testing.T) {
	cols, refs := parseForeignKeyDef("FOREIGN KEY (org_id) REFERENCES orgs(id)")
	if cols != "org_id" {
		t.Fatalf("got cols=%q", cols)
	}
	if refs != "orgs(id)" {
		t.Fatalf("got refs=%q", refs)
	}
}

func TestParseForeignKeyDefWithActions(t *testing.T) {
	cols, refs := parseForeignKeyDef(
		"FOREIGN KEY (org_id, team_id) REFERENCES public.teams(org_id, id) ON DELETE CASCADE ON UPDATE RESTRICT",
	)
	if cols != "org_id, team_id" {
		t.Fatalf("got cols=%q", cols)
	}
	if refs != "public.teams(org_id, id) ON DELETE CASCADE ON UPDATE RESTRICT" {
		t.Fatalf("got refs=%q", refs)
	}
}

func TestParseForeignKeyDefUnrecognizedReturnsDefVerbatim(t *testing.T) {
	cols, refs := parseForeignKeyDef("not a foreign key definition")
	if cols != "" || refs != "not a foreign key definition" {
		t.Fatalf("got cols=%q refs=%q", cols, refs)
	}
}
