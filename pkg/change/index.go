// SPDX-License-Identifier: Apache-2.0

package change

// CreateIndex creates an index CONCURRENTLY. Its up direction builds the
// index; its down direction (used on rollback or downgrade) drops it, both
// outside a transaction since CONCURRENTLY statements cannot run inside one.
type CreateIndex struct {
	Unique bool   `yaml:"unique,omitempty" json:"unique,omitempty"`
	Name   string `yaml:"name" json:"name"`
	Table  string `yaml:"table" json:"table"`
	Expr   string `yaml:"expr" json:"expr"`
	Using  string `yaml:"using,omitempty" json:"using,omitempty"`
	Where  string `yaml:"where,omitempty" json:"where,omitempty"`
}

func (*CreateIndex) Kind() string { return "create_index" }

func (c *CreateIndex) Phases() []Phase {
	return []Phase{
		{Up: IdempotentDDL{SQL: c.createSQL()}, Down: IdempotentDDL{SQL: c.dropSQL()}},
	}
}

func (c *CreateIndex) createSQL() string {
	unique := ""
	if c.Unique {
		unique = "UNIQUE "
	}
	using := ""
	if c.Using != "" {
		using = "USING " + c.Using
	}
	where := ""
	if c.Where != "" {
		where = "WHERE " + c.Where
	}
	return "CREATE " + unique + "INDEX CONCURRENTLY IF NOT EXISTS " +
		q(c.Name) + " on " + q(c.Table) + " " + using + " (" + c.Expr + ") " + where
}

func (c *CreateIndex) dropSQL() string {
	return "DROP INDEX CONCURRENTLY IF EXISTS " + q(c.Name)
}

// DropIndex drops an index CONCURRENTLY, with the symmetric down direction
// re-creating it (used on rollback or downgrade).
type DropIndex struct {
	Unique bool   `yaml:"unique,omitempty" json:"unique,omitempty"`
	Name   string `yaml:"name" json:"name"`
	Table  string `yaml:"table" json:"table"`
	Expr   string `yaml:"expr" json:"expr"`
	Using  string `yaml:"using,omitempty" json:"using,omitempty"`
	Where  string `yaml:"where,omitempty" json:"where,omitempty"`
}

func (*DropIndex) Kind() string { return "drop_index" }

func (c *DropIndex) Phases() []Phase {
	idx := CreateIndex{Unique: c.Unique, Name: c.Name, Table: c.Table, Expr: c.Expr, Using: c.Using, Where: c.Where}
	return []Phase{
		{Up: IdempotentDDL{SQL: idx.dropSQL()}, Down: IdempotentDDL{SQL: idx.createSQL()}},
	}
}
