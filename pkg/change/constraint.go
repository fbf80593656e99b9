// SPDX-License-Identifier: Apache-2.0

package change

// AddConstraint adds a CHECK or FOREIGN KEY constraint in two phases: a
// short exclusive-lock ADD ... NOT VALID, then a concurrent VALIDATE
// CONSTRAINT table scan. The two phases must never share a transaction —
// validating in the same transaction as the ADD would hold the exclusive
// lock for the whole scan.
type AddConstraint struct {
	Table      string `yaml:"table,omitempty" json:"table,omitempty"`
	Domain     string `yaml:"domain,omitempty" json:"domain,omitempty"`
	Name       string `yaml:"name" json:"name"`
	Check      string `yaml:"check,omitempty" json:"check,omitempty"`
	ForeignKey string `yaml:"foreign_key,omitempty" json:"foreign_key,omitempty"`
	References string `yaml:"references,omitempty" json:"references,omitempty"`
}

func (*AddConstraint) Kind() string { return "add_constraint" }

func (c *AddConstraint) Phases() []Phase {
	return []Phase{
		{Up: TxDDL{SQL: c.addSQL()}, Down: TxDDL{SQL: c.dropSQL()}},
		{Up: TxDDL{SQL: c.validateSQL()}, Down: NoOp{}},
	}
}

func (c *AddConstraint) descr() string {
	if c.Check != "" {
		return "CHECK " + c.Check
	}
	return "FOREIGN KEY (" + c.ForeignKey + ") REFERENCES " + c.References
}

func (c *AddConstraint) addSQL() string {
	return alter(c.Table, c.Domain) + " ADD CONSTRAINT " + q(c.Name) + " " + c.descr() + " NOT VALID"
}

func (c *AddConstraint) validateSQL() string {
	return alter(c.Table, c.Domain) + " VALIDATE CONSTRAINT " + q(c.Name)
}

func (c *AddConstraint) dropSQL() string {
	return alter(c.Table, c.Domain) + " DROP CONSTRAINT " + q(c.Name)
}

// DropConstraint removes a CHECK or FOREIGN KEY constraint. Its down
// direction is the symmetric reverse of AddConstraint: re-validating (no-op
// forward, since the constraint already exists and is valid) then
// re-adding on rollback.
type DropConstraint struct {
	Table      string `yaml:"table,omitempty" json:"table,omitempty"`
	Domain     string `yaml:"domain,omitempty" json:"domain,omitempty"`
	Name       string `yaml:"name" json:"name"`
	Check      string `yaml:"check,omitempty" json:"check,omitempty"`
	ForeignKey string `yaml:"foreign_key,omitempty" json:"foreign_key,omitempty"`
	References string `yaml:"references,omitempty" json:"references,omitempty"`
}

func (*DropConstraint) Kind() string { return "drop_constraint" }

func (c *DropConstraint) Phases() []Phase {
	add := AddConstraint{Table: c.Table, Domain: c.Domain, Name: c.Name, Check: c.Check, ForeignKey: c.ForeignKey, References: c.References}
	return []Phase{
		{Up: NoOp{}, Down: TxDDL{SQL: add.validateSQL()}},
		{Up: TxDDL{SQL: add.dropSQL()}, Down: TxDDL{SQL: add.addSQL()}},
	}
}
