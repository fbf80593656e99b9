// SPDX-License-Identifier: Apache-2.0

package change

// RunDDL runs arbitrary up/down SQL in a single transactional phase. This
// is the escape hatch change variant: anything the typed variants below
// don't model can be expressed as raw DDL.
type RunDDL struct {
	Up   string `yaml:"up" json:"up"`
	Down string `yaml:"down" json:"down"`
}

func (*RunDDL) Kind() string { return "run_ddl" }

func (c *RunDDL) Phases() []Phase {
	return []Phase{
		{Up: TxDDL{SQL: c.Up}, Down: TxDDL{SQL: c.Down}},
	}
}

// IsEmpty reports whether this RunDDL has no up and no down SQL, the
// condition under which the diff engine elides a generated RunDDL change.
func (c *RunDDL) IsEmpty() bool {
	return c.Up == "" && c.Down == ""
}
