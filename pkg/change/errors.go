// SPDX-License-Identifier: Apache-2.0

package change

import (
	"fmt"
	"strings"
)

// SchemaMismatchError is returned when a rename references a column that
// does not exist on the live table.
type SchemaMismatchError struct {
	Table   string
	Columns []string
}

func (e SchemaMismatchError) Error() string {
	return fmt.Sprintf("table %q has no column(s) named %s", e.Table, strings.Join(e.Columns, ", "))
}

// FieldRequiredError reports a missing required field on a change variant.
type FieldRequiredError struct {
	Change string
	Field  string
}

func (e FieldRequiredError) Error() string {
	return fmt.Sprintf("%s: field %q is required", e.Change, e.Field)
}

// UnknownChangeKindError is returned when a wire-format change has zero or
// more than one variant key set.
type UnknownChangeKindError struct {
	Keys int
}

func (e UnknownChangeKindError) Error() string {
	return fmt.Sprintf("change must have exactly one key, found %d", e.Keys)
}
