// SPDX-License-Identifier: Apache-2.0

package diff

import "fmt"

// UnsupportedError reports a change the engine has no typed representation
// for (e.g. a clustered index), per spec §7's DiffUnsupported error kind.
type UnsupportedError struct {
	Object string
	Reason string
}

func (e UnsupportedError) Error() string {
	return fmt.Sprintf("diff: %s: %s", e.Object, e.Reason)
}
