// SPDX-License-Identifier: Apache-2.0

package generator

import (
	"context"
	"io"
	"os"
	"os/exec"
)

// runCommand shells out to name with args, streaming stdout to out and
// the command's stderr to this process's stderr so a failing dump command
// is diagnosable.
func runCommand(ctx context.Context, name string, args []string, out io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = out
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
