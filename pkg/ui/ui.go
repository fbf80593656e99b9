// SPDX-License-Identifier: Apache-2.0

// Package ui is the narrow surface the CLI uses to talk to an operator:
// print progress, ask yes/no before a destructive action, and open files a
// command writes to. Everything else (spinners, success banners) is a
// command's own business; this package only covers the parts commands
// need a fake for in tests.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// UI is implemented by Console (the real terminal) and by a fake in tests.
type UI interface {
	Print(args ...interface{})
	AskYesNo(message string) bool
	Die(msg string)
	Open(filename string, flag int, perm os.FileMode) (*os.File, error)
}

// Console is the default UI, reading from stdin and writing to stdout.
type Console struct {
	In  io.Reader
	Out io.Writer
}

// NewConsole returns a Console wired to the process's stdin/stdout.
func NewConsole() *Console {
	return &Console{In: os.Stdin, Out: os.Stdout}
}

func (c *Console) Print(args ...interface{}) {
	fmt.Fprintln(c.Out, args...)
}

// AskYesNo prompts until the operator answers y/n, matching the original
// migrator's loop: re-prompt on anything else rather than defaulting.
func (c *Console) AskYesNo(message string) bool {
	reader := bufio.NewReader(c.In)
	prompt := message + " [y/n] "
	for {
		fmt.Fprint(c.Out, prompt)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		prompt = "Invalid input. [y/n] "
	}
}

// Die prints msg and terminates the process with a non-zero exit code, the
// CLI's "fatal, but deliberately so" escape hatch (e.g. the operator
// declined a confirmation, or a precondition failed before any work
// started).
func (c *Console) Die(msg string) {
	c.Print(msg)
	os.Exit(1)
}

func (c *Console) Open(filename string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(filename, flag, perm)
}
