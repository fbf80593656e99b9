// SPDX-License-Identifier: Apache-2.0

package ui

import (
	"fmt"
	"os"
	"strings"
)

// Fake is an in-memory UI for tests: Print calls are recorded, AskYesNo
// answers are queued up front, and Die records the message instead of
// exiting the test process.
type Fake struct {
	Printed []string
	Answers []bool
	Died    string

	answerIdx int
}

func (f *Fake) Print(args ...interface{}) {
	f.Printed = append(f.Printed, strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

func (f *Fake) AskYesNo(string) bool {
	if f.answerIdx >= len(f.Answers) {
		return false
	}
	a := f.Answers[f.answerIdx]
	f.answerIdx++
	return a
}

func (f *Fake) Die(msg string) {
	f.Died = msg
}

func (f *Fake) Open(filename string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(filename, flag, perm)
}
