package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
)

// Compile runs the full parse/analyze/generate pipeline and reports
// success or failure without printing the program; use the disasm command
// to inspect the generated bytecode.
func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) mainer.ExitCode {
	src, err := readSource(args[0])
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return mainer.Failure
	}

	if _, code, err := compileSource(src); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return code
	}
	return mainer.Success
}
