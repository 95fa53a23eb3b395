package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/aster/lang/ast"
	"github.com/mna/mainer"
)

func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) mainer.ExitCode {
	src, err := readSource(args[0])
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return mainer.Failure
	}

	chunk, code, err := parseSource(src)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return code
	}

	printer := ast.Printer{Output: stdio.Stdout}
	if err := printer.Print(chunk); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return mainer.Failure
	}
	return mainer.Success
}
