package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/aster/lang/compiler"
	"github.com/mna/mainer"
)

func (c *Cmd) Disasm(ctx context.Context, stdio mainer.Stdio, args []string) mainer.ExitCode {
	src, err := readSource(args[0])
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return mainer.Failure
	}

	prog, code, err := compileSource(src)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return code
	}

	d := compiler.Disassembler{Output: stdio.Stdout}
	if err := d.Disassemble(prog); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return mainer.Failure
	}
	return mainer.Success
}
