package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/aster/lang/vm"
	"github.com/mna/mainer"
)

func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) mainer.ExitCode {
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

	m := vm.New(prog, vm.Universe)
	m.Stdout = stdio.Stdout
	m.MaxSteps = c.Config.MaxSteps
	m.MaxCallDepth = c.Config.MaxCallDepth

	result, err := m.Run()
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return exitRuntimeError
	}
	fmt.Fprintln(stdio.Stdout, result)
	return mainer.Success
}
