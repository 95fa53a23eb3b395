package maincmd

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"
	"github.com/mna/aster/lang/compiler"
	"github.com/mna/aster/lang/vm"
	"github.com/mna/mainer"
)

// replSession accumulates every line the user has successfully evaluated,
// since this language's parser only ever accepts complete chunks: each new
// line is tried against the accumulated source
// and only committed to history if the whole thing still compiles and
// runs.
type replSession struct {
	stdio   mainer.Stdio
	cfg     Config
	history []string
	lastProg *compiler.Program
}

func (r *replSession) source(extra string) []byte {
	var buf bytes.Buffer
	for _, line := range r.history {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	buf.WriteString(extra)
	return buf.Bytes()
}

func (r *replSession) eval(line string) {
	src := r.source(line)
	prog, _, err := compileSource(src)
	if err != nil {
		fmt.Fprintln(r.stdio.Stderr, err)
		return
	}
	r.lastProg = prog

	m := vm.New(prog, vm.Universe)
	m.Stdout = r.stdio.Stdout
	m.MaxSteps = r.cfg.MaxSteps
	m.MaxCallDepth = r.cfg.MaxCallDepth

	result, err := m.Run()
	if err != nil {
		fmt.Fprintln(r.stdio.Stderr, err)
		return
	}
	r.history = append(r.history, line)
	fmt.Fprintln(r.stdio.Stdout, result)
}

// Repl starts the interactive shell on stdio's streams. Ordinary lines are
// evaluated as program source; lines starting with ":" are dispatched as
// meta-commands (:disasm, :globals, :reset) through google/subcommands,
// the same dispatch mechanism informatter-nilan's REPL uses for its own
// top-level commands, here repurposed for the in-shell meta-command
// surface instead of the outer CLI (mainer already owns that).
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, args []string) mainer.ExitCode {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "aster> ",
		HistoryLimit:    1000,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          stdio.Stdout,
		Stderr:          stdio.Stderr,
	})
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return mainer.Failure
	}
	defer rl.Close()

	sess := &replSession{stdio: stdio, cfg: c.Config}

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return mainer.Success
			}
			fmt.Fprintln(stdio.Stderr, err)
			return mainer.Failure
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			fs := flag.NewFlagSet("meta", flag.ContinueOnError)
			fs.Parse(strings.Fields(line[1:]))

			cdr := subcommands.NewCommander(fs, "aster")
			cdr.Register(&disasmMetaCmd{sess: sess}, "")
			cdr.Register(&globalsMetaCmd{sess: sess}, "")
			cdr.Register(&resetMetaCmd{sess: sess}, "")
			cdr.Execute(ctx)
			continue
		}
		sess.eval(line)
	}
}

type disasmMetaCmd struct{ sess *replSession }

func (*disasmMetaCmd) Name() string             { return "disasm" }
func (*disasmMetaCmd) Synopsis() string          { return "disassemble the current session's program" }
func (*disasmMetaCmd) Usage() string             { return ":disasm\n" }
func (*disasmMetaCmd) SetFlags(f *flag.FlagSet)  {}
func (d *disasmMetaCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if d.sess.lastProg == nil {
		fmt.Fprintln(d.sess.stdio.Stderr, "no program compiled yet")
		return subcommands.ExitFailure
	}
	dasm := compiler.Disassembler{Output: d.sess.stdio.Stdout}
	if err := dasm.Disassemble(d.sess.lastProg); err != nil {
		fmt.Fprintln(d.sess.stdio.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type globalsMetaCmd struct{ sess *replSession }

func (*globalsMetaCmd) Name() string            { return "globals" }
func (*globalsMetaCmd) Synopsis() string         { return "list the current session's global declarations" }
func (*globalsMetaCmd) Usage() string            { return ":globals\n" }
func (*globalsMetaCmd) SetFlags(f *flag.FlagSet) {}
func (g *globalsMetaCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if g.sess.lastProg == nil {
		fmt.Fprintln(g.sess.stdio.Stderr, "no program compiled yet")
		return subcommands.ExitFailure
	}
	for _, item := range g.sess.lastProg.Globals {
		switch it := item.(type) {
		case *compiler.Function:
			fmt.Fprintf(g.sess.stdio.Stdout, "fn %s/%d\n", it.Name, it.Arity)
		case *compiler.Class:
			fmt.Fprintf(g.sess.stdio.Stdout, "class %s\n", it.Name)
		}
	}
	return subcommands.ExitSuccess
}

type resetMetaCmd struct{ sess *replSession }

func (*resetMetaCmd) Name() string            { return "reset" }
func (*resetMetaCmd) Synopsis() string         { return "clear the current session's evaluated history" }
func (*resetMetaCmd) Usage() string            { return ":reset\n" }
func (*resetMetaCmd) SetFlags(f *flag.FlagSet) {}
func (r *resetMetaCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	r.sess.history = nil
	r.sess.lastProg = nil
	fmt.Fprintln(r.sess.stdio.Stdout, "session reset")
	return subcommands.ExitSuccess
}
