package maincmd

import (
	"os"

	"github.com/mna/aster/lang/analyzer"
	"github.com/mna/aster/lang/ast"
	"github.com/mna/aster/lang/compiler"
	"github.com/mna/aster/lang/parser"
	"github.com/mna/aster/lang/symbol"
	"github.com/mna/aster/lang/vm"
	"github.com/mna/mainer"
)

// readSource reads the single source file this CLI's subcommands operate
// on. Every subcommand except repl requires exactly one path, enforced by
// Cmd.Validate.
func readSource(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// parseSource runs the parser phase and returns its exit code (0 on
// success, exitParseError otherwise).
func parseSource(src []byte) (*ast.Chunk, mainer.ExitCode, error) {
	chunk, err := parser.Parse(src)
	if err != nil {
		return nil, exitParseError, err
	}
	return chunk, 0, nil
}

// analyzeSource runs the parser and analyzer phases.
func analyzeSource(src []byte) (*ast.Chunk, *analyzer.Result, mainer.ExitCode, error) {
	chunk, code, err := parseSource(src)
	if err != nil {
		return nil, nil, code, err
	}
	result, err := analyzer.Analyze(chunk, vm.IsNative)
	if err != nil {
		return chunk, nil, exitAnalyzerError, err
	}
	return chunk, result, 0, nil
}

// compileSource runs the parser, analyzer and generator phases.
func compileSource(src []byte) (*compiler.Program, mainer.ExitCode, error) {
	chunk, result, code, err := analyzeSource(src)
	if err != nil {
		return nil, code, err
	}
	syms := symbol.NewTable(64)
	prog := compiler.Generate(chunk, result, syms)
	return prog, 0, nil
}
