package maincmd_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/aster/internal/maincmd"
	"github.com/mna/mainer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.as")
	require.NoError(t, os.WriteFile(path, []byte(src), 0600))
	return path
}

func TestCmd_Validate_NoCommand(t *testing.T) {
	var c maincmd.Cmd
	c.SetArgs(nil)
	assert.Error(t, c.Validate())
}

func TestCmd_Validate_UnknownCommand(t *testing.T) {
	var c maincmd.Cmd
	c.SetArgs([]string{"frobnicate", "x.as"})
	assert.Error(t, c.Validate())
}

func TestCmd_Validate_MissingPath(t *testing.T) {
	var c maincmd.Cmd
	c.SetArgs([]string{"run"})
	assert.Error(t, c.Validate())
}

func TestCmd_Validate_HelpSkipsCommandCheck(t *testing.T) {
	c := maincmd.Cmd{Help: true}
	c.SetArgs(nil)
	assert.NoError(t, c.Validate())
}

func TestCmd_Parse_PrintsAST(t *testing.T) {
	path := writeSource(t, "1 + 2;")
	var c maincmd.Cmd
	c.SetArgs([]string{"parse", path})
	require.NoError(t, c.Validate())

	var out, errOut bytes.Buffer
	code := c.Parse(context.Background(), mainer.Stdio{Stdout: &out, Stderr: &errOut}, []string{path})
	assert.Equal(t, mainer.Success, code)
	assert.NotEmpty(t, out.String())
	assert.Empty(t, errOut.String())
}

func TestCmd_Run_EvaluatesProgram(t *testing.T) {
	path := writeSource(t, "let x = 2; let y = 3; x + y;")
	var c maincmd.Cmd
	c.SetArgs([]string{"run", path})
	require.NoError(t, c.Validate())

	var out, errOut bytes.Buffer
	code := c.Run(context.Background(), mainer.Stdio{Stdout: &out, Stderr: &errOut}, []string{path})
	assert.Equal(t, mainer.Success, code)
	assert.Contains(t, out.String(), "5")
}

func TestCmd_Run_RuntimeErrorReturnsExitCode3(t *testing.T) {
	path := writeSource(t, "1 / 0;")
	var c maincmd.Cmd
	c.SetArgs([]string{"run", path})
	require.NoError(t, c.Validate())

	var out, errOut bytes.Buffer
	code := c.Run(context.Background(), mainer.Stdio{Stdout: &out, Stderr: &errOut}, []string{path})
	assert.Equal(t, mainer.ExitCode(3), code)
	assert.NotEmpty(t, errOut.String())
}

func TestCmd_Analyze_UndeclaredNameFails(t *testing.T) {
	path := writeSource(t, "x;")
	var c maincmd.Cmd
	c.SetArgs([]string{"analyze", path})
	require.NoError(t, c.Validate())

	var out, errOut bytes.Buffer
	code := c.Analyze(context.Background(), mainer.Stdio{Stdout: &out, Stderr: &errOut}, []string{path})
	assert.Equal(t, mainer.ExitCode(2), code)
	assert.NotEmpty(t, errOut.String())
}

func TestCmd_Disasm_PrintsBytecode(t *testing.T) {
	path := writeSource(t, "let x = 1; x;")
	var c maincmd.Cmd
	c.SetArgs([]string{"disasm", path})
	require.NoError(t, c.Validate())

	var out, errOut bytes.Buffer
	code := c.Disasm(context.Background(), mainer.Stdio{Stdout: &out, Stderr: &errOut}, []string{path})
	assert.Equal(t, mainer.Success, code)
	assert.NotEmpty(t, out.String())
}

func TestCmd_Main_VersionFlag(t *testing.T) {
	c := maincmd.Cmd{BuildVersion: "1.0", BuildDate: "2026-01-01"}
	var out, errOut bytes.Buffer
	code := c.Main([]string{"aster", "--version"}, mainer.Stdio{Stdout: &out, Stderr: &errOut})
	assert.Equal(t, mainer.Success, code)
	assert.Contains(t, out.String(), "1.0")
}
