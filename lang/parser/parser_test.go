package parser_test

import (
	"testing"

	"github.com/mna/aster/lang/ast"
	"github.com/mna/aster/lang/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Arithmetic(t *testing.T) {
	chunk, err := parser.Parse([]byte("2 + 3 * 4;"))
	require.NoError(t, err)
	require.Len(t, chunk.Stmts, 1)
	es, ok := chunk.Stmts[0].(*ast.ExprStmt)
	require.True(t, ok)
	bin, ok := es.X.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.BAdd, bin.Op)
	rhs, ok := bin.Right.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.BMul, rhs.Op)
}

func TestParse_LetAndWhile(t *testing.T) {
	src := `
		let i = 0;
		while (i < 3) {
			i = i + 1;
		}
		i;
	`
	chunk, err := parser.Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, chunk.Stmts, 3)
	_, ok := chunk.Stmts[0].(*ast.LetStmt)
	assert.True(t, ok)
	ws, ok := chunk.Stmts[1].(*ast.WhileStmt)
	require.True(t, ok)
	assert.Len(t, ws.Body.Stmts, 1)
	_, ok = chunk.Stmts[2].(*ast.ExprStmt)
	assert.True(t, ok)
}

func TestParse_BlockWithTailExpression(t *testing.T) {
	chunk, err := parser.Parse([]byte("{ let x = 1; let y = 2; x + y };"))
	require.NoError(t, err)
	require.Len(t, chunk.Stmts, 1)
	es := chunk.Stmts[0].(*ast.ExprStmt)
	blk, ok := es.X.(*ast.Block)
	require.True(t, ok)
	require.Len(t, blk.Stmts, 2)
	require.NotNil(t, blk.Tail)
	_, ok = blk.Tail.(*ast.Binary)
	assert.True(t, ok)
}

func TestParse_ClosureWithArrowBody(t *testing.T) {
	src := `
		fn make() {
			let c = 0;
			fn inc() => c = c + 1;
			inc() + inc()
		}
	`
	chunk, err := parser.Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, chunk.Stmts, 1)
	fs, ok := chunk.Stmts[0].(*ast.FuncStmt)
	require.True(t, ok)
	assert.Equal(t, "make", fs.Name.Name)
	require.NotNil(t, fs.Fn.Body)
	require.Len(t, fs.Fn.Body.Stmts, 2)
	nested, ok := fs.Fn.Body.Stmts[1].(*ast.FuncStmt)
	require.True(t, ok)
	assert.Equal(t, "inc", nested.Name.Name)
	require.NotNil(t, nested.Fn.ArrowBody)
}

func TestParse_ClassWithFieldsAndMethods(t *testing.T) {
	src := `
		class Counter {
			let n = 0;
			fn bump() => this.n = this.n + 1;
		}
	`
	chunk, err := parser.Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, chunk.Stmts, 1)
	cs, ok := chunk.Stmts[0].(*ast.ClassStmt)
	require.True(t, ok)
	assert.Equal(t, "Counter", cs.Name.Name)
	require.Len(t, cs.Fields, 1)
	require.Len(t, cs.Methods, 1)
	assert.Equal(t, "bump", cs.Methods[0].Name.Name)
}

func TestParse_ClassWithSuperclass(t *testing.T) {
	src := `
		class Base { let n = 0; }
		class Derived extends Base { }
	`
	chunk, err := parser.Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, chunk.Stmts, 2)
	derived := chunk.Stmts[1].(*ast.ClassStmt)
	require.NotNil(t, derived.Superclass)
	assert.Equal(t, "Base", derived.Superclass.Name)
}

func TestParse_IfElseIfChain(t *testing.T) {
	src := `
		if (x < 0) {
			-1
		} else if (x == 0) {
			0
		} else {
			1
		};
	`
	chunk, err := parser.Parse([]byte(src))
	require.NoError(t, err)
	es := chunk.Stmts[0].(*ast.ExprStmt)
	top, ok := es.X.(*ast.If)
	require.True(t, ok)
	require.NotNil(t, top.Else)
	nested, ok := top.Else.Tail.(*ast.If)
	require.True(t, ok)
	require.NotNil(t, nested.Else)
}

func TestParse_SyntaxErrorIsReported(t *testing.T) {
	_, err := parser.Parse([]byte("let x = ;"))
	require.Error(t, err)
	_, ok := err.(parser.ErrorList)
	assert.True(t, ok)
}
