package compiler_test

import (
	"testing"

	"github.com/mna/aster/lang/analyzer"
	"github.com/mna/aster/lang/ast"
	"github.com/mna/aster/lang/bytecode"
	"github.com/mna/aster/lang/compiler"
	"github.com/mna/aster/lang/symbol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ident(name string) *ast.Ident { return &ast.Ident{Name: name} }

func chunk(stmts ...ast.Stmt) *ast.Chunk { return &ast.Chunk{Stmts: stmts} }

// generate analyzes and compiles c in one step, failing the test on any
// analyzer error, and returns the program alongside the symbol table it was
// generated against.
func generate(t *testing.T, c *ast.Chunk, isNative analyzer.IsNative) *compiler.Program {
	t.Helper()
	res, err := analyzer.Analyze(c, isNative)
	require.NoError(t, err)
	syms := symbol.NewTable(8)
	return compiler.Generate(c, res, syms)
}

func ops(c *bytecode.Chunk) []bytecode.Opcode {
	out := make([]bytecode.Opcode, len(c.Code))
	for i, instr := range c.Code {
		out[i] = instr.Op
	}
	return out
}

func TestGenerate_ArithmeticPrecedence(t *testing.T) {
	// 1 + 2 * 3;
	c := chunk(&ast.ExprStmt{X: &ast.Binary{
		Op:   ast.BAdd,
		Left: &ast.NumberLit{Value: 1},
		Right: &ast.Binary{
			Op:    ast.BMul,
			Left:  &ast.NumberLit{Value: 2},
			Right: &ast.NumberLit{Value: 3},
		},
	}})
	p := generate(t, c, nil)
	// root is an ExprStmt as the last (only) statement, so its value is left
	// on the stack (no trailing Pop) followed by Return.
	assert.Equal(t, []bytecode.Opcode{
		bytecode.Constant, bytecode.Constant, bytecode.Constant,
		bytecode.Mul, bytecode.Add, bytecode.Return,
	}, ops(p.RootChunk))
}

func TestGenerate_BlockScopingEmitsBlockOpcodeSizedToDeclaredLocals(t *testing.T) {
	// { let x = 1; let y = 2; x + y };
	blk := &ast.Block{
		Stmts: []ast.Stmt{
			&ast.LetStmt{Name: ident("x"), Value: &ast.NumberLit{Value: 1}},
			&ast.LetStmt{Name: ident("y"), Value: &ast.NumberLit{Value: 2}},
		},
		Tail: &ast.Binary{Op: ast.BAdd, Left: ident("x"), Right: ident("y")},
	}
	c := chunk(&ast.ExprStmt{X: blk})
	p := generate(t, c, nil)

	var found bool
	for _, instr := range p.RootChunk.Code {
		if instr.Op == bytecode.Block {
			assert.Equal(t, int32(2), instr.Operand)
			found = true
		}
	}
	assert.True(t, found, "expected a Block opcode discarding the block's 2 locals")
}

func TestGenerate_WhileLoopShape(t *testing.T) {
	// while (true) { 1; }
	c := chunk(&ast.WhileStmt{
		Cond: &ast.BoolLit{Value: true},
		Body: &ast.Block{Stmts: []ast.Stmt{&ast.ExprStmt{X: &ast.NumberLit{Value: 1}}}},
	})
	p := generate(t, c, nil)

	code := ops(p.RootChunk)
	require.Contains(t, code, bytecode.Jif)
	require.Contains(t, code, bytecode.Jp)

	// The Jif's false branch must land past the loop body, on the trailing
	// Null that supplies the loop's fallthrough value.
	var jifIx int
	for i, instr := range p.RootChunk.Code {
		if instr.Op == bytecode.Jif {
			jifIx = i
			target := i + 1 + int(instr.Operand)
			assert.Equal(t, bytecode.Null, p.RootChunk.Code[target].Op)
			break
		}
	}
	assert.Greater(t, jifIx, 0)
}

func TestGenerate_BreakWithValueConvergesWithFallthroughNull(t *testing.T) {
	// while (true) { break 7; }
	c := chunk(&ast.WhileStmt{
		Cond: &ast.BoolLit{Value: true},
		Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.BreakStmt{Value: &ast.NumberLit{Value: 7}},
		}},
	})
	p := generate(t, c, nil)

	var breakIx, jifIx int = -1, -1
	for i, instr := range p.RootChunk.Code {
		if instr.Op == bytecode.Break {
			breakIx = i
		}
		if instr.Op == bytecode.Jif && jifIx == -1 {
			jifIx = i
		}
	}
	require.GreaterOrEqual(t, breakIx, 0)
	require.GreaterOrEqual(t, jifIx, 0)

	// The loop's fallthrough Null is the Jif's target. It is not the first
	// Null in the chunk: the body block's own tail Null precedes it.
	nullIx := jifIx + 1 + int(p.RootChunk.Code[jifIx].Operand)
	require.Equal(t, bytecode.Null, p.RootChunk.Code[nullIx].Op)

	breakTarget := breakIx + 1 + int(p.RootChunk.Code[breakIx].Operand)
	// The break must land exactly one instruction past the fallthrough Null,
	// so both paths arrive with exactly one value already on the stack.
	assert.Equal(t, nullIx+1, breakTarget)
}

func TestGenerate_IfCompilesToJifAroundThenWithJpOverElse(t *testing.T) {
	// if (true) { 1 } else { 2 };
	c := chunk(&ast.ExprStmt{X: &ast.If{
		Cond: &ast.BoolLit{Value: true},
		Then: &ast.Block{Tail: &ast.NumberLit{Value: 1}},
		Else: &ast.Block{Tail: &ast.NumberLit{Value: 2}},
	}})
	p := generate(t, c, nil)
	code := ops(p.RootChunk)
	require.Contains(t, code, bytecode.Jif)
	require.Contains(t, code, bytecode.Jp)
}

func TestGenerate_ClosureWithNoFreeVarsEmitsCreateClosureZero(t *testing.T) {
	// fn f() => 1;
	fn := &ast.FuncLit{Name: "f", Sig: &ast.FuncSignature{}, ArrowBody: &ast.NumberLit{Value: 1}}
	c := chunk(&ast.FuncStmt{Name: ident("f"), Fn: fn})
	p := generate(t, c, nil)

	require.Len(t, p.Globals, 1)
	fnGlobal, ok := p.Globals[0].(*compiler.Function)
	require.True(t, ok)
	assert.Equal(t, "f", fnGlobal.Name)
	assert.Equal(t, 0, fnGlobal.Arity)
	assert.Empty(t, fnGlobal.Upvalues)
	// A top-level function's closure is built entirely at VM startup: no
	// CreateClosure should appear in the root chunk for it.
	assert.NotContains(t, ops(p.RootChunk), bytecode.CreateClosure)
}

func TestGenerate_NestedClosureCapturesEnclosingLocalByReference(t *testing.T) {
	// let x = 1; fn f() => x;
	fn := &ast.FuncLit{Name: "f", Sig: &ast.FuncSignature{}, ArrowBody: ident("x")}
	c := chunk(
		&ast.LetStmt{Name: ident("x"), Value: &ast.NumberLit{Value: 1}},
		&ast.ExprStmt{X: fn},
	)
	p := generate(t, c, nil)

	require.Len(t, p.Functions, 1)
	assert.Len(t, p.Functions[0].Upvalues, 1)
	assert.True(t, p.Functions[0].Upvalues[0].IsLocal)
	assert.True(t, p.Functions[0].Upvalues[0].IsRef)

	require.Contains(t, ops(p.RootChunk), bytecode.CreateClosure)
}

func TestGenerate_RecursiveNestedFunctionReservesItsOwnSlotBeforeBuilding(t *testing.T) {
	// { fn f() => f(); }
	var call *ast.Call
	call = &ast.Call{Callee: ident("f")}
	fn := &ast.FuncLit{Name: "f", Sig: &ast.FuncSignature{}, ArrowBody: call}
	c := chunk(&ast.ExprStmt{X: &ast.Block{
		Stmts: []ast.Stmt{&ast.FuncStmt{Name: ident("f"), Fn: fn}},
	}})
	p := generate(t, c, nil)

	// The reservation sequence is Null, Asg (through the address of the
	// recursive binding's own slot), then Pop, before the Block that closes
	// the scope.
	code := ops(p.RootChunk)
	require.Contains(t, code, bytecode.Asg)
	require.Contains(t, code, bytecode.CreateClosure)
}

func TestGenerate_ClassBuildsZeroArgCtorAndProperties(t *testing.T) {
	// class C { let a = 1; let b = 2; fn get() => this.a; }
	getFn := &ast.FuncLit{Name: "get", Sig: &ast.FuncSignature{}, ArrowBody: &ast.GetProp{Target: ident("this"), Name: "a"}}
	c := chunk(&ast.ClassStmt{
		Name: ident("C"),
		Fields: []*ast.LetStmt{
			{Name: ident("a"), Value: &ast.NumberLit{Value: 1}},
			{Name: ident("b"), Value: &ast.NumberLit{Value: 2}},
		},
		Methods: []*ast.FuncStmt{{Name: ident("get"), Fn: getFn}},
	})
	p := generate(t, c, nil)

	require.Len(t, p.Globals, 1)
	cls, ok := p.Globals[0].(*compiler.Class)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, cls.Fields)
	assert.Equal(t, 0, cls.Ctor.Arity)
	assert.Contains(t, ops(cls.Ctor.Chunk), bytecode.CreateObject)
	require.Len(t, cls.Methods, 1)
	assert.Equal(t, 1, cls.Methods[0].Arity) // this + zero declared params
	assert.Equal(t, -1, cls.Superclass)
}
