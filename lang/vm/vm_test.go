package vm_test

import (
	"testing"

	"github.com/mna/aster/lang/analyzer"
	"github.com/mna/aster/lang/ast"
	"github.com/mna/aster/lang/compiler"
	"github.com/mna/aster/lang/symbol"
	"github.com/mna/aster/lang/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ident(name string) *ast.Ident { return &ast.Ident{Name: name} }

func chunk(stmts ...ast.Stmt) *ast.Chunk { return &ast.Chunk{Stmts: stmts} }

// run analyzes, compiles and executes c in one step, registering natives
// before analysis so a program can reference vm.Universe's print/len, and
// returns the program's result value.
func run(t *testing.T, c *ast.Chunk) (vm.Value, error) {
	t.Helper()
	res, err := analyzer.Analyze(c, vm.IsNative)
	require.NoError(t, err)
	syms := symbol.NewTable(8)
	prog := compiler.Generate(c, res, syms)
	m := vm.New(prog, vm.Universe)
	return m.Run()
}

func TestRun_Arithmetic(t *testing.T) {
	// 2 + 3 * 4;
	c := chunk(&ast.ExprStmt{X: &ast.Binary{
		Op:   ast.BAdd,
		Left: &ast.NumberLit{Value: 2},
		Right: &ast.Binary{
			Op:    ast.BMul,
			Left:  &ast.NumberLit{Value: 3},
			Right: &ast.NumberLit{Value: 4},
		},
	}})
	got, err := run(t, c)
	require.NoError(t, err)
	assert.Equal(t, vm.Number(14), got)
}

func TestRun_BlockScoping(t *testing.T) {
	// { let x = 1; let y = 2; x + y };
	blk := &ast.Block{
		Stmts: []ast.Stmt{
			&ast.LetStmt{Name: ident("x"), Value: &ast.NumberLit{Value: 1}},
			&ast.LetStmt{Name: ident("y"), Value: &ast.NumberLit{Value: 2}},
		},
		Tail: &ast.Binary{Op: ast.BAdd, Left: ident("x"), Right: ident("y")},
	}
	c := chunk(&ast.ExprStmt{X: blk})
	got, err := run(t, c)
	require.NoError(t, err)
	assert.Equal(t, vm.Number(3), got)
}

func TestRun_WhileLoop(t *testing.T) {
	// let i = 0; while (i < 3) { i = i + 1; } i;
	c := chunk(
		&ast.LetStmt{Name: ident("i"), Value: &ast.NumberLit{Value: 0}},
		&ast.WhileStmt{
			Cond: &ast.Binary{Op: ast.BLt, Left: ident("i"), Right: &ast.NumberLit{Value: 3}},
			Body: &ast.Block{Stmts: []ast.Stmt{
				&ast.ExprStmt{X: &ast.Assign{
					Target: ident("i"),
					Value:  &ast.Binary{Op: ast.BAdd, Left: ident("i"), Right: &ast.NumberLit{Value: 1}},
				}},
			}},
		},
		&ast.ExprStmt{X: ident("i")},
	)
	got, err := run(t, c)
	require.NoError(t, err)
	assert.Equal(t, vm.Number(3), got)
}

func TestRun_ClosureCapturesByReference(t *testing.T) {
	// fn make() {
	//   let c = 0;
	//   fn inc() => c = c + 1;
	//   inc() + inc()
	// }
	// make();
	incBody := &ast.Assign{
		Target: ident("c"),
		Value:  &ast.Binary{Op: ast.BAdd, Left: ident("c"), Right: &ast.NumberLit{Value: 1}},
	}
	incFn := &ast.FuncLit{Name: "inc", Sig: &ast.FuncSignature{}, ArrowBody: incBody}
	makeBody := &ast.Block{
		Stmts: []ast.Stmt{
			&ast.LetStmt{Name: ident("c"), Value: &ast.NumberLit{Value: 0}},
			&ast.FuncStmt{Name: ident("inc"), Fn: incFn},
		},
		Tail: &ast.Binary{
			Op:    ast.BAdd,
			Left:  &ast.Call{Callee: ident("inc")},
			Right: &ast.Call{Callee: ident("inc")},
		},
	}
	makeFn := &ast.FuncLit{Name: "make", Sig: &ast.FuncSignature{}, Body: makeBody}
	c := chunk(
		&ast.FuncStmt{Name: ident("make"), Fn: makeFn},
		&ast.ExprStmt{X: &ast.Call{Callee: ident("make")}},
	)
	got, err := run(t, c)
	require.NoError(t, err)
	assert.Equal(t, vm.Number(3), got)
}

func TestRun_ClassInstantiationAndMethodCall(t *testing.T) {
	// class Counter { let n = 0; fn bump() => this.n = this.n + 1; }
	// let c = Counter();
	// c.bump();
	// c.bump();
	// c.n;
	bumpBody := &ast.Assign{
		Target: &ast.GetProp{Target: ident("this"), Name: "n"},
		Value: &ast.Binary{
			Op:    ast.BAdd,
			Left:  &ast.GetProp{Target: ident("this"), Name: "n"},
			Right: &ast.NumberLit{Value: 1},
		},
	}
	bumpFn := &ast.FuncLit{Name: "bump", Sig: &ast.FuncSignature{}, ArrowBody: bumpBody}
	classDecl := &ast.ClassStmt{
		Name:    ident("Counter"),
		Fields:  []*ast.LetStmt{{Name: ident("n"), Value: &ast.NumberLit{Value: 0}}},
		Methods: []*ast.FuncStmt{{Name: ident("bump"), Fn: bumpFn}},
	}
	c := chunk(
		classDecl,
		&ast.LetStmt{Name: ident("c"), Value: &ast.Call{Callee: ident("Counter")}},
		&ast.ExprStmt{X: &ast.Call{Callee: &ast.GetProp{Target: ident("c"), Name: "bump"}}},
		&ast.ExprStmt{X: &ast.Call{Callee: &ast.GetProp{Target: ident("c"), Name: "bump"}}},
		&ast.ExprStmt{X: &ast.GetProp{Target: ident("c"), Name: "n"}},
	)
	got, err := run(t, c)
	require.NoError(t, err)
	assert.Equal(t, vm.Number(2), got)
}

func TestRun_DivisionByZeroIsRuntimeError(t *testing.T) {
	c := chunk(&ast.ExprStmt{X: &ast.Binary{
		Op:    ast.BDiv,
		Left:  &ast.NumberLit{Value: 1},
		Right: &ast.NumberLit{Value: 0},
	}})
	_, err := run(t, c)
	require.Error(t, err)
	rerr, ok := err.(*vm.RuntimeError)
	require.True(t, ok)
	assert.Equal(t, vm.DivisionByZero, rerr.Cause)
}

func TestRun_WrongArityIsRuntimeError(t *testing.T) {
	// fn f(a) => a;
	// f();
	fn := &ast.FuncLit{
		Name:      "f",
		Sig:       &ast.FuncSignature{Params: []*ast.Ident{ident("a")}},
		ArrowBody: ident("a"),
	}
	c := chunk(
		&ast.FuncStmt{Name: ident("f"), Fn: fn},
		&ast.ExprStmt{X: &ast.Call{Callee: ident("f")}},
	)
	_, err := run(t, c)
	require.Error(t, err)
	rerr, ok := err.(*vm.RuntimeError)
	require.True(t, ok)
	assert.Equal(t, vm.WrongArity, rerr.Cause)
}

func TestRun_BreakExitsLoopEarly(t *testing.T) {
	// let i = 0; while (true) { i = i + 1; if (i == 3) { break; } } i;
	cond := &ast.Binary{Op: ast.BEq, Left: ident("i"), Right: &ast.NumberLit{Value: 3}}
	body := &ast.Block{Stmts: []ast.Stmt{
		&ast.ExprStmt{X: &ast.Assign{
			Target: ident("i"),
			Value:  &ast.Binary{Op: ast.BAdd, Left: ident("i"), Right: &ast.NumberLit{Value: 1}},
		}},
		&ast.ExprStmt{X: &ast.If{
			Cond: cond,
			Then: &ast.Block{Stmts: []ast.Stmt{&ast.BreakStmt{}}},
		}},
	}}
	c := chunk(
		&ast.LetStmt{Name: ident("i"), Value: &ast.NumberLit{Value: 0}},
		&ast.WhileStmt{Cond: &ast.BoolLit{Value: true}, Body: body},
		&ast.ExprStmt{X: ident("i")},
	)
	got, err := run(t, c)
	require.NoError(t, err)
	assert.Equal(t, vm.Number(3), got)
}

func TestRun_StringConcatenation(t *testing.T) {
	c := chunk(&ast.ExprStmt{X: &ast.Binary{
		Op:    ast.BAdd,
		Left:  &ast.StringLit{Value: "foo"},
		Right: &ast.StringLit{Value: "bar"},
	}})
	got, err := run(t, c)
	require.NoError(t, err)
	assert.Equal(t, vm.String("foobar"), got)
}
