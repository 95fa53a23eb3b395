package analyzer_test

import (
	"testing"

	"github.com/mna/aster/lang/analyzer"
	"github.com/mna/aster/lang/ast"
	"github.com/mna/aster/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sp() token.Span { return token.Span{} }

func ident(name string) *ast.Ident { return &ast.Ident{Name: name} }

func chunk(stmts ...ast.Stmt) *ast.Chunk { return &ast.Chunk{Stmts: stmts} }

func causes(err error) []analyzer.Cause {
	if err == nil {
		return nil
	}
	el := err.(analyzer.ErrorList)
	out := make([]analyzer.Cause, len(el))
	for i, e := range el {
		out[i] = e.Cause
	}
	return out
}

func TestAnalyze_SimpleLetAndUse(t *testing.T) {
	// let x = 1; let y = x + 1;
	x := ident("x")
	y := ident("y")
	c := chunk(
		&ast.LetStmt{Name: x, Value: &ast.NumberLit{Value: 1}},
		&ast.LetStmt{Name: y, Value: &ast.Binary{Op: ast.BAdd, Left: ident("x"), Right: &ast.NumberLit{Value: 1}}},
	)
	res, err := analyzer.Analyze(c, nil)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, analyzer.Local, res.Idents[x].Scope)
	assert.Equal(t, analyzer.Local, res.Idents[y].Scope)
	assert.Equal(t, 2, res.RootLocals)
}

func TestAnalyze_SelfReferenceIsUsedBeforeInitialization(t *testing.T) {
	// let x = x + 1;
	c := chunk(&ast.LetStmt{
		Name:  ident("x"),
		Value: &ast.Binary{Op: ast.BAdd, Left: ident("x"), Right: &ast.NumberLit{Value: 1}},
	})
	_, err := analyzer.Analyze(c, nil)
	require.Error(t, err)
	assert.Equal(t, []analyzer.Cause{analyzer.UsedBeforeInitialization}, causes(err))
}

func TestAnalyze_ShadowingIsNotSelfReference(t *testing.T) {
	// let x = 1; let x = x + 1;
	c := chunk(
		&ast.LetStmt{Name: ident("x"), Value: &ast.NumberLit{Value: 1}},
		&ast.LetStmt{Name: ident("x"), Value: &ast.Binary{Op: ast.BAdd, Left: ident("x"), Right: &ast.NumberLit{Value: 1}}},
	)
	res, err := analyzer.Analyze(c, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.RootLocals)
}

func TestAnalyze_UndefinedNameIsNotDefined(t *testing.T) {
	c := chunk(&ast.ExprStmt{X: ident("nope")})
	_, err := analyzer.Analyze(c, nil)
	require.Error(t, err)
	assert.Equal(t, []analyzer.Cause{analyzer.NotDefined}, causes(err))
}

func TestAnalyze_NativeNameResolves(t *testing.T) {
	c := chunk(&ast.ExprStmt{X: &ast.Call{Callee: ident("print"), Args: []ast.Expr{&ast.StringLit{Value: "hi"}}}})
	res, err := analyzer.Analyze(c, func(name string) bool { return name == "print" })
	require.NoError(t, err)
	for id, bdg := range res.Idents {
		if id.Name == "print" {
			assert.Equal(t, analyzer.Native, bdg.Scope)
		}
	}
}

func TestAnalyze_BreakContinueOutsideLoop(t *testing.T) {
	c := chunk(&ast.BreakStmt{})
	_, err := analyzer.Analyze(c, nil)
	require.Error(t, err)
	assert.Equal(t, []analyzer.Cause{analyzer.UsedOutsideLoop}, causes(err))

	c2 := chunk(&ast.ContinueStmt{})
	_, err2 := analyzer.Analyze(c2, nil)
	require.Error(t, err2)
	assert.Equal(t, []analyzer.Cause{analyzer.UsedOutsideLoop}, causes(err2))
}

func TestAnalyze_BreakInsideLoopIsValid(t *testing.T) {
	c := chunk(&ast.WhileStmt{
		Cond: &ast.BoolLit{Value: true},
		Body: &ast.Block{Stmts: []ast.Stmt{&ast.BreakStmt{Value: &ast.NumberLit{Value: 1}}}},
	})
	_, err := analyzer.Analyze(c, nil)
	assert.NoError(t, err)
}

func TestAnalyze_ReturnOutsideFunction(t *testing.T) {
	c := chunk(&ast.ReturnStmt{})
	_, err := analyzer.Analyze(c, nil)
	require.Error(t, err)
	assert.Equal(t, []analyzer.Cause{analyzer.ReturnUsedOutsideFunction}, causes(err))
}

func TestAnalyze_ReturnInsideFunctionIsValid(t *testing.T) {
	fn := &ast.FuncLit{Sig: &ast.FuncSignature{}, Body: &ast.Block{
		Stmts: []ast.Stmt{&ast.ReturnStmt{Value: &ast.NumberLit{Value: 1}}},
	}}
	c := chunk(&ast.FuncStmt{Name: ident("f"), Fn: fn})
	_, err := analyzer.Analyze(c, nil)
	assert.NoError(t, err)
}

func TestAnalyze_RecursiveFunctionSeesItsOwnName(t *testing.T) {
	// fn f() { return f(); }
	var call *ast.Call
	call = &ast.Call{Callee: ident("f")}
	fn := &ast.FuncLit{Name: "f", Sig: &ast.FuncSignature{}, Body: &ast.Block{
		Stmts: []ast.Stmt{&ast.ReturnStmt{Value: call}},
	}}
	c := chunk(&ast.FuncStmt{Name: ident("f"), Fn: fn})
	_, err := analyzer.Analyze(c, nil)
	assert.NoError(t, err)
}

func TestAnalyze_ClosureCapturesEnclosingLocalAsCell(t *testing.T) {
	// let x = 1; fn f() => x;
	xDecl := ident("x")
	xUse := ident("x")
	fn := &ast.FuncLit{Name: "f", Sig: &ast.FuncSignature{}, ArrowBody: xUse}
	c := chunk(
		&ast.LetStmt{Name: xDecl, Value: &ast.NumberLit{Value: 1}},
		&ast.FuncStmt{Name: ident("f"), Fn: fn},
	)
	res, err := analyzer.Analyze(c, nil)
	require.NoError(t, err)
	assert.Equal(t, analyzer.Cell, res.Idents[xDecl].Scope)
	assert.Equal(t, analyzer.Free, res.Idents[xUse].Scope)
	info := res.Funcs[fn]
	require.NotNil(t, info)
	require.Len(t, info.FreeVars, 1)
}

func TestAnalyze_ClassInheritFromItself(t *testing.T) {
	c := chunk(&ast.ClassStmt{Name: ident("A"), Superclass: ident("A")})
	_, err := analyzer.Analyze(c, nil)
	require.Error(t, err)
	assert.Equal(t, []analyzer.Cause{analyzer.CantInheritFromItself}, causes(err))
}

func TestAnalyze_SuperclassDoesntExist(t *testing.T) {
	c := chunk(&ast.ClassStmt{Name: ident("A"), Superclass: ident("B")})
	_, err := analyzer.Analyze(c, nil)
	require.Error(t, err)
	assert.Equal(t, []analyzer.Cause{analyzer.SuperclassDoesntExist}, causes(err))
}

func TestAnalyze_ValidSuperclassResolves(t *testing.T) {
	c := chunk(
		&ast.ClassStmt{Name: ident("Base")},
		&ast.ClassStmt{Name: ident("Derived"), Superclass: ident("Base")},
	)
	_, err := analyzer.Analyze(c, nil)
	assert.NoError(t, err)
}

func TestAnalyze_MethodSeesThisAndSiblingFields(t *testing.T) {
	// class C { let a = 1; fn get() => this.a; }
	getFn := &ast.FuncLit{Name: "get", Sig: &ast.FuncSignature{}, ArrowBody: &ast.GetProp{Target: ident("this"), Name: "a"}}
	c := chunk(&ast.ClassStmt{
		Name:    ident("C"),
		Fields:  []*ast.LetStmt{{Name: ident("a"), Value: &ast.NumberLit{Value: 1}}},
		Methods: []*ast.FuncStmt{{Name: ident("get"), Fn: getFn}},
	})
	_, err := analyzer.Analyze(c, nil)
	assert.NoError(t, err)
}

func TestAnalyze_CollectsMultipleErrorsSortedByPosition(t *testing.T) {
	first := ident("a")
	first.Sp = token.Span{Start: token.Pos(10)}
	second := ident("b")
	second.Sp = token.Span{Start: token.Pos(5)}
	c := chunk(
		&ast.ExprStmt{X: first},
		&ast.ExprStmt{X: second},
	)
	_, err := analyzer.Analyze(c, nil)
	require.Error(t, err)
	el := err.(analyzer.ErrorList)
	require.Len(t, el, 2)
	assert.True(t, el[0].Span.Start <= el[1].Span.Start)
}
