package ast

import "github.com/mna/aster/lang/token"

type (
	// LetStmt declares a new binding: `let x = <expr>;`. The analyzer's
	// declare-then-initialize protocol treats Name as uninitialized while
	// visiting Value, then initialized afterward -- see lang/analyzer.
	LetStmt struct {
		Name  *Ident
		Value Expr
		Sp    token.Span
	}

	// ExprStmt is an expression evaluated for its side effect; its value is
	// discarded.
	ExprStmt struct {
		X  Expr
		Sp token.Span
	}

	// WhileStmt is a `while (cond) { body }` loop.
	WhileStmt struct {
		Cond Expr
		Body *Block
		Sp   token.Span
	}

	// BreakStmt exits the nearest enclosing loop, optionally carrying a
	// value that becomes the loop's own expression value.
	BreakStmt struct {
		Value Expr // nil means the loop evaluates to Null
		Sp    token.Span
	}

	// ContinueStmt jumps back to the nearest enclosing loop's condition.
	ContinueStmt struct {
		Sp token.Span
	}

	// ReturnStmt returns from the enclosing function, optionally carrying a
	// value.
	ReturnStmt struct {
		Value Expr // nil means Null is returned
		Sp    token.Span
	}

	// FuncStmt declares a named top-level (or nested) function: `fn name(...)
	// { ... }` or `fn name() => expr`. It is sugar over `let name =
	// <FuncLit>;` except that the name is visible inside its own body (for
	// recursion) and in the enclosing scope from the point of declaration.
	FuncStmt struct {
		Name *Ident
		Fn   *FuncLit
		Sp   token.Span
	}

	// ClassStmt declares a class: fields are evaluated and bound first (in
	// declaration order, visible to all methods and subsequent fields), then
	// methods are declared (visible to each other regardless of order).
	ClassStmt struct {
		Name       *Ident
		Superclass *Ident // nil if the class has no explicit superclass
		Fields     []*LetStmt
		Methods    []*FuncStmt
		Sp         token.Span
	}
)

func (n *LetStmt) Span() token.Span { return n.Sp }
func (n *LetStmt) Walk(v Visitor) {
	Walk(v, n.Value)
	Walk(v, n.Name)
}
func (n *LetStmt) stmtNode() {}

func (n *ExprStmt) Span() token.Span { return n.Sp }
func (n *ExprStmt) Walk(v Visitor)   { Walk(v, n.X) }
func (n *ExprStmt) stmtNode()        {}

func (n *WhileStmt) Span() token.Span { return n.Sp }
func (n *WhileStmt) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Body)
}
func (n *WhileStmt) stmtNode() {}

func (n *BreakStmt) Span() token.Span { return n.Sp }
func (n *BreakStmt) Walk(v Visitor) {
	if n.Value != nil {
		Walk(v, n.Value)
	}
}
func (n *BreakStmt) stmtNode() {}

func (n *ContinueStmt) Span() token.Span { return n.Sp }
func (n *ContinueStmt) Walk(v Visitor)   {}
func (n *ContinueStmt) stmtNode()        {}

func (n *ReturnStmt) Span() token.Span { return n.Sp }
func (n *ReturnStmt) Walk(v Visitor) {
	if n.Value != nil {
		Walk(v, n.Value)
	}
}
func (n *ReturnStmt) stmtNode() {}

func (n *FuncStmt) Span() token.Span { return n.Sp }
func (n *FuncStmt) Walk(v Visitor) {
	Walk(v, n.Name)
	Walk(v, n.Fn)
}
func (n *FuncStmt) stmtNode() {}

func (n *ClassStmt) Span() token.Span { return n.Sp }
func (n *ClassStmt) Walk(v Visitor) {
	Walk(v, n.Name)
	if n.Superclass != nil {
		Walk(v, n.Superclass)
	}
	for _, f := range n.Fields {
		Walk(v, f)
	}
	for _, m := range n.Methods {
		Walk(v, m)
	}
}
func (n *ClassStmt) stmtNode() {}
