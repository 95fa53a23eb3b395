// Package ast defines the abstract syntax tree produced by the parser and
// consumed by the analyzer and compiler. Node kinds are closed sum types:
// each concrete type implements either Expr or Stmt (never both), and
// carries only its semantic payload -- source spans travel on the node
// itself via Span().
package ast

import "github.com/mna/aster/lang/token"

// Node is implemented by every node of the tree.
type Node interface {
	// Span reports the half-open source range covered by the node.
	Span() token.Span
	// Walk enters each child node inside itself, in evaluation order, to
	// support the Visitor pattern.
	Walk(v Visitor)
}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Chunk is the root of a parsed program: an ordered list of top-level
// statements.
type Chunk struct {
	Stmts []Stmt
	Sp    token.Span
}

func (n *Chunk) Span() token.Span { return n.Sp }
func (n *Chunk) Walk(v Visitor) {
	for _, s := range n.Stmts {
		Walk(v, s)
	}
}

// Ident represents an identifier reference, either as a use (expression) or
// as the name half of a declaration. The analyzer does not mutate Ident; it
// records resolution results in a side table (see analyzer.Result) keyed by
// the *Ident pointer, so the AST stays a pure syntactic artifact.
type Ident struct {
	Name string
	Sp   token.Span
}

func (n *Ident) Span() token.Span { return n.Sp }
func (n *Ident) Walk(v Visitor)   {}
func (n *Ident) exprNode()        {}

// FuncSignature is the parameter list shared by FuncStmt, method
// definitions and FuncLit.
type FuncSignature struct {
	Params []*Ident
	Sp     token.Span
}
