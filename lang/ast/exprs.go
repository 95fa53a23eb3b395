package ast

import "github.com/mna/aster/lang/token"

// BinOp is the set of binary operators the language supports.
type BinOp int

const (
	BAdd BinOp = iota
	BSub
	BMul
	BDiv
	BMod
	BEq
	BNeq
	BLt
	BLe
	BGt
	BGe
)

func (op BinOp) String() string {
	switch op {
	case BAdd:
		return "+"
	case BSub:
		return "-"
	case BMul:
		return "*"
	case BDiv:
		return "/"
	case BMod:
		return "%"
	case BEq:
		return "=="
	case BNeq:
		return "!="
	case BLt:
		return "<"
	case BLe:
		return "<="
	case BGt:
		return ">"
	case BGe:
		return ">="
	default:
		return "<invalid binop>"
	}
}

// UnOp is the set of unary operators the language supports.
type UnOp int

const (
	UNot UnOp = iota
	UNeg
)

func (op UnOp) String() string {
	if op == UNot {
		return "!"
	}
	return "-"
}

type (
	// NumberLit is a floating-point literal.
	NumberLit struct {
		Value float64
		Sp    token.Span
	}

	// StringLit is a string literal. The AST keeps the decoded Go string; the
	// text is interned only when the compiler emits it as a constant.
	StringLit struct {
		Value string
		Sp    token.Span
	}

	// BoolLit is a `true`/`false` literal.
	BoolLit struct {
		Value bool
		Sp    token.Span
	}

	// NullLit is the `null` literal.
	NullLit struct {
		Sp token.Span
	}

	// Unary is a unary operator expression, e.g. `-x` or `!x`.
	Unary struct {
		Op    UnOp
		Right Expr
		Sp    token.Span
	}

	// Binary is a binary operator expression, e.g. `x + y`.
	Binary struct {
		Op          BinOp
		Left, Right Expr
		Sp          token.Span
	}

	// Assign is an assignment expression. Target must be an *Ident or a
	// *GetProp; assignment is itself an expression, evaluating to the
	// assigned value. Target is evaluated before Value.
	Assign struct {
		Target Expr
		Value  Expr
		Sp     token.Span
	}

	// Call is a function call expression. Arguments are evaluated
	// left-to-right before the callee, per the language's evaluation order.
	Call struct {
		Callee Expr
		Args   []Expr
		Sp     token.Span
	}

	// GetProp reads a property off an object, e.g. `x.y`.
	GetProp struct {
		Target Expr
		Name   string
		Sp     token.Span
	}

	// FuncLit is a function literal, used both for `fn name(...) { ... }`
	// declarations (wrapped in a FuncStmt) and for nested closures. Body is
	// non-nil for a block-bodied function; ArrowBody is non-nil for an
	// arrow-bodied function (`fn f() => expr`). Exactly one of the two is set.
	FuncLit struct {
		Name      string // empty for an anonymous function expression
		Sig       *FuncSignature
		Body      *Block
		ArrowBody Expr
		Sp        token.Span
	}

	// Block is a brace-delimited sequence of statements followed by an
	// optional tail expression; it is itself an expression, evaluating to the
	// tail expression's value (or Null if absent).
	Block struct {
		Stmts []Stmt
		Tail  Expr // nil means the block evaluates to Null
		Sp    token.Span
	}

	// If is a conditional expression. Then and Else are block expressions;
	// Else is nil when there is no else-branch, in which case the if
	// evaluates to Null when the condition is false. An `elseif` chain is
	// represented as a nested *If inside Else's tail position -- see the
	// parser for how it builds this shape.
	If struct {
		Cond Expr
		Then *Block
		Else *Block
		Sp   token.Span
	}
)

func (n *NumberLit) Span() token.Span { return n.Sp }
func (n *NumberLit) Walk(v Visitor)   {}
func (n *NumberLit) exprNode()        {}

func (n *StringLit) Span() token.Span { return n.Sp }
func (n *StringLit) Walk(v Visitor)   {}
func (n *StringLit) exprNode()        {}

func (n *BoolLit) Span() token.Span { return n.Sp }
func (n *BoolLit) Walk(v Visitor)   {}
func (n *BoolLit) exprNode()        {}

func (n *NullLit) Span() token.Span { return n.Sp }
func (n *NullLit) Walk(v Visitor)   {}
func (n *NullLit) exprNode()        {}

func (n *Unary) Span() token.Span { return n.Sp }
func (n *Unary) Walk(v Visitor)   { Walk(v, n.Right) }
func (n *Unary) exprNode()        {}

func (n *Binary) Span() token.Span { return n.Sp }
func (n *Binary) Walk(v Visitor) {
	Walk(v, n.Left)
	Walk(v, n.Right)
}
func (n *Binary) exprNode() {}

func (n *Assign) Span() token.Span { return n.Sp }
func (n *Assign) Walk(v Visitor) {
	Walk(v, n.Target)
	Walk(v, n.Value)
}
func (n *Assign) exprNode() {}

func (n *Call) Span() token.Span { return n.Sp }
func (n *Call) Walk(v Visitor) {
	for _, a := range n.Args {
		Walk(v, a)
	}
	Walk(v, n.Callee)
}
func (n *Call) exprNode() {}

func (n *GetProp) Span() token.Span { return n.Sp }
func (n *GetProp) Walk(v Visitor)   { Walk(v, n.Target) }
func (n *GetProp) exprNode()        {}

func (n *FuncLit) Span() token.Span { return n.Sp }
func (n *FuncLit) Walk(v Visitor) {
	for _, p := range n.Sig.Params {
		Walk(v, p)
	}
	if n.Body != nil {
		Walk(v, n.Body)
	}
	if n.ArrowBody != nil {
		Walk(v, n.ArrowBody)
	}
}
func (n *FuncLit) exprNode() {}

func (n *Block) Span() token.Span { return n.Sp }
func (n *Block) Walk(v Visitor) {
	for _, s := range n.Stmts {
		Walk(v, s)
	}
	if n.Tail != nil {
		Walk(v, n.Tail)
	}
}
func (n *Block) exprNode() {}

func (n *If) Span() token.Span { return n.Sp }
func (n *If) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Then)
	if n.Else != nil {
		Walk(v, n.Else)
	}
}
func (n *If) exprNode() {}
