package ast

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Printer writes a parenthesized, Lisp-like rendering of a Chunk to Output.
// It exists purely as ambient debugging/disassembly tooling; the compiler
// and analyzer never use it.
type Printer struct {
	Output io.Writer
}

// Print writes the chunk's textual representation to p.Output.
func (p *Printer) Print(chunk *Chunk) error {
	var sb strings.Builder
	pr := &printer{sb: &sb}
	for _, s := range chunk.Stmts {
		pr.stmt(s)
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(p.Output, sb.String())
	return err
}

type printer struct {
	sb    *strings.Builder
	depth int
}

func (p *printer) indent() {
	p.sb.WriteString(strings.Repeat("  ", p.depth))
}

func (p *printer) stmt(s Stmt) {
	p.indent()
	switch s := s.(type) {
	case *LetStmt:
		p.sb.WriteString("(let " + s.Name.Name + " ")
		p.expr(s.Value)
		p.sb.WriteByte(')')
	case *ExprStmt:
		p.expr(s.X)
	case *WhileStmt:
		p.sb.WriteString("(while ")
		p.expr(s.Cond)
		p.sb.WriteByte(' ')
		p.expr(s.Body)
		p.sb.WriteByte(')')
	case *BreakStmt:
		p.sb.WriteString("(break")
		if s.Value != nil {
			p.sb.WriteByte(' ')
			p.expr(s.Value)
		}
		p.sb.WriteByte(')')
	case *ContinueStmt:
		p.sb.WriteString("(continue)")
	case *ReturnStmt:
		p.sb.WriteString("(return")
		if s.Value != nil {
			p.sb.WriteByte(' ')
			p.expr(s.Value)
		}
		p.sb.WriteByte(')')
	case *FuncStmt:
		p.sb.WriteString("(fn " + s.Name.Name + " ")
		p.expr(s.Fn)
		p.sb.WriteByte(')')
	case *ClassStmt:
		p.sb.WriteString("(class " + s.Name.Name)
		if s.Superclass != nil {
			p.sb.WriteString(" < " + s.Superclass.Name)
		}
		p.sb.WriteByte(')')
	default:
		fmt.Fprintf(p.sb, "<unknown stmt %T>", s)
	}
}

func (p *printer) expr(e Expr) {
	switch e := e.(type) {
	case *NumberLit:
		p.sb.WriteString(strconv.FormatFloat(e.Value, 'g', -1, 64))
	case *StringLit:
		p.sb.WriteString(strconv.Quote(e.Value))
	case *BoolLit:
		p.sb.WriteString(strconv.FormatBool(e.Value))
	case *NullLit:
		p.sb.WriteString("null")
	case *Ident:
		p.sb.WriteString(e.Name)
	case *Unary:
		p.sb.WriteString("(" + e.Op.String() + " ")
		p.expr(e.Right)
		p.sb.WriteByte(')')
	case *Binary:
		p.sb.WriteString("(" + e.Op.String() + " ")
		p.expr(e.Left)
		p.sb.WriteByte(' ')
		p.expr(e.Right)
		p.sb.WriteByte(')')
	case *Assign:
		p.sb.WriteString("(= ")
		p.expr(e.Target)
		p.sb.WriteByte(' ')
		p.expr(e.Value)
		p.sb.WriteByte(')')
	case *Call:
		p.sb.WriteString("(call ")
		p.expr(e.Callee)
		for _, a := range e.Args {
			p.sb.WriteByte(' ')
			p.expr(a)
		}
		p.sb.WriteByte(')')
	case *GetProp:
		p.sb.WriteString("(. ")
		p.expr(e.Target)
		p.sb.WriteString(" " + e.Name + ")")
	case *FuncLit:
		p.sb.WriteString("(func (")
		for i, prm := range e.Sig.Params {
			if i > 0 {
				p.sb.WriteByte(' ')
			}
			p.sb.WriteString(prm.Name)
		}
		p.sb.WriteString(") ")
		if e.Body != nil {
			p.expr(e.Body)
		} else {
			p.expr(e.ArrowBody)
		}
		p.sb.WriteByte(')')
	case *Block:
		p.sb.WriteString("(block")
		p.depth++
		for _, s := range e.Stmts {
			p.sb.WriteByte('\n')
			p.stmt(s)
		}
		if e.Tail != nil {
			p.sb.WriteByte('\n')
			p.indent()
			p.expr(e.Tail)
		}
		p.depth--
		p.sb.WriteByte(')')
	case *If:
		p.sb.WriteString("(if ")
		p.expr(e.Cond)
		p.sb.WriteByte(' ')
		p.expr(e.Then)
		if e.Else != nil {
			p.sb.WriteByte(' ')
			p.expr(e.Else)
		}
		p.sb.WriteByte(')')
	default:
		fmt.Fprintf(p.sb, "<unknown expr %T>", e)
	}
}
