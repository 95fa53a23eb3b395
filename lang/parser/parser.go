// Package parser implements a recursive-descent, precedence-climbing parser
// that turns aster source text into the *ast.Chunk lang/analyzer and
// lang/compiler consume: ambient front-end plumbing feeding the compiler
// pipeline's required core. It uses a single-token lookahead parser
// struct, an accumulated ErrorList and one method per grammar production,
// with a plain precedence-climbing expression parser rather than a
// Pratt-table dispatch, since this language's operator set is small enough
// that a fixed ladder of precedence levels reads more plainly.
package parser

import (
	"strconv"

	"github.com/mna/aster/lang/ast"
	"github.com/mna/aster/lang/scanner"
	"github.com/mna/aster/lang/token"
)

// Parse tokenizes and parses src into a *ast.Chunk. The returned error, if
// non-nil, is an ErrorList.
func Parse(src []byte) (*ast.Chunk, error) {
	var p parser
	p.sc = scanner.New(src, func(pos token.Pos, msg string) { p.errs.Add(pos, "%s", msg) })
	p.advance()
	chunk := p.parseChunk()
	p.errs.Sort()
	return chunk, p.errs.Err()
}

type parser struct {
	sc   *scanner.Scanner
	errs ErrorList

	tok     scanner.Token
	prevEnd token.Pos
}

func (p *parser) advance() {
	if p.tok.Kind != 0 { // zero value is ILLEGAL, harmless on the very first call
		p.prevEnd = p.tok.Pos
	}
	p.tok = p.sc.Scan()
}

func (p *parser) at(k token.Token) bool { return p.tok.Kind == k }

func (p *parser) accept(k token.Token) bool {
	if p.at(k) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(k token.Token) token.Pos {
	pos := p.tok.Pos
	if !p.at(k) {
		p.errs.Add(p.tok.Pos, "expected %s, got %s", k.GoString(), p.tok.Kind.GoString())
		return pos
	}
	p.advance()
	return pos
}

func (p *parser) span(start token.Pos) token.Span {
	return token.Span{Start: start, End: p.prevEnd}
}

func (p *parser) parseChunk() *ast.Chunk {
	start := p.tok.Pos
	var stmts []ast.Stmt
	for !p.at(token.EOF) {
		stmts = append(stmts, p.parseStmt())
	}
	return &ast.Chunk{Stmts: stmts, Sp: p.span(start)}
}

func (p *parser) parseStmt() ast.Stmt {
	switch p.tok.Kind {
	case token.LET:
		return p.parseLetStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.BREAK:
		return p.parseBreakStmt()
	case token.CONTINUE:
		return p.parseContinueStmt()
	case token.RETURN:
		return p.parseReturnStmt()
	case token.FN:
		return p.parseFuncStmt()
	case token.CLASS:
		return p.parseClassStmt()
	default:
		return p.parseExprStmt()
	}
}

func (p *parser) parseIdent() *ast.Ident {
	pos := p.tok.Pos
	name := p.tok.Lit
	p.expect(token.IDENT)
	return &ast.Ident{Name: name, Sp: token.Span{Start: pos, End: pos}}
}

func (p *parser) parseLetStmt() *ast.LetStmt {
	start := p.tok.Pos
	p.expect(token.LET)
	name := p.parseIdent()
	p.expect(token.ASSIGN)
	val := p.parseExpr()
	p.expect(token.SEMI)
	return &ast.LetStmt{Name: name, Value: val, Sp: p.span(start)}
}

func (p *parser) parseExprStmt() *ast.ExprStmt {
	start := p.tok.Pos
	x := p.parseExpr()
	p.expect(token.SEMI)
	return &ast.ExprStmt{X: x, Sp: p.span(start)}
}

func (p *parser) parseWhileStmt() *ast.WhileStmt {
	start := p.tok.Pos
	p.expect(token.WHILE)
	p.expect(token.LPAREN)
	cond := p.parseExpr()
	p.expect(token.RPAREN)
	body := p.parseBlock()
	return &ast.WhileStmt{Cond: cond, Body: body, Sp: p.span(start)}
}

func (p *parser) parseBreakStmt() *ast.BreakStmt {
	start := p.tok.Pos
	p.expect(token.BREAK)
	var val ast.Expr
	if !p.at(token.SEMI) {
		val = p.parseExpr()
	}
	p.expect(token.SEMI)
	return &ast.BreakStmt{Value: val, Sp: p.span(start)}
}

func (p *parser) parseContinueStmt() *ast.ContinueStmt {
	start := p.tok.Pos
	p.expect(token.CONTINUE)
	p.expect(token.SEMI)
	return &ast.ContinueStmt{Sp: p.span(start)}
}

func (p *parser) parseReturnStmt() *ast.ReturnStmt {
	start := p.tok.Pos
	p.expect(token.RETURN)
	var val ast.Expr
	if !p.at(token.SEMI) {
		val = p.parseExpr()
	}
	p.expect(token.SEMI)
	return &ast.ReturnStmt{Value: val, Sp: p.span(start)}
}

// parseFuncStmt parses `fn name(params) { ... }` or `fn name(params) =>
// expr;`. The arrow form requires a trailing semicolon, matching
// parseExprStmt's own convention, since an arrow body is itself an
// expression statement in disguise.
func (p *parser) parseFuncStmt() *ast.FuncStmt {
	start := p.tok.Pos
	fn := p.parseFuncLit(true)
	return &ast.FuncStmt{Name: &ast.Ident{Name: fn.Name, Sp: fn.Sp}, Fn: fn, Sp: p.span(start)}
}

// parseFuncLit parses a function literal. requireName controls whether the
// `fn` keyword must be followed by an identifier (true for `fn` statements,
// false for anonymous function expressions).
func (p *parser) parseFuncLit(requireName bool) *ast.FuncLit {
	start := p.tok.Pos
	p.expect(token.FN)
	name := ""
	if requireName || p.at(token.IDENT) {
		name = p.tok.Lit
		p.expect(token.IDENT)
	}
	sig := p.parseFuncSignature()
	fn := &ast.FuncLit{Name: name, Sig: sig}
	if p.accept(token.ARROW) {
		fn.ArrowBody = p.parseExpr()
		p.expect(token.SEMI)
	} else {
		fn.Body = p.parseBlock()
	}
	fn.Sp = p.span(start)
	return fn
}

func (p *parser) parseFuncSignature() *ast.FuncSignature {
	start := p.tok.Pos
	p.expect(token.LPAREN)
	var params []*ast.Ident
	for !p.at(token.RPAREN) {
		params = append(params, p.parseIdent())
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	return &ast.FuncSignature{Params: params, Sp: p.span(start)}
}

func (p *parser) parseClassStmt() *ast.ClassStmt {
	start := p.tok.Pos
	p.expect(token.CLASS)
	name := p.parseIdent()
	var super *ast.Ident
	if p.accept(token.EXTENDS) {
		super = p.parseIdent()
	}
	p.expect(token.LBRACE)
	var fields []*ast.LetStmt
	var methods []*ast.FuncStmt
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		if p.at(token.LET) {
			fields = append(fields, p.parseLetStmt())
		} else {
			methods = append(methods, p.parseFuncStmt())
		}
	}
	p.expect(token.RBRACE)
	return &ast.ClassStmt{Name: name, Superclass: super, Fields: fields, Methods: methods, Sp: p.span(start)}
}

// parseBlock parses a brace-delimited block expression: a statement
// sequence followed by an optional tail expression with no trailing
// semicolon. The tail is recognized by trying to parse one more statement
// and, if it turns out to be a bare expression immediately followed by
// RBRACE rather than SEMI, reinterpreting it as the tail -- a
// lookahead-free technique for the expression-statement/tail-expression
// ambiguity.
func (p *parser) parseBlock() *ast.Block {
	start := p.tok.Pos
	p.expect(token.LBRACE)
	var stmts []ast.Stmt
	var tail ast.Expr
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		if isStmtKeyword(p.tok.Kind) {
			stmts = append(stmts, p.parseStmt())
			continue
		}
		e := p.parseExpr()
		if p.accept(token.SEMI) {
			stmts = append(stmts, &ast.ExprStmt{X: e, Sp: e.Span()})
			continue
		}
		tail = e
		break
	}
	p.expect(token.RBRACE)
	return &ast.Block{Stmts: stmts, Tail: tail, Sp: p.span(start)}
}

func isStmtKeyword(k token.Token) bool {
	switch k {
	case token.LET, token.WHILE, token.BREAK, token.CONTINUE, token.RETURN, token.FN, token.CLASS:
		return true
	default:
		return false
	}
}

// parseExpr parses a full expression, starting at the assignment level
// (lowest precedence, right-associative).
func (p *parser) parseExpr() ast.Expr {
	return p.parseAssign()
}

func (p *parser) parseAssign() ast.Expr {
	start := p.tok.Pos
	left := p.parseEquality()
	if p.accept(token.ASSIGN) {
		val := p.parseAssign()
		return &ast.Assign{Target: left, Value: val, Sp: p.span(start)}
	}
	return left
}

func (p *parser) parseEquality() ast.Expr {
	start := p.tok.Pos
	left := p.parseComparison()
	for {
		var op ast.BinOp
		switch p.tok.Kind {
		case token.EQ:
			op = ast.BEq
		case token.NEQ:
			op = ast.BNeq
		default:
			return left
		}
		p.advance()
		right := p.parseComparison()
		left = &ast.Binary{Op: op, Left: left, Right: right, Sp: p.span(start)}
	}
}

func (p *parser) parseComparison() ast.Expr {
	start := p.tok.Pos
	left := p.parseAdditive()
	for {
		var op ast.BinOp
		switch p.tok.Kind {
		case token.LT:
			op = ast.BLt
		case token.LE:
			op = ast.BLe
		case token.GT:
			op = ast.BGt
		case token.GE:
			op = ast.BGe
		default:
			return left
		}
		p.advance()
		right := p.parseAdditive()
		left = &ast.Binary{Op: op, Left: left, Right: right, Sp: p.span(start)}
	}
}

func (p *parser) parseAdditive() ast.Expr {
	start := p.tok.Pos
	left := p.parseMultiplicative()
	for {
		var op ast.BinOp
		switch p.tok.Kind {
		case token.PLUS:
			op = ast.BAdd
		case token.MINUS:
			op = ast.BSub
		default:
			return left
		}
		p.advance()
		right := p.parseMultiplicative()
		left = &ast.Binary{Op: op, Left: left, Right: right, Sp: p.span(start)}
	}
}

func (p *parser) parseMultiplicative() ast.Expr {
	start := p.tok.Pos
	left := p.parseUnary()
	for {
		var op ast.BinOp
		switch p.tok.Kind {
		case token.STAR:
			op = ast.BMul
		case token.SLASH:
			op = ast.BDiv
		case token.PERCENT:
			op = ast.BMod
		default:
			return left
		}
		p.advance()
		right := p.parseUnary()
		left = &ast.Binary{Op: op, Left: left, Right: right, Sp: p.span(start)}
	}
}

func (p *parser) parseUnary() ast.Expr {
	start := p.tok.Pos
	switch p.tok.Kind {
	case token.BANG:
		p.advance()
		return &ast.Unary{Op: ast.UNot, Right: p.parseUnary(), Sp: p.span(start)}
	case token.MINUS:
		p.advance()
		return &ast.Unary{Op: ast.UNeg, Right: p.parseUnary(), Sp: p.span(start)}
	default:
		return p.parseCall()
	}
}

func (p *parser) parseCall() ast.Expr {
	start := p.tok.Pos
	e := p.parsePrimary()
	for {
		switch p.tok.Kind {
		case token.LPAREN:
			p.advance()
			var args []ast.Expr
			for !p.at(token.RPAREN) {
				args = append(args, p.parseExpr())
				if !p.accept(token.COMMA) {
					break
				}
			}
			p.expect(token.RPAREN)
			e = &ast.Call{Callee: e, Args: args, Sp: p.span(start)}
		case token.DOT:
			p.advance()
			name := p.tok.Lit
			p.expect(token.IDENT)
			e = &ast.GetProp{Target: e, Name: name, Sp: p.span(start)}
		default:
			return e
		}
	}
}

func (p *parser) parsePrimary() ast.Expr {
	start := p.tok.Pos
	switch p.tok.Kind {
	case token.NUMBER:
		lit := p.tok.Lit
		p.advance()
		v, _ := strconv.ParseFloat(lit, 64)
		return &ast.NumberLit{Value: v, Sp: p.span(start)}

	case token.STRING:
		lit := p.tok.Lit
		p.advance()
		return &ast.StringLit{Value: lit, Sp: p.span(start)}

	case token.TRUE:
		p.advance()
		return &ast.BoolLit{Value: true, Sp: p.span(start)}

	case token.FALSE:
		p.advance()
		return &ast.BoolLit{Value: false, Sp: p.span(start)}

	case token.NULL:
		p.advance()
		return &ast.NullLit{Sp: p.span(start)}

	case token.THIS:
		p.advance()
		return &ast.Ident{Name: "this", Sp: p.span(start)}

	case token.IDENT:
		return p.parseIdent()

	case token.LPAREN:
		p.advance()
		e := p.parseExpr()
		p.expect(token.RPAREN)
		return e

	case token.LBRACE:
		return p.parseBlock()

	case token.IF:
		return p.parseIf()

	case token.FN:
		return p.parseFuncLit(false)

	default:
		p.errs.Add(p.tok.Pos, "unexpected token %s", p.tok.Kind.GoString())
		p.advance()
		return &ast.NullLit{Sp: p.span(start)}
	}
}

// parseIf parses `if (cond) { ... } else { ... }`, with an `else if` chain
// represented as a nested *ast.If in the Else block's Tail position, per
// ast.If's own doc comment.
func (p *parser) parseIf() *ast.If {
	start := p.tok.Pos
	p.expect(token.IF)
	p.expect(token.LPAREN)
	cond := p.parseExpr()
	p.expect(token.RPAREN)
	then := p.parseBlock()
	var els *ast.Block
	if p.accept(token.ELSE) {
		if p.at(token.IF) {
			nested := p.parseIf()
			els = &ast.Block{Tail: nested, Sp: nested.Sp}
		} else {
			els = p.parseBlock()
		}
	}
	return &ast.If{Cond: cond, Then: then, Else: els, Sp: p.span(start)}
}
