// Generate lowers a validated AST into a Program. The design here departs
// from a Starlark-style compiler (which linearizes a CFG of pseudo-assembly
// blocks) in one respect: because lang/bytecode models an instruction as a
// plain {Opcode, operand} struct rather than a byte-varint stream, there is
// no need for a two-pass block-linearization/address-fixup stage -- straight
// linear emission with saved patch indices is sufficient. The structural
// idea -- a per-function compiler state, an explicit loop stack for
// break/continue, jump-patch handles -- is grounded directly on
// mna-nenuphar/lang/compiler/compiler.go.
package compiler

import (
	"fmt"

	"github.com/mna/aster/lang/analyzer"
	"github.com/mna/aster/lang/ast"
	"github.com/mna/aster/lang/bytecode"
	"github.com/mna/aster/lang/symbol"
	"github.com/mna/aster/lang/token"
)

// Generate lowers chunk into a Program using the bindings recorded by a
// prior successful analyzer.Analyze call against the same chunk. Generate
// is total on valid input: the analyzer is its gate, and
// any internal inconsistency discovered here (an unresolved binding, a
// node kind the analyzer never produces) is a bug in this package or the
// analyzer, never bad user input -- such cases panic rather than
// returning an error.
func Generate(chunk *ast.Chunk, result *analyzer.Result, symbols *symbol.Table) *Program {
	g := &generator{result: result, symbols: symbols, globals: make([]GlobalItem, result.NumGlobals)}

	root := &fgen{g: g, chunk: &bytecode.Chunk{}}
	root.topLevel(chunk.Stmts)

	return &Program{
		RootChunk:  root.chunk,
		Globals:    g.globals,
		Functions:  g.functions,
		Symbols:    symbols,
		RootLocals: result.RootLocals,
	}
}

// generator holds the state shared across every fgen compiling one
// Program: the globals table, indexed by the analyzer's GlobalItem.Index,
// and the flat table of non-global function templates addressed by
// FuncRef.
type generator struct {
	result    *analyzer.Result
	symbols   *symbol.Table
	globals   []GlobalItem
	functions []*Function
}

// fgen holds the state for compiling a single Chunk -- either the program
// root or one Function's body: its instruction stream, the live-local
// depth (mirroring analyzer.function.liveDepth so break/continue can size
// their own discards), the currently open loops, and the span of the AST
// node currently being lowered (used to tag every emitted instruction for
// runtime error reporting).
type fgen struct {
	g       *generator
	chunk   *bytecode.Chunk
	depth   int
	loops   []*loopCtx
	curSpan token.Span
}

// loopCtx tracks one open while loop: the chunk address its condition
// re-checks at (continue's target) and the live-local depth at the point
// its body began (so break/continue can discard exactly the locals the
// loop body itself introduced), plus the patch handles of every Break
// emitted in the body, resolved once the loop's exit address is known.
type loopCtx struct {
	start          int
	bodyEntryDepth int
	breaks         []int
}

func (f *fgen) emit(op bytecode.Opcode, operand int32) int {
	return f.chunk.Emit(f.curSpan, op, operand)
}

func (f *fgen) emitConst(k bytecode.Constant) {
	idx := f.chunk.AddConstant(k)
	f.emit(bytecode.Constant, int32(idx))
}

func (f *fgen) emitAddr(addr bytecode.MemoryAddress) {
	f.emitConst(bytecode.Addr{Address: addr})
}

// patchTo backfills the jump instruction at ix so that, applied as a
// signed offset relative to the instruction immediately following the
// jump, it lands on target.
func (f *fgen) patchTo(ix, target int) {
	f.chunk.PatchOperand(ix, int32(target-ix-1))
}

func (f *fgen) patchHere(ix int) {
	f.patchTo(ix, f.chunk.Here())
}

func (f *fgen) emitJumpTo(op bytecode.Opcode, target int) {
	ix := f.emit(op, 0)
	f.patchTo(ix, target)
}

// topLevel compiles the root chunk's statements. Unlike a function body
// (which has an explicit Tail expression courtesy of *ast.Block), a
// top-level Chunk is a bare statement list, so the program's result value
// is defined as: the final statement's expression, if it is an
// *ast.ExprStmt (its value is left on the stack instead of discarded);
// Null otherwise (matching the fallthrough convention §4.2 specifies for
// function bodies).
func (f *fgen) topLevel(stmts []ast.Stmt) {
	last := len(stmts) - 1
	for i, s := range stmts {
		f.curSpan = s.Span()
		if i == last {
			if es, ok := s.(*ast.ExprStmt); ok {
				f.expr(es.X)
				continue
			}
			f.stmt(s)
			f.emit(bytecode.Null, 0)
			continue
		}
		f.stmt(s)
	}
	if last < 0 {
		f.emit(bytecode.Null, 0)
	}
	f.emit(bytecode.Return, 0)
}

func (f *fgen) stmt(s ast.Stmt) {
	f.curSpan = s.Span()
	switch s := s.(type) {
	case *ast.LetStmt:
		f.expr(s.Value)
		f.depth++

	case *ast.ExprStmt:
		f.expr(s.X)
		f.emit(bytecode.Pop, 0)

	case *ast.WhileStmt:
		// WhileStmt is a statement-only construct (see ast.WhileStmt's
		// stmtNode), so its own fallthrough/break value -- needed only so the
		// internal compilation of a loop has a well-defined expression value
		// to converge on -- is discarded here exactly like ExprStmt's.
		f.whileStmt(s)
		f.emit(bytecode.Pop, 0)

	case *ast.BreakStmt:
		f.breakStmt(s)

	case *ast.ContinueStmt:
		f.continueStmt(s)

	case *ast.ReturnStmt:
		if s.Value != nil {
			f.expr(s.Value)
		} else {
			f.emit(bytecode.Null, 0)
		}
		f.emit(bytecode.Return, 0)

	case *ast.FuncStmt:
		f.funcStmt(s)

	case *ast.ClassStmt:
		f.classStmt(s)

	default:
		panic(fmt.Sprintf("compiler: unexpected stmt %T", s))
	}
}

func (f *fgen) expr(e ast.Expr) {
	f.curSpan = e.Span()
	switch e := e.(type) {
	case *ast.NumberLit:
		f.emitConst(bytecode.Number(e.Value))

	case *ast.StringLit:
		f.emitConst(bytecode.Sym(f.g.symbols.Intern(e.Value)))

	case *ast.BoolLit:
		if e.Value {
			f.emit(bytecode.True, 0)
		} else {
			f.emit(bytecode.False, 0)
		}

	case *ast.NullLit:
		f.emit(bytecode.Null, 0)

	case *ast.Ident:
		f.loadIdent(e)

	case *ast.Unary:
		f.expr(e.Right)
		if e.Op == ast.UNot {
			f.emit(bytecode.Not, 0)
		} else {
			f.emit(bytecode.Negate, 0)
		}

	case *ast.Binary:
		f.expr(e.Left)
		f.expr(e.Right)
		f.emit(binOpcode(e.Op), 0)

	case *ast.Assign:
		f.assign(e)

	case *ast.Call:
		for _, a := range e.Args {
			f.expr(a)
		}
		f.expr(e.Callee)
		// Call's Operand carries the call site's own pushed argument count,
		// unlike a bare no-payload encoding: the callee's own declared
		// arity is only known once it is resolved at runtime, so the VM
		// needs the call site's argc to both collect a native's argument
		// slice and to detect a wrong-arity call to a closure or method
		// before popping a number of stack slots the call site never
		// actually pushed.
		f.emit(bytecode.Call, int32(len(e.Args)))

	case *ast.GetProp:
		f.expr(e.Target)
		f.emitConst(bytecode.Sym(f.g.symbols.Intern(e.Name)))
		f.emit(bytecode.GetProperty, 1)

	case *ast.FuncLit:
		f.closureExpr(e)

	case *ast.Block:
		f.blockExpr(e)

	case *ast.If:
		f.ifExpr(e)

	default:
		panic(fmt.Sprintf("compiler: unexpected expr %T", e))
	}
}

func binOpcode(op ast.BinOp) bytecode.Opcode {
	switch op {
	case ast.BAdd:
		return bytecode.Add
	case ast.BSub:
		return bytecode.Sub
	case ast.BMul:
		return bytecode.Mul
	case ast.BDiv:
		return bytecode.Div
	case ast.BMod:
		return bytecode.Mod
	case ast.BEq:
		return bytecode.Eq
	case ast.BNeq:
		return bytecode.Neq
	case ast.BLt:
		return bytecode.Lt
	case ast.BLe:
		return bytecode.Le
	case ast.BGt:
		return bytecode.Gt
	case ast.BGe:
		return bytecode.Ge
	default:
		panic(fmt.Sprintf("compiler: unexpected binop %v", op))
	}
}

// loadIdent emits the code to push the current value of an identifier
// use, dispatching on the analyzer's resolution for it.
func (f *fgen) loadIdent(id *ast.Ident) {
	bdg := f.g.result.Idents[id]
	switch bdg.Scope {
	case analyzer.Local, analyzer.Cell:
		f.emitAddr(bytecode.Local(bdg.Index))
		f.emit(bytecode.Get, 0)

	case analyzer.Free:
		f.emitAddr(bytecode.Upvalue{Index: bdg.Index, IsRef: true})
		f.emit(bytecode.Get, 0)

	case analyzer.GlobalItem:
		f.emitConst(bytecode.GlobalPtr(bdg.Index))
		f.emit(bytecode.Get, 0)

	case analyzer.Native:
		f.emitAddr(bytecode.Global(f.g.symbols.Intern(id.Name)))
		f.emit(bytecode.Get, 0)

	case analyzer.Field:
		f.loadThis()
		f.emitConst(bytecode.Sym(f.g.symbols.Intern(id.Name)))
		f.emit(bytecode.GetProperty, 1)

	default:
		panic(fmt.Sprintf("compiler: identifier %q did not resolve", id.Name))
	}
}

// loadThis pushes the implicit receiver, always local slot 0 of a method
// frame.
func (f *fgen) loadThis() {
	f.emitAddr(bytecode.Local(0))
	f.emit(bytecode.Get, 0)
}

func (f *fgen) assign(e *ast.Assign) {
	f.curSpan = e.Span()
	switch t := e.Target.(type) {
	case *ast.Ident:
		f.assignIdent(t, e.Value)
	case *ast.GetProp:
		f.assignProp(t, e.Value)
	default:
		panic(fmt.Sprintf("compiler: invalid assignment target %T", t))
	}
}

// assignIdent compiles `name = value`. The target is evaluated (here: its
// address is resolved) before the value.
func (f *fgen) assignIdent(id *ast.Ident, value ast.Expr) {
	bdg := f.g.result.Idents[id]
	switch bdg.Scope {
	case analyzer.Local, analyzer.Cell:
		f.emitAddr(bytecode.Local(bdg.Index))
	case analyzer.Free:
		f.emitAddr(bytecode.Upvalue{Index: bdg.Index, IsRef: true})
	case analyzer.GlobalItem:
		f.emitConst(bytecode.GlobalPtr(bdg.Index))
	case analyzer.Native:
		f.emitAddr(bytecode.Global(f.g.symbols.Intern(id.Name)))
	case analyzer.Field:
		f.loadThis()
		f.emitConst(bytecode.Sym(f.g.symbols.Intern(id.Name)))
		f.expr(value)
		f.emit(bytecode.SetProperty, 0)
		return
	default:
		panic(fmt.Sprintf("compiler: invalid assignment to %q", id.Name))
	}
	f.expr(value)
	f.emit(bytecode.Asg, 0)
}

func (f *fgen) assignProp(gp *ast.GetProp, value ast.Expr) {
	f.expr(gp.Target)
	f.emitConst(bytecode.Sym(f.g.symbols.Intern(gp.Name)))
	f.expr(value)
	f.emit(bytecode.SetProperty, 0)
}

// blockExpr compiles a brace-delimited block expression: child statements,
// then the tail expression (or Null), then Block(n), where n is exactly
// the number of locals the
// block itself declared -- tracked independently here via the depth
// delta across the block's own statements and cross-checked against the
// analyzer's own count for the same block, which must agree.
func (f *fgen) blockExpr(b *ast.Block) {
	entry := f.depth
	for _, s := range b.Stmts {
		f.stmt(s)
	}
	if b.Tail != nil {
		f.expr(b.Tail)
	} else {
		f.emit(bytecode.Null, 0)
	}
	n := f.depth - entry
	if want := f.g.result.Blocks[b]; want != n {
		panic(fmt.Sprintf("compiler: block declared %d locals, analyzer recorded %d", n, want))
	}
	f.emit(bytecode.Block, int32(n))
	f.depth = entry
}

// ifExpr compiles a conditional expression: condition, a conditional jump
// to the else branch, the then branch, an unconditional jump past the else
// branch, then the else branch (or Null).
func (f *fgen) ifExpr(n *ast.If) {
	f.expr(n.Cond)
	elseJump := f.emit(bytecode.Jif, 0)
	f.expr(n.Then)
	endJump := f.emit(bytecode.Jp, 0)
	f.patchHere(elseJump)
	if n.Else != nil {
		f.expr(n.Else)
	} else {
		f.emit(bytecode.Null, 0)
	}
	f.patchHere(endJump)
}

// whileStmt compiles a loop: condition, a conditional jump out, the body,
// a backward jump to the condition, implementing break-with-a-value so
// that a pending Break's value and a falling-through loop's Null converge
// at the same post-loop program point with exactly one value on the
// stack, by patching all Breaks to the address just after that Null
// rather than to the Jif's own false-branch target.
func (f *fgen) whileStmt(s *ast.WhileStmt) {
	lc := &loopCtx{start: f.chunk.Here(), bodyEntryDepth: f.depth}
	f.loops = append(f.loops, lc)

	f.expr(s.Cond)
	endJump := f.emit(bytecode.Jif, 0)
	f.expr(s.Body)
	f.emit(bytecode.Pop, 0)
	f.emitJumpTo(bytecode.Jp, lc.start)
	f.patchHere(endJump)
	f.emit(bytecode.Null, 0)
	exit := f.chunk.Here()
	for _, b := range lc.breaks {
		f.patchTo(b, exit)
	}

	f.loops = f.loops[:len(f.loops)-1]
}

// breakStmt compiles `break` / `break <expr>;`: its value (or Null), a
// discard of any locals the enclosing loop body declared between its
// start and this break site, then an unpatched Break left for whileStmt
// to resolve once the loop's exit address is known.
func (f *fgen) breakStmt(s *ast.BreakStmt) {
	if s.Value != nil {
		f.expr(s.Value)
	} else {
		f.emit(bytecode.Null, 0)
	}
	lc := f.loops[len(f.loops)-1]
	if n := f.depth - lc.bodyEntryDepth; n > 0 {
		f.emit(bytecode.Block, int32(n))
	}
	ix := f.emit(bytecode.Break, 0)
	lc.breaks = append(lc.breaks, ix)
}

// continueStmt compiles `continue;`: discards any locals declared since
// the loop body started (continue carries no value, so these are plain
// pops rather than a value-preserving Block), then jumps back to the
// loop's condition.
func (f *fgen) continueStmt(s *ast.ContinueStmt) {
	lc := f.loops[len(f.loops)-1]
	for n := f.depth - lc.bodyEntryDepth; n > 0; n-- {
		f.emit(bytecode.Pop, 0)
	}
	f.emitJumpTo(bytecode.Jp, lc.start)
}

// funcStmt compiles a function declaration. At the top level this only
// populates the program's globals table -- a top-level
// function's closure is built once, with no upvalues, when the VM starts,
// not by code inline in the root chunk. A non-top-level function
// statement instead compiles exactly like any other closure-producing
// expression, whose result becomes the newly declared local's value (see
// stmt's LetStmt case for the same "the pushed value is the local"
// convention).
func (f *fgen) funcStmt(s *ast.FuncStmt) {
	bdg := f.g.result.Idents[s.Name]
	if bdg.Scope == analyzer.GlobalItem {
		f.g.globals[bdg.Index] = f.g.buildFunction(s.Fn, s.Name.Name, false)
		return
	}

	// Unlike a LetStmt (where self-reference is rejected by the analyzer),
	// a nested FuncStmt's own name is already bound while its body is
	// analyzed, to support recursion: the slot must physically exist on the
	// stack -- holding a placeholder -- before the closure is built, since
	// the closure's own body may capture it (as a Cell) for a recursive
	// call. Asg, not a fresh push, fills the reserved slot once the closure
	// value is ready; Asg auto-dereferences through the Cell the capture may
	// have just boxed it into, so the sharing survives.
	f.emit(bytecode.Null, 0)
	f.depth++
	f.emitAddr(bytecode.Local(bdg.Index))
	f.expr(s.Fn)
	f.emit(bytecode.Asg, 0)
	f.emit(bytecode.Pop, 0)
}

// classStmt compiles a class declaration. Classes are top-level-only (see
// lang/analyzer's notes on class scoping), so -- like a top-level function
// -- this only populates the globals table.
func (f *fgen) classStmt(s *ast.ClassStmt) {
	bdg := f.g.result.Idents[s.Name]
	f.g.globals[bdg.Index] = f.g.buildClass(s)
}

// closureExpr compiles a function literal appearing as an expression (an
// anonymous FuncLit, or the Fn of a non-top-level FuncStmt): a FuncRef
// naming the compiled template, followed by one MemoryAddress constant per
// upvalue descriptor, followed by CreateClosure(N).
func (f *fgen) closureExpr(fn *ast.FuncLit) {
	built := f.g.buildFunction(fn, fn.Name, false)
	ref := bytecode.FuncRef(len(f.g.functions))
	f.g.functions = append(f.g.functions, built)

	f.emitConst(ref)

	info := f.g.result.Funcs[fn]
	for _, b := range info.FreeVars {
		f.emitAddr(freeVarAddress(b))
	}
	f.emit(bytecode.CreateClosure, int32(len(info.FreeVars)))
}

// freeVarAddress translates one of a function's free-variable bindings
// (always Cell or Free, per analyzer.captureAcross) into the MemoryAddress
// CreateClosure resolves it through: Cell means "a local of the
// immediately enclosing frame" (boxed into a heap Cell lazily, on first
// capture, by the VM -- see lang/vm), Free means "an existing upvalue
// (already a Cell) of the immediately enclosing closure," both captured by
// reference since this language's surface syntax has no by-value capture
// form (see compiler.UpvalueDesc's doc comment).
func freeVarAddress(b *analyzer.Binding) bytecode.MemoryAddress {
	switch b.Scope {
	case analyzer.Cell:
		return bytecode.Local(b.Index)
	case analyzer.Free:
		return bytecode.Upvalue{Index: b.Index, IsRef: true}
	default:
		panic(fmt.Sprintf("compiler: unexpected free-variable scope %v", b.Scope))
	}
}

// buildFunction compiles one function literal's body into a standalone
// Function (chunk + arity + upvalue descriptors), independent of where it
// ends up referenced from (FuncRef table or a global slot).
func (g *generator) buildFunction(fn *ast.FuncLit, name string, isMethod bool) *Function {
	info := g.result.Funcs[fn]
	arity := len(fn.Sig.Params)
	if isMethod {
		arity++
	}
	fg := &fgen{g: g, chunk: &bytecode.Chunk{}, depth: arity, curSpan: fn.Span()}
	if fn.Body != nil {
		fg.funcBody(fn.Body.Stmts, fn.Body.Tail)
	} else {
		fg.expr(fn.ArrowBody)
		fg.emit(bytecode.Return, 0)
	}
	return &Function{
		Name:     name,
		Arity:    arity,
		Chunk:    fg.chunk,
		Upvalues: upvalueDescs(info.FreeVars),
	}
}

// funcBody compiles a function's block body: statements, then Return of
// the tail expression (or Null), ensuring the last instruction is always
// Return. Unlike blockExpr, no Block(n) opcode closes
// this scope: Return already unwinds the whole frame, discarding every
// local regardless of how many are live (see lang/analyzer's funcBody
// doc comment).
func (f *fgen) funcBody(stmts []ast.Stmt, tail ast.Expr) {
	for _, s := range stmts {
		f.stmt(s)
	}
	if tail != nil {
		f.expr(tail)
	} else {
		f.emit(bytecode.Null, 0)
	}
	f.emit(bytecode.Return, 0)
}

func upvalueDescs(freeVars []*analyzer.Binding) []UpvalueDesc {
	out := make([]UpvalueDesc, len(freeVars))
	for i, b := range freeVars {
		switch b.Scope {
		case analyzer.Cell:
			out[i] = UpvalueDesc{IsLocal: true, Index: b.Index, IsRef: true}
		case analyzer.Free:
			out[i] = UpvalueDesc{IsLocal: false, Index: b.Index, IsRef: true}
		default:
			panic(fmt.Sprintf("compiler: unexpected free-variable scope %v", b.Scope))
		}
	}
	return out
}

// buildClass compiles a class declaration into a Class: a synthetic
// zero-argument constructor evaluating each field initializer in
// declaration order as an ordinary local (so later fields may reference
// earlier ones by bare name, matching lang/analyzer's class-scope
// handling), then assembling the resulting property set with
// CreateObject; and one compiled Function per method, via the same
// buildFunction used for any other function literal.
func (g *generator) buildClass(s *ast.ClassStmt) *Class {
	cg := &fgen{g: g, chunk: &bytecode.Chunk{}, curSpan: s.Span()}
	fieldSyms := make([]symbol.ID, len(s.Fields))
	for i, field := range s.Fields {
		cg.curSpan = field.Span()
		cg.expr(field.Value)
		fieldSyms[i] = g.symbols.Intern(field.Name.Name)
		cg.depth++
	}
	for i, sym := range fieldSyms {
		cg.emitAddr(bytecode.Local(i))
		cg.emit(bytecode.Get, 0)
		cg.emitConst(bytecode.Sym(sym))
	}
	cg.emit(bytecode.CreateObject, int32(len(s.Fields)))
	cg.emit(bytecode.Return, 0)

	fieldNames := make([]string, len(s.Fields))
	for i, fld := range s.Fields {
		fieldNames[i] = fld.Name.Name
	}

	methods := make([]*Function, len(s.Methods))
	for i, m := range s.Methods {
		methods[i] = g.buildFunction(m.Fn, m.Name.Name, true)
	}

	superIdx := -1
	if s.Superclass != nil {
		superIdx = g.result.Idents[s.Superclass].Index
	}

	return &Class{
		Name:   s.Name.Name,
		Fields: fieldNames,
		Ctor: &Function{
			Name:  s.Name.Name + ".ctor",
			Arity: 0,
			Chunk: cg.chunk,
		},
		Methods:    methods,
		Superclass: superIdx,
	}
}
