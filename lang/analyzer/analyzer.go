// Package analyzer implements the semantic analysis pass run before
// lowering to bytecode: every identifier read must be declared and
// initialized, break/continue must occur inside a loop, return must occur
// inside a function, and a class must not inherit from itself or from a
// superclass that does not exist. All errors found are collected rather
// than stopping at the first.
//
// Much of this package's scope-stack design is adapted from
// github.com/mna/nenuphar's lang/resolver package (itself adapted from
// Starlark's resolver), generalized with a declare-then-initialize
// protocol to distinguish a self-referential declaration from legal
// shadowing.
package analyzer

import (
	"github.com/mna/aster/lang/ast"
)

// Result is the side table the analyzer produces: a resolution for every
// *ast.Ident node (both declaration names and uses). The AST itself is
// never mutated.
type Result struct {
	Idents map[*ast.Ident]*Binding
	// RootLocals is the high-water mark of simultaneously live local slots
	// the top-level chunk's frame reaches.
	RootLocals int
	// Funcs maps each function literal (including method bodies) to the
	// local/free-variable layout the compiler needs to emit its Chunk.
	Funcs map[*ast.FuncLit]*FuncInfo
	// Blocks maps each block expression to the count of local slots it
	// itself declares (not counting nested blocks), i.e. the operand the
	// compiler must emit with the Block opcode that closes it.
	Blocks map[*ast.Block]int
	// Ctors maps each class to the local-slot layout of its synthetic
	// field-initializer constructor.
	Ctors map[*ast.ClassStmt]*FuncInfo
	// NumGlobals is the number of top-level function/class declarations,
	// i.e. the length of the compiler's Program.Globals table.
	NumGlobals int
}

// FuncInfo is the per-function layout information the compiler consults
// when emitting a function's Chunk: the high-water mark of live local
// slots its frame reaches, and which enclosing bindings it captures as
// upvalues, in capture order.
type FuncInfo struct {
	NumLocals int
	FreeVars  []*Binding
}

// IsNative reports whether name is a registered native/predeclared function.
// The compiler and VM must agree on this set: a native's presence is a
// precondition of a successful analysis.
type IsNative func(name string) bool

// Analyze validates chunk and returns the resolution Result on success, or
// the full list of errors found. isNative reports whether a name is a
// registered native function, consulted only when a name does not resolve
// to any lexical or top-level binding.
func Analyze(chunk *ast.Chunk, isNative IsNative) (*Result, error) {
	if isNative == nil {
		isNative = func(string) bool { return false }
	}
	a := &analyzer{
		isNative: isNative,
		result: &Result{
			Idents: make(map[*ast.Ident]*Binding),
			Blocks: make(map[*ast.Block]int),
			Funcs:  make(map[*ast.FuncLit]*FuncInfo),
			Ctors:  make(map[*ast.ClassStmt]*FuncInfo),
		},
	}
	root := &function{node: chunk, isRealFunction: false}
	a.pushBlock(&block{fn: root})
	a.collectTopLevel(chunk.Stmts)
	for _, s := range chunk.Stmts {
		a.stmt(s)
	}
	a.popBlock()
	a.result.RootLocals = root.maxDepth
	a.result.NumGlobals = a.nextGlobal

	a.errs.Sort()
	if err := a.errs.Err(); err != nil {
		return nil, err
	}
	return a.result, nil
}

type analyzer struct {
	env      *block
	errs     ErrorList
	isNative IsNative
	result   *Result

	// pending holds the binding currently being declared (between the start
	// of a `let` declaration and the point its initializer finishes
	// visiting), so that a self-referential read can be distinguished from a
	// legal reference to a previous, already-initialized binding of the same
	// name. nil when no declaration is in progress.
	pending     *Binding
	pendingName string

	// nextGlobal assigns indices into the program's globals table to
	// top-level function/class declarations, in declaration order.
	nextGlobal int

	// classFields is the field name -> index map of the class enclosing the
	// method body currently being analyzed, or nil outside any method.
	classFields map[string]int
}

func (a *analyzer) pushBlock(b *block) {
	if b.bindings == nil {
		b.bindings = make(map[string]*Binding)
	}
	if b.fn == nil {
		b.fn = a.env.fn
	}
	b.depthAtEntry = b.fn.liveDepth
	b.parent = a.env
	a.env = b
}

// popBlock closes the current block, releasing the local slots it declared
// back to its function's live-depth counter so a later sibling block can
// reuse them -- locals live on the operand stack itself, and a closed
// block's slots are exactly the ones the Block opcode discards at runtime.
func (a *analyzer) popBlock() int {
	b := a.env
	declared := b.fn.liveDepth - b.depthAtEntry
	b.fn.liveDepth = b.depthAtEntry
	a.env = b.parent
	return declared
}

// collectTopLevel pre-declares every top-level function and class so that
// forward references between top-level declarations resolve (e.g. two
// mutually calling top-level functions).
func (a *analyzer) collectTopLevel(stmts []ast.Stmt) {
	for _, s := range stmts {
		switch s := s.(type) {
		case *ast.FuncStmt:
			a.declareGlobal(s.Name, s)
		case *ast.ClassStmt:
			a.declareGlobal(s.Name, s)
		}
	}
}

func (a *analyzer) declareGlobal(ident *ast.Ident, decl ast.Node) {
	if _, ok := a.env.bindings[ident.Name]; ok {
		a.errs.Add(ident.Sp, AlreadyDeclaredInBlock, "%s", ident.Name)
		return
	}
	bdg := &Binding{Scope: GlobalItem, Index: a.nextGlobal, Decl: decl}
	a.nextGlobal++
	a.env.bindings[ident.Name] = bdg
	a.result.Idents[ident] = bdg
}

func (a *analyzer) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.LetStmt:
		a.declare(s.Name, s, s.Value)

	case *ast.ExprStmt:
		a.expr(s.X)

	case *ast.WhileStmt:
		a.expr(s.Cond)
		a.env.fn.loopDepth++
		a.block(s.Body)
		a.env.fn.loopDepth--

	case *ast.BreakStmt:
		if a.env.fn.loopDepth == 0 {
			a.errs.Add(s.Sp, UsedOutsideLoop, "break")
		}
		if s.Value != nil {
			a.expr(s.Value)
		}

	case *ast.ContinueStmt:
		if a.env.fn.loopDepth == 0 {
			a.errs.Add(s.Sp, UsedOutsideLoop, "continue")
		}

	case *ast.ReturnStmt:
		if !a.env.fn.isRealFunction {
			a.errs.Add(s.Sp, ReturnUsedOutsideFunction, "return")
		}
		if s.Value != nil {
			a.expr(s.Value)
		}

	case *ast.FuncStmt:
		// already declared by collectTopLevel if at top level; nested function
		// statements declare here, initialized immediately so the function may
		// recurse.
		if _, ok := a.result.Idents[s.Name]; !ok {
			a.declareInitialized(s.Name, s)
		}
		a.function(s.Fn)

	case *ast.ClassStmt:
		if _, ok := a.result.Idents[s.Name]; !ok {
			// A nested (non-top-level) class is not pre-declared by
			// collectTopLevel; bind its name as an ordinary local so it is at
			// least reachable, though the compiler only supports class
			// compilation at the top level (see lang/compiler).
			a.declareInitialized(s.Name, s)
		}
		a.class(s)

	default:
		panic("analyzer: unexpected stmt")
	}
}

func (a *analyzer) expr(e ast.Expr) {
	switch e := e.(type) {
	case *ast.NumberLit, *ast.StringLit, *ast.BoolLit, *ast.NullLit:
		// leaves, nothing to resolve

	case *ast.Ident:
		a.use(e)

	case *ast.Unary:
		a.expr(e.Right)

	case *ast.Binary:
		a.expr(e.Left)
		a.expr(e.Right)

	case *ast.Assign:
		a.expr(e.Target)
		a.expr(e.Value)

	case *ast.Call:
		for _, arg := range e.Args {
			a.expr(arg)
		}
		a.expr(e.Callee)

	case *ast.GetProp:
		a.expr(e.Target)

	case *ast.FuncLit:
		a.function(e)

	case *ast.Block:
		a.block(e)

	case *ast.If:
		a.expr(e.Cond)
		a.expr(e.Then)
		if e.Else != nil {
			a.expr(e.Else)
		}

	default:
		panic("analyzer: unexpected expr")
	}
}

// block analyzes one brace-delimited scope -- a while body, an `if`
// branch, or a standalone block expression -- and records how many local
// slots it declared so the compiler can size its Block opcode.
func (a *analyzer) block(b *ast.Block) {
	a.pushBlock(&block{})
	for _, s := range b.Stmts {
		a.stmt(s)
	}
	if b.Tail != nil {
		a.expr(b.Tail)
	}
	a.result.Blocks[b] = a.popBlock()
}

// declare implements the two-phase declare-then-initialize protocol: it
// resolves value in the enclosing scope (so a reference to an existing
// binding of the same name, i.e. shadowing, still finds it), and only if
// that resolution fails entirely and the unresolved name matches the one
// being declared does it report UsedBeforeInitialization instead of
// NotDefined. The new binding is only inserted (shadowing any previous one)
// after value has been fully visited.
func (a *analyzer) declare(ident *ast.Ident, decl ast.Node, value ast.Expr) {
	outerPending, outerPendingName := a.pending, a.pendingName
	bdg := &Binding{Scope: Local, Decl: decl}
	a.pending, a.pendingName = bdg, ident.Name

	a.expr(value)

	a.pending, a.pendingName = outerPending, outerPendingName
	a.insertLocal(ident, bdg)
}

func (a *analyzer) declareInitialized(ident *ast.Ident, decl ast.Node) {
	bdg := &Binding{Scope: Local, Decl: decl}
	a.insertLocal(ident, bdg)
}

// insertLocal assigns bdg the current live-local depth as its slot index,
// matching the runtime representation where locals live directly on the
// operand stack at stack_base+index.
func (a *analyzer) insertLocal(ident *ast.Ident, bdg *Binding) {
	fn := a.env.fn
	bdg.Index = fn.liveDepth
	fn.liveDepth++
	if fn.liveDepth > fn.maxDepth {
		fn.maxDepth = fn.liveDepth
	}
	a.env.bindings[ident.Name] = bdg
	a.result.Idents[ident] = bdg
}

// bindParam declares a function parameter: always initialized, no
// self-reference is possible.
func (a *analyzer) bindParam(ident *ast.Ident) {
	a.insertLocal(ident, &Binding{Scope: Local, Decl: ident})
}

func (a *analyzer) use(ident *ast.Ident) {
	startFn := a.env.fn
	for env := a.env; env != nil; env = env.parent {
		if bdg, ok := env.bindings[ident.Name]; ok {
			// Only Local/Cell bindings live in a real stack frame and need
			// threading through upvalue descriptors to cross a function
			// boundary; GlobalItem, Native and Field bindings are addressed the
			// same way regardless of lexical nesting depth.
			if env.fn != startFn && (bdg.Scope == Local || bdg.Scope == Cell) {
				bdg = a.captureAcross(startFn, env.fn, ident.Name, bdg)
			}
			a.result.Idents[ident] = bdg
			return
		}
	}

	if a.classFields != nil {
		if idx, ok := a.classFields[ident.Name]; ok {
			a.result.Idents[ident] = &Binding{Scope: Field, Index: idx, Decl: ident}
			return
		}
	}

	if a.pending != nil && ident.Name == a.pendingName {
		a.errs.Add(ident.Sp, UsedBeforeInitialization, "%s", ident.Name)
		a.result.Idents[ident] = &Binding{Scope: Undefined}
		return
	}

	if a.isNative(ident.Name) {
		a.result.Idents[ident] = &Binding{Scope: Native, Decl: ident}
		return
	}

	a.errs.Add(ident.Sp, NotDefined, "%s", ident.Name)
	a.result.Idents[ident] = &Binding{Scope: Undefined}
}

// captureAcross threads a binding found in an outer function down through
// every intermediate function boundary between owner and user, turning the
// owner's Local into a Cell and adding one Free descriptor per boundary
// crossed, memoized per function so repeated references to the same name
// share a single upvalue slot.
func (a *analyzer) captureAcross(user, owner *function, name string, bdg *Binding) *Binding {
	if bdg.Scope == Local {
		bdg.Scope = Cell
	}

	// Walk the function chain from user up to (but not including) owner,
	// building/memoizing a Free binding at each level.
	var chain []*function
	for f := user; f != owner; f = f.parent {
		chain = append(chain, f)
	}
	// process from the outermost (closest to owner) inward, so each level's
	// Free binding captures the correct immediately-enclosing descriptor.
	cur := bdg
	for i := len(chain) - 1; i >= 0; i-- {
		f := chain[i]
		if f.freeVarsByName == nil {
			f.freeVarsByName = make(map[string]*Binding)
		}
		if existing, ok := f.freeVarsByName[name]; ok {
			cur = existing
			continue
		}
		free := &Binding{Scope: Free, Index: len(f.freeVars), Decl: cur.Decl}
		f.freeVars = append(f.freeVars, cur)
		f.freeVarsByName[name] = free
		cur = free
	}
	return cur
}

func (a *analyzer) function(fn *ast.FuncLit) {
	f := &function{parent: a.env.fn, node: fn, isRealFunction: true}
	a.pushBlock(&block{fn: f})
	for _, p := range fn.Sig.Params {
		a.bindParam(p)
	}
	// Bare-name field access only falls back for identifiers used directly
	// in a method's own body; a closure nested inside a method must spell
	// out `this.field` so the compiler can rely on `this` always sitting at
	// local slot 0 of the method currently compiling a Field reference.
	outerFields := a.classFields
	a.classFields = nil
	a.funcBody(fn.Body, fn.ArrowBody)
	a.classFields = outerFields
	a.popBlock()
	a.funcLocals(fn, f)
}

// funcBody analyzes a function's body, which is either a block (body's
// statements analyzed directly, without the block's own Block-opcode
// bookkeeping -- the enclosing Return unwinds the whole frame regardless)
// or a single arrow expression.
func (a *analyzer) funcBody(body *ast.Block, arrow ast.Expr) {
	if body != nil {
		for _, s := range body.Stmts {
			a.stmt(s)
		}
		if body.Tail != nil {
			a.expr(body.Tail)
		}
		return
	}
	a.expr(arrow)
}

// funcLocals records the per-function local/freevar layout in
// Result.Funcs, a side table keyed by the *ast.FuncLit node, where the
// compiler reads it.
func (a *analyzer) funcLocals(fn *ast.FuncLit, f *function) {
	a.result.Funcs[fn] = &FuncInfo{NumLocals: f.maxDepth, FreeVars: f.freeVars}
}

// class analyzes a class declaration. Field initializers compile into a
// dedicated constructor-like function scope, in declaration order, as
// ordinary locals -- so an initializer may reference an earlier sibling
// field by bare name exactly as a block would. Method bodies, by
// contrast, see field names through a.classFields: a name that doesn't
// resolve lexically within the method's own function chain but matches a
// field of its enclosing class resolves to a Field binding, compiled as
// an implicit `this.name` property read (see lang/compiler). Methods
// themselves need no binding at all: they are invoked only through
// property access (`obj.method()`), never by bare name.
func (a *analyzer) class(s *ast.ClassStmt) {
	if s.Superclass != nil {
		if s.Superclass.Name == s.Name.Name {
			a.errs.Add(s.Sp, CantInheritFromItself, "%s", s.Name.Name)
		} else {
			found := false
			for env := a.env; env != nil; env = env.parent {
				if bdg, ok := env.bindings[s.Superclass.Name]; ok {
					a.result.Idents[s.Superclass] = bdg
					found = true
					break
				}
			}
			if !found {
				a.errs.Add(s.Sp, SuperclassDoesntExist, "%s", s.Superclass.Name)
			}
		}
	}

	ctor := &function{parent: a.env.fn, node: s}
	a.pushBlock(&block{fn: ctor, isClass: true})
	seen := make(map[string]bool, len(s.Fields))
	for _, field := range s.Fields {
		if seen[field.Name.Name] {
			a.errs.Add(field.Name.Sp, AlreadyDeclaredInBlock, "%s", field.Name.Name)
		}
		seen[field.Name.Name] = true
		a.declare(field.Name, field, field.Value)
	}
	a.popBlock()
	a.result.Ctors[s] = &FuncInfo{NumLocals: ctor.maxDepth}

	fieldIndex := make(map[string]int, len(s.Fields))
	for i, field := range s.Fields {
		fieldIndex[field.Name.Name] = i
	}
	outerFields := a.classFields
	a.classFields = fieldIndex
	for _, m := range s.Methods {
		a.method(m)
	}
	a.classFields = outerFields
}

// method analyzes a method body with an implicit `this` bound to local slot
// 0, matching the convention that a closure's receiver occupies slot 0 for
// method calls.
func (a *analyzer) method(m *ast.FuncStmt) {
	f := &function{parent: a.env.fn, node: m.Fn, isRealFunction: true}
	a.pushBlock(&block{fn: f})
	a.bindParam(&ast.Ident{Name: "this", Sp: m.Sp})
	for _, p := range m.Fn.Sig.Params {
		a.bindParam(p)
	}
	a.funcBody(m.Fn.Body, m.Fn.ArrowBody)
	a.popBlock()
	a.funcLocals(m.Fn, f)
}
