package analyzer

import "github.com/mna/aster/lang/ast"

// Scope classifies what an identifier resolves to.
type Scope uint8

const (
	Undefined  Scope = iota // name did not resolve; an error was reported
	Local                   // local to the function currently being analyzed
	Cell                    // local that is shared with at least one nested function (captured by reference)
	Free                    // capture of an enclosing function's cell (an upvalue)
	GlobalItem              // a top-level function or class, addressed by its index in the program's globals table
	Native                  // a name registered with the analyzer as a native/predeclared function
	Field                   // a class field, addressed by its index in the class's property list
)

var scopeNames = [...]string{
	Undefined: "undefined", Local: "local", Cell: "cell", Free: "free",
	GlobalItem: "global", Native: "native", Field: "field",
}

func (s Scope) String() string {
	if int(s) < len(scopeNames) {
		return scopeNames[s]
	}
	return "invalid"
}

// Binding is the resolution recorded for one declared name. The same
// Binding is shared by every Ident node that refers to it.
type Binding struct {
	Scope Scope

	// Index is:
	//   - the slot within the owning function's Locals, if Scope is Local or Cell
	//   - the slot within the referencing function's FreeVars, if Scope is Free
	//   - the index into the program's globals table, if Scope is GlobalItem
	// It is meaningless for Native and Undefined.
	Index int

	// Decl is the node that declared this binding (an *ast.LetStmt,
	// *ast.FuncStmt, *ast.ClassStmt, or a parameter *ast.Ident).
	Decl ast.Node
}

// function tracks the live-local depth and free-variable descriptors being
// built for one function (or the top-level chunk, which owns the root
// frame's locals but can never be returned from). Locals live directly on
// the operand stack at stack_base+index, so liveDepth is both "the next
// free slot index" and "how many locals are currently live"; it rises on
// every declaration and falls back down when a block closes, allowing
// sibling blocks to reuse the same slot indices. maxDepth records the
// high-water mark, reported to the compiler as the frame's local count.
type function struct {
	parent         *function
	node           ast.Node // *ast.Chunk, *ast.FuncLit, or *ast.ClassStmt for a class's constructor
	isRealFunction bool     // false only for the implicit top-level chunk function
	liveDepth      int
	maxDepth       int
	freeVars       []*Binding
	freeVarsByName map[string]*Binding // memoizes upvalue descriptors per enclosing name, computed lazily on first reference
	loopDepth      int
}

// block is one lexical scope within a function: a stack frame of name ->
// Binding, chained to its parent for outward lookup. depthAtEntry is the
// function's liveDepth when the block was entered, restored on exit.
type block struct {
	parent       *block
	fn           *function
	isClass      bool
	bindings     map[string]*Binding
	depthAtEntry int
}
