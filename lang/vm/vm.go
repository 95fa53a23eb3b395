package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/mna/aster/lang/bytecode"
	"github.com/mna/aster/lang/compiler"
	"github.com/mna/aster/lang/symbol"
)

// VM executes a compiler.Program: a single dispatch loop against an
// operand stack, a call-frame stack, a heap and a globals table. A VM is
// single-use: construct one with New per call to Run; it is never reused
// across independent executions.
type VM struct {
	// Stdout is where native functions like print write; New sets it to
	// os.Stdout.
	Stdout io.Writer

	// MaxSteps bounds the number of instructions dispatch executes before
	// returning a ResourceExhausted RuntimeError; zero means unbounded. Set
	// from internal/maincmd.Config to guard a CLI invocation against a
	// runaway or adversarial script.
	MaxSteps int
	// MaxCallDepth bounds the call-frame stack depth the same way; zero
	// means unbounded.
	MaxCallDepth int

	symbols *symbol.Table
	prog    *compiler.Program
	natives map[string]*NativeFunction

	operand []Value
	frames  []*frame
	heap    Heap
	globals []Value
	steps   int
}

// New constructs a VM ready to Run program. natives is consulted for every
// identifier the analyzer resolved as analyzer.Native; a nil map means the
// program declares no natives (Run will still succeed if none are
// referenced). Pass Universe for the default print/len registration
// surface.
func New(program *compiler.Program, natives map[string]*NativeFunction) *VM {
	if natives == nil {
		natives = map[string]*NativeFunction{}
	}
	m := &VM{
		Stdout:  os.Stdout,
		symbols: program.Symbols,
		prog:    program,
		natives: natives,
	}
	m.bindGlobals(program)
	return m
}

// bindGlobals resolves every top-level Function/Class into its runtime
// heap representation at startup. Classes are built in two passes so
// that a superclass declared later in the globals table (the analyzer
// places no ordering requirement on it) still resolves: the first pass
// allocates every class's runtime descriptor, the second links
// Superclass pointers using the GlobalItem indices the compiler already
// computed.
func (m *VM) bindGlobals(program *compiler.Program) {
	m.globals = make([]Value, len(program.Globals))
	classes := make([]*Class, len(program.Globals))
	superOf := make([]int, len(program.Globals))

	for i, g := range program.Globals {
		switch g := g.(type) {
		case *compiler.Function:
			ptr := m.heap.Alloc(&Closure{Fn: g})
			m.globals[i] = ptr

		case *compiler.Class:
			methods := make(map[string]HeapPointer, len(g.Methods))
			for _, fn := range g.Methods {
				methods[fn.Name] = m.heap.Alloc(&Closure{Fn: fn})
			}
			cls := &Class{
				Name:    g.Name,
				Fields:  g.Fields,
				Ctor:    &Closure{Fn: g.Ctor},
				Methods: methods,
			}
			classes[i] = cls
			superOf[i] = g.Superclass
			m.globals[i] = m.heap.Alloc(cls)

		default:
			panic(fmt.Sprintf("vm: unexpected global item %T", g))
		}
	}
	for i, cls := range classes {
		if cls != nil && superOf[i] >= 0 {
			cls.Superclass = classes[superOf[i]]
		}
	}
}

// RegisterNative adds or replaces one native function. Must be called
// before Run; the analyzer's IsNative predicate (consulted
// during analysis, long before a VM exists) is this package's separate,
// read-only view of the same name set -- see lang/vm.IsNative.
func (m *VM) RegisterNative(name string, fn func(args []Value, m *VM) (Value, error)) {
	m.natives[name] = &NativeFunction{Name: name, Fn: fn}
}

// Run executes program's root chunk to completion and returns its result
// value: the machine halts when the root frame executes Return, at which
// point the top-of-stack value (here, Return's own operand) is the program
// result.
func (m *VM) Run() (Value, error) {
	root := &frame{
		closure: &Closure{Fn: &compiler.Function{
			Name:  "<root>",
			Arity: 0,
			Chunk: m.prog.RootChunk,
		}},
	}
	m.frames = append(m.frames, root)
	return m.dispatch()
}

func (m *VM) curFrame() *frame { return m.frames[len(m.frames)-1] }

func (m *VM) push(v Value) { m.operand = append(m.operand, v) }

func (m *VM) pop() Value {
	n := len(m.operand) - 1
	v := m.operand[n]
	m.operand = m.operand[:n]
	return v
}

// dispatch is the single fetch-decode-execute loop: fetch
// chunk.opcodes[ip], advance ip, execute; jump opcodes apply their signed
// offset after that advance.
func (m *VM) dispatch() (Value, error) {
	for {
		if m.MaxSteps > 0 {
			m.steps++
			if m.steps > m.MaxSteps {
				return nil, m.errorf(ResourceExhausted, "exceeded %d instructions", m.MaxSteps)
			}
		}
		fr := m.curFrame()
		code := fr.chunk().Chunk.Code
		if fr.ip >= len(code) {
			// Fell off the end of a chunk without an explicit Return; only the
			// root chunk can do this (every compiled function ends in Return),
			// and only if topLevel emitted nothing -- treated as an implicit
			// Null result.
			return Null, nil
		}
		instr := code[fr.ip]
		fr.ip++

		var err error
		switch instr.Op {
		case bytecode.Constant:
			m.push(m.constantValue(fr.chunk().Chunk.Constants[instr.Operand]))

		case bytecode.True:
			m.push(Bool(true))
		case bytecode.False:
			m.push(Bool(false))
		case bytecode.Null:
			m.push(Null)

		case bytecode.Add:
			err = m.binaryAdd()
		case bytecode.Sub, bytecode.Mul, bytecode.Div, bytecode.Mod:
			err = m.binaryArith(instr.Op)

		case bytecode.Eq, bytecode.Neq:
			b := m.pop()
			a := m.pop()
			eq := valuesEqual(a, b)
			if instr.Op == bytecode.Neq {
				eq = !eq
			}
			m.push(Bool(eq))

		case bytecode.Lt, bytecode.Le, bytecode.Gt, bytecode.Ge:
			err = m.compare(instr.Op)

		case bytecode.Not:
			m.push(Bool(!Truth(m.pop())))

		case bytecode.Negate:
			v := m.pop()
			n, ok := v.(Number)
			if !ok {
				err = m.errorf(ExpectedNumber, "cannot negate %s", typeName(v))
				break
			}
			m.push(-n)

		case bytecode.Jif:
			cond := m.pop()
			if !Truth(cond) {
				fr.ip += int(instr.Operand)
			}

		case bytecode.Jp:
			fr.ip += int(instr.Operand)

		case bytecode.Pop:
			m.pop()

		case bytecode.Block:
			result := m.pop()
			n := int(instr.Operand)
			m.operand = m.operand[:len(m.operand)-n]
			m.push(result)

		case bytecode.Break:
			// Break is only ever reached after its forward patch has been
			// resolved by the compiler to the loop's exit address -- it behaves
			// exactly like Jp at runtime, the operand on top of stack is simply
			// the loop's result value traveling through unmodified.
			fr.ip += int(instr.Operand)

		case bytecode.Return:
			result, halt := m.doReturn()
			if halt {
				return result, nil
			}

		case bytecode.Call:
			err = m.call(int(instr.Operand))

		case bytecode.Get:
			var v Value
			v, err = m.get(m.pop())
			if err == nil {
				m.push(v)
			}

		case bytecode.Asg:
			val := m.pop()
			addr := m.pop()
			err = m.set(addr, val)
			if err == nil {
				m.push(val)
			}

		case bytecode.CreateClosure:
			err = m.createClosure(int(instr.Operand))

		case bytecode.CreateObject:
			err = m.createObject(int(instr.Operand))

		case bytecode.GetProperty:
			err = m.getProperty(instr.Operand != 0)

		case bytecode.SetProperty:
			err = m.setProperty()

		default:
			panic(fmt.Sprintf("vm: unimplemented opcode %s", instr.Op))
		}

		if err != nil {
			return nil, err
		}
	}
}

// constantValue converts a chunk's compile-time Constant into its runtime
// Value representation. Sym constants resolve through the read-only
// symbol table into the interned text, since every
// consumer of a Sym constant -- string literals and property-name keys
// alike -- wants a runtime String.
func (m *VM) constantValue(k bytecode.Constant) Value {
	switch k := k.(type) {
	case bytecode.Number:
		return Number(k)
	case bytecode.Sym:
		return String(m.symbols.Text(symbol.ID(k)))
	case bytecode.Bool:
		return Bool(k)
	case bytecode.Addr:
		return Address{Address: k.Address}
	case bytecode.GlobalPtr:
		return GlobalPointer(int(k))
	case bytecode.FuncRef:
		return funcTemplate{index: int(k)}
	default:
		panic(fmt.Sprintf("vm: unexpected constant kind %T", k))
	}
}

func (m *VM) binaryAdd() error {
	b := m.pop()
	a := m.pop()
	switch a := a.(type) {
	case Number:
		bn, ok := b.(Number)
		if !ok {
			return m.errorf(ExpectedNumber, "cannot add %s to a number", typeName(b))
		}
		m.push(a + bn)
		return nil
	case String:
		bs, ok := b.(String)
		if !ok {
			return m.errorf(ExpectedNumber, "cannot add %s to a string", typeName(b))
		}
		m.push(a + bs)
		return nil
	default:
		return m.errorf(ExpectedNumber, "cannot add values of type %s", typeName(a))
	}
}

func (m *VM) binaryArith(op bytecode.Opcode) error {
	b := m.pop()
	a := m.pop()
	an, ok := a.(Number)
	if !ok {
		return m.errorf(ExpectedNumber, "expected a number, got %s", typeName(a))
	}
	bn, ok := b.(Number)
	if !ok {
		return m.errorf(ExpectedNumber, "expected a number, got %s", typeName(b))
	}
	switch op {
	case bytecode.Sub:
		m.push(an - bn)
	case bytecode.Mul:
		m.push(an * bn)
	case bytecode.Div:
		if bn == 0 {
			return m.errorf(DivisionByZero, "division by zero")
		}
		m.push(an / bn)
	case bytecode.Mod:
		if bn == 0 {
			return m.errorf(DivisionByZero, "modulo by zero")
		}
		m.push(Number(numberMod(float64(an), float64(bn))))
	}
	return nil
}

// numberMod implements `%` as truncated (not floored) remainder, matching
// Go's own operator semantics for integers.
func numberMod(a, b float64) float64 {
	return a - b*float64(int64(a/b))
}

func (m *VM) compare(op bytecode.Opcode) error {
	b := m.pop()
	a := m.pop()
	an, ok := a.(Number)
	if !ok {
		return m.errorf(ExpectedNumber, "expected a number, got %s", typeName(a))
	}
	bn, ok := b.(Number)
	if !ok {
		return m.errorf(ExpectedNumber, "expected a number, got %s", typeName(b))
	}
	var result bool
	switch op {
	case bytecode.Lt:
		result = an < bn
	case bytecode.Le:
		result = an <= bn
	case bytecode.Gt:
		result = an > bn
	case bytecode.Ge:
		result = an >= bn
	}
	m.push(Bool(result))
	return nil
}

// valuesEqual implements Eq/Neq. HeapPointer equality (and thus closure
// and object equality) is reference equality of the stable heap index.
func valuesEqual(a, b Value) bool {
	switch a := a.(type) {
	case Number:
		bn, ok := b.(Number)
		return ok && a == bn
	case String:
		bs, ok := b.(String)
		return ok && a == bs
	case Bool:
		bb, ok := b.(Bool)
		return ok && a == bb
	case nullValue:
		_, ok := b.(nullValue)
		return ok
	case HeapPointer:
		bp, ok := b.(HeapPointer)
		return ok && a == bp
	case GlobalPointer:
		bp, ok := b.(GlobalPointer)
		return ok && a == bp
	default:
		return false
	}
}

// get resolves a value popped from an opcode's source operand -- either an
// Address (Local/Upvalue/Global(native)) or a GlobalPointer into the
// program's top-level globals table -- to its current value. Implements
// the Get opcode.
func (m *VM) get(v Value) (Value, error) {
	switch v := v.(type) {
	case Address:
		return m.resolveAddress(v.Address)
	case GlobalPointer:
		return m.globals[int(v)], nil
	default:
		return nil, m.errorf(ExpectedAddressValue, "cannot resolve a non-address value (%s)", typeName(v))
	}
}

func (m *VM) resolveAddress(addr bytecode.MemoryAddress) (Value, error) {
	switch a := addr.(type) {
	case bytecode.Local:
		slot := m.curFrame().stackBase + int(a)
		v := m.operand[slot]
		if c, ok := m.asCell(v); ok {
			return c.Value, nil
		}
		return v, nil

	case bytecode.Upvalue:
		return m.curFrame().closure.Upvalues[a.Index].Value, nil

	case bytecode.Global:
		name := m.symbols.Text(symbol.ID(a))
		if nf, ok := m.natives[name]; ok {
			return nf, nil
		}
		return nil, m.errorf(ExpectedCallable, "native %q is not registered", name)

	default:
		panic(fmt.Sprintf("vm: unexpected address kind %T", addr))
	}
}

// set writes a value through an address popped from the stack. Implements
// the Asg opcode.
func (m *VM) set(addrVal, val Value) error {
	switch a := addrVal.(type) {
	case Address:
		return m.setAddress(a.Address, val)
	case GlobalPointer:
		m.globals[int(a)] = val
		return nil
	default:
		return m.errorf(ExpectedAddressValue, "cannot assign through a non-address value (%s)", typeName(addrVal))
	}
}

func (m *VM) setAddress(addr bytecode.MemoryAddress, val Value) error {
	switch a := addr.(type) {
	case bytecode.Local:
		slot := m.curFrame().stackBase + int(a)
		if c, ok := m.asCell(m.operand[slot]); ok {
			c.Value = val
			return nil
		}
		m.operand[slot] = val
		return nil

	case bytecode.Upvalue:
		m.curFrame().closure.Upvalues[a.Index].Value = val
		return nil

	case bytecode.Global:
		return m.errorf(ExpectedCallable, "cannot assign to native %q", m.symbols.Text(symbol.ID(a)))

	default:
		panic(fmt.Sprintf("vm: unexpected address kind %T", addr))
	}
}

func (m *VM) asCell(v Value) (*Cell, bool) {
	hp, ok := v.(HeapPointer)
	if !ok {
		return nil, false
	}
	c, ok := m.heap.At(hp).(*Cell)
	return c, ok
}

func (m *VM) asObject(v Value) (*Object, bool) {
	hp, ok := v.(HeapPointer)
	if !ok {
		return nil, false
	}
	o, ok := m.heap.At(hp).(*Object)
	return o, ok
}

// cellFor boxes the local at slot into a heap Cell the first time it is
// captured, mutating the operand stack slot in place to hold the Cell's
// HeapPointer. A slot already boxed (shared by a sibling closure capturing
// the same local) is reused rather than re-boxed.
func (m *VM) cellFor(slot int) *Cell {
	if c, ok := m.asCell(m.operand[slot]); ok {
		return c
	}
	c := &Cell{Value: m.operand[slot]}
	m.operand[slot] = m.heap.Alloc(c)
	return c
}

// createClosure implements the CreateClosure opcode: pop n upvalue
// addresses (pushed, unresolved, by the compiler's closureExpr) then the
// function template, and build a Closure resolving each address per its
// upvalue descriptors.
func (m *VM) createClosure(n int) error {
	addrs := make([]bytecode.MemoryAddress, n)
	for i := n - 1; i >= 0; i-- {
		v := m.pop()
		a, ok := v.(Address)
		if !ok {
			panic("vm: CreateClosure upvalue operand was not an address")
		}
		addrs[i] = a.Address
	}
	fnVal := m.pop()
	ft, ok := fnVal.(funcTemplate)
	if !ok {
		panic("vm: CreateClosure operand was not a function template")
	}
	fn := m.prog.Functions[ft.index]

	fr := m.curFrame()
	upvalues := make([]*Cell, n)
	for i, a := range addrs {
		switch a := a.(type) {
		case bytecode.Local:
			upvalues[i] = m.cellFor(fr.stackBase + int(a))
		case bytecode.Upvalue:
			upvalues[i] = fr.closure.Upvalues[a.Index]
		default:
			panic(fmt.Sprintf("vm: unexpected upvalue address kind %T", a))
		}
	}
	m.push(m.heap.Alloc(&Closure{Fn: fn, Upvalues: upvalues}))
	return nil
}

// createObject implements CreateObject: pop n (value, key) pairs -- value
// pushed before key at each field, per lang/compiler's buildClass -- and
// assemble an insertion-ordered Object.
func (m *VM) createObject(n int) error {
	type pair struct {
		key string
		val Value
	}
	pairs := make([]pair, n)
	for i := n - 1; i >= 0; i-- {
		keyVal := m.pop()
		val := m.pop()
		ks, ok := keyVal.(String)
		if !ok {
			panic("vm: CreateObject key operand was not a string")
		}
		pairs[i] = pair{key: string(ks), val: val}
	}
	obj := NewObject(n)
	for _, p := range pairs {
		obj.Set(p.key, p.val)
	}
	m.push(m.heap.Alloc(obj))
	return nil
}

// getProperty implements GetProperty: resolve key on target (an own field
// first, then a method inherited through the target's class), and, if
// bindMethod is set and the resolved value is a function, push a
// BoundMethod instead of the bare value.
func (m *VM) getProperty(bindMethod bool) error {
	keyVal := m.pop()
	targetVal := m.pop()
	key, ok := keyVal.(String)
	if !ok {
		panic("vm: GetProperty key operand was not a string")
	}
	obj, ok := m.asObject(targetVal)
	if !ok {
		return m.errorf(ExpectedObject, "cannot read property %q of %s", key, typeName(targetVal))
	}

	value, found := obj.Get(string(key))
	if !found && obj.Class != nil {
		if methodPtr, ok := obj.Class.findMethod(string(key)); ok {
			value, found = methodPtr, true
		}
	}
	if !found {
		return m.errorf(UnknownProperty, "unknown property %q", key)
	}

	if bindMethod {
		if hp, ok := value.(HeapPointer); ok {
			if closure, ok := m.heap.At(hp).(*Closure); ok {
				targetPtr := targetVal.(HeapPointer)
				m.push(m.heap.Alloc(&BoundMethod{Receiver: targetPtr, Fn: closure}))
				return nil
			}
		}
	}
	m.push(value)
	return nil
}

// setProperty implements SetProperty: pop value, key, target; write the
// field and push the value back (assignment is itself an expression).
func (m *VM) setProperty() error {
	val := m.pop()
	keyVal := m.pop()
	targetVal := m.pop()
	key, ok := keyVal.(String)
	if !ok {
		panic("vm: SetProperty key operand was not a string")
	}
	obj, ok := m.asObject(targetVal)
	if !ok {
		return m.errorf(ExpectedObject, "cannot set property %q of %s", key, typeName(targetVal))
	}
	obj.Set(string(key), val)
	m.push(val)
	return nil
}

// call implements the Call opcode: pop the callee, dispatch on its dynamic
// type. Instantiating a class (calling a *Class value) is this VM's own
// extension of that dispatch.
func (m *VM) call(argc int) error {
	callee := m.pop()
	switch c := callee.(type) {
	case *NativeFunction:
		base := len(m.operand) - argc
		args := append([]Value(nil), m.operand[base:]...)
		m.operand = m.operand[:base]
		result, err := c.Fn(args, m)
		if err != nil {
			return err
		}
		m.push(result)
		return nil

	case HeapPointer:
		switch obj := m.heap.At(c).(type) {
		case *Closure:
			return m.callClosure(obj, argc, nil)
		case *BoundMethod:
			return m.callClosure(obj.Fn, argc, &obj.Receiver)
		case *Class:
			return m.callCtor(obj, argc)
		default:
			return m.errorf(ExpectedCallable, "value is not callable")
		}

	default:
		return m.errorf(ExpectedCallable, "value is not callable")
	}
}

// callClosure pushes a new frame for cl, inserting receiver as the
// implicit slot-0 argument ahead of argc's own arguments when non-nil (a
// bound method call). Arity is checked against the call site's actual
// argument count (receiver included), raising a wrong-arity error on
// mismatch.
func (m *VM) callClosure(cl *Closure, argc int, receiver *HeapPointer) error {
	if receiver != nil {
		base := len(m.operand) - argc
		m.operand = append(m.operand, Null)
		copy(m.operand[base+1:], m.operand[base:base+argc])
		m.operand[base] = *receiver
		argc++
	}
	if argc != cl.Fn.Arity {
		return m.errorf(WrongArity, "%s expects %d arguments, got %d", cl.Fn.Name, cl.Fn.Arity, argc)
	}
	if m.MaxCallDepth > 0 && len(m.frames) >= m.MaxCallDepth {
		return m.errorf(ResourceExhausted, "exceeded call depth of %d", m.MaxCallDepth)
	}
	base := len(m.operand) - argc
	m.frames = append(m.frames, &frame{closure: cl, stackBase: base})
	return nil
}

// callCtor instantiates cls: pushes a frame for its zero-argument
// constructor, tagged so doReturn can stamp the freshly built Object with
// its owning Class once the constructor's CreateObject-produced result
// comes back.
func (m *VM) callCtor(cls *Class, argc int) error {
	if argc != 0 {
		return m.errorf(WrongArity, "%s expects 0 arguments, got %d", cls.Name, argc)
	}
	base := len(m.operand)
	m.frames = append(m.frames, &frame{closure: cls.Ctor, stackBase: base, ctorOf: cls})
	return nil
}

// doReturn implements the Return opcode: pop the current frame, truncate
// the operand stack back to the frame's stack_base, and leave the single
// result value in its place. Returns (result, true) when the root frame
// itself returned, signaling Run to halt.
func (m *VM) doReturn() (Value, bool) {
	result := m.pop()
	fr := m.curFrame()
	m.frames = m.frames[:len(m.frames)-1]
	m.operand = m.operand[:fr.stackBase]

	if fr.ctorOf != nil {
		if hp, ok := result.(HeapPointer); ok {
			if obj, ok := m.heap.At(hp).(*Object); ok {
				obj.Class = fr.ctorOf
			}
		}
	}

	if len(m.frames) == 0 {
		return result, true
	}
	m.push(result)
	return nil, false
}
