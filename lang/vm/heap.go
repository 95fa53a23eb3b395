package vm

import (
	"github.com/dolthub/swiss"
	"github.com/mna/aster/lang/compiler"
)

// heapObject is the marker interface for every value addressed indirectly
// through a HeapPointer: a Cell, a Closure, an Object, a Class or a
// BoundMethod. A vector-indexed heap avoids cyclic Go-level ownership for
// closures that capture themselves and permits cheap equality of
// references.
type heapObject interface {
	isHeapObject()
}

// Heap is the VM's vector-indexed heap: append-only during a single Run,
// pointers are stable slice indices for the run's lifetime, rather than
// closures and objects being ordinary Go values of an interface type. The
// indirection lets a closure capturing its own declaration site (recursion)
// and an object referencing itself through a field both work without
// Go-level cyclic-pointer bookkeeping.
type Heap struct {
	objects []heapObject
}

// Alloc appends o to the heap and returns its stable pointer.
func (h *Heap) Alloc(o heapObject) HeapPointer {
	h.objects = append(h.objects, o)
	return HeapPointer(len(h.objects) - 1)
}

// At returns the heap object p addresses. It panics on an out-of-range
// pointer, which can only indicate a VM bug (a well-formed program never
// observes a pointer it didn't itself allocate).
func (h *Heap) At(p HeapPointer) heapObject {
	return h.objects[p]
}

// Cell is a shared, mutably-aliased box for one captured local, allocated
// lazily the first time CreateClosure needs to capture a Local address
// that has not yet been boxed (see vm.go's cellFor). Every later
// Get/Asg through the same stack slot -- in this frame or any closure
// sharing the cell as an upvalue -- transparently derefs through it,
// giving reference-semantics closures with no opcodes beyond Get/Asg and
// CreateClosure.
type Cell struct {
	Value Value
}

func (*Cell) isHeapObject() {}

// Closure is a Function paired with the upvalues resolved when it was
// created. Each entry of Upvalues is a *Cell shared with the frame or
// enclosing closure it was captured from.
type Closure struct {
	Fn       *compiler.Function
	Upvalues []*Cell
}

func (*Closure) isHeapObject() {}

// Object is an insertion-ordered property map: keys records
// insertion order (a swiss.Map alone does not preserve it), props is the
// O(1) lookup table. Class, if non-nil, is the descriptor this object was
// instantiated from -- consulted by GetProperty when a name is not an own
// field, to resolve (and bind) a method.
type Object struct {
	Class *Class
	keys  []string
	props *swiss.Map[string, Value]
}

func (*Object) isHeapObject() {}

// NewObject returns an empty object sized for an estimated property count.
func NewObject(sizeHint int) *Object {
	if sizeHint < 1 {
		sizeHint = 1
	}
	return &Object{props: swiss.NewMap[string, Value](uint32(sizeHint))}
}

// Get returns the value of a field directly on o (not consulting its
// class's methods).
func (o *Object) Get(name string) (Value, bool) {
	return o.props.Get(name)
}

// Set writes name's value, recording it in insertion order the first time
// name is seen.
func (o *Object) Set(name string, v Value) {
	if _, exists := o.props.Get(name); !exists {
		o.keys = append(o.keys, name)
	}
	o.props.Put(name, v)
}

// Keys returns o's own field names in insertion order.
func (o *Object) Keys() []string { return o.keys }

// Class is a class descriptor: field names in declaration order, its
// compiled constructor and methods (each already boxed onto the heap so a
// bare, unbound method reference has a HeapPointer to push), and its
// resolved superclass pointer (nil at the root of an inheritance chain).
// Built once per class declaration when the VM starts (see vm.go's
// bindGlobals).
type Class struct {
	Name       string
	Fields     []string
	Ctor       *Closure
	Methods    map[string]HeapPointer
	Superclass *Class
}

func (*Class) isHeapObject() {}

// findMethod looks up name on c, then walks the superclass chain, so a
// subclass instance can call an inherited method.
func (c *Class) findMethod(name string) (HeapPointer, bool) {
	for cur := c; cur != nil; cur = cur.Superclass {
		if m, ok := cur.Methods[name]; ok {
			return m, true
		}
	}
	return 0, false
}

// BoundMethod pairs a receiver object with one of its class's methods.
// Call, seeing a BoundMethod callee, injects Receiver as
// the method's implicit slot-0 argument before invoking Fn. Receiver is
// the object's own HeapPointer (not a raw *Object) so it can be pushed
// directly onto the operand stack as the method frame's slot 0 the same
// way any other heap-referenced value is.
type BoundMethod struct {
	Receiver HeapPointer
	Fn       *Closure
}

func (*BoundMethod) isHeapObject() {}
