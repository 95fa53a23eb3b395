package vm

import "github.com/mna/aster/lang/compiler"

// frame records one active call: the closure being executed, its
// instruction pointer, and the stack base its Local addresses are relative
// to. The root-chunk "frame" created by Run wraps the root chunk in a
// synthetic closure with no upvalues.
type frame struct {
	closure   *Closure
	ip        int
	stackBase int

	// ctorOf is non-nil only for a frame running a class's synthetic
	// constructor, naming the class whose descriptor doReturn stamps onto
	// the freshly built instance once the constructor returns it.
	ctorOf *Class
}

func (fr *frame) chunk() *compiler.Function { return fr.closure.Fn }
