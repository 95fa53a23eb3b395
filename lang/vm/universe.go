package vm

import "fmt"

// Universe is the set of native functions available to every program,
// pre-seeded with a minimal `print` and `len` so programs have something to
// call without requiring a full standard library.
var Universe = map[string]*NativeFunction{}

func init() {
	Universe["print"] = &NativeFunction{Name: "print", Fn: nativePrint}
	Universe["len"] = &NativeFunction{Name: "len", Fn: nativeLen}
}

// IsNative reports whether name is a registered native, suitable as the
// analyzer.IsNative predicate.
func IsNative(name string) bool {
	_, ok := Universe[name]
	return ok
}

func nativePrint(args []Value, m *VM) (Value, error) {
	for i, a := range args {
		if i > 0 {
			fmt.Fprint(m.Stdout, " ")
		}
		fmt.Fprint(m.Stdout, a.String())
	}
	fmt.Fprintln(m.Stdout)
	return Null, nil
}

func nativeLen(args []Value, m *VM) (Value, error) {
	if len(args) != 1 {
		return nil, m.errorf(WrongArity, "len expects 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case String:
		return Number(len(v)), nil
	default:
		if obj, ok := m.asObject(v); ok {
			return Number(len(obj.Keys())), nil
		}
		return nil, m.errorf(ExpectedObject, "len expects a string or object, got %s", typeName(args[0]))
	}
}
