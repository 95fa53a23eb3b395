package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mna/aster/lang/token"
)

// Cause enumerates the reasons the analyzer rejects a program.
type Cause int

const (
	NotDefined Cause = iota
	UsedBeforeInitialization
	UsedOutsideLoop
	ReturnUsedOutsideFunction
	UsedOutsideClass
	CantInheritFromItself
	SuperclassDoesntExist
	AlreadyDeclaredInBlock
)

var causeText = [...]string{
	NotDefined:                "not defined",
	UsedBeforeInitialization:   "used before initialization",
	UsedOutsideLoop:            "used outside a loop",
	ReturnUsedOutsideFunction:  "return used outside a function",
	UsedOutsideClass:           "used outside a class",
	CantInheritFromItself:      "class cannot inherit from itself",
	SuperclassDoesntExist:      "superclass does not exist",
	AlreadyDeclaredInBlock:     "already declared in this block",
}

func (c Cause) String() string {
	if int(c) < len(causeText) {
		return causeText[c]
	}
	return "unknown cause"
}

// Error is one static error found by the analyzer, carrying the offending
// node's source span.
type Error struct {
	Span    token.Span
	Cause   Cause
	Message string // human-readable detail, e.g. the offending identifier's name
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Span.Start, e.Cause, e.Message)
}

// ErrorList accumulates Errors the way go/scanner.ErrorList accumulates
// parse errors: sorted by position, combined into one error value. It is
// reimplemented here (rather than reusing go/scanner.ErrorList directly)
// because every entry must carry a structured Cause, which go/scanner's
// Error cannot hold.
type ErrorList []*Error

// Add appends an error to the list.
func (el *ErrorList) Add(span token.Span, cause Cause, format string, args ...interface{}) {
	*el = append(*el, &Error{Span: span, Cause: cause, Message: fmt.Sprintf(format, args...)})
}

// Sort orders the list by start position, matching go/scanner.ErrorList's
// behavior so that diagnostics are reported in source order.
func (el ErrorList) Sort() {
	sort.Slice(el, func(i, j int) bool {
		return el[i].Span.Start < el[j].Span.Start
	})
}

// Err returns el as an error, or nil if el is empty.
func (el ErrorList) Err() error {
	if len(el) == 0 {
		return nil
	}
	return el
}

func (el ErrorList) Error() string {
	switch len(el) {
	case 0:
		return "no errors"
	case 1:
		return el[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (and %d more errors)", el[0], len(el)-1)
	return sb.String()
}
