package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mna/aster/lang/token"
)

// Error is one syntax error found while parsing, modeled on
// lang/analyzer.Error -- same sorted-accumulation convention, but parse
// errors carry no Cause enum: the three-kind error taxonomy (NotDefined,
// UsedBeforeInitialization, etc.) belongs to analyzer and VM errors only;
// syntax errors are this package's own, disjoint concern.
type Error struct {
	Pos     token.Pos
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// ErrorList accumulates parse errors the way go/scanner.ErrorList does.
type ErrorList []*Error

func (el *ErrorList) Add(pos token.Pos, format string, args ...interface{}) {
	*el = append(*el, &Error{Pos: pos, Message: fmt.Sprintf(format, args...)})
}

func (el ErrorList) Sort() {
	sort.Slice(el, func(i, j int) bool { return el[i].Pos < el[j].Pos })
}

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
