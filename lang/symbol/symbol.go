// Package symbol implements the append-only interning table described in
// the language's data model: the compiler interns every identifier and
// string literal it emits as a constant, and the constant carries the
// small integer key. The scanner and parser do not intern; the AST keeps
// plain Go strings. Symbols survive for the lifetime of the program.
package symbol

import "github.com/dolthub/swiss"

// ID is the integer key of an interned symbol. Equality of two IDs from the
// same Table implies equality of the underlying text.
type ID int32

// Table interns strings into small integer IDs. The zero value is not
// usable; construct one with NewTable. The compiler adds symbols during
// Generate; the VM only reads them. Nothing enforces that at the type
// level.
type Table struct {
	byText *swiss.Map[string, ID]
	byID   []string
}

// NewTable returns an empty symbol table sized for an estimated number of
// distinct symbols.
func NewTable(sizeHint int) *Table {
	if sizeHint < 8 {
		sizeHint = 8
	}
	return &Table{
		byText: swiss.NewMap[string, ID](uint32(sizeHint)),
	}
}

// Intern returns the ID for text, assigning a new one the first time text is
// seen.
func (t *Table) Intern(text string) ID {
	if id, ok := t.byText.Get(text); ok {
		return id
	}
	id := ID(len(t.byID))
	t.byID = append(t.byID, text)
	t.byText.Put(text, id)
	return id
}

// Lookup returns the ID previously assigned to text, if any.
func (t *Table) Lookup(text string) (ID, bool) {
	return t.byText.Get(text)
}

// Text returns the interned text for id. It panics if id was never
// allocated by this table.
func (t *Table) Text(id ID) string {
	return t.byID[id]
}

// Len returns the number of distinct symbols interned so far.
func (t *Table) Len() int {
	return len(t.byID)
}
