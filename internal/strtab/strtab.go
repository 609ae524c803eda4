// Package strtab interns identifiers and string/char literal bodies into
// small stable handles, so that equality of two spellings anywhere in a
// translation unit is a single integer comparison.
package strtab

// ID is a stable handle to an interned string. The zero ID never names a
// string; it is returned by Lookup for unknown spellings.
type ID uint32

// Table interns strings on first sight and hands back the same ID for
// every later occurrence of the same spelling.
//
// Modeled on the gothird VM's symbol table (symbolicate/string/symbol):
// a growable slice holds the canonical spellings, a map gives O(1)
// dedup, and handles are stable for the lifetime of the Table.
type Table struct {
	strings []string
	byText  map[string]ID
}

// Intern returns the ID for s, assigning a new one if s has not been seen.
func (t *Table) Intern(s string) ID {
	id, ok := t.byText[s]
	if !ok {
		if t.byText == nil {
			t.byText = make(map[string]ID)
		}
		id = ID(len(t.strings)) + 1
		t.strings = append(t.strings, s)
		t.byText[s] = id
	}
	return id
}

// Lookup returns the ID already assigned to s, or 0 if s was never interned.
func (t Table) Lookup(s string) ID { return t.byText[s] }

// Text returns the spelling behind id, or "" for an unknown or zero id.
func (t Table) Text(id ID) string {
	if i := int(id) - 1; i >= 0 && i < len(t.strings) {
		return t.strings[i]
	}
	return ""
}

// Len reports how many distinct strings have been interned.
func (t Table) Len() int { return len(t.strings) }

// Reset discards all interned strings, releasing the Table for reuse
// at the next translation unit boundary (spec.md §5).
func (t *Table) Reset() {
	t.strings = t.strings[:0]
	for k := range t.byText {
		delete(t.byText, k)
	}
}
