package lexer

// keywords maps spelling to "is a keyword in this dialect or later".
// Dialect gating mirrors spec.md §6 ("-std= selects the accepted
// dialect"): a word only classifies as token.Keyword if Dialect allows it,
// otherwise it lexes as a plain token.Ident (so e.g. "inline" is an
// ordinary identifier under -std=c89).
type Dialect int

// Dialects, in the order spec.md §6 lists them.
const (
	C89 Dialect = iota
	C99
	C11
)

// since records the earliest dialect a keyword is reserved in.
var keywords = map[string]Dialect{
	"auto": C89, "break": C89, "case": C89, "char": C89, "const": C89,
	"continue": C89, "default": C89, "do": C89, "double": C89, "else": C89,
	"enum": C89, "extern": C89, "float": C89, "for": C89, "goto": C89,
	"if": C89, "int": C89, "long": C89, "register": C89, "return": C89,
	"short": C89, "signed": C89, "sizeof": C89, "static": C89,
	"struct": C89, "switch": C89, "typedef": C89, "union": C89,
	"unsigned": C89, "void": C89, "volatile": C89, "while": C89,

	"inline":   C99,
	"restrict": C99,
	"_Bool":    C99,
	"_Complex": C99,
	"_Imaginary": C99,

	"_Alignas":      C11,
	"_Alignof":      C11,
	"_Atomic":       C11,
	"_Generic":      C11,
	"_Noreturn":     C11,
	"_Static_assert": C11,
	"_Thread_local":  C11,
}

// IsKeyword reports whether s is reserved under dialect d.
func IsKeyword(s string, d Dialect) bool {
	since, ok := keywords[s]
	return ok && since <= d
}
