package types

import (
	"fmt"
	"strings"
)

// CanonicalSymbol returns the internal/persisted form of a symbol
// (uppercase, slash-separated, e.g. "BTC/USD").
func CanonicalSymbol(base, quote string) string {
	return fmt.Sprintf("%s/%s", strings.ToUpper(base), strings.ToUpper(quote))
}

// PublicSymbol converts the canonical "BASE/QUOTE" form into the public HTTP
// form "BASE-QUOTE" (spec.md §6: "the public form uses -, the internal and
// persisted form uses /").
func PublicSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "-")
}

// InternalSymbol converts a public "BASE-QUOTE" path segment back into the
// canonical "BASE/QUOTE" form.
func InternalSymbol(public string) string {
	return strings.ToUpper(strings.ReplaceAll(public, "-", "/"))
}
