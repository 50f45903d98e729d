package tables

import (
	"fmt"
	"regexp"
	"strings"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ImplRef names the function that produces a table's rows, written
// "<module>@<symbol>" (e.g. "time@genTime").
type ImplRef struct {
	Module string
	Symbol string
}

// ParseImplRef splits s into its module and symbol parts. Both must be
// identifiers; nothing is resolved here.
func ParseImplRef(s string) (ImplRef, error) {
	module, symbol, ok := strings.Cut(s, "@")
	if !ok {
		return ImplRef{}, fmt.Errorf("%w: %q: missing '@'", ErrInvalidImpl, s)
	}
	if !identRe.MatchString(module) || !identRe.MatchString(symbol) {
		return ImplRef{}, fmt.Errorf("%w: %q: want <module>@<symbol>", ErrInvalidImpl, s)
	}
	return ImplRef{Module: module, Symbol: symbol}, nil
}

func (r ImplRef) String() string {
	return r.Module + "@" + r.Symbol
}

// GoName returns the exported Go identifier for the symbol.
// "genTime" → "GenTime"
func (r ImplRef) GoName() string {
	if r.Symbol == "" {
		return ""
	}
	return strings.ToUpper(r.Symbol[:1]) + r.Symbol[1:]
}
