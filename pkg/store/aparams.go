package store

import "github.com/jhuapl-dtnma/refda-go/pkg/ari"

// Aparams is the itemized actual-parameter set produced by parameter
// binding: an ordered array parallel to the formal parameter list, a
// name-indexed view, and a flag recording whether any slot is undefined.
type Aparams struct {
	Positional []ari.Value
	Named      map[string]ari.Value
	AnyUndef   bool
}

// Get returns the i'th actual parameter, or ari.Undefined if out of range.
func (a *Aparams) Get(i int) ari.Value {
	if a == nil || i < 0 || i >= len(a.Positional) {
		return ari.Undefined
	}
	return a.Positional[i]
}

// GetNamed returns a named actual parameter, or ari.Undefined if absent.
func (a *Aparams) GetNamed(name string) ari.Value {
	if a == nil || a.Named == nil {
		return ari.Undefined
	}
	if v, ok := a.Named[name]; ok {
		return v
	}
	return ari.Undefined
}
