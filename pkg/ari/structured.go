package ari

import (
	"fmt"
	"time"
)

// AC is an ordered list literal payload. It backs both the MAC (macro: an
// AC of execution targets), EXPR (an AC of operands/OPER refs in reverse
// Polish order), and RPTT (an AC of report-producing items) roles; callers
// distinguish those roles by context and by an optional type tag.
type AC struct {
	Items []Value
}

// NewAC constructs an AC literal value from items.
func NewAC(items ...Value) Literal {
	return Literal{kind: KindAC, val: &AC{Items: items}}
}

func (a *AC) equal(o *AC) bool {
	if len(a.Items) != len(o.Items) {
		return false
	}
	for i := range a.Items {
		if !valueEqual(a.Items[i], o.Items[i]) {
			return false
		}
	}
	return true
}

func (a *AC) String() string {
	return fmt.Sprintf("ac(%d items)", len(a.Items))
}

// ACOf extracts the *AC payload from a Value, if it is an AC literal.
func ACOf(v Value) (*AC, bool) {
	l, ok := v.(Literal)
	if !ok || l.kind != KindAC {
		return nil, false
	}
	ac, ok := l.val.(*AC)
	return ac, ok
}

// Pair is one key/value entry of an AM. AM preserves insertion order in
// memory; the binary codec is responsible for canonical (sorted) key
// ordering on the wire.
type Pair struct {
	Key   Value
	Value Value
}

// AM is a keyed map literal payload.
type AM struct {
	Pairs []Pair
}

// NewAM constructs an AM literal value from pairs.
func NewAM(pairs ...Pair) Literal {
	return Literal{kind: KindAM, val: &AM{Pairs: pairs}}
}

// Get looks up a value by key using structural equality.
func (m *AM) Get(key Value) (Value, bool) {
	for _, p := range m.Pairs {
		if valueEqual(p.Key, key) {
			return p.Value, true
		}
	}
	return nil, false
}

// Set inserts or replaces a key's value, preserving first-seen order.
func (m *AM) Set(key, val Value) {
	for i, p := range m.Pairs {
		if valueEqual(p.Key, key) {
			m.Pairs[i].Value = val
			return
		}
	}
	m.Pairs = append(m.Pairs, Pair{Key: key, Value: val})
}

func (m *AM) equal(o *AM) bool {
	if len(m.Pairs) != len(o.Pairs) {
		return false
	}
	for _, p := range m.Pairs {
		ov, ok := o.Get(p.Key)
		if !ok || !valueEqual(p.Value, ov) {
			return false
		}
	}
	return true
}

func (m *AM) String() string {
	return fmt.Sprintf("am(%d pairs)", len(m.Pairs))
}

// AMOf extracts the *AM payload from a Value, if it is an AM literal.
func AMOf(v Value) (*AM, bool) {
	l, ok := v.(Literal)
	if !ok || l.kind != KindAM {
		return nil, false
	}
	am, ok := l.val.(*AM)
	return am, ok
}

// TBL is a row-major table literal with a fixed column count.
type TBL struct {
	NumCols int
	Rows    [][]Value
}

// NewTBL constructs a table literal with the given column count.
func NewTBL(numCols int, rows [][]Value) Literal {
	return Literal{kind: KindTBL, val: &TBL{NumCols: numCols, Rows: rows}}
}

func (t *TBL) equal(o *TBL) bool {
	if t.NumCols != o.NumCols || len(t.Rows) != len(o.Rows) {
		return false
	}
	for i := range t.Rows {
		if len(t.Rows[i]) != len(o.Rows[i]) {
			return false
		}
		for j := range t.Rows[i] {
			if !valueEqual(t.Rows[i][j], o.Rows[i][j]) {
				return false
			}
		}
	}
	return true
}

func (t *TBL) String() string {
	return fmt.Sprintf("tbl(%d cols, %d rows)", t.NumCols, len(t.Rows))
}

// TBLOf extracts the *TBL payload from a Value, if it is a TBL literal.
func TBLOf(v Value) (*TBL, bool) {
	l, ok := v.(Literal)
	if !ok || l.kind != KindTBL {
		return nil, false
	}
	t, ok := l.val.(*TBL)
	return t, ok
}

// ExecSet is the structured payload of an EXECSET: a correlation nonce and
// an ordered list of execution targets.
type ExecSet struct {
	Nonce   Value // null | integer | byte string
	Targets []Value
}

// NewExecSet constructs an EXECSET literal value.
func NewExecSet(nonce Value, targets ...Value) Literal {
	if nonce == nil {
		nonce = Null
	}
	return Literal{kind: KindExecSet, val: &ExecSet{Nonce: nonce, Targets: targets}}
}

func (e *ExecSet) equal(o *ExecSet) bool {
	if !valueEqual(e.Nonce, o.Nonce) || len(e.Targets) != len(o.Targets) {
		return false
	}
	for i := range e.Targets {
		if !valueEqual(e.Targets[i], o.Targets[i]) {
			return false
		}
	}
	return true
}

func (e *ExecSet) String() string {
	return fmt.Sprintf("execset(nonce=%s, %d targets)", e.Nonce, len(e.Targets))
}

// ExecSetOf extracts the *ExecSet payload from a Value, if it is one.
func ExecSetOf(v Value) (*ExecSet, bool) {
	l, ok := v.(Literal)
	if !ok || l.kind != KindExecSet {
		return nil, false
	}
	es, ok := l.val.(*ExecSet)
	return es, ok
}

// IsNoncedExecSet reports whether an EXECSET carries a non-null nonce,
// which determines whether completions are reported back to the manager.
func (e *ExecSet) IsNoncedExecSet() bool {
	return e.Nonce != nil && e.Nonce.Kind() != KindNull
}

// Report is one target's collected/produced items within an RPTSET.
type Report struct {
	RelativeTime time.Duration
	Source       Value // the original target reported on
	Items        []Value
}

func (r Report) equal(o Report) bool {
	if r.RelativeTime != o.RelativeTime || !valueEqual(r.Source, o.Source) {
		return false
	}
	if len(r.Items) != len(o.Items) {
		return false
	}
	for i := range r.Items {
		if !valueEqual(r.Items[i], o.Items[i]) {
			return false
		}
	}
	return true
}

// RptSet is the structured payload of an RPTSET.
type RptSet struct {
	Nonce         Value
	ReferenceTime time.Time
	Reports       []Report
}

// NewRptSet constructs an RPTSET literal value.
func NewRptSet(nonce Value, referenceTime time.Time, reports ...Report) Literal {
	if nonce == nil {
		nonce = Null
	}
	return Literal{kind: KindRptSet, val: &RptSet{Nonce: nonce, ReferenceTime: referenceTime.UTC(), Reports: reports}}
}

func (r *RptSet) equal(o *RptSet) bool {
	if !valueEqual(r.Nonce, o.Nonce) || !r.ReferenceTime.Equal(o.ReferenceTime) {
		return false
	}
	if len(r.Reports) != len(o.Reports) {
		return false
	}
	for i := range r.Reports {
		if !r.Reports[i].equal(o.Reports[i]) {
			return false
		}
	}
	return true
}

func (r *RptSet) String() string {
	return fmt.Sprintf("rptset(nonce=%s, %d reports)", r.Nonce, len(r.Reports))
}

// RptSetOf extracts the *RptSet payload from a Value, if it is one.
func RptSetOf(v Value) (*RptSet, bool) {
	l, ok := v.(Literal)
	if !ok || l.kind != KindRptSet {
		return nil, false
	}
	rs, ok := l.val.(*RptSet)
	return rs, ok
}
