package ari

import (
	"fmt"
	"time"
)

// Value is the universal value type: either a Literal or a Reference.
// Both implement Value so that execution targets, evaluator operands, and
// stored state can all be handled through one interface.
type Value interface {
	// Kind returns the literal payload kind, or KindObjectRef for a
	// Reference.
	Kind() Kind

	// Equal reports structural equality, considering any type tag.
	Equal(other Value) bool

	// IsUndefined reports whether this value is the undefined marker.
	IsUndefined() bool

	// String renders a short diagnostic form (not the canonical text codec).
	String() string
}

// Undefined is the canonical "no value" marker.
var Undefined Value = Literal{kind: KindUndefined}

// Null is the canonical null literal.
var Null Value = Literal{kind: KindNull}

// Literal carries a primitive or structured payload, optionally tagged with
// a named ARI-type for intended interpretation.
type Literal struct {
	kind    Kind
	typeTag *Kind // optional explicit ARI-type annotation; nil if untyped
	val     any
}

// Bool constructs a boolean literal.
func Bool(b bool) Literal { return Literal{kind: KindBool, val: b} }

// Int constructs a 32-bit-range signed integer literal.
func Int(i int32) Literal { return Literal{kind: KindInt, val: int64(i)} }

// Uint constructs a 32-bit-range unsigned integer literal.
func Uint(u uint32) Literal { return Literal{kind: KindUint, val: uint64(u)} }

// Vast constructs a 64-bit signed integer literal.
func Vast(i int64) Literal { return Literal{kind: KindVast, val: i} }

// Uvast constructs a 64-bit unsigned integer literal.
func Uvast(u uint64) Literal { return Literal{kind: KindUvast, val: u} }

// Real32 constructs a 32-bit float literal (stored widened to float64).
func Real32(f float32) Literal { return Literal{kind: KindReal32, val: float64(f)} }

// Real64 constructs a 64-bit float literal.
func Real64(f float64) Literal { return Literal{kind: KindReal64, val: f} }

// Text constructs a text-string literal.
func Text(s string) Literal { return Literal{kind: KindTextstr, val: s} }

// Bytes constructs a byte-string literal.
func Bytes(b []byte) Literal {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Literal{kind: KindBytestr, val: cp}
}

// Timepoint constructs an absolute timepoint literal. Timestamps are
// normalized so that 0 <= nsec < 1e9, matching spec's time-arithmetic rule.
func Timepoint(t time.Time) Literal { return Literal{kind: KindTP, val: t.UTC()} }

// Duration constructs a time-duration literal.
func Duration(d time.Duration) Literal { return Literal{kind: KindTD, val: d} }

// Label constructs a label literal (a bare identifier used as e.g. a table
// column substitution key inside tbl-filter expressions).
func Label(s string) Literal { return Literal{kind: KindLabel, val: s} }

// TypeTagValue constructs a literal carrying a Kind as data (used by
// type-introspection operators).
func TypeTagValue(k Kind) Literal { return Literal{kind: KindAriType, val: k} }

// CBOROpaque wraps an already-encoded CBOR byte string that the agent
// passes through without interpreting.
func CBOROpaque(b []byte) Literal {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Literal{kind: KindCBOR, val: cp}
}

// WithTypeTag returns a copy of the literal annotated with an explicit
// ARI-type tag. The tag participates in equality and codec framing.
func (l Literal) WithTypeTag(k Kind) Literal {
	t := k
	l.typeTag = &t
	return l
}

// TypeTag returns the literal's explicit type tag, if any.
func (l Literal) TypeTag() (Kind, bool) {
	if l.typeTag == nil {
		return 0, false
	}
	return *l.typeTag, true
}

func (l Literal) Kind() Kind { return l.kind }

func (l Literal) IsUndefined() bool { return l.kind == KindUndefined }

// Raw returns the underlying Go value for the literal's payload.
func (l Literal) Raw() any { return l.val }

func (l Literal) Equal(other Value) bool {
	o, ok := other.(Literal)
	if !ok {
		return false
	}
	if l.kind != o.kind {
		return false
	}
	if (l.typeTag == nil) != (o.typeTag == nil) {
		return false
	}
	if l.typeTag != nil && *l.typeTag != *o.typeTag {
		return false
	}
	return literalValueEqual(l.kind, l.val, o.val)
}

func literalValueEqual(k Kind, a, b any) bool {
	switch k {
	case KindUndefined, KindNull:
		return true
	case KindBytestr:
		ab, aok := a.([]byte)
		bb, bok := b.([]byte)
		if !aok || !bok || len(ab) != len(bb) {
			return false
		}
		for i := range ab {
			if ab[i] != bb[i] {
				return false
			}
		}
		return true
	case KindTP:
		at, aok := a.(time.Time)
		bt, bok := b.(time.Time)
		return aok && bok && at.Equal(bt)
	case KindAC:
		al := a.(*AC)
		bl := b.(*AC)
		return al.equal(bl)
	case KindAM:
		am := a.(*AM)
		bm := b.(*AM)
		return am.equal(bm)
	case KindTBL:
		at := a.(*TBL)
		bt := b.(*TBL)
		return at.equal(bt)
	case KindExecSet:
		ae := a.(*ExecSet)
		be := b.(*ExecSet)
		return ae.equal(be)
	case KindRptSet:
		ar := a.(*RptSet)
		br := b.(*RptSet)
		return ar.equal(br)
	default:
		return a == b
	}
}

func (l Literal) String() string {
	if l.kind == KindUndefined {
		return "undefined"
	}
	return fmt.Sprintf("%s(%v)", l.kind, l.val)
}

// Segment is one path component of an ObjectPath: either a textual name or
// an integer enumeration. Exactly one form is authoritative per Reference;
// both may be carried for logging.
type Segment struct {
	IsName bool
	Name   string
	Enum   int64
}

// NameSegment constructs a name-form segment.
func NameSegment(name string) Segment { return Segment{IsName: true, Name: name} }

// EnumSegment constructs an enum-form segment.
func EnumSegment(enum int64) Segment { return Segment{IsName: false, Enum: enum} }

func (s Segment) Equal(o Segment) bool {
	if s.IsName != o.IsName {
		return false
	}
	if s.IsName {
		return s.Name == o.Name
	}
	return s.Enum == o.Enum
}

func (s Segment) String() string {
	if s.IsName {
		return s.Name
	}
	return fmt.Sprintf("%d", s.Enum)
}

// ObjectPath identifies one object descriptor: organization, model,
// object-kind, and object segments, in that order.
type ObjectPath struct {
	Org    Segment
	Model  Segment
	Type   Kind // the declared object-kind tag (KindCtrl, KindEDD, ...)
	Object Segment
}

func (p ObjectPath) Equal(o ObjectPath) bool {
	return p.Org.Equal(o.Org) && p.Model.Equal(o.Model) && p.Type == o.Type && p.Object.Equal(o.Object)
}

func (p ObjectPath) String() string {
	return fmt.Sprintf("//%s/%s/%s/%s", p.Org, p.Model, p.Type, p.Object)
}

// Reference is an object-reference ARI: a path plus actual parameters.
type Reference struct {
	Path   ObjectPath
	Params []Value          // positional actual parameters, in order
	Named  map[string]Value // named actual parameters
}

// NewReference constructs a parameterless object reference.
func NewReference(path ObjectPath) *Reference {
	return &Reference{Path: path}
}

// WithParams returns a copy with positional parameters set.
func (r *Reference) WithParams(params ...Value) *Reference {
	cp := *r
	cp.Params = params
	return &cp
}

// WithNamed returns a copy with a named parameter added.
func (r *Reference) WithNamed(name string, v Value) *Reference {
	cp := *r
	cp.Named = make(map[string]Value, len(r.Named)+1)
	for k, val := range r.Named {
		cp.Named[k] = val
	}
	cp.Named[name] = v
	return &cp
}

func (r *Reference) Kind() Kind { return KindObjectRef }

func (r *Reference) IsUndefined() bool { return false }

func (r *Reference) Equal(other Value) bool {
	o, ok := other.(*Reference)
	if !ok {
		return false
	}
	if !r.Path.Equal(o.Path) {
		return false
	}
	if len(r.Params) != len(o.Params) {
		return false
	}
	for i := range r.Params {
		if !valueEqual(r.Params[i], o.Params[i]) {
			return false
		}
	}
	if len(r.Named) != len(o.Named) {
		return false
	}
	for k, v := range r.Named {
		ov, ok := o.Named[k]
		if !ok || !valueEqual(v, ov) {
			return false
		}
	}
	return true
}

func (r *Reference) String() string {
	return r.Path.String()
}

// valueEqual treats two nil Values (or one nil, both undefined) as equal,
// matching the "undefined is a terminal marker" convention used across the
// store and evaluator.
func valueEqual(a, b Value) bool {
	if a == nil {
		a = Undefined
	}
	if b == nil {
		b = Undefined
	}
	return a.Equal(b)
}

// Equal is the package-level structural equality helper used by callers
// holding two Value interfaces of unknown concrete type.
func Equal(a, b Value) bool { return valueEqual(a, b) }

// IsUndefined reports whether v is nil or the undefined marker.
func IsUndefined(v Value) bool {
	return v == nil || v.IsUndefined()
}
