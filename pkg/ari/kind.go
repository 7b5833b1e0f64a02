// Package ari implements the Application Resource Identifier value model:
// the single typed, self-describing value that flows through every
// management exchange the agent participates in.
package ari

// Kind tags the concrete shape of a Value. The set mirrors the closed
// ARI-type enumeration of the wire format: every literal payload and every
// object-kind used as a semantic type tag gets one constant.
type Kind uint8

const (
	// KindUndefined marks "no value". It is never legal inside a report or
	// on a value-returning path; it is the signal a failed production,
	// dereference, or evaluation leaves behind.
	KindUndefined Kind = iota

	KindNull
	KindBool
	KindInt    // signed 32-bit-range integer
	KindUint   // unsigned 32-bit-range integer
	KindVast   // signed 64-bit integer
	KindUvast  // unsigned 64-bit integer
	KindReal32
	KindReal64
	KindTextstr
	KindBytestr
	KindTP  // absolute timepoint
	KindTD  // time duration
	KindLabel
	KindAriType // a Kind value carried as data (used by type-of-type operations)
	KindCBOR    // opaque pre-encoded CBOR payload, passed through uninterpreted

	KindAC      // ordered list
	KindAM      // keyed map
	KindTBL     // row-major table with a fixed column count
	KindExecSet
	KindRptSet

	// Object-kind tags. These double as semantic-type built-ins (they name
	// "an object reference to a descriptor of this kind") and as the
	// ObjectPath.Type discriminator used during dereference.
	KindIdent
	KindTypedef
	KindConst
	KindVar
	KindEDD
	KindCtrl
	KindOper
	KindSBR
	KindTBR
	KindNamespace

	// KindObjectRef is the Kind() of any Reference value; the reference's
	// own Path.Type carries the declared object-kind tag that dereference
	// must match.
	KindObjectRef
)

// String renders the kind using the names the wire/text codec uses.
func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindVast:
		return "vast"
	case KindUvast:
		return "uvast"
	case KindReal32:
		return "real32"
	case KindReal64:
		return "real64"
	case KindTextstr:
		return "textstr"
	case KindBytestr:
		return "bytestr"
	case KindTP:
		return "tp"
	case KindTD:
		return "td"
	case KindLabel:
		return "label"
	case KindAriType:
		return "aritype"
	case KindCBOR:
		return "cbor"
	case KindAC:
		return "ac"
	case KindAM:
		return "am"
	case KindTBL:
		return "tbl"
	case KindExecSet:
		return "execset"
	case KindRptSet:
		return "rptset"
	case KindIdent:
		return "ident"
	case KindTypedef:
		return "typedef"
	case KindConst:
		return "const"
	case KindVar:
		return "var"
	case KindEDD:
		return "edd"
	case KindCtrl:
		return "ctrl"
	case KindOper:
		return "oper"
	case KindSBR:
		return "sbr"
	case KindTBR:
		return "tbr"
	case KindNamespace:
		return "namespace"
	case KindObjectRef:
		return "objref"
	default:
		return "unknown"
	}
}

// IsObjectKind reports whether k is one of the object-descriptor kinds that
// a namespace can hold (IDENT, TYPEDEF, CONST, VAR, EDD, CTRL, OPER, SBR, TBR).
func (k Kind) IsObjectKind() bool {
	switch k {
	case KindIdent, KindTypedef, KindConst, KindVar, KindEDD, KindCtrl, KindOper, KindSBR, KindTBR:
		return true
	default:
		return false
	}
}

// IsNumeric reports whether k is one of the numeric literal kinds eligible
// for the evaluator's promotion rules.
func (k Kind) IsNumeric() bool {
	switch k {
	case KindInt, KindUint, KindVast, KindUvast, KindReal32, KindReal64:
		return true
	default:
		return false
	}
}

// IsInteger reports whether k is an integral numeric kind (no floats).
func (k Kind) IsInteger() bool {
	switch k {
	case KindInt, KindUint, KindVast, KindUvast:
		return true
	default:
		return false
	}
}

// IsUnsigned reports whether k is an unsigned integer kind.
func (k Kind) IsUnsigned() bool {
	return k == KindUint || k == KindUvast
}

// IsFloat reports whether k is a floating point kind.
func (k Kind) IsFloat() bool {
	return k == KindReal32 || k == KindReal64
}
