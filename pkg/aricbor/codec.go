// Package aricbor implements the canonical binary codec for ARI values: a
// total, deterministic encoding such that Decode(Encode(v)) reproduces v
// exactly, including any explicit type tag. The wire shape mirrors the CBOR
// "major type + length-prefixed payload" discipline the rest of the DTNMA
// wire formats use, but is self-framing around the ari.Kind tag rather than
// generic CBOR major types: every value starts with one header byte naming
// its Kind, so a decoder never has to guess a Go type from an ambiguous CBOR
// major type.
//
// None of the example repositories import a general CBOR library directly
// (fxamacker/cbor/v2 appears only as an indirect, unused transitive
// dependency pulled in by unrelated packages), so there is no grounded usage
// pattern to imitate for this exact self-describing, kind-tagged framing.
// The codec is therefore hand-rolled on encoding/binary varints, which is
// the same low-level approach the original C agent uses for its QCBOR
// encoding.
package aricbor

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
)

const tagBit = 0x80

// Encode renders v in the canonical binary form.
func Encode(v ari.Value) []byte {
	buf := &bytes.Buffer{}
	encodeValue(buf, v)
	return buf.Bytes()
}

// Decode parses one canonical binary value from b, returning the value and
// the number of bytes consumed.
func Decode(b []byte) (ari.Value, int, error) {
	r := bytes.NewReader(b)
	v, err := decodeValue(r)
	if err != nil {
		return nil, 0, err
	}
	return v, len(b) - r.Len(), nil
}

func encodeValue(buf *bytes.Buffer, v ari.Value) {
	if v == nil {
		v = ari.Undefined
	}
	if ref, ok := v.(*ari.Reference); ok {
		buf.WriteByte(byte(ari.KindObjectRef))
		encodeReference(buf, ref)
		return
	}
	lit := v.(ari.Literal)
	tag, hasTag := lit.TypeTag()
	header := byte(lit.Kind())
	if hasTag {
		header |= tagBit
	}
	buf.WriteByte(header)
	if hasTag {
		buf.WriteByte(byte(tag))
	}
	encodeLiteralPayload(buf, lit)
}

func putUvarint(buf *bytes.Buffer, u uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], u)
	buf.Write(tmp[:n])
}

func putVarint(buf *bytes.Buffer, i int64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutVarint(tmp[:], i)
	buf.Write(tmp[:n])
}

func putBytes(buf *bytes.Buffer, b []byte) {
	putUvarint(buf, uint64(len(b)))
	buf.Write(b)
}

func putString(buf *bytes.Buffer, s string) {
	putBytes(buf, []byte(s))
}

func encodeSegment(buf *bytes.Buffer, s ari.Segment) {
	if s.IsName {
		buf.WriteByte(1)
		putString(buf, s.Name)
	} else {
		buf.WriteByte(0)
		putVarint(buf, s.Enum)
	}
}

func encodeReference(buf *bytes.Buffer, r *ari.Reference) {
	encodeSegment(buf, r.Path.Org)
	encodeSegment(buf, r.Path.Model)
	buf.WriteByte(byte(r.Path.Type))
	encodeSegment(buf, r.Path.Object)

	putUvarint(buf, uint64(len(r.Params)))
	for _, p := range r.Params {
		encodeValue(buf, p)
	}

	keys := make([]string, 0, len(r.Named))
	for k := range r.Named {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	putUvarint(buf, uint64(len(keys)))
	for _, k := range keys {
		putString(buf, k)
		encodeValue(buf, r.Named[k])
	}
}

func encodeLiteralPayload(buf *bytes.Buffer, lit ari.Literal) {
	switch lit.Kind() {
	case ari.KindUndefined, ari.KindNull:
		// no payload
	case ari.KindBool:
		b, _ := ari.AsBool(lit)
		if b {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case ari.KindInt, ari.KindVast:
		i, _ := ari.AsInt64(lit)
		putVarint(buf, i)
	case ari.KindUint, ari.KindUvast:
		u, _ := ari.AsUint64(lit)
		putUvarint(buf, u)
	case ari.KindReal32:
		f, _ := ari.AsFloat64(lit)
		var tmp [4]byte
		binary.BigEndian.PutUint32(tmp[:], float32bits(float32(f)))
		buf.Write(tmp[:])
	case ari.KindReal64:
		f, _ := ari.AsFloat64(lit)
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], float64bits(f))
		buf.Write(tmp[:])
	case ari.KindTextstr, ari.KindLabel:
		s, _ := lit.Raw().(string)
		putString(buf, s)
	case ari.KindBytestr:
		putBytes(buf, lit.Raw().([]byte))
	case ari.KindCBOR:
		putBytes(buf, lit.Raw().([]byte))
	case ari.KindTP:
		t := lit.Raw().(time.Time).UTC()
		putVarint(buf, t.Unix())
		putUvarint(buf, uint64(t.Nanosecond()))
	case ari.KindTD:
		d := lit.Raw().(time.Duration)
		putVarint(buf, int64(d))
	case ari.KindAriType:
		buf.WriteByte(byte(lit.Raw().(ari.Kind)))
	case ari.KindAC:
		ac, _ := ari.ACOf(lit)
		putUvarint(buf, uint64(len(ac.Items)))
		for _, it := range ac.Items {
			encodeValue(buf, it)
		}
	case ari.KindAM:
		am, _ := ari.AMOf(lit)
		putUvarint(buf, uint64(len(am.Pairs)))
		for _, p := range sortedPairs(am.Pairs) {
			encodeValue(buf, p.Key)
			encodeValue(buf, p.Value)
		}
	case ari.KindTBL:
		t, _ := ari.TBLOf(lit)
		putUvarint(buf, uint64(t.NumCols))
		putUvarint(buf, uint64(len(t.Rows)))
		for _, row := range t.Rows {
			for _, cell := range row {
				encodeValue(buf, cell)
			}
		}
	case ari.KindExecSet:
		es, _ := ari.ExecSetOf(lit)
		encodeValue(buf, es.Nonce)
		putUvarint(buf, uint64(len(es.Targets)))
		for _, tgt := range es.Targets {
			encodeValue(buf, tgt)
		}
	case ari.KindRptSet:
		rs, _ := ari.RptSetOf(lit)
		encodeValue(buf, rs.Nonce)
		putVarint(buf, rs.ReferenceTime.UTC().Unix())
		putUvarint(buf, uint64(rs.ReferenceTime.UTC().Nanosecond()))
		putUvarint(buf, uint64(len(rs.Reports)))
		for _, rep := range rs.Reports {
			putVarint(buf, int64(rep.RelativeTime))
			encodeValue(buf, rep.Source)
			putUvarint(buf, uint64(len(rep.Items)))
			for _, it := range rep.Items {
				encodeValue(buf, it)
			}
		}
	default:
		panic(fmt.Sprintf("aricbor: unencodable kind %s", lit.Kind()))
	}
}

// sortedPairs returns am's pairs ordered by their encoded key bytes, for a
// canonical on-wire ordering independent of insertion order.
func sortedPairs(pairs []ari.Pair) []ari.Pair {
	type keyed struct {
		pair ari.Pair
		key  string
	}
	cp := make([]keyed, len(pairs))
	for i, p := range pairs {
		cp[i] = keyed{pair: p, key: string(Encode(p.Key))}
	}
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].key < cp[j].key })
	out := make([]ari.Pair, len(cp))
	for i, k := range cp {
		out[i] = k.pair
	}
	return out
}

func float32bits(f float32) uint32 { return math.Float32bits(f) }

func float64bits(f float64) uint64 { return math.Float64bits(f) }

func decodeValue(r *bytes.Reader) (ari.Value, error) {
	header, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("aricbor: decode header: %w", err)
	}
	hasTag := header&tagBit != 0
	kind := ari.Kind(header &^ tagBit)

	if kind == ari.KindObjectRef {
		return decodeReference(r)
	}

	var tag ari.Kind
	if hasTag {
		tb, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("aricbor: decode type tag: %w", err)
		}
		tag = ari.Kind(tb)
	}

	lit, err := decodeLiteralPayload(r, kind)
	if err != nil {
		return nil, err
	}
	if hasTag {
		lit = lit.WithTypeTag(tag)
	}
	return lit, nil
}

func getUvarint(r *bytes.Reader) (uint64, error) {
	u, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, fmt.Errorf("aricbor: read uvarint: %w", err)
	}
	return u, nil
}

func getVarint(r *bytes.Reader) (int64, error) {
	i, err := binary.ReadVarint(r)
	if err != nil {
		return 0, fmt.Errorf("aricbor: read varint: %w", err)
	}
	return i, nil
}

func getBytes(r *bytes.Reader) ([]byte, error) {
	n, err := getUvarint(r)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("aricbor: read %d bytes: %w", n, err)
	}
	return b, nil
}

func getString(r *bytes.Reader) (string, error) {
	b, err := getBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeSegment(r *bytes.Reader) (ari.Segment, error) {
	form, err := r.ReadByte()
	if err != nil {
		return ari.Segment{}, fmt.Errorf("aricbor: decode segment form: %w", err)
	}
	if form == 1 {
		s, err := getString(r)
		if err != nil {
			return ari.Segment{}, err
		}
		return ari.NameSegment(s), nil
	}
	e, err := getVarint(r)
	if err != nil {
		return ari.Segment{}, err
	}
	return ari.EnumSegment(e), nil
}

func decodeReference(r *bytes.Reader) (ari.Value, error) {
	org, err := decodeSegment(r)
	if err != nil {
		return nil, err
	}
	model, err := decodeSegment(r)
	if err != nil {
		return nil, err
	}
	typByte, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("aricbor: decode path type: %w", err)
	}
	obj, err := decodeSegment(r)
	if err != nil {
		return nil, err
	}
	path := ari.ObjectPath{Org: org, Model: model, Type: ari.Kind(typByte), Object: obj}
	ref := ari.NewReference(path)

	nParams, err := getUvarint(r)
	if err != nil {
		return nil, err
	}
	params := make([]ari.Value, 0, nParams)
	for i := uint64(0); i < nParams; i++ {
		v, err := decodeValue(r)
		if err != nil {
			return nil, err
		}
		params = append(params, v)
	}
	if len(params) > 0 {
		ref = ref.WithParams(params...)
	}

	nNamed, err := getUvarint(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < nNamed; i++ {
		k, err := getString(r)
		if err != nil {
			return nil, err
		}
		v, err := decodeValue(r)
		if err != nil {
			return nil, err
		}
		ref = ref.WithNamed(k, v)
	}
	return ref, nil
}

func decodeLiteralPayload(r *bytes.Reader, kind ari.Kind) (ari.Literal, error) {
	switch kind {
	case ari.KindUndefined:
		return ari.Undefined.(ari.Literal), nil
	case ari.KindNull:
		return ari.Null.(ari.Literal), nil
	case ari.KindBool:
		b, err := r.ReadByte()
		if err != nil {
			return ari.Literal{}, fmt.Errorf("aricbor: decode bool: %w", err)
		}
		return ari.Bool(b != 0), nil
	case ari.KindInt:
		i, err := getVarint(r)
		if err != nil {
			return ari.Literal{}, err
		}
		return ari.Int(int32(i)), nil
	case ari.KindVast:
		i, err := getVarint(r)
		if err != nil {
			return ari.Literal{}, err
		}
		return ari.Vast(i), nil
	case ari.KindUint:
		u, err := getUvarint(r)
		if err != nil {
			return ari.Literal{}, err
		}
		return ari.Uint(uint32(u)), nil
	case ari.KindUvast:
		u, err := getUvarint(r)
		if err != nil {
			return ari.Literal{}, err
		}
		return ari.Uvast(u), nil
	case ari.KindReal32:
		var tmp [4]byte
		if _, err := io.ReadFull(r, tmp[:]); err != nil {
			return ari.Literal{}, fmt.Errorf("aricbor: decode real32: %w", err)
		}
		return ari.Real32(math.Float32frombits(binary.BigEndian.Uint32(tmp[:]))), nil
	case ari.KindReal64:
		var tmp [8]byte
		if _, err := io.ReadFull(r, tmp[:]); err != nil {
			return ari.Literal{}, fmt.Errorf("aricbor: decode real64: %w", err)
		}
		return ari.Real64(math.Float64frombits(binary.BigEndian.Uint64(tmp[:]))), nil
	case ari.KindTextstr:
		s, err := getString(r)
		if err != nil {
			return ari.Literal{}, err
		}
		return ari.Text(s), nil
	case ari.KindLabel:
		s, err := getString(r)
		if err != nil {
			return ari.Literal{}, err
		}
		return ari.Label(s), nil
	case ari.KindBytestr:
		b, err := getBytes(r)
		if err != nil {
			return ari.Literal{}, err
		}
		return ari.Bytes(b), nil
	case ari.KindCBOR:
		b, err := getBytes(r)
		if err != nil {
			return ari.Literal{}, err
		}
		return ari.CBOROpaque(b), nil
	case ari.KindTP:
		sec, err := getVarint(r)
		if err != nil {
			return ari.Literal{}, err
		}
		nsec, err := getUvarint(r)
		if err != nil {
			return ari.Literal{}, err
		}
		return ari.Timepoint(time.Unix(sec, int64(nsec)).UTC()), nil
	case ari.KindTD:
		n, err := getVarint(r)
		if err != nil {
			return ari.Literal{}, err
		}
		return ari.Duration(time.Duration(n)), nil
	case ari.KindAriType:
		b, err := r.ReadByte()
		if err != nil {
			return ari.Literal{}, fmt.Errorf("aricbor: decode aritype: %w", err)
		}
		return ari.TypeTagValue(ari.Kind(b)), nil
	case ari.KindAC:
		n, err := getUvarint(r)
		if err != nil {
			return ari.Literal{}, err
		}
		items := make([]ari.Value, 0, n)
		for i := uint64(0); i < n; i++ {
			v, err := decodeValue(r)
			if err != nil {
				return ari.Literal{}, err
			}
			items = append(items, v)
		}
		return ari.NewAC(items...), nil
	case ari.KindAM:
		n, err := getUvarint(r)
		if err != nil {
			return ari.Literal{}, err
		}
		pairs := make([]ari.Pair, 0, n)
		for i := uint64(0); i < n; i++ {
			k, err := decodeValue(r)
			if err != nil {
				return ari.Literal{}, err
			}
			v, err := decodeValue(r)
			if err != nil {
				return ari.Literal{}, err
			}
			pairs = append(pairs, ari.Pair{Key: k, Value: v})
		}
		return ari.NewAM(pairs...), nil
	case ari.KindTBL:
		numCols, err := getUvarint(r)
		if err != nil {
			return ari.Literal{}, err
		}
		numRows, err := getUvarint(r)
		if err != nil {
			return ari.Literal{}, err
		}
		rows := make([][]ari.Value, 0, numRows)
		for i := uint64(0); i < numRows; i++ {
			row := make([]ari.Value, 0, numCols)
			for j := uint64(0); j < numCols; j++ {
				v, err := decodeValue(r)
				if err != nil {
					return ari.Literal{}, err
				}
				row = append(row, v)
			}
			rows = append(rows, row)
		}
		return ari.NewTBL(int(numCols), rows), nil
	case ari.KindExecSet:
		nonce, err := decodeValue(r)
		if err != nil {
			return ari.Literal{}, err
		}
		n, err := getUvarint(r)
		if err != nil {
			return ari.Literal{}, err
		}
		targets := make([]ari.Value, 0, n)
		for i := uint64(0); i < n; i++ {
			v, err := decodeValue(r)
			if err != nil {
				return ari.Literal{}, err
			}
			targets = append(targets, v)
		}
		return ari.NewExecSet(nonce, targets...), nil
	case ari.KindRptSet:
		nonce, err := decodeValue(r)
		if err != nil {
			return ari.Literal{}, err
		}
		sec, err := getVarint(r)
		if err != nil {
			return ari.Literal{}, err
		}
		nsec, err := getUvarint(r)
		if err != nil {
			return ari.Literal{}, err
		}
		nReports, err := getUvarint(r)
		if err != nil {
			return ari.Literal{}, err
		}
		reports := make([]ari.Report, 0, nReports)
		for i := uint64(0); i < nReports; i++ {
			rel, err := getVarint(r)
			if err != nil {
				return ari.Literal{}, err
			}
			src, err := decodeValue(r)
			if err != nil {
				return ari.Literal{}, err
			}
			nItems, err := getUvarint(r)
			if err != nil {
				return ari.Literal{}, err
			}
			items := make([]ari.Value, 0, nItems)
			for j := uint64(0); j < nItems; j++ {
				v, err := decodeValue(r)
				if err != nil {
					return ari.Literal{}, err
				}
				items = append(items, v)
			}
			reports = append(reports, ari.Report{RelativeTime: time.Duration(rel), Source: src, Items: items})
		}
		refTime := time.Unix(sec, int64(nsec)).UTC()
		return ari.NewRptSet(nonce, refTime, reports...), nil
	default:
		return ari.Literal{}, fmt.Errorf("aricbor: undecodable kind %s", kind)
	}
}
