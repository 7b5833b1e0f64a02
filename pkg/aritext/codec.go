// Package aritext implements the informational text codec for ARI values:
// an `ari:` URI-style human-readable rendering. No transport or wire path
// uses it (the Unix-domain transport hex-encodes the binary form). It is
// surjective onto values but not required for wire correctness, so Decode
// is best-effort and rejects anything ambiguous rather than guessing.
package aritext

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
)

// Encode renders v as an ari: URI. Literals render as typed scalars
// (`ari:/int/5`), structured literals as bracketed lists, and references as
// path-style URIs with a parenthesized parameter list.
func Encode(v ari.Value) string {
	if v == nil || v.IsUndefined() {
		return "ari:undefined"
	}
	if ref, ok := v.(*ari.Reference); ok {
		return encodeReference(ref)
	}
	lit := v.(ari.Literal)
	return encodeLiteral(lit)
}

func encodeSegment(s ari.Segment) string {
	if s.IsName {
		return s.Name
	}
	return strconv.FormatInt(s.Enum, 10)
}

func encodeReference(r *ari.Reference) string {
	var b strings.Builder
	b.WriteString("ari://")
	b.WriteString(encodeSegment(r.Path.Org))
	b.WriteByte('/')
	b.WriteString(encodeSegment(r.Path.Model))
	b.WriteByte('/')
	b.WriteString(r.Path.Type.String())
	b.WriteByte('/')
	b.WriteString(encodeSegment(r.Path.Object))

	if len(r.Params) == 0 && len(r.Named) == 0 {
		return b.String()
	}
	b.WriteByte('(')
	parts := make([]string, 0, len(r.Params)+len(r.Named))
	for _, p := range r.Params {
		parts = append(parts, Encode(p))
	}
	for k, val := range r.Named {
		parts = append(parts, k+"="+Encode(val))
	}
	b.WriteString(strings.Join(parts, ","))
	b.WriteByte(')')
	return b.String()
}

func encodeLiteral(lit ari.Literal) string {
	body := encodeLiteralBody(lit)
	if tag, ok := lit.TypeTag(); ok {
		return fmt.Sprintf("ari:/%s/%s", tag, body)
	}
	return fmt.Sprintf("ari:/%s/%s", lit.Kind(), body)
}

func encodeLiteralBody(lit ari.Literal) string {
	switch lit.Kind() {
	case ari.KindNull:
		return "null"
	case ari.KindBool:
		b, _ := ari.AsBool(lit)
		return strconv.FormatBool(b)
	case ari.KindInt, ari.KindVast:
		i, _ := ari.AsInt64(lit)
		return strconv.FormatInt(i, 10)
	case ari.KindUint, ari.KindUvast:
		u, _ := ari.AsUint64(lit)
		return strconv.FormatUint(u, 10)
	case ari.KindReal32, ari.KindReal64:
		f, _ := ari.AsFloat64(lit)
		return strconv.FormatFloat(f, 'g', -1, 64)
	case ari.KindTextstr, ari.KindLabel:
		s, _ := lit.Raw().(string)
		return quote(s)
	case ari.KindBytestr:
		return "h'" + fmt.Sprintf("%x", lit.Raw().([]byte)) + "'"
	case ari.KindCBOR:
		return "h'" + fmt.Sprintf("%x", lit.Raw().([]byte)) + "'"
	case ari.KindTP:
		return lit.Raw().(time.Time).UTC().Format(time.RFC3339Nano)
	case ari.KindTD:
		return lit.Raw().(time.Duration).String()
	case ari.KindAriType:
		return lit.Raw().(ari.Kind).String()
	case ari.KindAC:
		ac, _ := ari.ACOf(lit)
		return "[" + joinValues(ac.Items) + "]"
	case ari.KindAM:
		am, _ := ari.AMOf(lit)
		parts := make([]string, len(am.Pairs))
		for i, p := range am.Pairs {
			parts[i] = Encode(p.Key) + ":" + Encode(p.Value)
		}
		return "{" + strings.Join(parts, ",") + "}"
	case ari.KindTBL:
		t, _ := ari.TBLOf(lit)
		rows := make([]string, len(t.Rows))
		for i, row := range t.Rows {
			rows[i] = "[" + joinValues(row) + "]"
		}
		return fmt.Sprintf("tbl(%d,[%s])", t.NumCols, strings.Join(rows, ","))
	case ari.KindExecSet:
		es, _ := ari.ExecSetOf(lit)
		return fmt.Sprintf("execset(%s,[%s])", Encode(es.Nonce), joinValues(es.Targets))
	case ari.KindRptSet:
		rs, _ := ari.RptSetOf(lit)
		reports := make([]string, len(rs.Reports))
		for i, rep := range rs.Reports {
			reports[i] = fmt.Sprintf("(%s,%s,[%s])", rep.RelativeTime, Encode(rep.Source), joinValues(rep.Items))
		}
		return fmt.Sprintf("rptset(%s,%s,[%s])", Encode(rs.Nonce), rs.ReferenceTime.UTC().Format(time.RFC3339Nano), strings.Join(reports, ","))
	default:
		return "?"
	}
}

func joinValues(vs []ari.Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = Encode(v)
	}
	return strings.Join(parts, ",")
}

func quote(s string) string {
	return strconv.Quote(s)
}

// Decode parses a best-effort subset of the ari: grammar: bare typed
// scalars (`ari:/KIND/body`) and parameterless object references
// (`ari://org/model/type/object`). Structured literals and parameterized
// references are not accepted; callers needing a full round trip should use
// aricbor instead, per the text codec's "informational only" contract.
func Decode(s string) (ari.Value, error) {
	if s == "ari:undefined" {
		return ari.Undefined, nil
	}
	if strings.HasPrefix(s, "ari://") {
		return decodeReference(strings.TrimPrefix(s, "ari://"))
	}
	if strings.HasPrefix(s, "ari:/") {
		return decodeLiteral(strings.TrimPrefix(s, "ari:/"))
	}
	return nil, fmt.Errorf("aritext: not an ari: URI: %q", s)
}

func decodeReference(rest string) (ari.Value, error) {
	if strings.ContainsAny(rest, "(") {
		return nil, fmt.Errorf("aritext: decode does not support parameterized references: %q", rest)
	}
	parts := strings.SplitN(rest, "/", 4)
	if len(parts) != 4 {
		return nil, fmt.Errorf("aritext: malformed reference path: %q", rest)
	}
	kind, err := parseKindName(parts[2])
	if err != nil {
		return nil, err
	}
	path := ari.ObjectPath{
		Org:    decodeSegment(parts[0]),
		Model:  decodeSegment(parts[1]),
		Type:   kind,
		Object: decodeSegment(parts[3]),
	}
	return ari.NewReference(path), nil
}

func decodeSegment(s string) ari.Segment {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ari.EnumSegment(n)
	}
	return ari.NameSegment(s)
}

func decodeLiteral(rest string) (ari.Value, error) {
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("aritext: malformed literal: %q", rest)
	}
	kindName, body := parts[0], parts[1]
	switch kindName {
	case "null", "NULL":
		return ari.Null, nil
	case "bool", "BOOL":
		b, err := strconv.ParseBool(body)
		if err != nil {
			return nil, fmt.Errorf("aritext: bad bool: %w", err)
		}
		return ari.Bool(b), nil
	case "int", "INT":
		i, err := strconv.ParseInt(body, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("aritext: bad int: %w", err)
		}
		return ari.Int(int32(i)), nil
	case "vast", "VAST":
		i, err := strconv.ParseInt(body, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("aritext: bad vast: %w", err)
		}
		return ari.Vast(i), nil
	case "uint", "UINT":
		u, err := strconv.ParseUint(body, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("aritext: bad uint: %w", err)
		}
		return ari.Uint(uint32(u)), nil
	case "uvast", "UVAST":
		u, err := strconv.ParseUint(body, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("aritext: bad uvast: %w", err)
		}
		return ari.Uvast(u), nil
	case "real64", "REAL64":
		f, err := strconv.ParseFloat(body, 64)
		if err != nil {
			return nil, fmt.Errorf("aritext: bad real64: %w", err)
		}
		return ari.Real64(f), nil
	case "real32", "REAL32":
		f, err := strconv.ParseFloat(body, 32)
		if err != nil {
			return nil, fmt.Errorf("aritext: bad real32: %w", err)
		}
		return ari.Real32(float32(f)), nil
	case "textstr", "TEXTSTR":
		s, err := strconv.Unquote(body)
		if err != nil {
			return nil, fmt.Errorf("aritext: bad textstr: %w", err)
		}
		return ari.Text(s), nil
	case "td", "TD":
		d, err := time.ParseDuration(body)
		if err != nil {
			return nil, fmt.Errorf("aritext: bad td: %w", err)
		}
		return ari.Duration(d), nil
	case "tp", "TP":
		t, err := time.Parse(time.RFC3339Nano, body)
		if err != nil {
			return nil, fmt.Errorf("aritext: bad tp: %w", err)
		}
		return ari.Timepoint(t), nil
	default:
		return nil, fmt.Errorf("aritext: decode unsupported for kind %q", kindName)
	}
}

func parseKindName(s string) (ari.Kind, error) {
	switch s {
	case "ident":
		return ari.KindIdent, nil
	case "typedef":
		return ari.KindTypedef, nil
	case "const":
		return ari.KindConst, nil
	case "var":
		return ari.KindVar, nil
	case "edd":
		return ari.KindEDD, nil
	case "ctrl":
		return ari.KindCtrl, nil
	case "oper":
		return ari.KindOper, nil
	case "sbr":
		return ari.KindSBR, nil
	case "tbr":
		return ari.KindTBR, nil
	case "namespace":
		return ari.KindNamespace, nil
	default:
		return 0, fmt.Errorf("aritext: unknown object-kind segment %q", s)
	}
}
