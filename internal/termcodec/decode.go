package termcodec

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/loomdb/loomdb/pkg/rdf"
)

// ErrUnresolvedHash is returned when DecodeTerm needs a dictionary entry
// that DictReader does not have.
var ErrUnresolvedHash = fmt.Errorf("termcodec: unresolved dictionary hash")

// DecodeTerm reverses EncodeTerm, resolving hashed payloads through r.
func DecodeTerm(e EncodedTerm, r DictReader) (rdf.Term, error) {
	switch e.Tag() {
	case TagDefaultGraph:
		return rdf.NewDefaultGraph(), nil
	case TagNamedNode:
		s, err := resolve(e, r)
		if err != nil {
			return nil, err
		}
		return rdf.NewNamedNode(s), nil
	case TagBlankNodeInline:
		return rdf.NewBlankNode(hex.EncodeToString(e.Payload()[:16])), nil
	case TagBlankNodeHashed:
		s, err := resolve(e, r)
		if err != nil {
			return nil, err
		}
		return rdf.NewBlankNode(s), nil
	case TagStringInline:
		return rdf.NewLiteral(inlineString(e)), nil
	case TagStringHashed:
		s, err := resolve(e, r)
		if err != nil {
			return nil, err
		}
		return rdf.NewLiteral(s), nil
	case TagLangString:
		combined, err := resolve(e, r)
		if err != nil {
			return nil, err
		}
		value, lang, ok := splitLast(combined, '@')
		if !ok {
			return nil, fmt.Errorf("termcodec: malformed language string %q", combined)
		}
		return rdf.NewLiteralWithLanguage(value, lang), nil
	case TagTypedLiteral:
		combined, err := resolve(e, r)
		if err != nil {
			return nil, err
		}
		value, dt, ok := splitLastRunes(combined, "^^")
		if !ok {
			return nil, fmt.Errorf("termcodec: malformed typed literal %q", combined)
		}
		return rdf.NewLiteralWithDatatype(value, rdf.NewNamedNode(dt)), nil
	case TagInteger:
		v := int64(binary.BigEndian.Uint64(e[1:9])) // #nosec G115 -- inverse of encodeInteger
		return rdf.NewLiteralWithDatatype(strconv.FormatInt(v, 10), rdf.XSDInteger), nil
	case TagDecimal:
		v := math.Float64frombits(binary.BigEndian.Uint64(e[1:9]))
		return rdf.NewLiteralWithDatatype(formatDecimal(v), rdf.XSDDecimal), nil
	case TagFloat:
		v := math.Float32frombits(binary.BigEndian.Uint32(e[1:5]))
		return rdf.NewLiteralWithDatatype(formatFloat32(v), rdf.XSDFloat), nil
	case TagDouble:
		v := math.Float64frombits(binary.BigEndian.Uint64(e[1:9]))
		return rdf.NewLiteralWithDatatype(formatDecimal(v), rdf.XSDDouble), nil
	case TagBoolean:
		return rdf.NewLiteralWithDatatype(strconv.FormatBool(e[1] != 0), rdf.XSDBoolean), nil
	case TagDateTime:
		nanos := int64(binary.BigEndian.Uint64(e[1:9])) // #nosec G115 -- inverse of encodeDateTime
		t := time.Unix(0, nanos).UTC()
		return rdf.NewLiteralWithDatatype(t.Format(time.RFC3339Nano), rdf.XSDDateTime), nil
	case TagDate:
		days := int64(binary.BigEndian.Uint64(e[1:9])) // #nosec G115 -- inverse of encodeDate
		t := time.Unix(days*86400, 0).UTC()
		return rdf.NewLiteralWithDatatype(t.Format("2006-01-02"), rdf.XSDDate), nil
	case TagTime:
		nanosOfDay := int64(binary.BigEndian.Uint64(e[1:9])) // #nosec G115 -- inverse of encodeTime
		t := time.Unix(0, nanosOfDay).UTC()
		return rdf.NewLiteralWithDatatype(t.Format("15:04:05"), rdf.XSDTime), nil
	default:
		return nil, fmt.Errorf("termcodec: unknown tag %d", e.Tag())
	}
}

func resolve(e EncodedTerm, r DictReader) (string, error) {
	var h [16]byte
	copy(h[:], e.Payload())
	s, ok := r.Get(h)
	if !ok {
		return "", ErrUnresolvedHash
	}
	return s, nil
}

func inlineString(e EncodedTerm) string {
	payload := e.Payload()
	end := len(payload)
	for end > 0 && payload[end-1] == 0 {
		end--
	}
	return string(payload[:end])
}

// splitLast splits "value@lang" on the last '@', since the value itself
// may legally contain '@'.
func splitLast(s string, sep byte) (value, rest string, ok bool) {
	idx := strings.LastIndexByte(s, sep)
	if idx < 0 {
		return "", "", false
	}
	return s[:idx], s[idx+1:], true
}

func splitLastRunes(s, sep string) (value, rest string, ok bool) {
	idx := strings.LastIndex(s, sep)
	if idx < 0 {
		return "", "", false
	}
	return s[:idx], s[idx+len(sep):], true
}

func formatDecimal(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	str := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(str, ".eE") {
		str += ".0"
	}
	return str
}

func formatFloat32(v float32) string {
	if v == float32(math.Trunc(float64(v))) && !math.IsInf(float64(v), 0) && math.Abs(float64(v)) < 1e7 {
		return strconv.FormatFloat(float64(v), 'f', 1, 32)
	}
	str := strconv.FormatFloat(float64(v), 'g', -1, 32)
	if !strings.ContainsAny(str, ".eE") {
		str += ".0"
	}
	return str
}
