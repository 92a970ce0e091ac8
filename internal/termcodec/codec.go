// Package termcodec implements a fixed-width binary encoding of RDF
// terms: a tag byte followed by a 16-byte payload that is either an
// inlined value or a 128-bit xxh3 hash resolved through a dictionary.
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
	"github.com/zeebo/xxh3"
)

// Size is the fixed width (in bytes) of every encoded term: one type tag
// byte followed by a 16-byte payload (a 128-bit dictionary hash or an
// inlined value, zero-padded).
const Size = 17

// Tag identifies the concrete shape an EncodedTerm was produced from.
type Tag byte

const (
	TagDefaultGraph Tag = iota + 1
	TagNamedNode
	TagBlankNodeInline // 128-bit id stored verbatim, no dictionary entry
	TagBlankNodeHashed // arbitrary label, hashed and staged to the dictionary
	TagStringInline    // literal value, xsd:string, <=16 UTF-8 bytes
	TagStringHashed    // literal value, xsd:string, hashed
	TagLangString      // language-tagged literal, always hashed ("value@lang")
	TagTypedLiteral    // any other datatype, hashed ("value^^datatype")
	TagInteger         // xsd:integer, inline int64
	TagDecimal         // xsd:decimal, inline float64 bits
	TagFloat           // xsd:float, inline float32 bits
	TagDouble          // xsd:double, inline float64 bits
	TagBoolean         // xsd:boolean, inline byte
	TagDateTime        // xsd:dateTime, inline unix nanoseconds
	TagDate            // xsd:date, inline days since epoch
	TagTime            // xsd:time, inline nanoseconds since midnight UTC
)

// EncodedTerm is the fixed-width wire form of a Term.
type EncodedTerm [Size]byte

func (e EncodedTerm) Tag() Tag { return Tag(e[0]) }

// Payload returns the 16-byte body following the tag.
func (e EncodedTerm) Payload() []byte { return e[1:] }

// ErrHashCollision is returned when a string hashes to a value already
// bound, in the dictionary, to a different string.
var ErrHashCollision = fmt.Errorf("termcodec: hash collision")

// DictWriter stages (hash, string) pairs produced while encoding a term.
// Implementations (internal/dict) must treat Put as idempotent for an
// identical pair and return ErrHashCollision otherwise.
type DictWriter interface {
	Put(hash [16]byte, value string) error
}

// DictReader resolves a hash back to the lexical string it was produced
// from. Implementations must report ok=false, not a zero value, for a
// hash absent from the dictionary.
type DictReader interface {
	Get(hash [16]byte) (value string, ok bool)
}

// Hash128 computes the store's 128-bit string hash (xxh3).
func Hash128(s string) [16]byte {
	h := xxh3.Hash128([]byte(s))
	var out [16]byte
	binary.BigEndian.PutUint64(out[0:8], h.Hi)
	binary.BigEndian.PutUint64(out[8:16], h.Lo)
	return out
}

const maxInlineStringBytes = 16

// EncodeTerm encodes term, staging any dictionary entry the encoding
// needs into w.
func EncodeTerm(term rdf.Term, w DictWriter) (EncodedTerm, error) {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return encodeNamedNode(t, w)
	case *rdf.BlankNode:
		return encodeBlankNode(t, w)
	case *rdf.Literal:
		return encodeLiteral(t, w)
	case *rdf.DefaultGraph:
		return encodeDefaultGraph(), nil
	default:
		return EncodedTerm{}, fmt.Errorf("termcodec: unknown term type %T", term)
	}
}

func stageHash(w DictWriter, s string) ([16]byte, error) {
	h := Hash128(s)
	if err := w.Put(h, s); err != nil {
		return h, err
	}
	return h, nil
}

func encodeNamedNode(n *rdf.NamedNode, w DictWriter) (EncodedTerm, error) {
	var e EncodedTerm
	e[0] = byte(TagNamedNode)
	h, err := stageHash(w, n.IRI)
	if err != nil {
		return e, err
	}
	copy(e[1:], h[:])
	return e, nil
}

func encodeBlankNode(b *rdf.BlankNode, w DictWriter) (EncodedTerm, error) {
	var e EncodedTerm
	if raw, ok := decodeHex128(b.ID); ok {
		e[0] = byte(TagBlankNodeInline)
		copy(e[1:], raw[:])
		return e, nil
	}
	e[0] = byte(TagBlankNodeHashed)
	h, err := stageHash(w, b.ID)
	if err != nil {
		return e, err
	}
	copy(e[1:], h[:])
	return e, nil
}

// decodeHex128 accepts a 32-character hex string (a 128-bit blank node
// id) and returns its raw 16 bytes.
func decodeHex128(id string) ([16]byte, bool) {
	var out [16]byte
	if len(id) != 32 {
		return out, false
	}
	raw, err := hex.DecodeString(id)
	if err != nil {
		return out, false
	}
	copy(out[:], raw)
	return out, true
}

func encodeLiteral(l *rdf.Literal, w DictWriter) (EncodedTerm, error) {
	if l.Datatype != nil {
		switch l.Datatype.IRI {
		case rdf.XSDInteger.IRI:
			return encodeInteger(l)
		case rdf.XSDDecimal.IRI:
			return encodeDecimal(l)
		case rdf.XSDFloat.IRI:
			return encodeFloat(l)
		case rdf.XSDDouble.IRI:
			return encodeDouble(l)
		case rdf.XSDBoolean.IRI:
			return encodeBoolean(l)
		case rdf.XSDDateTime.IRI:
			return encodeDateTime(l)
		case rdf.XSDDate.IRI:
			return encodeDate(l)
		case rdf.XSDTime.IRI:
			return encodeTime(l)
		default:
			return encodeTypedLiteral(l, w)
		}
	}
	if l.Language != "" {
		return encodeLangString(l, w)
	}
	return encodeString(l, w)
}

func encodeString(l *rdf.Literal, w DictWriter) (EncodedTerm, error) {
	var e EncodedTerm
	if len(l.Value) <= maxInlineStringBytes {
		e[0] = byte(TagStringInline)
		copy(e[1:], l.Value)
		return e, nil
	}
	e[0] = byte(TagStringHashed)
	h, err := stageHash(w, l.Value)
	if err != nil {
		return e, err
	}
	copy(e[1:], h[:])
	return e, nil
}

func encodeLangString(l *rdf.Literal, w DictWriter) (EncodedTerm, error) {
	var e EncodedTerm
	e[0] = byte(TagLangString)
	combined := l.Value + "@" + strings.ToLower(l.Language)
	h, err := stageHash(w, combined)
	if err != nil {
		return e, err
	}
	copy(e[1:], h[:])
	return e, nil
}

func encodeTypedLiteral(l *rdf.Literal, w DictWriter) (EncodedTerm, error) {
	var e EncodedTerm
	e[0] = byte(TagTypedLiteral)
	combined := l.Value + "^^" + l.Datatype.IRI
	h, err := stageHash(w, combined)
	if err != nil {
		return e, err
	}
	copy(e[1:], h[:])
	return e, nil
}

func encodeInteger(l *rdf.Literal) (EncodedTerm, error) {
	var e EncodedTerm
	e[0] = byte(TagInteger)
	v, err := strconv.ParseInt(strings.TrimSpace(l.Value), 10, 64)
	if err != nil {
		return e, fmt.Errorf("termcodec: invalid xsd:integer %q: %w", l.Value, err)
	}
	binary.BigEndian.PutUint64(e[1:9], uint64(v)) // #nosec G115 -- intentional bit-pattern conversion
	return e, nil
}

func encodeDecimal(l *rdf.Literal) (EncodedTerm, error) {
	var e EncodedTerm
	e[0] = byte(TagDecimal)
	v, err := strconv.ParseFloat(strings.TrimSpace(l.Value), 64)
	if err != nil {
		return e, fmt.Errorf("termcodec: invalid xsd:decimal %q: %w", l.Value, err)
	}
	binary.BigEndian.PutUint64(e[1:9], math.Float64bits(v))
	return e, nil
}

func encodeFloat(l *rdf.Literal) (EncodedTerm, error) {
	var e EncodedTerm
	e[0] = byte(TagFloat)
	v, err := strconv.ParseFloat(strings.TrimSpace(l.Value), 32)
	if err != nil {
		return e, fmt.Errorf("termcodec: invalid xsd:float %q: %w", l.Value, err)
	}
	binary.BigEndian.PutUint32(e[1:5], math.Float32bits(float32(v)))
	return e, nil
}

func encodeDouble(l *rdf.Literal) (EncodedTerm, error) {
	var e EncodedTerm
	e[0] = byte(TagDouble)
	v, err := strconv.ParseFloat(strings.TrimSpace(l.Value), 64)
	if err != nil {
		return e, fmt.Errorf("termcodec: invalid xsd:double %q: %w", l.Value, err)
	}
	binary.BigEndian.PutUint64(e[1:9], math.Float64bits(v))
	return e, nil
}

func encodeBoolean(l *rdf.Literal) (EncodedTerm, error) {
	var e EncodedTerm
	e[0] = byte(TagBoolean)
	v, err := strconv.ParseBool(strings.TrimSpace(l.Value))
	if err != nil {
		return e, fmt.Errorf("termcodec: invalid xsd:boolean %q: %w", l.Value, err)
	}
	if v {
		e[1] = 1
	}
	return e, nil
}

func encodeDateTime(l *rdf.Literal) (EncodedTerm, error) {
	var e EncodedTerm
	e[0] = byte(TagDateTime)
	t, err := parseDateTime(l.Value)
	if err != nil {
		return e, err
	}
	binary.BigEndian.PutUint64(e[1:9], uint64(t.UnixNano())) // #nosec G115 -- intentional
	return e, nil
}

func parseDateTime(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", trimmed); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("termcodec: invalid xsd:dateTime %q", value)
}

func encodeDate(l *rdf.Literal) (EncodedTerm, error) {
	var e EncodedTerm
	e[0] = byte(TagDate)
	t, err := time.Parse("2006-01-02", strings.TrimSpace(l.Value))
	if err != nil {
		return e, fmt.Errorf("termcodec: invalid xsd:date %q: %w", l.Value, err)
	}
	days := t.Unix() / 86400
	binary.BigEndian.PutUint64(e[1:9], uint64(days)) // #nosec G115 -- intentional
	return e, nil
}

func encodeTime(l *rdf.Literal) (EncodedTerm, error) {
	var e EncodedTerm
	e[0] = byte(TagTime)
	t, err := time.Parse("15:04:05", strings.TrimSpace(l.Value))
	if err != nil {
		return e, fmt.Errorf("termcodec: invalid xsd:time %q: %w", l.Value, err)
	}
	nanosOfDay := ((t.Hour()*60+t.Minute())*60+t.Second())*1e9 + t.Nanosecond()
	binary.BigEndian.PutUint64(e[1:9], uint64(nanosOfDay)) // #nosec G115 -- intentional
	return e, nil
}

func encodeDefaultGraph() EncodedTerm {
	var e EncodedTerm
	e[0] = byte(TagDefaultGraph)
	return e
}
