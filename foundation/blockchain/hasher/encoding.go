package hasher

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"unicode"
)

// Encoding defines how an ordered set of fields is turned into the bytes
// that get digested.
type Encoding string

// Set of supported encodings.
const (

	// EncodingFramed writes every field with an 8 byte big endian length
	// prefix. Lists write their element count followed by each element
	// framed the same way. Different field splits never share an encoding.
	EncodingFramed Encoding = "framed"

	// EncodingLegacy concatenates the string form of each field with no
	// separators, rendering lists like ['a', 'b']. It reproduces hashes
	// produced by the earlier ledger and is ambiguous: "1"+"23" and "12"+"3"
	// encode to the same bytes.
	EncodingLegacy Encoding = "legacy"
)

// ParseEncoding validates the encoding name.
func ParseEncoding(s string) (Encoding, error) {
	switch enc := Encoding(s); enc {
	case EncodingFramed, EncodingLegacy:
		return enc, nil
	case "":
		return EncodingFramed, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, s)
}

// Encode returns the byte representation of the fields. An unknown encoding
// is treated as framed.
func (enc Encoding) Encode(fields ...Field) []byte {
	if enc == EncodingLegacy {
		return encodeLegacy(fields)
	}
	return encodeFramed(fields)
}

// =============================================================================

// Field is a single value that takes part in a digest.
type Field struct {
	text   string
	list   []string
	isList bool
}

// Text constructs a string field.
func Text(s string) Field {
	return Field{text: s}
}

// Uint constructs a field from the decimal form of the value.
func Uint(v uint64) Field {
	return Field{text: strconv.FormatUint(v, 10)}
}

// Int constructs a field from the decimal form of the big integer. A nil
// value is encoded as zero.
func Int(v *big.Int) Field {
	if v == nil {
		return Field{text: "0"}
	}
	return Field{text: v.String()}
}

// List constructs a field from an ordered set of strings.
func List(values []string) Field {
	return Field{list: values, isList: true}
}

// =============================================================================

func encodeFramed(fields []Field) []byte {
	var buf []byte

	for _, f := range fields {
		if !f.isList {
			buf = appendFrame(buf, f.text)
			continue
		}

		buf = binary.BigEndian.AppendUint64(buf, uint64(len(f.list)))
		for _, v := range f.list {
			buf = appendFrame(buf, v)
		}
	}

	return buf
}

func appendFrame(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint64(buf, uint64(len(s)))
	return append(buf, s...)
}

func encodeLegacy(fields []Field) []byte {
	var b strings.Builder

	for _, f := range fields {
		if !f.isList {
			b.WriteString(f.text)
			continue
		}

		b.WriteByte('[')
		for i, v := range f.list {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(quote(v))
		}
		b.WriteByte(']')
	}

	return []byte(b.String())
}

// quote renders a string the way the earlier ledger printed list elements:
// single quotes unless the value holds a single quote and no double quote.
// Characters that are not printable are written as \xNN, \uNNNN or
// \UNNNNNNNN. Printability follows the unicode tables of the Go release, which
// can disagree with the earlier ledger for code points assigned after it.
func quote(s string) string {
	q := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		q = '"'
	}

	var b strings.Builder
	b.WriteByte(q)
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == rune(q):
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r >= ' ' && r < 0x7f:
			b.WriteRune(r)
		case r >= 0x80 && unicode.IsPrint(r):
			b.WriteRune(r)
		case r < 0x100:
			fmt.Fprintf(&b, `\x%02x`, r)
		case r < 0x10000:
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			fmt.Fprintf(&b, `\U%08x`, r)
		}
	}
	b.WriteByte(q)

	return b.String()
}
