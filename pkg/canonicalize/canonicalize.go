// Package canonicalize produces a byte-exact serialization of any value built
// from maps (string keys), ordered sequences, strings, integers, and doubles,
// such that two values with equal logical content produce equal bytes —
// and the hid_struct content digest derived from it.
//
// Style and structure grounded on the teacher's RFC 8785 implementation
// (pkg/canonicalize/jcs.go) and the CSNF value-walk of pkg/kernel/csnf.go; this
// package diverges from both where spec §4.2 requires different float and
// string handling than either RFC 8785 or CSNF chooses.
package canonicalize

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// Canonical returns the canonical byte form of v per spec §4.2's five rules:
// sorted map keys, preserved sequence order, 17-significant-digit float
// rendering (NaN/Inf as JSON strings), no insignificant whitespace, and
// unescaped UTF-8.
func Canonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Bytes is an alias for Canonical kept for call-site readability at HIR
// digest sites.
func Bytes(v any) ([]byte, error) { return Canonical(v) }

// HidStruct returns the lowercase hex SHA-256 digest of v's canonical form —
// the unforgeable content identity described in spec §4.2.
func HidStruct(v any) (string, error) {
	b, err := Canonical(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashBytes returns the lowercase hex SHA-256 digest of raw bytes.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func writeValue(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case string:
		return writeString(buf, t)
	case int:
		buf.WriteString(strconv.FormatInt(int64(t), 10))
		return nil
	case int64:
		buf.WriteString(strconv.FormatInt(t, 10))
		return nil
	case float64:
		return writeFloat(buf, t)
	case float32:
		return writeFloat(buf, float64(t))
	case map[string]any:
		return writeMap(buf, t)
	case []any:
		return writeSlice(buf, t)
	default:
		return fmt.Errorf("canonicalize: unsupported value type %T", v)
	}
}

// writeFloat renders finite doubles with 17 significant digits (the shortest
// representation that is unique across all float64 values), and NaN/±Inf as
// quoted JSON string sentinels, per spec §4.2 rule 3.
func writeFloat(buf *bytes.Buffer, f float64) error {
	switch {
	case math.IsNaN(f):
		buf.WriteString(`"NaN"`)
	case math.IsInf(f, 1):
		buf.WriteString(`"Inf"`)
	case math.IsInf(f, -1):
		buf.WriteString(`"-Inf"`)
	default:
		buf.WriteString(strconv.FormatFloat(f, 'g', 17, 64))
	}
	return nil
}

// writeString NFC-normalizes then JSON-encodes a string with HTML escaping
// disabled, so non-ASCII bytes pass through unescaped (spec §4.2 rules 4-5).
// NFC normalization (golang.org/x/text/unicode/norm, as used by the teacher's
// CSNF string profile in pkg/kernel/csnf_profiles.go) guarantees two
// byte-distinct-but-equivalent Unicode strings hash identically.
func writeString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return fmt.Errorf("canonicalize: string encode failed: %w", err)
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'}))
	return nil
}

func writeMap(buf *bytes.Buffer, m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeValue(buf, m[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeSlice(buf *bytes.Buffer, s []any) error {
	buf.WriteByte('[')
	for i, elem := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeValue(buf, elem); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}
