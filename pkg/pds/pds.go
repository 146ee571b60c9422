// Package pds implements the Physical Dimension Signature algebra: a free
// integer-exponent abelian group over symbolic base dimensions, used as a
// refinement type by the admissibility checker.
//
// Grounded on original_source/src/discos/hir/phys.py.
package pds

import (
	"sort"
	"strconv"
	"strings"

	"github.com/hirforge/hircompile/pkg/herr"
)

// siBaseOrder lists the SI base dimensions in their canonical-string ordering.
// Any other base symbol (e.g. "USD") is a first-class base, ordered
// lexicographically after these.
var siBaseOrder = []string{"L", "M", "T", "I", "Theta", "N", "J"}

var siBaseIndex = func() map[string]int {
	m := make(map[string]int, len(siBaseOrder))
	for i, b := range siBaseOrder {
		m[b] = i
	}
	return m
}()

// PDS is a total function from base dimension symbols to nonzero integer
// exponents; absence means exponent zero. The zero value is not valid — use
// Dimensionless or Parse to construct one.
type PDS struct {
	exponents map[string]int
}

// Dimensionless returns the empty PDS (the multiplicative identity).
func Dimensionless() PDS {
	return PDS{exponents: map[string]int{}}
}

// Parse accepts the literal "1" or "dimensionless" (dimensionless), a single
// alphanumeric identifier (that base with exponent 1), or a "*"- or
// whitespace-separated list of B / B^k terms, summed per base with
// zero-exponent removal. Parsing is total over this grammar.
func Parse(text string) (PDS, error) {
	t := strings.TrimSpace(text)
	if t == "" || t == "1" || t == "dimensionless" {
		return Dimensionless(), nil
	}

	if isSimpleIdentifier(t) {
		return PDS{exponents: map[string]int{t: 1}}, nil
	}

	var parts []string
	if strings.ContainsAny(t, "* ") {
		parts = strings.Fields(strings.ReplaceAll(t, "*", " "))
	} else {
		parts = []string{t}
	}

	exps := map[string]int{}
	for _, p := range parts {
		if p == "" {
			continue
		}
		base := p
		power := 1
		if idx := strings.Index(p, "^"); idx >= 0 {
			base = strings.TrimSpace(p[:idx])
			powStr := strings.TrimSpace(p[idx+1:])
			v, err := strconv.Atoi(powStr)
			if err != nil {
				return PDS{}, herr.New(herr.CodePDSParse, "invalid exponent in PDS term", map[string]any{
					"text": text,
					"term": p,
				})
			}
			power = v
		}
		if base == "" {
			return PDS{}, herr.New(herr.CodePDSParse, "empty base symbol in PDS term", map[string]any{
				"text": text,
				"term": p,
			})
		}
		exps[base] += power
	}
	stripZeros(exps)
	return PDS{exponents: exps}, nil
}

// isSimpleIdentifier reports whether t is a single alphanumeric (plus
// '_'/'-'/'/') identifier with no operator syntax — treated as a custom base
// with exponent 1 (e.g. "USD").
func isSimpleIdentifier(t string) bool {
	if strings.ContainsAny(t, "^* ") {
		return false
	}
	for _, ch := range t {
		if !(ch == '_' || ch == '-' || ch == '/' ||
			(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')) {
			return false
		}
	}
	return true
}

func stripZeros(m map[string]int) {
	for k, v := range m {
		if v == 0 {
			delete(m, k)
		}
	}
}

func cloneExps(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Multiply returns the product of p and o (exponents summed, zeros removed).
func (p PDS) Multiply(o PDS) PDS {
	exps := cloneExps(p.exponents)
	for k, v := range o.exponents {
		exps[k] += v
	}
	stripZeros(exps)
	return PDS{exponents: exps}
}

// Divide returns the quotient of p and o (exponents subtracted, zeros
// removed). Divide never signals unless an operand is malformed, which
// cannot occur once constructed via Parse/Dimensionless/Multiply/Divide.
func (p PDS) Divide(o PDS) PDS {
	exps := cloneExps(p.exponents)
	for k, v := range o.exponents {
		exps[k] -= v
	}
	stripZeros(exps)
	return PDS{exponents: exps}
}

// Equals reports structural equality of the two exponent maps.
func (p PDS) Equals(o PDS) bool {
	if len(p.exponents) != len(o.exponents) {
		return false
	}
	for k, v := range p.exponents {
		if ov, ok := o.exponents[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// IsDimensionless reports whether p has no nonzero exponents.
func (p PDS) IsDimensionless() bool {
	return len(p.exponents) == 0
}

// CanonicalString renders p per spec §3: SI bases first in their fixed
// order, then remaining bases lexicographically, each as "B^k", joined by
// "*"; the empty map renders as "1".
func (p PDS) CanonicalString() string {
	if len(p.exponents) == 0 {
		return "1"
	}

	var si, rest []string
	for k := range p.exponents {
		if _, ok := siBaseIndex[k]; ok {
			si = append(si, k)
		} else {
			rest = append(rest, k)
		}
	}
	sort.Slice(si, func(i, j int) bool { return siBaseIndex[si[i]] < siBaseIndex[si[j]] })
	sort.Strings(rest)

	ordered := append(si, rest...)
	parts := make([]string, 0, len(ordered))
	for _, k := range ordered {
		parts = append(parts, k+"^"+strconv.Itoa(p.exponents[k]))
	}
	return strings.Join(parts, "*")
}
