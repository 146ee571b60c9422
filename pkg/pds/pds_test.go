package pds

import "testing"

func TestParseDimensionless(t *testing.T) {
	for _, in := range []string{"1", "dimensionless", "", "  "} {
		p, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", in, err)
		}
		if got := p.CanonicalString(); got != "1" {
			t.Errorf("Parse(%q).CanonicalString() = %q, want %q", in, got, "1")
		}
	}
}

func TestParseSimpleBase(t *testing.T) {
	p, err := Parse("USD")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := p.CanonicalString(); got != "USD^1" {
		t.Errorf("got %q, want USD^1", got)
	}
}

func TestParseCompound(t *testing.T) {
	p, err := Parse("L^1*T^-2*M^1")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := p.CanonicalString(); got != "L^1*M^1*T^-2" {
		t.Errorf("got %q, want L^1*M^1*T^-2 (SI order)", got)
	}
}

func TestParseWhitespaceSeparated(t *testing.T) {
	p, err := Parse("L T^-1")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := p.CanonicalString(); got != "L^1*T^-1" {
		t.Errorf("got %q, want L^1*T^-1", got)
	}
}

func TestMultiplyDivide(t *testing.T) {
	l, _ := Parse("L^1")
	tm, _ := Parse("T^1")
	v := l.Divide(tm)
	if got := v.CanonicalString(); got != "L^1*T^-1" {
		t.Errorf("got %q, want L^1*T^-1", got)
	}

	m, _ := Parse("M^1")
	l2, _ := Parse("L^2")
	t2, _ := Parse("T^2")
	e := m.Multiply(l2).Divide(t2)
	if got := e.CanonicalString(); got != "L^2*M^1*T^-2" {
		t.Errorf("got %q, want L^2*M^1*T^-2", got)
	}
}

func TestDivideBySelfIsDimensionless(t *testing.T) {
	a, _ := Parse("USD^2*L^-1")
	if got := a.Divide(a).CanonicalString(); got != "1" {
		t.Errorf("a/a = %q, want 1", got)
	}
}

func TestMultiplyByDimensionlessIsIdentity(t *testing.T) {
	a, _ := Parse("USD")
	one := Dimensionless()
	if got := a.Multiply(one); !got.Equals(a) {
		t.Errorf("a*1 = %q, want %q", got.CanonicalString(), a.CanonicalString())
	}
}

func TestCustomBaseAndSIBaseCoexist(t *testing.T) {
	p, err := Parse("USD*L^-1")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := p.CanonicalString(); got != "L^-1*USD^1" {
		t.Errorf("got %q, want L^-1*USD^1 (SI before custom)", got)
	}
}

func TestMalformedExponentFails(t *testing.T) {
	if _, err := Parse("L^x"); err == nil {
		t.Error("expected error for malformed exponent")
	}
}
