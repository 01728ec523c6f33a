package money

import (
	"encoding/json"
	"testing"
)

func TestAddSub(t *testing.T) {
	a := New(10.10)
	b := New(0.20)
	if got := a.Add(b); !got.Equal(New(10.30)) {
		t.Errorf("Add() = %s, want 10.30", got)
	}
	if got := a.Sub(b); !got.Equal(New(9.90)) {
		t.Errorf("Sub() = %s, want 9.90", got)
	}
}

func TestNegativeBalance(t *testing.T) {
	m := Zero().Sub(New(5))
	if !m.IsNegative() {
		t.Error("expected negative balance")
	}
	if m.String() != "-5.00" {
		t.Errorf("String() = %s, want -5.00", m.String())
	}
}

func TestJSONRoundTrip(t *testing.T) {
	m := New(12.34)
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out Money
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !m.Equal(out) {
		t.Errorf("round trip: got %s, want %s", out, m)
	}
}

func TestFloatAccumulation(t *testing.T) {
	// 0.1 累加十次必须精确等于 1，二进制浮点做不到。
	sum := Zero()
	for i := 0; i < 10; i++ {
		sum = sum.Add(New(0.1))
	}
	if !sum.Equal(New(1)) {
		t.Errorf("sum = %s, want 1.00", sum)
	}
}
