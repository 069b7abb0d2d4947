package bloom

import "testing"

func TestAddAndPossiblyContains(t *testing.T) {
	f := New(3, 0.01)
	f.Add([]byte("a"))
	f.Add([]byte("b"))
	f.Add([]byte("c"))

	for _, k := range []string{"a", "b", "c"} {
		if !f.PossiblyContains([]byte(k)) {
			t.Errorf("PossiblyContains(%q) = false, want true", k)
		}
	}
}

func TestPossiblyContainsFalseNegativeNeverHappens(t *testing.T) {
	f := New(100, 0.01)
	keys := make([]string, 100)
	for i := range keys {
		keys[i] = string(rune('a' + i%26))
		f.Add([]byte(keys[i]))
	}
	for _, k := range keys {
		if !f.PossiblyContains([]byte(k)) {
			t.Fatalf("PossiblyContains(%q) = false, want true (filters must not false-negative)", k)
		}
	}
}

func TestEmptyFilterAlwaysFalse(t *testing.T) {
	f := &Filter{}
	if f.PossiblyContains([]byte("anything")) {
		t.Error("empty filter (m=0) should always return false")
	}
}

func TestZeroCountUsesMinimum(t *testing.T) {
	f := New(0, 0.01)
	if f.numBits == 0 {
		t.Fatal("filter sized for n<=0 should still have bits")
	}
	withMin := New(MinElements, 0.01)
	if f.numBits != withMin.numBits || f.numHashes != withMin.numHashes {
		t.Errorf("n<=0 should size identically to MinElements")
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	f := New(50, 0.01)
	for i := 0; i < 50; i++ {
		f.Add([]byte{byte(i)})
	}

	buf := f.Marshal()
	got, off, err := Unmarshal(buf, 0)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if off != len(buf) {
		t.Errorf("offset = %d, want %d", off, len(buf))
	}
	if got.numHashes != f.numHashes || got.numBits != f.numBits {
		t.Errorf("got {%d,%d}, want {%d,%d}", got.numHashes, got.numBits, f.numHashes, f.numBits)
	}
	for i := 0; i < 50; i++ {
		if !got.PossiblyContains([]byte{byte(i)}) {
			t.Errorf("deserialized filter missing byte %d", i)
		}
	}
}

func TestDefaultFalsePositiveRateUsedWhenZero(t *testing.T) {
	a := New(10, 0)
	b := New(10, DefaultFalsePositiveRate)
	if a.numBits != b.numBits || a.numHashes != b.numHashes {
		t.Error("p<=0 should default to DefaultFalsePositiveRate")
	}
}
