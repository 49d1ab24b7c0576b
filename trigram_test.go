package parahash

import (
	"math/rand/v2"
	"testing"
)

// trigramStream generates n mostly-distinct lowercase strings built by
// chaining random trigrams, standing in for a string-key workload
// generator as a small self-contained test fixture.
func trigramStream(rng *rand.Rand, n int) []string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz"
	trigram := func() string {
		b := make([]byte, 3)
		for i := range b {
			b[i] = alphabet[rng.IntN(len(alphabet))]
		}
		return string(b)
	}
	out := make([]string, n)
	for i := range out {
		// Two to four trigrams per key keeps most keys distinct while
		// still producing the occasional collision a real workload
		// would see.
		parts := 2 + rng.IntN(3)
		s := ""
		for p := 0; p < parts; p++ {
			s += trigram()
		}
		out[i] = s
	}
	return out
}

// TestMap_TrigramStringKeys verifies that for string keys produced from
// a trigram generator, Size() equals the unique key count in the input
// stream. BenchmarkMap_TrigramStringKeys below exercises a larger run as
// a throughput measurement instead.
func TestMap_TrigramStringKeys(t *testing.T) {
	type value = [4]uint64

	rng := rand.New(rand.NewPCG(1, 2))
	const n = 50000
	keys := trigramStream(rng, n)

	unique := map[string]bool{}
	for _, k := range keys {
		unique[k] = true
	}

	m := NewMap[string, value](WithIndirect[string, value]())
	for i, k := range keys {
		v := value{uint64(i)}
		m.Insert(k, v)
	}

	if got, want := m.Size(), len(unique); got != want {
		t.Fatalf("Size() = %d, want %d (unique key count in the input stream)", got, want)
	}
	for k := range unique {
		if _, ok := m.Find(k); !ok {
			t.Fatalf("Find(%q) absent after insert", k)
		}
	}
}

func BenchmarkMap_TrigramStringKeys(b *testing.B) {
	type value = [4]uint64
	rng := rand.New(rand.NewPCG(1, 2))
	keys := trigramStream(rng, 200000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m := NewMap[string, value](WithIndirect[string, value]())
		for j, k := range keys {
			m.Insert(k, value{uint64(j)})
		}
	}
}
