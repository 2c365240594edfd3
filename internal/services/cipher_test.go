package services

import (
	"math/rand/v2"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransformRoundTrip(t *testing.T) {
	inputs := []string{"A", "Z", "HARSH", "PRIYA", "ABCDEFGHIJKLMNOPQRSTUVWXYZ"}
	for _, tr := range Transforms() {
		t.Run(tr.Label(), func(t *testing.T) {
			for _, in := range inputs {
				encoded := tr.Encode(in)
				decoded, err := tr.Decode(encoded)
				require.NoError(t, err, "decode %q", encoded)
				require.Equal(t, in, decoded)
			}
		})
	}
}

func TestTransformDecodeRejectsGarbage(t *testing.T) {
	for _, tr := range Transforms() {
		if _, err := tr.Decode("???!!!"); err == nil {
			t.Fatalf("%s decoded garbage without error", tr.Label())
		}
		if _, err := tr.Decode(""); err == nil {
			t.Fatalf("%s decoded empty input without error", tr.Label())
		}
	}
}

func sortedLetters(s string) string {
	b := strings.Split(s, "")
	sort.Strings(b)
	return strings.Join(b, "")
}

func TestNewPuzzleIsDecodableAnagram(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	names := []string{"Harsh Agarwal", "priya", "Jean-Luc", "Bo", "ANNA"}
	for _, name := range names {
		for i := 0; i < 20; i++ {
			p, err := NewPuzzle(name, rng)
			require.NoError(t, err)

			// The encoded text must decode back to the scrambled letters
			// under the advertised transform.
			var tr Transform
			for _, cand := range Transforms() {
				if cand.Label() == p.Label {
					tr = cand
				}
			}
			require.NotNil(t, tr, "puzzle labeled with unknown transform %q", p.Label)
			decoded, err := tr.Decode(p.Encoded)
			require.NoError(t, err)
			require.Equal(t, p.Letters, decoded)

			// And the scrambled letters are an anagram of the name.
			require.Equal(t, sortedLetters(NormalizeName(name)), sortedLetters(p.Letters))
		}
	}
}

func TestNewPuzzleScramblesWhenPossible(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 50; i++ {
		p, err := NewPuzzle("Harsh", rng)
		if err != nil {
			t.Fatalf("NewPuzzle error: %v", err)
		}
		if p.Letters == "HARSH" {
			t.Fatalf("letters came back unscrambled")
		}
	}
}

func TestNewPuzzleRejectsLetterlessName(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	if _, err := NewPuzzle("1234 !!", rng); err == nil {
		t.Fatalf("expected error for letterless name")
	}
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"Harsh Agarwal": "HARSHAGARWAL",
		"  priya  ":     "PRIYA",
		"Jean-Luc 3":    "JEANLUC",
		"42":            "",
	}
	for in, want := range cases {
		if got := NormalizeName(in); got != want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}
