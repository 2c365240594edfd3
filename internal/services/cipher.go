package services

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// Transform is one reversible encoding from the fixed puzzle palette.
// Decoding the output of Encode must return the input exactly; the
// palette is closed and every member is round-trip tested.
type Transform interface {
	// Label names the transform for the clue reader, who has to decode it.
	Label() string
	Encode(letters string) string
	Decode(encoded string) (string, error)
}

// Transforms returns the full palette. The puzzle generator picks one
// member uniformly at random.
func Transforms() []Transform {
	return []Transform{
		numericCipher{},
		shiftCipher{offset: 3},
		natoCipher{},
		binaryCipher{},
		morseCipher{},
	}
}

// Puzzle is an encoded anagram of a participant's name. The scrambled
// letters, not the name itself, are what gets encoded, so the encoding
// alone never leaks the name.
type Puzzle struct {
	Encoded string
	Label   string
	Letters string // scrambled uppercase letters, pre-encoding
}

// Clue renders the puzzle as the third clue of a profile.
func (p Puzzle) Clue() string {
	return fmt.Sprintf("Final clue: the target's name, letters scrambled, encoded as %s: %s", p.Label, p.Encoded)
}

// NewPuzzle builds a puzzle over name using rng for the scramble and the
// transform choice. Fails only when the name contains no letters at all.
func NewPuzzle(name string, rng *rand.Rand) (Puzzle, error) {
	letters := NormalizeName(name)
	if letters == "" {
		return Puzzle{}, NewInvalidError("name contains no letters")
	}
	scrambled := scramble(letters, rng)
	palette := Transforms()
	t := palette[rng.IntN(len(palette))]
	return Puzzle{Encoded: t.Encode(scrambled), Label: t.Label(), Letters: scrambled}, nil
}

// NormalizeName reduces a display name to its uppercase A-Z letters.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// scramble permutes letters into an anagram that differs from the input
// whenever any distinct arrangement exists.
func scramble(letters string, rng *rand.Rand) string {
	if len(letters) < 2 {
		return letters
	}
	b := []byte(letters)
	rng.Shuffle(len(b), func(i, j int) { b[i], b[j] = b[j], b[i] })
	if string(b) == letters && hasDistinctLetters(letters) {
		// Rotate by one; guaranteed to differ when letters are not all equal.
		b = append(b[1:], b[0])
	}
	return string(b)
}

func hasDistinctLetters(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return true
		}
	}
	return false
}

// numericCipher maps A=1 .. Z=26, joined with dashes.
type numericCipher struct{}

func (numericCipher) Label() string { return "a number cipher (A=1 ... Z=26)" }

func (numericCipher) Encode(letters string) string {
	parts := make([]string, 0, len(letters))
	for i := 0; i < len(letters); i++ {
		parts = append(parts, strconv.Itoa(int(letters[i]-'A')+1))
	}
	return strings.Join(parts, "-")
}

func (numericCipher) Decode(encoded string) (string, error) {
	if encoded == "" {
		return "", fmt.Errorf("empty numeric cipher text")
	}
	var b strings.Builder
	for _, part := range strings.Split(encoded, "-") {
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 || n > 26 {
			return "", fmt.Errorf("bad numeric cipher group %q", part)
		}
		b.WriteByte(byte('A' + n - 1))
	}
	return b.String(), nil
}

// shiftCipher moves every letter forward by a fixed offset, wrapping at Z.
type shiftCipher struct{ offset int }

func (c shiftCipher) Label() string {
	return fmt.Sprintf("a shift cipher (every letter moved %d forward)", c.offset)
}

func (c shiftCipher) Encode(letters string) string {
	b := []byte(letters)
	for i := range b {
		b[i] = byte('A' + (int(b[i]-'A')+c.offset)%26)
	}
	return string(b)
}

func (c shiftCipher) Decode(encoded string) (string, error) {
	b := []byte(encoded)
	for i := range b {
		if b[i] < 'A' || b[i] > 'Z' {
			return "", fmt.Errorf("bad shift cipher letter %q", string(b[i]))
		}
		b[i] = byte('A' + (int(b[i]-'A')-c.offset%26+26)%26)
	}
	return string(b), nil
}

var natoWords = [26]string{
	"Alfa", "Bravo", "Charlie", "Delta", "Echo", "Foxtrot", "Golf", "Hotel",
	"India", "Juliett", "Kilo", "Lima", "Mike", "November", "Oscar", "Papa",
	"Quebec", "Romeo", "Sierra", "Tango", "Uniform", "Victor", "Whiskey",
	"Xray", "Yankee", "Zulu",
}

// natoCipher spells letters with the phonetic alphabet.
type natoCipher struct{}

func (natoCipher) Label() string { return "the NATO phonetic alphabet" }

func (natoCipher) Encode(letters string) string {
	words := make([]string, 0, len(letters))
	for i := 0; i < len(letters); i++ {
		words = append(words, natoWords[letters[i]-'A'])
	}
	return strings.Join(words, " ")
}

func (natoCipher) Decode(encoded string) (string, error) {
	fields := strings.Fields(encoded)
	if len(fields) == 0 {
		return "", fmt.Errorf("empty phonetic cipher text")
	}
	var b strings.Builder
	for _, w := range fields {
		found := false
		for i, nato := range natoWords {
			if strings.EqualFold(w, nato) {
				b.WriteByte(byte('A' + i))
				found = true
				break
			}
		}
		if !found {
			return "", fmt.Errorf("unknown phonetic word %q", w)
		}
	}
	return b.String(), nil
}

// binaryCipher writes each letter's ASCII code as 8 bits.
type binaryCipher struct{}

func (binaryCipher) Label() string { return "binary (8-bit character codes)" }

func (binaryCipher) Encode(letters string) string {
	groups := make([]string, 0, len(letters))
	for i := 0; i < len(letters); i++ {
		groups = append(groups, fmt.Sprintf("%08b", letters[i]))
	}
	return strings.Join(groups, " ")
}

func (binaryCipher) Decode(encoded string) (string, error) {
	fields := strings.Fields(encoded)
	if len(fields) == 0 {
		return "", fmt.Errorf("empty binary cipher text")
	}
	var b strings.Builder
	for _, g := range fields {
		n, err := strconv.ParseUint(g, 2, 8)
		if err != nil || n < 'A' || n > 'Z' {
			return "", fmt.Errorf("bad binary cipher group %q", g)
		}
		b.WriteByte(byte(n))
	}
	return b.String(), nil
}

var morseCodes = [26]string{
	".-", "-...", "-.-.", "-..", ".", "..-.", "--.", "....", "..", ".---",
	"-.-", ".-..", "--", "-.", "---", ".--.", "--.-", ".-.", "...", "-",
	"..-", "...-", ".--", "-..-", "-.--", "--..",
}

// morseCipher maps letters to dot/dash tone groups.
type morseCipher struct{}

func (morseCipher) Label() string { return "Morse code" }

func (morseCipher) Encode(letters string) string {
	groups := make([]string, 0, len(letters))
	for i := 0; i < len(letters); i++ {
		groups = append(groups, morseCodes[letters[i]-'A'])
	}
	return strings.Join(groups, " ")
}

func (morseCipher) Decode(encoded string) (string, error) {
	fields := strings.Fields(encoded)
	if len(fields) == 0 {
		return "", fmt.Errorf("empty morse cipher text")
	}
	var b strings.Builder
	for _, g := range fields {
		found := false
		for i, code := range morseCodes {
			if g == code {
				b.WriteByte(byte('A' + i))
				found = true
				break
			}
		}
		if !found {
			return "", fmt.Errorf("unknown morse group %q", g)
		}
	}
	return b.String(), nil
}
