package ocr

import "strings"

// Advisory verification of OCR-extracted fields against user-declared
// values. A false result is a valid outcome the caller logs and ignores:
// physical possession of the ID card is treated as sufficient trust, so
// nothing here ever blocks a registration.

// Substitutions for characters OCR habitually confuses in names. Applied to
// the already-lowercased strings.
var nameConfusions = []struct{ from, to string }{
	{"0", "o"},
	{"1", "i"},
	{"5", "s"},
	{"8", "b"},
	{"rn", "m"},
	{"cl", "d"},
	{"vv", "w"},
}

// Canonical form for roll-number characters OCR confuses: each digit/letter
// pair collapses to one representative so both directions of the confusion
// compare equal.
var rollCanonical = map[rune]rune{
	'0': 'O',
	'1': 'I',
	'5': 'S',
	'8': 'B',
}

// MatchName reports whether an OCR-extracted name plausibly matches the
// user-declared one. Both are lowercased with whitespace collapsed, then:
// substring either way, word-set overlap of at least half, and finally a
// substring retry after OCR-confusion substitutions.
func MatchName(extracted, provided string) bool {
	a := normalizeName(extracted)
	b := normalizeName(provided)
	if a == "" || b == "" {
		return false
	}

	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}

	if wordOverlap(a, b) >= 0.5 {
		return true
	}

	ac := applyNameConfusions(a)
	bc := applyNameConfusions(b)
	return strings.Contains(ac, bc) || strings.Contains(bc, ac)
}

// MatchRoll reports whether an OCR-extracted roll number plausibly matches
// the user-declared one. Both are stripped to alphanumerics and uppercased,
// then compared exactly, re-compared under the confusion canonicalization,
// and finally scored positionally when the lengths are within 2.
func MatchRoll(extracted, provided string) bool {
	a := normalizeRoll(extracted)
	b := normalizeRoll(provided)
	if a == "" || b == "" {
		return false
	}

	if a == b {
		return true
	}

	if canonicalizeRoll(a) == canonicalizeRoll(b) {
		return true
	}

	if abs(len(a)-len(b)) > 2 {
		return false
	}
	shorter := len(a)
	longer := len(b)
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	matches := 0
	for i := 0; i < shorter; i++ {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches)/float64(longer) >= 0.8
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func applyNameConfusions(s string) string {
	for _, sub := range nameConfusions {
		s = strings.ReplaceAll(s, sub.from, sub.to)
	}
	return s
}

func normalizeRoll(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func canonicalizeRoll(s string) string {
	return strings.Map(func(r rune) rune {
		if c, ok := rollCanonical[r]; ok {
			return c
		}
		return r
	}, s)
}

func wordOverlap(a, b string) float64 {
	wa := strings.Fields(a)
	wb := strings.Fields(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	setA := make(map[string]bool, len(wa))
	for _, w := range wa {
		setA[w] = true
	}
	setB := make(map[string]bool, len(wb))
	common := 0
	for _, w := range wb {
		if setB[w] {
			continue
		}
		setB[w] = true
		if setA[w] {
			common++
		}
	}
	longest := len(setA)
	if len(setB) > longest {
		longest = len(setB)
	}
	return float64(common) / float64(longest)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
