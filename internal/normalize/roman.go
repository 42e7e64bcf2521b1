package normalize

import "strings"

// romanValues lists subtractive-pair and single-symbol Roman numerals in
// descending value order, used both to parse and to re-render canonical form.
var romanValues = []struct {
	symbol string
	value  int
}{
	{"M", 1000}, {"CM", 900}, {"D", 500}, {"CD", 400},
	{"C", 100}, {"XC", 90}, {"L", 50}, {"XL", 40},
	{"X", 10}, {"IX", 9}, {"V", 5}, {"IV", 4}, {"I", 1},
}

// parseRoman parses a Roman numeral string into its integer value using
// standard subtractive-notation rules. It does not validate canonicality —
// callers must round-trip the result through arabicToRoman to confirm the
// input was the canonical spelling (e.g. "IIII" parses to 4 but is rejected
// because arabicToRoman(4) == "IV" != "IIII").
func parseRoman(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	s = strings.ToUpper(s)
	total := 0
	i := 0
	for i < len(s) {
		matched := false
		for _, rv := range romanValues {
			if strings.HasPrefix(s[i:], rv.symbol) {
				total += rv.value
				i += len(rv.symbol)
				matched = true
				break
			}
		}
		if !matched {
			return 0, false
		}
	}
	return total, true
}

// arabicToRoman renders n (1..3999) in canonical Roman numeral form.
func arabicToRoman(n int) string {
	if n <= 0 || n > 3999 {
		return ""
	}
	var b strings.Builder
	for _, rv := range romanValues {
		for n >= rv.value {
			b.WriteString(rv.symbol)
			n -= rv.value
		}
	}
	return b.String()
}

// canonicalRomanToArabic returns (value, true) only if token is the unique
// canonical spelling of a Roman numeral in [1,3999]: arabic→roman→arabic
// must round-trip to itself. "IIII" fails (canonical spelling of 4 is "IV");
// "MCMXCIX" (1999) succeeds.
func canonicalRomanToArabic(token string) (int, bool) {
	value, ok := parseRoman(token)
	if !ok || value <= 0 || value > 3999 {
		return 0, false
	}
	if arabicToRoman(value) != strings.ToUpper(token) {
		return 0, false
	}
	return value, true
}
