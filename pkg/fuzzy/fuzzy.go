package fuzzy

import (
	"strings"
	"unicode"
)

// Legal-entity suffixes that say nothing about which company it is.
var companySuffixes = map[string]struct{}{
	"inc": {}, "inc.": {}, "llc": {}, "ltd": {}, "ltd.": {}, "corp": {}, "corp.": {},
	"corporation": {}, "co": {}, "co.": {}, "gmbh": {}, "plc": {}, "limited": {},
}

// LevenshteinDistance counts the single-rune edits needed to turn s1 into s2,
// after lowercasing and collapsing whitespace.
func LevenshteinDistance(s1, s2 string) int {
	r1 := []rune(normalizeString(s1))
	r2 := []rune(normalizeString(s2))

	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}

// Similarity is 1 minus the edit distance relative to the longer string.
// Identical strings score 1, two empty strings score 0.
func Similarity(a, b string) float64 {
	a = normalizeString(a)
	b = normalizeString(b)
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 0
	}
	return 1 - float64(LevenshteinDistance(a, b))/float64(longest)
}

// FuzzyMatch checks if query fuzzy-matches text within a given threshold
// threshold is the maximum allowed edit distance
func FuzzyMatch(query, text string, threshold int) bool {
	query = normalizeString(query)
	text = normalizeString(text)
	if query == "" {
		return false
	}
	if strings.Contains(text, query) {
		return true
	}
	for _, word := range strings.Fields(text) {
		if LevenshteinDistance(query, word) <= threshold {
			return true
		}
	}
	return LevenshteinDistance(query, text) <= threshold+len(query)/5
}

// CompanyScore compares two company names ignoring case, accents and
// legal suffixes such as "Inc" or "GmbH".
func CompanyScore(a, b string) float64 {
	a = NormalizeCompany(a)
	b = NormalizeCompany(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	// "Acme" vs "Acme Robotics"
	if strings.HasPrefix(b, a+" ") || strings.HasPrefix(a, b+" ") {
		return 0.9
	}
	return Similarity(a, b)
}

// NormalizeCompany lowercases, strips accents and punctuation, and drops
// trailing legal suffixes.
func NormalizeCompany(s string) string {
	s = removeAccents(normalizeString(s))
	s = strings.Map(func(r rune) rune {
		if r == ',' {
			return ' '
		}
		return r
	}, s)
	words := strings.Fields(s)
	for len(words) > 1 {
		if _, ok := companySuffixes[words[len(words)-1]]; !ok {
			break
		}
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

func normalizeString(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// removeAccents removes diacritical marks from a string
func removeAccents(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		switch r {
		case 'á', 'à', 'ả', 'ã', 'ạ', 'ă', 'ắ', 'ằ', 'ẳ', 'ẵ', 'ặ', 'â', 'ấ', 'ầ', 'ẩ', 'ẫ', 'ậ', 'ä', 'å':
			result.WriteRune('a')
		case 'é', 'è', 'ẻ', 'ẽ', 'ẹ', 'ê', 'ế', 'ề', 'ể', 'ễ', 'ệ', 'ë':
			result.WriteRune('e')
		case 'í', 'ì', 'ỉ', 'ĩ', 'ị', 'ï':
			result.WriteRune('i')
		case 'ó', 'ò', 'ỏ', 'õ', 'ọ', 'ô', 'ố', 'ồ', 'ổ', 'ỗ', 'ộ', 'ơ', 'ớ', 'ờ', 'ở', 'ỡ', 'ợ', 'ö':
			result.WriteRune('o')
		case 'ú', 'ù', 'ủ', 'ũ', 'ụ', 'ư', 'ứ', 'ừ', 'ử', 'ữ', 'ự', 'ü':
			result.WriteRune('u')
		case 'ý', 'ỳ', 'ỷ', 'ỹ', 'ỵ':
			result.WriteRune('y')
		case 'đ':
			result.WriteRune('d')
		default:
			result.WriteRune(r)
		}
	}
	return result.String()
}
