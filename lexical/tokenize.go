package lexical

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	// A number followed by a unit is kept as one token: "6 inch" -> "6inch".
	unitPattern  = regexp.MustCompile(`(\d+)\s*(inch|인치|nm|um|mm|cm|℃|도|°c|°)`)
	tokenPattern = regexp.MustCompile(`[a-z]+\d*|\d+[a-z℃°]+|[가-힣]+`)
)

var stopwords = map[string]struct{}{
	"의": {}, "가": {}, "이": {}, "은": {}, "는": {}, "을": {}, "를": {},
	"에": {}, "에서": {}, "로": {}, "으로": {}, "와": {}, "과": {}, "도": {},
	"만": {}, "까지": {},
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "for": {},
}

// Tokenize splits mixed Korean/English text into index terms.
// Text is NFC-normalized and lowercased first. Stopwords and single-rune
// tokens are dropped.
func Tokenize(text string) []string {
	text = strings.ToLower(norm.NFC.String(text))
	text = unitPattern.ReplaceAllString(text, "$1$2")

	raw := tokenPattern.FindAllString(text, -1)
	tokens := raw[:0]
	for _, tok := range raw {
		if utf8.RuneCountInString(tok) <= 1 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}
