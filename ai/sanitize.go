package ai

import (
	"regexp"
	"strings"
)

var cjkPunctuation = strings.NewReplacer(
	"：", ": ", "，", ", ", "。", ". ", "！", "! ", "？", "? ",
	"；", "; ", "【", "[", "】", "]", "（", "(", "）", ")",
	"、", ", ", "…", "...", "～", "~", "·", " ",
)

var ideographs = regexp.MustCompile(`[\x{4e00}-\x{9fff}\x{3400}-\x{4dbf}\x{f900}-\x{faff}]+`)

// Cleanup of delimiters left behind once ideographs are removed, in order.
// Edge rules trim text at its start or end.
var cleanups = []struct {
	re   *regexp.Regexp
	repl string
	edge bool
}{
	{re: regexp.MustCompile(`,\s*,`), repl: ","},
	{re: regexp.MustCompile(`\.\s*\.`), repl: "."},
	{re: regexp.MustCompile(`,\s*\.`), repl: "."},
	{re: regexp.MustCompile(`\s*,\s*$`), edge: true},
	{re: regexp.MustCompile(`^\s*,\s*`), edge: true},
	{re: regexp.MustCompile(`\(\s*\)`)},
	{re: regexp.MustCompile(`\[\s*\]`)},
	{re: regexp.MustCompile(`:\s*$`), edge: true},
	{re: regexp.MustCompile(`-\s*\.`), repl: "."},
	{re: regexp.MustCompile(`\s{2,}`), repl: " "},
	{re: regexp.MustCompile(`\s+([,.!?])`), repl: "$1"},
}

// SanitizeCJK strips Chinese ideographs that multilingual models sometimes
// mix into Korean output. CJK punctuation is mapped to ASCII, ideograph runs
// become spaces, and the punctuation left dangling is tidied. Hangul is
// untouched.
func SanitizeCJK(text string) string {
	return sanitize(text, true)
}

// SanitizeCJKChunk is SanitizeCJK for one fragment of a streamed answer.
// Commas and colons at the fragment edges are kept, since a token boundary
// is not the end of the text.
func SanitizeCJKChunk(chunk string) string {
	return sanitize(chunk, false)
}

func sanitize(text string, trimEdges bool) string {
	out := cjkPunctuation.Replace(text)
	out = ideographs.ReplaceAllString(out, " ")
	for _, c := range cleanups {
		if c.edge && !trimEdges {
			continue
		}
		out = c.re.ReplaceAllString(out, c.repl)
	}
	return out
}
