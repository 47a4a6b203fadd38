package search

import "strings"

// Replacement pairs applied in order. Raw titles arrive from XML attributes,
// RSS entry text and scraped HTML anchors; they must converge to a comparable
// token stream before fuzzy scoring.
var replacements = []struct {
	old string
	new string
}{
	{"...", ""},
	{".", " "},
	{" & ", " "},
	{" = ", " "},
	{"?", ""},
	{"$", "s"},
	{" + ", " "},
	{"+", " "},
	{`"`, ""},
	{",", ""},
	{"*", ""},
	{"(", ""},
	{")", ""},
	{"[", ""},
	{"]", ""},
	{"#", ""},
	{":", ""},
	{";", ""},
	{"'", ""},
	{"-", " "},
	{"_", " "},
}

// Normalize strips punctuation, noise tokens and digits from a free-text
// title for fuzzy comparison. Digits are removed so edition/series numbers
// do not contaminate similarity scores. Pure and idempotent; unrecognized
// characters pass through unchanged.
func Normalize(text string) string {
	return collapse(stripDigits(replaceAll(text)))
}

// NormalizeKeepDigits is the author/title extraction variant: same punctuation
// handling, digits preserved.
func NormalizeKeepDigits(text string) string {
	return collapse(replaceAll(text))
}

func replaceAll(text string) string {
	for _, r := range replacements {
		text = strings.ReplaceAll(text, r.old, r.new)
	}
	return text
}

func stripDigits(text string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return -1
		}
		return r
	}, text)
}

func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
