// Package tokenizer turns free-text profile fields into the word stream the
// corpus scoring model counts: HTML stripped, entities decoded, lowercased,
// split on locale-naive word boundaries.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// Pair is an ordered word pair, the unit adjacency counts over.
type Pair struct {
	Predecessor string
	Successor   string
}

// Tokenizer has no state; it exists to group the pipeline's steps under a
// single type the way the other internal packages expose one.
type Tokenizer struct{}

// New returns a ready-to-use Tokenizer.
func New() *Tokenizer {
	return &Tokenizer{}
}

// Tokenize strips tags, decodes entities, drops non-printable characters,
// lowercases, and splits html's text content on runs of letters and digits.
// A pure-punctuation run never matches a letter/digit and so is discarded by
// construction. Malformed markup degrades to whatever goquery recovers
// rather than failing the whole document.
func (t *Tokenizer) Tokenize(html string) []string {
	if strings.TrimSpace(html) == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	text := stripUnprintable(doc.Text())
	text = strings.ToLower(text)

	var words []string

	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}

	flush()

	return words
}

func stripUnprintable(s string) string {
	var b strings.Builder

	b.Grow(len(s))

	for _, r := range s {
		if unicode.IsPrint(r) {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// Frequency accumulates per-word occurrence counts into acc, creating it
// when nil, and returns it.
func Frequency(words []string, acc map[string]int64) map[string]int64 {
	if acc == nil {
		acc = make(map[string]int64, len(words))
	}

	for _, w := range words {
		acc[w]++
	}

	return acc
}

// Adjacency accumulates counts of ordered pairs (words[i], words[i+1]) into
// acc, creating it when nil, and returns it. A list of fewer than two words
// contributes no pairs.
func Adjacency(words []string, acc map[Pair]int64) map[Pair]int64 {
	if acc == nil {
		acc = make(map[Pair]int64)
	}

	for i := 0; i+1 < len(words); i++ {
		acc[Pair{Predecessor: words[i], Successor: words[i+1]}]++
	}

	return acc
}
