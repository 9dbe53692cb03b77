package tokenizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hadsh/spamhunter/internal/tokenizer"
)

func TestTokenize_StripsTagsAndEntities(t *testing.T) {
	t.Parallel()

	tok := tokenizer.New()
	words := tok.Tokenize(`<p>Hello &amp; <b>World</b></p>`)
	assert.Equal(t, []string{"hello", "world"}, words)
}

func TestTokenize_Lowercases(t *testing.T) {
	t.Parallel()

	tok := tokenizer.New()
	words := tok.Tokenize(`<p>MIXED Case Text</p>`)
	assert.Equal(t, []string{"mixed", "case", "text"}, words)
}

func TestTokenize_DiscardsPurePunctuation(t *testing.T) {
	t.Parallel()

	tok := tokenizer.New()
	words := tok.Tokenize(`<p>well... "quoted" -- text!</p>`)
	assert.Equal(t, []string{"well", "quoted", "text"}, words)
}

func TestTokenize_EmptyInputProducesNil(t *testing.T) {
	t.Parallel()

	tok := tokenizer.New()
	assert.Nil(t, tok.Tokenize(""))
	assert.Nil(t, tok.Tokenize("   "))
}

func TestTokenize_NoTextContentProducesNil(t *testing.T) {
	t.Parallel()

	tok := tokenizer.New()
	assert.Nil(t, tok.Tokenize(`<img src="x"/><br/>`))
}

func TestFrequency_AccumulatesIntoExistingMap(t *testing.T) {
	t.Parallel()

	acc := map[string]int64{"hello": 2}
	acc = tokenizer.Frequency([]string{"hello", "world", "world"}, acc)

	assert.Equal(t, int64(3), acc["hello"])
	assert.Equal(t, int64(2), acc["world"])
}

func TestFrequency_CreatesMapWhenNil(t *testing.T) {
	t.Parallel()

	acc := tokenizer.Frequency([]string{"a", "a", "b"}, nil)

	assert.Equal(t, int64(2), acc["a"])
	assert.Equal(t, int64(1), acc["b"])
}

func TestAdjacency_CountsOrderedPairs(t *testing.T) {
	t.Parallel()

	acc := tokenizer.Adjacency([]string{"a", "b", "a", "b"}, nil)

	assert.Equal(t, int64(2), acc[tokenizer.Pair{Predecessor: "a", Successor: "b"}])
	assert.Equal(t, int64(1), acc[tokenizer.Pair{Predecessor: "b", Successor: "a"}])
}

func TestAdjacency_SingleWordProducesNoPairs(t *testing.T) {
	t.Parallel()

	acc := tokenizer.Adjacency([]string{"solo"}, nil)
	assert.Empty(t, acc)
}

func TestAdjacency_AccumulatesIntoExistingMap(t *testing.T) {
	t.Parallel()

	acc := map[tokenizer.Pair]int64{{Predecessor: "x", Successor: "y"}: 5}
	acc = tokenizer.Adjacency([]string{"x", "y"}, acc)

	assert.Equal(t, int64(6), acc[tokenizer.Pair{Predecessor: "x", Successor: "y"}])
}
