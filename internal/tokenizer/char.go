package tokenizer

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Markers written to vocabulary files for the reserved IDs.
var specialMarkers = []string{"_PAD", "_SOS", "_EOS", "_UNK"}

// Char is a character-level tokenizer. Every distinct rune in the
// training text becomes one vocabulary entry, ordered by descending
// frequency so that truncating the vocabulary drops the rarest symbols
// first. Unknown runes map to UnkToken.
type Char struct {
	idToRune []rune
	runeToID map[rune]int32
}

// NewCharFromText builds a character vocabulary from training text.
//
// maxVocab caps the total vocabulary size including the reserved
// special tokens; pass 0 for no cap. Ties in frequency break by code
// point so the result is deterministic.
func NewCharFromText(text string, maxVocab int) *Char {
	counts := make(map[rune]int)
	for _, r := range text {
		counts[r]++
	}

	runes := make([]rune, 0, len(counts))
	for r := range counts {
		runes = append(runes, r)
	}
	sort.Slice(runes, func(i, j int) bool {
		if counts[runes[i]] != counts[runes[j]] {
			return counts[runes[i]] > counts[runes[j]]
		}
		return runes[i] < runes[j]
	})

	if maxVocab > NumSpecialTokens && len(runes) > maxVocab-NumSpecialTokens {
		runes = runes[:maxVocab-NumSpecialTokens]
	}

	return newChar(runes)
}

// NewCharFromVocab restores a character vocabulary from a file written
// by WriteVocab: one symbol per line, the four special markers first.
func NewCharFromVocab(r io.Reader) (*Char, error) {
	scanner := bufio.NewScanner(r)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vocabulary: %w", err)
	}

	if len(lines) < NumSpecialTokens {
		return nil, fmt.Errorf("vocabulary has %d entries, need at least %d", len(lines), NumSpecialTokens)
	}
	for i, marker := range specialMarkers {
		if lines[i] != marker {
			return nil, fmt.Errorf("vocabulary entry %d is %q, want %q", i, lines[i], marker)
		}
	}

	runes := make([]rune, 0, len(lines)-NumSpecialTokens)
	for i, line := range lines[NumSpecialTokens:] {
		rs := []rune(line)
		if len(rs) != 1 {
			return nil, fmt.Errorf("vocabulary entry %d is %q, want a single character", i+NumSpecialTokens, line)
		}
		runes = append(runes, rs[0])
	}

	return newChar(runes), nil
}

func newChar(runes []rune) *Char {
	c := &Char{
		idToRune: runes,
		runeToID: make(map[rune]int32, len(runes)),
	}
	for i, r := range runes {
		c.runeToID[r] = int32(i) + NumSpecialTokens
	}
	return c
}

// WriteVocab writes the vocabulary, one symbol per line, so that
// NewCharFromVocab can restore it.
func (c *Char) WriteVocab(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, marker := range specialMarkers {
		if _, err := fmt.Fprintln(bw, marker); err != nil {
			return fmt.Errorf("failed to write vocabulary: %w", err)
		}
	}
	for _, r := range c.idToRune {
		if _, err := fmt.Fprintln(bw, string(r)); err != nil {
			return fmt.Errorf("failed to write vocabulary: %w", err)
		}
	}
	return bw.Flush()
}

// Encode converts text to token IDs, one per rune. Runes outside the
// vocabulary become UnkToken.
func (c *Char) Encode(text string) ([]int32, error) {
	tokens := make([]int32, 0, len(text))
	for _, r := range text {
		id, ok := c.runeToID[r]
		if !ok {
			id = UnkToken
		}
		tokens = append(tokens, id)
	}
	return tokens, nil
}

// Decode converts token IDs back to text, skipping special tokens.
func (c *Char) Decode(tokens []int32) (string, error) {
	var sb strings.Builder
	for _, tok := range tokens {
		if IsSpecialToken(tok) {
			continue
		}
		idx := int(tok) - NumSpecialTokens
		if idx < 0 || idx >= len(c.idToRune) {
			return "", fmt.Errorf("token %d out of range for vocabulary of %d", tok, c.VocabSize())
		}
		sb.WriteRune(c.idToRune[idx])
	}
	return sb.String(), nil
}

// VocabSize returns the total vocabulary size including special tokens.
func (c *Char) VocabSize() int {
	return len(c.idToRune) + NumSpecialTokens
}

// Name identifies the tokenizer variant.
func (c *Char) Name() string {
	return "char"
}
