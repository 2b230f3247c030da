package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// encodingCL100kBase is the encoding used by GPT-4 era models.
	encodingCL100kBase = "cl100k_base"
	// encodingP50kBase is the encoding used by GPT-3 era models.
	encodingP50kBase = "p50k_base"
	// encodingR50kBase is the encoding used by older GPT-3 models.
	encodingR50kBase = "r50k_base"
)

// Subword wraps a pkoukk/tiktoken-go BPE encoding. The library's token
// IDs are shifted up by NumSpecialTokens so the reserved IDs keep their
// usual slots at the bottom of the vocabulary.
type Subword struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewSubword creates a subword tokenizer backed by the named tiktoken
// encoding.
//
// Supported encodings: "cl100k_base", "p50k_base", "r50k_base".
func NewSubword(encodingName string) (*Subword, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encodingName, err)
	}

	return &Subword{
		encoding: encoding,
		name:     encodingName,
	}, nil
}

// Encode converts text to token IDs, shifted past the special tokens.
func (s *Subword) Encode(text string) ([]int32, error) {
	tokens := s.encoding.Encode(text, nil, nil)

	result := make([]int32, len(tokens))
	for i, tok := range tokens {
		result[i] = int32(tok) + NumSpecialTokens
	}
	return result, nil
}

// Decode converts token IDs back to text, skipping special tokens.
func (s *Subword) Decode(tokens []int32) (string, error) {
	intTokens := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		if IsSpecialToken(tok) {
			continue
		}
		if tok < NumSpecialTokens {
			return "", fmt.Errorf("token %d out of range", tok)
		}
		intTokens = append(intTokens, int(tok)-NumSpecialTokens)
	}

	return s.encoding.Decode(intTokens), nil
}

// VocabSize returns the total vocabulary size including special tokens.
//
// tiktoken-go does not expose vocabulary sizes, so the known sizes of
// the supported encodings are hard coded.
func (s *Subword) VocabSize() int {
	switch s.name {
	case encodingCL100kBase:
		return 100256 + NumSpecialTokens
	case encodingP50kBase, encodingR50kBase:
		return 50257 + NumSpecialTokens
	default:
		return 100000 + NumSpecialTokens
	}
}

// Name identifies the tokenizer variant.
func (s *Subword) Name() string {
	return s.name
}
