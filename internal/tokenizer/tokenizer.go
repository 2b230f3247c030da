package tokenizer

// Reserved token IDs shared by every tokenizer implementation. The first
// four vocabulary slots always hold the special tokens, in this order.
const (
	// PadToken fills sequence positions past the end of a sentence.
	PadToken int32 = 0
	// SosToken marks the start of a decoded sequence.
	SosToken int32 = 1
	// EosToken marks the end of a sequence.
	EosToken int32 = 2
	// UnkToken replaces symbols missing from the vocabulary.
	UnkToken int32 = 3

	// NumSpecialTokens is the count of reserved IDs above.
	NumSpecialTokens = 4
)

// Tokenizer converts between text and token ID sequences.
//
// Implementations never emit special tokens from Encode; callers add
// SosToken/EosToken framing themselves when building batches.
type Tokenizer interface {
	// Encode converts text to token IDs.
	Encode(text string) ([]int32, error)

	// Decode converts token IDs back to text. Special tokens are skipped.
	Decode(tokens []int32) (string, error)

	// VocabSize returns the total vocabulary size including special tokens.
	VocabSize() int

	// Name identifies the tokenizer variant.
	Name() string
}

// IsSpecialToken reports whether a token ID is one of the reserved IDs.
func IsSpecialToken(token int32) bool {
	return token >= 0 && token < NumSpecialTokens
}
