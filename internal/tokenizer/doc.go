// Package tokenizer converts text to token ID sequences for the
// translation model.
//
// Two implementations are provided:
//   - Char: character-level vocabulary built from training text, the
//     default for spelling and grammar correction tasks
//   - Subword: BPE vocabulary backed by tiktoken (cl100k_base, p50k_base)
//
// Both reserve the first four IDs for _PAD, _SOS, _EOS and _UNK.
//
// Example usage:
//
//	tok := tokenizer.NewCharFromText(trainingText, 0)
//
//	tokens, err := tok.Encode("teh quick brown fox")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	text, err := tok.Decode(tokens)
//	if err != nil {
//	    log.Fatal(err)
//	}
package tokenizer
