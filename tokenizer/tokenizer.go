// Package tokenizer provides optional token-id features for converted datasets.
//
// Example usage:
//
//	import "github.com/born-ml/toxicprep/tokenizer"
//
//	tok, err := tokenizer.NewTikToken("cl100k_base")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ids, err := tok.Encode("you are a wonderful person")
package tokenizer

import (
	"github.com/born-ml/toxicprep/internal/tokenizer"
)

// Tokenizer turns text into token ids.
type Tokenizer = tokenizer.Tokenizer

// ErrUnknownEncoding is returned for an encoding name tiktoken does not know.
var ErrUnknownEncoding = tokenizer.ErrUnknownEncoding

// Encodings lists the supported tiktoken encodings.
var Encodings = tokenizer.Encodings

// NewTikToken loads a tiktoken encoding such as "cl100k_base".
func NewTikToken(encodingName string) (Tokenizer, error) {
	return tokenizer.NewTikToken(encodingName)
}

// EncodeAll encodes every text with tok.
func EncodeAll(tok Tokenizer, texts []string) ([][]int32, error) {
	return tokenizer.EncodeAll(tok, texts)
}
