package tokenizer

import (
	"fmt"
	"slices"

	"github.com/pkoukk/tiktoken-go"
)

// Encodings lists the supported tiktoken encoding names.
var Encodings = []string{"cl100k_base", "p50k_base", "p50k_edit", "r50k_base", "o200k_base"}

// TikToken wraps the pkoukk/tiktoken-go library.
type TikToken struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewTikToken loads the named encoding.
func NewTikToken(encodingName string) (*TikToken, error) {
	if !slices.Contains(Encodings, encodingName) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, encodingName)
	}

	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encodingName, err)
	}

	return &TikToken{
		encoding: encoding,
		name:     encodingName,
	}, nil
}

// Encode converts text to token IDs. Special tokens are encoded as plain text.
func (t *TikToken) Encode(text string) ([]int32, error) {
	tokens := t.encoding.Encode(text, nil, nil)

	result := make([]int32, len(tokens))
	for i, tok := range tokens {
		result[i] = int32(tok) //nolint:gosec // G115: vocab size < 2^31.
	}
	return result, nil
}

// Name returns the encoding name.
func (t *TikToken) Name() string {
	return t.name
}
