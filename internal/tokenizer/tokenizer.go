package tokenizer

import (
	"errors"

	"github.com/born-ml/toxicprep/internal/parallel"
)

// ErrUnknownEncoding is returned for encoding names tiktoken does not ship.
var ErrUnknownEncoding = errors.New("unknown tiktoken encoding")

// Tokenizer converts text to token IDs. Encode must be safe for concurrent use.
type Tokenizer interface {
	// Encode converts text to token IDs.
	Encode(text string) ([]int32, error)

	// Name identifies the encoding, stored alongside encoded datasets.
	Name() string
}

// EncodeAll encodes every text with tok, spreading large inputs over all CPUs.
func EncodeAll(tok Tokenizer, texts []string) ([][]int32, error) {
	out := make([][]int32, len(texts))
	err := parallel.For(len(texts), func(i int) error {
		ids, err := tok.Encode(texts[i])
		if err != nil {
			return err
		}
		out[i] = ids
		return nil
	}, parallel.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return out, nil
}
