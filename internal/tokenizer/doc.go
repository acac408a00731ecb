// Package tokenizer turns comment text into token IDs for dataset conversion.
//
// Only tiktoken encodings are supported. The encoding files are fetched by
// tiktoken-go on first use and cached by it, so the first NewTikToken call for
// an encoding needs network access (or TIKTOKEN_CACHE_DIR pointing at a cache).
//
// Example usage:
//
//	tok, err := tokenizer.NewTikToken("cl100k_base")
//	if err != nil {
//	    return err
//	}
//
//	ids, err := tok.Encode("you are a wonderful person")
package tokenizer
