package llmclient

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// CountTokens counts tokens with the cl100k_base encoding, used only for
// prompt-budget logging, never for selection. When the encoding cannot be
// loaded it falls back to a character heuristic.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			enc = e
		}
	})
	if enc == nil {
		n := len(text) / 4
		if n == 0 {
			n = 1
		}
		return n
	}
	return len(enc.Encode(text, nil, nil))
}
