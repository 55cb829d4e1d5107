package chunker

import (
	"github.com/pkoukk/tiktoken-go"

	"interview-insights-go/internal/logger"
)

// Tokenizer counts tokens the way the downstream model bills them.
type Tokenizer interface {
	Count(text string) int
}

// cl100kTokenizer wraps the cl100k_base encoding.
type cl100kTokenizer struct {
	enc *tiktoken.Tiktoken
}

func (t *cl100kTokenizer) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// heuristicTokenizer approximates a token as four characters. Used when the
// encoding tables cannot be loaded.
type heuristicTokenizer struct{}

func (heuristicTokenizer) Count(text string) int {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		return 1
	}
	return n
}

// NewTokenizer returns the cl100k_base tokenizer, falling back to the
// character heuristic if the encoding is unavailable.
func NewTokenizer() Tokenizer {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.New().WithError(err).Warn("cl100k_base unavailable, using character heuristic")
		return heuristicTokenizer{}
	}
	return &cl100kTokenizer{enc: enc}
}
