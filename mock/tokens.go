package mock

import (
	"github.com/pkoukk/tiktoken-go"
)

// ApproxTokenDivisor is the chars-per-token estimate used when no tiktoken
// encoding is available for the model.
const ApproxTokenDivisor = 4

// CountTokens returns the tiktoken token count of text for the given model,
// falling back to a len/4 estimate when the encoding cannot be loaded
// (unknown model, or encoding data unavailable offline).
func CountTokens(model, text string) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return approxTokens(text)
	}
	return len(enc.Encode(text, nil, nil))
}

func approxTokens(text string) int {
	return len(text) / ApproxTokenDivisor
}

// WithCountedTokens sets TokensUsed from the response content instead of
// the fixed default, using the model's tiktoken encoding when available.
func WithCountedTokens(model string) ResponseOption {
	return func(r *Response) {
		r.Model = model
		r.TokensUsed = CountTokens(model, r.Content)
	}
}
