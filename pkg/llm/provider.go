// Package llm abstracts over model backends so the classifier and answerer
// never depend on a specific provider API.
package llm

import "context"

// Message is one turn of a conversation in provider-agnostic form. Role is
// "user", "assistant" or "system".
type Message struct {
	Role    string
	Content string
}

// Options carries per-call tuning. Zero values mean provider defaults.
type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string
}

// Option mutates Options.
type Option func(*Options)

func WithTemperature(temp float64) Option {
	return func(o *Options) { o.Temperature = temp }
}

func WithMaxTokens(n int) Option {
	return func(o *Options) { o.MaxTokens = n }
}

// WithModel overrides the provider's configured model for one call.
func WithModel(model string) Option {
	return func(o *Options) { o.Model = model }
}

// LLMProvider is the contract every backend implements.
type LLMProvider interface {
	// Chat sends a conversation and returns the assistant reply.
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate is single-prompt convenience over Chat.
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}
