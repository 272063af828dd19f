package llm

import (
	"fmt"
	"strings"
	"time"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

type Options struct {
	Provider    string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
}

// New builds the configured provider adapter wrapped with retry, a
// per-attempt timeout and tracing. API keys are read from the environment.
func New(opts Options) (Completer, error) {
	var base Completer
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	switch provider {
	case "", ProviderAnthropic:
		c, err := NewAnthropicCompleterFromEnv(opts.Model, opts.BaseURL)
		if err != nil {
			return nil, err
		}
		provider = ProviderAnthropic
		base = c
	case ProviderOpenAI:
		c, err := NewOpenAICompleterFromEnv(opts.Model, opts.BaseURL)
		if err != nil {
			return nil, err
		}
		base = c
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
	return Wrap(base, provider, opts), nil
}

func Wrap(base Completer, provider string, opts Options) Completer {
	c := WithTimeout(base, opts.Timeout)
	c = WithRetry(c, opts.MaxAttempts)
	return WithTracing(c, provider)
}
