package onboarding

import (
	"context"

	"github.com/joelkehle/macro-onboarding/internal/llm"
	"github.com/joelkehle/macro-onboarding/internal/logger"
)

type Extractor struct {
	completer   llm.Completer
	log         *logger.Logger
	temperature float64
}

func NewExtractor(completer llm.Completer, log *logger.Logger) *Extractor {
	if log == nil {
		log = logger.Nop()
	}
	return &Extractor{completer: completer, log: log, temperature: extractionTemperature}
}

// Extract asks the provider for the fields stated in the most recent user
// turn, with the assistant turn before it as context. Provider failures
// yield empty Fields.
func (e *Extractor) Extract(ctx context.Context, history []llm.Message) Fields {
	botAsked, userSaid := lastExchange(history)
	if userSaid == "" {
		return Fields{}
	}
	raw, err := e.completer.Complete(ctx, llm.Request{
		System:      extractionSystemPrompt(),
		Prompt:      extractionUserPrompt(botAsked, userSaid),
		Temperature: e.temperature,
	})
	if err != nil {
		e.log.Warn("extraction failed", "class", llm.Classify(err).String(), "error", err)
		return Fields{}
	}
	candidate := Sanitize(raw)
	if len(candidate) == 0 {
		e.log.Debug("extraction returned no structured data", "response_len", len(raw))
	}
	return Validate(candidate)
}

func lastExchange(history []llm.Message) (botAsked, userSaid string) {
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if userSaid == "" {
			if msg.Role == llm.RoleUser {
				userSaid = msg.Content
			}
			continue
		}
		if msg.Role == llm.RoleAssistant {
			return msg.Content, userSaid
		}
	}
	return "", userSaid
}
