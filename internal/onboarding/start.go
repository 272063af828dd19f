package onboarding

import (
	"context"
	"strings"

	"github.com/joelkehle/macro-onboarding/internal/llm"
)

// Start opens a conversation with a welcome that asks for the first field.
func (e *Engine) Start(ctx context.Context) TurnResult {
	ctx, span := e.tracer.Start(ctx, "onboarding.start")
	defer span.End()

	var empty CollectedData
	welcome, err := e.completer.Complete(ctx, llm.Request{
		System:      conversationSystemPrompt(empty, empty.MissingForProfile()),
		Prompt:      "Hi",
		Temperature: e.conversationTmp,
	})
	welcome = strings.TrimSpace(welcome)
	if err != nil || welcome == "" {
		if err != nil {
			e.log.Warn("welcome generation failed, using fallback", "class", llm.Classify(err).String(), "error", err)
		}
		welcome = welcomeFallback
	}
	return TurnResult{
		Message:          welcome,
		History:          []llm.Message{{Role: llm.RoleAssistant, Content: welcome}},
		NextMissingField: FieldGender,
		State:            StateCollectingRequired,
	}
}
