package onboarding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/joelkehle/macro-onboarding/internal/llm"
	"github.com/joelkehle/macro-onboarding/internal/logger"
)

const tracerName = "github.com/joelkehle/macro-onboarding/internal/onboarding"

type EngineConfig struct {
	Logger *logger.Logger
	// Now supplies the date used to turn date_of_birth into an age.
	Now func() time.Time
	// ExtractionTemperature and ConversationTemperature default to 0 and 0.3.
	ExtractionTemperature   *float64
	ConversationTemperature *float64
}

// Engine runs the onboarding conversation. It holds no per-session state;
// callers pass the Session in and store the one returned.
type Engine struct {
	completer       llm.Completer
	extractor       *Extractor
	log             *logger.Logger
	now             func() time.Time
	tracer          trace.Tracer
	conversationTmp float64
}

func NewEngine(completer llm.Completer, cfg EngineConfig) *Engine {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	e := &Engine{
		completer:       completer,
		extractor:       NewExtractor(completer, log),
		log:             log,
		now:             now,
		tracer:          otel.Tracer(tracerName),
		conversationTmp: conversationTemperature,
	}
	if cfg.ExtractionTemperature != nil {
		e.extractor.temperature = *cfg.ExtractionTemperature
	}
	if cfg.ConversationTemperature != nil {
		e.conversationTmp = *cfg.ConversationTemperature
	}
	return e
}

// ProcessTurn applies one user message to the session and returns the next
// assistant message with the updated state. Provider failures never surface
// as errors; the only error is ErrInvalidHistory.
func (e *Engine) ProcessTurn(ctx context.Context, userMessage string, s Session) (TurnResult, error) {
	for i, m := range s.History {
		if !llm.ValidRole(m.Role) {
			return TurnResult{}, fmt.Errorf("%w: message %d has role %q", ErrInvalidHistory, i, m.Role)
		}
	}
	ctx, span := e.tracer.Start(ctx, "onboarding.turn", trace.WithAttributes(
		attribute.Int("onboarding.history_len", len(s.History)),
	))
	defer span.End()

	history := make([]llm.Message, 0, len(s.History)+2)
	history = append(history, s.History...)
	history = append(history, llm.Message{Role: llm.RoleUser, Content: userMessage})
	data := s.Data.clone()

	awaitingConfirmation := data.MetabolicProfile != nil && !data.MacrosConfirmed

	extracted := e.extractor.Extract(ctx, history)
	data.mergeRequired(extracted)

	if awaitingConfirmation && (extracted.MacrosConfirmed || IsConfirmation(userMessage)) {
		data.MacrosConfirmed = true
		e.log.Debug("macros confirmed")
	}
	if data.MacrosConfirmed && extracted.HasDietary() {
		data.mergeDietary(extracted)
	}

	justComputed := false
	if data.MetabolicProfile == nil && data.readyForProfile() {
		if data.TargetSpeed == "" {
			data.TargetSpeed = SpeedNormal
		}
		profile := Compute(data.MetabolicInput(e.now()))
		data.MetabolicProfile = &profile
		justComputed = true
		e.log.Info("metabolic profile computed",
			"calories", profile.DailyCalorieTarget, "days_to_goal", profile.EstimatedDaysToGoal)
	}
	if data.MetabolicProfile != nil && data.TargetSpeed == "" {
		data.TargetSpeed = SpeedNormal
	}

	skipped := data.MacrosConfirmed && isSkip(userMessage)
	if len(data.Missing()) == 0 && data.MacrosConfirmed && (data.HasDietary() || skipped) {
		if !data.HasDietary() {
			data.DietaryNote = NoRestrictionsStated
		}
		msg := completionMessage(data.MetabolicProfile)
		history = append(history, llm.Message{Role: llm.RoleAssistant, Content: msg})
		export := FormatExport(data)
		span.SetAttributes(attribute.String("onboarding.state", string(StateComplete)))
		e.log.Info("onboarding complete")
		return TurnResult{
			Message:          msg,
			History:          history,
			Data:             data,
			IsComplete:       true,
			MetabolicProfile: data.MetabolicProfile,
			Export:           &export,
			State:            StateComplete,
		}, nil
	}

	state := data.State()
	if state == StateCollectingDietary {
		data.DietaryAsked = true
	}
	msg := e.nextPrompt(ctx, userMessage, history, data, state, justComputed)
	history = append(history, llm.Message{Role: llm.RoleAssistant, Content: msg})
	span.SetAttributes(attribute.String("onboarding.state", string(state)))

	return TurnResult{
		Message:          msg,
		History:          history,
		Data:             data,
		NextMissingField: data.NextMissingField(),
		MetabolicProfile: data.MetabolicProfile,
		State:            state,
	}, nil
}

// nextPrompt shows a freshly computed profile verbatim and otherwise asks
// the provider for a follow-up question, falling back to a fixed one.
func (e *Engine) nextPrompt(ctx context.Context, userMessage string, history []llm.Message, data CollectedData, state State, justComputed bool) string {
	if justComputed && !data.MacrosConfirmed {
		return MacroSummary(*data.MetabolicProfile)
	}

	var missing []string
	var prompt, fallback string
	switch state {
	case StateAwaitingConfirmation:
		prompt = fmt.Sprintf("User: '%s'. Ask them to confirm the daily targets shown above, or say what to change.", userMessage)
		fallback = MacroSummary(*data.MetabolicProfile)
	case StateCollectingDietary:
		missing = []string{"dietary_restrictions"}
		prompt = steeringPrompt(userMessage, "dietary_restrictions")
		fallback = dietaryFallback
	default:
		missing = data.MissingForProfile()
		next := data.NextMissingField()
		prompt = steeringPrompt(userMessage, next)
		if next != "" {
			fallback = fieldQuestion(next)
		} else {
			fallback = generalFallback
		}
	}

	reply, err := e.completer.Complete(ctx, llm.Request{
		System:      conversationSystemPrompt(data, missing),
		Prompt:      prompt,
		History:     history,
		Temperature: e.conversationTmp,
	})
	if err != nil {
		e.log.Warn("follow-up generation failed, using fallback",
			"class", llm.Classify(err).String(), "state", string(state), "error", err)
		return fallback
	}
	if reply = strings.TrimSpace(reply); reply == "" {
		e.log.Warn("follow-up generation returned empty text, using fallback", "state", string(state))
		return fallback
	}
	return reply
}

// MetabolicInput converts the collected fields to calculator input, with the
// age taken from date_of_birth at now.
func (d CollectedData) MetabolicInput(now time.Time) MetabolicInput {
	return MetabolicInput{
		Gender:           d.Gender,
		Weight:           d.CurrentWeight,
		WeightUnit:       d.CurrentWeightUnit,
		Height:           d.CurrentHeight,
		HeightUnit:       d.CurrentHeightUnit,
		Age:              AgeFromDOB(d.DateOfBirth, now),
		ActivityLevel:    d.ActivityLevel,
		Goal:             d.Goal,
		TargetWeight:     d.TargetWeight,
		TargetWeightUnit: d.TargetWeightUnit,
		TargetSpeed:      d.TargetSpeed,
	}
}

func (d CollectedData) clone() CollectedData {
	out := d
	if d.Dietary != nil {
		out.Dietary = make(map[string]bool, len(d.Dietary))
		for k, v := range d.Dietary {
			out.Dietary[k] = v
		}
	}
	if d.MetabolicProfile != nil {
		p := *d.MetabolicProfile
		out.MetabolicProfile = &p
	}
	return out
}
