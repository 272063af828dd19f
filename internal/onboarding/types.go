package onboarding

import (
	"errors"

	"github.com/joelkehle/macro-onboarding/internal/llm"
)

type State string

const (
	StateCollectingRequired   State = "collecting-required"
	StateAwaitingConfirmation State = "awaiting-macro-confirmation"
	StateCollectingDietary    State = "collecting-dietary"
	StateComplete             State = "complete"
)

// ErrInvalidHistory is returned when caller-supplied history contains a role
// other than user or assistant.
var ErrInvalidHistory = errors.New("invalid conversation history")

// CollectedData is the canonical record accumulated across turns plus the
// engine's bookkeeping.
type CollectedData struct {
	Fields
	MetabolicProfile *MetabolicProfile `json:"metabolic_profile,omitempty"`
	DietaryAsked     bool              `json:"dietary_asked,omitempty"`
}

type Session struct {
	History []llm.Message `json:"conversation_history"`
	Data    CollectedData `json:"collected_data"`
}

type TurnResult struct {
	Message          string            `json:"message"`
	History          []llm.Message     `json:"conversation_history"`
	Data             CollectedData     `json:"collected_data"`
	IsComplete       bool              `json:"is_complete"`
	NextMissingField string            `json:"next_missing_field,omitempty"`
	MetabolicProfile *MetabolicProfile `json:"metabolic_profile,omitempty"`
	Export           *Export           `json:"db_export,omitempty"`
	State            State             `json:"state"`
}

// Session returns the state a caller should store for the next turn.
func (r TurnResult) Session() Session {
	return Session{History: r.History, Data: r.Data}
}

// mergeRequired overwrites required fields present in f. Dietary data and
// confirmation are merged separately by the flow.
func (d *CollectedData) mergeRequired(f Fields) {
	if f.Gender != "" {
		d.Gender = f.Gender
	}
	if f.DateOfBirth != "" {
		d.DateOfBirth = f.DateOfBirth
	}
	if f.CurrentHeight > 0 {
		d.CurrentHeight = f.CurrentHeight
	}
	if f.CurrentHeightUnit != "" {
		d.CurrentHeightUnit = f.CurrentHeightUnit
	}
	if f.CurrentWeight > 0 {
		d.CurrentWeight = f.CurrentWeight
	}
	if f.CurrentWeightUnit != "" {
		d.CurrentWeightUnit = f.CurrentWeightUnit
	}
	if f.TargetWeight > 0 {
		d.TargetWeight = f.TargetWeight
	}
	if f.TargetWeightUnit != "" {
		d.TargetWeightUnit = f.TargetWeightUnit
	}
	if f.Goal != "" {
		d.Goal = f.Goal
	}
	if f.TargetSpeed != "" {
		d.TargetSpeed = f.TargetSpeed
	}
	if f.ActivityLevel != "" {
		d.ActivityLevel = f.ActivityLevel
	}
}

// mergeDietary adds flags from f. A stated flag clears an earlier
// no-restrictions note.
func (d *CollectedData) mergeDietary(f Fields) {
	if len(f.Dietary) > 0 {
		if d.Dietary == nil {
			d.Dietary = map[string]bool{}
		}
		for flag, on := range f.Dietary {
			if on {
				d.Dietary[flag] = true
			}
		}
		d.DietaryNote = ""
		return
	}
	if f.DietaryNote != "" && len(d.Dietary) == 0 {
		d.DietaryNote = f.DietaryNote
	}
}

// MissingForProfile lists the unset required fields other than
// target_speed, which defaults to normal.
func (d CollectedData) MissingForProfile() []string {
	var out []string
	for _, name := range d.Missing() {
		if name != FieldTargetSpeed {
			out = append(out, name)
		}
	}
	return out
}

func (d CollectedData) readyForProfile() bool {
	return len(d.MissingForProfile()) == 0
}

// NextMissingField is the first field MissingForProfile reports, or "".
func (d CollectedData) NextMissingField() string {
	if missing := d.MissingForProfile(); len(missing) > 0 {
		return missing[0]
	}
	return ""
}

// State reports where the conversation stands.
func (d CollectedData) State() State {
	switch {
	case d.NextMissingField() != "" || d.MetabolicProfile == nil:
		return StateCollectingRequired
	case !d.MacrosConfirmed:
		return StateAwaitingConfirmation
	case !d.HasDietary():
		return StateCollectingDietary
	default:
		return StateComplete
	}
}
