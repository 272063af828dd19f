package onboarding

import (
	"strings"
	"time"
)

// Fields is the canonical subset of a candidate map that survived
// validation. Zero values mean "not supplied".
type Fields struct {
	Gender            string  `json:"gender,omitempty"`
	DateOfBirth       string  `json:"date_of_birth,omitempty"`
	CurrentHeight     float64 `json:"current_height,omitempty"`
	CurrentHeightUnit string  `json:"current_height_unit,omitempty"`
	CurrentWeight     float64 `json:"current_weight,omitempty"`
	CurrentWeightUnit string  `json:"current_weight_unit,omitempty"`
	TargetWeight      float64 `json:"target_weight,omitempty"`
	TargetWeightUnit  string  `json:"target_weight_unit,omitempty"`
	Goal              string  `json:"goal,omitempty"`
	TargetSpeed       string  `json:"target_speed,omitempty"`
	ActivityLevel     string  `json:"activity_level,omitempty"`

	MacrosConfirmed bool            `json:"macros_confirmed,omitempty"`
	Dietary         map[string]bool `json:"dietary,omitempty"`
	DietaryNote     string          `json:"dietary_note,omitempty"`
}

var genderSynonyms = map[string]string{"m": GenderMale, "f": GenderFemale, "other": GenderOthers}

var goalSynonyms = map[string]string{
	"lose": GoalLoseWeight, "cut": GoalLoseWeight,
	"gain": GoalGainWeight, "bulk": GoalGainWeight,
	"maintenance": GoalMaintain,
}

var activitySynonyms = map[string]string{
	"inactive": ActivitySedentary, "desk": ActivitySedentary, "office": ActivitySedentary,
	"desk_job": ActivitySedentary, "sitting": ActivitySedentary,
	"lightly_active": ActivityLight, "lightly": ActivityLight, "some_exercise": ActivityLight,
	"walk": ActivityLight, "walking": ActivityLight,
	"moderately_active": ActivityModerate, "regular": ActivityModerate, "gym": ActivityModerate,
	"workout": ActivityModerate, "exercise": ActivityModerate,
	"very_active": ActivityActive, "highly_active": ActivityActive, "athlete": ActivityActive,
	"sports": ActivityActive, "daily_exercise": ActivityActive, "run": ActivityActive,
	"running": ActivityActive,
}

var confirmValues = []string{"true", "yes", "confirm", "ok"}

// Validate accepts, rejects or canonicalizes each candidate field. Unknown
// keys and malformed values are dropped. It never panics.
func Validate(candidate map[string]any) Fields {
	var f Fields
	if candidate == nil {
		return f
	}
	f.Gender = validateGender(candidate[FieldGender])
	f.DateOfBirth = validateDate(candidate[FieldDateOfBirth])
	f.ActivityLevel = validateActivity(candidate[FieldActivityLevel])
	f.Goal = validateGoal(candidate[FieldGoal])
	f.TargetSpeed = validateSpeed(candidate[FieldTargetSpeed])

	f.CurrentHeight, f.CurrentHeightUnit = validateMeasure(candidate, FieldCurrentHeight, FieldCurrentHeightUnit, measureHeight)
	f.CurrentWeight, f.CurrentWeightUnit = validateMeasure(candidate, FieldCurrentWeight, FieldCurrentWeightUnit, measureWeight)
	f.TargetWeight, f.TargetWeightUnit = validateMeasure(candidate, FieldTargetWeight, FieldTargetWeightUnit, measureWeight)

	f.MacrosConfirmed = validateConfirmed(candidate[FieldMacrosConfirmed])
	validateDietary(candidate, &f)
	return f
}

func lowerString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(s)), true
}

func validateGender(v any) string {
	g, ok := lowerString(v)
	if !ok {
		return ""
	}
	if mapped, ok := genderSynonyms[g]; ok {
		g = mapped
	}
	if contains(validGenders, g) {
		return g
	}
	return ""
}

func validateDate(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return ""
	}
	return s
}

func validateActivity(v any) string {
	level, ok := lowerString(v)
	if !ok {
		return ""
	}
	normalized := strings.NewReplacer(" ", "_", "-", "_").Replace(level)
	if mapped, ok := activitySynonyms[normalized]; ok {
		level = mapped
	} else if mapped, ok := activitySynonyms[level]; ok {
		level = mapped
	}
	if _, ok := activityMultipliers[level]; ok {
		return level
	}
	return ""
}

func validateGoal(v any) string {
	goal, ok := lowerString(v)
	if !ok {
		return ""
	}
	goal = strings.ReplaceAll(goal, " ", "_")
	if mapped, ok := goalSynonyms[goal]; ok {
		goal = mapped
	}
	if contains(validGoals, goal) {
		return goal
	}
	return ""
}

func validateSpeed(v any) string {
	speed, ok := lowerString(v)
	if !ok {
		return ""
	}
	if _, ok := speedRates[speed]; ok {
		return speed
	}
	return ""
}

// validateMeasure keeps a number only when its unit is known, either
// inferred from the same text or supplied alongside it in the candidate.
func validateMeasure(candidate map[string]any, field, unitField string, m measure) (float64, string) {
	normalize := normalizeWeightUnit
	if m == measureHeight {
		normalize = normalizeHeightUnit
	}
	explicit := ""
	if raw, ok := candidate[unitField]; ok {
		explicit = normalize(raw)
	}

	raw, ok := candidate[field]
	if !ok {
		return 0, explicit
	}
	num, inferred, ok := numberAndUnit(raw, m)
	if !ok {
		return 0, explicit
	}
	switch {
	case inferred != "":
		return num, inferred
	case explicit != "":
		return num, explicit
	default:
		return 0, ""
	}
}

func validateConfirmed(v any) bool {
	switch c := v.(type) {
	case bool:
		return c
	case string:
		return contains(confirmValues, strings.ToLower(strings.TrimSpace(c)))
	}
	return false
}

func validateDietary(candidate map[string]any, f *Fields) {
	var items []string
	for _, flag := range dietaryFlags {
		if truthy(candidate[flag]) {
			items = append(items, flag)
		}
	}
	if raw, ok := candidate[FieldDietary]; ok {
		if extra, ok := dietaryItems(raw); ok {
			items = append(items, extra...)
		}
	}
	if len(items) == 0 {
		return
	}
	res := parseDietaryItems(items)
	switch {
	case res.none:
		f.DietaryNote = NoRestrictionsStated
	case len(res.flags) > 0:
		f.Dietary = res.flags
	}
}

// Map renders the fields back into candidate form; validating the result
// yields the same Fields.
func (f Fields) Map() map[string]any {
	m := map[string]any{}
	setString := func(key, v string) {
		if v != "" {
			m[key] = v
		}
	}
	setString(FieldGender, f.Gender)
	setString(FieldDateOfBirth, f.DateOfBirth)
	setString(FieldGoal, f.Goal)
	setString(FieldTargetSpeed, f.TargetSpeed)
	setString(FieldActivityLevel, f.ActivityLevel)
	setString(FieldCurrentHeightUnit, f.CurrentHeightUnit)
	setString(FieldCurrentWeightUnit, f.CurrentWeightUnit)
	setString(FieldTargetWeightUnit, f.TargetWeightUnit)
	if f.CurrentHeight > 0 {
		m[FieldCurrentHeight] = f.CurrentHeight
	}
	if f.CurrentWeight > 0 {
		m[FieldCurrentWeight] = f.CurrentWeight
	}
	if f.TargetWeight > 0 {
		m[FieldTargetWeight] = f.TargetWeight
	}
	if f.MacrosConfirmed {
		m[FieldMacrosConfirmed] = true
	}
	switch {
	case f.DietaryNote != "":
		m[FieldDietary] = []string{f.DietaryNote}
	case len(f.Dietary) > 0:
		m[FieldDietary] = sortedFlags(f.Dietary)
	}
	return m
}

// Missing lists the required fields in f that are still unset, in catalog
// order.
func (f Fields) Missing() []string {
	var out []string
	for _, name := range requiredFields {
		if !f.has(name) {
			out = append(out, name)
		}
	}
	return out
}

func (f Fields) has(name string) bool {
	switch name {
	case FieldGender:
		return f.Gender != ""
	case FieldDateOfBirth:
		return f.DateOfBirth != ""
	case FieldCurrentHeight:
		return f.CurrentHeight > 0
	case FieldCurrentHeightUnit:
		return f.CurrentHeightUnit != ""
	case FieldCurrentWeight:
		return f.CurrentWeight > 0
	case FieldCurrentWeightUnit:
		return f.CurrentWeightUnit != ""
	case FieldTargetWeight:
		return f.TargetWeight > 0
	case FieldTargetWeightUnit:
		return f.TargetWeightUnit != ""
	case FieldGoal:
		return f.Goal != ""
	case FieldTargetSpeed:
		return f.TargetSpeed != ""
	case FieldActivityLevel:
		return f.ActivityLevel != ""
	}
	return false
}

// HasDietary reports whether any dietary information was captured.
func (f Fields) HasDietary() bool {
	return len(f.Dietary) > 0 || f.DietaryNote != ""
}
