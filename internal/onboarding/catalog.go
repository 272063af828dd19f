package onboarding

const (
	FieldGender            = "gender"
	FieldDateOfBirth       = "date_of_birth"
	FieldCurrentHeight     = "current_height"
	FieldCurrentHeightUnit = "current_height_unit"
	FieldCurrentWeight     = "current_weight"
	FieldCurrentWeightUnit = "current_weight_unit"
	FieldTargetWeight      = "target_weight"
	FieldTargetWeightUnit  = "target_weight_unit"
	FieldGoal              = "goal"
	FieldTargetSpeed       = "target_speed"
	FieldActivityLevel     = "activity_level"

	FieldMacrosConfirmed = "macros_confirmed"
	FieldDietary         = "dietary"
)

const (
	FlagVegan       = "vegan"
	FlagDairyFree   = "dairy_free"
	FlagGlutenFree  = "gluten_free"
	FlagNutFree     = "nut_free"
	FlagPescatarian = "pescatarian"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOthers = "others"

	GoalLoseWeight = "lose_weight"
	GoalMaintain   = "maintain"
	GoalGainWeight = "gain_weight"

	SpeedSlow   = "slow"
	SpeedNormal = "normal"
	SpeedFast   = "fast"

	ActivitySedentary = "sedentary"
	ActivityLight     = "light"
	ActivityModerate  = "moderate"
	ActivityActive    = "active"

	UnitCM = "cm"
	UnitIn = "in"
	UnitKG = "kg"
	UnitLB = "lb"
)

// NoRestrictionsStated replaces the dietary list when the user declines to
// name any restriction.
const NoRestrictionsStated = "no restrictions stated"

const DefaultActivityMultiplier = 1.375

var requiredFields = [...]string{
	FieldGender, FieldDateOfBirth,
	FieldCurrentHeight, FieldCurrentHeightUnit,
	FieldCurrentWeight, FieldCurrentWeightUnit,
	FieldTargetWeight, FieldTargetWeightUnit,
	FieldGoal, FieldTargetSpeed, FieldActivityLevel,
}

var dietaryFlags = [...]string{FlagVegan, FlagDairyFree, FlagGlutenFree, FlagNutFree, FlagPescatarian}

var (
	validGenders = []string{GenderMale, GenderFemale, GenderOthers}
	validGoals   = []string{GoalLoseWeight, GoalGainWeight, GoalMaintain}
	validSpeeds  = []string{SpeedSlow, SpeedNormal, SpeedFast}
	activityKeys = []string{ActivitySedentary, ActivityLight, ActivityModerate, ActivityActive}
)

var activityMultipliers = map[string]float64{
	ActivitySedentary: 1.2,
	ActivityLight:     1.375,
	ActivityModerate:  1.55,
	ActivityActive:    1.725,
}

// kg per week
var speedRates = map[string]float64{
	SpeedSlow:   0.25,
	SpeedNormal: 0.5,
	SpeedFast:   0.75,
}

func RequiredFields() []string {
	out := make([]string, len(requiredFields))
	copy(out, requiredFields[:])
	return out
}

func DietaryFlags() []string {
	out := make([]string, len(dietaryFlags))
	copy(out, dietaryFlags[:])
	return out
}

func ActivityMultiplier(level string) (float64, bool) {
	m, ok := activityMultipliers[level]
	return m, ok
}

func SpeedRate(speed string) (float64, bool) {
	r, ok := speedRates[speed]
	return r, ok
}

func isDietaryFlag(s string) bool {
	for _, f := range dietaryFlags {
		if f == s {
			return true
		}
	}
	return false
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
