package onboarding

import (
	"math"
	"time"
)

const (
	minWeightKG, maxWeightKG, defaultWeightKG = 30.0, 300.0, 70.0
	minHeightCM, maxHeightCM, defaultHeightCM = 100.0, 250.0, 170.0
	minAge, maxAge, defaultAge                = 10, 100, 25

	minDailyCalories = 1200.0
	minCarbsG        = 50.0
	loseAdjustment   = -400.0
	gainAdjustment   = 350.0
	proteinPerKG     = 1.8
	fatCalorieShare  = 0.25
	goalToleranceKG  = 0.5
	maxDaysToGoal    = math.MaxInt32
)

type MetabolicInput struct {
	Gender           string
	Weight           float64
	WeightUnit       string
	Height           float64
	HeightUnit       string
	Age              int
	ActivityLevel    string
	Goal             string
	TargetWeight     float64
	TargetWeightUnit string
	TargetSpeed      string
}

type MetabolicProfile struct {
	BMR                 float64 `json:"bmr"`
	TDEE                float64 `json:"tdee"`
	DailyCalorieTarget  float64 `json:"daily_calorie_target"`
	ProteinG            float64 `json:"protein_g"`
	CarbsG              float64 `json:"carbs_g"`
	FatsG               float64 `json:"fats_g"`
	EstimatedDaysToGoal int     `json:"estimated_days_to_goal"`
}

// Compute derives energy expenditure and macro targets with Mifflin-St Jeor.
// It is pure and never fails: non-positive metrics fall back to defaults
// (a missing target weight to the current weight), the rest are clamped to
// physiological bounds, and unmapped activity levels or goals use the
// documented defaults.
func Compute(in MetabolicInput) MetabolicProfile {
	weightKG := boundedOrDefault(toKG(in.Weight, in.WeightUnit), minWeightKG, maxWeightKG, defaultWeightKG)
	heightCM := boundedOrDefault(toCM(in.Height, in.HeightUnit), minHeightCM, maxHeightCM, defaultHeightCM)
	targetKG := boundedOrDefault(toKG(in.TargetWeight, in.TargetWeightUnit), minWeightKG, maxWeightKG, weightKG)
	age := in.Age
	switch {
	case age <= 0:
		age = defaultAge
	case age < minAge:
		age = minAge
	case age > maxAge:
		age = maxAge
	}

	bmr := 10*weightKG + 6.25*heightCM - 5*float64(age)
	if in.Gender == GenderMale {
		bmr += 5
	} else {
		bmr -= 161
	}

	multiplier, ok := activityMultipliers[in.ActivityLevel]
	if !ok {
		multiplier = DefaultActivityMultiplier
	}
	tdee := bmr * multiplier

	calories := tdee
	switch in.Goal {
	case GoalLoseWeight:
		calories += loseAdjustment
	case GoalGainWeight:
		calories += gainAdjustment
	}
	calories = math.Max(calories, minDailyCalories)

	protein := round1(weightKG * proteinPerKG)
	fats := round1(calories * fatCalorieShare / 9)
	carbs := math.Max(round1((calories-protein*4-fats*9)/4), minCarbsG)

	return MetabolicProfile{
		BMR:                 round1(bmr),
		TDEE:                round1(tdee),
		DailyCalorieTarget:  round1(calories),
		ProteinG:            protein,
		CarbsG:              carbs,
		FatsG:               fats,
		EstimatedDaysToGoal: daysToGoal(in.Goal, weightKG, targetKG, in.TargetSpeed),
	}
}

func daysToGoal(goal string, weightKG, targetKG float64, speed string) int {
	diff := math.Abs(weightKG - targetKG)
	if goal == GoalMaintain || diff < goalToleranceKG {
		return 0
	}
	rate, ok := speedRates[speed]
	if !ok {
		rate = speedRates[SpeedNormal]
	}
	// Round away float noise before the ceiling so 10kg at 0.5kg/week is 140.
	days := math.Ceil(math.Round(7*diff/rate*1e6) / 1e6)
	if math.IsNaN(days) || days < 0 {
		return 0
	}
	if days > maxDaysToGoal {
		return maxDaysToGoal
	}
	return int(days)
}

func boundedOrDefault(v, lo, hi, def float64) float64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return math.Min(math.Max(v, lo), hi)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// AgeFromDOB returns the age in whole years at now, or 25 when the date does
// not parse or gives an implausible age.
func AgeFromDOB(dob string, now time.Time) int {
	born, err := time.Parse(time.DateOnly, dob)
	if err != nil {
		return defaultAge
	}
	age := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		age--
	}
	if age <= 0 || age >= 120 {
		return defaultAge
	}
	return age
}
