package onboarding

import (
	"math"
	"testing"
	"time"
)

func baseInput() MetabolicInput {
	return MetabolicInput{
		Gender: GenderMale, Weight: 80, WeightUnit: UnitKG, Height: 180, HeightUnit: UnitCM,
		Age: 30, ActivityLevel: ActivityModerate, Goal: GoalMaintain,
		TargetWeight: 80, TargetWeightUnit: UnitKG, TargetSpeed: SpeedNormal,
	}
}

func TestComputeKnownValues(t *testing.T) {
	p := Compute(baseInput())
	want := MetabolicProfile{
		BMR: 1780, TDEE: 2759, DailyCalorieTarget: 2759,
		ProteinG: 144, FatsG: 76.6, CarbsG: 373.4, EstimatedDaysToGoal: 0,
	}
	if p != want {
		t.Fatalf("Compute = %+v, want %+v", p, want)
	}

	in := baseInput()
	in.Gender = GenderFemale
	if got := Compute(in).BMR; got != 1614 {
		t.Fatalf("female bmr = %v, want 1614", got)
	}
}

func TestComputeDaysToGoal(t *testing.T) {
	in := baseInput()
	in.Weight, in.TargetWeight, in.Goal = 90, 80, GoalLoseWeight
	if got := Compute(in).EstimatedDaysToGoal; got != 140 {
		t.Fatalf("days = %d, want 140", got)
	}
	in.TargetSpeed = SpeedFast
	if got := Compute(in).EstimatedDaysToGoal; got != 94 {
		t.Fatalf("fast days = %d, want 94", got)
	}
	in.TargetSpeed = "warp"
	if got := Compute(in).EstimatedDaysToGoal; got != 140 {
		t.Fatalf("unknown speed should use normal rate, got %d", got)
	}

	in = baseInput()
	in.Weight, in.TargetWeight, in.Goal = 80, 80.3, GoalGainWeight
	if got := Compute(in).EstimatedDaysToGoal; got != 0 {
		t.Fatalf("sub-tolerance delta should be 0 days, got %d", got)
	}
	in.TargetWeight = 90
	in.Goal = GoalMaintain
	if got := Compute(in).EstimatedDaysToGoal; got != 0 {
		t.Fatalf("maintain should be 0 days, got %d", got)
	}
}

func TestComputeConvertsImperial(t *testing.T) {
	metric := baseInput()
	imperial := baseInput()
	imperial.Weight, imperial.WeightUnit = 80/lbToKG, UnitLB
	imperial.Height, imperial.HeightUnit = 180/inToCM, UnitIn
	imperial.TargetWeight, imperial.TargetWeightUnit = 80/lbToKG, UnitLB
	if a, b := Compute(metric), Compute(imperial); a != b {
		t.Fatalf("imperial %+v != metric %+v", b, a)
	}
}

func TestComputeCalorieFloor(t *testing.T) {
	for _, gender := range []string{GenderMale, GenderFemale, GenderOthers} {
		for _, w := range []float64{30, 55, 90, 150, 300} {
			for _, h := range []float64{100, 150, 180, 250} {
				for _, age := range []int{10, 35, 70, 100} {
					for _, level := range activityKeys {
						for _, goal := range validGoals {
							p := Compute(MetabolicInput{
								Gender: gender, Weight: w, WeightUnit: UnitKG, Height: h, HeightUnit: UnitCM,
								Age: age, ActivityLevel: level, Goal: goal,
								TargetWeight: 70, TargetWeightUnit: UnitKG, TargetSpeed: SpeedNormal,
							})
							if p.DailyCalorieTarget < 1200 {
								t.Fatalf("calories %v < 1200 for %s %v kg %v cm %d %s %s", p.DailyCalorieTarget, gender, w, h, age, level, goal)
							}
							if p.CarbsG < 50 {
								t.Fatalf("carbs %v < 50", p.CarbsG)
							}
						}
					}
				}
			}
		}
	}
}

func TestComputeGoalMonotonic(t *testing.T) {
	for _, w := range []float64{60, 80, 120} {
		for _, h := range []float64{160, 175, 200} {
			for _, age := range []int{20, 40, 60} {
				in := baseInput()
				in.Gender, in.Weight, in.Height, in.Age, in.ActivityLevel = GenderFemale, w, h, age, ActivitySedentary
				in.Goal = GoalLoseWeight
				lose := Compute(in).DailyCalorieTarget
				in.Goal = GoalMaintain
				maintain := Compute(in).DailyCalorieTarget
				in.Goal = GoalGainWeight
				gain := Compute(in).DailyCalorieTarget
				if !(lose < maintain && maintain < gain) {
					t.Fatalf("not monotonic for %v/%v/%d: %v %v %v", w, h, age, lose, maintain, gain)
				}
			}
		}
	}
}

func TestComputeDeterministic(t *testing.T) {
	in := baseInput()
	in.Goal, in.Weight = GoalLoseWeight, 95
	first := Compute(in)
	for i := 0; i < 50; i++ {
		if got := Compute(in); got != first {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}

func TestComputeClampsAndDefaults(t *testing.T) {
	zero := Compute(MetabolicInput{Gender: GenderMale, ActivityLevel: "unknown", Goal: "unknown"})
	defaults := Compute(MetabolicInput{
		Gender: GenderMale, Weight: 70, WeightUnit: UnitKG, Height: 170, HeightUnit: UnitCM,
		Age: 25, ActivityLevel: ActivityLight, Goal: GoalMaintain,
	})
	if zero.BMR != defaults.BMR || zero.TDEE != defaults.TDEE {
		t.Fatalf("defaults not applied: %+v vs %+v", zero, defaults)
	}

	huge := baseInput()
	huge.Weight, huge.Height, huge.Age = 900, 400, 150
	capped := baseInput()
	capped.Weight, capped.Height, capped.Age = 300, 250, 100
	if Compute(huge).BMR != Compute(capped).BMR {
		t.Fatal("out of range metrics should clamp to bounds")
	}
}

func TestAgeFromDOB(t *testing.T) {
	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
	for dob, want := range map[string]int{
		"1990-06-15": 36,
		"1990-06-16": 35,
		"2000-12-31": 25,
		"not a date": 25,
		"1850-01-01": 25,
		"2030-01-01": 25,
	} {
		if got := AgeFromDOB(dob, now); got != want {
			t.Fatalf("AgeFromDOB(%q) = %d, want %d", dob, got, want)
		}
	}
}

func TestComputeBoundsTargetWeight(t *testing.T) {
	capped := baseInput()
	capped.Goal, capped.TargetWeight = GoalGainWeight, 300
	want := Compute(capped).EstimatedDaysToGoal
	if want != 3080 {
		t.Fatalf("days for 80kg -> 300kg = %d, want 3080", want)
	}
	for _, target := range []float64{1e23, 1e300} {
		in := baseInput()
		in.Goal, in.TargetWeight = GoalGainWeight, target
		if got := Compute(in).EstimatedDaysToGoal; got != want {
			t.Fatalf("target %v: days = %d, want %d", target, got, want)
		}
	}
	for _, target := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		in := baseInput()
		in.Goal, in.TargetWeight = GoalLoseWeight, target
		if got := Compute(in).EstimatedDaysToGoal; got != 0 {
			t.Fatalf("target %v: days = %d, want 0", target, got)
		}
	}
}
