package onboarding

type DietaryPreferences struct {
	Vegan       bool `json:"vegan"`
	DairyFree   bool `json:"dairy_free"`
	GlutenFree  bool `json:"gluten_free"`
	NutFree     bool `json:"nut_free"`
	Pescatarian bool `json:"pescatarian"`
}

type ProfileExport struct {
	Gender             string             `json:"gender"`
	DateOfBirth        string             `json:"date_of_birth"`
	CurrentHeight      float64            `json:"current_height"`
	CurrentHeightUnit  string             `json:"current_height_unit"`
	CurrentWeight      float64            `json:"current_weight"`
	CurrentWeightUnit  string             `json:"current_weight_unit"`
	TargetWeight       float64            `json:"target_weight"`
	TargetWeightUnit   string             `json:"target_weight_unit"`
	Goal               string             `json:"goal"`
	TargetSpeed        string             `json:"target_speed"`
	ActivityLevel      string             `json:"activity_level"`
	DietaryPreferences DietaryPreferences `json:"dietary_preferences"`
}

// Export is the persisted shape of a finished (or partial) onboarding.
type Export struct {
	Profile          ProfileExport    `json:"profile"`
	MetabolicProfile MetabolicProfile `json:"metabolic_profile"`
}

// FormatExport fills every field, defaulting what has not been collected.
func FormatExport(d CollectedData) Export {
	p := ProfileExport{
		Gender:            d.Gender,
		DateOfBirth:       d.DateOfBirth,
		CurrentHeight:     d.CurrentHeight,
		CurrentHeightUnit: orDefault(d.CurrentHeightUnit, UnitCM),
		CurrentWeight:     d.CurrentWeight,
		CurrentWeightUnit: orDefault(d.CurrentWeightUnit, UnitKG),
		TargetWeight:      d.TargetWeight,
		TargetWeightUnit:  orDefault(d.TargetWeightUnit, UnitKG),
		Goal:              orDefault(d.Goal, GoalMaintain),
		TargetSpeed:       orDefault(d.TargetSpeed, SpeedNormal),
		ActivityLevel:     orDefault(d.ActivityLevel, ActivityModerate),
		DietaryPreferences: DietaryPreferences{
			Vegan:       d.Dietary[FlagVegan],
			DairyFree:   d.Dietary[FlagDairyFree],
			GlutenFree:  d.Dietary[FlagGlutenFree],
			NutFree:     d.Dietary[FlagNutFree],
			Pescatarian: d.Dietary[FlagPescatarian],
		},
	}
	out := Export{Profile: p}
	if d.MetabolicProfile != nil {
		out.MetabolicProfile = *d.MetabolicProfile
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
