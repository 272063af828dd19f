package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joelkehle/macro-onboarding/internal/onboarding"
)

var (
	calcIn      onboarding.MetabolicInput
	calcDOB     string
	calcSummary bool
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Compute BMR, TDEE and daily macro targets",
	Example: `  onboard calc --gender male --weight 180 --weight-unit lb --height 70 --height-unit in \
    --age 30 --activity moderate --goal lose_weight --target-weight 170 --target-unit lb`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := calcIn
		if calcDOB != "" {
			in.Age = onboarding.AgeFromDOB(calcDOB, time.Now())
		}
		profile := onboarding.Compute(in)
		if calcSummary {
			fmt.Fprintln(cmd.OutOrStdout(), onboarding.MacroSummary(profile))
			return nil
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(profile)
	},
}

func init() {
	f := calcCmd.Flags()
	f.StringVar(&calcIn.Gender, "gender", onboarding.GenderMale, "male, female or others")
	f.Float64Var(&calcIn.Weight, "weight", 0, "current weight")
	f.StringVar(&calcIn.WeightUnit, "weight-unit", onboarding.UnitKG, "kg or lb")
	f.Float64Var(&calcIn.Height, "height", 0, "current height")
	f.StringVar(&calcIn.HeightUnit, "height-unit", onboarding.UnitCM, "cm or in")
	f.IntVar(&calcIn.Age, "age", 25, "age in years")
	f.StringVar(&calcDOB, "dob", "", "date of birth (YYYY-MM-DD), overrides --age")
	f.StringVar(&calcIn.ActivityLevel, "activity", onboarding.ActivityModerate, "sedentary, light, moderate or active")
	f.StringVar(&calcIn.Goal, "goal", onboarding.GoalMaintain, "lose_weight, maintain or gain_weight")
	f.Float64Var(&calcIn.TargetWeight, "target-weight", 0, "target weight")
	f.StringVar(&calcIn.TargetWeightUnit, "target-unit", onboarding.UnitKG, "kg or lb")
	f.StringVar(&calcIn.TargetSpeed, "speed", onboarding.SpeedNormal, "slow, normal or fast")
	f.BoolVar(&calcSummary, "summary", false, "print the chat summary instead of JSON")
	rootCmd.AddCommand(calcCmd)
}
