package onboarding

import (
	"fmt"
	"strings"
)

const (
	welcomeFallback = "Hey! I'm excited to help you on your fitness journey! What's your gender?"
	dietaryFallback = "Do you have any dietary restrictions? (vegan, dairy-free, gluten-free, nut-free, pescatarian, or none)"
	generalFallback = "Any dietary restrictions?"
)

// MacroSummary is the message shown once the profile is computed.
func MacroSummary(p MetabolicProfile) string {
	var b strings.Builder
	b.WriteString("Here are your recommended daily targets:\n\n")
	fmt.Fprintf(&b, "📊 **Calories:** %.1f kcal\n", p.DailyCalorieTarget)
	fmt.Fprintf(&b, "🥩 **Protein:** %.1fg\n", p.ProteinG)
	fmt.Fprintf(&b, "🍞 **Carbs:** %.1fg\n", p.CarbsG)
	fmt.Fprintf(&b, "🧈 **Fat:** %.1fg", p.FatsG)
	if p.EstimatedDaysToGoal > 0 {
		fmt.Fprintf(&b, "\n⏱️ **Estimated time to goal:** %d days", p.EstimatedDaysToGoal)
	}
	b.WriteString("\n\nDoes this look good to you?")
	return b.String()
}

func completionMessage(p *MetabolicProfile) string {
	var b strings.Builder
	b.WriteString("Thank you! Your profile is complete!\n\n")
	if p == nil {
		return b.String()
	}
	b.WriteString("**Your Daily Targets:**\n")
	fmt.Fprintf(&b, "- Calories: %.1f kcal\n", p.DailyCalorieTarget)
	fmt.Fprintf(&b, "- Protein: %.1fg | Carbs: %.1fg | Fat: %.1fg\n", p.ProteinG, p.CarbsG, p.FatsG)
	if p.EstimatedDaysToGoal > 0 {
		fmt.Fprintf(&b, "\nEstimated time to goal: %d days", p.EstimatedDaysToGoal)
	}
	return b.String()
}

func fieldQuestion(field string) string {
	return fmt.Sprintf("What's your %s?", strings.ReplaceAll(field, "_", " "))
}

var confirmationPhrases = []string{
	"yes", "yeah", "yep", "yup", "sure", "ok", "okay", "confirm",
	"looks good", "look good", "sounds good", "perfect", "great",
	"thank", "thanks", "correct", "right", "good", "that's fine",
	"fine", "proceed", "continue", "go ahead",
}

var skipPhrases = []string{"skip", "none", "nothing", "no restrictions", "don't have"}

// IsConfirmation reports whether text contains a confirmation phrase.
func IsConfirmation(text string) bool {
	return containsAny(text, confirmationPhrases)
}

func isSkip(text string) bool {
	return containsAny(text, skipPhrases)
}

func containsAny(text string, phrases []string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.ReplaceAll(text, "’", "'")
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
