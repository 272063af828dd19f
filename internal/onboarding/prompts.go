package onboarding

import (
	"fmt"
	"strings"
)

const (
	extractionTemperature   = 0.0
	conversationTemperature = 0.3
)

func extractionSystemPrompt() string {
	return fmt.Sprintf(`You are a data extraction AI. Extract ONLY information from the LAST user message in the conversation.

FIELDS TO EXTRACT WITH VALID OPTIONS:

1. gender - Valid options: %s
   Map: "m"->male, "f"->female, "trans"->others. Interpret typos ("mal"->male, "femal"->female).

2. date_of_birth - Format: YYYY-MM-DD
   Parse: "19th june 2000" -> "2000-06-19", "born in 1990" -> "1990-01-01"

3. current_height - NUMBER ONLY
4. current_height_unit - "cm" or "in"
   Convert: "5.9 feet" -> height=70.8, unit="in"; "5 foot 10" -> height=70, unit="in"; "175 cm" -> height=175, unit="cm"

5. current_weight - NUMBER ONLY
6. current_weight_unit - "kg" or "lb" ("kilos"->kg, "pounds"->lb)

7. target_weight - NUMBER ONLY
8. target_weight_unit - "kg" or "lb"

9. goal - Valid options: %s
   Map: "lose"/"cut"/"drop pounds"->lose_weight, "gain"/"bulk"->gain_weight, "maintenance"->maintain

10. target_speed - Valid options: %s
    Map: "quick"->fast, "steady"->normal, "gradual"->slow

11. activity_level - Valid options: %s
    Map: "very active"/"gym rat"->active, "lightly active"->light, "desk job"/"couch potato"->sedentary

12. macros_confirmed - true ONLY if the user agrees with the targets shown (yes, sure, looks good, perfect, okay)

13. dietary - RETURN AS ARRAY. Valid options: none, %s
    Any negative answer ("no", "nope", "nothing", "none", "no restrictions") -> ["none"]
    Map: "celiac"->gluten_free, "lactose intolerant"->dairy_free, "allergic to nuts"->nut_free
    Multiple: "I'm vegan and can't eat gluten" -> ["vegan", "gluten_free"]

RULES:
1. Extract ONLY from the LAST user message.
2. Do not guess fields that were not mentioned.
3. Map typos and slang to the valid options.
4. Always pair a height or weight number with its unit.
5. Return ONLY valid JSON, for example {"gender": "male", "current_weight": 80, "current_weight_unit": "kg"}.`,
		strings.Join(validGenders, ", "),
		strings.Join(validGoals, ", "),
		strings.Join(validSpeeds, ", "),
		strings.Join(activityKeys, ", "),
		strings.Join(dietaryFlags[:], ", "),
	)
}

func extractionUserPrompt(botAsked, userSaid string) string {
	var b strings.Builder
	b.WriteString("Extract data from this exchange:\n")
	if botAsked != "" {
		fmt.Fprintf(&b, "Bot asked: %q\n", botAsked)
	}
	fmt.Fprintf(&b, "User responded: %q\n\nReturn ONLY JSON.", userSaid)
	return b.String()
}

func conversationSystemPrompt(d CollectedData, missing []string) string {
	collected := d.collectedSummary()
	if collected == "" {
		collected = "none"
	}
	missingStr := "none"
	if len(missing) > 0 {
		missingStr = strings.Join(missing, ", ")
	}
	return fmt.Sprintf(`You are a fitness coach collecting user info.

COLLECTED: %s
MISSING: %s
Macros calculated: %t
Macros confirmed: %t

VALID OPTIONS:
- Gender: %s
- Goal: %s
- Speed: %s
- Activity: %s
- Dietary: none, %s

RULES:
1. Ask ONE question at a time.
2. Keep responses SHORT (1-2 sentences).
3. If the user already gave info, don't ask again.
4. Accept any variation and interpret it to a valid option.
5. If the input is unclear, ask again differently.
6. Be conversational and friendly.
7. ALWAYS ask for the FIRST field in the MISSING list.
8. DO NOT calculate macros yourself. Wait for the system.
9. DO NOT offer tips, meal plans, recipes, or advice.
10. YOUR ONLY GOAL IS DATA COLLECTION.`,
		collected, missingStr,
		d.MetabolicProfile != nil, d.MacrosConfirmed,
		strings.Join(validGenders, ", "),
		strings.Join(validGoals, ", "),
		strings.Join(validSpeeds, ", "),
		strings.Join(activityKeys, ", "),
		strings.Join(dietaryFlags[:], ", "),
	)
}

// steeringPrompt names the next thing the model must ask for.
func steeringPrompt(userMessage, next string) string {
	if next == "" {
		return fmt.Sprintf("User: '%s'. Ask ONE question only.", userMessage)
	}
	return fmt.Sprintf("User: '%s'. The NEXT missing field is '%s'. You MUST ask for it now.", userMessage, next)
}

func (d CollectedData) collectedSummary() string {
	var parts []string
	for _, name := range requiredFields {
		if d.has(name) {
			parts = append(parts, name)
		}
	}
	switch {
	case len(d.Dietary) > 0:
		parts = append(parts, "dietary: "+strings.Join(sortedFlags(d.Dietary), ", "))
	case d.DietaryNote != "":
		parts = append(parts, "dietary: none")
	}
	return strings.Join(parts, ", ")
}
