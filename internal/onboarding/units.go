package onboarding

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

const (
	lbToKG = 0.453592
	inToCM = 2.54
)

var numberRe = regexp.MustCompile(`\d+(?:\.\d+)?|\.\d+`)

type measure int

const (
	measureHeight measure = iota
	measureWeight
)

// numberAndUnit reads a value such as 80, "80kg" or "5.9 feet". Bare numbers
// never carry a unit. The number must be positive.
func numberAndUnit(v any, m measure) (float64, string, bool) {
	switch n := v.(type) {
	case float64:
		return n, "", n > 0
	case float32:
		return float64(n), "", n > 0
	case int:
		return float64(n), "", n > 0
	case int64:
		return float64(n), "", n > 0
	case json.Number:
		f, err := n.Float64()
		return f, "", err == nil && f > 0
	case string:
		text := strings.ToLower(strings.TrimSpace(n))
		match := numberRe.FindString(text)
		if match == "" {
			return 0, "", false
		}
		f, err := strconv.ParseFloat(match, 64)
		if err != nil || f <= 0 {
			return 0, "", false
		}
		return f, inferUnit(text, m), true
	default:
		return 0, "", false
	}
}

var (
	unitWordRe   = regexp.MustCompile(`[a-z]+`)
	heightMarkRe = regexp.MustCompile(`\d\s*(?:'|′|"|″)`)

	weightUnitWords = map[string]string{
		"kg": UnitKG, "kgs": UnitKG, "kilo": UnitKG, "kilos": UnitKG,
		"kilogram": UnitKG, "kilograms": UnitKG, "kilogramme": UnitKG, "kilogrammes": UnitKG,
		"lb": UnitLB, "lbs": UnitLB, "pound": UnitLB, "pounds": UnitLB,
	}
	heightUnitWords = map[string]string{
		"cm": UnitCM, "cms": UnitCM, "centimeter": UnitCM, "centimeters": UnitCM,
		"centimetre": UnitCM, "centimetres": UnitCM,
		"in": UnitIn, "inch": UnitIn, "inches": UnitIn,
		"ft": UnitIn, "foot": UnitIn, "feet": UnitIn,
	}
)

// inferUnit matches whole unit words only, so "I think" or "standing" carry
// no unit. Height also accepts foot and inch marks following a digit.
func inferUnit(text string, m measure) string {
	words := weightUnitWords
	if m == measureHeight {
		words = heightUnitWords
	}
	for _, w := range unitWordRe.FindAllString(text, -1) {
		if u, ok := words[w]; ok {
			return u
		}
	}
	if m == measureHeight && heightMarkRe.MatchString(text) {
		return UnitIn
	}
	return ""
}

func normalizeHeightUnit(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in", "inch", "inches", "feet", "foot", "ft":
		return UnitIn
	case "cm", "centimeter", "centimeters", "centimetre", "centimetres":
		return UnitCM
	}
	return ""
}

func normalizeWeightUnit(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lb", "lbs", "pound", "pounds":
		return UnitLB
	case "kg", "kgs", "kilo", "kilos", "kilogram", "kilograms":
		return UnitKG
	}
	return ""
}

func toKG(weight float64, unit string) float64 {
	if unit == UnitLB {
		return weight * lbToKG
	}
	return weight
}

func toCM(height float64, unit string) float64 {
	if unit == UnitIn {
		return height * inToCM
	}
	return height
}
