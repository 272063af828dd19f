package onboarding

import (
	"sort"
	"strings"
)

var noRestrictionPhrases = map[string]bool{
	"none": true, "no": true, "nope": true, "nothing": true, "nada": true,
	"n/a": true, "na": true, "nah": true, "no_restrictions": true,
	"nothing_really": true, "not_really": true, "no_preferences": true,
	"no_dietary": true, "no_allergies": true, "none_at_all": true,
	"nothing_special": true, "i_eat_everything": true, "eat_everything": true,
	"no_issues": true, "no_food_allergies": true, "all_good": true,
}

var dietarySynonyms = map[string]string{
	"dairy": FlagDairyFree, "lactose": FlagDairyFree,
	"lactose_intolerant": FlagDairyFree, "lactose_free": FlagDairyFree,
	"gluten": FlagGlutenFree, "celiac": FlagGlutenFree,
	"coeliac": FlagGlutenFree,
	"nut": FlagNutFree,
	"nut_allergy": FlagNutFree, "peanut": FlagNutFree, "peanut_allergy": FlagNutFree,
	"pesc": FlagPescatarian, "fish_only": FlagPescatarian,
	"vegetarian": FlagVegan, "plant_based": FlagVegan,
}

// Single words that identify a flag when an item is a longer phrase such as
// "i have celiac disease".
var dietaryKeywords = map[string]string{
	"vegan": FlagVegan, "vegetarian": FlagVegan, "plant": FlagVegan,
	"dairy": FlagDairyFree, "lactose": FlagDairyFree, "milk": FlagDairyFree,
	"gluten": FlagGlutenFree, "celiac": FlagGlutenFree, "coeliac": FlagGlutenFree, "wheat": FlagGlutenFree,
	"nut": FlagNutFree, "nuts": FlagNutFree, "peanut": FlagNutFree, "peanuts": FlagNutFree,
	"pescatarian": FlagPescatarian, "pescetarian": FlagPescatarian, "pesc": FlagPescatarian,
}

// dietaryResult is either a set of flags or the no-restrictions sentinel.
type dietaryResult struct {
	flags map[string]bool
	none  bool
}

func normalizeDietaryItem(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return strings.Trim(s, ".,!?;:")
}

func isNoRestriction(item string) bool {
	return noRestrictionPhrases[item] || strings.HasPrefix(item, "nothing") || strings.HasPrefix(item, "no_")
}

// dietaryFlagsFor maps one normalized item to flags. An exact flag or synonym
// wins, then keyword tokens inside the phrase.
func dietaryFlagsFor(item string) []string {
	if isDietaryFlag(item) {
		return []string{item}
	}
	if flag, ok := dietarySynonyms[item]; ok {
		return []string{flag}
	}
	seen := map[string]bool{}
	var out []string
	for _, tok := range strings.FieldsFunc(item, func(r rune) bool { return r == '_' || r == ',' || r == '/' }) {
		if flag, ok := dietaryKeywords[tok]; ok && !seen[flag] {
			seen[flag] = true
			out = append(out, flag)
		}
	}
	return out
}

func parseDietaryItems(items []string) dietaryResult {
	res := dietaryResult{flags: map[string]bool{}}
	for _, raw := range items {
		item := normalizeDietaryItem(raw)
		if item == "" {
			continue
		}
		if item == normalizeDietaryItem(NoRestrictionsStated) {
			res.none = true
			continue
		}
		if isNoRestriction(item) {
			res.none = true
			continue
		}
		for _, f := range dietaryFlagsFor(item) {
			res.flags[f] = true
		}
	}
	if res.none {
		res.flags = nil
	}
	return res
}

// dietaryItems accepts a string, a list or a map of flag booleans.
func dietaryItems(v any) ([]string, bool) {
	switch d := v.(type) {
	case string:
		return []string{d}, true
	case []string:
		return d, true
	case []any:
		out := make([]string, 0, len(d))
		for _, item := range d {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	case map[string]any:
		var out []string
		for k, val := range d {
			if truthy(val) {
				out = append(out, k)
			}
		}
		sort.Strings(out)
		return out, true
	}
	return nil, false
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		s := strings.ToLower(strings.TrimSpace(b))
		return s == "true" || s == "yes"
	}
	return false
}

func sortedFlags(flags map[string]bool) []string {
	out := make([]string, 0, len(flags))
	for _, f := range dietaryFlags {
		if flags[f] {
			out = append(out, f)
		}
	}
	return out
}
