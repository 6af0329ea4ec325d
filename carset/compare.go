package carset

import (
	"regexp"
	"strconv"
	"strings"
)

// Verdict classifies one field of a guess against the target.
type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
	VerdictLower     Verdict = "lower"
	VerdictHigher    Verdict = "higher"
	VerdictUnknown   Verdict = "unknown"
)

// FieldVerdict pairs a verdict with the guessed value echoed back to the
// player.
type FieldVerdict struct {
	Status Verdict `json:"status"`
	Value  string  `json:"value,omitempty"`
}

// GuessResult is the full comparison of a guessed record against the
// target. CorrectName is only populated when the guess is right — the
// target stays hidden otherwise.
type GuessResult struct {
	Correct     bool                    `json:"is_correct"`
	Make        string                  `json:"make"`
	MakeCorrect bool                    `json:"make_correct"`
	Comparisons map[string]FieldVerdict `json:"comparisons"`
	CorrectName string                  `json:"correct_name,omitempty"`
}

var digitRun = regexp.MustCompile(`\d+`)

// Compare evaluates a guessed record against the target.
func Compare(guessed, target *Record) GuessResult {
	correct := strings.EqualFold(guessed.Name(), target.Name())
	res := GuessResult{
		Correct:     correct,
		Make:        guessed.Make,
		MakeCorrect: strings.EqualFold(guessed.Make, target.Make),
		Comparisons: map[string]FieldVerdict{
			"year":                 CompareNumeric(guessed.Year, target.Year),
			"cylinders":            CompareCylinders(guessed.Cylinders, target.Cylinders),
			"horsepower":           CompareNumeric(guessed.Horsepower, target.Horsepower),
			"fuel_capacity_gal":    CompareNumeric(guessed.FuelGal, target.FuelGal),
			"fuel_capacity_liters": CompareNumeric(guessed.FuelL, target.FuelL),
			"country":              CompareString(guessed.Country, target.Country),
		},
	}
	if correct {
		res.CorrectName = target.Name()
	}
	return res
}

// CompareNumeric compares two numeric-ish dataset values. Thousands
// separators are stripped before parsing. Missing or unparsable values on
// either side yield unknown.
func CompareNumeric(guessed, target string) FieldVerdict {
	if guessed == "" || target == "" {
		return FieldVerdict{Status: VerdictUnknown, Value: guessed}
	}
	g, gok := parseNumber(guessed)
	c, cok := parseNumber(target)
	if !gok || !cok {
		return FieldVerdict{Status: VerdictUnknown, Value: guessed}
	}
	return orderVerdict(g, c, guessed)
}

// CompareCylinders compares cylinder tokens such as "V6", "I4" or plain
// "8": the first run of digits found anywhere in the token is used,
// falling back to parsing the whole cleaned string when no digits exist.
func CompareCylinders(guessed, target string) FieldVerdict {
	if guessed == "" || target == "" {
		return FieldVerdict{Status: VerdictUnknown, Value: guessed}
	}
	g, gok := parseCylinders(guessed)
	c, cok := parseCylinders(target)
	if !gok || !cok {
		return FieldVerdict{Status: VerdictUnknown, Value: guessed}
	}
	return orderVerdict(g, c, guessed)
}

// CompareString compares string fields (e.g. country) case-insensitively.
func CompareString(guessed, target string) FieldVerdict {
	if guessed == "" || target == "" {
		return FieldVerdict{Status: VerdictUnknown, Value: guessed}
	}
	if strings.EqualFold(guessed, target) {
		return FieldVerdict{Status: VerdictCorrect, Value: guessed}
	}
	return FieldVerdict{Status: VerdictIncorrect, Value: guessed}
}

func orderVerdict(g, c float64, echo string) FieldVerdict {
	switch {
	case g == c:
		return FieldVerdict{Status: VerdictCorrect, Value: echo}
	case g < c:
		return FieldVerdict{Status: VerdictLower, Value: echo}
	default:
		return FieldVerdict{Status: VerdictHigher, Value: echo}
	}
}

// parseNumber parses a dataset value as a float after stripping thousands
// separators.
func parseNumber(s string) (float64, bool) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseCylinders(s string) (float64, bool) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if m := digitRun.FindString(clean); m != "" {
		v, err := strconv.ParseFloat(m, 64)
		if err == nil {
			return v, true
		}
	}
	return parseNumber(clean)
}
