// Package command parses the comment command that triggers an upscale run.
package command

import (
	"math"
	"regexp"
	"strconv"
)

const numberPattern = `\s+([0-9]*\.?[0-9]+)`

// ParseScale extracts the factor following trigger in comment, e.g.
// "/upscale 3.5" yields 3.5. The trigger match is case-insensitive and the
// rest of the comment is ignored. fallback is returned when the trigger is
// absent or the factor is zero or not finite.
func ParseScale(comment, trigger string, fallback float64) float64 {
	if trigger == "" {
		return fallback
	}

	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(trigger) + numberPattern)
	if err != nil {
		return fallback
	}

	match := re.FindStringSubmatch(comment)
	if len(match) != 2 {
		return fallback
	}

	scale, err := strconv.ParseFloat(match[1], 64)
	if err != nil || scale == 0 || math.IsInf(scale, 0) || math.IsNaN(scale) {
		return fallback
	}
	return scale
}

// HasTrigger reports whether comment mentions trigger at all.
func HasTrigger(comment, trigger string) bool {
	if trigger == "" {
		return false
	}
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(trigger) + `\b`)
	if err != nil {
		return false
	}
	return re.MatchString(comment)
}
