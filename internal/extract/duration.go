package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	isoDurationRe  = regexp.MustCompile(`(?i)^P(?:(\d+(?:\.\d+)?)D)?T?(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?$`)
	durationPartRe = regexp.MustCompile(`(?i)(\d+\s+\d+/\d+|\d+/\d+|\d+(?:\.\d+)?)\s*(days?|d|hours?|hrs?|h|minutes?|mins?|m|seconds?|secs?|s)\b`)
	bareNumberRe   = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	rangeRe        = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:-|–|to)\s*(\d+(?:\.\d+)?)`)
	unitDigitRe    = regexp.MustCompile(`([a-zA-Z])(\d)`)
)

// ParseMinutes converts a free-form duration ("15 minutes", "1 hour 30
// minutes", "1h30m", "PT45M", "1.5 hours", "1/2 hour", "20") to minutes.
// Ranges take the upper bound. ok is false when nothing recognizable is found.
func ParseMinutes(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if m := isoDurationRe.FindStringSubmatch(s); m != nil && len(s) > 1 {
		var total float64
		var found bool
		for i, mult := range []float64{24 * 60, 60, 1, 1.0 / 60} {
			if m[i+1] == "" {
				continue
			}
			v, _ := strconv.ParseFloat(m[i+1], 64)
			total += v * mult
			found = true
		}
		if found {
			return total, true
		}
	}

	if bareNumberRe.MatchString(s) {
		v, err := strconv.ParseFloat(s, 64)
		return v, err == nil
	}

	// "10-15 minutes" → "15 minutes", "1h30m" → "1h 30m"
	s = rangeRe.ReplaceAllString(s, "$2")
	s = unitDigitRe.ReplaceAllString(s, "$1 $2")

	var total float64
	var found bool
	for _, m := range durationPartRe.FindAllStringSubmatch(s, -1) {
		v, ok := toFloat64(m[1])
		if !ok {
			continue
		}
		switch unit := strings.ToLower(m[2]); {
		case strings.HasPrefix(unit, "d"):
			total += v * 24 * 60
		case strings.HasPrefix(unit, "h"):
			total += v * 60
		case strings.HasPrefix(unit, "s"):
			total += v / 60
		default:
			total += v
		}
		found = true
	}
	return total, found
}

// TotalTime sums prep and cook time. Either may be missing; the result is
// nil only when neither parses.
func TotalTime(prep, cook *string) *string {
	var total float64
	var found bool
	for _, p := range []*string{prep, cook} {
		if p == nil {
			continue
		}
		if m, ok := ParseMinutes(*p); ok {
			total += m
			found = true
		}
	}
	if !found {
		return nil
	}
	s := FormatMinutes(total)
	return &s
}

// FormatMinutes renders minutes as "45 minutes", "1 hour", "1 hour 15 minutes".
func FormatMinutes(total float64) string {
	mins := int(math.Round(total))
	hours, rest := mins/60, mins%60

	var parts []string
	switch {
	case hours == 1:
		parts = append(parts, "1 hour")
	case hours > 1:
		parts = append(parts, strconv.Itoa(hours)+" hours")
	}
	switch {
	case rest == 1:
		parts = append(parts, "1 minute")
	case rest > 1 || hours == 0:
		parts = append(parts, strconv.Itoa(rest)+" minutes")
	}
	return strings.Join(parts, " ")
}
