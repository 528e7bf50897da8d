package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var durationPattern = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// DecodeDuration converts an ISO-8601 duration such as PT3M45S into whole
// seconds. Any subset of the H/M/S components may be present, plus a leading
// day component for very long streams. Missing or unparseable input, fractional
// seconds included, yields 0.
func DecodeDuration(token string) int {
	m := durationPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(token)))
	if m == nil {
		return 0
	}

	multipliers := []int{86400, 3600, 60, 1}
	total := 0

	for i, mult := range multipliers {
		part := m[i+1]
		if part == "" {
			continue
		}

		n, err := strconv.Atoi(part)
		if err != nil || n > math.MaxInt/mult {
			return 0
		}

		if total > math.MaxInt-n*mult {
			return 0
		}

		total += n * mult
	}

	return total
}
