package otel

import "strconv"

func parseRatio(raw string) (float64, bool) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 || value > 1 {
		return 0, false
	}
	return value, true
}
