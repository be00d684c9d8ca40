package calendar

import (
	"fmt"
	"strings"
)

// Scale is the time granularity a sheet is aggregated and analyzed at.
type Scale string

const (
	ScaleDaily    Scale = "daily"
	ScaleWeekly   Scale = "weekly"
	ScaleBiweekly Scale = "biweekly"
	ScaleMonthly  Scale = "monthly"
	ScalePeriod   Scale = "period"
)

// ParseScale parses and validates a scale string.
func ParseScale(s string) (Scale, error) {
	switch Scale(strings.ToLower(strings.TrimSpace(s))) {
	case ScaleDaily:
		return ScaleDaily, nil
	case ScaleWeekly:
		return ScaleWeekly, nil
	case ScaleBiweekly:
		return ScaleBiweekly, nil
	case ScaleMonthly:
		return ScaleMonthly, nil
	case ScalePeriod:
		return ScalePeriod, nil
	case "":
		return "", fmt.Errorf("scale must not be empty")
	default:
		return "", fmt.Errorf("unsupported scale %q", s)
	}
}

// InferScale infers the time scale from a sheet name. Sheet names in the
// catalog follow the "<What> (Daily)" convention; unrecognized names fall
// back to daily, the finest granularity.
func InferScale(sheetName string) Scale {
	name := strings.ToLower(sheetName)
	switch {
	case strings.Contains(name, "biweekly"):
		return ScaleBiweekly
	case strings.Contains(name, "weekly"):
		return ScaleWeekly
	case strings.Contains(name, "monthly"):
		return ScaleMonthly
	case strings.Contains(name, "period"):
		return ScalePeriod
	default:
		return ScaleDaily
	}
}
