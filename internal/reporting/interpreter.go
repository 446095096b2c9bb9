package reporting

import (
	"fmt"
)

// InterpretScore returns a plain-language label for a percent grade (0–100).
func InterpretScore(percent int) string {
	switch {
	case percent > 90:
		return "Excellent (>90%)"
	case percent >= 70:
		return "Good (70-90%)"
	case percent >= 50:
		return "Needs Work (50-70%)"
	default:
		return "Poor (<50%)"
	}
}

// InterpretPassed explains how many rules passed.
func InterpretPassed(passed, total int) string {
	switch {
	case total == 0:
		return "No rules were run"
	case passed == total:
		return fmt.Sprintf("All %d rules passed", total)
	case passed == 0:
		return fmt.Sprintf("None of the %d rules passed", total)
	default:
		return fmt.Sprintf("%d of %d rules passed", passed, total)
	}
}
