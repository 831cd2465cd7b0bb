package cam

import (
	"os"
	"strconv"
)

// MaxStepsEnv caps the number of masked forward passes per call. Unset
// or invalid values leave the requested count unchanged.
const MaxStepsEnv = "GAZE_MAX_STEPS"

// stepsAllowed clamps a requested step count by MaxStepsEnv.
func stepsAllowed(n int) int {
	raw := os.Getenv(MaxStepsEnv)
	if raw == "" {
		return n
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return n
	}
	if limit < n {
		return limit
	}
	return n
}
