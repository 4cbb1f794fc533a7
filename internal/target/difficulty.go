package target

import "fmt"

// #region difficulty

// Difficulty orders sessions by strictness; stricter tiers have a smaller
// tolerance window around each target.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Normal Difficulty = "normal"
	Hard   Difficulty = "hard"
)

// Tolerance returns the in-target window for the tier.
func (d Difficulty) Tolerance() int {
	switch d {
	case Easy:
		return 120
	case Normal:
		return 80
	case Hard:
		return 50
	}
	return 0
}

// ParseDifficulty validates a tier name from the wire. Unknown names are
// rejected at the boundary so callers leave session state untouched.
func ParseDifficulty(name string) (Difficulty, error) {
	switch Difficulty(name) {
	case Easy, Normal, Hard:
		return Difficulty(name), nil
	}
	return "", fmt.Errorf("unknown difficulty %q", name)
}

// #endregion difficulty
