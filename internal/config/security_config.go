package config

import "strconv"

type SecurityConfig interface {
	GetRedirectLoopThreshold() int
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetRedirectLoopThreshold is the number of consecutive redirects a
// client may follow before the loop guard trips.
func (Security) GetRedirectLoopThreshold() int {
	if v, err := strconv.Atoi(GetEnv("REDIRECT_LOOP_THRESHOLD", "")); err == nil && v > 0 {
		return v
	}
	return 5
}
