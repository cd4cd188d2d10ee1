package utils

import "slices"

// Intersect returns the first element of a that is also in b, or nil.
func Intersect(a, b []string) *string {
	for i := range a {
		if slices.Contains(b, a[i]) {
			return &a[i]
		}
	}
	return nil
}

func IntAbs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
