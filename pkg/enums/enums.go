// Package enums holds the closed string sets persisted in the database and
// accepted over the API.
package enums

import "fmt"

func contains[T ~string](set []T, v T) bool {
	for _, candidate := range set {
		if candidate == v {
			return true
		}
	}
	return false
}

func parse[T ~string](kind string, set []T, value string) (T, error) {
	if v := T(value); contains(set, v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, value)
}
