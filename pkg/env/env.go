package env

import "os"

// Get reads key from the process environment. Unset and empty both fall
// back to the given default.
func Get(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
