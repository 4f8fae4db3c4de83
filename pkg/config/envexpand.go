package config

import "os"

// ExpandEnv expands environment variables in raw config bytes using Go's
// standard library. Supports both ${VAR} and $VAR syntax.
//
// Missing variables expand to empty string; Validate() on the resulting
// struct should catch required fields left empty.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
