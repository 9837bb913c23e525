// Package env reads process-level environment that sits outside the DAMP_*
// config tree: log format switches and platform-provided identifiers.
package env

import (
	"os"
	"strconv"
	"strings"
)

// Get returns the trimmed value of key, or fallback when unset or blank.
func Get(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	if val = strings.TrimSpace(val); val == "" {
		return fallback
	}
	return val
}

// Bool parses key with strconv.ParseBool and falls back on anything else.
func Bool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(Get(key, ""))
	if err != nil {
		return fallback
	}
	return b
}

// InstanceID names the running process. On Cloud Run this is the service
// revision; elsewhere the container hostname.
func InstanceID(fallback string) string {
	if rev := Get("K_REVISION", ""); rev != "" {
		return rev
	}
	return Get("HOSTNAME", fallback)
}
