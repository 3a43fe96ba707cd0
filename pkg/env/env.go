// Package env reads settings that are needed before config.Load runs.
package env

import (
	"os"
	"strings"
)

// Prefix namespaces every variable the service reads.
const Prefix = "GATEWAYSYNC_"

// Get returns Prefix+key, then the bare key, then fallback.
func Get(key, fallback string) string {
	for _, name := range []string{Prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}
