package instance

import (
	"os"

	"github.com/circlemart/circlemart-backend/pkg/env"
)

// ID names the running process in logs. It prefers
// CIRCLEMART_INSTANCE_ID, then the hostname.
func ID(fallback string) string {
	if id := env.Get("CIRCLEMART_INSTANCE_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallback
}
