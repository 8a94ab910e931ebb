package instance

import (
	"os"
	"strings"

	"github.com/google/uuid"
)

// ID returns the configured instance identifier, falling back to the
// hostname plus a short random suffix.
func ID(configured string) string {
	if id := strings.TrimSpace(configured); id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "baystatus"
	}
	return host + "-" + uuid.NewString()[:8]
}
