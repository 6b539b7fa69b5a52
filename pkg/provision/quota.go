package provision

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// ParseQuota normalizes a quota value to what the host accepts: a plain
// byte count, or one of the literal keywords "default" and "none".
// Human-readable sizes ("5GB", "1.5 GiB") are converted to bytes.
func ParseQuota(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("quota value is empty")
	}

	switch strings.ToLower(trimmed) {
	case "default", "none":
		return strings.ToLower(trimmed), nil
	}

	if _, err := strconv.ParseUint(trimmed, 10, 64); err == nil {
		return trimmed, nil
	}

	bytes, err := humanize.ParseBytes(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid quota value %q: %w", value, err)
	}
	return strconv.FormatUint(bytes, 10), nil
}
