package strategy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/poiesic/indexit/core"
)

// intOption reads an integer option, returning def when absent.
func intOption(options map[string]string, key string, def int) (int, error) {
	raw, ok := options[key]
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", core.ErrConfig, key, raw)
	}
	return v, nil
}

// stringOption reads a string option, returning def when absent.
func stringOption(options map[string]string, key, def string) string {
	raw, ok := options[key]
	if !ok || strings.TrimSpace(raw) == "" {
		return def
	}
	return strings.TrimSpace(raw)
}

// listOption reads a comma-separated option as a trimmed slice.
// Absent or empty options return nil.
func listOption(options map[string]string, key string) []string {
	raw, ok := options[key]
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}
