package digest

import (
	"strings"
	"time"
)

// ExpandVars performs simple placeholder substitutions for config-provided
// text fields (title, preface).
//
// Supported variables:
// - {.CurrentDate} => formatted as YYYY-MM-DD (UTC)
// - {.CurrentTime} => formatted as HH:MM (UTC)
func ExpandVars(s string, now time.Time) string {
	if strings.TrimSpace(s) == "" {
		return s
	}
	now = now.UTC()
	out := strings.ReplaceAll(s, "{.CurrentDate}", now.Format("2006-01-02"))
	out = strings.ReplaceAll(out, "{.CurrentTime}", now.Format("15:04"))
	return out
}
