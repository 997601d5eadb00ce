package provisioning

import "strings"

// NormalizeKey turns a requested tenant key into its canonical URL-safe
// slug: lowercase, spaces and underscores collapsed to single hyphens, and
// anything outside [a-z0-9-] dropped.
func NormalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))

	var b strings.Builder
	lastHyphen := false
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case r == ' ' || r == '-' || r == '_':
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
