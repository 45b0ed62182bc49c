package orchestrator

import "strings"

// DefaultStoreName is the canonical token used when a raw store name has no
// usable characters.
const DefaultStoreName = "default"

// SanitizeStoreName canonicalizes a user-supplied store name into a token
// matching [a-z0-9-]+ with no leading, trailing, or duplicate hyphens.
// It is a total function: every input maps to a valid token, degenerate
// inputs map to DefaultStoreName.
func SanitizeStoreName(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))

	var b strings.Builder
	b.Grow(len(raw))
	pendingHyphen := false
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			// A run of separators collapses to one hyphen, never leading
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	token := b.String()
	if token == "" {
		return DefaultStoreName
	}
	return token
}
