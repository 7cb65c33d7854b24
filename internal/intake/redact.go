package intake

import "regexp"

// Identifier categories removed from free text before it is persisted.
var piiPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`), "[email]"},
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "[ssn]"},
	{regexp.MustCompile(`(?:\+\d{1,3}[\s.\-]?)?(?:\(\d{3}\)|\d{3})[\s.\-]?\d{3}[\s.\-]?\d{4}\b`), "[phone]"},
}

// RedactPII replaces email addresses, SSN-like identifiers and phone numbers
// in s with category placeholders. Clinical numbers such as "7/10" or
// "3 days" are left intact.
func RedactPII(s string) string {
	for _, p := range piiPatterns {
		s = p.re.ReplaceAllString(s, p.repl)
	}
	return s
}
