package rx

import "fmt"

// Severity ranks a finding. The zero value is SeverityNone.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityMinor
	SeverityModerate
	SeverityMajor
	SeverityContraindicated
)

var severityNames = [...]string{
	SeverityNone:            "none",
	SeverityMinor:           "minor",
	SeverityModerate:        "moderate",
	SeverityMajor:           "major",
	SeverityContraindicated: "contraindicated",
}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return fmt.Sprintf("Severity(%d)", int(s))
	}
	return severityNames[s]
}

// MarshalText encodes the severity as its lowercase name.
func (s Severity) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(severityNames) {
		return nil, fmt.Errorf("rx: invalid severity %d", int(s))
	}
	return []byte(severityNames[s]), nil
}

// UnmarshalText decodes a lowercase severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	for i, n := range severityNames {
		if n == string(b) {
			*s = Severity(i)
			return nil
		}
	}
	return fmt.Errorf("rx: unknown severity %q", b)
}
