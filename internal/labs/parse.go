package labs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxLineLen = 1024

var (
	leaderDots = regexp.MustCompile(`\.{2,}`)
	numericTok = regexp.MustCompile(`^(<=|>=|[<>≤≥])?([-+]?[0-9OIl]+(?:[.,][0-9OIl]+)*)(.*)$`)
	digitRun   = regexp.MustCompile(`[0-9OIl][0-9OIl.,]*`)
	rangeSpan  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:-|–|to)\s*(\d+(?:\.\d+)?)`)
	rangeOpen  = regexp.MustCompile(`(<=|>=|[<>≤≥])\s*(\d+(?:\.\d+)?)`)
	nonAlnum   = regexp.MustCompile(`[^a-z0-9]+`)
)

// notUnits are words that may follow a value but never name a unit.
var notUnits = map[string]bool{
	"h": true, "l": true, "hi": true, "lo": true, "high": true, "low": true,
	"a": true, "abn": true, "abnormal": true, "crit": true, "critical": true,
	"ref": true, "range": true, "reference": true, "normal": true, "nr": true, "rr": true,
	"of": true,
}

// parseLine reads one report line. ok reports whether v should be emitted;
// warning is non-empty when the line was recognized but only partly usable.
func parseLine(line string) (v Value, ok bool, warning string) {
	line = strings.TrimRight(line, "\r\n")
	if len(line) > maxLineLen {
		return Value{}, false, ""
	}
	s := leaderDots.ReplaceAllString(line, " ")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ':', '=', '\t', '|':
			return ' '
		}
		return r
	}, s)
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return Value{}, false, ""
	}

	for i := 1; i < len(fields); i++ {
		tok := strings.TrimRight(fields[i], ",;")
		m := numericTok.FindStringSubmatch(tok)
		if m == nil {
			continue
		}
		tail := m[3]
		if notUnits[strings.ToLower(tail)] {
			// flag marker glued to the value, as in "13.5H"
			tail = ""
		}
		if tail != "" && !unitLike(tail) {
			continue
		}
		num, ok := repairNumber(m[2])
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(num, 64)
		if err != nil {
			continue
		}
		return build(fields[:i], f, m[1], tail, fields[i+1:])
	}

	return unparseable(fields)
}

func build(nameFields []string, f float64, comparator, unit string, rest []string) (Value, bool, string) {
	name, known := resolve(nameFields)
	if name == "" {
		return Value{}, false, ""
	}

	if unit == "" && len(rest) > 0 && unitLike(rest[0]) {
		unit, rest = rest[0], rest[1:]
	}
	if idx := strings.IndexAny(unit, "(["); idx > 0 {
		rest = append([]string{unit[idx:]}, rest...)
		unit = unit[:idx]
	}
	unit = strings.TrimRight(unit, ",;")

	v := Value{
		Name:       name,
		SourceName: sourceName(nameFields),
		Value:      f,
		Comparator: comparator,
		Unit:       unit,
	}

	r, warning := inlineRange(strings.Join(rest, " "))
	switch {
	case r != nil:
		v.Range = r
	case known:
		d, ok := defaults[name]
		if !ok {
			break
		}
		if !unitMatches(unit, d.units) {
			return v, true, fmt.Sprintf("%s unit %q does not match reference unit %q; not classified", name, unit, d.units[0])
		}
		v.Range = &Range{Low: d.low, High: d.high, Source: "default"}
	case unit == "":
		// unknown name, no unit, no range: page numbers and similar furniture
		return Value{}, false, warning
	}
	if v.Range != nil {
		v.Flag = v.Range.Classify(f)
	}
	return v, true, warning
}

// unparseable reports a known analyte whose value token is garbled.
func unparseable(fields []string) (Value, bool, string) {
	for n := min(maxNameWords, len(fields)-1); n >= 1; n-- {
		name, ok := aliases[key(fields[:n])]
		if !ok {
			continue
		}
		next := fields[n]
		if strings.ContainsFunc(next, unicode.IsLetter) && !strings.ContainsFunc(next, unicode.IsDigit) {
			return Value{}, false, ""
		}
		v := Value{
			Name:       name,
			SourceName: sourceName(fields[:n]),
			Flag:       FlagUnparseable,
		}
		return v, true, fmt.Sprintf("%s value %q is not numeric", name, next)
	}
	return Value{}, false, ""
}

// resolve maps name words to a canonical analyte. The longest run of words
// that names a known analyte wins, so qualifiers like "Serum" or "Fasting"
// are ignored. Abbreviations shorter than three letters only match the whole
// name. Unknown names are returned normalized with known false.
func resolve(words []string) (string, bool) {
	k := key(words)
	parts := strings.Fields(k)
	for n := min(maxNameWords, len(parts)); n >= 1; n-- {
		for start := 0; start+n <= len(parts); start++ {
			span := strings.Join(parts[start:start+n], " ")
			if n < len(parts) && len(span) < 3 {
				continue
			}
			if name, ok := aliases[span]; ok {
				return name, true
			}
		}
	}
	if !strings.ContainsFunc(k, unicode.IsLetter) {
		return "", false
	}
	return k, false
}

func key(words []string) string {
	s := nonAlnum.ReplaceAllString(strings.ToLower(strings.Join(words, " ")), " ")
	return strings.Join(strings.Fields(s), " ")
}

func sourceName(words []string) string {
	return strings.Trim(strings.Join(words, " "), " .,;-")
}

func unitLike(s string) bool {
	if r, _ := utf8.DecodeRuneInString(s); s == "" || strings.ContainsRune("([<>≤≥-", r) {
		return false
	}
	if notUnits[strings.ToLower(strings.TrimRight(s, ",;"))] {
		return false
	}
	return strings.ContainsFunc(s, func(r rune) bool { return unicode.IsLetter(r) || r == '%' })
}

func unitMatches(unit string, accepted []string) bool {
	u := normalizeUnit(unit)
	for _, a := range accepted {
		if u == a {
			return true
		}
	}
	return u == ""
}

func normalizeUnit(u string) string {
	u = strings.ToLower(strings.ReplaceAll(u, " ", ""))
	u = strings.ReplaceAll(u, "µ", "u")
	return strings.ReplaceAll(u, "μ", "u")
}

// inlineRange finds a reference range in the text after the value.
func inlineRange(s string) (*Range, string) {
	if s == "" {
		return nil, ""
	}
	s = digitRun.ReplaceAllStringFunc(s, func(run string) string {
		if fixed, ok := repairNumber(run); ok {
			return fixed
		}
		return run
	})

	if m := rangeSpan.FindStringSubmatch(s); m != nil {
		lo, err1 := strconv.ParseFloat(m[1], 64)
		hi, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil {
			return nil, ""
		}
		if lo > hi {
			return nil, fmt.Sprintf("ignoring inverted reference range %q", m[0])
		}
		return &Range{Low: &lo, High: &hi, Source: "inline"}, ""
	}
	if m := rangeOpen.FindStringSubmatch(s); m != nil {
		b, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return nil, ""
		}
		if strings.ContainsAny(m[1], "<≤") {
			return &Range{High: &b, Source: "inline"}, ""
		}
		return &Range{Low: &b, Source: "inline"}, ""
	}
	return nil, ""
}

// repairNumber undoes common OCR confusions inside a numeric token (O for 0,
// l and I for 1) and resolves the decimal separator. A single comma followed
// by exactly three digits is a thousands separator; any other single comma is
// a decimal comma. Tokens without a real digit are rejected.
func repairNumber(s string) (string, bool) {
	if !strings.ContainsFunc(s, func(r rune) bool { return r >= '0' && r <= '9' }) {
		return "", false
	}
	s = strings.NewReplacer("O", "0", "I", "1", "l", "1").Replace(s)
	s = strings.TrimRight(s, ".,")

	commas := strings.Count(s, ",")
	switch {
	case commas == 0:
	case strings.Contains(s, "."), commas > 1:
		s = strings.ReplaceAll(s, ",", "")
	default:
		i := strings.IndexByte(s, ',')
		digits, after := strings.TrimLeft(s[:i], "+-"), s[i+1:]
		if len(after) == 3 && len(digits) <= 3 && digits != "0" {
			s = s[:i] + after
		} else {
			s = s[:i] + "." + after
		}
	}
	return s, s != ""
}
