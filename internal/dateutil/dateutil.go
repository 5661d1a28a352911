// Package dateutil computes the date attributes of a document and expands
// "auto" revision dates.
package dateutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDateFormat indicates an invalid date format string.
var ErrInvalidDateFormat = errors.New("invalid date format")

// ErrInvalidEpoch indicates a SOURCE_DATE_EPOCH that is not a Unix timestamp.
var ErrInvalidEpoch = errors.New("invalid SOURCE_DATE_EPOCH")

// MaxDateFormatLength limits format string length to prevent abuse.
const MaxDateFormatLength = 50

// DefaultDateFormat is used when "auto" is specified without a format.
const DefaultDateFormat = "YYYY-MM-DD"

// Go layouts of the date attributes.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05 -0700"
)

// Stamp holds the formatted parts of one instant.
type Stamp struct {
	Date     string
	Time     string
	DateTime string
	Year     string
}

// NewStamp formats t the way the local* and doc* attributes expect.
func NewStamp(t time.Time) Stamp {
	s := Stamp{
		Date: t.Format(DateLayout),
		Time: t.Format(TimeLayout),
		Year: strconv.Itoa(t.Year()),
	}
	s.DateTime = s.Date + " " + s.Time
	return s
}

// SourceDateEpoch reads SOURCE_DATE_EPOCH through getenv. The boolean is
// false when the variable is not set. Reproducible builds pin both the
// local and document dates to this instant, in UTC.
func SourceDateEpoch(getenv func(string) string) (time.Time, bool, error) {
	raw := strings.TrimSpace(getenv("SOURCE_DATE_EPOCH"))
	if raw == "" {
		return time.Time{}, false, nil
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %q", ErrInvalidEpoch, raw)
	}
	return time.Unix(secs, 0).UTC(), true, nil
}

// dateTokens maps user-friendly tokens to Go time format components.
// Ordered by length descending for greedy matching.
var dateTokens = []struct {
	token string
	goFmt string
}{
	{"YYYY", "2006"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"YY", "06"},
	{"MM", "01"},
	{"DD", "02"},
	{"M", "1"},
	{"D", "2"},
}

// DatePresets provides named shortcuts for common date formats.
var DatePresets = map[string]string{
	"iso":      "YYYY-MM-DD",
	"european": "DD/MM/YYYY",
	"us":       "MM/DD/YYYY",
	"long":     "MMMM D, YYYY",
}

// ParseDateFormat converts a token format (YYYY, YY, MMMM, MMM, MM, M, DD, D)
// to a Go layout. Bracketed text is copied literally.
func ParseDateFormat(format string) (string, error) {
	if format == "" {
		return "", fmt.Errorf("%w: format cannot be empty", ErrInvalidDateFormat)
	}
	if len(format) > MaxDateFormatLength {
		return "", fmt.Errorf("%w: format exceeds %d characters", ErrInvalidDateFormat, MaxDateFormatLength)
	}

	var result strings.Builder
	for i := 0; i < len(format); {
		if format[i] == '[' {
			end := strings.IndexByte(format[i+1:], ']')
			if end == -1 {
				return "", fmt.Errorf("%w: unclosed bracket at position %d", ErrInvalidDateFormat, i)
			}
			result.WriteString(format[i+1 : i+1+end])
			i += end + 2
			continue
		}
		token := ""
		for _, t := range dateTokens {
			if strings.HasPrefix(format[i:], t.token) {
				result.WriteString(t.goFmt)
				token = t.token
				break
			}
		}
		if token == "" {
			result.WriteByte(format[i])
			i++
			continue
		}
		i += len(token)
	}
	return result.String(), nil
}

// ResolveRevdate expands "auto", "auto:FORMAT" and "auto:preset" revision
// dates against t. Any other value is returned unchanged.
func ResolveRevdate(value string, t time.Time) (string, error) {
	lower := strings.ToLower(value)
	if !strings.HasPrefix(lower, "auto") {
		return value, nil
	}
	format := DefaultDateFormat
	switch {
	case lower == "auto":
	case strings.HasPrefix(lower, "auto:"):
		format = value[len("auto:"):]
		if format == "" {
			return "", fmt.Errorf("%w: format cannot be empty after \"auto:\"", ErrInvalidDateFormat)
		}
		if preset, ok := DatePresets[strings.ToLower(format)]; ok {
			format = preset
		}
	default:
		return "", fmt.Errorf("%w: invalid auto syntax %q, use \"auto\" or \"auto:FORMAT\"", ErrInvalidDateFormat, value)
	}
	layout, err := ParseDateFormat(format)
	if err != nil {
		return "", err
	}
	return t.Format(layout), nil
}
