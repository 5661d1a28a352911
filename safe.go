package adoc

import (
	"fmt"
	"strconv"
	"strings"
)

// SafeMode controls which resources a document may reach.
// Higher values are more restrictive.
type SafeMode int

// Safe mode levels.
const (
	SafeModeUnsafe SafeMode = 0
	SafeModeSafe   SafeMode = 1
	SafeModeServer SafeMode = 10
	SafeModeSecure SafeMode = 20
)

var safeModeNames = map[SafeMode]string{
	SafeModeUnsafe: "unsafe",
	SafeModeSafe:   "safe",
	SafeModeServer: "server",
	SafeModeSecure: "secure",
}

func (m SafeMode) String() string {
	if name, ok := safeModeNames[m]; ok {
		return name
	}
	return strconv.Itoa(int(m))
}

// ParseSafeMode accepts a mode name or its numeric level.
func ParseSafeMode(s string) (SafeMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for mode, name := range safeModeNames {
		if name == s {
			return mode, nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil {
		if _, ok := safeModeNames[SafeMode(n)]; ok {
			return SafeMode(n), nil
		}
	}
	return SafeModeSecure, fmt.Errorf("%w: %q (expected unsafe, safe, server or secure)", ErrInvalidSafeMode, s)
}
