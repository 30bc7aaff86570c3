package captions

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrBadTimestamp = errors.New("bad timestamp")

// ParseTimestamp converts "HH:MM:SS,mmm", "HH:MM:SS.mmm", "MM:SS.mmm" or
// "H:MM:SS.cc" into seconds. The fraction is read as milliseconds: shorter
// fractions are right-padded with zeros, longer ones truncated.
func ParseTimestamp(ts string) (float64, error) {
	s := strings.TrimSpace(ts)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrBadTimestamp)
	}

	frac := ""
	if i := strings.LastIndexAny(s, ",."); i >= 0 && i > strings.LastIndexByte(s, ':') {
		s, frac = s[:i], s[i+1:]
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, ts)
	}

	var sec float64
	for _, p := range parts {
		n, err := parseDigits(p)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, ts)
		}
		sec = sec*60 + float64(n)
	}

	if frac != "" {
		if len(frac) < 3 {
			frac += strings.Repeat("0", 3-len(frac))
		}
		ms, err := parseDigits(frac[:3])
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, ts)
		}
		sec += float64(ms) / 1000
	}
	return sec, nil
}

func parseDigits(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty field")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-digit %q", r)
		}
	}
	return strconv.Atoi(s)
}
