package document

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var errBadDate = errors.New("malformed pdf date")

// ParseDate reads a PDF date string of the form D:YYYYMMDDHHmmSSOHH'mm'.
// Every field after the year is optional. A missing offset means UTC.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "D:")
	if len(s) < 4 {
		return time.Time{}, fmt.Errorf("%w: %q", errBadDate, raw)
	}

	fields := []int{0, 1, 1, 0, 0, 0} // year, month, day, hour, minute, second
	widths := []int{4, 2, 2, 2, 2, 2}
	pos := 0
	for i, w := range widths {
		if pos+w > len(s) || !isDigits(s[pos:pos+w]) {
			if i == 0 {
				return time.Time{}, fmt.Errorf("%w: %q", errBadDate, raw)
			}
			break
		}
		fields[i], _ = strconv.Atoi(s[pos : pos+w])
		pos += w
	}

	loc, err := parseOffset(s[pos:])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", errBadDate, raw)
	}

	t := time.Date(fields[0], time.Month(fields[1]), fields[2], fields[3], fields[4], fields[5], 0, loc)
	if t.Month() != time.Month(fields[1]) || t.Day() != fields[2] {
		return time.Time{}, fmt.Errorf("%w: %q", errBadDate, raw)
	}
	return t, nil
}

func parseOffset(s string) (*time.Location, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "Z" || strings.HasPrefix(s, "Z") {
		return time.UTC, nil
	}

	sign := 1
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return nil, errBadDate
	}
	s = strings.ReplaceAll(s[1:], "'", "")
	if len(s) < 2 || !isDigits(s[:2]) {
		return nil, errBadDate
	}
	hours, _ := strconv.Atoi(s[:2])
	minutes := 0
	if len(s) >= 4 && isDigits(s[2:4]) {
		minutes, _ = strconv.Atoi(s[2:4])
	}
	if hours > 23 || minutes > 59 {
		return nil, errBadDate
	}
	offset := sign * (hours*3600 + minutes*60)
	if offset == 0 {
		return time.UTC, nil
	}
	return time.FixedZone("", offset), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
