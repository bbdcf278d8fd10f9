// Package sanitize makes user-supplied file names safe to use as object keys.
package sanitize

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxLength is the longest name, in characters, that Name returns.
	MaxLength = 255
	// DefaultName replaces a missing name.
	DefaultName = "unnamed_file"

	reservedChars = `<>:"/\|?*`
)

var blockedExtensions = map[string]struct{}{
	".exe": {}, ".bat": {}, ".cmd": {}, ".com": {}, ".scr": {}, ".pif": {},
	".jar": {}, ".js": {}, ".jse": {}, ".vbs": {}, ".vbe": {}, ".wsf": {},
	".wsh": {}, ".sh": {}, ".ps1": {}, ".msi": {}, ".hta": {}, ".cpl": {},
}

// IsSafe reports whether name can be stored as-is: it must be non-blank,
// carry no executable extension and contain no reserved characters.
func IsSafe(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	if HasBlockedExtension(name) {
		return false
	}
	return !strings.ContainsAny(name, reservedChars)
}

// HasBlockedExtension reports whether name ends in an executable or script extension.
func HasBlockedExtension(name string) bool {
	_, blocked := blockedExtensions[strings.ToLower(extension(name))]
	return blocked
}

// Name replaces each reserved character with an underscore and truncates the
// result to MaxLength characters, keeping the extension when there is one.
// It is total and idempotent.
func Name(name string) string {
	if name == "" {
		return DefaultName
	}

	b := []byte(name)
	for i, c := range b {
		if strings.IndexByte(reservedChars, c) >= 0 {
			b[i] = '_'
		}
	}
	out := string(b)

	if utf8.RuneCountInString(out) <= MaxLength {
		return out
	}

	ext := extension(out)
	extLen := utf8.RuneCountInString(ext)
	if ext == "" || extLen >= MaxLength {
		return truncate(out, MaxLength)
	}
	stem := out[:len(out)-len(ext)]
	return truncate(stem, MaxLength-extLen) + ext
}

// extension returns the suffix starting at the last dot, or "" when the name
// has no dot or ends with one.
func extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return name[i:]
}

// truncate keeps the first n characters of s without splitting a rune.
func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
