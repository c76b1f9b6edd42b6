package security

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	ErrPathTraversal     = fmt.Errorf("path traversal detected")
	ErrReservedName      = fmt.Errorf("reserved filename not allowed")
	ErrInvalidIdentifier = fmt.Errorf("identifier must be lowercase letters, digits, '_' or '-'")

	windowsReservedNames = map[string]bool{
		"con": true, "prn": true, "aux": true, "nul": true,
		"com1": true, "com2": true, "com3": true, "com4": true,
		"com5": true, "com6": true, "com7": true, "com8": true, "com9": true,
		"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true,
		"lpt5": true, "lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
	}

	identifierPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)
)

// ValidateIdentifier checks style and action ids. They end up in file
// names, so the alphabet is kept narrow.
func ValidateIdentifier(id string) error {
	if !identifierPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}
	if windowsReservedNames[id] {
		return fmt.Errorf("%w: %q", ErrReservedName, id)
	}
	return nil
}

// SafeJoin joins a file name onto dir and refuses results outside dir.
func SafeJoin(dir, name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, name)
	}

	base := strings.TrimSuffix(strings.ToLower(name), filepath.Ext(name))
	if windowsReservedNames[base] {
		return "", fmt.Errorf("%w: %q", ErrReservedName, name)
	}

	joined := filepath.Join(dir, name)
	rel, err := filepath.Rel(dir, joined)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, name)
	}
	return joined, nil
}

func SanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", " ", "_",
		"*", "", "?", "", "\"", "",
		"<", "", ">", "", "|", "", "\x00", "",
	)
	sanitized := replacer.Replace(name)
	sanitized = strings.ReplaceAll(sanitized, "..", ".")
	sanitized = strings.TrimLeft(sanitized, ".-")
	sanitized = strings.TrimRight(sanitized, ". ")

	nameWithoutExt := strings.TrimSuffix(strings.ToLower(sanitized), filepath.Ext(sanitized))
	if windowsReservedNames[nameWithoutExt] {
		sanitized = sanitized + "_"
	}

	if sanitized == "" {
		sanitized = "file"
	}

	return sanitized
}
