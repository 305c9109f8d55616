package middleware

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

var (
	invalidIDChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	maxIDLength    = 64
)

// SanitizeFilename sanitizes a filename by:
// - Removing path components and traversal attempts
// - Removing control characters
func SanitizeFilename(filename string) string {
	// Normaliza separadores do Windows antes do Base
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = filepath.Base(filename)

	filename = strings.ReplaceAll(filename, "\x00", "")
	filename = strings.ReplaceAll(filename, "..", "")
	filename = strings.ReplaceAll(filename, "/", "")
	filename = removeControlChars(filename)
	filename = strings.TrimSpace(filename)

	if filename == "" || filename == "." {
		return "unnamed_file"
	}
	return filename
}

// SanitizeID mantém apenas letras, dígitos, hífen e underscore
func SanitizeID(id string) string {
	id = invalidIDChars.ReplaceAllString(strings.TrimSpace(id), "")
	if len(id) > maxIDLength {
		id = id[:maxIDLength]
	}
	return id
}

// SanitizeUsername sanitizes a username
func SanitizeUsername(username string) string {
	username = strings.TrimSpace(username)
	username = strings.ReplaceAll(username, "\x00", "")
	username = removeControlChars(username)

	if len(username) > 100 {
		username = username[:100]
	}
	return username
}

// removeControlChars removes control characters from a string
func removeControlChars(s string) string {
	var result strings.Builder
	for _, r := range s {
		if !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
