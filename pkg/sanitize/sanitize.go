package sanitize

import (
	"regexp"
	"strings"
)

var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// Filename sanitizes an uploaded filename before it is used as part of an
// object key or Content-Disposition header.
func Filename(filename string) string {
	filename = strings.TrimSpace(filename)
	// Remove path traversal attempts
	filename = strings.ReplaceAll(filename, "../", "")
	filename = strings.ReplaceAll(filename, "./", "")
	filename = strings.ReplaceAll(filename, "..\\", "")
	filename = strings.ReplaceAll(filename, ".\\", "")
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = controlChars.ReplaceAllString(filename, "")
	return filename
}

// PhoneQuery trims a user-supplied phone search string and caps its length so
// it can be passed to the directory lookup safely.
func PhoneQuery(phone string) string {
	phone = strings.TrimSpace(phone)
	if len(phone) > 32 {
		phone = phone[:32]
	}
	return phone
}
