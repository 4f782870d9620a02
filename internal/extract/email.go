package extract

import (
	"regexp"
	"strings"
)

// UnknownEmail is stored when a resume carries no recognizable address.
const UnknownEmail = "unknown@email.com"

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`)

// stopHeaders end a Section capture.
var stopHeaders = []string{"education", "work", "certifications", "experience"}

// FindFirstEmail returns the first email-shaped token in text or UnknownEmail.
func FindFirstEmail(text string) string {
	if m := emailPattern.FindString(text); m != "" {
		return m
	}
	return UnknownEmail
}

// Section collects the lines after the first line mentioning header, up to a
// blank line or another well-known header, joined with ", ".
// It serves the ad-hoc upload path where resumes have no labelled fields.
func Section(text, header string) string {
	header = strings.ToLower(strings.TrimSpace(header))
	if header == "" {
		return ""
	}

	var (
		captured []string
		capture  bool
	)
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		lower := strings.ToLower(line)
		if !capture {
			if strings.Contains(lower, header) {
				capture = true
			}
			continue
		}

		if strings.TrimSpace(line) == "" || containsAny(lower, stopHeaders) {
			break
		}
		captured = append(captured, strings.TrimSpace(line))
	}

	return strings.Join(captured, ", ")
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
