// Package document reads resume and job description sources into plain text.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	pdf "github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/spigell/cv-matcher/internal/cverrors"
)

var (
	// ErrUnsupportedFormat is returned for files the reader cannot handle.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	spaces   = regexp.MustCompile(`[ \t\f\v]+`)
	newlines = regexp.MustCompile(`\n{3,}`)
)

// Supported reports whether a file name has an extension ReadFile understands.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".txt", ".md":
		return true
	default:
		return false
	}
}

// ReadFile returns the plain text of a resume file.
// Failures are reported as *cverrors.ExtractionError.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", cverrors.NewExtractionError(path, err)
	}
	return Parse(filepath.Base(path), data)
}

// Parse extracts text from an in-memory document, picking the reader by file extension.
// The text is returned as decoded, without whitespace normalization.
func Parse(name string, data []byte) (string, error) {
	var (
		text string
		err  error
	)

	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		text, err = pdfText(data)
	case ".txt", ".md":
		text = ToUTF8(data)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name))
	}
	if err != nil {
		return "", cverrors.NewExtractionError(name, err)
	}

	if strings.TrimSpace(text) == "" {
		return "", cverrors.NewExtractionError(name, errors.New("document has no text"))
	}
	return text, nil
}

func pdfText(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("copy pdf text: %w", err)
	}
	return buf.String(), nil
}

// HTMLToText flattens markup to its text content. Plain text passes through.
func HTMLToText(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return strings.TrimSpace(s)
	}

	// Keep block boundaries as line breaks before the tags disappear.
	replacer := strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "</p>\n", "</li>", "</li>\n", "</div>", "</div>\n")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(replacer.Replace(s)))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return Normalize(doc.Text())
}

// Normalize collapses horizontal whitespace, trims every line and limits blank runs.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = spaces.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = newlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// ToUTF8 returns data as a string. Input that is not valid UTF-8 is decoded as
// Windows-1252, the Latin-1 superset spreadsheet exports use.
func ToUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "\uFFFD")
	}
	return string(decoded)
}
