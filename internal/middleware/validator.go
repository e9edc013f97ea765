package middleware

import (
	"fmt"
	"mime"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Input validation and sanitization utilities

// MaxFieldLength caps each of the three analysis inputs
const MaxFieldLength = 500

var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9^=._-]{1,20}$`)

var allowedAttachmentTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// ValidateAnalysisFields checks field lengths. Presence is checked by the domain.
func ValidateAnalysisFields(industry, technology, market string) error {
	fields := []struct {
		name  string
		value string
	}{
		{"industry", industry},
		{"technology", technology},
		{"market", market},
	}
	for _, f := range fields {
		if utf8.RuneCountInString(f.value) > MaxFieldLength {
			return fmt.Errorf("%s exceeds %d characters", f.name, MaxFieldLength)
		}
	}
	return nil
}

// AttachmentType resolves the media type of an upload and checks it is an image or a PDF.
// The declared type wins unless it is empty or generic, then the content is sniffed.
func AttachmentType(declared string, data []byte) (string, error) {
	mediaType := ""
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			mediaType = strings.ToLower(mt)
		}
	}
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType, _, _ = mime.ParseMediaType(http.DetectContentType(data))
	}
	if !allowedAttachmentTypes[mediaType] {
		return "", fmt.Errorf("unsupported attachment type %q (allowed: png, jpeg, gif, webp, pdf)", mediaType)
	}
	return mediaType, nil
}

// ValidateAttachmentSize rejects empty files and files above max bytes
func ValidateAttachmentSize(size, max int64) error {
	if size == 0 {
		return fmt.Errorf("attachment is empty")
	}
	if max > 0 && size > max {
		return fmt.Errorf("attachment exceeds %d bytes", max)
	}
	return nil
}

// ValidateSessionID validates session ID format
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid session ID format")
	}
	return nil
}

// ValidateReportID validates report ID format
func ValidateReportID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid report ID format")
	}
	return nil
}

// ValidateSymbol accepts Yahoo style tickers such as 2330.TW, 8069.TWO, BRK-B or ^TWII
func ValidateSymbol(symbol string) error {
	if !symbolPattern.MatchString(symbol) {
		return fmt.Errorf("invalid symbol %q", symbol)
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}
