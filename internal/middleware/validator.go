package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bryanwahyu/copyguard/internal/domain/reviews"
)

// Input validation and sanitization utilities

// MaxContentLength caps submitted content, in bytes.
const MaxContentLength = 50_000

// ValidateContent enforces length bounds. Content is stored as given.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("content cannot be empty")
	}
	if len(content) > MaxContentLength {
		return fmt.Errorf("content exceeds %d bytes", MaxContentLength)
	}
	return nil
}

// ValidateContentType checks the content type is one the analysis knows.
func ValidateContentType(ct string) (reviews.ContentType, error) {
	c := reviews.ContentType(strings.ToLower(strings.TrimSpace(ct)))
	if !c.Valid() {
		return "", fmt.Errorf("invalid content_type: %s (allowed: social_media, blog, email, ad_copy)", ct)
	}
	return c, nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// QueryInt reads a positive integer query parameter, returning def when absent.
func QueryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return n, nil
}
