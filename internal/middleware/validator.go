package middleware

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/phiguard/internal/domain/scans"
)

const (
	maxURLLength      = 2048
	maxFileNameLength = 512
)

// ValidateRepoURL accepts anything the locator can split into owner and
// name, over http(s) when a scheme is present.
func ValidateRepoURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: url cannot be empty", domain.ErrInvalidRepoURL)
	}
	if len(raw) > maxURLLength {
		return fmt.Errorf("%w: url longer than %d characters", domain.ErrInvalidRepoURL, maxURLLength)
	}
	if strings.ContainsAny(raw, "\x00\r\n") {
		return fmt.Errorf("%w: url contains control characters", domain.ErrInvalidRepoURL)
	}
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidRepoURL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%w: scheme %s not allowed", domain.ErrInvalidRepoURL, u.Scheme)
		}
	}
	if _, ok := domain.ParseRepoURL(raw); !ok {
		return fmt.Errorf("%w: need owner/name in the path", domain.ErrInvalidRepoURL)
	}
	return nil
}

// ValidateFileName checks an uploaded file name.
func ValidateFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("file name cannot be empty")
	}
	if len(name) > maxFileNameLength {
		return fmt.Errorf("file name too long")
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("invalid characters in file name")
	}
	return nil
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

// ValidateScanID checks that id is a UUID.
func ValidateScanID(scanID string) error {
	if scanID == "" {
		return fmt.Errorf("scan ID cannot be empty")
	}
	if _, err := uuid.Parse(scanID); err != nil {
		return fmt.Errorf("invalid scan ID format")
	}
	return nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
