package errors

import (
	"net"
	"strconv"
	"strings"
	"unicode"
)

// ValidatePositive rejects values below 1 for the named setting.
func ValidatePositive(name string, v int) error {
	if v < 1 {
		return New(ErrCodeInvalidInput, "%s must be positive, got %d", name, v)
	}
	return nil
}

// ValidateNonNegative rejects values below 0 for the named setting.
func ValidateNonNegative(name string, v int) error {
	if v < 0 {
		return New(ErrCodeInvalidInput, "%s must not be negative, got %d", name, v)
	}
	return nil
}

// ValidatePath validates a local file or directory path.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	// Check for null bytes and control characters
	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateAddr validates a "host:port" network address as used for the
// redis cache and the status server. An empty host is allowed.
func ValidateAddr(addr string) error {
	if addr == "" {
		return New(ErrCodeInvalidInput, "address cannot be empty")
	}
	if strings.Contains(addr, "://") {
		return New(ErrCodeInvalidInput, "address must be host:port, not a URL: %q", addr)
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid address %q", addr)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 0 || p > 65535 {
		return New(ErrCodeInvalidInput, "invalid port in address %q", addr)
	}
	return nil
}
