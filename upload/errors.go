package upload

import (
	"errors"
	"net/http"
	"strings"

	"github.com/onnwee/clip-tender/tiktokapi"
)

// ErrorClass represents whether an error should be retried or not.
type ErrorClass int

const (
	// ErrorClassRetryable indicates the operation should be retried (transient errors).
	ErrorClassRetryable ErrorClass = iota
	// ErrorClassFatal indicates the operation should not be retried (permanent errors).
	ErrorClassFatal
	// ErrorClassUnknown indicates the error type cannot be determined.
	ErrorClassUnknown
)

func (ec ErrorClass) String() string {
	switch ec {
	case ErrorClassRetryable:
		return "retryable"
	case ErrorClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ClassifyUploadError sorts upload failures into retryable vs fatal.
//
// Fatal: invalid/expired credentials, missing or unreadable input file,
// metadata rejected by the vendor (privacy/spam checks), 4xx other than 429.
// Retryable: network errors, 5xx, rate limiting.
// Unknown errors are treated as retryable for safety.
func ClassifyUploadError(err error) ErrorClass {
	if err == nil {
		return ErrorClassUnknown
	}

	var apiErr *tiktokapi.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return ErrorClassRetryable
		case apiErr.StatusCode >= 500:
			return ErrorClassRetryable
		case apiErr.StatusCode >= 400:
			return ErrorClassFatal
		}
	}

	lower := strings.ToLower(err.Error())

	retryablePatterns := []string{
		"connection reset",
		"connection refused",
		"timeout",
		"temporary failure",
		"no such host",
		"rate_limit_exceeded",
		"internal server error",
		"service unavailable",
		"bad gateway",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(lower, pattern) {
			return ErrorClassRetryable
		}
	}

	fatalPatterns := []string{
		"access_token_invalid",
		"access_token_expired",
		"scope_not_authorized",
		"unauthorized",
		"invalid file",
		"no such file",
		"is a directory",
		"privacy_level_option_mismatch",
		"spam_risk",
		"unaudited_client",
	}
	for _, pattern := range fatalPatterns {
		if strings.Contains(lower, pattern) {
			return ErrorClassFatal
		}
	}

	return ErrorClassUnknown
}
