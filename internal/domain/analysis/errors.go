package analysis

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrInvalidRequest wraps validation failures of a submitted request.
var ErrInvalidRequest = errors.New("invalid analysis request")

// ErrEmptyResponse is returned when the model answered with no text at all.
var ErrEmptyResponse = errors.New("ai returned an empty response")

// ErrArchiveDisabled is returned by archive reads when no archive is configured.
var ErrArchiveDisabled = errors.New("report archive is not configured")

// ErrReportNotFound is returned when an archived report does not exist.
var ErrReportNotFound = errors.New("report not found")
