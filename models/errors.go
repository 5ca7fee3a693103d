package models

import "fmt"

// Error codes attached to harvest failures.
const (
	ErrCodeListingLoad    = "LISTING_LOAD_FAILED"
	ErrCodeNavigation     = "NAVIGATION_FAILED"
	ErrCodeTimeout        = "TIMEOUT"
	ErrCodeBrowserCrash   = "BROWSER_CRASH"
	ErrCodeNoRows         = "NO_ROWS"
	ErrCodeExport         = "EXPORT_FAILED"
	ErrCodeInvalidConfig  = "INVALID_CONFIG"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
)

// ErrorDetail is the structured error returned by the status API.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HarvestError is the internal error type carrying an error code.
type HarvestError struct {
	Code    string
	Message string
	Err     error
}

func (e *HarvestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *HarvestError) Unwrap() error {
	return e.Err
}

// NewHarvestError creates a new HarvestError.
func NewHarvestError(code, message string, err error) *HarvestError {
	return &HarvestError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *HarvestError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}
