package constants

import "net/http"

// APIError represents a standardized API error with code, message, and HTTP status.
// Use these predefined errors for consistent API responses across the application.
type APIError struct {
	Code    string
	Message string
	Status  int
}

// WithMessage returns a copy of the APIError with a custom message.
// Useful for validation errors or other dynamic messages.
func (e APIError) WithMessage(message string) APIError {
	return APIError{
		Code:    e.Code,
		Message: message,
		Status:  e.Status,
	}
}

// Common errors - shared across multiple modules
var (
	ErrInvalidRequestBody = APIError{
		Code:    CodeInvalidRequest,
		Message: MsgInvalidRequestBody,
		Status:  http.StatusBadRequest,
	}
	ErrInternalError = APIError{
		Code:    CodeInternalError,
		Message: MsgInternalError,
		Status:  http.StatusInternalServerError,
	}
	ErrUnauthorized = APIError{
		Code:    CodeUnauthorized,
		Message: MsgUnauthorized,
		Status:  http.StatusUnauthorized,
	}
	ErrAccessDenied = APIError{
		Code:    CodeForbidden,
		Message: MsgAccessDenied,
		Status:  http.StatusForbidden,
	}
)

// Shortener-specific errors
var (
	ErrInvalidURL = APIError{
		Code:    CodeInvalidURL,
		Message: MsgInvalidURL,
		Status:  http.StatusBadRequest,
	}
	ErrInvalidShortCode = APIError{
		Code:    CodeInvalidShortCode,
		Message: MsgInvalidShortCode,
		Status:  http.StatusBadRequest,
	}
	ErrInvalidExpiry = APIError{
		Code:    CodeInvalidExpiry,
		Message: MsgInvalidExpiry,
		Status:  http.StatusBadRequest,
	}
	ErrShortCodeTaken = APIError{
		Code:    CodeShortCodeTaken,
		Message: MsgShortCodeTaken,
		Status:  http.StatusConflict,
	}
	ErrLinkExpired = APIError{
		Code:    CodeLinkExpired,
		Message: MsgLinkExpired,
		Status:  http.StatusGone,
	}
	ErrLinkNotFound = APIError{
		Code:    CodeLinkNotFound,
		Message: MsgLinkNotFound,
		Status:  http.StatusNotFound,
	}
)

// Organization-specific errors
var (
	ErrOrgNotFound = APIError{
		Code:    CodeOrgNotFound,
		Message: MsgOrgNotFound,
		Status:  http.StatusNotFound,
	}
	ErrOrgNameTaken = APIError{
		Code:    CodeOrgNameTaken,
		Message: MsgOrgNameTaken,
		Status:  http.StatusConflict,
	}
	ErrOrgShortNameTaken = APIError{
		Code:    CodeOrgShortNameTaken,
		Message: MsgOrgShortNameTaken,
		Status:  http.StatusConflict,
	}
)
