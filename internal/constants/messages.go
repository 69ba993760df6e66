package constants

// Error messages used in API responses.
// These are the human-readable messages returned in the "message" field.
const (
	// Common messages
	MsgInvalidRequestBody = "Invalid request body"
	MsgInternalError      = "An internal error occurred"
	MsgUnauthorized       = "Unauthorized"
	MsgAccessDenied       = "Access denied to this organization"

	// Shortener-specific messages
	MsgInvalidURL       = "Invalid URL (must start with http:// or https://)"
	MsgInvalidShortCode = "Invalid short code format. Use 3-20 letters, numbers, and hyphens"
	MsgInvalidExpiry    = "Expiration time must be in the future"
	MsgShortCodeTaken   = "Short code already exists"
	MsgLinkExpired      = "Short link has expired"
	MsgLinkNotFound     = "Short link not found"

	// Organization-specific messages
	MsgOrgNotFound       = "Organization not found"
	MsgOrgNameTaken      = "Organization name already exists"
	MsgOrgShortNameTaken = "Organization short name already exists"
)
