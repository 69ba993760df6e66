package constants

// Error codes used in API responses.
// These are the machine-readable codes returned in the "error" field.
const (
	// Common error codes
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInternalError  = "INTERNAL_ERROR"
	CodeForbidden      = "FORBIDDEN"
	CodeNotFound       = "NOT_FOUND"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeConflict       = "CONFLICT"

	// Shortener-specific codes
	CodeInvalidURL       = "INVALID_URL"
	CodeInvalidShortCode = "INVALID_SHORT_CODE"
	CodeInvalidExpiry    = "INVALID_EXPIRY"
	CodeShortCodeTaken   = "SHORT_CODE_TAKEN"
	CodeLinkExpired      = "LINK_EXPIRED"
	CodeLinkNotFound     = "LINK_NOT_FOUND"

	// Organization-specific codes
	CodeOrgNotFound       = "ORGANIZATION_NOT_FOUND"
	CodeOrgNameTaken      = "ORGANIZATION_NAME_TAKEN"
	CodeOrgShortNameTaken = "ORGANIZATION_SHORT_NAME_TAKEN"

	// Success codes
	CodeLinkCreated  = "LINK_CREATED"
	CodeLinkUpdated  = "LINK_UPDATED"
	CodeLinkDeleted  = "LINK_DELETED"
	CodeLinkFound    = "LINK_FOUND"
	CodeLinksListed  = "LINKS_LISTED"
	CodeLinkResolved = "LINK_RESOLVED"
	CodeOrgCreated   = "ORGANIZATION_CREATED"
	CodeOrgUpdated   = "ORGANIZATION_UPDATED"
	CodeOrgDeleted   = "ORGANIZATION_DELETED"
	CodeOrgFound     = "ORGANIZATION_FOUND"
	CodeOrgsListed   = "ORGANIZATIONS_LISTED"
	CodeMemberAdded  = "MEMBER_ADDED"
)
