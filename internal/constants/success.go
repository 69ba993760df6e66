package constants

import "net/http"

// APISuccess represents a standardized API success response with code and HTTP status.
// Use these predefined success constants for consistent API responses across the application.
type APISuccess struct {
	Code   string
	Status int
}

// Link-related success responses
var (
	SuccessLinkCreated = APISuccess{
		Code:   CodeLinkCreated,
		Status: http.StatusCreated,
	}
	SuccessLinkUpdated = APISuccess{
		Code:   CodeLinkUpdated,
		Status: http.StatusOK,
	}
	SuccessLinkDeleted = APISuccess{
		Code:   CodeLinkDeleted,
		Status: http.StatusOK,
	}
	SuccessLinkFound = APISuccess{
		Code:   CodeLinkFound,
		Status: http.StatusOK,
	}
	SuccessLinksListed = APISuccess{
		Code:   CodeLinksListed,
		Status: http.StatusOK,
	}
	SuccessLinkResolved = APISuccess{
		Code:   CodeLinkResolved,
		Status: http.StatusOK,
	}
)

// Organization-related success responses
var (
	SuccessOrgCreated = APISuccess{
		Code:   CodeOrgCreated,
		Status: http.StatusCreated,
	}
	SuccessOrgUpdated = APISuccess{
		Code:   CodeOrgUpdated,
		Status: http.StatusOK,
	}
	SuccessOrgDeleted = APISuccess{
		Code:   CodeOrgDeleted,
		Status: http.StatusOK,
	}
	SuccessOrgFound = APISuccess{
		Code:   CodeOrgFound,
		Status: http.StatusOK,
	}
	SuccessOrgsListed = APISuccess{
		Code:   CodeOrgsListed,
		Status: http.StatusOK,
	}
	SuccessMemberAdded = APISuccess{
		Code:   CodeMemberAdded,
		Status: http.StatusCreated,
	}
)
