package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/orglinks/orglinks/internal/constants"
	"github.com/orglinks/orglinks/internal/infrastructure/logger"
	appvalidation "github.com/orglinks/orglinks/internal/infrastructure/validation"
	"github.com/orglinks/orglinks/internal/processing/orgs"
	"github.com/orglinks/orglinks/internal/transport/http/middleware"
	"github.com/orglinks/orglinks/pkg/httputils"
	"go.uber.org/zap"
)

type OrgsHandler struct {
	svc *orgs.Service
}

func NewOrgsHandler(svc *orgs.Service) *OrgsHandler {
	return &OrgsHandler{svc: svc}
}

type createOrgRequest struct {
	Name        string `json:"name" validate:"required,notblank"`
	ShortName   string `json:"shortName" validate:"required,notblank"`
	Description string `json:"description,omitempty"`
}

type updateOrgRequest struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

type addMemberRequest struct {
	UserID string `json:"userId" validate:"required,notblank"`
	Role   string `json:"role,omitempty" validate:"omitempty,oneof=OWNER ADMIN MEMBER"`
}

type orgResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ShortName   string    `json:"shortName"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	Active      bool      `json:"active"`
}

type membershipResponse struct {
	OrgID    string    `json:"orgId"`
	UserID   string    `json:"userId"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

func toOrgResponse(org *orgs.Organization) orgResponse {
	return orgResponse{
		ID:          org.ID,
		Name:        org.Name,
		ShortName:   org.ShortName,
		Description: org.Description,
		OwnerID:     org.OwnerID,
		CreatedAt:   org.CreatedAt,
		Active:      org.Active,
	}
}

func (h *OrgsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		return
	}
	if err := appvalidation.Validate(req); err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		return
	}

	org, err := h.svc.Create(r.Context(), orgs.CreateOrganizationInput{
		Name:        req.Name,
		ShortName:   req.ShortName,
		Description: req.Description,
		Principal:   middleware.PrincipalFromContext(r.Context()),
	})
	if err != nil {
		h.writeOrgError(w, r, err, "failed to create organization")
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessOrgCreated, toOrgResponse(org))
}

func (h *OrgsHandler) Get(w http.ResponseWriter, r *http.Request) {
	org, err := h.svc.Get(r.Context(), r.PathValue("orgID"), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		h.writeOrgError(w, r, err, "failed to fetch organization")
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessOrgFound, toOrgResponse(org))
}

func (h *OrgsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListForUser(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		h.writeOrgError(w, r, err, "failed to list organizations")
		return
	}

	out := make([]orgResponse, 0, len(list))
	for _, org := range list {
		out = append(out, toOrgResponse(org))
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessOrgsListed, out)
}

func (h *OrgsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		return
	}

	org, err := h.svc.Update(r.Context(), r.PathValue("orgID"), orgs.UpdateOrganizationInput{
		Name:        req.Name,
		Description: req.Description,
		Principal:   middleware.PrincipalFromContext(r.Context()),
	})
	if err != nil {
		h.writeOrgError(w, r, err, "failed to update organization")
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessOrgUpdated, toOrgResponse(org))
}

func (h *OrgsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orgID := r.PathValue("orgID")
	err := h.svc.Deactivate(r.Context(), orgID, middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		h.writeOrgError(w, r, err, "failed to deactivate organization")
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessOrgDeleted, map[string]string{"id": orgID})
}

func (h *OrgsHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		return
	}
	if err := appvalidation.Validate(req); err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		return
	}

	member, err := h.svc.AddMember(r.Context(), r.PathValue("orgID"), req.UserID,
		middleware.PrincipalFromContext(r.Context()), orgs.Role(req.Role))
	if err != nil {
		h.writeOrgError(w, r, err, "failed to add member")
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessMemberAdded, membershipResponse{
		OrgID:    member.OrgID,
		UserID:   member.UserID,
		Role:     string(member.Role),
		JoinedAt: member.JoinedAt,
	})
}

func (h *OrgsHandler) writeOrgError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	switch {
	case errors.Is(err, orgs.ErrInvalidName):
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody.WithMessage("invalid organization name or short name"))
	case errors.Is(err, orgs.ErrNameTaken):
		httputils.WriteAPIError(w, r, constants.ErrOrgNameTaken)
	case errors.Is(err, orgs.ErrShortNameTaken):
		httputils.WriteAPIError(w, r, constants.ErrOrgShortNameTaken)
	case errors.Is(err, orgs.ErrNotFound):
		httputils.WriteAPIError(w, r, constants.ErrOrgNotFound)
	case errors.Is(err, orgs.ErrNotOwner), errors.Is(err, orgs.ErrAccessDenied):
		httputils.WriteAPIError(w, r, constants.ErrAccessDenied)
	default:
		logger.Error(logMsg, zap.Error(err))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
	}
}
