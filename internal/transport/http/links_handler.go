package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/orglinks/orglinks/internal/config"
	"github.com/orglinks/orglinks/internal/constants"
	"github.com/orglinks/orglinks/internal/infrastructure/logger"
	appvalidation "github.com/orglinks/orglinks/internal/infrastructure/validation"
	"github.com/orglinks/orglinks/internal/processing/links"
	"github.com/orglinks/orglinks/internal/transport/http/middleware"
	"github.com/orglinks/orglinks/pkg/httputils"
	"go.uber.org/zap"
)

type LinksHandler struct {
	cfg *config.Config
	svc *links.Service
}

func NewLinksHandler(cfg *config.Config, svc *links.Service) *LinksHandler {
	return &LinksHandler{cfg: cfg, svc: svc}
}

type createLinkRequest struct {
	OrgID       string     `json:"orgId" validate:"required,notblank"`
	URL         string     `json:"url" validate:"required,notblank,http_url"`
	CustomCode  string     `json:"customCode,omitempty" validate:"omitempty,shortcode"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty" validate:"omitempty,future"`
}

// updateLinkRequest is a partial update: fields absent from the body keep
// their stored values.
type updateLinkRequest struct {
	URL         string     `json:"url,omitempty" validate:"omitempty,notblank,http_url"`
	CustomCode  string     `json:"customCode,omitempty" validate:"omitempty,shortcode"`
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty" validate:"omitempty,future"`
}

type linkResponse struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	ShortCode   string     `json:"shortCode"`
	ShortURL    string     `json:"shortUrl"`
	OrgID       string     `json:"orgId"`
	OrgLinkID   int64      `json:"orgLinkId"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	ClickCount  int64      `json:"clickCount"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	Active      bool       `json:"active"`
}

func (h *LinksHandler) toLinkResponse(link *links.Link) linkResponse {
	return linkResponse{
		ID:          link.ID,
		URL:         link.OriginalURL,
		ShortCode:   link.ShortCode,
		ShortURL:    h.shortURL(link.ShortCode),
		OrgID:       link.OrgID,
		OrgLinkID:   link.OrgLinkID,
		Title:       link.Title,
		Description: link.Description,
		ClickCount:  link.ClickCount,
		CreatedAt:   link.CreatedAt,
		ExpiresAt:   link.ExpiresAt,
		Active:      link.Active,
	}
}

// shortURL derives the public address from the configured base. It is never
// stored, so base URL changes apply to existing links immediately.
func (h *LinksHandler) shortURL(code string) string {
	return strings.TrimRight(h.cfg.Shortener.BaseURL, "/") + "/s/" + code
}

func (h *LinksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		return
	}
	if err := appvalidation.Validate(req); err != nil {
		httputils.WriteAPIError(w, r, createValidationError(err))
		return
	}

	link, err := h.svc.CreateLink(r.Context(), links.CreateLinkInput{
		OrgID:       req.OrgID,
		Principal:   middleware.PrincipalFromContext(r.Context()),
		OriginalURL: req.URL,
		CustomCode:  req.CustomCode,
		Title:       req.Title,
		Description: req.Description,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		h.writeLinkError(w, r, err, "failed to create link")
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessLinkCreated, h.toLinkResponse(link))
}

func (h *LinksHandler) Get(w http.ResponseWriter, r *http.Request) {
	link, err := h.svc.GetLink(r.Context(), r.PathValue("id"), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		h.writeLinkError(w, r, err, "failed to fetch link")
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessLinkFound, h.toLinkResponse(link))
}

func (h *LinksHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		return
	}
	if err := appvalidation.Validate(req); err != nil {
		httputils.WriteAPIError(w, r, createValidationError(err))
		return
	}

	link, err := h.svc.UpdateLink(r.Context(), r.PathValue("id"), links.UpdateLinkInput{
		Principal:   middleware.PrincipalFromContext(r.Context()),
		OriginalURL: req.URL,
		CustomCode:  req.CustomCode,
		Title:       req.Title,
		Description: req.Description,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		h.writeLinkError(w, r, err, "failed to update link")
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessLinkUpdated, h.toLinkResponse(link))
}

func (h *LinksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := h.svc.DeactivateLink(r.Context(), id, middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		h.writeLinkError(w, r, err, "failed to deactivate link")
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessLinkDeleted, map[string]string{"id": id})
}

func (h *LinksHandler) ListByOrg(w http.ResponseWriter, r *http.Request) {
	orgID := r.PathValue("orgID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.svc.ListByOrganization(r.Context(), orgID, middleware.PrincipalFromContext(r.Context()), limit)
	if err != nil {
		h.writeLinkError(w, r, err, "failed to list links")
		return
	}

	out := make([]linkResponse, 0, len(list))
	for _, link := range list {
		out = append(out, h.toLinkResponse(link))
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessLinksListed, out)
}

func (h *LinksHandler) writeLinkError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	switch {
	case errors.Is(err, links.ErrAccessDenied):
		httputils.WriteAPIError(w, r, constants.ErrAccessDenied)
	case errors.Is(err, links.ErrInvalidURL):
		httputils.WriteAPIError(w, r, constants.ErrInvalidURL)
	case errors.Is(err, links.ErrInvalidCode):
		httputils.WriteAPIError(w, r, constants.ErrInvalidShortCode)
	case errors.Is(err, links.ErrCodeTaken):
		httputils.WriteAPIError(w, r, constants.ErrShortCodeTaken)
	case errors.Is(err, links.ErrInvalidExpiry):
		httputils.WriteAPIError(w, r, constants.ErrInvalidExpiry)
	case errors.Is(err, links.ErrExpired):
		httputils.WriteAPIError(w, r, constants.ErrLinkExpired)
	case errors.Is(err, links.ErrNotFound):
		httputils.WriteAPIError(w, r, constants.ErrLinkNotFound)
	default:
		logger.Error(logMsg, zap.Error(err))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
	}
}

// createValidationError maps validator failures onto the closest typed error.
func createValidationError(err error) constants.APIError {
	apiErr := constants.ErrInvalidRequestBody
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			if e.Field() == "url" {
				return constants.ErrInvalidURL
			}
			if e.Field() == "customCode" {
				return constants.ErrInvalidShortCode
			}
			if e.Field() == "expiresAt" && e.Tag() == "future" {
				return constants.ErrInvalidExpiry
			}
			if e.Field() == "orgId" {
				return apiErr.WithMessage("orgId is required")
			}
		}
	}
	return apiErr
}
