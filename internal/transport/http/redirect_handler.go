package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/orglinks/orglinks/internal/config"
	"github.com/orglinks/orglinks/internal/constants"
	"github.com/orglinks/orglinks/internal/infrastructure/logger"
	"github.com/orglinks/orglinks/internal/processing/links"
	"github.com/orglinks/orglinks/internal/transport/http/middleware"
	"github.com/orglinks/orglinks/pkg/httputils"
	"go.uber.org/zap"
)

// RedirectHandler serves the public resolution surface: browser redirects
// under /s/ and JSON previews under /api/public/. Every hit that resolves
// counts as a click; previews are resolutions too.
type RedirectHandler struct {
	cfg *config.Config
	svc *links.Service
}

func NewRedirectHandler(cfg *config.Config, svc *links.Service) *RedirectHandler {
	return &RedirectHandler{cfg: cfg, svc: svc}
}

// Redirect handles GET /s/{code}.
func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	link, err := h.svc.Resolve(r.Context(), code)
	h.finishRedirect(w, r, "code", link, err)
}

// RedirectScoped handles GET /s/{org}/{code}, where {org} is the
// organization short name.
func (h *RedirectHandler) RedirectScoped(w http.ResponseWriter, r *http.Request) {
	link, err := h.svc.ResolveByOrgShortNameAndCode(r.Context(), r.PathValue("org"), r.PathValue("code"))
	h.finishRedirect(w, r, "org_code", link, err)
}

func (h *RedirectHandler) finishRedirect(w http.ResponseWriter, r *http.Request, scheme string, link *links.Link, err error) {
	if err != nil {
		middleware.RecordResolution(scheme, resolutionOutcome(err))
		switch {
		case errors.Is(err, links.ErrNotFound):
			http.NotFound(w, r)
		case errors.Is(err, links.ErrExpired):
			w.WriteHeader(http.StatusGone)
		default:
			logger.Error("failed to resolve link", zap.Error(err), zap.String("scheme", scheme))
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	middleware.RecordResolution(scheme, "hit")
	http.Redirect(w, r, link.OriginalURL, h.cfg.Shortener.RedirectStatus)
}

type previewResponse struct {
	URL        string     `json:"url"`
	ShortCode  string     `json:"shortCode"`
	OrgLinkID  int64      `json:"orgLinkId"`
	Title      string     `json:"title,omitempty"`
	ClickCount int64      `json:"clickCount"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

// PreviewByCode handles GET /api/public/preview/{code}.
func (h *RedirectHandler) PreviewByCode(w http.ResponseWriter, r *http.Request) {
	link, err := h.svc.Resolve(r.Context(), r.PathValue("code"))
	h.finishPreview(w, r, "code", link, err)
}

// PreviewByOrgAndID handles GET /api/public/preview/{orgID}/{orgLinkID}.
func (h *RedirectHandler) PreviewByOrgAndID(w http.ResponseWriter, r *http.Request) {
	orgLinkID, err := strconv.ParseInt(r.PathValue("orgLinkID"), 10, 64)
	if err != nil || orgLinkID <= 0 {
		httputils.WriteAPIError(w, r, constants.ErrLinkNotFound)
		return
	}

	link, err := h.svc.ResolveByOrgAndID(r.Context(), r.PathValue("orgID"), orgLinkID)
	h.finishPreview(w, r, "org_id", link, err)
}

func (h *RedirectHandler) finishPreview(w http.ResponseWriter, r *http.Request, scheme string, link *links.Link, err error) {
	if err != nil {
		middleware.RecordResolution(scheme, resolutionOutcome(err))
		switch {
		case errors.Is(err, links.ErrNotFound):
			httputils.WriteAPIError(w, r, constants.ErrLinkNotFound)
		case errors.Is(err, links.ErrExpired):
			httputils.WriteAPIError(w, r, constants.ErrLinkExpired)
		default:
			logger.Error("failed to resolve preview", zap.Error(err), zap.String("scheme", scheme))
			httputils.WriteAPIError(w, r, constants.ErrInternalError)
		}
		return
	}

	middleware.RecordResolution(scheme, "hit")
	httputils.WriteAPISuccess(w, r, constants.SuccessLinkResolved, previewResponse{
		URL:        link.OriginalURL,
		ShortCode:  link.ShortCode,
		OrgLinkID:  link.OrgLinkID,
		Title:      link.Title,
		ClickCount: link.ClickCount,
		ExpiresAt:  link.ExpiresAt,
	})
}

func resolutionOutcome(err error) string {
	switch {
	case errors.Is(err, links.ErrExpired):
		return "expired"
	case errors.Is(err, links.ErrNotFound):
		return "miss"
	default:
		return "error"
	}
}
