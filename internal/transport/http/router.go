package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/orglinks/orglinks/internal/config"
	"github.com/orglinks/orglinks/internal/infrastructure/telemetry"
	"github.com/orglinks/orglinks/internal/processing/links"
	"github.com/orglinks/orglinks/internal/processing/orgs"
	"github.com/orglinks/orglinks/internal/transport/http/middleware"
	"github.com/orglinks/orglinks/pkg/httputils"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var spanNames = map[string]string{
	"GET /health":                    "health",
	"GET /metrics":                   "metrics",
	"POST /api/organizations":        "orgs.create",
	"GET /api/organizations":         "orgs.list",
	"GET /api/organizations/{orgID}": "orgs.get",
	"PUT /api/organizations/{orgID}": "orgs.update",

	"DELETE /api/organizations/{orgID}":       "orgs.delete",
	"GET /api/organizations/{orgID}/links":    "orgs.links.list",
	"POST /api/organizations/{orgID}/members": "orgs.members.add",

	"POST /api/links":        "links.create",
	"GET /api/links/{id}":    "links.get",
	"PUT /api/links/{id}":    "links.update",
	"DELETE /api/links/{id}": "links.delete",

	"GET /s/{code}":                  "links.redirect",
	"GET /s/{org}/{code}":            "links.redirect.scoped",
	"GET /api/public/preview/{code}": "links.preview",

	"GET /api/public/preview/{orgID}/{orgLinkID}": "links.preview.scoped",
}

type RouterOptions struct {
	EnableCORS    bool
	EnableLogging bool
	EnableMetrics bool
}

func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		EnableCORS:    true,
		EnableLogging: true,
		EnableMetrics: true,
	}
}

func NewRouter(cfg *config.Config, linkService *links.Service, orgService *orgs.Service) http.Handler {
	return NewRouterWithOptions(cfg, linkService, orgService, DefaultRouterOptions())
}

func NewRouterWithOptions(cfg *config.Config, linkService *links.Service, orgService *orgs.Service, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()

	healthHandler := NewHealthHandler()
	linksHandler := NewLinksHandler(cfg, linkService)
	redirectHandler := NewRedirectHandler(cfg, linkService)
	orgsHandler := NewOrgsHandler(orgService)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		httputils.RespondJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("GET /metrics", healthHandler.Metrics())

	// The management API requires a service key and a caller identity.
	apiMiddlewares := []func(http.Handler) http.Handler{
		middleware.APIKeyMiddleware(cfg.Security.APIKeys),
		middleware.PrincipalMiddleware,
	}
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.Chain(h, apiMiddlewares...))
	}

	handle("POST /api/organizations", orgsHandler.Create)
	handle("GET /api/organizations", orgsHandler.List)
	handle("GET /api/organizations/{orgID}", orgsHandler.Get)
	handle("PUT /api/organizations/{orgID}", orgsHandler.Update)
	handle("DELETE /api/organizations/{orgID}", orgsHandler.Delete)
	handle("GET /api/organizations/{orgID}/links", linksHandler.ListByOrg)
	handle("POST /api/organizations/{orgID}/members", orgsHandler.AddMember)

	handle("POST /api/links", linksHandler.Create)
	handle("GET /api/links/{id}", linksHandler.Get)
	handle("PUT /api/links/{id}", linksHandler.Update)
	handle("DELETE /api/links/{id}", linksHandler.Delete)

	// Resolution is public: no key, no principal.
	mux.HandleFunc("GET /s/{code}", redirectHandler.Redirect)
	mux.HandleFunc("GET /s/{org}/{code}", redirectHandler.RedirectScoped)
	mux.HandleFunc("GET /api/public/preview/{code}", redirectHandler.PreviewByCode)
	mux.HandleFunc("GET /api/public/preview/{orgID}/{orgLinkID}", redirectHandler.PreviewByOrgAndID)

	var innerHandler http.Handler = mux
	if opts.EnableCORS {
		innerHandler = middleware.CORSMiddleware(innerHandler)
	}
	if opts.EnableLogging {
		innerHandler = middleware.LoggingMiddleware(innerHandler)
	}
	if opts.EnableMetrics {
		innerHandler = middleware.MetricsMiddleware(innerHandler)
	}

	otelOptions := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			key := r.Method + " " + r.Pattern
			if name, ok := spanNames[key]; ok {
				return name
			}
			if r.Pattern != "" {
				return r.Pattern
			}
			path := strings.TrimSpace(r.URL.Path)
			if path == "" {
				path = "/"
			}
			return path
		}),
	}

	if telemetry.TracerProvider != nil {
		otelOptions = append(otelOptions, otelhttp.WithTracerProvider(telemetry.TracerProvider))
	}

	return otelhttp.NewHandler(innerHandler, cfg.App.Name, otelOptions...)
}
