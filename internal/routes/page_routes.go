package routes

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RegisterPageRoutes mounts the page routes. Gated pages pass through the
// session gate first; the redirect targets stay public.
func RegisterPageRoutes(router chi.Router, deps Dependencies) {
	pages := deps.Pages
	if pages == nil {
		pages = http.HandlerFunc(placeholderPage)
	}

	rules := deps.Gate.Rules()
	for _, p := range rules.GatedPaths() {
		router.Handle(p, deps.Gate.Handler(pages))
	}

	for _, p := range []string{rules.Home, rules.Unauthorized, rules.Error} {
		router.Handle(p, pages)
	}
}

// NewFrontendProxy forwards page requests to the frontend origin.
func NewFrontendProxy(frontendURL string) (http.Handler, error) {
	target, err := url.Parse(frontendURL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid FRONTEND_URL %q", frontendURL)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		zap.L().Error("Frontend proxy failed", zap.String("path", r.URL.Path), zap.Error(err))
		w.WriteHeader(http.StatusBadGateway)
	}
	return proxy, nil
}

func placeholderPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "<!DOCTYPE html><html><body><h1>%s</h1></body></html>", html.EscapeString(r.URL.Path))
}
