package middleware

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"authgate/internal/metrics"
	"authgate/internal/models"
)

// SessionFetcher resolves a raw Cookie header to a session. A nil payload with
// a nil error means the caller has no session.
type SessionFetcher interface {
	FetchSession(ctx context.Context, cookieHeader string) (*models.SessionPayload, error)
}

type RouteRules struct {
	// AuthOnly paths are matched exactly and only served to anonymous callers.
	AuthOnly      []string
	AdminPrefixes []string
	UserPrefixes  []string

	Home         string
	SignIn       string
	Unauthorized string
	Error        string
}

func DefaultRouteRules() RouteRules {
	return RouteRules{
		AuthOnly:      []string{"/sign-in", "/sign-up", "/reset-password", "/forget-password"},
		AdminPrefixes: []string{"/admin"},
		UserPrefixes:  []string{"/dashboard"},
		Home:          "/",
		SignIn:        "/sign-in",
		Unauthorized:  "/unauthorized",
		Error:         "/error",
	}
}

// GatedPaths lists the route patterns the gate should be mounted on.
func (r RouteRules) GatedPaths() []string {
	paths := append([]string(nil), r.AuthOnly...)
	for _, p := range append(append([]string(nil), r.AdminPrefixes...), r.UserPrefixes...) {
		paths = append(paths, p, strings.TrimSuffix(p, "/")+"/*")
	}
	return paths
}

type Decision struct {
	// Redirect is empty when the request may proceed.
	Redirect string
	Reason   string
}

func (d Decision) Allowed() bool {
	return d.Redirect == ""
}

// Decide applies the routing rules in order: auth-only routes first, then the
// session requirement, then role checks for admin and user prefixes.
func (r RouteRules) Decide(requestPath string, session *models.SessionPayload) Decision {
	p := cleanPath(requestPath)

	if r.isAuthOnly(p) {
		if session != nil {
			return Decision{Redirect: r.Home, Reason: "authenticated_on_auth_route"}
		}
		return Decision{Reason: "anonymous_on_auth_route"}
	}

	if session == nil {
		return Decision{Redirect: r.SignIn, Reason: "no_session"}
	}

	role := session.User.Role
	if hasPrefix(p, r.AdminPrefixes) && role != models.RoleAdmin {
		return Decision{Redirect: r.Unauthorized, Reason: "admin_required"}
	}
	if hasPrefix(p, r.UserPrefixes) && role != models.RoleUser && role != models.RoleAdmin {
		return Decision{Redirect: r.Unauthorized, Reason: "user_required"}
	}

	return Decision{Reason: "allowed"}
}

func (r RouteRules) isAuthOnly(p string) bool {
	for _, a := range r.AuthOnly {
		if p == a {
			return true
		}
	}
	return false
}

func hasPrefix(p string, prefixes []string) bool {
	for _, prefix := range prefixes {
		prefix = strings.TrimSuffix(prefix, "/")
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

type SessionGate struct {
	fetcher SessionFetcher
	cache   *SessionCache
	rules   RouteRules
	baseURL string
	group   singleflight.Group
	now     func() time.Time

	// epoch advances on every invalidation. A fetch that straddles one does
	// not write its result back.
	epoch atomic.Uint64
}

// NewSessionGate redirects to baseURL joined with the rule targets.
func NewSessionGate(fetcher SessionFetcher, cache *SessionCache, rules RouteRules, baseURL string) *SessionGate {
	return &SessionGate{
		fetcher: fetcher,
		cache:   cache,
		rules:   rules,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

func (g *SessionGate) Rules() RouteRules {
	return g.rules
}

// Resolve returns the session for a raw Cookie header, serving repeated headers
// from the cache. Concurrent misses for the same header share one fetch. Fetch
// errors are returned and never cached.
func (g *SessionGate) Resolve(ctx context.Context, cookieHeader string) (*models.SessionPayload, error) {
	if cookieHeader == "" {
		return nil, nil
	}

	if session, ok := g.cache.Get(cookieHeader); ok {
		metrics.SessionCacheLookups.WithLabelValues("hit").Inc()
		return session, nil
	}
	metrics.SessionCacheLookups.WithLabelValues("miss").Inc()

	ch := g.group.DoChan(cookieHeader, func() (v any, err error) {
		// singleflight re-raises panics from DoChan on a fresh goroutine.
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("session fetch panic: %v", rec)
			}
		}()

		if session, ok := g.cache.Get(cookieHeader); ok {
			return session, nil
		}

		epoch := g.epoch.Load()
		session, err := g.fetcher.FetchSession(context.WithoutCancel(ctx), cookieHeader)
		if err != nil {
			metrics.SessionFetches.WithLabelValues("error").Inc()
			return nil, err
		}
		if session == nil {
			metrics.SessionFetches.WithLabelValues("none").Inc()
		} else {
			metrics.SessionFetches.WithLabelValues("session").Inc()
		}
		if g.epoch.Load() == epoch {
			g.cache.Set(cookieHeader, session)
		}
		return session, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		session, _ := res.Val.(*models.SessionPayload)
		return session, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *SessionGate) Invalidate(cookieHeader string) {
	if cookieHeader != "" {
		g.epoch.Add(1)
		g.cache.Delete(cookieHeader)
	}
}

func (g *SessionGate) RevokeUser(userID string) {
	g.epoch.Add(1)
	if n := g.cache.DeleteUser(userID); n > 0 {
		zap.L().Debug("Dropped cached sessions", zap.String("user_id", userID), zap.Int("entries", n))
	}
}

// Handler redirects callers that may not see the requested page. Resolution
// failures and panics redirect to the error page.
func (g *SessionGate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision, err := g.evaluate(r)
		if err != nil {
			zap.L().Error("Session gate failed",
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			metrics.GateDecisions.WithLabelValues("error").Inc()
			g.redirect(w, r, g.rules.Error)
			return
		}

		metrics.GateDecisions.WithLabelValues(decision.Reason).Inc()
		if !decision.Allowed() {
			g.redirect(w, r, decision.Redirect)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *SessionGate) evaluate(r *http.Request) (decision Decision, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("session gate panic: %v", rec)
		}
	}()

	session, err := g.Resolve(r.Context(), CookieHeader(r))
	if err != nil {
		return Decision{}, err
	}
	if session.Expired(g.now()) {
		session = nil
	}
	return g.rules.Decide(r.URL.Path, session), nil
}

func (g *SessionGate) redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, g.baseURL+target, http.StatusTemporaryRedirect)
}

// CookieHeader joins every Cookie header of r into the cache key form.
func CookieHeader(r *http.Request) string {
	return strings.Join(r.Header.Values("Cookie"), "; ")
}
