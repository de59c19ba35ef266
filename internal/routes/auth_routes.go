package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"authgate/internal/handlers"
)

func RegisterAuthRoutes(router chi.Router, deps Dependencies) {
	authHandler := handlers.NewAuthHandler(deps.Sessions, deps.Gate, handlers.CookieOptions{
		Name:   deps.Config.SessionCookieName,
		Secure: deps.Config.IsProduction(),
	})
	passwordHandler := handlers.NewPasswordHandler(deps.Resets)
	verificationHandler := handlers.NewVerificationHandler(deps.Verifier)

	limited := func(h http.HandlerFunc) http.Handler {
		if deps.Limiter == nil {
			return h
		}
		return deps.Limiter.Middleware(h)
	}

	router.Route("/auth", func(r chi.Router) {
		r.Post("/sign-up/email", authHandler.SignUp)
		r.Post("/sign-in/email", authHandler.SignIn)
		r.Post("/sign-out", authHandler.SignOut)
		r.Get("/get-session", authHandler.GetSession)

		r.Method(http.MethodPost, "/forget-password", limited(passwordHandler.ForgotPassword))
		r.Post("/reset-password", passwordHandler.ResetPassword)

		r.Method(http.MethodPost, "/resend-verification-email", limited(verificationHandler.Resend))
		r.Get("/verify-email", verificationHandler.Verify)
	})
}
