package routes

import (
	"github.com/go-chi/chi/v5"

	"authgate/internal/handlers"
	"authgate/internal/middleware"
)

func RegisterUserRoutes(router chi.Router, deps Dependencies) {
	userHandler := handlers.NewUserHandler(deps.Users, deps.Avatars, deps.Config.AvatarMaxBytes)

	router.Get("/check-username", userHandler.CheckUsername)

	router.Route("/user", func(r chi.Router) {
		r.Use(middleware.RequireSession(deps.Sessions, deps.Config.SessionCookieName))
		r.Post("/avatar", userHandler.UploadAvatar)
	})
}
