package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-contacts-api/internal/config"
	"go-contacts-api/internal/handler"
	"go-contacts-api/internal/middleware"
	"go-contacts-api/internal/model"
)

type Handlers struct {
	Auth    *handler.AuthHandler
	Contact *handler.ContactHandler
	Search  *handler.SearchHandler
	Health  *handler.HealthHandler
	Docs    *handler.DocsHandler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)
	perCaller := middleware.NewRouteLimiter(cfg.ContactsRateInterval, 1)

	r.Use(middleware.Recovery)
	r.Use(middleware.NewClientIP(cfg.TrustedProxies).Handler)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", h.Health.Health)
	if h.Docs != nil {
		r.Get("/openapi.yaml", h.Docs.OpenAPI)
		r.Get("/swagger", h.Docs.SwaggerUI)
	}

	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/api/auth", func(auth chi.Router) {
			auth.Post("/signup", h.Auth.Signup)
			auth.Post("/login", h.Auth.Login)
			auth.Get("/refresh_token", h.Auth.RefreshToken)
			auth.Get("/confirmed_email/{token}", h.Auth.ConfirmedEmail)
			auth.Post("/request_email", h.Auth.RequestEmail)
			auth.Post("/reset_password", h.Auth.ResetPassword)
			auth.Get("/form_reset_password/{token}", h.Auth.ResetPasswordForm)
			auth.Post("/form_reset_password/{token}", h.Auth.CompleteResetPassword)
			auth.With(authMiddleware.RequireAuth).Get("/me", h.Auth.Me)
		})

		api.Route("/contacts", func(contacts chi.Router) {
			contacts.Use(authMiddleware.RequireAuth)

			contacts.With(perCaller.Handler).Get("/", h.Contact.List)
			contacts.With(authMiddleware.RequireRoles(model.RoleAdmin, model.RoleModerator)).Get("/all", h.Contact.ListAll)
			contacts.Get("/{id}", h.Contact.Get)
			contacts.With(perCaller.Handler).Post("/", h.Contact.Create)
			contacts.With(perCaller.Handler).Put("/{id}", h.Contact.Update)
			contacts.Delete("/{id}", h.Contact.Delete)
		})

		api.Route("/search", func(search chi.Router) {
			search.Use(authMiddleware.RequireAuth)

			search.Get("/name", h.Search.ByName)
			search.Get("/surname", h.Search.BySurname)
			search.Get("/email", h.Search.ByEmail)
			search.Get("/birthday", h.Search.ByBirthday)
		})
	})

	return r
}
