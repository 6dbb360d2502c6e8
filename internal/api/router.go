package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ndewijer/note-kfet-kiosk/internal/api/handlers"
	custommiddleware "github.com/ndewijer/note-kfet-kiosk/internal/api/middleware"
	"github.com/ndewijer/note-kfet-kiosk/internal/config"
	"github.com/ndewijer/note-kfet-kiosk/internal/service"
	"github.com/ndewijer/note-kfet-kiosk/internal/session"
)

// Services are the stateless services behind the API. The desks live in the
// sessions of the registry.
type Services struct {
	System    *service.SystemService
	Catalog   *service.CatalogService
	Members   *service.MemberService
	Validity  *service.ValidityService
	Developer *service.DeveloperService
}

// NewRouter creates and configures the HTTP router. metrics may be nil.
func NewRouter(svc Services, sessions *session.Registry, metrics http.Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(svc.System)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/developer", func(r chi.Router) {
			developerHandler := handlers.NewDeveloperHandler(svc.Developer)
			r.Get("/logs", developerHandler.GetLogs)
			r.Get("/system-settings/logging", developerHandler.GetLoggingConfig)
			r.Put("/system-settings/logging", developerHandler.SetLoggingConfig)
		})

		r.Route("/catalog", func(r chi.Router) {
			catalogHandler := handlers.NewCatalogHandler(svc.Catalog)
			r.Get("/", catalogHandler.Categories)
			r.Post("/sync", catalogHandler.Sync)
			r.With(custommiddleware.ValidateIDMiddleware).Get("/buttons/{id}", catalogHandler.Button)
		})

		// Everything below belongs to a terminal session.
		r.Group(func(r chi.Router) {
			r.Use(custommiddleware.Sessions(sessions, cfg.Server.SecureCookies))

			r.Route("/consos", func(r chi.Router) {
				h := handlers.NewConsumptionHandler()
				r.Get("/", h.View)
				r.Delete("/", h.Reset)
				r.Post("/search", h.Search)
				r.Put("/mode", h.SetMode)
				r.Post("/consume", h.Consume)
				r.Post("/payers", h.SelectPayer)
				r.Get("/fragments/{region}", h.Fragment)
				r.With(custommiddleware.ValidateIDMiddleware).Delete("/payers/{id}", h.RemovePayer)
				r.Route("/items/{id}", func(r chi.Router) {
					r.Use(custommiddleware.ValidateIDMiddleware)
					r.Post("/", h.AddItem)
					r.Delete("/", h.RemoveItem)
				})
			})

			r.Route("/transfer", func(r chi.Router) {
				h := handlers.NewTransferHandler()
				r.Get("/", h.View)
				r.Delete("/", h.Reset)
				r.Put("/mode", h.SetMode)
				r.Post("/me", h.SourceMe)
				r.Post("/submit", h.Submit)
				r.Get("/fragments/{region}", h.Fragment)
				r.Route("/{field}", func(r chi.Router) {
					r.Post("/", h.Select)
					r.Post("/search", h.Search)
					r.With(custommiddleware.ValidateIDMiddleware).Delete("/{id}", h.Remove)
				})
			})

			r.Route("/messages", func(r chi.Router) {
				h := handlers.NewMessageHandler()
				r.Get("/", h.List)
				r.Get("/fragment", h.Fragment)
				r.With(custommiddleware.ValidateUUIDMiddleware).Delete("/{uuid}", h.Dismiss)
			})

			memberHandler := handlers.NewMemberHandler(svc.Members)
			r.Get("/me", memberHandler.Me)
			r.Route("/aliases", func(r chi.Router) {
				r.Post("/", memberHandler.CreateAlias)
				r.With(custommiddleware.ValidateIDMiddleware).Delete("/{id}", memberHandler.DeleteAlias)
			})
			r.Route("/trusts", func(r chi.Router) {
				r.Post("/", memberHandler.CreateTrust)
				r.With(custommiddleware.ValidateIDMiddleware).Delete("/{id}", memberHandler.DeleteTrust)
			})

			r.Route("/transactions/{id}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateIDMiddleware)
				transactionHandler := handlers.NewTransactionHandler(svc.Validity)
				r.Patch("/validity", transactionHandler.ToggleValidity)
			})
		})
	})

	return r
}
