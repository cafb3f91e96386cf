package routes

import (
	"github.com/go-chi/chi/v5"

	"autovitrine/precos/internal/api"
	"autovitrine/precos/internal/middleware"
)

// RegisterAPIRoutes registers the public catalog endpoints and the admin
// pipeline endpoints.
func RegisterAPIRoutes(r chi.Router, deps *api.Dependencies, limiter *middleware.RateLimiter) {
	catalog := deps.Services.Catalog
	sessions := deps.Services.Sessions

	// Public catalog, rate limited per client IP
	r.Route("/api/fipe", func(public chi.Router) {
		public.Use(limiter.Middleware)

		public.Get("/referencia", api.ReferenceMonthHandler(catalog))
		public.Get("/marcas", api.ListBrandsHandler(catalog))
		public.Get("/modelos", api.ListModelsHandler(catalog))
		public.Get("/anos", api.ListYearsHandler(catalog))
		public.Get("/versoes", api.ListVersionsHandler(catalog))
		public.Get("/consultar", api.GetPriceHandler(catalog))

		// Cascading filter sessions
		public.Route("/sessoes", func(s chi.Router) {
			s.Post("/", api.CreateSessionHandler(sessions))
			s.Get("/{id}", api.GetSessionHandler(sessions))
			s.Post("/{id}/campo", api.SetSessionFieldHandler(sessions))
			s.Post("/{id}/reset", api.ResetSessionHandler(sessions))
			s.Post("/{id}/retry", api.RetrySessionHandler(sessions))
		})
	})

	// Admin pipeline, bearer token with the admin role
	r.Route("/api/admin/fipe", func(admin chi.Router) {
		admin.Use(middleware.AdminAuthMiddleware(deps.Services.Signer))

		admin.Post("/import", api.ImportHandler(deps.Services.Import))
		admin.Post("/normalize", api.NormalizeHandler(deps.Jobs))
		admin.Get("/runs", api.ListRunsHandler(deps.Repo.Runs))
		admin.Get("/raw/stats", api.RawStatsHandler(deps.Repo.Raw))
		admin.Delete("/raw", api.PurgeRawHandler(deps.Repo.Raw))
	})
}
