package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mbolis/quick-wizard/app"
	"github.com/mbolis/quick-wizard/routes/middlewares"
)

// Wire builds the HTTP handler. gatherer, when not nil, is served on
// /metrics.
func Wire(app app.App, gatherer prometheus.Gatherer) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))
	if gatherer != nil {
		root.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Get(`/wizards/{id:^\d+$}`, PublicGetWizard(app))
	api.Post(`/wizards/{id:^\d+$}/submissions`, StartSubmission(app))
	api.Get(`/submissions/{sid}`, GetSubmission(app))
	api.Post(`/submissions/{sid}/next`, NextStep(app))
	api.Post(`/submissions/{sid}/prev`, PrevStep(app))

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Admin(app.TokenSecret))

		// CRUD wizard templates
		r.Post("/wizards", CreateWizard(app))
		r.Get("/wizards", ListWizards(app))
		r.Get(`/wizards/{id:^\d+$}`, GetWizardById(app))
		r.Put(`/wizards/{id:^\d+$}`, UpdateWizard(app))
		r.Put(`/wizards/{id:^\d+$}/status`, SetWizardStatus(app))
		r.Delete(`/wizards/{id:^\d+$}`, DeleteWizard(app))

		r.Get(`/wizards/{id:^\d+$}/submissions`, GetWizardSubmissions(app))
		r.Post(`/submissions/{sid}/export`, ExportSubmission(app))
	})

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	return api
}
