package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mbolis/quick-feedback/app"
	"github.com/mbolis/quick-feedback/routes/middlewares"
)

const tokenParam = `{token:^[A-Za-z0-9]+$}`

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RequestID, middleware.RealIP, middlewares.AccessLog, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	root.
		With(middlewares.CookieAuth(app.BearerServer), middlewares.Admin(app.TokenSecret)).
		Mount("/admin", servePrivateFiles("/admin"))
	root.Mount("/", servePublicFiles())

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Route("/sessions/"+tokenParam, func(r chi.Router) {
		r.Get("/", PublicGetSession(app))
		r.Get("/status", PublicSessionStatus(app))
		r.Post("/participants", PublicRegisterParticipant(app))
		r.Post("/feedback", PublicSubmitFeedback(app))
	})

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Admin(app.TokenSecret))

		r.Post("/sessions", CreateSession(app))
		r.Get("/sessions", ListSessions(app))

		r.Route("/sessions/"+tokenParam, func(r chi.Router) {
			r.Delete("/", DeleteSession(app))
			r.Post("/start", StartSession(app))
			r.Post("/close", CloseSession(app))
			r.Get("/monitor", MonitorSession(app))
			r.Get("/review", ReviewSession(app))
			r.Get(`/participants/{participantID:^\d+$}/feedback`, DownloadFeedback(app))
		})
	})

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	return api
}

func servePublicFiles() http.Handler {
	return http.FileServer(http.Dir("public"))
}

func servePrivateFiles(path string) http.Handler {
	return http.StripPrefix(path, http.FileServer(http.Dir("private")))
}
