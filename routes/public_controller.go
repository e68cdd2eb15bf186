package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/quick-feedback/app"
	"github.com/mbolis/quick-feedback/httpx"
	"github.com/mbolis/quick-feedback/log"
	"github.com/mbolis/quick-feedback/model"
)

func PublicGetSession(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := app.SessionByToken(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			httpx.LogError(w, "get_session", err)
			return
		}

		participants, err := app.ListParticipants(r.Context(), session.ID)
		if err != nil {
			httpx.LogError(w, "get_session.participants", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"session":      session,
			"participants": participants,
		})
	}
}

// PublicSessionStatus lets registered participants poll for the start of
// the round.
func PublicSessionStatus(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phase, err := app.SessionStatus(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			httpx.LogError(w, "session_status", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"phase":   phase,
			"started": phase == model.PhaseActive,
		})
	}
}

type registration struct {
	Name string `json:"name" form:"name"`
}

func PublicRegisterParticipant(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := registration{}
		err := render.Decode(r, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		session, err := app.SessionByToken(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			httpx.LogError(w, "register.get_session", err)
			return
		}

		participant, err := app.RegisterParticipant(r.Context(), session.ID, body.Name)
		if err != nil {
			httpx.LogError(w, "register", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, participant)
	}
}

func PublicSubmitFeedback(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		submission := model.Submission{}
		err := render.Decode(r, &submission)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		session, err := app.SessionByToken(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			httpx.LogError(w, "submit_feedback.get_session", err)
			return
		}

		created, err := app.SubmitFeedback(r.Context(), session.ID, submission)
		if err != nil {
			httpx.LogError(w, "submit_feedback", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"created": len(created),
		})
	}
}
