package routes

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	json "github.com/goccy/go-json"

	"github.com/mbolis/quick-feedback/app"
	"github.com/mbolis/quick-feedback/httpx"
	"github.com/mbolis/quick-feedback/log"
	"github.com/mbolis/quick-feedback/model"
)

type newSession struct {
	Name string `json:"name" form:"name"`
}

func CreateSession(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := newSession{}
		err := render.Decode(r, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		session, err := app.CreateSession(r.Context(), body.Name)
		if err != nil {
			httpx.LogError(w, "create_session", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"session":     session,
			"session_url": app.Url() + "/sessions/" + session.Token,
			"admin_url":   app.Url() + "/admin/sessions/" + session.Token,
		})
	}
}

func ListSessions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := app.ListSessions(r.Context())
		if err != nil {
			httpx.LogError(w, "list_sessions", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"sessions": sessions,
		})
	}
}

func DeleteSession(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := app.SessionByToken(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			httpx.LogError(w, "delete_session.get_session", err)
			return
		}

		err = app.DeleteSession(r.Context(), session.ID)
		if err != nil {
			httpx.LogError(w, "delete_session", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func StartSession(app app.App) http.HandlerFunc {
	return transition(app, "start_session", app.StartSession)
}

func CloseSession(app app.App) http.HandlerFunc {
	return transition(app, "close_session", app.CloseSession)
}

func transition(app app.App, code string, move func(context.Context, int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := app.SessionByToken(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			httpx.LogError(w, code+".get_session", err)
			return
		}

		err = move(r.Context(), session.ID)
		if err != nil {
			httpx.LogError(w, code, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func MonitorSession(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := app.SessionByToken(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			httpx.LogError(w, "monitor.get_session", err)
			return
		}

		completion, err := app.MonitoringView(r.Context(), session.ID)
		if err != nil {
			httpx.LogError(w, "monitor", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"session":    session,
			"completion": completion,
		})
	}
}

// ReviewSession groups feedback per recipient. With ?legacy=1 recipients
// are keyed by name, merging participants that share one.
func ReviewSession(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := app.SessionByToken(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			httpx.LogError(w, "review.get_session", err)
			return
		}

		if legacy, _ := strconv.ParseBool(r.URL.Query().Get("legacy")); legacy {
			byName, err := app.LegacyReviewView(r.Context(), session.ID)
			if err != nil {
				httpx.LogError(w, "review.legacy", err)
				return
			}
			render.JSON(w, r, map[string]any{
				"session":  session,
				"feedback": byName,
			})
			return
		}

		review, err := app.ReviewView(r.Context(), session.ID)
		if err != nil {
			httpx.LogError(w, "review", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"session":  session,
			"feedback": review,
		})
	}
}

// DownloadFeedback serves one recipient's feedback as a JSON attachment.
func DownloadFeedback(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		participantId, err := strconv.ParseInt(chi.URLParam(r, "participantID"), 10, 64)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.participant_id")
			return
		}

		session, err := app.SessionByToken(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			httpx.LogError(w, "download.get_session", err)
			return
		}

		rf, err := app.RecipientFeedback(r.Context(), session.ID, participantId)
		if err != nil {
			httpx.LogError(w, "download", err)
			return
		}

		body, err := json.MarshalIndent(struct {
			Session string `json:"session"`
			model.RecipientFeedback
		}{session.Name, rf}, "", "  ")
		if err != nil {
			httpx.LogInternalError(w, "download.encode", err)
			return
		}

		w.Header().Set("content-type", "application/json; charset=utf-8")
		w.Header().Set("content-disposition", fmt.Sprintf(`attachment; filename="feedback_%s_%d.json"`, session.Token, rf.ParticipantID))
		w.Write(body)
	}
}
