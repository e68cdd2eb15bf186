package httpx

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/mbolis/quick-feedback/log"
	"github.com/mbolis/quick-feedback/model"
)

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Will log a debug message, and send an HTTP response with status 404 and default text
func LogNotFound(w http.ResponseWriter, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, status int, level log.Level, code string) {
	log.Log(level, code)
	http.Error(w, http.StatusText(status), status)
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	http.Error(w, errMsg, status)
}

// Will translate an error returned by the feedback core into a response.
// Store failures are hidden behind a 500; every other kind is reported
// back with its message.
func LogError(w http.ResponseWriter, code string, err error) {
	status := StatusOf(err)
	switch status {
	case http.StatusInternalServerError:
		LogInternalError(w, code, err)
	case http.StatusNotFound:
		LogNotFound(w, code, err)
	default:
		LogStatusMsg(w, status, log.DebugLevel, code, "%s", err)
	}
}

func StatusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidTransition), errors.Is(err, model.ErrInvalidPhase):
		return http.StatusConflict
	case errors.Is(err, model.ErrValidation):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
