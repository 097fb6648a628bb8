package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pliu/personifid/internal/common"
	"github.com/pliu/personifid/internal/middleware"
	"github.com/pliu/personifid/internal/xlog"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var errBadJSON = errors.New("bad json")

type message struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		xlog.Warnf("encode response: %v", err)
	}
}

// writeError maps err onto a status code and a {"detail": ...} body.
// Unexpected errors are logged and reported without their cause.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	detail := "Internal server error"

	switch {
	case errors.Is(err, errBadJSON):
		status, detail = http.StatusBadRequest, "Invalid JSON body"
	case errors.Is(err, common.ErrNotFound):
		status, detail = http.StatusNotFound, common.Message(err, "Not found")
	case errors.Is(err, common.ErrConflict):
		status, detail = http.StatusBadRequest, common.Message(err, "Already exists")
	case errors.Is(err, common.ErrValidation):
		status, detail = http.StatusUnprocessableEntity, common.Message(err, "Invalid request")
	case errors.Is(err, common.ErrUnauthorized):
		middleware.Unauthorized(w, common.Message(err, "Not authenticated"))
		return
	default:
		xlog.L().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.RequestIDFrom(r.Context())),
			zap.Error(err),
		)
	}
	writeJSON(w, status, map[string]string{"detail": detail})
}

func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err != nil {
		return errBadJSON
	}
	return nil
}

// pathID reads a numeric route variable. Routes constrain the pattern, so
// a failure here means the value overflowed.
func pathID(r *http.Request, name, what string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		return 0, common.Errorf(common.ErrNotFound, "%s not found", what)
	}
	return id, nil
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"detail": "Method Not Allowed"})
}
