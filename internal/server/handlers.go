package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hnrobert/lumgreet/internal/greeter"
	"github.com/hnrobert/lumgreet/internal/logger"
	"github.com/hnrobert/lumgreet/internal/power"
)

const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("bad request")

type userRequest struct {
	Username string `json:"username"`
}

type sessionRequest struct {
	Session string `json:"session"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

type loginRequest struct {
	// Password, when present, replaces the field content before login.
	Password *string `json:"password"`
}

type powerResponse struct {
	Action    power.Action `json:"action"`
	Performed bool         `json:"performed"`
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

func (a *App) handleState(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	info, err := a.info(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{State: a.display.State(), Info: info})
}

func (a *App) handleNotice(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, string(a.notice))
}

func (a *App) handleSelectUser(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req userRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	a.act(w, r, func() error { return a.greeter.SelectUser(req.Username) })
}

func (a *App) handleSelectSession(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req sessionRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	a.act(w, r, func() error { return a.greeter.SelectSession(req.Session) })
}

func (a *App) handlePassword(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req passwordRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	a.display.SetPassword(req.Password)
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, err)
		return
	}
	if req.Password != nil {
		a.display.SetPassword(*req.Password)
	}
	a.act(w, r, a.greeter.SubmitLogin)
}

func (a *App) handleCancel(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	a.act(w, r, func() error {
		a.greeter.Cancel()
		return nil
	})
}

// handlePower runs off the event loop: power actions never touch the
// authentication state.
func (a *App) handlePower(action power.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodPost) {
			return
		}
		performed := false
		if a.power != nil {
			performed = a.power.Run(action)
		}
		writeJSON(w, http.StatusOK, powerResponse{Action: action, Performed: performed})
	}
}

// act runs fn on the event loop and answers with the resulting state.
func (a *App) act(w http.ResponseWriter, r *http.Request, fn func() error) {
	if err := a.onLoop(r.Context(), fn); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.display.State())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, greeter.ErrUnknownUser), errors.Is(err, greeter.ErrUnknownSession):
		return http.StatusNotFound
	case errors.Is(err, greeter.ErrNoUserSelected), errors.Is(err, greeter.ErrSessionStarting):
		return http.StatusConflict
	case errors.Is(err, greeter.ErrLoopStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logger.Error("bridge: %v", err)
	} else {
		logger.Debug("bridge: %v", err)
	}
	writeJSONError(w, code, err.Error())
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("bridge: writing response: %v", err)
	}
}
