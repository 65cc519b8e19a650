package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hnrobert/lumgreet/internal/logger"
)

// handleEvents streams State as server-sent events until the client goes
// away.
func (a *App) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	fl, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ch, cancel := a.display.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fl.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case st := <-ch:
			b, err := json.Marshal(st)
			if err != nil {
				logger.Error("bridge: encoding state: %v", err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: state\ndata: %s\n\n", b); err != nil {
				return
			}
			fl.Flush()
		}
	}
}
