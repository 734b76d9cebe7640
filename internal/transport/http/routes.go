package http

import (
	"encoding/json"
	"net/http"

	"elearning-quiz-service/internal/app"
)

// NewRouter mounts the websocket session endpoint and the read-only theme routes.
func NewRouter(machine *app.Machine, ws *WSHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /themes", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(machine.EnabledThemes())
	})
	mux.HandleFunc("GET /materials/{key}", func(w http.ResponseWriter, r *http.Request) {
		theme, ok := machine.Theme(r.PathValue("key"))
		if !ok || !theme.Enabled || theme.MaterialPath == "" {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, theme.MaterialPath)
	})
	mux.HandleFunc("/ws", ws.ServeWS)
	return mux
}
