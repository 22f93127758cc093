package main

import (
	"encoding/json"
	"net/http"

	"github.com/NotCoffee418/han_reader/pkg/han"
	"github.com/NotCoffee418/han_reader/pkg/metrics"
	"github.com/NotCoffee418/han_reader/pkg/sensor"
)

type statsSource interface {
	Stats() han.Stats
}

func newRouter(state *sensor.State, decoder statsSource, h *hub) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		writeJson(w, http.StatusOK, map[string]any{
			"message":    "HAN Reader API",
			"status":     "running",
			"ws_clients": h.count(),
		})
	})

	mux.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		if name := r.URL.Query().Get("sensor"); name != "" {
			reading := state.Get(name)
			if reading == nil {
				writeJson(w, http.StatusNotFound, map[string]string{
					"error": "No readings available for " + name,
				})
				return
			}
			writeJson(w, http.StatusOK, reading)
			return
		}

		readings := state.All()
		if len(readings) == 0 {
			writeJson(w, http.StatusNotFound, map[string]string{
				"error": "No readings available yet",
			})
			return
		}
		writeJson(w, http.StatusOK, readings)
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, http.StatusOK, decoder.Stats())
	})

	mux.HandleFunc("/ws", h.serveWs(state))
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func writeJson(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
