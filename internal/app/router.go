package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type routes struct {
	startTime time.Time
	mode      string
	telegram  http.Handler
	payments  http.Handler
}

func newRouter(rt routes) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "CoverCraft Bot is running (mode: %s, uptime: %s)",
			rt.mode, time.Since(rt.startTime).Round(time.Second))
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	})

	r.Get("/heartbeat", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":         "alive",
			"uptime_seconds": int64(time.Since(rt.startTime).Seconds()),
		})
	})

	r.Method(http.MethodPost, "/telegram-webhook", rt.telegram)
	r.Method(http.MethodPost, "/telegram-webhook/{secret}", rt.telegram)
	r.Method(http.MethodPost, "/payments/flutterwave", rt.payments)

	return r
}
