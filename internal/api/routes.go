package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Controllers
	mux.Handle("GET /api/v1/controllers", chain(http.HandlerFunc(h.ListControllers)))
	mux.Handle("POST /api/v1/controllers", chain(http.HandlerFunc(h.CreateController)))
	mux.Handle("GET /api/v1/controllers/{id}", chain(http.HandlerFunc(h.GetController)))
	mux.Handle("POST /api/v1/controllers/{id}/start", chain(http.HandlerFunc(h.StartController)))
	mux.Handle("POST /api/v1/controllers/{id}/stop", chain(http.HandlerFunc(h.StopController)))
	mux.Handle("DELETE /api/v1/controllers/{id}", chain(http.HandlerFunc(h.DeleteController)))

	// Operation log
	mux.Handle("GET /api/v1/logs", chain(http.HandlerFunc(h.ListLogs)))
	mux.Handle("GET /api/v1/logs/{id}", chain(http.HandlerFunc(h.GetLog)))
	mux.Handle("POST /api/v1/logs/{id}/retry", chain(http.HandlerFunc(h.RetryLog)))
	mux.Handle("POST /api/v1/logs/purge", chain(http.HandlerFunc(h.PurgeLogs)))
}
