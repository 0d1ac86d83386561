package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /{$}", handler.Root)
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicScheduleRoutes(mux *http.ServeMux, handler *Handler) {
	// Bare JSON array, same shape as the cache file.
	mux.HandleFunc("GET /api/schedules", handler.ListSchedules)
	mux.HandleFunc("GET /v1/sync/last", handler.GetLastSync)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/sync-schedule", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunSyncScheduleJob)))
}
