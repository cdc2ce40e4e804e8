package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes. Everything under /api/v1 except
// registration and login sits behind session validation.
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// Open auth routes
	open := r.PathPrefix("/api/v1/auth").Subrouter()
	open.HandleFunc("/register", handler.Register).Methods("POST")
	open.HandleFunc("/login", handler.Login).Methods("POST")

	// Everything else requires a valid session
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(handler.requireAuth)
	api.HandleFunc("/auth/logout", handler.Logout).Methods("POST")
	api.HandleFunc("/auth/password", handler.ChangePassword).Methods("POST")
	api.HandleFunc("/prices/{metal}/latest", handler.GetLatest).Methods("GET")
	api.HandleFunc("/prices/{metal}/history", handler.GetHistory).Methods("GET")
	api.HandleFunc("/prices/{metal}/summary", handler.GetSummary).Methods("GET")
	api.HandleFunc("/prices/{metal}/stats", handler.GetStats).Methods("GET")
	api.HandleFunc("/alerts", handler.ListAlerts).Methods("GET")
	api.HandleFunc("/alerts", handler.CreateAlert).Methods("POST")
	api.HandleFunc("/alerts/{id}", handler.ClearAlert).Methods("DELETE")

	return r
}
