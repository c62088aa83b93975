package httpserver

import "net/http"

// Routes groups handlers.
type Routes struct {
	ListSessions       http.HandlerFunc
	GetSession         http.HandlerFunc
	CreateSession      http.HandlerFunc
	UpdateSession      http.HandlerFunc
	DeleteSession      http.HandlerFunc
	Stats              http.HandlerFunc
	ImportConsumption  http.HandlerFunc
	ImportDispatches   http.HandlerFunc
	CompletedDispatch  http.HandlerFunc
	GraphQLAuth        http.HandlerFunc
	LastImport         http.HandlerFunc
	Events             http.HandlerFunc
	Metrics            http.Handler
	Health             http.HandlerFunc
}

// NewRouter registers endpoints. Mutating routes pass through admin.
func NewRouter(routes Routes, admin func(http.Handler) http.Handler) http.Handler {
	if admin == nil {
		admin = func(next http.Handler) http.Handler { return next }
	}
	mux := http.NewServeMux()

	if routes.ListSessions != nil {
		mux.Handle("GET /api/sessions", routes.ListSessions)
	}
	if routes.GetSession != nil {
		mux.Handle("GET /api/sessions/{id}", routes.GetSession)
	}
	if routes.CreateSession != nil {
		mux.Handle("POST /api/sessions", admin(routes.CreateSession))
	}
	if routes.UpdateSession != nil {
		mux.Handle("PUT /api/sessions/{id}", admin(routes.UpdateSession))
	}
	if routes.DeleteSession != nil {
		mux.Handle("DELETE /api/sessions/{id}", admin(routes.DeleteSession))
	}
	if routes.Stats != nil {
		mux.Handle("GET /api/stats", routes.Stats)
	}
	if routes.ImportConsumption != nil {
		mux.Handle("POST /api/octopus/import", admin(routes.ImportConsumption))
	}
	if routes.ImportDispatches != nil {
		mux.Handle("POST /api/import/dispatches", admin(routes.ImportDispatches))
	}
	if routes.CompletedDispatch != nil {
		mux.Handle("GET /api/octopus/completed-dispatches", routes.CompletedDispatch)
	}
	if routes.GraphQLAuth != nil {
		mux.Handle("POST /api/octopus/graphql/auth", admin(routes.GraphQLAuth))
	}
	if routes.LastImport != nil {
		mux.Handle("GET /api/import/last", routes.LastImport)
	}
	if routes.Events != nil {
		mux.Handle("GET /ws/events", routes.Events)
	}
	if routes.Metrics != nil {
		mux.Handle("GET /metrics", routes.Metrics)
	}
	if routes.Health != nil {
		mux.Handle("GET /health", routes.Health)
	}
	return mux
}
