// Package router wires the HTTP routes onto the handlers.
package router

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/pliu/personifid/internal/handlers"
	"github.com/pliu/personifid/internal/metrics"
	"github.com/pliu/personifid/internal/middleware"
	"github.com/pliu/personifid/internal/services"
	"github.com/pliu/personifid/internal/ws"
)

type Deps struct {
	Accounts   *services.AccountService
	Identities *services.IdentityService
	Contexts   *services.ContextService
	Dashboard  *services.DashboardService
	Hub        *ws.Hub
	Store      handlers.HealthChecker

	Version        string
	Driver         string
	AllowedOrigins []string
}

func New(d Deps) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(handlers.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(handlers.MethodNotAllowed)
	r.Use(middleware.Metrics)

	system := &handlers.SystemHandler{Store: d.Store, Version: d.Version, Driver: d.Driver}
	authHandler := &handlers.AuthHandler{Accounts: d.Accounts}
	identityHandler := &handlers.IdentityHandler{Identities: d.Identities}
	contextHandler := &handlers.ContextHandler{Contexts: d.Contexts}
	dashboardHandler := &handlers.DashboardHandler{Dashboard: d.Dashboard}
	eventsHandler := &handlers.EventsHandler{Accounts: d.Accounts, Hub: d.Hub}

	// Public endpoints
	r.HandleFunc("/", system.Root).Methods("GET")
	r.HandleFunc("/health", system.Health).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/token", authHandler.Token).Methods("POST")
	r.HandleFunc("/auth/verify", authHandler.Verify).Methods("GET")
	r.HandleFunc("/ws", eventsHandler.Serve).Methods("GET")

	// Bearer-authenticated endpoints
	auth := middleware.Auth(d.Accounts)
	protected := func(path string, h http.HandlerFunc, methods ...string) {
		r.Handle(path, auth(h)).Methods(methods...)
	}

	protected("/users/me", authHandler.Me, "GET")
	protected("/users/me", authHandler.UpdateMe, "PUT")

	protected("/identities", identityHandler.List, "GET")
	protected("/identities", identityHandler.Create, "POST")
	protected("/identities/{id:[0-9]+}", identityHandler.Get, "GET")
	protected("/identities/{id:[0-9]+}", identityHandler.Update, "PUT")
	protected("/identities/{id:[0-9]+}", identityHandler.Delete, "DELETE")

	protected("/contexts", contextHandler.List, "GET")
	protected("/contexts", contextHandler.Create, "POST")
	protected("/contexts/{id:[0-9]+}", contextHandler.Get, "GET")
	protected("/contexts/{id:[0-9]+}", contextHandler.Update, "PUT")
	protected("/contexts/{id:[0-9]+}", contextHandler.Delete, "DELETE")
	protected("/contexts/{id:[0-9]+}/identities", contextHandler.Identities, "GET")
	protected("/contexts/{id:[0-9]+}/unassigned-identities", contextHandler.UnassignedIdentities, "GET")
	protected("/contexts/{id:[0-9]+}/resolve", contextHandler.Resolve, "GET")
	protected("/contexts/{id:[0-9]+}/identities/{identityID:[0-9]+}", contextHandler.AddIdentity, "POST")
	protected("/contexts/{id:[0-9]+}/identities/{identityID:[0-9]+}", contextHandler.RemoveIdentity, "DELETE")

	protected("/dashboard/stats", dashboardHandler.Stats, "GET")

	h := cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: !slices.Contains(d.AllowedOrigins, "*"), // must be false with "*"
		MaxAge:           300,
	})(r)

	return middleware.RequestID(middleware.LoggingMiddleware(h))
}
