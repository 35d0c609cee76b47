package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/gatehouse/gatehouse/internal/middleware"
)

// NewRouter wires every endpoint. Three tiers: public auth routes, the
// authenticated tier behind the session guard, and the admin tier which
// additionally requires the admin role.
func NewRouter(
	authHandlers *AuthHandlers,
	userHandlers *UserHandlers,
	roleHandlers *RoleHandlers,
	authMiddleware *middleware.AuthMiddleware,
	logger *logrus.Logger,
) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.LoggingMiddleware(logger))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "OPTIONS")

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/register", authHandlers.Register).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/login", authHandlers.Login).Methods("POST", "OPTIONS")

	protected := api.PathPrefix("/").Subrouter()
	protected.Use(authMiddleware.RequireAuth)
	protected.HandleFunc("/auth/logout", authHandlers.Logout).Methods("POST", "OPTIONS")
	protected.HandleFunc("/auth/refresh", authHandlers.Refresh).Methods("POST", "OPTIONS")
	protected.HandleFunc("/me", authHandlers.Me).Methods("GET")

	admin := protected.PathPrefix("/").Subrouter()
	admin.Use(authMiddleware.RequireRole("admin"))

	admin.HandleFunc("/users", userHandlers.List).Methods("GET")
	admin.HandleFunc("/users", userHandlers.Create).Methods("POST")
	admin.HandleFunc("/users/{id}", userHandlers.Get).Methods("GET")
	admin.HandleFunc("/users/{id}", userHandlers.Update).Methods("PUT")
	admin.HandleFunc("/users/{id}", userHandlers.Delete).Methods("DELETE")
	admin.HandleFunc("/users/{id}/restore", userHandlers.Restore).Methods("POST")

	admin.HandleFunc("/roles", roleHandlers.List).Methods("GET")
	admin.HandleFunc("/roles", roleHandlers.Create).Methods("POST")
	admin.HandleFunc("/roles/{id}", roleHandlers.Get).Methods("GET")
	admin.HandleFunc("/roles/{id}", roleHandlers.Update).Methods("PUT")
	admin.HandleFunc("/roles/{id}", roleHandlers.Delete).Methods("DELETE")
	admin.HandleFunc("/roles/{id}/restore", roleHandlers.Restore).Methods("POST")

	return router
}
