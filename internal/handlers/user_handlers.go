package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/gatehouse/gatehouse/internal/middleware"
	"github.com/gatehouse/gatehouse/internal/service"
)

// UserHandlers serves the admin user CRUD. The admin gate sits in the
// router; by the time a request lands here it carries an admin user.
type UserHandlers struct {
	users     *service.UserService
	resources *Resources
	logger    *logrus.Logger
	debug     bool
}

func NewUserHandlers(users *service.UserService, resources *Resources, logger *logrus.Logger, debug bool) *UserHandlers {
	return &UserHandlers{
		users:     users,
		resources: resources,
		logger:    logger,
		debug:     debug,
	}
}

func (h *UserHandlers) List(w http.ResponseWriter, r *http.Request) {
	users, pagination, err := h.users.List(r.Context(), pageParam(r))
	if err != nil {
		respondWithDomainError(w, err, h.logger, h.debug)
		return
	}

	respondWithJSON(w, http.StatusOK, CollectionResponse{
		Data:       h.resources.Users(users),
		Pagination: pagination,
	})
}

func (h *UserHandlers) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondWithDomainError(w, err, h.logger, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, h.resources.User(user))
}

func (h *UserHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var cmd service.CreateUserCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	user, err := h.users.Create(r.Context(), actorID(r), cmd)
	if err != nil {
		respondWithDomainError(w, err, h.logger, h.debug)
		return
	}
	respondWithJSON(w, http.StatusCreated, h.resources.User(user))
}

func (h *UserHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var cmd service.UpdateUserCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	user, err := h.users.Update(r.Context(), actorID(r), mux.Vars(r)["id"], cmd)
	if err != nil {
		respondWithDomainError(w, err, h.logger, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, h.resources.User(user))
}

func (h *UserHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	if err := h.users.Delete(r.Context(), actorID(r), mux.Vars(r)["id"], force); err != nil {
		respondWithDomainError(w, err, h.logger, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "User deleted successfully",
	})
}

func (h *UserHandlers) Restore(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Restore(r.Context(), actorID(r), mux.Vars(r)["id"])
	if err != nil {
		respondWithDomainError(w, err, h.logger, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, h.resources.User(user))
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func actorID(r *http.Request) string {
	if user, ok := middleware.UserFromContext(r.Context()); ok {
		return user.ID
	}
	return ""
}
